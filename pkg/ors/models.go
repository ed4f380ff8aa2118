package ors

// DirectionsRequest is the body posted to the directions endpoint.
// Coordinates are [longitude, latitude] pairs.
type DirectionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Units       string       `json:"units"`
	Preference  string       `json:"preference"`
	Format      string       `json:"format"`
	Options     *Options     `json:"options,omitempty"`
}

type Options struct {
	AvoidFeatures []string `json:"avoid_features,omitempty"`
}

// DirectionsResponse holds the parts of the directions payload the client
// reads. Pointers distinguish absent fields from zero values.
type DirectionsResponse struct {
	Routes []Route `json:"routes"`
}

type Route struct {
	Summary  *Summary `json:"summary"`
	Geometry *string  `json:"geometry"`
}

type Summary struct {
	Distance *float64 `json:"distance"`
	Duration *float64 `json:"duration"`
}

// Directions is a route between two points. Distance is in miles.
type Directions struct {
	DistanceMiles   float64
	DurationSeconds float64
	// Geometry is the route as an encoded polyline.
	Geometry string
}
