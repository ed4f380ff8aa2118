// Package errs defines the error kinds surfaced to callers of the planner
// and its collaborators. Errors are wrapped with fmt.Errorf and matched with
// errors.Is.
package errs

import "errors"

var (
	// ErrConfiguration is returned for missing or placeholder credentials.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation is returned for malformed input, including routes with
	// fewer than two points.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned when a user supplied location cannot be geocoded.
	ErrNotFound = errors.New("not found")
	// ErrDataUnavailable is returned when the station catalog is empty or was
	// never built.
	ErrDataUnavailable = errors.New("station data unavailable")
	// ErrUpstream is returned when the routing service fails or answers with
	// something that cannot be parsed.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamMissingField is an ErrUpstream where the payload parsed but
	// lacked a required field.
	ErrUpstreamMissingField = &missingField{}
)

type missingField struct{}

func (*missingField) Error() string { return "upstream response missing field" }

func (*missingField) Unwrap() error { return ErrUpstream }
