package stations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SchemaVersion is bumped whenever the stations table changes. Caches with a
// different version are rebuilt from the CSV source.
const SchemaVersion = "1"

const (
	defaultCacheSize = -16 * 1024 // negative value for KiB
	defaultPageSize  = 4096
	busyTimeoutMs    = 10000
)

var errSchemaMismatch = errors.New("cache schema version mismatch")

// Store persists geocoded stations in a SQLite file.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// StoreStats summarizes a persisted cache.
type StoreStats struct {
	SchemaVersion string
	BuiltAt       time.Time
	Stations      int
	MinPrice      float64
	MaxPrice      float64
}

func OpenStore(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configureSQLitePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("error setting busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("error setting journal mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		return fmt.Errorf("error setting synchronous: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA cache_size = %d;", defaultCacheSize)); err != nil {
		return fmt.Errorf("error setting cache size: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA page_size = %d;", defaultPageSize)); err != nil {
		return fmt.Errorf("error setting page size: %w", err)
	}
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

func createStationsTable(ctx context.Context, tx *sql.Tx) error {
	createTableSQL := `
	DROP TABLE IF EXISTS stations;
	CREATE TABLE stations (
		id INTEGER PRIMARY KEY,
		opis_id INTEGER,
		name TEXT,
		address TEXT,
		city TEXT,
		state TEXT,
		rack_id INTEGER,
		price REAL,
		latitude REAL,
		longitude REAL
	);
	`

	if _, err := tx.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("error creating stations table: %w", err)
	}
	return nil
}

func (s *Store) meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM catalog_meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("error querying %s: %w", key, err)
	}
	return value, nil
}

// BuiltAt returns when the cached stations were written, or the zero time
// for an empty cache.
func (s *Store) BuiltAt(ctx context.Context) (time.Time, error) {
	value, err := s.meta(ctx, "built_at")
	if err != nil || value == "" {
		return time.Time{}, err
	}

	builtAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing build time %s: %w", value, err)
	}
	return builtAt, nil
}

// LoadStations reads every cached station. Rows whose coordinates or price
// are missing or not numeric are dropped.
func (s *Store) LoadStations(ctx context.Context) ([]Station, error) {
	version, err := s.meta(ctx, "schema_version")
	if err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("%w: found %q, want %q", errSchemaMismatch, version, SchemaVersion)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT opis_id, name, address, city, state, rack_id, price, latitude, longitude
		FROM stations
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying stations: %w", err)
	}
	defer rows.Close()

	var stations []Station
	dropped := 0
	for rows.Next() {
		var opisID, rackID sql.NullInt64
		var name, address, city, state sql.NullString
		var price, lat, lng any
		if err := rows.Scan(&opisID, &name, &address, &city, &state, &rackID, &price, &lat, &lng); err != nil {
			return nil, fmt.Errorf("error scanning station: %w", err)
		}

		st := Station{
			OPISID:  opisID.Int64,
			Name:    name.String,
			Address: address.String,
			City:    city.String,
			State:   state.String,
			RackID:  rackID.Int64,
		}
		var ok1, ok2, ok3 bool
		st.Lat, ok1 = coerceFloat(lat)
		st.Lng, ok2 = coerceFloat(lng)
		st.Price, ok3 = coerceFloat(price)
		if !ok1 || !ok2 || !ok3 {
			dropped++
			continue
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stations: %w", err)
	}

	if dropped > 0 {
		s.log.Debug("Dropped cached stations with invalid values", "count", dropped)
	}
	return stations, nil
}

// SaveStations replaces the cached table with stations.
func (s *Store) SaveStations(ctx context.Context, stations []Station, builtAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("rollback error", "error", err)
		}
	}()

	if err := createStationsTable(ctx, tx); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (
			id, opis_id, name, address, city, state, rack_id, price, latitude, longitude
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range stations {
		st := &stations[i]
		_, err := stmt.ExecContext(ctx,
			i, st.OPISID, st.Name, st.Address, st.City, st.State, st.RackID,
			st.Price, st.Lat, st.Lng,
		)
		if err != nil {
			return fmt.Errorf("error inserting station %q: %w", st.Name, err)
		}
	}

	meta := map[string]string{
		"schema_version": SchemaVersion,
		"built_at":       builtAt.UTC().Format(time.RFC3339),
	}
	for key, value := range meta {
		_, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO catalog_meta (key, value) VALUES (?, ?)", key, value)
		if err != nil {
			return fmt.Errorf("error saving %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.log.Debug("Saved stations to cache", "count", len(stations))
	return nil
}

// Stats reports what the cache holds without building a catalog.
func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	version, err := s.meta(ctx, "schema_version")
	if err != nil {
		return nil, err
	}
	builtAt, err := s.BuiltAt(ctx)
	if err != nil {
		return nil, err
	}

	stats := &StoreStats{SchemaVersion: version, BuiltAt: builtAt}
	if version == "" {
		return stats, nil
	}

	var minPrice, maxPrice sql.NullFloat64
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*), MIN(price), MAX(price) FROM stations").
		Scan(&stats.Stations, &minPrice, &maxPrice)
	if err != nil {
		return nil, fmt.Errorf("error querying station stats: %w", err)
	}
	stats.MinPrice = minPrice.Float64
	stats.MaxPrice = maxPrice.Float64

	return stats, nil
}

// coerceFloat converts a SQLite column value to a finite float.
func coerceFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		parsed, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
