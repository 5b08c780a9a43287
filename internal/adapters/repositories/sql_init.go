package repositories

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// column types that differ between dialects
func typeReplacer(dialect string) *strings.Replacer {
	switch dialect {
	case db.DialectPostgres:
		return strings.NewReplacer("{float}", "DOUBLE PRECISION", "{bigint}", "BIGINT", "{key}", "TEXT")
	case db.DialectMySQL:
		return strings.NewReplacer("{float}", "DOUBLE", "{bigint}", "BIGINT", "{key}", "VARCHAR(64)")
	default:
		return strings.NewReplacer("{float}", "REAL", "{bigint}", "INTEGER", "{key}", "TEXT")
	}
}

// Initialize the database schema for the given dialect.
func InitSchema(conn *sql.DB, dialect string) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}
	if _, err := db.DriverName(dialect); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		stop_id INTEGER PRIMARY KEY,
		role VARCHAR(16) NOT NULL,
		name VARCHAR(255) NOT NULL,
		lat {float} NOT NULL,
		lng {float} NOT NULL,
		demand {float} NOT NULL
	);
	`

	createEdgesQuery := `
	CREATE TABLE IF NOT EXISTS stop_edges (
		from_stop INTEGER NOT NULL,
		to_stop INTEGER NOT NULL,
		path TEXT NOT NULL,
		distance_km {float} NOT NULL,
		PRIMARY KEY (from_stop, to_stop)
	);
	`

	createGeometryQuery := `
	CREATE TABLE IF NOT EXISTS route_geometry (
		route_hash {key} PRIMARY KEY,
		route_key TEXT NOT NULL,
		geometry_wkt TEXT NOT NULL,
		distance_km {float},
		duration_min {float},
		source VARCHAR(16) NOT NULL,
		cache_version VARCHAR(16) NOT NULL,
		updated_at {bigint} NOT NULL
	);
	`

	r := typeReplacer(dialect)
	statements := []string{
		r.Replace(createStopsQuery),
		r.Replace(createEdgesQuery),
		r.Replace(createGeometryQuery),
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Stop as written in a scenario file. Either lat/lng or the optimizer's
// planar x/y (km) must be given.
type StopSeed struct {
	StopID int      `json:"stop_id"`
	Role   string   `json:"role"`
	Name   string   `json:"name"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Demand float64  `json:"demand"`
}

type EdgeSeed struct {
	From       int     `json:"from"`
	To         int     `json:"to"`
	Path       []int   `json:"path"`
	DistanceKm float64 `json:"distance_km"`
}

type ScenarioSeed struct {
	Stops []StopSeed `json:"stops"`
	Edges []EdgeSeed `json:"edges"`
}

func (s StopSeed) toDomain(i int) (domain.LogicalStop, error) {
	if s.StopID < 0 {
		return domain.LogicalStop{}, fmt.Errorf("invalid stop_id at index %d: %d", i+1, s.StopID)
	}

	role, err := domain.ParseStopRole(strings.TrimSpace(s.Role))
	if err != nil {
		return domain.LogicalStop{}, fmt.Errorf("stop at index %d: %w", i+1, err)
	}

	var coords domain.LatLng
	switch {
	case s.Lat != nil && s.Lng != nil:
		coords = domain.LatLng{Lat: *s.Lat, Lng: *s.Lng}
	case s.X != nil && s.Y != nil:
		coords = domain.PlaneToLatLng(*s.X, *s.Y)
	default:
		return domain.LogicalStop{}, fmt.Errorf("stop at index %d: lat/lng or x/y required", i+1)
	}

	if s.Demand < 0 {
		return domain.LogicalStop{}, fmt.Errorf("stop at index %d: demand cannot be negative", i+1)
	}

	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = fmt.Sprintf("%s %d", role, s.StopID)
	}

	return domain.LogicalStop{
		ID:          domain.StopID(s.StopID),
		Role:        role,
		Name:        name,
		Coordinates: coords,
		Demand:      s.Demand,
	}, nil
}

func upsert(dialect, table string, cols, keys []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		if dialect == db.DialectPostgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	insert := fmt.Sprintf("INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))

	var sets []string
	switch dialect {
	case db.DialectPostgres:
		for _, c := range cols {
			if !isKey[c] {
				sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
			}
		}
		return fmt.Sprintf("INSERT %s ON CONFLICT (%s) DO UPDATE SET %s", insert, strings.Join(keys, ", "), strings.Join(sets, ", "))
	case db.DialectMySQL:
		for _, c := range cols {
			if !isKey[c] {
				sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
			}
		}
		return fmt.Sprintf("INSERT %s ON DUPLICATE KEY UPDATE %s", insert, strings.Join(sets, ", "))
	default:
		return "INSERT OR REPLACE " + insert
	}
}

// Populate the database with stops and edges from a JSON scenario file.
func SeedFromJSON(conn *sql.DB, dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed scenario: read %q: %w", jsonPath, err)
	}

	var data ScenarioSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed scenario: parse json: %w", err)
	}

	stops := make([]domain.LogicalStop, 0, len(data.Stops))
	known := make(map[int]struct{}, len(data.Stops))
	for i, item := range data.Stops {
		s, err := item.toDomain(i)
		if err != nil {
			return fmt.Errorf("seed scenario: %w", err)
		}
		stops = append(stops, s)
		known[item.StopID] = struct{}{}
	}

	for i, e := range data.Edges {
		for _, id := range append([]int{e.From, e.To}, e.Path...) {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("seed scenario: edge at index %d references %w %d", i+1, domain.ErrUnknownStop, id)
			}
		}
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("seed scenario: begin tx: %w", err)
	}
	defer tx.Rollback()

	stopStmt, err := tx.Prepare(upsert(dialect, "stops",
		[]string{"stop_id", "role", "name", "lat", "lng", "demand"}, []string{"stop_id"}))
	if err != nil {
		return fmt.Errorf("seed scenario: prepare stop insert: %w", err)
	}
	defer stopStmt.Close()

	for _, s := range stops {
		if _, err := stopStmt.Exec(int(s.ID), string(s.Role), s.Name, s.Coordinates.Lat, s.Coordinates.Lng, s.Demand); err != nil {
			return fmt.Errorf("seed scenario: insert stop_id=%d: %w", s.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(upsert(dialect, "stop_edges",
		[]string{"from_stop", "to_stop", "path", "distance_km"}, []string{"from_stop", "to_stop"}))
	if err != nil {
		return fmt.Errorf("seed scenario: prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range data.Edges {
		path := e.Path
		if len(path) == 0 {
			path = []int{e.From, e.To}
		}
		raw, err := json.Marshal(path)
		if err != nil {
			return fmt.Errorf("seed scenario: encode edge %d->%d: %w", e.From, e.To, err)
		}
		if _, err := edgeStmt.Exec(e.From, e.To, string(raw), e.DistanceKm); err != nil {
			return fmt.Errorf("seed scenario: insert edge %d->%d: %w", e.From, e.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed scenario: commit tx: %w", err)
	}

	return nil
}
