package repositories

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, InitSchema(conn, db.DialectSQLite))
	return conn
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const scenario = `{
	"stops": [
		{"stop_id": 0, "role": "depot", "lat": 33.5731, "lng": -7.5898},
		{"stop_id": 1, "role": "collection", "name": "Maarif", "lat": 33.58, "lng": -7.63, "demand": 300},
		{"stop_id": 2, "role": "disposal", "x": 0, "y": 11.1}
	],
	"edges": [
		{"from": 0, "to": 1, "path": [0, 2, 1], "distance_km": 4.5},
		{"from": 1, "to": 0, "distance_km": 4.4}
	]
}`

func TestInitSchemaIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, InitSchema(conn, db.DialectSQLite))
}

func TestInitSchemaRejectsUnknownDialect(t *testing.T) {
	conn := openTestDB(t)
	assert.Error(t, InitSchema(conn, "oracle"))
	assert.Error(t, InitSchema(nil, db.DialectSQLite))
}

func TestSeedAndList(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, SeedFromJSON(conn, db.DialectSQLite, writeScenario(t, scenario)))
	// reseeding replaces rows instead of failing on the primary key
	require.NoError(t, SeedFromJSON(conn, db.DialectSQLite, writeScenario(t, scenario)))

	repo := NewSQLStopRepository(conn)

	stops, err := repo.ListStops(context.Background())
	require.NoError(t, err)
	require.Len(t, stops, 3)

	assert.Equal(t, domain.RoleDepot, stops[0].Role)
	assert.Equal(t, "depot 0", stops[0].Name)
	assert.Equal(t, "Maarif", stops[1].Name)
	assert.Equal(t, 300.0, stops[1].Demand)
	assert.InDelta(t, 33.6731, stops[2].Coordinates.Lat, 1e-9)
	assert.InDelta(t, -7.5898, stops[2].Coordinates.Lng, 1e-9)

	edges, err := repo.ListEdges(context.Background())
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, []domain.StopID{0, 2, 1}, edges[0].Path)
	assert.Equal(t, []domain.StopID{1, 0}, edges[1].Path)
	assert.Equal(t, 4.4, edges[1].DistanceKm)
}

func TestSeedRejectsBadScenarios(t *testing.T) {
	conn := openTestDB(t)

	cases := map[string]string{
		"bad role":      `{"stops": [{"stop_id": 0, "role": "hangar", "lat": 1, "lng": 1}]}`,
		"no coords":     `{"stops": [{"stop_id": 0, "role": "depot"}]}`,
		"unknown edge":  `{"stops": [{"stop_id": 0, "role": "depot", "lat": 1, "lng": 1}], "edges": [{"from": 0, "to": 9}]}`,
		"invalid json":  `{"stops": [`,
		"negative load": `{"stops": [{"stop_id": 1, "role": "collection", "lat": 1, "lng": 1, "demand": -5}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, SeedFromJSON(conn, db.DialectSQLite, writeScenario(t, body)))
		})
	}

	err := SeedFromJSON(conn, db.DialectSQLite, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestUpsertDialects(t *testing.T) {
	cols := []string{"stop_id", "role"}
	keys := []string{"stop_id"}

	assert.Equal(t,
		"INSERT INTO stops (stop_id, role) VALUES ($1, $2) ON CONFLICT (stop_id) DO UPDATE SET role = EXCLUDED.role",
		upsert(db.DialectPostgres, "stops", cols, keys))
	assert.Equal(t,
		"INSERT INTO stops (stop_id, role) VALUES (?, ?) ON DUPLICATE KEY UPDATE role = VALUES(role)",
		upsert(db.DialectMySQL, "stops", cols, keys))
	assert.Equal(t,
		"INSERT OR REPLACE INTO stops (stop_id, role) VALUES (?, ?)",
		upsert(db.DialectSQLite, "stops", cols, keys))
}
