package cache

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/platform/obs"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/peterstace/simplefeatures/geom"
)

// SQL backed geometry store. One row per cached route, geometry kept as a
// WKT LINESTRING so every supported dialect can hold it in a text column.
type SQLGeometryStore struct {
	DB      *sql.DB
	Dialect string
}

func NewSQLGeometryStore(conn *sql.DB, dialect string) *SQLGeometryStore {
	return &SQLGeometryStore{DB: conn, Dialect: dialect}
}

func (s *SQLGeometryStore) ph(n int) string {
	if s.Dialect == db.DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func routeHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Validation is skipped: a path that parks on one spot repeats a point,
// which is not a valid simple LINESTRING but is still a cached route.
func encodeWKT(coords []domain.LatLng) (string, error) {
	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		flat = append(flat, c.Lng, c.Lat)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY), geom.DisableAllValidations)
	if err != nil {
		return "", fmt.Errorf("encode geometry: %w", err)
	}
	return ls.AsText(), nil
}

func decodeWKT(wkt string) ([]domain.LatLng, error) {
	g, err := geom.UnmarshalWKT(wkt, geom.DisableAllValidations)
	if err != nil {
		return nil, fmt.Errorf("parse geometry: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return nil, fmt.Errorf("parse geometry: expected LINESTRING, got %s", g.Type())
	}

	seq := ls.Coordinates()
	out := make([]domain.LatLng, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		out = append(out, domain.LatLng{Lat: xy.Y, Lng: xy.X})
	}
	return out, nil
}

// LoadSnapshot rebuilds the cache blob from stored rows. Mixed versions
// report the first foreign version so the caller discards the lot.
func (s *SQLGeometryStore) LoadSnapshot(ctx context.Context) (_ *domain.CacheSnapshot, err error) {
	defer obs.Time(ctx, "geometry.store.sql.Load")(&err)

	if s.DB == nil {
		return nil, errors.New("geometry store: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT
		route_key,
		geometry_wkt,
		distance_km,
		duration_min,
		source,
		cache_version,
		updated_at
	FROM route_geometry
	`)
	if err != nil {
		return nil, fmt.Errorf("load geometry store: query route_geometry table: %w", err)
	}
	defer rows.Close()

	snap := &domain.CacheSnapshot{
		Version: domain.CacheVersion,
		Routes:  make(map[string]domain.ResolvedPath),
	}
	var newest int64

	for rows.Next() {
		var (
			key, wkt, source, version string
			km, minutes               sql.NullFloat64
			updatedAt                 int64
		)
		if err := rows.Scan(&key, &wkt, &km, &minutes, &source, &version, &updatedAt); err != nil {
			return nil, fmt.Errorf("load geometry store: scan rows: %w", err)
		}

		if version != domain.CacheVersion && snap.Version == domain.CacheVersion {
			snap.Version = version
		}
		if updatedAt > newest {
			newest = updatedAt
		}

		coords, err := decodeWKT(wkt)
		if err != nil {
			return nil, fmt.Errorf("load geometry store: key %q: %w", key, err)
		}

		p := domain.ResolvedPath{Coordinates: coords, Source: domain.PathSource(source)}
		if km.Valid {
			v := km.Float64
			p.TotalDistanceKm = &v
		}
		if minutes.Valid {
			v := minutes.Float64
			p.TotalDurationMin = &v
		}
		snap.Routes[key] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load geometry store: row iteration: %w", err)
	}

	if len(snap.Routes) == 0 {
		return nil, nil
	}
	snap.Timestamp = time.UnixMilli(newest).UTC()

	return snap, nil
}

// SaveSnapshot replaces the stored rows with snap in one transaction.
func (s *SQLGeometryStore) SaveSnapshot(ctx context.Context, snap domain.CacheSnapshot) (err error) {
	defer obs.Time(ctx, "geometry.store.sql.Save")(&err)

	if s.DB == nil {
		return errors.New("geometry store: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save geometry store: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM route_geometry`); err != nil {
		return fmt.Errorf("save geometry store: clear rows: %w", err)
	}

	q := fmt.Sprintf(`
	INSERT INTO route_geometry (
		route_hash,
		route_key,
		geometry_wkt,
		distance_km,
		duration_min,
		source,
		cache_version,
		updated_at
	)
	VALUES (%s)
	`, strings.Join([]string{s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8)}, ", "))

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("save geometry store: db prepare: %w", err)
	}
	defer stmt.Close()

	stamp := snap.Timestamp.UnixMilli()
	for key, p := range snap.Routes {
		if strings.TrimSpace(key) == "" {
			return errors.New("save geometry store: empty route key")
		}

		var km, minutes sql.NullFloat64
		if p.TotalDistanceKm != nil {
			km = sql.NullFloat64{Float64: *p.TotalDistanceKm, Valid: true}
		}
		if p.TotalDurationMin != nil {
			minutes = sql.NullFloat64{Float64: *p.TotalDurationMin, Valid: true}
		}

		wkt, err := encodeWKT(p.Coordinates)
		if err != nil {
			return fmt.Errorf("save geometry store: route %q: %w", key, err)
		}

		if _, err := stmt.ExecContext(ctx,
			routeHash(key), key, wkt, km, minutes,
			string(p.Source), snap.Version, stamp,
		); err != nil {
			return fmt.Errorf("save geometry store key=%q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save geometry store commit: %w", err)
	}

	return nil
}
