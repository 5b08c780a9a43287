package repositories

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/obs"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLStopRepository reads stops and the edge library. The queries use no
// placeholders, so one implementation serves every dialect.
type SQLStopRepository struct {
	DB *sql.DB
}

func NewSQLStopRepository(conn *sql.DB) *SQLStopRepository {
	return &SQLStopRepository{DB: conn}
}

func (r *SQLStopRepository) ListStops(ctx context.Context) (_ []domain.LogicalStop, err error) {
	defer obs.Time(ctx, "stops.ListStops")(&err)

	rows, err := r.DB.QueryContext(ctx, `
	SELECT
		stop_id,
		role,
		name,
		lat,
		lng,
		demand
	FROM stops
	ORDER BY stop_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list stops: query stops table: %w", err)
	}
	defer rows.Close()

	var out []domain.LogicalStop
	for rows.Next() {
		var (
			id   int
			role string
			s    domain.LogicalStop
		)
		if err := rows.Scan(&id, &role, &s.Name, &s.Coordinates.Lat, &s.Coordinates.Lng, &s.Demand); err != nil {
			return nil, fmt.Errorf("list stops: scan rows: %w", err)
		}
		s.ID = domain.StopID(id)
		if s.Role, err = domain.ParseStopRole(role); err != nil {
			return nil, fmt.Errorf("list stops: stop_id=%d: %w", id, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}

	return out, nil
}

func (r *SQLStopRepository) ListEdges(ctx context.Context) (_ []domain.Edge, err error) {
	defer obs.Time(ctx, "stops.ListEdges")(&err)

	rows, err := r.DB.QueryContext(ctx, `
	SELECT
		from_stop,
		to_stop,
		path,
		distance_km
	FROM stop_edges
	ORDER BY from_stop, to_stop
	`)
	if err != nil {
		return nil, fmt.Errorf("list edges: query stop_edges table: %w", err)
	}
	defer rows.Close()

	var out []domain.Edge
	for rows.Next() {
		var (
			from, to int
			rawPath  string
			km       float64
		)
		if err := rows.Scan(&from, &to, &rawPath, &km); err != nil {
			return nil, fmt.Errorf("list edges: scan rows: %w", err)
		}

		var ids []int
		if err := json.Unmarshal([]byte(rawPath), &ids); err != nil {
			return nil, fmt.Errorf("list edges: decode path %d->%d: %w", from, to, err)
		}
		path := make([]domain.StopID, 0, len(ids))
		for _, id := range ids {
			path = append(path, domain.StopID(id))
		}

		out = append(out, domain.Edge{
			From:       domain.StopID(from),
			To:         domain.StopID(to),
			Path:       path,
			DistanceKm: km,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list edges: row iteration: %w", err)
	}

	return out, nil
}
