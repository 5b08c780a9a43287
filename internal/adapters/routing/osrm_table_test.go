package routing

import (
	"collection-route-service/internal/domain"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableConvertsAndEstimates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/table/v1/driving/-7.5898,33.5731;-7.6,33.58;-7.5898,33.5731", r.URL.Path)
		w.Write([]byte(`{
			"code": "Ok",
			"distances": [[0, 2000, null], [2100, 0, 1500], [null, 1400, 0]],
			"durations": [[0, 240, 360], [250, 0, 180], [null, 170, 0]]
		}`))
	}))
	defer srv.Close()

	m, err := newTestClient(t, srv.URL, time.Second).Table(context.Background(), waypoints)
	require.NoError(t, err)
	require.Len(t, m, 3)

	assert.InDelta(t, 2.0, m[0][1].DistanceKm, 1e-9)
	assert.InDelta(t, 4.0, m[0][1].DurationMin, 1e-9)
	// 360s at 30 km/h
	assert.InDelta(t, 3.0, m[0][2].DistanceKm, 1e-9)
	assert.Equal(t, unreachableKm, m[2][0].DistanceKm)
	assert.Zero(t, m[1][1].DistanceKm)
}

func TestTableRejectsOversizedRequests(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", time.Second)

	coords := make([]domain.LatLng, maxTablePoints+1)
	_, err := c.Table(context.Background(), coords)
	assert.Error(t, err)

	m, err := c.Table(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestTableSurfacesProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "InvalidQuery", "message": "bad"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).Table(context.Background(), waypoints)
	assert.Error(t, err)
}
