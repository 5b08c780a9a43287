package obs

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "collection-route-service/internal/platform/obs"

type instruments struct {
	cacheLookups   metric.Int64Counter
	routingResults metric.Int64Counter
	stopEvents     metric.Int64Counter
}

var (
	instOnce sync.Once
	inst     instruments
)

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

// Instruments are created lazily so a provider installed by the host
// before first use is picked up.
func load() *instruments {
	instOnce.Do(func() {
		m := meter()
		inst.cacheLookups = counter(m, "geometry_cache.lookups", "Geometry cache lookups by outcome")
		inst.routingResults = counter(m, "routing.results", "Routing provider results by path source")
		inst.stopEvents = counter(m, "playback.stop_events", "Playback stop events by type")
	})
	return &inst
}

func CountCacheLookup(ctx context.Context, outcome string) {
	load().cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func CountRoutingResult(ctx context.Context, source string) {
	load().routingResults.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func CountStopEvent(ctx context.Context, eventType string) {
	load().stopEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("type", eventType)))
}
