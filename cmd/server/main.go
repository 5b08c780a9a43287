package main

import (
	"collection-route-service/internal/adapters/cache"
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/adapters/routing"
	"collection-route-service/internal/api"
	"collection-route-service/internal/api/handlers"
	"collection-route-service/internal/config"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/playback"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, OSRM) behind ports and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	obs.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		log.Info().Msg("No .env file found (using environment variables)")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Initialize schema and seed the scenario on startup for local runs.
	if err := initAndSeed(conn, cfg.DBDriver, cfg.SeedPath); err != nil {
		return err
	}

	store, closeStore, err := geometryStore(cfg, conn)
	if err != nil {
		return err
	}
	defer closeStore()

	geometry := cache.NewGeometryCache(cfg.CacheCapacity, store)
	if err := geometry.Load(ctx); err != nil {
		// a cold cache only costs routing calls
		log.Warn().Err(err).Msg("geometry cache not loaded")
	}

	var (
		router    ports.RoutingClient
		distances ports.DistanceMatrixProvider
	)
	if cfg.OSRMBaseURL == "" {
		log.Warn().Msg("OSRM_BASE_URL is empty, routes fall back to straight lines")
		router = routing.NewStaticRouter(nil)
	} else {
		osrm, err := routing.NewOSRMClient(cfg.OSRMBaseURL, cfg.OSRMProfile, cfg.RoutingTimeout)
		if err != nil {
			return err
		}
		router, distances = osrm, osrm
	}

	resolver := services.NewRouteResolver(geometry, router, cfg.BatchConcurrency, cfg.BatchPacing)
	hub := handlers.NewHub()
	engine := playback.NewEngine(playback.Config{
		TickInterval:     cfg.PlaybackTick,
		StepsPerSegment:  cfg.PlaybackSteps,
		CollectDelay:     cfg.CollectDelay,
		ArrivalTolerance: cfg.ArrivalTolerance,
		SharedCollection: cfg.SharedCollection,
	}, hub)

	handler := api.NewRouter(api.Deps{
		Repo:      repositories.NewSQLStopRepository(conn),
		Resolver:  resolver,
		Distances: distances,
		Engine:    engine,
		Hub:       hub,
		Cache:     geometry,
		Ceiling:   cfg.ResolveCeiling,
	})

	// WriteTimeout leaves room for a cold-cache resolution of many routes.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ResolveCeiling + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	engine.StopAll()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := geometry.Flush(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("geometry cache flush")
	}
	return nil
}

// geometryStore picks the persistence behind the geometry cache.
func geometryStore(cfg config.Config, conn *sql.DB) (ports.GeometryStore, func(), error) {
	switch cfg.CacheBackend {
	case "sql", "":
		return cache.NewSQLGeometryStore(conn, cfg.DBDriver), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedisGeometryStore(client, cfg.RedisKey), func() { _ = client.Close() }, nil
	case "memory":
		return nil, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.CacheBackend)
}

func initAndSeed(conn *sql.DB, dialect, seedPath string) error {
	if err := repositories.InitSchema(conn, dialect); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
