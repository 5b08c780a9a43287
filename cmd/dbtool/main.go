package main

import (
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/config"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/platform/obs"
	"database/sql"
	"flag"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	obs.SetupLogging(cfg.LogLevel, true)
	if envErr != nil {
		log.Info().Msg("No .env file found (using environment variables)")
	}

	seedPath := flag.String("seed", cfg.SeedPath, "scenario file to seed from")
	schemaOnly := flag.Bool("schema-only", false, "create tables without seeding")
	flag.Parse()

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
	defer conn.Close()

	if err := initAndSeed(conn, cfg.DBDriver, *seedPath, *schemaOnly); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func initAndSeed(conn *sql.DB, dialect, seedPath string, schemaOnly bool) error {
	log.Info().Str("dialect", dialect).Msg("Initializing database schema...")
	if err := repositories.InitSchema(conn, dialect); err != nil {
		return err
	}
	log.Info().Msg("Schema ready.")

	if schemaOnly {
		return nil
	}

	log.Info().Str("seed", seedPath).Msg("Seeding database...")
	if err := repositories.SeedFromJSON(conn, dialect, seedPath); err != nil {
		return err
	}
	log.Info().Msg("Seeding complete.")

	return nil
}
