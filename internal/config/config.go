package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Runtime settings for the server and dbtool binaries.
type Config struct {
	Port        string
	LogLevel    string
	LogPretty   bool
	DBDriver    string
	DatabaseURL string
	SeedPath    string

	CacheBackend  string
	CacheCapacity int
	RedisAddr     string
	RedisKey      string

	OSRMBaseURL    string
	OSRMProfile    string
	RoutingTimeout time.Duration
	ResolveCeiling time.Duration

	BatchConcurrency int
	BatchPacing      time.Duration

	PlaybackTick     time.Duration
	PlaybackSteps    int
	CollectDelay     time.Duration
	ArrivalTolerance int
	SharedCollection bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "data/app.db")
	v.SetDefault("SEED_PATH", "data/seeds/scenario.json")

	v.SetDefault("CACHE_BACKEND", "sql")
	v.SetDefault("CACHE_CAPACITY", 1000)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_KEY", "route_geometry_cache")

	v.SetDefault("OSRM_BASE_URL", "https://router.project-osrm.org")
	v.SetDefault("OSRM_PROFILE", "driving")
	v.SetDefault("ROUTING_TIMEOUT", 15*time.Second)
	v.SetDefault("RESOLVE_CEILING", 300*time.Second)

	v.SetDefault("BATCH_CONCURRENCY", 3)
	v.SetDefault("BATCH_PACING", 100*time.Millisecond)

	v.SetDefault("PLAYBACK_TICK", 80*time.Millisecond)
	v.SetDefault("PLAYBACK_STEPS", 25)
	v.SetDefault("COLLECT_DELAY", 1500*time.Millisecond)
	v.SetDefault("ARRIVAL_TOLERANCE", 2)
	v.SetDefault("SHARED_COLLECTION", false)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the environment on top of the defaults.
// Callers load .env before calling it.
func Load() Config {
	v := newViper()

	return Config{
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogPretty:   v.GetBool("LOG_PRETTY"),
		DBDriver:    strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL: v.GetString("DATABASE_URL"),
		SeedPath:    v.GetString("SEED_PATH"),

		CacheBackend:  strings.ToLower(v.GetString("CACHE_BACKEND")),
		CacheCapacity: v.GetInt("CACHE_CAPACITY"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisKey:      v.GetString("REDIS_KEY"),

		OSRMBaseURL:    strings.TrimRight(v.GetString("OSRM_BASE_URL"), "/"),
		OSRMProfile:    v.GetString("OSRM_PROFILE"),
		RoutingTimeout: v.GetDuration("ROUTING_TIMEOUT"),
		ResolveCeiling: v.GetDuration("RESOLVE_CEILING"),

		BatchConcurrency: v.GetInt("BATCH_CONCURRENCY"),
		BatchPacing:      v.GetDuration("BATCH_PACING"),

		PlaybackTick:     v.GetDuration("PLAYBACK_TICK"),
		PlaybackSteps:    v.GetInt("PLAYBACK_STEPS"),
		CollectDelay:     v.GetDuration("COLLECT_DELAY"),
		ArrivalTolerance: v.GetInt("ARRIVAL_TOLERANCE"),
		SharedCollection: v.GetBool("SHARED_COLLECTION"),
	}
}

// Get returns a single setting, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	v := viper.New()
	v.AutomaticEnv()
	if s := v.GetString(key); s != "" {
		return s
	}
	return fallback
}
