// Package config builds runtime configuration from environment variables
// so main stays lean. Defaults favor local development; production
// overrides everything via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all runtime configuration.
type Config struct {
	Server     Server
	Postgres   Postgres
	Redis      RedisConfig
	Kafka      Kafka
	Matcher    Matcher
	Tolerances Tolerances
	Snapshot   Snapshot
	Pipeline   Pipeline
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	OperatorJWTKey  string
	ShutdownTimeout time.Duration
}

// Postgres captures database connection configuration.
type Postgres struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig captures cache connection configuration. An empty URL
// disables the cache; the matcher falls back to store lookups.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures broker configuration for the staged-record intake
// consumer and the lineage mirror producer. Empty brokers disable both.
type Kafka struct {
	Brokers       []string
	ConsumerGroup string
	StagingTopics []string
	LineageTopic  string
}

// Matcher holds the fuzzy-match thresholds. These are tunable data, not
// code: operators adjust them without a redeploy of matching logic.
type Matcher struct {
	HighThreshold   float64
	MediumThreshold float64
	LowThreshold    float64
	CollegeBonus    float64
}

// Tolerances holds the reconciliation comparison tolerances, expressed
// in each field's canonical unit.
type Tolerances struct {
	HeightInches float64
	WeightPounds float64
	TimedSeconds float64
}

// Pipeline holds batch processing knobs.
type Pipeline struct {
	Parallelism  int
	BatchTimeout time.Duration
}

// Snapshot holds snapshot storage locations and retention.
type Snapshot struct {
	Dir              string
	ArchiveDir       string
	RetentionDays    int
	CompressionLevel int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("DRAFTLINE_ADDR", ":8080"),
			OperatorJWTKey:  envString("DRAFTLINE_OPERATOR_JWT_KEY", "dev-secret-key-change-in-production"),
			ShutdownTimeout: envDuration("DRAFTLINE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN:             envString("DRAFTLINE_POSTGRES_DSN", ""),
			MaxOpenConns:    envInt("DRAFTLINE_POSTGRES_MAX_OPEN", 25),
			MaxIdleConns:    envInt("DRAFTLINE_POSTGRES_MAX_IDLE", 5),
			ConnMaxLifetime: envDuration("DRAFTLINE_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          envString("DRAFTLINE_REDIS_URL", ""),
			PoolSize:     envInt("DRAFTLINE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("DRAFTLINE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("DRAFTLINE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("DRAFTLINE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("DRAFTLINE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       envList("DRAFTLINE_KAFKA_BROKERS"),
			ConsumerGroup: envString("DRAFTLINE_KAFKA_GROUP", "draftline-intake"),
			StagingTopics: envListDefault("DRAFTLINE_KAFKA_STAGING_TOPICS", []string{
				"draftline.staging.nfl",
				"draftline.staging.espn",
				"draftline.staging.cbs",
			}),
			LineageTopic: envString("DRAFTLINE_KAFKA_LINEAGE_TOPIC", "draftline.lineage"),
		},
		Matcher: Matcher{
			HighThreshold:   envFloat("DRAFTLINE_MATCH_HIGH", 95),
			MediumThreshold: envFloat("DRAFTLINE_MATCH_MEDIUM", 85),
			LowThreshold:    envFloat("DRAFTLINE_MATCH_LOW", 75),
			CollegeBonus:    envFloat("DRAFTLINE_MATCH_COLLEGE_BONUS", 5),
		},
		Tolerances: Tolerances{
			HeightInches: envFloat("DRAFTLINE_TOLERANCE_HEIGHT_IN", 0.5),
			WeightPounds: envFloat("DRAFTLINE_TOLERANCE_WEIGHT_LB", 10),
			TimedSeconds: envFloat("DRAFTLINE_TOLERANCE_TIMED_S", 0.1),
		},
		Pipeline: Pipeline{
			Parallelism:  envInt("DRAFTLINE_PIPELINE_PARALLELISM", 4),
			BatchTimeout: envDuration("DRAFTLINE_PIPELINE_BATCH_TIMEOUT", 5*time.Minute),
		},
		Snapshot: Snapshot{
			Dir:              envString("DRAFTLINE_SNAPSHOT_DIR", "./data/snapshots"),
			ArchiveDir:       envString("DRAFTLINE_SNAPSHOT_ARCHIVE_DIR", "./data/archive"),
			RetentionDays:    envInt("DRAFTLINE_SNAPSHOT_RETENTION_DAYS", 90),
			CompressionLevel: envInt("DRAFTLINE_SNAPSHOT_COMPRESSION_LEVEL", 6),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envListDefault(key string, fallback []string) []string {
	if v := envList(key); v != nil {
		return v
	}
	return fallback
}
