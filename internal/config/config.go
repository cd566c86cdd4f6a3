package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ServerConfig captures all tunable parameters for the notifier processes.
// Values are loaded from the environment (and an optional .env file) with
// defaults that let the binaries run locally against in-memory backends.
type ServerConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsAddr     string        `env:"METRICS_ADDR" envDefault:":2112"`

	RedisURL       string        `env:"REDIS_URL"`
	RedisDriverKey string        `env:"REDIS_DRIVER_KEY" envDefault:"drivers:online"`
	PushDedupTTL   time.Duration `env:"PUSH_DEDUP_TTL" envDefault:"10m"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_RIDE_EVENTS_TOPIC" envDefault:"ride-events"`
	KafkaGroup   string   `env:"KAFKA_GROUP" envDefault:"ride-notify"`

	PGDSN         string `env:"PG_DSN"`
	RunMigrations bool   `env:"MIGRATE"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	FirestoreProjectID      string `env:"FIRESTORE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	JWTSecret               string `env:"JWT_SECRET"`
	PushWebhookURL          string `env:"PUSH_WEBHOOK_URL"`

	ShareBaseURL    string `env:"SHARE_BASE_URL" envDefault:"https://app.example.com"`
	CandidateLimit  int    `env:"FANOUT_CANDIDATE_LIMIT" envDefault:"50"`
	PrefixPrecision int    `env:"GEO_PREFIX_PRECISION" envDefault:"5"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func LoadServerConfig() (ServerConfig, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.KafkaBrokers = splitAndTrim(cfg.KafkaBrokers)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.ShareBaseURL = strings.TrimRight(cfg.ShareBaseURL, "/")

	return cfg, cfg.validate()
}

func (c ServerConfig) validate() error {
	var errs []error
	if c.CandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("FANOUT_CANDIDATE_LIMIT must be > 0"))
	}
	if c.PrefixPrecision <= 0 {
		errs = append(errs, fmt.Errorf("GEO_PREFIX_PRECISION must be > 0"))
	}
	if c.ShareBaseURL == "" {
		errs = append(errs, fmt.Errorf("SHARE_BASE_URL must not be empty"))
	}
	if c.PushDedupTTL < 0 {
		errs = append(errs, fmt.Errorf("PUSH_DEDUP_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

func splitAndTrim(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
