// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Ranking, Suggest, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Notes     NotesConfig     `yaml:"notes"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	SlowRequest     time.Duration `yaml:"slowRequest"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// NotesConfig selects where notes are read from. The file backend serves a
// read-only YAML or JSON export and reloads it when it changes.
type NotesConfig struct {
	Backend string `yaml:"backend"`
	File    string `yaml:"file"`
}

const (
	NotesBackendPostgres = "postgres"
	NotesBackendFile     = "file"
)

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	NoteEvents      string `yaml:"noteEvents"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RankingConfig holds the tuning constants of the relevance engine. None of
// them are derived; they reproduce the behaviour users are used to.
type RankingConfig struct {
	SubstringBoost  float64             `yaml:"substringBoost"`
	RecencyEnabled  bool                `yaml:"recencyEnabled"`
	RecencyWeight   float64             `yaml:"recencyWeight"`
	RecencyHalfLife time.Duration       `yaml:"recencyHalfLife"`
	Inline          InlineRankingConfig `yaml:"inline"`
}

// InlineRankingConfig holds the additive weights of the inline (token
// overlap) scoring mode.
type InlineRankingConfig struct {
	TokenMatch    float64 `yaml:"tokenMatch"`
	WordToken     float64 `yaml:"wordToken"`
	SentenceMatch float64 `yaml:"sentenceMatch"`
	WordMatch     float64 `yaml:"wordMatch"`
}

// SuggestConfig controls per-view result limits.
type SuggestConfig struct {
	FullLimit          int `yaml:"fullLimit"`
	SummaryLimit       int `yaml:"summaryLimit"`
	InlineLimit        int `yaml:"inlineLimit"`
	MaxResults         int `yaml:"maxResults"`
	SummaryMinQueryLen int `yaml:"summaryMinQueryLen"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RateLimitConfig controls the per-owner request budget.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
}

// AnalyticsConfig controls event buffering and snapshot persistence. A
// positive BatchSize switches the suggestion service to batched publishing.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the ranking engine and views cannot work with.
func (c *Config) Validate() error {
	var problems []string
	if c.Ranking.SubstringBoost < 0 {
		problems = append(problems, "ranking.substringBoost must not be negative")
	}
	if c.Ranking.RecencyWeight < 0 {
		problems = append(problems, "ranking.recencyWeight must not be negative")
	}
	if c.Ranking.RecencyEnabled && c.Ranking.RecencyHalfLife <= 0 {
		problems = append(problems, "ranking.recencyHalfLife must be positive when recency is enabled")
	}
	if c.Suggest.MaxResults <= 0 {
		problems = append(problems, "suggest.maxResults must be positive")
	}
	if c.Suggest.FullLimit <= 0 || c.Suggest.SummaryLimit <= 0 || c.Suggest.InlineLimit <= 0 {
		problems = append(problems, "suggest view limits must be positive")
	}
	switch c.Notes.Backend {
	case NotesBackendPostgres:
	case NotesBackendFile:
		if c.Notes.File == "" {
			problems = append(problems, "notes.file is required for the file backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("notes.backend must be %q or %q", NotesBackendPostgres, NotesBackendFile))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Default returns a Config with defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  5 * time.Second,
			SlowRequest:     250 * time.Millisecond,
			CORSOrigins:     []string{"*"},
		},
		Notes: NotesConfig{
			Backend: NotesBackendPostgres,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "scrappr",
			User:            "scrappr",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "scrappr-group",
			Topics: KafkaTopics{
				NoteEvents:      "note-events",
				AnalyticsEvents: "suggestion-analytics",
			},
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Ranking: RankingConfig{
			SubstringBoost:  2.0,
			RecencyEnabled:  true,
			RecencyWeight:   0.1,
			RecencyHalfLife: 30 * 24 * time.Hour,
			Inline: InlineRankingConfig{
				TokenMatch:    1,
				WordToken:     3,
				SentenceMatch: 10,
				WordMatch:     5,
			},
		},
		Suggest: SuggestConfig{
			FullLimit:          50,
			SummaryLimit:       3,
			InlineLimit:        5,
			MaxResults:         100,
			SummaryMinQueryLen: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 600,
			Window:            time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			BufferSize:       10000,
			BatchSize:        0,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: 5 * time.Minute,
		},
	}
}

// applyEnvOverrides reads SCRAPPR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCRAPPR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCRAPPR_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SCRAPPR_NOTES_BACKEND"); v != "" {
		cfg.Notes.Backend = v
	}
	if v := os.Getenv("SCRAPPR_NOTES_FILE"); v != "" {
		cfg.Notes.File = v
	}
	if v := os.Getenv("SCRAPPR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SCRAPPR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SCRAPPR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SCRAPPR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SCRAPPR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SCRAPPR_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SCRAPPR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SCRAPPR_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("SCRAPPR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SCRAPPR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SCRAPPR_RANKING_RECENCY_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Ranking.RecencyEnabled = enabled
		}
	}
	if v := os.Getenv("SCRAPPR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCRAPPR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
