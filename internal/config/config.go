package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	TitlesFile  string `env:"TITLES_FILE" default:"titles.yaml"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// Sources is the comma-separated list of social platforms whose buckets
	// the aggregation stage recomputes. The survey source is always included.
	Sources string `env:"SOURCES" default:"twitter,reddit"`

	SentimentModel     string        `env:"SENTIMENT_MODEL" default:"lexicon"`
	InferenceURL       string        `env:"INFERENCE_URL"`
	InferenceTimeout   time.Duration `env:"INFERENCE_TIMEOUT" default:"10s"`
	InferenceBatchSize int           `env:"INFERENCE_BATCH_SIZE" default:"16"`
	InferenceRateLimit float64       `env:"INFERENCE_RATE_LIMIT" default:"10"`
	MaxTextChars       int           `env:"MAX_TEXT_CHARS" default:"2000"`

	PositiveThreshold float64 `env:"POSITIVE_THRESHOLD" default:"0.05"`
	NegativeThreshold float64 `env:"NEGATIVE_THRESHOLD" default:"-0.05"`
	ConfidenceFloor   float64 `env:"CONFIDENCE_FLOOR" default:"0"`

	// CountLowConfidence keeps scores below the confidence floor in the
	// bucket counts while still excluding them from mean/stddev. When false
	// they are excluded from both.
	CountLowConfidence bool `env:"COUNT_LOW_CONFIDENCE" default:"true"`

	ScoreWorkers     int           `env:"SCORE_WORKERS" default:"8"`
	ScoreBatchLimit  int           `env:"SCORE_BATCH_LIMIT" default:"5000"`
	IngestBatchLimit int           `env:"INGEST_BATCH_LIMIT" default:"5000"`
	RetentionDays    int           `env:"RETENTION_DAYS" default:"90"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" default:"5s"`
	AlignmentWindow  int           `env:"ALIGNMENT_WINDOW_DAYS" default:"7"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Model returns the configured active sentiment model.
func (c *Config) Model() domain.Model {
	model, _ := domain.ParseModel(c.SentimentModel)
	return model
}

// SourceList splits the configured social sources.
func (c *Config) SourceList() []string {
	var sources []string
	for _, s := range strings.Split(c.Sources, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	return sources
}

func validate(cfg *Config) error {
	if _, err := domain.ParseModel(cfg.SentimentModel); err != nil {
		return apperrors.ValidationError(err.Error()).WithField("SENTIMENT_MODEL", cfg.SentimentModel)
	}
	if cfg.SentimentModel == string(domain.ModelTransformer) && cfg.InferenceURL == "" {
		return apperrors.ValidationError("INFERENCE_URL is required for the transformer model")
	}

	if cfg.PositiveThreshold <= 0 {
		return apperrors.ValidationError("POSITIVE_THRESHOLD must be positive").
			WithField("value", cfg.PositiveThreshold)
	}
	if cfg.NegativeThreshold >= 0 {
		return apperrors.ValidationError("NEGATIVE_THRESHOLD must be negative").
			WithField("value", cfg.NegativeThreshold)
	}
	if cfg.ConfidenceFloor < 0 || cfg.ConfidenceFloor > 1 {
		return apperrors.ValidationError("CONFIDENCE_FLOOR must be in [0, 1]").
			WithField("value", cfg.ConfidenceFloor)
	}

	if cfg.ScoreWorkers < 1 {
		return apperrors.ValidationError("SCORE_WORKERS must be at least 1")
	}
	if cfg.InferenceBatchSize < 1 {
		return apperrors.ValidationError("INFERENCE_BATCH_SIZE must be at least 1")
	}
	if cfg.RetentionDays < 1 {
		return apperrors.ValidationError("RETENTION_DAYS must be at least 1")
	}
	if cfg.AlignmentWindow < 2 {
		return apperrors.ValidationError("ALIGNMENT_WINDOW_DAYS must be at least 2")
	}
	if len(cfg.SourceList()) == 0 {
		return apperrors.ValidationError("SOURCES must name at least one platform")
	}

	return nil
}
