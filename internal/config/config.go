package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database, optional: history and the composite cache need it
	DatabaseURL string `envconfig:"DATABASE_URL"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"false"`

	// Provider
	FaceProvider          string        `envconfig:"FACE_PROVIDER" default:"mock"`
	DeepFaceURL           string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	AWSRegion             string        `envconfig:"AWS_REGION" default:"us-east-1"`
	GoogleCredentialsFile string        `envconfig:"GOOGLE_CREDENTIALS_FILE"`
	PigoCascadePath       string        `envconfig:"PIGO_CASCADE_PATH"`
	DetectionTimeout      time.Duration `envconfig:"DETECTION_TIMEOUT" default:"30s"`

	// Emojify
	EmojiAssetDir string `envconfig:"EMOJI_ASSET_DIR"`
	OutputFormat  string `envconfig:"OUTPUT_FORMAT" default:"png"`
	MaxImageSize  int    `envconfig:"MAX_IMAGE_SIZE" default:"10485760"`

	// Rate limiting
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"60"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// Cache
	CacheTTL             time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	CacheJanitorInterval time.Duration `envconfig:"CACHE_JANITOR_INTERVAL" default:"5m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express
func (c *Config) Validate() error {
	switch c.FaceProvider {
	case "mock", "deepface", "rekognition", "vision", "pigo":
	default:
		return fmt.Errorf("unknown FACE_PROVIDER %q", c.FaceProvider)
	}
	switch c.OutputFormat {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("unsupported OUTPUT_FORMAT %q", c.OutputFormat)
	}
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be positive, got %d", c.MaxImageSize)
	}
	if c.DetectionTimeout <= 0 {
		return fmt.Errorf("DETECTION_TIMEOUT must be positive, got %s", c.DetectionTimeout)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasDatabase reports whether persistence is configured
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
