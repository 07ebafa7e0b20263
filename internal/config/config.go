// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Catalog Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBSource          string        `mapstructure:"DB_SOURCE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Firebase Configuration
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseStorageBucket         string `mapstructure:"FIREBASE_STORAGE_BUCKET"`

	// Elasticsearch Configuration. Empty disables the song search index.
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`

	// PDF Generation
	LilyPondBin     string        `mapstructure:"LILYPOND_BIN"`
	LilyPondDataDir string        `mapstructure:"LILYPOND_DATA_DIR"`
	LilyPondTimeout time.Duration `mapstructure:"LILYPOND_TIMEOUT_SECONDS"`
	GeneratedDir    string        `mapstructure:"GENERATED_DIR"`
	SignedURLTTL    time.Duration `mapstructure:"SIGNED_URL_TTL_MINUTES"`

	// Catalog Sync
	CatalogObjectKey    string `mapstructure:"CATALOG_OBJECT_KEY"`
	CatalogSyncSchedule string `mapstructure:"CATALOG_SYNC_SCHEDULE"`

	// Catalog API client (jazzctl)
	CatalogAPIBaseURL       string  `mapstructure:"CATALOG_API_BASE_URL"`
	ClientCacheDir          string  `mapstructure:"CLIENT_CACHE_DIR"`
	ClientRequestsPerSecond float64 `mapstructure:"CLIENT_REQUESTS_PER_SECOND"`
}

// UsesFirebase reports whether a service account is configured.
func (c *Config) UsesFirebase() bool {
	return strings.TrimSpace(c.FirebaseServiceAccountKeyPath) != ""
}

// RequireFirebase checks that the service account key file exists.
func (c *Config) RequireFirebase() error {
	if !c.UsesFirebase() {
		return fmt.Errorf("FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set")
	}
	if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
		return fmt.Errorf("firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
	}
	return nil
}

// UsesBucket reports whether generated PDFs and catalog snapshots live in Firebase Storage.
func (c *Config) UsesBucket() bool {
	return c.UsesFirebase() && strings.TrimSpace(c.FirebaseStorageBucket) != ""
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_SOURCE", "catalog.db")
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "scripts/service-account.json")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_STORAGE_BUCKET", "")

	v.SetDefault("ELASTICSEARCH_URL", "")

	v.SetDefault("LILYPOND_BIN", "lilypond")
	v.SetDefault("LILYPOND_DATA_DIR", "lilypond-data")
	v.SetDefault("LILYPOND_TIMEOUT_SECONDS", 60)
	v.SetDefault("GENERATED_DIR", "cache/objects")
	v.SetDefault("SIGNED_URL_TTL_MINUTES", 15)

	v.SetDefault("CATALOG_OBJECT_KEY", "catalog.db")
	v.SetDefault("CATALOG_SYNC_SCHEDULE", "@every 30m")

	v.SetDefault("CATALOG_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("CLIENT_CACHE_DIR", ".jazzpicker")
	v.SetDefault("CLIENT_REQUESTS_PER_SECOND", 5.0)

	v.AutomaticEnv()
	return v
}

func load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := newViper()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Duration keys are expressed in whole units in the environment.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.LilyPondTimeout = time.Duration(v.GetInt("LILYPOND_TIMEOUT_SECONDS")) * time.Second
	cfg.SignedURLTTL = time.Duration(v.GetInt("SIGNED_URL_TTL_MINUTES")) * time.Minute

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	return &cfg, nil
}

// Load reads configuration for the catalog server and Firestore tooling.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForClient reads configuration for commands that only talk to the catalog API.
// Firebase settings are not checked.
func LoadForClient() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.CatalogAPIBaseURL) == "" {
		return nil, fmt.Errorf("CATALOG_API_BASE_URL is not set")
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBSource) == "" {
		return fmt.Errorf("DB_SOURCE is not set")
	}
	if c.UsesBucket() {
		if err := c.RequireFirebase(); err != nil {
			return err
		}
	}
	if c.LilyPondTimeout <= 0 {
		return fmt.Errorf("LILYPOND_TIMEOUT_SECONDS must be positive")
	}
	return nil
}
