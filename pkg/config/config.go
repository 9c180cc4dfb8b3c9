package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. CONFPORTAL_SERVER_PORT.
const EnvPrefix = "CONFPORTAL"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Geocoding GeocodingConfig `json:"geocoding" yaml:"geocoding"`
	Admin     AdminConfig     `json:"admin" yaml:"admin"`
	Interests InterestsConfig `json:"interests" yaml:"interests"`
	Blob      BlobConfig      `json:"blob" yaml:"blob"`
	Jobs      JobsConfig      `json:"jobs" yaml:"jobs"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" split_words:"true"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// ServerConfig for HTTP server settings
type ServerConfig struct {
	Port           string   `json:"port" yaml:"port"`
	ReadTimeout    int      `json:"read_timeout_seconds" yaml:"read_timeout_seconds" split_words:"true"`
	WriteTimeout   int      `json:"write_timeout_seconds" yaml:"write_timeout_seconds" split_words:"true"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" split_words:"true"`
	StaticDir      string   `json:"static_dir" yaml:"static_dir" split_words:"true"`
}

// StorageConfig locates the persisted event catalog.
type StorageConfig struct {
	EventsFile string `json:"events_file" yaml:"events_file" split_words:"true"`
	// SeedFile is copied to EventsFile on first start when EventsFile is absent.
	SeedFile string `json:"seed_file" yaml:"seed_file" split_words:"true"`
}

// GeocodingConfig for the external Nominatim tier
type GeocodingConfig struct {
	Disabled       bool   `json:"disabled" yaml:"disabled"`
	BaseURL        string `json:"base_url" yaml:"base_url" split_words:"true"`
	UserAgent      string `json:"user_agent" yaml:"user_agent" split_words:"true"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" split_words:"true"`
	DelayMillis    int    `json:"delay_ms" yaml:"delay_ms" split_words:"true"`
}

type AdminConfig struct {
	Passphrase string `json:"passphrase" yaml:"passphrase"`
}

// InterestsConfig for interest registrations
type InterestsConfig struct {
	EmailDomain string `json:"email_domain" yaml:"email_domain" split_words:"true"`
	BlobPrefix  string `json:"blob_prefix" yaml:"blob_prefix" split_words:"true"`
}

// BlobConfig selects the object store backing interest registrations.
type BlobConfig struct {
	Backend    string `json:"backend" yaml:"backend"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	BaseURL    string `json:"base_url" yaml:"base_url" split_words:"true"`
	Token      string `json:"token" yaml:"token"`
}

type JobsConfig struct {
	// RegeocodeCron is a cron expression; empty disables the job.
	RegeocodeCron string `json:"regeocode_cron" yaml:"regeocode_cron" split_words:"true"`
}

// RateLimitConfig for per-client limits on the public interest endpoints
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" split_words:"true"`
	Burst             int `json:"burst" yaml:"burst"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

const (
	BlobBackendSQLite = "sqlite"
	BlobBackendHTTP   = "http"
)

// Load reads configuration from file and environment variables.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
// Environment variables override file values using the pattern CONFPORTAL_SECTION_KEY.
func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Load from file if it exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := unmarshal(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(config)

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return config, nil
}

func unmarshal(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30
	}
	if config.Server.WriteTimeout == 0 {
		// uploads geocode every row before responding
		config.Server.WriteTimeout = 600
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
	if config.Storage.EventsFile == "" {
		config.Storage.EventsFile = "data/events.json"
	}
	if config.Geocoding.BaseURL == "" {
		config.Geocoding.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if config.Geocoding.UserAgent == "" {
		config.Geocoding.UserAgent = "conference_portal_app"
	}
	if config.Geocoding.TimeoutSeconds == 0 {
		config.Geocoding.TimeoutSeconds = 10
	}
	if config.Geocoding.DelayMillis == 0 {
		config.Geocoding.DelayMillis = 1000
	}
	if config.Interests.EmailDomain == "" {
		config.Interests.EmailDomain = "bakerhughes.com"
	}
	if config.Interests.BlobPrefix == "" {
		config.Interests.BlobPrefix = "interests/"
	}
	if config.Blob.Backend == "" {
		config.Blob.Backend = BlobBackendSQLite
	}
	if config.Blob.Backend == BlobBackendSQLite && config.Blob.SQLitePath == "" {
		config.Blob.SQLitePath = "data/blobs.db"
	}
	if config.RateLimit.RequestsPerMinute == 0 {
		config.RateLimit.RequestsPerMinute = 30
	}
	if config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = 5
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

// GeocodeTimeout is the per-request timeout for the external geocoder.
func (c *GeocodingConfig) GeocodeTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Delay is the minimum spacing between external geocoder calls.
func (c *GeocodingConfig) Delay() time.Duration {
	return time.Duration(c.DelayMillis) * time.Millisecond
}

// Validate checks if required configurations are present
func (c *Config) Validate() error {
	var missing []string

	if c.Admin.Passphrase == "" {
		missing = append(missing, "admin.passphrase")
	}
	if c.Storage.EventsFile == "" {
		missing = append(missing, "storage.events_file")
	}
	if c.Interests.EmailDomain == "" {
		missing = append(missing, "interests.email_domain")
	}

	switch c.Blob.Backend {
	case BlobBackendSQLite:
		if c.Blob.SQLitePath == "" {
			missing = append(missing, "blob.sqlite_path")
		}
	case BlobBackendHTTP:
		if c.Blob.BaseURL == "" {
			missing = append(missing, "blob.base_url")
		}
		if c.Blob.Token == "" {
			missing = append(missing, "blob.token")
		}
	default:
		return fmt.Errorf("unknown blob backend %q (want %s or %s)", c.Blob.Backend, BlobBackendSQLite, BlobBackendHTTP)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
