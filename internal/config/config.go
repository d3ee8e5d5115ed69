package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrMissingSecret is returned by Load when no token signing secret is configured.
var ErrMissingSecret = errors.New("config: SECRET is required")

// Config holds the application configuration. It is loaded once at startup and
// passed by value to the components that need it.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Auth        AuthConfig        `koanf:"auth"`
	Database    DatabaseConfig    `koanf:"database"`
	Storage     StorageConfig     `koanf:"storage"`
	Redis       RedisConfig       `koanf:"redis"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Env             string        `koanf:"env"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LogLevel        string        `koanf:"log_level"`
}

// AuthConfig configures token issuance and login throttling.
type AuthConfig struct {
	Secret             string        `koanf:"secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	LoginRatePerMinute int           `koanf:"login_rate_per_minute"`
	LoginRateBurst     int           `koanf:"login_rate_burst"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // "sqlite" or "postgres"
	URL    string `koanf:"url"`
}

// StorageConfig configures the optional S3 bucket for listing pictures.
// Pictures are stored inline in the database when Bucket is empty.
type StorageConfig struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// RedisConfig configures the optional Redis token denylist.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// MaintenanceConfig holds the cron specs of background jobs.
type MaintenanceConfig struct {
	RevocationSweep string        `koanf:"revocation_sweep"`
	EventSweep      string        `koanf:"event_sweep"`
	EventRetention  time.Duration `koanf:"event_retention"`
}

// TelemetryConfig configures the OTLP trace exporter.
type TelemetryConfig struct {
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	Insecure     bool   `koanf:"insecure"`
}

// envKeys maps environment variables onto configuration keys.
var envKeys = map[string]string{
	"SECRET":                      "auth.secret",
	"TOKEN_TTL":                   "auth.token_ttl",
	"LOGIN_RATE_PER_MINUTE":       "auth.login_rate_per_minute",
	"LOGIN_RATE_BURST":            "auth.login_rate_burst",
	"PORT":                        "server.port",
	"NODE_ENV":                    "server.env",
	"APP_ENV":                     "server.env",
	"CORS_ORIGINS":                "server.allowed_origins",
	"SHUTDOWN_TIMEOUT":            "server.shutdown_timeout",
	"LOG_LEVEL":                   "server.log_level",
	"DATABASE_DRIVER":             "database.driver",
	"DATABASE_URL":                "database.url",
	"PICTURE_BUCKET":              "storage.bucket",
	"AWS_REGION":                  "storage.region",
	"S3_ENDPOINT":                 "storage.endpoint",
	"S3_ACCESS_KEY_ID":            "storage.access_key_id",
	"S3_SECRET_ACCESS_KEY":        "storage.secret_access_key",
	"REDIS_ADDR":                  "redis.addr",
	"REDIS_PASSWORD":              "redis.password",
	"REDIS_DB":                    "redis.db",
	"REVOCATION_SWEEP":            "maintenance.revocation_sweep",
	"EVENT_SWEEP":                 "maintenance.event_sweep",
	"EVENT_RETENTION":             "maintenance.event_retention",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "telemetry.otlp_endpoint",
	"OTEL_EXPORTER_OTLP_INSECURE": "telemetry.insecure",
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			Env:             "development",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 5 * time.Second,
			LogLevel:        "info",
		},
		Auth: AuthConfig{
			TokenTTL:           time.Hour,
			LoginRatePerMinute: 30,
			LoginRateBurst:     10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "./realty.db",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Maintenance: MaintenanceConfig{
			RevocationSweep: "*/15 * * * *",
			EventSweep:      "0 3 * * *",
			EventRetention:  90 * 24 * time.Hour,
		},
	}
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins). The file path
// is taken from the argument or, when empty, from CONFIG_FILE.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue drops every variable not listed in envKeys and splits list values.
func envValue(key, value string) (string, interface{}) {
	mapped, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	if mapped == "server.allowed_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return mapped, origins
	}
	return mapped, value
}

// Validate checks that the configuration can be used to start the server.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return ErrMissingSecret
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config: token ttl must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}
