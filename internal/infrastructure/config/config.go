package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
)

// Config is the process-level configuration. Quality rules live in a
// separate file so the scoring contract can be versioned independently
// of deployment settings.
type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Quality   QualitySource   `koanf:"quality"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// Address returns the listen address for the HTTP server.
func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	BurstSize         int     `koanf:"burst_size" validate:"gte=0"`
}

type RedisConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Password      string        `koanf:"password"`
	DB            int           `koanf:"db"`
	PoolSize      int           `koanf:"pool_size"`
	MinIdleConns  int           `koanf:"min_idle_conns"`
	MaxRetries    int           `koanf:"max_retries"`
	DialTimeout   time.Duration `koanf:"dial_timeout"`
	ReadTimeout   time.Duration `koanf:"read_timeout"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	AssessmentTTL time.Duration `koanf:"assessment_ttl"`
}

type AuthConfig struct {
	Enabled   bool   `koanf:"enabled"`
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate" validate:"gte=0,lte=1"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
}

// QualitySource points at the quality-rules file. When no file is
// configured the engine runs on the built-in defaults.
type QualitySource struct {
	RulesFile string `koanf:"rules_file"`
}

// Load builds configuration from defaults, then an optional yaml file,
// then DQSI_-prefixed environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Redis: RedisConfig{
			Enabled:       false,
			URL:           "localhost:6379",
			PoolSize:      10,
			MinIdleConns:  2,
			MaxRetries:    3,
			DialTimeout:   5 * time.Second,
			ReadTimeout:   3 * time.Second,
			WriteTimeout:  3 * time.Second,
			AssessmentTTL: 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("DQSI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "DQSI_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadQualityRules loads and validates the quality-rules file, merged
// over the built-in defaults so a partial file stays usable. An empty
// path returns the defaults unchanged.
func LoadQualityRules(path string) (dqsi.QualityConfig, error) {
	qc := dqsi.DefaultQualityConfig()
	if path == "" {
		return qc, nil
	}

	if _, err := os.Stat(path); err != nil {
		return dqsi.QualityConfig{}, fmt.Errorf("quality rules file %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(&qc, "koanf"), nil); err != nil {
		return dqsi.QualityConfig{}, fmt.Errorf("loading quality defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return dqsi.QualityConfig{}, fmt.Errorf("loading quality rules %s: %w", path, err)
	}

	var loaded dqsi.QualityConfig
	if err := k.Unmarshal("", &loaded); err != nil {
		return dqsi.QualityConfig{}, fmt.Errorf("unmarshaling quality rules: %w", err)
	}

	if err := loaded.Validate(); err != nil {
		return dqsi.QualityConfig{}, err
	}
	return loaded, nil
}
