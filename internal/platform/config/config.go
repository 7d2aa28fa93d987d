// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (64KB).
	// Event endpoints carry no body, so this only guards against abuse.
	DefaultMaxRequestSize = 64 << 10

	// DefaultImageRetryMaxAttempts is the default number of image probe attempts.
	DefaultImageRetryMaxAttempts = 2

	// DefaultImageRetryMultiplier is the default exponential backoff multiplier.
	DefaultImageRetryMultiplier = 2.0

	// DefaultImageRetryJitterFactor is the default jitter percentage (±25%).
	DefaultImageRetryJitterFactor = 0.25

	// DefaultImageCircuitMaxFailures is the default failures before the circuit opens.
	DefaultImageCircuitMaxFailures = 5

	// DefaultImageCircuitHalfOpenLimit is the default successes to close the circuit.
	DefaultImageCircuitHalfOpenLimit = 2

	// DefaultImageMaxBytes caps how much of an image body is read during a probe (8MB).
	DefaultImageMaxBytes = 8 << 20

	// DefaultAuditConcurrency bounds parallel probes during an image audit.
	DefaultAuditConcurrency = 4

	// DefaultTransportMaxIdleConns is the default max idle connections.
	DefaultTransportMaxIdleConns = 50

	// DefaultTransportMaxIdleConnsPerHost is the default max idle connections per host.
	DefaultTransportMaxIdleConnsPerHost = 10

	// DefaultClipboardMaxBytes rejects clipboard writes above this size.
	DefaultClipboardMaxBytes = 4096

	// DefaultClipboardHistory is how many writes the memory clipboard keeps.
	DefaultClipboardHistory = 10

	// DefaultPulseScale is how far the like button grows on a like.
	DefaultPulseScale = 1.2

	// DefaultMaxSessions caps live sessions.
	DefaultMaxSessions = 10000

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28
)

// envPrefix prefixes every environment override.
const envPrefix = "APP_"

// Config is the root configuration structure.
type Config struct {
	App         AppConfig         `koanf:"app"          validate:"required"`
	Server      ServerConfig      `koanf:"server"       validate:"required"`
	Log         LogConfig         `koanf:"log"          validate:"required"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	ImageLoader ImageLoaderConfig `koanf:"image_loader" validate:"required"`
	Catalog     CatalogConfig     `koanf:"catalog"`
	Presenter   PresenterConfig   `koanf:"presenter"    validate:"required"`
	Clipboard   ClipboardConfig   `koanf:"clipboard"    validate:"required"`
	Session     SessionConfig     `koanf:"session"      validate:"required"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=100ms"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ImageLoaderConfig contains settings for probing background images.
type ImageLoaderConfig struct {
	Timeout          time.Duration        `koanf:"timeout"           validate:"required,min=100ms"`
	UserAgent        string               `koanf:"user_agent"        validate:"required"`
	MaxBytes         int64                `koanf:"max_bytes"         validate:"required,min=1"`
	AuditConcurrency int                  `koanf:"audit_concurrency" validate:"required,min=1,max=32"`
	AuditTimeout     time.Duration        `koanf:"audit_timeout"     validate:"required,min=1s"`
	AuditCacheFor    time.Duration        `koanf:"audit_cache_for"   validate:"min=0"`
	Retry            RetryConfig          `koanf:"retry"             validate:"required"`
	CircuitBreaker   CircuitBreakerConfig `koanf:"circuit_breaker"   validate:"required"`
	Transport        TransportConfig      `koanf:"transport"         validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// CatalogConfig overrides the built-in quote and image catalogs.
// Empty lists keep the built-in ones.
type CatalogConfig struct {
	Quotes        []QuoteConfig `koanf:"quotes"         validate:"omitempty,dive"`
	Images        []string      `koanf:"images"         validate:"omitempty,dive,url"`
	FallbackImage string        `koanf:"fallback_image" validate:"omitempty,url"`
}

// QuoteConfig is one configured quote.
type QuoteConfig struct {
	Text   string `koanf:"text"   validate:"required"`
	Author string `koanf:"author" validate:"required"`
}

// PresenterConfig contains the page's cosmetic settings.
type PresenterConfig struct {
	CopyLabel        string        `koanf:"copy_label"         validate:"required"`
	CopiedLabel      string        `koanf:"copied_label"       validate:"required"`
	CopiedFor        time.Duration `koanf:"copied_for"         validate:"required,min=100ms"`
	CopyFailedNotice string        `koanf:"copy_failed_notice" validate:"required"`
	PulseScale       float64       `koanf:"pulse_scale"        validate:"required,gt=1,max=3"`
	PulseFor         time.Duration `koanf:"pulse_for"          validate:"required,min=10ms"`
}

// ClipboardConfig selects where copied quotes land.
type ClipboardConfig struct {
	Kind     string `koanf:"kind"      validate:"required,oneof=memory file"`
	Path     string `koanf:"path"      validate:"required_if=Kind file"`
	MaxBytes int    `koanf:"max_bytes" validate:"required,min=64"`
	History  int    `koanf:"history"   validate:"required,min=1,max=1000"`
}

// SessionConfig contains browser session settings.
type SessionConfig struct {
	CookieName    string        `koanf:"cookie_name"    validate:"required"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	IdleTimeout   time.Duration `koanf:"idle_timeout"   validate:"required,min=1m"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required,min=1s"`
	MaxSessions   int           `koanf:"max_sessions"   validate:"min=0"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quote-presenter",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "15s",
		"server.write_timeout":    "15s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "quote-presenter",
		"telemetry.sampling_rate": 1.0,

		"image_loader.timeout":                           "5s",
		"image_loader.user_agent":                        "quote-presenter/1.0",
		"image_loader.max_bytes":                         DefaultImageMaxBytes,
		"image_loader.audit_concurrency":                 DefaultAuditConcurrency,
		"image_loader.audit_timeout":                     "30s",
		"image_loader.audit_cache_for":                   "1m",
		"image_loader.retry.max_attempts":                DefaultImageRetryMaxAttempts,
		"image_loader.retry.initial_interval":            "100ms",
		"image_loader.retry.max_interval":                "1s",
		"image_loader.retry.multiplier":                  DefaultImageRetryMultiplier,
		"image_loader.retry.jitter_factor":               DefaultImageRetryJitterFactor,
		"image_loader.circuit_breaker.max_failures":      DefaultImageCircuitMaxFailures,
		"image_loader.circuit_breaker.timeout":           "30s",
		"image_loader.circuit_breaker.half_open_limit":   DefaultImageCircuitHalfOpenLimit,
		"image_loader.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"image_loader.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"image_loader.transport.idle_conn_timeout":       "90s",

		"presenter.copy_label":         "Copy",
		"presenter.copied_label":       "Copied!",
		"presenter.copied_for":         "2s",
		"presenter.copy_failed_notice": "Failed to copy quote",
		"presenter.pulse_scale":        DefaultPulseScale,
		"presenter.pulse_for":          "150ms",

		"clipboard.kind":      "memory",
		"clipboard.path":      "",
		"clipboard.max_bytes": DefaultClipboardMaxBytes,
		"clipboard.history":   DefaultClipboardHistory,

		"session.cookie_name":    "quote_session",
		"session.cookie_secure":  false,
		"session.idle_timeout":   "30m",
		"session.sweep_interval": "1m",
		"session.max_sessions":   DefaultMaxSessions,
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string) (*Config, error) {
	return LoadFrom("configs", profile)
}

// LoadFrom is Load with the config directory made explicit.
func LoadFrom(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, dir+"/base.yaml"); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, fmt.Sprintf("%s/%s.yaml", dir, profile)); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper()), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKeyMapper maps APP_ variables onto config keys. Keys themselves contain
// underscores (APP_SESSION_MAX_SESSIONS is session.max_sessions), so known
// keys are matched exactly; anything else has every underscore read as a dot.
func envKeyMapper() func(string) string {
	known := make(map[string]string)
	for key := range defaults() {
		name := envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		known[name] = key
	}

	return func(s string) string {
		if key, ok := known[s]; ok {
			return key
		}

		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}
}

// loadFileIfExists loads a YAML config file if it exists.
// Returns nil if the file doesn't exist, error only for parse/read failures.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
