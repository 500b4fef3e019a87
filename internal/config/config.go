// Package config handles application configuration. Values come from
// built-in defaults, then an optional YAML file, then environment
// variables, each layer overriding the one before.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the YAML file read when SHAREMEOW_CONFIG is unset.
const DefaultConfigFile = "sharemeow.yaml"

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Env      string `yaml:"env"` // "development", "production", "testing"
	LogLevel string `yaml:"log_level"`
	BaseURL  string `yaml:"base_url"` // public base for signed image URLs

	// Valkey (Redis-compatible cache)
	ValkeyHost     string `yaml:"valkey_host"`
	ValkeyPort     string `yaml:"valkey_port"`
	ValkeyPassword string `yaml:"valkey_password"`
	ValkeyDB       int    `yaml:"valkey_db"`

	// Image URL cache. A zero CacheTTL keeps entries until Valkey evicts them.
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheL1TTL   time.Duration `yaml:"cache_l1_ttl"`
	CacheL1Bytes int64         `yaml:"cache_l1_bytes"`

	// S3-compatible object storage
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3Region    string `yaml:"s3_region"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3PublicURL string `yaml:"s3_public_url"`
	S3Prefix    string `yaml:"s3_prefix"`

	// Renderer
	RendererBin     string        `yaml:"renderer_bin"`
	RenderTimeout   time.Duration `yaml:"render_timeout"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`

	// Access
	SigningSecret string        `yaml:"signing_secret"`
	APIKey        string        `yaml:"api_key"`
	RateLimit     int           `yaml:"rate_limit"` // requests per RateWindow per IP
	RateWindow    time.Duration `yaml:"rate_window"`

	// Comma-separated IPs or CIDRs of reverse proxies whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty trusts no one.
	TrustedProxies string `yaml:"trusted_proxies"`

	// PostgreSQL generation log. Disabled when DBHost is empty.
	DBHost     string `yaml:"postgres_host"`
	DBPort     string `yaml:"postgres_port"`
	DBUser     string `yaml:"postgres_user"`
	DBPassword string `yaml:"postgres_password"`
	DBName     string `yaml:"postgres_db"`

	// Metrics exporter: "prometheus", "stdout" or "none".
	MetricsExporter string `yaml:"metrics_exporter"`
}

// Defaults returns the development configuration.
func Defaults() Config {
	return Config{
		Host:     "0.0.0.0",
		Port:     "8080",
		Env:      "development",
		LogLevel: "info",
		BaseURL:  "http://localhost:8080",

		ValkeyHost: "localhost",
		ValkeyPort: "6379",

		CacheTTL:     0,
		CacheL1TTL:   5 * time.Minute,
		CacheL1Bytes: 16 << 20,

		S3Region: "us-east-1",

		RendererBin:     "wkhtmltoimage",
		RenderTimeout:   30 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,

		RateLimit:  120,
		RateWindow: time.Minute,

		DBPort: "5432",
		DBUser: "sharemeow",
		DBName: "sharemeow",

		MetricsExporter: "prometheus",
	}
}

// Load reads configuration from the file named by SHAREMEOW_CONFIG
// (DefaultConfigFile if unset) and the environment. Returns an error if
// critical values are missing in production mode.
func Load() (*Config, error) {
	return LoadFrom(envOrDefault("SHAREMEOW_CONFIG", DefaultConfigFile))
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, path); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	if err := loadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays non-empty environment variables onto cfg.
func loadEnv(cfg *Config) error {
	setString(&cfg.Host, "APP_HOST")
	setString(&cfg.Port, "APP_PORT")
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.BaseURL, "BASE_URL")

	setString(&cfg.ValkeyHost, "VALKEY_HOST")
	setString(&cfg.ValkeyPort, "VALKEY_PORT")
	setString(&cfg.ValkeyPassword, "VALKEY_PASSWORD")

	setString(&cfg.S3Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3Region, "S3_REGION")
	setString(&cfg.S3AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.S3SecretKey, "S3_SECRET_KEY")
	setString(&cfg.S3Bucket, "S3_BUCKET")
	setString(&cfg.S3PublicURL, "S3_PUBLIC_URL")
	setString(&cfg.S3Prefix, "S3_PREFIX")

	setString(&cfg.RendererBin, "RENDERER_BIN")
	setString(&cfg.SigningSecret, "SIGNING_SECRET")
	setString(&cfg.APIKey, "API_KEY")
	setString(&cfg.TrustedProxies, "TRUSTED_PROXIES")

	setString(&cfg.DBHost, "POSTGRES_HOST")
	setString(&cfg.DBPort, "POSTGRES_PORT")
	setString(&cfg.DBUser, "POSTGRES_USER")
	setString(&cfg.DBPassword, "POSTGRES_PASSWORD")
	setString(&cfg.DBName, "POSTGRES_DB")

	setString(&cfg.MetricsExporter, "METRICS_EXPORTER")

	return errors.Join(
		setInt(&cfg.ValkeyDB, "VALKEY_DB"),
		setDuration(&cfg.CacheTTL, "CACHE_TTL"),
		setDuration(&cfg.CacheL1TTL, "CACHE_L1_TTL"),
		setInt64(&cfg.CacheL1Bytes, "CACHE_L1_BYTES"),
		setDuration(&cfg.RenderTimeout, "RENDER_TIMEOUT"),
		setInt(&cfg.BreakerFailures, "BREAKER_MAX_FAILURES"),
		setDuration(&cfg.BreakerCooldown, "BREAKER_COOLDOWN"),
		setInt(&cfg.RateLimit, "RATE_LIMIT"),
		setDuration(&cfg.RateWindow, "RATE_WINDOW"),
	)
}

func (c *Config) validate() error {
	if c.CacheL1Bytes <= 0 {
		return fmt.Errorf("CACHE_L1_BYTES must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	if c.CacheL1TTL <= 0 {
		return fmt.Errorf("CACHE_L1_TTL must be positive")
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_WINDOW must be positive")
	}
	if c.BreakerFailures <= 0 {
		return fmt.Errorf("BREAKER_MAX_FAILURES must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}

	if c.Env == "production" {
		if c.SigningSecret == "" {
			return fmt.Errorf("SIGNING_SECRET must be set in production")
		}
		if c.DBEnabled() && (c.DBPassword == "" || c.DBPassword == "changeme") {
			return fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is taken as
// a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, field := range strings.Split(c.TrustedProxies, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.Contains(field, "/") {
			p, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(field)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// DBEnabled reports whether the PostgreSQL generation log is configured.
func (c *Config) DBEnabled() bool {
	return c.DBHost != ""
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	*dst = envOrDefault(key, *dst)
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
