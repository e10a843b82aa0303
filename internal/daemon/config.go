// Package daemon loads netcrawl configuration and wires the long-running
// pipeline stages from it.
package daemon

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/resolve"
)

// Config holds all netcrawl configuration.
type Config struct {
	Redis   RedisConfig   `toml:"redis"`
	Resolve ResolveConfig `toml:"resolve"`
	Export  ExportConfig  `toml:"export"`
	API     APIConfig     `toml:"api"`
	Journal JournalConfig `toml:"journal"`
	Logging LoggingConfig `toml:"logging"`
}

// RedisConfig locates the shared cache store.
type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ResolveConfig controls the resolver stage.
type ResolveConfig struct {
	TTL              int      `toml:"ttl"` // seconds
	HostnameDeadline string   `toml:"hostname_deadline"`
	MaxHostnames     int      `toml:"max_hostnames"`
	GeoIPCity        string   `toml:"geoip_city"`
	GeoIPASN         string   `toml:"geoip_asn"`
	Nameservers      []string `toml:"nameservers"`
	DNSTimeout       string   `toml:"dns_timeout"`
	MetricsListen    string   `toml:"metrics_listen"`
}

// ExportConfig controls the export stage.
type ExportConfig struct {
	Dir     string `toml:"export_dir"`
	AggrDir string `toml:"export_aggr_dir"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// JournalConfig locates the cycle journal. An empty Dir disables it.
type JournalConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// DefaultConfig returns the defaults every loaded file is layered over.
// TTL has no default and must be configured.
func DefaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			Address: "/tmp/redis.sock",
		},
		Resolve: ResolveConfig{
			HostnameDeadline: resolve.DefaultHostnameDeadline.String(),
			MaxHostnames:     resolve.DefaultMaxHostnames,
			GeoIPCity:        "geoip/GeoLite2-City.mmdb",
			GeoIPASN:         "geoip/GeoLite2-ASN.mmdb",
			DNSTimeout:       "5s",
		},
		Export: ExportConfig{
			Dir:     "data/export",
			AggrDir: "data/export_aggr",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults, applies
// environment overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%w: unknown keys %s", domain.ErrInvalidConfig, strings.Join(keys, ", "))
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteConfig encodes cfg as TOML.
func WriteConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// applyEnv lets REDIS_SOCKET and REDIS_PASSWORD override the file.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("REDIS_SOCKET"); v != "" {
		c.Redis.Address = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

// Validate checks the values the resolver cannot run without.
func (c Config) Validate() error {
	if c.Resolve.TTL <= 0 {
		return fmt.Errorf("%w: resolve.ttl must be positive, got %d", domain.ErrInvalidConfig, c.Resolve.TTL)
	}
	if c.Resolve.MaxHostnames <= 0 {
		return fmt.Errorf("%w: resolve.max_hostnames must be positive, got %d", domain.ErrInvalidConfig, c.Resolve.MaxHostnames)
	}
	for name, v := range map[string]string{
		"resolve.hostname_deadline": c.Resolve.HostnameDeadline,
		"resolve.dns_timeout":       c.Resolve.DNSTimeout,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, name, err)
		}
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: api.port %d out of range", domain.ErrInvalidConfig, c.API.Port)
	}
	return nil
}

// TTLDuration is the configured record lifetime.
func (c ResolveConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Deadline is the hostname pool deadline.
func (c ResolveConfig) Deadline() time.Duration {
	d, err := parseDuration(c.HostnameDeadline)
	if err != nil || d == 0 {
		return resolve.DefaultHostnameDeadline
	}
	return d
}

// Timeout is the per-query DNS timeout.
func (c ResolveConfig) Timeout() time.Duration {
	d, err := parseDuration(c.DNSTimeout)
	if err != nil || d == 0 {
		return 5 * time.Second
	}
	return d
}

// parseDuration accepts Go duration strings; empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
