package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the optional settings file. The site, interval and
// credentials are never read from it.
type FileConfig struct {
	Logging    *FileLoggingConfig    `yaml:"logging,omitempty" toml:"logging"`
	HTTP       *FileHTTPConfig       `yaml:"http,omitempty" toml:"http"`
	IP         *FileIPConfig         `yaml:"ip,omitempty" toml:"ip"`
	Server     *FileServerConfig     `yaml:"server,omitempty" toml:"server"`
	Reconciler *FileReconcilerConfig `yaml:"reconciler,omitempty" toml:"reconciler"`
	API        *FileAPIConfig        `yaml:"api,omitempty" toml:"api"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" toml:"format"` // json, text
}

// FileHTTPConfig holds outbound HTTP settings.
type FileHTTPConfig struct {
	Timeout string `yaml:"timeout,omitempty" toml:"timeout"` // Go duration, "0" disables
}

// FileIPConfig selects how the public IP is discovered.
type FileIPConfig struct {
	Method     string `yaml:"method,omitempty" toml:"method"` // http, stun, dns
	URL        string `yaml:"url,omitempty" toml:"url"`
	STUNServer string `yaml:"stun_server,omitempty" toml:"stun_server"`
	DNSServer  string `yaml:"dns_server,omitempty" toml:"dns_server"`
}

// FileServerConfig holds health/metrics server settings.
type FileServerConfig struct {
	Port int `yaml:"port,omitempty" toml:"port"`
}

// FileReconcilerConfig holds loop settings.
type FileReconcilerConfig struct {
	ContinueOnError *bool `yaml:"continue_on_error,omitempty" toml:"continue_on_error"` // Pointer to distinguish unset from false
}

// FileAPIConfig holds Porkbun API settings.
type FileAPIConfig struct {
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		if len(groups) >= 3 {
			return groups[2]
		}
		return ""
	})
}

func (c *FileConfig) interpolateEnvVars() {
	if c.Logging != nil {
		c.Logging.Level = InterpolateEnvVars(c.Logging.Level)
		c.Logging.Format = InterpolateEnvVars(c.Logging.Format)
	}
	if c.HTTP != nil {
		c.HTTP.Timeout = InterpolateEnvVars(c.HTTP.Timeout)
	}
	if c.IP != nil {
		c.IP.Method = InterpolateEnvVars(c.IP.Method)
		c.IP.URL = InterpolateEnvVars(c.IP.URL)
		c.IP.STUNServer = InterpolateEnvVars(c.IP.STUNServer)
		c.IP.DNSServer = InterpolateEnvVars(c.IP.DNSServer)
	}
	if c.API != nil {
		c.API.BaseURL = InterpolateEnvVars(c.API.BaseURL)
	}
}

// LoadFile reads and parses a settings file. Files ending in .toml are
// decoded as TOML, everything else as YAML. Unknown keys are rejected.
// Environment variables in ${VAR} format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing TOML config: unknown key %q", undecoded[0].String())
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF; treat it as "no settings".
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// ToGlobalConfig converts file config to GlobalConfig, applying defaults.
// Values from file take precedence over defaults; env vars override later.
func (c *FileConfig) ToGlobalConfig() (*GlobalConfig, []string) {
	cfg := defaultGlobalConfig()
	var errs []string

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
	}

	if c.HTTP != nil && c.HTTP.Timeout != "" {
		timeout, err := time.ParseDuration(c.HTTP.Timeout)
		if err != nil || timeout < 0 {
			errs = append(errs, fmt.Sprintf("http.timeout: invalid duration %q", c.HTTP.Timeout))
		} else {
			cfg.HTTPTimeout = timeout
		}
	}

	if c.IP != nil {
		if c.IP.Method != "" {
			cfg.IPMethod = strings.ToLower(c.IP.Method)
		}
		if c.IP.URL != "" {
			cfg.IPURL = c.IP.URL
		}
		if c.IP.STUNServer != "" {
			cfg.STUNServer = c.IP.STUNServer
		}
		if c.IP.DNSServer != "" {
			cfg.DNSServer = c.IP.DNSServer
		}
	}

	if c.Server != nil && c.Server.Port != 0 {
		cfg.HealthPort = c.Server.Port
	}

	if c.Reconciler != nil && c.Reconciler.ContinueOnError != nil {
		cfg.ContinueOnError = *c.Reconciler.ContinueOnError
	}

	if c.API != nil && c.API.BaseURL != "" {
		cfg.APIBaseURL = c.API.BaseURL
	}

	return cfg, errs
}
