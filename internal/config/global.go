package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/porkddns/pkg/ipresolver"
	"gitlab.bluewillows.net/root/porkddns/providers/porkbun"
)

// Global configuration defaults.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultHTTPTimeout     = 0 * time.Second
	DefaultHealthPort      = 0
	DefaultContinueOnError = false
	DefaultIPMethod        = ipresolver.MethodHTTP
)

// GlobalConfig holds the optional settings. They come from PORKDDNS_*
// environment variables, layered over the config file when one is given.
type GlobalConfig struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	HTTPTimeout     time.Duration // 0 disables the per-request timeout
	HealthPort      int           // 0 disables the health server
	ContinueOnError bool          // keep looping after a failed cycle

	IPMethod   string // http, stun, dns
	IPURL      string
	STUNServer string
	DNSServer  string

	APIBaseURL string
}

// defaultGlobalConfig returns a GlobalConfig with every default applied.
func defaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		HTTPTimeout:     DefaultHTTPTimeout,
		HealthPort:      DefaultHealthPort,
		ContinueOnError: DefaultContinueOnError,
		IPMethod:        DefaultIPMethod,
		IPURL:           ipresolver.DefaultURL,
		STUNServer:      ipresolver.DefaultSTUNServer,
		DNSServer:       ipresolver.DefaultDNSServer,
		APIBaseURL:      porkbun.DefaultBaseURL,
	}
}

// mergeGlobalConfig overrides base with any PORKDDNS_* variable that is set.
// A nil base starts from defaults. Environment variables always take
// precedence over file config.
func mergeGlobalConfig(base *GlobalConfig) (*GlobalConfig, []string) {
	if base == nil {
		base = defaultGlobalConfig()
	}
	cfg := *base

	var errs []string

	if v := getEnv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getEnv(EnvLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if v := getEnv(EnvHTTPTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q (use format like 30s, 1m, or 0 to disable)", EnvHTTPTimeout, v))
		case timeout < 0:
			errs = append(errs, fmt.Sprintf("%s: must not be negative", EnvHTTPTimeout))
		default:
			cfg.HTTPTimeout = timeout
		}
	}

	if v := getEnv(EnvHealthPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", EnvHealthPort, v))
		} else {
			cfg.HealthPort = port
		}
	}

	if v := getEnv(EnvContinueOnError); v != "" {
		cfg.ContinueOnError = parseBool(v, cfg.ContinueOnError)
	}

	if v := getEnv(EnvIPMethod); v != "" {
		cfg.IPMethod = strings.ToLower(v)
	}
	if v := getEnv(EnvIPURL); v != "" {
		cfg.IPURL = v
	}
	if v := getEnv(EnvSTUNServer); v != "" {
		cfg.STUNServer = v
	}
	if v := getEnv(EnvDNSServer); v != "" {
		cfg.DNSServer = v
	}
	if v := getEnv(EnvAPIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}

	errs = append(errs, validateGlobalConfig(&cfg)...)
	return &cfg, errs
}
