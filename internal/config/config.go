// Package config handles loading and validation of porkddns configuration
// from positional arguments, environment variables, an optional .env file and
// an optional YAML or TOML settings file.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/porkddns/providers/porkbun"
)

// Environment variable names.
const (
	EnvSecretAPIKey = "secretapikey"
	EnvAPIKey       = "apikey"

	EnvPrefix = "PORKDDNS_"

	EnvEnvFile         = EnvPrefix + "ENV_FILE"
	EnvConfigFile      = EnvPrefix + "CONFIG_FILE"
	EnvLogLevel        = EnvPrefix + "LOG_LEVEL"
	EnvLogFormat       = EnvPrefix + "LOG_FORMAT"
	EnvHTTPTimeout     = EnvPrefix + "HTTP_TIMEOUT"
	EnvHealthPort      = EnvPrefix + "HEALTH_PORT"
	EnvContinueOnError = EnvPrefix + "CONTINUE_ON_ERROR"
	EnvIPMethod        = EnvPrefix + "IP_METHOD"
	EnvIPURL           = EnvPrefix + "IP_URL"
	EnvSTUNServer      = EnvPrefix + "STUN_SERVER"
	EnvDNSServer       = EnvPrefix + "DNS_SERVER"
	EnvAPIBaseURL      = EnvPrefix + "API_BASE_URL"
)

// maxIntervalMinutes is the largest interval that fits in a time.Duration.
const maxIntervalMinutes = int(math.MaxInt64 / int64(time.Minute))

// Usage is the invocation synopsis.
const Usage = "usage: porkddns <site> <interval-minutes>"

// ErrUsage is returned for malformed positional arguments.
var ErrUsage = errors.New(Usage)

// Config is the complete runtime configuration, built once at startup.
type Config struct {
	// Site is the domain whose A records are managed, e.g. "example.com".
	Site string

	// Interval is the time between reconciliation cycles.
	Interval time.Duration

	// Credentials authenticate Porkbun API calls.
	Credentials porkbun.Credentials

	// Global holds the optional settings.
	Global *GlobalConfig
}

// Load builds the configuration from args (without the program name) and the
// environment. It performs no network access.
//
// Argument misuse fails with an error wrapping ErrUsage. Every other problem
// is collected into a single *ValidationError.
func Load(args []string) (*Config, error) {
	site, interval, err := parseArgs(args)
	if err != nil {
		return nil, err
	}

	var errs []string

	creds, credErrs := loadCredentials()
	errs = append(errs, credErrs...)

	base, fileErrs := loadFromFile(getEnv(EnvConfigFile))
	errs = append(errs, fileErrs...)

	global, globalErrs := mergeGlobalConfig(base)
	errs = append(errs, globalErrs...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &Config{
		Site:        site,
		Interval:    interval,
		Credentials: creds,
		Global:      global,
	}, nil
}

// parseArgs validates the two positional arguments: site and interval in minutes.
func parseArgs(args []string) (string, time.Duration, error) {
	switch {
	case len(args) > 2:
		return "", 0, fmt.Errorf("%w: too many arguments (%d)", ErrUsage, len(args))
	case len(args) < 1:
		return "", 0, fmt.Errorf("%w: missing site argument", ErrUsage)
	case len(args) < 2:
		return "", 0, fmt.Errorf("%w: missing interval argument", ErrUsage)
	}

	site := strings.TrimSpace(args[0])
	if site == "" {
		return "", 0, fmt.Errorf("%w: site cannot be empty", ErrUsage)
	}

	minutes, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return "", 0, fmt.Errorf("%w: interval %q is not a valid integer", ErrUsage, args[1])
	}
	if minutes < 1 {
		return "", 0, fmt.Errorf("%w: interval must be a positive number of minutes, got %d", ErrUsage, minutes)
	}
	if minutes > maxIntervalMinutes {
		return "", 0, fmt.Errorf("%w: interval must be at most %d minutes, got %d", ErrUsage, maxIntervalMinutes, minutes)
	}

	return site, time.Duration(minutes) * time.Minute, nil
}

// loadCredentials reads the Porkbun key pair. Both are required.
func loadCredentials() (porkbun.Credentials, []string) {
	var errs []string

	secret, err := getEnvWithFileFallback(EnvSecretAPIKey)
	if err != nil {
		errs = append(errs, err.Error())
	} else if secret == "" {
		errs = append(errs, EnvSecretAPIKey+": required but not set")
	}

	key, err := getEnvWithFileFallback(EnvAPIKey)
	if err != nil {
		errs = append(errs, err.Error())
	} else if key == "" {
		errs = append(errs, EnvAPIKey+": required but not set")
	}

	return porkbun.Credentials{SecretAPIKey: secret, APIKey: key}, errs
}
