package config

import (
	"fmt"
	"net/url"
	"strings"

	"gitlab.bluewillows.net/root/porkddns/pkg/ipresolver"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// validateGlobalConfig checks the merged values.
func validateGlobalConfig(cfg *GlobalConfig) []string {
	var errs []string

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("%s: invalid value %q (must be debug, info, warn, or error)", EnvLogLevel, cfg.LogLevel))
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("%s: invalid value %q (must be json or text)", EnvLogFormat, cfg.LogFormat))
	}

	if cfg.HealthPort < 0 || cfg.HealthPort > 65535 {
		errs = append(errs, fmt.Sprintf("%s: must be between 0 and 65535, got %d", EnvHealthPort, cfg.HealthPort))
	}

	switch cfg.IPMethod {
	case ipresolver.MethodHTTP, ipresolver.MethodSTUN, ipresolver.MethodDNS:
	default:
		errs = append(errs, fmt.Sprintf("%s: invalid value %q (must be http, stun, or dns)", EnvIPMethod, cfg.IPMethod))
	}

	if err := validateHTTPURL(cfg.IPURL); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", EnvIPURL, err))
	}
	if err := validateHTTPURL(cfg.APIBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", EnvAPIBaseURL, err))
	}

	return errs
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
