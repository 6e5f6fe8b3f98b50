package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAPI(cfg, ve)
	validateTLS(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateMetrics(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAPI(cfg *Config, ve *ValidationError) {
	u, err := url.Parse(cfg.API.BaseURL)
	switch {
	case cfg.API.BaseURL == "":
		ve.Add("api.base_url is required")
	case err != nil:
		ve.Add("api.base_url: %v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		ve.Add("api.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if cfg.API.RateLimitPerMinute < 0 {
		ve.Add("api.rate_limit_per_minute must be >= 0")
	}
	if strings.HasPrefix(cfg.API.AccessToken, "enc:") {
		ve.Add("api.access_token is encrypted but SRAPI_CONFIG_KEY is not set")
	}
}

func validateTLS(cfg *Config, ve *ValidationError) {
	switch cfg.TLS.MinVersion {
	case "", "1.2", "1.3":
	default:
		ve.Add("tls.min_version must be \"1.2\" or \"1.3\", got %q", cfg.TLS.MinVersion)
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not one of noop, stdout", cfg.Tracer.Exporter)
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if !cfg.Metrics.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
		ve.Add("metrics.addr: %v", err)
	}
}
