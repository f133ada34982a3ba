package config

import (
	"fmt"
	"net"
	"strings"

	"storage-visual/internal/domain"
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
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validatePrivilege(cfg, ve)
	validateStorage(cfg, ve)
	validateAudit(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validatePrivilege(cfg *Config, ve *ValidationError) {
	switch cfg.Privilege.Source {
	case "static":
		if _, err := domain.ParsePrivilegeStatus(cfg.Privilege.Status); err != nil {
			ve.Add("privilege.status %q is not a known status", cfg.Privilege.Status)
		}
	case "consent":
		if cfg.Privilege.ConsentDir == "" {
			ve.Add("privilege.consent_dir is required when source is \"consent\"")
		}
	default:
		ve.Add("privilege.source %q is invalid (want static or consent)", cfg.Privilege.Source)
	}
}

func validateStorage(cfg *Config, ve *ValidationError) {
	s := cfg.Storage
	switch s.Backend {
	case "memory":
	case "sqlite":
		if s.SQLitePath == "" {
			ve.Add("storage.sqlite_path is required when backend is \"sqlite\"")
		}
	case "redis":
		if _, _, err := net.SplitHostPort(s.Redis.Addr); err != nil {
			ve.Add("storage.redis.addr %q is not host:port", s.Redis.Addr)
		}
		if s.Redis.DB < 0 {
			ve.Add("storage.redis.db must be >= 0")
		}
	default:
		ve.Add("storage.backend %q is invalid (want memory, sqlite or redis)", s.Backend)
	}

	if s.RateLimit.RequestsPerSecond < 0 {
		ve.Add("storage.rate_limit.requests_per_second must be >= 0")
	}
	if s.RateLimit.RequestsPerSecond > 0 && s.RateLimit.Burst < 1 {
		ve.Add("storage.rate_limit.burst must be >= 1 when rate limiting is enabled")
	}

	if s.CircuitBreaker.Enabled {
		if s.CircuitBreaker.Timeout < 0 || s.CircuitBreaker.Interval < 0 {
			ve.Add("storage.circuit_breaker durations must be >= 0")
		}
	}
}

func validateAudit(cfg *Config, ve *ValidationError) {
	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		ve.Add("audit.path is required when audit is enabled")
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	case "file":
		if cfg.Tracer.Output == "" {
			ve.Add("tracer.output is required when exporter is \"file\"")
		}
	default:
		ve.Add("tracer.exporter %q is invalid (want stdout, file or noop)", cfg.Tracer.Exporter)
	}
}
