// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the TUI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"storage-visual/internal/adapter/tui/theme"
	"storage-visual/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Storage Unavailable"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Code    domain.ErrorCode
	Raw     string // original error text (for debug)
}

// Render formats the FriendlyError as a multi-line block.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

// Short is the single-line form used in the status bar.
func (fe FriendlyError) Short() string {
	if fe.Message == "" {
		return fe.Title
	}
	return fe.Title + ": " + fe.Message
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

// Causes are checked before ErrUnexpected itself, since every failure the
// controller returns wraps ErrUnexpected around its cause.
var patterns = []errorPattern{
	{
		match: isAny(domain.ErrConsentStore),
		produce: constantError("Consent Record Unreadable", "The consent file could not be read.",
			[]string{"Run 'visual consent show' to inspect it", "Run 'visual consent grant' or 'revoke' to rewrite it"}),
	},
	{
		match: isAny(domain.ErrCircuitOpen),
		produce: constantError("Storage Paused", "The backend failed repeatedly and calls are paused.",
			[]string{"Wait for the circuit breaker timeout", "Check that the storage backend is healthy"}),
	},
	{
		match: isAny(domain.ErrRateLimit),
		produce: constantError("Slow Down", "Too many storage calls in a short time.",
			[]string{"Wait a moment before retrying", "Raise storage.rate_limit in config"}),
	},
	{
		match: isAny(domain.ErrPermissionDenied),
		produce: constantError("Access Rejected", "The host refused storage access.",
			[]string{"Check availability with ctrl+s", "Grant consent with 'visual consent grant'"}),
	},
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Storage Unreachable", "Could not connect to the storage backend.", []string{"Check storage.redis.addr in config", "Verify the Redis server is running"}),
	},
	{
		match:   func(err error) bool { return errors.Is(err, domain.ErrTimeout) || containsAny("deadline exceeded", "timeout")(err) },
		produce: constantError("Request Timed Out", "The host took too long to answer.", []string{"Try again", "Check the storage backend load"}),
	},
	{
		match: isAny(domain.ErrStorage),
		produce: constantError("Storage Failure", "The storage backend reported an error.",
			[]string{"Try again", "Check the log file for details"}),
	},
	{
		match: isAny(domain.ErrUnexpected),
		produce: func(err error) FriendlyError {
			return FriendlyError{
				Title:   "Unexpected Error",
				Message: err.Error(),
				Hints:   []string{"Try again", "Set VISUAL_LOGGER_LEVEL=debug for more details"},
				Raw:     err.Error(),
			}
		},
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil", Code: domain.CodeUnknown}
	}

	for _, p := range patterns {
		if p.match(err) {
			fe := p.produce(err)
			fe.Code = domain.ErrorCodeOf(err)
			return fe
		}
	}

	return FriendlyError{
		Title:   "Error",
		Message: err.Error(),
		Code:    domain.ErrorCodeOf(err),
		Raw:     err.Error(),
	}
}

func isAny(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
