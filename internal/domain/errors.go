package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Use with NewSubSystemError for subsystem-specific errors.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrTimeout          = fmt.Errorf("operation timed out")
)

// Sentinel errors for the domain layer.
var (
	// ErrUnexpected marks failures the controller does not recover from
	// locally: a failed status query, or a failed set/remove write.
	ErrUnexpected = fmt.Errorf("unexpected storage service failure")

	ErrStorage      = fmt.Errorf("storage operation failed")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrDecryption   = fmt.Errorf("decryption failed")
	ErrEncryption   = fmt.Errorf("encryption operation failed")
	ErrAuditWrite   = fmt.Errorf("audit log write failed")
	ErrConsentStore = fmt.Errorf("consent store failed")

	// Resilience errors.
	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrCircuitOpen = fmt.Errorf("storage circuit open")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Controller.Set")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "sqlite", "redis"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// UnexpectedError wraps cause so that it matches both ErrUnexpected and cause
// under errors.Is.
func UnexpectedError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnexpected, cause)
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTimeout)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeUnexpected       ErrorCode = "UNEXPECTED"
	CodeStorage          ErrorCode = "STORAGE"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeEncryption       ErrorCode = "ENCRYPTION"
	CodeDecryption       ErrorCode = "DECRYPTION"
	CodeAuditWrite       ErrorCode = "AUDIT_WRITE"
	CodeConsentStore     ErrorCode = "CONSENT_STORE"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeCircuitOpen      ErrorCode = "CIRCUIT_OPEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeTimeout          ErrorCode = "TIMEOUT"

	// Subsystem-specific codes resolved through subSystemCodeMap.
	CodeKeyNotFound    ErrorCode = "KEY_NOT_FOUND"
	CodeSQLiteStorage  ErrorCode = "SQLITE_STORAGE"
	CodeRedisStorage   ErrorCode = "REDIS_STORAGE"
	CodeHostDenied     ErrorCode = "HOST_DENIED"
	CodeConsentMissing ErrorCode = "CONSENT_MISSING"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
// ErrUnexpected is listed first in precedence by ErrorCodeOf since it wraps
// the underlying cause.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:         CodeNotFound,
	ErrPermissionDenied: CodePermissionDenied,
	ErrInvalidInput:     CodeInvalidInput,
	ErrTimeout:          CodeTimeout,
	ErrUnexpected:       CodeUnexpected,
	ErrStorage:          CodeStorage,
	ErrConfigLoad:       CodeConfigLoad,
	ErrDecryption:       CodeDecryption,
	ErrEncryption:       CodeEncryption,
	ErrAuditWrite:       CodeAuditWrite,
	ErrConsentStore:     CodeConsentStore,
	ErrRateLimit:        CodeRateLimit,
	ErrCircuitOpen:      CodeCircuitOpen,
}

var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"kv":      CodeKeyNotFound,
		"consent": CodeConsentMissing,
	},
	ErrStorage: {
		"sqlite": CodeSQLiteStorage,
		"redis":  CodeRedisStorage,
	},
	ErrPermissionDenied: {
		"host": CodeHostDenied,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Unexpected errors always report CodeUnexpected regardless of their cause.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	if errors.Is(err, ErrUnexpected) {
		return CodeUnexpected
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
