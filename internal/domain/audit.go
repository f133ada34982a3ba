package domain

import (
	"context"
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditStatusCheck    AuditEventType = "status_check"
	AuditStorageGet     AuditEventType = "storage_get"
	AuditStorageSet     AuditEventType = "storage_set"
	AuditStorageRemove  AuditEventType = "storage_remove"
	AuditAccessDenied   AuditEventType = "access_denied"
	AuditUnexpected     AuditEventType = "unexpected_error"
	AuditConsentGiven   AuditEventType = "consent_given"
	AuditConsentRevoked AuditEventType = "consent_revoked"
)

// AuditEvent represents a single auditable action. Stored values are never
// part of an audit event.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      AuditEventType    `json:"type"`
	Detail    map[string]string `json:"detail,omitempty"`

	Actor    string `json:"actor,omitempty"`
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// AuditLogger writes audit events to a persistent log.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
	Close() error
}
