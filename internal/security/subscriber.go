package security

import (
	"context"
	"encoding/json"
	"log/slog"

	"storage-visual/internal/domain"
)

var auditTypeByKind = map[domain.OperationKind]domain.AuditEventType{
	domain.OpStatusCheck: domain.AuditStatusCheck,
	domain.OpGet:         domain.AuditStorageGet,
	domain.OpSet:         domain.AuditStorageSet,
	domain.OpRemove:      domain.AuditStorageRemove,
}

// AttachAuditSubscriber records every finished and failed operation
// published on bus. Stored values never reach the audit log: only the
// kind, outcome and request ID are written. Returns an unsubscribe function.
func AttachAuditSubscriber(bus domain.EventBus, audit domain.AuditLogger, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	write := func(ctx context.Context, ev domain.AuditEvent) {
		if err := audit.Log(ctx, ev); err != nil {
			logger.Error("audit write failed", "type", string(ev.Type), "error", err)
		}
	}

	unsubDone := bus.Subscribe(domain.EventOperationDone, func(ctx context.Context, e domain.Event) {
		var res domain.OperationResult
		if err := json.Unmarshal(e.Payload, &res); err != nil {
			logger.Warn("audit: malformed operation payload", "error", err)
			return
		}
		typ := auditTypeByKind[res.Kind]
		if res.Outcome == domain.OutcomeDenied {
			typ = domain.AuditAccessDenied
		}
		write(ctx, domain.AuditEvent{
			Timestamp: e.Timestamp,
			Type:      typ,
			Actor:     "local",
			Action:    string(res.Kind),
			Outcome:   string(res.Outcome),
			Detail:    map[string]string{"request_id": res.RequestID},
		})
	})

	unsubErr := bus.Subscribe(domain.EventOperationError, func(ctx context.Context, e domain.Event) {
		var p domain.OperationErrorPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			logger.Warn("audit: malformed error payload", "error", err)
			return
		}
		write(ctx, domain.AuditEvent{
			Timestamp: e.Timestamp,
			Type:      domain.AuditUnexpected,
			Actor:     "local",
			Action:    string(p.Kind),
			Outcome:   "error",
			Detail: map[string]string{
				"request_id": e.RequestID,
				"code":       string(p.Code),
			},
		})
	})

	return func() {
		unsubDone()
		unsubErr()
	}
}
