// Package host implements the privilege-gated storage service that the
// visual controller talks to.
package host

import (
	"context"
	"log/slog"

	"storage-visual/internal/domain"
	"storage-visual/internal/infra/tracer"
)

// Service composes a privilege source with a key/value backend. It enforces
// privilege on its own side as well: a caller that skips the status check
// still cannot reach the store unless the status is Allowed.
type Service struct {
	privilege domain.PrivilegeSource
	store     domain.KVStore
	logger    *slog.Logger
}

// NewService creates a host service.
func NewService(privilege domain.PrivilegeSource, store domain.KVStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{privilege: privilege, store: store, logger: logger}
}

func (s *Service) Status(ctx context.Context) (domain.PrivilegeStatus, error) {
	ctx, span := tracer.StartSpan(ctx, "host.status")
	defer span.End()

	status, err := s.privilege.Status(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return status, domain.WrapOp("host.Status", err)
	}
	span.SetAttributes(tracer.StringAttr("privilege", status.String()))
	return status, nil
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "host.get")
	defer span.End()

	if err := s.authorize(ctx, "host.Get"); err != nil {
		tracer.RecordError(span, err)
		return "", err
	}
	v, err := s.store.Get(ctx, key)
	if err != nil {
		tracer.RecordError(span, err)
		return "", domain.WrapOp("host.Get", err)
	}
	return v, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.StartSpan(ctx, "host.set")
	defer span.End()

	if err := s.authorize(ctx, "host.Set"); err != nil {
		tracer.RecordError(span, err)
		return err
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		tracer.RecordError(span, err)
		return domain.WrapOp("host.Set", err)
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, key string) error {
	ctx, span := tracer.StartSpan(ctx, "host.remove")
	defer span.End()

	if err := s.authorize(ctx, "host.Remove"); err != nil {
		tracer.RecordError(span, err)
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		tracer.RecordError(span, err)
		return domain.WrapOp("host.Remove", err)
	}
	return nil
}

// Backend names the underlying store.
func (s *Service) Backend() string { return s.store.Name() }

func (s *Service) authorize(ctx context.Context, op string) error {
	status, err := s.privilege.Status(ctx)
	if err != nil {
		return domain.WrapOp(op, err)
	}
	if !status.Allowed() {
		s.logger.Warn("host rejected storage access", "op", op, "status", status.String())
		return domain.NewSubSystemError("host", op, domain.ErrPermissionDenied, "status "+status.String())
	}
	return nil
}

var _ domain.StorageService = (*Service)(nil)
