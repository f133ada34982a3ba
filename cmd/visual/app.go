package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storage-visual/internal/adapter/host"
	"storage-visual/internal/adapter/privilege"
	"storage-visual/internal/adapter/storage"
	"storage-visual/internal/domain"
	"storage-visual/internal/infra/config"
	"storage-visual/internal/infra/logger"
	"storage-visual/internal/infra/tracer"
	"storage-visual/internal/security"
	"storage-visual/internal/usecase"
	"storage-visual/internal/usecase/eventbus"
)

// app holds the wired components shared by the UI and the exec runner.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	bus     *eventbus.Bus
	priv    domain.PrivilegeSource
	store   storage.Store
	service *host.Service
	ctrl    *usecase.Controller

	closers []func() error
}

// newApp builds every component from cfg. On error, whatever was already
// opened is closed.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.closers = append(a.closers, logCloser)

	shutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })

	a.bus = eventbus.New(log)

	var audit domain.AuditLogger
	if cfg.Audit.Enabled {
		fileAudit, err := security.NewFileAuditLogger(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
		audit = fileAudit
		security.AttachAuditSubscriber(a.bus, fileAudit, log)
		a.closers = append(a.closers, fileAudit.Close)
	}
	// Registered after the audit file so the bus drains before it closes.
	a.closers = append(a.closers, func() error { a.bus.Close(); return nil })

	a.priv, err = privilege.New(cfg.Privilege, a.bus, audit, log)
	if err != nil {
		return nil, fmt.Errorf("privilege: %w", err)
	}

	a.store, err = storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)

	a.service = host.NewService(a.priv, a.store, log)
	a.ctrl = usecase.NewController(a.service, log, usecase.WithEventBus(a.bus))

	log.Debug("app wired",
		"privilege_source", cfg.Privilege.Source,
		"backend", a.store.Name(),
		"audit", cfg.Audit.Enabled,
	)
	return a, nil
}

// Close releases components in reverse construction order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
