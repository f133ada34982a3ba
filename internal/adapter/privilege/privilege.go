package privilege

import (
	"fmt"
	"log/slog"

	"storage-visual/internal/domain"
	"storage-visual/internal/infra/config"
)

// New builds the source selected by cfg.Source. A nil logger uses the slog
// default.
func New(cfg config.PrivilegeConfig, bus domain.EventBus, audit domain.AuditLogger, logger *slog.Logger) (domain.PrivilegeSource, error) {
	switch cfg.Source {
	case "static", "":
		status, err := domain.ParsePrivilegeStatus(cfg.Status)
		if err != nil {
			return nil, err
		}
		return NewStatic(status, bus), nil
	case "consent":
		opts := []ConsentOption{WithConsentEvents(bus), WithConsentLogger(logger)}
		if audit != nil {
			opts = append(opts, WithConsentAudit(audit))
		}
		return NewConsent(cfg.ConsentDir, opts...), nil
	default:
		return nil, domain.NewDomainError("privilege.New", domain.ErrInvalidInput,
			fmt.Sprintf("unknown privilege source %q", cfg.Source))
	}
}
