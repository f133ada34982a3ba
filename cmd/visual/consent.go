package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"storage-visual/internal/adapter/privilege"
	"storage-visual/internal/domain"
	"storage-visual/internal/security"
)

func runConsentCommand(ctx context.Context, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var opts []privilege.ConsentOption
	if cfg.Audit.Enabled {
		audit, err := security.NewFileAuditLogger(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		defer audit.Close()
		opts = append(opts, privilege.WithConsentAudit(audit))
	}
	c := privilege.NewConsent(cfg.Privilege.ConsentDir, opts...)

	if cfg.Privilege.Source != "consent" {
		fmt.Fprintf(os.Stderr, "note: privilege.source is %q; consent changes take effect once it is \"consent\"\n", cfg.Privilege.Source)
	}
	return runConsent(ctx, c, args, os.Stdout)
}

func runConsent(ctx context.Context, c *privilege.Consent, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: visual consent <grant|revoke|show>")
	}
	switch args[0] {
	case "grant":
		if err := c.Grant(ctx); err != nil {
			return err
		}
	case "revoke":
		if err := c.Revoke(ctx); err != nil {
			return err
		}
	case "show":
	default:
		return domain.NewDomainError("consent", domain.ErrInvalidInput, fmt.Sprintf("unknown subcommand %q", args[0]))
	}

	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	state, exists, err := c.State()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "consent file: %s\n", c.Path())
	fmt.Fprintf(out, "status:       %s\n", status)
	if exists {
		if state.GrantedAt != "" {
			fmt.Fprintf(out, "granted at:   %s\n", state.GrantedAt)
		}
		if state.RevokedAt != "" {
			fmt.Fprintf(out, "revoked at:   %s\n", state.RevokedAt)
		}
	}
	return nil
}
