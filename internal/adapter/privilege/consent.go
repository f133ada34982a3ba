package privilege

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"storage-visual/internal/domain"
)

// ConsentFile is the name of the consent record inside the consent dir.
const ConsentFile = "consent.json"

// ConsentState is the persisted consent record.
type ConsentState struct {
	Granted   bool   `json:"granted"`
	GrantedAt string `json:"granted_at,omitempty"`
	RevokedAt string `json:"revoked_at,omitempty"`
}

// Consent derives the privilege status from a consent file:
// no file is PendingConsent, a granted record is Allowed and a revoked
// record is Disallowed. The file is read on every Status call so a grant or
// revoke from another process takes effect on the next operation.
type Consent struct {
	mu    sync.Mutex
	path  string
	audit  domain.AuditLogger
	bus    domain.EventBus
	logger *slog.Logger
	now    func() time.Time // for testing
}

// ConsentOption configures a Consent source.
type ConsentOption func(*Consent)

// WithConsentAudit records grants and revokes to audit.
func WithConsentAudit(audit domain.AuditLogger) ConsentOption {
	return func(c *Consent) { c.audit = audit }
}

// WithConsentEvents publishes EventPrivilegeChanged on grant and revoke.
func WithConsentEvents(bus domain.EventBus) ConsentOption {
	return func(c *Consent) { c.bus = bus }
}

// WithConsentLogger reports audit write failures to logger.
func WithConsentLogger(logger *slog.Logger) ConsentOption {
	return func(c *Consent) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConsent creates a consent source backed by dir/consent.json.
func NewConsent(dir string, opts ...ConsentOption) *Consent {
	c := &Consent{
		path:   filepath.Join(dir, ConsentFile),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the consent file location.
func (c *Consent) Path() string { return c.path }

func (c *Consent) Status(context.Context) (domain.PrivilegeStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Consent) statusLocked() (domain.PrivilegeStatus, error) {
	state, ok, err := c.load()
	if err != nil {
		return domain.PrivilegeNotSupported, err
	}
	if !ok {
		return domain.PrivilegePendingConsent, nil
	}
	if state.Granted {
		return domain.PrivilegeAllowed, nil
	}
	return domain.PrivilegeDisallowed, nil
}

// State returns the persisted record and whether one exists.
func (c *Consent) State() (ConsentState, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Grant records consent.
func (c *Consent) Grant(ctx context.Context) error {
	return c.update(ctx, domain.AuditConsentGiven, "grant", ConsentState{
		Granted:   true,
		GrantedAt: c.now().UTC().Format(time.RFC3339),
	})
}

// Revoke withdraws consent. A revoked record answers Disallowed, not
// PendingConsent.
func (c *Consent) Revoke(ctx context.Context) error {
	return c.update(ctx, domain.AuditConsentRevoked, "revoke", ConsentState{
		Granted:   false,
		RevokedAt: c.now().UTC().Format(time.RFC3339),
	})
}

func (c *Consent) update(ctx context.Context, typ domain.AuditEventType, action string, state ConsentState) error {
	c.mu.Lock()
	prev, err := c.statusLocked()
	if err != nil {
		// A corrupt record is replaced.
		prev = domain.PrivilegePendingConsent
	}
	if err := c.save(state); err != nil {
		c.mu.Unlock()
		return err
	}
	next, _ := c.statusLocked()
	c.mu.Unlock()

	if c.audit != nil {
		err := c.audit.Log(ctx, domain.AuditEvent{
			Type:   typ,
			Action: action,
			Detail: map[string]string{"action": action, "status": next.String()},
		})
		if err != nil {
			c.logger.Error("audit write failed", "type", string(typ), "error", err)
		}
	}
	if prev != next {
		publishChange(ctx, c.bus, prev, next)
	}
	return nil
}

func (c *Consent) load() (ConsentState, bool, error) {
	var state ConsentState
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, false, nil
	}
	if err != nil {
		return state, false, domain.NewSubSystemError("consent", "Consent.load", domain.ErrConsentStore, err.Error())
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, false, domain.NewSubSystemError("consent", "Consent.load", domain.ErrConsentStore,
			fmt.Sprintf("parse %s: %v", c.path, err))
	}
	return state, true, nil
}

// save writes the record atomically through a temp file and rename.
func (c *Consent) save(state ConsentState) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return domain.NewSubSystemError("consent", "Consent.save", domain.ErrConsentStore, err.Error())
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return domain.NewSubSystemError("consent", "Consent.save", domain.ErrConsentStore, err.Error())
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return domain.NewSubSystemError("consent", "Consent.save", domain.ErrConsentStore, err.Error())
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return domain.NewSubSystemError("consent", "Consent.save", domain.ErrConsentStore, err.Error())
	}
	return nil
}

var _ domain.PrivilegeSource = (*Consent)(nil)
