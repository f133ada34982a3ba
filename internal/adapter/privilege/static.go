// Package privilege provides the sources a host consults when asked for its
// storage privilege status.
package privilege

import (
	"context"
	"sync"

	"storage-visual/internal/domain"
)

// Static answers a fixed status that can be switched at runtime.
type Static struct {
	mu     sync.RWMutex
	status domain.PrivilegeStatus
	bus    domain.EventBus
}

// NewStatic creates a source answering status. bus may be nil.
func NewStatic(status domain.PrivilegeStatus, bus domain.EventBus) *Static {
	return &Static{status: status, bus: bus}
}

func (s *Static) Status(context.Context) (domain.PrivilegeStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, nil
}

// Set switches the answered status and publishes EventPrivilegeChanged when
// it differs from the previous one.
func (s *Static) Set(ctx context.Context, status domain.PrivilegeStatus) {
	s.mu.Lock()
	prev := s.status
	s.status = status
	s.mu.Unlock()

	if prev != status {
		publishChange(ctx, s.bus, prev, status)
	}
}

func publishChange(ctx context.Context, bus domain.EventBus, from, to domain.PrivilegeStatus) {
	if bus == nil {
		return
	}
	bus.Publish(ctx, domain.NewEvent(domain.EventPrivilegeChanged, "", domain.PrivilegeChangedPayload{
		From: from.String(),
		To:   to.String(),
	}))
}

var _ domain.PrivilegeSource = (*Static)(nil)
