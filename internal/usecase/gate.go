package usecase

import (
	"context"

	"storage-visual/internal/domain"
)

// PrivilegeGate queries the storage service's privilege status on every
// call. Results are never cached: consent may be revoked between any two
// operations.
type PrivilegeGate struct {
	source domain.PrivilegeSource
}

// NewPrivilegeGate creates a gate over the given status source.
func NewPrivilegeGate(source domain.PrivilegeSource) *PrivilegeGate {
	return &PrivilegeGate{source: source}
}

// Check blocks until the source answers. A failed status query is
// returned wrapped in domain.ErrUnexpected.
func (g *PrivilegeGate) Check(ctx context.Context) (domain.PrivilegeStatus, error) {
	status, err := g.source.Status(ctx)
	if err != nil {
		return status, domain.UnexpectedError("PrivilegeGate.Check", err)
	}
	return status, nil
}
