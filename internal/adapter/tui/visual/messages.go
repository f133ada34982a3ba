// Package visual implements the Bubble Tea front end for the storage
// controller: three action groups, the availability line, the result area
// and its error indicator.
package visual

import "storage-visual/internal/domain"

// OpResultMsg carries the outcome of one controller operation.
type OpResultMsg struct {
	Kind   domain.OperationKind
	Result domain.OperationResult
	Err    error
}

// SurfaceMsg signals that the controller's surface changed.
type SurfaceMsg struct{}

// PrivilegeChangedMsg relays a privilege source transition.
type PrivilegeChangedMsg struct {
	From string
	To   string
}
