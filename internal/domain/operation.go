package domain

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// OperationKind names one of the four UI actions.
type OperationKind string

const (
	OpStatusCheck OperationKind = "status"
	OpGet         OperationKind = "get"
	OpSet         OperationKind = "set"
	OpRemove      OperationKind = "remove"
)

// ParseOperationKind maps an action name to its kind.
func ParseOperationKind(s string) (OperationKind, bool) {
	switch OperationKind(s) {
	case OpStatusCheck, OpGet, OpSet, OpRemove:
		return OperationKind(s), true
	}
	return "", false
}

// OperationRequest is created per user action and discarded after handling.
type OperationRequest struct {
	ID    string
	Kind  OperationKind
	Key   string
	Value string
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewOperationRequest stamps a request with a monotonic ULID.
func NewOperationRequest(kind OperationKind, key, value string) OperationRequest {
	idMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
	idMu.Unlock()
	return OperationRequest{ID: id, Kind: kind, Key: key, Value: value}
}

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeDenied is the quiet deny: privilege was not Allowed and nothing
	// was attempted.
	OutcomeDenied Outcome = "denied"
	// OutcomeFailed is a storage failure recovered locally (get only).
	OutcomeFailed Outcome = "failed"
)

// OperationResult is produced by the controller for one request.
type OperationResult struct {
	RequestID string        `json:"request_id"`
	Kind      OperationKind `json:"kind"`
	Outcome   Outcome       `json:"outcome"`
	Value     string        `json:"value,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}
