package domain

import (
	"context"
	"fmt"
	"strings"
)

// PrivilegeStatus is the host-granted permission level for the storage
// service. A fresh value is produced by every status query.
type PrivilegeStatus int

const (
	PrivilegeAllowed PrivilegeStatus = iota
	PrivilegeDisallowed
	PrivilegePendingConsent
	PrivilegeNotDeclared
	PrivilegeNotSupported
	PrivilegeDisabledByAdmin
)

var privilegeNames = map[PrivilegeStatus]string{
	PrivilegeAllowed:         "Allowed",
	PrivilegeDisallowed:      "Disallowed",
	PrivilegePendingConsent:  "PendingConsent",
	PrivilegeNotDeclared:     "NotDeclared",
	PrivilegeNotSupported:    "NotSupported",
	PrivilegeDisabledByAdmin: "DisabledByAdmin",
}

func (s PrivilegeStatus) String() string {
	if name, ok := privilegeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PrivilegeStatus(%d)", int(s))
}

// Allowed reports whether storage access may proceed.
func (s PrivilegeStatus) Allowed() bool { return s == PrivilegeAllowed }

// ParsePrivilegeStatus accepts the String form case-insensitively, plus
// snake_case aliases used in configuration ("pending_consent").
func ParsePrivilegeStatus(s string) (PrivilegeStatus, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for status, name := range privilegeNames {
		if strings.ToLower(name) == norm {
			return status, nil
		}
	}
	return 0, NewDomainError("ParsePrivilegeStatus", ErrInvalidInput, fmt.Sprintf("unknown status %q", s))
}

// PrivilegeSource answers the host's current privilege status.
type PrivilegeSource interface {
	Status(ctx context.Context) (PrivilegeStatus, error)
}
