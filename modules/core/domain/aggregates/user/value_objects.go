package user

import (
	"errors"
	"strings"
)

type Status string

const (
	StatusActive    Status = "Active"
	StatusInvited   Status = "Invited"
	StatusSuspended Status = "Suspended"
)

func NewStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", errors.New("invalid user status")
	}
	return status, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInvited, StatusSuspended:
		return true
	}
	return false
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
