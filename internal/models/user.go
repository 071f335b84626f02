package models

import (
	"fmt"
	"strings"
)

// UserStatus is the approval state stored alongside a business account
type UserStatus string

const (
	StatusPending     UserStatus = "pending"
	StatusApproved    UserStatus = "approved"
	StatusTrial       UserStatus = "trial"
	StatusDeactivated UserStatus = "deactivated"
	StatusDeleted     UserStatus = "deleted"
)

// AdminTab is the admin dashboard tab a user appears under
type AdminTab string

const (
	TabPending  AdminTab = "pending"
	TabTesting  AdminTab = "testing"
	TabApproved AdminTab = "approved"
	TabDeleted  AdminTab = "deleted"
)

// ParseUserStatus parses a status string case-insensitively
func ParseUserStatus(s string) (UserStatus, error) {
	switch st := UserStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusTrial, StatusDeactivated, StatusDeleted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown user status: %q", s)
	}
}

// AdminTab maps a status onto the pending -> testing -> approved -> deleted pipeline
func (s UserStatus) AdminTab() AdminTab {
	switch s {
	case StatusTrial:
		return TabTesting
	case StatusApproved:
		return TabApproved
	case StatusDeactivated, StatusDeleted:
		return TabDeleted
	default:
		return TabPending
	}
}
