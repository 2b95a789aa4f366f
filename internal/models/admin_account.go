package models

import (
	"time"
)

// Administrator roles, in descending authority order.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
)

// Account statuses. Suspended accounts fail all login and reset operations.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// AdminAccount is the persisted administrator record. Email is the identity
// key (stored lowercased and trimmed). PasswordDigest holds the argon2id
// digest of the current password; plaintext is never stored.
type AdminAccount struct {
	ID                string     `db:"admin_id"`
	Email             string     `db:"email"`
	PasswordDigest    string     `db:"password_digest"`
	Role              string     `db:"role"`
	FirstName         string     `db:"first_name"`
	LastName          string     `db:"last_name"`
	IsFirstAdmin      bool       `db:"is_first_admin"`
	IsPasswordChanged bool       `db:"is_password_changed"`
	Status            string     `db:"status"`
	LastLogin         *time.Time `db:"last_login"`
	ResetToken        string     `db:"reset_token"`
	ResetTokenExpiry  *time.Time `db:"reset_token_expiry"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// ValidRole reports whether role is one of the known authorization tiers.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// IsSuspended reports whether the account must fail login and reset flows.
func (a *AdminAccount) IsSuspended() bool {
	return a.Status == StatusSuspended
}

// HasPendingReset reports whether a reset request is outstanding. The token
// and expiry are set and cleared together; a pending reset is exactly the
// state where both are present.
func (a *AdminAccount) HasPendingReset() bool {
	return a.ResetToken != "" && a.ResetTokenExpiry != nil
}

// ResetTokenValid recomputes token validity from the stored expiry at the
// given instant. An expired token stays in storage until an explicit clear or
// re-issue; validity is never cached.
func (a *AdminAccount) ResetTokenValid(now time.Time) bool {
	return a.HasPendingReset() && a.ResetTokenExpiry.After(now)
}

// AdminProfile is the public view of an account: no digest, no reset token.
type AdminProfile struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	IsFirstAdmin      bool       `json:"is_first_admin"`
	IsPasswordChanged bool       `json:"is_password_changed"`
	Status            string     `json:"status"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Profile projects the account onto its public view.
func (a *AdminAccount) Profile() *AdminProfile {
	return &AdminProfile{
		ID:                a.ID,
		Email:             a.Email,
		Role:              a.Role,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		IsFirstAdmin:      a.IsFirstAdmin,
		IsPasswordChanged: a.IsPasswordChanged,
		Status:            a.Status,
		LastLogin:         a.LastLogin,
		CreatedAt:         a.CreatedAt,
	}
}
