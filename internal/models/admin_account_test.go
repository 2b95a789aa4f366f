package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTokenValid(t *testing.T) {
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expiry := issued.Add(time.Hour)

	account := &AdminAccount{
		ResetToken:       "abc123",
		ResetTokenExpiry: &expiry,
	}

	assert.True(t, account.ResetTokenValid(issued))
	assert.True(t, account.ResetTokenValid(issued.Add(59*time.Minute)))

	// Validity flips purely as a function of the clock; nothing in storage
	// changes at the expiry instant.
	assert.False(t, account.ResetTokenValid(expiry))
	assert.False(t, account.ResetTokenValid(issued.Add(61*time.Minute)))
	assert.Equal(t, "abc123", account.ResetToken)
	assert.NotNil(t, account.ResetTokenExpiry)
}

func TestHasPendingReset(t *testing.T) {
	expiry := time.Now().Add(time.Hour)

	assert.False(t, (&AdminAccount{}).HasPendingReset())
	assert.False(t, (&AdminAccount{ResetToken: "abc123"}).HasPendingReset())
	assert.False(t, (&AdminAccount{ResetTokenExpiry: &expiry}).HasPendingReset())
	assert.True(t, (&AdminAccount{ResetToken: "abc123", ResetTokenExpiry: &expiry}).HasPendingReset())
}

func TestIsSuspended(t *testing.T) {
	assert.False(t, (&AdminAccount{Status: StatusActive}).IsSuspended())
	assert.True(t, (&AdminAccount{Status: StatusSuspended}).IsSuspended())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleSuperAdmin))
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleModerator))
	assert.False(t, ValidRole("superuser"))
	assert.False(t, ValidRole(""))
}

func TestProfileOmitsCredentialState(t *testing.T) {
	lastLogin := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	expiry := lastLogin.Add(time.Hour)

	account := &AdminAccount{
		ID:               "admin-1",
		Email:            "a@x.com",
		PasswordDigest:   "$argon2id$...",
		Role:             RoleSuperAdmin,
		FirstName:        "Super",
		LastName:         "Admin",
		IsFirstAdmin:     true,
		Status:           StatusActive,
		LastLogin:        &lastLogin,
		ResetToken:       "abc123",
		ResetTokenExpiry: &expiry,
	}

	profile := account.Profile()
	assert.Equal(t, "admin-1", profile.ID)
	assert.Equal(t, "a@x.com", profile.Email)
	assert.Equal(t, RoleSuperAdmin, profile.Role)
	assert.True(t, profile.IsFirstAdmin)
	require.NotNil(t, profile.LastLogin)
	assert.Equal(t, lastLogin, *profile.LastLogin)
}
