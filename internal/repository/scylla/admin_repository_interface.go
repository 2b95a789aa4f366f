package scylla

import (
	"context"
	"errors"
	"time"

	"admin-service/internal/models"
)

var (
	// ErrNotFound signals a lookup that matched no account.
	ErrNotFound = errors.New("admin account not found")

	// ErrBootstrapDone signals that the bootstrap marker was already claimed;
	// the system-wide single-first-admin invariant held.
	ErrBootstrapDone = errors.New("bootstrap already completed")
)

// AdminRepository is the persistence boundary for administrator accounts.
// Paired fields (reset token + expiry) are always written in a single
// statement per table, so a failed write never leaves one half applied.
type AdminRepository interface {
	// CreateFirstAdmin claims the bootstrap marker with a lightweight
	// transaction and persists the account. A lost claim returns
	// ErrBootstrapDone; concurrent bootstrap attempts cannot both succeed.
	CreateFirstAdmin(ctx context.Context, account *models.AdminAccount) error

	// HasAnyAdmin reports whether the bootstrap marker has been claimed.
	HasAnyAdmin(ctx context.Context) (bool, error)

	GetByEmail(ctx context.Context, email string) (*models.AdminAccount, error)
	GetByID(ctx context.Context, id string) (*models.AdminAccount, error)

	// GetByResetToken resolves a token to its account. The mapping may be
	// stale after a re-issue; callers must compare against the account's
	// current token and check validity.
	GetByResetToken(ctx context.Context, resetToken string) (*models.AdminAccount, error)

	UpdateLastLogin(ctx context.Context, account *models.AdminAccount, at time.Time) error

	// SetResetToken stores the token/expiry pair and the token lookup row.
	SetResetToken(ctx context.Context, account *models.AdminAccount, resetToken string, expiry time.Time) error

	// ClearResetToken nulls the pair and drops the token lookup row.
	ClearResetToken(ctx context.Context, account *models.AdminAccount) error

	// UpdatePasswordDigest stores a new digest, marks the password as
	// voluntarily changed, and clears any pending reset pair.
	UpdatePasswordDigest(ctx context.Context, account *models.AdminAccount, digest string) error

	UpdateStatus(ctx context.Context, account *models.AdminAccount, status string) error

	// AppendActivity durably appends one audit entry. The activity table is
	// insert-only; no update or delete path exists.
	AppendActivity(ctx context.Context, entry *models.ActivityEntry) error

	// ListActivity returns a snapshot of the audit trail in insertion order.
	ListActivity(ctx context.Context, adminID string, limit int) ([]*models.ActivityEntry, error)
}
