// Package memory provides in-process implementations of the persistence
// boundaries, used by tests and for running the service without its backing
// stores. Semantics mirror the Scylla repository, including the conditional
// bootstrap claim and the dangling reset-token lookup rows.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"admin-service/internal/models"
	"admin-service/internal/repository/scylla"
)

// AdminRepository is a mutex-guarded map-backed store implementing
// scylla.AdminRepository.
type AdminRepository struct {
	mu               sync.Mutex
	byID             map[string]*models.AdminAccount
	byEmail          map[string]string
	byResetToken     map[string]string
	activity         map[string][]*models.ActivityEntry
	bootstrapClaimed bool
	failNextCreate   error
}

func NewAdminRepository() *AdminRepository {
	return &AdminRepository{
		byID:         make(map[string]*models.AdminAccount),
		byEmail:      make(map[string]string),
		byResetToken: make(map[string]string),
		activity:     make(map[string][]*models.ActivityEntry),
	}
}

func (r *AdminRepository) CreateFirstAdmin(_ context.Context, account *models.AdminAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check-and-set under one lock: the same guarantee the Scylla
	// lightweight transaction provides.
	if r.bootstrapClaimed {
		return scylla.ErrBootstrapDone
	}
	r.bootstrapClaimed = true

	// Injected store failure. The claim is released, as the Scylla
	// repository does when the account batch fails after the marker CAS.
	if err := r.failNextCreate; err != nil {
		r.failNextCreate = nil
		r.bootstrapClaimed = false
		return err
	}

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	r.byID[account.ID] = &stored
	r.byEmail[account.Email] = account.ID
	return nil
}

// FailNextCreate makes the next CreateFirstAdmin return err after claiming
// the bootstrap marker, simulating an account write that fails mid-flight.
func (r *AdminRepository) FailNextCreate(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNextCreate = err
}

func (r *AdminRepository) HasAnyAdmin(_ context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bootstrapClaimed, nil
}

func (r *AdminRepository) GetByEmail(_ context.Context, email string) (*models.AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	return r.copyLocked(id)
}

func (r *AdminRepository) GetByID(_ context.Context, id string) (*models.AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked(id)
}

func (r *AdminRepository) GetByResetToken(_ context.Context, resetToken string) (*models.AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byResetToken[resetToken]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	return r.copyLocked(id)
}

func (r *AdminRepository) UpdateLastLogin(_ context.Context, account *models.AdminAccount, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return scylla.ErrNotFound
	}
	stamped := at
	stored.LastLogin = &stamped
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AdminRepository) SetResetToken(_ context.Context, account *models.AdminAccount, resetToken string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return scylla.ErrNotFound
	}
	// The superseded token's lookup row stays behind, as in Scylla.
	stored.ResetToken = resetToken
	stamped := expiry
	stored.ResetTokenExpiry = &stamped
	stored.UpdatedAt = time.Now().UTC()
	r.byResetToken[resetToken] = account.ID
	return nil
}

func (r *AdminRepository) ClearResetToken(_ context.Context, account *models.AdminAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return scylla.ErrNotFound
	}
	if stored.ResetToken != "" {
		delete(r.byResetToken, stored.ResetToken)
	}
	stored.ResetToken = ""
	stored.ResetTokenExpiry = nil
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AdminRepository) UpdatePasswordDigest(_ context.Context, account *models.AdminAccount, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return scylla.ErrNotFound
	}
	if stored.ResetToken != "" {
		delete(r.byResetToken, stored.ResetToken)
	}
	stored.PasswordDigest = digest
	stored.IsPasswordChanged = true
	stored.ResetToken = ""
	stored.ResetTokenExpiry = nil
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AdminRepository) UpdateStatus(_ context.Context, account *models.AdminAccount, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return scylla.ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AdminRepository) AppendActivity(_ context.Context, entry *models.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.EntryID = uuid.New().String()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	stored := *entry
	r.activity[entry.AdminID] = append(r.activity[entry.AdminID], &stored)
	return nil
}

func (r *AdminRepository) ListActivity(_ context.Context, adminID string, limit int) ([]*models.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.activity[adminID]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	out := make([]*models.ActivityEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AdminRepository) copyLocked(id string) (*models.AdminAccount, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	cp := *stored
	if stored.LastLogin != nil {
		t := *stored.LastLogin
		cp.LastLogin = &t
	}
	if stored.ResetTokenExpiry != nil {
		t := *stored.ResetTokenExpiry
		cp.ResetTokenExpiry = &t
	}
	return &cp, nil
}

var _ scylla.AdminRepository = (*AdminRepository)(nil)
