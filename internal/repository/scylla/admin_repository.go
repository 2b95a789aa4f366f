package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"admin-service/internal/bucketing"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

// AdminScyllaRepository persists administrator accounts across three tables:
// admins (by email), admins_by_id, and admins_by_reset_token (token lookup).
// Every mutation writes the email and id tables in one logged batch so the
// two views never diverge.
type AdminScyllaRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.Manager
}

func NewAdminRepository(client *ScyllaClient, bucketingMgr *bucketing.Manager) *AdminScyllaRepository {
	return &AdminScyllaRepository{
		client:    client,
		bucketing: bucketingMgr,
	}
}

func (r *AdminScyllaRepository) CreateFirstAdmin(ctx context.Context, account *models.AdminAccount) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	// The lightweight transaction is the single-writer guarantee: two racing
	// bootstrap attempts can both observe an empty system, but only one
	// claim is ever applied.
	applied, err := r.client.Prepared.ClaimBootstrap.
		Bind(account.ID, now).
		WithContext(ctx).
		MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to claim bootstrap marker: %w", err)
	}
	if !applied {
		return ErrBootstrapDone
	}

	batch := r.client.Batch(gocql.LoggedBatch)
	r.appendAccountInserts(batch, account)
	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		util.Error("failed to persist bootstrap account",
			util.String("admin_id", account.ID),
			util.ErrorField(err))
		// The claim succeeded but no account was stored. Release it so a
		// retry can claim again; leaving it would report bootstrap as done
		// with zero admins in the system.
		if _, rerr := r.client.Prepared.ReleaseBootstrap.
			Bind(account.ID).
			WithContext(ctx).
			MapScanCAS(map[string]interface{}{}); rerr != nil {
			util.Error("failed to release bootstrap marker after write failure",
				util.String("admin_id", account.ID),
				util.ErrorField(rerr))
		}
		return fmt.Errorf("failed to create first admin: %w", err)
	}

	util.Info("First admin created",
		util.String("admin_id", account.ID),
		util.String("email", account.Email))
	return nil
}

func (r *AdminScyllaRepository) HasAnyAdmin(ctx context.Context) (bool, error) {
	var adminID string
	err := r.client.Prepared.CountAdmins.WithContext(ctx).Scan(&adminID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check bootstrap marker: %w", err)
	}
	return true, nil
}

func (r *AdminScyllaRepository) GetByEmail(ctx context.Context, email string) (*models.AdminAccount, error) {
	query := r.client.Prepared.GetAdminByEmail.Bind(email).WithContext(ctx)
	return r.scanAdmin(query)
}

func (r *AdminScyllaRepository) GetByID(ctx context.Context, id string) (*models.AdminAccount, error) {
	query := r.client.Prepared.GetAdminByID.Bind(id).WithContext(ctx)
	return r.scanAdmin(query)
}

func (r *AdminScyllaRepository) GetByResetToken(ctx context.Context, resetToken string) (*models.AdminAccount, error) {
	var adminID string
	err := r.client.Prepared.GetAdminIDByToken.Bind(resetToken).WithContext(ctx).Scan(&adminID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve reset token: %w", err)
	}
	return r.GetByID(ctx, adminID)
}

func (r *AdminScyllaRepository) UpdateLastLogin(ctx context.Context, account *models.AdminAccount, at time.Time) error {
	now := time.Now().UTC()

	batch := r.client.Batch(gocql.LoggedBatch)
	batch.Query(`UPDATE admins SET last_login = ?, updated_at = ? WHERE email = ?`,
		at, now, account.Email)
	batch.Query(`UPDATE admins_by_id SET last_login = ?, updated_at = ? WHERE admin_id = ?`,
		at, now, account.ID)

	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *AdminScyllaRepository) SetResetToken(ctx context.Context, account *models.AdminAccount, resetToken string, expiry time.Time) error {
	now := time.Now().UTC()

	// Token and expiry travel in one statement per table; a failed batch
	// leaves neither half applied. A superseded token's lookup row stays
	// behind, but resolution always re-checks the account's current token.
	batch := r.client.Batch(gocql.LoggedBatch)
	batch.Query(`UPDATE admins SET reset_token = ?, reset_token_expiry = ?, updated_at = ? WHERE email = ?`,
		resetToken, expiry, now, account.Email)
	batch.Query(`UPDATE admins_by_id SET reset_token = ?, reset_token_expiry = ?, updated_at = ? WHERE admin_id = ?`,
		resetToken, expiry, now, account.ID)
	batch.Query(`INSERT INTO admins_by_reset_token (reset_token, admin_id) VALUES (?, ?)`,
		resetToken, account.ID)

	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

func (r *AdminScyllaRepository) ClearResetToken(ctx context.Context, account *models.AdminAccount) error {
	now := time.Now().UTC()

	batch := r.client.Batch(gocql.LoggedBatch)
	batch.Query(`UPDATE admins SET reset_token = null, reset_token_expiry = null, updated_at = ? WHERE email = ?`,
		now, account.Email)
	batch.Query(`UPDATE admins_by_id SET reset_token = null, reset_token_expiry = null, updated_at = ? WHERE admin_id = ?`,
		now, account.ID)
	if account.ResetToken != "" {
		batch.Query(`DELETE FROM admins_by_reset_token WHERE reset_token = ?`, account.ResetToken)
	}

	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

func (r *AdminScyllaRepository) UpdatePasswordDigest(ctx context.Context, account *models.AdminAccount, digest string) error {
	now := time.Now().UTC()

	batch := r.client.Batch(gocql.LoggedBatch)
	batch.Query(`UPDATE admins SET password_digest = ?, is_password_changed = true,
		reset_token = null, reset_token_expiry = null, updated_at = ? WHERE email = ?`,
		digest, now, account.Email)
	batch.Query(`UPDATE admins_by_id SET password_digest = ?, is_password_changed = true,
		reset_token = null, reset_token_expiry = null, updated_at = ? WHERE admin_id = ?`,
		digest, now, account.ID)
	if account.ResetToken != "" {
		batch.Query(`DELETE FROM admins_by_reset_token WHERE reset_token = ?`, account.ResetToken)
	}

	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to update password digest: %w", err)
	}
	return nil
}

func (r *AdminScyllaRepository) UpdateStatus(ctx context.Context, account *models.AdminAccount, status string) error {
	now := time.Now().UTC()

	batch := r.client.Batch(gocql.LoggedBatch)
	batch.Query(`UPDATE admins SET status = ?, updated_at = ? WHERE email = ?`,
		status, now, account.Email)
	batch.Query(`UPDATE admins_by_id SET status = ?, updated_at = ? WHERE admin_id = ?`,
		status, now, account.ID)

	if err := r.client.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func (r *AdminScyllaRepository) AppendActivity(ctx context.Context, entry *models.ActivityEntry) error {
	entryID := gocql.TimeUUID()
	entry.EntryID = entryID.String()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.EventBucket = r.bucketing.EventBucket(entry.AdminID)

	details, err := entry.EncodeDetails()
	if err != nil {
		return fmt.Errorf("failed to encode activity details: %w", err)
	}

	err = r.client.Prepared.InsertActivity.
		Bind(entry.AdminID, entryID, entry.EventBucket, entry.Action, entry.Timestamp, details).
		WithContext(ctx).
		Exec()
	if err != nil {
		util.Error("failed to append activity",
			util.String("admin_id", entry.AdminID),
			util.String("action", entry.Action),
			util.ErrorField(err))
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (r *AdminScyllaRepository) ListActivity(ctx context.Context, adminID string, limit int) ([]*models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 1000
	}

	iter := r.client.Prepared.ListActivity.Bind(adminID, limit).WithContext(ctx).Iter()

	var entries []*models.ActivityEntry
	var (
		entryID     gocql.UUID
		eventBucket int
		action      string
		ts          time.Time
		details     string
	)
	for iter.Scan(&entryID, &eventBucket, &action, &ts, &details) {
		entry := &models.ActivityEntry{
			AdminID:     adminID,
			EntryID:     entryID.String(),
			EventBucket: eventBucket,
			Action:      action,
			Timestamp:   ts,
		}
		if err := entry.DecodeDetails(details); err != nil {
			return nil, fmt.Errorf("failed to decode activity details: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

func (r *AdminScyllaRepository) appendAccountInserts(batch *gocql.Batch, a *models.AdminAccount) {
	args := []interface{}{
		a.ID, a.Email, a.PasswordDigest, a.Role, a.FirstName, a.LastName,
		a.IsFirstAdmin, a.IsPasswordChanged, a.Status, a.LastLogin,
		a.ResetToken, a.ResetTokenExpiry, a.CreatedAt, a.UpdatedAt,
	}
	batch.Query(r.client.Prepared.InsertAdmin.Statement(), args...)
	batch.Query(r.client.Prepared.InsertAdminByID.Statement(), args...)
}

func (r *AdminScyllaRepository) scanAdmin(query *gocql.Query) (*models.AdminAccount, error) {
	account := &models.AdminAccount{}
	var lastLogin, resetExpiry time.Time

	err := query.Scan(
		&account.ID, &account.Email, &account.PasswordDigest, &account.Role,
		&account.FirstName, &account.LastName, &account.IsFirstAdmin,
		&account.IsPasswordChanged, &account.Status, &lastLogin,
		&account.ResetToken, &resetExpiry, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load admin account: %w", err)
	}

	if !lastLogin.IsZero() {
		account.LastLogin = &lastLogin
	}
	if !resetExpiry.IsZero() {
		account.ResetTokenExpiry = &resetExpiry
	}
	return account, nil
}
