package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"admin-service/internal/audit"
	"admin-service/internal/hashing"
	"admin-service/internal/mail"
	"admin-service/internal/models"
	"admin-service/internal/repository/scylla"
	"admin-service/internal/token"
	"admin-service/internal/util"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrNotFound           = errors.New("admin account not found")
	ErrSuspended          = errors.New("account is suspended")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid covers missing, mismatched, and expired reset tokens.
	// One error for all three: the failure mode must not leak to the caller.
	ErrTokenInvalid    = errors.New("reset token invalid or expired")
	ErrBootstrapDone   = errors.New("bootstrap already completed")
	ErrTooManyAttempts = errors.New("too many login attempts")
	// ErrMailDelivery marks a reset mail that failed to send after the token
	// committed. The token stays valid; only the send needs retrying.
	ErrMailDelivery = errors.New("reset mail delivery failed")
)

const minPasswordLength = 8

// The bootstrap account always carries these display names.
const (
	bootstrapFirstName = "Super"
	bootstrapLastName  = "Admin"
)

// SessionStore is the transport-session boundary (implemented on Redis).
type SessionStore interface {
	Create(ctx context.Context, sessionID, adminID string, ttl time.Duration) error
	Resolve(ctx context.Context, sessionID string) (string, error)
	Drop(ctx context.Context, sessionID string) error
}

// AttemptLimiter throttles failed logins per account.
type AttemptLimiter interface {
	RecordFailure(ctx context.Context, adminID string) (locked bool, err error)
	IsLocked(ctx context.Context, adminID string) (bool, error)
	Reset(ctx context.Context, adminID string) error
}

// AdminService orchestrates the administrator account lifecycle: bootstrap,
// login, the reset flow, suspension, and the audit trail. Every operation is
// request-scoped and runs read-modify-persist within the caller's context.
type AdminService struct {
	repo       scylla.AdminRepository
	hasher     *hashing.Hasher
	tokens     *token.Generator
	sessions   SessionStore
	limiter    AttemptLimiter
	mailer     mail.Mailer
	auditor    *audit.Publisher
	sessionTTL time.Duration

	// now is a test hook; production wiring leaves it at time.Now.
	now func() time.Time
}

func NewAdminService(
	repo scylla.AdminRepository,
	hasher *hashing.Hasher,
	tokens *token.Generator,
	sessions SessionStore,
	limiter AttemptLimiter,
	mailer mail.Mailer,
	auditor *audit.Publisher,
	sessionTTL time.Duration,
) *AdminService {
	return &AdminService{
		repo:       repo,
		hasher:     hasher,
		tokens:     tokens,
		sessions:   sessions,
		limiter:    limiter,
		mailer:     mailer,
		auditor:    auditor,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// BootstrapRequest creates the first administrator.
type BootstrapRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates an administrator.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IP       string `json:"-"`
}

// HasAnyAdmin reports whether the bootstrap flow is still reachable.
func (s *AdminService) HasAnyAdmin(ctx context.Context) (bool, error) {
	exists, err := s.repo.HasAnyAdmin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing admins: %w", err)
	}
	return exists, nil
}

// Bootstrap creates the single first administrator: unconditionally
// super_admin, flagged IsFirstAdmin, fixed display name. The persistence
// layer's conditional insert upholds the at-most-one invariant even under
// concurrent attempts.
func (s *AdminService) Bootstrap(ctx context.Context, req *BootstrapRequest) (*models.AdminAccount, error) {
	email := util.NormalizeEmail(req.Email)
	if !util.ValidEmail(email) {
		return nil, fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	// Advisory pre-check; the authoritative guard is the repository's
	// conditional insert.
	exists, err := s.repo.HasAnyAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing admins: %w", err)
	}
	if exists {
		return nil, ErrBootstrapDone
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.AdminAccount{
		Email:          email,
		PasswordDigest: digest,
		Role:           models.RoleSuperAdmin,
		FirstName:      bootstrapFirstName,
		LastName:       bootstrapLastName,
		IsFirstAdmin:   true,
		Status:         models.StatusActive,
	}

	if err := s.repo.CreateFirstAdmin(ctx, account); err != nil {
		if errors.Is(err, scylla.ErrBootstrapDone) {
			return nil, ErrBootstrapDone
		}
		return nil, err
	}

	s.logActivity(ctx, account.ID, models.ActionBootstrap, map[string]interface{}{
		"email": account.Email,
	})

	return account, nil
}

// Login verifies credentials, stamps last_login, records the attempt in the
// audit trail, and mints an opaque session.
func (s *AdminService) Login(ctx context.Context, req *LoginRequest) (*models.AdminProfile, string, error) {
	email := util.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	if account.IsSuspended() {
		return nil, "", ErrSuspended
	}

	locked, err := s.limiter.IsLocked(ctx, account.ID)
	if err != nil {
		return nil, "", err
	}
	if locked {
		return nil, "", ErrTooManyAttempts
	}

	ok, err := s.hasher.Verify(req.Password, account.PasswordDigest)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		if _, lerr := s.limiter.RecordFailure(ctx, account.ID); lerr != nil {
			util.Warn("Failed to record login failure", util.ErrorField(lerr))
		}
		return nil, "", ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, account.ID); err != nil {
		util.Warn("Failed to reset login attempts", util.ErrorField(err))
	}

	loginAt := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, account, loginAt); err != nil {
		return nil, "", err
	}
	account.LastLogin = &loginAt

	s.logActivity(ctx, account.ID, models.ActionLogin, map[string]interface{}{
		"ip": req.IP,
	})

	sessionID := uuid.New().String()
	if err := s.sessions.Create(ctx, sessionID, account.ID, s.sessionTTL); err != nil {
		return nil, "", err
	}

	return account.Profile(), sessionID, nil
}

// Status resolves a session to the authenticated admin's public profile.
func (s *AdminService) Status(ctx context.Context, sessionID string) (*models.AdminProfile, error) {
	adminID, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	account, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return account.Profile(), nil
}

// Logout drops the session. The account record is unaffected.
func (s *AdminService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Drop(ctx, sessionID)
}

// ForgotPassword issues a reset token for the account behind the email and
// hands it to the mailer. Issuing supersedes any earlier token. The caller
// must collapse ErrNotFound and ErrSuspended into the same external success
// as the happy path; only ErrMailDelivery is worth retrying.
func (s *AdminService) ForgotPassword(ctx context.Context, email string) error {
	email = util.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if account.IsSuspended() {
		return ErrSuspended
	}

	resetToken, expiry, err := s.tokens.Issue(s.now().UTC())
	if err != nil {
		return err
	}

	if err := s.repo.SetResetToken(ctx, account, resetToken, expiry); err != nil {
		return err
	}
	account.ResetToken = resetToken
	account.ResetTokenExpiry = &expiry

	s.logActivity(ctx, account.ID, models.ActionResetRequested, nil)

	// The token has committed; delivery failure must not roll it back.
	if err := s.mailer.SendResetToken(ctx, account.Email, resetToken); err != nil {
		util.Error("Reset mail delivery failed",
			util.String("email", account.Email),
			util.ErrorField(err))
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	return nil
}

// ResetPassword consumes a pending token: validates it against the account's
// current token and expiry, rehashes, clears the pair, and marks the password
// as changed. All token failure modes collapse into ErrTokenInvalid.
func (s *AdminService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return ErrTokenInvalid
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	account, err := s.repo.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	if account.IsSuspended() {
		return ErrSuspended
	}

	// A superseded token can still resolve through a stale lookup row; only
	// the account's current token is honored, and only until its expiry.
	if account.ResetToken != resetToken || !account.ResetTokenValid(s.now()) {
		return ErrTokenInvalid
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePasswordDigest(ctx, account, digest); err != nil {
		return err
	}
	account.PasswordDigest = digest
	account.IsPasswordChanged = true
	account.ResetToken = ""
	account.ResetTokenExpiry = nil

	s.logActivity(ctx, account.ID, models.ActionPasswordReset, nil)
	return nil
}

// CancelPasswordReset withdraws a pending reset request: the token and expiry
// are cleared together and the lookup row is dropped, so the mailed token can
// no longer be redeemed. Cancelling with nothing pending is a no-op.
func (s *AdminService) CancelPasswordReset(ctx context.Context, adminID string) error {
	account, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !account.HasPendingReset() {
		return nil
	}

	if err := s.repo.ClearResetToken(ctx, account); err != nil {
		return err
	}
	account.ResetToken = ""
	account.ResetTokenExpiry = nil

	s.logActivity(ctx, adminID, models.ActionResetCancelled, nil)
	return nil
}

// ChangePassword performs a voluntary password change for an authenticated
// admin. Any pending reset token is invalidated along the way.
func (s *AdminService) ChangePassword(ctx context.Context, adminID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	account, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if account.IsSuspended() {
		return ErrSuspended
	}

	ok, err := s.hasher.Verify(currentPassword, account.PasswordDigest)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePasswordDigest(ctx, account, digest); err != nil {
		return err
	}

	s.logActivity(ctx, adminID, models.ActionPasswordChange, nil)
	return nil
}

// Suspend disables an account; all login and reset operations fail until it
// is reinstated.
func (s *AdminService) Suspend(ctx context.Context, adminID string) error {
	return s.setStatus(ctx, adminID, models.StatusSuspended, models.ActionSuspended)
}

// Reinstate returns a suspended account to active status.
func (s *AdminService) Reinstate(ctx context.Context, adminID string) error {
	return s.setStatus(ctx, adminID, models.StatusActive, models.ActionReinstated)
}

func (s *AdminService) setStatus(ctx context.Context, adminID, status, action string) error {
	account, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if account.Status == status {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, account, status); err != nil {
		return err
	}
	s.logActivity(ctx, adminID, action, nil)
	return nil
}

// LogActivity appends an arbitrary entry to an admin's audit trail. Action
// names are open; details is a schema-less per-action payload.
func (s *AdminService) LogActivity(ctx context.Context, adminID, action string, details map[string]interface{}) error {
	// Caller-supplied action names are free text headed for dashboards;
	// escape them on the way in.
	action = util.SanitizeInput(action)
	if action == "" {
		return fmt.Errorf("%w: action is required", ErrValidation)
	}
	if _, err := s.repo.GetByID(ctx, adminID); err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.appendActivity(ctx, adminID, action, details)
}

// Activity returns a snapshot of the audit trail in insertion order.
func (s *AdminService) Activity(ctx context.Context, adminID string, limit int) ([]*models.ActivityEntry, error) {
	if _, err := s.repo.GetByID(ctx, adminID); err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.repo.ListActivity(ctx, adminID, limit)
}

// SearchActivity runs a full-text query over the mirrored audit index.
func (s *AdminService) SearchActivity(ctx context.Context, adminID, query string, size int) ([]*models.ActivityEntry, error) {
	if !s.auditor.SearchEnabled() {
		return nil, fmt.Errorf("%w: activity search is not configured", ErrValidation)
	}
	return s.auditor.Search(ctx, adminID, query, size)
}

// logActivity is the internal append used by lifecycle operations: the
// durable write is required to succeed only as far as logging is concerned;
// a failure is reported but does not fail the parent operation, which has
// already committed its own state.
func (s *AdminService) logActivity(ctx context.Context, adminID, action string, details map[string]interface{}) {
	if err := s.appendActivity(ctx, adminID, action, details); err != nil {
		util.Error("Failed to append activity entry",
			util.String("admin_id", adminID),
			util.String("action", action),
			util.ErrorField(err))
	}
}

func (s *AdminService) appendActivity(ctx context.Context, adminID, action string, details map[string]interface{}) error {
	entry := &models.ActivityEntry{
		AdminID:   adminID,
		Action:    action,
		Timestamp: s.now().UTC(),
		Details:   details,
	}
	if err := s.repo.AppendActivity(ctx, entry); err != nil {
		return err
	}
	s.auditor.Publish(entry)
	return nil
}
