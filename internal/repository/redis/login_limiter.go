package redis

import (
	"context"
	"fmt"
	"time"

	"admin-service/internal/client"
	"admin-service/internal/util"
)

const loginAttemptPrefix = "login_attempts:"

// LoginLimiter throttles failed login attempts per account within a rolling
// window. Counters live entirely in Redis; a restart of this service does not
// reset them.
type LoginLimiter struct {
	client      *client.RedisClient
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(redisClient *client.RedisClient, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		client:      redisClient,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// RecordFailure bumps the failure counter and reports whether the account is
// now locked out of further attempts for the remainder of the window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, adminID string) (locked bool, err error) {
	count, err := l.client.IncrWithExpire(ctx, loginAttemptPrefix+adminID, l.window)
	if err != nil {
		return false, fmt.Errorf("failed to record login failure: %w", err)
	}
	if count >= int64(l.maxAttempts) {
		util.Warn("Login attempt limit reached",
			util.String("admin_id", adminID),
			util.Int("attempts", int(count)))
		return true, nil
	}
	return false, nil
}

// IsLocked reports whether the account has exhausted its attempts.
func (l *LoginLimiter) IsLocked(ctx context.Context, adminID string) (bool, error) {
	raw, err := l.client.Get(ctx, loginAttemptPrefix+adminID)
	if err != nil {
		if err == client.ErrKeyNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check login lock: %w", err)
	}
	var count int
	if _, err := fmt.Sscanf(raw, "%d", &count); err != nil {
		return false, nil
	}
	return count >= l.maxAttempts, nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, adminID string) error {
	if err := l.client.Del(ctx, loginAttemptPrefix+adminID); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}
