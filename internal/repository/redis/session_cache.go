package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admin-service/internal/client"
	"admin-service/internal/util"
)

const sessionPrefix = "admin_session:"

// ErrSessionNotFound signals an unknown or expired session, which the
// transport layer reports as unauthenticated.
var ErrSessionNotFound = errors.New("session not found")

// SessionCache maps opaque session IDs to admin IDs with a TTL. Sessions are
// transport state only; the account record is unaffected by logout.
type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(redisClient *client.RedisClient) *SessionCache {
	return &SessionCache{client: redisClient}
}

// Create stores a session for the admin with the given lifetime.
func (c *SessionCache) Create(ctx context.Context, sessionID, adminID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, sessionPrefix+sessionID, adminID, ttl); err != nil {
		util.Error("failed to create session",
			util.String("admin_id", adminID),
			util.ErrorField(err))
		return fmt.Errorf("failed to create session: %w", err)
	}
	util.Debug("Session created",
		util.String("admin_id", adminID),
		util.Duration("ttl", ttl))
	return nil
}

// Resolve returns the admin ID behind a session.
func (c *SessionCache) Resolve(ctx context.Context, sessionID string) (string, error) {
	adminID, err := c.client.Get(ctx, sessionPrefix+sessionID)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	return adminID, nil
}

// Drop terminates a session. Dropping an unknown session is not an error.
func (c *SessionCache) Drop(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, sessionPrefix+sessionID); err != nil {
		return fmt.Errorf("failed to drop session: %w", err)
	}
	return nil
}
