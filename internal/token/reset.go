// Package token generates the single-use, time-boxed tokens that back the
// password-reset flow.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// resetTokenBytes gives 256 bits of entropy; the hex encoding yields a
// 64-character printable token.
const resetTokenBytes = 32

// Generator mints reset tokens with a fixed time-to-live.
type Generator struct {
	ttl time.Duration
}

func NewGenerator(ttl time.Duration) *Generator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Generator{ttl: ttl}
}

// TTL returns the configured token lifetime.
func (g *Generator) TTL() time.Duration {
	return g.ttl
}

// Issue returns a fresh token and its expiry instant. Issuing while an
// earlier token is outstanding simply supersedes it; only the latest stored
// token is ever honored.
func (g *Generator) Issue(now time.Time) (token string, expiry time.Time, err error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(raw), now.Add(g.ttl), nil
}
