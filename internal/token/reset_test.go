package token

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueFormat(t *testing.T) {
	g := NewGenerator(time.Hour)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tok, expiry, err := g.Issue(now)
	require.NoError(t, err)

	assert.Len(t, tok, 64)
	_, err = hex.DecodeString(tok)
	assert.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiry)
}

func TestIssueIsUnique(t *testing.T) {
	g := NewGenerator(time.Hour)
	now := time.Now()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, _, err := g.Issue(now)
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token after %d issues", i)
		seen[tok] = struct{}{}
	}
}

func TestGeneratorDefaultTTL(t *testing.T) {
	assert.Equal(t, time.Hour, NewGenerator(0).TTL())
	assert.Equal(t, time.Hour, NewGenerator(-time.Minute).TTL())
	assert.Equal(t, 30*time.Minute, NewGenerator(30*time.Minute).TTL())
}
