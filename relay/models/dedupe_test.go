package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupeEntryExpired(t *testing.T) {
	t0 := time.Now().UTC()
	entry := DedupeEntry{DedupeKey: "k", ExpiresAt: t0.Add(300 * time.Second)}

	assert.False(t, entry.Expired(t0))
	assert.False(t, entry.Expired(t0.Add(299*time.Second)))
	// Expiry boundary is inclusive: at exactly expires_at the entry is dead.
	assert.True(t, entry.Expired(t0.Add(300*time.Second)))
	assert.True(t, entry.Expired(t0.Add(301*time.Second)))
}
