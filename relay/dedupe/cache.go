package dedupe

import (
	"context"
	"time"
)

// Result of an admission attempt.
type Result int

const (
	// Admitted means the key was not present (or was expired) and a fresh
	// entry now exists.
	Admitted Result = iota
	// Duplicate means a live entry for the key already exists; the caller
	// must suppress forwarding.
	Duplicate
)

// Cache is the shared dedupe store. Admit must be atomic with respect to
// concurrent admissions of the same key: two simultaneous identical requests
// must not both be admitted. Implementations back this with a conditional
// insert at the storage layer, not an in-process lock.
type Cache interface {
	Admit(ctx context.Context, key, chatID, normalizedText string, ttl time.Duration) (Result, error)
	// Contains reports whether a live (unexpired) entry exists without
	// admitting one.
	Contains(ctx context.Context, key string) (bool, error)
	// Sweep physically deletes expired entries. Housekeeping only; it has
	// no correctness dependency and never runs on the request path.
	Sweep(ctx context.Context) (int64, error)
}
