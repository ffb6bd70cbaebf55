package models

import (
	"time"
)

// DedupeEntry is one admitted fingerprint. An entry becomes logically absent
// once ExpiresAt has passed even if the sweep has not deleted it yet; an
// expired row may be taken over in place by a fresh admission.
type DedupeEntry struct {
	DedupeKey      string    `json:"dedupe_key" gorm:"primaryKey;size:128"`
	ChatID         string    `json:"chat_id" gorm:"index"`
	NormalizedText string    `json:"normalized_text"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName keeps the table name aligned with the dashboard queries.
func (DedupeEntry) TableName() string {
	return "dedupe_cache"
}

// Expired reports whether the entry is logically dead at the given instant.
func (e DedupeEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}
