package repository

import (
	"context"
	"errors"
	"time"

	"chatwoot-unipile-bridge/backend/relay/dedupe"
	"chatwoot-unipile-bridge/backend/relay/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDedupeRepository implements the dedupe cache on Postgres. Admission is
// a single INSERT ... ON CONFLICT DO NOTHING on the primary key, so two
// concurrent identical requests race at the storage layer and exactly one
// wins.
type GormDedupeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormDedupeRepository(db *gorm.DB) *GormDedupeRepository {
	return &GormDedupeRepository{db: db, now: time.Now}
}

func (r *GormDedupeRepository) Admit(ctx context.Context, key, chatID, normalizedText string, ttl time.Duration) (dedupe.Result, error) {
	now := r.now().UTC()
	entry := models.DedupeEntry{
		DedupeKey:      key,
		ChatID:         chatID,
		NormalizedText: normalizedText,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(&entry)
	if res.Error != nil {
		return dedupe.Duplicate, res.Error
	}
	if res.RowsAffected == 1 {
		return dedupe.Admitted, nil
	}

	// The key exists. A live entry means a genuine duplicate; a logically
	// dead one is taken over in place. The expires_at guard in the WHERE
	// clause keeps concurrent takeovers from both succeeding.
	var existing models.DedupeEntry
	err := r.db.WithContext(ctx).First(&existing, "dedupe_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Swept between the insert and the read; the next delivery wins.
		return dedupe.Duplicate, nil
	}
	if err != nil {
		return dedupe.Duplicate, err
	}
	if !existing.Expired(now) {
		return dedupe.Duplicate, nil
	}

	takeover := r.db.WithContext(ctx).
		Model(&models.DedupeEntry{}).
		Where("dedupe_key = ? AND expires_at <= ?", key, now).
		Updates(map[string]any{
			"chat_id":         chatID,
			"normalized_text": normalizedText,
			"expires_at":      now.Add(ttl),
			"created_at":      now,
		})
	if takeover.Error != nil {
		return dedupe.Duplicate, takeover.Error
	}
	if takeover.RowsAffected == 1 {
		return dedupe.Admitted, nil
	}

	return dedupe.Duplicate, nil
}

func (r *GormDedupeRepository) Contains(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DedupeEntry{}).
		Where("dedupe_key = ? AND expires_at > ?", key, r.now().UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormDedupeRepository) Sweep(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", r.now().UTC()).
		Delete(&models.DedupeEntry{})
	return res.RowsAffected, res.Error
}
