package repository

import (
	"context"
	"time"

	"chatwoot-unipile-bridge/backend/relay/models"

	"gorm.io/gorm"
)

// EventLogFilter narrows event-log queries for the dashboard API.
type EventLogFilter struct {
	ChatID   string
	Decision string
	Source   string
	From     time.Time
	To       time.Time
	Limit    int
}

type EventLogRepository interface {
	Append(ctx context.Context, rec *models.EventLog) error
	List(ctx context.Context, filter EventLogFilter) ([]models.EventLog, error)
	CountByDecision(ctx context.Context, filter EventLogFilter) (map[models.Decision]int64, error)
}

type GormEventLogRepository struct {
	db *gorm.DB
}

func NewGormEventLogRepository(db *gorm.DB) *GormEventLogRepository {
	return &GormEventLogRepository{db: db}
}

func (r *GormEventLogRepository) Append(ctx context.Context, rec *models.EventLog) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormEventLogRepository) List(ctx context.Context, filter EventLogFilter) ([]models.EventLog, error) {
	var records []models.EventLog
	err := r.query(ctx, filter).
		Order("created_at DESC").
		Limit(filter.limitOrDefault()).
		Find(&records).Error
	return records, err
}

func (r *GormEventLogRepository) CountByDecision(ctx context.Context, filter EventLogFilter) (map[models.Decision]int64, error) {
	type row struct {
		Decision models.Decision
		Total    int64
	}
	var rows []row
	err := r.query(ctx, filter).
		Select("decision, COUNT(*) AS total").
		Group("decision").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.Decision]int64, len(rows))
	for _, item := range rows {
		counts[item.Decision] = item.Total
	}
	return counts, nil
}

func (r *GormEventLogRepository) query(ctx context.Context, filter EventLogFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.EventLog{})
	if filter.ChatID != "" {
		q = q.Where("chat_id = ?", filter.ChatID)
	}
	if filter.Decision != "" {
		q = q.Where("decision = ?", filter.Decision)
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at <= ?", filter.To)
	}
	return q
}

func (f EventLogFilter) limitOrDefault() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return 200
	}
	return f.Limit
}
