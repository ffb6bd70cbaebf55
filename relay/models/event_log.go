package models

import (
	"encoding/json"
	"time"
)

// EventLog is one append-only audit row per decision. Rows are never updated
// or deleted on the request path.
type EventLog struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index"`
	Source            Source          `json:"source" gorm:"size:16"`
	Decision          Decision        `json:"decision" gorm:"size:32;index"`
	ChatID            string          `json:"chat_id" gorm:"index"`
	IsSender          *bool           `json:"is_sender,omitempty"`
	MessageID         string          `json:"message_id,omitempty"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	DedupeKey         string          `json:"dedupe_key,omitempty" gorm:"size:128"`
	NormalizedText    string          `json:"normalized_text,omitempty"`
	Payload           json.RawMessage `json:"payload,omitempty" gorm:"type:jsonb"`
	Error             string          `json:"error,omitempty"`
	Reason            string          `json:"reason,omitempty" gorm:"size:24"`
	ParseMode         string          `json:"parse_mode,omitempty" gorm:"size:24"`
	Signature         string          `json:"signature,omitempty"`
	Response          json.RawMessage `json:"response,omitempty" gorm:"type:jsonb"`
}

func (EventLog) TableName() string {
	return "event_logs"
}
