package api

import (
	"context"
	"errors"
	"time"

	"chatwoot-unipile-bridge/backend/relay/dedupe"
	"chatwoot-unipile-bridge/backend/relay/models"
	"chatwoot-unipile-bridge/backend/relay/repository"
)

type stubCache struct {
	entries map[string]bool
	err     error
}

func (s *stubCache) fail() { s.err = errors.New("cache unavailable") }

func (s *stubCache) Admit(ctx context.Context, key, chatID, text string, ttl time.Duration) (dedupe.Result, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.entries[key] {
		return dedupe.Duplicate, nil
	}
	s.entries[key] = true
	return dedupe.Admitted, nil
}

func (s *stubCache) Contains(ctx context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.entries[key], nil
}

func (s *stubCache) Sweep(ctx context.Context) (int64, error) { return 0, s.err }

type stubLogs struct {
	records []*models.EventLog
}

func (s *stubLogs) Append(ctx context.Context, rec *models.EventLog) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *stubLogs) List(ctx context.Context, filter repository.EventLogFilter) ([]models.EventLog, error) {
	return nil, nil
}

func (s *stubLogs) CountByDecision(ctx context.Context, filter repository.EventLogFilter) (map[models.Decision]int64, error) {
	return nil, nil
}

type stubSender struct {
	events []*models.Event
	err    error
}

func (s *stubSender) fail() { s.err = errors.New("send failed") }

func (s *stubSender) Forward(ctx context.Context, ev *models.Event) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.events = append(s.events, ev)
	return map[string]any{"id": "sent"}, nil
}

type stubDeps struct {
	cache  *stubCache
	logs   *stubLogs
	sender *stubSender
}

func newStubDeps() *stubDeps {
	return &stubDeps{
		cache:  &stubCache{entries: make(map[string]bool)},
		logs:   &stubLogs{},
		sender: &stubSender{},
	}
}
