package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatwoot-unipile-bridge/backend/pkg/logger"
	"chatwoot-unipile-bridge/backend/pkg/metrics"
	"chatwoot-unipile-bridge/backend/relay/dedupe"
	"chatwoot-unipile-bridge/backend/relay/models"
	"chatwoot-unipile-bridge/backend/relay/normalize"
	"chatwoot-unipile-bridge/backend/relay/repository"
)

// OutboundSender delivers an admitted event to the opposite platform.
type OutboundSender interface {
	Forward(ctx context.Context, ev *models.Event) (map[string]any, error)
}

// Publisher receives every audit record as it is written; used to stream
// events to dashboard websocket clients. Implementations must not block.
type Publisher interface {
	Publish(rec *models.EventLog)
}

// Request is one raw webhook delivery handed to the engine.
type Request struct {
	Source    models.Source
	Body      []byte
	Signature string
}

// Outcome is the engine's terminal result for one delivery. Err is set only
// when the dedupe store or the audit log was unreachable; handlers translate
// that into a 5xx so the provider retries once storage is back.
type Outcome struct {
	Decision  models.Decision
	Event     *models.Event
	DedupeKey string
	Response  map[string]any
	Reason    string
	Err       error
}

// Engine runs the webhook pipeline: normalize, fingerprint, dedupe-admit,
// forward. Every delivery terminates in exactly one decision and exactly one
// audit record.
type Engine struct {
	cache     dedupe.Cache
	logs      repository.EventLogRepository
	sender    OutboundSender
	publisher Publisher
	ttl       time.Duration
	log       *logger.Logger
}

func NewEngine(cache dedupe.Cache, logs repository.EventLogRepository, sender OutboundSender, ttl time.Duration, log *logger.Logger) *Engine {
	return &Engine{
		cache:  cache,
		logs:   logs,
		sender: sender,
		ttl:    ttl,
		log:    log,
	}
}

// SetPublisher attaches a live-stream publisher. Optional; safe to skip in
// tests.
func (e *Engine) SetPublisher(p Publisher) { e.publisher = p }

// Process runs one delivery through the pipeline and returns its terminal
// outcome. The returned Outcome is always usable even when Outcome.Err is
// set.
func (e *Engine) Process(ctx context.Context, req Request) Outcome {
	out, err := normalize.For(req.Source, req.Body)
	if err != nil {
		return e.finish(ctx, req, Outcome{
			Decision: models.DecisionRejectedInvalid,
			Reason:   "invalid",
		}, err)
	}
	if out.Ignored {
		return e.finish(ctx, req, Outcome{
			Decision: models.DecisionIgnored,
			Event:    out.Event,
			Reason:   out.Reason,
		}, nil)
	}

	ev := out.Event
	key := dedupe.Fingerprint(ev)
	log := e.log.WithSource(string(ev.Source)).WithChatID(ev.ChatID)

	// A message we ourselves pushed to the provider comes back through its
	// webhook as the sender's own message. The source-free echo key written
	// at send time identifies it without relying on the marker surviving the
	// provider round-trip.
	if ev.Source == models.SourceUnipile && ev.IsSender {
		seen, err := e.cache.Contains(ctx, dedupe.EchoKey(ev.ChatID, ev.Text))
		if err != nil {
			return e.finish(ctx, req, Outcome{
				Decision:  models.DecisionError,
				Event:     ev,
				DedupeKey: key,
			}, fmt.Errorf("dedupe store: %w", err))
		}
		if seen {
			log.Info("Suppressed own echo", "dedupeKey", key)
			return e.finish(ctx, req, Outcome{
				Decision:  models.DecisionSuppressedEcho,
				Event:     ev,
				DedupeKey: key,
			}, nil)
		}
	}

	result, err := e.cache.Admit(ctx, key, ev.ChatID, ev.Text, e.ttl)
	if err != nil {
		return e.finish(ctx, req, Outcome{
			Decision:  models.DecisionError,
			Event:     ev,
			DedupeKey: key,
		}, fmt.Errorf("dedupe store: %w", err))
	}
	if result == dedupe.Duplicate {
		log.Info("Suppressed duplicate delivery", "dedupeKey", key)
		return e.finish(ctx, req, Outcome{
			Decision:  models.DecisionSuppressedDuplicate,
			Event:     ev,
			DedupeKey: key,
		}, nil)
	}

	// Message text headed to the provider will echo back through its
	// webhook; record the echo key now so that delivery is recognized.
	if ev.Source == models.SourceChatwoot {
		if _, err := e.cache.Admit(ctx, dedupe.EchoKey(ev.ChatID, ev.Text), ev.ChatID, ev.Text, e.ttl); err != nil {
			log.Warn("Echo key admission failed", "error", err)
		}
	}

	start := time.Now()
	resp, err := e.sender.Forward(ctx, ev)
	metrics.ForwardLatency.WithLabelValues(string(ev.Source)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("Outbound send failed", "dedupeKey", key, "error", err)
		return e.finish(ctx, req, Outcome{
			Decision:  models.DecisionForwardFailed,
			Event:     ev,
			DedupeKey: key,
		}, err)
	}

	log.Info("Forwarded message", "dedupeKey", key, "duration", time.Since(start).String())
	return e.finish(ctx, req, Outcome{
		Decision:  models.DecisionForward,
		Event:     ev,
		DedupeKey: key,
		Response:  resp,
	}, nil)
}

// LogUnauthorized records a delivery rejected before the pipeline for a bad
// shared secret. Best effort: an audit failure here is logged but does not
// change the 401 the caller returns.
func (e *Engine) LogUnauthorized(ctx context.Context, source models.Source, body []byte, signature string) {
	rec := &models.EventLog{
		Source:    source,
		Decision:  models.DecisionRejectedUnauthorized,
		Payload:   rawPayload(body),
		Signature: signature,
	}
	metrics.Decisions.WithLabelValues(string(source), string(rec.Decision)).Inc()
	if err := e.logs.Append(ctx, rec); err != nil {
		e.log.Error("Audit append failed", "decision", rec.Decision, "error", err)
		return
	}
	e.publish(rec)
}

func (e *Engine) finish(ctx context.Context, req Request, out Outcome, cause error) Outcome {
	if cause != nil {
		out.Err = cause
	}
	rec := e.record(req, out, cause)
	metrics.Decisions.WithLabelValues(string(req.Source), string(out.Decision)).Inc()
	if err := e.logs.Append(ctx, rec); err != nil {
		e.log.Error("Audit append failed", "decision", out.Decision, "error", err)
		// The decision stands but the caller must surface a 5xx: a delivery
		// without an audit row would be invisible to operators.
		if out.Err == nil {
			out.Err = fmt.Errorf("audit log: %w", err)
			out.Decision = models.DecisionError
		}
		return out
	}
	e.publish(rec)
	return out
}

func (e *Engine) record(req Request, out Outcome, cause error) *models.EventLog {
	rec := &models.EventLog{
		Source:    req.Source,
		Decision:  out.Decision,
		DedupeKey: out.DedupeKey,
		Reason:    out.Reason,
		Payload:   rawPayload(req.Body),
		Signature: req.Signature,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if ev := out.Event; ev != nil {
		sender := ev.IsSender
		rec.ChatID = ev.ChatID
		rec.IsSender = &sender
		rec.MessageID = ev.MessageID
		rec.ProviderMessageID = ev.ProviderMessageID
		rec.NormalizedText = ev.Text
		rec.ParseMode = ev.ParseMode
	}
	if out.Response != nil {
		if data, err := json.Marshal(out.Response); err == nil {
			rec.Response = data
		}
	}
	return rec
}

func (e *Engine) publish(rec *models.EventLog) {
	if e.publisher != nil {
		e.publisher.Publish(rec)
	}
}

// rawPayload stores the verbatim body in the jsonb audit column. Bodies that
// are not valid JSON (form-urlencoded deliveries, truncated payloads) are
// stored as a JSON string so the insert cannot fail.
func rawPayload(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}
