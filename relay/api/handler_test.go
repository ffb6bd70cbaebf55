package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatwoot-unipile-bridge/backend/pkg/logger"
	"chatwoot-unipile-bridge/backend/relay/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "hook-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *stubDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	deps := newStubDeps()
	log := logger.New(logger.DefaultConfig())
	engine := service.NewEngine(deps.cache, deps.logs, deps.sender, 2*time.Minute, log)

	r := gin.New()
	RegisterWebhookRoutes(r, NewWebhookHandler(engine, testSecret, 1<<20))
	return r, deps
}

func postWebhook(r *gin.Engine, path, body, secret string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const chatwootBody = `{
	"event": "message_created",
	"message_type": "outgoing",
	"content": "hello",
	"id": 1,
	"conversation": {"meta": {"sender": {"custom_attributes": {"chat_id": "chat-1"}}}}
}`

func TestWebhookRejectsBadSecret(t *testing.T) {
	r, deps := newTestRouter(t)

	w := postWebhook(r, "/webhook/chatwoot", chatwootBody, "wrong")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// The rejection itself is audited.
	require.Len(t, deps.logs.records, 1)
	assert.Equal(t, "rejected_unauthorized", string(deps.logs.records[0].Decision))
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	r, _ := newTestRouter(t)
	w := postWebhook(r, "/webhook/chatwoot", chatwootBody, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookForwardsChatwootMessage(t *testing.T) {
	r, deps := newTestRouter(t)

	w := postWebhook(r, "/webhook/chatwoot", chatwootBody, testSecret)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"decision":"forward"`)
	assert.Len(t, deps.sender.events, 1)
}

func TestWebhookDuplicateIsOK(t *testing.T) {
	r, _ := newTestRouter(t)

	first := postWebhook(r, "/webhook/chatwoot", chatwootBody, testSecret)
	second := postWebhook(r, "/webhook/chatwoot", chatwootBody, testSecret)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), `"decision":"suppressed_duplicate"`)
}

func TestWebhookInvalidPayloadIs400(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postWebhook(r, "/webhook/unipile", `{"event":"message_received"}`, testSecret)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"decision":"rejected_invalid"`)
}

func TestWebhookIgnoredEventIs200(t *testing.T) {
	r, deps := newTestRouter(t)

	w := postWebhook(r, "/webhook/unipile", `{"event":"message_read","chat_id":"c","message":"x"}`, testSecret)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"decision":"ignored"`)
	assert.Empty(t, deps.sender.events)
}

func TestWebhookForwardFailureIs502(t *testing.T) {
	r, deps := newTestRouter(t)
	deps.sender.fail()

	w := postWebhook(r, "/webhook/chatwoot", chatwootBody, testSecret)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"decision":"forward_failed"`)
}

func TestWebhookStorageFailureIs503(t *testing.T) {
	r, deps := newTestRouter(t)
	deps.cache.fail()

	w := postWebhook(r, "/webhook/chatwoot", chatwootBody, testSecret)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebhookCapturesSignatureHeader(t *testing.T) {
	r, deps := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/webhook/unipile",
		strings.NewReader(`{"event":"message_received","chat_id":"c1","message":"hi"}`))
	req.Header.Set("X-Webhook-Secret", testSecret)
	req.Header.Set("X-SIGNATURE", "sig-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, deps.logs.records)
	assert.Equal(t, "sig-abc", deps.logs.records[len(deps.logs.records)-1].Signature)
}
