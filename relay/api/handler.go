package api

import (
	"crypto/subtle"
	"io"
	"net/http"

	"chatwoot-unipile-bridge/backend/relay/models"
	"chatwoot-unipile-bridge/backend/relay/service"

	"github.com/gin-gonic/gin"
)

// WebhookHandler terminates provider webhook deliveries and hands the bodies
// to the decision engine.
type WebhookHandler struct {
	engine      *service.Engine
	secret      string
	maxBodySize int64
}

func NewWebhookHandler(engine *service.Engine, secret string, maxBodySize int64) *WebhookHandler {
	return &WebhookHandler{engine: engine, secret: secret, maxBodySize: maxBodySize}
}

func (h *WebhookHandler) Chatwoot(c *gin.Context) {
	h.handle(c, models.SourceChatwoot)
}

func (h *WebhookHandler) Unipile(c *gin.Context) {
	h.handle(c, models.SourceUnipile)
}

func (h *WebhookHandler) handle(c *gin.Context, source models.Source) {
	reader := c.Request.Body
	if h.maxBodySize > 0 {
		reader = http.MaxBytesReader(c.Writer, reader, h.maxBodySize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return
	}

	signature := c.GetHeader("X-SIGNATURE")
	if !h.authorized(c) {
		h.engine.LogUnauthorized(c.Request.Context(), source, body, signature)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	out := h.engine.Process(c.Request.Context(), service.Request{
		Source:    source,
		Body:      body,
		Signature: signature,
	})
	c.JSON(statusFor(out), responseFor(out))
}

// authorized checks the shared webhook secret. An empty configured secret
// disables the check, matching local development setups without one.
func (h *WebhookHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return true
	}
	given := c.GetHeader("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) == 1
}

// statusFor maps a terminal decision to the HTTP status returned to the
// provider. Suppressions and ignores are 200 so the provider does not retry;
// storage failures are 503 so it does.
func statusFor(out service.Outcome) int {
	switch out.Decision {
	case models.DecisionForward, models.DecisionSuppressedDuplicate,
		models.DecisionSuppressedEcho, models.DecisionIgnored:
		return http.StatusOK
	case models.DecisionRejectedInvalid:
		return http.StatusBadRequest
	case models.DecisionForwardFailed:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func responseFor(out service.Outcome) gin.H {
	resp := gin.H{"decision": string(out.Decision)}
	if out.Reason != "" {
		resp["reason"] = out.Reason
	}
	if out.Err != nil {
		resp["error"] = out.Err.Error()
	}
	return resp
}
