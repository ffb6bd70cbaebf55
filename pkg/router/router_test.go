package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORSMiddlewareShortCircuitsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware())
	r.POST("/webhook/chatwoot", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"decision": "forward"})
	})

	req, _ := http.NewRequest(http.MethodOptions, "/webhook/chatwoot", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dashboard.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Webhook-Secret")
}

func TestCORSMiddlewarePassesRequestsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware())
	r.POST("/webhook/unipile", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"decision": "ignored"})
	})

	req, _ := http.NewRequest(http.MethodPost, "/webhook/unipile", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}
