package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatwoot-unipile-bridge/backend/pkg/jwt"
	"chatwoot-unipile-bridge/backend/relay/models"
	"chatwoot-unipile-bridge/backend/relay/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubEventLogs struct {
	records    []models.EventLog
	lastFilter repository.EventLogFilter
}

func (s *stubEventLogs) Append(ctx context.Context, rec *models.EventLog) error {
	s.records = append(s.records, *rec)
	return nil
}

func (s *stubEventLogs) List(ctx context.Context, filter repository.EventLogFilter) ([]models.EventLog, error) {
	s.lastFilter = filter
	return s.records, nil
}

func (s *stubEventLogs) CountByDecision(ctx context.Context, filter repository.EventLogFilter) (map[models.Decision]int64, error) {
	s.lastFilter = filter
	counts := make(map[models.Decision]int64)
	for _, rec := range s.records {
		counts[rec.Decision]++
	}
	return counts, nil
}

const adminEmail = "ops@example.com"
const adminPassword = "s3cret-pass"

func newDashboardRouter(t *testing.T) (*gin.Engine, *stubEventLogs, *jwt.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	logs := &stubEventLogs{}
	jwtService := jwt.NewService("test-secret", time.Hour)
	handler := NewDashboardHandler(logs, jwtService, adminEmail, string(hash))

	r := gin.New()
	RegisterDashboardRoutes(r, handler, jwtService, nil)
	return r, logs, jwtService
}

func login(t *testing.T, r *gin.Engine, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(gin.H{"email": email, "password": password})
	req, _ := http.NewRequest(http.MethodPost, "/api/login", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesToken(t *testing.T) {
	r, _, jwtService := newDashboardRouter(t)

	w := login(t, r, adminEmail, adminPassword)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	claims, err := jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, claims.Email)
	assert.Equal(t, jwt.RoleAdmin, claims.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r, _, _ := newDashboardRouter(t)
	w := login(t, r, adminEmail, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	r, _, _ := newDashboardRouter(t)
	w := login(t, r, "other@example.com", adminPassword)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventsRequireAuth(t *testing.T) {
	r, _, _ := newDashboardRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventsListWithToken(t *testing.T) {
	r, logs, jwtService := newDashboardRouter(t)
	logs.records = []models.EventLog{
		{ID: 1, Decision: models.DecisionForward, ChatID: "chat-1"},
		{ID: 2, Decision: models.DecisionSuppressedDuplicate, ChatID: "chat-1"},
	}

	token, err := jwtService.GenerateToken(adminEmail, jwt.RoleAdmin)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/api/events?chat_id=chat-1&decision=forward&limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
	assert.Equal(t, "chat-1", logs.lastFilter.ChatID)
	assert.Equal(t, "forward", logs.lastFilter.Decision)
	assert.Equal(t, 10, logs.lastFilter.Limit)
}

func TestEventsRejectBadTimeFilter(t *testing.T) {
	r, _, jwtService := newDashboardRouter(t)
	token, _ := jwtService.GenerateToken(adminEmail, jwt.RoleAdmin)

	req, _ := http.NewRequest(http.MethodGet, "/api/events?from=yesterday", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsCountsByDecision(t *testing.T) {
	r, logs, jwtService := newDashboardRouter(t)
	logs.records = []models.EventLog{
		{Decision: models.DecisionForward},
		{Decision: models.DecisionForward},
		{Decision: models.DecisionSuppressedEcho},
	}
	token, _ := jwtService.GenerateToken(adminEmail, jwt.RoleAdmin)

	req, _ := http.NewRequest(http.MethodGet, "/api/events/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"forward":2`)
	assert.Contains(t, w.Body.String(), `"suppressed_echo":1`)
}

func TestExpiredTokenRejected(t *testing.T) {
	r, _, _ := newDashboardRouter(t)
	expired := jwt.NewService("test-secret", -time.Hour)
	token, err := expired.GenerateToken(adminEmail, jwt.RoleAdmin)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
