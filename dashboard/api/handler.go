package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"chatwoot-unipile-bridge/backend/pkg/jwt"
	"chatwoot-unipile-bridge/backend/relay/repository"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// DashboardHandler serves the operator API: login, audit-log queries, and
// decision statistics.
type DashboardHandler struct {
	logs              repository.EventLogRepository
	jwtService        *jwt.Service
	adminEmail        string
	adminPasswordHash string
}

func NewDashboardHandler(logs repository.EventLogRepository, jwtService *jwt.Service, adminEmail, adminPasswordHash string) *DashboardHandler {
	return &DashboardHandler{
		logs:              logs,
		jwtService:        jwtService,
		adminEmail:        adminEmail,
		adminPasswordHash: adminPasswordHash,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *DashboardHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.adminEmail == "" || h.adminPasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard login not configured"})
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.adminEmail)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(req.Password))
	if !emailOK || passErr != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.jwtService.GenerateToken(req.Email, jwt.RoleAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *DashboardHandler) ListEvents(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.logs.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": records, "count": len(records)})
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	counts, err := h.logs.CountByDecision(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": counts})
}

func filterFromQuery(c *gin.Context) (repository.EventLogFilter, error) {
	filter := repository.EventLogFilter{
		ChatID:   c.Query("chat_id"),
		Decision: c.Query("decision"),
		Source:   c.Query("source"),
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.From = ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.To = ts
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	return filter, nil
}
