package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/JhostinAleck/asrs/internal/models"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
)

// StatsServiceInterface defines the interface for security monitoring
type StatsServiceInterface interface {
	SecurityStats(ctx context.Context) (*models.SecurityStats, error)
	RecentAttempts(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
}

// SecurityHandler exposes the login attempt log to staff users.
type SecurityHandler struct {
	service StatsServiceInterface
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(service StatsServiceInterface) *SecurityHandler {
	return &SecurityHandler{service: service}
}

// Stats returns aggregate attempt counts. Requests rejected by the IP rate
// limiter are not represented in these figures.
// @Summary Login attempt statistics
// @Produce json
// @Success 200 {object} models.SecurityStats
// @Failure 403 {object} pkghttp.ErrorResponse
// @Router /auth/stats [get]
func (h *SecurityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SecurityStats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// AttemptsResponse wraps the attempt page for the monitoring endpoint
type AttemptsResponse struct {
	Attempts []*models.LoginAttempt `json:"attempts"`
	Count    int                    `json:"count"`
}

// Attempts returns the most recent login attempts, newest first.
// @Summary Recent login attempts
// @Param limit query int false "Page size"
// @Produce json
// @Success 200 {object} AttemptsResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Router /auth/attempts [get]
func (h *SecurityHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			pkghttp.WriteBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	attempts, err := h.service.RecentAttempts(r.Context(), limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	if attempts == nil {
		attempts = []*models.LoginAttempt{}
	}

	writeJSON(w, http.StatusOK, AttemptsResponse{
		Attempts: attempts,
		Count:    len(attempts),
	})
}
