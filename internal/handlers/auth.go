package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JhostinAleck/asrs/internal/auth"
	"github.com/JhostinAleck/asrs/internal/models"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string, meta pkghttp.RequestMeta) (*models.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Validate(ctx context.Context, authorizationHeader string) (*models.Identity, error)
	RetryAfterSeconds() int
}

// UserProfileService looks up the account behind an authenticated request
type UserProfileService interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	profiles UserProfileService
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, profiles UserProfileService, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		profiles: profiles,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=150"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ProfileResponse is the authenticated user's own view of their account
type ProfileResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsStaff   bool   `json:"is_staff"`
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	meta := pkghttp.NewRequestMeta(r, h.ipConfig)

	pair, err := h.service.Login(r.Context(), req.Username, req.Password, meta)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRateLimited):
			pkghttp.WriteRateLimited(w,
				"Too many failed login attempts. Please try again later.",
				h.service.RetryAfterSeconds())
		case errors.Is(err, models.ErrInvalidCredentials):
			// Identical response for unknown users, bad passwords and
			// blocked accounts to prevent user enumeration
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrStoreUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Accept json
// @Param request body RefreshTokenRequest true "Refresh token request"
// @Produce json
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pair, err := h.service.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrUserNotFound):
			pkghttp.WriteUnauthorized(w, "Invalid refresh token")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// ValidateResponse reports the outcome of a token check to the gateway
type ValidateResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ValidateErrorResponse is the failure body for token checks. Unlike the
// service-wide error envelope it carries an explicit valid flag, which the
// gateway keys on.
type ValidateErrorResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
}

func writeValidateError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ValidateErrorResponse{Valid: false, Error: message})
}

// Validate checks the bearer token for the gateway. On success the asserted
// username travels back in both the X-User header, which nginx copies onto
// the proxied request, and the JSON body.
// @Summary Validate access token
// @Produce json
// @Success 200 {object} ValidateResponse
// @Failure 401 {object} ValidateErrorResponse
// @Router /auth/validate [get]
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.Validate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTokenMissing):
			writeValidateError(w, http.StatusUnauthorized, "Authorization header missing or malformed")
		case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrUserNotFound):
			writeValidateError(w, http.StatusUnauthorized, "Invalid or expired token")
		default:
			writeValidateError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	w.Header().Set("X-User", identity.Username)
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    true,
		UserID:   identity.UserID,
		Username: identity.Username,
	})
}

// Profile returns the authenticated user's own account details.
// @Summary Current user profile
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.profiles.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsStaff:   user.IsStaff,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
