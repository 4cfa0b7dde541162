package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JhostinAleck/asrs/internal/models"
	"github.com/JhostinAleck/asrs/internal/services"
	pkgauth "github.com/JhostinAleck/asrs/pkg/auth"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
)

// UserServiceInterface defines the interface for account management
type UserServiceInterface interface {
	CreateUser(ctx context.Context, params services.CreateUserParams) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	BlockUser(ctx context.Context, id string, until *time.Time) error
	UnblockUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// UserHandler handles staff-only account management requests.
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// CreateUserRequest represents the request body for account provisioning
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=1,max=150"`
	Password  string `json:"password" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" validate:"omitempty,max=150"`
	IsStaff   bool   `json:"is_staff"`
}

// BlockUserRequest represents the request body for blocking an account
type BlockUserRequest struct {
	BlockedUntil *time.Time `json:"blocked_until"`
}

// UserResponse is the staff-facing account view. Password hashes and failure
// counters stay server-side.
type UserResponse struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	IsStaff      bool       `json:"is_staff"`
	IsBlocked    bool       `json:"is_blocked"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsStaff:      u.IsStaff,
		IsBlocked:    u.IsBlocked,
		BlockedUntil: u.BlockedUntil,
		CreatedAt:    u.CreatedAt,
	}
}

// CreateUser provisions a new account.
// @Summary Create user
// @Accept json
// @Param request body CreateUserRequest true "Create user request"
// @Produce json
// @Success 201 {object} UserResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), services.CreateUserParams{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsStaff:   req.IsStaff,
	})
	if err != nil {
		var verr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Username already taken")
		case errors.As(err, &verr):
			pkghttp.WriteBadRequest(w, verr.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// GetUser returns a single account.
// @Summary Get user
// @Param id path string true "User ID"
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// BlockUser marks an account blocked.
// @Summary Block user
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/{id}/block [post]
func (h *UserHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req BlockUserRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	if err := h.service.BlockUser(r.Context(), id, req.BlockedUntil); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnblockUser clears the blocked state on an account.
// @Summary Unblock user
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/{id}/unblock [post]
func (h *UserHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.UnblockUser(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsersResponse wraps the user page
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// ListUsers returns a page of accounts.
// @Summary List users
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Produce json
// @Success 200 {object} ListUsersResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := ListUsersResponse{Users: make([]UserResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	resp.Count = len(resp.Users)

	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
