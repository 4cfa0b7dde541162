package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/JhostinAleck/asrs/internal/models"
	"github.com/JhostinAleck/asrs/internal/services"
	pkgauth "github.com/JhostinAleck/asrs/pkg/auth"
)

func TestUserHandler_CreateUser(t *testing.T) {
	svc := &MockUserService{
		CreateUserFunc: func(ctx context.Context, params services.CreateUserParams) (*models.User, error) {
			assert.Equal(t, "alice", params.Username)
			assert.True(t, params.IsStaff)
			return &models.User{
				ID:       "user-1",
				Username: params.Username,
				Email:    params.Email,
				IsStaff:  params.IsStaff,
			}, nil
		},
	}
	handler := NewUserHandler(svc)

	req := NewTestRequest(t, http.MethodPost, "/users", CreateUserRequest{
		Username: "alice",
		Password: "sturdy-pass1",
		Email:    "alice@example.com",
		IsStaff:  true,
	})
	w := httptest.NewRecorder()
	handler.CreateUser(w, req)

	var resp UserResponse
	AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "user-1", resp.ID)
	assert.Equal(t, "alice", resp.Username)
	assert.True(t, resp.IsStaff)
}

func TestUserHandler_CreateUser_Conflict(t *testing.T) {
	svc := &MockUserService{
		CreateUserFunc: func(ctx context.Context, params services.CreateUserParams) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}
	handler := NewUserHandler(svc)

	req := NewTestRequest(t, http.MethodPost, "/users", CreateUserRequest{
		Username: "alice",
		Password: "sturdy-pass1",
	})
	w := httptest.NewRecorder()
	handler.CreateUser(w, req)

	AssertErrorResponse(t, w, http.StatusConflict, "conflict")
}

func TestUserHandler_CreateUser_WeakPassword(t *testing.T) {
	svc := &MockUserService{
		CreateUserFunc: func(ctx context.Context, params services.CreateUserParams) (*models.User, error) {
			return nil, &pkgauth.PasswordValidationError{Errors: []string{"too short"}}
		},
	}
	handler := NewUserHandler(svc)

	req := NewTestRequest(t, http.MethodPost, "/users", CreateUserRequest{
		Username: "alice",
		Password: "weak",
	})
	w := httptest.NewRecorder()
	handler.CreateUser(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestUserHandler_CreateUser_InvalidBody(t *testing.T) {
	handler := NewUserHandler(&MockUserService{})

	req := NewTestRequest(t, http.MethodPost, "/users", CreateUserRequest{
		Username: "alice",
		Password: "sturdy-pass1",
		Email:    "not-an-email",
	})
	w := httptest.NewRecorder()
	handler.CreateUser(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUserHandler_GetUser(t *testing.T) {
	svc := &MockUserService{
		GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			assert.Equal(t, "user-1", id)
			return &models.User{ID: "user-1", Username: "alice"}, nil
		},
	}
	handler := NewUserHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/users/user-1", nil), "id", "user-1")
	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	var resp UserResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "alice", resp.Username)
}

func TestUserHandler_GetUser_NotFound(t *testing.T) {
	handler := NewUserHandler(&MockUserService{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/users/missing", nil), "id", "missing")
	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

func TestUserHandler_BlockUnblock(t *testing.T) {
	var blockedID string
	var blockedUntil *time.Time
	svc := &MockUserService{
		BlockUserFunc: func(ctx context.Context, id string, until *time.Time) error {
			blockedID = id
			blockedUntil = until
			return nil
		},
		UnblockUserFunc: func(ctx context.Context, id string) error {
			return nil
		},
	}
	handler := NewUserHandler(svc)

	until := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	req := withURLParam(
		NewTestRequest(t, http.MethodPost, "/users/user-1/block", BlockUserRequest{BlockedUntil: &until}),
		"id", "user-1")
	w := httptest.NewRecorder()
	handler.BlockUser(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "user-1", blockedID)
	if assert.NotNil(t, blockedUntil) {
		assert.True(t, until.Equal(*blockedUntil))
	}

	req = withURLParam(httptest.NewRequest(http.MethodPost, "/users/user-1/unblock", nil), "id", "user-1")
	w = httptest.NewRecorder()
	handler.UnblockUser(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserHandler_ListUsers(t *testing.T) {
	svc := &MockUserService{
		ListUsersFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 5, offset)
			return []*models.User{
				{ID: "user-1", Username: "alice"},
				{ID: "user-2", Username: "bob"},
			}, nil
		},
	}
	handler := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/users?limit=10&offset=5", nil)
	w := httptest.NewRecorder()
	handler.ListUsers(w, req)

	var resp ListUsersResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "bob", resp.Users[1].Username)
}
