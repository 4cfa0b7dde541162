package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JhostinAleck/asrs/internal/auth"
	"github.com/JhostinAleck/asrs/internal/models"
	"github.com/JhostinAleck/asrs/internal/services"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, username string) *http.Request {
	claims := &models.TokenClaims{
		UserID:   userID,
		Username: username,
		Type:     models.TokenTypeAccess,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, username, password string, meta pkghttp.RequestMeta) (*models.TokenPair, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	ValidateFunc     func(ctx context.Context, authorizationHeader string) (*models.Identity, error)
	RetryAfter       int
}

func (m *MockAuthService) Login(ctx context.Context, username, password string, meta pkghttp.RequestMeta) (*models.TokenPair, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, username, password, meta)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if m.RefreshTokenFunc == nil {
		return nil, models.ErrTokenInvalid
	}
	return m.RefreshTokenFunc(ctx, refreshToken)
}

func (m *MockAuthService) Validate(ctx context.Context, authorizationHeader string) (*models.Identity, error) {
	if m.ValidateFunc == nil {
		return nil, models.ErrTokenInvalid
	}
	return m.ValidateFunc(ctx, authorizationHeader)
}

func (m *MockAuthService) RetryAfterSeconds() int {
	if m.RetryAfter == 0 {
		return 300
	}
	return m.RetryAfter
}

// MockUserService implements UserServiceInterface and UserProfileService for testing
type MockUserService struct {
	CreateUserFunc  func(ctx context.Context, params services.CreateUserParams) (*models.User, error)
	GetUserByIDFunc func(ctx context.Context, id string) (*models.User, error)
	BlockUserFunc   func(ctx context.Context, id string, until *time.Time) error
	UnblockUserFunc func(ctx context.Context, id string) error
	ListUsersFunc   func(ctx context.Context, limit, offset int) ([]*models.User, error)
}

func (m *MockUserService) CreateUser(ctx context.Context, params services.CreateUserParams) (*models.User, error) {
	if m.CreateUserFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateUserFunc(ctx, params)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc == nil {
		return nil, models.ErrUserNotFound
	}
	return m.GetUserByIDFunc(ctx, id)
}

func (m *MockUserService) BlockUser(ctx context.Context, id string, until *time.Time) error {
	if m.BlockUserFunc == nil {
		return models.ErrUserNotFound
	}
	return m.BlockUserFunc(ctx, id, until)
}

func (m *MockUserService) UnblockUser(ctx context.Context, id string) error {
	if m.UnblockUserFunc == nil {
		return models.ErrUserNotFound
	}
	return m.UnblockUserFunc(ctx, id)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return nil, nil
	}
	return m.ListUsersFunc(ctx, limit, offset)
}

// MockStatsService implements StatsServiceInterface for testing
type MockStatsService struct {
	SecurityStatsFunc  func(ctx context.Context) (*models.SecurityStats, error)
	RecentAttemptsFunc func(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
}

func (m *MockStatsService) SecurityStats(ctx context.Context) (*models.SecurityStats, error) {
	if m.SecurityStatsFunc == nil {
		return &models.SecurityStats{}, nil
	}
	return m.SecurityStatsFunc(ctx)
}

func (m *MockStatsService) RecentAttempts(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	if m.RecentAttemptsFunc == nil {
		return nil, nil
	}
	return m.RecentAttemptsFunc(ctx, limit)
}

func testIPConfig() *pkghttp.IPConfig {
	return &pkghttp.IPConfig{}
}
