package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/JhostinAleck/asrs/internal/auth"
	"github.com/JhostinAleck/asrs/internal/models"
	pkgauth "github.com/JhostinAleck/asrs/pkg/auth"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
	pkglogger "github.com/JhostinAleck/asrs/pkg/logger"
)

// UserRepository defines the credential store operations used by the login flow
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	RecordLoginFailure(ctx context.Context, id string, at time.Time) error
	ResetLoginFailures(ctx context.Context, id string) error
}

// LoginAttemptRecorder appends to the login attempt log
type LoginAttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// AttemptLimiter gates logins per client IP before credentials are checked
type AttemptLimiter interface {
	Check(ctx context.Context, ip string) (bool, error)
	RecordFailure(ctx context.Context, ip string) error
	RetryAfterSeconds() int
}

// AuthService implements the login protection and token validation flow.
type AuthService struct {
	users    UserRepository
	attempts LoginAttemptRecorder
	limiter  AttemptLimiter
	tm       *auth.TokenManager
	timing   *auth.TimingDelay
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	attempts LoginAttemptRecorder,
	limiter AttemptLimiter,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		users:    users,
		attempts: attempts,
		limiter:  limiter,
		tm:       tm,
		timing:   timing,
		logger:   logger,
		audit:    audit,
	}
}

// RetryAfterSeconds exposes the limiter's retry hint for the HTTP boundary.
func (s *AuthService) RetryAfterSeconds() int {
	return s.limiter.RetryAfterSeconds()
}

// Login verifies credentials and mints a token pair. The attempt limiter runs
// first: a blocked IP is rejected before the credential store is touched and
// without a log row (rate-limited requests are deliberately absent from
// login_attempts; see the stats endpoint caveats). Every other call appends
// exactly one LoginAttempt row. Unknown-username and wrong-password failures
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string, meta pkghttp.RequestMeta) (*models.TokenPair, error) {
	username = strings.TrimSpace(username)

	allowed, err := s.limiter.Check(ctx, meta.IP)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rate_limited",
			Username:      username,
			IPAddress:     meta.IP,
			UserAgent:     meta.UserAgent,
			FailureReason: "rate_limit_exceeded",
			Success:       false,
		})
		return nil, models.ErrRateLimited
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get user by username",
			slog.String("ip_address", meta.IP),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user == nil || !user.CanAuthenticate(time.Now()) ||
		pkgauth.ComparePassword(user.PasswordHash, password) != nil {
		return nil, s.loginFailed(ctx, username, user, meta)
	}

	if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
		// Bookkeeping only; the login still succeeds
		s.logger.Error("failed to reset failure counters",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	pair, err := s.tm.GeneratePair(user.ID, user.Username)
	if err != nil {
		s.logger.Error("failed to generate tokens",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.recordAttempt(ctx, username, meta, true); err != nil {
		return nil, err
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return pair, nil
}

// loginFailed handles every credential failure: unknown user, wrong password,
// or blocked account. The IP counter and the attempt log both record the
// submitted username so attempted identities stay visible forensically.
func (s *AuthService) loginFailed(ctx context.Context, username string, user *models.User, meta pkghttp.RequestMeta) error {
	if err := s.limiter.RecordFailure(ctx, meta.IP); err != nil {
		return err
	}

	if user != nil {
		if err := s.users.RecordLoginFailure(ctx, user.ID, time.Now()); err != nil {
			s.logger.Error("failed to record user login failure",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		}
	}

	if err := s.recordAttempt(ctx, username, meta, false); err != nil {
		return err
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Username:      username,
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
		FailureReason: "invalid_credentials",
		Success:       false,
	})

	s.timing.WaitOnFailure()
	return models.ErrInvalidCredentials
}

func (s *AuthService) recordAttempt(ctx context.Context, username string, meta pkghttp.RequestMeta, success bool) error {
	attempt := &models.LoginAttempt{
		Username:    username,
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
		Success:     success,
		AttemptTime: time.Now(),
	}

	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("username", username),
			slog.String("ip_address", meta.IP),
			slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// RefreshToken mints a new token pair from a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrTokenInvalid
	}

	claims, err := s.tm.ValidateToken(refreshToken)
	if err != nil {
		return nil, models.ErrTokenInvalid
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user for token refresh",
			slog.String("user_id", claims.UserID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.CanAuthenticate(time.Now()) {
		return nil, models.ErrTokenInvalid
	}

	pair, err := s.tm.GeneratePair(user.ID, user.Username)
	if err != nil {
		s.logger.Error("failed to generate tokens",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return pair, nil
}

// Validate checks a bearer token on behalf of the gateway and returns the
// identity it asserts. The token must be structurally valid, unexpired, of
// access type, and reference an existing account.
func (s *AuthService) Validate(ctx context.Context, authorizationHeader string) (*models.Identity, error) {
	tokenString, err := auth.BearerToken(authorizationHeader)
	if err != nil {
		return nil, models.ErrTokenMissing
	}

	claims, err := s.tm.ValidateToken(tokenString)
	if err != nil {
		return nil, models.ErrTokenInvalid
	}

	if claims.Type != models.TokenTypeAccess {
		return nil, models.ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("token valid but user not found", slog.String("user_id", claims.UserID))
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user for token validation",
			slog.String("user_id", claims.UserID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token validated", slog.String("username", user.Username))

	return &models.Identity{UserID: user.ID, Username: user.Username}, nil
}
