package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JhostinAleck/asrs/internal/auth"
	"github.com/JhostinAleck/asrs/internal/cache"
	"github.com/JhostinAleck/asrs/internal/models"
	pkgauth "github.com/JhostinAleck/asrs/pkg/auth"
	pkghttp "github.com/JhostinAleck/asrs/pkg/http"
	pkglogger "github.com/JhostinAleck/asrs/pkg/logger"
)

const (
	testPassword = "correct-horse9"
	testSecret   = "unit-test-secret-32-characters!!"
)

type fakeUserRepo struct {
	mu            sync.Mutex
	users         map[string]*models.User // by username
	failureCounts map[string]int          // by user ID
	resetCalls    int
	getErr        error
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{
		users:         make(map[string]*models.User),
		failureCounts: make(map[string]int),
	}
	for _, u := range users {
		repo.users[u.Username] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) RecordLoginFailure(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failureCounts[id]++
	return nil
}

func (r *fakeUserRepo) ResetLoginFailures(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCalls++
	r.failureCounts[id] = 0
	return nil
}

type fakeAttemptLog struct {
	mu       sync.Mutex
	attempts []*models.LoginAttempt
	err      error
}

func (l *fakeAttemptLog) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.attempts = append(l.attempts, attempt)
	return nil
}

func (l *fakeAttemptLog) rows() []*models.LoginAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*models.LoginAttempt(nil), l.attempts...)
}

type authFixture struct {
	service  *AuthService
	users    *fakeUserRepo
	attempts *fakeAttemptLog
	limiter  *LimiterService
	store    *cache.MemoryCounterStore
	tm       *auth.TokenManager
}

func newAuthFixture(t *testing.T, users ...*models.User) *authFixture {
	t.Helper()

	store := cache.NewMemoryCounterStore()
	limiter := NewLimiterService(store, LimiterConfig{
		MaxFailedAttempts: 5,
		Window:            5 * time.Minute,
	}, slog.Default())

	repo := newFakeUserRepo(users...)
	attempts := &fakeAttemptLog{}
	tm := auth.NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	timing := auth.NewTimingDelay(auth.TimingConfig{})

	service := NewAuthService(repo, attempts, limiter, tm, timing,
		slog.Default(), pkglogger.NewAuditLogger(slog.Default()))

	return &authFixture{
		service:  service,
		users:    repo,
		attempts: attempts,
		limiter:  limiter,
		store:    store,
		tm:       tm,
	}
}

func testUser(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(testPassword)
	require.NoError(t, err)
	return &models.User{
		ID:           "11111111-1111-1111-1111-111111111111",
		Username:     username,
		PasswordHash: hash,
	}
}

func testMeta() pkghttp.RequestMeta {
	return pkghttp.RequestMeta{IP: "10.0.0.1", UserAgent: "test-agent"}
}

func TestAuthService_Login_Success(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))

	pair, err := fx.service.Login(context.Background(), "alice", testPassword, testMeta())
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	claims, err := fx.tm.ValidateToken(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "alice", claims.Username)

	claims, err = fx.tm.ValidateToken(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)

	rows := fx.attempts.rows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Success)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "10.0.0.1", rows[0].IPAddress)
	assert.Equal(t, "test-agent", rows[0].UserAgent)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))

	pair, err := fx.service.Login(context.Background(), "alice", "wrong-password1", testMeta())
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	rows := fx.attempts.rows()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Success)

	count, err := fx.store.Get(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, 1, fx.users.failureCounts["11111111-1111-1111-1111-111111111111"])
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	fx := newAuthFixture(t)

	pair, err := fx.service.Login(context.Background(), "nobody", testPassword, testMeta())
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials,
		"unknown users must fail exactly like wrong passwords")

	// The attempted username is still logged
	rows := fx.attempts.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "nobody", rows[0].Username)
	assert.False(t, rows[0].Success)

	count, err := fx.store.Get(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_Login_BlockedAccount(t *testing.T) {
	user := testUser(t, "alice")
	user.IsBlocked = true
	fx := newAuthFixture(t, user)

	pair, err := fx.service.Login(context.Background(), "alice", testPassword, testMeta())
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Login_RateLimitedAfterFiveFailures(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := fx.service.Login(ctx, "alice", "wrong-password1", testMeta())
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	// The sixth attempt is rejected even with correct credentials
	pair, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, models.ErrRateLimited)

	// Rate-limited requests do not append to the attempt log
	assert.Len(t, fx.attempts.rows(), 5)
}

func TestAuthService_Login_OtherIPUnaffected(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := fx.service.Login(ctx, "alice", "wrong-password1", testMeta())
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	pair, err := fx.service.Login(ctx, "alice", testPassword,
		pkghttp.RequestMeta{IP: "10.0.0.2", UserAgent: "test-agent"})
	require.NoError(t, err)
	assert.NotNil(t, pair)
}

func TestAuthService_Login_WindowExpiryRestoresAccess(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	now := time.Now()
	fx.store.Now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		_, err := fx.service.Login(ctx, "alice", "wrong-password1", testMeta())
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	_, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	assert.ErrorIs(t, err, models.ErrRateLimited)

	now = now.Add(5*time.Minute + time.Second)

	pair, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	require.NoError(t, err)
	assert.NotNil(t, pair)
	assert.Equal(t, 1, fx.users.resetCalls)
}

func TestAuthService_Login_StoreUnavailableFailsClosed(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))

	storeErr := errors.New("connection refused")
	service := NewAuthService(fx.users, fx.attempts,
		newTestLimiter(&failingCounterStore{err: storeErr}),
		fx.tm, auth.NewTimingDelay(auth.TimingConfig{}),
		slog.Default(), pkglogger.NewAuditLogger(slog.Default()))

	pair, err := service.Login(context.Background(), "alice", testPassword, testMeta())
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Empty(t, fx.attempts.rows())
}

func TestAuthService_Login_AttemptLogFailure(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	fx.attempts.err = errors.New("insert failed")

	pair, err := fx.service.Login(context.Background(), "alice", testPassword, testMeta())
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_Login_ConcurrentFailures(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = fx.service.Login(ctx, "alice", "wrong-password1", testMeta())
		}()
	}
	wg.Wait()

	// No failure may be lost to a race
	count, err := fx.store.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	recorded := int64(len(fx.attempts.rows()))
	assert.Equal(t, count, recorded,
		"every counted failure must have an attempt row")
	assert.GreaterOrEqual(t, count, int64(5))
}

func TestAuthService_RefreshToken(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	pair, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	require.NoError(t, err)

	newPair, err := fx.service.RefreshToken(ctx, pair.Refresh)
	require.NoError(t, err)
	require.NotNil(t, newPair)

	claims, err := fx.tm.ValidateToken(newPair.Access)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "alice", claims.Username)
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	pair, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	require.NoError(t, err)

	newPair, err := fx.service.RefreshToken(ctx, pair.Access)
	assert.Nil(t, newPair)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestAuthService_RefreshToken_Invalid(t *testing.T) {
	fx := newAuthFixture(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		pair, err := fx.service.RefreshToken(context.Background(), token)
		assert.Nil(t, pair)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	}
}

func TestAuthService_Validate(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	pair, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	require.NoError(t, err)

	identity, err := fx.service.Validate(ctx, "Bearer "+pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", identity.UserID)
}

func TestAuthService_Validate_MissingHeader(t *testing.T) {
	fx := newAuthFixture(t)

	for _, header := range []string{"", "Bearer", "Basic dXNlcjpwYXNz", "bearer-without-space"} {
		identity, err := fx.service.Validate(context.Background(), header)
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, models.ErrTokenMissing, "header %q", header)
	}
}

func TestAuthService_Validate_InvalidToken(t *testing.T) {
	fx := newAuthFixture(t)

	identity, err := fx.service.Validate(context.Background(), "Bearer not-a-jwt")
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestAuthService_Validate_RejectsRefreshToken(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	pair, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	require.NoError(t, err)

	identity, err := fx.service.Validate(ctx, "Bearer "+pair.Refresh)
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestAuthService_Validate_DeletedUser(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))
	ctx := context.Background()

	pair, err := fx.service.Login(ctx, "alice", testPassword, testMeta())
	require.NoError(t, err)

	fx.users.mu.Lock()
	delete(fx.users.users, "alice")
	fx.users.mu.Unlock()

	identity, err := fx.service.Validate(ctx, "Bearer "+pair.Access)
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestAuthService_Validate_ExpiredToken(t *testing.T) {
	fx := newAuthFixture(t, testUser(t, "alice"))

	expired := auth.NewTokenManager(testSecret, -time.Minute, -time.Minute)
	pair, err := expired.GeneratePair("11111111-1111-1111-1111-111111111111", "alice")
	require.NoError(t, err)

	identity, err := fx.service.Validate(context.Background(), "Bearer "+pair.Access)
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}
