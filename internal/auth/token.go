package auth

import (
	"fmt"
	"time"

	"github.com/JhostinAleck/asrs/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager mints and validates the HS256 bearer tokens. Tokens are
// stateless: validity is established entirely by signature and expiry, so the
// signing secret must be identical across issuance and validation. There is
// no revocation path; a compromised token stays valid until natural expiry.
type TokenManager struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// GenerateAccessToken creates a short-lived access token
func (tm *TokenManager) GenerateAccessToken(userID, username string) (string, error) {
	return tm.generate(models.TokenTypeAccess, userID, username, tm.accessTokenExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token
func (tm *TokenManager) GenerateRefreshToken(userID, username string) (string, error) {
	return tm.generate(models.TokenTypeRefresh, userID, username, tm.refreshTokenExpiry)
}

// GeneratePair mints the access and refresh tokens returned by login.
func (tm *TokenManager) GeneratePair(userID, username string) (*models.TokenPair, error) {
	access, err := tm.GenerateAccessToken(userID, username)
	if err != nil {
		return nil, err
	}

	refresh, err := tm.GenerateRefreshToken(userID, username)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (tm *TokenManager) generate(tokenType, userID, username string, expiry time.Duration) (string, error) {
	now := time.Now()

	claims := &models.TokenClaims{
		Type:     tokenType,
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
// Any structural failure maps to ErrTokenInvalid; callers never learn
// whether the signature or the expiry was the problem.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, models.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}

	if claims.Type == "" {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
