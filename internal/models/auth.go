package models

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the JWT payload for both access and refresh tokens.
type TokenClaims struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Identity is the validated subject of a bearer token, as reported to the
// gateway for header injection.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
