package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims the backend places in its access tokens.
// The subject is the numeric user id rendered as a string.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// ParseAccessToken decodes a backend-issued token without verifying its
// signature and rejects it if it is malformed or expired at now. A token
// without an expiry is accepted.
func ParseAccessToken(tokenString string, now time.Time) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if exp != nil && !now.Before(exp.Time) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// IsTokenRejected reports whether err came from ParseAccessToken refusing
// a token.
func IsTokenRejected(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired)
}
