package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrNoExpiry       = errors.New("token has no expiration claim")
)

// Claims is the payload segment of a dot-delimited access token.
type Claims struct {
	jwt.RegisteredClaims
}

var claimsParser = jwt.NewParser()

// DecodeClaims reads the claims without verifying the signature.
// The client never holds the signing key, so the claims are only used as hints (expiry).
func DecodeClaims(token string) (Claims, error) {
	if parts := strings.Count(token, ".") + 1; parts != 3 {
		return Claims{}, fmt.Errorf("%w: got %d segments", ErrMalformedToken, parts)
	}

	var claims Claims
	_, _, err := claimsParser.ParseUnverified(token, &claims)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	return claims, nil
}

// ExpiresAt returns the exp claim of the token.
func ExpiresAt(token string) (time.Time, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}

	return claims.ExpiresAt.Time, nil
}

// isExpired fails closed: a token whose expiry cannot be determined is expired.
func isExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}

	expiresAt, err := ExpiresAt(token)
	if err != nil {
		return true
	}

	return expiresAt.Before(now)
}
