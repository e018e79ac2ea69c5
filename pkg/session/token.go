package session

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenExpiry returns the exp claim of a JWT bearer token. The signature is
// not verified; the backend remains the authority on token validity. ok is
// false for opaque tokens or tokens without exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	if token == "" {
		return time.Time{}, false
	}
	parser := jwt.Parser{}
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
