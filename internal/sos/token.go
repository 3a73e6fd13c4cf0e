package sos

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CheckToken rejects an empty credential or a JWT whose exp claim is before
// now. The signature is not verified; the signing key belongs to the remote
// service. Tokens that are not JWTs, or carry no exp, pass.
func CheckToken(token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("no API token configured: %w", ErrUnauthorized)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if now.After(exp.Time) {
		return fmt.Errorf("expired at %s: %w", exp.Time.UTC().Format(time.RFC3339), ErrTokenExpired)
	}
	return nil
}
