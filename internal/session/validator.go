package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validator decides locally whether a bearer token is still usable. It only
// reads the token's payload; the header and signature are the server's concern.
type Validator struct {
	// Now defaults to time.Now
	Now func() time.Time
}

// NewValidator creates a validator using the wall clock
func NewValidator() *Validator {
	return &Validator{Now: time.Now}
}

// IsValid reports whether token is well-formed and not yet expired. Tokens
// without an exp claim never expire. Any decoding failure means invalid.
func (v *Validator) IsValid(token string) bool {
	claims, ok := payloadClaims(token)
	if !ok {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}

	return v.now().Before(exp.Time)
}

// ExpiresAt returns the token's exp claim, if it has a readable one
func (v *Validator) ExpiresAt(token string) (time.Time, bool) {
	claims, ok := payloadClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (v *Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

// payloadClaims decodes the second dot-separated segment as a JSON object.
// At least three segments are required.
func payloadClaims(token string) (jwt.MapClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 3 {
		return nil, false
	}

	raw, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, false
	}
	return claims, true
}
