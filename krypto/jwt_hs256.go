package krypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidEnvelope is returned when a signed envelope fails verification.
var ErrInvalidEnvelope = errors.New("invalid signed envelope")

// envelopeClaims carries an opaque JSON payload inside an HS256 JWT.
type envelopeClaims struct {
	Data json.RawMessage `json:"dat"`
	jwt.RegisteredClaims
}

// SignHS256Envelope wraps a JSON payload in an HS256-signed JWT. A zero ttl
// produces an envelope without expiry.
func SignHS256Envelope(payload []byte, key []byte, ttl time.Duration) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("signing key cannot be empty")
	}
	if !json.Valid(payload) {
		return "", fmt.Errorf("envelope payload must be valid JSON")
	}

	now := time.Now()
	claims := envelopeClaims{
		Data: json.RawMessage(payload),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseHS256Envelope verifies an envelope produced by SignHS256Envelope and
// returns its payload.
func ParseHS256Envelope(token string, key []byte) ([]byte, error) {
	claims := &envelopeClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidEnvelope
	}
	return claims.Data, nil
}
