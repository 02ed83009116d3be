package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// PKCE generates verifiers and derives challenges from them.
type PKCE interface {
	GenerateVerifier() (string, error)
	ComputeChallenge(ctx context.Context, verifier string) (string, error)
}

// DefaultPKCE implements PKCE with golang.org/x/oauth2: 32 random bytes,
// base64url encoded, and S256 challenges.
type DefaultPKCE struct{}

// GenerateVerifier returns a 43 character verifier
func (DefaultPKCE) GenerateVerifier() (string, error) {
	return oauth2.GenerateVerifier(), nil
}

// ComputeChallenge returns base64url(SHA-256(verifier)) without padding,
// whichever challenge method was negotiated
func (DefaultPKCE) ComputeChallenge(_ context.Context, verifier string) (string, error) {
	if err := ValidateVerifier(verifier); err != nil {
		return "", err
	}
	return oauth2.S256ChallengeFromVerifier(verifier), nil
}

// ValidateVerifier checks length (43-128) and the unreserved character set
func ValidateVerifier(verifier string) error {
	if n := len(verifier); n < 43 || n > 128 {
		return fmt.Errorf("code verifier must be 43-128 characters, got %d", n)
	}
	for _, r := range verifier {
		if !isUnreserved(r) {
			return fmt.Errorf("code verifier contains invalid character %q", r)
		}
	}
	return nil
}

func isUnreserved(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '.', r == '_', r == '~':
		return true
	}
	return false
}

// ValidatePKCEChallenge validates that a verifier matches a challenge
func ValidatePKCEChallenge(verifier, challenge, method string) bool {
	switch method {
	case "S256":
		h := sha256.Sum256([]byte(verifier))
		return challenge == base64.RawURLEncoding.EncodeToString(h[:])
	case "plain":
		return verifier == challenge
	default:
		return false
	}
}
