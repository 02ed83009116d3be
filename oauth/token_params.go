package oauth

import (
	"context"
	"fmt"
	"strings"
)

// Capability failure messages. The baseline is always reported; the others
// are appended for each missing capability.
const (
	pkceBaselineMessage    = "PKCE requires a modern browser with encryption support running in a secure context."
	pkceHTTPSMessage       = "The current page is not being served with HTTPS protocol. PKCE requires secure HTTPS protocol."
	pkceTextEncoderMessage = "\"TextEncoder\" is not defined. To use PKCE, you may need to include a polyfill/shim for this browser."
)

// TokenParamsClient is what PrepareTokenParams needs from a client
type TokenParamsClient interface {
	DefaultTokenParams() (*TokenParams, error)
	Features() Features
	PKCE() PKCE
	GetWellKnown(ctx context.Context, authServerID string) (*WellKnown, error)
}

// PrepareTokenParams merges params over the client's defaults and, unless PKCE
// is disabled, secures them: response type forced to code, challenge method
// checked against the server, verifier generated when absent and the
// challenge computed from it.
//
// params is never modified and the result shares no memory with it. The
// discovery fetch is the only network call and happens after every local
// check has passed.
func PrepareTokenParams(ctx context.Context, client TokenParamsClient, params *TokenParams) (*TokenParams, error) {
	defaults, err := client.DefaultTokenParams()
	if err != nil {
		return nil, err
	}
	merged := mergeTokenParams(defaults, params.Clone())

	if !merged.PKCEEnabled() {
		return merged, nil
	}

	features := client.Features()
	if !features.IsPKCESupported() {
		return nil, &Error{
			Code:        "pkce_not_supported",
			Description: pkceUnsupportedMessage(features),
			Err:         ErrPKCENotSupported,
		}
	}

	if merged.CodeChallengeMethod == "" {
		merged.CodeChallengeMethod = DefaultCodeChallengeMethod
	}
	merged.ResponseType = []string{"code"}

	wk, err := client.GetWellKnown(ctx, "")
	if err != nil {
		return nil, err
	}
	if !wk.SupportsCodeChallengeMethod(merged.CodeChallengeMethod) {
		return nil, &Error{
			Code:        "invalid_code_challenge_method",
			Description: "Invalid code_challenge_method",
			Err:         ErrInvalidCodeChallengeMethod,
		}
	}

	pkce := client.PKCE()
	if merged.CodeVerifier == "" {
		verifier, err := pkce.GenerateVerifier()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code verifier: %w", err)
		}
		merged.CodeVerifier = verifier
	}
	challenge, err := pkce.ComputeChallenge(ctx, merged.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("failed to compute code challenge: %w", err)
	}

	out := merged.Clone()
	out.CodeChallenge = challenge
	return out, nil
}

func pkceUnsupportedMessage(f Features) string {
	lines := []string{pkceBaselineMessage}
	if !f.IsHTTPS() {
		lines = append(lines, pkceHTTPSMessage)
	}
	if !f.HasTextEncoder() {
		lines = append(lines, pkceTextEncoderMessage)
	}
	return strings.Join(lines, "\n")
}
