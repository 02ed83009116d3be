package oauth_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/gobeaver/beaver-auth/oauth"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestPrepareTokenParams_PKCEDisabled(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	client := newTestClient(t, map[string]any{
		"issuer":           "http://example",
		"features":         nil,
		"wellKnownFetcher": fetcher,
	})

	got, err := client.PrepareTokenParams(context.Background(), &oauth.TokenParams{PKCE: boolPtr(false)})
	require.NoError(t, err)

	assert.Equal(t, int32(0), fetcher.calls.Load(), "discovery must not be fetched")
	require.NotNil(t, got.PKCE)
	assert.False(t, *got.PKCE)
	assert.Equal(t, []string{"token", "id_token"}, got.ResponseType)
	assert.Equal(t, []string{"openid", "email"}, got.Scopes)
	assert.Equal(t, "test-client", got.ClientID)
	assert.Len(t, got.State, 64)
	assert.Len(t, got.Nonce, 64)
	assert.Empty(t, got.CodeVerifier)
	assert.Empty(t, got.CodeChallenge)
}

func TestPrepareTokenParams_PKCEDisabledByOptions(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	client := newTestClient(t, map[string]any{
		"pkce":             false,
		"features":         oauth.StaticFeatures{},
		"wellKnownFetcher": fetcher,
	})

	got, err := client.PrepareTokenParams(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), fetcher.calls.Load())
	assert.Empty(t, got.CodeChallenge)
}

func TestPrepareTokenParams_GeneratesChallenge(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	client := newTestClient(t, map[string]any{"wellKnownFetcher": fetcher})

	got, err := client.PrepareTokenParams(context.Background(), &oauth.TokenParams{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, []string{""}, fetcher.ids, "issuer discovery document")
	assert.Equal(t, []string{"code"}, got.ResponseType)
	assert.Equal(t, "S256", got.CodeChallengeMethod)
	assert.Len(t, got.CodeVerifier, 43)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(got.CodeVerifier), got.CodeChallenge)
	assert.True(t, oauth.ValidatePKCEChallenge(got.CodeVerifier, got.CodeChallenge, "S256"))
}

func TestPrepareTokenParams_UnsupportedMethod(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	pkce := &countingPKCE{}
	client := newTestClient(t, map[string]any{
		"wellKnownFetcher": fetcher,
		"pkceCrypto":       pkce,
	})

	got, err := client.PrepareTokenParams(context.Background(), &oauth.TokenParams{CodeChallengeMethod: "plain"})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, oauth.ErrInvalidCodeChallengeMethod)

	var oauthErr *oauth.Error
	require.ErrorAs(t, err, &oauthErr)
	assert.Equal(t, "invalid_code_challenge_method", oauthErr.Code)
	assert.Equal(t, "Invalid code_challenge_method", oauthErr.Description)
	assert.False(t, oauth.IsRetryable(err))

	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, int32(0), pkce.generated.Load(), "no verifier on a rejected method")
	assert.Equal(t, int32(0), pkce.computed.Load(), "no challenge on a rejected method")
}

func TestPrepareTokenParams_NoAdvertisedMethods(t *testing.T) {
	fetcher := &countingFetcher{}
	client := newTestClient(t, map[string]any{"wellKnownFetcher": fetcher})

	_, err := client.PrepareTokenParams(context.Background(), nil)
	assert.ErrorIs(t, err, oauth.ErrInvalidCodeChallengeMethod)
}

func TestPrepareTokenParams_UnsupportedEnvironment(t *testing.T) {
	tests := []struct {
		name            string
		features        oauth.StaticFeatures
		wantHTTPS       bool
		wantTextEncoder bool
	}{
		{
			name:      "plain http",
			features:  oauth.StaticFeatures{TextEncoder: true, Crypto: true},
			wantHTTPS: true,
		},
		{
			name:            "localhost without text encoder",
			features:        oauth.StaticFeatures{SecureContext: true, Crypto: true},
			wantHTTPS:       true,
			wantTextEncoder: true,
		},
		{
			name:     "https without crypto",
			features: oauth.StaticFeatures{SecureContext: true, HTTPS: true, TextEncoder: true},
		},
		{
			name:            "https without text encoder",
			features:        oauth.StaticFeatures{SecureContext: true, HTTPS: true, Crypto: true},
			wantTextEncoder: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &countingFetcher{methods: []string{"S256"}}
			client := newTestClient(t, map[string]any{
				"features":         tt.features,
				"wellKnownFetcher": fetcher,
			})

			got, err := client.PrepareTokenParams(context.Background(), &oauth.TokenParams{})
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, oauth.ErrPKCENotSupported)
			assert.Equal(t, int32(0), fetcher.calls.Load(), "discovery must not be fetched")
			assert.False(t, oauth.IsRetryable(err))

			var oauthErr *oauth.Error
			require.ErrorAs(t, err, &oauthErr)
			assert.Equal(t, "pkce_not_supported", oauthErr.Code)

			msg := oauthErr.Description
			assert.Contains(t, msg, "PKCE requires a modern browser with encryption support running in a secure context.")
			assert.Equal(t, tt.wantHTTPS, strings.Contains(msg, "HTTPS protocol"), msg)
			assert.Equal(t, tt.wantTextEncoder, strings.Contains(msg, "TextEncoder"), msg)
		})
	}
}

func TestPrepareTokenParams_CallerVerifier(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	pkce := &countingPKCE{}
	client := newTestClient(t, map[string]any{
		"wellKnownFetcher": fetcher,
		"pkceCrypto":       pkce,
	})

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	got, err := client.PrepareTokenParams(context.Background(), &oauth.TokenParams{CodeVerifier: verifier})
	require.NoError(t, err)

	assert.Equal(t, int32(1), fetcher.calls.Load(), "method is validated even with a supplied verifier")
	assert.Equal(t, int32(0), pkce.generated.Load())
	assert.Equal(t, verifier, got.CodeVerifier)
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", got.CodeChallenge)
}

func TestPrepareTokenParams_PlainAdvertised(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256", "plain"}}
	client := newTestClient(t, map[string]any{
		"wellKnownFetcher":    fetcher,
		"codeChallengeMethod": "plain",
	})

	got, err := client.PrepareTokenParams(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", got.CodeChallengeMethod)

	// The default PKCE collaborator always derives an S256 challenge; the
	// advertised method is validated but does not change the digest.
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(got.CodeVerifier), got.CodeChallenge)
	assert.True(t, oauth.ValidatePKCEChallenge(got.CodeVerifier, got.CodeChallenge, "S256"))
	assert.False(t, oauth.ValidatePKCEChallenge(got.CodeVerifier, got.CodeChallenge, "plain"))
}

func TestPrepareTokenParams_ForcesCodeResponseType(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	client := newTestClient(t, map[string]any{"wellKnownFetcher": fetcher})

	got, err := client.PrepareTokenParams(context.Background(), &oauth.TokenParams{
		ResponseType: []string{"token", "id_token"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, got.ResponseType)
}

func TestPrepareTokenParams_Precedence(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	client := newTestClient(t, map[string]any{
		"wellKnownFetcher": fetcher,
		"redirectUri":      "https://app.example.com/callback",
		"scopes":           "openid profile",
		"state":            "pinned-state",
	})

	got, err := client.PrepareTokenParams(context.Background(), &oauth.TokenParams{
		ClientID: "override-client",
		Extra:    map[string]string{"audience": "api"},
	})
	require.NoError(t, err)

	assert.Equal(t, "override-client", got.ClientID)
	assert.Equal(t, "https://app.example.com/callback", got.RedirectURI)
	assert.Equal(t, []string{"openid", "profile"}, got.Scopes)
	assert.Equal(t, "pinned-state", got.State)
	assert.Equal(t, "api", got.Extra["audience"])
}

func TestPrepareTokenParams_Isolation(t *testing.T) {
	fetcher := &countingFetcher{methods: []string{"S256"}}
	client := newTestClient(t, map[string]any{"wellKnownFetcher": fetcher})

	input := &oauth.TokenParams{
		Scopes: []string{"openid", "offline_access"},
		MaxAge: intPtr(300),
		Extra:  map[string]string{"audience": "api"},
	}

	got, err := client.PrepareTokenParams(context.Background(), input)
	require.NoError(t, err)

	assert.Empty(t, input.ResponseType, "input must not be modified")
	assert.Empty(t, input.CodeVerifier, "input must not be modified")
	assert.Empty(t, input.CodeChallenge, "input must not be modified")

	input.Scopes[0] = "mutated"
	*input.MaxAge = 0
	input.Extra["audience"] = "mutated"

	assert.Equal(t, []string{"openid", "offline_access"}, got.Scopes)
	assert.Equal(t, 300, *got.MaxAge)
	assert.Equal(t, "api", got.Extra["audience"])
}

func TestPrepareTokenParams_FetchError(t *testing.T) {
	fetcher := &countingFetcher{err: fmt.Errorf("%w: connection refused", oauth.ErrNetworkError)}
	pkce := &countingPKCE{}
	client := newTestClient(t, map[string]any{
		"wellKnownFetcher": fetcher,
		"pkceCrypto":       pkce,
	})

	got, err := client.PrepareTokenParams(context.Background(), nil)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, oauth.ErrNetworkError)
	assert.True(t, oauth.IsRetryable(err))
	assert.Equal(t, int32(0), pkce.computed.Load())
}

// stubTokenParamsClient drives the pipeline without a composed client
type stubTokenParamsClient struct {
	defaults    *oauth.TokenParams
	defaultsErr error
	features    oauth.Features
	fetcher     *countingFetcher
}

func (s *stubTokenParamsClient) DefaultTokenParams() (*oauth.TokenParams, error) {
	return s.defaults.Clone(), s.defaultsErr
}
func (s *stubTokenParamsClient) Features() oauth.Features { return s.features }
func (s *stubTokenParamsClient) PKCE() oauth.PKCE         { return oauth.DefaultPKCE{} }
func (s *stubTokenParamsClient) GetWellKnown(ctx context.Context, id string) (*oauth.WellKnown, error) {
	return s.fetcher.GetWellKnown(ctx, id)
}

func TestPrepareTokenParams_StubClient(t *testing.T) {
	stub := &stubTokenParamsClient{
		defaults: &oauth.TokenParams{ClientID: "stub", State: "s", ResponseType: []string{"token"}},
		features: secureFeatures,
		fetcher:  &countingFetcher{methods: []string{"S256"}},
	}

	got, err := oauth.PrepareTokenParams(context.Background(), stub, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", got.ClientID)
	assert.Equal(t, []string{"code"}, got.ResponseType)
	assert.Equal(t, []string{"token"}, stub.defaults.ResponseType, "defaults must not be modified")

	stub.defaultsErr = errors.New("no entropy")
	_, err = oauth.PrepareTokenParams(context.Background(), stub, nil)
	assert.EqualError(t, err, "no entropy")
}
