package idx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/beaver-auth/idx"
	"github.com/gobeaver/beaver-auth/oauth"
)

func TestNewOptions(t *testing.T) {
	opts, err := idx.NewOptions(map[string]any{
		"issuer":          "https://example.okta.com/oauth2/default",
		"clientId":        "idx-client",
		"flow":            "register",
		"activationToken": "act-123",
		"recoveryToken":   "rec-456",
		"idx": map[string]any{
			"useGenericRemediator":  true,
			"exchangeCodeForTokens": "false",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.okta.com/oauth2/default", opts.Issuer)
	assert.Equal(t, "idx-client", opts.ClientID)
	assert.True(t, opts.PKCE, "base defaults apply")
	assert.Equal(t, idx.FlowRegister, opts.Flow)
	assert.Equal(t, "act-123", opts.ActivationToken)
	assert.Equal(t, "rec-456", opts.RecoveryToken)
	require.NotNil(t, opts.Idx)
	require.NotNil(t, opts.Idx.UseGenericRemediator)
	assert.True(t, *opts.Idx.UseGenericRemediator)
	require.NotNil(t, opts.Idx.ExchangeCodeForTokens)
	assert.False(t, *opts.Idx.ExchangeCodeForTokens)

	assert.Same(t, opts, opts.IdxOptions())
	assert.Same(t, opts.Options, opts.OAuthOptions())
}

func TestNewOptionsOptionalFields(t *testing.T) {
	opts, err := idx.NewOptions(map[string]any{"issuer": "https://example.okta.com"})
	require.NoError(t, err)

	assert.Empty(t, opts.Flow)
	assert.Empty(t, opts.ActivationToken)
	assert.Empty(t, opts.RecoveryToken)
	assert.Nil(t, opts.Idx)
}

func TestNewOptionsBaseErrorsUnchanged(t *testing.T) {
	raw := map[string]any{"issuer": "https://dev-1-admin.okta.com", "flow": "register"}

	_, baseErr := oauth.NewOptions(raw)
	_, err := idx.NewOptions(raw)

	require.Error(t, err)
	assert.True(t, errors.Is(err, oauth.ErrInvalidConfig))
	assert.Equal(t, baseErr.Error(), err.Error())
}

func TestNewOptionsSingleSourceOfTruth(t *testing.T) {
	raw := map[string]any{
		"issuer":   "https://example.okta.com/",
		"pkce":     "false",
		"features": oauth.StaticFeatures{},
	}

	base, err := oauth.NewOptions(raw)
	require.NoError(t, err)
	opts, err := idx.NewOptions(raw)
	require.NoError(t, err)

	assert.Equal(t, base.Issuer, opts.Issuer)
	assert.Equal(t, base.PKCE, opts.PKCE)
	assert.Equal(t, base.Cookies, opts.Cookies)
	assert.Equal(t, base.Features, opts.Features)
}
