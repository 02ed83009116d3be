package oauth

import (
	"maps"
	"net/http"
	"slices"
	"time"
)

// DefaultCodeChallengeMethod is used when no method is configured or supplied
const DefaultCodeChallengeMethod = "S256"

// TokenParams are the parameters of an authorization request. Zero values mean
// "not set" and are filled from defaults during preparation.
type TokenParams struct {
	PKCE                *bool             `json:"pkce,omitempty"`
	ClientID            string            `json:"clientId,omitempty"`
	RedirectURI         string            `json:"redirectUri,omitempty"`
	ResponseType        []string          `json:"responseType,omitempty"`
	ResponseMode        string            `json:"responseMode,omitempty"`
	State               string            `json:"state,omitempty"`
	Nonce               string            `json:"nonce,omitempty"`
	Scopes              []string          `json:"scopes,omitempty"`
	CodeVerifier        string            `json:"codeVerifier,omitempty"`
	CodeChallenge       string            `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string            `json:"codeChallengeMethod,omitempty"`
	AcrValues           string            `json:"acrValues,omitempty"`
	MaxAge              *int              `json:"maxAge,omitempty"`
	IgnoreSignature     *bool             `json:"ignoreSignature,omitempty"`
	LoginHint           string            `json:"loginHint,omitempty"`
	IDP                 string            `json:"idp,omitempty"`
	Prompt              string            `json:"prompt,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy. Clone of nil is nil.
func (p *TokenParams) Clone() *TokenParams {
	if p == nil {
		return nil
	}
	c := *p
	c.PKCE = clonePtr(p.PKCE)
	c.MaxAge = clonePtr(p.MaxAge)
	c.IgnoreSignature = clonePtr(p.IgnoreSignature)
	c.ResponseType = slices.Clone(p.ResponseType)
	c.Scopes = slices.Clone(p.Scopes)
	c.Extra = maps.Clone(p.Extra)
	return &c
}

// PKCEEnabled reports whether PKCE is on. Unset means on.
func (p *TokenParams) PKCEEnabled() bool {
	return p.PKCE == nil || *p.PKCE
}

// mergeTokenParams returns a new value with every field set in override taking
// precedence over base. Extra maps are merged key by key.
func mergeTokenParams(base, override *TokenParams) *TokenParams {
	out := base.Clone()
	if out == nil {
		out = &TokenParams{}
	}
	if override == nil {
		return out
	}
	o := override.Clone()

	if o.PKCE != nil {
		out.PKCE = o.PKCE
	}
	setString(&out.ClientID, o.ClientID)
	setString(&out.RedirectURI, o.RedirectURI)
	if len(o.ResponseType) > 0 {
		out.ResponseType = o.ResponseType
	}
	setString(&out.ResponseMode, o.ResponseMode)
	setString(&out.State, o.State)
	setString(&out.Nonce, o.Nonce)
	if len(o.Scopes) > 0 {
		out.Scopes = o.Scopes
	}
	setString(&out.CodeVerifier, o.CodeVerifier)
	setString(&out.CodeChallenge, o.CodeChallenge)
	setString(&out.CodeChallengeMethod, o.CodeChallengeMethod)
	setString(&out.AcrValues, o.AcrValues)
	if o.MaxAge != nil {
		out.MaxAge = o.MaxAge
	}
	if o.IgnoreSignature != nil {
		out.IgnoreSignature = o.IgnoreSignature
	}
	setString(&out.LoginHint, o.LoginHint)
	setString(&out.IDP, o.IDP)
	setString(&out.Prompt, o.Prompt)
	if len(o.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(o.Extra))
		}
		maps.Copy(out.Extra, o.Extra)
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// WellKnown is the subset of the OpenID discovery document the client uses.
// Raw holds the full document.
type WellKnown struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                           string   `json:"jwks_uri,omitempty"`
	EndSessionEndpoint                string   `json:"end_session_endpoint,omitempty"`
	RevocationEndpoint                string   `json:"revocation_endpoint,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`

	Raw map[string]any `json:"-"`
}

// SupportsCodeChallengeMethod reports whether method is advertised
func (w *WellKnown) SupportsCodeChallengeMethod(method string) bool {
	return w != nil && slices.Contains(w.CodeChallengeMethodsSupported, method)
}

// TransactionMeta is implemented by every transaction metadata type a client
// can persist. Extensions embed OAuthTransactionMeta to satisfy it.
type TransactionMeta interface {
	OAuthMeta() *OAuthTransactionMeta
}

// OAuthTransactionMeta is the state kept across the authorization redirect
type OAuthTransactionMeta struct {
	ID                  string    `json:"id,omitempty"`
	Issuer              string    `json:"issuer"`
	ClientID            string    `json:"clientId"`
	RedirectURI         string    `json:"redirectUri"`
	ResponseType        []string  `json:"responseType,omitempty"`
	ResponseMode        string    `json:"responseMode,omitempty"`
	Scopes              []string  `json:"scopes,omitempty"`
	State               string    `json:"state"`
	Nonce               string    `json:"nonce,omitempty"`
	IgnoreSignature     bool      `json:"ignoreSignature,omitempty"`
	CodeVerifier        string    `json:"codeVerifier,omitempty"`
	CodeChallenge       string    `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string    `json:"codeChallengeMethod,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// OAuthMeta implements TransactionMeta
func (m *OAuthTransactionMeta) OAuthMeta() *OAuthTransactionMeta {
	return m
}

// IsExpired reports whether the transaction is older than ttl. A zero ttl
// never expires.
func (m *OAuthTransactionMeta) IsExpired(ttl time.Duration) bool {
	if ttl <= 0 || m.CreatedAt.IsZero() {
		return false
	}
	return time.Since(m.CreatedAt) > ttl
}

// HTTPClient interface for mocking in tests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
