package oauth

import (
	"fmt"
	"time"

	"github.com/gobeaver/beaver-auth/config"
	"github.com/gobeaver/beaver-auth/storage"
)

// Config is the environment representation of the base options
type Config struct {
	// Issuer is the authorization server URL
	Issuer string `env:"OAUTH_ISSUER,required"`

	// ClientID is the OAuth application's client ID
	ClientID string `env:"OAUTH_CLIENT_ID"`

	// RedirectURI is the callback URL after authentication
	RedirectURI string `env:"OAUTH_REDIRECT_URI"`

	// Origin is the origin the client serves; drives HTTPS and cookie defaults
	Origin string `env:"OAUTH_ORIGIN"`

	// Scopes is a space or comma separated list of OAuth scopes
	Scopes []string `env:"OAUTH_SCOPES"`

	// ResponseType is a space or comma separated list of response types
	ResponseType []string `env:"OAUTH_RESPONSE_TYPE"`
	ResponseMode string   `env:"OAUTH_RESPONSE_MODE"`

	// PKCE enables the PKCE flow; unset means enabled
	PKCE                *bool  `env:"OAUTH_PKCE"`
	CodeChallengeMethod string `env:"OAUTH_CODE_CHALLENGE_METHOD"`

	AuthorizeURL string `env:"OAUTH_AUTHORIZE_URL"`
	TokenURL     string `env:"OAUTH_TOKEN_URL"`
	UserinfoURL  string `env:"OAUTH_USERINFO_URL"`

	// CookieSecure overrides the origin-derived cookie secure flag
	CookieSecure   *bool  `env:"OAUTH_COOKIE_SECURE"`
	CookieSameSite string `env:"OAUTH_COOKIE_SAME_SITE"`

	// TransactionTTL is how long a saved transaction stays valid
	TransactionTTL time.Duration `env:"OAUTH_TRANSACTION_TTL,default:10m"`

	// WellKnownTTL is how long discovery documents are cached
	WellKnownTTL time.Duration `env:"OAUTH_WELL_KNOWN_TTL,default:24h"`

	// HTTPTimeout is the timeout for HTTP requests
	HTTPTimeout time.Duration `env:"OAUTH_HTTP_TIMEOUT,default:30s"`

	// Debug enables debug logging
	Debug bool `env:"OAUTH_DEBUG,default:false"`

	Storage storage.Config
}

// GetConfig returns config loaded from environment with optional LoadOptions
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load oauth config: %w", err)
	}
	return cfg, nil
}

// Raw converts the config to the raw map NewOptions accepts. Unset values
// are left out so option defaults apply.
func (c *Config) Raw() map[string]any {
	raw := map[string]any{
		"issuer":         c.Issuer,
		"transactionTTL": c.TransactionTTL,
		"wellKnownTTL":   c.WellKnownTTL,
		"httpTimeout":    c.HTTPTimeout,
		"debug":          c.Debug,
		"storage":        c.Storage,
	}
	putString(raw, "clientId", c.ClientID)
	putString(raw, "redirectUri", c.RedirectURI)
	putString(raw, "origin", c.Origin)
	putString(raw, "responseMode", c.ResponseMode)
	putString(raw, "codeChallengeMethod", c.CodeChallengeMethod)
	putString(raw, "authorizeUrl", c.AuthorizeURL)
	putString(raw, "tokenUrl", c.TokenURL)
	putString(raw, "userinfoUrl", c.UserinfoURL)
	if len(c.Scopes) > 0 {
		raw["scopes"] = c.Scopes
	}
	if len(c.ResponseType) > 0 {
		raw["responseType"] = c.ResponseType
	}
	if c.PKCE != nil {
		raw["pkce"] = *c.PKCE
	}

	cookies := map[string]any{}
	if c.CookieSecure != nil {
		cookies["secure"] = *c.CookieSecure
	}
	putString(cookies, "sameSite", c.CookieSameSite)
	if len(cookies) > 0 {
		raw["cookies"] = cookies
	}
	return raw
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// Builder pattern for custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Raw loads the environment under the builder's prefix into a raw map
func (b *Builder) Raw() (map[string]any, error) {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return nil, err
	}
	return cfg.Raw(), nil
}

// New creates a base client from the environment under the builder's prefix
func (b *Builder) New() (*Client[*OAuthTransactionMeta, *Options, *storage.Manager[*OAuthTransactionMeta], *StorageTransactionManager[*OAuthTransactionMeta]], error) {
	raw, err := b.Raw()
	if err != nil {
		return nil, err
	}
	return New(raw)
}

// NewFromEnv creates a base client from BEAVER_ prefixed environment variables
func NewFromEnv() (*Client[*OAuthTransactionMeta, *Options, *storage.Manager[*OAuthTransactionMeta], *StorageTransactionManager[*OAuthTransactionMeta]], error) {
	return WithPrefix("BEAVER_").New()
}
