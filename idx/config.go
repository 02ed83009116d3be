package idx

import (
	"fmt"

	"github.com/gobeaver/beaver-auth/config"
	"github.com/gobeaver/beaver-auth/oauth"
)

// Config is the environment representation of idx options
type Config struct {
	oauth.Config

	Flow            string `env:"IDX_FLOW"`
	ActivationToken string `env:"IDX_ACTIVATION_TOKEN"`
	RecoveryToken   string `env:"IDX_RECOVERY_TOKEN"`

	UseGenericRemediator  *bool `env:"IDX_USE_GENERIC_REMEDIATOR"`
	ExchangeCodeForTokens *bool `env:"IDX_EXCHANGE_CODE_FOR_TOKENS"`
}

// GetConfig returns config loaded from environment with optional LoadOptions
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load idx config: %w", err)
	}
	return cfg, nil
}

// Raw converts the config to the raw map NewOptions accepts
func (c *Config) Raw() map[string]any {
	raw := c.Config.Raw()
	if c.Flow != "" {
		raw["flow"] = c.Flow
	}
	if c.ActivationToken != "" {
		raw["activationToken"] = c.ActivationToken
	}
	if c.RecoveryToken != "" {
		raw["recoveryToken"] = c.RecoveryToken
	}

	beta := map[string]any{}
	if c.UseGenericRemediator != nil {
		beta["useGenericRemediator"] = *c.UseGenericRemediator
	}
	if c.ExchangeCodeForTokens != nil {
		beta["exchangeCodeForTokens"] = *c.ExchangeCodeForTokens
	}
	if len(beta) > 0 {
		raw["idx"] = beta
	}
	return raw
}

// Builder pattern for custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// New creates an idx client from the environment under the builder's prefix
func (b *Builder) New() (*DefaultClient, error) {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return nil, err
	}
	return New(cfg.Raw())
}

// NewFromEnv creates an idx client from BEAVER_ prefixed environment variables
func NewFromEnv() (*DefaultClient, error) {
	return WithPrefix("BEAVER_").New()
}
