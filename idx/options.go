package idx

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/gobeaver/beaver-auth/oauth"
)

// FlowIdentifier names the identity flow a transaction runs
type FlowIdentifier string

const (
	FlowDefault         FlowIdentifier = "default"
	FlowProceed         FlowIdentifier = "proceed"
	FlowAuthenticate    FlowIdentifier = "authenticate"
	FlowLogin           FlowIdentifier = "login"
	FlowSignin          FlowIdentifier = "signin"
	FlowRegister        FlowIdentifier = "register"
	FlowSignup          FlowIdentifier = "signup"
	FlowEnrollProfile   FlowIdentifier = "enrollProfile"
	FlowRecoverPassword FlowIdentifier = "recoverPassword"
	FlowResetPassword   FlowIdentifier = "resetPassword"
	FlowUnlockAccount   FlowIdentifier = "unlockAccount"
)

// BetaOptions are experimental switches. They may change without notice.
type BetaOptions struct {
	UseGenericRemediator  *bool `mapstructure:"useGenericRemediator"`
	ExchangeCodeForTokens *bool `mapstructure:"exchangeCodeForTokens"`
}

// Options are the base options plus the idx fields. Base fields are resolved
// and validated by oauth.NewOptions only.
type Options struct {
	*oauth.Options

	Flow            FlowIdentifier
	ActivationToken string
	RecoveryToken   string
	// Idx is nil when the raw configuration has no "idx" block
	Idx *BetaOptions
}

// IdxOptions implements OptionsProvider
func (o *Options) IdxOptions() *Options {
	return o
}

// OptionsProvider is satisfied by idx options and by anything layered on them
type OptionsProvider interface {
	oauth.OptionsProvider
	IdxOptions() *Options
}

type rawFields struct {
	Flow            string       `mapstructure:"flow"`
	ActivationToken string       `mapstructure:"activationToken"`
	RecoveryToken   string       `mapstructure:"recoveryToken"`
	Idx             *BetaOptions `mapstructure:"idx"`
}

// NewOptions builds base options with oauth.NewOptions, then copies the idx
// fields from raw as given. Base errors are returned unchanged.
func NewOptions(raw map[string]any) (*Options, error) {
	base, err := oauth.NewOptions(raw)
	if err != nil {
		return nil, err
	}

	var fields rawFields
	if err := mapstructure.WeakDecode(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrInvalidConfig, err)
	}

	return &Options{
		Options:         base,
		Flow:            FlowIdentifier(fields.Flow),
		ActivationToken: fields.ActivationToken,
		RecoveryToken:   fields.RecoveryToken,
		Idx:             fields.Idx,
	}, nil
}
