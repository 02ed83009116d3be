package idx

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/gobeaver/beaver-auth/oauth"
)

// TransactionParams are the per-call inputs of an identity transaction
type TransactionParams struct {
	oauth.TokenParams

	Flow            FlowIdentifier
	ActivationToken string
	RecoveryToken   string
	// WithCredentials defaults to true
	WithCredentials *bool
	// StateHandle lets a transaction proceed without saved metadata
	StateHandle string
}

func (p *TransactionParams) tokenParams() *oauth.TokenParams {
	if p == nil {
		return nil
	}
	return p.TokenParams.Clone()
}

// EmailVerifyCallback holds the parameters of an email verification link
type EmailVerifyCallback struct {
	OTP   string
	State string
}

const savedMetaMismatch = "Saved transaction meta does not match the current configuration. " +
	"This may indicate that two apps are sharing a storage key."

// API is the idx capability set, exposed as Client.Idx
type API[M TransactionMeta, O OptionsProvider, S oauth.StorageManager[M], TM oauth.TransactionManager[M]] struct {
	client  *oauth.Client[M, O, S, TM]
	newMeta MetaFactory[M]

	mu   sync.RWMutex
	flow FlowIdentifier
}

func newAPI[M TransactionMeta, O OptionsProvider, S oauth.StorageManager[M], TM oauth.TransactionManager[M]](client *oauth.Client[M, O, S, TM], newMeta MetaFactory[M]) *API[M, O, S, TM] {
	return &API[M, O, S, TM]{
		client:  client,
		newMeta: newMeta,
		flow:    client.Options().IdxOptions().Flow,
	}
}

// SetFlow sets the flow used by transactions that do not name one
func (a *API[M, O, S, TM]) SetFlow(flow FlowIdentifier) {
	a.mu.Lock()
	a.flow = flow
	a.mu.Unlock()
}

// GetFlow returns the current flow, FlowDefault when none is set
func (a *API[M, O, S, TM]) GetFlow() FlowIdentifier {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.flow == "" {
		return FlowDefault
	}
	return a.flow
}

// CreateTransactionMeta prepares token params through the PKCE pipeline and
// builds new transaction metadata from them. Nothing is saved.
func (a *API[M, O, S, TM]) CreateTransactionMeta(ctx context.Context, params *TransactionParams) (M, error) {
	var zero M
	prepared, err := a.client.PrepareTokenParams(ctx, params.tokenParams())
	if err != nil {
		return zero, err
	}

	opts := a.client.Options().IdxOptions()
	if params == nil {
		params = &TransactionParams{}
	}

	meta := &IdxTransactionMeta{
		OAuthTransactionMeta: *a.client.NewOAuthTransactionMeta(prepared),
		Flow:                 params.Flow,
		ActivationToken:      firstNonEmpty(params.ActivationToken, opts.ActivationToken),
		RecoveryToken:        firstNonEmpty(params.RecoveryToken, opts.RecoveryToken),
		WithCredentials:      params.WithCredentials == nil || *params.WithCredentials,
	}
	if meta.Flow == "" {
		meta.Flow = a.GetFlow()
	}
	return a.newMeta(meta), nil
}

func (a *API[M, O, S, TM]) SaveTransactionMeta(ctx context.Context, meta M) error {
	return a.client.TransactionManager().Save(ctx, meta)
}

func (a *API[M, O, S, TM]) ClearTransactionMeta(ctx context.Context) error {
	return a.client.TransactionManager().Clear(ctx)
}

// GetSavedTransactionMeta returns the saved metadata when it is valid for the
// current configuration and params. Missing or mismatched metadata yields
// oauth.ErrTransactionNotFound.
func (a *API[M, O, S, TM]) GetSavedTransactionMeta(ctx context.Context, params *TransactionParams) (M, error) {
	var zero M
	meta, err := a.client.TransactionManager().Load(ctx)
	if err != nil {
		return zero, err
	}
	if !a.IsTransactionMetaValid(meta, params) {
		logger := a.client.Logger()
		logger.Warn().Msg(savedMetaMismatch)
		return zero, oauth.ErrTransactionNotFound
	}
	return meta, nil
}

// GetTransactionMeta returns valid saved metadata or creates new metadata
func (a *API[M, O, S, TM]) GetTransactionMeta(ctx context.Context, params *TransactionParams) (M, error) {
	meta, err := a.GetSavedTransactionMeta(ctx, params)
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, oauth.ErrTransactionNotFound) {
		return meta, err
	}
	return a.CreateTransactionMeta(ctx, params)
}

// IsTransactionMetaValid checks meta against the configuration and params.
// Issuer, client id, redirect uri, state, challenge, challenge method and
// tokens must match whenever an expected value is set. A flow other than
// default or proceed must match too. Expired metadata is never valid.
func (a *API[M, O, S, TM]) IsTransactionMetaValid(meta M, params *TransactionParams) bool {
	if isNilMeta(meta) {
		return false
	}
	m := meta.IdxMeta()
	if m == nil {
		return false
	}

	opts := a.client.Options().IdxOptions()
	if params == nil {
		params = &TransactionParams{}
	}
	if m.IsExpired(opts.TransactionTTL) {
		return false
	}

	checks := []struct{ expected, actual string }{
		{opts.Issuer, m.Issuer},
		{firstNonEmpty(params.ClientID, opts.ClientID), m.ClientID},
		{firstNonEmpty(params.RedirectURI, opts.RedirectURI), m.RedirectURI},
		{firstNonEmpty(params.State, opts.State), m.State},
		{params.CodeChallenge, m.CodeChallenge},
		{params.CodeChallengeMethod, m.CodeChallengeMethod},
		{firstNonEmpty(params.ActivationToken, opts.ActivationToken), m.ActivationToken},
		{firstNonEmpty(params.RecoveryToken, opts.RecoveryToken), m.RecoveryToken},
	}
	for _, c := range checks {
		if c.expected != "" && c.expected != c.actual {
			return false
		}
	}

	flow := params.Flow
	if flow != "" && flow != FlowDefault && flow != FlowProceed {
		return flow == m.Flow
	}
	return true
}

// CanProceed reports whether a transaction can be resumed: valid saved
// metadata exists or params carry a state handle
func (a *API[M, O, S, TM]) CanProceed(ctx context.Context, params *TransactionParams) (bool, error) {
	if params != nil && params.StateHandle != "" {
		return true, nil
	}
	_, err := a.GetSavedTransactionMeta(ctx, params)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, oauth.ErrTransactionNotFound):
		return false, nil
	default:
		return false, err
	}
}

// IsInteractionRequired reports whether a redirect URL carries an
// interaction_required error
func (a *API[M, O, S, TM]) IsInteractionRequired(rawURL string) bool {
	_, _, err := oauth.ParseAuthorizeCallback(rawURL)
	return IsInteractionRequiredError(err)
}

func (a *API[M, O, S, TM]) IsInteractionRequiredError(err error) bool {
	return IsInteractionRequiredError(err)
}

// IsEmailVerifyCallback reports whether rawURL is an email verification
// link, i.e. carries both otp and state
func (a *API[M, O, S, TM]) IsEmailVerifyCallback(rawURL string) bool {
	return IsEmailVerifyCallback(rawURL)
}

func (a *API[M, O, S, TM]) ParseEmailVerifyCallback(rawURL string) (*EmailVerifyCallback, error) {
	return ParseEmailVerifyCallback(rawURL)
}

// IsInteractionRequiredError reports whether err is an OAuth
// interaction_required error
func IsInteractionRequiredError(err error) bool {
	var oauthErr *oauth.Error
	return errors.As(err, &oauthErr) && oauthErr.Code == "interaction_required"
}

// IsEmailVerifyCallback matches otp= and state= case-insensitively anywhere in
// rawURL
func IsEmailVerifyCallback(rawURL string) bool {
	s := strings.ToLower(rawURL)
	return strings.Contains(s, "otp=") && strings.Contains(s, "state=")
}

// ParseEmailVerifyCallback extracts otp and state from the query or fragment
// of an email verification link
func ParseEmailVerifyCallback(rawURL string) (*EmailVerifyCallback, error) {
	if !IsEmailVerifyCallback(rawURL) {
		return nil, ErrNotEmailVerifyCallback
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if q.Get("otp") == "" && u.Fragment != "" {
		if fq, ferr := url.ParseQuery(u.Fragment); ferr == nil {
			q = fq
		}
	}
	cb := &EmailVerifyCallback{OTP: q.Get("otp"), State: q.Get("state")}
	if cb.OTP == "" || cb.State == "" {
		return nil, ErrNotEmailVerifyCallback
	}
	return cb, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
