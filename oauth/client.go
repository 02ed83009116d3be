package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/gobeaver/beaver-auth/krypto"
	"github.com/gobeaver/beaver-auth/storage"
)

// BaseClient is the capability set every composed client exposes
type BaseClient[M TransactionMeta, O OptionsProvider, S StorageManager[M], TM TransactionManager[M]] interface {
	TokenParamsClient
	Options() O
	StorageManager() S
	TransactionManager() TM
	Logger() zerolog.Logger
	PrepareTokenParams(ctx context.Context, params *TokenParams) (*TokenParams, error)
	BuildAuthorizeURL(ctx context.Context, params *TokenParams) (string, *TokenParams, error)
	NewOAuthTransactionMeta(params *TokenParams) *OAuthTransactionMeta
	HandleAuthorizeCallback(ctx context.Context, rawURL string) (string, M, error)
	Close() error
}

// Client is the base authentication client. Instances are created by a
// Constructor and owned by the host.
type Client[M TransactionMeta, O OptionsProvider, S StorageManager[M], TM TransactionManager[M]] struct {
	options      O
	storage      S
	transactions TM
	wellKnown    WellKnownFetcher
}

func newClient[M TransactionMeta, O OptionsProvider, S StorageManager[M], TM TransactionManager[M]](opts O, sm S, tm TM) *Client[M, O, S, TM] {
	base := opts.OAuthOptions()

	fetcher := base.WellKnownFetcher
	if fetcher == nil {
		fetcher = NewHTTPWellKnownFetcher(base.Issuer, base.HTTPClient, sm, base.WellKnownTTL, base.Logger)
	}

	return &Client[M, O, S, TM]{
		options:      opts,
		storage:      sm,
		transactions: tm,
		wellKnown:    fetcher,
	}
}

func (c *Client[M, O, S, TM]) Options() O {
	return c.options
}

func (c *Client[M, O, S, TM]) StorageManager() S {
	return c.storage
}

func (c *Client[M, O, S, TM]) TransactionManager() TM {
	return c.transactions
}

// Close releases the transaction manager and storage manager when they hold
// resources. The client must not be used afterwards.
func (c *Client[M, O, S, TM]) Close() error {
	return errors.Join(closeCollaborator(c.transactions), closeCollaborator(c.storage))
}

func (c *Client[M, O, S, TM]) Features() Features {
	return c.options.OAuthOptions().Features
}

func (c *Client[M, O, S, TM]) PKCE() PKCE {
	return c.options.OAuthOptions().PKCECrypto
}

func (c *Client[M, O, S, TM]) Logger() zerolog.Logger {
	return c.options.OAuthOptions().Logger
}

// GetWellKnown returns the discovery document for authServerID, or for the
// issuer when authServerID is empty
func (c *Client[M, O, S, TM]) GetWellKnown(ctx context.Context, authServerID string) (*WellKnown, error) {
	return c.wellKnown.GetWellKnown(ctx, authServerID)
}

// DefaultTokenParams builds the lowest-precedence parameter set from options.
// State and nonce are freshly generated unless options pin a state.
func (c *Client[M, O, S, TM]) DefaultTokenParams() (*TokenParams, error) {
	opts := c.options.OAuthOptions()

	state := opts.State
	if state == "" {
		s, err := krypto.GenerateRandomString(64)
		if err != nil {
			return nil, fmt.Errorf("failed to generate state: %w", err)
		}
		state = s
	}
	nonce, err := krypto.GenerateRandomString(64)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	pkce := opts.PKCE
	params := &TokenParams{
		PKCE:                &pkce,
		ClientID:            opts.ClientID,
		RedirectURI:         opts.RedirectURI,
		ResponseType:        []string{"token", "id_token"},
		ResponseMode:        opts.ResponseMode,
		State:               state,
		Nonce:               nonce,
		Scopes:              []string{"openid", "email"},
		CodeChallengeMethod: opts.CodeChallengeMethod,
		IgnoreSignature:     clonePtr(opts.IgnoreSignature),
		AcrValues:           opts.AcrValues,
		MaxAge:              clonePtr(opts.MaxAge),
	}
	if len(opts.ResponseType) > 0 {
		params.ResponseType = append([]string(nil), opts.ResponseType...)
	}
	if len(opts.Scopes) > 0 {
		params.Scopes = append([]string(nil), opts.Scopes...)
	}
	return params, nil
}

// PrepareTokenParams runs the PKCE pipeline against this client
func (c *Client[M, O, S, TM]) PrepareTokenParams(ctx context.Context, params *TokenParams) (*TokenParams, error) {
	return PrepareTokenParams(ctx, c, params)
}

// BuildAuthorizeURL prepares params and renders the authorization request URL.
// The returned params carry the verifier the caller must keep for the code
// exchange.
func (c *Client[M, O, S, TM]) BuildAuthorizeURL(ctx context.Context, params *TokenParams) (string, *TokenParams, error) {
	prepared, err := c.PrepareTokenParams(ctx, params)
	if err != nil {
		return "", nil, err
	}

	cfg := oauth2.Config{
		ClientID:    prepared.ClientID,
		RedirectURL: prepared.RedirectURI,
		Scopes:      prepared.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: c.authorizeURL()},
	}

	authOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", strings.Join(prepared.ResponseType, " ")),
	}
	set := func(key, value string) {
		if value != "" {
			authOpts = append(authOpts, oauth2.SetAuthURLParam(key, value))
		}
	}
	set("nonce", prepared.Nonce)
	set("response_mode", prepared.ResponseMode)
	set("code_challenge", prepared.CodeChallenge)
	set("code_challenge_method", challengeMethodParam(prepared))
	set("acr_values", prepared.AcrValues)
	set("login_hint", prepared.LoginHint)
	set("idp", prepared.IDP)
	set("prompt", prepared.Prompt)
	if prepared.MaxAge != nil {
		set("max_age", strconv.Itoa(*prepared.MaxAge))
	}
	for k, v := range prepared.Extra {
		set(k, v)
	}

	return cfg.AuthCodeURL(prepared.State, authOpts...), prepared, nil
}

// challengeMethodParam only sends a method alongside a challenge
func challengeMethodParam(p *TokenParams) string {
	if p.CodeChallenge == "" {
		return ""
	}
	return p.CodeChallengeMethod
}

// authorizeURL returns the configured authorize endpoint or derives it from
// the issuer: issuers with an authorization server path get /v1/authorize,
// org issuers get /oauth2/v1/authorize.
func (c *Client[M, O, S, TM]) authorizeURL() string {
	opts := c.options.OAuthOptions()
	if opts.AuthorizeURL != "" {
		return opts.AuthorizeURL
	}
	if strings.Contains(opts.Issuer, "/oauth2") {
		return opts.Issuer + "/v1/authorize"
	}
	return opts.Issuer + "/oauth2/v1/authorize"
}

// NewOAuthTransactionMeta captures what must survive the redirect for params
func (c *Client[M, O, S, TM]) NewOAuthTransactionMeta(params *TokenParams) *OAuthTransactionMeta {
	opts := c.options.OAuthOptions()
	p := params.Clone()
	if p == nil {
		p = &TokenParams{}
	}

	meta := &OAuthTransactionMeta{
		ID:                  krypto.GenerateToken64(),
		Issuer:              opts.Issuer,
		ClientID:            firstNonEmpty(p.ClientID, opts.ClientID),
		RedirectURI:         firstNonEmpty(p.RedirectURI, opts.RedirectURI),
		ResponseType:        p.ResponseType,
		ResponseMode:        p.ResponseMode,
		Scopes:              p.Scopes,
		State:               p.State,
		Nonce:               p.Nonce,
		CodeVerifier:        p.CodeVerifier,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		CreatedAt:           time.Now(),
	}
	if p.IgnoreSignature != nil {
		meta.IgnoreSignature = *p.IgnoreSignature
	}
	return meta
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseAuthorizeCallback extracts code and state from a redirect URL and
// reports an error response as *Error
func ParseAuthorizeCallback(rawURL string) (code, state string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid callback URL: %w", err)
	}
	q := u.Query()
	if u.Fragment != "" && q.Get("code") == "" && q.Get("error") == "" {
		if fq, ferr := url.ParseQuery(u.Fragment); ferr == nil {
			q = fq
		}
	}
	if e := q.Get("error"); e != "" {
		return "", q.Get("state"), ParseError(e, q.Get("error_description"), q.Get("error_uri"))
	}
	return q.Get("code"), q.Get("state"), nil
}

// HandleAuthorizeCallback checks an authorization redirect against the saved
// transaction and returns the authorization code with that transaction, whose
// code verifier completes the token exchange. The transaction stays saved.
func (c *Client[M, O, S, TM]) HandleAuthorizeCallback(ctx context.Context, rawURL string) (string, M, error) {
	var zero M

	code, state, err := ParseAuthorizeCallback(rawURL)
	if err != nil {
		return "", zero, err
	}

	meta, err := c.transactions.Load(ctx)
	if err != nil {
		return "", zero, err
	}

	expected := meta.OAuthMeta().State
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return "", zero, WrapError("invalid_state", ErrInvalidState)
	}
	if code == "" {
		return "", zero, NewError("invalid_request", "authorization response carries no code")
	}
	return code, meta, nil
}

// NewStorageManager is the default storage manager factory: the backend from
// Options.Storage, transaction records living Options.TransactionTTL, signed
// when Options.Storage.SigningKey is set.
//
// The transaction record lives under one key. Clients sharing a redis or sql
// backend must each use their own Options.TransactionKey or storage namespace,
// otherwise concurrent sign-ins overwrite each other's code verifier.
func NewStorageManager[M TransactionMeta, O OptionsProvider](opts O) (*storage.Manager[M], error) {
	base := opts.OAuthOptions()

	cfg := base.Storage
	logger := base.Logger
	cfg.Logger = &logger
	if base.Debug {
		cfg.Debug = true
	}

	store, err := storage.New(cfg)
	if err != nil {
		return nil, err
	}

	managerOpts := []storage.ManagerOption{storage.WithTransactionTTL(base.TransactionTTL)}
	if base.TransactionKey != "" {
		managerOpts = append(managerOpts, storage.WithTransactionKey(base.TransactionKey))
	}
	if cfg.SigningKey != "" {
		managerOpts = append(managerOpts, storage.WithCodec(storage.SignedCodec{
			Key: []byte(cfg.SigningKey),
			TTL: base.TransactionTTL,
		}))
	}
	return storage.NewManager[M](store, managerOpts...), nil
}

// New builds a base client from a raw configuration map using the default
// storage manager and transaction manager
func New(raw map[string]any) (*Client[*OAuthTransactionMeta, *Options, *storage.Manager[*OAuthTransactionMeta], *StorageTransactionManager[*OAuthTransactionMeta]], error) {
	construct, err := Compose[*OAuthTransactionMeta](
		NewStorageManager[*OAuthTransactionMeta, *Options],
		NewOptions,
		NewTransactionManager[*OAuthTransactionMeta, *Options, *storage.Manager[*OAuthTransactionMeta]],
	)
	if err != nil {
		return nil, err
	}
	return construct(raw)
}
