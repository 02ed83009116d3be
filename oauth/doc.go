// Package oauth provides an OAuth 2.0 / OpenID Connect authentication client
// that is assembled from independent capabilities: a storage manager, an
// options schema and a transaction manager.
//
// # Quick Start
//
//	import "github.com/gobeaver/beaver-auth/oauth"
//
//	client, err := oauth.New(map[string]any{
//	    "issuer":      "https://example.okta.com/oauth2/default",
//	    "clientId":    "0oa1234",
//	    "redirectUri": "https://app.example.com/callback",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	authURL, params, err := client.BuildAuthorizeURL(ctx, &oauth.TokenParams{
//	    Scopes: []string{"openid", "profile"},
//	})
//	// Keep params.CodeVerifier for the code exchange, e.g. in a transaction:
//	err = client.TransactionManager().Save(ctx, client.NewOAuthTransactionMeta(params))
//
// The environment can also supply the configuration (BEAVER_OAUTH_ISSUER,
// BEAVER_OAUTH_CLIENT_ID, BEAVER_STORAGE_DRIVER, ...):
//
//	client, err := oauth.NewFromEnv()
//	client, err := oauth.WithPrefix("MYAPP_").New()
//
// # Composition
//
// Compose takes one factory per capability and returns a Constructor. The
// factories share the transaction metadata type, so a storage manager for one
// metadata type cannot be combined with a transaction manager for another:
//
//	construct, err := oauth.Compose[*MyMeta](
//	    oauth.NewStorageManager[*MyMeta, *oauth.Options],
//	    oauth.NewOptions,
//	    oauth.NewTransactionManager[*MyMeta, *oauth.Options, *storage.Manager[*MyMeta]],
//	)
//	client, err := construct(raw)
//
// A nil factory, or a factory that returns a nil collaborator, yields
// ErrCompositionMismatch naming the capability. Extensions such as package idx
// wrap the resulting client instead of modifying it.
//
// # PKCE
//
// PrepareTokenParams merges caller parameters over the client defaults and,
// unless PKCE is disabled with TokenParams.PKCE, fails fast when the
// environment cannot perform PKCE (ErrPKCENotSupported), forces the code
// response type, checks the challenge method against the server's discovery
// document (ErrInvalidCodeChallengeMethod, never downgraded) and computes the
// challenge. A failed discovery fetch wraps ErrNetworkError and is the only
// retryable failure (IsRetryable).
//
// # Collaborators
//
// Options accept collaborator overrides in the raw map:
//
//	"features"          Features          environment capabilities
//	"pkceCrypto"        PKCE              verifier and challenge generation
//	"wellKnownFetcher"  WellKnownFetcher  discovery document retrieval
//	"httpClient"        HTTPClient        transport for the default fetcher
//	"logger"            zerolog.Logger    logging; defaults to a no-op logger
package oauth
