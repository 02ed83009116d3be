// Package idx layers identity-transaction support on the base OAuth client.
//
// An idx client is a composed oauth.Client with one extra member, Idx, that
// creates, saves and validates IdxTransactionMeta and recognises interaction
// and email verification redirects:
//
//	client, err := idx.New(map[string]any{
//	    "issuer":      "https://example.okta.com/oauth2/default",
//	    "clientId":    "0oa...",
//	    "redirectUri": "https://app.example.com/callback",
//	    "flow":        "register",
//	})
//
//	meta, err := client.Idx.CreateTransactionMeta(ctx, nil)
//	err = client.Idx.SaveTransactionMeta(ctx, meta)
//
// Custom storage, options or transaction managers are wired with Compose, or
// with Mixin over an existing oauth.Constructor. Options are built by
// NewOptions, which runs oauth.NewOptions first and only adds the idx fields.
package idx
