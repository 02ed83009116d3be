package oauth_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/gobeaver/beaver-auth/oauth"
	"github.com/gobeaver/beaver-auth/storage"
)

// countingFetcher serves a fixed discovery document and counts requests
type countingFetcher struct {
	methods []string
	err     error
	calls   atomic.Int32
	ids     []string
}

func (f *countingFetcher) GetWellKnown(_ context.Context, authServerID string) (*oauth.WellKnown, error) {
	f.calls.Add(1)
	f.ids = append(f.ids, authServerID)
	if f.err != nil {
		return nil, f.err
	}
	return &oauth.WellKnown{
		Issuer:                        "https://example.okta.com",
		CodeChallengeMethodsSupported: f.methods,
	}, nil
}

// countingPKCE delegates to DefaultPKCE and counts calls
type countingPKCE struct {
	oauth.DefaultPKCE
	generated atomic.Int32
	computed  atomic.Int32
}

func (p *countingPKCE) GenerateVerifier() (string, error) {
	p.generated.Add(1)
	return p.DefaultPKCE.GenerateVerifier()
}

func (p *countingPKCE) ComputeChallenge(ctx context.Context, verifier string) (string, error) {
	p.computed.Add(1)
	return p.DefaultPKCE.ComputeChallenge(ctx, verifier)
}

// closeRecorder is an in-memory store that records Close
type closeRecorder struct {
	storage.Storage
	closed atomic.Bool
}

func newCloseRecorder(t *testing.T) *closeRecorder {
	t.Helper()
	store, err := storage.New(storage.Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}
	return &closeRecorder{Storage: store}
}

func (r *closeRecorder) Close() error {
	r.closed.Store(true)
	return r.Storage.Close()
}

// factory is a storage manager factory over the recorder
func (r *closeRecorder) factory(*oauth.Options) (*storageManager, error) {
	return storage.NewManager[*oauth.OAuthTransactionMeta](r), nil
}

var secureFeatures = oauth.StaticFeatures{SecureContext: true, HTTPS: true, TextEncoder: true, Crypto: true}

type (
	storageManager     = storage.Manager[*oauth.OAuthTransactionMeta]
	transactionManager = oauth.StorageTransactionManager[*oauth.OAuthTransactionMeta]
	baseClient         = oauth.Client[*oauth.OAuthTransactionMeta, *oauth.Options, *storageManager, *transactionManager]
)

var _ oauth.BaseClient[*oauth.OAuthTransactionMeta, *oauth.Options, *storageManager, *transactionManager] = (*baseClient)(nil)

// newTestClient builds a base client over in-memory storage. raw entries
// override the defaults.
func newTestClient(t *testing.T, raw map[string]any) *baseClient {
	t.Helper()

	cfg := map[string]any{
		"issuer":   "https://example.okta.com/oauth2/default",
		"clientId": "test-client",
		"features": secureFeatures,
	}
	for k, v := range raw {
		cfg[k] = v
	}

	client, err := oauth.New(cfg)
	if err != nil {
		t.Fatalf("oauth.New() error = %v", err)
	}
	t.Cleanup(func() { _ = client.StorageManager().Close() })
	return client
}
