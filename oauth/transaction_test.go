package oauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/beaver-auth/oauth"
	"github.com/gobeaver/beaver-auth/storage"
)

func TestTransactionManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, map[string]any{
		"wellKnownFetcher": &countingFetcher{methods: []string{"S256"}},
	})
	tm := client.TransactionManager()

	_, err := tm.Load(ctx)
	assert.ErrorIs(t, err, oauth.ErrTransactionNotFound)

	exists, err := tm.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	params, err := client.PrepareTokenParams(ctx, nil)
	require.NoError(t, err)
	meta := client.NewOAuthTransactionMeta(params)
	meta.CreatedAt = time.Time{}

	require.NoError(t, tm.Save(ctx, meta))
	assert.False(t, meta.CreatedAt.IsZero(), "Save should stamp CreatedAt")

	loaded, err := tm.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.okta.com/oauth2/default", loaded.Issuer)
	assert.Equal(t, "test-client", loaded.ClientID)
	assert.Equal(t, params.State, loaded.State)
	assert.Equal(t, params.CodeVerifier, loaded.CodeVerifier)
	assert.Equal(t, params.CodeChallenge, loaded.CodeChallenge)
	assert.Equal(t, "S256", loaded.CodeChallengeMethod)

	exists, err = tm.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, tm.Clear(ctx))
	_, err = tm.Load(ctx)
	assert.ErrorIs(t, err, oauth.ErrTransactionNotFound)
}

func TestTransactionManagerExpiry(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, map[string]any{"transactionTTL": "10m"})
	tm := client.TransactionManager()

	stale := &oauth.OAuthTransactionMeta{State: "old", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, tm.Save(ctx, stale))

	_, err := tm.Load(ctx)
	assert.ErrorIs(t, err, oauth.ErrTransactionNotFound)

	_, err = client.StorageManager().Get(ctx, storage.DefaultTransactionKey)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound, "expired record should be cleared")
}

func TestTransactionManagerSaveNil(t *testing.T) {
	client := newTestClient(t, nil)
	err := client.TransactionManager().Save(context.Background(), nil)
	assert.Error(t, err)
}

func TestTransactionManagerSignedRecords(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, map[string]any{
		"storage": map[string]any{"signingKey": "0123456789abcdef0123456789abcdef"},
	})
	tm := client.TransactionManager()

	require.NoError(t, tm.Save(ctx, &oauth.OAuthTransactionMeta{State: "signed"}))

	raw, err := client.StorageManager().Get(ctx, storage.DefaultTransactionKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"state"`, "record should be an envelope, not plain JSON")

	loaded, err := tm.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "signed", loaded.State)

	// A record edited in the backend is rejected
	require.NoError(t, client.StorageManager().Set(ctx, storage.DefaultTransactionKey, []byte(`{"state":"forged"}`), time.Minute))
	_, err = tm.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrTampered))
	assert.False(t, errors.Is(err, oauth.ErrTransactionNotFound))
}

func TestTransactionManagerEncryptedStorage(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, map[string]any{
		"storage": map[string]any{
			"encryptionSecret": "a-long-enough-secret-for-tests",
			"namespace":        "tx",
		},
	})

	require.NoError(t, client.TransactionManager().Save(ctx, &oauth.OAuthTransactionMeta{State: "secret-state"}))

	enc, ok := client.StorageManager().Storage().(*storage.Encrypted)
	require.True(t, ok, "storage should be wrapped for encryption")
	raw, err := enc.Unwrap().Get(ctx, storage.DefaultTransactionKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-state")

	loaded, err := client.TransactionManager().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-state", loaded.State)
}

func TestOAuthTransactionMetaIsExpired(t *testing.T) {
	tests := []struct {
		name    string
		created time.Time
		ttl     time.Duration
		want    bool
	}{
		{name: "fresh", created: time.Now(), ttl: time.Minute, want: false},
		{name: "stale", created: time.Now().Add(-2 * time.Minute), ttl: time.Minute, want: true},
		{name: "zero ttl never expires", created: time.Now().Add(-time.Hour), ttl: 0, want: false},
		{name: "unset creation time", ttl: time.Minute, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &oauth.OAuthTransactionMeta{CreatedAt: tt.created}
			assert.Equal(t, tt.want, m.IsExpired(tt.ttl))
		})
	}
}
