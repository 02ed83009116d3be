package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gobeaver/beaver-auth/storage"
)

const (
	wellKnownPath      = "/.well-known/openid-configuration"
	wellKnownKeyPrefix = "wellknown:"
	tracerName         = "github.com/gobeaver/beaver-auth/oauth"

	// maxWellKnownSize bounds the discovery response body
	maxWellKnownSize = 1 << 20
)

// WellKnownFetcher retrieves the discovery document of an authorization
// server. An empty authServerID means the configured issuer.
type WellKnownFetcher interface {
	GetWellKnown(ctx context.Context, authServerID string) (*WellKnown, error)
}

// KeyValueCache is the subset of a storage manager the fetcher caches in
type KeyValueCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HTTPWellKnownFetcher fetches discovery documents over HTTP and caches the
// raw response.
type HTTPWellKnownFetcher struct {
	issuer string
	client HTTPClient
	cache  KeyValueCache
	ttl    time.Duration
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewHTTPWellKnownFetcher creates a fetcher for issuer. cache may be nil.
func NewHTTPWellKnownFetcher(issuer string, client HTTPClient, cache KeyValueCache, ttl time.Duration, logger zerolog.Logger) *HTTPWellKnownFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPWellKnownFetcher{
		issuer: strings.TrimRight(issuer, "/"),
		client: client,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// URL returns the discovery document URL for authServerID
func (f *HTTPWellKnownFetcher) URL(authServerID string) string {
	base := f.issuer
	if authServerID != "" {
		base = strings.SplitN(f.issuer, "/oauth2/", 2)[0] + "/oauth2/" + authServerID
	}
	return base + wellKnownPath
}

// GetWellKnown returns the cached document when present, otherwise fetches it
func (f *HTTPWellKnownFetcher) GetWellKnown(ctx context.Context, authServerID string) (*WellKnown, error) {
	u := f.URL(authServerID)
	key := wellKnownKeyPrefix + u

	if f.cache != nil {
		data, err := f.cache.Get(ctx, key)
		switch {
		case err == nil:
			if wk, err := parseWellKnown(data); err == nil {
				f.logger.Debug().Str("url", u).Msg("well-known configuration served from cache")
				return wk, nil
			}
		case !errors.Is(err, storage.ErrKeyNotFound):
			f.logger.Debug().Err(err).Str("url", u).Msg("well-known cache read failed")
		}
	}

	data, err := f.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	wk, err := parseWellKnown(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrNetworkError, ErrInvalidResponse, err)
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, data, f.ttl); err != nil {
			f.logger.Debug().Err(err).Str("url", u).Msg("well-known cache write failed")
		}
	}
	return wk, nil
}

func (f *HTTPWellKnownFetcher) fetch(ctx context.Context, u string) (data []byte, err error) {
	ctx, span := f.tracer.Start(ctx, "oauth.GetWellKnown",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", u)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", u).Msg("well-known fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	f.logger.Debug().
		Str("url", u).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("well-known configuration fetched")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: well-known endpoint returned status %d", ErrNetworkError, resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxWellKnownSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	return data, nil
}

func parseWellKnown(data []byte) (*WellKnown, error) {
	var wk WellKnown
	if err := json.Unmarshal(data, &wk); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &wk.Raw); err != nil {
		return nil, err
	}
	return &wk, nil
}
