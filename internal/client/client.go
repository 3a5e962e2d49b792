// Package client provides the single process-wide handle through which all
// queries and mutations are issued. It owns pipeline construction and
// transport configuration.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/scriptoria/webclient/internal/cache"
	"github.com/scriptoria/webclient/internal/exchange"
	"github.com/scriptoria/webclient/internal/gql"
	"github.com/scriptoria/webclient/internal/platform/timeouts"
)

// Config describes how to build a client.
type Config struct {
	// APIBaseURL is the single query/mutation endpoint.
	APIBaseURL string
	// ForwardedCookie seeds outgoing request headers for one server render
	// pass. It is never persisted.
	ForwardedCookie string
	// Snapshot enables the hydration stage for a server-originated page
	// load. Empty for ordinary clients.
	Snapshot exchange.Snapshot
	// HTTPClient overrides the transport, mainly for tests. When nil a
	// client with a public-suffix-aware cookie jar is built so the HTTP-only
	// session cookie rides every request.
	HTTPClient *http.Client
}

// Client is the facade over the exchange pipeline.
type Client struct {
	endpoint string
	store    *cache.Store
	handler  exchange.Handler
}

// New builds a ready-to-use client bound to a fixed API endpoint. Pipeline
// order: cache, hydration (snapshot builds only), dedup, fetch.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.APIBaseURL)
	if endpoint == "" {
		return nil, fmt.Errorf("api base url is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("build cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: timeouts.Request}
	}

	store := cache.NewStore(nil, nil)
	exchanges := []exchange.Exchange{exchange.Cache(store)}
	if len(cfg.Snapshot) > 0 {
		exchanges = append(exchanges, exchange.SSR(cfg.Snapshot))
	}
	exchanges = append(exchanges, exchange.Dedup())

	handler := exchange.Chain(exchange.Fetch(exchange.FetchConfig{
		URL:             endpoint,
		Client:          httpClient,
		ForwardedCookie: cfg.ForwardedCookie,
	}), exchanges...)

	return &Client{endpoint: endpoint, store: store, handler: handler}, nil
}

// Query executes a read operation through the pipeline.
func (c *Client) Query(ctx context.Context, req *gql.Request) (*gql.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is not configured")
	}
	if req == nil || req.Document.Kind != gql.KindQuery {
		return nil, fmt.Errorf("query request is required")
	}
	return c.handler(ctx, req)
}

// Mutate executes a write operation. The normalized-cache write is applied
// before Mutate returns, so any query re-executed afterwards observes the
// mutation's effect.
func (c *Client) Mutate(ctx context.Context, req *gql.Request) (*gql.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is not configured")
	}
	if req == nil || req.Document.Kind != gql.KindMutation {
		return nil, fmt.Errorf("mutation request is required")
	}
	return c.handler(ctx, req)
}

// WatchQuery registers a callback re-fired whenever a later normalization
// changes an entity the query depends on. The returned func cancels the
// registration.
func (c *Client) WatchQuery(req *gql.Request, fn cache.Watcher) func() {
	if c == nil || req == nil {
		return func() {}
	}
	return c.store.Watch(req.Signature(), fn)
}

// ExtractSnapshot exports the executed query results for embedding into a
// server-rendered page; the browser client passes them back as
// Config.Snapshot.
func (c *Client) ExtractSnapshot() exchange.Snapshot {
	if c == nil {
		return nil
	}
	return exchange.Snapshot(c.store.Export())
}
