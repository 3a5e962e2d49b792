// Package exchange implements the ordered request/response pipeline the
// client executes operations through: cache, render-snapshot hydration,
// in-flight deduplication, and the network fetch terminal.
package exchange

import (
	"context"

	"github.com/scriptoria/webclient/internal/gql"
)

// Handler resolves one request into a response.
type Handler func(ctx context.Context, req *gql.Request) (*gql.Response, error)

// Exchange wraps a handler with one pipeline stage. Requests flow down the
// chain; responses flow back up through the same stages.
type Exchange func(next Handler) Handler

// Chain applies exchanges in declaration order: the first exchange sees the
// request first and the response last.
func Chain(terminal Handler, exchanges ...Exchange) Handler {
	wrapped := terminal
	for idx := len(exchanges) - 1; idx >= 0; idx-- {
		if exchanges[idx] == nil {
			continue
		}
		wrapped = exchanges[idx](wrapped)
	}
	return wrapped
}
