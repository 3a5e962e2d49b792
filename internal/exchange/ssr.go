package exchange

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/scriptoria/webclient/internal/gql"
)

// Snapshot carries query results captured during a server render pass,
// keyed by request signature.
type Snapshot map[string]json.RawMessage

// SSR is the hydration stage, present only when the pipeline was built for
// a server-originated page load. Each snapshot entry is served exactly once
// and then deactivated; the served data still flows up through the cache
// stage, which is how the snapshot seeds the normalized store. Mutations
// and unknown signatures pass through.
func SSR(snapshot Snapshot) Exchange {
	var mu sync.Mutex
	served := make(map[string]bool, len(snapshot))

	return func(next Handler) Handler {
		return func(ctx context.Context, req *gql.Request) (*gql.Response, error) {
			if req == nil || req.Document.Kind != gql.KindQuery || len(snapshot) == 0 {
				return next(ctx, req)
			}
			key := req.SignatureKey()

			mu.Lock()
			data, ok := snapshot[key]
			if !ok || served[key] {
				mu.Unlock()
				return next(ctx, req)
			}
			served[key] = true
			mu.Unlock()

			return &gql.Response{Data: data}, nil
		}
	}
}
