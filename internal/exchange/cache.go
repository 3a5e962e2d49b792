package exchange

import (
	"context"
	"fmt"

	"github.com/scriptoria/webclient/internal/cache"
	"github.com/scriptoria/webclient/internal/gql"
)

// Cache is the normalized-cache stage. CacheFirst queries fully
// materializable from the store are served locally; everything else is
// forwarded. Successful responses are normalized into the store before the
// caller sees them, so a query re-executed after a mutation settles always
// observes the mutation's effect. Errored responses skip normalization.
func Cache(store *cache.Store) Exchange {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *gql.Request) (*gql.Response, error) {
			if req == nil {
				return nil, fmt.Errorf("request is required")
			}
			if req.Document.Kind == gql.KindQuery {
				switch req.Policy {
				case gql.CacheFirst:
					if data, ok := store.Materialize(req.Signature()); ok {
						return &gql.Response{Data: data}, nil
					}
				case gql.CacheOnly:
					if data, ok := store.Materialize(req.Signature()); ok {
						return &gql.Response{Data: data}, nil
					}
					return nil, gql.ErrCacheMiss
				}
			}

			resp, err := next(ctx, req)
			if err != nil || resp == nil || len(resp.Errors) > 0 {
				return resp, err
			}
			if err := store.Normalize(req, resp.Data); err != nil {
				return resp, fmt.Errorf("normalize response: %w", err)
			}
			return resp, nil
		}
	}
}
