package exchange

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/scriptoria/webclient/internal/gql"
)

// Dedup collapses identical in-flight queries into a single downstream
// call; every caller receives the same resolved response. Mutations are
// never deduplicated.
func Dedup() Exchange {
	var group singleflight.Group

	return func(next Handler) Handler {
		return func(ctx context.Context, req *gql.Request) (*gql.Response, error) {
			if req == nil || req.Document.Kind != gql.KindQuery {
				return next(ctx, req)
			}
			key := strconv.FormatUint(req.Signature(), 16)
			value, err, _ := group.Do(key, func() (any, error) {
				return next(ctx, req)
			})
			resp, _ := value.(*gql.Response)
			return resp, err
		}
	}
}
