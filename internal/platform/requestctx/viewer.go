package requestctx

import "context"

// viewerIDContextKey is the context key for the resolved viewer identity.
type viewerIDContextKey struct{}

// WithViewerID stores the viewer identifier in context.
func WithViewerID(ctx context.Context, viewerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, viewerIDContextKey{}, viewerID)
}

// ViewerIDFromContext returns the viewer identifier stored in context.
func ViewerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(viewerIDContextKey{}).(string)
	return value
}
