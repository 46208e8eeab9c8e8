package ratelimit

import (
	"context"
	"net/http"
)

type routeCtxKey struct{}

// WithRoute attaches the route template (e.g. /api/tours/:id) stats are
// grouped by. Without it the raw URL path is used.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeCtxKey{}, route)
}

func routeOf(r *http.Request) string {
	if route, ok := r.Context().Value(routeCtxKey{}).(string); ok && route != "" {
		return route
	}
	return r.URL.Path
}
