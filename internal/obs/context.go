package obs

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type scopeKey struct{}

// Scope is the billing context of a request.
type Scope struct {
	HospitalID string
}

// WithScope stores s on ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the scope stored on ctx, or the zero Scope.
func ScopeFromContext(ctx context.Context) Scope {
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

// ScopeMiddleware records the hospitalId query parameter on the request context.
func ScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := Scope{HospitalID: strings.TrimSpace(r.URL.Query().Get("hospitalId"))}
		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), s)))
	})
}

// RouteOf returns the chi route pattern matched for r. It is only complete
// once routing has finished, so call it after the next handler returns.
func RouteOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
