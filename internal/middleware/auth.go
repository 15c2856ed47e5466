// path: backend/internal/middleware/auth.go

package middleware

import (
	"context"
	"net/http"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/principal"
	"github.com/modhub/platform/pkg/response"
)

type contextKey string

const principalKey contextKey = "principal"

type PrincipalMiddleware struct {
	resolver *principal.Resolver
}

func NewPrincipalMiddleware(resolver *principal.Resolver) *PrincipalMiddleware {
	return &PrincipalMiddleware{resolver: resolver}
}

// RequirePrincipal resolves the Authorization header into a Principal and
// rejects the request if it does not resolve.
func (m *PrincipalMiddleware) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			response.Error(w, translateResolveErr(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

// OptionalPrincipal resolves the Authorization header if present but lets
// anonymous requests through; handlers read GetPrincipal and fall back to
// anonymous-visibility behavior when it returns ok=false.
func (m *PrincipalMiddleware) OptionalPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func translateResolveErr(err error) *apierror.Error {
	switch err {
	case principal.ErrExpired:
		return apierror.Unauthenticated("credential has expired")
	case principal.ErrRevoked:
		return apierror.Unauthenticated("credential has been revoked")
	case principal.ErrMalformed:
		return apierror.Unauthenticated("malformed bearer credential")
	default:
		return apierror.Unauthenticated("missing or invalid credential")
	}
}

// GetPrincipal reads the resolved Principal from the request context.
func GetPrincipal(ctx context.Context) (*principal.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*principal.Principal)
	return p, ok
}
