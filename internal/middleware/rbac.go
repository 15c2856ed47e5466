// path: backend/internal/middleware/rbac.go

package middleware

import (
	"net/http"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/pkg/response"
)

// RequireElevatedRole gates routes reserved for site role Moderator/Admin
// (e.g. the moderation queue, force status transitions). Fine-grained
// project/organization bit checks live in the application services, not
// here — this only guards the site-wide moderation surface.
func RequireElevatedRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		if !ok {
			response.Error(w, apierror.Unauthenticated("authentication required"))
			return
		}
		if !p.User.Role().IsElevated() {
			response.Error(w, apierror.InsufficientPermission("moderator or admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSiteRole gates a route to an explicit set of site roles.
func RequireSiteRole(roles ...user.SiteRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				response.Error(w, apierror.Unauthenticated("authentication required"))
				return
			}
			for _, role := range roles {
				if p.User.Role() == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, apierror.InsufficientPermission("caller's site role is not permitted for this route"))
		})
	}
}
