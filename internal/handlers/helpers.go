// Package handlers implements the HTTP layer: decoding requests, resolving
// the acting principal's permission bits, invoking an application service,
// and rendering the result through pkg/response. Handlers never embed
// business rules themselves — every check here is a repeat of a check the
// service already enforces, so a handler bug can reject a request early
// but never approve one the service would have refused.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/middleware"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/pkg/response"
)

// actor bundles the resolved caller identity a handler needs: nil User for
// anonymous requests, RoleDeveloper as the zero-value role so bit
// resolution treats anonymous callers as the lowest-privileged site role.
type actor struct {
	user *user.User
	role user.SiteRole
}

func actorFromRequest(r *http.Request) actor {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		return actor{role: user.RoleDeveloper}
	}
	return actor{user: p.User, role: p.User.Role()}
}

func (a actor) authenticated() bool { return a.user != nil }

func (a actor) requireAuthenticated() error {
	if !a.authenticated() {
		return apierror.Unauthenticated("authentication required")
	}
	return nil
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.InvalidInput("malformed request body")
	}
	return nil
}

func validated(v any) error {
	return middleware.ValidateStruct(v)
}

// pagination reads limit/offset query params: limit <= 100, default 10;
// offset default 0.
func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 10, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// bulkIDs parses the `ids` query parameter: a JSON array of opaque id
// strings, used by each resource's bulk "GET /{kind}s?ids=[...]" variant.
func bulkIDs(r *http.Request) ([]string, error) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return nil, apierror.InvalidInput("ids query parameter is required")
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, apierror.InvalidInput("ids must be a JSON array of strings")
	}
	return ids, nil
}

func projectBitsLabel(bits permission.ProjectPermissions) []string {
	names := []struct {
		bit  permission.ProjectPermissions
		name string
	}{
		{permission.ProjectUploadVersion, "UPLOAD_VERSION"},
		{permission.ProjectDeleteVersion, "DELETE_VERSION"},
		{permission.ProjectEditDetails, "EDIT_DETAILS"},
		{permission.ProjectEditBody, "EDIT_BODY"},
		{permission.ProjectManageInvites, "MANAGE_INVITES"},
		{permission.ProjectRemoveMember, "REMOVE_MEMBER"},
		{permission.ProjectEditMember, "EDIT_MEMBER"},
		{permission.ProjectDeleteProject, "DELETE_PROJECT"},
		{permission.ProjectViewAnalytics, "VIEW_ANALYTICS"},
		{permission.ProjectViewPayouts, "VIEW_PAYOUTS"},
	}
	var out []string
	for _, n := range names {
		if bits.Has(n.bit) {
			out = append(out, n.name)
		}
	}
	return out
}

func writeErr(w http.ResponseWriter, err error) { response.Error(w, err) }
