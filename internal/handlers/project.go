package handlers

import (
	"context"
	"net/http"

	appproject "github.com/modhub/platform/internal/application/project"
	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/pkg/response"
)

type ProjectHandler struct {
	projects project.Repository
	members  memberRepository
	service  *appproject.Service
	resolver *permission.Resolver
}

func NewProjectHandler(projects project.Repository, members memberRepository, service *appproject.Service, resolver *permission.Resolver) *ProjectHandler {
	return &ProjectHandler{projects: projects, members: members, service: service, resolver: resolver}
}

// lookup resolves the {id} path param, accepting either the canonical
// base62 id or a slug.
func (h *ProjectHandler) lookup(ctx context.Context, idOrSlug string) (*project.Project, error) {
	if id, err := idcodec.ParseProjectID(idOrSlug); err == nil {
		p, err := h.projects.FindByID(ctx, id)
		if err != nil && err != project.ErrNotFound {
			return nil, apierror.External("project repository error", err)
		}
		if p != nil {
			return p, nil
		}
	}
	p, err := h.projects.FindBySlug(ctx, idOrSlug)
	if err != nil && err != project.ErrNotFound {
		return nil, apierror.External("project repository error", err)
	}
	if p == nil {
		return nil, apierror.NotFound("project not found")
	}
	return p, nil
}

func (h *ProjectHandler) bits(ctx context.Context, p *project.Project, a actor) (permission.ProjectPermissions, error) {
	var uid idcodec.UserID
	if a.authenticated() {
		uid = a.user.ID()
	}
	lookup := permission.ProjectLookup{OrganizationID: p.OrganizationID(), TeamID: p.TeamID()}
	bits, err := h.resolver.ProjectPermissionsFor(ctx, a.role, uid, lookup)
	if err != nil {
		return 0, apierror.External("permission resolution failed", err)
	}
	return bits, nil
}

type projectAggregateResponse struct {
	*appproject.Aggregate
	Permissions []string `json:"permissions"`
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	p, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	var uid idcodec.UserID
	if a.authenticated() {
		uid = a.user.ID()
	}
	agg, err := h.service.Read(r.Context(), p, a.role, uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	bits, err := h.bits(r.Context(), p, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	response.Success(w, projectAggregateResponse{Aggregate: agg, Permissions: projectBitsLabel(bits)})
}

func (h *ProjectHandler) GetMany(w http.ResponseWriter, r *http.Request) {
	raw, err := bulkIDs(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ids := make([]idcodec.ProjectID, 0, len(raw))
	for _, s := range raw {
		id, err := idcodec.ParseProjectID(s)
		if err != nil {
			writeErr(w, apierror.InvalidInput("malformed project id in ids"))
			return
		}
		ids = append(ids, id)
	}
	projects, err := h.projects.FindManyByID(r.Context(), ids)
	if err != nil {
		writeErr(w, apierror.External("project repository error", err))
		return
	}
	a := actorFromRequest(r)
	visible := make([]*project.Project, 0, len(projects))
	for _, p := range projects {
		bits, err := h.bits(r.Context(), p, a)
		if err != nil {
			writeErr(w, err)
			return
		}
		if projectVisible(p, a.role, bits) {
			visible = append(visible, p)
		}
	}
	response.Success(w, visible)
}

type projectPatchDTO struct {
	Name          *string               `json:"name,omitempty"`
	Summary       *string               `json:"summary,omitempty"`
	Description   *string               `json:"description,omitempty"`
	LicenseID     *string               `json:"license_id,omitempty"`
	LicenseURL    *string               `json:"license_url,omitempty"`
	Slug          *string               `json:"slug,omitempty" validate:"omitempty,min=3,max=64"`
	Primary       []idcodec.CategoryID  `json:"categories,omitempty"`
	Additional    []idcodec.CategoryID  `json:"additional_categories,omitempty"`
	Monetization  *project.MonetizationStatus `json:"monetization,omitempty"`
	Status        *project.Status       `json:"status,omitempty"`
}

func (h *ProjectHandler) Patch(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	var dto projectPatchDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	bits, err := h.bits(r.Context(), p, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	patch := appproject.Patch{
		Name: dto.Name, Summary: dto.Summary, Description: dto.Description,
		LicenseID: dto.LicenseID, LicenseURL: dto.LicenseURL, Slug: dto.Slug,
		Monetization: dto.Monetization, Status: dto.Status,
	}
	if dto.Primary != nil || dto.Additional != nil {
		patch.SetCategories(dto.Primary, dto.Additional)
	}
	if err := h.service.Edit(r.Context(), p, patch, bits, a.role); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	bits, err := h.bits(r.Context(), p, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), p, bits); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

func (h *ProjectHandler) Follow(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.service.Follow(r.Context(), p, a.user.ID()); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

func (h *ProjectHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.service.Unfollow(r.Context(), p, a.user.ID()); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}
