package handlers

import (
	"context"
	"net/http"

	apporganization "github.com/modhub/platform/internal/application/organization"
	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/domain/organization"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/pkg/response"
)

type OrganizationHandler struct {
	orgs     organization.Repository
	projects project.Repository
	members  memberRepository
	service  *apporganization.Service
	resolver *permission.Resolver
}

func NewOrganizationHandler(orgs organization.Repository, projects project.Repository, members memberRepository, service *apporganization.Service, resolver *permission.Resolver) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, projects: projects, members: members, service: service, resolver: resolver}
}

func (h *OrganizationHandler) lookup(ctx context.Context, idOrSlug string) (*organization.Organization, error) {
	if id, err := idcodec.ParseOrganizationID(idOrSlug); err == nil {
		org, err := h.orgs.FindByID(ctx, id)
		if err != nil && err != organization.ErrNotFound {
			return nil, apierror.External("organization repository error", err)
		}
		if org != nil {
			return org, nil
		}
	}
	org, err := h.orgs.FindBySlug(ctx, idOrSlug)
	if err != nil && err != organization.ErrNotFound {
		return nil, apierror.External("organization repository error", err)
	}
	if org == nil {
		return nil, apierror.NotFound("organization not found")
	}
	return org, nil
}

func (h *OrganizationHandler) orgBits(ctx context.Context, org *organization.Organization, a actor) (permission.OrganizationPermissions, error) {
	var uid idcodec.UserID
	if a.authenticated() {
		uid = a.user.ID()
	}
	bits, err := h.resolver.OrganizationPermissionsFor(ctx, a.role, uid, org.TeamID())
	if err != nil {
		return 0, apierror.External("permission resolution failed", err)
	}
	return bits, nil
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	response.Success(w, org)
}

func (h *OrganizationHandler) GetMany(w http.ResponseWriter, r *http.Request) {
	raw, err := bulkIDs(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ids := make([]idcodec.OrganizationID, 0, len(raw))
	for _, s := range raw {
		id, err := idcodec.ParseOrganizationID(s)
		if err != nil {
			writeErr(w, apierror.InvalidInput("malformed organization id in ids"))
			return
		}
		ids = append(ids, id)
	}
	orgs, err := h.orgs.FindManyByID(r.Context(), ids)
	if err != nil {
		writeErr(w, apierror.External("organization repository error", err))
		return
	}
	response.Success(w, orgs)
}

type createOrganizationDTO struct {
	Slug        string `json:"slug" validate:"required,min=3,max=64"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	var dto createOrganizationDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	org, err := h.service.Create(r.Context(), dto.Slug, dto.Name, dto.Description, a.user.ID())
	if err != nil {
		writeErr(w, err)
		return
	}
	response.Created(w, org)
}

func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	org, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	bits, err := h.orgBits(r.Context(), org, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), org, uint64(bits)); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

type adoptProjectDTO struct {
	ProjectID string `json:"project_id" validate:"required"`
}

func (h *OrganizationHandler) Adopt(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	org, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	var dto adoptProjectDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	projectID, err := idcodec.ParseProjectID(dto.ProjectID)
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed project_id"))
		return
	}
	p, err := h.projects.FindByID(r.Context(), projectID)
	if err != nil {
		writeErr(w, apierror.External("project repository error", err))
		return
	}
	if p == nil {
		writeErr(w, apierror.NotFound("project not found"))
		return
	}
	actorProjectMember, err := h.members.Find(r.Context(), p.TeamID(), a.user.ID())
	if err != nil && err != team.ErrMemberNotFound {
		writeErr(w, apierror.External("team repository error", err))
		return
	}
	orgBits, err := h.orgBits(r.Context(), org, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.service.Adopt(r.Context(), p, org, a.user, actorProjectMember, uint64(orgBits)); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

type releaseProjectDTO struct {
	ProjectID      string `json:"project_id" validate:"required"`
	NewOwnerUserID string `json:"new_owner_user_id" validate:"required"`
}

func (h *OrganizationHandler) Release(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	org, err := h.lookup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	var dto releaseProjectDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	projectID, err := idcodec.ParseProjectID(dto.ProjectID)
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed project_id"))
		return
	}
	newOwner, err := idcodec.ParseUserID(dto.NewOwnerUserID)
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed new_owner_user_id"))
		return
	}
	p, err := h.projects.FindByID(r.Context(), projectID)
	if err != nil {
		writeErr(w, apierror.External("project repository error", err))
		return
	}
	if p == nil {
		writeErr(w, apierror.NotFound("project not found"))
		return
	}
	orgBits, err := h.orgBits(r.Context(), org, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.service.Release(r.Context(), p, org, newOwner, uint64(orgBits)); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}
