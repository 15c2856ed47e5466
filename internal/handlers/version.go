package handlers

import (
	"net/http"

	appversion "github.com/modhub/platform/internal/application/version"
	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/pkg/response"
)

type VersionHandler struct {
	versions version.Repository
	projects project.Repository
	service  *appversion.Service
	resolver *permission.Resolver
	alloc    idcodec.Allocator
}

func NewVersionHandler(versions version.Repository, projects project.Repository, service *appversion.Service, resolver *permission.Resolver, alloc idcodec.Allocator) *VersionHandler {
	return &VersionHandler{versions: versions, projects: projects, service: service, resolver: resolver, alloc: alloc}
}

func (h *VersionHandler) projectBits(r *http.Request, p *project.Project, a actor) (permission.ProjectPermissions, error) {
	var uid idcodec.UserID
	if a.authenticated() {
		uid = a.user.ID()
	}
	lookup := permission.ProjectLookup{OrganizationID: p.OrganizationID(), TeamID: p.TeamID()}
	bits, err := h.resolver.ProjectPermissionsFor(r.Context(), a.role, uid, lookup)
	if err != nil {
		return 0, apierror.External("permission resolution failed", err)
	}
	return bits, nil
}

func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idcodec.ParseVersionID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed version id"))
		return
	}
	v, err := h.versions.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, apierror.External("version repository error", err))
		return
	}
	if v == nil {
		writeErr(w, apierror.NotFound("version not found"))
		return
	}
	response.Success(w, v)
}

// ListByProject returns a project's versions in ascending ordering, then
// creation time, windowed by the
// standard limit/offset query params.
func (h *VersionHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := idcodec.ParseProjectID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed project id"))
		return
	}
	versions, err := h.versions.ListByProject(r.Context(), projectID)
	if err != nil {
		writeErr(w, apierror.External("version repository error", err))
		return
	}
	limit, offset := pagination(r)
	if offset > len(versions) {
		offset = len(versions)
	}
	end := offset + limit
	if end > len(versions) {
		end = len(versions)
	}
	response.Success(w, versions[offset:end])
}

type createVersionDTO struct {
	VersionNumber string                          `json:"version_number" validate:"required"`
	Name          string                          `json:"name" validate:"required"`
	Changelog     string                          `json:"changelog"`
	Type          version.VersionType             `json:"version_type" validate:"required,oneof=release beta alpha"`
	Files         []version.File                  `json:"files"`
	Dependencies  []version.Dependency             `json:"dependencies"`
	Loaders       []idcodec.LoaderID               `json:"loaders"`
	LoaderFields  map[idcodec.LoaderFieldID]any     `json:"loader_fields"`
}

func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	projectID, err := idcodec.ParseProjectID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed project id"))
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
	var dto createVersionDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	bits, err := h.projectBits(r, p, a)
	if err != nil {
		writeErr(w, err)
		return
	}

	in := appversion.CreateInput{
		VersionNumber: dto.VersionNumber, Name: dto.Name, Changelog: dto.Changelog,
		Type: dto.Type, Files: dto.Files, Dependencies: dto.Dependencies,
		Loaders: dto.Loaders, LoaderFields: dto.LoaderFields,
	}
	newID, err := idcodec.AllocateVersionID(r.Context(), h.alloc)
	if err != nil {
		writeErr(w, apierror.External("failed to allocate version id", err))
		return
	}
	v, err := h.service.Create(r.Context(), projectID, a.user.ID(), in, bits, newID)
	if err != nil {
		writeErr(w, err)
		return
	}
	response.Created(w, v)
}

type editVersionDTO struct {
	Changelog    *string                         `json:"changelog,omitempty"`
	Dependencies []version.Dependency             `json:"dependencies,omitempty"`
	Loaders      []idcodec.LoaderID               `json:"loaders,omitempty"`
	LoaderFields map[idcodec.LoaderFieldID]any     `json:"loader_fields,omitempty"`
	Featured     *bool                           `json:"featured,omitempty"`
	Status       *version.Status                 `json:"status,omitempty"`
}

func (h *VersionHandler) Patch(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	id, err := idcodec.ParseVersionID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed version id"))
		return
	}
	v, err := h.versions.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, apierror.External("version repository error", err))
		return
	}
	if v == nil {
		writeErr(w, apierror.NotFound("version not found"))
		return
	}
	p, err := h.projects.FindByID(r.Context(), v.ProjectID())
	if err != nil {
		writeErr(w, apierror.External("project repository error", err))
		return
	}
	if p == nil {
		writeErr(w, apierror.NotFound("project not found"))
		return
	}
	var dto editVersionDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	bits, err := h.projectBits(r, p, a)
	if err != nil {
		writeErr(w, err)
		return
	}

	in := appversion.EditInput{Changelog: dto.Changelog, Featured: dto.Featured, Status: dto.Status, LoaderFields: dto.LoaderFields}
	if dto.Dependencies != nil {
		in.SetDependencies(dto.Dependencies)
	}
	if dto.Loaders != nil {
		in.SetLoaders(dto.Loaders)
	}
	if err := h.service.Edit(r.Context(), v, in, bits, a.role.IsElevated()); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

func (h *VersionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	id, err := idcodec.ParseVersionID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed version id"))
		return
	}
	v, err := h.versions.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, apierror.External("version repository error", err))
		return
	}
	if v == nil {
		writeErr(w, apierror.NotFound("version not found"))
		return
	}
	p, err := h.projects.FindByID(r.Context(), v.ProjectID())
	if err != nil {
		writeErr(w, apierror.External("project repository error", err))
		return
	}
	if p == nil {
		writeErr(w, apierror.NotFound("project not found"))
		return
	}
	bits, err := h.projectBits(r, p, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), v, bits); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

// Download records a version download, bumping both counters, then
// redirects to the primary file's CDN URL; no permission bit is required
// since reaching this handler already implies the version passed
// VisibilityFilter on an earlier aggregate read.
func (h *VersionHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := idcodec.ParseVersionID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed version id"))
		return
	}
	v, err := h.versions.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, apierror.External("version repository error", err))
		return
	}
	if v == nil {
		writeErr(w, apierror.NotFound("version not found"))
		return
	}
	if err := h.service.RecordDownload(r.Context(), v); err != nil {
		writeErr(w, err)
		return
	}
	files := v.Files()
	if len(files) == 0 {
		writeErr(w, apierror.NotFound("version has no files"))
		return
	}
	target := files[0]
	for _, f := range files {
		if f.Primary {
			target = f
			break
		}
	}
	http.Redirect(w, r, target.URL, http.StatusFound)
}
