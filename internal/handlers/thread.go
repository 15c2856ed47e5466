package handlers

import (
	"net/http"

	appthread "github.com/modhub/platform/internal/application/thread"
	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/thread"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/pkg/response"
)

type ThreadHandler struct {
	threads  thread.Repository
	projects project.Repository
	versions version.Repository
	service  *appthread.Service
	resolver *permission.Resolver
	alloc    idcodec.Allocator
}

func NewThreadHandler(threads thread.Repository, projects project.Repository, versions version.Repository, service *appthread.Service, resolver *permission.Resolver, alloc idcodec.Allocator) *ThreadHandler {
	return &ThreadHandler{threads: threads, projects: projects, versions: versions, service: service, resolver: resolver, alloc: alloc}
}

func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idcodec.ParseThreadID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed thread id"))
		return
	}
	t, err := h.threads.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, apierror.External("thread repository error", err))
		return
	}
	if t == nil {
		writeErr(w, apierror.NotFound("thread not found"))
		return
	}
	response.Success(w, t)
}

// bits resolves the caller's project permission bits against the project
// a thread is associated with, following the thread's association kind;
// version-associated threads resolve bits through the version's project.
func (h *ThreadHandler) bits(r *http.Request, t *thread.Thread, a actor) (permission.ProjectPermissions, error) {
	projectID := t.ProjectID()
	if projectID == nil && t.VersionID() != nil {
		v, err := h.versions.FindByID(r.Context(), *t.VersionID())
		if err != nil {
			return 0, apierror.External("version repository error", err)
		}
		if v == nil {
			return 0, apierror.NotFound("version not found")
		}
		id := v.ProjectID()
		projectID = &id
	}
	if projectID == nil {
		return 0, nil
	}
	p, err := h.projects.FindByID(r.Context(), *projectID)
	if err != nil {
		return 0, apierror.External("project repository error", err)
	}
	if p == nil {
		return 0, apierror.NotFound("project not found")
	}
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

type postMessageDTO struct {
	Body         string `json:"body" validate:"required"`
	HideIdentity bool   `json:"hide_identity"`
}

func (h *ThreadHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	id, err := idcodec.ParseThreadID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed thread id"))
		return
	}
	t, err := h.threads.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, apierror.External("thread repository error", err))
		return
	}
	if t == nil {
		writeErr(w, apierror.NotFound("thread not found"))
		return
	}
	var dto postMessageDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	bits, err := h.bits(r, t, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	messageID, err := idcodec.AllocateThreadMessageID(r.Context(), h.alloc)
	if err != nil {
		writeErr(w, apierror.External("failed to allocate thread message id", err))
		return
	}
	m, err := h.service.PostMessage(r.Context(), t, a.user.ID(), a.role, bits, messageID, dto.Body, dto.HideIdentity)
	if err != nil {
		writeErr(w, err)
		return
	}
	response.Created(w, m)
}

func (h *ThreadHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	id, err := idcodec.ParseThreadID(urlParam(r, "id"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed thread id"))
		return
	}
	t, err := h.threads.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, apierror.External("thread repository error", err))
		return
	}
	if t == nil {
		writeErr(w, apierror.NotFound("thread not found"))
		return
	}
	messageID, err := idcodec.ParseThreadMessageID(urlParam(r, "messageId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed message id"))
		return
	}
	if err := h.service.DeleteMessage(r.Context(), t, messageID, a.user.ID(), a.role); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}
