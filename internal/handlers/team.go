package handlers

import (
	"net/http"

	appteam "github.com/modhub/platform/internal/application/team"
	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/pkg/response"
)

type TeamHandler struct {
	members memberRepository
	service *appteam.Service
}

func NewTeamHandler(members memberRepository, service *appteam.Service) *TeamHandler {
	return &TeamHandler{members: members, service: service}
}

func (h *TeamHandler) actorMember(r *http.Request, teamID idcodec.TeamID, a actor) (*team.Member, error) {
	if !a.authenticated() {
		return nil, apierror.Unauthenticated("authentication required")
	}
	m, err := h.members.Find(r.Context(), teamID, a.user.ID())
	if err != nil {
		if err == team.ErrMemberNotFound {
			return nil, apierror.InsufficientPermission("caller is not a member of this team")
		}
		return nil, apierror.External("team repository error", err)
	}
	return m, nil
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	teamID, err := idcodec.ParseTeamID(urlParam(r, "teamId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed team id"))
		return
	}
	members, err := h.members.ListByTeam(r.Context(), teamID)
	if err != nil {
		writeErr(w, apierror.External("team repository error", err))
		return
	}
	response.Success(w, members)
}

type inviteMemberDTO struct {
	UserID      string  `json:"user_id" validate:"required"`
	ProjectBits uint64  `json:"permissions"`
	OrgBits     *uint64 `json:"organization_permissions,omitempty"`
}

func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	teamID, err := idcodec.ParseTeamID(urlParam(r, "teamId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed team id"))
		return
	}
	actorMember, err := h.actorMember(r, teamID, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	var dto inviteMemberDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	invitee, err := idcodec.ParseUserID(dto.UserID)
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed user_id"))
		return
	}
	m, err := h.service.Invite(r.Context(), teamID, invitee, dto.ProjectBits, dto.OrgBits, actorMember)
	if err != nil {
		writeErr(w, err)
		return
	}
	response.Created(w, m)
}

func (h *TeamHandler) Accept(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	if err := a.requireAuthenticated(); err != nil {
		writeErr(w, err)
		return
	}
	teamID, err := idcodec.ParseTeamID(urlParam(r, "teamId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed team id"))
		return
	}
	if err := h.service.Accept(r.Context(), teamID, a.user.ID()); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

type editMemberDTO struct {
	Role         *team.MemberRole `json:"role,omitempty"`
	ProjectBits  *uint64          `json:"permissions,omitempty"`
	OrgBits      *uint64          `json:"organization_permissions,omitempty"`
	PayoutsSplit *int             `json:"payouts_split,omitempty"`
}

func (h *TeamHandler) EditMember(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	teamID, err := idcodec.ParseTeamID(urlParam(r, "teamId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed team id"))
		return
	}
	actorMember, err := h.actorMember(r, teamID, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	targetUserID, err := idcodec.ParseUserID(urlParam(r, "userId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed user id"))
		return
	}
	var dto editMemberDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	patch := appteam.MemberPatch{Role: dto.Role, ProjectBits: dto.ProjectBits, OrgBits: dto.OrgBits, PayoutsSplit: dto.PayoutsSplit}
	if err := h.service.EditMember(r.Context(), teamID, targetUserID, patch, actorMember); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	teamID, err := idcodec.ParseTeamID(urlParam(r, "teamId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed team id"))
		return
	}
	actorMember, err := h.actorMember(r, teamID, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	targetUserID, err := idcodec.ParseUserID(urlParam(r, "userId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed user id"))
		return
	}
	if err := h.service.Remove(r.Context(), teamID, targetUserID, actorMember); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}

type transferOwnershipDTO struct {
	NewOwnerUserID string `json:"user_id" validate:"required"`
}

func (h *TeamHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	a := actorFromRequest(r)
	teamID, err := idcodec.ParseTeamID(urlParam(r, "teamId"))
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed team id"))
		return
	}
	actorMember, err := h.actorMember(r, teamID, a)
	if err != nil {
		writeErr(w, err)
		return
	}
	var dto transferOwnershipDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeErr(w, err)
		return
	}
	if err := validated(&dto); err != nil {
		writeErr(w, err)
		return
	}
	newOwner, err := idcodec.ParseUserID(dto.NewOwnerUserID)
	if err != nil {
		writeErr(w, apierror.InvalidInput("malformed user_id"))
		return
	}
	if err := h.service.TransferOwnership(r.Context(), teamID, actorMember, newOwner); err != nil {
		writeErr(w, err)
		return
	}
	response.NoContent(w)
}
