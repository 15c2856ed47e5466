// Package team implements TeamService: invite, accept,
// edit_member, remove, transfer_ownership — an application-level Service
// wrapping the team domain package's entities, its repository, and the
// Cache/Logger collaborators.
package team

import (
	"context"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

// Logger decouples the application layer from any concrete logging
// backend.
type Logger interface {
	Info(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// OrgProjectLister lists an organization's member projects, so
// invalidateTeam can fan an organization team's invalidation out to every
// project that inherits permissions from it; declared locally to avoid
// this package depending on the full organization.Repository interface.
type OrgProjectLister interface {
	ListProjectIDs(ctx context.Context, id idcodec.OrganizationID) ([]idcodec.ProjectID, error)
}

// TxRunner executes fn inside one Store transaction, so
// transfer_ownership's two member-row rewrites commit or roll back
// together; satisfied by internal/store's Store.WithTx.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	teams    team.Repository
	members  team.MemberRepository
	orgs     OrgProjectLister
	resolver *permission.Resolver
	cache    *cache.Cache
	tx       TxRunner
	logger   Logger
}

func NewService(teams team.Repository, members team.MemberRepository, orgs OrgProjectLister, resolver *permission.Resolver, c *cache.Cache, tx TxRunner, logger Logger) *Service {
	return &Service{teams: teams, members: members, orgs: orgs, resolver: resolver, cache: c, tx: tx, logger: logger}
}

// Invite implements invite: requires MANAGE_INVITES on the
// team's associate, and rejects granting a bit the actor itself lacks.
func (s *Service) Invite(ctx context.Context, teamID idcodec.TeamID, invitee idcodec.UserID, projectBits uint64, orgBits *uint64, actor *team.Member) (*team.Member, error) {
	if !hasProjectBit(actor, permission.ProjectManageInvites) {
		return nil, apierror.InsufficientPermission("MANAGE_INVITES required to invite a member")
	}
	actorBits := actor.EffectiveProjectBits()
	if projectBits&actorBits != projectBits {
		return nil, apierror.InvalidInput("cannot grant permission bits the actor does not hold")
	}
	if orgBits != nil {
		actorOrgBits, ok := actor.EffectiveOrgBits()
		if !ok || (*orgBits&actorOrgBits) != *orgBits {
			return nil, apierror.InvalidInput("cannot grant organization bits the actor does not hold")
		}
	}

	m, err := team.NewMember(teamID, invitee, "Member", projectBits, orgBits)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "invalid member parameters", err)
	}
	if err := s.members.Add(ctx, m); err != nil {
		if err == team.ErrMemberAlreadyExists {
			return nil, apierror.Conflict("user is already a member of this team")
		}
		return nil, apierror.External("team repository error", err)
	}
	if err := s.invalidateTeam(ctx, teamID); err != nil {
		s.logger.Error("invite: cache invalidation failed", "team_id", teamID.String(), "error", err)
	}
	return m, nil
}

// Accept implements accept: the invitee flips its own
// accepted flag; no permission check beyond the caller being that invitee.
func (s *Service) Accept(ctx context.Context, teamID idcodec.TeamID, invitee idcodec.UserID) error {
	m, err := s.members.Find(ctx, teamID, invitee)
	if err != nil {
		if err == team.ErrMemberNotFound {
			return apierror.NotFound("membership invitation not found")
		}
		return apierror.External("team repository error", err)
	}
	m.Accept()
	if err := s.members.Update(ctx, m); err != nil {
		return apierror.External("failed to update team member", err)
	}
	if err := s.invalidateTeam(ctx, teamID); err != nil {
		s.logger.Error("accept: cache invalidation failed", "team_id", teamID.String(), "error", err)
	}
	return nil
}

// MemberPatch is the Δ from edit_member.
type MemberPatch struct {
	Role         *team.MemberRole
	ProjectBits  *uint64
	OrgBits      *uint64
	PayoutsSplit *int
}

// EditMember implements edit_member: requires EDIT_MEMBER,
// may not raise the target above the actor's own bit intersection, may not
// set role=Owner, may not edit the owner row unless the actor is the owner.
func (s *Service) EditMember(ctx context.Context, teamID idcodec.TeamID, targetUserID idcodec.UserID, patch MemberPatch, actor *team.Member) error {
	if !hasProjectBit(actor, permission.ProjectEditMember) {
		return apierror.InsufficientPermission("EDIT_MEMBER required to edit a member")
	}
	target, err := s.members.Find(ctx, teamID, targetUserID)
	if err != nil {
		if err == team.ErrMemberNotFound {
			return apierror.NotFound("team member not found")
		}
		return apierror.External("team repository error", err)
	}
	if target.IsOwner() && !actor.IsOwner() {
		return apierror.InsufficientPermission("only the owner may edit the owner row")
	}
	if patch.Role != nil {
		if *patch.Role == team.ReservedOwnerRole {
			return apierror.InvalidInput("role \"Owner\" is reserved; use transfer_ownership")
		}
	}
	if patch.ProjectBits != nil {
		actorBits := actor.EffectiveProjectBits()
		if *patch.ProjectBits&actorBits != *patch.ProjectBits {
			return apierror.InvalidInput("cannot raise a member's bits above the actor's own")
		}
	}
	if patch.OrgBits != nil {
		actorOrgBits, ok := actor.EffectiveOrgBits()
		if !ok || *patch.OrgBits&actorOrgBits != *patch.OrgBits {
			return apierror.InvalidInput("cannot raise a member's organization bits above the actor's own")
		}
	}
	if patch.PayoutsSplit != nil {
		if err := target.SetPayoutsSplit(*patch.PayoutsSplit); err != nil {
			return apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "invalid payouts split", err)
		}
	}

	updated := applyMemberPatch(target, patch)
	if err := s.members.Update(ctx, updated); err != nil {
		return apierror.External("failed to update team member", err)
	}
	if err := s.invalidateTeam(ctx, teamID); err != nil {
		s.logger.Error("edit_member: cache invalidation failed", "team_id", teamID.String(), "error", err)
	}
	return nil
}

// applyMemberPatch rebuilds the member's persisted fields via Reconstruct,
// since team.Member exposes no setter for role/bits beyond SetPayoutsSplit
// (role/bit changes are an application-layer concern gated by bit checks
// above, not a domain invariant the entity itself enforces).
func applyMemberPatch(m *team.Member, patch MemberPatch) *team.Member {
	role := m.Role()
	if patch.Role != nil {
		role = *patch.Role
	}
	projectBits := m.ProjectBits()
	if patch.ProjectBits != nil {
		projectBits = *patch.ProjectBits
	}
	var orgBits *uint64
	if existing, ok := m.OrgBits(); ok {
		v := existing
		orgBits = &v
	}
	if patch.OrgBits != nil {
		v := *patch.OrgBits
		orgBits = &v
	}
	return team.Reconstruct(m.TeamID(), m.UserID(), role, m.IsOwner(), projectBits, orgBits,
		m.Accepted(), m.PayoutsSplit(), m.Ordering())
}

// Remove implements remove: requires REMOVE_MEMBER, rejects
// removing the owner.
func (s *Service) Remove(ctx context.Context, teamID idcodec.TeamID, targetUserID idcodec.UserID, actor *team.Member) error {
	if !hasProjectBit(actor, permission.ProjectRemoveMember) {
		return apierror.InsufficientPermission("REMOVE_MEMBER required to remove a member")
	}
	target, err := s.members.Find(ctx, teamID, targetUserID)
	if err != nil {
		if err == team.ErrMemberNotFound {
			return apierror.NotFound("team member not found")
		}
		return apierror.External("team repository error", err)
	}
	if target.IsOwner() {
		return apierror.InvalidInput("cannot remove the team owner")
	}
	if err := s.members.Remove(ctx, teamID, targetUserID); err != nil {
		return apierror.External("failed to remove team member", err)
	}
	if err := s.invalidateTeam(ctx, teamID); err != nil {
		s.logger.Error("remove: cache invalidation failed", "team_id", teamID.String(), "error", err)
	}
	return nil
}

// TransferOwnership implements transfer_ownership atomically:
// the prior owner keeps full bits as a plain member, the new owner (who
// must already be an accepted member) becomes owner.
func (s *Service) TransferOwnership(ctx context.Context, teamID idcodec.TeamID, actor *team.Member, newOwnerUserID idcodec.UserID) error {
	if !actor.IsOwner() {
		return apierror.InsufficientPermission("only the current owner may transfer ownership")
	}
	newOwner, err := s.members.Find(ctx, teamID, newOwnerUserID)
	if err != nil {
		if err == team.ErrMemberNotFound {
			return apierror.NotFound("new owner must already be a team member")
		}
		return apierror.External("team repository error", err)
	}
	if !newOwner.Accepted() {
		return apierror.InvalidInput("new owner must already be an accepted member")
	}

	actor.ClearOwner()
	newOwner.MakeOwner()

	// Demoting the prior owner and promoting the new one must commit
	// together; a failure between the two writes must never leave a team
	// with two owners or none.
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.teams.LockForUpdate(ctx, teamID); err != nil {
			return apierror.External("failed to lock team", err)
		}
		if err := s.members.Update(ctx, actor); err != nil {
			return apierror.External("failed to demote prior owner", err)
		}
		if err := s.members.Update(ctx, newOwner); err != nil {
			return apierror.External("failed to promote new owner", err)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := s.invalidateTeam(ctx, teamID); err != nil {
		s.logger.Error("transfer_ownership: cache invalidation failed", "team_id", teamID.String(), "error", err)
	}
	return nil
}

func hasProjectBit(m *team.Member, bit permission.ProjectPermissions) bool {
	if m == nil {
		return false
	}
	return permission.ProjectPermissions(m.EffectiveProjectBits()).Has(bit)
}

// invalidateTeam fans out the team's own cache entry plus its associate's
// (the project or organization this team backs). An organization team's
// membership bits feed every member project's effective-permission view,
// so that fan-out also invalidates each of the organization's projects,
// not just the organization entry itself. The associate lookup itself
// degrades to a log-only failure: a stale associate cache entry
// self-heals at its TTL.
func (s *Service) invalidateTeam(ctx context.Context, teamID idcodec.TeamID) error {
	if err := s.cache.Invalidate(ctx, cache.NamespaceTeams, teamID.String()); err != nil {
		return err
	}
	assoc, err := s.teams.Association(ctx, teamID)
	if err != nil {
		return err
	}
	switch assoc.Kind {
	case team.AssociationProject:
		return s.cache.Invalidate(ctx, cache.NamespaceProjects, assoc.OwnerProjectID.String())
	case team.AssociationOrganization:
		if err := s.cache.Invalidate(ctx, cache.NamespaceOrgs, assoc.OwnerOrgID.String()); err != nil {
			return err
		}
		projectIDs, err := s.orgs.ListProjectIDs(ctx, assoc.OwnerOrgID)
		if err != nil {
			return err
		}
		for _, pid := range projectIDs {
			if err := s.cache.Invalidate(ctx, cache.NamespaceProjects, pid.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
