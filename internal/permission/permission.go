// Package permission implements the PermissionResolver: the heart of the
// core. Two independent 64-bit flag sets, each with named
// accessors, and the 5-step resolution algorithm that turns a (principal,
// entity) pair into an effective bit set.
package permission

import (
	"context"

	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

// ProjectPermissions is the bit vocabulary gating project operations.
type ProjectPermissions uint64

const (
	ProjectUploadVersion ProjectPermissions = 1 << iota
	ProjectDeleteVersion
	ProjectEditDetails
	ProjectEditBody
	ProjectManageInvites
	ProjectRemoveMember
	ProjectEditMember
	ProjectDeleteProject
	ProjectViewAnalytics
	ProjectViewPayouts
)

// AllProjectPermissions is the OR of every named project bit — the
// sentinel PermissionResolver returns whenever it elevates due to
// owner/site-role.
const AllProjectPermissions = ProjectUploadVersion | ProjectDeleteVersion | ProjectEditDetails |
	ProjectEditBody | ProjectManageInvites | ProjectRemoveMember | ProjectEditMember |
	ProjectDeleteProject | ProjectViewAnalytics | ProjectViewPayouts

func (p ProjectPermissions) Has(bit ProjectPermissions) bool { return p&bit != 0 }
func (p ProjectPermissions) IsEmpty() bool                   { return p == 0 }
func (p ProjectPermissions) IsAll() bool                     { return p == AllProjectPermissions }

// OrganizationPermissions is the bit vocabulary gating organization operations.
type OrganizationPermissions uint64

const (
	OrgEditDetails OrganizationPermissions = 1 << iota
	OrgManageInvites
	OrgRemoveMember
	OrgEditMember
	OrgAddProject
	OrgRemoveProject
	OrgEditMemberDefaultPermissions
	OrgDeleteOrganization
)

const AllOrganizationPermissions = OrgEditDetails | OrgManageInvites | OrgRemoveMember | OrgEditMember |
	OrgAddProject | OrgRemoveProject | OrgEditMemberDefaultPermissions | OrgDeleteOrganization

func (p OrganizationPermissions) Has(bit OrganizationPermissions) bool { return p&bit != 0 }
func (p OrganizationPermissions) IsEmpty() bool                       { return p == 0 }
func (p OrganizationPermissions) IsAll() bool                         { return p == AllOrganizationPermissions }

// ProjectLookup resolves the inputs project_permissions needs without the
// permission package depending on internal/domain/project (avoiding an
// import cycle: project's application layer depends on permission, not the
// reverse).
type ProjectLookup struct {
	OrganizationID *idcodec.OrganizationID
	TeamID         idcodec.TeamID
}

// TeamMemberSource is satisfied by team.MemberRepository; declared locally
// so this package only depends on team for the Member value type.
type TeamMemberSource interface {
	Find(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) (*team.Member, error)
}

// Resolver computes effective permission bits. It holds only its
// collaborators: the membership source given to NewResolver and the
// optional organization-team resolver, so it can be backed by the Store in
// production and a fake in tests.
type Resolver struct {
	members  TeamMemberSource
	orgTeams OrganizationTeamResolver
}

func NewResolver(members TeamMemberSource) *Resolver {
	return &Resolver{members: members}
}

// ProjectPermissionsFor implements project_permissions exactly.
func (r *Resolver) ProjectPermissionsFor(ctx context.Context, principalRole user.SiteRole, principalID idcodec.UserID, proj ProjectLookup) (ProjectPermissions, error) {
	// Step 1: site role escalation.
	if principalRole.IsElevated() {
		return AllProjectPermissions, nil
	}

	directMember, err := r.members.Find(ctx, proj.TeamID, principalID)
	if err != nil && err != team.ErrMemberNotFound {
		return 0, err
	}

	// Step 2: direct ownership.
	if directMember != nil && directMember.IsOwner() {
		return AllProjectPermissions, nil
	}

	var bits ProjectPermissions
	var haveMembership bool

	// Step 3: organization-inherited ownership / fallback bits.
	if proj.OrganizationID != nil {
		orgTeamID, orgMember, err := r.organizationMember(ctx, *proj.OrganizationID, principalID)
		if err != nil {
			return 0, err
		}
		_ = orgTeamID
		if orgMember != nil {
			haveMembership = true
			if orgMember.IsOwner() {
				bits = AllProjectPermissions // 3a: inherited ownership
			} else {
				bits = ProjectPermissions(orgMember.ProjectBits()) // 3b: fallback bits
			}
		}
	}

	// Step 4: direct membership overrides organization defaults, but only
	// when accepted.
	if directMember != nil && directMember.Accepted() {
		haveMembership = true
		bits = ProjectPermissions(directMember.EffectiveProjectBits())
	}

	// Step 5: no membership at all.
	if !haveMembership {
		return 0, nil
	}
	return bits, nil
}

// organizationMember is a seam the application layer wires to the
// organization's team lookup; declared as a method so ProjectPermissionsFor
// stays a pure function of its inputs once wired (see OrganizationTeamResolver).
func (r *Resolver) organizationMember(ctx context.Context, orgID idcodec.OrganizationID, principalID idcodec.UserID) (idcodec.TeamID, *team.Member, error) {
	if r.orgTeams == nil {
		return 0, nil, nil
	}
	teamID, err := r.orgTeams.OrganizationTeamID(ctx, orgID)
	if err != nil {
		return 0, nil, err
	}
	m, err := r.members.Find(ctx, teamID, principalID)
	if err != nil {
		if err == team.ErrMemberNotFound {
			return teamID, nil, nil
		}
		return 0, nil, err
	}
	return teamID, m, nil
}

// OrganizationTeamResolver maps an OrganizationID to its Team, the one
// lookup the resolver needs beyond team membership.
type OrganizationTeamResolver interface {
	OrganizationTeamID(ctx context.Context, orgID idcodec.OrganizationID) (idcodec.TeamID, error)
}

// WithOrganizations attaches the org→team resolver; separated from
// NewResolver so tests can construct a Resolver with only a TeamMemberSource
// when organization inheritance is not under test.
func (r *Resolver) WithOrganizations(resolver OrganizationTeamResolver) *Resolver {
	r.orgTeams = resolver
	return r
}

// OrganizationPermissionsFor is the straight analog restricted to the
// organization's own team.
func (r *Resolver) OrganizationPermissionsFor(ctx context.Context, principalRole user.SiteRole, principalID idcodec.UserID, orgTeamID idcodec.TeamID) (OrganizationPermissions, error) {
	if principalRole.IsElevated() {
		return AllOrganizationPermissions, nil
	}
	m, err := r.members.Find(ctx, orgTeamID, principalID)
	if err != nil {
		if err == team.ErrMemberNotFound {
			return 0, nil
		}
		return 0, err
	}
	if m.IsOwner() {
		return AllOrganizationPermissions, nil
	}
	if !m.Accepted() {
		return 0, nil
	}
	bits, ok := m.EffectiveOrgBits()
	if !ok {
		return 0, nil
	}
	return OrganizationPermissions(bits), nil
}
