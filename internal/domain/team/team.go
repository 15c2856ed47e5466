// Package team holds Team and TeamMember: the shared membership primitive
// underneath both Project and Organization. A Team carries no data of its
// own beyond its association — the derived fact that it belongs to exactly
// one Project XOR exactly one Organization.
package team

import (
	"github.com/modhub/platform/internal/idcodec"
)

// AssociationKind tags which entity a Team belongs to.
type AssociationKind string

const (
	AssociationProject      AssociationKind = "project"
	AssociationOrganization AssociationKind = "organization"
)

// Association tags a Team as belonging to a Project or an Organization.
// Exactly one of OwnerProjectID/OwnerOrgID is set, matching Kind.
type Association struct {
	Kind  AssociationKind
	OwnerProjectID idcodec.ProjectID
	OwnerOrgID     idcodec.OrganizationID
}

// Team is just an id; its association is resolved at read time via Store
// rather than stored as a redundant back-pointer.
type Team struct {
	id idcodec.TeamID
}

func New(id idcodec.TeamID) *Team { return &Team{id: id} }

func (t *Team) ID() idcodec.TeamID { return t.id }

// MemberRole is a free-text display label; "Owner" is reserved for the sole
// is_owner member and may not be assigned to any other row.
type MemberRole string

const ReservedOwnerRole MemberRole = "Owner"

// Member is a (team, user) edge carrying both permission bitsets — only the
// organization-bits field is meaningful when the team is an organization
// team (ProjectPermissions is always populated; it doubles as the
// organization's fallback project-permission bits step 3b).
type Member struct {
	teamID           idcodec.TeamID
	userID           idcodec.UserID
	role             MemberRole
	isOwner          bool
	projectBits      uint64
	orgBits          *uint64 // non-nil only when the team is an organization team
	accepted         bool
	payoutsSplit     int // basis points-like integer in [0, 5000]
	ordering         int
}

func NewMember(teamID idcodec.TeamID, userID idcodec.UserID, role MemberRole, projectBits uint64, orgBits *uint64) (*Member, error) {
	if role == ReservedOwnerRole {
		return nil, ErrReservedRole
	}
	return &Member{
		teamID:      teamID,
		userID:      userID,
		role:        role,
		projectBits: projectBits,
		orgBits:     orgBits,
	}, nil
}

func Reconstruct(teamID idcodec.TeamID, userID idcodec.UserID, role MemberRole, isOwner bool, projectBits uint64, orgBits *uint64, accepted bool, payoutsSplit, ordering int) *Member {
	return &Member{
		teamID: teamID, userID: userID, role: role, isOwner: isOwner,
		projectBits: projectBits, orgBits: orgBits, accepted: accepted,
		payoutsSplit: payoutsSplit, ordering: ordering,
	}
}

func (m *Member) TeamID() idcodec.TeamID    { return m.teamID }
func (m *Member) UserID() idcodec.UserID    { return m.userID }
func (m *Member) Role() MemberRole          { return m.role }
func (m *Member) IsOwner() bool             { return m.isOwner }
func (m *Member) ProjectBits() uint64       { return m.projectBits }
func (m *Member) OrgBits() (uint64, bool) {
	if m.orgBits == nil {
		return 0, false
	}
	return *m.orgBits, true
}
func (m *Member) Accepted() bool  { return m.accepted }
func (m *Member) PayoutsSplit() int { return m.payoutsSplit }
func (m *Member) Ordering() int     { return m.ordering }

func (m *Member) Accept() { m.accepted = true }

// SetPayoutsSplit validates the [0, 5000] basis-point boundary.
func (m *Member) SetPayoutsSplit(split int) error {
	if split < 0 || split > 5000 {
		return ErrInvalidPayoutsSplit
	}
	m.payoutsSplit = split
	return nil
}

// MakeOwner promotes the member to team owner: full project bits, full org
// bits if it held any org bits at all, and the reserved Owner role. Exported
// for TeamService.TransferOwnership to call directly; it bypasses the
// normal bit-intersection check EditMember enforces, so no other caller
// should use it.
func (m *Member) MakeOwner() {
	m.isOwner = true
	m.role = ReservedOwnerRole
	m.projectBits = AllProjectBits
	if m.orgBits != nil {
		all := AllOrgBits
		m.orgBits = &all
	}
	m.accepted = true
}

// ClearOwner demotes the member to a plain (non-owner) holder of every
// project bit it already effectively held as owner, the transfer_ownership
// guarantee that the outgoing owner loses only its owner flag, not its
// access.
func (m *Member) ClearOwner() {
	m.isOwner = false
	m.projectBits = AllProjectBits
	m.accepted = true
}

// EffectiveProjectBits returns AllProjectBits when the member is the owner,
// regardless of the stored bitset.
func (m *Member) EffectiveProjectBits() uint64 {
	if m.isOwner {
		return AllProjectBits
	}
	return m.projectBits
}

func (m *Member) EffectiveOrgBits() (uint64, bool) {
	if m.orgBits == nil {
		return 0, false
	}
	if m.isOwner {
		return AllOrgBits, true
	}
	return *m.orgBits, true
}

// These mirror the full bitsets defined in internal/permission, duplicated
// here (not imported) to avoid a domain→permission import cycle: permission
// imports team for Member, not the reverse.
const (
	AllProjectBits uint64 = (1 << 10) - 1
	AllOrgBits     uint64 = (1 << 8) - 1
)
