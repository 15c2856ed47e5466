package permission

import (
	"context"
	"testing"

	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

type fakeMembers struct {
	byTeam map[idcodec.TeamID]map[idcodec.UserID]*team.Member
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byTeam: make(map[idcodec.TeamID]map[idcodec.UserID]*team.Member)}
}

func (f *fakeMembers) add(m *team.Member) {
	if f.byTeam[m.TeamID()] == nil {
		f.byTeam[m.TeamID()] = make(map[idcodec.UserID]*team.Member)
	}
	f.byTeam[m.TeamID()][m.UserID()] = m
}

func (f *fakeMembers) Find(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) (*team.Member, error) {
	m, ok := f.byTeam[teamID][userID]
	if !ok {
		return nil, team.ErrMemberNotFound
	}
	return m, nil
}

type fakeOrgTeams struct {
	byOrg map[idcodec.OrganizationID]idcodec.TeamID
}

func (f *fakeOrgTeams) OrganizationTeamID(ctx context.Context, orgID idcodec.OrganizationID) (idcodec.TeamID, error) {
	return f.byOrg[orgID], nil
}

func TestProjectPermissionsFor_ElevatedSiteRoleGetsAllBits(t *testing.T) {
	r := NewResolver(newFakeMembers())
	bits, err := r.ProjectPermissionsFor(context.Background(), user.RoleAdmin, idcodec.UserID(1), ProjectLookup{TeamID: idcodec.TeamID(1)})
	if err != nil {
		t.Fatalf("ProjectPermissionsFor: %v", err)
	}
	if !bits.IsAll() {
		t.Errorf("bits = %b; want AllProjectPermissions", bits)
	}
}

func TestProjectPermissionsFor_DirectOwnerGetsAllBits(t *testing.T) {
	members := newFakeMembers()
	owner := team.Reconstruct(idcodec.TeamID(1), idcodec.UserID(2), "Owner", true, 0, nil, true, 0, 0)
	members.add(owner)

	r := NewResolver(members)
	bits, err := r.ProjectPermissionsFor(context.Background(), user.RoleDeveloper, idcodec.UserID(2), ProjectLookup{TeamID: idcodec.TeamID(1)})
	if err != nil {
		t.Fatalf("ProjectPermissionsFor: %v", err)
	}
	if !bits.IsAll() {
		t.Errorf("bits = %b; want AllProjectPermissions", bits)
	}
}

func TestProjectPermissionsFor_DirectMemberOverridesOrgDefault(t *testing.T) {
	members := newFakeMembers()
	member, err := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", uint64(ProjectUploadVersion), nil)
	if err != nil {
		t.Fatalf("NewMember: %v", err)
	}
	member.Accept()
	members.add(member)

	orgID := idcodec.OrganizationID(9)
	orgTeamID := idcodec.TeamID(5)
	orgBits := uint64(ProjectEditDetails)
	orgMember, err := team.NewMember(orgTeamID, idcodec.UserID(2), "Contributor", orgBits, &orgBits)
	if err != nil {
		t.Fatalf("NewMember (org): %v", err)
	}
	orgMember.Accept()
	members.add(orgMember)

	r := NewResolver(members).WithOrganizations(&fakeOrgTeams{byOrg: map[idcodec.OrganizationID]idcodec.TeamID{orgID: orgTeamID}})
	bits, err := r.ProjectPermissionsFor(context.Background(), user.RoleDeveloper, idcodec.UserID(2), ProjectLookup{OrganizationID: &orgID, TeamID: idcodec.TeamID(1)})
	if err != nil {
		t.Fatalf("ProjectPermissionsFor: %v", err)
	}
	if !bits.Has(ProjectUploadVersion) {
		t.Error("expected direct membership's UploadVersion bit")
	}
	if bits.Has(ProjectEditDetails) {
		t.Error("direct membership should override the organization's default bits entirely, not merge with them")
	}
}

func TestProjectPermissionsFor_OrgInheritedOwnershipWhenNoDirectMembership(t *testing.T) {
	members := newFakeMembers()
	orgID := idcodec.OrganizationID(9)
	orgTeamID := idcodec.TeamID(5)
	orgOwner := team.Reconstruct(orgTeamID, idcodec.UserID(3), "Owner", true, 0, nil, true, 0, 0)
	members.add(orgOwner)

	r := NewResolver(members).WithOrganizations(&fakeOrgTeams{byOrg: map[idcodec.OrganizationID]idcodec.TeamID{orgID: orgTeamID}})
	bits, err := r.ProjectPermissionsFor(context.Background(), user.RoleDeveloper, idcodec.UserID(3), ProjectLookup{OrganizationID: &orgID, TeamID: idcodec.TeamID(1)})
	if err != nil {
		t.Fatalf("ProjectPermissionsFor: %v", err)
	}
	if !bits.IsAll() {
		t.Errorf("bits = %b; want AllProjectPermissions via organization-inherited ownership", bits)
	}
}

func TestProjectPermissionsFor_NoMembershipReturnsZero(t *testing.T) {
	r := NewResolver(newFakeMembers())
	bits, err := r.ProjectPermissionsFor(context.Background(), user.RoleDeveloper, idcodec.UserID(99), ProjectLookup{TeamID: idcodec.TeamID(1)})
	if err != nil {
		t.Fatalf("ProjectPermissionsFor: %v", err)
	}
	if !bits.IsEmpty() {
		t.Errorf("bits = %b; want 0", bits)
	}
}

func TestProjectPermissionsFor_UnacceptedInviteGrantsNoBits(t *testing.T) {
	members := newFakeMembers()
	member, err := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", uint64(ProjectUploadVersion), nil)
	if err != nil {
		t.Fatalf("NewMember: %v", err)
	}
	members.add(member) // not accepted

	r := NewResolver(members)
	bits, err := r.ProjectPermissionsFor(context.Background(), user.RoleDeveloper, idcodec.UserID(2), ProjectLookup{TeamID: idcodec.TeamID(1)})
	if err != nil {
		t.Fatalf("ProjectPermissionsFor: %v", err)
	}
	if !bits.IsEmpty() {
		t.Errorf("bits = %b; want 0 for an unaccepted invite", bits)
	}
}
