package team

import (
	"context"
	"testing"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

type fakeTeams struct{ assoc team.Association }

func (f *fakeTeams) Create(ctx context.Context, id idcodec.TeamID) (*team.Team, error) {
	return team.New(id), nil
}
func (f *fakeTeams) Delete(ctx context.Context, id idcodec.TeamID) error { return nil }
func (f *fakeTeams) Association(ctx context.Context, id idcodec.TeamID) (team.Association, error) {
	return f.assoc, nil
}
func (f *fakeTeams) LockForUpdate(ctx context.Context, id idcodec.TeamID) error { return nil }

type fakeMembers struct {
	byUser  map[idcodec.UserID]*team.Member
	adds    int
	updates int
	removes int
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byUser: make(map[idcodec.UserID]*team.Member)}
}

func (f *fakeMembers) Add(ctx context.Context, m *team.Member) error {
	if _, exists := f.byUser[m.UserID()]; exists {
		return team.ErrMemberAlreadyExists
	}
	f.adds++
	f.byUser[m.UserID()] = m
	return nil
}
func (f *fakeMembers) Update(ctx context.Context, m *team.Member) error {
	f.updates++
	f.byUser[m.UserID()] = m
	return nil
}
func (f *fakeMembers) Remove(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) error {
	f.removes++
	delete(f.byUser, userID)
	return nil
}
func (f *fakeMembers) Find(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) (*team.Member, error) {
	m, ok := f.byUser[userID]
	if !ok {
		return nil, team.ErrMemberNotFound
	}
	return m, nil
}
func (f *fakeMembers) FindOwner(ctx context.Context, teamID idcodec.TeamID) (*team.Member, error) {
	for _, m := range f.byUser {
		if m.IsOwner() {
			return m, nil
		}
	}
	return nil, team.ErrMemberNotFound
}
func (f *fakeMembers) ListByTeam(ctx context.Context, teamID idcodec.TeamID) ([]*team.Member, error) {
	out := make([]*team.Member, 0, len(f.byUser))
	for _, m := range f.byUser {
		out = append(out, m)
	}
	return out, nil
}
func (f *fakeMembers) ListByUser(ctx context.Context, userID idcodec.UserID) ([]*team.Member, error) {
	return nil, nil
}
func (f *fakeMembers) CountOwners(ctx context.Context, teamID idcodec.TeamID) (int, error) {
	return 1, nil
}

type fakeLogger struct{ errors int }

func (l *fakeLogger) Info(msg string, fields ...any)  {}
func (l *fakeLogger) Error(msg string, fields ...any) { l.errors++ }

// fakeTx runs fn inline against the same ctx, matching the no-real-database
// behavior every other fake repository here already assumes.
type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrgs struct{}

func (fakeOrgs) ListProjectIDs(ctx context.Context, id idcodec.OrganizationID) ([]idcodec.ProjectID, error) {
	return nil, nil
}

func newTestService() (*Service, *fakeMembers) {
	members := newFakeMembers()
	teams := &fakeTeams{assoc: team.Association{Kind: team.AssociationProject, OwnerProjectID: idcodec.ProjectID(1)}}
	resolver := permission.NewResolver(members)
	c := cache.New(cache.NewMemoryBackend())
	return NewService(teams, members, fakeOrgs{}, resolver, c, fakeTx{}, &fakeLogger{}), members
}

func owner(teamID idcodec.TeamID, userID idcodec.UserID) *team.Member {
	return team.Reconstruct(teamID, userID, team.ReservedOwnerRole, true, team.AllProjectBits, nil, true, 0, 0)
}

func TestInvite_RequiresManageInvitesBit(t *testing.T) {
	svc, members := newTestService()
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(1), "Contributor", uint64(permission.ProjectUploadVersion), nil)
	actor.Accept()
	members.byUser[1] = actor

	_, err := svc.Invite(context.Background(), idcodec.TeamID(1), idcodec.UserID(2), uint64(permission.ProjectUploadVersion), nil, actor)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Invite without MANAGE_INVITES = %v; want insufficient_permission", err)
	}
}

func TestInvite_CannotGrantBitsActorLacks(t *testing.T) {
	svc, members := newTestService()
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(1), "Contributor", uint64(permission.ProjectManageInvites), nil)
	actor.Accept()
	members.byUser[1] = actor

	_, err := svc.Invite(context.Background(), idcodec.TeamID(1), idcodec.UserID(2), uint64(permission.ProjectUploadVersion), nil, actor)
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("Invite granting an unheld bit = %v; want invalid_input", err)
	}
}

func TestInvite_SucceedsWithinActorsBits(t *testing.T) {
	svc, members := newTestService()
	grantedBits := permission.ProjectManageInvites | permission.ProjectUploadVersion
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(1), "Contributor", uint64(grantedBits), nil)
	actor.Accept()
	members.byUser[1] = actor

	m, err := svc.Invite(context.Background(), idcodec.TeamID(1), idcodec.UserID(2), uint64(permission.ProjectUploadVersion), nil, actor)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if m.Accepted() {
		t.Error("a freshly invited member must not start accepted")
	}
	if members.adds != 1 {
		t.Errorf("adds = %d; want 1", members.adds)
	}
}

func TestEditMember_CannotEditOwnerRowUnlessActorIsOwner(t *testing.T) {
	svc, members := newTestService()
	own := owner(idcodec.TeamID(1), idcodec.UserID(1))
	members.byUser[1] = own
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", uint64(permission.ProjectEditMember), nil)
	actor.Accept()
	members.byUser[2] = actor

	err := svc.EditMember(context.Background(), idcodec.TeamID(1), idcodec.UserID(1), MemberPatch{}, actor)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("EditMember on the owner row by a non-owner = %v; want insufficient_permission", err)
	}
}

func TestEditMember_RejectsSettingReservedOwnerRole(t *testing.T) {
	svc, members := newTestService()
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(1), "Contributor", uint64(permission.ProjectEditMember), nil)
	actor.Accept()
	members.byUser[1] = actor
	target, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", 0, nil)
	target.Accept()
	members.byUser[2] = target

	reserved := team.ReservedOwnerRole
	err := svc.EditMember(context.Background(), idcodec.TeamID(1), idcodec.UserID(2), MemberPatch{Role: &reserved}, actor)
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("EditMember setting role=Owner = %v; want invalid_input", err)
	}
}

func TestEditMember_CannotRaiseBitsAboveActor(t *testing.T) {
	svc, members := newTestService()
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(1), "Contributor", uint64(permission.ProjectEditMember), nil)
	actor.Accept()
	members.byUser[1] = actor
	target, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", 0, nil)
	target.Accept()
	members.byUser[2] = target

	newBits := uint64(permission.ProjectUploadVersion)
	err := svc.EditMember(context.Background(), idcodec.TeamID(1), idcodec.UserID(2), MemberPatch{ProjectBits: &newBits}, actor)
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("EditMember raising bits above the actor's own = %v; want invalid_input", err)
	}
}

func TestRemove_CannotRemoveOwner(t *testing.T) {
	svc, members := newTestService()
	own := owner(idcodec.TeamID(1), idcodec.UserID(1))
	members.byUser[1] = own
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", uint64(permission.ProjectRemoveMember), nil)
	actor.Accept()
	members.byUser[2] = actor

	err := svc.Remove(context.Background(), idcodec.TeamID(1), idcodec.UserID(1), actor)
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("Remove targeting the owner = %v; want invalid_input", err)
	}
}

func TestRemove_SucceedsForNonOwner(t *testing.T) {
	svc, members := newTestService()
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(1), "Contributor", uint64(permission.ProjectRemoveMember), nil)
	actor.Accept()
	members.byUser[1] = actor
	target, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", 0, nil)
	target.Accept()
	members.byUser[2] = target

	if err := svc.Remove(context.Background(), idcodec.TeamID(1), idcodec.UserID(2), actor); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if members.removes != 1 {
		t.Errorf("removes = %d; want 1", members.removes)
	}
}

func TestTransferOwnership_RequiresActorBeOwner(t *testing.T) {
	svc, members := newTestService()
	actor, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(1), "Contributor", team.AllProjectBits, nil)
	actor.Accept()
	members.byUser[1] = actor
	target, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", 0, nil)
	target.Accept()
	members.byUser[2] = target

	err := svc.TransferOwnership(context.Background(), idcodec.TeamID(1), actor, idcodec.UserID(2))
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("TransferOwnership by a non-owner = %v; want insufficient_permission", err)
	}
}

func TestTransferOwnership_NewOwnerMustBeAcceptedMember(t *testing.T) {
	svc, members := newTestService()
	own := owner(idcodec.TeamID(1), idcodec.UserID(1))
	members.byUser[1] = own
	target, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", 0, nil)
	// not accepted
	members.byUser[2] = target

	err := svc.TransferOwnership(context.Background(), idcodec.TeamID(1), own, idcodec.UserID(2))
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("TransferOwnership to an unaccepted member = %v; want invalid_input", err)
	}
}

func TestTransferOwnership_SwapsOwnerFlag(t *testing.T) {
	svc, members := newTestService()
	own := owner(idcodec.TeamID(1), idcodec.UserID(1))
	members.byUser[1] = own
	target, _ := team.NewMember(idcodec.TeamID(1), idcodec.UserID(2), "Contributor", 0, nil)
	target.Accept()
	members.byUser[2] = target

	if err := svc.TransferOwnership(context.Background(), idcodec.TeamID(1), own, idcodec.UserID(2)); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if members.byUser[1].IsOwner() {
		t.Error("the prior owner must no longer be owner")
	}
	if !members.byUser[2].IsOwner() {
		t.Error("the new owner must now be owner")
	}
	if members.byUser[1].ProjectBits() != team.AllProjectBits {
		t.Error("the prior owner keeps full project bits as a plain member")
	}
}
