package project

import (
	"context"
	"testing"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

type fakeProjects struct {
	byID  map[idcodec.ProjectID]*project.Project
	bySlug map[string]bool
	deletes int
}

func newFakeProjects(p *project.Project) *fakeProjects {
	return &fakeProjects{byID: map[idcodec.ProjectID]*project.Project{p.ID(): p}, bySlug: map[string]bool{p.Slug(): true}}
}

func (f *fakeProjects) Create(ctx context.Context, p *project.Project) error { return nil }
func (f *fakeProjects) Update(ctx context.Context, p *project.Project) error {
	f.byID[p.ID()] = p
	return nil
}
func (f *fakeProjects) Delete(ctx context.Context, id idcodec.ProjectID) error {
	f.deletes++
	delete(f.byID, id)
	return nil
}
func (f *fakeProjects) FindByID(ctx context.Context, id idcodec.ProjectID) (*project.Project, error) {
	return f.byID[id], nil
}
func (f *fakeProjects) FindBySlug(ctx context.Context, slug string) (*project.Project, error) {
	return nil, nil
}
func (f *fakeProjects) FindManyByID(ctx context.Context, ids []idcodec.ProjectID) ([]*project.Project, error) {
	return nil, nil
}
func (f *fakeProjects) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return f.bySlug[slug], nil
}
func (f *fakeProjects) ExistsByID(ctx context.Context, id idcodec.ProjectID) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}
func (f *fakeProjects) ListByOrganization(ctx context.Context, orgID idcodec.OrganizationID) ([]*project.Project, error) {
	return nil, nil
}
func (f *fakeProjects) LockForUpdate(ctx context.Context, id idcodec.ProjectID) error { return nil }

type fakeVersionLister struct{ versions []*version.Version }

func (f *fakeVersionLister) ListByProject(ctx context.Context, projectID idcodec.ProjectID) ([]*version.Version, error) {
	return f.versions, nil
}

type fakeTeams struct{ deletes int }

func (f *fakeTeams) Create(ctx context.Context, id idcodec.TeamID) (*team.Team, error) { return nil, nil }
func (f *fakeTeams) Delete(ctx context.Context, id idcodec.TeamID) error {
	f.deletes++
	return nil
}
func (f *fakeTeams) Association(ctx context.Context, id idcodec.TeamID) (team.Association, error) {
	return team.Association{}, nil
}
func (f *fakeTeams) LockForUpdate(ctx context.Context, id idcodec.TeamID) error { return nil }

type fakeMembers struct{ byTeam map[idcodec.TeamID][]*team.Member }

func (f *fakeMembers) Add(ctx context.Context, m *team.Member) error { return nil }
func (f *fakeMembers) Update(ctx context.Context, m *team.Member) error { return nil }
func (f *fakeMembers) Remove(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) error {
	return nil
}
func (f *fakeMembers) Find(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) (*team.Member, error) {
	for _, m := range f.byTeam[teamID] {
		if m.UserID() == userID {
			return m, nil
		}
	}
	return nil, team.ErrMemberNotFound
}
func (f *fakeMembers) FindOwner(ctx context.Context, teamID idcodec.TeamID) (*team.Member, error) {
	return nil, nil
}
func (f *fakeMembers) ListByTeam(ctx context.Context, teamID idcodec.TeamID) ([]*team.Member, error) {
	return f.byTeam[teamID], nil
}
func (f *fakeMembers) ListByUser(ctx context.Context, userID idcodec.UserID) ([]*team.Member, error) {
	return nil, nil
}
func (f *fakeMembers) CountOwners(ctx context.Context, teamID idcodec.TeamID) (int, error) {
	return 1, nil
}

type fakeFollows struct{ following map[idcodec.UserID]bool }

func newFakeFollows() *fakeFollows { return &fakeFollows{following: make(map[idcodec.UserID]bool)} }

func (f *fakeFollows) Follow(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (bool, error) {
	already := f.following[userID]
	f.following[userID] = true
	return already, nil
}
func (f *fakeFollows) Unfollow(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (bool, error) {
	was := f.following[userID]
	delete(f.following, userID)
	return was, nil
}
func (f *fakeFollows) IsFollowing(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (bool, error) {
	return f.following[userID], nil
}

type fakeLogger struct{ errors int }

func (l *fakeLogger) Info(msg string, fields ...any)  {}
func (l *fakeLogger) Error(msg string, fields ...any) { l.errors++ }

func newApprovedProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.New(idcodec.ProjectID(1), "test-project", "Test Project", idcodec.TeamID(1))
	if err != nil {
		t.Fatalf("project.New: %v", err)
	}
	if err := p.RequestStatusTransition(project.StatusApproved, true); err != nil {
		t.Fatalf("RequestStatusTransition: %v", err)
	}
	return p
}

func newTestService(t *testing.T, p *project.Project) (*Service, *fakeProjects, *fakeTeams, *fakeFollows) {
	t.Helper()
	projects := newFakeProjects(p)
	teams := &fakeTeams{}
	members := &fakeMembers{byTeam: make(map[idcodec.TeamID][]*team.Member)}
	follows := newFakeFollows()
	resolver := permission.NewResolver(members)
	c := cache.New(cache.NewMemoryBackend())
	svc := NewService(projects, &fakeVersionLister{}, teams, members, follows, resolver, c, nil, &fakeLogger{})
	return svc, projects, teams, follows
}

func TestRead_VisibleProjectReturnsAggregate(t *testing.T) {
	p := newApprovedProject(t)
	svc, _, _, _ := newTestService(t, p)

	agg, err := svc.Read(context.Background(), p, user.RoleDeveloper, idcodec.UserID(99))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if agg.Project != p {
		t.Error("expected the aggregate to wrap the same project")
	}
}

func TestRead_DraftProjectReportsNotFoundToOutsider(t *testing.T) {
	p, err := project.New(idcodec.ProjectID(2), "draft-project", "Draft Project", idcodec.TeamID(1))
	if err != nil {
		t.Fatalf("project.New: %v", err)
	}
	svc, _, _, _ := newTestService(t, p)

	_, err = svc.Read(context.Background(), p, user.RoleDeveloper, idcodec.UserID(99))
	if !apierror.Is(err, apierror.KindNotFound) {
		t.Fatalf("Read of a non-visible draft = %v; want not_found (existence must not leak)", err)
	}
}

func TestEdit_RequiresEditDetailsBit(t *testing.T) {
	p := newApprovedProject(t)
	svc, _, _, _ := newTestService(t, p)

	newName := "Renamed"
	err := svc.Edit(context.Background(), p, Patch{Name: &newName}, 0, user.RoleDeveloper)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Edit without EDIT_DETAILS = %v; want insufficient_permission", err)
	}
}

func TestEdit_SucceedsWithEditDetailsBit(t *testing.T) {
	p := newApprovedProject(t)
	svc, projects, _, _ := newTestService(t, p)

	newName := "Renamed"
	err := svc.Edit(context.Background(), p, Patch{Name: &newName}, permission.ProjectEditDetails, user.RoleDeveloper)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if p.Name() != "Renamed" {
		t.Errorf("project name = %q; want %q", p.Name(), "Renamed")
	}
	if _, ok := projects.byID[p.ID()]; !ok {
		t.Error("expected the project to be persisted")
	}
}

func TestEdit_StatusTransitionRequiresModeratorRole(t *testing.T) {
	p := newApprovedProject(t)
	svc, _, _, _ := newTestService(t, p)

	rejected := project.StatusRejected
	err := svc.Edit(context.Background(), p, Patch{Status: &rejected}, permission.AllProjectPermissions, user.RoleDeveloper)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Edit with moderator-only status transition from a non-elevated role = %v; want insufficient_permission", err)
	}
}

func TestDelete_RequiresDeleteProjectBit(t *testing.T) {
	p := newApprovedProject(t)
	svc, _, _, _ := newTestService(t, p)

	err := svc.Delete(context.Background(), p, 0)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Delete without DELETE_PROJECT = %v; want insufficient_permission", err)
	}
}

func TestDelete_CascadesToTeam(t *testing.T) {
	p := newApprovedProject(t)
	svc, projects, teams, _ := newTestService(t, p)

	if err := svc.Delete(context.Background(), p, permission.ProjectDeleteProject); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if projects.deletes != 1 {
		t.Errorf("project deletes = %d; want 1", projects.deletes)
	}
	if teams.deletes != 1 {
		t.Errorf("team deletes = %d; want 1", teams.deletes)
	}
}

func TestFollowUnfollow_TracksCountOnce(t *testing.T) {
	p := newApprovedProject(t)
	svc, _, _, follows := newTestService(t, p)
	userID := idcodec.UserID(7)

	if err := svc.Follow(context.Background(), p, userID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if p.Follows() != 1 {
		t.Errorf("follows = %d; want 1", p.Follows())
	}
	// Following again must not double-count.
	if err := svc.Follow(context.Background(), p, userID); err != nil {
		t.Fatalf("Follow (again): %v", err)
	}
	if p.Follows() != 1 {
		t.Errorf("follows after a duplicate follow = %d; want 1", p.Follows())
	}

	if err := svc.Unfollow(context.Background(), p, userID); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if p.Follows() != 0 {
		t.Errorf("follows after unfollow = %d; want 0", p.Follows())
	}
	if follows.following[userID] {
		t.Error("expected the follow relation to be removed")
	}
}
