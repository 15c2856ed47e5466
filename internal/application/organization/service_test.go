package organization

import (
	"context"
	"testing"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/organization"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

type fakeOrgs struct {
	byID    map[idcodec.OrganizationID]*organization.Organization
	bySlug  map[string]bool
	projects map[idcodec.OrganizationID][]idcodec.ProjectID
	deletes int
}

func newFakeOrgs() *fakeOrgs {
	return &fakeOrgs{
		byID:     make(map[idcodec.OrganizationID]*organization.Organization),
		bySlug:   make(map[string]bool),
		projects: make(map[idcodec.OrganizationID][]idcodec.ProjectID),
	}
}

func (f *fakeOrgs) Create(ctx context.Context, o *organization.Organization) error {
	f.byID[o.ID()] = o
	f.bySlug[o.Slug()] = true
	return nil
}
func (f *fakeOrgs) Update(ctx context.Context, o *organization.Organization) error {
	f.byID[o.ID()] = o
	return nil
}
func (f *fakeOrgs) Delete(ctx context.Context, id idcodec.OrganizationID) error {
	f.deletes++
	delete(f.byID, id)
	return nil
}
func (f *fakeOrgs) FindByID(ctx context.Context, id idcodec.OrganizationID) (*organization.Organization, error) {
	return f.byID[id], nil
}
func (f *fakeOrgs) FindBySlug(ctx context.Context, slug string) (*organization.Organization, error) {
	return nil, nil
}
func (f *fakeOrgs) FindManyByID(ctx context.Context, ids []idcodec.OrganizationID) ([]*organization.Organization, error) {
	return nil, nil
}
func (f *fakeOrgs) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return f.bySlug[slug], nil
}
func (f *fakeOrgs) ListProjectIDs(ctx context.Context, id idcodec.OrganizationID) ([]idcodec.ProjectID, error) {
	return f.projects[id], nil
}

type fakeProjects struct{ byID map[idcodec.ProjectID]*project.Project }

func newFakeProjects() *fakeProjects { return &fakeProjects{byID: make(map[idcodec.ProjectID]*project.Project)} }

func (f *fakeProjects) Create(ctx context.Context, p *project.Project) error { return nil }
func (f *fakeProjects) Update(ctx context.Context, p *project.Project) error {
	f.byID[p.ID()] = p
	return nil
}
func (f *fakeProjects) Delete(ctx context.Context, id idcodec.ProjectID) error { return nil }
func (f *fakeProjects) FindByID(ctx context.Context, id idcodec.ProjectID) (*project.Project, error) {
	return f.byID[id], nil
}
func (f *fakeProjects) FindBySlug(ctx context.Context, slug string) (*project.Project, error) {
	return nil, nil
}
func (f *fakeProjects) FindManyByID(ctx context.Context, ids []idcodec.ProjectID) ([]*project.Project, error) {
	return nil, nil
}
func (f *fakeProjects) ExistsBySlug(ctx context.Context, slug string) (bool, error) { return false, nil }
func (f *fakeProjects) ExistsByID(ctx context.Context, id idcodec.ProjectID) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}
func (f *fakeProjects) ListByOrganization(ctx context.Context, orgID idcodec.OrganizationID) ([]*project.Project, error) {
	return nil, nil
}
func (f *fakeProjects) LockForUpdate(ctx context.Context, id idcodec.ProjectID) error { return nil }

type fakeTeams struct{ deletes int }

func (f *fakeTeams) Create(ctx context.Context, id idcodec.TeamID) (*team.Team, error) {
	return team.New(id), nil
}
func (f *fakeTeams) Delete(ctx context.Context, id idcodec.TeamID) error {
	f.deletes++
	return nil
}
func (f *fakeTeams) Association(ctx context.Context, id idcodec.TeamID) (team.Association, error) {
	return team.Association{}, nil
}
func (f *fakeTeams) LockForUpdate(ctx context.Context, id idcodec.TeamID) error { return nil }

type fakeMembers struct {
	byTeam map[idcodec.TeamID]map[idcodec.UserID]*team.Member
	adds   int
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byTeam: make(map[idcodec.TeamID]map[idcodec.UserID]*team.Member)}
}

func (f *fakeMembers) put(m *team.Member) {
	if f.byTeam[m.TeamID()] == nil {
		f.byTeam[m.TeamID()] = make(map[idcodec.UserID]*team.Member)
	}
	f.byTeam[m.TeamID()][m.UserID()] = m
}

func (f *fakeMembers) Add(ctx context.Context, m *team.Member) error {
	f.adds++
	f.put(m)
	return nil
}
func (f *fakeMembers) Update(ctx context.Context, m *team.Member) error {
	f.put(m)
	return nil
}
func (f *fakeMembers) Remove(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) error {
	delete(f.byTeam[teamID], userID)
	return nil
}
func (f *fakeMembers) Find(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) (*team.Member, error) {
	m, ok := f.byTeam[teamID][userID]
	if !ok {
		return nil, team.ErrMemberNotFound
	}
	return m, nil
}
func (f *fakeMembers) FindOwner(ctx context.Context, teamID idcodec.TeamID) (*team.Member, error) {
	for _, m := range f.byTeam[teamID] {
		if m.IsOwner() {
			return m, nil
		}
	}
	return nil, team.ErrMemberNotFound
}
func (f *fakeMembers) ListByTeam(ctx context.Context, teamID idcodec.TeamID) ([]*team.Member, error) {
	out := make([]*team.Member, 0, len(f.byTeam[teamID]))
	for _, m := range f.byTeam[teamID] {
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

type fakeSeq struct{ next uint64 }

func (f *fakeSeq) NextValue(ctx context.Context, kind string) (uint64, error) {
	f.next++
	return f.next, nil
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

func newTestService() (*Service, *fakeOrgs, *fakeProjects, *fakeTeams, *fakeMembers) {
	orgs := newFakeOrgs()
	projects := newFakeProjects()
	teams := &fakeTeams{}
	members := newFakeMembers()
	resolver := permission.NewResolver(members)
	c := cache.New(cache.NewMemoryBackend())
	svc := NewService(orgs, projects, teams, members, &fakeSeq{}, resolver, c, fakeTx{}, &fakeLogger{})
	return svc, orgs, projects, teams, members
}

func TestCreate_RejectsTakenSlug(t *testing.T) {
	svc, orgs, _, _, _ := newTestService()
	orgs.bySlug["taken"] = true

	_, err := svc.Create(context.Background(), "taken", "Taken Org", "desc", idcodec.UserID(1))
	if !apierror.Is(err, apierror.KindConflict) {
		t.Fatalf("Create with a taken slug = %v; want conflict", err)
	}
}

func TestCreate_SeatsCreatorAsOwner(t *testing.T) {
	svc, _, _, _, members := newTestService()

	org, err := svc.Create(context.Background(), "my-org", "My Org", "desc", idcodec.UserID(7))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	owner, err := members.Find(context.Background(), org.TeamID(), idcodec.UserID(7))
	if err != nil {
		t.Fatalf("expected the creator to be seated as a team member: %v", err)
	}
	if !owner.IsOwner() {
		t.Error("the creator must be seated as owner")
	}
}

func newApprovedProject(t *testing.T, id idcodec.ProjectID, teamID idcodec.TeamID) *project.Project {
	t.Helper()
	p, err := project.New(id, "proj", "Proj", teamID)
	if err != nil {
		t.Fatalf("project.New: %v", err)
	}
	return p
}

func TestAdopt_RequiresDirectOwnershipOrElevatedRole(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	p := newApprovedProject(t, idcodec.ProjectID(1), idcodec.TeamID(1))
	org, err := organization.New(idcodec.OrganizationID(1), "org", "Org", "desc", idcodec.TeamID(2))
	if err != nil {
		t.Fatalf("organization.New: %v", err)
	}
	actor, err := user.New(idcodec.UserID(1), "alice", "")
	if err != nil {
		t.Fatalf("user.New: %v", err)
	}

	err = svc.Adopt(context.Background(), p, org, actor, nil, uint64(permission.OrgAddProject))
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Adopt without direct ownership = %v; want insufficient_permission", err)
	}
}

func TestAdopt_RequiresAddProjectBit(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	p := newApprovedProject(t, idcodec.ProjectID(1), idcodec.TeamID(1))
	org, err := organization.New(idcodec.OrganizationID(1), "org", "Org", "desc", idcodec.TeamID(2))
	if err != nil {
		t.Fatalf("organization.New: %v", err)
	}
	actor, err := user.New(idcodec.UserID(1), "alice", "")
	if err != nil {
		t.Fatalf("user.New: %v", err)
	}
	own := team.Reconstruct(p.TeamID(), idcodec.UserID(1), team.ReservedOwnerRole, true, team.AllProjectBits, nil, true, 0, 0)

	err = svc.Adopt(context.Background(), p, org, actor, own, 0)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Adopt without ADD_PROJECT = %v; want insufficient_permission", err)
	}
}

func TestAdopt_RejectsAlreadyAdopted(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	p := newApprovedProject(t, idcodec.ProjectID(1), idcodec.TeamID(1))
	orgID := idcodec.OrganizationID(5)
	p.AdoptInto(orgID)
	org, err := organization.New(orgID, "org", "Org", "desc", idcodec.TeamID(2))
	if err != nil {
		t.Fatalf("organization.New: %v", err)
	}
	actor, err := user.New(idcodec.UserID(1), "alice", "")
	if err != nil {
		t.Fatalf("user.New: %v", err)
	}
	own := team.Reconstruct(p.TeamID(), idcodec.UserID(1), team.ReservedOwnerRole, true, team.AllProjectBits, nil, true, 0, 0)

	err = svc.Adopt(context.Background(), p, org, actor, own, uint64(permission.OrgAddProject))
	if !apierror.Is(err, apierror.KindPreconditionViolated) {
		t.Fatalf("Adopt of an already-adopted project = %v; want precondition_violated", err)
	}
}

func TestDelete_RequiresDeleteOrganizationBit(t *testing.T) {
	svc, _, _, _, members := newTestService()
	org, err := organization.New(idcodec.OrganizationID(1), "org", "Org", "desc", idcodec.TeamID(2))
	if err != nil {
		t.Fatalf("organization.New: %v", err)
	}
	members.put(team.Reconstruct(org.TeamID(), idcodec.UserID(1), team.ReservedOwnerRole, true, team.AllProjectBits, nil, true, 0, 0))

	err = svc.Delete(context.Background(), org, 0)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Delete without DELETE_ORGANIZATION = %v; want insufficient_permission", err)
	}
}

func TestDelete_MaterializesOwnershipOntoProjects(t *testing.T) {
	svc, orgs, projects, teams, members := newTestService()
	org, err := organization.New(idcodec.OrganizationID(1), "org", "Org", "desc", idcodec.TeamID(2))
	if err != nil {
		t.Fatalf("organization.New: %v", err)
	}
	orgOwner := team.Reconstruct(org.TeamID(), idcodec.UserID(9), team.ReservedOwnerRole, true, team.AllProjectBits, nil, true, 0, 0)
	members.put(orgOwner)

	p := newApprovedProject(t, idcodec.ProjectID(1), idcodec.TeamID(1))
	p.AdoptInto(org.ID())
	projects.byID[p.ID()] = p
	orgs.projects[org.ID()] = []idcodec.ProjectID{p.ID()}

	if err := svc.Delete(context.Background(), org, uint64(permission.OrgDeleteOrganization)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if p.IsInOrganization() {
		t.Error("expected the project to be released from the organization")
	}
	materialized, err := members.Find(context.Background(), p.TeamID(), idcodec.UserID(9))
	if err != nil {
		t.Fatalf("expected the organization owner to be materialized as the project's direct owner: %v", err)
	}
	if !materialized.IsOwner() {
		t.Error("the materialized row must be owner")
	}
	if teams.deletes != 1 {
		t.Errorf("team deletes = %d; want 1", teams.deletes)
	}
}
