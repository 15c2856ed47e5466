package visibility

import (
	"testing"

	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

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

func newDraftProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.New(idcodec.ProjectID(2), "draft-project", "Draft Project", idcodec.TeamID(1))
	if err != nil {
		t.Fatalf("project.New: %v", err)
	}
	return p
}

func TestProjectVisible_PublicStatusAlwaysVisible(t *testing.T) {
	p := newApprovedProject(t)
	if !ProjectVisible(p, user.RoleDeveloper, 0) {
		t.Error("an approved project must be visible to a principal with no permission bits")
	}
}

func TestProjectVisible_DraftRequiresBitsOrElevation(t *testing.T) {
	p := newDraftProject(t)
	if ProjectVisible(p, user.RoleDeveloper, 0) {
		t.Error("a draft project must not be visible to a principal with no bits and no elevated role")
	}
	if !ProjectVisible(p, user.RoleDeveloper, permission.ProjectEditDetails) {
		t.Error("a draft project must be visible to a principal holding any project permission bit")
	}
	if !ProjectVisible(p, user.RoleModerator, 0) {
		t.Error("a draft project must be visible to an elevated site role")
	}
}

func TestVersionVisible_HiddenWhenProjectNotVisible(t *testing.T) {
	v, err := version.New(idcodec.VersionID(1), idcodec.ProjectID(1), idcodec.UserID(1), "1-0-0", "First", version.TypeRelease)
	if err != nil {
		t.Fatalf("version.New: %v", err)
	}
	if err := v.RequestTransition(version.StatusListed, nil); err != nil {
		t.Fatalf("RequestTransition: %v", err)
	}
	if VersionVisible(v, false, permission.AllProjectPermissions) {
		t.Error("a version must never be visible when its project is not visible, regardless of bits")
	}
}

func TestVersionVisible_ListedVisibleWithoutBits(t *testing.T) {
	v, err := version.New(idcodec.VersionID(2), idcodec.ProjectID(1), idcodec.UserID(1), "1-0-0", "First", version.TypeRelease)
	if err != nil {
		t.Fatalf("version.New: %v", err)
	}
	if err := v.RequestTransition(version.StatusListed, nil); err != nil {
		t.Fatalf("RequestTransition: %v", err)
	}
	if !VersionVisible(v, true, 0) {
		t.Error("a Listed version of a visible project must be visible with no bits")
	}
}

func TestVersionVisible_DraftHiddenWithoutBits(t *testing.T) {
	v, err := version.New(idcodec.VersionID(3), idcodec.ProjectID(1), idcodec.UserID(1), "1-0-0", "First", version.TypeRelease)
	if err != nil {
		t.Fatalf("version.New: %v", err)
	}
	// status defaults to Draft
	if VersionVisible(v, true, 0) {
		t.Error("a Draft version must not be visible without any project permission bit")
	}
	if !VersionVisible(v, true, permission.ProjectUploadVersion) {
		t.Error("a Draft version must be visible to a principal holding any project permission bit")
	}
}

func TestFilterProjects(t *testing.T) {
	approved := newApprovedProject(t)
	draft := newDraftProject(t)
	out := FilterProjects([]*project.Project{approved, draft}, user.RoleDeveloper, func(p *project.Project) permission.ProjectPermissions { return 0 })
	if len(out) != 1 || out[0] != approved {
		t.Errorf("FilterProjects = %v; want only the approved project", out)
	}
}
