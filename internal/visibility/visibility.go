// Package visibility decides which projects and versions a principal may
// observe, independent of whether they may mutate them.
package visibility

import (
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/permission"
)

// ProjectVisible reports whether principalRole/projectBits may observe p.
// projectBits is the caller's already-resolved permission.ProjectPermissions
// for p — this function does not re-run the resolver itself, it composes
// with whatever the caller already computed.
func ProjectVisible(p *project.Project, principalRole user.SiteRole, projectBits permission.ProjectPermissions) bool {
	if p.Status().PubliclyVisible() {
		return true
	}
	return !projectBits.IsEmpty() || principalRole.IsElevated()
}

// FilterProjects returns the subset of projects visible to the given
// (role, bits-per-project) inputs; bitsFor is called once per project so
// callers can batch-resolve permissions ahead of filtering.
func FilterProjects(projects []*project.Project, principalRole user.SiteRole, bitsFor func(*project.Project) permission.ProjectPermissions) []*project.Project {
	out := make([]*project.Project, 0, len(projects))
	for _, p := range projects {
		if ProjectVisible(p, principalRole, bitsFor(p)) {
			out = append(out, p)
		}
	}
	return out
}

// VersionVisible applies the parallel rule for versions: a version is
// visible iff its project is visible AND (its own status is
// Listed/Archived/Unlisted OR the principal has any project permission).
func VersionVisible(v *version.Version, projectVisible bool, projectBits permission.ProjectPermissions) bool {
	if !projectVisible {
		return false
	}
	if !projectBits.IsEmpty() {
		return true
	}
	switch v.Status() {
	case version.StatusListed, version.StatusArchived, version.StatusUnlisted:
		return true
	default:
		return false
	}
}

func FilterVersions(versions []*version.Version, projectVisible bool, projectBits permission.ProjectPermissions) []*version.Version {
	out := make([]*version.Version, 0, len(versions))
	for _, v := range versions {
		if VersionVisible(v, projectVisible, projectBits) {
			out = append(out, v)
		}
	}
	return out
}
