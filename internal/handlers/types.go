package handlers

import (
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/internal/visibility"
)

// memberRepository is the narrow team.MemberRepository slice handlers read
// directly (e.g. to resolve the caller's *team.Member before invoking a
// team-mutating service method).
type memberRepository = team.MemberRepository

func projectVisible(p *project.Project, role user.SiteRole, bits permission.ProjectPermissions) bool {
	return visibility.ProjectVisible(p, role, bits)
}
