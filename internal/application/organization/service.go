// Package organization implements OrgService: create, adopt, release,
// delete. Grounded on the same application-service shape as
// internal/application/team, generalized to organization lifecycle and
// the owner-inheritance rewrite adopt/release/delete perform.
package organization

import (
	"context"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/organization"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
)

type Logger interface {
	Info(msg string, fields ...any)
	Error(msg string, fields ...any)
}

type Service struct {
	orgs     organization.Repository
	projects project.Repository
	teams    team.Repository
	members  team.MemberRepository
	seq      SequenceAllocator
	resolver *permission.Resolver
	cache    *cache.Cache
	tx       TxRunner
	logger   Logger
}

// SequenceAllocator mints new team/organization ids; satisfied by
// internal/store's SequenceAllocator (idcodec.Allocator), declared here as
// a narrow interface so this package does not import internal/store.
type SequenceAllocator interface {
	NextValue(ctx context.Context, kind string) (uint64, error)
}

// TxRunner executes fn inside one Store transaction, so adopt/release/
// delete's project-and-team-membership rewrites commit or roll back
// together rather than leaving a project with its organization_id set
// but its member rows only partially rewritten; satisfied by
// internal/store's Store.WithTx.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(orgs organization.Repository, projects project.Repository, teams team.Repository, members team.MemberRepository, seq SequenceAllocator, resolver *permission.Resolver, c *cache.Cache, tx TxRunner, logger Logger) *Service {
	return &Service{orgs: orgs, projects: projects, teams: teams, members: members, seq: seq, resolver: resolver, cache: c, tx: tx, logger: logger}
}

// Create implements create: allocates the organization and its team in one
// transaction, seats the creator as owner.
func (s *Service) Create(ctx context.Context, slug, name, description string, creator idcodec.UserID) (*organization.Organization, error) {
	var org *organization.Organization
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		org, err = s.create(ctx, slug, name, description, creator)
		return err
	}); err != nil {
		return nil, err
	}
	return org, nil
}

// create performs Create's reads and writes on the ctx it is given.
func (s *Service) create(ctx context.Context, slug, name, description string, creator idcodec.UserID) (*organization.Organization, error) {
	exists, err := s.orgs.ExistsBySlug(ctx, slug)
	if err != nil {
		return nil, apierror.External("organization repository error", err)
	}
	if exists {
		return nil, apierror.Conflict("organization slug already taken")
	}

	teamRaw, err := s.seq.NextValue(ctx, "team")
	if err != nil {
		return nil, apierror.External("failed to allocate team id", err)
	}
	teamID := idcodec.TeamID(teamRaw)
	if _, err := s.teams.Create(ctx, teamID); err != nil {
		return nil, apierror.External("failed to create team", err)
	}

	orgRaw, err := s.seq.NextValue(ctx, "organization")
	if err != nil {
		return nil, apierror.External("failed to allocate organization id", err)
	}
	org, err := organization.New(idcodec.OrganizationID(orgRaw), slug, name, description, teamID)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "invalid organization parameters", err)
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		if err == organization.ErrSlugTaken {
			return nil, apierror.Conflict("organization slug already taken")
		}
		return nil, apierror.External("organization repository error", err)
	}

	owner := team.Reconstruct(teamID, creator, team.ReservedOwnerRole, true, team.AllProjectBits, orgAllBits(), true, 0, 0)
	if err := s.members.Add(ctx, owner); err != nil {
		return nil, apierror.External("failed to seat organization owner", err)
	}

	return org, nil
}

func orgAllBits() *uint64 {
	v := team.AllOrgBits
	return &v
}

// Adopt implements adopt: actor must be the project's direct owner (or
// Admin) and hold ADD_PROJECT on the org. Sets project.organization_id,
// then deletes the project's previous direct owner row and any row for
// the org's owner user in the project team, so the project never carries
// a direct owner while inheriting ownership from an organization.
func (s *Service) Adopt(ctx context.Context, p *project.Project, org *organization.Organization, actor *user.User, actorProjectMember *team.Member, actorOrgBits uint64) error {
	if p.IsInOrganization() {
		return apierror.PreconditionViolated("project is already in an organization")
	}
	isDirectOwner := actorProjectMember != nil && actorProjectMember.IsOwner()
	if !isDirectOwner && !actor.Role().IsElevated() {
		return apierror.InsufficientPermission("must be the project's direct owner to adopt it into an organization")
	}
	if !permission.OrganizationPermissions(actorOrgBits).Has(permission.OrgAddProject) {
		return apierror.InsufficientPermission("ADD_PROJECT required on the organization")
	}

	orgOwner, err := s.members.FindOwner(ctx, org.TeamID())
	if err != nil {
		return apierror.External("failed to resolve organization owner", err)
	}

	// Sets organization_id and rewrites the project team's owner rows as
	// one transaction: a failure partway through must never leave the
	// project adopted with a stale direct-owner row still in place.
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.projects.LockForUpdate(ctx, p.ID()); err != nil {
			return apierror.External("failed to lock project", err)
		}
		if err := s.teams.LockForUpdate(ctx, p.TeamID()); err != nil {
			return apierror.External("failed to lock project team", err)
		}
		p.AdoptInto(org.ID())
		if err := s.projects.Update(ctx, p); err != nil {
			return apierror.External("failed to update project", err)
		}
		priorOwner, err := s.members.FindOwner(ctx, p.TeamID())
		if err != nil && err != team.ErrMemberNotFound {
			return apierror.External("failed to resolve prior direct owner", err)
		}
		if priorOwner != nil {
			if err := s.members.Remove(ctx, p.TeamID(), priorOwner.UserID()); err != nil {
				return apierror.External("failed to remove prior direct owner", err)
			}
		}
		if orgOwner != nil {
			if existing, err := s.members.Find(ctx, p.TeamID(), orgOwner.UserID()); err == nil && existing != nil {
				if err := s.members.Remove(ctx, p.TeamID(), orgOwner.UserID()); err != nil {
					return apierror.External("failed to remove organization owner's stale project row", err)
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return s.invalidateProjectAndOrg(ctx, p.ID(), org.ID())
}

// Release implements release: requires REMOVE_PROJECT on the org.
// new_owner must be an accepted organization member. Atomically inserts or
// promotes new_owner to direct owner of the project team, then clears the
// project's organization_id.
func (s *Service) Release(ctx context.Context, p *project.Project, org *organization.Organization, newOwnerUserID idcodec.UserID, actorOrgBits uint64) error {
	if !permission.OrganizationPermissions(actorOrgBits).Has(permission.OrgRemoveProject) {
		return apierror.InsufficientPermission("REMOVE_PROJECT required on the organization")
	}
	if !p.IsInOrganization() || p.OrganizationID() == nil || *p.OrganizationID() != org.ID() {
		return apierror.PreconditionViolated("project is not in this organization")
	}

	orgMember, err := s.members.Find(ctx, org.TeamID(), newOwnerUserID)
	if err != nil || !orgMember.Accepted() {
		return apierror.InvalidInput("new owner must already be an accepted organization member")
	}

	// Promoting new_owner and clearing organization_id run as one
	// transaction: a failure partway through must never leave the
	// project released from its organization without a direct owner.
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.projects.LockForUpdate(ctx, p.ID()); err != nil {
			return apierror.External("failed to lock project", err)
		}
		if err := s.teams.LockForUpdate(ctx, p.TeamID()); err != nil {
			return apierror.External("failed to lock project team", err)
		}
		existing, err := s.members.Find(ctx, p.TeamID(), newOwnerUserID)
		if err != nil && err != team.ErrMemberNotFound {
			return apierror.External("team repository error", err)
		}
		if existing == nil {
			m, err := team.NewMember(p.TeamID(), newOwnerUserID, "Member", team.AllProjectBits, nil)
			if err != nil {
				return apierror.External("failed to construct new owner member", err)
			}
			m.Accept()
			if err := s.members.Add(ctx, m); err != nil {
				return apierror.External("failed to add new owner to project team", err)
			}
		}
		promoted := team.Reconstruct(p.TeamID(), newOwnerUserID, team.ReservedOwnerRole, true, team.AllProjectBits, nil, true, 0, 0)
		if err := s.members.Update(ctx, promoted); err != nil {
			return apierror.External("failed to promote new owner", err)
		}

		p.ReleaseFromOrganization()
		if err := s.projects.Update(ctx, p); err != nil {
			return apierror.External("failed to update project", err)
		}
		return nil
	}); err != nil {
		return err
	}

	return s.invalidateProjectAndOrg(ctx, p.ID(), org.ID())
}

// Delete implements delete: requires DELETE_ORGANIZATION. For every
// project still in the organization, materializes ownership back onto
// each project (grants the org's current owner a direct project-team row
// with full bits) before removing the organization and its team.
func (s *Service) Delete(ctx context.Context, org *organization.Organization, actorOrgBits uint64) error {
	if !permission.OrganizationPermissions(actorOrgBits).Has(permission.OrgDeleteOrganization) {
		return apierror.InsufficientPermission("DELETE_ORGANIZATION required")
	}

	owner, err := s.members.FindOwner(ctx, org.TeamID())
	if err != nil {
		return apierror.External("failed to resolve organization owner", err)
	}

	projectIDs, err := s.orgs.ListProjectIDs(ctx, org.ID())
	if err != nil {
		return apierror.External("failed to list organization projects", err)
	}

	// Materializing ownership onto every member project, then deleting
	// the organization and its team, is one mutation: a failure partway
	// through must never leave some projects released with an owner row
	// while the organization they were released from still exists (or
	// vice versa).
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.teams.LockForUpdate(ctx, org.TeamID()); err != nil {
			return apierror.External("failed to lock organization team", err)
		}
		for _, pid := range projectIDs {
			if err := s.projects.LockForUpdate(ctx, pid); err != nil {
				return apierror.External("failed to lock project", err)
			}
			p, err := s.projects.FindByID(ctx, pid)
			if err != nil {
				return apierror.External("failed to load project for ownership materialization", err)
			}
			if p == nil {
				continue
			}
			p.ReleaseFromOrganization()
			if err := s.projects.Update(ctx, p); err != nil {
				return apierror.External("failed to update project", err)
			}
			if err := s.teams.LockForUpdate(ctx, p.TeamID()); err != nil {
				return apierror.External("failed to lock project team", err)
			}
			existing, err := s.members.Find(ctx, p.TeamID(), owner.UserID())
			if err != nil && err != team.ErrMemberNotFound {
				return apierror.External("team repository error", err)
			}
			materialized := team.Reconstruct(p.TeamID(), owner.UserID(), team.ReservedOwnerRole, true, team.AllProjectBits, nil, true, 0, 0)
			if existing == nil {
				if err := s.members.Add(ctx, materialized); err != nil {
					return apierror.External("failed to materialize project ownership", err)
				}
			} else if err := s.members.Update(ctx, materialized); err != nil {
				return apierror.External("failed to promote materialized owner", err)
			}
		}

		if err := s.orgs.Delete(ctx, org.ID()); err != nil {
			return apierror.External("failed to delete organization", err)
		}
		if err := s.teams.Delete(ctx, org.TeamID()); err != nil {
			return apierror.External("failed to delete organization team", err)
		}
		return nil
	}); err != nil {
		return err
	}

	for _, pid := range projectIDs {
		if err := s.cache.Invalidate(ctx, cache.NamespaceProjects, pid.String()); err != nil {
			s.logger.Error("delete: project cache invalidation failed", "project_id", pid.String(), "error", err)
		}
	}
	if err := s.cache.Invalidate(ctx, cache.NamespaceOrgs, org.ID().String()); err != nil {
		s.logger.Error("delete: organization cache invalidation failed", "organization_id", org.ID().String(), "error", err)
	}
	return nil
}

func (s *Service) invalidateProjectAndOrg(ctx context.Context, projectID idcodec.ProjectID, orgID idcodec.OrganizationID) error {
	if err := s.cache.Invalidate(ctx, cache.NamespaceProjects, projectID.String()); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, cache.NamespaceOrgs, orgID.String())
}
