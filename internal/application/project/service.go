// Package project implements ProjectService: aggregate read, field-gated
// edits, moderator-only status transitions, slug changes, and delete with
// cascade. Grounded on the same application-service shape as
// internal/application/team and internal/application/organization,
// generalized to a project's richer read-aggregate and its
// index/webhook side effects.
package project

import (
	"context"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/outbox"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/internal/visibility"
)

type Logger interface {
	Info(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// VersionLister is the narrow slice of version.Repository the read
// aggregate needs; declared locally so this package does not have to
// import the full Repository interface just to list summaries.
type VersionLister interface {
	ListByProject(ctx context.Context, projectID idcodec.ProjectID) ([]*version.Version, error)
}

type Service struct {
	projects project.Repository
	versions VersionLister
	teams    team.Repository
	members  team.MemberRepository
	follows  project.FollowRepository
	resolver *permission.Resolver
	cache    *cache.Cache
	outbox   *outbox.Flusher
	logger   Logger
}

func NewService(
	projects project.Repository,
	versions VersionLister,
	teams team.Repository,
	members team.MemberRepository,
	follows project.FollowRepository,
	resolver *permission.Resolver,
	c *cache.Cache,
	flusher *outbox.Flusher,
	logger Logger,
) *Service {
	return &Service{
		projects: projects, versions: versions, teams: teams, members: members,
		follows: follows, resolver: resolver, cache: c, outbox: flusher, logger: logger,
	}
}

// Aggregate is the read-side view: the project plus its team roster,
// version summaries, gallery, and configured link platforms. Unaccepted
// member rows are filtered out unless the caller is that invitee, the
// project's owner, or a site moderator.
type Aggregate struct {
	Project          *project.Project
	Members          []*team.Member
	VersionSummaries []VersionSummary
	Gallery          []project.GalleryItem
	Links            map[idcodec.LinkPlatformID]string
}

type VersionSummary struct {
	ID            idcodec.VersionID
	VersionNumber string
	Name          string
	VersionType   version.VersionType
	Status        version.Status
	Loaders       []idcodec.LoaderID
	Downloads     int64
}

// Read assembles the aggregate for p, visible to (principalRole,
// principalID). A non-visible project is reported as NotFound rather than
// InsufficientPermission, so its existence is not leaked to principals who
// cannot see it.
func (s *Service) Read(ctx context.Context, p *project.Project, principalRole user.SiteRole, principalID idcodec.UserID) (*Aggregate, error) {
	bits, err := s.resolveBits(ctx, p, principalRole, principalID)
	if err != nil {
		return nil, err
	}
	if !visibility.ProjectVisible(p, principalRole, bits) {
		return nil, apierror.NotFound("project not found")
	}

	members, err := s.members.ListByTeam(ctx, p.TeamID())
	if err != nil {
		return nil, apierror.External("team repository error", err)
	}
	members = s.filterMembers(members, principalRole, principalID)

	versions, err := s.versions.ListByProject(ctx, p.ID())
	if err != nil {
		return nil, apierror.External("version repository error", err)
	}
	visibleVersions := visibility.FilterVersions(versions, true, bits)
	summaries := make([]VersionSummary, 0, len(visibleVersions))
	for _, v := range visibleVersions {
		summaries = append(summaries, VersionSummary{
			ID: v.ID(), VersionNumber: v.VersionNumber(), Name: v.Name(),
			VersionType: v.VersionType(), Status: v.Status(),
			Loaders: v.Loaders(), Downloads: v.Downloads(),
		})
	}

	return &Aggregate{
		Project: p, Members: members, VersionSummaries: summaries,
		Gallery: p.Gallery(), Links: p.Links(),
	}, nil
}

// filterMembers drops unaccepted rows unless the viewer is that invitee,
// the project's owner, or a site moderator/admin.
func (s *Service) filterMembers(members []*team.Member, principalRole user.SiteRole, principalID idcodec.UserID) []*team.Member {
	if principalRole.IsElevated() {
		return members
	}
	var viewerIsOwner bool
	for _, m := range members {
		if m.UserID() == principalID && m.IsOwner() {
			viewerIsOwner = true
			break
		}
	}
	if viewerIsOwner {
		return members
	}
	out := make([]*team.Member, 0, len(members))
	for _, m := range members {
		if m.Accepted() || m.UserID() == principalID {
			out = append(out, m)
		}
	}
	return out
}

func (s *Service) resolveBits(ctx context.Context, p *project.Project, principalRole user.SiteRole, principalID idcodec.UserID) (permission.ProjectPermissions, error) {
	lookup := permission.ProjectLookup{OrganizationID: p.OrganizationID(), TeamID: p.TeamID()}
	bits, err := s.resolver.ProjectPermissionsFor(ctx, principalRole, principalID, lookup)
	if err != nil {
		return 0, apierror.External("permission resolution failed", err)
	}
	return bits, nil
}

// Patch carries the optional per-field edits edit(project, patch, actor)
// accepts; each non-nil field is checked against its own required bit
// before any mutation is applied.
type Patch struct {
	Name        *string
	Summary     *string
	LicenseID   *string
	LicenseURL  *string
	Description *string
	Slug        *string
	Primary     []idcodec.CategoryID
	Additional  []idcodec.CategoryID
	setCategories bool
	Monetization *project.MonetizationStatus
	Status      *project.Status
}

// Edit applies patch to p on behalf of actor (the caller's resolved team
// membership and site role), checking each touched field against its
// required project bit.
func (s *Service) Edit(ctx context.Context, p *project.Project, patch Patch, actorBits permission.ProjectPermissions, actorRole user.SiteRole) error {
	if patch.Name != nil || patch.Summary != nil || patch.LicenseID != nil || patch.LicenseURL != nil || patch.Slug != nil || patch.setCategories {
		if !actorBits.Has(permission.ProjectEditDetails) {
			return apierror.InsufficientPermission("EDIT_DETAILS required")
		}
	}
	if patch.Description != nil {
		if !actorBits.Has(permission.ProjectEditBody) {
			return apierror.InsufficientPermission("EDIT_BODY required")
		}
	}

	var priorSlug string
	if patch.Slug != nil {
		taken, err := s.projects.ExistsBySlug(ctx, *patch.Slug)
		if err != nil {
			return apierror.External("project repository error", err)
		}
		if taken {
			return apierror.Conflict("project slug already taken")
		}
		if project.SlugCollidesWithID(*patch.Slug, idcodec.ParseProjectID, func(id idcodec.ProjectID) bool {
			exists, _ := s.projects.ExistsByID(ctx, id)
			return exists
		}) {
			return apierror.Conflict("slug collides with an existing project id")
		}
		priorSlug = p.Slug()
		if err := p.ChangeSlug(*patch.Slug); err != nil {
			return apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "invalid slug", err)
		}
	}

	if err := p.EditDetails(patch.Name, patch.Summary, patch.LicenseID, patch.LicenseURL); err != nil {
		return apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "invalid project details", err)
	}
	if patch.Description != nil {
		if err := p.EditBody(*patch.Description); err != nil {
			return apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "description too long", err)
		}
	}
	if patch.setCategories {
		if err := p.SetCategories(patch.Primary, patch.Additional); err != nil {
			return apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "invalid categories", err)
		}
	}

	if patch.Monetization != nil {
		if err := p.SetMonetization(*patch.Monetization); err != nil {
			return apierror.PreconditionViolated("monetization status requires an approved project")
		}
	}

	if patch.Status != nil {
		if err := p.RequestStatusTransition(*patch.Status, actorRole.IsElevated()); err != nil {
			return apierror.InsufficientPermission("this status transition requires moderator role")
		}
	}

	if err := s.projects.Update(ctx, p); err != nil {
		return apierror.External("failed to update project", err)
	}

	s.enqueueUpsert(ctx, p)
	return s.invalidate(ctx, p, priorSlug)
}

// SetCategories is a convenience constructor so callers don't have to set
// the unexported setCategories flag by hand.
func (patch *Patch) SetCategories(primary, additional []idcodec.CategoryID) {
	patch.Primary = primary
	patch.Additional = additional
	patch.setCategories = true
}

// Delete requires DELETE_PROJECT; deletes the project row (which holds the
// gallery) and the project's team, then enqueues index-remove jobs for the
// project and each of its versions. It does not delete the version rows.
func (s *Service) Delete(ctx context.Context, p *project.Project, actorBits permission.ProjectPermissions) error {
	if !actorBits.Has(permission.ProjectDeleteProject) {
		return apierror.InsufficientPermission("DELETE_PROJECT required")
	}

	versions, err := s.versions.ListByProject(ctx, p.ID())
	if err != nil {
		return apierror.External("version repository error", err)
	}

	if err := s.projects.Delete(ctx, p.ID()); err != nil {
		return apierror.External("failed to delete project", err)
	}
	if err := s.teams.Delete(ctx, p.TeamID()); err != nil {
		return apierror.External("failed to delete project team", err)
	}

	ob := outbox.New()
	ob.RecordProjectDeleted(p.ID())
	for _, v := range versions {
		ob.RecordVersionDeleted(p.ID(), v.ID())
	}
	if s.outbox != nil {
		s.outbox.FlushAsync(ctx, ob)
	}

	if err := s.cache.Invalidate(ctx, cache.NamespaceProjects, p.ID().String()); err != nil {
		s.logger.Error("delete: project cache invalidation failed", "project_id", p.ID().String(), "error", err)
	}
	if err := s.cache.Invalidate(ctx, cache.NamespaceProjectSlugs, p.Slug()); err != nil {
		s.logger.Error("delete: project slug cache invalidation failed", "slug", p.Slug(), "error", err)
	}
	return nil
}

// Follow records a follow relation for principalID, incrementing the
// project's denormalized follow count on the first follow.
func (s *Service) Follow(ctx context.Context, p *project.Project, principalID idcodec.UserID) error {
	already, err := s.follows.Follow(ctx, p.ID(), principalID)
	if err != nil {
		return apierror.External("follow repository error", err)
	}
	if already {
		return nil
	}
	p.IncrementFollows(1)
	if err := s.projects.Update(ctx, p); err != nil {
		return apierror.External("failed to update project", err)
	}
	return s.invalidate(ctx, p)
}

// Unfollow removes principalID's follow, decrementing the follow count if
// a follow actually existed.
func (s *Service) Unfollow(ctx context.Context, p *project.Project, principalID idcodec.UserID) error {
	was, err := s.follows.Unfollow(ctx, p.ID(), principalID)
	if err != nil {
		return apierror.External("follow repository error", err)
	}
	if !was {
		return nil
	}
	p.IncrementFollows(-1)
	if err := s.projects.Update(ctx, p); err != nil {
		return apierror.External("failed to update project", err)
	}
	return s.invalidate(ctx, p)
}

func (s *Service) enqueueUpsert(ctx context.Context, p *project.Project) {
	if s.outbox == nil {
		return
	}
	ob := outbox.New()
	ob.RecordProjectUpserted(p)
	s.outbox.FlushAsync(ctx, ob)
}

// invalidate drops p's own cache entries, plus any staleSlugs — the
// project's slug from before a rename, so a GET on the old slug stops
// resolving to the renamed project instead of serving a stale hit until
// the entry's TTL expires.
func (s *Service) invalidate(ctx context.Context, p *project.Project, staleSlugs ...string) error {
	aliases := []cache.Alias{
		{Namespace: cache.NamespaceProjects, Key: p.ID().String()},
		{Namespace: cache.NamespaceProjectSlugs, Key: p.Slug()},
	}
	for _, slug := range staleSlugs {
		if slug != "" && slug != p.Slug() {
			aliases = append(aliases, cache.Alias{Namespace: cache.NamespaceProjectSlugs, Key: slug})
		}
	}
	if err := s.cache.InvalidateAliases(ctx, aliases...); err != nil {
		s.logger.Error("project cache invalidation failed", "project_id", p.ID().String(), "error", err)
	}
	return nil
}
