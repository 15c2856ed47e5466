// Package version implements VersionService: create/edit with
// loader-field and dependency validation, file-hash uniqueness, a
// moderator-gated downloads counter, and delete with cascade. Grounded
// on the same application-service shape as internal/application/project,
// generalized to a version's dependency-resolution and vocabulary-backed
// field validation.
package version

import (
	"context"
	"time"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/blob"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/outbox"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/internal/vocabcache"
)

type Logger interface {
	Info(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// ProjectLookup is the narrow slice of project.Repository this service
// needs to validate project-dependency references and bump the parent
// project's download counter, declared locally to avoid depending on the
// full project.Repository interface.
type ProjectLookup interface {
	FindByID(ctx context.Context, id idcodec.ProjectID) (*project.Project, error)
	ExistsByID(ctx context.Context, id idcodec.ProjectID) (bool, error)
	Update(ctx context.Context, p *project.Project) error
	LockForUpdate(ctx context.Context, id idcodec.ProjectID) error
}

// TxRunner executes fn inside one Store transaction, so the version and
// its parent project's denormalized counters never observably diverge;
// satisfied by internal/store's Store.WithTx.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	versions version.Repository
	projects ProjectLookup
	vocab    *vocabcache.Cache
	blob     blob.Host
	cache    *cache.Cache
	outbox   *outbox.Flusher
	tx       TxRunner
	logger   Logger
}

func NewService(versions version.Repository, projects ProjectLookup, vocab *vocabcache.Cache, blobHost blob.Host, c *cache.Cache, flusher *outbox.Flusher, tx TxRunner, logger Logger) *Service {
	return &Service{versions: versions, projects: projects, vocab: vocab, blob: blobHost, cache: c, outbox: flusher, tx: tx, logger: logger}
}

// CreateInput carries everything a new version needs beyond its
// identifiers; the caller is responsible for having already uploaded any
// files to blob.Host and resolved their hashes.
type CreateInput struct {
	VersionNumber string
	Name          string
	Changelog     string
	Type          version.VersionType
	Files         []version.File
	Dependencies  []version.Dependency
	Loaders       []idcodec.LoaderID
	LoaderFields  map[idcodec.LoaderFieldID]any
}

// Create validates and persists a new version under projectID, checking
// UPLOAD_VERSION, loader-field types against the vocabulary cache,
// dependency references, and file-hash uniqueness before the row is
// written.
func (s *Service) Create(ctx context.Context, projectID idcodec.ProjectID, authorID idcodec.UserID, in CreateInput, actorBits permission.ProjectPermissions, newID idcodec.VersionID) (*version.Version, error) {
	if !actorBits.Has(permission.ProjectUploadVersion) {
		return nil, apierror.InsufficientPermission("UPLOAD_VERSION required")
	}

	taken, err := s.versions.ExistsByVersionNumber(ctx, projectID, in.VersionNumber)
	if err != nil {
		return nil, apierror.External("version repository error", err)
	}
	if taken {
		return nil, apierror.Conflict("version number already used in this project")
	}

	if err := s.validateDependencies(ctx, in.Dependencies); err != nil {
		return nil, err
	}
	if err := s.validateFileHashes(ctx, in.Files); err != nil {
		return nil, err
	}
	if err := s.validateLoaderFields(in.LoaderFields); err != nil {
		return nil, err
	}

	v, err := version.New(newID, projectID, authorID, in.VersionNumber, in.Name, in.Type)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindInvalidInput, "invalid_input", "invalid version parameters", err)
	}
	for _, f := range in.Files {
		v.AddFile(f)
	}
	v.SetDependencies(in.Dependencies)
	v.SetLoaders(in.Loaders)
	for field, value := range in.LoaderFields {
		v.SetLoaderField(field, value)
	}

	if err := s.versions.Create(ctx, v); err != nil {
		if err == version.ErrVersionNumberTaken {
			return nil, apierror.Conflict("version number already used in this project")
		}
		return nil, apierror.External("failed to create version", err)
	}

	s.enqueueUpsert(ctx, projectID, v)
	return v, s.invalidate(ctx, projectID, v.ID())
}

// EditInput carries the optional per-field edits a version edit accepts.
type EditInput struct {
	Changelog    *string
	Dependencies []version.Dependency
	setDependencies bool
	Loaders      []idcodec.LoaderID
	setLoaders   bool
	LoaderFields map[idcodec.LoaderFieldID]any
	Featured     *bool
	Status       *version.Status
	PublishAt    *time.Time
	Downloads    *int64
}

// SetDependencies marks the dependency list for replacement, distinguishing
// "not supplied" from "replace with an empty list".
func (in *EditInput) SetDependencies(deps []version.Dependency) {
	in.Dependencies = deps
	in.setDependencies = true
}

func (in *EditInput) SetLoaders(loaders []idcodec.LoaderID) {
	in.Loaders = loaders
	in.setLoaders = true
}

// Edit applies in to v. Downloads is writable only when actorRole is
// Moderator+ (checked by the caller via downloadsAllowed, since site role
// is not otherwise part of this service's inputs); every other field is
// gated on the project bits edit_version/UPLOAD_VERSION already implies.
func (s *Service) Edit(ctx context.Context, v *version.Version, in EditInput, actorBits permission.ProjectPermissions, downloadsAllowed bool) error {
	if !actorBits.Has(permission.ProjectUploadVersion) {
		return apierror.InsufficientPermission("UPLOAD_VERSION required to edit a version")
	}
	if in.Downloads != nil && !downloadsAllowed {
		return apierror.InsufficientPermission("downloads field is writable only by moderators")
	}

	if in.setDependencies {
		if err := s.validateDependencies(ctx, in.Dependencies); err != nil {
			return err
		}
		v.SetDependencies(in.Dependencies)
	}
	if in.setLoaders {
		v.SetLoaders(in.Loaders)
	}
	for field, value := range in.LoaderFields {
		if err := s.validateLoaderField(field, value); err != nil {
			return err
		}
		v.SetLoaderField(field, value)
	}
	if in.Featured != nil {
		v.SetFeatured(*in.Featured)
	}
	if in.Status != nil {
		if err := v.RequestTransition(*in.Status, in.PublishAt); err != nil {
			return apierror.PreconditionViolated("scheduled status requires a future publish timestamp")
		}
	}
	var downloadsDelta int64
	if in.Downloads != nil {
		downloadsDelta = *in.Downloads - v.Downloads()
		v.IncrementDownloads(downloadsDelta)
	}

	if downloadsDelta != 0 {
		// A moderator downloads edit touches both the version and its
		// parent project's denormalized counter; run it as one
		// transaction so the two counters never observably diverge.
		if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			if err := s.projects.LockForUpdate(ctx, v.ProjectID()); err != nil {
				return apierror.External("failed to lock project", err)
			}
			if err := s.versions.Update(ctx, v); err != nil {
				return apierror.External("failed to update version", err)
			}
			p, err := s.projects.FindByID(ctx, v.ProjectID())
			if err != nil {
				return apierror.External("project repository error", err)
			}
			if p == nil {
				return apierror.NotFound("project not found")
			}
			p.IncrementDownloads(downloadsDelta)
			if err := s.projects.Update(ctx, p); err != nil {
				return apierror.External("failed to update project", err)
			}
			return nil
		}); err != nil {
			return err
		}
	} else if err := s.versions.Update(ctx, v); err != nil {
		return apierror.External("failed to update version", err)
	}

	s.enqueueUpsert(ctx, v.ProjectID(), v)
	return s.invalidate(ctx, v.ProjectID(), v.ID())
}

// RecordDownload bumps both the version's and its parent project's
// denormalized download counters in one transaction, the public
// download-count increment every file fetch triggers.
func (s *Service) RecordDownload(ctx context.Context, v *version.Version) error {
	v.IncrementDownloads(1)
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.projects.LockForUpdate(ctx, v.ProjectID()); err != nil {
			return apierror.External("failed to lock project", err)
		}
		if err := s.versions.Update(ctx, v); err != nil {
			return apierror.External("failed to update version", err)
		}
		p, err := s.projects.FindByID(ctx, v.ProjectID())
		if err != nil {
			return apierror.External("project repository error", err)
		}
		if p == nil {
			return apierror.NotFound("project not found")
		}
		p.IncrementDownloads(1)
		if err := s.projects.Update(ctx, p); err != nil {
			return apierror.External("failed to update project", err)
		}
		return nil
	}); err != nil {
		return err
	}
	return s.invalidate(ctx, v.ProjectID(), v.ID())
}

// Delete requires DELETE_VERSION; removes the version's blob-hosted
// files, then the row itself, and enqueues an index-remove job.
func (s *Service) Delete(ctx context.Context, v *version.Version, actorBits permission.ProjectPermissions) error {
	if !actorBits.Has(permission.ProjectDeleteVersion) {
		return apierror.InsufficientPermission("DELETE_VERSION required")
	}

	for _, f := range v.Files() {
		if err := s.blob.Delete(ctx, f.URL); err != nil {
			s.logger.Error("delete: blob delete failed", "version_id", v.ID().String(), "url", f.URL, "error", err)
		}
	}
	if err := s.versions.Delete(ctx, v.ID()); err != nil {
		return apierror.External("failed to delete version", err)
	}

	if s.outbox != nil {
		ob := outbox.New()
		ob.RecordVersionDeleted(v.ProjectID(), v.ID())
		s.outbox.FlushAsync(ctx, ob)
	}
	return s.invalidate(ctx, v.ProjectID(), v.ID())
}

func (s *Service) validateDependencies(ctx context.Context, deps []version.Dependency) error {
	for _, d := range deps {
		if d.VersionID == nil && d.ProjectID == nil {
			return apierror.InvalidInput("dependency must reference an existing version or project")
		}
		if d.VersionID != nil {
			exists, err := s.versions.ExistsVersionID(ctx, *d.VersionID)
			if err != nil {
				return apierror.External("version repository error", err)
			}
			if !exists {
				return apierror.InvalidInput("dependency references a version that does not exist")
			}
		}
		if d.ProjectID != nil {
			exists, err := s.projects.ExistsByID(ctx, *d.ProjectID)
			if err != nil {
				return apierror.External("project repository error", err)
			}
			if !exists {
				return apierror.InvalidInput("dependency references a project that does not exist")
			}
		}
		if d.VersionID != nil && d.ProjectID != nil {
			dependedVersion, err := s.versions.FindByID(ctx, *d.VersionID)
			if err != nil {
				return apierror.External("version repository error", err)
			}
			if dependedVersion.ProjectID() != *d.ProjectID {
				return apierror.InvalidInput("dependency's version and project must refer to the same project")
			}
		}
	}
	return nil
}

func (s *Service) validateFileHashes(ctx context.Context, files []version.File) error {
	for _, f := range files {
		for _, h := range f.Hashes {
			exists, err := s.versions.ExistsByFileHash(ctx, h.Algorithm, h.Hex)
			if err != nil {
				return apierror.External("version repository error", err)
			}
			if exists {
				return apierror.Conflict("file hash already used by another version")
			}
		}
	}
	return nil
}

func (s *Service) validateLoaderFields(fields map[idcodec.LoaderFieldID]any) error {
	for field, value := range fields {
		if err := s.validateLoaderField(field, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateLoaderField(field idcodec.LoaderFieldID, value any) error {
	def, ok := s.vocab.LoaderField(uint64(field))
	if !ok {
		return apierror.InvalidInput("unknown loader field")
	}
	if !def.Validate(value) {
		return apierror.InvalidInput("loader field value does not match its declared type")
	}
	return nil
}

func (s *Service) enqueueUpsert(ctx context.Context, projectID idcodec.ProjectID, v *version.Version) {
	if s.outbox == nil {
		return
	}
	ob := outbox.New()
	ob.RecordVersionUpserted(projectID, v)
	s.outbox.FlushAsync(ctx, ob)
}

func (s *Service) invalidate(ctx context.Context, projectID idcodec.ProjectID, versionID idcodec.VersionID) error {
	aliases := []cache.Alias{
		{Namespace: cache.NamespaceVersions, Key: versionID.String()},
		{Namespace: cache.NamespaceProjects, Key: projectID.String()},
	}
	if err := s.cache.InvalidateAliases(ctx, aliases...); err != nil {
		s.logger.Error("version cache invalidation failed", "version_id", versionID.String(), "error", err)
	}
	return nil
}
