// Package version holds the Version aggregate: files, dependencies, loader
// fields, and the status state machine.
package version

import (
	"strings"
	"time"

	"github.com/modhub/platform/internal/idcodec"
)

type VersionType string

const (
	TypeRelease VersionType = "release"
	TypeBeta    VersionType = "beta"
	TypeAlpha   VersionType = "alpha"
)

type Status string

const (
	StatusListed    Status = "listed"
	StatusArchived  Status = "archived"
	StatusDraft     Status = "draft"
	StatusUnlisted  Status = "unlisted"
	StatusScheduled Status = "scheduled"
)

type DependencyKind string

const (
	DependencyRequired    DependencyKind = "required"
	DependencyOptional    DependencyKind = "optional"
	DependencyIncompatible DependencyKind = "incompatible"
	DependencyEmbedded    DependencyKind = "embedded"
)

// Dependency references either a Version or a Project, never neither, and
// both only when they point to the same project.
type Dependency struct {
	Kind      DependencyKind
	VersionID *idcodec.VersionID
	ProjectID *idcodec.ProjectID
}

// FileHash is a content-addressed hash under a named algorithm (sha1, sha512).
type FileHash struct {
	Algorithm string
	Hex       string
}

type File struct {
	ID       idcodec.FileID
	Filename string
	URL      string
	Size     int64
	Primary  bool
	Hashes   []FileHash
}

func (f File) HashFor(algorithm string) (string, bool) {
	for _, h := range f.Hashes {
		if h.Algorithm == algorithm {
			return h.Hex, true
		}
	}
	return "", false
}

type Version struct {
	id            idcodec.VersionID
	projectID     idcodec.ProjectID
	authorID      idcodec.UserID
	versionNumber string
	name          string
	changelog     string
	versionType   VersionType
	status        Status
	files         []File
	dependencies  []Dependency
	loaders       []idcodec.LoaderID
	loaderFields  map[idcodec.LoaderFieldID]any
	featured      bool
	downloads     int64
	ordering      int
	publishAt     *time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

func New(id idcodec.VersionID, projectID idcodec.ProjectID, authorID idcodec.UserID, versionNumber, name string, versionType VersionType) (*Version, error) {
	if err := ValidateVersionNumber(versionNumber); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Version{
		id: id, projectID: projectID, authorID: authorID, versionNumber: versionNumber,
		name: strings.TrimSpace(name), versionType: versionType, status: StatusDraft,
		loaderFields: make(map[idcodec.LoaderFieldID]any), createdAt: now, updatedAt: now,
	}, nil
}

func Reconstruct(
	id idcodec.VersionID, projectID idcodec.ProjectID, authorID idcodec.UserID,
	versionNumber, name, changelog string, versionType VersionType, status Status,
	files []File, dependencies []Dependency, loaders []idcodec.LoaderID,
	loaderFields map[idcodec.LoaderFieldID]any, featured bool, downloads int64,
	ordering int, publishAt *time.Time, createdAt, updatedAt time.Time,
) *Version {
	return &Version{
		id: id, projectID: projectID, authorID: authorID, versionNumber: versionNumber,
		name: name, changelog: changelog, versionType: versionType, status: status,
		files: files, dependencies: dependencies, loaders: loaders, loaderFields: loaderFields,
		featured: featured, downloads: downloads, ordering: ordering, publishAt: publishAt,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (v *Version) ID() idcodec.VersionID                         { return v.id }
func (v *Version) ProjectID() idcodec.ProjectID                  { return v.projectID }
func (v *Version) AuthorID() idcodec.UserID                      { return v.authorID }
func (v *Version) VersionNumber() string                         { return v.versionNumber }
func (v *Version) Name() string                                  { return v.name }
func (v *Version) Changelog() string                             { return v.changelog }
func (v *Version) VersionType() VersionType                      { return v.versionType }
func (v *Version) Status() Status                                { return v.status }
func (v *Version) Files() []File                                 { return v.files }
func (v *Version) Dependencies() []Dependency                    { return v.dependencies }
func (v *Version) Loaders() []idcodec.LoaderID                   { return v.loaders }
func (v *Version) LoaderFields() map[idcodec.LoaderFieldID]any   { return v.loaderFields }
func (v *Version) Featured() bool                                { return v.featured }
func (v *Version) Downloads() int64                              { return v.downloads }
func (v *Version) Ordering() int                                 { return v.ordering }
func (v *Version) PublishAt() *time.Time                         { return v.publishAt }
func (v *Version) CreatedAt() time.Time                          { return v.createdAt }
func (v *Version) UpdatedAt() time.Time                          { return v.updatedAt }

func (v *Version) touch() { v.updatedAt = time.Now().UTC() }

// AddFile enforces the "exactly one primary file when any exist" invariant:
// a new primary file demotes the previous one.
func (v *Version) AddFile(f File) {
	if f.Primary {
		for i := range v.files {
			v.files[i].Primary = false
		}
	}
	if len(v.files) == 0 {
		f.Primary = true
	}
	v.files = append(v.files, f)
	v.touch()
}

func (v *Version) RemoveFile(id idcodec.FileID) {
	out := v.files[:0]
	var removedPrimary bool
	for _, f := range v.files {
		if f.ID == id {
			removedPrimary = f.Primary
			continue
		}
		out = append(out, f)
	}
	v.files = out
	if removedPrimary && len(v.files) > 0 {
		v.files[0].Primary = true
	}
	v.touch()
}

func (v *Version) SetDependencies(deps []Dependency) {
	v.dependencies = deps
	v.touch()
}

func (v *Version) SetLoaders(loaders []idcodec.LoaderID) {
	v.loaders = loaders
	v.touch()
}

func (v *Version) SetLoaderField(field idcodec.LoaderFieldID, value any) {
	v.loaderFields[field] = value
	v.touch()
}

func (v *Version) SetFeatured(featured bool) {
	v.featured = featured
	v.touch()
}

// IncrementDownloads applies the delta. Callers decide who may change the
// counter: the application layer's moderator-only downloads edit and its
// public per-download increment both call it.
func (v *Version) IncrementDownloads(delta int64) {
	v.downloads += delta
	v.touch()
}

// RequestTransition enforces the Scheduled-requires-future-timestamp rule;
// all other transitions are unconditional per the version status state
// diagram.
func (v *Version) RequestTransition(target Status, publishAt *time.Time) error {
	if target == StatusScheduled {
		if publishAt == nil || !publishAt.After(time.Now().UTC()) {
			return ErrScheduledRequiresFuture
		}
		v.publishAt = publishAt
	}
	v.status = target
	v.touch()
	return nil
}

func ValidateVersionNumber(n string) error {
	if len(n) < 1 || len(n) > 32 {
		return ErrInvalidVersionNumber
	}
	for _, ch := range n {
		if !(ch >= 'a' && ch <= 'z') && !(ch >= 'A' && ch <= 'Z') &&
			!(ch >= '0' && ch <= '9') && ch != '_' && ch != '-' {
			return ErrInvalidVersionNumber
		}
	}
	return nil
}
