package idcodec

import "context"

// UserID identifies a User.
type UserID uint64

// TeamID identifies a Team.
type TeamID uint64

// OrganizationID identifies an Organization.
type OrganizationID uint64

// ProjectID identifies a Project.
type ProjectID uint64

// VersionID identifies a Version.
type VersionID uint64

// FileID identifies a Version file.
type FileID uint64

// GalleryItemID identifies a Project gallery item.
type GalleryItemID uint64

// CategoryID identifies a server-managed project category.
type CategoryID uint64

// LoaderID identifies a server-managed mod loader.
type LoaderID uint64

// LoaderFieldID identifies a server-managed loader field.
type LoaderFieldID uint64

// LinkPlatformID identifies a server-managed link platform.
type LinkPlatformID uint64

// ThreadID identifies a moderation Thread.
type ThreadID uint64

// ThreadMessageID identifies a single Thread message.
type ThreadMessageID uint64

func (id UserID) String() string          { return encode(uint64(id)) }
func (id TeamID) String() string          { return encode(uint64(id)) }
func (id OrganizationID) String() string  { return encode(uint64(id)) }
func (id ProjectID) String() string       { return encode(uint64(id)) }
func (id VersionID) String() string       { return encode(uint64(id)) }
func (id FileID) String() string          { return encode(uint64(id)) }
func (id GalleryItemID) String() string   { return encode(uint64(id)) }
func (id ThreadID) String() string        { return encode(uint64(id)) }
func (id ThreadMessageID) String() string { return encode(uint64(id)) }
func (id CategoryID) String() string      { return encode(uint64(id)) }
func (id LoaderID) String() string        { return encode(uint64(id)) }
func (id LoaderFieldID) String() string   { return encode(uint64(id)) }
func (id LinkPlatformID) String() string  { return encode(uint64(id)) }

func (id UserID) IsZero() bool          { return id == 0 }
func (id TeamID) IsZero() bool          { return id == 0 }
func (id OrganizationID) IsZero() bool  { return id == 0 }
func (id ProjectID) IsZero() bool       { return id == 0 }
func (id VersionID) IsZero() bool       { return id == 0 }
func (id FileID) IsZero() bool          { return id == 0 }
func (id GalleryItemID) IsZero() bool   { return id == 0 }
func (id ThreadID) IsZero() bool        { return id == 0 }
func (id ThreadMessageID) IsZero() bool { return id == 0 }

// Entity kind tags, used both as the Store's sequence key and as the
// Cache's namespace discriminator for anything keyed by raw id.
const (
	KindUser          = "user"
	KindTeam          = "team"
	KindOrganization  = "organization"
	KindProject       = "project"
	KindVersion       = "version"
	KindFile          = "file"
	KindGalleryItem   = "gallery_item"
	KindThread        = "thread"
	KindThreadMessage = "thread_message"
)

// ParseUserID decodes the canonical base62 external form of a UserID.
func ParseUserID(s string) (UserID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return UserID(v), nil
}

// ParseTeamID decodes the canonical base62 external form of a TeamID.
func ParseTeamID(s string) (TeamID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return TeamID(v), nil
}

// ParseOrganizationID decodes the canonical base62 external form of an OrganizationID.
func ParseOrganizationID(s string) (OrganizationID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return OrganizationID(v), nil
}

// ParseProjectID decodes the canonical base62 external form of a ProjectID.
func ParseProjectID(s string) (ProjectID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return ProjectID(v), nil
}

// ParseVersionID decodes the canonical base62 external form of a VersionID.
func ParseVersionID(s string) (VersionID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return VersionID(v), nil
}

// ParseFileID decodes the canonical base62 external form of a FileID.
func ParseFileID(s string) (FileID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return FileID(v), nil
}

// ParseThreadID decodes the canonical base62 external form of a ThreadID.
func ParseThreadID(s string) (ThreadID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return ThreadID(v), nil
}

// ParseThreadMessageID decodes the canonical base62 external form of a
// ThreadMessageID.
func ParseThreadMessageID(s string) (ThreadMessageID, error) {
	v, err := decode(s)
	if err != nil {
		return 0, err
	}
	return ThreadMessageID(v), nil
}

// AllocateUserID draws the next UserID from the allocator.
func AllocateUserID(ctx context.Context, a Allocator) (UserID, error) {
	v, err := a.NextValue(ctx, KindUser)
	return UserID(v), err
}

// AllocateTeamID draws the next TeamID from the allocator.
func AllocateTeamID(ctx context.Context, a Allocator) (TeamID, error) {
	v, err := a.NextValue(ctx, KindTeam)
	return TeamID(v), err
}

// AllocateOrganizationID draws the next OrganizationID from the allocator.
func AllocateOrganizationID(ctx context.Context, a Allocator) (OrganizationID, error) {
	v, err := a.NextValue(ctx, KindOrganization)
	return OrganizationID(v), err
}

// AllocateProjectID draws the next ProjectID from the allocator.
func AllocateProjectID(ctx context.Context, a Allocator) (ProjectID, error) {
	v, err := a.NextValue(ctx, KindProject)
	return ProjectID(v), err
}

// AllocateVersionID draws the next VersionID from the allocator.
func AllocateVersionID(ctx context.Context, a Allocator) (VersionID, error) {
	v, err := a.NextValue(ctx, KindVersion)
	return VersionID(v), err
}

// AllocateFileID draws the next FileID from the allocator.
func AllocateFileID(ctx context.Context, a Allocator) (FileID, error) {
	v, err := a.NextValue(ctx, KindFile)
	return FileID(v), err
}

// AllocateGalleryItemID draws the next GalleryItemID from the allocator.
func AllocateGalleryItemID(ctx context.Context, a Allocator) (GalleryItemID, error) {
	v, err := a.NextValue(ctx, KindGalleryItem)
	return GalleryItemID(v), err
}

// AllocateThreadID draws the next ThreadID from the allocator.
func AllocateThreadID(ctx context.Context, a Allocator) (ThreadID, error) {
	v, err := a.NextValue(ctx, KindThread)
	return ThreadID(v), err
}

// AllocateThreadMessageID draws the next ThreadMessageID from the allocator.
func AllocateThreadMessageID(ctx context.Context, a Allocator) (ThreadMessageID, error) {
	v, err := a.NextValue(ctx, KindThreadMessage)
	return ThreadMessageID(v), err
}
