// Package project holds the Project aggregate root: the status state
// machine, slug/category/gallery/link invariants, and the ownership
// invariant that ties a project to either a direct team owner or an
// organization's inherited owner.
package project

import (
	"strings"
	"time"

	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

// Status is the project's moderation/publication state.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusUnlisted   Status = "unlisted"
	StatusArchived   Status = "archived"
	StatusWithheld   Status = "withheld"
	StatusScheduled  Status = "scheduled"
	StatusPrivate    Status = "private"
)

// PubliclyVisible is the set of statuses grants to everyone,
// regardless of membership.
func (s Status) PubliclyVisible() bool {
	return s == StatusApproved || s == StatusArchived || s == StatusUnlisted
}

// moderatorOnlyTransition is the set of target statuses gates
// on site role Moderator/Admin rather than project bits.
func moderatorOnlyTransition(target Status) bool {
	return target == StatusApproved || target == StatusRejected || target == StatusWithheld
}

type MonetizationStatus string

const (
	MonetizationNone      MonetizationStatus = "none"
	MonetizationForced    MonetizationStatus = "forced"
	MonetizationMonetized MonetizationStatus = "monetized"
)

// GalleryItem is one ordered image entry in a project's gallery.
type GalleryItem struct {
	ID        idcodec.GalleryItemID
	URL       string
	Featured  bool
	Title     string
	Description string
	Ordering  int
	CreatedAt time.Time
}

// Dependency, Loader, and LoaderField values live on Version, not Project.

type Project struct {
	id                 idcodec.ProjectID
	slug               string
	name               string
	summary            string
	description        string
	teamID             idcodec.TeamID
	organizationID     *idcodec.OrganizationID
	status             Status
	requestedStatus    *Status
	primaryCategories  []idcodec.CategoryID
	additionalCategories []idcodec.CategoryID
	licenseID          string
	licenseURL         string
	links              map[idcodec.LinkPlatformID]string
	gallery            []GalleryItem
	icon               user.AvatarURLs
	color              *int32
	monetization       MonetizationStatus
	moderationMessage  string
	moderationMessageBody string
	downloads          int64
	follows            int64
	publishedAt        *time.Time
	updatedAt          time.Time
	approvedAt         *time.Time
	queuedAt           *time.Time
}

const (
	maxPrimaryCategories    = 3
	maxAdditionalCategories = 256
	maxSummaryLen           = 256
	maxDescriptionLen       = 65536
)

func New(id idcodec.ProjectID, slug, name string, teamID idcodec.TeamID) (*Project, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	return &Project{
		id: id, slug: strings.ToLower(slug), name: strings.TrimSpace(name),
		teamID: teamID, status: StatusDraft, monetization: MonetizationNone,
		links: make(map[idcodec.LinkPlatformID]string), updatedAt: time.Now().UTC(),
	}, nil
}

func Reconstruct(
	id idcodec.ProjectID, slug, name, summary, description string,
	teamID idcodec.TeamID, organizationID *idcodec.OrganizationID,
	status Status, requestedStatus *Status,
	primaryCategories, additionalCategories []idcodec.CategoryID,
	licenseID, licenseURL string, links map[idcodec.LinkPlatformID]string,
	gallery []GalleryItem, icon user.AvatarURLs, color *int32,
	monetization MonetizationStatus, moderationMessage, moderationMessageBody string,
	downloads, follows int64,
	publishedAt *time.Time, updatedAt time.Time, approvedAt, queuedAt *time.Time,
) *Project {
	return &Project{
		id: id, slug: slug, name: name, summary: summary, description: description,
		teamID: teamID, organizationID: organizationID, status: status, requestedStatus: requestedStatus,
		primaryCategories: primaryCategories, additionalCategories: additionalCategories,
		licenseID: licenseID, licenseURL: licenseURL, links: links, gallery: gallery,
		icon: icon, color: color, monetization: monetization,
		moderationMessage: moderationMessage, moderationMessageBody: moderationMessageBody,
		downloads: downloads, follows: follows, publishedAt: publishedAt, updatedAt: updatedAt,
		approvedAt: approvedAt, queuedAt: queuedAt,
	}
}

func (p *Project) ID() idcodec.ProjectID                  { return p.id }
func (p *Project) Slug() string                           { return p.slug }
func (p *Project) Name() string                           { return p.name }
func (p *Project) Summary() string                        { return p.summary }
func (p *Project) Description() string                    { return p.description }
func (p *Project) TeamID() idcodec.TeamID                 { return p.teamID }
func (p *Project) OrganizationID() *idcodec.OrganizationID { return p.organizationID }
func (p *Project) Status() Status                         { return p.status }
func (p *Project) RequestedStatus() *Status                { return p.requestedStatus }
func (p *Project) PrimaryCategories() []idcodec.CategoryID { return p.primaryCategories }
func (p *Project) AdditionalCategories() []idcodec.CategoryID { return p.additionalCategories }
func (p *Project) LicenseID() string                      { return p.licenseID }
func (p *Project) LicenseURL() string                     { return p.licenseURL }
func (p *Project) Links() map[idcodec.LinkPlatformID]string { return p.links }
func (p *Project) Gallery() []GalleryItem                 { return p.gallery }
func (p *Project) Icon() user.AvatarURLs                  { return p.icon }
func (p *Project) Color() *int32                          { return p.color }
func (p *Project) Monetization() MonetizationStatus       { return p.monetization }
func (p *Project) Downloads() int64                       { return p.downloads }
func (p *Project) Follows() int64                         { return p.follows }
func (p *Project) PublishedAt() *time.Time                { return p.publishedAt }
func (p *Project) UpdatedAt() time.Time                   { return p.updatedAt }
func (p *Project) ApprovedAt() *time.Time                 { return p.approvedAt }
func (p *Project) QueuedAt() *time.Time                   { return p.queuedAt }

// IsInOrganization reports whether ownership is inherited: no member of
// the project's team may be flagged is_owner while this is true.
func (p *Project) IsInOrganization() bool { return p.organizationID != nil }

func (p *Project) touch() { p.updatedAt = time.Now().UTC() }

// EditDetails applies the EDIT_DETAILS-gated fields; bit-gating happens at
// the application layer, this only enforces structural invariants.
func (p *Project) EditDetails(name, summary *string, licenseID, licenseURL *string) error {
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return ErrNameRequired
		}
		p.name = strings.TrimSpace(*name)
	}
	if summary != nil {
		if len(*summary) > maxSummaryLen {
			return ErrSummaryTooLong
		}
		p.summary = *summary
	}
	if licenseID != nil {
		p.licenseID = *licenseID
	}
	if licenseURL != nil {
		p.licenseURL = *licenseURL
	}
	p.touch()
	return nil
}

// EditBody applies the EDIT_BODY-gated long description.
func (p *Project) EditBody(description string) error {
	if len(description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	p.description = description
	p.touch()
	return nil
}

func (p *Project) ChangeSlug(slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	p.slug = strings.ToLower(slug)
	p.touch()
	return nil
}

func (p *Project) SetCategories(primary, additional []idcodec.CategoryID) error {
	if len(primary) > maxPrimaryCategories {
		return ErrTooManyPrimaryCategories
	}
	if len(additional) > maxAdditionalCategories {
		return ErrTooManyAdditionalCategories
	}
	p.primaryCategories = primary
	p.additionalCategories = additional
	p.touch()
	return nil
}

func (p *Project) SetLink(platform idcodec.LinkPlatformID, url string) {
	if url == "" {
		delete(p.links, platform)
	} else {
		p.links[platform] = url
	}
	p.touch()
}

func (p *Project) AddGalleryItem(item GalleryItem) error {
	if len(p.gallery) >= 64 {
		return ErrTooManyGalleryItems
	}
	p.gallery = append(p.gallery, item)
	p.touch()
	return nil
}

func (p *Project) RemoveGalleryItem(id idcodec.GalleryItemID) {
	out := p.gallery[:0]
	for _, g := range p.gallery {
		if g.ID != id {
			out = append(out, g)
		}
	}
	p.gallery = out
	p.touch()
}

// RequestStatusTransition implements: transitions into
// Approved/Rejected/Withheld require Moderator+. The caller passes whether
// the actor is a moderator (the application layer knows the site role);
// this method returns ErrModeratorRequired when such a transition is
// requested without it, and otherwise records the change.
func (p *Project) RequestStatusTransition(target Status, actorIsModerator bool) error {
	if moderatorOnlyTransition(target) && !actorIsModerator {
		return ErrModeratorRequired
	}
	p.status = target
	p.requestedStatus = nil
	now := time.Now().UTC()
	switch target {
	case StatusApproved:
		p.approvedAt = &now
		if p.publishedAt == nil {
			p.publishedAt = &now
		}
	case StatusScheduled:
		p.queuedAt = &now
	}
	p.touch()
	return nil
}

// SetMonetization enforces: requires Approved status.
func (p *Project) SetMonetization(status MonetizationStatus) error {
	if p.status != StatusApproved {
		return ErrMonetizationRequiresApproved
	}
	p.monetization = status
	p.touch()
	return nil
}

// AdoptInto sets organization_id during OrgService.adopt; it is the
// application layer's job to have already cleared the team owner row.
func (p *Project) AdoptInto(orgID idcodec.OrganizationID) {
	id := orgID
	p.organizationID = &id
	p.touch()
}

// ReleaseFromOrganization clears organization_id during OrgService.release.
func (p *Project) ReleaseFromOrganization() {
	p.organizationID = nil
	p.touch()
}

func (p *Project) IncrementFollows(delta int64) {
	p.follows += delta
	if p.follows < 0 {
		p.follows = 0
	}
}

func (p *Project) IncrementDownloads(delta int64) {
	p.downloads += delta
}

func ValidateSlug(slug string) error {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if len(slug) < 3 || len(slug) > 64 {
		return ErrInvalidSlug
	}
	for _, ch := range slug {
		if !(ch >= 'a' && ch <= 'z') && !(ch >= '0' && ch <= '9') && ch != '_' && ch != '-' {
			return ErrInvalidSlug
		}
	}
	return nil
}

// SlugCollidesWithID reports whether slug is the base62 encoding of some
// existing project id — a slug is rejected if it would be ambiguous with
// another project's encoded id.
func SlugCollidesWithID(slug string, decode func(string) (idcodec.ProjectID, error), exists func(idcodec.ProjectID) bool) bool {
	id, err := decode(slug)
	if err != nil {
		return false
	}
	return exists(id)
}
