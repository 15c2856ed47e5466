// Package organization holds the Organization entity. An Organization's team
// has exactly one owner, who is the de-facto owner of every project whose
// organization_id points at this organization ( "Inherited
// ownership").
package organization

import (
	"strings"
	"time"

	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

type Organization struct {
	id          idcodec.OrganizationID
	slug        string
	name        string
	description string
	teamID      idcodec.TeamID
	icon        user.AvatarURLs
	color       *int32
	createdAt   time.Time
	updatedAt   time.Time
}

func New(id idcodec.OrganizationID, slug, name, description string, teamID idcodec.TeamID) (*Organization, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	now := time.Now().UTC()
	return &Organization{
		id: id, slug: strings.ToLower(slug), name: strings.TrimSpace(name),
		description: description, teamID: teamID, createdAt: now, updatedAt: now,
	}, nil
}

func Reconstruct(id idcodec.OrganizationID, slug, name, description string, teamID idcodec.TeamID, icon user.AvatarURLs, color *int32, createdAt, updatedAt time.Time) *Organization {
	return &Organization{id: id, slug: slug, name: name, description: description, teamID: teamID, icon: icon, color: color, createdAt: createdAt, updatedAt: updatedAt}
}

func (o *Organization) ID() idcodec.OrganizationID { return o.id }
func (o *Organization) Slug() string               { return o.slug }
func (o *Organization) Name() string               { return o.name }
func (o *Organization) Description() string        { return o.description }
func (o *Organization) TeamID() idcodec.TeamID      { return o.teamID }
func (o *Organization) Icon() user.AvatarURLs       { return o.icon }
func (o *Organization) Color() *int32               { return o.color }
func (o *Organization) CreatedAt() time.Time        { return o.createdAt }
func (o *Organization) UpdatedAt() time.Time        { return o.updatedAt }

func (o *Organization) Edit(name, description *string, slug *string) error {
	if slug != nil {
		if err := ValidateSlug(*slug); err != nil {
			return err
		}
		o.slug = strings.ToLower(*slug)
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return ErrNameRequired
		}
		o.name = strings.TrimSpace(*name)
	}
	if description != nil {
		o.description = *description
	}
	o.updatedAt = time.Now().UTC()
	return nil
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
