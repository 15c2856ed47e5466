package project

import "errors"

var (
	ErrNotFound                     = errors.New("project not found")
	ErrSlugTaken                    = errors.New("project slug already taken")
	ErrSlugCollidesWithID           = errors.New("slug collides with an existing project id")
	ErrInvalidSlug                  = errors.New("slug must be 3-64 characters of lowercase letters, digits, underscore or dash")
	ErrNameRequired                 = errors.New("project name is required")
	ErrSummaryTooLong               = errors.New("summary exceeds 256 characters")
	ErrDescriptionTooLong           = errors.New("description exceeds 65536 characters")
	ErrTooManyPrimaryCategories     = errors.New("at most 3 primary categories allowed")
	ErrTooManyAdditionalCategories  = errors.New("at most 256 additional categories allowed")
	ErrTooManyGalleryItems          = errors.New("gallery item limit reached")
	ErrModeratorRequired            = errors.New("this status transition requires moderator role")
	ErrMonetizationRequiresApproved = errors.New("monetization status requires an approved project")
	ErrOrganizationInvariant        = errors.New("project team may not have a direct owner while in an organization")
)
