package organization

import "errors"

var (
	ErrNotFound      = errors.New("organization not found")
	ErrSlugTaken     = errors.New("organization slug already taken")
	ErrInvalidSlug   = errors.New("slug must be 3-64 characters of lowercase letters, digits, underscore or dash")
	ErrNameRequired  = errors.New("organization name is required")
)
