// Package vocab holds the server-managed vocabularies — categories, mod
// loaders, loader fields, gallery items, and link platforms — that are the
// only accepted inputs to the corresponding project/version fields. They
// are process-wide state: loaded at startup, refreshed on admin mutation,
// read by every request through Cache's global vocabulary snapshot.
package vocab

import "github.com/modhub/platform/internal/idcodec"

// Category is a project classification tag (e.g. "technology", "adventure").
type Category struct {
	ID      idcodec.CategoryID
	Name    string
	Header  string // grouping header shown in client UI, e.g. "Resources"
}

// Loader is a mod-loader platform a version can target (e.g. "fabric").
type Loader struct {
	ID             idcodec.LoaderID
	Name           string
	SupportedKinds []string // project kinds this loader applies to, e.g. "mod", "modpack"
}

// FieldType is the value shape a LoaderField accepts.
type FieldType string

const (
	FieldTypeBoolean    FieldType = "boolean"
	FieldTypeInteger    FieldType = "integer"
	FieldTypeString     FieldType = "string"
	FieldTypeArrayEnum  FieldType = "array_enum"
	FieldTypeArrayString FieldType = "array_string"
)

// LoaderField is a typed key a version may set under its loader-field map
// (e.g. "game_versions", "client_and_server").
type LoaderField struct {
	ID        idcodec.LoaderFieldID
	Key       string
	Type      FieldType
	EnumValues []string // only meaningful when Type == FieldTypeArrayEnum
}

// Validate checks a raw value against the field's declared type.
func (f LoaderField) Validate(value any) bool {
	switch f.Type {
	case FieldTypeBoolean:
		_, ok := value.(bool)
		return ok
	case FieldTypeInteger:
		_, ok := value.(int)
		return ok
	case FieldTypeString:
		_, ok := value.(string)
		return ok
	case FieldTypeArrayString:
		_, ok := value.([]string)
		return ok
	case FieldTypeArrayEnum:
		values, ok := value.([]string)
		if !ok {
			return false
		}
		allowed := make(map[string]bool, len(f.EnumValues))
		for _, v := range f.EnumValues {
			allowed[v] = true
		}
		for _, v := range values {
			if !allowed[v] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// LinkPlatform is a named external link slot a project may populate
// (e.g. "issues", "source", "wiki", "discord").
type LinkPlatform struct {
	ID       idcodec.LinkPlatformID
	Name     string
	Donation bool // donation platforms (e.g. "patreon") render distinctly
}

// MaxGalleryItems is a gallery-size bound kept beside the vocabulary types.
// Gallery items are per-project, not a shared vocabulary, and
// internal/domain/project does not read this constant.
const MaxGalleryItems = 64
