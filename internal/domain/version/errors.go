package version

import "errors"

var (
	ErrNotFound                = errors.New("version not found")
	ErrVersionNumberTaken      = errors.New("version number already used in this project")
	ErrInvalidVersionNumber    = errors.New("version number must be 1-32 characters of letters, digits, underscore or dash")
	ErrScheduledRequiresFuture = errors.New("scheduled status requires a future publish timestamp")
	ErrDuplicateFileHash       = errors.New("file hash already used by another version")
	ErrInvalidDependency       = errors.New("dependency must reference an existing version or project")
	ErrDownloadsRequireModerator = errors.New("downloads field is writable only by moderators")
)
