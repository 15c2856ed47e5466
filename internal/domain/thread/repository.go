package thread

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
)

type Repository interface {
	Create(ctx context.Context, t *Thread) error
	Update(ctx context.Context, t *Thread) error
	FindByID(ctx context.Context, id idcodec.ThreadID) (*Thread, error)
	FindByProject(ctx context.Context, projectID idcodec.ProjectID) (*Thread, error)
	FindByVersion(ctx context.Context, versionID idcodec.VersionID) (*Thread, error)
}
