package version

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
)

type Repository interface {
	Create(ctx context.Context, v *Version) error
	Update(ctx context.Context, v *Version) error
	Delete(ctx context.Context, id idcodec.VersionID) error
	FindByID(ctx context.Context, id idcodec.VersionID) (*Version, error)
	FindManyByID(ctx context.Context, ids []idcodec.VersionID) ([]*Version, error)
	ListByProject(ctx context.Context, projectID idcodec.ProjectID) ([]*Version, error)
	ExistsByVersionNumber(ctx context.Context, projectID idcodec.ProjectID, versionNumber string) (bool, error)
	ExistsByFileHash(ctx context.Context, algorithm, hex string) (bool, error)
	ExistsVersionID(ctx context.Context, id idcodec.VersionID) (bool, error)
}
