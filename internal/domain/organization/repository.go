package organization

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
)

type Repository interface {
	Create(ctx context.Context, o *Organization) error
	Update(ctx context.Context, o *Organization) error
	Delete(ctx context.Context, id idcodec.OrganizationID) error
	FindByID(ctx context.Context, id idcodec.OrganizationID) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	FindManyByID(ctx context.Context, ids []idcodec.OrganizationID) ([]*Organization, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	ListProjectIDs(ctx context.Context, id idcodec.OrganizationID) ([]idcodec.ProjectID, error)
}
