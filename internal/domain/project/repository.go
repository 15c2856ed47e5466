package project

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
)

type Repository interface {
	Create(ctx context.Context, p *Project) error
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id idcodec.ProjectID) error
	FindByID(ctx context.Context, id idcodec.ProjectID) (*Project, error)
	FindBySlug(ctx context.Context, slug string) (*Project, error)
	FindManyByID(ctx context.Context, ids []idcodec.ProjectID) ([]*Project, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	ExistsByID(ctx context.Context, id idcodec.ProjectID) (bool, error)
	ListByOrganization(ctx context.Context, orgID idcodec.OrganizationID) ([]*Project, error)
	LockForUpdate(ctx context.Context, id idcodec.ProjectID) error
}
