package user

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
)

// Repository persists User aggregates. The postgres implementation lives in
// internal/store; this interface is what the application layer depends on.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id idcodec.UserID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindManyByID(ctx context.Context, ids []idcodec.UserID) ([]*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
