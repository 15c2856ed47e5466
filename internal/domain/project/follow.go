package project

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
)

// FollowRepository tracks the (user, project) follow relation underpinning
// the follow/unfollow operation. It is kept separate from Repository
// because follows are a pure join table with no cached aggregate of their
// own.
type FollowRepository interface {
	Follow(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (alreadyFollowing bool, err error)
	Unfollow(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (wasFollowing bool, err error)
	IsFollowing(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (bool, error)
}
