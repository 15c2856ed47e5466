package team

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
)

// Repository persists Team rows and resolves their association.
type Repository interface {
	Create(ctx context.Context, id idcodec.TeamID) (*Team, error)
	Delete(ctx context.Context, id idcodec.TeamID) error
	Association(ctx context.Context, id idcodec.TeamID) (Association, error)

	// LockForUpdate acquires a row-level lock on the team (and, transitively,
	// its associate) for the duration of the caller's transaction.
	LockForUpdate(ctx context.Context, id idcodec.TeamID) error
}

// MemberRepository persists TeamMember edges.
type MemberRepository interface {
	Add(ctx context.Context, m *Member) error
	Update(ctx context.Context, m *Member) error
	Remove(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) error
	Find(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) (*Member, error)
	FindOwner(ctx context.Context, teamID idcodec.TeamID) (*Member, error)
	ListByTeam(ctx context.Context, teamID idcodec.TeamID) ([]*Member, error)
	ListByUser(ctx context.Context, userID idcodec.UserID) ([]*Member, error)
	CountOwners(ctx context.Context, teamID idcodec.TeamID) (int, error)
}
