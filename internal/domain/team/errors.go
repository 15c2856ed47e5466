package team

import "errors"

var (
	ErrNotFound            = errors.New("team not found")
	ErrMemberNotFound      = errors.New("team member not found")
	ErrMemberAlreadyExists = errors.New("user is already a team member")
	ErrReservedRole        = errors.New(`role "Owner" is reserved`)
	ErrInvalidPayoutsSplit = errors.New("payouts_split must be between 0 and 5000")
	ErrNotOwner            = errors.New("actor is not the team owner")
	ErrCannotRemoveOwner   = errors.New("cannot remove the team owner")
	ErrCannotEditOwnerRow  = errors.New("only the owner can edit the owner's own row")
	ErrBitsExceedActor     = errors.New("cannot grant bits the actor does not hold")
	ErrNewOwnerNotAccepted = errors.New("new owner must already be an accepted member")
	ErrDanglingAssociation = errors.New("team has no project or organization association")
)
