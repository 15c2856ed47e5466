package user

import "errors"

var (
	ErrNotFound         = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already registered")
	ErrInvalidUsername  = errors.New("username must be 1-39 characters of letters, digits, underscore or dash")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrAlreadyRetired   = errors.New("user is already retired")
)
