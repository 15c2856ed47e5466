package thread

import "errors"

var (
	ErrNotFound        = errors.New("thread not found")
	ErrMessageNotFound = errors.New("thread message not found")
)
