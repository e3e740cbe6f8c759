package data

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrBadPassword        = errors.New("password is incorrect")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrTaskNotFound       = errors.New("task does not exist")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrTaskIDMismatch is returned when a replacement task carries an id
	// other than the one it is meant to replace.
	ErrTaskIDMismatch = errors.New("task id cannot be changed")
)
