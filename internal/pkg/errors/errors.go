package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources. It is a
	// normal user-facing outcome, never a server fault.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorage marks backing-store failures. These must never be
	// collapsed into ErrNotFound.
	ErrStorage = errors.New("storage failure")
)
