package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrConflict is returned when a conditional write lost against a
	// concurrent modification of the same document.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned when an identity is not allowed to act on a task.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoHandoff is returned when a handoff operation finds an empty handoff
	// chain. Task creation seeds the chain, so this should be unreachable.
	ErrNoHandoff = errors.New("no handoff record")
)
