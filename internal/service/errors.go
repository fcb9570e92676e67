package service

import "errors"

var (
	// ErrInvalidParent indicates a create or update referenced a parent
	// that does not exist or cannot own children.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrInvalidDrop indicates a structurally impossible move: a cycle,
	// a self-drop, or an unsupported zone/type combination.
	ErrInvalidDrop = errors.New("invalid drop")

	// ErrNotEmpty indicates a non-cascading delete hit a populated folder.
	ErrNotEmpty = errors.New("folder not empty")

	// ErrInvalidKind indicates an unknown node kind on create.
	ErrInvalidKind = errors.New("invalid node kind")

	// ErrConflictRetryExhausted indicates a sort-order renumbering race
	// was not resolved within the retry budget.
	ErrConflictRetryExhausted = errors.New("conflicting writes: retry budget exhausted")

	// ErrPersistence indicates the underlying store failed after
	// validation had already passed.
	ErrPersistence = errors.New("persistence failure")
)
