package repository

import "errors"

var (
	// ErrNotFound indicates a referenced node does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrStaleSortOrder indicates a guarded order update found a different
	// sort_order than expected, meaning another writer renumbered the same
	// sibling set between read and write.
	ErrStaleSortOrder = errors.New("stale sort order")
)
