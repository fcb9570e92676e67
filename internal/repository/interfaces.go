package repository

import (
	"context"

	"github.com/avoran/casetree/internal/domain"
)

// SearchFilter narrows a tree search. Zero values mean "no restriction":
// an empty Query matches every name, a nil Kind matches both kinds, and a
// nil ParentID places no sibling-set restriction.
type SearchFilter struct {
	Query    string
	Kind     *domain.NodeKind
	ParentID *int64
	Limit    int
	Offset   int
}

// TreeNodeRepo is the node persistence contract consumed by the tree
// services. Implementations are constructed over a db.DBTX, so the same
// repository type serves both direct reads and transaction-scoped writes.
type TreeNodeRepo interface {
	// Create inserts the node and assigns its generated ID.
	Create(ctx context.Context, n *domain.TreeNode) error
	GetByID(ctx context.Context, id int64) (*domain.TreeNode, error)
	// ListChildren returns the sibling set under parentID ordered by
	// sort_order ascending. A nil parentID lists root nodes.
	ListChildren(ctx context.Context, parentID *int64) ([]*domain.TreeNode, error)
	// MaxSortOrder returns the highest sort_order in the sibling set, or 0
	// when the set is empty.
	MaxSortOrder(ctx context.Context, parentID *int64) (int, error)
	CountChildren(ctx context.Context, id int64) (int, error)
	Update(ctx context.Context, n *domain.TreeNode) error
	// UpdatePosition writes a new (parent_id, sort_order) for the node,
	// guarded by the sort_order observed at read time. Returns
	// ErrStaleSortOrder when the guard fails.
	UpdatePosition(ctx context.Context, id int64, expectedOrder int, parentID *int64, newOrder int) error
	// DeleteSubtree removes the node and, through the store's cascading
	// foreign key, its entire subtree.
	DeleteSubtree(ctx context.Context, id int64) error
	// Search returns one page of matching nodes plus the total match count
	// ignoring Limit/Offset.
	Search(ctx context.Context, f SearchFilter) ([]*domain.TreeNode, int, error)
}
