package service

import (
	"context"

	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/domain"
)

// TreeService is the tree mutation engine: it validates and executes
// create/rename/move/delete operations against the node store, computing
// sort positions and rejecting structural violations before any write.
type TreeService interface {
	CreateNode(ctx context.Context, req contract.CreateTreeNodeRequest) (*domain.TreeNode, error)
	// GetNode returns the node with ChildCount recomputed for folders.
	GetNode(ctx context.Context, id int64) (*domain.TreeNode, error)
	RenameNode(ctx context.Context, id int64, newName string) (*domain.TreeNode, error)
	UpdateNode(ctx context.Context, id int64, req contract.UpdateTreeNodeRequest) (*domain.TreeNode, error)
	// MoveNode executes a drag-and-drop edit. On semantic rejection the
	// result has Success=false and the returned error identifies the
	// category (ErrInvalidDrop, repository.ErrNotFound); the stored tree
	// is untouched. Infrastructure failures return a nil result.
	MoveNode(ctx context.Context, req contract.DragDropRequest) (*contract.DragDropResult, error)
	DeleteNode(ctx context.Context, id int64, cascade bool) error
}

// SearchService is the read-only search/pagination surface over the same
// node model. It never mutates the tree and always reads committed state.
type SearchService interface {
	Search(ctx context.Context, req contract.TreeSearchRequest) (*contract.TreeSearchResult, error)
	// Walk visits the whole hierarchy depth-first, parents before
	// children, calling fn with each node and its depth.
	Walk(ctx context.Context, fn func(n *domain.TreeNode, depth int) error) error
	// Flatten returns the depth-first flattening produced by Walk.
	Flatten(ctx context.Context) ([]*domain.TreeNode, error)
}
