// Package contract defines the request and result shapes exchanged with
// controller and UI collaborators. Field names are part of the external
// contract; the transport is the caller's concern.
package contract

import "github.com/avoran/casetree/internal/domain"

// CreateTreeNodeRequest asks for a new folder or test case under parentId
// (null for root level).
type CreateTreeNodeRequest struct {
	Name      string          `json:"name"`
	Type      domain.NodeKind `json:"type"`
	ParentID  *int64          `json:"parentId"`
	CreatedBy string          `json:"createdBy"`
}

// UpdateTreeNodeRequest applies partial changes to an existing node. Nil
// fields are left untouched.
type UpdateTreeNodeRequest struct {
	Name      *string `json:"name,omitempty"`
	ParentID  *int64  `json:"parentId,omitempty"`
	SortOrder *int    `json:"sortOrder,omitempty"`
}

// DragDropRequest is the structural edit distilled from a completed drag
// gesture: move draggedNodeId relative to targetNodeId.
type DragDropRequest struct {
	DraggedNodeID int64                `json:"draggedNodeId"`
	TargetNodeID  int64                `json:"targetNodeId"`
	DropType      domain.DropType      `json:"dropType"`
	Position      *domain.DropPosition `json:"position"` // nil for hierarchy drops
}

// NodePosition is a (parentId, sortOrder) pair describing where a node sits.
type NodePosition struct {
	ParentID  *int64 `json:"parentId"`
	SortOrder int    `json:"sortOrder"`
}

// DragDropData carries the moved node's new state together with its prior
// position for undo/audit purposes.
type DragDropData struct {
	MovedNode   *domain.TreeNode `json:"movedNode"`
	NewPosition NodePosition     `json:"newPosition"`
	OldPosition NodePosition     `json:"oldPosition"`
}

// DragDropResult describes the outcome of a move. Data is set only on
// success.
type DragDropResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    *DragDropData `json:"data,omitempty"`
}

// TreeSearchRequest filters and paginates the flattened hierarchy. Zero
// Limit falls back to the service default page size.
type TreeSearchRequest struct {
	Query    string           `json:"query,omitempty"`
	Type     *domain.NodeKind `json:"type,omitempty"`
	ParentID *int64           `json:"parentId,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// TreeSearchResult is one page of matches. Total counts every match
// ignoring pagination; HasMore reports whether another page exists.
type TreeSearchResult struct {
	Nodes   []*domain.TreeNode `json:"nodes"`
	Total   int                `json:"total"`
	HasMore bool               `json:"hasMore"`
}
