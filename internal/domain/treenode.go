package domain

import "time"

// TreeNode is a single entry in the test artifact hierarchy: either a
// folder or a test case. Nodes live in a flat store keyed by ID; ParentID
// is a plain reference, never an owning pointer.
type TreeNode struct {
	ID         int64
	Name       string
	Kind       NodeKind
	ParentID   *int64 // nil means root level
	SortOrder  int
	ChildCount int // derived for folders; recomputed from the store on demand
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsFolder reports whether the node is a folder.
func (n *TreeNode) IsFolder() bool {
	return n.Kind == KindFolder
}

// CanHaveChildren reports whether the node may appear as another node's
// parent. Exhaustive over NodeKind so a new kind forces a decision here.
func (n *TreeNode) CanHaveChildren() bool {
	switch n.Kind {
	case KindFolder:
		return true
	case KindTestCase:
		return false
	default:
		return false
	}
}

// SameParent reports whether other sits in the same sibling set as n.
func (n *TreeNode) SameParent(other *TreeNode) bool {
	if n.ParentID == nil || other.ParentID == nil {
		return n.ParentID == nil && other.ParentID == nil
	}
	return *n.ParentID == *other.ParentID
}
