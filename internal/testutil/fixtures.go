package testutil

import (
	"time"

	"github.com/avoran/casetree/internal/domain"
)

// TreeNode options
type NodeOption func(*domain.TreeNode)

func WithKind(k domain.NodeKind) NodeOption {
	return func(n *domain.TreeNode) {
		n.Kind = k
	}
}

func WithParentID(id int64) NodeOption {
	return func(n *domain.TreeNode) {
		n.ParentID = &id
	}
}

func WithSortOrder(o int) NodeOption {
	return func(n *domain.TreeNode) {
		n.SortOrder = o
	}
}

func WithCreatedBy(user string) NodeOption {
	return func(n *domain.TreeNode) {
		n.CreatedBy = user
	}
}

// NewFolder builds an unsaved root-level folder fixture. The store assigns
// the ID on Create.
func NewFolder(name string, opts ...NodeOption) *domain.TreeNode {
	return newNode(name, domain.KindFolder, opts...)
}

// NewTestCase builds an unsaved root-level test case fixture.
func NewTestCase(name string, opts ...NodeOption) *domain.TreeNode {
	return newNode(name, domain.KindTestCase, opts...)
}

func newNode(name string, kind domain.NodeKind, opts ...NodeOption) *domain.TreeNode {
	now := time.Now().UTC()
	n := &domain.TreeNode{
		Name:      name,
		Kind:      kind,
		SortOrder: 1,
		CreatedBy: "tester",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}
