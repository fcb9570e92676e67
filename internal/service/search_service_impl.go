package service

import (
	"context"

	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/domain"
	"github.com/avoran/casetree/internal/repository"
)

const (
	// defaultSearchLimit applies when a request leaves Limit unset.
	defaultSearchLimit = 50
	// maxSearchLimit caps a single page regardless of the request.
	maxSearchLimit = 500
)

type searchService struct {
	nodes        repository.TreeNodeRepo
	defaultLimit int
}

// NewSearchService creates the read-only search/pagination service over
// the given node store. pageSize is the page size applied when a request
// leaves Limit unset; values outside (0, maxSearchLimit] fall back to
// defaultSearchLimit.
func NewSearchService(nodes repository.TreeNodeRepo, pageSize int) SearchService {
	if pageSize <= 0 || pageSize > maxSearchLimit {
		pageSize = defaultSearchLimit
	}
	return &searchService{nodes: nodes, defaultLimit: pageSize}
}

// Search matches names case-insensitively and pages through the results.
// When no parent filter narrows the scope to a single sibling set, the
// stable default ordering is root nodes first, then ascending parent id,
// with sort order ascending inside each group.
func (s *searchService) Search(ctx context.Context, req contract.TreeSearchRequest) (*contract.TreeSearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	nodes, total, err := s.nodes.Search(ctx, repository.SearchFilter{
		Query:    req.Query,
		Kind:     req.Type,
		ParentID: req.ParentID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	return &contract.TreeSearchResult{
		Nodes:   nodes,
		Total:   total,
		HasMore: offset+len(nodes) < total,
	}, nil
}

func (s *searchService) Walk(ctx context.Context, fn func(n *domain.TreeNode, depth int) error) error {
	roots, err := s.nodes.ListChildren(ctx, nil)
	if err != nil {
		return err
	}
	return s.walkFrom(ctx, roots, 0, fn)
}

func (s *searchService) walkFrom(ctx context.Context, nodes []*domain.TreeNode, depth int, fn func(n *domain.TreeNode, depth int) error) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(n, depth); err != nil {
			return err
		}
		if !n.CanHaveChildren() {
			continue
		}
		children, err := s.nodes.ListChildren(ctx, &n.ID)
		if err != nil {
			return err
		}
		if err := s.walkFrom(ctx, children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *searchService) Flatten(ctx context.Context) ([]*domain.TreeNode, error) {
	var flat []*domain.TreeNode
	err := s.Walk(ctx, func(n *domain.TreeNode, depth int) error {
		flat = append(flat, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flat, nil
}
