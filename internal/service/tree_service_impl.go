package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/db"
	"github.com/avoran/casetree/internal/domain"
	"github.com/avoran/casetree/internal/repository"
)

const (
	// moveRetryBudget bounds retries when another writer renumbers the
	// same sibling set between read and write.
	moveRetryBudget = 3

	// siblingStride spaces out renumbered sibling sets so subsequent
	// reorders can midpoint-insert without renumbering again right away.
	siblingStride = 16

	// maxAncestorDepth bounds the cycle-prevention walk in case the
	// stored parent chain is already corrupt.
	maxAncestorDepth = 512
)

type treeService struct {
	nodes repository.TreeNodeRepo
	uow   db.UnitOfWork
}

// NewTreeService creates the tree mutation engine over the given node
// store and unit of work.
func NewTreeService(nodes repository.TreeNodeRepo, uow db.UnitOfWork) TreeService {
	return &treeService{nodes: nodes, uow: uow}
}

// positionChange is one row of a planned move: a new (parent, order)
// assignment guarded by the sort order observed at planning time.
type positionChange struct {
	id       int64
	expected int
	parentID *int64
	newOrder int
}

func (s *treeService) CreateNode(ctx context.Context, req contract.CreateTreeNodeRequest) (*domain.TreeNode, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("node name is required")
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%q: %w", req.Type, ErrInvalidKind)
	}

	now := time.Now().UTC()
	n := &domain.TreeNode{
		Name:      name,
		Kind:      req.Type,
		ParentID:  req.ParentID,
		CreatedBy: req.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteTreeNodeRepo(tx)

		if req.ParentID != nil {
			parent, err := txNodes.GetByID(ctx, *req.ParentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("parent %d does not exist: %w", *req.ParentID, ErrInvalidParent)
				}
				return err
			}
			if !parent.CanHaveChildren() {
				return fmt.Errorf("parent %d is a %s: %w", parent.ID, parent.Kind, ErrInvalidParent)
			}
		}

		maxOrder, err := txNodes.MaxSortOrder(ctx, req.ParentID)
		if err != nil {
			return err
		}
		n.SortOrder = maxOrder + 1

		return txNodes.Create(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *treeService) GetNode(ctx context.Context, id int64) (*domain.TreeNode, error) {
	n, err := s.nodes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsFolder() {
		count, err := s.nodes.CountChildren(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		n.ChildCount = count
	}
	return n, nil
}

func (s *treeService) RenameNode(ctx context.Context, id int64, newName string) (*domain.TreeNode, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		return nil, fmt.Errorf("node name is required")
	}

	n, err := s.nodes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Name = name
	n.UpdatedAt = time.Now().UTC()
	if err := s.nodes.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *treeService) UpdateNode(ctx context.Context, id int64, req contract.UpdateTreeNodeRequest) (*domain.TreeNode, error) {
	var updated *domain.TreeNode
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteTreeNodeRepo(tx)

		n, err := txNodes.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("node name is required")
			}
			n.Name = name
		}

		if req.ParentID != nil {
			parent, err := txNodes.GetByID(ctx, *req.ParentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("parent %d does not exist: %w", *req.ParentID, ErrInvalidParent)
				}
				return err
			}
			if !parent.CanHaveChildren() {
				return fmt.Errorf("parent %d is a %s: %w", parent.ID, parent.Kind, ErrInvalidParent)
			}
			inSubtree, err := isInSubtree(ctx, txNodes, parent, n.ID)
			if err != nil {
				return err
			}
			if inSubtree {
				return fmt.Errorf("node %d cannot become a child of its own subtree: %w", n.ID, ErrInvalidDrop)
			}
			n.ParentID = req.ParentID
			if req.SortOrder == nil {
				maxOrder, err := txNodes.MaxSortOrder(ctx, req.ParentID)
				if err != nil {
					return err
				}
				n.SortOrder = maxOrder + 1
			}
		}

		if req.SortOrder != nil {
			n.SortOrder = *req.SortOrder
		}

		n.UpdatedAt = time.Now().UTC()
		if err := txNodes.Update(ctx, n); err != nil {
			return err
		}

		// An explicit sort order may collide with an existing sibling;
		// renumbering the set restores uniqueness.
		if req.SortOrder != nil {
			if err := normalizeSiblingOrders(ctx, txNodes, n.ParentID); err != nil {
				return err
			}
		}

		updated, err = txNodes.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *treeService) MoveNode(ctx context.Context, req contract.DragDropRequest) (*contract.DragDropResult, error) {
	var lastErr error
	for attempt := 0; attempt < moveRetryBudget; attempt++ {
		res, err := s.tryMove(ctx, req)
		if err != nil && errors.Is(err, repository.ErrStaleSortOrder) {
			lastErr = err
			continue
		}
		return res, err
	}
	err := fmt.Errorf("%w after %d attempts: %v", ErrConflictRetryExhausted, moveRetryBudget, lastErr)
	return &contract.DragDropResult{
		Success: false,
		Message: "another change conflicted with this move; try again",
	}, err
}

// tryMove performs one read-validate-write pass of the move algorithm.
// The whole pass runs inside one transaction so position computations
// (max sort order, sibling listings) and the guarded writes observe the
// same committed state; a concurrent append into the target sibling set
// can never slip in between plan and commit. A
// repository.ErrStaleSortOrder return means the guard still caught a
// renumbering race and the caller may retry.
func (s *treeService) tryMove(ctx context.Context, req contract.DragDropRequest) (*contract.DragDropResult, error) {
	var res *contract.DragDropResult

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteTreeNodeRepo(tx)

		dragged, err := txNodes.GetByID(ctx, req.DraggedNodeID)
		if err != nil {
			res = failure(fmt.Sprintf("dragged node %d not found", req.DraggedNodeID))
			return err
		}
		target, err := txNodes.GetByID(ctx, req.TargetNodeID)
		if err != nil {
			res = failure(fmt.Sprintf("drop target %d not found", req.TargetNodeID))
			return err
		}

		var (
			changes []positionChange
			message string
		)
		switch req.DropType {
		case domain.DropHierarchy:
			changes, message, err = planReparent(ctx, txNodes, dragged, target)
		case domain.DropReorder:
			changes, message, err = planReorder(ctx, txNodes, dragged, target, req.Position)
		default:
			message = fmt.Sprintf("unsupported drop type %q", req.DropType)
			err = fmt.Errorf("drop type %q: %w", req.DropType, ErrInvalidDrop)
		}
		if err != nil {
			res = failure(message)
			return err
		}

		oldPos := contract.NodePosition{ParentID: dragged.ParentID, SortOrder: dragged.SortOrder}

		if len(changes) == 0 {
			// Degenerate move: the node already sits where the drop
			// would put it. Succeed without touching the store.
			res = &contract.DragDropResult{
				Success: true,
				Message: fmt.Sprintf("%q is already in place", dragged.Name),
				Data: &contract.DragDropData{
					MovedNode:   dragged,
					NewPosition: oldPos,
					OldPosition: oldPos,
				},
			}
			return nil
		}

		for _, ch := range changes {
			if err := txNodes.UpdatePosition(ctx, ch.id, ch.expected, ch.parentID, ch.newOrder); err != nil {
				return err
			}
		}

		moved, err := txNodes.GetByID(ctx, dragged.ID)
		if err != nil {
			return err
		}
		res = &contract.DragDropResult{
			Success: true,
			Message: message,
			Data: &contract.DragDropData{
				MovedNode:   moved,
				NewPosition: contract.NodePosition{ParentID: moved.ParentID, SortOrder: moved.SortOrder},
				OldPosition: oldPos,
			},
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleSortOrder):
			return nil, err // caller retries
		case errors.Is(err, ErrInvalidDrop):
			return res, err
		case errors.Is(err, repository.ErrNotFound):
			if res == nil {
				res = failure("a node in this move no longer exists")
			}
			return res, err
		default:
			return nil, fmt.Errorf("committing move: %w", errors.Join(ErrPersistence, err))
		}
	}
	return res, nil
}

// planReparent validates a hierarchy drop and plans the append into the
// target folder. An empty change list with nil error is a degenerate
// no-op; a non-nil error's message string is the user-facing rejection.
func planReparent(ctx context.Context, nodes repository.TreeNodeRepo, dragged, target *domain.TreeNode) ([]positionChange, string, error) {
	if target.ID == dragged.ID {
		return nil, "cannot drop a node onto itself",
			fmt.Errorf("node %d dropped onto itself: %w", dragged.ID, ErrInvalidDrop)
	}
	if !target.CanHaveChildren() {
		return nil, fmt.Sprintf("%q is a test case and cannot contain other nodes", target.Name),
			fmt.Errorf("target %d is a %s: %w", target.ID, target.Kind, ErrInvalidDrop)
	}
	inSubtree, err := isInSubtree(ctx, nodes, target, dragged.ID)
	if err != nil {
		return nil, "could not verify the target folder's ancestry", err
	}
	if inSubtree {
		return nil, fmt.Sprintf("cannot move %q into its own subtree", dragged.Name),
			fmt.Errorf("target %d is a descendant of node %d: %w", target.ID, dragged.ID, ErrInvalidDrop)
	}

	if dragged.ParentID != nil && *dragged.ParentID == target.ID {
		return nil, "", nil // already a child of the target folder
	}

	maxOrder, err := nodes.MaxSortOrder(ctx, &target.ID)
	if err != nil {
		return nil, "could not read the target folder's ordering", err
	}
	change := positionChange{
		id:       dragged.ID,
		expected: dragged.SortOrder,
		parentID: &target.ID,
		newOrder: maxOrder + 1,
	}
	return []positionChange{change}, fmt.Sprintf("moved %q into %q", dragged.Name, target.Name), nil
}

// planReorder validates a reorder drop and plans the new sort orders for
// the sibling set. It midpoint-inserts when a gap exists and renumbers
// the whole set with evenly spaced values when it does not.
func planReorder(ctx context.Context, nodes repository.TreeNodeRepo, dragged, target *domain.TreeNode, pos *domain.DropPosition) ([]positionChange, string, error) {
	if pos == nil || (*pos != domain.PositionBefore && *pos != domain.PositionAfter) {
		return nil, "a reorder drop needs a before/after position",
			fmt.Errorf("missing or unknown reorder position: %w", ErrInvalidDrop)
	}
	if !dragged.SameParent(target) {
		return nil, fmt.Sprintf("%q is in a different folder than %q", target.Name, dragged.Name),
			fmt.Errorf("reorder across sibling sets (node %d vs %d): %w", dragged.ID, target.ID, ErrInvalidDrop)
	}
	if dragged.ID == target.ID {
		return nil, "", nil // reordering relative to itself changes nothing
	}

	siblings, err := nodes.ListChildren(ctx, dragged.ParentID)
	if err != nil {
		return nil, "could not read the sibling set", err
	}

	rest := make([]*domain.TreeNode, 0, len(siblings))
	for _, n := range siblings {
		if n.ID != dragged.ID {
			rest = append(rest, n)
		}
	}
	targetIdx := -1
	for i, n := range rest {
		if n.ID == target.ID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, fmt.Sprintf("drop target %d not found", target.ID),
			fmt.Errorf("target %d left the sibling set: %w", target.ID, repository.ErrNotFound)
	}

	insertIdx := targetIdx
	if *pos == domain.PositionAfter {
		insertIdx = targetIdx + 1
	}
	final := slices.Insert(slices.Clone(rest), insertIdx, dragged)

	if sameNodeOrder(final, siblings) {
		return nil, "", nil // drop lands on the node's current position
	}

	message := fmt.Sprintf("moved %q %s %q", dragged.Name, *pos, target.Name)

	var low int
	if insertIdx > 0 {
		low = final[insertIdx-1].SortOrder
	}
	if insertIdx == len(final)-1 {
		// Appending past the last sibling: any value above it works.
		return []positionChange{{dragged.ID, dragged.SortOrder, dragged.ParentID, low + 1}}, message, nil
	}

	high := final[insertIdx+1].SortOrder
	if high-low >= 2 {
		return []positionChange{{dragged.ID, dragged.SortOrder, dragged.ParentID, (low + high) / 2}}, message, nil
	}

	// No gap left between the neighbors: renumber the full sibling set
	// with evenly spaced values. The renumbering is local to this one
	// sibling set, never the whole tree.
	var changes []positionChange
	for i, n := range final {
		ord := (i + 1) * siblingStride
		if n.SortOrder == ord {
			continue
		}
		changes = append(changes, positionChange{n.ID, n.SortOrder, dragged.ParentID, ord})
	}
	return changes, message, nil
}

func (s *treeService) DeleteNode(ctx context.Context, id int64, cascade bool) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txNodes := repository.NewSQLiteTreeNodeRepo(tx)

		if _, err := txNodes.GetByID(ctx, id); err != nil {
			return err
		}
		if !cascade {
			count, err := txNodes.CountChildren(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("folder %d has %d children: %w", id, count, ErrNotEmpty)
			}
		}
		return txNodes.DeleteSubtree(ctx, id)
	})
}

// failure builds the rejection half of a DragDropResult; the typed error
// identifying the rejection category travels alongside it.
func failure(msg string) *contract.DragDropResult {
	return &contract.DragDropResult{Success: false, Message: msg}
}

// isInSubtree reports whether candidate is rootID itself or a descendant
// of it, walking candidate's ancestor chain toward the root. This is the
// cycle-prevention check for reparent operations.
func isInSubtree(ctx context.Context, nodes repository.TreeNodeRepo, candidate *domain.TreeNode, rootID int64) (bool, error) {
	if candidate.ID == rootID {
		return true, nil
	}
	cur := candidate
	for depth := 0; cur.ParentID != nil; depth++ {
		if depth >= maxAncestorDepth {
			return false, fmt.Errorf("ancestor chain of node %d exceeds %d levels", candidate.ID, maxAncestorDepth)
		}
		if *cur.ParentID == rootID {
			return true, nil
		}
		parent, err := nodes.GetByID(ctx, *cur.ParentID)
		if err != nil {
			return false, err
		}
		cur = parent
	}
	return false, nil
}

// normalizeSiblingOrders renumbers a sibling set with evenly spaced
// values when duplicates are present; ties keep the store's listing
// order. A set without duplicates is left untouched.
func normalizeSiblingOrders(ctx context.Context, nodes repository.TreeNodeRepo, parentID *int64) error {
	siblings, err := nodes.ListChildren(ctx, parentID)
	if err != nil {
		return err
	}

	seen := make(map[int]bool, len(siblings))
	dup := false
	for _, n := range siblings {
		if seen[n.SortOrder] {
			dup = true
			break
		}
		seen[n.SortOrder] = true
	}
	if !dup {
		return nil
	}

	for i, n := range siblings {
		ord := (i + 1) * siblingStride
		if n.SortOrder == ord {
			continue
		}
		if err := nodes.UpdatePosition(ctx, n.ID, n.SortOrder, parentID, ord); err != nil {
			return err
		}
	}
	return nil
}

// sameNodeOrder reports whether two sibling slices list the same nodes in
// the same sequence.
func sameNodeOrder(a, b []*domain.TreeNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
