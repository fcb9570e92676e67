package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/db"
	"github.com/avoran/casetree/internal/domain"
	"github.com/avoran/casetree/internal/repository"
	"github.com/avoran/casetree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reorderReq(draggedID, targetID int64, pos domain.DropPosition) contract.DragDropRequest {
	return contract.DragDropRequest{
		DraggedNodeID: draggedID,
		TargetNodeID:  targetID,
		DropType:      domain.DropReorder,
		Position:      &pos,
	}
}

func hierarchyReq(draggedID, targetID int64) contract.DragDropRequest {
	return contract.DragDropRequest{
		DraggedNodeID: draggedID,
		TargetNodeID:  targetID,
		DropType:      domain.DropHierarchy,
	}
}

func childNames(t *testing.T, repo repository.TreeNodeRepo, parentID *int64) []string {
	t.Helper()
	children, err := repo.ListChildren(context.Background(), parentID)
	require.NoError(t, err)
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	return names
}

func TestTreeService_MoveNode_ReorderBefore(t *testing.T) {
	svc, repo := setupTreeService(t)
	ctx := context.Background()

	suite := mustCreate(t, svc, "Suite", domain.KindFolder, nil)
	t1 := mustCreate(t, svc, "t1", domain.KindTestCase, &suite.ID)
	mustCreate(t, svc, "t2", domain.KindTestCase, &suite.ID)
	t3 := mustCreate(t, svc, "t3", domain.KindTestCase, &suite.ID)

	res, err := svc.MoveNode(ctx, reorderReq(t3.ID, t1.ID, domain.PositionBefore))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, []string{"t3", "t1", "t2"}, childNames(t, repo, &suite.ID))

	require.NotNil(t, res.Data)
	assert.Equal(t, t3.SortOrder, res.Data.OldPosition.SortOrder)
	assert.NotEqual(t, res.Data.OldPosition.SortOrder, res.Data.NewPosition.SortOrder)
}

func TestTreeService_MoveNode_ReorderAfter(t *testing.T) {
	svc, repo := setupTreeService(t)
	ctx := context.Background()

	suite := mustCreate(t, svc, "Suite", domain.KindFolder, nil)
	t1 := mustCreate(t, svc, "t1", domain.KindTestCase, &suite.ID)
	t2 := mustCreate(t, svc, "t2", domain.KindTestCase, &suite.ID)
	mustCreate(t, svc, "t3", domain.KindTestCase, &suite.ID)

	res, err := svc.MoveNode(ctx, reorderReq(t1.ID, t2.ID, domain.PositionAfter))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, []string{"t2", "t1", "t3"}, childNames(t, repo, &suite.ID))
}

func TestTreeService_MoveNode_MidpointInsertion(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTreeNodeRepo(database)
	svc := NewTreeService(repo, testutil.NewTestUoW(database))
	ctx := context.Background()

	folder := testutil.NewFolder("Suite")
	require.NoError(t, repo.Create(ctx, folder))
	a := testutil.NewTestCase("a", testutil.WithParentID(folder.ID), testutil.WithSortOrder(10))
	b := testutil.NewTestCase("b", testutil.WithParentID(folder.ID), testutil.WithSortOrder(20))
	c := testutil.NewTestCase("c", testutil.WithParentID(folder.ID), testutil.WithSortOrder(30))
	for _, n := range []*domain.TreeNode{a, b, c} {
		require.NoError(t, repo.Create(ctx, n))
	}

	// A gap exists between a(10) and b(20); only the dragged node moves.
	res, err := svc.MoveNode(ctx, reorderReq(c.ID, b.ID, domain.PositionBefore))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 15, res.Data.MovedNode.SortOrder)

	storedA, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	storedB, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, storedA.SortOrder, "untouched sibling keeps its order")
	assert.Equal(t, 20, storedB.SortOrder, "untouched sibling keeps its order")
}

func TestTreeService_MoveNode_AppendAfterLast(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTreeNodeRepo(database)
	svc := NewTreeService(repo, testutil.NewTestUoW(database))
	ctx := context.Background()

	folder := testutil.NewFolder("Suite")
	require.NoError(t, repo.Create(ctx, folder))
	a := testutil.NewTestCase("a", testutil.WithParentID(folder.ID), testutil.WithSortOrder(10))
	b := testutil.NewTestCase("b", testutil.WithParentID(folder.ID), testutil.WithSortOrder(20))
	c := testutil.NewTestCase("c", testutil.WithParentID(folder.ID), testutil.WithSortOrder(30))
	for _, n := range []*domain.TreeNode{a, b, c} {
		require.NoError(t, repo.Create(ctx, n))
	}

	res, err := svc.MoveNode(ctx, reorderReq(a.ID, c.ID, domain.PositionAfter))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 31, res.Data.MovedNode.SortOrder, "append goes one past the last sibling")
	assert.Equal(t, []string{"b", "c", "a"}, childNames(t, repo, &folder.ID))
}

func TestTreeService_MoveNode_RenumbersWhenNoGap(t *testing.T) {
	svc, repo := setupTreeService(t)
	ctx := context.Background()

	suite := mustCreate(t, svc, "Suite", domain.KindFolder, nil)
	mustCreate(t, svc, "t1", domain.KindTestCase, &suite.ID)
	t2 := mustCreate(t, svc, "t2", domain.KindTestCase, &suite.ID)
	t3 := mustCreate(t, svc, "t3", domain.KindTestCase, &suite.ID)

	// Orders 1,2,3 leave no midpoint between t1 and t2.
	res, err := svc.MoveNode(ctx, reorderReq(t3.ID, t2.ID, domain.PositionBefore))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, []string{"t1", "t3", "t2"}, childNames(t, repo, &suite.ID))

	siblings, err := repo.ListChildren(ctx, &suite.ID)
	require.NoError(t, err)
	seen := make(map[int]bool)
	for _, n := range siblings {
		assert.False(t, seen[n.SortOrder], "renumbered set must not contain duplicates")
		seen[n.SortOrder] = true
	}
}

func TestTreeService_MoveNode_Hierarchy(t *testing.T) {
	svc, repo := setupTreeService(t)
	ctx := context.Background()

	src := mustCreate(t, svc, "Source", domain.KindFolder, nil)
	dst := mustCreate(t, svc, "Destination", domain.KindFolder, nil)
	mustCreate(t, svc, "existing", domain.KindTestCase, &dst.ID)
	moving := mustCreate(t, svc, "moving", domain.KindTestCase, &src.ID)

	res, err := svc.MoveNode(ctx, hierarchyReq(moving.ID, dst.ID))
	require.NoError(t, err)
	require.True(t, res.Success)

	moved := res.Data.MovedNode
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, dst.ID, *moved.ParentID)
	assert.Equal(t, []string{"existing", "moving"}, childNames(t, repo, &dst.ID))
	assert.Empty(t, childNames(t, repo, &src.ID))
}

func TestTreeService_MoveNode_RejectsInvalidDrops(t *testing.T) {
	svc, repo := setupTreeService(t)
	ctx := context.Background()

	top := mustCreate(t, svc, "top", domain.KindFolder, nil)
	mid := mustCreate(t, svc, "mid", domain.KindFolder, &top.ID)
	leaf := mustCreate(t, svc, "leaf", domain.KindTestCase, &top.ID)
	other := mustCreate(t, svc, "other", domain.KindFolder, nil)

	cases := []struct {
		name string
		req  contract.DragDropRequest
	}{
		{"into own subtree", hierarchyReq(top.ID, mid.ID)},
		{"onto itself", hierarchyReq(top.ID, top.ID)},
		{"into a test case", hierarchyReq(mid.ID, leaf.ID)},
		{"reorder across folders", reorderReq(mid.ID, other.ID, domain.PositionBefore)},
		{"reorder without position", contract.DragDropRequest{DraggedNodeID: mid.ID, TargetNodeID: leaf.ID, DropType: domain.DropReorder}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.MoveNode(ctx, tc.req)
			assert.ErrorIs(t, err, ErrInvalidDrop)
			require.NotNil(t, res)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}

	// The rejected drops must leave the tree untouched.
	stored, err := repo.GetByID(ctx, top.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ParentID)
	assert.Equal(t, []string{"mid", "leaf"}, childNames(t, repo, &top.ID))
}

func TestTreeService_MoveNode_UnknownDropType(t *testing.T) {
	svc, _ := setupTreeService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "a", domain.KindTestCase, nil)
	b := mustCreate(t, svc, "b", domain.KindTestCase, nil)

	res, err := svc.MoveNode(ctx, contract.DragDropRequest{
		DraggedNodeID: a.ID,
		TargetNodeID:  b.ID,
		DropType:      "teleport",
	})
	assert.ErrorIs(t, err, ErrInvalidDrop)
	require.NotNil(t, res)
	assert.False(t, res.Success)
}

func TestTreeService_MoveNode_MissingNodes(t *testing.T) {
	svc, _ := setupTreeService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "a", domain.KindTestCase, nil)

	res, err := svc.MoveNode(ctx, reorderReq(9999, a.ID, domain.PositionBefore))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NotNil(t, res)
	assert.False(t, res.Success)

	res, err = svc.MoveNode(ctx, reorderReq(a.ID, 9999, domain.PositionAfter))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NotNil(t, res)
	assert.False(t, res.Success)
}

func TestTreeService_MoveNode_VanishedSiblingSetIsRejected(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTreeNodeRepo(database)
	ctx := context.Background()

	folder := testutil.NewFolder("Suite")
	require.NoError(t, repo.Create(ctx, folder))

	// Both nodes claim the folder as parent but were never committed, so
	// the stored sibling set is empty. The plan must reject the drop
	// rather than trip over the missing rows.
	dragged := testutil.NewTestCase("a", testutil.WithParentID(folder.ID), testutil.WithSortOrder(1))
	target := testutil.NewTestCase("b", testutil.WithParentID(folder.ID), testutil.WithSortOrder(2))
	dragged.ID = 101
	target.ID = 102

	pos := domain.PositionBefore
	changes, _, err := planReorder(ctx, repo, dragged, target, &pos)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, changes)
}

func TestTreeService_MoveNode_DegenerateMovesAreNoOps(t *testing.T) {
	svc, repo := setupTreeService(t)
	ctx := context.Background()

	suite := mustCreate(t, svc, "Suite", domain.KindFolder, nil)
	t1 := mustCreate(t, svc, "t1", domain.KindTestCase, &suite.ID)
	t2 := mustCreate(t, svc, "t2", domain.KindTestCase, &suite.ID)

	cases := []struct {
		name string
		req  contract.DragDropRequest
	}{
		{"reorder relative to itself", reorderReq(t1.ID, t1.ID, domain.PositionBefore)},
		{"drop into current parent", hierarchyReq(t1.ID, suite.ID)},
		{"drop onto current position", reorderReq(t1.ID, t2.ID, domain.PositionBefore)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.MoveNode(ctx, tc.req)
			require.NoError(t, err)
			require.True(t, res.Success)
			require.NotNil(t, res.Data)
			assert.Equal(t, res.Data.OldPosition, res.Data.NewPosition)
			assert.Equal(t, []string{"t1", "t2"}, childNames(t, repo, &suite.ID))
		})
	}
}

func TestTreeService_MoveNode_PersistenceFailureRollsBack(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTreeNodeRepo(database)
	boom := errors.New("disk I/O error")
	svc := NewTreeService(repo, &testutil.FailOnNthExecUoW{DB: database, FailOn: 1, Err: boom})
	ctx := context.Background()

	folder := testutil.NewFolder("Suite")
	require.NoError(t, repo.Create(ctx, folder))
	a := testutil.NewTestCase("a", testutil.WithParentID(folder.ID), testutil.WithSortOrder(1))
	b := testutil.NewTestCase("b", testutil.WithParentID(folder.ID), testutil.WithSortOrder(2))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	res, err := svc.MoveNode(ctx, reorderReq(b.ID, a.ID, domain.PositionBefore))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)

	assert.Equal(t, []string{"a", "b"}, childNames(t, repo, &folder.ID))
}

// interceptUoW runs a hook before each transaction begins, standing in
// for a competing writer whose commit lands first.
type interceptUoW struct {
	inner  db.UnitOfWork
	before func(ctx context.Context) error
}

func (u *interceptUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	if u.before != nil {
		if err := u.before(ctx); err != nil {
			return err
		}
	}
	return u.inner.WithinTx(ctx, fn)
}

// staleOrderUoW bumps a node's sort order through the open transaction
// just before the engine's first write, so the guarded update sees a
// sort order that no longer matches what was planned.
type staleOrderUoW struct {
	inner   db.UnitOfWork
	nodeID  int64
	tampers int
}

func (u *staleOrderUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return u.inner.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if u.tampers == 0 {
			return fn(ctx, tx)
		}
		u.tampers--
		return fn(ctx, &tamperFirstWriteTx{DBTX: tx, nodeID: u.nodeID})
	})
}

type tamperFirstWriteTx struct {
	db.DBTX
	nodeID int64
	fired  bool
}

func (t *tamperFirstWriteTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if !t.fired {
		t.fired = true
		if _, err := t.DBTX.ExecContext(ctx,
			"UPDATE tree_nodes SET sort_order = sort_order + 100 WHERE id = ?", t.nodeID); err != nil {
			return nil, err
		}
	}
	return t.DBTX.ExecContext(ctx, query, args...)
}

// seedConflictSet creates a folder whose children are first(20), second(30),
// mover(40); moving mover before first stays a real move no matter how far
// the tamperer pushes mover's sort order up.
func seedConflictSet(t *testing.T, repo repository.TreeNodeRepo) (folder, first, mover *domain.TreeNode) {
	t.Helper()
	ctx := context.Background()

	folder = testutil.NewFolder("Suite")
	require.NoError(t, repo.Create(ctx, folder))
	first = testutil.NewTestCase("first", testutil.WithParentID(folder.ID), testutil.WithSortOrder(20))
	second := testutil.NewTestCase("second", testutil.WithParentID(folder.ID), testutil.WithSortOrder(30))
	mover = testutil.NewTestCase("mover", testutil.WithParentID(folder.ID), testutil.WithSortOrder(40))
	for _, n := range []*domain.TreeNode{first, second, mover} {
		require.NoError(t, repo.Create(ctx, n))
	}
	return folder, first, mover
}

func TestTreeService_MoveNode_RetriesStaleConflict(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTreeNodeRepo(database)
	folder, first, mover := seedConflictSet(t, repo)

	uow := &staleOrderUoW{
		inner:   testutil.NewTestUoW(database),
		nodeID:  mover.ID,
		tampers: 1,
	}
	svc := NewTreeService(repo, uow)

	// The first attempt hits the tampered order, rolls back, and retries;
	// the second re-reads and succeeds.
	res, err := svc.MoveNode(context.Background(), reorderReq(mover.ID, first.ID, domain.PositionBefore))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, []string{"mover", "first", "second"}, childNames(t, repo, &folder.ID))
}

func TestTreeService_MoveNode_ExhaustsRetryBudget(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTreeNodeRepo(database)
	_, first, mover := seedConflictSet(t, repo)

	uow := &staleOrderUoW{
		inner:   testutil.NewTestUoW(database),
		nodeID:  mover.ID,
		tampers: -1, // tamper on every attempt
	}
	svc := NewTreeService(repo, uow)

	res, err := svc.MoveNode(context.Background(), reorderReq(mover.ID, first.ID, domain.PositionBefore))
	assert.ErrorIs(t, err, ErrConflictRetryExhausted)
	require.NotNil(t, res)
	assert.False(t, res.Success)
}

func TestTreeService_MoveNode_ConcurrentAppendKeepsOrdersDistinct(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteTreeNodeRepo(database)
	ctx := context.Background()

	src := testutil.NewFolder("Source")
	dst := testutil.NewFolder("Destination")
	require.NoError(t, repo.Create(ctx, src))
	require.NoError(t, repo.Create(ctx, dst))
	t1 := testutil.NewTestCase("t1", testutil.WithParentID(src.ID), testutil.WithSortOrder(1))
	t2 := testutil.NewTestCase("t2", testutil.WithParentID(src.ID), testutil.WithSortOrder(2))
	require.NoError(t, repo.Create(ctx, t1))
	require.NoError(t, repo.Create(ctx, t2))

	// A second writer appends t2 into the destination folder in the
	// window between this service's MoveNode call and its transaction.
	// Position computation runs inside the transaction, so the engine
	// must see the freshly committed sibling and append past it rather
	// than hand both nodes the same sort order.
	competitor := NewTreeService(repo, testutil.NewTestUoW(database))
	raced := false
	uow := &interceptUoW{
		inner: testutil.NewTestUoW(database),
		before: func(ctx context.Context) error {
			if raced {
				return nil
			}
			raced = true
			res, err := competitor.MoveNode(ctx, hierarchyReq(t2.ID, dst.ID))
			if err != nil {
				return err
			}
			require.True(t, res.Success)
			return nil
		},
	}
	svc := NewTreeService(repo, uow)

	res, err := svc.MoveNode(ctx, hierarchyReq(t1.ID, dst.ID))
	require.NoError(t, err)
	require.True(t, res.Success)

	children, err := repo.ListChildren(ctx, &dst.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	seen := make(map[int]bool, len(children))
	for _, c := range children {
		assert.False(t, seen[c.SortOrder], "sibling set must not contain duplicate sort orders")
		seen[c.SortOrder] = true
	}
}
