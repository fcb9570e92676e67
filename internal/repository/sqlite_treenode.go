package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avoran/casetree/internal/db"
	"github.com/avoran/casetree/internal/domain"
)

// treeNodeColumns is the canonical SELECT column list for tree_nodes.
const treeNodeColumns = `id, name, kind, parent_id, sort_order, created_by, created_at, updated_at`

// SQLiteTreeNodeRepo implements TreeNodeRepo against a SQLite database.
// It is constructed over db.DBTX so callers can scope it to a transaction.
type SQLiteTreeNodeRepo struct {
	db db.DBTX
}

// NewSQLiteTreeNodeRepo creates a new SQLiteTreeNodeRepo.
func NewSQLiteTreeNodeRepo(dbtx db.DBTX) *SQLiteTreeNodeRepo {
	return &SQLiteTreeNodeRepo{db: dbtx}
}

func (r *SQLiteTreeNodeRepo) Create(ctx context.Context, n *domain.TreeNode) error {
	query := `INSERT INTO tree_nodes (name, kind, parent_id, sort_order, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		n.Name,
		string(n.Kind),
		nullableIDToValue(n.ParentID), // nil becomes SQL NULL for root nodes
		n.SortOrder,
		n.CreatedBy,
		n.CreatedAt.Format(time.RFC3339),
		n.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting tree node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted node id: %w", err)
	}
	n.ID = id
	return nil
}

func (r *SQLiteTreeNodeRepo) GetByID(ctx context.Context, id int64) (*domain.TreeNode, error) {
	query := `SELECT ` + treeNodeColumns + ` FROM tree_nodes WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanNode(row)
}

func (r *SQLiteTreeNodeRepo) ListChildren(ctx context.Context, parentID *int64) ([]*domain.TreeNode, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		query := `SELECT ` + treeNodeColumns + ` FROM tree_nodes WHERE parent_id IS NULL ORDER BY sort_order`
		rows, err = r.db.QueryContext(ctx, query)
	} else {
		query := `SELECT ` + treeNodeColumns + ` FROM tree_nodes WHERE parent_id = ? ORDER BY sort_order`
		rows, err = r.db.QueryContext(ctx, query, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing child nodes: %w", err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteTreeNodeRepo) MaxSortOrder(ctx context.Context, parentID *int64) (int, error) {
	var (
		row *sql.Row
	)
	if parentID == nil {
		row = r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM tree_nodes WHERE parent_id IS NULL`)
	} else {
		row = r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM tree_nodes WHERE parent_id = ?`, *parentID)
	}
	var maxOrder int
	if err := row.Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("computing max sort order: %w", err)
	}
	return maxOrder, nil
}

func (r *SQLiteTreeNodeRepo) CountChildren(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tree_nodes WHERE parent_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting children: %w", err)
	}
	return count, nil
}

func (r *SQLiteTreeNodeRepo) Update(ctx context.Context, n *domain.TreeNode) error {
	query := `UPDATE tree_nodes SET name = ?, parent_id = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		n.Name,
		nullableIDToValue(n.ParentID),
		n.SortOrder,
		n.UpdatedAt.Format(time.RFC3339),
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tree node: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tree node %d: %w", n.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteTreeNodeRepo) UpdatePosition(ctx context.Context, id int64, expectedOrder int, parentID *int64, newOrder int) error {
	query := `UPDATE tree_nodes SET parent_id = ?, sort_order = ?, updated_at = ?
		WHERE id = ? AND sort_order = ?`
	res, err := r.db.ExecContext(ctx, query,
		nullableIDToValue(parentID),
		newOrder,
		time.Now().UTC().Format(time.RFC3339),
		id,
		expectedOrder,
	)
	if err != nil {
		return fmt.Errorf("updating node position: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking position update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a vanished node from a concurrent renumbering.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("tree node %d: %w", id, ErrStaleSortOrder)
	}
	return nil
}

func (r *SQLiteTreeNodeRepo) DeleteSubtree(ctx context.Context, id int64) error {
	// parent_id carries ON DELETE CASCADE, so deleting the root row removes
	// the whole subtree in one statement.
	res, err := r.db.ExecContext(ctx, `DELETE FROM tree_nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting subtree: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tree node %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteTreeNodeRepo) Search(ctx context.Context, f SearchFilter) ([]*domain.TreeNode, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		// SQLite LIKE is case-insensitive for ASCII.
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.Query)+"%")
	}
	if f.Kind != nil {
		where = append(where, `kind = ?`)
		args = append(args, string(*f.Kind))
	}
	if f.ParentID != nil {
		where = append(where, `parent_id = ?`)
		args = append(args, *f.ParentID)
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tree_nodes`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting search matches: %w", err)
	}

	// Roots first, then grouped by parent, sort_order within each group.
	query := `SELECT ` + treeNodeColumns + ` FROM tree_nodes` + cond +
		` ORDER BY parent_id IS NOT NULL, parent_id, sort_order LIMIT ? OFFSET ?`
	pageArgs := append(append([]any{}, args...), f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("searching tree nodes: %w", err)
	}
	defer rows.Close()

	nodes, err := r.scanNodes(rows)
	if err != nil {
		return nil, 0, err
	}
	return nodes, total, nil
}

// scanNode scans a single tree node from a *sql.Row.
func (r *SQLiteTreeNodeRepo) scanNode(row *sql.Row) (*domain.TreeNode, error) {
	var n domain.TreeNode
	var kindStr, createdAtStr, updatedAtStr string
	var parentID sql.NullInt64

	err := row.Scan(&n.ID, &n.Name, &kindStr, &parentID, &n.SortOrder,
		&n.CreatedBy, &createdAtStr, &updatedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tree node: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning tree node: %w", err)
	}

	return r.populateNode(&n, kindStr, createdAtStr, updatedAtStr, parentID)
}

// scanNodes scans multiple tree nodes from *sql.Rows.
func (r *SQLiteTreeNodeRepo) scanNodes(rows *sql.Rows) ([]*domain.TreeNode, error) {
	var nodes []*domain.TreeNode
	for rows.Next() {
		var n domain.TreeNode
		var kindStr, createdAtStr, updatedAtStr string
		var parentID sql.NullInt64

		err := rows.Scan(&n.ID, &n.Name, &kindStr, &parentID, &n.SortOrder,
			&n.CreatedBy, &createdAtStr, &updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("scanning tree node row: %w", err)
		}

		node, err := r.populateNode(&n, kindStr, createdAtStr, updatedAtStr, parentID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tree nodes: %w", err)
	}
	return nodes, nil
}

// populateNode fills in parsed fields on a TreeNode after scanning raw strings.
func (r *SQLiteTreeNodeRepo) populateNode(
	n *domain.TreeNode,
	kindStr, createdAtStr, updatedAtStr string,
	parentID sql.NullInt64,
) (*domain.TreeNode, error) {
	n.Kind = domain.NodeKind(kindStr)

	if parentID.Valid {
		n.ParentID = &parentID.Int64
	}

	var parseErr error
	n.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	n.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return n, nil
}
