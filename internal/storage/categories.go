package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
)

// CreateCategory creates a new category in the workspace.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.createCategoryTx(ctx, s.db, workspaceID, name, kind)
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error) {
	switch kind {
	case model.CategoryKindIncome, model.CategoryKindExpense, model.CategoryKindTransfer:
	default:
		return nil, fmt.Errorf("%w: unknown category kind %q", ErrInvalidRecord, kind)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO categories (workspace_id, name, type) VALUES (?, ?, ?)`,
		workspaceID, name, string(kind))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, name)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: workspace %d", common.ErrNotFound, workspaceID)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category id: %w", err)
	}
	return s.getCategoryByIDTx(ctx, q, workspaceID, id)
}

// GetCategoryByName retrieves a category by name within the workspace.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, workspaceID int64, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategoryByNameTx(ctx, s.db, workspaceID, name)
}

func (s *SQLiteStorage) getCategoryByNameTx(ctx context.Context, q queryable, workspaceID int64, name string) (*model.Category, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, type, created_at FROM categories WHERE workspace_id = ? AND name = ?`,
		workspaceID, name)
	return scanCategoryRow(row)
}

func (s *SQLiteStorage) getCategoryByIDTx(ctx context.Context, q queryable, workspaceID, id int64) (*model.Category, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, type, created_at FROM categories WHERE workspace_id = ? AND id = ?`,
		workspaceID, id)
	return scanCategoryRow(row)
}

func scanCategoryRow(row *sql.Row) (*model.Category, error) {
	var category model.Category
	var kind string
	err := row.Scan(&category.ID, &category.WorkspaceID, &category.Name, &kind, &category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	category.Kind = model.CategoryKind(kind)
	return &category, nil
}

// GetOrCreateCategory returns the named category, creating it with the given
// kind when it does not exist yet. Reserved categories removed by the user
// come back through this path.
func (s *SQLiteStorage) GetOrCreateCategory(ctx context.Context, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var category *model.Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		category, txErr = s.getOrCreateCategoryTx(ctx, tx, workspaceID, name, kind)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *SQLiteStorage) getOrCreateCategoryTx(ctx context.Context, q queryable, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error) {
	category, err := s.getCategoryByNameTx(ctx, q, workspaceID, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return s.createCategoryTx(ctx, q, workspaceID, name, kind)
}

// ListCategories returns all categories in the workspace ordered by name.
func (s *SQLiteStorage) ListCategories(ctx context.Context, workspaceID int64) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listCategoriesTx(ctx, s.db, workspaceID, "")
}

// ListCategoriesByKind returns the workspace categories of one kind.
func (s *SQLiteStorage) ListCategoriesByKind(ctx context.Context, workspaceID int64, kind model.CategoryKind) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listCategoriesTx(ctx, s.db, workspaceID, kind)
}

func (s *SQLiteStorage) listCategoriesTx(ctx context.Context, q queryable, workspaceID int64, kind model.CategoryKind) ([]model.Category, error) {
	query := `SELECT id, workspace_id, name, type, created_at FROM categories WHERE workspace_id = ?`
	args := []any{workspaceID}
	if kind != "" {
		query += ` AND type = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY name ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		var categoryKind string
		if err := rows.Scan(&category.ID, &category.WorkspaceID, &category.Name, &categoryKind, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		category.Kind = model.CategoryKind(categoryKind)
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// UpdateCategory renames a category or changes its kind.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, workspaceID, id int64, name string, kind model.CategoryKind) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "category ID"); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	return s.updateCategoryTx(ctx, s.db, workspaceID, id, name, kind)
}

func (s *SQLiteStorage) updateCategoryTx(ctx context.Context, q queryable, workspaceID, id int64, name string, kind model.CategoryKind) error {
	switch kind {
	case model.CategoryKindIncome, model.CategoryKindExpense, model.CategoryKindTransfer:
	default:
		return fmt.Errorf("%w: unknown category kind %q", ErrInvalidRecord, kind)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ? WHERE workspace_id = ? AND id = ?`,
		name, string(kind), workspaceID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, name)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category. Categories still referenced by
// transactions are protected and surface as ErrInUse.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "category ID"); err != nil {
		return err
	}
	return s.deleteCategoryTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteCategoryTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM categories WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: category has recorded transactions", common.ErrInUse)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteUnusedCategories removes every category in the workspace that is not
// referenced anywhere and returns how many rows were removed.
func (s *SQLiteStorage) DeleteUnusedCategories(ctx context.Context, workspaceID int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return 0, err
	}
	return s.deleteUnusedCategoriesTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) deleteUnusedCategoriesTx(ctx context.Context, q queryable, workspaceID int64) (int64, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM categories
		 WHERE workspace_id = ?
		   AND id NOT IN (SELECT category_id FROM transactions WHERE workspace_id = ?)
		   AND id NOT IN (SELECT category_id FROM recurring_rules WHERE workspace_id = ?)
		   AND id NOT IN (SELECT category_id FROM planned_transactions WHERE workspace_id = ?)
		   AND id NOT IN (SELECT category_id FROM budgets WHERE workspace_id = ?)
		   AND id NOT IN (SELECT category_id FROM rules WHERE workspace_id = ?)`,
		workspaceID, workspaceID, workspaceID, workspaceID, workspaceID, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unused categories: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return affected, nil
}
