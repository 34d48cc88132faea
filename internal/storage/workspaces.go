package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
)

// CreateWorkspace creates a new workspace and seeds it with the default
// category catalogue in the same transaction.
func (s *SQLiteStorage) CreateWorkspace(ctx context.Context, name string) (*model.Workspace, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var workspace *model.Workspace
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		workspace, txErr = s.createWorkspaceTx(ctx, tx, name)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return workspace, nil
}

func (s *SQLiteStorage) createWorkspaceTx(ctx context.Context, q queryable, name string) (*model.Workspace, error) {
	result, err := q.ExecContext(ctx, `INSERT INTO workspaces (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: workspace %q", common.ErrDuplicateEntry, name)
		}
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace id: %w", err)
	}

	seeds, err := defaultCategories()
	if err != nil {
		return nil, err
	}
	for _, seed := range seeds {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (workspace_id, name, type) VALUES (?, ?, ?)`,
			id, seed.Name, string(seed.Kind)); err != nil {
			return nil, fmt.Errorf("failed to seed category %q: %w", seed.Name, err)
		}
	}

	return s.getWorkspaceByIDTx(ctx, q, id)
}

// GetWorkspaceByName retrieves a workspace by its unique name.
func (s *SQLiteStorage) GetWorkspaceByName(ctx context.Context, name string) (*model.Workspace, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getWorkspaceByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getWorkspaceByNameTx(ctx context.Context, q queryable, name string) (*model.Workspace, error) {
	var workspace model.Workspace
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM workspaces WHERE name = ?`, name,
	).Scan(&workspace.ID, &workspace.Name, &workspace.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &workspace, nil
}

func (s *SQLiteStorage) getWorkspaceByIDTx(ctx context.Context, q queryable, id int64) (*model.Workspace, error) {
	var workspace model.Workspace
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM workspaces WHERE id = ?`, id,
	).Scan(&workspace.ID, &workspace.Name, &workspace.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &workspace, nil
}

// ListWorkspaces returns all workspaces ordered by name.
func (s *SQLiteStorage) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listWorkspacesTx(ctx, s.db)
}

func (s *SQLiteStorage) listWorkspacesTx(ctx context.Context, q queryable) ([]model.Workspace, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, created_at FROM workspaces ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var workspaces []model.Workspace
	for rows.Next() {
		var workspace model.Workspace
		if err := rows.Scan(&workspace.ID, &workspace.Name, &workspace.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, workspace)
	}
	return workspaces, rows.Err()
}
