package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// UpsertRule stores a keyword-to-category mapping, replacing the category
// when the keyword already exists.
func (s *SQLiteStorage) UpsertRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRuleRecord(rule); err != nil {
		return err
	}
	return s.upsertRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) upsertRuleTx(ctx context.Context, q queryable, rule *model.Rule) error {
	keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
	_, err := q.ExecContext(ctx,
		`INSERT INTO rules (workspace_id, keyword, category_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT(workspace_id, keyword) DO UPDATE SET category_id = excluded.category_id`,
		rule.WorkspaceID, keyword, rule.CategoryID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: category does not exist", common.ErrNotFound)
		}
		return fmt.Errorf("failed to upsert rule: %w", err)
	}
	return nil
}

// ListRules returns keyword rules with category names, longest keyword
// first. That order is the matching precedence: a more specific keyword
// always beats a substring of itself.
func (s *SQLiteStorage) ListRules(ctx context.Context, workspaceID int64) ([]service.RuleDetail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listRulesTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) listRulesTx(ctx context.Context, q queryable, workspaceID int64) ([]service.RuleDetail, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT r.id, r.workspace_id, r.keyword, r.category_id, r.created_at, c.name
		 FROM rules r
		 JOIN categories c ON c.id = r.category_id
		 WHERE r.workspace_id = ?
		 ORDER BY LENGTH(r.keyword) DESC, r.keyword ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var details []service.RuleDetail
	for rows.Next() {
		var detail service.RuleDetail
		if err := rows.Scan(&detail.Rule.ID, &detail.Rule.WorkspaceID, &detail.Rule.Keyword,
			&detail.Rule.CategoryID, &detail.Rule.CreatedAt, &detail.CategoryName); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}

// DeleteRule removes a keyword rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "rule ID"); err != nil {
		return err
	}
	return s.deleteRuleTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteRuleTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM rules WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
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
