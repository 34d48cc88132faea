package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// CreateRecurringRule stores a new recurring cash movement rule.
func (s *SQLiteStorage) CreateRecurringRule(ctx context.Context, rule *model.RecurringRule) (*model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateRecurringRecord(rule); err != nil {
		return nil, err
	}
	return s.createRecurringRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) createRecurringRuleTx(ctx context.Context, q queryable, rule *model.RecurringRule) (*model.RecurringRule, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO recurring_rules (workspace_id, name, start_date, interval, amount, account_id, category_id, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.WorkspaceID, rule.Name, rule.StartDate.Format(model.DateLayout),
		string(rule.Interval), rule.Amount, rule.AccountID, rule.CategoryID, rule.Description)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: account or category does not exist", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create recurring rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule id: %w", err)
	}
	return s.getRecurringRuleByIDTx(ctx, q, rule.WorkspaceID, id)
}

func (s *SQLiteStorage) getRecurringRuleByIDTx(ctx context.Context, q queryable, workspaceID, id int64) (*model.RecurringRule, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, start_date, interval, amount, account_id, category_id,
		        COALESCE(description, ''), created_at
		 FROM recurring_rules WHERE workspace_id = ? AND id = ?`,
		workspaceID, id)
	return scanRecurringRuleRow(row)
}

// FindRecurringRule looks for a rule with the same identity a suggestion
// would produce: name, cadence, category and account. Returns ErrNotFound
// when no such rule exists.
func (s *SQLiteStorage) FindRecurringRule(ctx context.Context, workspaceID int64, name string, interval model.RecurrenceInterval, categoryID, accountID int64) (*model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.findRecurringRuleTx(ctx, s.db, workspaceID, name, interval, categoryID, accountID)
}

func (s *SQLiteStorage) findRecurringRuleTx(ctx context.Context, q queryable, workspaceID int64, name string, interval model.RecurrenceInterval, categoryID, accountID int64) (*model.RecurringRule, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, start_date, interval, amount, account_id, category_id,
		        COALESCE(description, ''), created_at
		 FROM recurring_rules
		 WHERE workspace_id = ? AND name = ? AND interval = ? AND category_id = ? AND account_id = ?`,
		workspaceID, name, string(interval), categoryID, accountID)
	return scanRecurringRuleRow(row)
}

func scanRecurringRuleRow(row *sql.Row) (*model.RecurringRule, error) {
	var rule model.RecurringRule
	var rawDate, interval string
	err := row.Scan(&rule.ID, &rule.WorkspaceID, &rule.Name, &rawDate, &interval,
		&rule.Amount, &rule.AccountID, &rule.CategoryID, &rule.Description, &rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring rule: %w", err)
	}

	rule.StartDate, err = model.ParseDate(rawDate)
	if err != nil {
		return nil, fmt.Errorf("%w: recurring rule %d: %v", common.ErrInvalidDate, rule.ID, err)
	}
	rule.Interval = model.RecurrenceInterval(interval)
	return &rule, nil
}

// ListRecurringRules returns all rules with category and account names.
func (s *SQLiteStorage) ListRecurringRules(ctx context.Context, workspaceID int64) ([]service.RecurringRuleDetail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listRecurringRulesTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) listRecurringRulesTx(ctx context.Context, q queryable, workspaceID int64) ([]service.RecurringRuleDetail, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT r.id, r.workspace_id, r.name, r.start_date, r.interval, r.amount,
		        r.account_id, r.category_id, COALESCE(r.description, ''), r.created_at,
		        c.name, a.name
		 FROM recurring_rules r
		 JOIN categories c ON c.id = r.category_id
		 JOIN accounts a ON a.id = r.account_id
		 WHERE r.workspace_id = ?
		 ORDER BY r.name ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var details []service.RecurringRuleDetail
	for rows.Next() {
		var detail service.RecurringRuleDetail
		var rawDate, interval string
		if err := rows.Scan(&detail.Rule.ID, &detail.Rule.WorkspaceID, &detail.Rule.Name,
			&rawDate, &interval, &detail.Rule.Amount, &detail.Rule.AccountID,
			&detail.Rule.CategoryID, &detail.Rule.Description, &detail.Rule.CreatedAt,
			&detail.CategoryName, &detail.AccountName); err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		detail.Rule.StartDate, err = model.ParseDate(rawDate)
		if err != nil {
			slog.Warn("skipping recurring rule with unparseable start date",
				"rule_id", detail.Rule.ID, "date", rawDate)
			continue
		}
		detail.Rule.Interval = model.RecurrenceInterval(interval)
		details = append(details, detail)
	}
	return details, rows.Err()
}

// ListProjectableRules returns rules attached to standard accounts, the set
// the forecast expands into future occurrences.
func (s *SQLiteStorage) ListProjectableRules(ctx context.Context, workspaceID int64, accountID int64) ([]model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listProjectableRulesTx(ctx, s.db, workspaceID, accountID)
}

func (s *SQLiteStorage) listProjectableRulesTx(ctx context.Context, q queryable, workspaceID int64, accountID int64) ([]model.RecurringRule, error) {
	query := `
		SELECT r.id, r.workspace_id, r.name, r.start_date, r.interval, r.amount,
		       r.account_id, r.category_id, COALESCE(r.description, ''), r.created_at
		FROM recurring_rules r
		JOIN accounts a ON a.id = r.account_id
		WHERE r.workspace_id = ? AND a.type = 'standard'`
	args := []any{workspaceID}
	if accountID > 0 {
		query += ` AND r.account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY r.id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projectable rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.RecurringRule
	for rows.Next() {
		var rule model.RecurringRule
		var rawDate, interval string
		if err := rows.Scan(&rule.ID, &rule.WorkspaceID, &rule.Name, &rawDate, &interval,
			&rule.Amount, &rule.AccountID, &rule.CategoryID, &rule.Description, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		rule.StartDate, err = model.ParseDate(rawDate)
		if err != nil {
			slog.Warn("skipping recurring rule with unparseable start date",
				"rule_id", rule.ID, "date", rawDate)
			continue
		}
		rule.Interval = model.RecurrenceInterval(interval)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteRecurringRule removes a recurring rule.
func (s *SQLiteStorage) DeleteRecurringRule(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "rule ID"); err != nil {
		return err
	}
	return s.deleteRecurringRuleTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteRecurringRuleTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM recurring_rules WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring rule: %w", err)
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
