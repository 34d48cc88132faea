package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/viper"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/config"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
	"github.com/ebbcash/ebb/internal/storage"
)

// defaultWorkspaceName is the workspace used when none is configured.
// It is created on first use so a fresh install works without setup.
const defaultWorkspaceName = "default"

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/ebb/ebb.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// closeStore closes storage and logs instead of failing the command.
func closeStore(store service.Storage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// flushTable flushes a table writer and logs instead of failing the command.
func flushTable(w *tabwriter.Writer) {
	if err := w.Flush(); err != nil {
		slog.Error("failed to flush table writer", "error", err)
	}
}

// modelsDir returns the directory classifier models persist under.
func modelsDir() string {
	dir := viper.GetString("classify.models_dir")
	if dir == "" {
		dir = "$HOME/.local/share/ebb/models"
	}
	return config.ExpandPath(dir)
}

// currentWorkspace resolves the configured workspace. The default
// workspace is created on demand; any other name must already exist.
func currentWorkspace(ctx context.Context, store service.Storage) (*model.Workspace, error) {
	name := viper.GetString("workspace")
	if name == "" {
		name = defaultWorkspaceName
	}

	workspace, err := store.GetWorkspaceByName(ctx, name)
	if errors.Is(err, common.ErrNotFound) {
		if name != defaultWorkspaceName {
			return nil, common.NewUserError(
				fmt.Sprintf("workspace %q does not exist; create it with 'ebb workspace add %s'", name, name), err)
		}
		return store.CreateWorkspace(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return workspace, nil
}

// accountByName looks up an account and turns a miss into a user error.
func accountByName(ctx context.Context, store service.Storage, workspaceID int64, name string) (*model.Account, error) {
	account, err := store.GetAccountByName(ctx, workspaceID, name)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewUserError(
			fmt.Sprintf("account %q does not exist; see 'ebb accounts list'", name), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return account, nil
}

// categoryByName looks up a category and turns a miss into a user error.
func categoryByName(ctx context.Context, store service.Storage, workspaceID int64, name string) (*model.Category, error) {
	category, err := store.GetCategoryByName(ctx, workspaceID, name)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewUserError(
			fmt.Sprintf("category %q does not exist; see 'ebb categories list'", name), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}
	return category, nil
}

// optionalAccountID resolves an account filter flag. Empty means all
// accounts and maps to id zero.
func optionalAccountID(ctx context.Context, store service.Storage, workspaceID int64, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	account, err := accountByName(ctx, store, workspaceID, name)
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

// parseDateFlag parses a --date style flag. Empty means today.
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return model.Day(time.Now()), nil
	}
	date, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, common.NewUserError(
			fmt.Sprintf("cannot read date %q, expected YYYY-MM-DD", value), err)
	}
	return date, nil
}

// parseAmount parses a signed decimal amount.
func parseAmount(value string) (float64, error) {
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, common.NewUserError(
			fmt.Sprintf("cannot read amount %q", value), common.ErrInvalidAmount)
	}
	return amount, nil
}

// parseID parses a numeric id argument.
func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, common.NewUserError(fmt.Sprintf("%q is not a valid id", value), err)
	}
	return id, nil
}

// formatFileSize renders a byte count in a compact human unit.
func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
