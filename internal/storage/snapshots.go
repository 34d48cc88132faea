package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SnapshotManager creates and restores point-in-time copies of the ledger
// database. Snapshots live next to the database in a snapshots directory,
// each a full SQLite file plus a JSON metadata sidecar.
type SnapshotManager struct {
	db           *sql.DB
	dbPath       string
	snapshotsDir string
}

// SnapshotMetadata is the sidecar written alongside each snapshot file.
type SnapshotMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
}

// SnapshotInfo summarizes a snapshot for listing.
type SnapshotInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Workspaces    int
	Transactions  int
	SchemaVersion int
}

// Snapshot errors.
var (
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSnapshotCorrupted = errors.New("snapshot integrity check failed")
	ErrSnapshotExists    = errors.New("snapshot already exists")
	ErrDiskSpaceLow      = errors.New("insufficient disk space for snapshot")
)

// snapshotTables is the set of tables counted into snapshot metadata.
var snapshotTables = []string{
	"workspaces", "accounts", "categories", "transactions",
	"recurring_rules", "planned_transactions", "goals", "debts",
	"budgets", "rules",
}

// NewSnapshotManager returns a manager rooted beside the open database.
func (s *SQLiteStorage) NewSnapshotManager() (*SnapshotManager, error) {
	snapshotsDir := filepath.Join(filepath.Dir(s.dbPath), "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	return &SnapshotManager{
		db:           s.db,
		dbPath:       s.dbPath,
		snapshotsDir: snapshotsDir,
	}, nil
}

// Create writes a new snapshot under the given tag. An empty tag gets a
// timestamped default.
func (m *SnapshotManager) Create(ctx context.Context, tag, description string) (*SnapshotInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("snapshot-%s", time.Now().Format("2006-01-02-1504"))
	}
	if err := validateSnapshotTag(tag); err != nil {
		return nil, err
	}

	snapshotPath := filepath.Join(m.snapshotsDir, tag+".db")
	if _, err := os.Stat(snapshotPath); err == nil {
		return nil, ErrSnapshotExists
	}

	var schemaVersion int
	if err := m.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	rowCounts := m.collectRowCounts(ctx)

	// Rough estimate: the snapshot is at most the live file plus slack.
	dbInfo, err := os.Stat(m.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}
	if !m.hasEnoughDiskSpace(int64(float64(dbInfo.Size()) * 1.1)) {
		return nil, ErrDiskSpaceLow
	}

	if err := m.backupDatabase(ctx, snapshotPath); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	snapInfo, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	metadata := SnapshotMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      snapInfo.Size(),
		RowCounts:     rowCounts,
		SchemaVersion: schemaVersion,
	}
	metadataPath := filepath.Join(m.snapshotsDir, tag+".meta.json")
	if err := saveSnapshotMetadata(metadataPath, metadata); err != nil {
		if rmErr := os.Remove(snapshotPath); rmErr != nil {
			slog.Error("failed to remove snapshot after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save snapshot metadata: %w", err)
	}

	return metadata.info(), nil
}

// List returns all snapshots, newest first.
func (m *SnapshotManager) List(_ context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(m.snapshotsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	snapshots := make([]SnapshotInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		metadata, err := loadSnapshotMetadata(filepath.Join(m.snapshotsDir, entry.Name()))
		if err != nil {
			// Corrupt sidecars should not hide the healthy snapshots.
			slog.Warn("skipping unreadable snapshot metadata", "file", entry.Name(), "error", err)
			continue
		}
		snapshots = append(snapshots, *metadata.info())
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Info returns the metadata of one snapshot.
func (m *SnapshotManager) Info(_ context.Context, id string) (*SnapshotInfo, error) {
	if err := validateSnapshotTag(id); err != nil {
		return nil, err
	}

	metadata, err := loadSnapshotMetadata(filepath.Join(m.snapshotsDir, id+".meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot metadata: %w", err)
	}
	return metadata.info(), nil
}

// Restore replaces the live database with a snapshot. The connection is
// closed first; the caller must reopen storage afterwards. The previous
// database survives as a .restore-backup file until the copy succeeds.
func (m *SnapshotManager) Restore(_ context.Context, id string) error {
	if err := validateSnapshotTag(id); err != nil {
		return err
	}

	snapshotPath := filepath.Join(m.snapshotsDir, id+".db")
	if _, err := os.Stat(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return ErrSnapshotNotFound
		}
		return fmt.Errorf("failed to access snapshot: %w", err)
	}

	if _, err := loadSnapshotMetadata(filepath.Join(m.snapshotsDir, id+".meta.json")); err != nil {
		return fmt.Errorf("failed to load snapshot metadata: %w", err)
	}
	if err := verifySnapshotIntegrity(snapshotPath); err != nil {
		return ErrSnapshotCorrupted
	}

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	backupPath := m.dbPath + ".restore-backup"
	if err := copySnapshotFile(m.dbPath, backupPath); err != nil {
		return fmt.Errorf("failed to back up current database: %w", err)
	}

	if err := copySnapshotFile(snapshotPath, m.dbPath); err != nil {
		if undoErr := copySnapshotFile(backupPath, m.dbPath); undoErr != nil {
			slog.Error("failed to roll back after restore failure", "error", undoErr)
		}
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	if err := os.Remove(backupPath); err != nil {
		slog.Warn("failed to remove restore backup", "error", err)
	}
	return nil
}

// Delete removes a snapshot and its metadata sidecar.
func (m *SnapshotManager) Delete(_ context.Context, id string) error {
	if err := validateSnapshotTag(id); err != nil {
		return err
	}

	snapshotPath := filepath.Join(m.snapshotsDir, id+".db")
	if _, err := os.Stat(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return ErrSnapshotNotFound
		}
		return fmt.Errorf("failed to access snapshot: %w", err)
	}

	if err := os.Remove(snapshotPath); err != nil {
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	if err := os.Remove(filepath.Join(m.snapshotsDir, id+".meta.json")); err != nil && !os.IsNotExist(err) {
		slog.Debug("failed to remove snapshot metadata", "error", err, "id", id)
	}
	return nil
}

func (md *SnapshotMetadata) info() *SnapshotInfo {
	return &SnapshotInfo{
		ID:            md.ID,
		CreatedAt:     md.CreatedAt,
		Description:   md.Description,
		FileSize:      md.FileSize,
		Workspaces:    md.RowCounts["workspaces"],
		Transactions:  md.RowCounts["transactions"],
		SchemaVersion: md.SchemaVersion,
	}
}

// validateSnapshotTag rejects tags that could escape the snapshots dir.
func validateSnapshotTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("snapshot tag is required")
	}
	if strings.Contains(tag, "/") || strings.Contains(tag, "\\") || strings.Contains(tag, "..") {
		return fmt.Errorf("invalid snapshot tag: cannot contain path separators")
	}
	return nil
}

func (m *SnapshotManager) collectRowCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(snapshotTables))
	for _, table := range snapshotTables {
		var count int
		// Table names come from the fixed list above, never from input.
		if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			counts[table] = 0
			continue
		}
		counts[table] = count
	}
	return counts
}

func (m *SnapshotManager) hasEnoughDiskSpace(required int64) bool {
	testFile := filepath.Join(m.snapshotsDir, ".space-test")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(testFile)
	}()
	return f.Truncate(required) == nil
}

func (m *SnapshotManager) backupDatabase(ctx context.Context, destPath string) error {
	// Flush the WAL so the main file holds everything.
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	// VACUUM INTO produces a compact, consistent copy in one statement.
	// The path is interpolated because SQLite does not accept parameters
	// there; it is validated against quoting characters first.
	if strings.ContainsAny(destPath, `'";`) || strings.Contains(destPath, "..") {
		return fmt.Errorf("invalid snapshot destination path")
	}
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		// Older SQLite builds lack VACUUM INTO; fall back to a file copy.
		return copySnapshotFile(m.dbPath, destPath)
	}
	return nil
}

func copySnapshotFile(src, dst string) error {
	if strings.Contains(src, "..") || strings.Contains(dst, "..") {
		return fmt.Errorf("invalid file paths")
	}

	source, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	// Copy through a temp file so a failed copy never clobbers dst.
	tmpDst := dst + ".tmp"
	destination, err := os.Create(tmpDst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmpDst)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmpDst)
		return err
	}
	return os.Rename(tmpDst, dst)
}

func saveSnapshotMetadata(path string, metadata SnapshotMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func loadSnapshotMetadata(path string) (*SnapshotMetadata, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var metadata SnapshotMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func verifySnapshotIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
