package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ebbcash/ebb/internal/cli"
	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/service"
	"github.com/ebbcash/ebb/internal/storage"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore point-in-time copies of the ledger",
		Long: `Snapshots are full copies of the ledger database, taken before risky
changes and restorable when something goes wrong. They cover every
workspace at once.`,
	}

	cmd.AddCommand(createSnapshotCmd())
	cmd.AddCommand(listSnapshotsCmd())
	cmd.AddCommand(restoreSnapshotCmd())
	cmd.AddCommand(deleteSnapshotCmd())

	return cmd
}

// snapshotManager unwraps the SQLite backend the snapshot subsystem needs.
func snapshotManager(store service.Storage) (*storage.SnapshotManager, error) {
	sqliteStore, ok := store.(*storage.SQLiteStorage)
	if !ok {
		return nil, fmt.Errorf("snapshots need the SQLite backend")
	}
	manager, err := sqliteStore.NewSnapshotManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot manager: %w", err)
	}
	return manager, nil
}

func createSnapshotCmd() *cobra.Command {
	var (
		tag         string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			manager, err := snapshotManager(store)
			if err != nil {
				return err
			}

			info, err := manager.Create(ctx, tag, description)
			if err != nil {
				if errors.Is(err, storage.ErrSnapshotExists) {
					return common.NewUserError(fmt.Sprintf("a snapshot tagged %q already exists", tag), err)
				}
				if errors.Is(err, storage.ErrDiskSpaceLow) {
					return common.NewUserError("not enough free disk space for a snapshot", err)
				}
				return fmt.Errorf("failed to create snapshot: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created snapshot %s (%s)", info.ID, formatFileSize(info.FileSize))))
			if info.Description != "" {
				fmt.Printf("  Description: %s\n", info.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "snapshot tag (timestamped if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what this snapshot captures")

	return cmd
}

func listSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			manager, err := snapshotManager(store)
			if err != nil {
				return err
			}

			snapshots, err := manager.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}

			if len(snapshots) == 0 {
				fmt.Println(cli.InfoStyle.Render("No snapshots yet. Use 'ebb snapshot create' to take one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Created"),
				cli.TableHeaderStyle.Render("Size"),
				cli.TableHeaderStyle.Render("Workspaces"),
				cli.TableHeaderStyle.Render("Movements"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 20),
				strings.Repeat("─", 14),
				strings.Repeat("─", 8),
				strings.Repeat("─", 10),
				strings.Repeat("─", 9))

			for _, snapshot := range snapshots {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
					snapshot.ID,
					formatRelativeTime(snapshot.CreatedAt),
					formatFileSize(snapshot.FileSize),
					snapshot.Workspaces,
					snapshot.Transactions)
			}

			return nil
		},
	}
}

func restoreSnapshotCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the live ledger with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			manager, err := snapshotManager(store)
			if err != nil {
				return err
			}

			info, err := manager.Info(ctx, args[0])
			if err != nil {
				if errors.Is(err, storage.ErrSnapshotNotFound) {
					return common.NewUserError(fmt.Sprintf("no snapshot named %q; see 'ebb snapshot list'", args[0]), err)
				}
				return fmt.Errorf("failed to load snapshot info: %w", err)
			}

			if !force {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("This replaces the whole ledger with snapshot %q from %s.",
					info.ID, info.CreatedAt.Format("2006-01-02 15:04"))))
				confirmed, err := cli.ConfirmAction(ctx, os.Stdin, os.Stdout, "Restore it?")
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Println(cli.InfoStyle.Render("Nothing restored."))
					return nil
				}
			}

			if err := manager.Restore(ctx, args[0]); err != nil {
				if errors.Is(err, storage.ErrSnapshotCorrupted) {
					return common.NewUserError(
						fmt.Sprintf("snapshot %q fails its integrity check and was not restored", args[0]), err)
				}
				return fmt.Errorf("failed to restore snapshot: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Restored the ledger from snapshot %q", info.ID)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}

func deleteSnapshotCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			manager, err := snapshotManager(store)
			if err != nil {
				return err
			}

			info, err := manager.Info(ctx, args[0])
			if err != nil {
				if errors.Is(err, storage.ErrSnapshotNotFound) {
					return common.NewUserError(fmt.Sprintf("no snapshot named %q; see 'ebb snapshot list'", args[0]), err)
				}
				return fmt.Errorf("failed to load snapshot info: %w", err)
			}

			if !force {
				confirmed, err := cli.ConfirmAction(ctx, os.Stdin, os.Stdout,
					fmt.Sprintf("Permanently delete snapshot %q (%s)?", info.ID, formatFileSize(info.FileSize)))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Println(cli.InfoStyle.Render("Nothing deleted."))
					return nil
				}
			}

			if err := manager.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete snapshot: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted snapshot %q", info.ID)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}

// formatRelativeTime renders recent times as distances and older ones as
// plain dates.
func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
