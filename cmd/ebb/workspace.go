package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ebbcash/ebb/internal/cli"
	"github.com/ebbcash/ebb/internal/common"
)

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage ledger workspaces",
		Long: `A workspace is an isolated ledger. Accounts, categories and movements
never cross workspace boundaries. Most installs only ever use the
default workspace.`,
	}

	cmd.AddCommand(addWorkspaceCmd())
	cmd.AddCommand(listWorkspacesCmd())

	return cmd
}

func addWorkspaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new workspace",
		Long:  `Create a workspace seeded with the default category catalogue.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			workspace, err := store.CreateWorkspace(ctx, name)
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("workspace %q already exists", name), err)
				}
				return fmt.Errorf("failed to create workspace: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created workspace %q with the default categories", workspace.Name)))
			return nil
		},
	}
}

func listWorkspacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workspaces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			workspaces, err := store.ListWorkspaces(ctx)
			if err != nil {
				return fmt.Errorf("failed to list workspaces: %w", err)
			}

			if len(workspaces) == 0 {
				fmt.Println(cli.InfoStyle.Render("No workspaces yet. Any command creates the default one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Created"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 20),
				strings.Repeat("─", 12))

			for _, workspace := range workspaces {
				fmt.Fprintf(w, "%d\t%s\t%s\n",
					workspace.ID, workspace.Name, workspace.CreatedAt.Format("2006-01-02"))
			}

			return nil
		},
	}
}
