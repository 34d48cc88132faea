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
	"github.com/ebbcash/ebb/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword rules for category suggestions",
		Long: `Keyword rules map a piece of description text to a category: any
movement containing the keyword gets that category suggested at entry.
When several rules match, the longest keyword wins.`,
	}

	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(deleteRuleCmd())

	return cmd
}

func addRuleCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <keyword>",
		Short: "Map a keyword to a category",
		Long: `Adds or replaces the rule for a keyword. Matching is case-insensitive
substring containment, so 'tesco' catches 'TESCO EXPRESS 1234'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			workspace, err := currentWorkspace(ctx, store)
			if err != nil {
				return err
			}

			cat, err := categoryByName(ctx, store, workspace.ID, category)
			if err != nil {
				return err
			}

			if err := store.UpsertRule(ctx, &model.Rule{
				WorkspaceID: workspace.ID,
				Keyword:     args[0],
				CategoryID:  cat.ID,
			}); err != nil {
				return fmt.Errorf("failed to save rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Movements containing %q will be suggested as %s", args[0], cat.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category to suggest for the keyword")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keyword rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			workspace, err := currentWorkspace(ctx, store)
			if err != nil {
				return err
			}

			rules, err := store.ListRules(ctx, workspace.ID)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println(cli.InfoStyle.Render("No keyword rules. Use 'ebb rules add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Keyword"),
				cli.TableHeaderStyle.Render("Category"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 18),
				strings.Repeat("─", 14))

			for _, detail := range rules {
				fmt.Fprintf(w, "%d\t%s\t%s\n", detail.Rule.ID, detail.Rule.Keyword, detail.CategoryName)
			}

			return nil
		},
	}
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a keyword rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			workspace, err := currentWorkspace(ctx, store)
			if err != nil {
				return err
			}

			if err := store.DeleteRule(ctx, workspace.ID, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no rule with id %d", id), err)
				}
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted rule %d", id)))
			return nil
		},
	}
}
