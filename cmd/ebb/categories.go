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

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage transaction categories",
		Long: `Categories label movements by direction: income, expense or transfer.
Every workspace starts with a seeded catalogue you can extend or trim.`,
	}

	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(pruneCategoriesCmd())

	return cmd
}

func addCategoryCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
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

			category, err := store.CreateCategory(ctx, workspace.ID, args[0], model.CategoryKind(kind))
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("category %q already exists", args[0]), err)
				}
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s category %q", category.Kind, category.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(model.CategoryKindExpense), "category kind (income, expense, transfer)")

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
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

			var categories []model.Category
			if kind == "" {
				categories, err = store.ListCategories(ctx, workspace.ID)
			} else {
				categories, err = store.ListCategoriesByKind(ctx, workspace.ID, model.CategoryKind(kind))
			}
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'ebb categories add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Kind"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 22),
				strings.Repeat("─", 8))

			for _, category := range categories {
				fmt.Fprintf(w, "%d\t%s\t%s\n", category.ID, category.Name, category.Kind)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only show one kind (income, expense, transfer)")

	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var (
		newName string
		kind    string
	)

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Rename a category or change its kind",
		Args:  cobra.ExactArgs(1),
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

			category, err := categoryByName(ctx, store, workspace.ID, args[0])
			if err != nil {
				return err
			}

			name := category.Name
			if cmd.Flags().Changed("name") {
				name = newName
			}
			categoryKind := category.Kind
			if cmd.Flags().Changed("kind") {
				categoryKind = model.CategoryKind(kind)
			}

			if err := store.UpdateCategory(ctx, workspace.ID, category.ID, name, categoryKind); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("category %q already exists", name), err)
				}
				return fmt.Errorf("failed to update category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated category %q", name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&newName, "name", "", "new category name")
	cmd.Flags().StringVar(&kind, "kind", "", "new category kind (income, expense, transfer)")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
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

			category, err := categoryByName(ctx, store, workspace.ID, args[0])
			if err != nil {
				return err
			}

			if err := store.DeleteCategory(ctx, workspace.ID, category.ID); err != nil {
				if errors.Is(err, common.ErrInUse) {
					return common.NewUserError(
						fmt.Sprintf("category %q is still used by movements or rules; reassign them first", category.Name), err)
				}
				return fmt.Errorf("failed to delete category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted category %q", category.Name)))
			return nil
		},
	}
}

func pruneCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete every category nothing references",
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

			confirmed, err := cli.ConfirmAction(ctx, os.Stdin, os.Stdout, "Delete all unused categories?")
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(cli.InfoStyle.Render("Nothing pruned."))
				return nil
			}

			pruned, err := store.DeleteUnusedCategories(ctx, workspace.ID)
			if err != nil {
				return fmt.Errorf("failed to prune categories: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Pruned %d unused categories", pruned)))
			return nil
		},
	}
}
