package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ebbcash/ebb/internal/classify"
	"github.com/ebbcash/ebb/internal/cli"
	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Record and browse money movements",
		Long: `Transactions are the ledger's ground truth: dated, signed movements
that already happened. Income is positive, spending is negative.`,
	}

	cmd.AddCommand(addTxCmd())
	cmd.AddCommand(listTxCmd())
	cmd.AddCommand(updateTxCmd())
	cmd.AddCommand(moveTxCmd())
	cmd.AddCommand(deleteTxCmd())

	return cmd
}

func addTxCmd() *cobra.Command {
	var (
		dateFlag     string
		amountFlag   string
		accountName  string
		categoryName string
		description  string
		suggest      bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a movement",
		Long: `Record one movement. With --suggest the category is picked from your
keyword rules, then the trained classifier, and you only confirm it.`,
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

			if categoryName == "" && !suggest {
				return common.NewUserError("pass --category, or --suggest to pick one from the description", nil)
			}

			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}
			amount, err := parseAmount(amountFlag)
			if err != nil {
				return err
			}

			account, err := accountByName(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}

			if categoryName == "" {
				categoryName, err = suggestCategoryName(ctx, store, workspace.ID, description)
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatInfo(fmt.Sprintf("Suggested category: %s", categoryName)))
			}

			category, err := store.GetOrCreateCategory(ctx, workspace.ID, categoryName, model.CategoryKindExpense)
			if err != nil {
				return fmt.Errorf("failed to resolve category: %w", err)
			}

			txn := &model.Transaction{
				WorkspaceID: workspace.ID,
				Date:        date,
				Amount:      amount,
				AccountID:   account.ID,
				CategoryID:  category.ID,
				Description: description,
			}
			created, err := store.CreateTransaction(ctx, txn)
			if err != nil {
				return fmt.Errorf("failed to record movement: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s on %s (%s, id %d)",
				cli.FormatAmount(created.Amount), account.Name, category.Name, created.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "movement date (default: today)")
	cmd.Flags().StringVar(&amountFlag, "amount", "", "signed amount, income positive (required)")
	cmd.Flags().StringVar(&accountName, "account", "", "account name (required)")
	cmd.Flags().StringVar(&categoryName, "category", "", "category name")
	cmd.Flags().StringVar(&description, "desc", "", "free-form description")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "derive the category from the description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

// suggestCategoryName runs the keyword rules first and falls back to the
// trained classifier when no rule fires.
func suggestCategoryName(ctx context.Context, store service.Storage, workspaceID int64, description string) (string, error) {
	rules, err := store.ListRules(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("failed to load keyword rules: %w", err)
	}

	name := classify.SuggestCategory(description, rules)
	if name != model.CategoryNameUncategorized {
		return name, nil
	}

	registry := classify.NewRegistry(modelsDir())
	if predicted, ok := registry.Predict(workspaceID, description); ok {
		return predicted, nil
	}
	return model.CategoryNameUncategorized, nil
}

func listTxCmd() *cobra.Command {
	var (
		fromFlag     string
		toFlag       string
		accountName  string
		categoryName string
		search       string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movements, most recent first",
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

			filter := service.TransactionFilter{Search: search, Limit: limit}
			if fromFlag != "" {
				from, parseErr := parseDateFlag(fromFlag)
				if parseErr != nil {
					return parseErr
				}
				filter.StartDate = &from
			}
			if toFlag != "" {
				to, parseErr := parseDateFlag(toFlag)
				if parseErr != nil {
					return parseErr
				}
				filter.EndDate = &to
			}
			if accountName != "" {
				account, lookupErr := accountByName(ctx, store, workspace.ID, accountName)
				if lookupErr != nil {
					return lookupErr
				}
				filter.AccountID = account.ID
			}
			if categoryName != "" {
				category, lookupErr := categoryByName(ctx, store, workspace.ID, categoryName)
				if lookupErr != nil {
					return lookupErr
				}
				filter.CategoryID = category.ID
			}

			transactions, err := store.ListTransactions(ctx, workspace.ID, filter)
			if err != nil {
				return fmt.Errorf("failed to list movements: %w", err)
			}

			if len(transactions) == 0 {
				fmt.Println(cli.InfoStyle.Render("No movements match. Use 'ebb tx add' to record one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Date"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Account"),
				cli.TableHeaderStyle.Render("Description"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 5),
				strings.Repeat("─", 10),
				strings.Repeat("─", 9),
				strings.Repeat("─", 16),
				strings.Repeat("─", 12),
				strings.Repeat("─", 28))

			for _, row := range transactions {
				fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\t%s\n",
					row.ID, row.Date.Format("2006-01-02"), row.Amount,
					row.CategoryName, row.AccountName, row.Description)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "only movements on or after this date")
	cmd.Flags().StringVar(&toFlag, "to", "", "only movements on or before this date")
	cmd.Flags().StringVar(&accountName, "account", "", "only movements on this account")
	cmd.Flags().StringVar(&categoryName, "category", "", "only movements in this category")
	cmd.Flags().StringVar(&search, "search", "", "only movements whose description contains this text")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show (0 = all)")

	return cmd
}

func updateTxCmd() *cobra.Command {
	var (
		dateFlag     string
		amountFlag   string
		accountName  string
		categoryName string
		description  string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a recorded movement",
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

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			txn, err := store.GetTransactionByID(ctx, workspace.ID, id)
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("movement %d does not exist", id), err)
			}
			if err != nil {
				return fmt.Errorf("failed to load movement: %w", err)
			}

			if cmd.Flags().Changed("date") {
				date, parseErr := parseDateFlag(dateFlag)
				if parseErr != nil {
					return parseErr
				}
				txn.Date = date
			}
			if cmd.Flags().Changed("amount") {
				amount, parseErr := parseAmount(amountFlag)
				if parseErr != nil {
					return parseErr
				}
				txn.Amount = amount
			}
			if cmd.Flags().Changed("account") {
				account, lookupErr := accountByName(ctx, store, workspace.ID, accountName)
				if lookupErr != nil {
					return lookupErr
				}
				txn.AccountID = account.ID
			}
			if cmd.Flags().Changed("category") {
				category, lookupErr := categoryByName(ctx, store, workspace.ID, categoryName)
				if lookupErr != nil {
					return lookupErr
				}
				txn.CategoryID = category.ID
			}
			if cmd.Flags().Changed("desc") {
				txn.Description = description
			}

			if err := store.UpdateTransaction(ctx, txn); err != nil {
				return fmt.Errorf("failed to update movement: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated movement %d", txn.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "new date")
	cmd.Flags().StringVar(&amountFlag, "amount", "", "new signed amount")
	cmd.Flags().StringVar(&accountName, "account", "", "new account")
	cmd.Flags().StringVar(&categoryName, "category", "", "new category")
	cmd.Flags().StringVar(&description, "desc", "", "new description")

	return cmd
}

func moveTxCmd() *cobra.Command {
	var (
		categoryName string
		accountName  string
	)

	cmd := &cobra.Command{
		Use:   "move <id>...",
		Short: "Reassign a batch of movements",
		Long:  `Move several movements to another category, another account, or both.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if categoryName == "" && accountName == "" {
				return common.NewUserError("pass --category or --account (or both)", nil)
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

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, parseErr := parseID(arg)
				if parseErr != nil {
					return parseErr
				}
				ids = append(ids, id)
			}

			var categoryID, accountID int64
			if categoryName != "" {
				category, lookupErr := categoryByName(ctx, store, workspace.ID, categoryName)
				if lookupErr != nil {
					return lookupErr
				}
				categoryID = category.ID
			}
			if accountName != "" {
				account, lookupErr := accountByName(ctx, store, workspace.ID, accountName)
				if lookupErr != nil {
					return lookupErr
				}
				accountID = account.ID
			}

			if err := store.ReassignTransactions(ctx, workspace.ID, ids, categoryID, accountID); err != nil {
				return fmt.Errorf("failed to move movements: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Moved %d movements", len(ids))))
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryName, "category", "", "category to move the movements into")
	cmd.Flags().StringVar(&accountName, "account", "", "account to move the movements onto")

	return cmd
}

func deleteTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete movements",
		Args:  cobra.MinimumNArgs(1),
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

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, parseErr := parseID(arg)
				if parseErr != nil {
					return parseErr
				}
				ids = append(ids, id)
			}

			if len(ids) == 1 {
				if err := store.DeleteTransaction(ctx, workspace.ID, ids[0]); err != nil {
					if errors.Is(err, common.ErrNotFound) {
						return common.NewUserError(fmt.Sprintf("movement %d does not exist", ids[0]), err)
					}
					return fmt.Errorf("failed to delete movement: %w", err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted movement %d", ids[0])))
				return nil
			}

			deleted, err := store.DeleteTransactions(ctx, workspace.ID, ids)
			if err != nil {
				return fmt.Errorf("failed to delete movements: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted %d of %d movements", deleted, len(ids))))
			return nil
		},
	}
}
