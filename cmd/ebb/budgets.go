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
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Cap monthly spending per category",
		Long: `Budgets cap expected spending for one category in one calendar month,
either across all accounts or on a single one. 'ebb budgets report'
compares the caps against what was actually spent.`,
	}

	cmd.AddCommand(setBudgetCmd())
	cmd.AddCommand(listBudgetsCmd())
	cmd.AddCommand(deleteBudgetCmd())
	cmd.AddCommand(reportBudgetsCmd())

	return cmd
}

func setBudgetCmd() *cobra.Command {
	var (
		month       int
		year        int
		amountStr   string
		accountName string
	)

	cmd := &cobra.Command{
		Use:   "set <category>",
		Short: "Set or replace a monthly cap",
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
			accountID, err := optionalAccountID(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}
			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}
			if amount < 0 {
				return common.NewUserError("a budget cap cannot be negative", common.ErrInvalidAmount)
			}

			now := time.Now()
			if !cmd.Flags().Changed("month") {
				month = int(now.Month())
			}
			if !cmd.Flags().Changed("year") {
				year = now.Year()
			}

			budget := &model.Budget{
				WorkspaceID: workspace.ID,
				CategoryID:  category.ID,
				AccountID:   accountID,
				Month:       time.Month(month),
				Year:        year,
				Amount:      amount,
			}
			if err := budget.Validate(); err != nil {
				return common.NewUserError(err.Error(), err)
			}

			if err := store.UpsertBudget(ctx, budget); err != nil {
				return fmt.Errorf("failed to set budget: %w", err)
			}

			scope := "all accounts"
			if accountName != "" {
				scope = accountName
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Capped %s at %.2f for %s %d (%s)",
				category.Name, amount, time.Month(month), year, scope)))
			return nil
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "calendar month 1-12 (default: current month)")
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default: current year)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "spending cap for the month")
	cmd.Flags().StringVar(&accountName, "account", "", "limit the cap to one account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func listBudgetsCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budget caps for a year",
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

			if !cmd.Flags().Changed("year") {
				year = time.Now().Year()
			}

			budgets, err := store.ListBudgetsByYear(ctx, workspace.ID, year)
			if err != nil {
				return fmt.Errorf("failed to list budgets: %w", err)
			}

			if len(budgets) == 0 {
				fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("No budgets for %d. Use 'ebb budgets set' to add one.", year)))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Month"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Account"),
				cli.TableHeaderStyle.Render("Cap"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 9),
				strings.Repeat("─", 14),
				strings.Repeat("─", 12),
				strings.Repeat("─", 10))

			for _, detail := range budgets {
				account := detail.AccountName
				if account == "" {
					account = "all"
				}
				fmt.Fprintf(w, "%d\t%s %d\t%s\t%s\t%.2f\n",
					detail.Budget.ID,
					detail.Budget.Month.String()[:3], detail.Budget.Year,
					detail.CategoryName,
					account,
					detail.Budget.Amount)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default: current year)")

	return cmd
}

func deleteBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget cap",
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

			if err := store.DeleteBudget(ctx, workspace.ID, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no budget with id %d", id), err)
				}
				return fmt.Errorf("failed to delete budget: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted budget %d", id)))
			return nil
		},
	}
}

func reportBudgetsCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compare budget caps against actual spending",
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

			if !cmd.Flags().Changed("year") {
				year = time.Now().Year()
			}

			budgets, err := store.ListBudgetsByYear(ctx, workspace.ID, year)
			if err != nil {
				return fmt.Errorf("failed to list budgets: %w", err)
			}
			if len(budgets) == 0 {
				fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("No budgets for %d. Use 'ebb budgets set' to add one.", year)))
				return nil
			}

			actuals, err := store.BudgetActualsByYear(ctx, workspace.ID, year)
			if err != nil {
				return fmt.Errorf("failed to load actual spending: %w", err)
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Budgets vs actuals for %d", year)))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Month"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Account"),
				cli.TableHeaderStyle.Render("Cap"),
				cli.TableHeaderStyle.Render("Spent"),
				cli.TableHeaderStyle.Render("Left"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 9),
				strings.Repeat("─", 14),
				strings.Repeat("─", 12),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10))

			for _, detail := range budgets {
				spent := actuals[service.BudgetActualKey{
					CategoryName: detail.CategoryName,
					AccountName:  detail.AccountName,
					Month:        detail.Budget.Month,
				}]
				account := detail.AccountName
				if account == "" {
					account = "all"
				}

				left := detail.Budget.Amount - spent
				leftText := fmt.Sprintf("%.2f", left)
				if left < 0 {
					leftText = cli.ErrorStyle.Render(fmt.Sprintf("over by %.2f", -left))
				}

				fmt.Fprintf(w, "%s %d\t%s\t%s\t%.2f\t%.2f\t%s\n",
					detail.Budget.Month.String()[:3], detail.Budget.Year,
					detail.CategoryName,
					account,
					detail.Budget.Amount,
					spent,
					leftText)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default: current year)")

	return cmd
}
