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

func debtsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debts",
		Short: "Track informal loans with other people",
		Long: `Debts are IOUs outside the ledger proper: money lent to a friend or
borrowed from one. Settling a debt records the balancing movement on an
account and closes the debt in the same step.`,
	}

	cmd.AddCommand(addDebtCmd())
	cmd.AddCommand(listDebtsCmd())
	cmd.AddCommand(settleDebtCmd())
	cmd.AddCommand(deleteDebtCmd())

	return cmd
}

func addDebtCmd() *cobra.Command {
	var (
		debtType  string
		amountStr string
		due       string
	)

	cmd := &cobra.Command{
		Use:   "add <person>",
		Short: "Record money lent or borrowed",
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

			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}
			if amount <= 0 {
				return common.NewUserError("the debt amount must be positive; --type carries the direction", common.ErrInvalidAmount)
			}

			debt := &model.Debt{
				WorkspaceID: workspace.ID,
				Person:      args[0],
				Type:        model.DebtType(debtType),
				Amount:      amount,
			}
			if due != "" {
				debt.DueDate, err = parseDateFlag(due)
				if err != nil {
					return err
				}
			}

			created, err := store.CreateDebt(ctx, debt)
			if err != nil {
				return fmt.Errorf("failed to create debt: %w", err)
			}

			phrase := fmt.Sprintf("Lent %.2f to %s", created.Amount, created.Person)
			if created.Type == model.DebtTypeBorrowed {
				phrase = fmt.Sprintf("Borrowed %.2f from %s", created.Amount, created.Person)
			}
			fmt.Println(cli.FormatSuccess(phrase))
			return nil
		},
	}

	cmd.Flags().StringVar(&debtType, "type", string(model.DebtTypeLent), "direction (lent, borrowed)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "positive amount of the debt")
	cmd.Flags().StringVar(&due, "due", "", "expected settlement date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func listDebtsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List debts",
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

			debts, err := store.ListDebts(ctx, workspace.ID, model.DebtStatus(status))
			if err != nil {
				return fmt.Errorf("failed to list debts: %w", err)
			}

			if len(debts) == 0 {
				fmt.Println(cli.InfoStyle.Render("No debts found. Use 'ebb debts add' to record one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Person"),
				cli.TableHeaderStyle.Render("Type"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Due"),
				cli.TableHeaderStyle.Render("Status"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 16),
				strings.Repeat("─", 8),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10),
				strings.Repeat("─", 11))

			for _, debt := range debts {
				due := "-"
				if !debt.DueDate.IsZero() {
					due = debt.DueDate.Format(model.DateLayout)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
					debt.ID, debt.Person, debt.Type, debt.Amount, due, debt.Status)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show one status (outstanding, settled)")

	return cmd
}

func settleDebtCmd() *cobra.Command {
	var (
		accountName string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "settle <id>",
		Short: "Settle a debt and record the movement",
		Long: `Closes an outstanding debt and records the balancing movement on the
given account: money lent comes back in, money borrowed goes out.`,
		Args: cobra.ExactArgs(1),
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

			account, err := accountByName(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}
			when, err := parseDateFlag(date)
			if err != nil {
				return err
			}

			if err := store.SettleDebt(ctx, workspace.ID, id, account.ID, when); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(
						fmt.Sprintf("no outstanding debt with id %d; see 'ebb debts list'", id), err)
				}
				return fmt.Errorf("failed to settle debt: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Settled debt %d on account %q", id, account.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&accountName, "account", "", "account the settlement moves through")
	cmd.Flags().StringVar(&date, "date", "", "settlement date (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func deleteDebtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a debt without recording anything",
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

			if err := store.DeleteDebt(ctx, workspace.ID, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no debt with id %d", id), err)
				}
				return fmt.Errorf("failed to delete debt: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted debt %d", id)))
			return nil
		},
	}
}
