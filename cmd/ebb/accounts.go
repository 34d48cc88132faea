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
	"github.com/ebbcash/ebb/internal/service"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts and credit cards",
		Long: `Accounts are where money lives. Standard accounts carry an opening
balance; credit cards carry a limit and a statement day, and their
spending stays out of the liquidity forecast until the statement is paid.`,
	}

	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(updateAccountCmd())
	cmd.AddCommand(deleteAccountCmd())
	cmd.AddCommand(payCardCmd())

	return cmd
}

func addAccountCmd() *cobra.Command {
	var (
		accountType  string
		opening      float64
		creditLimit  float64
		statementDay int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new account",
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

			account := &model.Account{
				WorkspaceID:    workspace.ID,
				Name:           args[0],
				Type:           model.AccountType(accountType),
				OpeningBalance: opening,
				CreditLimit:    creditLimit,
				StatementDay:   statementDay,
			}

			created, err := store.CreateAccount(ctx, account)
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("account %q already exists", args[0]), err)
				}
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s account %q", created.Type, created.Name)))
			return nil
		},
	}

	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().StringVar(&accountType, "type", string(model.AccountTypeStandard), "account type (standard, credit_card)")
	cmd.Flags().Float64Var(&opening, "opening", 0, "opening balance for standard accounts")
	cmd.Flags().Float64Var(&creditLimit, "limit", 0, "credit limit for cards")
	cmd.Flags().IntVar(&statementDay, "statement-day", 1, "day of month the card statement closes (1-28)")

	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their current position",
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

			balances, err := store.ListAccountBalances(ctx, workspace.ID)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(balances) == 0 {
				fmt.Println(cli.InfoStyle.Render("No accounts yet. Use 'ebb accounts add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Type"),
				cli.TableHeaderStyle.Render("Balance"),
				cli.TableHeaderStyle.Render("Due"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 18),
				strings.Repeat("─", 11),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10))

			for _, row := range balances {
				due := ""
				if row.Account.Type == model.AccountTypeCreditCard {
					due = fmt.Sprintf("%.2f", row.AmountDue)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n",
					row.Account.ID, row.Account.Name, row.Account.Type, row.Balance, due)
			}

			return nil
		},
	}
}

func updateAccountCmd() *cobra.Command {
	var (
		newName      string
		opening      float64
		creditLimit  float64
		statementDay int
	)

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update an account",
		Long:  `Change an account's name, opening balance or card settings. Only the flags you pass are applied.`,
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

			account, err := accountByName(ctx, store, workspace.ID, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("name") {
				account.Name = newName
			}
			if cmd.Flags().Changed("opening") {
				account.OpeningBalance = opening
			}
			if cmd.Flags().Changed("limit") {
				account.CreditLimit = creditLimit
			}
			if cmd.Flags().Changed("statement-day") {
				account.StatementDay = statementDay
			}

			if err := store.UpdateAccount(ctx, account); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("account %q already exists", newName), err)
				}
				return fmt.Errorf("failed to update account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated account %q", account.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&newName, "name", "", "new account name")
	cmd.Flags().Float64Var(&opening, "opening", 0, "new opening balance")
	cmd.Flags().Float64Var(&creditLimit, "limit", 0, "new credit limit")
	cmd.Flags().IntVar(&statementDay, "statement-day", 0, "new statement day (1-28)")

	return cmd
}

func deleteAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an account and its transactions",
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

			account, err := accountByName(ctx, store, workspace.ID, args[0])
			if err != nil {
				return err
			}

			confirmed, err := cli.ConfirmAction(ctx, os.Stdin, os.Stdout,
				fmt.Sprintf("Delete account %q and every transaction on it?", account.Name))
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(cli.InfoStyle.Render("Nothing deleted."))
				return nil
			}

			if err := store.DeleteAccount(ctx, workspace.ID, account.ID); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted account %q", account.Name)))
			return nil
		},
	}
}

func payCardCmd() *cobra.Command {
	var (
		fromAccount string
		amountFlag  string
		dateFlag    string
	)

	cmd := &cobra.Command{
		Use:   "pay-card <card-name>",
		Short: "Pay a credit card statement from a standard account",
		Long: `Record a statement payment as two linked transfer movements: money
leaves the funding account and clears the same amount of card debt.`,
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

			card, err := accountByName(ctx, store, workspace.ID, args[0])
			if err != nil {
				return err
			}
			from, err := accountByName(ctx, store, workspace.ID, fromAccount)
			if err != nil {
				return err
			}

			amount, err := parseAmount(amountFlag)
			if err != nil {
				return err
			}
			if amount <= 0 {
				return common.NewUserError("payment amount must be positive", common.ErrInvalidAmount)
			}

			date, err := parseDateFlag(dateFlag)
			if err != nil {
				return err
			}

			payment := service.CardPayment{
				Date:          date,
				CardAccountID: card.ID,
				FromAccountID: from.ID,
				Amount:        amount,
			}
			if err := store.PayCardStatement(ctx, workspace.ID, payment); err != nil {
				return fmt.Errorf("failed to pay card statement: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Paid %.2f from %q toward %q", amount, from.Name, card.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromAccount, "from", "", "standard account the payment comes from (required)")
	cmd.Flags().StringVar(&amountFlag, "amount", "", "payment amount (required)")
	cmd.Flags().StringVar(&dateFlag, "date", "", "payment date (default: today)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
