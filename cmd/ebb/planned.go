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

func plannedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planned",
		Short: "Manage planned one-off movements",
		Long: `Planned movements are expected but not yet recorded: an invoice due,
a deposit promised, a refund on its way. They land on the forecast
timeline until a real movement reconciles them away.`,
	}

	cmd.AddCommand(addPlannedCmd())
	cmd.AddCommand(listPlannedCmd())
	cmd.AddCommand(deletePlannedCmd())

	return cmd
}

func addPlannedCmd() *cobra.Command {
	var (
		date        string
		amountStr   string
		accountName string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Expect a one-off movement",
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

			when, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}
			account, err := accountByName(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}
			cat, err := categoryByName(ctx, store, workspace.ID, category)
			if err != nil {
				return err
			}

			planned, err := store.CreatePlannedTransaction(ctx, &model.PlannedTransaction{
				WorkspaceID: workspace.ID,
				Date:        when,
				Description: args[0],
				AccountID:   account.ID,
				CategoryID:  cat.ID,
				Amount:      amount,
			})
			if err != nil {
				return fmt.Errorf("failed to create planned transaction: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Expecting %s %q on %s",
				cli.FormatAmount(planned.Amount), planned.Description, planned.Date.Format(model.DateLayout))))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "expected date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "signed amount, negative for spending")
	cmd.Flags().StringVar(&accountName, "account", "", "account the movement will land on")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func listPlannedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List outstanding planned movements",
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

			planned, err := store.ListPlannedTransactions(ctx, workspace.ID)
			if err != nil {
				return fmt.Errorf("failed to list planned transactions: %w", err)
			}

			if len(planned) == 0 {
				fmt.Println(cli.InfoStyle.Render("No planned movements. Use 'ebb planned add' to expect one."))
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
				strings.Repeat("─", 4),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10),
				strings.Repeat("─", 14),
				strings.Repeat("─", 12),
				strings.Repeat("─", 24))

			for _, detail := range planned {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					detail.Planned.ID,
					detail.Planned.Date.Format(model.DateLayout),
					cli.FormatAmount(detail.Planned.Amount),
					detail.CategoryName,
					detail.AccountName,
					detail.Planned.Description)
			}

			return nil
		},
	}
}

func deletePlannedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Drop a planned movement",
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

			if err := store.DeletePlannedTransaction(ctx, workspace.ID, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no planned movement with id %d", id), err)
				}
				return fmt.Errorf("failed to delete planned transaction: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Dropped planned movement %d", id)))
			return nil
		},
	}
}
