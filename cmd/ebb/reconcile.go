package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ebbcash/ebb/internal/cli"
	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/config"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match real movements against planned ones",
		Long: `When an expected movement actually happens, reconciling records the
real transaction and removes the plan in one step, so the forecast never
counts the money twice. 'match' finds the closest plan for a movement;
'apply' performs the swap.`,
	}

	cmd.AddCommand(matchReconcileCmd())
	cmd.AddCommand(applyReconcileCmd())

	return cmd
}

func matchReconcileCmd() *cobra.Command {
	var (
		date      string
		amountStr string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find the planned movement closest to a real one",
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

			when, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}

			cfg, err := config.LoadReconcileConfig()
			if err != nil {
				return err
			}

			planned, err := reconcile.NewMatcher(store, cfg).FindBest(ctx, workspace.ID, when, amount)
			if err != nil {
				return fmt.Errorf("failed to search for a match: %w", err)
			}
			if planned == nil {
				fmt.Println(cli.InfoStyle.Render("No planned movement within tolerance of that date and amount."))
				return nil
			}

			detail := fmt.Sprintf("  Planned:   %s %q\n", cli.FormatAmount(planned.Amount), planned.Description) +
				fmt.Sprintf("  Expected:  %s\n", planned.Date.Format(model.DateLayout)) +
				fmt.Sprintf("  Plan id:   %d\n", planned.ID)
			fmt.Println(cli.RenderBox("Closest Plan", detail))
			fmt.Println(cli.InfoStyle.Render(fmt.Sprintf(
				"Apply it with 'ebb reconcile apply --planned %d --date %s --amount %s'.",
				planned.ID, when.Format(model.DateLayout), amountStr)))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date of the real movement (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "signed amount of the real movement")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func applyReconcileCmd() *cobra.Command {
	var (
		plannedID   int64
		date        string
		amountStr   string
		accountName string
		category    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Record a real movement and clear the plan it fulfills",
		Long: `Records the real transaction and deletes the planned one atomically.
Fields left out are taken from the plan, so the common case needs only
--planned and whatever actually differed.`,
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

			planned, err := store.GetPlannedTransactionByID(ctx, workspace.ID, plannedID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no planned movement with id %d", plannedID), err)
				}
				return fmt.Errorf("failed to load planned transaction: %w", err)
			}

			// The plan supplies every field the user does not override.
			txn := &model.Transaction{
				Date:        planned.Date,
				Description: planned.Description,
				AccountID:   planned.AccountID,
				CategoryID:  planned.CategoryID,
				Amount:      planned.Amount,
			}
			if cmd.Flags().Changed("date") {
				txn.Date, err = parseDateFlag(date)
				if err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("amount") {
				txn.Amount, err = parseAmount(amountStr)
				if err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("account") {
				account, err := accountByName(ctx, store, workspace.ID, accountName)
				if err != nil {
					return err
				}
				txn.AccountID = account.ID
			}
			if cmd.Flags().Changed("category") {
				cat, err := categoryByName(ctx, store, workspace.ID, category)
				if err != nil {
					return err
				}
				txn.CategoryID = cat.ID
			}
			if cmd.Flags().Changed("desc") {
				txn.Description = description
			}

			cfg, err := config.LoadReconcileConfig()
			if err != nil {
				return err
			}

			created, err := reconcile.NewMatcher(store, cfg).Reconcile(ctx, workspace.ID, plannedID, txn)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(
						fmt.Sprintf("planned movement %d is already gone; someone may have reconciled it", plannedID), err)
				}
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s %q and cleared plan %d",
				cli.FormatAmount(created.Amount), created.Description, plannedID)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&plannedID, "planned", 0, "id of the planned movement being fulfilled")
	cmd.Flags().StringVar(&date, "date", "", "date of the real movement (default: the plan's date)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "signed amount (default: the planned amount)")
	cmd.Flags().StringVar(&accountName, "account", "", "account name (default: the plan's account)")
	cmd.Flags().StringVar(&category, "category", "", "category name (default: the plan's category)")
	cmd.Flags().StringVar(&description, "desc", "", "description (default: the plan's description)")
	_ = cmd.MarkFlagRequired("planned")

	return cmd
}
