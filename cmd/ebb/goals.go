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
	"github.com/ebbcash/ebb/internal/config"
	"github.com/ebbcash/ebb/internal/forecast"
	"github.com/ebbcash/ebb/internal/model"
)

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage spending goals and find dates for them",
		Long: `Goals are discretionary purchases waiting for the right moment: a new
laptop, a holiday, a repair that can wait. 'ebb goals plan' finds the
earliest date for each that keeps the forecast above your safety buffer.`,
	}

	cmd.AddCommand(addGoalCmd())
	cmd.AddCommand(listGoalsCmd())
	cmd.AddCommand(doneGoalCmd())
	cmd.AddCommand(deleteGoalCmd())
	cmd.AddCommand(planGoalsCmd())

	return cmd
}

func addGoalCmd() *cobra.Command {
	var (
		amountStr string
		priority  int
	)

	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add a spending goal",
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

			goal, err := store.CreateGoal(ctx, &model.Goal{
				WorkspaceID: workspace.ID,
				Description: args[0],
				Amount:      amount,
				Priority:    priority,
			})
			if err != nil {
				return fmt.Errorf("failed to create goal: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added goal %q for %s",
				goal.Description, cli.FormatAmount(goal.Amount))))
			return nil
		},
	}

	cmd.Flags().StringVar(&amountStr, "amount", "", "cost of the goal; the sign is ignored")
	cmd.Flags().IntVar(&priority, "priority", 0, "free-form priority number for your own ordering")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func listGoalsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
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

			goals, err := store.ListGoals(ctx, workspace.ID, model.GoalStatus(status))
			if err != nil {
				return fmt.Errorf("failed to list goals: %w", err)
			}

			if len(goals) == 0 {
				fmt.Println(cli.InfoStyle.Render("No goals found. Use 'ebb goals add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Goal"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Status"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 24),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10))

			for _, goal := range goals {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					goal.ID, goal.Description, cli.FormatAmount(goal.Amount), goal.Status)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show one status (pending, satisfied)")

	return cmd
}

func doneGoalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a goal as satisfied",
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

			if err := store.UpdateGoalStatus(ctx, workspace.ID, id, model.GoalStatusSatisfied); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no goal with id %d", id), err)
				}
				return fmt.Errorf("failed to update goal: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Goal %d marked as satisfied", id)))
			return nil
		},
	}
}

func deleteGoalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
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

			if err := store.DeleteGoal(ctx, workspace.ID, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no goal with id %d", id), err)
				}
				return fmt.Errorf("failed to delete goal: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted goal %d", id)))
			return nil
		},
	}
}

func planGoalsCmd() *cobra.Command {
	var (
		safetyStr   string
		months      int
		accountName string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Find spend dates that keep the forecast safe",
		Long: `Projects the balance forward and walks pending goals smallest first,
assigning each the earliest day that keeps the whole remaining forecast
at or above the safety buffer. Goals that fit nowhere in the horizon are
reported as such, not silently dropped.`,
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

			cfg, err := config.LoadPlanningConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("safety") {
				cfg.SafetyBuffer, err = parseAmount(safetyStr)
				if err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("months") {
				if months < 1 {
					return common.NewUserError("the planning horizon must be at least one month", nil)
				}
				cfg.HorizonMonths = months
			}

			accountID, err := optionalAccountID(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}

			scheduled, err := forecast.NewPlanner(store).Schedule(ctx, workspace.ID, cfg.SafetyBuffer, cfg.HorizonMonths, accountID)
			if err != nil {
				return err
			}

			if len(scheduled) == 0 {
				fmt.Println(cli.InfoStyle.Render("No pending goals to plan. Use 'ebb goals add' to create one."))
				return nil
			}

			fmt.Println(cli.FormatInfo(fmt.Sprintf("Keeping the balance above %.2f over the next %d months",
				cfg.SafetyBuffer, cfg.HorizonMonths)))
			fmt.Println()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Goal"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("When"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("─", 24),
				strings.Repeat("─", 10),
				strings.Repeat("─", 14))

			feasible := 0
			for _, goal := range scheduled {
				when := cli.WarningStyle.Render("does not fit")
				if goal.Status == forecast.StatusScheduled {
					when = goal.ScheduledDate.Format(model.DateLayout)
					feasible++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					goal.Goal.Description, cli.FormatAmount(goal.Goal.Amount), when)
			}
			flushTable(w)

			if feasible < len(scheduled) {
				fmt.Println()
				fmt.Println(cli.FormatWarning(fmt.Sprintf(
					"%d of %d goals do not fit in the horizon; try a longer one with --months", len(scheduled)-feasible, len(scheduled))))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&safetyStr, "safety", "", "safety buffer the balance must stay above")
	cmd.Flags().IntVar(&months, "months", 0, "planning horizon in months")
	cmd.Flags().StringVar(&accountName, "account", "", "limit the forecast to one account")

	return cmd
}
