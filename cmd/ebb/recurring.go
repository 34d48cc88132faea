package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ebbcash/ebb/internal/cli"
	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/config"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/recurrence"
	"github.com/ebbcash/ebb/internal/service"
)

// reviewResumeHint tells an interrupted review session how to pick up.
const reviewResumeHint = "Run 'ebb recurring suggest --review' to continue."

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring rules and detect new ones",
		Long: `Recurring rules describe movements that repeat on a cadence: rent,
salary, subscriptions. Rules can be added by hand or detected from the
recorded history with 'ebb recurring suggest'.`,
	}

	cmd.AddCommand(addRecurringCmd())
	cmd.AddCommand(listRecurringCmd())
	cmd.AddCommand(deleteRecurringCmd())
	cmd.AddCommand(suggestRecurringCmd())
	cmd.AddCommand(acceptRecurringCmd())

	return cmd
}

func addRecurringCmd() *cobra.Command {
	var (
		interval    string
		amountStr   string
		start       string
		accountName string
		category    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a recurring rule by hand",
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

			startDate, err := parseDateFlag(start)
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

			rule := &model.RecurringRule{
				WorkspaceID: workspace.ID,
				Name:        args[0],
				StartDate:   startDate,
				Interval:    model.RecurrenceInterval(interval),
				Amount:      amount,
				AccountID:   account.ID,
				CategoryID:  cat.ID,
				Description: description,
			}
			if err := rule.Validate(); err != nil {
				return common.NewUserError(err.Error(), err)
			}

			created, err := store.CreateRecurringRule(ctx, rule)
			if err != nil {
				return fmt.Errorf("failed to create recurring rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s rule %q for %s",
				created.Interval, created.Name, cli.FormatAmount(created.Amount))))
			return nil
		},
	}

	cmd.Flags().StringVar(&interval, "interval", string(model.IntervalMonthly), "cadence (daily, weekly, monthly)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "signed amount per occurrence")
	cmd.Flags().StringVar(&start, "start", "", "anchor date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&accountName, "account", "", "account the rule applies to")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	cmd.Flags().StringVar(&description, "desc", "", "free-form note")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func listRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring rules",
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

			rules, err := store.ListRecurringRules(ctx, workspace.ID)
			if err != nil {
				return fmt.Errorf("failed to list recurring rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println(cli.InfoStyle.Render("No recurring rules. Use 'ebb recurring add' or 'ebb recurring suggest'."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Interval"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Account"),
				cli.TableHeaderStyle.Render("Since"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 4),
				strings.Repeat("─", 18),
				strings.Repeat("─", 8),
				strings.Repeat("─", 10),
				strings.Repeat("─", 14),
				strings.Repeat("─", 12),
				strings.Repeat("─", 10))

			for _, detail := range rules {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					detail.Rule.ID,
					detail.Rule.Name,
					detail.Rule.Interval,
					cli.FormatAmount(detail.Rule.Amount),
					detail.CategoryName,
					detail.AccountName,
					detail.Rule.StartDate.Format(model.DateLayout))
			}

			return nil
		},
	}
}

func deleteRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recurring rule",
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

			if err := store.DeleteRecurringRule(ctx, workspace.ID, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no recurring rule with id %d", id), err)
				}
				return fmt.Errorf("failed to delete recurring rule: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted recurring rule %d", id)))
			return nil
		},
	}
}

func suggestRecurringCmd() *cobra.Command {
	var review bool

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Detect repeating patterns in the recorded history",
		Long: `Scans every recorded movement for groups that repeat on a monthly or
weekly cadence and are not yet covered by a rule. Without --review the
candidates are printed as a numbered list for 'ebb recurring accept'.`,
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

			suggestions, err := detectSuggestions(ctx, store, workspace.ID)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Println(cli.InfoStyle.Render("No new repeating patterns found in the recorded history."))
				return nil
			}

			if review {
				return reviewSuggestions(ctx, store, workspace.ID, suggestions)
			}

			printSuggestions(suggestions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&review, "review", false, "step through the candidates interactively")

	return cmd
}

func acceptRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <number>",
		Short: "Accept one suggestion from 'ebb recurring suggest'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			index, err := parseID(args[0])
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

			// Detection is deterministic over unchanged history, so the
			// numbering printed by 'suggest' is still valid here.
			suggestions, err := detectSuggestions(ctx, store, workspace.ID)
			if err != nil {
				return err
			}
			if index > int64(len(suggestions)) {
				return common.NewUserError(
					fmt.Sprintf("no suggestion %d; 'ebb recurring suggest' currently finds %d", index, len(suggestions)), nil)
			}

			suggestion := suggestions[index-1]
			rule, err := recurrence.Accept(ctx, store, workspace.ID, suggestion)
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("a rule named %q already exists", suggestion.Name), err)
				}
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s rule %q for %s",
				rule.Interval, rule.Name, cli.FormatAmount(rule.Amount))))
			return nil
		},
	}
}

// detectSuggestions runs detection with the configured thresholds.
func detectSuggestions(ctx context.Context, store service.Storage, workspaceID int64) ([]model.RecurringSuggestion, error) {
	cfg, err := config.LoadRecurrenceConfig()
	if err != nil {
		return nil, err
	}
	suggestions, err := recurrence.Suggest(ctx, store, workspaceID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to detect patterns: %w", err)
	}
	return suggestions, nil
}

func printSuggestions(suggestions []model.RecurringSuggestion) {
	fmt.Println(cli.FormatTitle(fmt.Sprintf("Found %d repeating patterns", len(suggestions))))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("#"),
		cli.TableHeaderStyle.Render("Name"),
		cli.TableHeaderStyle.Render("Interval"),
		cli.TableHeaderStyle.Render("Amount"),
		cli.TableHeaderStyle.Render("Seen"),
		cli.TableHeaderStyle.Render("Category"),
		cli.TableHeaderStyle.Render("Account"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 3),
		strings.Repeat("─", 18),
		strings.Repeat("─", 8),
		strings.Repeat("─", 10),
		strings.Repeat("─", 8),
		strings.Repeat("─", 14),
		strings.Repeat("─", 12))

	for i, suggestion := range suggestions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d times\t%s\t%s\n",
			i+1,
			suggestion.Name,
			suggestion.Interval,
			cli.FormatAmount(suggestion.Amount),
			suggestion.Occurrences,
			suggestion.CategoryName,
			suggestion.AccountName)
	}
	flushTable(w)

	fmt.Println()
	fmt.Println(cli.InfoStyle.Render("Use 'ebb recurring accept <number>' or 'ebb recurring suggest --review'."))
}

// reviewSuggestions walks the candidates interactively. Each acceptance is
// written to the store as it is made, so quitting or interrupting keeps
// every rule confirmed up to that point.
func reviewSuggestions(ctx context.Context, store service.Storage, workspaceID int64, suggestions []model.RecurringSuggestion) error {
	handler := cli.NewInterruptHandler(os.Stdout, reviewResumeHint)
	reviewCtx := handler.HandleInterrupts(ctx)

	prompter := cli.NewReviewPrompter(os.Stdin, os.Stdout)
	outcome, err := prompter.Review(reviewCtx, suggestions, func(suggestion model.RecurringSuggestion) error {
		_, acceptErr := recurrence.Accept(ctx, store, workspaceID, suggestion)
		if errors.Is(acceptErr, common.ErrDuplicateEntry) {
			fmt.Println(cli.FormatWarning(fmt.Sprintf("A rule named %q already exists, skipping", suggestion.Name)))
			return nil
		}
		return acceptErr
	})
	if err != nil {
		// An interrupt can cancel the store context between the answer and
		// the write; the session message already told the user what survived.
		if handler.WasInterrupted() {
			return nil
		}
		return err
	}

	if outcome.Quit {
		fmt.Println(cli.InfoStyle.Render(fmt.Sprintf(
			"Stopped with %d accepted and %d skipped. %s", len(outcome.Accepted), outcome.Skipped, reviewResumeHint)))
	}
	return nil
}
