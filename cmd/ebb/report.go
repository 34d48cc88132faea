package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ebbcash/ebb/internal/cli"
	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the recorded history",
		Long: `Reports look backwards where the forecast looks forwards: monthly
income and spending, totals per category, the trend of one category over
time and the overall net position.`,
	}

	cmd.AddCommand(monthlyReportCmd())
	cmd.AddCommand(categoriesReportCmd())
	cmd.AddCommand(trendReportCmd())
	cmd.AddCommand(networthReportCmd())

	return cmd
}

// reportRange resolves --from/--to flags, defaulting to the last six months.
func reportRange(from, to string) (time.Time, time.Time, error) {
	end := model.Day(time.Now())
	start := end.AddDate(0, -6, 0)

	if from != "" {
		parsed, err := model.ParseDate(from)
		if err != nil {
			return time.Time{}, time.Time{}, common.NewUserError(
				fmt.Sprintf("cannot read date %q, expected YYYY-MM-DD", from), err)
		}
		start = parsed
	}
	if to != "" {
		parsed, err := model.ParseDate(to)
		if err != nil {
			return time.Time{}, time.Time{}, common.NewUserError(
				fmt.Sprintf("cannot read date %q, expected YYYY-MM-DD", to), err)
		}
		end = parsed
	}
	return start, end, nil
}

func monthlyReportCmd() *cobra.Command {
	var (
		from        string
		to          string
		accountName string
	)

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Income and spending per month",
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

			start, end, err := reportRange(from, to)
			if err != nil {
				return err
			}
			accountID, err := optionalAccountID(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}

			flows, err := store.GetMonthlySummary(ctx, workspace.ID, start, end, accountID)
			if err != nil {
				return fmt.Errorf("failed to load monthly summary: %w", err)
			}

			if len(flows) == 0 {
				fmt.Println(cli.InfoStyle.Render("Nothing recorded in this range."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Month"),
				cli.TableHeaderStyle.Render("Income"),
				cli.TableHeaderStyle.Render("Expenses"),
				cli.TableHeaderStyle.Render("Net"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 9),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10),
				strings.Repeat("─", 10))

			for _, flow := range flows {
				fmt.Fprintf(w, "%s %d\t%.2f\t%.2f\t%s\n",
					flow.Month.String()[:3], flow.Year,
					flow.Income,
					-flow.Expenses,
					cli.FormatAmount(flow.Income+flow.Expenses))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "range start (YYYY-MM-DD, default six months back)")
	cmd.Flags().StringVar(&to, "to", "", "range end (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&accountName, "account", "", "limit to one account")

	return cmd
}

func categoriesReportCmd() *cobra.Command {
	var (
		from        string
		to          string
		accountName string
	)

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Spending totals per category",
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

			start, end, err := reportRange(from, to)
			if err != nil {
				return err
			}
			accountID, err := optionalAccountID(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}

			totals, err := store.GetCategorySummary(ctx, workspace.ID, start, end, accountID)
			if err != nil {
				return fmt.Errorf("failed to load category summary: %w", err)
			}

			if len(totals) == 0 {
				fmt.Println(cli.InfoStyle.Render("No spending recorded in this range."))
				return nil
			}

			var grand float64
			for _, total := range totals {
				grand += total.Total
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Spent"),
				cli.TableHeaderStyle.Render("Share"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("─", 16),
				strings.Repeat("─", 10),
				strings.Repeat("─", 6))

			for _, total := range totals {
				share := 0.0
				if grand > 0 {
					share = total.Total / grand * 100
				}
				fmt.Fprintf(w, "%s\t%.2f\t%.0f%%\n", total.Category, total.Total, share)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "range start (YYYY-MM-DD, default six months back)")
	cmd.Flags().StringVar(&to, "to", "", "range end (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&accountName, "account", "", "limit to one account")

	return cmd
}

func trendReportCmd() *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:   "trend <category>",
		Short: "One category's spending month by month",
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
			start, end, err := reportRange(from, to)
			if err != nil {
				return err
			}

			trend, err := store.GetCategoryTrend(ctx, workspace.ID, category.ID, start, end)
			if err != nil {
				return fmt.Errorf("failed to load category trend: %w", err)
			}

			if len(trend) == 0 {
				fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("Nothing recorded for %s in this range.", category.Name)))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%s over time", category.Name)))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer flushTable(w)

			fmt.Fprintf(w, "%s\t%s\n",
				cli.TableHeaderStyle.Render("Month"),
				cli.TableHeaderStyle.Render("Spent"))
			fmt.Fprintf(w, "%s\t%s\n",
				strings.Repeat("─", 9),
				strings.Repeat("─", 10))

			for _, point := range trend {
				fmt.Fprintf(w, "%s %d\t%.2f\n", point.Month.String()[:3], point.Year, point.Total)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "range start (YYYY-MM-DD, default six months back)")
	cmd.Flags().StringVar(&to, "to", "", "range end (YYYY-MM-DD, default today)")

	return cmd
}

func networthReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networth",
		Short: "Overall position across accounts and debts",
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

			networth, err := store.GetNetWorth(ctx, workspace.ID)
			if err != nil {
				return fmt.Errorf("failed to compute net worth: %w", err)
			}

			detail := fmt.Sprintf("  Liquid balance:  %12.2f\n", networth.Liquidity) +
				fmt.Sprintf("  Card debt:       %12.2f\n", networth.CardDebt) +
				fmt.Sprintf("  Owed to others:  %12.2f\n", -networth.Borrowed) +
				fmt.Sprintf("  %s\n", strings.Repeat("─", 29)) +
				fmt.Sprintf("  Net position:    %12.2f\n", networth.Total)

			fmt.Println(cli.RenderBox("Net Worth", detail))
			return nil
		},
	}
}
