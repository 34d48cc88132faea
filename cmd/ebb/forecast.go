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
	"github.com/ebbcash/ebb/internal/forecast"
	"github.com/ebbcash/ebb/internal/model"
)

func forecastCmd() *cobra.Command {
	var (
		months      int
		accountName string
		showEvents  bool
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project the balance forward month by month",
		Long: `Builds the unified future timeline from recorded history, planned
movements and recurring rules, then folds it into a month-by-month
outlook. --events prints every projected movement with its running
balance instead of the monthly rollup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if months < 1 {
				return common.NewUserError("the forecast needs at least one month", nil)
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

			accountID, err := optionalAccountID(ctx, store, workspace.ID, accountName)
			if err != nil {
				return err
			}

			start := model.Day(time.Now())
			end := start.AddDate(0, months, 0)

			initial, err := forecast.InitialBalance(ctx, store, workspace.ID, start, accountID)
			if err != nil {
				return err
			}
			events, err := forecast.NewProjector(store).Project(ctx, workspace.ID, start, end, accountID)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Forecast from %s", start.Format("Jan 2, 2006"))))
			fmt.Println(cli.FormatInfo(fmt.Sprintf("Starting balance: %.2f", initial)))
			fmt.Println()

			if showEvents {
				printEventDetail(initial, events)
				return nil
			}

			printMonthlyOutlook(forecast.MonthlyOutlook(initial, events, start, months))
			return nil
		},
	}

	cmd.Flags().IntVar(&months, "months", 6, "how many months to project")
	cmd.Flags().StringVar(&accountName, "account", "", "limit the forecast to one account")
	cmd.Flags().BoolVar(&showEvents, "events", false, "print every projected movement instead of the monthly rollup")

	return cmd
}

func printMonthlyOutlook(rows []forecast.MonthRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer flushTable(w)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Month"),
		cli.TableHeaderStyle.Render("Income"),
		cli.TableHeaderStyle.Render("Expenses"),
		cli.TableHeaderStyle.Render("Net"),
		cli.TableHeaderStyle.Render("Balance"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 10),
		strings.Repeat("─", 10),
		strings.Repeat("─", 10),
		strings.Repeat("─", 10),
		strings.Repeat("─", 10))

	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\t%s\n",
			row.Month.Format("Jan 2006"),
			row.Income,
			row.Expenses,
			cli.FormatAmount(row.Net),
			formatBalance(row.Balance))
	}
}

func printEventDetail(initial float64, events []model.CashEvent) {
	if len(events) == 0 {
		fmt.Println(cli.InfoStyle.Render("Nothing on the timeline for this horizon."))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer flushTable(w)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Date"),
		cli.TableHeaderStyle.Render("Amount"),
		cli.TableHeaderStyle.Render("Balance"),
		cli.TableHeaderStyle.Render("Source"),
		cli.TableHeaderStyle.Render("Category"),
		cli.TableHeaderStyle.Render("Description"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 10),
		strings.Repeat("─", 10),
		strings.Repeat("─", 10),
		strings.Repeat("─", 9),
		strings.Repeat("─", 14),
		strings.Repeat("─", 24))

	for _, point := range forecast.Run(initial, events) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			point.Event.Date.Format(model.DateLayout),
			cli.FormatAmount(point.Event.Amount),
			formatBalance(point.Balance),
			point.Event.Source,
			point.Event.CategoryName,
			point.Event.Description)
	}
}

// formatBalance renders a running balance, flagging negative territory.
func formatBalance(balance float64) string {
	text := fmt.Sprintf("%.2f", balance)
	if balance < 0 {
		return cli.ErrorStyle.Render(text)
	}
	return text
}
