package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"budgetly/internal/budgets"
	"budgetly/internal/core"
	"budgetly/internal/dashboard"
	"budgetly/internal/display"
)

const barWidth = 20

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// bar draws a utilization progress bar.
func bar(u display.Utilization) string {
	filled := int(u.Fill / 100 * barWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "] " + u.Label
}

func renderProfile(w io.Writer, u *core.User) {
	if u == nil {
		fmt.Fprintln(w, "No user loaded")
		return
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Name\t%s\n", u.Name)
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	fmt.Fprintf(tw, "Currency\t%s\n", u.CurrencyCode)
	fmt.Fprintf(tw, "Timezone\t%s\n", u.Timezone)
	tw.Flush()
}

func renderCategories(w io.Writer, list []core.Category) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No categories")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tDEFAULT")
	for _, c := range list {
		def := ""
		if c.IsDefault {
			def = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Type, def)
	}
	tw.Flush()
}

func renderBudgets(w io.Writer, st budgets.State, f *display.Formatter) {
	if len(st.Budgets) == 0 {
		fmt.Fprintln(w, "No budgets")
	} else {
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tMONTH\tNAME")
		for _, b := range st.Budgets {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Month.MonthKey(), b.DisplayName())
		}
		tw.Flush()
	}

	if s := st.Summary; s != nil {
		fmt.Fprintln(w)
		tw := newTable(w)
		fmt.Fprintf(tw, "Budgets\t%d\n", s.TotalBudgets)
		fmt.Fprintf(tw, "This month planned\t%s\n", f.Format(s.CurrentMonthPlannedAmount))
		fmt.Fprintf(tw, "This month spent\t%s\n", f.Format(s.CurrentMonthActualAmount))
		fmt.Fprintf(tw, "%s\t%s\n", display.BalanceLabel(s.CurrentMonthBalance), f.Format(s.CurrentMonthBalance))
		tw.Flush()
	}
}

func renderBudgetDetail(w io.Writer, st budgets.State, f *display.Formatter) {
	b := st.Current
	if b == nil {
		fmt.Fprintln(w, "No budget loaded")
		return
	}
	fmt.Fprintf(w, "%s (#%d, %s)\n\n", b.DisplayName(), b.ID, b.Month.MonthKey())

	if s := st.CurrentSummary; s != nil {
		zb := display.ZeroBased(s.UnallocatedIncome, f)
		health := display.HealthBandOf(s.BudgetHealthScore.Float64())

		tw := newTable(w)
		fmt.Fprintf(tw, "Income\t%s\n", f.Format(s.TotalIncome))
		fmt.Fprintf(tw, "Planned\t%s\n", f.Format(s.TotalPlanned))
		fmt.Fprintf(tw, "Spent\t%s\n", f.Format(s.ActualSpent))
		fmt.Fprintf(tw, "Savings\t%s\n", f.Format(s.Savings))
		fmt.Fprintf(tw, "%s\t%s\n", display.BalanceLabel(s.Balance), f.Format(s.Balance))
		if zb.Remaining == "" {
			fmt.Fprintf(tw, "%s\t%s\n", zb.Title, zb.Badge)
		} else {
			fmt.Fprintf(tw, "%s\t%s, %s unallocated\n", zb.Title, zb.Badge, zb.Remaining)
		}
		fmt.Fprintf(tw, "Health\t%.0f %s\n", s.BudgetHealthScore, health.Label)
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(st.Items) > 0 {
		tw := newTable(w)
		fmt.Fprintln(tw, "ITEM\tCATEGORY\tPLANNED\tSPENT\tREMAINING\tUSED")
		for _, it := range st.Items {
			name := fmt.Sprintf("#%d", it.CategoryID)
			if it.Category != nil {
				name = it.Category.Name
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				it.ID, name,
				f.Format(it.PlannedAmount),
				f.Format(it.SpentAmount),
				f.Format(it.RemainingAmount),
				bar(display.UtilizationOf(it.UtilizationPercentage.Float64())))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	txs := display.RecentTransactions(&core.RecentTransactions{Incomes: st.Incomes, Expenses: st.Expenses}, len(st.Incomes)+len(st.Expenses))
	renderTransactions(w, txs, f)
}

func renderTransactions(w io.Writer, txs []display.Transaction, f *display.Formatter) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tKIND\tDESCRIPTION\tAMOUNT")
	for _, tx := range txs {
		amount := f.Format(tx.Amount)
		if tx.Kind == display.KindExpense {
			amount = "-" + amount
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tx.Date, tx.Kind, tx.Label, amount)
	}
	tw.Flush()
}

func renderDashboard(w io.Writer, st dashboard.State, f *display.Formatter) {
	d := st.Data
	if d == nil {
		fmt.Fprintln(w, "No dashboard data")
		return
	}
	if st.Stale() {
		fmt.Fprintf(w, "Showing data from %s: %s\n\n", st.LastFetched.Format(time.Kitchen), st.Err)
	}

	cm := d.Overview.CurrentMonth
	tw := newTable(w)
	fmt.Fprintln(tw, "PERIOD\tINCOME\tEXPENSES\tNET")
	fmt.Fprintf(tw, "This month\t%s (%s %.1f%%)\t%s (%s %.1f%%)\t%s\n",
		f.Format(cm.Income), display.ChangeDirection(cm.IncomeChangePercentage.Float64()), cm.IncomeChangePercentage,
		f.Format(cm.Expenses), display.ChangeDirection(cm.ExpenseChangePercentage.Float64()), cm.ExpenseChangePercentage,
		f.Format(cm.Net))
	fmt.Fprintf(tw, "Year to date\t%s\t%s\t%s\n", f.Format(d.Overview.YearToDate.Income), f.Format(d.Overview.YearToDate.Expenses), f.Format(d.Overview.YearToDate.Net))
	fmt.Fprintf(tw, "All time\t%s\t%s\t%s\n", f.Format(d.Overview.AllTime.Income), f.Format(d.Overview.AllTime.Expenses), f.Format(d.Overview.AllTime.Net))
	tw.Flush()

	if len(d.ActiveBudgets) > 0 {
		fmt.Fprintln(w)
		tw = newTable(w)
		fmt.Fprintln(tw, "ACTIVE BUDGET\tBUDGETED\tSPENT\tUSED\tSTATUS")
		for _, ab := range d.ActiveBudgets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				ab.Name, f.Format(ab.TotalBudgeted), f.Format(ab.TotalSpent),
				bar(display.UtilizationOf(ab.PercentageUsed.Float64())), ab.Status)
		}
		tw.Flush()
	}

	if len(d.TopSpendingCategories) > 0 {
		fmt.Fprintln(w)
		tw = newTable(w)
		fmt.Fprintln(tw, "TOP CATEGORY\tSPENT")
		for _, c := range d.TopSpendingCategories {
			fmt.Fprintf(tw, "%s\t%s\n", c.Category.Name, f.Format(c.TotalSpent))
		}
		tw.Flush()
	}

	if ms := st.MonthStats; ms != nil && ms.HasBudget && ms.Velocity != nil && ms.Budget != nil {
		fmt.Fprintln(w)
		track := "on track"
		if !ms.Velocity.OnTrack {
			track = "over pace"
		}
		fmt.Fprintf(w, "Day %d of %d: spending %s/day against %s/day, projected %s (%s)\n",
			ms.Budget.Period.DaysElapsed, ms.Budget.Period.DaysTotal,
			f.Format(ms.Velocity.ActualDailySpending), f.Format(ms.Velocity.DailyBudget),
			f.Format(ms.Velocity.ProjectedMonthEndSpending), track)
	} else if ms != nil && !ms.HasBudget && ms.Message != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ms.Message)
	}

	fmt.Fprintln(w)
	renderTransactions(w, display.RecentTransactions(d.RecentTransactions, display.RecentLimit), f)
}
