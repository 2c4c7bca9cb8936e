package display

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgetly/internal/core"
)

// Tone is the styling class of a derived value.
type Tone int

const (
	ToneNeutral Tone = iota
	TonePositive
	ToneNegative
)

func (t Tone) String() string {
	switch t {
	case TonePositive:
		return "positive"
	case ToneNegative:
		return "negative"
	default:
		return "neutral"
	}
}

// BalanceTone is positive above zero, negative below and neutral at exactly zero.
func BalanceTone(balance core.Amount) Tone {
	switch balance.Sign() {
	case 1:
		return TonePositive
	case -1:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// BalanceLabel names the balance card. Only a negative balance is over
// budget; zero still reads as remaining.
func BalanceLabel(balance core.Amount) string {
	if BalanceTone(balance) == ToneNegative {
		return "Over Budget"
	}
	return "Remaining"
}

// Utilization drives a progress bar. Fill is clamped to [0, 100]; Label
// keeps the raw percentage, which may exceed 100.
type Utilization struct {
	Fill  float64
	Label string
}

func UtilizationOf(pct float64) Utilization {
	return Utilization{
		Fill:  min(max(pct, 0), 100),
		Label: fmt.Sprintf("%.1f%%", pct),
	}
}

type ZeroBasedView struct {
	Achieved  bool
	Title     string
	Badge     string
	Remaining string
}

// ZeroBased reports zero-based status from the unallocated income. The
// comparison is exact on the parsed decimal, so "0", "0.00" and "-0.00" are
// all zero. A missing or malformed value is never achieved and carries no
// remaining amount.
func ZeroBased(unallocated core.Amount, f *Formatter) ZeroBasedView {
	if f == nil {
		f = usd
	}
	pending := ZeroBasedView{Title: "Zero-Based In Progress", Badge: "Pending"}
	if unallocated.IsEmpty() {
		return pending
	}
	d, err := unallocated.Decimal()
	if err != nil {
		return pending
	}
	if d.IsZero() {
		return ZeroBasedView{Achieved: true, Title: "Zero-Based Achieved", Badge: "Complete"}
	}
	pending.Remaining = f.Format(unallocated)
	return pending
}

type HealthBand struct {
	Label string
	Tone  Tone
}

// HealthBandOf bands a 0-100 health score: 80 and above is Excellent,
// 60 and above is Good.
func HealthBandOf(score float64) HealthBand {
	switch {
	case score >= 80:
		return HealthBand{Label: "Excellent", Tone: TonePositive}
	case score >= 60:
		return HealthBand{Label: "Good", Tone: ToneNeutral}
	default:
		return HealthBand{Label: "Needs Attention", Tone: ToneNegative}
	}
}

func ActiveBudgetTone(status core.ActiveBudgetStatus) Tone {
	switch status {
	case core.BudgetHealthy:
		return TonePositive
	case core.BudgetOverBudget:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// ChangeDirection classifies a month-over-month delta; zero counts as an increase.
func ChangeDirection(pct float64) Direction {
	if pct < 0 {
		return Decrease
	}
	return Increase
}

// TotalPlanned sums planned amounts exactly.
func TotalPlanned(items []core.BudgetItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.PlannedAmount.MustDecimal())
	}
	return total
}

// SummaryAgrees reports whether a locally summed total matches the server
// figure within one cent.
func SummaryAgrees(local decimal.Decimal, server core.Amount) bool {
	return local.Sub(server.MustDecimal()).Abs().LessThanOrEqual(core.MinAmount)
}

// BudgetStats is computed locally from the budget list for display only.
type BudgetStats struct {
	TotalBudgets        int
	CurrentMonthBudgets int
	TotalPlanned        decimal.Decimal
	CurrentMonthPlanned decimal.Decimal
}

// ComputeBudgetStats sums nested item plans; list-view budgets without
// items contribute zero.
func ComputeBudgetStats(budgets []core.Budget, today core.Date) BudgetStats {
	stats := BudgetStats{TotalBudgets: len(budgets), TotalPlanned: decimal.Zero, CurrentMonthPlanned: decimal.Zero}
	month := today.MonthKey()
	for _, b := range budgets {
		planned := TotalPlanned(b.Items)
		stats.TotalPlanned = stats.TotalPlanned.Add(planned)
		if b.Month.MonthKey() == month {
			stats.CurrentMonthBudgets++
			stats.CurrentMonthPlanned = stats.CurrentMonthPlanned.Add(planned)
		}
	}
	return stats
}
