package fakeapi

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"budgetly/internal/core"
)

var hundred = decimal.NewFromInt(100)

// percent returns part/whole*100 rounded to two places; zero when whole is zero.
func percent(part, whole decimal.Decimal) core.Percent {
	if whole.Sign() == 0 {
		return 0
	}
	f, _ := part.Div(whole).Mul(hundred).Round(2).Float64()
	return core.Percent(f)
}

func itemStatus(spent, planned decimal.Decimal) core.ItemStatus {
	switch spent.Cmp(planned) {
	case 1:
		return core.OverBudget
	case 0:
		return core.OnBudget
	default:
		return core.UnderBudget
	}
}

func (d *db) spentOnItem(itemID int64) decimal.Decimal {
	total := decimal.Zero
	for _, e := range d.expenses {
		if e.ItemID == itemID {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func (d *db) itemView(it *itemRec) core.BudgetItem {
	spent := d.spentOnItem(it.ID)
	v := core.BudgetItem{
		ID:                    it.ID,
		BudgetID:              it.BudgetID,
		CategoryID:            it.CategoryID,
		PlannedAmount:         core.NewAmount(it.Planned),
		Notes:                 it.Notes,
		SpentAmount:           core.NewAmount(spent),
		RemainingAmount:       core.NewAmount(it.Planned.Sub(spent)),
		UtilizationPercentage: percent(spent, it.Planned),
		Status:                itemStatus(spent, it.Planned),
		CreatedAt:             it.CreatedAt,
		UpdatedAt:             it.UpdatedAt,
	}
	if c, ok := d.categories[it.CategoryID]; ok {
		cat := *c
		v.Category = &cat
	}
	return v
}

func incomeView(in *incomeRec) core.Income {
	return core.Income{
		ID: in.ID, UserID: in.UserID, BudgetID: in.BudgetID,
		Amount: core.NewAmount(in.Amount), Source: in.Source, Note: in.Note, Date: in.Date,
		CreatedAt: in.CreatedAt, UpdatedAt: in.UpdatedAt,
	}
}

func (d *db) expenseView(e *expenseRec) core.Expense {
	v := core.Expense{
		ID: e.ID, UserID: e.UserID, BudgetID: e.BudgetID, CategoryID: e.CategoryID, BudgetItemID: e.ItemID,
		Amount: core.NewAmount(e.Amount), Merchant: e.Merchant, Note: e.Note, Date: e.Date,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
	if c, ok := d.categories[e.CategoryID]; ok {
		cat := *c
		v.Category = &cat
	}
	return v
}

// budgetDetail renders the single-budget view with populated, never null,
// nested collections.
func (d *db) budgetDetail(b *core.Budget) core.BudgetDetail {
	view := *b
	view.Items = []core.BudgetItem{}
	view.Incomes = []core.Income{}
	view.Expenses = []core.Expense{}

	health := []core.BudgetItemHealth{}
	totalPlanned, savings := decimal.Zero, decimal.Zero
	over, under := 0, 0

	for _, it := range d.budgetItems(b.ID) {
		iv := d.itemView(it)
		view.Items = append(view.Items, iv)
		totalPlanned = totalPlanned.Add(it.Planned)

		name := ""
		if iv.Category != nil {
			name = iv.Category.Name
			if iv.Category.Type == core.CategorySavings {
				savings = savings.Add(it.Planned)
			}
		}
		switch iv.Status {
		case core.OverBudget:
			over++
		case core.UnderBudget:
			under++
		}
		health = append(health, core.BudgetItemHealth{
			ID: iv.ID, Category: name, PlannedAmount: iv.PlannedAmount, SpentAmount: iv.SpentAmount,
			RemainingAmount: iv.RemainingAmount, UtilizationPercentage: iv.UtilizationPercentage, Status: iv.Status,
		})
	}

	income := decimal.Zero
	for _, in := range d.budgetIncomes(b.ID) {
		view.Incomes = append(view.Incomes, incomeView(in))
		income = income.Add(in.Amount)
	}
	spent := decimal.Zero
	for _, e := range d.budgetExpenses(b.ID) {
		view.Expenses = append(view.Expenses, d.expenseView(e))
		spent = spent.Add(e.Amount)
	}

	balance := totalPlanned.Sub(spent)
	unallocated := income.Sub(totalPlanned)
	zeroBased := unallocated.Sign() == 0

	return core.BudgetDetail{
		Budget: view,
		Summary: &core.BudgetDetailSummary{
			TotalPlanned:          core.NewAmount(totalPlanned),
			ActualSpent:           core.NewAmount(spent),
			TotalIncome:           core.NewAmount(income),
			TotalExpenses:         core.NewAmount(spent),
			Savings:               core.NewAmount(savings),
			Balance:               core.NewAmount(balance),
			UnallocatedIncome:     core.NewAmount(unallocated),
			OverBudgetItemsCount:  over,
			UnderBudgetItemsCount: under,
			BudgetHealthScore:     healthScore(over, zeroBased, balance),
			IsZeroBased:           zeroBased,
		},
		ItemsHealth: health,
	}
}

// healthScore starts at 100 and loses 15 per over-budget item, 10 when
// income is not fully allocated and 10 when spending exceeds the plan.
func healthScore(overItems int, zeroBased bool, balance decimal.Decimal) core.Percent {
	score := 100 - 15*overItems
	if !zeroBased {
		score -= 10
	}
	if balance.Sign() < 0 {
		score -= 10
	}
	return core.Percent(min(max(score, 0), 100))
}

func (d *db) budgetPlanned(budgetID int64) decimal.Decimal {
	total := decimal.Zero
	for _, it := range d.budgetItems(budgetID) {
		total = total.Add(it.Planned)
	}
	return total
}

func (d *db) budgetSpent(budgetID int64) decimal.Decimal {
	total := decimal.Zero
	for _, e := range d.budgetExpenses(budgetID) {
		total = total.Add(e.Amount)
	}
	return total
}

func (d *db) listSummary(userID int64, now time.Time) *core.BudgetListSummary {
	all := d.userBudgets(userID)
	month := core.NewDate(now.Year(), int(now.Month()), 1).MonthKey()
	s := &core.BudgetListSummary{TotalBudgets: len(all)}
	planned, actual := decimal.Zero, decimal.Zero
	for _, b := range all {
		if b.Month.MonthKey() != month {
			continue
		}
		s.CurrentMonthBudgets++
		planned = planned.Add(d.budgetPlanned(b.ID))
		actual = actual.Add(d.budgetSpent(b.ID))
	}
	s.CurrentMonthPlannedAmount = core.NewAmount(planned)
	s.CurrentMonthActualAmount = core.NewAmount(actual)
	s.CurrentMonthBalance = core.NewAmount(planned.Sub(actual))
	return s
}

func lastOfMonth(month core.Date) core.Date {
	return core.Date{Time: month.FirstOfMonth().AddDate(0, 1, -1)}
}

func (d *db) breakdown(budgetID int64) []core.CategoryBreakdown {
	out := []core.CategoryBreakdown{}
	for _, it := range d.budgetItems(budgetID) {
		iv := d.itemView(it)
		spent := d.spentOnItem(it.ID)
		var cat core.Category
		if iv.Category != nil {
			cat = *iv.Category
		}
		out = append(out, core.CategoryBreakdown{
			Category:       cat,
			Budgeted:       iv.PlannedAmount,
			Spent:          iv.SpentAmount,
			Remaining:      iv.RemainingAmount,
			PercentageUsed: percent(spent, it.Planned),
			IsOverBudget:   spent.GreaterThan(it.Planned),
		})
	}
	return out
}

func activeStatus(pct core.Percent) core.ActiveBudgetStatus {
	switch {
	case pct > 100:
		return core.BudgetOverBudget
	case pct >= 80:
		return core.BudgetWarning
	default:
		return core.BudgetHealthy
	}
}

type totals struct{ income, expenses decimal.Decimal }

func (t totals) figures() core.PeriodFigures {
	return core.PeriodFigures{
		Income:   core.NewAmount(t.income),
		Expenses: core.NewAmount(t.expenses),
		Net:      core.NewAmount(t.income.Sub(t.expenses)),
	}
}

func change(cur, prev decimal.Decimal) core.Percent {
	if prev.Sign() == 0 {
		if cur.Sign() == 0 {
			return 0
		}
		return 100
	}
	return percent(cur.Sub(prev), prev)
}

func (d *db) dashboard(userID int64, now time.Time) core.DashboardData {
	thisMonth := core.NewDate(now.Year(), int(now.Month()), 1)
	prevMonth := core.Date{Time: thisMonth.AddDate(0, -1, 0)}

	var cur, prev, ytd, all totals
	for _, in := range d.incomes {
		if in.UserID != userID {
			continue
		}
		all.income = all.income.Add(in.Amount)
		if in.Date.Year() == now.Year() {
			ytd.income = ytd.income.Add(in.Amount)
		}
		switch in.Date.MonthKey() {
		case thisMonth.MonthKey():
			cur.income = cur.income.Add(in.Amount)
		case prevMonth.MonthKey():
			prev.income = prev.income.Add(in.Amount)
		}
	}

	spentByCategory := map[int64]decimal.Decimal{}
	for _, e := range d.expenses {
		if e.UserID != userID {
			continue
		}
		all.expenses = all.expenses.Add(e.Amount)
		spentByCategory[e.CategoryID] = spentByCategory[e.CategoryID].Add(e.Amount)
		if e.Date.Year() == now.Year() {
			ytd.expenses = ytd.expenses.Add(e.Amount)
		}
		switch e.Date.MonthKey() {
		case thisMonth.MonthKey():
			cur.expenses = cur.expenses.Add(e.Amount)
		case prevMonth.MonthKey():
			prev.expenses = prev.expenses.Add(e.Amount)
		}
	}

	data := core.DashboardData{
		Overview: core.DashboardOverview{
			CurrentMonth: core.MonthFigures{
				PeriodFigures:           cur.figures(),
				IncomeChangePercentage:  change(cur.income, prev.income),
				ExpenseChangePercentage: change(cur.expenses, prev.expenses),
			},
			YearToDate: ytd.figures(),
			AllTime:    all.figures(),
		},
		RecentTransactions:    d.recent(userID, 5),
		TopSpendingCategories: []core.TopSpendingCategory{},
		ActiveBudgets:         []core.ActiveBudget{},
	}

	for catID, total := range spentByCategory {
		if c, ok := d.categories[catID]; ok {
			data.TopSpendingCategories = append(data.TopSpendingCategories, core.TopSpendingCategory{Category: *c, TotalSpent: core.NewAmount(total)})
		}
	}
	sort.Slice(data.TopSpendingCategories, func(i, j int) bool {
		a := data.TopSpendingCategories[i].TotalSpent.MustDecimal()
		b := data.TopSpendingCategories[j].TotalSpent.MustDecimal()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return data.TopSpendingCategories[i].Category.ID < data.TopSpendingCategories[j].Category.ID
	})
	if len(data.TopSpendingCategories) > 5 {
		data.TopSpendingCategories = data.TopSpendingCategories[:5]
	}

	for _, b := range d.userBudgets(userID) {
		if b.Month.MonthKey() != thisMonth.MonthKey() {
			continue
		}
		planned, spent := d.budgetPlanned(b.ID), d.budgetSpent(b.ID)
		pct := percent(spent, planned)
		data.ActiveBudgets = append(data.ActiveBudgets, core.ActiveBudget{
			ID:                b.ID,
			Name:              b.DisplayName(),
			Period:            core.Period{StartDate: b.Month, EndDate: lastOfMonth(b.Month)},
			TotalBudgeted:     core.NewAmount(planned),
			TotalSpent:        core.NewAmount(spent),
			TotalRemaining:    core.NewAmount(planned.Sub(spent)),
			PercentageUsed:    pct,
			IsOverBudget:      spent.GreaterThan(planned),
			Status:            activeStatus(pct),
			CategoryBreakdown: d.breakdown(b.ID),
		})
	}
	return data
}

// recent returns the latest n expenses and n incomes, newest first.
func (d *db) recent(userID int64, n int) *core.RecentTransactions {
	rt := &core.RecentTransactions{Expenses: []core.Expense{}, Incomes: []core.Income{}}
	for _, e := range d.expenses {
		if e.UserID == userID {
			rt.Expenses = append(rt.Expenses, d.expenseView(e))
		}
	}
	for _, in := range d.incomes {
		if in.UserID == userID {
			rt.Incomes = append(rt.Incomes, incomeView(in))
		}
	}
	sort.Slice(rt.Expenses, func(i, j int) bool {
		if !rt.Expenses[i].Date.Equal(rt.Expenses[j].Date.Time) {
			return rt.Expenses[i].Date.After(rt.Expenses[j].Date.Time)
		}
		return rt.Expenses[i].ID > rt.Expenses[j].ID
	})
	sort.Slice(rt.Incomes, func(i, j int) bool {
		if !rt.Incomes[i].Date.Equal(rt.Incomes[j].Date.Time) {
			return rt.Incomes[i].Date.After(rt.Incomes[j].Date.Time)
		}
		return rt.Incomes[i].ID > rt.Incomes[j].ID
	})
	if len(rt.Expenses) > n {
		rt.Expenses = rt.Expenses[:n]
	}
	if len(rt.Incomes) > n {
		rt.Incomes = rt.Incomes[:n]
	}
	return rt
}

func (d *db) currentMonthStats(userID int64, now time.Time) core.CurrentMonthBudgetStats {
	month := core.NewDate(now.Year(), int(now.Month()), 1)
	b := d.budgetForMonth(userID, month)
	if b == nil {
		return core.CurrentMonthBudgetStats{HasBudget: false, Message: "No budget found for the current month"}
	}

	end := lastOfMonth(month)
	daysTotal := end.Day()
	daysElapsed := min(now.Day(), daysTotal)
	planned, spent := d.budgetPlanned(b.ID), d.budgetSpent(b.ID)

	over := decimal.Zero
	if spent.GreaterThan(planned) {
		over = spent.Sub(planned)
	}

	daily := planned.Div(decimal.NewFromInt(int64(daysTotal)))
	actualDaily := spent.Div(decimal.NewFromInt(int64(daysElapsed)))
	projected := actualDaily.Mul(decimal.NewFromInt(int64(daysTotal)))

	breakdown := d.breakdown(b.ID)
	health := &core.CategoryHealth{TotalCategories: len(breakdown)}
	for _, c := range breakdown {
		switch {
		case c.PercentageUsed > 100:
			health.OverBudgetCategories++
		case c.PercentageUsed >= 80:
			health.WarningCategories++
		default:
			health.HealthyCategories++
		}
	}

	return core.CurrentMonthBudgetStats{
		HasBudget: true,
		Budget: &core.StatsBudget{
			ID:   b.ID,
			Name: b.DisplayName(),
			Period: core.BudgetPeriod{
				StartDate:                month,
				EndDate:                  end,
				DaysTotal:                daysTotal,
				DaysElapsed:              daysElapsed,
				DaysRemaining:            daysTotal - daysElapsed,
				PeriodProgressPercentage: percent(decimal.NewFromInt(int64(daysElapsed)), decimal.NewFromInt(int64(daysTotal))),
			},
		},
		Summary: &core.StatsSummary{
			TotalBudgeted:    core.NewAmount(planned),
			TotalSpent:       core.NewAmount(spent),
			TotalRemaining:   core.NewAmount(planned.Sub(spent)),
			PercentageUsed:   percent(spent, planned),
			IsOverBudget:     spent.GreaterThan(planned),
			OverBudgetAmount: core.NewAmount(over),
		},
		Velocity: &core.BudgetVelocity{
			DailyBudget:               core.NewAmount(daily),
			ActualDailySpending:       core.NewAmount(actualDaily),
			ProjectedMonthEndSpending: core.NewAmount(projected),
			OnTrack:                   !projected.GreaterThan(planned),
		},
		CategoryHealth:    health,
		CategoryBreakdown: breakdown,
	}
}
