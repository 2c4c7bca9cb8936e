package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"budgetly/internal/cli"
	"budgetly/internal/core"
	"budgetly/internal/dashboard"
	"budgetly/internal/fakeapi"
	"budgetly/internal/log"
	"budgetly/internal/state"
)

var errNotLoggedIn = errors.New("not logged in, run `budgetctl login` first")

func (e *env) requireSession() error {
	if !e.app.Session.Snapshot().HasToken() {
		return errNotLoggedIn
	}
	return nil
}

func (e *env) password(given, label string) (string, error) {
	if given != "" {
		return given, nil
	}
	return e.prompt(label)
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	pw, err := e.password(*password, "Password")
	if err != nil {
		return err
	}
	err = e.app.Session.Register(ctx, core.RegisterCredentials{
		Name:                 *name,
		Email:                *email,
		Password:             pw,
		PasswordConfirmation: pw,
	})
	if err != nil {
		return err
	}
	renderProfile(e.out, e.app.Session.Snapshot().User)
	return nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	pw, err := e.password(*password, "Password")
	if err != nil {
		return err
	}
	if err := e.app.Session.Login(ctx, core.LoginCredentials{Email: *email, Password: pw}); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Logged in as %s\n", e.app.Session.Snapshot().User.Email)
	return nil
}

func cmdLogout(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("logout")
	all := fs.Bool("all", false, "revoke every session of the user")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *all {
		if err := e.app.Session.LogoutAll(ctx); err != nil {
			return err
		}
	} else if err := e.app.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Logged out")
	return nil
}

func cmdProfile(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("profile")
	var in core.ProfileInput
	fs.StringVar(&in.Name, "name", "", "new display name")
	fs.StringVar(&in.Email, "email", "", "new email address")
	fs.StringVar(&in.CurrencyCode, "currency", "", "ISO 4217 currency code")
	fs.StringVar(&in.Timezone, "timezone", "", "IANA time zone")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}

	var err error
	if in == (core.ProfileInput{}) {
		err = e.app.Session.FetchProfile(ctx)
	} else {
		err = e.app.Session.UpdateProfile(ctx, in)
	}
	if err != nil {
		return err
	}
	renderProfile(e.out, e.app.Session.Snapshot().User)
	return nil
}

func cmdPassword(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("password")
	current := fs.String("current", "", "current password (prompted when empty)")
	next := fs.String("new", "", "new password (prompted when empty)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	cur, err := e.password(*current, "Current password")
	if err != nil {
		return err
	}
	pw, err := e.password(*next, "New password")
	if err != nil {
		return err
	}
	err = e.app.Session.UpdatePassword(ctx, core.PasswordInput{
		CurrentPassword:         cur,
		NewPassword:             pw,
		NewPasswordConfirmation: pw,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Password updated")
	return nil
}

func cmdCategories(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("categories")
	kind := fs.String("type", "", "expense, income or savings")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	if err := e.app.Categories.Load(ctx, core.CategoryType(*kind)); err != nil {
		return err
	}
	renderCategories(e.out, e.app.Categories.Snapshot().Categories)
	return nil
}

func cmdBudgets(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("budgets")
	month := fs.String("month", "", "only budgets of this month (YYYY-MM)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}

	var err error
	if *month != "" {
		err = e.app.Budgets.LoadBudgetsByMonth(ctx, *month)
	} else {
		err = e.app.Budgets.LoadBudgets(ctx)
	}
	if err != nil {
		return err
	}
	renderBudgets(e.out, e.app.Budgets.Snapshot(), e.money)
	return nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return d, nil
}

func parseDateOrToday(s string) (core.Date, error) {
	if s == "" {
		return core.Today(), nil
	}
	return core.ParseDate(s)
}

// showBudget refetches the detail so rendered totals come from the server.
func (e *env) showBudget(ctx context.Context, id int64) error {
	if err := e.app.Budgets.LoadBudgetByID(ctx, id); err != nil {
		return err
	}
	renderBudgetDetail(e.out, e.app.Budgets.Snapshot(), e.money)
	return nil
}

func cmdBudget(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0], "budget")
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	return e.showBudget(ctx, id)
}

func cmdCreateBudget(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("create-budget")
	month := fs.String("month", "", "budget month (YYYY-MM)")
	notes := fs.String("notes", "", "budget name or notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	m, err := core.ParseMonth(*month)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	b, err := e.app.Budgets.CreateBudget(ctx, core.BudgetInput{Month: m, Notes: *notes})
	if err != nil {
		return err
	}
	return e.showBudget(ctx, b.ID)
}

// resolveCategory accepts an id or a case-insensitive category name.
func (e *env) resolveCategory(ctx context.Context, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}
	if err := e.app.Categories.Load(ctx, ""); err != nil {
		return 0, err
	}
	for _, c := range e.app.Categories.Snapshot().Categories {
		if strings.EqualFold(c.Name, ref) {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: no category named %q", core.ErrInvalidCategory, ref)
}

func cmdAddItem(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("add-item")
	budget := fs.String("budget", "", "budget id")
	category := fs.String("category", "", "category id or name")
	planned := fs.String("planned", "", "planned amount")
	notes := fs.String("notes", "", "notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	budgetID, err := parseID(*budget, "budget")
	if err != nil {
		return err
	}
	amount, err := parseAmount(*planned)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	categoryID, err := e.resolveCategory(ctx, *category)
	if err != nil {
		return err
	}
	in := core.BudgetItemInput{CategoryID: categoryID, PlannedAmount: amount, Notes: *notes}
	if _, err := e.app.Budgets.CreateBudgetItem(ctx, budgetID, in); err != nil {
		return err
	}
	return e.showBudget(ctx, budgetID)
}

func cmdAddIncome(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("add-income")
	budget := fs.String("budget", "", "budget id")
	amountFlag := fs.String("amount", "", "amount")
	source := fs.String("source", "", "where the money came from")
	date := fs.String("date", "", "date (YYYY-MM-DD), today when empty")
	note := fs.String("note", "", "note")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	budgetID, err := parseID(*budget, "budget")
	if err != nil {
		return err
	}
	amount, err := parseAmount(*amountFlag)
	if err != nil {
		return err
	}
	d, err := parseDateOrToday(*date)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	in := core.IncomeInput{BudgetID: budgetID, Amount: amount, Source: *source, Note: *note, Date: d}
	if _, err := e.app.Budgets.CreateIncome(ctx, in); err != nil {
		return err
	}
	return e.showBudget(ctx, budgetID)
}

func cmdAddExpense(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("add-expense")
	budget := fs.String("budget", "", "budget id")
	item := fs.String("item", "", "budget item id")
	amountFlag := fs.String("amount", "", "amount")
	merchant := fs.String("merchant", "", "merchant")
	date := fs.String("date", "", "date (YYYY-MM-DD), today when empty")
	note := fs.String("note", "", "note")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	budgetID, err := parseID(*budget, "budget")
	if err != nil {
		return err
	}
	itemID, err := parseID(*item, "budget item")
	if err != nil {
		return err
	}
	amount, err := parseAmount(*amountFlag)
	if err != nil {
		return err
	}
	d, err := parseDateOrToday(*date)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}

	// The expense takes the category of its budget item.
	if err := e.app.Budgets.LoadBudgetByID(ctx, budgetID); err != nil {
		return err
	}
	var categoryID int64
	for _, it := range e.app.Budgets.Snapshot().Items {
		if it.ID == itemID {
			categoryID = it.CategoryID
			break
		}
	}
	if categoryID == 0 {
		return fmt.Errorf("%w: item %d is not part of budget %d", core.ErrInvalidBudgetItem, itemID, budgetID)
	}

	in := core.ExpenseInput{
		BudgetID:     budgetID,
		CategoryID:   categoryID,
		BudgetItemID: itemID,
		Amount:       amount,
		Merchant:     *merchant,
		Note:         *note,
		Date:         d,
	}
	if _, err := e.app.Budgets.CreateExpense(ctx, in); err != nil {
		return err
	}
	return e.showBudget(ctx, budgetID)
}

func cmdDashboard(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("dashboard")
	watch := fs.Bool("watch", false, "keep refreshing until interrupted")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}

	if !*watch {
		if err := e.app.Dashboard.Refresh(ctx); err != nil {
			return err
		}
		renderDashboard(e.out, e.app.Dashboard.Snapshot(), e.money)
		return nil
	}

	ctx, done := cli.GracefulShutdown(e.logger, 5*time.Second, func(context.Context) {
		e.app.Poller.Stop()
	})
	var mu sync.Mutex
	unsubscribe := e.app.Dashboard.Subscribe(func(st dashboard.State) {
		if st.Phase != state.Fulfilled || st.Data == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		renderDashboard(e.out, st, e.money)
	})
	defer unsubscribe()

	e.app.Poller.Start(ctx)
	e.logger.Info("Watching dashboard", "interval", e.cfg.DashboardRefresh.String(), log.FieldOperation, log.OpRefresh)
	cli.WaitForShutdown(ctx, done)
	return nil
}

func cmdServeFake(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("serve-fake")
	addr := fs.String("addr", e.cfg.FakeAPIAddr, "listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	srv := fakeapi.NewServer(*addr, fakeapi.Options{
		Secret:        []byte(e.cfg.FakeAPIJWTSecret),
		AuthRateLimit: e.cfg.FakeAPIRateLimit,
		Logger:        e.logger,
	})

	ctx, done := cli.GracefulShutdown(e.logger, 10*time.Second, nil)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
