package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgetly/internal/core"
	"budgetly/internal/events"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fakePurger struct{ cleared int }

func (f *fakePurger) Clear(context.Context) error {
	f.cleared++
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetTokenSource(staticToken("tok"))
	return c
}

func TestNewRejectsBadScheme(t *testing.T) {
	if _, err := New("ftp://example.com"); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		io.WriteString(w, `{"success":true,"message":"ok","data":{"id":1,"name":"Ada"},"errors":null}`)
	})

	u, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if u.Name != "Ada" {
		t.Fatalf("user = %+v", u)
	}
	if got.Get("Authorization") != "Bearer tok" {
		t.Errorf("Authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Accept") != "application/json" || got.Get("Content-Type") != "application/json" {
		t.Errorf("content headers = %v", got)
	}
	if got.Get("X-Request-ID") == "" {
		t.Errorf("missing X-Request-ID")
	}
}

func TestNoTokenSendsNothing(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })
	c.SetTokenSource(staticToken(""))

	_, err := c.Budgets(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("request sent without token")
	}
	if FormatError(err) != "No token available" {
		t.Fatalf("FormatError = %q", FormatError(err))
	}
}

func TestEnvelopeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"success":false,"message":"Validation failed","data":null,
			"errors":{"planned_amount":["must be at least 0.01"],"category_id":["is required","must exist"]}}`)
	})

	_, err := c.CreateBudgetItem(context.Background(), 1, core.BudgetItemInput{})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", apiErr.Status)
	}
	want := "Validation failed: is required, must exist, must be at least 0.01"
	if got := FormatError(err); got != want {
		t.Errorf("FormatError = %q, want %q", got, want)
	}
	if apiErr.FieldError("planned_amount") != "must be at least 0.01" {
		t.Errorf("FieldError = %q", apiErr.FieldError("planned_amount"))
	}
}

func TestNonEnvelopeResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
		wantLen int
	}{
		{"bare array on 200", http.StatusOK, `[{"id":1,"name":"Rent","type":"expense"}]`, "", 1},
		{"bare object on 500", http.StatusInternalServerError, `{"error":"boom"}`, "Request failed", 0},
		{"html on 502", http.StatusBadGateway, `<html>bad gateway</html>`, "Request failed", 0},
		{"success not boolean", http.StatusBadRequest, `{"success":"yes"}`, "Request failed", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			cats, err := c.Categories(context.Background(), "")
			if tt.wantErr != "" {
				if err == nil || FormatError(err) != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if len(cats) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(cats), tt.wantLen)
			}
		})
	}
}

func TestDecodeNullSuccessIsPlainData(t *testing.T) {
	var out map[string]any
	err := decode(http.StatusOK, []byte(`{"success":null,"data":{"id":1},"note":"x"}`), &out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["note"] != "x" {
		t.Errorf("body not returned as data: %v", out)
	}

	err = decode(http.StatusInternalServerError, []byte(`{"success":null}`), &out)
	if FormatError(err) != "Request failed" {
		t.Errorf("err = %v, want Request failed", err)
	}
}

func TestUnauthorizedPurgesAndBroadcasts(t *testing.T) {
	purger := &fakePurger{}
	bus := events.NewBus(nil)
	var seen []events.Kind
	bus.Subscribe(func(e events.Event) { seen = append(seen, e.Kind) })

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"success":false,"message":"Unauthenticated.","data":null,"errors":null}`)
	}, WithSessionPurger(purger), WithBus(bus))

	_, err := c.Dashboard(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if FormatError(err) != "Session expired. Please log in again." {
		t.Errorf("FormatError = %q", FormatError(err))
	}
	if purger.cleared != 1 {
		t.Errorf("purger cleared %d times", purger.cleared)
	}
	if len(seen) != 1 || seen[0] != events.Unauthorized {
		t.Errorf("events = %v", seen)
	}
}

func TestCategoriesFilterQuery(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		io.WriteString(w, `{"success":true,"message":"","data":[],"errors":null}`)
	})
	if _, err := c.Categories(context.Background(), core.CategorySavings); err != nil {
		t.Fatal(err)
	}
	if query != "type=savings" {
		t.Fatalf("query = %q", query)
	}
}

func TestMutationMethodsAndPaths(t *testing.T) {
	var method, path, body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		io.WriteString(w, `{"success":true,"message":"","data":{"id":9},"errors":null}`)
	})
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() error
		wantMethod string
		wantPath   string
	}{
		{"update item", func() error { _, err := c.UpdateBudgetItem(ctx, 4, core.BudgetItemInput{}); return err }, http.MethodPatch, "/api/budget-items/4"},
		{"update income", func() error { _, err := c.UpdateIncome(ctx, 5, core.IncomeInput{}); return err }, http.MethodPatch, "/api/incomes/5"},
		{"update expense", func() error { _, err := c.UpdateExpense(ctx, 6, core.ExpenseInput{}); return err }, http.MethodPatch, "/api/expenses/6"},
		{"update budget", func() error { _, err := c.UpdateBudget(ctx, 7, core.BudgetInput{}); return err }, http.MethodPut, "/api/budgets/7"},
		{"update category", func() error { _, err := c.UpdateCategory(ctx, 8, core.CategoryInput{}); return err }, http.MethodPut, "/api/categories/8"},
		{"create item", func() error { _, err := c.CreateBudgetItem(ctx, 2, core.BudgetItemInput{}); return err }, http.MethodPost, "/api/budgets/2/items"},
		{"delete expense", func() error { return c.DeleteExpense(ctx, 3) }, http.MethodDelete, "/api/expenses/3"},
		{"budgets by month", func() error { _, err := c.BudgetsByMonth(ctx, "2025-01"); return err }, http.MethodGet, "/api/budgets/month/2025-01"},
		{"logout all", func() error { return c.LogoutAll(ctx) }, http.MethodPost, "/api/logout-all"},
		{"password", func() error { return c.UpdatePassword(ctx, core.PasswordInput{}) }, http.MethodPut, "/api/password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil && !strings.Contains(err.Error(), "cannot unmarshal") {
				t.Fatalf("call: %v", err)
			}
			if method != tt.wantMethod || path != tt.wantPath {
				t.Fatalf("got %s %s, want %s %s (body %s)", method, path, tt.wantMethod, tt.wantPath, body)
			}
		})
	}
}

func TestMoneyTravelsAsDecimalString(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		io.WriteString(w, `{"success":true,"message":"","data":{"id":1,"planned_amount":"0.10"},"errors":null}`)
	})
	in := core.BudgetItemInput{CategoryID: 1, PlannedAmount: core.Amount("0.10").MustDecimal()}
	item, err := c.CreateBudgetItem(context.Background(), 1, in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, `"planned_amount":"0.1"`) {
		t.Errorf("request body = %s", body)
	}
	if item.PlannedAmount != "0.10" {
		t.Errorf("planned amount = %q", item.PlannedAmount)
	}
}
