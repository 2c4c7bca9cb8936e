package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
	}{
		{`"12.50"`, "12.50"},
		{`12.5`, "12.5"},
		{`0`, "0"},
		{`"-5.00"`, "-5.00"},
		{`null`, ""},
	}
	for _, tc := range cases {
		var a Amount
		if err := json.Unmarshal([]byte(tc.in), &a); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if a != tc.want {
			t.Fatalf("%s: got %q want %q", tc.in, a, tc.want)
		}
	}

	var a Amount
	if err := json.Unmarshal([]byte(`true`), &a); err == nil {
		t.Fatalf("expected error for boolean amount")
	}
}

func TestAmountMarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}{A: "1.10"})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `{"a":"1.10","b":null}` {
		t.Fatalf("got %s", got)
	}
}

func TestAmountDecimal(t *testing.T) {
	cases := []struct {
		in   Amount
		sign int
		ok   bool
	}{
		{"0.00", 0, true},
		{"0", 0, true},
		{"-0", 0, true},
		{"12.50", 1, true},
		{"-5.00", -1, true},
		{" 3 ", 1, true},
		{"", 0, true},
		{"abc", 0, false},
		{"1,5", 0, false},
	}
	for _, tc := range cases {
		d, err := tc.in.Decimal()
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if d.Sign() != tc.sign {
				t.Fatalf("%q: sign %d want %d", tc.in, d.Sign(), tc.sign)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q: expected ErrInvalidAmount, got %v", tc.in, err)
		}
		if tc.in.Sign() != 0 {
			t.Fatalf("%q: malformed amount should report sign 0", tc.in)
		}
	}
}

func TestSumIsExact(t *testing.T) {
	got := Sum("0.10", "0.20", "", "bad")
	if !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("Sum = %s, want 0.3", got)
	}
	if NewAmount(got) != "0.30" {
		t.Fatalf("NewAmount = %s", NewAmount(got))
	}
}

func TestValidPositive(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"0.01", true},
		{"1", true},
		{"0", false},
		{"0.009", false},
		{"-1", false},
	}
	for _, tc := range cases {
		if got := validPositive(decimal.RequireFromString(tc.in)); got != tc.ok {
			t.Fatalf("%s: got %v want %v", tc.in, got, tc.ok)
		}
	}
}

func TestPercentUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want Percent
	}{
		{`75.5`, 75.5},
		{`"75.50"`, 75.5},
		{`null`, 0},
		{`""`, 0},
		{`" 12 "`, 12},
		{`-3.25`, -3.25},
	}
	for _, c := range cases {
		var p Percent
		if err := json.Unmarshal([]byte(c.in), &p); err != nil {
			t.Fatalf("unmarshal %s: %v", c.in, err)
		}
		if p != c.want {
			t.Errorf("unmarshal %s = %v, want %v", c.in, p, c.want)
		}
	}

	for _, bad := range []string{`"abc"`, `true`, `{}`} {
		var p Percent
		if err := json.Unmarshal([]byte(bad), &p); err == nil {
			t.Errorf("unmarshal %s: expected error", bad)
		}
	}
}

func TestPercentMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		P Percent `json:"p"`
	}{P: 12.5})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"p":12.5}` {
		t.Errorf("marshal = %s", b)
	}
}

func TestBudgetDetailAcceptsStringPercentages(t *testing.T) {
	raw := `{
		"budget": {"id": 1, "user_id": 1, "month": "2024-03-01", "budget_items": [
			{"id": 4, "budget_id": 1, "category_id": 2, "planned_amount": "400.00",
			 "utilization_percentage": "75.50", "status": "under_budget"}
		]},
		"summary": {"budget_health_score": "85.00", "unallocated_income": "0.00"},
		"budget_items_health": [{"id": 4, "utilization_percentage": null}]
	}`
	var d BudgetDetail
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := d.Budget.Items[0].UtilizationPercentage; got != 75.5 {
		t.Errorf("utilization = %v, want 75.5", got)
	}
	if d.Summary.BudgetHealthScore != 85 {
		t.Errorf("health score = %v, want 85", d.Summary.BudgetHealthScore)
	}
	if d.ItemsHealth[0].UtilizationPercentage != 0 {
		t.Errorf("null utilization = %v, want 0", d.ItemsHealth[0].UtilizationPercentage)
	}
}
