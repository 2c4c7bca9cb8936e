// Package core provides money parsing and handling utilities.
//
// Monetary values travel as decimal strings end to end. Amount keeps the
// literal text it was decoded from and only parses it on demand, so display
// code can format a value without ever rewriting the stored string.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinAmount is the smallest amount accepted for planned amounts and transactions.
var MinAmount = decimal.New(1, -2)

// Amount is a monetary value held as its decimal string representation.
type Amount string

// NewAmount renders d with two fractional digits.
func NewAmount(d decimal.Decimal) Amount {
	return Amount(d.StringFixed(2))
}

// Decimal parses the amount. An empty amount is zero.
func (a Amount) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// MustDecimal parses the amount and falls back to zero on malformed input.
func (a Amount) MustDecimal() decimal.Decimal {
	d, err := a.Decimal()
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Float64 returns the value for display purposes only.
// Note: use Decimal for arithmetic.
func (a Amount) Float64() float64 {
	f, _ := a.MustDecimal().Float64()
	return f
}

// Sign returns -1, 0 or +1. Malformed amounts report 0.
func (a Amount) Sign() int {
	return a.MustDecimal().Sign()
}

// IsEmpty reports whether no value was transported.
func (a Amount) IsEmpty() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Amount) String() string {
	return string(a)
}

// UnmarshalJSON accepts a JSON string, a JSON number or null. The literal
// text is kept as-is.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// MarshalJSON always writes a JSON string; an empty amount is null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// Sum adds amounts exactly. Malformed entries count as zero.
func Sum(amounts ...Amount) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.MustDecimal())
	}
	return total
}

// validPositive reports whether d is at least MinAmount.
func validPositive(d decimal.Decimal) bool {
	return !d.LessThan(MinAmount)
}

// Percent is a server-computed percentage or score. It decodes from a JSON
// number, a numeric string or null, and always encodes as a number.
type Percent float64

// Float64 returns the plain value.
func (p Percent) Float64() float64 {
	return float64(p)
}

// UnmarshalJSON accepts 75.5, "75.50", "" and null. Null and "" are zero.
func (p *Percent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*p = 0
			return nil
		}
		data = []byte(s)
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("percent: invalid value %q", data)
	}
	*p = Percent(d.InexactFloat64())
	return nil
}
