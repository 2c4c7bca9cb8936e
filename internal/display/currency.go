// Package display derives the presentation values shown next to budgets:
// formatted currency, balance tones, utilization bars, zero-based status,
// health bands and the merged recent-transaction feed.
//
// Amounts are parsed from their decimal strings at render time; the stored
// strings are never rewritten.
package display

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"budgetly/internal/core"
)

// Formatter renders amounts as locale-aware currency strings.
type Formatter struct {
	printer *message.Printer
	symbol  string
	scale   int
}

// NewFormatter builds a formatter for a BCP 47 locale and an ISO 4217 code.
// Unknown values fall back to en-US and USD.
func NewFormatter(locale, code string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	return &Formatter{
		printer: p,
		symbol:  p.Sprint(currency.Symbol(unit)),
		scale:   scale,
	}
}

var usd = NewFormatter("en-US", "USD")

// FormatCurrency formats a as US dollars, e.g. "$12.50" or "-$5.00".
func FormatCurrency(a core.Amount) string {
	return usd.Format(a)
}

// Format renders a; malformed amounts render as zero.
func (f *Formatter) Format(a core.Amount) string {
	return f.FormatDecimal(a.MustDecimal())
}

func (f *Formatter) FormatDecimal(d decimal.Decimal) string {
	rounded := d.Round(int32(f.scale))
	abs, _ := rounded.Abs().Float64()
	s := f.symbol + f.printer.Sprint(number.Decimal(abs, number.Scale(f.scale)))
	if rounded.Sign() < 0 {
		return "-" + s
	}
	return s
}
