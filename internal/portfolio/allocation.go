package portfolio

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/shopspring/decimal"
)

// ErrInvalidInvestment is returned when the investment text is not a
// non-negative number.
var ErrInvalidInvestment = errors.New("investment must be a non-negative number")

// Allocation is the share of the investment assigned to one ticker.
type Allocation struct {
	Ticker string
	Weight float64
	Amount decimal.Decimal
	// Valid is false when the weight is not a finite number.
	Valid bool
}

// Display renders the amount as dollars with two decimals, e.g. "$6000.00".
func (a Allocation) Display() string {
	if !a.Valid {
		return "n/a"
	}
	return "$" + a.Amount.StringFixed(constants.DecimalPlaces)
}

// ParseInvestment parses the free-text investment amount.
func ParseInvestment(text string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidInvestment)
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidInvestment, text)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidInvestment, text)
	}
	return amount, nil
}

// Allocate splits investment across the mapping: amount = investment × weight,
// rounded to cents. Weights are used as sent, without normalization.
func Allocate(weights WeightMapping, investment decimal.Decimal) []Allocation {
	out := make([]Allocation, 0, len(weights))
	for _, w := range weights {
		a := Allocation{Ticker: w.Ticker, Weight: w.Value}
		if !math.IsNaN(w.Value) && !math.IsInf(w.Value, 0) {
			a.Amount = investment.Mul(decimal.NewFromFloat(w.Value)).Round(constants.DecimalPlaces)
			a.Valid = true
		}
		out = append(out, a)
	}
	return out
}
