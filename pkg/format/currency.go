// Package format renders amounts for people.
package format

import (
	"fmt"
	"math"

	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.English)

	// maxGrouped is the largest whole-dollar part the printer can group.
	maxGrouped = decimal.NewFromInt(math.MaxInt64)
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
// Amounts are rounded half away from zero to cents first.
func Currency(amount decimal.Decimal) string {
	rounded := amount.Round(constants.DecimalPlaces)
	abs := rounded.Abs()
	whole := abs.Truncate(0)
	cents := abs.Sub(whole).Shift(constants.DecimalPlaces).IntPart()

	dollars := whole.String()
	if whole.LessThanOrEqual(maxGrouped) {
		dollars = printer.Sprintf("%d", whole.IntPart())
	}

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, dollars, cents)
}
