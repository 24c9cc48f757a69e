// Package view derives display models from lifecycle states. The HTML pages,
// the JSON API and the CLI all render from these models.
package view

import (
	"fmt"

	"github.com/iwvelando/portfolio-pilot/internal/chart"
	"github.com/iwvelando/portfolio-pilot/internal/lifecycle"
	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/shopspring/decimal"
)

// Card presents one portfolio.
type Card struct {
	Name           string            `json:"name"`
	ExpectedReturn string            `json:"expectedReturn"`
	Risk           string            `json:"risk"`
	Chart          chart.Chart       `json:"chart"`
	Legend         []LegendEntry     `json:"legend"`
	Allocations    []AllocationEntry `json:"allocations"`
}

// LegendEntry labels one chart colour.
type LegendEntry struct {
	Ticker string `json:"ticker"`
	Color  string `json:"color"`
	Label  string `json:"label"`
}

// AllocationEntry is one row of the allocation table. Amount is the display
// text; Value is only meaningful when Valid.
type AllocationEntry struct {
	Ticker string          `json:"ticker"`
	Weight float64         `json:"weight"`
	Amount string          `json:"amount"`
	Value  decimal.Decimal `json:"-"`
	Valid  bool            `json:"-"`
}

// Cards builds one card per portfolio of a Success state. Other states have
// no cards.
func Cards(state lifecycle.State) []Card {
	if state.Phase != lifecycle.Success {
		return nil
	}
	cards := make([]Card, 0, len(state.Portfolios))
	for _, p := range state.Portfolios {
		cards = append(cards, NewCard(p, state.Investment))
	}
	return cards
}

// NewCard renders a single portfolio against the investment text. An
// unparsable investment marks every amount "n/a" instead of failing.
func NewCard(p portfolio.Portfolio, investment string) Card {
	c := chart.Render(p.Weights)

	legend := make([]LegendEntry, len(c.Segments))
	for i, s := range c.Segments {
		legend[i] = LegendEntry{
			Ticker: s.Ticker,
			Color:  s.Color.Hex(),
			Label:  fmt.Sprintf("%s: %.1f%%", s.Ticker, s.Weight*constants.PercentageMultiplier),
		}
	}

	return Card{
		Name:           p.Name,
		ExpectedReturn: p.ExpectedReturn.String(),
		Risk:           p.Risk.String(),
		Chart:          c,
		Legend:         legend,
		Allocations:    Allocations(p.Weights, investment),
	}
}

// Allocations computes the allocation rows for weights.
func Allocations(weights portfolio.WeightMapping, investment string) []AllocationEntry {
	rows := make([]AllocationEntry, 0, len(weights))
	amount, err := portfolio.ParseInvestment(investment)
	if err != nil {
		for _, w := range weights {
			rows = append(rows, AllocationEntry{Ticker: w.Ticker, Weight: w.Value, Amount: "n/a"})
		}
		return rows
	}
	for _, a := range portfolio.Allocate(weights, amount) {
		rows = append(rows, AllocationEntry{
			Ticker: a.Ticker,
			Weight: a.Weight,
			Amount: a.Display(),
			Value:  a.Amount,
			Valid:  a.Valid,
		})
	}
	return rows
}
