// Package output writes optimization results for the command line.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/portfolio-pilot/internal/view"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/iwvelando/portfolio-pilot/pkg/format"
	"gopkg.in/yaml.v3"
)

// Write renders cards in the named format.
func Write(w io.Writer, outputFormat string, cards []view.Card) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, cards)
	case constants.OutputFormatCSV:
		return CsvFormat(w, cards)
	case constants.OutputFormatYAML:
		return YamlFormat(w, cards)
	case constants.OutputFormatJSON:
		return JSONFormat(w, cards)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, cards []view.Card) error {
	for i, card := range cards {
		if _, err := fmt.Fprintf(w, "--- Results for portfolio %s ---\n", card.Name); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Expected return: %s\nRisk:            %s\n", card.ExpectedReturn, card.Risk); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Ticker | Weight  | Amount\n______ | _______ | ______\n"); err != nil {
			return err
		}
		for _, row := range card.Allocations {
			amount := row.Amount
			if row.Valid {
				amount = format.Currency(row.Value)
			}
			if _, err := fmt.Fprintf(w, "%-6s | %6.1f%% | %s\n", row.Ticker, row.Weight*constants.PercentageMultiplier, amount); err != nil {
				return err
			}
		}
		if i < len(cards)-1 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// CsvFormat outputs one row per portfolio and ticker.
func CsvFormat(w io.Writer, cards []view.Card) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"portfolio", "expected_return", "risk", "ticker", "weight", "amount"}); err != nil {
		return err
	}
	for _, card := range cards {
		for _, row := range card.Allocations {
			amount := row.Amount
			if row.Valid {
				amount = row.Value.StringFixed(constants.DecimalPlaces)
			}
			record := []string{
				card.Name,
				card.ExpectedReturn,
				card.Risk,
				row.Ticker,
				strconv.FormatFloat(row.Weight, 'f', -1, 64),
				amount,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONFormat outputs the cards as indented JSON.
func JSONFormat(w io.Writer, cards []view.Card) error {
	if cards == nil {
		cards = []view.Card{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cards)
}

// YamlFormat outputs a YAML summary without chart geometry. Weights keep the
// order the optimizer returned them in.
func YamlFormat(w io.Writer, cards []view.Card) error {
	docs := make([]yamlPortfolio, 0, len(cards))
	for _, card := range cards {
		doc := yamlPortfolio{
			Name:           card.Name,
			ExpectedReturn: card.ExpectedReturn,
			Risk:           card.Risk,
		}
		for _, row := range card.Allocations {
			doc.Weights.items = append(doc.Weights.items, orderedItem{key: row.Ticker, value: row.Weight})
			doc.Allocations.items = append(doc.Allocations.items, orderedItem{key: row.Ticker, value: row.Amount})
		}
		docs = append(docs, doc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return err
	}
	return enc.Close()
}

type yamlPortfolio struct {
	Name           string        `yaml:"name"`
	ExpectedReturn string        `yaml:"expected_return"`
	Risk           string        `yaml:"risk"`
	Weights        orderedConfig `yaml:"weights"`
	Allocations    orderedConfig `yaml:"allocations"`
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}
