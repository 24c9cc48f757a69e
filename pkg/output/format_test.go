package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/internal/view"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleCards() []view.Card {
	return []view.Card{
		view.NewCard(portfolio.Portfolio{
			Name:           "Balanced",
			Weights:        portfolio.WeightMapping{{Ticker: "MSFT", Value: 0.6}, {Ticker: "AAPL", Value: 0.4}},
			ExpectedReturn: "8%",
			Risk:           "12%",
		}, "10000"),
		view.NewCard(portfolio.Portfolio{
			Name:           "Aggressive",
			Weights:        portfolio.WeightMapping{{Ticker: "GOOG", Value: 1}},
			ExpectedReturn: "0.15",
			Risk:           "0.3",
		}, "10000"),
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrettyFormat(&buf, sampleCards()))
	out := buf.String()

	assert.Contains(t, out, "--- Results for portfolio Balanced ---")
	assert.Contains(t, out, "--- Results for portfolio Aggressive ---")
	assert.Contains(t, out, "Expected return: 8%")
	assert.Contains(t, out, "$6,000.00")
	assert.Contains(t, out, "$4,000.00")
	assert.Contains(t, out, "$10,000.00")
	assert.Less(t, strings.Index(out, "MSFT"), strings.Index(out, "AAPL"))
}

func TestPrettyFormatInvalidInvestment(t *testing.T) {
	cards := []view.Card{view.NewCard(portfolio.Portfolio{
		Name:    "Balanced",
		Weights: portfolio.WeightMapping{{Ticker: "AAPL", Value: 1}},
	}, "abc")}

	var buf bytes.Buffer
	require.NoError(t, PrettyFormat(&buf, cards))
	assert.Contains(t, buf.String(), "n/a")
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CsvFormat(&buf, sampleCards()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"portfolio", "expected_return", "risk", "ticker", "weight", "amount"}, records[0])
	assert.Equal(t, []string{"Balanced", "8%", "12%", "MSFT", "0.6", "6000.00"}, records[1])
	assert.Equal(t, []string{"Balanced", "8%", "12%", "AAPL", "0.4", "4000.00"}, records[2])
	assert.Equal(t, []string{"Aggressive", "0.15", "0.3", "GOOG", "1", "10000.00"}, records[3])
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONFormat(&buf, sampleCards()))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Balanced", decoded[0]["name"])
	assert.Contains(t, decoded[0], "chart")

	buf.Reset()
	require.NoError(t, JSONFormat(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestYamlFormatKeepsWeightOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YamlFormat(&buf, sampleCards()))
	out := buf.String()

	assert.Less(t, strings.Index(out, "MSFT: 0.6"), strings.Index(out, "AAPL: 0.4"))
	assert.NotContains(t, out, "svg")

	var decoded []struct {
		Name        string             `yaml:"name"`
		Weights     map[string]float64 `yaml:"weights"`
		Allocations map[string]string  `yaml:"allocations"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 0.6, decoded[0].Weights["MSFT"])
	assert.Equal(t, "$6000.00", decoded[0].Allocations["MSFT"])
}

func TestWriteDispatch(t *testing.T) {
	for _, f := range []string{
		constants.OutputFormatPretty,
		constants.OutputFormatCSV,
		constants.OutputFormatYAML,
		constants.OutputFormatJSON,
	} {
		t.Run(f, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, f, sampleCards()))
			assert.NotEmpty(t, buf.String())
		})
	}

	var buf bytes.Buffer
	err := Write(&buf, "xml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
