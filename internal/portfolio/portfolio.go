// Package portfolio defines the candidate portfolios returned by the
// optimization service and the allocation arithmetic derived from them.
package portfolio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// Portfolio is one candidate allocation returned by the optimization service.
// A Portfolio is replaced wholesale by the next response, never merged.
type Portfolio struct {
	Name           string        `json:"name" validate:"required"`
	Weights        WeightMapping `json:"weights" validate:"required,dive"`
	ExpectedReturn Metric        `json:"expected_return"`
	Risk           Metric        `json:"risk"`
}

// Weight is the fraction of a portfolio allocated to one ticker.
type Weight struct {
	Ticker string  `json:"ticker" validate:"required"`
	Value  float64 `json:"weight" validate:"gte=0"`
}

// WeightMapping is an ordered ticker → weight mapping. It decodes from and
// encodes to a JSON object while keeping the key order of the source document.
type WeightMapping []Weight

// Tickers returns the tickers in mapping order.
func (m WeightMapping) Tickers() []string {
	out := make([]string, len(m))
	for i, w := range m {
		out[i] = w.Ticker
	}
	return out
}

// Values returns the weights in mapping order.
func (m WeightMapping) Values() []float64 {
	out := make([]float64, len(m))
	for i, w := range m {
		out[i] = w.Value
	}
	return out
}

// UnmarshalJSON decodes a JSON object, preserving key order. A repeated key
// keeps its first position and its last value.
func (m *WeightMapping) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}

	out := WeightMapping{}
	err := jsonparser.ObjectEach(trimmed, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		ticker, err := jsonparser.ParseString(key)
		if err != nil {
			return fmt.Errorf("invalid ticker key %q: %w", key, err)
		}
		if dataType != jsonparser.Number {
			return fmt.Errorf("weight for %s must be a number, got %s", ticker, dataType)
		}
		weight, err := jsonparser.ParseFloat(value)
		if err != nil {
			return fmt.Errorf("invalid weight for %s: %w", ticker, err)
		}
		for i := range out {
			if out[i].Ticker == ticker {
				out[i].Value = weight
				return nil
			}
		}
		out = append(out, Weight{Ticker: ticker, Value: weight})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to decode weights: %w", err)
	}

	*m = out
	return nil
}

// MarshalJSON encodes the mapping as a JSON object in mapping order.
func (m WeightMapping) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, w := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(w.Ticker)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(w.Value)
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", w.Ticker, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Metric is a display value the service may send as either a string ("8.12%")
// or a number (0.0812). It is kept as text.
type Metric string

// UnmarshalJSON accepts a JSON string, number or null.
func (m *Metric) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*m = ""
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*m = Metric(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("metric must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("metric must be a string or number: %w", err)
	}
	*m = Metric(n.String())
	return nil
}

func (m Metric) String() string {
	return string(m)
}
