// Package testutil provides common utility functions for testing.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/iwvelando/portfolio-pilot/internal/view"
)

// FindCard finds a card by portfolio name in the cards slice.
// Returns a pointer to the card if found, nil otherwise.
func FindCard(cards []view.Card, name string) *view.Card {
	for i := range cards {
		if cards[i].Name == name {
			return &cards[i]
		}
	}
	return nil
}

// OptimizerStub is a fake optimization service.
type OptimizerStub struct {
	Server *httptest.Server
	calls  atomic.Int64
}

// Calls returns how many requests the stub has served.
func (s *OptimizerStub) Calls() int {
	return int(s.calls.Load())
}

// URL returns the stub's base URL.
func (s *OptimizerStub) URL() string {
	return s.Server.URL
}

// NewOptimizerStub starts a service that answers every request with status and
// body. The server is closed when the test ends.
func NewOptimizerStub(t testing.TB, status int, body string) *OptimizerStub {
	t.Helper()
	stub := &OptimizerStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(stub.Server.Close)
	return stub
}

// NewOptimizerStubJSON is NewOptimizerStub with a value encoded as the body.
func NewOptimizerStubJSON(t testing.TB, status int, payload interface{}) *OptimizerStub {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode stub payload: %v", err)
	}
	return NewOptimizerStub(t, status, string(body))
}

// BalancedResponse is a well-formed service response with two portfolios.
const BalancedResponse = `{"portfolios":[` +
	`{"name":"Balanced","weights":{"AAPL":0.6,"GOOG":0.4},"expected_return":"8%","risk":"12%"},` +
	`{"name":"Aggressive","weights":{"MSFT":1.0},"expected_return":0.15,"risk":0.3}]}`
