// Package lifecycle governs an optimization request from submission to a
// rendered result. States are immutable snapshots; transitions are pure
// functions, and Controller is the only caller of the optimization service.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/portfolio-pilot/internal/optimizer"
	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/internal/tickers"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
)

// Phase identifies which RequestState holds.
type Phase int

const (
	Idle Phase = iota
	Loading
	Success
	Failure
)

var phaseNames = map[Phase]string{
	Idle:    "idle",
	Loading: "loading",
	Success: "success",
	Failure: "failure",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// TooFewTickersMessage is shown when fewer than two tickers are submitted.
const TooFewTickersMessage = "Please add at least two stock tickers."

// State is a snapshot of the request lifecycle. Portfolios is only set in
// Success and Message only in Failure. Investment records the amount that was
// submitted so allocations derive from the same snapshot.
type State struct {
	Phase      Phase                 `json:"phase"`
	Investment string                `json:"investment,omitempty"`
	Portfolios []portfolio.Portfolio `json:"portfolios,omitempty"`
	Message    string                `json:"message,omitempty"`
}

// IdleState is the state before anything was submitted.
func IdleState() State {
	return State{Phase: Idle}
}

// Begin validates a submission. It returns Failure with the validation message
// and false when fewer than two tickers are given, otherwise Loading and true.
// Nothing from a previous state carries over.
func Begin(set tickers.Set, investment string) (State, bool) {
	if set.Len() < constants.MinimumTickers {
		return State{Phase: Failure, Investment: investment, Message: TooFewTickersMessage}, false
	}
	return State{Phase: Loading, Investment: investment}, true
}

// Resolve maps the outcome of a service call to a terminal state.
func Resolve(investment string, portfolios []portfolio.Portfolio, err error) State {
	if err != nil {
		return State{Phase: Failure, Investment: investment, Message: FailureMessage(err)}
	}
	out := make([]portfolio.Portfolio, len(portfolios))
	copy(out, portfolios)
	return State{Phase: Success, Investment: investment, Portfolios: out}
}

// FailureMessage turns an error into the single message shown to the user.
// Messages supplied by the service are passed through verbatim.
func FailureMessage(err error) string {
	var appErr *optimizer.ApplicationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &appErr):
		return appErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "optimization request timed out"
	case errors.Is(err, context.Canceled):
		return "optimization request was cancelled"
	default:
		return err.Error()
	}
}

// Terminal reports whether no further transition happens without a new submit.
func (s State) Terminal() bool {
	return s.Phase != Loading
}

// String is used in logs.
func (s State) String() string {
	data, err := json.Marshal(struct {
		Phase      Phase  `json:"phase"`
		Portfolios int    `json:"portfolios"`
		Message    string `json:"message,omitempty"`
	}{s.Phase, len(s.Portfolios), s.Message})
	if err != nil {
		return s.Phase.String()
	}
	return string(data)
}
