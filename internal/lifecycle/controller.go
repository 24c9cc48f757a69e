package lifecycle

import (
	"context"
	"time"

	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/internal/tickers"
	"go.uber.org/zap"
)

// Optimizer is the external optimization service.
type Optimizer interface {
	Optimize(ctx context.Context, tickers []string) ([]portfolio.Portfolio, error)
}

// Observer is told about every finished submission.
type Observer interface {
	ObserveSubmission(outcome Phase, duration time.Duration)
}

// Controller runs submissions against an Optimizer. It holds no request state
// of its own; callers own the current State and receive every transition
// through the publish callback.
type Controller struct {
	optimizer Optimizer
	observer  Observer
	logger    *zap.Logger
}

// NewController creates a Controller. observer may be nil.
func NewController(opt Optimizer, observer Observer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{optimizer: opt, observer: observer, logger: logger}
}

// Submit runs one request. publish (optional) receives each state in order:
// either a single validation Failure, or Loading followed by Success or
// Failure. The optimizer is called exactly once when the tickers are valid and
// never otherwise. The terminal state is returned.
func (c *Controller) Submit(ctx context.Context, set tickers.Set, investment string, publish func(State)) State {
	if publish == nil {
		publish = func(State) {}
	}
	start := time.Now()

	state, proceed := Begin(set, investment)
	publish(state)
	if !proceed {
		c.logger.Info("optimization rejected",
			zap.String("op", "lifecycle.Submit"),
			zap.Int("tickers", set.Len()),
			zap.String("message", state.Message),
		)
		c.observe(state.Phase, start)
		return state
	}

	portfolios, err := c.optimizer.Optimize(ctx, set.Symbols())
	state = Resolve(investment, portfolios, err)

	if err != nil {
		c.logger.Warn("optimization failed",
			zap.String("op", "lifecycle.Submit"),
			zap.Strings("tickers", set.Symbols()),
			zap.Error(err),
		)
	} else {
		c.logger.Info("optimization succeeded",
			zap.String("op", "lifecycle.Submit"),
			zap.Strings("tickers", set.Symbols()),
			zap.Int("portfolios", len(state.Portfolios)),
			zap.Duration("duration", time.Since(start)),
		)
	}

	publish(state)
	c.observe(state.Phase, start)
	return state
}

func (c *Controller) observe(outcome Phase, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveSubmission(outcome, time.Since(start))
	}
}
