// Package session owns the mutable per-user slot of the presentation layer:
// each browser session holds an immutable Snapshot that is replaced on every
// edit or lifecycle transition.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/portfolio-pilot/internal/lifecycle"
	"github.com/iwvelando/portfolio-pilot/internal/tickers"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")

	// ErrBusy is returned when an optimization is already in flight for the
	// session. It stands in for the disabled Optimize button.
	ErrBusy = errors.New("an optimization is already in progress")
)

// Snapshot is the state of one session at a point in time.
type Snapshot struct {
	ID         string          `json:"id"`
	Tickers    tickers.Set     `json:"-"`
	Investment string          `json:"investment"`
	State      lifecycle.State `json:"state"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Busy reports whether an optimization is in flight.
func (s Snapshot) Busy() bool {
	return s.State.Phase == lifecycle.Loading
}

// Submitter runs one optimization; *lifecycle.Controller satisfies it.
type Submitter interface {
	Submit(ctx context.Context, set tickers.Set, investment string, publish func(lifecycle.State)) lifecycle.State
}

// Gauge receives the number of live sessions.
type Gauge interface {
	SetActiveSessions(n int)
}

// Options configures a Store.
type Options struct {
	// Timeout bounds each optimization call.
	Timeout time.Duration
	// TTL evicts sessions not touched for this long.
	TTL time.Duration
	// DefaultTickers and DefaultInvestment seed new sessions.
	DefaultTickers    []string
	DefaultInvestment string
	// Gauge is optional.
	Gauge Gauge
	// Now is replaceable in tests.
	Now func() time.Time
}

type entry struct {
	snapshot Snapshot
	inFlight bool
	// done is closed when the in-flight optimization reaches a terminal state.
	done chan struct{}
}

// Store holds sessions in memory.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*entry
	submitter Submitter
	opts      Options
	logger    *zap.Logger
}

// NewStore creates an empty Store.
func NewStore(submitter Submitter, opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultOptimizerTimeout
	}
	if opts.TTL <= 0 {
		opts.TTL = constants.DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions:  make(map[string]*entry),
		submitter: submitter,
		opts:      opts,
		logger:    logger,
	}
}

// Create starts a session seeded with the defaults.
func (s *Store) Create() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	snap := Snapshot{
		ID:         uuid.NewString(),
		Tickers:    tickers.New(s.opts.DefaultTickers...),
		Investment: s.opts.DefaultInvestment,
		State:      lifecycle.IdleState(),
		UpdatedAt:  s.opts.Now(),
	}
	s.sessions[snap.ID] = &entry{snapshot: snap}
	s.reportLocked()

	s.logger.Debug("session created",
		zap.String("op", "session.Create"),
		zap.String("session", snap.ID),
	)
	return snap
}

// Get returns the current snapshot.
func (s *Store) Get(id string) (Snapshot, error) {
	return s.update(id, nil)
}

// AddTicker adds a candidate symbol; invalid or duplicate input is absorbed.
func (s *Store) AddTicker(id, candidate string) (Snapshot, error) {
	return s.update(id, func(snap *Snapshot) error {
		snap.Tickers = snap.Tickers.Add(candidate)
		return nil
	})
}

// RemoveTicker removes an exact symbol if present.
func (s *Store) RemoveTicker(id, ticker string) (Snapshot, error) {
	return s.update(id, func(snap *Snapshot) error {
		snap.Tickers = snap.Tickers.Remove(ticker)
		return nil
	})
}

// SetInvestment stores the investment text as entered.
func (s *Store) SetInvestment(id, investment string) (Snapshot, error) {
	return s.update(id, func(snap *Snapshot) error {
		snap.Investment = investment
		return nil
	})
}

// Optimize submits the session's tickers. It returns once the first state
// (Loading, or a validation Failure) is stored; the service call continues in
// the background and its outcome replaces the state. ErrBusy is returned while
// a previous optimization is Loading.
func (s *Store) Optimize(id string) (Snapshot, error) {
	s.mu.Lock()
	e, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	if e.inFlight {
		snap := e.snapshot
		s.mu.Unlock()
		return snap, ErrBusy
	}
	set := e.snapshot.Tickers
	investment := e.snapshot.Investment
	done := make(chan struct{})
	e.done = done
	e.inFlight = true
	s.mu.Unlock()

	first := make(chan Snapshot, 1)
	go func() {
		defer func() {
			s.finish(id)
			close(done)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
		defer cancel()

		published := false
		s.submitter.Submit(ctx, set, investment, func(state lifecycle.State) {
			snap := s.setState(id, state)
			if !published {
				published = true
				first <- snap
			}
		})
		if !published {
			first <- s.mustGet(id)
		}
	}()

	return <-first, nil
}

// Wait blocks until the session's in-flight optimization (if any) finishes or
// ctx is done, and returns the latest snapshot.
func (s *Store) Wait(ctx context.Context, id string) (Snapshot, error) {
	s.mu.Lock()
	e, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	done := e.done
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	return s.Get(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) update(id string, mutate func(*Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	if mutate != nil {
		next := e.snapshot
		if err := mutate(&next); err != nil {
			return e.snapshot, err
		}
		e.snapshot = next
	}
	e.snapshot.UpdatedAt = s.opts.Now()
	return e.snapshot, nil
}

// setState stores a lifecycle transition. The entry may have been evicted
// meanwhile, in which case the state is dropped.
func (s *Store) setState(id string, state lifecycle.State) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return Snapshot{ID: id, State: state}
	}
	e.snapshot.State = state
	e.snapshot.UpdatedAt = s.opts.Now()

	s.logger.Debug("session state changed",
		zap.String("op", "session.setState"),
		zap.String("session", id),
		zap.Stringer("phase", state.Phase),
	)
	return e.snapshot
}

func (s *Store) finish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.inFlight = false
	}
}

func (s *Store) mustGet(id string) Snapshot {
	snap, err := s.Get(id)
	if err != nil {
		return Snapshot{ID: id}
	}
	return snap
}

func (s *Store) lookupLocked(id string) (*entry, error) {
	s.evictLocked()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// evictLocked drops idle sessions. Sessions with a request in flight are kept.
func (s *Store) evictLocked() {
	cutoff := s.opts.Now().Add(-s.opts.TTL)
	evicted := 0
	for id, e := range s.sessions {
		if e.snapshot.UpdatedAt.Before(cutoff) && !e.inFlight {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("sessions evicted",
			zap.String("op", "session.evict"),
			zap.Int("count", evicted),
		)
		s.reportLocked()
	}
}

func (s *Store) reportLocked() {
	if s.opts.Gauge != nil {
		s.opts.Gauge.SetActiveSessions(len(s.sessions))
	}
}
