package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/iwvelando/portfolio-pilot/internal/chart"
	"github.com/iwvelando/portfolio-pilot/internal/lifecycle"
	"github.com/iwvelando/portfolio-pilot/internal/portfolio"
	"github.com/iwvelando/portfolio-pilot/internal/session"
	"github.com/iwvelando/portfolio-pilot/internal/view"
	"go.uber.org/zap"
)

type sessionResponse struct {
	ID         string      `json:"id"`
	Tickers    []string    `json:"tickers"`
	Investment string      `json:"investment"`
	Phase      string      `json:"phase"`
	Busy       bool        `json:"busy"`
	Message    string      `json:"message,omitempty"`
	Cards      []view.Card `json:"cards,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func newSessionResponse(snap session.Snapshot) sessionResponse {
	return sessionResponse{
		ID:         snap.ID,
		Tickers:    snap.Tickers.Symbols(),
		Investment: snap.Investment,
		Phase:      snap.State.Phase.String(),
		Busy:       snap.Busy(),
		Message:    snap.State.Message,
		Cards:      view.Cards(snap.State),
		UpdatedAt:  snap.UpdatedAt,
	}
}

type tickerRequest struct {
	Ticker string `json:"ticker"`
}

type investmentRequest struct {
	Investment string `json:"investment"`
}

type chartRequest struct {
	Weights    portfolio.WeightMapping `json:"weights"`
	Investment string                  `json:"investment,omitempty"`
}

type chartResponse struct {
	chart.Chart
	Legend      []view.LegendEntry     `json:"legend"`
	Allocations []view.AllocationEntry `json:"allocations,omitempty"`
}

func (h *handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Create()
	h.writeJSON(w, http.StatusCreated, newSessionResponse(snap))
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondErrorWithOp(w, h.statusFor(err), err.Error(), "server.handleGetSession")
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(snap))
}

func (h *handler) handleAddTicker(w http.ResponseWriter, r *http.Request) {
	var req tickerRequest
	if status, err := h.decodeJSON(r, &req); err != nil {
		h.respondErrorWithOp(w, status, err.Error(), "server.handleAddTicker")
		return
	}
	snap, err := h.store.AddTicker(chi.URLParam(r, "id"), req.Ticker)
	if err != nil {
		h.respondErrorWithOp(w, h.statusFor(err), err.Error(), "server.handleAddTicker")
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(snap))
}

func (h *handler) handleRemoveTicker(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.RemoveTicker(chi.URLParam(r, "id"), chi.URLParam(r, "ticker"))
	if err != nil {
		h.respondErrorWithOp(w, h.statusFor(err), err.Error(), "server.handleRemoveTicker")
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(snap))
}

func (h *handler) handleSetInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if status, err := h.decodeJSON(r, &req); err != nil {
		h.respondErrorWithOp(w, status, err.Error(), "server.handleSetInvestment")
		return
	}
	snap, err := h.store.SetInvestment(chi.URLParam(r, "id"), req.Investment)
	if err != nil {
		h.respondErrorWithOp(w, h.statusFor(err), err.Error(), "server.handleSetInvestment")
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(snap))
}

// handleOptimize starts an optimization. Without wait it answers 202 while the
// session is Loading; with wait=true it answers once the state is terminal.
func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOptimize"
	id := chi.URLParam(r, "id")

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid wait parameter: "+raw, op)
			return
		}
		wait = parsed
	}

	snap, err := h.store.Optimize(id)
	if err != nil {
		h.respondErrorWithOp(w, h.statusFor(err), err.Error(), op)
		return
	}

	if wait && !snap.State.Terminal() {
		snap, err = h.store.Wait(r.Context(), id)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusGatewayTimeout, err.Error(), op)
			return
		}
	}

	status := http.StatusOK
	if snap.State.Phase == lifecycle.Loading {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, newSessionResponse(snap))
}

// handleChart renders an arbitrary weight mapping without a session.
func (h *handler) handleChart(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleChart"
	var req chartRequest
	if status, err := h.decodeJSON(r, &req); err != nil {
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}
	if req.Weights == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "weights are required", op)
		return
	}

	card := view.NewCard(portfolio.Portfolio{Weights: req.Weights}, req.Investment)
	resp := chartResponse{Chart: card.Chart, Legend: card.Legend}
	if req.Investment != "" {
		resp.Allocations = card.Allocations
	}

	h.logger.Debug("chart rendered",
		zap.String("op", op),
		zap.Strings("tickers", req.Weights.Tickers()),
		zap.Int("segments", len(resp.Segments)),
	)
	h.writeJSON(w, http.StatusOK, resp)
}
