package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/iwvelando/portfolio-pilot/internal/lifecycle"
	"github.com/iwvelando/portfolio-pilot/internal/session"
	"github.com/iwvelando/portfolio-pilot/internal/view"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	// Chart markup is generated by internal/chart with escaped titles.
	"svg": func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec
}).ParseFS(templateFiles, "templates/index.html"))

// refreshSeconds is how often the page reloads while an optimization runs.
const refreshSeconds = 1

type pageData struct {
	Snapshot       session.Snapshot
	Tickers        []string
	Loading        bool
	Failure        bool
	Message        string
	Cards          []view.Card
	RefreshSeconds int
	Version        string
}

// currentSession returns the session named by the cookie, creating one (and
// setting the cookie) when it is missing or expired.
func (h *handler) currentSession(w http.ResponseWriter, r *http.Request) session.Snapshot {
	if cookie, err := r.Cookie(constants.SessionCookieName); err == nil {
		if snap, err := h.store.Get(cookie.Value); err == nil {
			return snap
		}
	}

	snap := h.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    snap.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return snap
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSession(w, r)

	data := pageData{
		Snapshot: snap,
		Tickers:  snap.Tickers.Symbols(),
		Loading:  snap.Busy(),
		Failure:  snap.State.Phase == lifecycle.Failure,
		Message:  snap.State.Message,
		Cards:    view.Cards(snap.State),
		Version:  h.version,
	}
	if data.Loading {
		data.RefreshSeconds = refreshSeconds
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render page",
			zap.String("op", "server.handleIndex"),
			zap.Error(err),
		)
	}
}

func (h *handler) handleAddTickerForm(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSession(w, r)
	if err := r.ParseForm(); err != nil {
		h.formError(w, r, err, "server.handleAddTickerForm")
		return
	}
	if _, err := h.store.AddTicker(snap.ID, r.PostFormValue("ticker")); err != nil {
		h.formError(w, r, err, "server.handleAddTickerForm")
		return
	}
	h.redirectHome(w, r)
}

func (h *handler) handleRemoveTickerForm(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSession(w, r)
	if err := r.ParseForm(); err != nil {
		h.formError(w, r, err, "server.handleRemoveTickerForm")
		return
	}
	if _, err := h.store.RemoveTicker(snap.ID, r.PostFormValue("ticker")); err != nil {
		h.formError(w, r, err, "server.handleRemoveTickerForm")
		return
	}
	h.redirectHome(w, r)
}

func (h *handler) handleInvestmentForm(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSession(w, r)
	if err := r.ParseForm(); err != nil {
		h.formError(w, r, err, "server.handleInvestmentForm")
		return
	}
	if _, err := h.store.SetInvestment(snap.ID, r.PostFormValue("investment")); err != nil {
		h.formError(w, r, err, "server.handleInvestmentForm")
		return
	}
	h.redirectHome(w, r)
}

// handleOptimizeForm also accepts the investment field so one click both
// stores the amount and submits.
func (h *handler) handleOptimizeForm(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSession(w, r)
	if err := r.ParseForm(); err != nil {
		h.formError(w, r, err, "server.handleOptimizeForm")
		return
	}
	if _, ok := r.PostForm["investment"]; ok {
		if _, err := h.store.SetInvestment(snap.ID, r.PostFormValue("investment")); err != nil {
			h.formError(w, r, err, "server.handleOptimizeForm")
			return
		}
	}
	if _, err := h.store.Optimize(snap.ID); err != nil && !errors.Is(err, session.ErrBusy) {
		h.formError(w, r, err, "server.handleOptimizeForm")
		return
	}
	h.redirectHome(w, r)
}

func (h *handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handler) formError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := h.statusFor(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadRequest
	}
	h.logger.Warn("form submission failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.Error(err),
	)
	http.Error(w, err.Error(), status)
}
