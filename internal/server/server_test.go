package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/portfolio-pilot/internal/lifecycle"
	"github.com/iwvelando/portfolio-pilot/internal/metrics"
	"github.com/iwvelando/portfolio-pilot/internal/optimizer"
	"github.com/iwvelando/portfolio-pilot/internal/session"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/iwvelando/portfolio-pilot/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	handler http.Handler
	store   *session.Store
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, serviceURL string, opts Options) *testServer {
	t.Helper()
	m := metrics.New()
	client := optimizer.NewClient(serviceURL, zap.NewNop())
	controller := lifecycle.NewController(client, m, zap.NewNop())
	store := session.NewStore(controller, session.Options{
		Timeout:           5 * time.Second,
		DefaultTickers:    constants.DefaultTickers,
		DefaultInvestment: constants.DefaultInvestment,
		Gauge:             m,
	}, zap.NewNop())
	opts.Metrics = m
	return &testServer{handler: NewHandler(zap.NewNop(), store, opts), store: store, metrics: m}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) form(t *testing.T, target string, cookie *http.Cookie, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) page(t *testing.T, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeSession(t *testing.T, rr *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == constants.SessionCookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s", constants.SessionCookieName)
	return nil
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{Version: " 1.2.3 "})

	rr := srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = srv.do(t, http.MethodGet, "/api/version", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, rr.Body.String())

	srv = newTestServer(t, "http://127.0.0.1:1", Options{})
	rr = srv.do(t, http.MethodGet, "/api/version", nil)
	assert.JSONEq(t, `{"version":"dev"}`, rr.Body.String())
}

func TestIndexCreatesSession(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})

	rr := srv.page(t, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(t, rr)
	assert.True(t, cookie.HttpOnly)

	body := rr.Body.String()
	for _, ticker := range constants.DefaultTickers {
		assert.Contains(t, body, ticker)
	}
	assert.Contains(t, body, `value="10000"`)
	assert.Contains(t, body, ">Optimize</button>")
	assert.NotContains(t, body, "http-equiv=\"refresh\"")

	// The same cookie keeps the same session.
	rr = srv.page(t, cookie)
	assert.Empty(t, rr.Result().Cookies())
	assert.Equal(t, 1, srv.store.Len())
}

func TestTickerForms(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})
	cookie := sessionCookie(t, srv.page(t, nil))

	rr := srv.form(t, "/tickers", cookie, url.Values{"ticker": {" nvda "}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	snap, err := srv.store.Get(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT", "AMZN", "NVDA"}, snap.Tickers.Symbols())

	rr = srv.form(t, "/tickers/delete", cookie, url.Values{"ticker": {"GOOG"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	rr = srv.form(t, "/investment", cookie, url.Values{"investment": {"2500"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	snap, err = srv.store.Get(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "AMZN", "NVDA"}, snap.Tickers.Symbols())
	assert.Equal(t, "2500", snap.Investment)
}

func TestOptimizeFormRendersCards(t *testing.T) {
	stub := testutil.NewOptimizerStub(t, http.StatusOK, testutil.BalancedResponse)
	srv := newTestServer(t, stub.URL(), Options{})
	cookie := sessionCookie(t, srv.page(t, nil))

	rr := srv.form(t, "/optimize", cookie, url.Values{"investment": {"10000"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := srv.store.Wait(ctx, cookie.Value)
	require.NoError(t, err)
	require.Equal(t, lifecycle.Success, snap.State.Phase)

	body := srv.page(t, cookie).Body.String()
	assert.Contains(t, body, "Balanced")
	assert.Contains(t, body, "Aggressive")
	assert.Contains(t, body, "$6000.00")
	assert.Contains(t, body, "$4000.00")
	assert.Contains(t, body, "AAPL: 60.0%")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "<circle")
	assert.Equal(t, 1, stub.Calls())
}

func TestOptimizeFormShowsFailure(t *testing.T) {
	stub := testutil.NewOptimizerStub(t, http.StatusBadRequest, `{"error":"Invalid ticker: XYZ"}`)
	srv := newTestServer(t, stub.URL(), Options{})
	cookie := sessionCookie(t, srv.page(t, nil))

	require.Equal(t, http.StatusSeeOther, srv.form(t, "/optimize", cookie, nil).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := srv.store.Wait(ctx, cookie.Value)
	require.NoError(t, err)

	body := srv.page(t, cookie).Body.String()
	assert.Contains(t, body, `<p class="error">Invalid ticker: XYZ</p>`)
	assert.NotContains(t, body, `class="card"`)
}

func TestPageWhileLoading(t *testing.T) {
	release := make(chan struct{})
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(testutil.BalancedResponse))
	}))
	t.Cleanup(service.Close)
	t.Cleanup(func() { close(release) })

	srv := newTestServer(t, service.URL, Options{})
	cookie := sessionCookie(t, srv.page(t, nil))
	require.Equal(t, http.StatusSeeOther, srv.form(t, "/optimize", cookie, nil).Code)

	body := srv.page(t, cookie).Body.String()
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, " disabled>Optimizing...</button>")

	// A second click is absorbed while the first request runs.
	assert.Equal(t, http.StatusSeeOther, srv.form(t, "/optimize", cookie, nil).Code)
}

func TestSessionAPI(t *testing.T) {
	stub := testutil.NewOptimizerStub(t, http.StatusOK, testutil.BalancedResponse)
	srv := newTestServer(t, stub.URL(), Options{})

	rr := srv.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeSession(t, rr)
	assert.Equal(t, "idle", created.Phase)
	assert.Equal(t, constants.DefaultTickers, created.Tickers)
	base := "/api/sessions/" + created.ID

	rr = srv.do(t, http.MethodPost, base+"/tickers", map[string]string{"ticker": "tsla"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decodeSession(t, rr).Tickers, "TSLA")

	rr = srv.do(t, http.MethodDelete, base+"/tickers/AMZN", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, decodeSession(t, rr).Tickers, "AMZN")

	rr = srv.do(t, http.MethodPut, base+"/investment", map[string]string{"investment": "5000"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "5000", decodeSession(t, rr).Investment)

	rr = srv.do(t, http.MethodPost, base+"/optimize?wait=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	done := decodeSession(t, rr)
	assert.Equal(t, "success", done.Phase)
	assert.False(t, done.Busy)
	require.Len(t, done.Cards, 2)
	assert.Equal(t, "Balanced", done.Cards[0].Name)
	assert.Equal(t, "$3000.00", done.Cards[0].Allocations[0].Amount)

	rr = srv.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "success", decodeSession(t, rr).Phase)
}

func TestSessionAPIErrors(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})

	rr := srv.do(t, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, rr.Body.String())

	created := decodeSession(t, srv.do(t, http.MethodPost, "/api/sessions", nil))
	base := "/api/sessions/" + created.ID

	rr = srv.do(t, http.MethodPost, base+"/tickers", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, http.MethodPost, base+"/optimize?wait=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOptimizeAPIValidationFailure(t *testing.T) {
	stub := testutil.NewOptimizerStub(t, http.StatusOK, testutil.BalancedResponse)
	srv := newTestServer(t, stub.URL(), Options{})

	created := decodeSession(t, srv.do(t, http.MethodPost, "/api/sessions", nil))
	base := "/api/sessions/" + created.ID
	for _, ticker := range []string{"GOOG", "MSFT", "AMZN"} {
		require.Equal(t, http.StatusOK, srv.do(t, http.MethodDelete, base+"/tickers/"+ticker, nil).Code)
	}

	rr := srv.do(t, http.MethodPost, base+"/optimize", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeSession(t, rr)
	assert.Equal(t, "failure", resp.Phase)
	assert.Equal(t, lifecycle.TooFewTickersMessage, resp.Message)
	assert.Equal(t, 0, stub.Calls())
}

func TestOptimizeAPIBusy(t *testing.T) {
	release := make(chan struct{})
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(testutil.BalancedResponse))
	}))
	t.Cleanup(service.Close)

	srv := newTestServer(t, service.URL, Options{})
	created := decodeSession(t, srv.do(t, http.MethodPost, "/api/sessions", nil))
	base := "/api/sessions/" + created.ID

	rr := srv.do(t, http.MethodPost, base+"/optimize", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.True(t, decodeSession(t, rr).Busy)

	rr = srv.do(t, http.MethodPost, base+"/optimize", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"an optimization is already in progress"}`, rr.Body.String())

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := srv.store.Wait(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Success, snap.State.Phase)
}

func TestChartAPI(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})

	rr := srv.do(t, http.MethodPost, "/api/charts", `{"weights":{"B":0.75,"A":0.25},"investment":"1000"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Segments []struct {
			Ticker string `json:"ticker"`
		} `json:"segments"`
		SVG    string `json:"svg"`
		Legend []struct {
			Label string `json:"label"`
		} `json:"legend"`
		Allocations []struct {
			Amount string `json:"amount"`
		} `json:"allocations"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Segments, 2)
	assert.Equal(t, "B", resp.Segments[0].Ticker)
	assert.Equal(t, "A", resp.Segments[1].Ticker)
	assert.Contains(t, resp.SVG, "<path")
	assert.Equal(t, "B: 75.0%", resp.Legend[0].Label)
	require.Len(t, resp.Allocations, 2)
	assert.Equal(t, "$750.00", resp.Allocations[0].Amount)

	rr = srv.do(t, http.MethodPost, "/api/charts", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, http.MethodPost, "/api/charts", `{"weights":{"A":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{MaxBodySize: 16})

	rr := srv.do(t, http.MethodPost, "/api/charts", `{"weights":{"AAAAAAAAAAAAAAAAAAAA":1}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "exceeds limit of 16 bytes")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/version", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})
	srv.do(t, http.MethodGet, "/healthz", nil)
	srv.do(t, http.MethodPost, "/api/sessions", nil)

	rr := srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `portfolio_pilot_http_requests_total{method="GET",route="/healthz",status_code="200"} 1`)
	assert.Contains(t, body, "portfolio_pilot_active_sessions 1")
}

func TestSecureSessionCookie(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})
	assert.False(t, sessionCookie(t, srv.page(t, nil)).Secure)

	srv = newTestServer(t, "http://127.0.0.1:1", Options{SecureCookies: true})
	assert.True(t, sessionCookie(t, srv.page(t, nil)).Secure)
}

func TestRemoveTickerWithSlash(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", Options{})
	cookie := sessionCookie(t, srv.page(t, nil))

	require.Equal(t, http.StatusSeeOther, srv.form(t, "/tickers", cookie, url.Values{"ticker": {"brk/b"}}).Code)
	body := srv.page(t, cookie).Body.String()
	assert.Contains(t, body, `<form method="post" action="/tickers/delete">`)
	assert.Contains(t, body, `name="ticker" value="BRK/B"`)

	require.Equal(t, http.StatusSeeOther, srv.form(t, "/tickers/delete", cookie, url.Values{"ticker": {"BRK/B"}}).Code)
	snap, err := srv.store.Get(cookie.Value)
	require.NoError(t, err)
	assert.False(t, snap.Tickers.Contains("BRK/B"))
	assert.Equal(t, constants.DefaultTickers, snap.Tickers.Symbols())
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	h := &handler{logger: zap.NewNop()}

	rr := httptest.NewRecorder()
	h.writeJSON(rr, http.StatusOK, map[string]float64{"weight": math.NaN()})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"failed to encode response"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.writeJSON(rr, http.StatusCreated, map[string]float64{"weight": 0.5})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "{\"weight\":0.5}\n", rr.Body.String())
}
