package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-watercast"
	"github.com/aouyang1/go-watercast/config"
	"github.com/aouyang1/go-watercast/feature"
	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/metrics"
	"github.com/aouyang1/go-watercast/models"
	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHistory(t *testing.T) *timedataset.History {
	nowFunc := func() time.Time {
		return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	}
	days := timedataset.GenerateDays(30, nowFunc)
	h, err := timedataset.GenerateHistory(days, timedataset.GenerateConstY(len(days), 10000), 2000, 5000, 1)
	require.Nil(t, err)
	return h
}

func testPlanner(t *testing.T) *watercast.Planner {
	base, err := models.NewLinear(
		250,
		[]feature.Feature{feature.NewLag(feature.LagName, timedataset.ColTarget, 1)},
		[]float64{1},
	)
	require.Nil(t, err)
	residual := models.PredictorFunc(func(x []float64) (float64, error) {
		return 0, nil
	})
	p, err := watercast.New(base, residual, models.Contract{
		FeatureCols:         []string{"tanker_lag_1"},
		ResidualFeatureCols: []string{timedataset.ColBWSSBLitres},
	}, nil)
	require.Nil(t, err)
	return p
}

func testServer(t *testing.T, cfg config.ServerConfig) (*Server, *metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := testPlanner(t).WithMetrics(m)
	return New(p, testHistory(t), cfg, reg).WithMetrics(m), m, reg
}

func post(t *testing.T, s http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestForecast(t *testing.T) {
	s, m, _ := testServer(t, config.Default().Server)

	rec := post(t, s, "/api/v1/forecast", `{"horizon": 7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res forecast.Result
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Steps, 7)
	assert.Equal(t, 10250.0, res.Steps[0].PredictedLitres)
	assert.True(t, res.Steps[0].Date.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("7")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/forecast")))
}

func TestForecastWithHistory(t *testing.T) {
	s, _, _ := testServer(t, config.Default().Server)

	body := Request{
		Horizon: 7,
		History: &HistoryTable{
			Header: []string{"date", "tanker_litres", "borewell_litres", "bwssb_litres", "bwssb_supply_index"},
			Rows: [][]string{
				{"2024-03-01", "9000", "2000", "5000", "1.0"},
				{"2024-03-02", "11000", "2000", "5000", "1.0"},
			},
		},
	}
	raw, err := json.Marshal(body)
	require.Nil(t, err)

	rec := post(t, s, "/api/v1/forecast", string(raw))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res forecast.Result
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Steps[0].Date.Equal(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)))
	// lag 1 of the last row is the first day
	assert.Equal(t, 9250.0, res.Steps[0].PredictedLitres)
	assert.NotEmpty(t, res.Warnings, "short history reports missing lags")
}

func TestErrors(t *testing.T) {
	testData := map[string]struct {
		path   string
		body   string
		status int
		kind   string
	}{
		"bad horizon": {
			path: "/api/v1/forecast", body: `{"horizon": 14}`,
			status: http.StatusBadRequest, kind: metrics.KindOther,
		},
		"bad json": {
			path: "/api/v1/forecast", body: `{"horizon":`,
			status: http.StatusBadRequest, kind: metrics.KindOther,
		},
		"missing column": {
			path:   "/api/v1/forecast",
			body:   `{"horizon": 7, "history": {"header": ["date", "tanker_litres"], "rows": [["2024-03-01", "1"]]}}`,
			status: http.StatusUnprocessableEntity, kind: metrics.KindSchema,
		},
		"malformed date": {
			path:   "/api/v1/budget",
			body:   `{"horizon": 7, "history": {"header": ["date", "tanker_litres"], "rows": [["yesterday", "1"]]}}`,
			status: http.StatusUnprocessableEntity, kind: metrics.KindSchema,
		},
		"holdout too long": {
			path: "/api/v1/backtest", body: `{"horizon": 30}`,
			status: http.StatusBadRequest, kind: metrics.KindOther,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s, _, _ := testServer(t, config.Default().Server)
			rec := post(t, s, td.path, td.body)
			assert.Equal(t, td.status, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, td.kind, resp.Kind)
		})
	}
}

func TestNoDefaultHistory(t *testing.T) {
	s := New(testPlanner(t), nil, config.Default().Server, prometheus.NewRegistry())
	rec := post(t, s, "/api/v1/forecast", `{"horizon": 7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrNoHistory.Error())
}

func TestBudgetAndSources(t *testing.T) {
	s, m, _ := testServer(t, config.Default().Server)

	rec := post(t, s, "/api/v1/budget", `{"horizon": 7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `"tankers_needed":1`)
	assert.Contains(t, body, `"market_price_per_l":"0.1484"`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Projections))

	rec = post(t, s, "/api/v1/sources", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"tanker_pct":58.82`)

	rec = post(t, s, "/api/v1/backtest", `{"horizon": 7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"scores"`)
}

func TestContractHealthAndMetrics(t *testing.T) {
	s, _, _ := testServer(t, config.Default().Server)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/contract", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"feature_cols":["tanker_lag_1"],"residual_feature_cols":["bwssb_litres"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	post(t, s, "/api/v1/forecast", `{"horizon": 7}`)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "watercast_forecast_runs_total")

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecast", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default().Server
	cfg.RateLimit = 0.001
	cfg.Burst = 2
	s, _, _ := testServer(t, cfg)

	assert.Equal(t, http.StatusOK, post(t, s, "/api/v1/forecast", `{"horizon": 7}`).Code)
	assert.Equal(t, http.StatusOK, post(t, s, "/api/v1/forecast", `{"horizon": 7}`).Code)
	rec := post(t, s, "/api/v1/forecast", `{"horizon": 7}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health and metrics are not limited
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyTooBig(t *testing.T) {
	s, _, _ := testServer(t, config.Default().Server)
	body := bytes.Repeat([]byte(" "), MaxBodyBytes+10)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
