package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wonny/ivix/internal/api/handlers"
	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/vix"
	"github.com/wonny/ivix/pkg/config"
	"github.com/wonny/ivix/pkg/logger"
)

var d1 = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

type fakeBackend struct {
	records    []contracts.VixRecord
	err        error
	gotFrom    time.Time
	gotTo      time.Time
	gotUnder   string
	gotRequest vix.Request
	fromCache  bool
	deadline   bool
	rateFrom   time.Time
	rateTo     time.Time
}

func (f *fakeBackend) GetRecords(_ context.Context, underlying string, from, to time.Time) ([]contracts.VixRecord, error) {
	f.gotUnder, f.gotFrom, f.gotTo = underlying, from, to
	return f.records, f.err
}

func (f *fakeBackend) Run(ctx context.Context, req vix.Request) (*vix.RunResult, error) {
	f.gotRequest = req
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	runID := "run-1"
	if f.fromCache {
		runID = ""
	}
	return &vix.RunResult{
		RunID:     runID,
		FromCache: f.fromCache,
		Records:   f.records,
		Results: []contracts.DateResult{
			contracts.ComputedResult(f.records[0]),
			contracts.SkippedResult(d1.AddDate(0, 0, 1), contracts.SkipInsufficientMaturities, errors.New("1 qualifying maturities")),
		},
	}, nil
}

func (f *fakeBackend) LoadRateQuotes(_ context.Context, from, to time.Time) ([]contracts.RateQuote, error) {
	f.rateFrom, f.rateTo = from, to
	v1, v2 := 1.6, 2.4
	return []contracts.RateQuote{{
		TradeDate: d1,
		Values:    map[contracts.Tenor]*float64{contracts.TenorON: &v1, contracts.Tenor1Y: &v2},
	}}, nil
}

func newTestRouter(b *fakeBackend) http.Handler {
	h := handlers.NewVixHandler(b, b, b, "510050.SH", logger.NewNop())
	return NewRouter(h, ComputeLimits{}, logger.NewNop())
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleBackend() *fakeBackend {
	return &fakeBackend{records: []contracts.VixRecord{
		{TradeDate: d1, Vix: 20},
		{TradeDate: d1.AddDate(0, 0, 3), Vix: 24},
	}}
}

func TestHealth(t *testing.T) {
	rec := serve(t, newTestRouter(sampleBackend()), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ivix-api")
}

func TestGetSeries(t *testing.T) {
	b := sampleBackend()
	rec := serve(t, newTestRouter(b), "GET", "/api/vix?from=2024-01-01&to=20240131", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []contracts.VixRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "510050.SH", b.gotUnder)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), b.gotFrom)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), b.gotTo)
}

func TestGetSeries_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad date", "/api/vix?from=jan", nil, http.StatusBadRequest},
		{"store failure", "/api/vix", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleBackend()
			b.err = tt.err
			rec := serve(t, newTestRouter(b), "GET", tt.target, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetSummary(t *testing.T) {
	rec := serve(t, newTestRouter(sampleBackend()), "GET", "/api/vix/summary?underlying=510300.SH", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "510300.SH", got.Underlying)
	assert.Equal(t, 2, got.Count)
	assert.InDelta(t, 22.0, got.Mean, 1e-12)
	assert.Equal(t, "2024-01-08", got.LastDate)
}

func TestCompute(t *testing.T) {
	b := sampleBackend()
	rec := serve(t, newTestRouter(b), "POST", "/api/vix/compute", `{"from":"2024-01-01","to":"2024-01-31","save":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Len(t, got.Records, 2)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "INSUFFICIENT_MATURITIES", got.Skipped[0].Reason)

	assert.True(t, b.gotRequest.Save)
	assert.Equal(t, "510050.SH", b.gotRequest.Underlying)
}

func TestCompute_FromCacheKeepsSkips(t *testing.T) {
	b := sampleBackend()
	b.fromCache = true
	rec := serve(t, newTestRouter(b), "POST", "/api/vix/compute", `{"from":"2024-01-01","to":"2024-01-31"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.FromCache)
	assert.Empty(t, got.RunID)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "2024-01-06", got.Skipped[0].Date)
	assert.Equal(t, "INSUFFICIENT_MATURITIES", got.Skipped[0].Reason)
	assert.Equal(t, "1 qualifying maturities", got.Skipped[0].Detail)
}

func TestCompute_BadRequest(t *testing.T) {
	h := newTestRouter(sampleBackend())

	assert.Equal(t, http.StatusBadRequest, serve(t, h, "POST", "/api/vix/compute", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, h, "POST", "/api/vix/compute", `{"from":"x"}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, h, "GET", "/api/vix/compute", "").Code)
}

func TestGetCurve(t *testing.T) {
	b := sampleBackend()
	rec := serve(t, newTestRouter(b), "GET", "/api/curve/2024-01-05", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// 이후 호가도 bfill에 쓰이도록 양쪽으로 구간 확장
	assert.Equal(t, d1.AddDate(0, 0, -vix.RateLookbackDays), b.rateFrom)
	assert.Equal(t, d1.AddDate(0, 0, vix.RateLookbackDays), b.rateTo)

	var points []handlers.CurvePoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, len(contracts.AllTenors()))
	assert.Equal(t, 1, points[0].Days)
	assert.InDelta(t, 0.016, points[0].Rate, 1e-12)
	assert.InDelta(t, 0.024, points[len(points)-1].Rate, 1e-12)

	rec = serve(t, newTestRouter(sampleBackend()), "GET", "/api/curve/2024-02-05", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompute_RateLimited(t *testing.T) {
	b := sampleBackend()
	limits := ComputeLimits{Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
	h := NewRouter(handlers.NewVixHandler(b, b, b, "510050.SH", logger.NewNop()), limits, logger.NewNop())

	assert.Equal(t, http.StatusOK, serve(t, h, "POST", "/api/vix/compute", `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(t, h, "POST", "/api/vix/compute", `{}`).Code)

	// 조회 API는 제한 없음
	assert.Equal(t, http.StatusOK, serve(t, h, "GET", "/api/vix", "").Code)
}

func TestCompute_Deadline(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    bool
	}{
		{"configured", 30 * time.Second, true},
		{"unbounded", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleBackend()
			h := NewRouter(handlers.NewVixHandler(b, b, b, "510050.SH", logger.NewNop()), ComputeLimits{Timeout: tt.timeout}, logger.NewNop())

			require.Equal(t, http.StatusOK, serve(t, h, "POST", "/api/vix/compute", `{}`).Code)
			assert.Equal(t, tt.want, b.deadline)
		})
	}
}

func TestServer_WriteTimeoutCoversCompute(t *testing.T) {
	cfg := &config.Config{Port: "0", ComputeTimeout: 45 * time.Second}
	s := New(cfg, logger.NewNop(), http.NotFoundHandler())

	assert.Equal(t, 60*time.Second, s.httpServer.WriteTimeout)
	assert.Greater(t, WriteTimeout(2*time.Minute), 2*time.Minute)
}
