package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/export"
	"github.com/wonny/ivix/internal/marketdata"
	"github.com/wonny/ivix/internal/rates"
	"github.com/wonny/ivix/internal/vix"
	"github.com/wonny/ivix/pkg/logger"
)

// RecordReader reads persisted records
type RecordReader interface {
	GetRecords(ctx context.Context, underlying string, from, to time.Time) ([]contracts.VixRecord, error)
}

// SeriesRunner computes a series on demand
type SeriesRunner interface {
	Run(ctx context.Context, req vix.Request) (*vix.RunResult, error)
}

// VixHandler handles VIX API endpoints
// ⭐ SSOT: VIX API 핸들러는 이 구조체에서만
type VixHandler struct {
	records    RecordReader
	runner     SeriesRunner
	rates      contracts.RateSource
	underlying string
	logger     *logger.Logger
}

// NewVixHandler creates a new VIX handler
func NewVixHandler(records RecordReader, runner SeriesRunner, rateSource contracts.RateSource, underlying string, log *logger.Logger) *VixHandler {
	return &VixHandler{
		records:    records,
		runner:     runner,
		rates:      rateSource,
		underlying: underlying,
		logger:     log.WithField("module", "api"),
	}
}

// GetSeries returns stored records
// GET /api/vix?from=YYYY-MM-DD&to=YYYY-MM-DD&underlying=510050.SH
func (h *VixHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	underlying, from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	records, err := h.records.GetRecords(r.Context(), underlying, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get VIX records")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve VIX records")
		return
	}
	if records == nil {
		records = []contracts.VixRecord{}
	}

	respondJSON(w, http.StatusOK, records)
}

// SummaryResponse is the body of GET /api/vix/summary
type SummaryResponse struct {
	Underlying string  `json:"underlying"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Last       float64 `json:"last"`
	LastDate   string  `json:"last_date,omitempty"`
}

// GetSummary returns statistics of stored records
// GET /api/vix/summary?from=&to=
func (h *VixHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	underlying, from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	records, err := h.records.GetRecords(r.Context(), underlying, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get VIX records")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve VIX records")
		return
	}

	s := export.Summarize(records)
	resp := SummaryResponse{
		Underlying: underlying,
		Count:      s.Count,
		Mean:       s.Mean,
		Std:        s.Std,
		Min:        s.Min,
		Max:        s.Max,
		Last:       s.Last,
	}
	if s.Count > 0 {
		resp.LastDate = s.LastDate.Format(contracts.DateLayout)
	}

	respondJSON(w, http.StatusOK, resp)
}

// ComputeRequest represents a compute request
type ComputeRequest struct {
	Underlying string `json:"underlying"` // Optional: default underlying
	From       string `json:"from"`       // YYYY-MM-DD
	To         string `json:"to"`         // YYYY-MM-DD
	Save       bool   `json:"save"`
}

// SkipEntry is one skipped date in a compute response
type SkipEntry struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// ComputeResponse is the body of POST /api/vix/compute
type ComputeResponse struct {
	RunID     string                `json:"run_id,omitempty"`
	Records   []contracts.VixRecord `json:"records"`
	Skipped   []SkipEntry           `json:"skipped"`
	FromCache bool                  `json:"from_cache"`
}

// Compute runs the calculator over a date range
// POST /api/vix/compute
func (h *VixHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	from, err := optionalDate(req.From)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := optionalDate(req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	underlying := req.Underlying
	if underlying == "" {
		underlying = h.underlying
	}

	res, err := h.runner.Run(r.Context(), vix.Request{Underlying: underlying, From: from, To: to, Save: req.Save})
	if err != nil {
		h.logger.WithError(err).Error("VIX compute failed")
		respondError(w, http.StatusInternalServerError, "VIX compute failed")
		return
	}

	resp := ComputeResponse{
		RunID:     res.RunID,
		Records:   res.Records,
		Skipped:   []SkipEntry{},
		FromCache: res.FromCache,
	}
	if resp.Records == nil {
		resp.Records = []contracts.VixRecord{}
	}
	for _, dr := range res.Results {
		if dr.Computed() {
			continue
		}
		entry := SkipEntry{Date: dr.TradeDate.Format(contracts.DateLayout), Reason: dr.Reason.String()}
		if dr.Err != nil {
			entry.Detail = dr.Err.Error()
		}
		resp.Skipped = append(resp.Skipped, entry)
	}

	respondJSON(w, http.StatusOK, resp)
}

// CurvePoint is one day-count rate of a resolved curve
type CurvePoint struct {
	Days int     `json:"days"`
	Rate float64 `json:"rate"`
}

// GetCurve returns the resolved rate curve at the tenor day counts
// GET /api/curve/{date}
func (h *VixHandler) GetCurve(w http.ResponseWriter, r *http.Request) {
	date, err := marketdata.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rateFrom, rateTo := vix.RateWindow(date, date)
	quotes, err := h.rates.LoadRateQuotes(r.Context(), rateFrom, rateTo)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load rate quotes")
		respondError(w, http.StatusInternalServerError, "Failed to load rate quotes")
		return
	}

	curve := rates.ResolveAll(quotes).Get(date)
	if curve == nil {
		respondError(w, http.StatusNotFound, "No rate curve for date")
		return
	}

	points := make([]CurvePoint, 0, len(contracts.AllTenors()))
	for _, t := range contracts.AllTenors() {
		points = append(points, CurvePoint{Days: t.DayCount(), Rate: curve.At(t.DayCount())})
	}
	respondJSON(w, http.StatusOK, points)
}

func (h *VixHandler) rangeParams(w http.ResponseWriter, r *http.Request) (string, time.Time, time.Time, bool) {
	q := r.URL.Query()

	underlying := q.Get("underlying")
	if underlying == "" {
		underlying = h.underlying
	}

	from, err := optionalDate(q.Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", time.Time{}, time.Time{}, false
	}
	to, err := optionalDate(q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", time.Time{}, time.Time{}, false
	}

	// 저장소 조회는 닫힌 구간이 필요: 기본 최근 1년
	if to.IsZero() {
		to = contracts.DateOnly(time.Now())
	}
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}
	return underlying, from, to, true
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return marketdata.ParseDate(s)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
