package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/services/events"
	"github.com/marketsentry/marketsentry/internal/services/rating"
	"github.com/marketsentry/marketsentry/internal/services/signals"
)

func newTestAPIHandler(t *testing.T) *APIHandler {
	t.Helper()
	logger := arbor.NewLogger()
	cfg := common.NewDefaultConfig()
	ratings := rating.NewBook()
	halt := signals.NewHaltSwitch(nil, nil, logger)
	generator := signals.NewGenerator(cfg.Signals, ratings, halt, logger)
	feedback := signals.NewFeedback(generator, ratings, logger)
	ring := events.NewRing(cfg.Events.RingCapacity)

	return NewAPIHandler(cfg, nil, nil, feedback, halt, ratings, ring, nil, logger)
}

func TestStatusHandler(t *testing.T) {
	h := newTestAPIHandler(t)

	rec := httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "marketsentry", body["service"])
	assert.Equal(t, false, body["halted"])
}

func TestStatusHandlerMethodNotAllowed(t *testing.T) {
	h := newTestAPIHandler(t)

	rec := httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHaltHandlerLifecycle(t *testing.T) {
	h := newTestAPIHandler(t)

	rec := httptest.NewRecorder()
	h.HaltHandler(rec, httptest.NewRequest(http.MethodPost, "/api/halt", strings.NewReader(`{"reason":"volatility spike"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HaltHandler(rec, httptest.NewRequest(http.MethodGet, "/api/halt", nil))
	var state map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, true, state["active"])

	rec = httptest.NewRecorder()
	h.HaltHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/halt", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HaltHandler(rec, httptest.NewRequest(http.MethodGet, "/api/halt", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, false, state["active"])
}

func TestRatingsHandler(t *testing.T) {
	h := newTestAPIHandler(t)
	h.ratings.Nudge("wire-a", true)

	rec := httptest.NewRecorder()
	h.RatingsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/ratings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ratings map[string]float64 `json:"ratings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, rating.DefaultRating+rating.Step, body.Ratings["wire-a"], 1e-9)
}

func TestBurstHandler(t *testing.T) {
	h := newTestAPIHandler(t)

	rec := httptest.NewRecorder()
	h.BurstHandler(rec, httptest.NewRequest(http.MethodGet, "/api/events/burst?window=5m", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "5m0s", body["window"])
	assert.Equal(t, float64(0), body["count"])
}

func TestBurstHandlerInvalidWindow(t *testing.T) {
	h := newTestAPIHandler(t)

	rec := httptest.NewRecorder()
	h.BurstHandler(rec, httptest.NewRequest(http.MethodGet, "/api/events/burst?window=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordOutcomeHandlerValidation(t *testing.T) {
	h := newTestAPIHandler(t)

	rec := httptest.NewRecorder()
	h.RecordOutcomeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/outcomes", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.RecordOutcomeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/outcomes",
		strings.NewReader(`{"signal_id":"sig_x","price_change":0.02,"time_to_impact":"bad"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.RecordOutcomeHandler(rec, httptest.NewRequest(http.MethodPost, "/api/outcomes",
		strings.NewReader(`{"signal_id":"sig_unknown","price_change":0.02}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsHandler(t *testing.T) {
	h := newTestAPIHandler(t)

	rec := httptest.NewRecorder()
	h.MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "accuracy_rate")
}
