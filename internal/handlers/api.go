package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/models"
	"github.com/marketsentry/marketsentry/internal/services/events"
	"github.com/marketsentry/marketsentry/internal/services/feeds"
	"github.com/marketsentry/marketsentry/internal/services/ingest"
	"github.com/marketsentry/marketsentry/internal/services/rating"
	"github.com/marketsentry/marketsentry/internal/services/scheduler"
	"github.com/marketsentry/marketsentry/internal/services/signals"
)

// APIHandler serves the REST surface: sentiment reads, feed health, signal
// controls, outcome recording and scheduler introspection.
type APIHandler struct {
	cfg       *common.Config
	ingest    *ingest.Service
	feeds     *feeds.Service
	feedback  *signals.Feedback
	halt      *signals.HaltSwitch
	ratings   *rating.Book
	ring      *events.Ring
	scheduler *scheduler.Service
	logger    arbor.ILogger
}

// NewAPIHandler creates the REST handler.
func NewAPIHandler(
	cfg *common.Config,
	ingestService *ingest.Service,
	feedService *feeds.Service,
	feedback *signals.Feedback,
	halt *signals.HaltSwitch,
	ratings *rating.Book,
	ring *events.Ring,
	schedulerService *scheduler.Service,
	logger arbor.ILogger,
) *APIHandler {
	return &APIHandler{
		cfg:       cfg,
		ingest:    ingestService,
		feeds:     feedService,
		feedback:  feedback,
		halt:      halt,
		ratings:   ratings,
		ring:      ring,
		scheduler: schedulerService,
		logger:    logger,
	}
}

// Register wires all API routes onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.StatusHandler)
	mux.HandleFunc("/api/sentiment/latest", h.LatestSentimentHandler)
	mux.HandleFunc("/api/feeds/health", h.FeedHealthHandler)
	mux.HandleFunc("/api/ratings", h.RatingsHandler)
	mux.HandleFunc("/api/metrics", h.MetricsHandler)
	mux.HandleFunc("/api/events/burst", h.BurstHandler)
	mux.HandleFunc("/api/halt", h.HaltHandler)
	mux.HandleFunc("/api/outcomes", h.RecordOutcomeHandler)
	mux.HandleFunc("/api/ingest/run", h.TriggerIngestHandler)
	mux.HandleFunc("/api/jobs", h.JobsHandler)
}

// StatusHandler reports service liveness and build info.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":     "marketsentry",
		"version":     common.GetVersion(),
		"environment": h.cfg.Environment,
		"halted":      h.halt.Active(),
		"timestamp":   time.Now(),
	})
}

// LatestSentimentHandler returns the most recent persisted snapshot.
func (h *APIHandler) LatestSentimentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := h.ingest.LatestSnapshot()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load latest snapshot")
		WriteError(w, http.StatusInternalServerError, "failed to load latest snapshot")
		return
	}
	if snapshot == nil {
		WriteError(w, http.StatusNotFound, "no sentiment snapshot available yet")
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// FeedHealthHandler reports last observed health per configured source.
func (h *APIHandler) FeedHealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	type sourceHealth struct {
		URL    string             `json:"url"`
		Label  string             `json:"label"`
		Known  bool               `json:"known"`
		Health *models.FeedHealth `json:"health,omitempty"`
	}

	out := make([]sourceHealth, 0, len(h.cfg.Feeds.Sources))
	for _, source := range h.cfg.Feeds.Sources {
		sh := sourceHealth{URL: source.URL, Label: source.Label}
		if health, ok := h.feeds.Health().Health(source.URL); ok {
			sh.Known = true
			sh.Health = &health
		}
		out = append(out, sh)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"sources": out})
}

// RatingsHandler returns the current per-source credibility ratings.
func (h *APIHandler) RatingsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"ratings": h.ratings.Snapshot()})
}

// MetricsHandler returns derived signal performance metrics.
func (h *APIHandler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.feedback.Metrics())
}

// BurstHandler counts recent news events inside a trailing window.
// Query param: window (duration string, default from config).
func (h *APIHandler) BurstHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	window := h.cfg.Events.BurstWindow()
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		parsed, err := time.ParseDuration(windowStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid window: %v", err))
			return
		}
		window = parsed
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"window": window.String(),
		"count":  h.ring.RecentBurstCount(window),
	})
}

// HaltHandler controls the emergency halt switch.
// GET reads the state, POST engages it, DELETE releases it.
func (h *APIHandler) HaltHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]interface{}{"active": h.halt.Active()})

	case http.MethodPost:
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
			req.Reason = "manual halt via API"
		}
		h.halt.Activate(req.Reason)
		WriteSuccess(w, "halt activated")

	case http.MethodDelete:
		h.halt.Deactivate()
		WriteSuccess(w, "halt released")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// RecordOutcomeHandler feeds a realized outcome back into the performance
// loop and source credibility ratings.
func (h *APIHandler) RecordOutcomeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		SignalID     string  `json:"signal_id"`
		PriceChange  float64 `json:"price_change"`
		TimeToImpact string  `json:"time_to_impact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SignalID == "" {
		WriteError(w, http.StatusBadRequest, "signal_id is required")
		return
	}

	timeToImpact := time.Duration(0)
	if req.TimeToImpact != "" {
		parsed, err := time.ParseDuration(req.TimeToImpact)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid time_to_impact: %v", err))
			return
		}
		timeToImpact = parsed
	}

	if err := h.feedback.RecordOutcome(req.SignalID, req.PriceChange, timeToImpact); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteSuccess(w, "outcome recorded")
}

// TriggerIngestHandler manually kicks the ingest job.
func (h *APIHandler) TriggerIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.scheduler.TriggerJob("ingest"); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	WriteStarted(w, "ingest cycle triggered")
}

// JobsHandler reports the state of all scheduled jobs.
func (h *APIHandler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": h.scheduler.GetAllJobStatuses()})
}
