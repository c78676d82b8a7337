package signals

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/interfaces"
)

// HaltSwitch is the global circuit breaker disabling new signal generation.
// State changes are broadcast on the halt topic and published on the event
// bus.
type HaltSwitch struct {
	active atomic.Bool
	stream interfaces.Stream
	events interfaces.EventService
	logger arbor.ILogger
}

// NewHaltSwitch creates an inactive halt switch. stream and events may be nil.
func NewHaltSwitch(stream interfaces.Stream, events interfaces.EventService, logger arbor.ILogger) *HaltSwitch {
	return &HaltSwitch{stream: stream, events: events, logger: logger}
}

// Activate engages the halt. Idempotent.
func (h *HaltSwitch) Activate(reason string) {
	if h.active.Swap(true) {
		return
	}
	h.logger.Warn().Str("reason", reason).Msg("Emergency halt activated, signal generation disabled")
	h.broadcast(true, reason)
}

// Deactivate releases the halt. Idempotent.
func (h *HaltSwitch) Deactivate() {
	if !h.active.Swap(false) {
		return
	}
	h.logger.Info().Msg("Emergency halt released")
	h.broadcast(false, "")
}

// Active reports whether the halt is engaged.
func (h *HaltSwitch) Active() bool {
	return h.active.Load()
}

func (h *HaltSwitch) broadcast(active bool, reason string) {
	payload := map[string]interface{}{
		"active":    active,
		"reason":    reason,
		"timestamp": time.Now(),
	}
	if h.stream != nil {
		h.stream.Send(interfaces.TopicHaltState, payload)
	}
	if h.events != nil {
		h.events.Publish(context.Background(), interfaces.Event{Type: interfaces.EventHaltChanged, Payload: payload})
	}
}
