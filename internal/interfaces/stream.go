package interfaces

// Stream is a fire-and-forget broadcast channel. Implementations must never
// propagate send failures; they are logged and swallowed.
type Stream interface {
	Send(topic string, payload interface{})
}

// Broadcast topics.
const (
	TopicIngestResults    = "ingest.results"
	TopicSentimentUpdates = "sentiment.updates"
	TopicTradingSignals   = "signals.trading"
	TopicHaltState        = "signals.halt"
)
