package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/interfaces"
	"github.com/marketsentry/marketsentry/internal/models"
	"github.com/marketsentry/marketsentry/internal/services/sentiment"
	"github.com/marketsentry/marketsentry/internal/services/signals"
)

// SignalPipeline fans symbol scoring and signal generation out over a
// bounded worker pool after each ingest cycle.
type SignalPipeline struct {
	cfg          *common.Config
	ingest       *Service
	aggregator   *sentiment.Aggregator
	generator    *signals.Generator
	eventService interfaces.EventService
	stream       interfaces.Stream
	logger       arbor.ILogger
}

// NewSignalPipeline creates the post-ingest signal fan-out.
func NewSignalPipeline(
	cfg *common.Config,
	ingestService *Service,
	aggregator *sentiment.Aggregator,
	generator *signals.Generator,
	eventService interfaces.EventService,
	stream interfaces.Stream,
	logger arbor.ILogger,
) *SignalPipeline {
	return &SignalPipeline{
		cfg:          cfg,
		ingest:       ingestService,
		aggregator:   aggregator,
		generator:    generator,
		eventService: eventService,
		stream:       stream,
		logger:       logger,
	}
}

// Run scores every configured symbol against the recent item window and
// asks the generator for a signal, using up to the configured worker count.
// Returns the signals emitted this pass.
func (p *SignalPipeline) Run(ctx context.Context, market signals.MarketContext) []*models.TradingSignal {
	symbols := p.cfg.Symbols
	if len(symbols) == 0 {
		return nil
	}

	items := p.ingest.RecentItems()
	now := time.Now()

	workers := p.cfg.Signals.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	jobs := make(chan common.SymbolConfig)
	var mu sync.Mutex
	var emitted []*models.TradingSignal

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				sig := p.generateFor(ctx, sym, items, now, market)
				if sig != nil {
					mu.Lock()
					emitted = append(emitted, sig)
					mu.Unlock()
				}
			}
		}()
	}

	for _, sym := range symbols {
		select {
		case jobs <- sym:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return emitted
		}
	}
	close(jobs)
	wg.Wait()

	if len(emitted) > 0 {
		p.logger.Info().Int("signals", len(emitted)).Msg("Signal pass completed")
	}
	return emitted
}

func (p *SignalPipeline) generateFor(ctx context.Context, sym common.SymbolConfig, items []models.NewsItem, now time.Time, market signals.MarketContext) *models.TradingSignal {
	symbolSentiment := p.aggregator.ScoreSymbol(sym, items, now)

	sig, outcome := p.generator.Generate(sym, symbolSentiment, market)
	if outcome != signals.OutcomeEmitted {
		return nil
	}

	if p.stream != nil {
		p.stream.Send(interfaces.TopicTradingSignals, sig)
	}
	if p.eventService != nil {
		p.eventService.Publish(ctx, interfaces.Event{Type: interfaces.EventSignalGenerated, Payload: sig})
	}
	return sig
}
