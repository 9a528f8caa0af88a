package portfolio

import (
	"context"
	"fmt"
	"log"
	"sync"

	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/model"
	"TrendAdvisor/internal/strategy"
)

// ClassifiedHolding is a holding with its strategy match. Warning is set when
// the holding could not be evaluated and was degraded to NO MATCH.
type ClassifiedHolding struct {
	Holding        model.Holding
	Classification model.Classification
	Warning        string
	Evaluation     *strategy.Evaluation
}

// Report is the classified portfolio.
type Report struct {
	Holdings    []ClassifiedHolding
	Performance model.Performance
}

// Classifier applies a strategy to every holding.
type Classifier struct {
	Engine      *strategy.Engine
	Fetcher     collector.Fetcher
	HistoryDays int
	Workers     int
}

func NewClassifier(engine *strategy.Engine, fetcher collector.Fetcher, historyDays, workers int) *Classifier {
	if workers <= 0 {
		workers = 1
	}
	return &Classifier{Engine: engine, Fetcher: fetcher, HistoryDays: historyDays, Workers: workers}
}

type holdingResult struct {
	ch   ClassifiedHolding
	bars []model.OHLCV
	err  error
}

// Classify evaluates every holding. The output has one entry per input
// holding, in input order. Only an AuthenticationError aborts the run.
func (c *Classifier) Classify(ctx context.Context, holdings []model.Holding) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]holdingResult, len(holdings))
	sem := make(chan struct{}, c.Workers)
	var wg sync.WaitGroup
	for i, h := range holdings {
		wg.Add(1)
		go func(i int, h model.Holding) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = degraded(h, ctx.Err())
				return
			}
			results[i] = c.classifyOne(ctx, h)
			if collector.IsAuth(results[i].err) {
				cancel()
			}
		}(i, h)
	}
	wg.Wait()

	report := &Report{Holdings: make([]ClassifiedHolding, len(holdings))}
	bars := make(map[string][]model.OHLCV, len(holdings))
	for i, r := range results {
		if collector.IsAuth(r.err) {
			return nil, r.err
		}
		report.Holdings[i] = r.ch
		if r.bars != nil {
			bars[holdings[i].Symbol] = r.bars
		}
	}
	report.Performance = ComputePerformance(holdings, bars)
	return report, nil
}

func (c *Classifier) classifyOne(ctx context.Context, h model.Holding) holdingResult {
	bars, err := c.Fetcher.FetchDailyBars(ctx, h.Symbol, c.HistoryDays)
	if err != nil {
		if collector.IsAuth(err) {
			return holdingResult{err: err}
		}
		return degraded(h, fmt.Errorf("fetch history: %w", err))
	}
	if h.CurrentPrice <= 0 && len(bars) > 0 {
		h.CurrentPrice = bars[len(bars)-1].Close
	}

	ev, err := c.Engine.Evaluate(bars)
	if err != nil {
		r := degraded(h, err)
		r.bars = bars
		return r
	}
	return holdingResult{
		ch:   ClassifiedHolding{Holding: h, Classification: ev.Classification, Evaluation: ev},
		bars: bars,
	}
}

func degraded(h model.Holding, err error) holdingResult {
	log.Printf("[WARN] holding %s degraded to %s: %v", h.Symbol, model.NoMatch, err)
	return holdingResult{ch: ClassifiedHolding{
		Holding:        h,
		Classification: model.NoMatch,
		Warning:        err.Error(),
	}}
}
