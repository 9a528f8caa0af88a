package scanner

import (
	"context"
	"log"
	"sort"
	"time"

	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/model"
)

// Result is the outcome of a universe scan.
type Result struct {
	Candidates []model.Candidate `json:"candidates"`
	Dropped    map[string]string `json:"dropped,omitempty"`
	Partial    bool              `json:"partial"`
	Scanned    int               `json:"scanned"`
	StartedAt  time.Time         `json:"startedAt"`
	Elapsed    time.Duration     `json:"elapsed"`
}

// DroppedSymbols returns the dropped symbols in lexical order.
func (r *Result) DroppedSymbols() []string {
	out := make([]string, 0, len(r.Dropped))
	for s := range r.Dropped {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Orchestrator runs ScanSymbol across a universe with a fixed number of
// workers and an overall deadline.
type Orchestrator struct {
	Fetcher  collector.Fetcher
	Options  Options
	Workers  int
	Deadline time.Duration
	Retry    collector.RetryPolicy
}

func NewOrchestrator(f collector.Fetcher, opts Options, workers int, deadline time.Duration, retry collector.RetryPolicy) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{Fetcher: f, Options: opts, Workers: workers, Deadline: deadline, Retry: retry}
}

type outcome struct {
	symbol string
	cand   model.Candidate
	err    error
}

// Run scans the universe. Per-symbol failures drop the symbol; on deadline
// or cancellation the candidates gathered so far are returned with Partial
// set. Only an AuthenticationError fails the whole run.
func (o *Orchestrator) Run(ctx context.Context, universe []string) (*Result, error) {
	start := time.Now()
	symbols := NormalizeUniverse(universe)
	res := &Result{Dropped: make(map[string]string), StartedAt: start}

	if o.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Deadline)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan string, len(symbols))
	for _, s := range symbols {
		tasks <- s
	}
	close(tasks)

	// buffered to len(symbols) so workers never block after the coordinator leaves
	results := make(chan outcome, len(symbols))
	for i := 0; i < o.Workers && i < len(symbols); i++ {
		go o.worker(ctx, tasks, results)
	}

	pending := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		pending[s] = true
	}
	var cands []model.Candidate

collect:
	for len(pending) > 0 {
		select {
		case r := <-results:
			delete(pending, r.symbol)
			switch {
			case r.err == nil:
				cands = append(cands, r.cand)
			case collector.IsAuth(r.err):
				cancel()
				return nil, r.err
			default:
				res.Dropped[r.symbol] = r.err.Error()
				log.Printf("[WARN] scan dropped %s: %v", r.symbol, r.err)
			}
		case <-ctx.Done():
			res.Partial = true
			break collect
		}
	}
	for s := range pending {
		res.Dropped[s] = "not completed before deadline"
	}

	res.Scanned = len(symbols)
	res.Candidates = o.Options.Finalize(cands)
	res.Elapsed = time.Since(start)
	log.Printf("[INFO] scan finished: %d candidates, %d dropped, partial=%v, took %v",
		len(res.Candidates), len(res.Dropped), res.Partial, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func (o *Orchestrator) worker(ctx context.Context, tasks <-chan string, results chan<- outcome) {
	for sym := range tasks {
		if err := ctx.Err(); err != nil {
			results <- outcome{symbol: sym, err: err}
			continue
		}
		cand, err := collector.Do(ctx, o.Retry, "scan "+sym, func(ctx context.Context) (model.Candidate, error) {
			return ScanSymbol(ctx, o.Fetcher, sym, o.Options)
		})
		results <- outcome{symbol: sym, cand: cand, err: err}
	}
}
