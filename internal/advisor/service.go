// Package advisor ties the strategy engine, the portfolio, the universe
// scanner and the broker session together behind the operations the HTTP
// server, the scheduler and the CLI call.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/model"
	"TrendAdvisor/internal/portfolio"
	"TrendAdvisor/internal/recorder"
	"TrendAdvisor/internal/scanner"
	"TrendAdvisor/internal/scanstate"
	"TrendAdvisor/internal/session"
	"TrendAdvisor/internal/strategy"
)

// ErrNoBroker is returned by SyncPortfolio when no holdings source is set.
var ErrNoBroker = errors.New("no broker configured")

// Service is safe for concurrent use.
type Service struct {
	Classifier   *portfolio.Classifier
	Store        *portfolio.Store
	Orchestrator *scanner.Orchestrator
	Universe     []string
	Recorder     recorder.Recorder

	// Holdings and Session are nil when no broker is configured.
	Holdings collector.HoldingsSource
	Session  *session.Store

	// CacheTTL is how long a successful scan is served before a request
	// triggers a new one. Zero or negative always rescans.
	CacheTTL time.Duration

	scans   *scanstate.Machine[*scanner.Result]
	mu      sync.Mutex
	lastErr error
}

func New(cls *portfolio.Classifier, store *portfolio.Store, orch *scanner.Orchestrator, universe []string, rec recorder.Recorder) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{
		Classifier:   cls,
		Store:        store,
		Orchestrator: orch,
		Universe:     universe,
		Recorder:     rec,
		scans:        scanstate.New[*scanner.Result](),
	}
}

// Definition returns the loaded strategy.
func (s *Service) Definition() *strategy.Definition {
	return s.Classifier.Engine.Definition()
}

// Reference returns the scanner's reference indicator, e.g. "EMA(200)".
func (s *Service) Reference() string {
	return s.Orchestrator.Options.Reference.Key()
}

func (s *Service) observe(err error) error {
	if s.Session != nil {
		return s.Session.Observe(err)
	}
	return err
}

// checkSession fails fast with an AuthenticationError when a broker is
// configured but the session is missing or expired. An unusable session is
// reloaded from disk first to pick up a login from the CLI.
func (s *Service) checkSession() error {
	if s.Session == nil {
		return nil
	}
	if !s.Session.Valid() {
		if err := s.Session.Reload(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}
	_, err := s.Session.AccessToken()
	return err
}

// HoldingsReport classifies the stored holdings against the strategy and
// records the outcome. Without a broker the holdings file is written by an
// external sync, so it is re-read on every call.
func (s *Service) HoldingsReport(ctx context.Context) (*portfolio.Report, error) {
	if err := s.checkSession(); err != nil {
		return nil, err
	}
	if s.Holdings == nil {
		if err := s.Store.Reload(); err != nil {
			log.Printf("[WARN] reload portfolio, serving last snapshot: %v", err)
		}
	}
	rep, err := s.Classifier.Classify(ctx, s.Store.Holdings())
	if err != nil {
		return nil, s.observe(err)
	}

	recs := make([]recorder.HoldingRecord, 0, len(rep.Holdings))
	for _, ch := range rep.Holdings {
		recs = append(recs, recorder.HoldingRecord{
			Symbol:         ch.Holding.Symbol,
			Classification: ch.Classification,
			Price:          ch.Holding.CurrentPrice,
			PnL:            ch.Holding.PnL(),
			PnLPct:         ch.Holding.PnLPct(),
			Warning:        ch.Warning,
		})
	}
	if err := s.Recorder.RecordHoldings(s.Definition().Name, recs); err != nil {
		log.Printf("[ERROR] record holdings: %v", err)
	}
	return rep, nil
}

// SyncPortfolio pulls holdings from the broker into the portfolio store.
func (s *Service) SyncPortfolio(ctx context.Context) (int, error) {
	if s.Holdings == nil {
		return 0, ErrNoBroker
	}
	if err := s.checkSession(); err != nil {
		return 0, err
	}
	holdings, err := s.Holdings.FetchHoldings(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch holdings: %w", s.observe(err))
	}
	if err := s.Store.Replace(holdings); err != nil {
		return 0, fmt.Errorf("save holdings: %w", err)
	}
	log.Printf("[INFO] portfolio synced: %d holdings", len(holdings))
	return len(holdings), nil
}

// Scan returns the latest scan result. A running scan is waited for instead
// of starting a second one; a fresh successful result within CacheTTL is
// reused unless force is set.
func (s *Service) Scan(ctx context.Context, force bool) (*scanner.Result, error) {
	for {
		snap := s.scans.Snapshot()
		switch {
		case snap.State == scanstate.Loading:
			done, err := s.scans.Wait(ctx)
			if err != nil {
				return nil, err
			}
			return s.outcome(done)
		case !force && snap.State == scanstate.Success && time.Since(snap.ChangedAt) < s.CacheTTL:
			return snap.Data, nil
		}
		if err := s.scans.Start(); err != nil {
			if errors.Is(err, scanstate.ErrInvalidTransition) {
				// lost the race to another caller; wait for theirs
				continue
			}
			return nil, err
		}
		return s.runScan(context.WithoutCancel(ctx))
	}
}

// RefreshScan forces a new scan, for the scheduler.
func (s *Service) RefreshScan(ctx context.Context) (*scanner.Result, error) {
	return s.Scan(ctx, true)
}

func (s *Service) runScan(ctx context.Context) (*scanner.Result, error) {
	res, err := s.Orchestrator.Run(ctx, s.Universe)
	if err != nil {
		err = s.observe(err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		if ferr := s.scans.Fail(err.Error()); ferr != nil {
			log.Printf("[ERROR] scan state: %v", ferr)
		}
		return nil, err
	}

	id, rerr := s.Recorder.RecordScan(&recorder.ScanRun{
		StartedAt:  res.StartedAt,
		Elapsed:    res.Elapsed,
		Reference:  s.Reference(),
		Scanned:    res.Scanned,
		Partial:    res.Partial,
		Candidates: res.Candidates,
		Dropped:    res.Dropped,
	})
	if rerr != nil {
		log.Printf("[ERROR] record scan: %v", rerr)
	} else {
		log.Printf("[INFO] scan %s recorded", id)
	}

	if err := s.scans.Succeed(res); err != nil {
		log.Printf("[ERROR] scan state: %v", err)
	}
	return res, nil
}

func (s *Service) outcome(snap scanstate.Snapshot[*scanner.Result]) (*scanner.Result, error) {
	if snap.State == scanstate.Success {
		return snap.Data, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		return nil, s.lastErr
	}
	return nil, errors.New(snap.Message)
}

// TopCandidates returns up to topK ranked candidates. topK <= 0 returns the
// whole ranked list. The slice is never nil.
func (s *Service) TopCandidates(ctx context.Context, topK int) ([]model.Candidate, error) {
	res, err := s.Scan(ctx, false)
	if err != nil {
		return nil, err
	}
	n := len(res.Candidates)
	if topK > 0 && topK < n {
		n = topK
	}
	out := make([]model.Candidate, n)
	copy(out, res.Candidates[:n])
	return out, nil
}

// Summary renders the top candidates as plain text for chat and LLM use.
func (s *Service) Summary(ctx context.Context, topK int) (string, error) {
	cands, err := s.TopCandidates(ctx, topK)
	if err != nil {
		return "", err
	}
	ref := s.Reference()
	if len(cands) == 0 {
		return fmt.Sprintf("No candidates near %s.", ref), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Top %d candidates near %s:\n", len(cands), ref)
	for i, c := range cands {
		fmt.Fprintf(&b, "%d. %s at ₹%.2f (%+.2f%% from %s)\n", i+1, c.Symbol, c.CurrentPrice, c.DistancePct, ref)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// SummaryReport is the structured form of Summary, for agents that parse JSON.
type SummaryReport struct {
	Summary         string           `json:"summary"`
	TopPick         *model.Candidate `json:"topPick"`
	TotalCandidates int              `json:"totalCandidates"`
}

// SummaryJSON describes the best candidate and counts the full ranked list.
func (s *Service) SummaryJSON(ctx context.Context) (*SummaryReport, error) {
	cands, err := s.TopCandidates(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return &SummaryReport{Summary: "No candidates found"}, nil
	}
	top := cands[0]
	return &SummaryReport{
		Summary: fmt.Sprintf("Top pick is %s at ₹%.2f (%+.2f%% from %s)",
			top.Symbol, top.CurrentPrice, top.DistancePct, s.Reference()),
		TopPick:         &top,
		TotalCandidates: len(cands),
	}, nil
}

// Portfolio returns the stored portfolio. ok is false until a sync has
// written one.
func (s *Service) Portfolio() (snap model.PortfolioSnapshot, ok bool) {
	if s.Holdings == nil {
		if err := s.Store.Reload(); err != nil {
			log.Printf("[WARN] reload portfolio, serving last snapshot: %v", err)
		}
	}
	snap = s.Store.Snapshot()
	return snap, !snap.LastUpdated.IsZero()
}

// ScanStatus is the scan FSM as seen by clients.
type ScanStatus struct {
	State     scanstate.State `json:"state"`
	Message   string          `json:"message,omitempty"`
	Count     *int            `json:"count,omitempty"`
	Partial   bool            `json:"partial,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Status reports the scan state without blocking.
func (s *Service) Status() ScanStatus {
	snap := s.scans.Snapshot()
	st := ScanStatus{State: snap.State, Message: snap.Message, UpdatedAt: snap.ChangedAt}
	if snap.Data != nil {
		n := len(snap.Data.Candidates)
		st.Count = &n
		st.Partial = snap.Data.Partial
	}
	return st
}

// History lists recent recorded scans.
func (s *Service) History(limit int) ([]recorder.ScanSummary, error) {
	return s.Recorder.RecentScans(limit)
}
