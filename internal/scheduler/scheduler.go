package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"TrendAdvisor/internal/advisor"
	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/notifier"

	"github.com/robfig/cron/v3"
)

// reportLimit caps the candidates listed in a Telegram scan report.
const reportLimit = 10

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Advisor  *advisor.Service
	Notifier notifier.Notifier
	Ctx      context.Context

	expiryAlerted atomic.Bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *advisor.Service, n notifier.Notifier) *Scheduler {
	if n == nil {
		n = notifier.LogNotifier{}
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Advisor:  svc,
		Notifier: n,
		Ctx:      ctx,
	}
}

// RegisterAll registers the portfolio sync, scan refresh and daily report
// tasks. An empty syncCron skips the sync task.
func (s *Scheduler) RegisterAll(syncCron, scanCron, reportCron string) error {
	if syncCron != "" {
		if _, err := s.Cron.AddFunc(syncCron, s.syncTask); err != nil {
			return fmt.Errorf("register sync task: %w", err)
		}
	}
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunScanNow executes the scan task immediately (for RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

func (s *Scheduler) syncTask() {
	n, err := s.Advisor.SyncPortfolio(s.Ctx)
	switch {
	case err == nil:
		s.expiryAlerted.Store(false)
	case errors.Is(err, advisor.ErrNoBroker):
	case collector.IsAuth(err):
		// one alert per expiry; sync retries every tick until a new token is saved
		if !s.expiryAlerted.Swap(true) {
			s.trySend("🔐 <b>Broker session expired</b>\nLog in again to resume portfolio sync.")
		}
		log.Printf("[WARN] portfolio sync: %v", err)
	default:
		log.Printf("[ERROR] portfolio sync (%d holdings): %v", n, err)
	}
}

func (s *Scheduler) scanTask() {
	log.Println("[INFO] running scheduled scan")
	if _, err := s.Advisor.RefreshScan(s.Ctx); err != nil {
		log.Printf("[ERROR] scheduled scan: %v", err)
		s.trySend(fmt.Sprintf("❌ Scan failed: %v", err))
	}
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running daily report")
	s.trySend(s.holdingsReport())
	s.trySend(s.scanReport())
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(strings.SplitN(command, "@", 2)[0]))
	switch cmd {
	case "/scan":
		if _, err := s.Advisor.RefreshScan(ctx); err != nil {
			return fmt.Sprintf("❌ Scan failed: %v", err)
		}
		return s.scanReport()
	case "/top":
		return s.scanReport()
	case "/holdings":
		return s.holdingsReport()
	case "/history":
		scans, err := s.Advisor.History(10)
		if err != nil {
			return fmt.Sprintf("❌ History unavailable: %v", err)
		}
		return notifier.FormatScanHistory(scans)
	case "/status":
		st := s.Advisor.Status()
		msg := fmt.Sprintf("Scan state: <b>%s</b> since %s", st.State, st.UpdatedAt.Format("01-02 15:04"))
		if st.Count != nil {
			msg += fmt.Sprintf("\nCandidates: %d", *st.Count)
		}
		if st.Message != "" {
			msg += "\n" + st.Message
		}
		if s.Advisor.Session != nil && !s.Advisor.Session.Valid() {
			msg += "\n🔐 Broker login required"
		}
		return msg
	default:
		return "Available commands:\n• /scan run a fresh scan\n• /top last scan result\n• /holdings holdings vs strategy\n• /history recent scans\n• /status scan state"
	}
}

func (s *Scheduler) scanReport() string {
	res, err := s.Advisor.Scan(s.Ctx, false)
	if err != nil {
		return fmt.Sprintf("❌ Scan unavailable: %v", err)
	}
	return notifier.FormatScanReport(res, s.Advisor.Reference(), reportLimit)
}

func (s *Scheduler) holdingsReport() string {
	rep, err := s.Advisor.HoldingsReport(s.Ctx)
	if err != nil {
		if collector.IsAuth(err) {
			return "🔐 Broker session invalid, log in to see holdings."
		}
		return fmt.Sprintf("❌ Holdings unavailable: %v", err)
	}
	return notifier.FormatHoldingsReport(rep, s.Advisor.Definition().Name)
}

func (s *Scheduler) trySend(text string) {
	if tn, ok := s.Notifier.(*notifier.TelegramNotifier); ok {
		if err := tn.SendWithRetry(s.Ctx, text, 3); err != nil {
			log.Printf("[ERROR] send notification: %v", err)
		}
		return
	}
	if err := s.Notifier.Send(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
