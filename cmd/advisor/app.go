package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"TrendAdvisor/internal/advisor"
	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/config"
	"TrendAdvisor/internal/model"
	"TrendAdvisor/internal/notifier"
	"TrendAdvisor/internal/portfolio"
	"TrendAdvisor/internal/recorder"
	"TrendAdvisor/internal/scanner"
	"TrendAdvisor/internal/session"
	"TrendAdvisor/internal/strategy"
)

// app holds everything the subcommands share.
type app struct {
	cfg      *config.Config
	svc      *advisor.Service
	rec      recorder.Recorder
	telegram *notifier.TelegramNotifier
}

func configPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// newApp wires the advisor from configuration.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Step a: strategy
	def, err := strategy.LoadDefinition(cfg.Strategy.Path)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	log.Printf("[INFO] strategy %q loaded: %d indicators, %d entry, %d exit rules",
		def.Name, len(def.Indicators), len(def.Entry), len(def.Exit))

	// Step b: market data and broker
	var (
		sess   *session.Store
		broker *collector.BrokerClient
	)
	if cfg.BrokerEnabled() {
		sess = session.NewStore(cfg.Broker.SessionFile, cfg.Broker.AccessToken)
		broker = collector.NewBrokerClient(cfg.Broker.BaseURL, cfg.Broker.Exchange, sess, cfg.Proxy)
	}
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "broker":
		fetcher = broker
	case "mock":
		fetcher = &collector.MockFetcher{Price: 1000}
	default:
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.DataSource.ExchangeSuffix, cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())
	retry := collector.RetryPolicy{Retries: 1, Backoff: cfg.Scan.RetryBackoff}

	// Step c: portfolio and scanner
	store, err := portfolio.NewStore(cfg.Portfolio.Path)
	if err != nil {
		return nil, fmt.Errorf("open portfolio: %w", err)
	}
	classifier := portfolio.NewClassifier(strategy.NewEngine(def),
		collector.NewRetryingFetcher(fetcher, retry), cfg.DataSource.HistoryDays, cfg.Scan.Workers)

	maxBand, _ := model.ParseBand(strings.ToLower(cfg.Scan.MaxBand))
	opts := scanner.Options{
		Reference:   cfg.ReferenceSpec(),
		HistoryDays: cfg.DataSource.HistoryDays,
		Bands:       scanner.Bands{ClosePct: cfg.Scan.CloseBandPct, MediumPct: cfg.Scan.MediumBandPct},
		MaxBand:     maxBand,
		UptrendOnly: cfg.Scan.UptrendOnly,
	}
	orch := scanner.NewOrchestrator(fetcher, opts, cfg.Scan.Workers, cfg.Scan.Deadline, retry)
	universe := scanner.ResolveUniverse(cfg.Scan.Universe, def.Universe.Symbols)
	log.Printf("[INFO] universe: %d symbols, reference %s", len(universe), opts.Reference.Key())

	// Step d: recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0755); err != nil {
			log.Printf("[WARN] create database dir: %v", err)
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	svc := advisor.New(classifier, store, orch, universe, rec)
	svc.CacheTTL = cfg.Scan.CacheTTL
	if broker != nil {
		svc.Holdings = broker
		svc.Session = sess
	}

	a := &app{cfg: cfg, svc: svc, rec: rec}
	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}
	return a, nil
}

func (a *app) notifier() notifier.Notifier {
	if a.telegram != nil {
		return a.telegram
	}
	return notifier.LogNotifier{}
}

func (a *app) Close() {
	if err := a.rec.Close(); err != nil {
		log.Printf("[ERROR] close recorder: %v", err)
	}
}
