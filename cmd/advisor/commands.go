package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/scheduler"
	"TrendAdvisor/internal/server"
	"TrendAdvisor/internal/session"
)

// Commands are registered on the commander in main.
var Commands = []subcommands.Command{
	&serveCmd{},
	&scanCmd{},
	&holdingsCmd{},
	&syncCmd{},
	&loginCmd{},
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

type serveCmd struct {
	runOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API, scheduler and Telegram bot" }
func (*serveCmd) Usage() string {
	return `advisor serve [-scan-now]

  Serves /api/dashboard and /api/v1/advice/*, runs the cron jobs and, when
  configured, answers Telegram commands. Stops on SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.runOnStart, "scan-now", os.Getenv("RUN_ON_START") == "true", "run a scan immediately on start")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncCron := ""
	if a.cfg.BrokerEnabled() {
		syncCron = a.cfg.Schedule.SyncCron
	}
	sched := scheduler.NewScheduler(ctx, a.svc, a.notifier())
	if err := sched.RegisterAll(syncCron, a.cfg.Schedule.ScanCron, a.cfg.Schedule.ReportCron); err != nil {
		return fail(fmt.Errorf("register cron tasks: %w", err))
	}
	sched.Start()
	defer sched.Stop()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}
	if c.runOnStart {
		log.Println("[INFO] scan-now enabled, executing scan")
		go sched.RunScanNow()
	}

	srv := server.New(a.svc, a.cfg.Scan.TopK)
	if err := srv.ListenAndServe(ctx, a.cfg.Server.Addr); err != nil {
		return fail(err)
	}
	log.Println("[INFO] TrendAdvisor stopped")
	return subcommands.ExitSuccess
}

type scanCmd struct {
	topK   int
	asJSON bool
}

func (*scanCmd) Name() string     { return "scan" }
func (*scanCmd) Synopsis() string { return "scan the universe and rank candidates" }
func (*scanCmd) Usage() string {
	return `advisor scan [-k n] [-json]

  Scans the configured universe and prints candidates ranked by distance from
  the reference indicator.
`
}

func (c *scanCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.topK, "k", 0, "limit the number of candidates (0 means all)")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")
}

func (c *scanCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	res, err := a.svc.RefreshScan(ctx)
	if err != nil {
		return fail(err)
	}
	if c.topK > 0 && c.topK < len(res.Candidates) {
		trimmed := *res
		trimmed.Candidates = res.Candidates[:c.topK]
		res = &trimmed
	}
	if c.asJSON {
		return printJSON(res.Candidates)
	}
	printMarkdown(scanMarkdown(res, a.svc.Reference()))
	return subcommands.ExitSuccess
}

type holdingsCmd struct {
	asJSON bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "classify holdings against the strategy" }
func (*holdingsCmd) Usage() string {
	return `advisor holdings [-json]

  Classifies every stored holding against the strategy. With -json prints the
  /api/dashboard payload.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "print the dashboard JSON")
}

func (c *holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if c.asJSON {
		d, err := a.svc.Dashboard(ctx)
		if err != nil {
			return fail(err)
		}
		return printJSON(d)
	}
	rep, err := a.svc.HoldingsReport(ctx)
	if err != nil {
		if collector.IsAuth(err) {
			fmt.Fprintln(os.Stderr, "Broker session invalid, run `advisor login -token <access token>`.")
		}
		return fail(err)
	}
	printMarkdown(holdingsMarkdown(rep, a.svc.Definition().Name))
	return subcommands.ExitSuccess
}

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "pull holdings from the broker" }
func (*syncCmd) Usage() string {
	return `advisor sync

  Fetches holdings from the broker and saves them to the portfolio file.
`
}

func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (*syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	n, err := a.svc.SyncPortfolio(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Synced %d holdings to %s\n", n, a.cfg.Portfolio.Path)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	token  string
	public string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "save a broker access token" }
func (*loginCmd) Usage() string {
	return `advisor login -token <access token> [-public <public token>]

  Stores the broker session so a running server picks it up on its next call.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.token, "token", "", "broker access token")
	f.StringVar(&c.public, "public", "", "broker public token")
}

func (c *loginCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.token == "" {
		fmt.Fprintln(os.Stderr, "Error: -token is required")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	if err := session.NewStore(cfg.Broker.SessionFile, "").Save(c.token, c.public); err != nil {
		return fail(err)
	}
	fmt.Printf("Session saved to %s\n", cfg.Broker.SessionFile)
	return subcommands.ExitSuccess
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
