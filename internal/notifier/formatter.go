package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TrendAdvisor/internal/portfolio"
	"TrendAdvisor/internal/recorder"
	"TrendAdvisor/internal/scanner"
	"TrendAdvisor/internal/strategy"
)

// FormatScanReport formats the closest candidates of a scan into a Telegram message.
func FormatScanReport(res *scanner.Result, reference string, limit int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Top candidates near %s</b> | %s\n\n", html.EscapeString(reference), time.Now().Format("2006-01-02 15:04")))

	if len(res.Candidates) == 0 {
		b.WriteString("No symbols matched.\n")
	}
	for i, c := range res.Candidates {
		if limit > 0 && i >= limit {
			b.WriteString(fmt.Sprintf("… and %d more\n", len(res.Candidates)-limit))
			break
		}
		badge := strategy.BandBadge(c.Band)
		b.WriteString(fmt.Sprintf("%s %d. <b>%s</b> ₹%.2f (%+.2f%%)\n",
			badge.Emoji, i+1, html.EscapeString(c.Symbol), c.CurrentPrice, c.DistancePct))
	}

	b.WriteString(fmt.Sprintf("\nScanned %d, dropped %d, took %s", res.Scanned, len(res.Dropped), res.Elapsed.Round(time.Second)))
	if res.Partial {
		b.WriteString("\n⚠️ Deadline reached, results are partial")
	}
	return b.String()
}

// FormatHoldingsReport formats classified holdings for display.
func FormatHoldingsReport(rep *portfolio.Report, strategyName string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Holdings vs %s</b>\n\n", html.EscapeString(strategyName)))

	p := rep.Performance
	b.WriteString(fmt.Sprintf("1D %+.2f%% | 1W %+.2f%% | 1M %+.2f%%\n\n", p.DailyPct, p.WeeklyPct, p.MonthlyPct))

	if len(rep.Holdings) == 0 {
		b.WriteString("No holdings.\n")
	}
	for _, h := range rep.Holdings {
		badge := strategy.BadgeFor(h.Classification)
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s | P&amp;L ₹%.2f (%+.2f%%)\n",
			badge.Emoji, html.EscapeString(h.Holding.Symbol), badge.Label, h.Holding.PnL(), h.Holding.PnLPct()))
		if h.Warning != "" {
			b.WriteString(fmt.Sprintf("   ⚠️ %s\n", html.EscapeString(h.Warning)))
		}
	}
	return b.String()
}

// FormatScanHistory lists recent scans.
func FormatScanHistory(scans []recorder.ScanSummary) string {
	if len(scans) == 0 {
		return "No scans recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent scans</b>\n\n")
	for _, s := range scans {
		flag := ""
		if s.Partial {
			flag = " ⚠️"
		}
		b.WriteString(fmt.Sprintf("%s: %d candidates, %d dropped, closest %s%s\n",
			s.StartedAt.Format("01-02 15:04"), s.Candidates, s.Dropped, html.EscapeString(s.Closest), flag))
	}
	return b.String()
}
