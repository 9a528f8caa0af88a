package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"TrendAdvisor/internal/portfolio"
	"TrendAdvisor/internal/scanner"
	"TrendAdvisor/internal/strategy"
)

// scanMarkdown renders a scan result as a markdown table.
func scanMarkdown(res *scanner.Result, reference string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Candidates near %s\n\n", reference)
	fmt.Fprintf(&b, "Scanned **%d** symbols in %s, dropped **%d**.\n\n",
		res.Scanned, res.Elapsed.Round(time.Millisecond), len(res.Dropped))
	if res.Partial {
		b.WriteString("> Deadline reached, the result is partial.\n\n")
	}

	if len(res.Candidates) == 0 {
		b.WriteString("_No symbols matched._\n")
	} else {
		fmt.Fprintf(&b, "| # | Symbol | Price | %s | Distance | Band |\n", reference)
		b.WriteString("|---:|:---|---:|---:|---:|:---|\n")
		for i, c := range res.Candidates {
			badge := strategy.BandBadge(c.Band)
			fmt.Fprintf(&b, "| %d | %s | %.2f | %.2f | %+.2f%% | %s %s |\n",
				i+1, c.Symbol, c.CurrentPrice, c.Reference, c.DistancePct, badge.Emoji, badge.Label)
		}
	}

	if len(res.Dropped) > 0 {
		b.WriteString("\n## Dropped\n\n")
		for _, sym := range res.DroppedSymbols() {
			fmt.Fprintf(&b, "- **%s**: %s\n", sym, res.Dropped[sym])
		}
	}
	return b.String()
}

// holdingsMarkdown renders a classified portfolio as a markdown table.
func holdingsMarkdown(rep *portfolio.Report, strategyName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Holdings vs %s\n\n", strategyName)
	p := rep.Performance
	fmt.Fprintf(&b, "| 1D | 1W | 1M |\n|---:|---:|---:|\n| %+.2f%% | %+.2f%% | %+.2f%% |\n\n",
		p.DailyPct, p.WeeklyPct, p.MonthlyPct)

	if len(rep.Holdings) == 0 {
		b.WriteString("_No holdings._\n")
		return b.String()
	}
	b.WriteString("| Symbol | Qty | Avg | Last | P&L | P&L % | Match |\n")
	b.WriteString("|:---|---:|---:|---:|---:|---:|:---|\n")
	var warnings []string
	for _, ch := range rep.Holdings {
		h := ch.Holding
		badge := strategy.BadgeFor(ch.Classification)
		fmt.Fprintf(&b, "| %s | %g | %.2f | %.2f | %.2f | %+.2f%% | %s %s |\n",
			h.Symbol, h.Quantity, h.AvgCost, h.CurrentPrice, h.PnL(), h.PnLPct(), badge.Emoji, badge.Label)
		if ch.Warning != "" {
			warnings = append(warnings, fmt.Sprintf("- **%s**: %s", h.Symbol, ch.Warning))
		}
	}
	if len(warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		b.WriteString(strings.Join(warnings, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func printMarkdown(md string) {
	out, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Fprintln(os.Stderr, "render markdown:", err)
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
