package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"MarketScreener/internal/recorder"
	"MarketScreener/internal/screener"
	"MarketScreener/internal/strategy"
)

// DefaultMaxRows caps the table rows included in one message.
const DefaultMaxRows = 30

var screenTitles = map[strategy.Kind]string{
	strategy.KindMovingAverageBreakout: "MA breakout",
	strategy.KindRSICap:                "Low RSI / large cap",
}

func title(kind strategy.Kind) string {
	if t, ok := screenTitles[kind]; ok {
		return t
	}
	return string(kind)
}

// FormatReport formats a screen report into a Telegram message.
func FormatReport(r *screener.Report, maxRows int) string {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n", title(r.Screen), r.AsOf.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Screened %s instruments, %d matched, %d failed (%s)\n\n",
		humanize.Comma(int64(r.Stats.Total)), r.Stats.Matched, r.Stats.Failed,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Second)))

	if r.Table.Len() == 0 {
		b.WriteString("No instruments matched today.")
		return b.String()
	}

	b.WriteString("<pre>")
	b.WriteString(html.EscapeString(strings.Join(r.Table.Columns, " | ")))
	b.WriteString("\n")
	for i, row := range r.Table.Rows {
		if i == maxRows {
			b.WriteString(fmt.Sprintf("... and %d more\n", r.Table.Len()-maxRows))
			break
		}
		b.WriteString(html.EscapeString(strings.Join(row, " | ")))
		b.WriteString("\n")
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatFailure formats a run that could not complete.
func FormatFailure(kind strategy.Kind, err error) string {
	return fmt.Sprintf("⚠️ <b>%s</b> failed\n%s", title(kind), html.EscapeString(err.Error()))
}

// FormatHistory lists recent runs.
func FormatHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s  %s  %s  rows=%d failed=%d\n",
			r.StartedAt.Format("01-02 15:04"), title(strategy.Kind(r.Screen)), r.Status, r.Rows, r.Stats.Failed))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/ma - run the MA breakout screen (latest bar)\n" +
		"/rsi [threshold] - run the low RSI / large cap screen\n" +
		"/history - show recent runs\n" +
		"/help - show this message"
}
