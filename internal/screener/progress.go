package screener

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"MarketScreener/internal/pool"
)

// TerminalProgress rewrites a single progress line on w.
type TerminalProgress struct {
	Label string

	mu sync.Mutex
	w  io.Writer
}

// NewTerminalProgress creates a progress printer.
func NewTerminalProgress(w io.Writer, label string) *TerminalProgress {
	return &TerminalProgress{Label: label, w: w}
}

// Observe implements pool.Observer.
func (p *TerminalProgress) Observe(pr pool.Progress) {
	if pr.Total == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pct := pr.Completed * 100 / pr.Total
	fmt.Fprintf(p.w, "\r%s: %s / %s (%d%%)", p.Label,
		humanize.Comma(int64(pr.Completed)), humanize.Comma(int64(pr.Total)), pct)
	if pr.Completed == pr.Total {
		fmt.Fprintln(p.w)
	}
}
