package calculator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketScreener/internal/model"
)

// State is the position of the close relative to a reference indicator.
type State int

const (
	StateUndefined State = iota
	StateBelow
	StateAbove
)

func (s State) String() string {
	switch s {
	case StateBelow:
		return "BELOW"
	case StateAbove:
		return "ABOVE"
	default:
		return "UNDEFINED"
	}
}

// Crossover is emitted when the close moves from at-or-below to strictly above the reference.
type Crossover struct {
	Instrument model.Instrument
	Index      int
	Date       time.Time
	Close      float64
	Reference  float64
}

// CrossoverDetector tracks the BELOW/ABOVE state of one instrument bar by bar.
// Only BELOW -> ABOVE emits; the first present bar establishes the state silently.
type CrossoverDetector struct {
	// RequireRisingClose additionally requires the crossing bar to close above the previous bar.
	RequireRisingClose bool

	state     State
	prevClose float64
}

// Step feeds one bar and reports whether it is a breakout.
// Bars without a reference reading leave the state untouched.
func (d *CrossoverDetector) Step(close float64, ref model.Value) bool {
	if !ref.OK {
		return false
	}
	next := StateBelow
	if close > ref.V {
		next = StateAbove
	}
	emit := d.state == StateBelow && next == StateAbove
	if emit && d.RequireRisingClose && close <= d.prevClose {
		emit = false
	}
	d.state = next
	d.prevClose = close
	return emit
}

// ScanMode selects how a series is searched for a breakout.
type ScanMode int

const (
	// ScanHistorical walks the whole series and reports the first breakout.
	ScanHistorical ScanMode = iota
	// ScanLatest only inspects the transition between the final two bars.
	ScanLatest
)

func (m ScanMode) String() string {
	if m == ScanLatest {
		return "latest"
	}
	return "historical"
}

// ParseScanMode converts a config value into a ScanMode.
func ParseScanMode(s string) (ScanMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "historical", "discovery":
		return ScanHistorical, nil
	case "latest", "daily", "alert":
		return ScanLatest, nil
	default:
		return ScanHistorical, fmt.Errorf("unknown scan mode %q", s)
	}
}

// ErrLengthMismatch is returned when indicator values are not aligned with the bars.
var ErrLengthMismatch = errors.New("indicator length does not match series length")

// Scanner runs a CrossoverDetector over a series in the configured mode.
type Scanner struct {
	Mode               ScanMode
	RequireRisingClose bool
}

// Scan returns the breakout found in series against ref, if any.
func (s Scanner) Scan(series *model.PriceSeries, ref []model.Value) (Crossover, bool, error) {
	if len(ref) != series.Len() {
		return Crossover{}, false, ErrLengthMismatch
	}
	det := &CrossoverDetector{RequireRisingClose: s.RequireRisingClose}

	from := 0
	if s.Mode == ScanLatest {
		n := series.Len()
		if n < 2 || !ref[n-2].OK || !ref[n-1].OK {
			return Crossover{}, false, nil
		}
		from = n - 2
	}

	for i := from; i < series.Len(); i++ {
		bar := series.Bars[i]
		if det.Step(bar.Close, ref[i]) {
			return Crossover{
				Instrument: series.Instrument,
				Index:      i,
				Date:       bar.Date,
				Close:      bar.Close,
				Reference:  ref[i].V,
			}, true, nil
		}
	}
	return Crossover{}, false, nil
}
