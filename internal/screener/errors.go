package screener

import (
	"errors"
	"fmt"

	"MarketScreener/internal/model"
	"MarketScreener/internal/strategy"
)

// Per-instrument outcomes. None of them aborts a run.
var (
	ErrDataUnavailable     = errors.New("price series unavailable")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrFilteredOut         = errors.New("below capitalization floor")
	ErrNoMatch             = strategy.ErrNoMatch
	ErrIndeterminate       = strategy.ErrIndeterminate
)

// Run-level failures returned by the entry points.
var (
	ErrUniverseUnavailable = errors.New("universe unavailable")
	ErrSnapshotUnavailable = errors.New("capitalization snapshot unavailable")
)

// ExternalFetchError is a collaborator failure scoped to one instrument.
type ExternalFetchError struct {
	Op         string
	Instrument model.Instrument
	Err        error
}

func (e *ExternalFetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Instrument, e.Err)
}

func (e *ExternalFetchError) Unwrap() error { return e.Err }

// isExpected reports whether err is an ordinary "no result" rather than a failure.
func isExpected(err error) bool {
	return errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrFilteredOut) ||
		errors.Is(err, ErrNoMatch) ||
		errors.Is(err, ErrIndeterminate)
}
