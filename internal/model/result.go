package model

import "time"

// CapSnapshot maps instruments to market capitalization as of one date.
// It must not be mutated after it is handed to screening tasks.
type CapSnapshot struct {
	AsOf time.Time
	Caps map[Instrument]float64
}

// Lookup returns the capitalization of instr, if listed.
func (s *CapSnapshot) Lookup(instr Instrument) (float64, bool) {
	if s == nil || s.Caps == nil {
		return 0, false
	}
	c, ok := s.Caps[instr]
	return c, ok
}

// ScreeningResult is one matched instrument. Immutable once created.
type ScreeningResult struct {
	Instrument    Instrument
	Date          time.Time
	Price         float64
	Indicator     float64
	IndicatorName string
	MarketCap     Value
}
