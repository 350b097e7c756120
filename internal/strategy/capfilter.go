package strategy

import "MarketScreener/internal/model"

// CapFilter rejects instruments whose capitalization is below Floor.
// A nil filter passes everything.
type CapFilter struct {
	Floor float64
}

// Passes reports whether instr is listed in snap with a capitalization of at least Floor.
// Instruments missing from the snapshot fail.
func (f *CapFilter) Passes(instr model.Instrument, snap *model.CapSnapshot) bool {
	if f == nil {
		return true
	}
	c, ok := snap.Lookup(instr)
	return ok && c >= f.Floor
}
