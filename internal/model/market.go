package model

import "time"

// Instrument is an exchange symbol, e.g. "005930".
type Instrument string

// Bar represents a single trading-day observation.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the bars of one instrument in ascending date order.
type PriceSeries struct {
	Instrument Instrument
	Bars       []Bar
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns a fresh slice of closing prices.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// DateRange is an inclusive range of trading dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LookbackRange returns the range [end-days, end] truncated to calendar days.
func LookbackRange(end time.Time, days int) DateRange {
	end = TruncateDay(end)
	return DateRange{Start: end.AddDate(0, 0, -days), End: end}
}

// TruncateDay drops the clock part of t, keeping its location.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
