package types

import (
	"math"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Bar is one OHLCV record for a fixed time interval.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol" parquet:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time" parquet:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open" parquet:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high" parquet:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low" parquet:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close" parquet:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume" parquet:"volume"`
}

// Validate checks that prices are positive and finite, volume is non-negative
// and the OHLC values are consistent (low <= open,close <= high).
func (b Bar) Validate() error {
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close},
	} {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return errors.Newf(errors.ErrCodeCorruptBarData, "bar at %s has invalid %s price %v", b.Time.Format(time.RFC3339), p.name, p.value)
		}
	}

	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return errors.Newf(errors.ErrCodeCorruptBarData, "bar at %s has invalid volume %v", b.Time.Format(time.RFC3339), b.Volume)
	}

	if b.Low > math.Min(b.Open, b.Close) || b.High < math.Max(b.Open, b.Close) {
		return errors.Newf(errors.ErrCodeCorruptBarData, "bar at %s has inconsistent OHLC (o=%v h=%v l=%v c=%v)",
			b.Time.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close)
	}

	return nil
}

// BarSeries is an ordered sequence of bars for one instrument at one timeframe.
// Timestamps are unique and strictly increasing.
type BarSeries struct {
	Symbol    string
	Timeframe Timeframe
	Bars      []Bar
}

// NewBarSeries sorts bars by time and returns a series. It does not validate;
// call Validate for that.
func NewBarSeries(symbol string, timeframe Timeframe, bars []Bar) BarSeries {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return BarSeries{
		Symbol:    symbol,
		Timeframe: timeframe,
		Bars:      sorted,
	}
}

// Len returns the number of bars.
func (s BarSeries) Len() int {
	return len(s.Bars)
}

// IsEmpty reports whether the series has no bars.
func (s BarSeries) IsEmpty() bool {
	return len(s.Bars) == 0
}

// Closes returns the close prices in order.
func (s BarSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}

	return closes
}

// First returns the first bar, if any.
func (s BarSeries) First() optional.Option[Bar] {
	if len(s.Bars) == 0 {
		return optional.None[Bar]()
	}

	return optional.Some(s.Bars[0])
}

// Last returns the last bar, if any.
func (s BarSeries) Last() optional.Option[Bar] {
	if len(s.Bars) == 0 {
		return optional.None[Bar]()
	}

	return optional.Some(s.Bars[len(s.Bars)-1])
}

// Validate checks the strictly increasing timestamp invariant and every bar.
func (s BarSeries) Validate() error {
	for i, bar := range s.Bars {
		if err := bar.Validate(); err != nil {
			return err
		}

		if i > 0 && !bar.Time.After(s.Bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeUnsortedSeries,
				"bar timestamps must be strictly increasing: %s follows %s",
				bar.Time.Format(time.RFC3339), s.Bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return nil
}

// Slice returns the bars whose time falls within [start, end]. Missing bounds
// are open. The returned series shares no memory with s.
func (s BarSeries) Slice(start optional.Option[time.Time], end optional.Option[time.Time]) (BarSeries, error) {
	if start.IsSome() && end.IsSome() && start.Unwrap().After(end.Unwrap()) {
		return BarSeries{}, errors.Newf(errors.ErrCodeInvalidDateRange, "start %s is after end %s",
			start.Unwrap().Format(time.RFC3339), end.Unwrap().Format(time.RFC3339))
	}

	from := 0
	if start.IsSome() {
		from = sort.Search(len(s.Bars), func(i int) bool {
			return !s.Bars[i].Time.Before(start.Unwrap())
		})
	}

	to := len(s.Bars)
	if end.IsSome() {
		to = sort.Search(len(s.Bars), func(i int) bool {
			return s.Bars[i].Time.After(end.Unwrap())
		})
	}

	if to < from {
		to = from
	}

	bars := make([]Bar, to-from)
	copy(bars, s.Bars[from:to])

	return BarSeries{
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		Bars:      bars,
	}, nil
}
