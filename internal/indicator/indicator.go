package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Line is one numeric series aligned with the bars it was computed from.
// Entries inside the warm-up window are None.
type Line []optional.Option[float64]

// Lines holds the named output lines of an indicator, e.g. "upper", "middle", "lower".
type Lines map[string]Line

// Indicator interface defines methods that any technical indicator must implement
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Config sets the indicator parameters
	Config(params ...any) error
	// Compute returns the indicator lines for every bar of the series
	Compute(series types.BarSeries) (Lines, error)
	// WarmUp returns the number of leading bars with undefined output
	WarmUp() int
}

// At returns the value at index i, or None when i is out of range.
func (l Line) At(i int) optional.Option[float64] {
	if i < 0 || i >= len(l) {
		return optional.None[float64]()
	}

	return l[i]
}

// Defined returns the number of defined entries.
func (l Line) Defined() int {
	count := 0

	for _, v := range l {
		if v.IsSome() {
			count++
		}
	}

	return count
}
