package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// LoadSeries reads the bars of symbol within [start, end] into one validated
// series. Bars from every partition are concatenated and re-sorted. When loc
// is not nil bar times are converted to it so that day and month windows
// follow the exchange calendar.
func LoadSeries(
	ds DataSource,
	symbol string,
	base types.Timeframe,
	start optional.Option[time.Time],
	end optional.Option[time.Time],
	loc *time.Location,
) (types.BarSeries, error) {
	if start.IsSome() && end.IsSome() && start.Unwrap().After(end.Unwrap()) {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeInvalidDateRange, "start %s is after end %s",
			start.Unwrap().Format(time.RFC3339), end.Unwrap().Format(time.RFC3339))
	}

	var bars []types.Bar

	for bar, err := range ds.ReadAll(symbol, start, end) {
		if err != nil {
			return types.BarSeries{}, err
		}

		if loc != nil {
			bar.Time = bar.Time.In(loc)
		}

		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeEmptySeries, "no bars for %s in the requested range", symbol)
	}

	series := types.NewBarSeries(symbol, base, bars)
	if err := series.Validate(); err != nil {
		return types.BarSeries{}, err
	}

	return series, nil
}
