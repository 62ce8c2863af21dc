package resampler

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Resample aggregates series into non-overlapping calendar windows of the
// given timeframe. Each non-empty window yields one bar: first open, max high,
// min low, last close and summed volume. Empty windows are dropped.
//
// The input must be a valid series (see BarSeries.Validate). An empty input
// yields an empty output.
func Resample(series types.BarSeries, timeframe types.Timeframe) (types.BarSeries, error) {
	if err := timeframe.Validate(); err != nil {
		return types.BarSeries{}, err
	}

	if err := series.Validate(); err != nil {
		return types.BarSeries{}, err
	}

	out := make([]types.Bar, 0, len(series.Bars))

	for _, bar := range series.Bars {
		label := WindowLabel(bar.Time, timeframe)

		last := len(out) - 1
		if last >= 0 && !label.After(out[last].Time) {
			out[last] = merge(out[last], bar)

			continue
		}

		opened := bar
		opened.Time = label
		out = append(out, opened)
	}

	return types.BarSeries{
		Symbol:    series.Symbol,
		Timeframe: timeframe,
		Bars:      out,
	}, nil
}

// WindowLabel returns the timestamp of the window t falls in, computed in t's
// location. Minute, hour and day windows are labelled by their start; month
// windows by midnight of the last day of the month.
//
// Intraday windows are aligned on the absolute instant shifted by t's zone
// offset, so the repeated hour of a daylight-saving fall-back forms its own
// windows.
func WindowLabel(t time.Time, timeframe types.Timeframe) time.Time {
	switch timeframe {
	case types.TimeframeOneMinute, types.TimeframeFiveMinutes, types.TimeframeOneHour:
		_, offset := t.Zone()
		shift := time.Duration(offset) * time.Second

		return t.Add(shift).Truncate(timeframe.Duration()).Add(-shift)
	case types.TimeframeOneDay:
		year, month, day := t.Date()

		return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	case types.TimeframeOneMonth:
		year, month, _ := t.Date()

		// day 0 of the next month is the last day of this one
		return time.Date(year, month+1, 0, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}

func merge(window types.Bar, next types.Bar) types.Bar {
	window.High = math.Max(window.High, next.High)
	window.Low = math.Min(window.Low, next.Low)
	window.Close = next.Close
	window.Volume += next.Volume

	return window
}
