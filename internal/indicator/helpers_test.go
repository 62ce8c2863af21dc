package indicator

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

func seriesFromCloses(closes ...float64) types.BarSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: "TEST",
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1,
		}
	}

	return types.NewBarSeries("TEST", types.TimeframeOneDay, bars)
}

// values unwraps a line, using -1 for undefined entries.
func values(line Line) []float64 {
	out := make([]float64, len(line))
	for i, v := range line {
		out[i] = -1
		if v.IsSome() {
			out[i] = v.Unwrap()
		}
	}

	return out
}
