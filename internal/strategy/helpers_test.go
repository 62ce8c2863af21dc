package strategy

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

func dailySeries(closes ...float64) types.BarSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: "NSEI",
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	return types.NewBarSeries("NSEI", types.TimeframeOneDay, bars)
}

func linearCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}

	return closes
}
