package metrics

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// Mode selects trade-level or bar-level statistics.
type Mode = types.MetricsMode

const (
	ModeTrade = types.MetricsModeTrade
	ModeBar   = types.MetricsModeBar
)

// ParseMode accepts "trade" and "bar". An empty value selects trade mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case "", ModeTrade:
		return ModeTrade, nil
	case ModeBar:
		return ModeBar, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "invalid metrics mode: %q", value)
	}
}

// Calculate scores a completed trade log in the given mode. The log is only
// read. Buy-and-hold P&L is filled in both modes.
func Calculate(mode Mode, series types.BarSeries, log types.TradeLog) (types.BacktestReport, error) {
	var report types.BacktestReport

	switch mode {
	case ModeTrade:
		report = FromTrades(log)
	case ModeBar:
		var err error

		report, err = FromBars(series, log)
		if err != nil {
			return types.BacktestReport{}, err
		}
	default:
		return types.BacktestReport{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid metrics mode: %q", mode)
	}

	report.BuyAndHoldPnl = BuyAndHold(series)

	return report, nil
}

// FromTrades computes statistics from the closed trades of log. The open
// trade, if any, is ignored.
func FromTrades(log types.TradeLog) types.BacktestReport {
	total := decimal.Zero
	returns := make([]float64, 0, len(log.Closed))
	wins, losses := 0, 0

	for _, trade := range log.Closed {
		total = total.Add(trade.PnL())
		returns = append(returns, trade.Return())

		switch {
		case trade.ExitPrice > trade.EntryPrice:
			wins++
		case trade.ExitPrice < trade.EntryPrice:
			losses++
		}
	}

	return types.BacktestReport{
		Symbol:                log.Symbol,
		Mode:                  ModeTrade,
		NumberOfTrades:        len(log.Closed),
		TotalProfitLoss:       total.InexactFloat64(),
		WinRatePercent:        percent(wins, len(log.Closed)),
		SharpeRatio:           SharpeRatio(returns),
		MaxDrawdown:           MaxDrawdown(cumulativeSum(returns)),
		NumberOfWinningTrades: wins,
		NumberOfLosingTrades:  losses,
		HasOpenTrade:          log.Open.IsSome(),
	}
}

// FromBars computes statistics from the per-bar strategy return series:
// the bar's close-to-close return times the exposure held after the
// previous bar. Total P&L is the compounded return, the win rate counts
// positive bars among bars spent in the market, and drawdown is measured on
// the compounded equity curve.
func FromBars(series types.BarSeries, log types.TradeLog) (types.BacktestReport, error) {
	returns, inMarket, err := StrategyReturns(series, log)
	if err != nil {
		return types.BacktestReport{}, err
	}

	equity := make([]float64, 0, len(returns)+1)
	equity = append(equity, 1)

	positive, exposed := 0, 0

	for i, r := range returns {
		equity = append(equity, equity[len(equity)-1]*(1+r))

		if inMarket[i] {
			exposed++

			if r > 0 {
				positive++
			}
		}
	}

	wins, losses := 0, 0

	for _, trade := range log.Closed {
		switch {
		case trade.ExitPrice > trade.EntryPrice:
			wins++
		case trade.ExitPrice < trade.EntryPrice:
			losses++
		}
	}

	return types.BacktestReport{
		Symbol:                log.Symbol,
		Mode:                  ModeBar,
		NumberOfTrades:        len(log.Closed),
		TotalProfitLoss:       equity[len(equity)-1] - 1,
		WinRatePercent:        percent(positive, exposed),
		SharpeRatio:           SharpeRatio(returns),
		MaxDrawdown:           MaxDrawdown(equity),
		NumberOfWinningTrades: wins,
		NumberOfLosingTrades:  losses,
		HasOpenTrade:          log.Open.IsSome(),
	}, nil
}

// StrategyReturns returns, for bars 1..n-1, (close_i / close_i-1 - 1) times
// the exposure after bar i-1, and whether the strategy was in the market
// during that bar.
func StrategyReturns(series types.BarSeries, log types.TradeLog) ([]float64, []bool, error) {
	if len(log.Positions) != series.Len() {
		return nil, nil, errors.Newf(errors.ErrCodeSignalMisaligned,
			"trade log has %d positions for %d bars", len(log.Positions), series.Len())
	}

	if series.Len() < 2 {
		return []float64{}, []bool{}, nil
	}

	returns := make([]float64, series.Len()-1)
	inMarket := make([]bool, series.Len()-1)

	for i := 1; i < series.Len(); i++ {
		previous := series.Bars[i-1].Close
		if previous == 0 || math.IsNaN(previous) || math.IsInf(previous, 0) {
			return nil, nil, errors.Newf(errors.ErrCodeCorruptBarData, "bar %d has invalid close %v", i-1, previous)
		}

		exposure := log.Positions[i-1].Exposure()
		returns[i-1] = (series.Bars[i].Close/previous - 1) * exposure
		inMarket[i-1] = exposure != 0
	}

	return returns, inMarket, nil
}

// BuyAndHold is the last close minus the first close, 0 for an empty series.
func BuyAndHold(series types.BarSeries) float64 {
	first, last := series.First(), series.Last()
	if first.IsNone() || last.IsNone() {
		return 0
	}

	return decimal.NewFromFloat(last.Unwrap().Close).Sub(decimal.NewFromFloat(first.Unwrap().Close)).InexactFloat64()
}

// SharpeRatio is mean / population standard deviation, 0 for an empty series
// or zero deviation.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	m := mean(returns)

	variance := 0.0
	for _, r := range returns {
		variance += (r - m) * (r - m)
	}

	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}

	return m / std
}

// MaxDrawdown is the most negative value of curve minus its running maximum,
// 0 for an empty curve.
func MaxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0]
	worst := 0.0

	for _, v := range curve {
		peak = math.Max(peak, v)
		worst = math.Min(worst, v-peak)
	}

	return worst
}

func cumulativeSum(values []float64) []float64 {
	out := make([]float64, len(values))
	sum := 0.0

	for i, v := range values {
		sum += v
		out[i] = sum
	}

	return out
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}

	return 100 * float64(part) / float64(whole)
}
