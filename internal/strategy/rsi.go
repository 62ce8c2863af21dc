package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RSI buys when RSI is below oversold, sells when it is above overbought and
// is flat in between.
type RSI struct {
	rsi        *indicator.RSI
	period     int
	oversold   float64
	overbought float64
}

// NewRSI creates the strategy with the given period and thresholds.
func NewRSI(period int, oversold, overbought float64) (*RSI, error) {
	rsi, err := indicator.NewRSIWithPeriod(period)
	if err != nil {
		return nil, fmt.Errorf("invalid RSI period: %w", err)
	}

	if oversold >= overbought {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold,
			"oversold (%v) must be less than overbought (%v)", oversold, overbought)
	}

	return &RSI{
		rsi:        rsi,
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}, nil
}

func (r *RSI) Type() types.StrategyType {
	return types.StrategyTypeRSI
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d,%s,%s)", r.period, formatFloat(r.oversold), formatFloat(r.overbought))
}

func (r *RSI) WarmUp() int {
	return r.rsi.WarmUp()
}

func (r *RSI) SupportsSimulation() bool {
	return true
}

func (r *RSI) Signals(series types.BarSeries) ([]types.Signal, error) {
	lines, err := r.rsi.Compute(series)
	if err != nil {
		return nil, fmt.Errorf("failed to compute RSI: %w", err)
	}

	line := lines["rsi"]
	signals := make([]types.Signal, series.Len())

	for i, bar := range series.Bars {
		if line[i].IsNone() {
			signals[i] = types.UndefinedSignal(bar.Time, types.IndicatorTypeRSI)

			continue
		}

		value := line[i].Unwrap()
		direction := types.DirectionFlat
		reason := "No signal"

		if value < r.oversold {
			direction = types.DirectionLong
			reason = fmt.Sprintf("RSI oversold (value=%.2f)", value)
		} else if value > r.overbought {
			direction = types.DirectionShort
			reason = fmt.Sprintf("RSI overbought (value=%.2f)", value)
		}

		signals[i] = types.Signal{
			Time:      bar.Time,
			Value:     optional.Some(direction),
			Indicator: types.IndicatorTypeRSI,
			Reason:    reason,
			RawValue: map[string]float64{
				"rsi": value,
			},
		}
	}

	return signals, nil
}
