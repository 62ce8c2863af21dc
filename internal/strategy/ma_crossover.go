package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MovingAverageCrossover is long while the short SMA is above the long SMA
// and short otherwise. It never emits a flat signal once both averages are
// defined.
type MovingAverageCrossover struct {
	short *indicator.MA
	long  *indicator.MA
}

// NewMovingAverageCrossover creates the strategy with the given windows.
func NewMovingAverageCrossover(shortWindow, longWindow int) (*MovingAverageCrossover, error) {
	short, err := indicator.NewMAWithPeriod(shortWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid short window: %w", err)
	}

	long, err := indicator.NewMAWithPeriod(longWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid long window: %w", err)
	}

	return &MovingAverageCrossover{short: short, long: long}, nil
}

func (m *MovingAverageCrossover) Type() types.StrategyType {
	return types.StrategyTypeMovingAverageCrossover
}

func (m *MovingAverageCrossover) Name() string {
	return fmt.Sprintf("SMA(%d,%d)", m.short.Period(), m.long.Period())
}

func (m *MovingAverageCrossover) WarmUp() int {
	return max(m.short.WarmUp(), m.long.WarmUp())
}

func (m *MovingAverageCrossover) SupportsSimulation() bool {
	return true
}

func (m *MovingAverageCrossover) Signals(series types.BarSeries) ([]types.Signal, error) {
	shortLines, err := m.short.Compute(series)
	if err != nil {
		return nil, fmt.Errorf("failed to compute short MA: %w", err)
	}

	longLines, err := m.long.Compute(series)
	if err != nil {
		return nil, fmt.Errorf("failed to compute long MA: %w", err)
	}

	shortMA := shortLines["ma"]
	longMA := longLines["ma"]
	signals := make([]types.Signal, series.Len())

	for i, bar := range series.Bars {
		if shortMA[i].IsNone() || longMA[i].IsNone() {
			signals[i] = types.UndefinedSignal(bar.Time, types.IndicatorTypeMA)

			continue
		}

		shortValue := shortMA[i].Unwrap()
		longValue := longMA[i].Unwrap()

		direction := types.DirectionShort
		reason := "short MA at or below long MA"

		if shortValue > longValue {
			direction = types.DirectionLong
			reason = "short MA above long MA"
		}

		signals[i] = types.Signal{
			Time:      bar.Time,
			Value:     optional.Some(direction),
			Indicator: types.IndicatorTypeMA,
			Reason:    reason,
			RawValue: map[string]float64{
				"short_ma": shortValue,
				"long_ma":  longValue,
			},
		}
	}

	return signals, nil
}
