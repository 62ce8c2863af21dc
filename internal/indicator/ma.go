package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MA indicator implements Simple Moving Average calculation.
type MA struct {
	period int
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	return &MA{
		period: 20, // Default period
	}
}

// NewMAWithPeriod creates an MA indicator with the given period.
func NewMAWithPeriod(period int) (*MA, error) {
	m := &MA{}
	if err := m.Config(period); err != nil {
		return nil, err
	}

	return m, nil
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Period returns the configured window length.
func (m *MA) Period() int {
	return m.period
}

// Config configures the MA indicator. Expected parameters: period (int).
func (m *MA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	if err := validatePeriod(period); err != nil {
		return err
	}

	m.period = period

	return nil
}

// WarmUp implements Indicator.
func (m *MA) WarmUp() int {
	return m.period - 1
}

// Compute returns the "ma" line: the mean close of each full window.
func (m *MA) Compute(series types.BarSeries) (Lines, error) {
	return Lines{
		"ma": rollingMean(series.Closes(), m.period),
	}, nil
}
