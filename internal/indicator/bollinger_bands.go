package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BollingerBands computes a middle SMA band and upper/lower bands at
// numStdDev sample standard deviations.
type BollingerBands struct {
	period    int
	numStdDev float64
}

// NewBollingerBands creates a new Bollinger Bands indicator with default configuration.
func NewBollingerBands() Indicator {
	return &BollingerBands{
		period:    20,
		numStdDev: 2,
	}
}

// NewBollingerBandsWith creates Bollinger Bands with the given window and width.
func NewBollingerBandsWith(period int, numStdDev float64) (*BollingerBands, error) {
	bb := &BollingerBands{}
	if err := bb.Config(period, numStdDev); err != nil {
		return nil, err
	}

	return bb, nil
}

// Name returns the name of the indicator.
func (bb *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config configures the indicator. Expected parameters: period (int), numStdDev (float64).
func (bb *BollingerBands) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 2 parameters: period (int), numStdDev (float64)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	if err := validatePeriod(period); err != nil {
		return err
	}

	numStdDev, err := floatParam(params, 1, "numStdDev")
	if err != nil {
		return err
	}

	if numStdDev <= 0 {
		return errors.Newf(errors.ErrCodeInvalidStdDev, "numStdDev must be positive, got %f", numStdDev)
	}

	bb.period = period
	bb.numStdDev = numStdDev

	return nil
}

// WarmUp implements Indicator.
func (bb *BollingerBands) WarmUp() int {
	return bb.period - 1
}

// Compute returns the "upper", "middle" and "lower" lines.
func (bb *BollingerBands) Compute(series types.BarSeries) (Lines, error) {
	closes := series.Closes()
	middle := rollingMean(closes, bb.period)
	std := rollingStd(closes, bb.period)

	upper := make(Line, len(closes))
	lower := make(Line, len(closes))

	for i := range closes {
		if middle[i].IsNone() || std[i].IsNone() {
			upper[i] = optional.None[float64]()
			lower[i] = optional.None[float64]()

			continue
		}

		width := bb.numStdDev * std[i].Unwrap()
		upper[i] = optional.Some(middle[i].Unwrap() + width)
		lower[i] = optional.Some(middle[i].Unwrap() - width)
	}

	return Lines{
		"upper":  upper,
		"middle": middle,
		"lower":  lower,
	}, nil
}
