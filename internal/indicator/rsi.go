package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RSI represents the Relative Strength Index indicator.
//
// Gains and losses are averaged with a simple rolling mean over period close
// deltas, so the first defined value is at index period.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	return &RSI{
		period: 14, // Default period
	}
}

// NewRSIWithPeriod creates an RSI indicator with the given period.
func NewRSIWithPeriod(period int) (*RSI, error) {
	r := &RSI{}
	if err := r.Config(period); err != nil {
		return nil, err
	}

	return r, nil
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) < 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects at least 1 parameter: period (int)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	if err := validatePeriod(period); err != nil {
		return err
	}

	r.period = period

	return nil
}

// WarmUp implements Indicator.
func (r *RSI) WarmUp() int {
	return r.period
}

// Compute returns the "rsi" line. A window whose average loss is exactly
// zero has RSI 100.
func (r *RSI) Compute(series types.BarSeries) (Lines, error) {
	closes := series.Closes()
	line := make(Line, len(closes))

	for i := range closes {
		line[i] = optional.None[float64]()
	}

	if len(closes) <= r.period {
		return Lines{"rsi": line}, nil
	}

	// gains[k] and losses[k] describe the move from close k to close k+1
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGains := rollingMean(gains, r.period)
	avgLosses := rollingMean(losses, r.period)

	for k := r.period - 1; k < len(gains); k++ {
		avgGain := avgGains[k].Unwrap()
		avgLoss := avgLosses[k].Unwrap()

		line[k+1] = optional.Some(rsiValue(avgGain, avgLoss))
	}

	return Lines{"rsi": line}, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
