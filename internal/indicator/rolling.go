package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// rollingMean is the simple (unweighted) mean of each full window.
func rollingMean(values []float64, window int) Line {
	line := make(Line, len(values))

	for i := range values {
		if i+1 < window {
			line[i] = optional.None[float64]()
			continue
		}

		sum := 0.0
		for _, v := range values[i+1-window : i+1] {
			sum += v
		}

		line[i] = optional.Some(sum / float64(window))
	}

	return line
}

// rollingStd is the sample standard deviation (n-1 denominator) of each full window.
// A window of length 1 has no sample deviation and stays undefined.
func rollingStd(values []float64, window int) Line {
	line := make(Line, len(values))

	for i := range values {
		if window < 2 || i+1 < window {
			line[i] = optional.None[float64]()
			continue
		}

		slice := values[i+1-window : i+1]

		mean := 0.0
		for _, v := range slice {
			mean += v
		}

		mean /= float64(window)

		variance := 0.0
		for _, v := range slice {
			variance += (v - mean) * (v - mean)
		}

		line[i] = optional.Some(math.Sqrt(variance / float64(window-1)))
	}

	return line
}

// intParam reads an int parameter, accepting float64 values from decoded configs.
func intParam(params []any, index int, name string) (int, error) {
	switch v := params[index].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected int or float", name)
	}
}

// floatParam reads a float64 parameter, accepting int values.
func floatParam(params []any, index int, name string) (float64, error) {
	switch v := params[index].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected float64", name)
	}
}

func validatePeriod(period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return nil
}
