package marketdata

import (
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// ProviderTimespan returns the aggregate multiplier and timespan that request
// bars of the given timeframe from a provider.
func ProviderTimespan(timeframe types.Timeframe) (int, models.Timespan, error) {
	switch timeframe {
	case types.TimeframeOneMinute:
		return 1, models.Minute, nil
	case types.TimeframeFiveMinutes:
		return 5, models.Minute, nil
	case types.TimeframeOneHour:
		return 1, models.Hour, nil
	case types.TimeframeOneDay:
		return 1, models.Day, nil
	case types.TimeframeOneMonth:
		return 1, models.Month, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidTimeframe, "no provider interval for timeframe %q", string(timeframe))
	}
}
