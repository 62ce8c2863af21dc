package types

import (
	"strings"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Timeframe is the bar interval a series is sampled at.
type Timeframe string

const (
	TimeframeOneMinute   Timeframe = "1m"
	TimeframeFiveMinutes Timeframe = "5m"
	TimeframeOneHour     Timeframe = "1h"
	TimeframeOneDay      Timeframe = "1d"
	// TimeframeOneMonth buckets bars by calendar month and labels each bucket with the month-end date.
	TimeframeOneMonth Timeframe = "1M"
)

// Timeframes lists every supported timeframe in ascending order.
func Timeframes() []Timeframe {
	return []Timeframe{
		TimeframeOneMinute,
		TimeframeFiveMinutes,
		TimeframeOneHour,
		TimeframeOneDay,
		TimeframeOneMonth,
	}
}

var timeframeAliases = map[string]Timeframe{
	"1m":        TimeframeOneMinute,
	"1min":      TimeframeOneMinute,
	"1t":        TimeframeOneMinute,
	"1 minute":  TimeframeOneMinute,
	"5m":        TimeframeFiveMinutes,
	"5min":      TimeframeFiveMinutes,
	"5t":        TimeframeFiveMinutes,
	"5 minutes": TimeframeFiveMinutes,
	"1h":        TimeframeOneHour,
	"1 hour":    TimeframeOneHour,
	"1d":        TimeframeOneDay,
	"1 day":     TimeframeOneDay,
	"1me":       TimeframeOneMonth,
	"1 month":   TimeframeOneMonth,
}

// ParseTimeframe accepts the canonical values ("1m", "5m", "1h", "1d", "1M"),
// human labels ("5 minutes", "1 hour") and pandas-style aliases ("5Min", "1ME").
func ParseTimeframe(value string) (Timeframe, error) {
	trimmed := strings.TrimSpace(value)
	// "1M" is month, "1m" is minute; only the exact canonical form is case sensitive.
	if trimmed == string(TimeframeOneMonth) {
		return TimeframeOneMonth, nil
	}

	if tf, ok := timeframeAliases[strings.ToLower(trimmed)]; ok {
		return tf, nil
	}

	return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "invalid timeframe: %q", value)
}

// Validate reports InvalidTimeframe for values outside the enumerated set.
func (t Timeframe) Validate() error {
	for _, tf := range Timeframes() {
		if t == tf {
			return nil
		}
	}

	return errors.Newf(errors.ErrCodeInvalidTimeframe, "invalid timeframe: %q", string(t))
}

// Duration returns the fixed window length. Month buckets have no fixed
// length and return 0.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeOneMinute:
		return time.Minute
	case TimeframeFiveMinutes:
		return 5 * time.Minute
	case TimeframeOneHour:
		return time.Hour
	case TimeframeOneDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// String implements fmt.Stringer.
func (t Timeframe) String() string {
	return string(t)
}

// Label returns the human readable name ("5 minutes", "1 month").
func (t Timeframe) Label() string {
	switch t {
	case TimeframeOneMinute:
		return "1 minute"
	case TimeframeFiveMinutes:
		return "5 minutes"
	case TimeframeOneHour:
		return "1 hour"
	case TimeframeOneDay:
		return "1 day"
	case TimeframeOneMonth:
		return "1 month"
	default:
		return string(t)
	}
}

// Slug returns a case-insensitive, path-safe name ("5_minutes"). "1m" and
// "1M" only differ by case so they cannot be used as directory names directly.
func (t Timeframe) Slug() string {
	return strings.ReplaceAll(t.Label(), " ", "_")
}
