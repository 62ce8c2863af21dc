package types

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Direction is the discrete trading intent of a signal.
type Direction int8

const (
	// DirectionShort asks to sell / exit a long position.
	DirectionShort Direction = -1
	// DirectionFlat asks for no change.
	DirectionFlat Direction = 0
	// DirectionLong asks to buy / enter a long position.
	DirectionLong Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionShort:
		return "short"
	case DirectionFlat:
		return "flat"
	case DirectionLong:
		return "long"
	default:
		return fmt.Sprintf("Direction(%d)", int8(d))
	}
}

// Signal is the per-bar output of a strategy.
type Signal struct {
	// Time is the timestamp of the bar the signal belongs to
	Time time.Time
	// Value is None while the indicator is still in its warm-up window
	Value optional.Option[Direction]
	// Indicator is the indicator that generated the signal
	Indicator IndicatorType
	// Reason is a human readable explanation
	Reason string
	// RawValue holds the indicator values the decision was based on
	RawValue map[string]float64
}

// IsDefined reports whether the signal is outside the warm-up window.
func (s Signal) IsDefined() bool {
	return s.Value.IsSome()
}

// Direction returns the signal value or UndefinedIndicatorWindow while warming up.
func (s Signal) Direction() (Direction, error) {
	if s.Value.IsNone() {
		return DirectionFlat, errors.Newf(errors.ErrCodeUndefinedIndicatorWindow,
			"signal at %s is inside the %s warm-up window", s.Time.Format(time.RFC3339), s.Indicator)
	}

	return s.Value.Unwrap(), nil
}

// UndefinedSignal returns a warm-up placeholder for t.
func UndefinedSignal(t time.Time, indicator IndicatorType) Signal {
	return Signal{
		Time:      t,
		Value:     optional.None[Direction](),
		Indicator: indicator,
		Reason:    "warm-up",
		RawValue:  nil,
	}
}
