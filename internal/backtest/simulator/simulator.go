package simulator

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Config holds the simulation parameters of one run.
type Config struct {
	// StopLossPct is a fraction in [0, 1). A long position is closed when the
	// close falls below entry * (1 - StopLossPct).
	StopLossPct float64
}

// Validate checks the stop loss range.
func (c Config) Validate() error {
	if c.StopLossPct < 0 || c.StopLossPct >= 1 {
		return errors.Newf(errors.ErrCodeInvalidStopLoss, "stop loss must be in [0, 1), got %v", c.StopLossPct)
	}

	return nil
}

// Position is the state carried from one bar to the next.
type Position struct {
	State types.PositionState
	// Open is the trade held while State is Long.
	Open optional.Option[types.Trade]
}

// Flat is the initial position of every run.
func Flat() Position {
	return Position{
		State: types.PositionStateFlat,
		Open:  optional.None[types.Trade](),
	}
}

// Step applies one bar's transition to pos. It returns the next position and
// the trade closed on this bar, if any. Rules in priority order:
//
//	Flat, signal +1            -> open at close, Long
//	Long, signal -1            -> close at close (signal_reversal), Flat
//	Long, close < stop price   -> close at close (stop_loss), Flat
//	otherwise                  -> unchanged
//
// The stop price is fixed when the trade opens.
func Step(pos Position, bar types.Bar, direction types.Direction, config Config) (Position, optional.Option[types.Trade]) {
	noTrade := optional.None[types.Trade]()

	switch pos.State {
	case types.PositionStateFlat:
		if direction != types.DirectionLong {
			return pos, noTrade
		}

		trade := types.Trade{
			ID:         uuid.NewString(),
			Symbol:     bar.Symbol,
			EntryTime:  bar.Time,
			EntryPrice: bar.Close,
			StopPrice:  bar.Close * (1 - config.StopLossPct),
		}

		return Position{State: types.PositionStateLong, Open: optional.Some(trade)}, noTrade

	case types.PositionStateLong:
		trade := pos.Open.Unwrap()

		switch {
		case direction == types.DirectionShort:
			return Flat(), optional.Some(closeTrade(trade, bar, types.ExitReasonSignalReversal))
		case bar.Close < trade.StopPrice:
			return Flat(), optional.Some(closeTrade(trade, bar, types.ExitReasonStopLoss))
		default:
			return pos, noTrade
		}
	}

	return pos, noTrade
}

func closeTrade(trade types.Trade, bar types.Bar, reason types.ExitReason) types.Trade {
	trade.ExitTime = bar.Time
	trade.ExitPrice = bar.Close
	trade.ExitReason = reason

	return trade
}

// Simulate runs the Flat/Long state machine over series, one bar at a time in
// timestamp order. signals must hold exactly one signal per bar with matching
// timestamps. Bars whose signal is still in the indicator warm-up window are
// skipped and carry the position unchanged.
//
// A trade still open after the last bar is returned in TradeLog.Open and is
// not part of TradeLog.Closed.
func Simulate(series types.BarSeries, signals []types.Signal, config Config) (types.TradeLog, error) {
	if err := config.Validate(); err != nil {
		return types.TradeLog{}, err
	}

	if series.IsEmpty() {
		return types.TradeLog{}, errors.Newf(errors.ErrCodeEmptySeries, "no bars to simulate for %s", series.Symbol)
	}

	if len(signals) != series.Len() {
		return types.TradeLog{}, errors.Newf(errors.ErrCodeSignalMisaligned,
			"got %d signals for %d bars", len(signals), series.Len())
	}

	pos := Flat()
	closed := make([]types.Trade, 0)
	positions := make([]types.PositionState, 0, series.Len())

	var previous time.Time

	for i, bar := range series.Bars {
		if err := bar.Validate(); err != nil {
			return types.TradeLog{}, errors.Wrapf(errors.ErrCodeCorruptBarData, err, "bar %d of %s", i, series.Symbol)
		}

		if i > 0 && !bar.Time.After(previous) {
			return types.TradeLog{}, errors.Newf(errors.ErrCodeUnsortedSeries,
				"bar %d of %s is not after the previous bar", i, series.Symbol)
		}

		previous = bar.Time

		signal := signals[i]
		if !signal.Time.Equal(bar.Time) {
			return types.TradeLog{}, errors.Newf(errors.ErrCodeSignalMisaligned,
				"signal %d is at %s but bar is at %s", i, signal.Time.Format(time.RFC3339), bar.Time.Format(time.RFC3339))
		}

		direction, err := signal.Direction()
		if err != nil {
			// warm-up: no transition
			positions = append(positions, pos.State)

			continue
		}

		var exit optional.Option[types.Trade]

		pos, exit = Step(pos, bar, direction, config)
		if exit.IsSome() {
			closed = append(closed, exit.Unwrap())
		}

		positions = append(positions, pos.State)
	}

	return types.TradeLog{
		Symbol:    series.Symbol,
		Closed:    closed,
		Open:      pos.Open,
		Positions: positions,
	}, nil
}
