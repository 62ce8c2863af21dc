package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// ExitReason records why a trade was closed.
type ExitReason string

const (
	ExitReasonSignalReversal ExitReason = "signal_reversal"
	ExitReasonStopLoss       ExitReason = "stop_loss"
)

// PositionState is the simulator state after a bar.
type PositionState string

const (
	PositionStateFlat PositionState = "FLAT"
	PositionStateLong PositionState = "LONG"
)

// Exposure is 1 when long and 0 when flat.
func (p PositionState) Exposure() float64 {
	if p == PositionStateLong {
		return 1
	}

	return 0
}

// Trade is one long round trip. Exit fields are zero while the trade is open.
type Trade struct {
	ID         string    `yaml:"id" json:"id" csv:"id"`
	Symbol     string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	EntryTime  time.Time `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	// StopPrice is fixed at entry: EntryPrice * (1 - stop loss percent)
	StopPrice  float64    `yaml:"stop_price" json:"stop_price" csv:"stop_price"`
	ExitTime   time.Time  `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	ExitPrice  float64    `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	ExitReason ExitReason `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
}

// IsClosed reports whether the exit fields are populated.
func (t Trade) IsClosed() bool {
	return t.ExitReason != ""
}

// PnL is exit price minus entry price, computed with decimal arithmetic.
func (t Trade) PnL() decimal.Decimal {
	if !t.IsClosed() {
		return decimal.Zero
	}

	return decimal.NewFromFloat(t.ExitPrice).Sub(decimal.NewFromFloat(t.EntryPrice))
}

// Return is (exit - entry) / entry.
func (t Trade) Return() float64 {
	if !t.IsClosed() || t.EntryPrice == 0 {
		return 0
	}

	return (t.ExitPrice - t.EntryPrice) / t.EntryPrice
}

// IsWin reports whether the trade closed above its entry price.
func (t Trade) IsWin() bool {
	return t.IsClosed() && t.ExitPrice > t.EntryPrice
}

// HoldingTime is the time between entry and exit.
func (t Trade) HoldingTime() time.Duration {
	if !t.IsClosed() {
		return 0
	}

	return t.ExitTime.Sub(t.EntryTime)
}

// TradeLog is the immutable result of one simulation run.
type TradeLog struct {
	Symbol string
	// Closed trades in the order they were closed
	Closed []Trade
	// Open is the trade still open at the end of the series, if any. It is
	// never part of Closed.
	Open optional.Option[Trade]
	// Positions holds the state after each bar, aligned with the input series.
	Positions []PositionState
}

// NumberOfClosedTrades returns len(Closed).
func (l TradeLog) NumberOfClosedTrades() int {
	return len(l.Closed)
}
