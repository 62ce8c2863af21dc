package marker

import "github.com/rxtech-lab/argo-backtest/internal/types"

// Marker records the bars where a strategy asked to buy or sell.
type Marker interface {
	// Mark records one bar with its signal and the position held after it
	Mark(bar types.Bar, signal types.Signal, position types.PositionState) error
	// GetMarks returns all the marks ordered by time
	GetMarks() ([]types.Mark, error)
}
