package writer

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MarketDataWriter defines the interface for writing market data to a destination.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating directories or files.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process (e.g., merges and flushes partitions).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output path.
	GetOutputPath() string
}
