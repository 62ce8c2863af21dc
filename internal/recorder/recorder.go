package recorder

import "github.com/rxtech-lab/argo-backtest/internal/types"

// Recorder persists finished backtest reports so runs can be compared over time.
type Recorder interface {
	// RecordReport stores one report. Recording the same report ID twice replaces it.
	RecordReport(report types.BacktestReport) error
	// ListReports returns the most recent reports first. An empty symbol lists
	// every symbol; limit <= 0 returns all.
	ListReports(symbol string, limit int) ([]types.BacktestReport, error)
	Close() error
}
