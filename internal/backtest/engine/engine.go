package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/recorder"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error.
// Run callbacks are invoked from the worker goroutines and may be called concurrently.

// OnBacktestStartCallback is called when the entire backtest begins.
type OnBacktestStartCallback func(totalRuns int, totalBars int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when one strategy+timeframe run begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, strategyName string, timeframe types.Timeframe) error

// OnRunEndCallback is called when one strategy+timeframe run ends successfully.
type OnRunEndCallback func(runID string, report types.BacktestReport, resultFolderPath string)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
}

type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetDataPath sets the path of the bar store: a parquet file, a glob, or a
	// directory partitioned as Year=YYYY/Month=M.
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	// Each run is written to <folder>/<symbol>/<strategy>/<timeframe>.
	SetResultsFolder(folder string) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// SetRecorder sets where finished reports are recorded. Optional.
	SetRecorder(recorder recorder.Recorder) error
	// Run loads the series once and runs every strategy on every timeframe.
	// The context can be used to cancel the backtest operation.
	// Reports are returned in strategy then timeframe order.
	Run(ctx context.Context, callbacks LifecycleCallbacks) ([]types.BacktestReport, error)
	// ExportBands writes Bollinger band lines of the configured symbol on every
	// configured timeframe for display. Nothing is simulated or recorded.
	// Returns the written bands.parquet paths in timeframe order.
	ExportBands(ctx context.Context, window int, numStdDev float64) ([]string, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
