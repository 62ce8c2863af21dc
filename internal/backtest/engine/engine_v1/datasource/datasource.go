package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataSource reads historical bars from a bar store.
type DataSource interface {
	// Initialize points the data source at a parquet file, a glob or a hive
	// partitioned directory (<root>/Year=YYYY/Month=M/*.parquet).
	Initialize(path string) error
	// ReadAll yields every bar for symbol within [start, end] ordered by time.
	// An empty symbol reads every symbol.
	ReadAll(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool)
	// Count returns the number of bars for symbol within [start, end].
	Count(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// GetAllSymbols returns the distinct symbols in the store, sorted.
	GetAllSymbols() ([]string, error)
	// Close closes the data source and releases any resources
	Close() error
}
