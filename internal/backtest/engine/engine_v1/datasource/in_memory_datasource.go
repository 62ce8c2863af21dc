package datasource

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// InMemoryDataSource serves bars held in memory. Initialize is a no-op; the
// bars are supplied at construction. Used by tests and by callers that already
// have a series.
type InMemoryDataSource struct {
	bars []types.Bar
}

// NewInMemoryDataSource copies and sorts bars by time.
func NewInMemoryDataSource(bars []types.Bar) *InMemoryDataSource {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return &InMemoryDataSource{bars: sorted}
}

// Initialize implements DataSource.
func (m *InMemoryDataSource) Initialize(_ string) error {
	return nil
}

func (m *InMemoryDataSource) matches(bar types.Bar, symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if symbol != "" && bar.Symbol != symbol {
		return false
	}

	if start.IsSome() && bar.Time.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && bar.Time.After(end.Unwrap()) {
		return false
	}

	return true
}

// ReadAll implements DataSource.
func (m *InMemoryDataSource) ReadAll(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range m.bars {
			if !m.matches(bar, symbol, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (m *InMemoryDataSource) Count(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, bar := range m.bars {
		if m.matches(bar, symbol, start, end) {
			count++
		}
	}

	return count, nil
}

// GetAllSymbols implements DataSource.
func (m *InMemoryDataSource) GetAllSymbols() ([]string, error) {
	seen := make(map[string]struct{})

	var symbols []string

	for _, bar := range m.bars {
		if _, ok := seen[bar.Symbol]; ok {
			continue
		}

		seen[bar.Symbol] = struct{}{}
		symbols = append(symbols, bar.Symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close implements DataSource.
func (m *InMemoryDataSource) Close() error {
	return nil
}
