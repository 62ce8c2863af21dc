package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const partitionFileName = "data.parquet"

var _ MarketDataWriter = (*ParquetPartitionWriter)(nil)

// BarRecord is the on-disk schema of one bar.
type BarRecord struct {
	Symbol string  `parquet:"symbol"`
	Time   int64   `parquet:"time,timestamp(millisecond)"` // Unix ms
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

// partition identifies one <symbol>/Year=YYYY/Month=M directory.
type partition struct {
	symbol string
	year   int
	month  time.Month
}

// ParquetPartitionWriter buffers bars and writes them to
//
//	<root>/<SYMBOL>/Year=YYYY/Month=M/data.parquet
//
// on Finalize. Bars already on disk are merged with the new ones; a bar with
// the same symbol and timestamp is replaced. Partitions use UTC calendar months.
type ParquetPartitionWriter struct {
	root    string
	logger  *logger.Logger
	pending map[partition][]BarRecord
	written int
}

// NewParquetPartitionWriter creates a writer rooted at root.
func NewParquetPartitionWriter(root string, logger *logger.Logger) *ParquetPartitionWriter {
	return &ParquetPartitionWriter{
		root:    root,
		logger:  logger,
		pending: make(map[partition][]BarRecord),
		written: 0,
	}
}

// Initialize creates the root directory.
func (w *ParquetPartitionWriter) Initialize() error {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create %s", w.root)
	}

	return nil
}

// Write buffers one bar. Invalid bars are rejected.
func (w *ParquetPartitionWriter) Write(bar types.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	t := bar.Time.UTC()
	key := partition{symbol: bar.Symbol, year: t.Year(), month: t.Month()}

	w.pending[key] = append(w.pending[key], BarRecord{
		Symbol: bar.Symbol,
		Time:   t.UnixMilli(),
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
		Volume: bar.Volume,
	})

	return nil
}

// Finalize merges every buffered partition into its file and returns the
// root directory.
func (w *ParquetPartitionWriter) Finalize() (string, error) {
	keys := make([]partition, 0, len(w.pending))
	for key := range w.pending {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].symbol != keys[j].symbol {
			return keys[i].symbol < keys[j].symbol
		}

		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}

		return keys[i].month < keys[j].month
	})

	for _, key := range keys {
		path := w.PartitionPath(key.symbol, key.year, key.month)

		existing, err := readRecords(path)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to read %s", path)
		}

		merged := mergeBarRecords(existing, w.pending[key])

		if err := writeRecords(path, merged); err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to write %s", path)
		}

		w.written += len(w.pending[key])

		w.logger.Debug("Wrote partition",
			zap.String("path", path),
			zap.Int("new", len(w.pending[key])),
			zap.Int("total", len(merged)),
		)

		delete(w.pending, key)
	}

	return w.root, nil
}

// Close drops any bars that were not finalized.
func (w *ParquetPartitionWriter) Close() error {
	if len(w.pending) > 0 {
		w.logger.Warn("Discarding unfinalized bars", zap.Int("partitions", len(w.pending)))
	}

	w.pending = make(map[partition][]BarRecord)

	return nil
}

// GetOutputPath implements MarketDataWriter.
func (w *ParquetPartitionWriter) GetOutputPath() string {
	return w.root
}

// Written returns the number of bars flushed so far.
func (w *ParquetPartitionWriter) Written() int {
	return w.written
}

// PartitionPath returns the file that holds symbol's bars for one month.
func (w *ParquetPartitionWriter) PartitionPath(symbol string, year int, month time.Month) string {
	return filepath.Join(
		w.root,
		types.StorageName(symbol),
		"Year="+strconv.Itoa(year),
		"Month="+strconv.Itoa(int(month)),
		partitionFileName,
	)
}

func readRecords(path string) ([]BarRecord, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}

	return records, nil
}

func writeRecords(path string, records []BarRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return parquet.WriteFile(path, records)
}

// mergeBarRecords deduplicates records by (symbol, time), preferring incoming
// records, and sorts them by time.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}

	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Time}] = r
	}

	for _, r := range incoming {
		seen[key{r.Symbol, r.Time}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Time != merged[j].Time {
			return merged[i].Time < merged[j].Time
		}

		return merged[i].Symbol < merged[j].Symbol
	})

	return merged
}
