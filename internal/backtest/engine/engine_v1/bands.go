package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"github.com/parquet-go/parquet-go"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/resampler"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	apperrors "github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const bandsFileName = "bands.parquet"

// BandRecord is one row of bands.parquet. Band columns are null inside the
// warm-up window.
type BandRecord struct {
	Symbol string   `parquet:"symbol"`
	Time   int64    `parquet:"time,timestamp(millisecond)"` // Unix ms
	Close  float64  `parquet:"close"`
	Upper  *float64 `parquet:"upper,optional"`
	Middle *float64 `parquet:"middle,optional"`
	Lower  *float64 `parquet:"lower,optional"`
}

// ExportBands implements engine.Engine.
func (b *BacktestEngineV1) ExportBands(ctx context.Context, window int, numStdDev float64) ([]string, error) {
	bands, err := strategy.NewBollingerBands(window, numStdDev)
	if err != nil {
		return nil, err
	}

	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	series, err := b.loadSeries()
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(b.config.Timeframes))

	for _, tf := range b.config.Timeframes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resampled, err := resampler.Resample(series, tf)
		if err != nil {
			return nil, err
		}

		if resampled.Len() < window {
			return nil, apperrors.NewInsufficientDataErrorf(window, resampled.Len(), series.Symbol,
				"%s needs %d bars on %s, got %d", bands.Name(), window, tf.Label(), resampled.Len())
		}

		lines, err := bands.Bands(resampled)
		if err != nil {
			return nil, err
		}

		folder := getResultFolder(b, series.Symbol, bands.Name(), tf)

		path, err := writeBands(folder, resampled, lines)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeBacktestWriteFailed, "failed to write bands", err)
		}

		b.log.Debug("Exported bands",
			zap.String("bands", bands.Name()),
			zap.String("timeframe", tf.String()),
			zap.String("path", path),
		)

		paths = append(paths, path)
	}

	return paths, nil
}

func writeBands(folder string, series types.BarSeries, lines indicator.Lines) (string, error) {
	upper, middle, lower := lines["upper"], lines["middle"], lines["lower"]
	records := make([]BandRecord, series.Len())

	for i, bar := range series.Bars {
		records[i] = BandRecord{
			Symbol: bar.Symbol,
			Time:   bar.Time.UnixMilli(),
			Close:  bar.Close,
			Upper:  valueOrNil(upper.At(i)),
			Middle: valueOrNil(middle.At(i)),
			Lower:  valueOrNil(lower.At(i)),
		}
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(folder, bandsFileName)
	if err := parquet.WriteFile(path, records); err != nil {
		return "", err
	}

	return path, nil
}

func valueOrNil(v optional.Option[float64]) *float64 {
	if v.IsNone() {
		return nil
	}

	value := v.Unwrap()

	return &value
}
