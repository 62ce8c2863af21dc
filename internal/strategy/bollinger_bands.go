package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BollingerBands only produces band values. It has no trading rule.
type BollingerBands struct {
	bands     *indicator.BollingerBands
	window    int
	numStdDev float64
}

// NewBollingerBands creates the band-only strategy.
func NewBollingerBands(window int, numStdDev float64) (*BollingerBands, error) {
	bands, err := indicator.NewBollingerBandsWith(window, numStdDev)
	if err != nil {
		return nil, fmt.Errorf("invalid bollinger bands: %w", err)
	}

	return &BollingerBands{bands: bands, window: window, numStdDev: numStdDev}, nil
}

func (b *BollingerBands) Type() types.StrategyType {
	return types.StrategyTypeBollingerBands
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BB(%d,%s)", b.window, formatFloat(b.numStdDev))
}

func (b *BollingerBands) WarmUp() int {
	return b.bands.WarmUp()
}

func (b *BollingerBands) SupportsSimulation() bool {
	return false
}

// Signals always fails: the variant defines no entry or exit rule.
func (b *BollingerBands) Signals(series types.BarSeries) ([]types.Signal, error) {
	return nil, errors.Newf(errors.ErrCodeUnsupportedStrategyForSimulation,
		"strategy %s has no entry/exit rule and cannot be simulated", b.Name())
}

// Bands returns the "upper", "middle" and "lower" lines for display.
func (b *BollingerBands) Bands(series types.BarSeries) (indicator.Lines, error) {
	return b.bands.Compute(series)
}
