package recorder

import "github.com/rxtech-lab/argo-backtest/internal/types"

// NoopRecorder is a no-op implementation used when no history database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordReport(_ types.BacktestReport) error { return nil }
func (n *NoopRecorder) ListReports(_ string, _ int) ([]types.BacktestReport, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
