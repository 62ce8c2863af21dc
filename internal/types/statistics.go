package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MetricsMode selects how a trade log is scored.
type MetricsMode string

const (
	// MetricsModeTrade scores discrete closed trades.
	MetricsModeTrade MetricsMode = "trade"
	// MetricsModeBar scores the per-bar strategy return series.
	MetricsModeBar MetricsMode = "bar"
)

// StrategyInfo contains metadata about the strategy that generated a report.
type StrategyInfo struct {
	Type StrategyType `yaml:"type" json:"type"`
	// Name is the human-readable name including parameters, e.g. "SMA(20,50)"
	Name        string  `yaml:"name" json:"name"`
	StopLossPct float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
}

// BacktestReport is the read-only result of one run over one timeframe.
type BacktestReport struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp time.Time    `yaml:"timestamp" json:"timestamp"`
	Symbol    string       `yaml:"symbol" json:"symbol"`
	Timeframe Timeframe    `yaml:"timeframe" json:"timeframe"`
	Mode      MetricsMode  `yaml:"mode" json:"mode"`
	Strategy  StrategyInfo `yaml:"strategy" json:"strategy"`
	// EngineVersion is the version of the engine that produced the report.
	EngineVersion string `yaml:"engine_version,omitempty" json:"engine_version,omitempty"`

	// Count of closed trades.
	NumberOfTrades int `yaml:"number_of_trades" json:"number_of_trades"`
	// Trade mode: sum of exit - entry. Bar mode: compounded strategy return.
	TotalProfitLoss float64 `yaml:"total_profit_loss" json:"total_profit_loss"`
	// Win rate in percent, 0 when there are no trades.
	WinRatePercent float64 `yaml:"win_rate_percent" json:"win_rate_percent"`
	// Mean return over population standard deviation of returns.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// Most negative distance of the cumulative return from its running peak.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`

	NumberOfWinningTrades int `yaml:"number_of_winning_trades" json:"number_of_winning_trades"`
	NumberOfLosingTrades  int `yaml:"number_of_losing_trades" json:"number_of_losing_trades"`
	// Last close minus first close of the simulated series.
	BuyAndHoldPnl float64 `yaml:"buy_and_hold_pnl" json:"buy_and_hold_pnl"`
	// Open trade left at the end of the series (not counted above).
	HasOpenTrade bool `yaml:"has_open_trade" json:"has_open_trade"`

	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path,omitempty" json:"trades_file_path,omitempty"`
	// MarksFilePath is the path to the buy and sell marks parquet file.
	MarksFilePath string `yaml:"marks_file_path,omitempty" json:"marks_file_path,omitempty"`
}

// WriteReports writes reports to a YAML file.
func WriteReports(path string, reports []BacktestReport) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest reports to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest reports to file: %w", err)
	}

	return nil
}

// ReadReports reads reports written by WriteReports.
func ReadReports(path string) ([]BacktestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backtest reports file: %w", err)
	}

	var reports []BacktestReport
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backtest reports: %w", err)
	}

	return reports, nil
}
