package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var reportColumns = []string{
	"id", "timestamp", "symbol", "timeframe", "mode",
	"strategy_type", "strategy_name", "stop_loss_pct",
	"number_of_trades", "total_profit_loss", "win_rate_percent", "sharpe_ratio", "max_drawdown",
	"number_of_winning_trades", "number_of_losing_trades", "buy_and_hold_pnl",
	"has_open_trade", "trades_file_path", "marks_file_path", "engine_version",
}

// SQLiteRecorder persists backtest reports to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	sq     squirrel.StatementBuilderType
	logger *logger.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *logger.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets report readers run while a backtest writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: logger,
	}
	if err := r.migrate(); err != nil {
		db.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))

	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_reports (
			id                       TEXT PRIMARY KEY,
			timestamp                INTEGER NOT NULL,
			symbol                   TEXT NOT NULL,
			timeframe                TEXT NOT NULL,
			mode                     TEXT NOT NULL,
			strategy_type            TEXT,
			strategy_name            TEXT,
			stop_loss_pct            REAL,
			number_of_trades         INTEGER,
			total_profit_loss        REAL,
			win_rate_percent         REAL,
			sharpe_ratio             REAL,
			max_drawdown             REAL,
			number_of_winning_trades INTEGER,
			number_of_losing_trades  INTEGER,
			buy_and_hold_pnl         REAL,
			has_open_trade           INTEGER,
			trades_file_path         TEXT,
			marks_file_path          TEXT,
			engine_version           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_symbol_ts ON backtest_reports(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}

	return nil
}

// RecordReport implements Recorder.
func (r *SQLiteRecorder) RecordReport(report types.BacktestReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hasOpenTrade := 0
	if report.HasOpenTrade {
		hasOpenTrade = 1
	}

	query, args, err := r.sq.
		Insert("backtest_reports").
		Options("OR REPLACE").
		Columns(reportColumns...).
		Values(
			report.ID, report.Timestamp.UnixMilli(), report.Symbol, string(report.Timeframe), string(report.Mode),
			string(report.Strategy.Type), report.Strategy.Name, report.Strategy.StopLossPct,
			report.NumberOfTrades, report.TotalProfitLoss, report.WinRatePercent, report.SharpeRatio, report.MaxDrawdown,
			report.NumberOfWinningTrades, report.NumberOfLosingTrades, report.BuyAndHoldPnl,
			hasOpenTrade, report.TradesFilePath, report.MarksFilePath, report.EngineVersion,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("insert report %s: %w", report.ID, err)
	}

	return nil
}

// ListReports implements Recorder.
func (r *SQLiteRecorder) ListReports(symbol string, limit int) ([]types.BacktestReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	builder := r.sq.Select(reportColumns...).From("backtest_reports").OrderBy("timestamp DESC", "id ASC")
	if symbol != "" {
		builder = builder.Where(squirrel.Eq{"symbol": symbol})
	}

	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []types.BacktestReport

	for rows.Next() {
		var (
			report       types.BacktestReport
			timestamp    int64
			timeframe    string
			mode         string
			strategyType string
			hasOpenTrade int
		)

		err := rows.Scan(
			&report.ID, &timestamp, &report.Symbol, &timeframe, &mode,
			&strategyType, &report.Strategy.Name, &report.Strategy.StopLossPct,
			&report.NumberOfTrades, &report.TotalProfitLoss, &report.WinRatePercent, &report.SharpeRatio, &report.MaxDrawdown,
			&report.NumberOfWinningTrades, &report.NumberOfLosingTrades, &report.BuyAndHoldPnl,
			&hasOpenTrade, &report.TradesFilePath, &report.MarksFilePath, &report.EngineVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}

		report.Timestamp = time.UnixMilli(timestamp).UTC()
		report.Timeframe = types.Timeframe(timeframe)
		report.Mode = types.MetricsMode(mode)
		report.Strategy.Type = types.StrategyType(strategyType)
		report.HasOpenTrade = hasOpenTrade == 1

		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}

	return reports, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")

	return r.db.Close()
}
