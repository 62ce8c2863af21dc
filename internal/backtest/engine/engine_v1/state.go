package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

const tradesFileName = "trades.parquet"

// BacktestState holds the trade log of one run in an in-memory DuckDB table
// and exports it to parquet.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// TradeSummary aggregates the stored trades.
type TradeSummary struct {
	ClosedTrades int
	OpenTrades   int
	TotalPnL     float64
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades table
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			symbol TEXT,
			strategy_name TEXT,
			timeframe TEXT,
			entry_time TIMESTAMPTZ,
			entry_price DOUBLE,
			stop_price DOUBLE,
			exit_time TIMESTAMPTZ,
			exit_price DOUBLE,
			exit_reason TEXT,
			pnl DOUBLE,
			return_pct DOUBLE,
			is_open BOOLEAN
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	return nil
}

// AddTradeLog stores the closed trades and the open trade, if any, of a run.
func (b *BacktestState) AddTradeLog(runID string, strategyName string, timeframe types.Timeframe, log types.TradeLog) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	trades := log.Closed
	if log.Open.IsSome() {
		trades = append(trades[:len(trades):len(trades)], log.Open.Unwrap())
	}

	for _, trade := range trades {
		var (
			exitTime   any
			exitPrice  any
			exitReason any
		)

		if trade.IsClosed() {
			exitTime = trade.ExitTime
			exitPrice = trade.ExitPrice
			exitReason = string(trade.ExitReason)
		}

		insertQuery := b.sq.
			Insert("trades").
			Columns(
				"id", "run_id", "symbol", "strategy_name", "timeframe",
				"entry_time", "entry_price", "stop_price",
				"exit_time", "exit_price", "exit_reason",
				"pnl", "return_pct", "is_open",
			).
			Values(
				trade.ID, runID, trade.Symbol, strategyName, string(timeframe),
				trade.EntryTime, trade.EntryPrice, trade.StopPrice,
				exitTime, exitPrice, exitReason,
				trade.PnL().InexactFloat64(), trade.Return()*100, !trade.IsClosed(),
			).
			RunWith(tx)

		if _, err := insertQuery.Exec(); err != nil {
			tx.Rollback()

			return fmt.Errorf("failed to insert trade %s: %w", trade.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trades: %w", err)
	}

	b.logger.Debug("Stored trade log",
		zap.String("run_id", runID),
		zap.Int("closed", len(log.Closed)),
		zap.Bool("open", log.Open.IsSome()),
	)

	return nil
}

// GetAllTrades returns all trades ordered by entry time. Open trades have zero
// exit fields.
func (b *BacktestState) GetAllTrades() ([]types.Trade, error) {
	selectQuery := b.sq.
		Select(
			"id", "symbol", "entry_time", "entry_price", "stop_price",
			"exit_time", "exit_price", "exit_reason",
		).
		From("trades").
		OrderBy("entry_time ASC").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade      types.Trade
			exitTime   sql.NullTime
			exitPrice  sql.NullFloat64
			exitReason sql.NullString
		)

		err := rows.Scan(
			&trade.ID,
			&trade.Symbol,
			&trade.EntryTime,
			&trade.EntryPrice,
			&trade.StopPrice,
			&exitTime,
			&exitPrice,
			&exitReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if exitTime.Valid {
			trade.ExitTime = exitTime.Time
			trade.ExitPrice = exitPrice.Float64
			trade.ExitReason = types.ExitReason(exitReason.String)
		}

		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetOpenTrade returns the trade still open at the end of the run, if any.
func (b *BacktestState) GetOpenTrade() (optional.Option[types.Trade], error) {
	trades, err := b.GetAllTrades()
	if err != nil {
		return optional.None[types.Trade](), err
	}

	for _, trade := range trades {
		if !trade.IsClosed() {
			return optional.Some(trade), nil
		}
	}

	return optional.None[types.Trade](), nil
}

// Summary aggregates the stored trades.
func (b *BacktestState) Summary() (TradeSummary, error) {
	query := b.sq.
		Select(
			"COUNT(*) FILTER (WHERE NOT is_open)",
			"COUNT(*) FILTER (WHERE is_open)",
			"COALESCE(SUM(pnl) FILTER (WHERE NOT is_open), 0)",
		).
		From("trades").
		RunWith(b.db)

	var summary TradeSummary

	err := query.QueryRow().Scan(&summary.ClosedTrades, &summary.OpenTrades, &summary.TotalPnL)
	if err != nil {
		return TradeSummary{}, fmt.Errorf("failed to summarize trades: %w", err)
	}

	return summary, nil
}

// Cleanup resets the database state
func (b *BacktestState) Cleanup() error {
	// squirrel has no DROP
	_, err := b.db.Exec(`DROP TABLE IF EXISTS trades;`)
	if err != nil {
		return fmt.Errorf("failed to cleanup tables: %w", err)
	}

	return b.Initialize()
}

// Write exports the trades to <path>/trades.parquet and returns the file path.
func (b *BacktestState) Write(path string) (string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// squirrel has no COPY
	tradesPath := filepath.Join(path, tradesFileName)

	_, err := b.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM trades ORDER BY entry_time ASC) TO '%s' (FORMAT PARQUET)`, tradesPath))
	if err != nil {
		return "", fmt.Errorf("failed to export trades to Parquet: %w", err)
	}

	b.logger.Debug("Exported trades to Parquet", zap.String("trades", tradesPath))

	return tradesPath, nil
}

// Close closes the database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}
