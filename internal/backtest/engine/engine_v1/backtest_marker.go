package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/marker"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

const marksFileName = "marks.parquet"

var _ marker.Marker = (*BacktestMarker)(nil)

// BacktestMarker implements the Marker interface for backtesting purposes.
// It records bars with a buy or sell signal in a DuckDB database.
type BacktestMarker struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewBacktestMarker creates a new instance of BacktestMarker.
func NewBacktestMarker(logger *logger.Logger) (*BacktestMarker, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	m := &BacktestMarker{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := m.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return m, nil
}

// Mark implements the Marker interface.
func (m *BacktestMarker) Mark(bar types.Bar, signal types.Signal, position types.PositionState) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("backtest marker or database is nil")
	}

	direction, err := signal.Direction()
	if err != nil {
		return err
	}

	rawValue, err := json.Marshal(signal.RawValue)
	if err != nil {
		return fmt.Errorf("failed to encode signal values: %w", err)
	}

	var nextID int

	err = m.db.QueryRow("SELECT nextval('mark_id_seq')").Scan(&nextID)
	if err != nil {
		return fmt.Errorf("failed to get next ID from sequence: %w", err)
	}

	insertQuery := m.sq.
		Insert("marks").
		Columns(
			"id", "symbol", "time", "open", "high", "low", "close", "volume",
			"direction", "indicator", "reason", "raw_value", "position",
		).
		Values(
			nextID, bar.Symbol, bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
			int(direction), string(signal.Indicator), signal.Reason, string(rawValue), string(position),
		).
		RunWith(m.db)

	if _, err := insertQuery.Exec(); err != nil {
		return fmt.Errorf("failed to insert mark: %w", err)
	}

	return nil
}

// MarkSignals records every bar whose signal is defined and not flat.
// signals and positions are aligned with series.
func (m *BacktestMarker) MarkSignals(series types.BarSeries, signals []types.Signal, positions []types.PositionState) (int, error) {
	if len(signals) != series.Len() || len(positions) != series.Len() {
		return 0, fmt.Errorf("marks need one signal and one position per bar: bars=%d signals=%d positions=%d",
			series.Len(), len(signals), len(positions))
	}

	marked := 0

	for i, signal := range signals {
		if signal.Value.IsNone() || signal.Value.Unwrap() == types.DirectionFlat {
			continue
		}

		if err := m.Mark(series.Bars[i], signal, positions[i]); err != nil {
			return marked, err
		}

		marked++
	}

	return marked, nil
}

// GetMarks implements the Marker interface.
func (m *BacktestMarker) GetMarks() ([]types.Mark, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("backtest marker or database is nil")
	}

	selectQuery := m.sq.
		Select(
			"symbol", "time", "open", "high", "low", "close", "volume",
			"direction", "indicator", "reason", "raw_value", "position",
		).
		From("marks").
		OrderBy("time ASC").
		RunWith(m.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query marks: %w", err)
	}
	defer rows.Close()

	var marks []types.Mark

	for rows.Next() {
		var (
			mark      types.Mark
			direction int
			indicator string
			rawValue  string
			position  string
		)

		err := rows.Scan(
			&mark.Bar.Symbol,
			&mark.Bar.Time,
			&mark.Bar.Open,
			&mark.Bar.High,
			&mark.Bar.Low,
			&mark.Bar.Close,
			&mark.Bar.Volume,
			&direction,
			&indicator,
			&mark.Signal.Reason,
			&rawValue,
			&position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mark: %w", err)
		}

		if err := json.Unmarshal([]byte(rawValue), &mark.Signal.RawValue); err != nil {
			return nil, fmt.Errorf("failed to decode signal values: %w", err)
		}

		mark.Signal.Time = mark.Bar.Time
		mark.Signal.Value = optional.Some(types.Direction(direction))
		mark.Signal.Indicator = types.IndicatorType(indicator)
		mark.Position = types.PositionState(position)

		marks = append(marks, mark)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating marks: %w", err)
	}

	return marks, nil
}

// Write saves the marks to <path>/marks.parquet.
func (m *BacktestMarker) Write(path string) error {
	if m == nil || m.db == nil || m.logger == nil {
		return fmt.Errorf("backtest marker, database, or logger is nil")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	marksPath := filepath.Join(path, marksFileName)

	_, err := m.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM marks ORDER BY time ASC) TO '%s' (FORMAT PARQUET)`, marksPath))
	if err != nil {
		return fmt.Errorf("failed to export marks to Parquet: %w", err)
	}

	m.logger.Debug("Exported marks to Parquet", zap.String("marks", marksPath))

	return nil
}

// Cleanup resets the database state.
func (m *BacktestMarker) Cleanup() error {
	if m == nil || m.db == nil {
		return fmt.Errorf("backtest marker or database is nil")
	}

	_, err := m.db.Exec(`
		DROP TABLE IF EXISTS marks;
		DROP SEQUENCE IF EXISTS mark_id_seq;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup marks table: %w", err)
	}

	return m.initialize()
}

// Close closes the database connection.
func (m *BacktestMarker) Close() error {
	if m == nil || m.db == nil {
		return nil
	}

	return m.db.Close()
}

func (m *BacktestMarker) initialize() error {
	_, err := m.db.Exec(`CREATE SEQUENCE IF NOT EXISTS mark_id_seq`)
	if err != nil {
		return fmt.Errorf("failed to create sequence: %w", err)
	}

	_, err = m.db.Exec(`
		CREATE TABLE IF NOT EXISTS marks (
			id INTEGER PRIMARY KEY,
			symbol TEXT,
			time TIMESTAMPTZ,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			direction INTEGER,
			indicator TEXT,
			reason TEXT,
			raw_value TEXT,
			position TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create marks table: %w", err)
	}

	return nil
}
