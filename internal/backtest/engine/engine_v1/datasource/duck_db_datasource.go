package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const readBatchSize = 1000

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// Use ":memory:" for an in-process database. This is distinct from Initialize()
// which attaches the bar store to the database.
func NewDataSource(path string, logger *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	source, err := parquetSource(path)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return fmt.Errorf("failed to drop existing view: %w", err)
	}

	// squirrel has no CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM %s;
	`, source)

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read parquet data at %s", path)
	}

	return nil
}

// parquetSource builds the read_parquet call for a file, glob or partitioned directory.
func parquetSource(path string) (string, error) {
	info, err := os.Stat(path)

	switch {
	case err == nil && info.IsDir():
		pattern := filepath.Join(path, "**", "*.parquet")

		return fmt.Sprintf("read_parquet('%s', hive_partitioning = true, union_by_name = true)", escapeLiteral(pattern)), nil
	case err == nil:
		return fmt.Sprintf("read_parquet('%s')", escapeLiteral(path)), nil
	case strings.ContainsAny(path, "*?["):
		return fmt.Sprintf("read_parquet('%s', union_by_name = true)", escapeLiteral(path)), nil
	default:
		return "", errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "bar store %s does not exist", path)
	}
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func (d *DuckDBDataSource) filter(builder squirrel.SelectBuilder, symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	conditions := squirrel.And{}

	if symbol != "" {
		conditions = append(conditions, squirrel.Eq{"symbol": symbol})
	}

	if start.IsSome() {
		conditions = append(conditions, squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		conditions = append(conditions, squirrel.LtOrEq{"time": end.Unwrap()})
	}

	if len(conditions) == 0 {
		return builder
	}

	return builder.Where(conditions)
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, args, err := d.filter(d.sq.Select("COUNT(*)").From("market_data"), symbol, start, end).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int

	err = d.db.QueryRow(query, args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count market data", err)
	}

	return count, nil
}

// ReadAll implements DataSource with batch processing.
func (d *DuckDBDataSource) ReadAll(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		d.logger.Debug("Reading bars from DuckDB",
			zap.String("symbol", symbol),
		)

		query, args, err := d.filter(
			d.sq.Select("time", "symbol", "open", "high", "low", "close", "volume").From("market_data"),
			symbol, start, end,
		).OrderBy("time ASC").ToSql()
		if err != nil {
			yield(types.Bar{}, fmt.Errorf("failed to build query: %w", err))

			return
		}

		stmt, err := d.db.Prepare(query)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to prepare query", err))

			return
		}
		defer stmt.Close()

		rows, err := stmt.Query(args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query market data", err))

			return
		}
		defer rows.Close()

		batch := make([]types.Bar, 0, readBatchSize)

		for rows.Next() {
			var bar types.Bar

			err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
			if err != nil {
				yield(types.Bar{}, fmt.Errorf("failed to scan row: %w", err))

				return
			}

			batch = append(batch, bar)

			if len(batch) >= readBatchSize {
				for _, b := range batch {
					if !yield(b, nil) {
						return
					}
				}

				batch = batch[:0]
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, fmt.Errorf("error iterating rows: %w", err))

			return
		}

		for _, b := range batch {
			if !yield(b, nil) {
				return
			}
		}
	}
}

// GetAllSymbols implements DataSource.
func (d *DuckDBDataSource) GetAllSymbols() ([]string, error) {
	query, args, err := d.sq.Select("DISTINCT symbol").From("market_data").OrderBy("symbol ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
