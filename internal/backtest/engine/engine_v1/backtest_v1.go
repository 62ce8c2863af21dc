package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/simulator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/recorder"
	"github.com/rxtech-lab/argo-backtest/internal/resampler"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	apperrors "github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	statsFileName   = "stats.yaml"
	summaryFileName = "reports.yaml"
)

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	strategies    []strategy.Strategy
	dataPath      string
	resultsFolder string
	log           *logger.Logger
	datasource    datasource.DataSource
	recorder      recorder.Recorder
}

// runJob is one strategy on one timeframe.
type runJob struct {
	index     int
	strategy  strategy.Strategy
	config    strategy.Config
	timeframe types.Timeframe
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		strategies:    nil,
		dataPath:      "",
		resultsFolder: "",
		log:           logger.NewNopLogger(),
		datasource:    nil,
		recorder:      recorder.NewNoopRecorder(),
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	return b.initialize(config)
}

func (b *BacktestEngineV1) initialize(config string) error {
	err := yaml.Unmarshal([]byte(config), &b.config)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfiguration, "failed to parse backtest config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	// strategies that cannot be simulated fail here, before any data is read
	b.strategies = make([]strategy.Strategy, 0, len(b.config.Strategies))
	seen := make(map[string]struct{}, len(b.config.Strategies))

	for _, strategyConfig := range b.config.Strategies {
		s, err := strategy.NewForSimulation(strategyConfig)
		if err != nil {
			return err
		}

		if _, ok := seen[s.Name()]; ok {
			return apperrors.Newf(apperrors.ErrCodeInvalidConfiguration, "duplicate strategy %s", s.Name())
		}

		seen[s.Name()] = struct{}{}
		b.strategies = append(b.strategies, s)
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("symbol", b.config.Symbol),
		zap.Int("strategies", len(b.strategies)),
		zap.Int("timeframes", len(b.config.Timeframes)),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		b.log.Error("Failed to get absolute path",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	b.dataPath = absPath
	b.log.Debug("Data path set",
		zap.String("path", absPath),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(datasource datasource.DataSource) error {
	b.datasource = datasource

	return nil
}

// SetRecorder implements engine.Engine.
func (b *BacktestEngineV1) SetRecorder(recorder recorder.Recorder) error {
	b.recorder = recorder

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (reports []types.BacktestReport, runErr error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(runErr)
		}()
	}

	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	// remove results folder if it exists
	if _, err := os.Stat(b.resultsFolder); err == nil {
		os.RemoveAll(b.resultsFolder)
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBacktestWriteFailed, "failed to create results folder", err)
	}

	series, err := b.loadSeries()
	if err != nil {
		return nil, err
	}

	jobs := b.jobs()

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(jobs), series.Len()); err != nil {
			return nil, err
		}
	}

	b.log.Info("Starting backtest",
		zap.String("symbol", series.Symbol),
		zap.Int("bars", series.Len()),
		zap.Int("runs", len(jobs)),
	)

	reports = make([]types.BacktestReport, len(jobs))

	group, groupCtx := errgroup.WithContext(ctx)
	if b.config.Parallelism > 0 {
		group.SetLimit(b.config.Parallelism)
	}

	for _, job := range jobs {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			report, err := b.runOne(groupCtx, series, job, callbacks)
			if err != nil {
				return fmt.Errorf("%s on %s: %w", job.strategy.Name(), job.timeframe, err)
			}

			reports[job.index] = report

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		b.log.Error("Backtest failed", zap.Error(err))

		return nil, err
	}

	if err := types.WriteReports(filepath.Join(b.resultsFolder, summaryFileName), reports); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBacktestWriteFailed, "failed to write report summary", err)
	}

	return reports, nil
}

// loadSeries initializes the data source and reads the configured symbol
// within the configured bounds.
func (b *BacktestEngineV1) loadSeries() (types.BarSeries, error) {
	if b.dataPath != "" {
		if err := b.datasource.Initialize(b.dataPath); err != nil {
			return types.BarSeries{}, fmt.Errorf("failed to initialize data source: %w", err)
		}
	}

	loc, err := b.config.Location()
	if err != nil {
		return types.BarSeries{}, err
	}

	symbol := types.ResolveSymbol(b.config.Symbol)

	series, err := datasource.LoadSeries(b.datasource, symbol, b.config.BaseTimeframe, b.config.StartTime, b.config.EndTime, loc)
	if err != nil {
		b.log.Error("Failed to load bars", zap.String("symbol", symbol), zap.Error(err))

		return types.BarSeries{}, err
	}

	return series, nil
}

// jobs lists every strategy and timeframe pair in strategy then timeframe order.
func (b *BacktestEngineV1) jobs() []runJob {
	jobs := make([]runJob, 0, len(b.strategies)*len(b.config.Timeframes))

	for i, s := range b.strategies {
		for _, tf := range b.config.Timeframes {
			jobs = append(jobs, runJob{
				index:     len(jobs),
				strategy:  s,
				config:    b.config.Strategies[i].WithDefaults(),
				timeframe: tf,
			})
		}
	}

	return jobs
}

// runOne resamples, simulates and scores one job and writes its results.
func (b *BacktestEngineV1) runOne(ctx context.Context, series types.BarSeries, job runJob, callbacks engine.LifecycleCallbacks) (types.BacktestReport, error) {
	runID := uuid.NewString()

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, job.strategy.Name(), job.timeframe); err != nil {
			return types.BacktestReport{}, err
		}
	}

	resampled, err := resampler.Resample(series, job.timeframe)
	if err != nil {
		return types.BacktestReport{}, err
	}

	signals, err := job.strategy.Signals(resampled)
	if err != nil {
		return types.BacktestReport{}, err
	}

	if err := ctx.Err(); err != nil {
		return types.BacktestReport{}, err
	}

	tradeLog, err := simulator.Simulate(resampled, signals, simulator.Config{StopLossPct: job.config.StopLoss()})
	if err != nil {
		return types.BacktestReport{}, err
	}

	report, err := metrics.Calculate(b.config.MetricsMode, resampled, tradeLog)
	if err != nil {
		return types.BacktestReport{}, err
	}

	report.ID = runID
	report.Timestamp = time.Now().UTC()
	report.Symbol = series.Symbol
	report.Timeframe = job.timeframe
	report.Mode = b.config.MetricsMode
	report.EngineVersion = version.GetVersion()
	report.Strategy = types.StrategyInfo{
		Type:        job.strategy.Type(),
		Name:        job.strategy.Name(),
		StopLossPct: job.config.StopLoss(),
	}
	report.HasOpenTrade = tradeLog.Open.IsSome()

	resultFolderPath := getResultFolder(b, series.Symbol, job.strategy.Name(), job.timeframe)

	report, err = b.writeResults(runID, job, resampled, signals, tradeLog, report, resultFolderPath)
	if err != nil {
		return types.BacktestReport{}, err
	}

	if err := b.recorder.RecordReport(report); err != nil {
		b.log.Error("Failed to record report", zap.String("run_id", runID), zap.Error(err))

		return types.BacktestReport{}, fmt.Errorf("failed to record report: %w", err)
	}

	b.log.Debug("Run finished",
		zap.String("run_id", runID),
		zap.String("strategy", job.strategy.Name()),
		zap.String("timeframe", job.timeframe.String()),
		zap.Int("bars", resampled.Len()),
		zap.Int("trades", report.NumberOfTrades),
		zap.Float64("total_profit_loss", report.TotalProfitLoss),
	)

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(runID, report, resultFolderPath)
	}

	return report, nil
}

func (b *BacktestEngineV1) writeResults(
	runID string,
	job runJob,
	series types.BarSeries,
	signals []types.Signal,
	tradeLog types.TradeLog,
	report types.BacktestReport,
	resultFolderPath string,
) (types.BacktestReport, error) {
	state, err := NewBacktestState(b.log)
	if err != nil {
		return report, err
	}
	defer state.Close()

	if err := state.Initialize(); err != nil {
		return report, fmt.Errorf("failed to initialize state: %w", err)
	}

	if err := state.AddTradeLog(runID, job.strategy.Name(), job.timeframe, tradeLog); err != nil {
		return report, fmt.Errorf("failed to store trades: %w", err)
	}

	summary, err := state.Summary()
	if err != nil {
		return report, err
	}

	if summary.ClosedTrades != report.NumberOfTrades {
		return report, fmt.Errorf("stored %d closed trades but the report counts %d", summary.ClosedTrades, report.NumberOfTrades)
	}

	tradesPath, err := state.Write(resultFolderPath)
	if err != nil {
		return report, apperrors.Wrap(apperrors.ErrCodeBacktestWriteFailed, "failed to write trades", err)
	}

	report.TradesFilePath = tradesPath

	marker, err := NewBacktestMarker(b.log)
	if err != nil {
		return report, err
	}
	defer marker.Close()

	if _, err := marker.MarkSignals(series, signals, tradeLog.Positions); err != nil {
		return report, fmt.Errorf("failed to mark signals: %w", err)
	}

	if err := marker.Write(resultFolderPath); err != nil {
		return report, apperrors.Wrap(apperrors.ErrCodeBacktestWriteFailed, "failed to write marks", err)
	}

	report.MarksFilePath = filepath.Join(resultFolderPath, marksFileName)

	if err := types.WriteReports(filepath.Join(resultFolderPath, statsFileName), []types.BacktestReport{report}); err != nil {
		return report, apperrors.Wrap(apperrors.ErrCodeBacktestWriteFailed, "failed to write stats", err)
	}

	return report, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.strategies) == 0 {
		return apperrors.New(apperrors.ErrCodeBacktestNotInitialized, "engine is not initialized")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return apperrors.New(apperrors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return apperrors.New(apperrors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	if b.recorder == nil {
		return apperrors.New(apperrors.ErrCodeBacktestNotInitialized, "no recorder set")
	}

	return nil
}
