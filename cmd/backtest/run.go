package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/recorder"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type runOptions struct {
	ConfigPath  string
	DataPath    string
	ResultsPath string
	HistoryPath string
	Progress    bool
}

func optionsFromCommand(cmd *cli.Command) runOptions {
	return runOptions{
		ConfigPath:  cmd.String("config"),
		DataPath:    cmd.String("data"),
		ResultsPath: cmd.String("results"),
		HistoryPath: cmd.String("history"),
		Progress:    !cmd.Bool("no-progress"),
	}
}

func openRecorder(path string, log *logger.Logger) (recorder.Recorder, error) {
	if path == "" {
		return recorder.NewNoopRecorder(), nil
	}

	return recorder.NewSQLiteRecorder(path, log)
}

// newEngine reads the config and wires the DuckDB data source and the report
// history into a fresh engine. The returned cleanup closes both.
func newEngine(opts runOptions, log *logger.Logger) (engine.Engine, func(), error) {
	config, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	backtester := enginev1.NewBacktestEngineV1()
	if err := backtester.Initialize(string(config)); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	source, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create data source: %w", err)
	}

	history, err := openRecorder(opts.HistoryPath, log)
	if err != nil {
		source.Close()

		return nil, nil, fmt.Errorf("failed to open report history: %w", err)
	}

	cleanup := func() {
		history.Close()
		source.Close()
	}

	if err := wireEngine(backtester, source, history, opts); err != nil {
		cleanup()

		return nil, nil, err
	}

	return backtester, cleanup, nil
}

func wireEngine(backtester engine.Engine, source datasource.DataSource, history recorder.Recorder, opts runOptions) error {
	if err := backtester.SetDataSource(source); err != nil {
		return err
	}

	if err := backtester.SetDataPath(opts.DataPath); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(opts.ResultsPath); err != nil {
		return err
	}

	return backtester.SetRecorder(history)
}

// runBacktest runs the configured backtest once and prints a summary to out.
func runBacktest(ctx context.Context, opts runOptions, out io.Writer, log *logger.Logger) ([]types.BacktestReport, error) {
	backtester, cleanup, err := newEngine(opts, log)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var bar *progressbar.ProgressBar

	onStart := engine.OnBacktestStartCallback(func(totalRuns int, totalBars int) error {
		log.Info("Backtest started", zap.Int("runs", totalRuns), zap.Int("bars", totalBars))

		if opts.Progress {
			bar = progressbar.Default(int64(totalRuns), "running")
		}

		return nil
	})
	onRunEnd := engine.OnRunEndCallback(func(runID string, report types.BacktestReport, resultFolderPath string) {
		log.Debug("Run finished",
			zap.String("run_id", runID),
			zap.String("strategy", report.Strategy.Name),
			zap.String("timeframe", report.Timeframe.String()),
			zap.String("folder", resultFolderPath),
		)

		if bar != nil {
			_ = bar.Add(1)
		}
	})

	reports, err := backtester.Run(ctx, engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnRunEnd:        &onRunEnd,
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return nil, err
	}

	printReports(out, reports)

	return reports, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func printReports(out io.Writer, reports []types.BacktestReport) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SYMBOL", "STRATEGY", "TIMEFRAME", "TRADES", "PNL", "WIN%", "SHARPE", "MAX DD", "BUY&HOLD", "ENGINE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})

	for _, r := range reports {
		engineVersion := r.EngineVersion
		if err := version.CheckReportCompatibility(version.GetVersion(), r.EngineVersion); err != nil {
			engineVersion += " (incompatible)"
		}

		t.Row(
			r.Symbol,
			r.Strategy.Name,
			r.Timeframe.Label(),
			strconv.Itoa(r.NumberOfTrades),
			fmt.Sprintf("%.2f", r.TotalProfitLoss),
			fmt.Sprintf("%.1f", r.WinRatePercent),
			fmt.Sprintf("%.3f", r.SharpeRatio),
			fmt.Sprintf("%.2f", r.MaxDrawdown),
			fmt.Sprintf("%.2f", r.BuyAndHoldPnl),
			engineVersion,
		)
	}

	fmt.Fprintln(out, t.Render())
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	_, err = runBacktest(ctx, optionsFromCommand(cmd), cmd.Root().Writer, log)

	return err
}

// newScheduler registers one backtest per cron tick. Runs never overlap.
func newScheduler(ctx context.Context, spec string, opts runOptions, out io.Writer, log *logger.Logger) (*cron.Cron, error) {
	config, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var engineConfig enginev1.BacktestEngineV1Config
	if err := yaml.Unmarshal(config, &engineConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	loc, err := engineConfig.Location()
	if err != nil {
		return nil, err
	}

	if loc == nil {
		loc = time.Local
	}

	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err = scheduler.AddFunc(spec, func() {
		log.Info("Scheduled backtest starting", zap.String("config", opts.ConfigPath))

		if _, err := runBacktest(ctx, opts, out, log); err != nil {
			log.Error("Scheduled backtest failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return scheduler, nil
}

func scheduleAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := optionsFromCommand(cmd)
	opts.Progress = false

	scheduler, err := newScheduler(ctx, cmd.String("cron"), opts, cmd.Root().Writer, log)
	if err != nil {
		return err
	}

	if cmd.Bool("now") {
		if _, err := runBacktest(ctx, opts, cmd.Root().Writer, log); err != nil {
			log.Error("Initial backtest failed", zap.Error(err))
		}
	}

	scheduler.Start()
	log.Info("Scheduler started", zap.String("cron", cmd.String("cron")))

	<-ctx.Done()

	<-scheduler.Stop().Done()
	log.Info("Scheduler stopped")

	return nil
}

// exportBands writes the Bollinger band lines of the configured symbol and
// prints the written files to out.
func exportBands(ctx context.Context, opts runOptions, window int, numStdDev float64, out io.Writer, log *logger.Logger) ([]string, error) {
	backtester, cleanup, err := newEngine(opts, log)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	paths, err := backtester.ExportBands(ctx, window, numStdDev)
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		fmt.Fprintln(out, path)
	}

	return paths, nil
}

func bandsAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	_, err = exportBands(ctx, optionsFromCommand(cmd), cmd.Int("window"), cmd.Float("std"), cmd.Root().Writer, log)

	return err
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := enginev1.NewBacktestEngineV1().GetConfigSchema()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func reportsAction(_ context.Context, cmd *cli.Command) error {
	history, err := recorder.NewSQLiteRecorder(cmd.String("history"), logger.NewNopLogger())
	if err != nil {
		return fmt.Errorf("failed to open report history: %w", err)
	}
	defer history.Close()

	symbol := cmd.String("symbol")
	if symbol != "" {
		symbol = types.ResolveSymbol(symbol)
	}

	reports, err := history.ListReports(symbol, cmd.Int("limit"))
	if err != nil {
		return err
	}

	printReports(cmd.Root().Writer, reports)

	return nil
}
