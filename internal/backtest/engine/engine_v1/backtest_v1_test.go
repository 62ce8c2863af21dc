package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	engine_types "github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	apperrors "github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const testEngineConfig = `
symbol: Nifty
timeframes: [5m, 1h]
strategies:
  - type: moving_average_crossover
    short_window: 3
    long_window: 5
  - type: rsi
`

type BacktestEngineV1TestSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	resultsDir string
	bars       []types.Bar
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.resultsDir = filepath.Join(suite.T().TempDir(), "results")

	config := mocks.DefaultConfig()
	config.Symbol = "^NSEI"
	config.Count = 3000
	config.Volatility = 0.004
	suite.bars = mocks.NewDataGenerator(7).Generate(config)
}

func (suite *BacktestEngineV1TestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

// newEngine returns an initialized engine reading suite.bars.
func (suite *BacktestEngineV1TestSuite) newEngine(config string) *BacktestEngineV1 {
	b, ok := NewBacktestEngineV1().(*BacktestEngineV1)
	suite.Require().True(ok)
	suite.Require().NoError(b.initialize(config))
	suite.Require().NoError(b.SetResultsFolder(suite.resultsDir))
	suite.Require().NoError(b.SetDataSource(datasource.NewInMemoryDataSource(suite.bars)))

	return b
}

func (suite *BacktestEngineV1TestSuite) TestRun() {
	b := suite.newEngine(testEngineConfig)

	recorder := mocks.NewMockRecorder(suite.ctrl)
	recorder.EXPECT().RecordReport(gomock.Any()).Return(nil).Times(4)
	suite.Require().NoError(b.SetRecorder(recorder))

	var (
		mu        sync.Mutex
		started   []string
		ended     = map[string]string{}
		totalRuns int
		totalBars int
		endErr    = errors.New("not called")
	)

	onStart := engine_types.OnBacktestStartCallback(func(runs int, bars int) error {
		totalRuns = runs
		totalBars = bars

		return nil
	})
	onEnd := engine_types.OnBacktestEndCallback(func(err error) {
		endErr = err
	})
	onRunStart := engine_types.OnRunStartCallback(func(runID string, strategyName string, timeframe types.Timeframe) error {
		mu.Lock()
		defer mu.Unlock()

		started = append(started, runID)

		return nil
	})
	onRunEnd := engine_types.OnRunEndCallback(func(runID string, report types.BacktestReport, resultFolderPath string) {
		mu.Lock()
		defer mu.Unlock()

		ended[runID] = resultFolderPath
	})

	reports, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnBacktestEnd:   &onEnd,
		OnRunStart:      &onRunStart,
		OnRunEnd:        &onRunEnd,
	})
	suite.Require().NoError(err)
	suite.NoError(endErr)

	suite.Equal(4, totalRuns)
	suite.Equal(3000, totalBars)
	suite.Len(started, 4)
	suite.Len(ended, 4)

	suite.Require().Len(reports, 4)

	expected := []struct {
		name      string
		timeframe types.Timeframe
	}{
		{"SMA(3,5)", types.TimeframeFiveMinutes},
		{"SMA(3,5)", types.TimeframeOneHour},
		{"RSI(14,30,70)", types.TimeframeFiveMinutes},
		{"RSI(14,30,70)", types.TimeframeOneHour},
	}

	for i, report := range reports {
		suite.Equal(expected[i].name, report.Strategy.Name)
		suite.Equal(version.GetVersion(), report.EngineVersion)
		suite.Equal(expected[i].timeframe, report.Timeframe)
		suite.Equal("^NSEI", report.Symbol)
		suite.NotEmpty(report.ID)

		folder, ok := ended[report.ID]
		suite.Require().True(ok)
		suite.Equal(filepath.Join(suite.resultsDir, "NSEI", folderName(report.Strategy.Name), report.Timeframe.Slug()), folder)

		for _, file := range []string{statsFileName, tradesFileName, marksFileName} {
			_, err := os.Stat(filepath.Join(folder, file))
			suite.NoError(err, file)
		}

		suite.Equal(filepath.Join(folder, tradesFileName), report.TradesFilePath)
		suite.Equal(filepath.Join(folder, marksFileName), report.MarksFilePath)

		stats, err := types.ReadReports(filepath.Join(folder, statsFileName))
		suite.Require().NoError(err)
		suite.Require().Len(stats, 1)
		suite.Equal(report.NumberOfTrades, stats[0].NumberOfTrades)
	}

	summary, err := types.ReadReports(filepath.Join(suite.resultsDir, summaryFileName))
	suite.Require().NoError(err)
	suite.Require().Len(summary, 4)
	suite.Equal(reports[0].ID, summary[0].ID)
}

func (suite *BacktestEngineV1TestSuite) TestRunWithDateRangeAndParallelism() {
	b := suite.newEngine(testEngineConfig + `
parallelism: 1
start_time: 2024-01-01T05:00:00Z
end_time: 2024-01-02T00:00:00Z
`)

	var totalBars int

	onStart := engine_types.OnBacktestStartCallback(func(runs int, bars int) error {
		totalBars = bars

		return nil
	})

	reports, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{OnBacktestStart: &onStart})
	suite.Require().NoError(err)
	suite.Len(reports, 4)

	// both bounds are inclusive
	first := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)
	last := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	suite.Equal(int(last.Sub(first)/time.Minute)+1, totalBars)

	folder := filepath.Join(suite.resultsDir, "NSEI", "SMA_3_5", "20240101_20240102", types.TimeframeOneHour.Slug())
	_, err = os.Stat(filepath.Join(folder, statsFileName))
	suite.NoError(err)
}

func (suite *BacktestEngineV1TestSuite) TestRunBarMode() {
	b := suite.newEngine(testEngineConfig + "metrics_mode: bar\n")

	reports, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	for _, report := range reports {
		suite.Equal(types.MetricsModeBar, report.Mode)
	}
}

func (suite *BacktestEngineV1TestSuite) TestInitializeErrors() {
	tests := []struct {
		name   string
		config string
		code   apperrors.ErrorCode
	}{
		{
			name:   "malformed yaml",
			config: "symbol: [",
			code:   apperrors.ErrCodeInvalidConfiguration,
		},
		{
			name: "duplicate strategy",
			config: `
symbol: Nifty
timeframes: [1d]
strategies:
  - type: rsi
  - type: rsi
    period: 14
`,
			code: apperrors.ErrCodeInvalidConfiguration,
		},
		{
			name: "invalid strategy",
			config: `
symbol: Nifty
timeframes: [1d]
strategies:
  - type: rsi
    oversold: 80
    overbought: 20
`,
			code: apperrors.ErrCodeInvalidThreshold,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			b, ok := NewBacktestEngineV1().(*BacktestEngineV1)
			suite.Require().True(ok)

			err := b.initialize(tc.config)
			suite.Error(err)
			suite.True(apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *BacktestEngineV1TestSuite) TestPreRunCheck() {
	var endErr error

	onEnd := engine_types.OnBacktestEndCallback(func(err error) {
		endErr = err
	})

	b, ok := NewBacktestEngineV1().(*BacktestEngineV1)
	suite.Require().True(ok)

	_, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{OnBacktestEnd: &onEnd})
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeBacktestNotInitialized))
	suite.Equal(err, endErr)

	suite.Require().NoError(b.initialize(testEngineConfig))

	_, err = b.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeBacktestNoResultsDir))

	suite.Require().NoError(b.SetResultsFolder(suite.resultsDir))

	_, err = b.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeBacktestNoDatasource))
}

func (suite *BacktestEngineV1TestSuite) TestDataSourceInitializeFailure() {
	b := suite.newEngine(testEngineConfig)

	ds := mocks.NewMockDataSource(suite.ctrl)
	ds.EXPECT().Initialize(gomock.Any()).Return(errors.New("parquet not found"))

	suite.Require().NoError(b.SetDataSource(ds))
	suite.Require().NoError(b.SetDataPath(suite.T().TempDir()))

	_, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.ErrorContains(err, "parquet not found")
}

func (suite *BacktestEngineV1TestSuite) TestDataSourceReadFailure() {
	b := suite.newEngine(testEngineConfig)

	ds := mocks.NewMockDataSource(suite.ctrl)
	ds.EXPECT().
		ReadAll("^NSEI", optional.None[time.Time](), optional.None[time.Time]()).
		Return(func(yield func(types.Bar, error) bool) {
			yield(types.Bar{}, apperrors.New(apperrors.ErrCodeQueryFailed, "connection reset"))
		})

	suite.Require().NoError(b.SetDataSource(ds))

	_, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeQueryFailed))
}

func (suite *BacktestEngineV1TestSuite) TestNoBarsForSymbol() {
	suite.bars = nil
	b := suite.newEngine(testEngineConfig)

	_, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeEmptySeries))
}

func (suite *BacktestEngineV1TestSuite) TestRecorderFailure() {
	b := suite.newEngine(testEngineConfig)

	recorder := mocks.NewMockRecorder(suite.ctrl)
	recorder.EXPECT().RecordReport(gomock.Any()).Return(errors.New("disk full")).MinTimes(1)
	suite.Require().NoError(b.SetRecorder(recorder))

	_, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.ErrorContains(err, "disk full")
}

func (suite *BacktestEngineV1TestSuite) TestStartCallbackAborts() {
	b := suite.newEngine(testEngineConfig)

	onStart := engine_types.OnBacktestStartCallback(func(runs int, bars int) error {
		return errors.New("aborted")
	})
	onRunStart := engine_types.OnRunStartCallback(func(string, string, types.Timeframe) error {
		suite.Fail("no run should start")

		return nil
	})

	_, err := b.Run(context.Background(), engine_types.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnRunStart:      &onRunStart,
	})
	suite.ErrorContains(err, "aborted")
}

func (suite *BacktestEngineV1TestSuite) TestCancelledContext() {
	b := suite.newEngine(testEngineConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, engine_types.LifecycleCallbacks{})
	suite.ErrorIs(err, context.Canceled)
}

func (suite *BacktestEngineV1TestSuite) TestGetConfigSchema() {
	b := NewBacktestEngineV1()

	schema, err := b.GetConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "strategies")
	suite.Contains(schema, "timeframes")
}
