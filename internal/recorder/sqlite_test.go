package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type SQLiteRecorderTestSuite struct {
	suite.Suite
	recorder *SQLiteRecorder
}

func TestSQLiteRecorderSuite(t *testing.T) {
	suite.Run(t, new(SQLiteRecorderTestSuite))
}

func (suite *SQLiteRecorderTestSuite) SetupTest() {
	r, err := NewSQLiteRecorder(filepath.Join(suite.T().TempDir(), "reports.db"), logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.recorder = r
}

func (suite *SQLiteRecorderTestSuite) TearDownTest() {
	suite.NoError(suite.recorder.Close())
}

func report(id string, symbol string, at time.Time) types.BacktestReport {
	return types.BacktestReport{
		ID:        id,
		Timestamp: at,
		Symbol:    symbol,
		Timeframe: types.TimeframeOneDay,
		Mode:      types.MetricsModeTrade,
		Strategy: types.StrategyInfo{
			Type:        types.StrategyTypeMovingAverageCrossover,
			Name:        "SMA(20,50)",
			StopLossPct: 0.08,
		},
		NumberOfTrades:        4,
		TotalProfitLoss:       8.9,
		WinRatePercent:        50,
		SharpeRatio:           0.35,
		MaxDrawdown:           -0.1,
		NumberOfWinningTrades: 2,
		NumberOfLosingTrades:  2,
		BuyAndHoldPnl:         12.5,
		HasOpenTrade:          true,
		TradesFilePath:        "/tmp/trades.parquet",
		MarksFilePath:         "/tmp/marks.parquet",
		EngineVersion:         "v1.2.0",
	}
}

func (suite *SQLiteRecorderTestSuite) TestRecordAndList() {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	suite.Require().NoError(suite.recorder.RecordReport(report("a", "^NSEI", base)))
	suite.Require().NoError(suite.recorder.RecordReport(report("b", "^NSEI", base.Add(time.Hour))))
	suite.Require().NoError(suite.recorder.RecordReport(report("c", "^NSEBANK", base.Add(2*time.Hour))))

	all, err := suite.recorder.ListReports("", 0)
	suite.Require().NoError(err)
	suite.Require().Len(all, 3)
	suite.Equal("c", all[0].ID, "newest first")

	nifty, err := suite.recorder.ListReports("^NSEI", 1)
	suite.Require().NoError(err)
	suite.Require().Len(nifty, 1)
	suite.Equal(report("b", "^NSEI", base.Add(time.Hour)), nifty[0])
}

func (suite *SQLiteRecorderTestSuite) TestRecordReplacesSameID() {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := report("a", "^NSEI", at)
	suite.Require().NoError(suite.recorder.RecordReport(first))

	second := first
	second.TotalProfitLoss = -3
	second.HasOpenTrade = false
	suite.Require().NoError(suite.recorder.RecordReport(second))

	reports, err := suite.recorder.ListReports("", 0)
	suite.Require().NoError(err)
	suite.Require().Len(reports, 1)
	suite.Equal(-3.0, reports[0].TotalProfitLoss)
	suite.False(reports[0].HasOpenTrade)
}

func (suite *SQLiteRecorderTestSuite) TestNoopRecorder() {
	r := NewNoopRecorder()
	suite.NoError(r.RecordReport(report("a", "^NSEI", time.Now())))

	reports, err := r.ListReports("", 0)
	suite.NoError(err)
	suite.Empty(reports)
	suite.NoError(r.Close())
}
