package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

// BacktestMarkerTestSuite is a test suite for BacktestMarker
type BacktestMarkerTestSuite struct {
	suite.Suite
	marker  *BacktestMarker
	logger  *logger.Logger
	tempDir string
}

func TestBacktestMarkerSuite(t *testing.T) {
	suite.Run(t, new(BacktestMarkerTestSuite))
}

func (suite *BacktestMarkerTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
	suite.tempDir = suite.T().TempDir()
}

func (suite *BacktestMarkerTestSuite) SetupTest() {
	marker, err := NewBacktestMarker(suite.logger)
	suite.Require().NoError(err)
	suite.marker = marker
}

func (suite *BacktestMarkerTestSuite) TearDownTest() {
	if suite.marker != nil {
		suite.marker.Close()
	}
}

func (suite *BacktestMarkerTestSuite) bar(minute int, close float64) types.Bar {
	return types.Bar{
		Symbol: "^NSEI",
		Time:   time.Date(2024, 1, 2, 3, 45+minute, 0, 0, time.UTC),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 100,
	}
}

func (suite *BacktestMarkerTestSuite) signal(bar types.Bar, direction optional.Option[types.Direction]) types.Signal {
	return types.Signal{
		Time:      bar.Time,
		Value:     direction,
		Indicator: types.IndicatorTypeRSI,
		Reason:    "test",
		RawValue:  map[string]float64{"rsi": 25},
	}
}

func (suite *BacktestMarkerTestSuite) TestMarkAndGetMarks() {
	bar := suite.bar(0, 21500)
	signal := suite.signal(bar, optional.Some(types.DirectionLong))

	suite.Require().NoError(suite.marker.Mark(bar, signal, types.PositionStateLong))

	marks, err := suite.marker.GetMarks()
	suite.Require().NoError(err)
	suite.Require().Len(marks, 1)

	mark := marks[0]
	suite.Equal("^NSEI", mark.Bar.Symbol)
	suite.True(bar.Time.Equal(mark.Bar.Time))
	suite.Equal(21500.0, mark.Bar.Close)
	suite.Equal(types.DirectionLong, mark.Signal.Value.Unwrap())
	suite.Equal(types.IndicatorTypeRSI, mark.Signal.Indicator)
	suite.Equal("test", mark.Signal.Reason)
	suite.Equal(25.0, mark.Signal.RawValue["rsi"])
	suite.Equal(types.PositionStateLong, mark.Position)
}

func (suite *BacktestMarkerTestSuite) TestMarkRejectsUndefinedSignal() {
	bar := suite.bar(0, 21500)

	err := suite.marker.Mark(bar, suite.signal(bar, optional.None[types.Direction]()), types.PositionStateFlat)
	suite.Error(err)
}

func (suite *BacktestMarkerTestSuite) TestMarkSignalsSkipsFlatAndWarmUp() {
	bars := []types.Bar{suite.bar(0, 100), suite.bar(1, 101), suite.bar(2, 102), suite.bar(3, 103)}
	series := types.NewBarSeries("^NSEI", types.TimeframeOneMinute, bars)
	signals := []types.Signal{
		suite.signal(bars[0], optional.None[types.Direction]()),
		suite.signal(bars[1], optional.Some(types.DirectionLong)),
		suite.signal(bars[2], optional.Some(types.DirectionFlat)),
		suite.signal(bars[3], optional.Some(types.DirectionShort)),
	}
	positions := []types.PositionState{
		types.PositionStateFlat, types.PositionStateLong, types.PositionStateLong, types.PositionStateFlat,
	}

	marked, err := suite.marker.MarkSignals(series, signals, positions)
	suite.Require().NoError(err)
	suite.Equal(2, marked)

	marks, err := suite.marker.GetMarks()
	suite.Require().NoError(err)
	suite.Require().Len(marks, 2)
	suite.Equal(types.DirectionLong, marks[0].Signal.Value.Unwrap())
	suite.Equal(types.PositionStateLong, marks[0].Position)
	suite.Equal(types.DirectionShort, marks[1].Signal.Value.Unwrap())
	suite.Equal(types.PositionStateFlat, marks[1].Position)
}

func (suite *BacktestMarkerTestSuite) TestMarkSignalsRequiresAlignment() {
	bars := []types.Bar{suite.bar(0, 100), suite.bar(1, 101)}
	series := types.NewBarSeries("^NSEI", types.TimeframeOneMinute, bars)

	_, err := suite.marker.MarkSignals(series, []types.Signal{suite.signal(bars[0], optional.Some(types.DirectionLong))}, nil)
	suite.Error(err)
}

func (suite *BacktestMarkerTestSuite) TestWriteAndCleanup() {
	bar := suite.bar(0, 21500)
	suite.Require().NoError(suite.marker.Mark(bar, suite.signal(bar, optional.Some(types.DirectionLong)), types.PositionStateLong))

	dir := filepath.Join(suite.tempDir, "run")
	suite.Require().NoError(suite.marker.Write(dir))

	_, err := os.Stat(filepath.Join(dir, marksFileName))
	suite.NoError(err)

	suite.Require().NoError(suite.marker.Cleanup())

	marks, err := suite.marker.GetMarks()
	suite.Require().NoError(err)
	suite.Empty(marks)
}
