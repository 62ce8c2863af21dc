package engine

import (
	"context"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	apperrors "github.com/rxtech-lab/argo-backtest/pkg/errors"
)

func (suite *BacktestEngineV1TestSuite) TestExportBands() {
	b := suite.newEngine(testEngineConfig)

	paths, err := b.ExportBands(context.Background(), 20, 2)
	suite.Require().NoError(err)
	suite.Require().Len(paths, 2)
	suite.Equal(filepath.Join(suite.resultsDir, "NSEI", "BB_20_2", types.TimeframeFiveMinutes.Slug(), bandsFileName), paths[0])
	suite.Equal(filepath.Join(suite.resultsDir, "NSEI", "BB_20_2", types.TimeframeOneHour.Slug(), bandsFileName), paths[1])

	records, err := parquet.ReadFile[BandRecord](paths[0])
	suite.Require().NoError(err)
	// 3000 one minute bars starting on a five minute boundary
	suite.Require().Len(records, 600)

	for i, record := range records {
		suite.Equal("^NSEI", record.Symbol)

		if i > 0 {
			suite.Greater(record.Time, records[i-1].Time)
		}

		if i < 19 {
			suite.Nil(record.Upper, "bar %d is inside the warm-up window", i)
			suite.Nil(record.Middle)
			suite.Nil(record.Lower)

			continue
		}

		suite.Require().NotNil(record.Upper, "bar %d", i)
		suite.Require().NotNil(record.Middle)
		suite.Require().NotNil(record.Lower)
		suite.GreaterOrEqual(*record.Upper, *record.Middle)
		suite.GreaterOrEqual(*record.Middle, *record.Lower)
	}

	hourly, err := parquet.ReadFile[BandRecord](paths[1])
	suite.Require().NoError(err)
	suite.Len(hourly, 51)
}

func (suite *BacktestEngineV1TestSuite) TestExportBandsDoesNotSimulate() {
	b := suite.newEngine(testEngineConfig)
	// a recorder mock with no expectations fails the test if a report is recorded
	suite.Require().NoError(b.SetRecorder(mocks.NewMockRecorder(suite.ctrl)))

	_, err := b.ExportBands(context.Background(), 20, 2)
	suite.Require().NoError(err)
	suite.NoFileExists(filepath.Join(suite.resultsDir, summaryFileName))
}

func (suite *BacktestEngineV1TestSuite) TestExportBandsShortTimeframe() {
	b := suite.newEngine(testEngineConfig)

	// 51 hourly bars cannot fill a 100 bar window
	_, err := b.ExportBands(context.Background(), 100, 2)
	suite.Require().Error(err)
	suite.True(apperrors.IsInsufficientDataError(err))
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeInsufficientData))
	suite.ErrorContains(err, "1 hour")
}

func (suite *BacktestEngineV1TestSuite) TestExportBandsInvalidParameters() {
	b := suite.newEngine(testEngineConfig)

	_, err := b.ExportBands(context.Background(), 20, 0)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeInvalidStdDev), "%v", err)

	_, err = b.ExportBands(context.Background(), 0, 2)
	suite.Error(err)
}
