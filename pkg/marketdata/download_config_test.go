package marketdata

import (
	"encoding/json"
	"testing"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DownloadConfigTestSuite struct {
	suite.Suite
}

func TestDownloadConfigTestSuite(t *testing.T) {
	suite.Run(t, new(DownloadConfigTestSuite))
}

func niftyBase() BaseDownloadConfig {
	return BaseDownloadConfig{
		Ticker:    "Nifty",
		StartDate: "2024-01-01T00:00:00Z",
		EndDate:   "2024-06-30T23:59:59Z",
		Interval:  "1m",
	}
}

func (suite *DownloadConfigTestSuite) TestPolygonConfigValidation() {
	tests := []struct {
		name        string
		mutate      func(c *PolygonDownloadConfig)
		errContains string
		errCode     errors.ErrorCode
	}{
		{name: "valid"},
		{
			name:        "missing ticker",
			mutate:      func(c *PolygonDownloadConfig) { c.Ticker = "" },
			errContains: "Ticker",
			errCode:     errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "missing api key",
			mutate:      func(c *PolygonDownloadConfig) { c.ApiKey = "" },
			errContains: "ApiKey",
			errCode:     errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "unknown interval",
			mutate:      func(c *PolygonDownloadConfig) { c.Interval = "7m" },
			errContains: "Interval",
			errCode:     errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "date without time",
			mutate:      func(c *PolygonDownloadConfig) { c.StartDate = "2024-01-01" },
			errContains: "startDate",
			errCode:     errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "end before start",
			mutate: func(c *PolygonDownloadConfig) {
				c.StartDate = "2024-06-30T00:00:00Z"
				c.EndDate = "2024-01-01T00:00:00Z"
			},
			errContains: "must be after",
			errCode:     errors.ErrCodeInvalidDateRange,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := &PolygonDownloadConfig{BaseDownloadConfig: niftyBase(), ApiKey: "test-api-key"}
			if tc.mutate != nil {
				tc.mutate(config)
			}

			err := config.Validate()
			if tc.errContains == "" {
				suite.NoError(err)

				return
			}

			suite.Require().Error(err)
			suite.Contains(err.Error(), tc.errContains)
			suite.True(errors.HasCode(err, tc.errCode))
		})
	}
}

func (suite *DownloadConfigTestSuite) TestBinanceConfigValidation() {
	config := &BinanceDownloadConfig{BaseDownloadConfig: niftyBase()}
	config.Ticker = "BTCUSDT"
	config.Interval = "1h"
	suite.NoError(config.Validate())

	config.Ticker = ""
	suite.Error(config.Validate())
}

func (suite *DownloadConfigTestSuite) TestEveryTimeframeIsAnInterval() {
	for _, timeframe := range types.Timeframes() {
		config := &BinanceDownloadConfig{BaseDownloadConfig: niftyBase()}
		config.Interval = timeframe.String()

		suite.NoError(config.Validate(), "interval %s should be valid", timeframe)
	}

	config := &BinanceDownloadConfig{BaseDownloadConfig: niftyBase()}
	config.Interval = "15m"
	suite.True(errors.HasCode(config.Validate(), errors.ErrCodeInvalidConfiguration))
}

func (suite *DownloadConfigTestSuite) TestParsePolygonConfig() {
	config, err := ParsePolygonConfig(`{
		"ticker": "BankNifty",
		"startDate": "2024-01-01T00:00:00Z",
		"endDate": "2024-03-31T00:00:00Z",
		"interval": "5m",
		"apiKey": "test-api-key"
	}`)
	suite.Require().NoError(err)
	suite.Equal("BankNifty", config.Ticker)
	suite.Equal("test-api-key", config.ApiKey)

	_, err = ParsePolygonConfig(`{invalid json}`)
	suite.ErrorContains(err, "failed to parse JSON")

	_, err = ParsePolygonConfig(`{
		"ticker": "BankNifty",
		"startDate": "2024-01-01T00:00:00Z",
		"endDate": "2024-03-31T00:00:00Z",
		"interval": "5m"
	}`)
	suite.ErrorContains(err, "ApiKey")
}

func (suite *DownloadConfigTestSuite) TestParseBinanceConfig() {
	config, err := ParseBinanceConfig(`{
		"ticker": "BTCUSDT",
		"startDate": "2024-01-01T00:00:00Z",
		"endDate": "2024-12-31T23:59:59Z",
		"interval": "1h"
	}`)
	suite.Require().NoError(err)
	suite.Equal("BTCUSDT", config.Ticker)
	suite.Equal("1h", config.Interval)
}

func (suite *DownloadConfigTestSuite) TestToDownloadParams() {
	config := niftyBase()
	config.Interval = "5m"

	params, err := config.ToDownloadParams()
	suite.Require().NoError(err)
	suite.Equal("Nifty", params.Ticker)
	suite.Equal(5, params.Multiplier)
	suite.Equal(models.Minute, params.Timespan)

	config.Interval = "1M"

	params, err = config.ToDownloadParams()
	suite.Require().NoError(err)
	suite.Equal(1, params.Multiplier)
	suite.Equal(models.Month, params.Timespan)

	config.Interval = "3d"
	_, err = config.ToDownloadParams()
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))

	config.Interval = "5m"
	suite.Equal(2024, params.StartDate.Year())
	suite.True(params.EndDate.After(params.StartDate))

	config.StartDate = "yesterday"
	_, err = config.ToDownloadParams()
	suite.ErrorContains(err, "failed to parse startDate")
}

func (suite *DownloadConfigTestSuite) TestToClientConfig() {
	polygonConfig := &PolygonDownloadConfig{BaseDownloadConfig: niftyBase(), ApiKey: "test-api-key"}

	clientConfig := polygonConfig.ToClientConfig("/tmp/data")
	suite.Equal(ProviderPolygon, clientConfig.ProviderType)
	suite.Equal(WriterParquet, clientConfig.WriterType)
	suite.Equal("/tmp/data", clientConfig.DataPath)
	suite.Equal("test-api-key", clientConfig.PolygonApiKey)

	binanceConfig := &BinanceDownloadConfig{BaseDownloadConfig: niftyBase()}

	clientConfig = binanceConfig.ToClientConfig("/tmp/data")
	suite.Equal(ProviderBinance, clientConfig.ProviderType)
	suite.Equal(WriterParquet, clientConfig.WriterType)
	suite.Empty(clientConfig.PolygonApiKey)
}

func (suite *DownloadConfigTestSuite) TestConfigJSONSchema() {
	for provider, hasAPIKey := range map[string]bool{"polygon": true, "binance": false} {
		schema, err := GetDownloadConfigSchema(provider)
		suite.Require().NoError(err)

		var schemaMap map[string]any
		suite.Require().NoError(json.Unmarshal([]byte(schema), &schemaMap))

		properties, ok := schemaMap["properties"].(map[string]any)
		suite.Require().True(ok, "schema should have properties")

		for _, field := range []string{"ticker", "startDate", "endDate", "interval"} {
			suite.Contains(properties, field, provider)
		}

		suite.NotContains(properties, "dataPath")

		if hasAPIKey {
			suite.Contains(properties, "apiKey")
		} else {
			suite.NotContains(properties, "apiKey")
		}
	}
}
