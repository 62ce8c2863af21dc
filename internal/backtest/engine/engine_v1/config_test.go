package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Equal(types.TimeframeOneMinute, config.BaseTimeframe)
	suite.Equal(metrics.ModeTrade, config.MetricsMode)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
	suite.Empty(config.Strategies)
	suite.Equal(0, config.Parallelism)
}

func (suite *ConfigTestSuite) TestTestConfig() {
	startTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)

	config := TestConfig("Nifty", startTime, endTime,
		strategy.DefaultConfig(types.StrategyTypeRSI), types.TimeframeFiveMinutes, types.TimeframeOneDay)

	suite.Equal("Nifty", config.Symbol)
	suite.Equal([]types.Timeframe{types.TimeframeFiveMinutes, types.TimeframeOneDay}, config.Timeframes)
	suite.Require().Len(config.Strategies, 1)
	suite.Equal(types.StrategyTypeRSI, config.Strategies[0].Type)
	suite.Equal(startTime, config.StartTime.Unwrap())
	suite.Equal(endTime, config.EndTime.Unwrap())
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalYAML() {
	content := `
symbol: BankNifty
base_timeframe: 1m
timeframes: [5m, 1h]
metrics_mode: bar
start_time: 2024-01-01T00:00:00Z
end_time: 2024-01-31T00:00:00Z
timezone: Asia/Kolkata
parallelism: 2
strategies:
  - type: moving_average_crossover
    short_window: 10
    long_window: 30
    stop_loss_pct: 0.05
  - type: bollinger_bands
`

	var config BacktestEngineV1Config
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &config))

	suite.Equal("BankNifty", config.Symbol)
	suite.Equal(types.TimeframeOneMinute, config.BaseTimeframe)
	suite.Equal([]types.Timeframe{types.TimeframeFiveMinutes, types.TimeframeOneHour}, config.Timeframes)
	suite.Equal(metrics.ModeBar, config.MetricsMode)
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap().UTC())
	suite.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), config.EndTime.Unwrap().UTC())
	suite.Equal("Asia/Kolkata", config.Timezone)
	suite.Equal(2, config.Parallelism)
	suite.Require().Len(config.Strategies, 2)
	suite.Equal(10, config.Strategies[0].ShortWindow)
	suite.Equal(0.05, config.Strategies[0].StopLossPct.Unwrap())
	suite.Equal(types.StrategyTypeBollingerBands, config.Strategies[1].Type)
	suite.NoError(config.Validate())

	loc, err := config.Location()
	suite.Require().NoError(err)
	suite.Equal("Asia/Kolkata", loc.String())
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLDefaults() {
	content := `
symbol: "^NSEI"
timeframes: [1d]
strategies:
  - type: rsi
`

	var config BacktestEngineV1Config
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &config))

	suite.Equal(types.TimeframeOneMinute, config.BaseTimeframe)
	suite.Equal(metrics.ModeTrade, config.MetricsMode)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
	suite.NoError(config.Validate())

	loc, err := config.Location()
	suite.Require().NoError(err)
	suite.Nil(loc)
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLRejectsUnknownTimeframe() {
	var config BacktestEngineV1Config

	err := yaml.Unmarshal([]byte("symbol: Nifty\ntimeframes: [7m]\n"), &config)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
}

func (suite *ConfigTestSuite) TestValidate() {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	maConfig := strategy.DefaultConfig(types.StrategyTypeMovingAverageCrossover)

	tests := []struct {
		name   string
		mutate func(c *BacktestEngineV1Config)
		code   errors.ErrorCode
	}{
		{
			name:   "missing symbol",
			mutate: func(c *BacktestEngineV1Config) { c.Symbol = "" },
			code:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:   "no timeframes",
			mutate: func(c *BacktestEngineV1Config) { c.Timeframes = nil },
			code:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:   "no strategies",
			mutate: func(c *BacktestEngineV1Config) { c.Strategies = nil },
			code:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:   "negative parallelism",
			mutate: func(c *BacktestEngineV1Config) { c.Parallelism = -1 },
			code:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:   "unknown timeframe",
			mutate: func(c *BacktestEngineV1Config) { c.Timeframes = []types.Timeframe{"7m"} },
			code:   errors.ErrCodeInvalidTimeframe,
		},
		{
			name: "short window not below long window",
			mutate: func(c *BacktestEngineV1Config) {
				c.Strategies[0].ShortWindow = 50
				c.Strategies[0].LongWindow = 20
			},
			code: errors.ErrCodeInvalidPeriod,
		},
		{
			name:   "stop loss out of range",
			mutate: func(c *BacktestEngineV1Config) { c.Strategies[0].StopLossPct = optional.Some(1.5) },
			code:   errors.ErrCodeInvalidStopLoss,
		},
		{
			name: "start after end",
			mutate: func(c *BacktestEngineV1Config) {
				c.StartTime = optional.Some(start)
				c.EndTime = optional.Some(end)
			},
			code: errors.ErrCodeInvalidDateRange,
		},
		{
			name:   "unknown timezone",
			mutate: func(c *BacktestEngineV1Config) { c.Timezone = "Mars/Olympus" },
			code:   errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := EmptyConfig()
			config.Symbol = "Nifty"
			config.Timeframes = []types.Timeframe{types.TimeframeOneDay}
			config.Strategies = []strategy.Config{maConfig}

			tc.mutate(&config)

			err := config.Validate()
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *ConfigTestSuite) TestZeroStrategyParametersUseDefaults() {
	config := EmptyConfig()
	config.Symbol = "Nifty"
	config.Timeframes = []types.Timeframe{types.TimeframeOneDay}
	config.Strategies = []strategy.Config{{Type: types.StrategyTypeMovingAverageCrossover}}

	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := EmptyConfig()

	schema, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.NotEmpty(schema)

	var schemaMap map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &schemaMap))

	suite.Equal("backtest-engine-v1-config", schemaMap["title"])

	properties, ok := schemaMap["properties"].(map[string]any)
	suite.Require().True(ok)

	for _, field := range []string{"symbol", "timeframes", "strategies", "metrics_mode", "start_time", "end_time", "timezone", "parallelism"} {
		suite.Contains(properties, field)
	}

	startTime, ok := properties["start_time"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal("string", startTime["type"])
	suite.Equal("date-time", startTime["format"])

	baseTimeframe, ok := properties["base_timeframe"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(baseTimeframe["enum"], "1d")
}
