package marketdata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BaseDownloadConfig contains common fields for all download configurations.
type BaseDownloadConfig struct {
	Ticker    string `json:"ticker" jsonschema:"title=Ticker,description=The symbol or alias to download (e.g. Nifty or ^NSEBANK or BTCUSDT),required" validate:"required"`
	StartDate string `json:"startDate" jsonschema:"title=Start Date,description=Start date,format=date-time,required" validate:"required"`
	EndDate   string `json:"endDate" jsonschema:"title=End Date,description=End date,format=date-time,required" validate:"required"`
	Interval  string `json:"interval" jsonschema:"title=Interval,description=Bar timeframe to download,required,enum=1m,enum=5m,enum=1h,enum=1d,enum=1M" validate:"required,oneof=1m 5m 1h 1d 1M"`
}

// PolygonDownloadConfig contains configuration for downloading from Polygon.io.
type PolygonDownloadConfig struct {
	BaseDownloadConfig

	ApiKey string `json:"apiKey" jsonschema:"title=API Key,description=Polygon.io API key for authentication,required" validate:"required"`
}

// BinanceDownloadConfig contains configuration for downloading from Binance.
// Binance public market data API does not require authentication.
type BinanceDownloadConfig struct {
	BaseDownloadConfig
}

// Validate validates the BaseDownloadConfig fields.
func (c *BaseDownloadConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	startDate, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid startDate format, expected RFC3339", err)
	}

	endDate, err := time.Parse(time.RFC3339, c.EndDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid endDate format, expected RFC3339", err)
	}

	if !endDate.After(startDate) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "endDate %s must be after startDate %s", c.EndDate, c.StartDate)
	}

	return nil
}

// Validate validates the PolygonDownloadConfig.
func (c *PolygonDownloadConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return c.BaseDownloadConfig.Validate()
}

// Validate validates the BinanceDownloadConfig.
func (c *BinanceDownloadConfig) Validate() error {
	return c.BaseDownloadConfig.Validate()
}

// ToDownloadParams converts a BaseDownloadConfig to DownloadParams.
func (c *BaseDownloadConfig) ToDownloadParams() (DownloadParams, error) {
	startDate, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return DownloadParams{}, fmt.Errorf("failed to parse startDate: %w", err)
	}

	endDate, err := time.Parse(time.RFC3339, c.EndDate)
	if err != nil {
		return DownloadParams{}, fmt.Errorf("failed to parse endDate: %w", err)
	}

	timeframe, err := types.ParseTimeframe(c.Interval)
	if err != nil {
		return DownloadParams{}, err
	}

	multiplier, timespan, err := ProviderTimespan(timeframe)
	if err != nil {
		return DownloadParams{}, err
	}

	return DownloadParams{
		Ticker:     c.Ticker,
		StartDate:  startDate,
		EndDate:    endDate,
		Multiplier: multiplier,
		Timespan:   timespan,
	}, nil
}

// ToClientConfig converts a PolygonDownloadConfig to ClientConfig.
func (c *PolygonDownloadConfig) ToClientConfig(dataPath string) ClientConfig {
	return ClientConfig{
		ProviderType:  ProviderPolygon,
		WriterType:    WriterParquet,
		DataPath:      dataPath,
		PolygonApiKey: c.ApiKey,
	}
}

// ToClientConfig converts a BinanceDownloadConfig to ClientConfig.
func (c *BinanceDownloadConfig) ToClientConfig(dataPath string) ClientConfig {
	return ClientConfig{
		ProviderType:  ProviderBinance,
		WriterType:    WriterParquet,
		DataPath:      dataPath,
		PolygonApiKey: "",
	}
}

// ParsePolygonConfig parses JSON into a PolygonDownloadConfig.
func ParsePolygonConfig(jsonConfig string) (*PolygonDownloadConfig, error) {
	var config PolygonDownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ParseBinanceConfig parses JSON into a BinanceDownloadConfig.
func ParseBinanceConfig(jsonConfig string) (*BinanceDownloadConfig, error) {
	var config BinanceDownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
