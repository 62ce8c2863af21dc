package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// ProviderType defines the type of market data provider.
type ProviderType = provider.ProviderType

const (
	ProviderPolygon = provider.ProviderPolygon
	ProviderBinance = provider.ProviderBinance
)

// WriterType defines the type of market data writer.
type WriterType string

const (
	// WriterParquet writes <data>/<SYMBOL>/Year=YYYY/Month=M/data.parquet partitions.
	WriterParquet WriterType = "parquet"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  ProviderType `validate:"required,oneof=polygon binance"`
	WriterType    WriterType   `validate:"required,oneof=parquet"`
	DataPath      string       `validate:"required"`
	PolygonApiKey string       `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker     string          `validate:"required"`
	StartDate  time.Time       `validate:"required"`
	EndDate    time.Time       `validate:"required,gtfield=StartDate"`
	Multiplier int             `validate:"required,min=1"`
	Timespan   models.Timespan `validate:"required"`
}

// Client is the market data client responsible for downloading data from providers and storing it using writers.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
	logger     *logger.Logger
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress, logger *logger.Logger) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	var apiConfig any
	if config.ProviderType == ProviderPolygon {
		apiConfig = config.PolygonApiKey
	}

	marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, apiConfig)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProvider, "failed to create provider", err)
	}

	return NewClientWithProvider(config, marketProvider, onProgress, logger)
}

// NewClientWithProvider creates a client around an existing provider.
func NewClientWithProvider(config ClientConfig, p provider.Provider, onProgress provider.OnDownloadProgress, logger *logger.Logger) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	return &Client{
		provider:   p,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
		logger:     logger,
	}, nil
}

// Download initiates a market data download with the given parameters and
// returns the directory the bars were written to. Ticker aliases such as
// Nifty are resolved first.
// The context can be used to cancel the download operation.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	ticker := types.ResolveSymbol(params.Ticker)

	marketWriter, err := c.setupWriter()
	if err != nil {
		return "", fmt.Errorf("failed to setup writer: %w", err)
	}

	c.provider.ConfigWriter(marketWriter)

	c.logger.Info("Downloading market data",
		zap.String("provider", string(c.config.ProviderType)),
		zap.String("ticker", ticker),
		zap.Time("start", params.StartDate),
		zap.Time("end", params.EndDate),
		zap.Int("multiplier", params.Multiplier),
		zap.String("timespan", string(params.Timespan)),
	)

	path, err := c.provider.Download(
		ctx,
		ticker,
		params.StartDate,
		params.EndDate,
		params.Multiplier,
		params.Timespan,
		c.onProgress,
	)
	if err != nil {
		c.logger.Error("Download failed", zap.String("ticker", ticker), zap.Error(err))

		return "", fmt.Errorf("download failed: %w", err)
	}

	c.logger.Info("Download finished", zap.String("ticker", ticker), zap.String("path", path))

	return path, nil
}

// setupWriter initializes the appropriate market data writer based on configuration.
func (c *Client) setupWriter() (writer.MarketDataWriter, error) {
	switch c.config.WriterType {
	case WriterParquet:
		return writer.NewParquetPartitionWriter(c.config.DataPath, c.logger), nil
	default:
		return nil, fmt.Errorf("unsupported writer type: %s", c.config.WriterType)
	}
}
