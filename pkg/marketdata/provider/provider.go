package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// OnDownloadProgress reports download progress. It is called from the
// downloading goroutine.
type OnDownloadProgress = func(current float64, total float64, message string)

type Provider interface {
	// ConfigWriter configures the writer for the provider
	// Writer is used to persist the downloaded bars.
	ConfigWriter(writer writer.MarketDataWriter)
	// Download downloads the bars for the given ticker and date range and
	// returns the writer output path.
	// The context can be used to cancel the download operation.
	// example:
	// Download(ctx, "^NSEI", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1, models.Minute, onProgress)
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error)
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient()
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, fmt.Errorf("polygon provider requires API key string config")
		}

		return NewPolygonClient(apiKey)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}

// reportProgress calls onProgress when it is set.
func reportProgress(onProgress OnDownloadProgress, current float64, total float64, message string) {
	if onProgress != nil {
		onProgress(current, total, message)
	}
}
