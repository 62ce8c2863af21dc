package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
)

// polygonPageLimit is the largest page the aggregates endpoint accepts.
const polygonPageLimit = 50000

// PolygonAggsIterator is the subset of the polygon aggregates iterator the client uses.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the polygon REST client the client uses.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonClientWrapper struct {
	client *polygon.Client
}

func (w *polygonClientWrapper) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return w.client.ListAggs(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
	writer    writer.MarketDataWriter
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return &PolygonClient{
		apiClient: &polygonClientWrapper{client: polygon.New(apiKey)},
		writer:    nil,
	}, nil
}

// NewPolygonClientWithAPI creates a client on top of an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: apiClient,
		writer:    nil,
	}
}

func (c *PolygonClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

func (c *PolygonClient) Download(
	ctx context.Context,
	ticker string,
	startDate time.Time,
	endDate time.Time,
	multiplier int,
	timespan models.Timespan,
	onProgress OnDownloadProgress,
) (path string, err error) {
	if c.writer == nil {
		return "", fmt.Errorf("no writer configured for PolygonClient. Call ConfigWriter first")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer func() {
		if cerr := c.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing writer: %w", cerr)
		}
	}()

	totalDays := endDate.Sub(startDate).Hours()/24 + 1

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(polygonPageLimit)

	aggs := c.apiClient.ListAggs(ctx, params)

	processed := 0

	for aggs.Next() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		agg := aggs.Item()
		barTime := time.Time(agg.Timestamp)

		bar := types.Bar{
			Symbol: ticker,
			Time:   barTime,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := c.writer.Write(bar); err != nil {
			return "", fmt.Errorf("failed to write data: %w", err)
		}

		processed++
		if processed%1000 == 0 {
			reportProgress(onProgress, barTime.Sub(startDate).Hours()/24, totalDays, fmt.Sprintf("Downloading %s", ticker))
		}
	}

	if aggs.Err() != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, aggs.Err(), "error iterating polygon aggregates for %s", ticker)
	}

	reportProgress(onProgress, totalDays, totalDays, fmt.Sprintf("Downloaded %d bars for %s", processed, ticker))

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}
