package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/writer"
)

// binancePageSize is the default number of klines returned per request.
const binancePageSize = 500

// BinanceKlinesService is the subset of the binance klines service the client uses.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the subset of the binance client the client uses.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceClientWrapper struct {
	client *binance.Client
}

func (w *binanceClientWrapper) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesServiceWrapper{service: w.client.NewKlinesService()}
}

type binanceKlinesServiceWrapper struct {
	service *binance.KlinesService
}

func (w *binanceKlinesServiceWrapper) Symbol(symbol string) BinanceKlinesService {
	w.service.Symbol(symbol)

	return w
}

func (w *binanceKlinesServiceWrapper) Interval(interval string) BinanceKlinesService {
	w.service.Interval(interval)

	return w
}

func (w *binanceKlinesServiceWrapper) StartTime(startTime int64) BinanceKlinesService {
	w.service.StartTime(startTime)

	return w
}

func (w *binanceKlinesServiceWrapper) EndTime(endTime int64) BinanceKlinesService {
	w.service.EndTime(endTime)

	return w
}

func (w *binanceKlinesServiceWrapper) Do(ctx context.Context) ([]*binance.Kline, error) {
	return w.service.Do(ctx)
}

type BinanceClient struct {
	apiClient BinanceAPIClient
	writer    writer.MarketDataWriter
}

func NewBinanceClient() (Provider, error) {
	return &BinanceClient{
		apiClient: &binanceClientWrapper{client: binance.NewClient("", "")},
		writer:    nil,
	}, nil
}

// NewBinanceClientWithAPI creates a client on top of an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient) *BinanceClient {
	return &BinanceClient{
		apiClient: apiClient,
		writer:    nil,
	}
}

func (c *BinanceClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download downloads the historical klines for the given ticker and date range from Binance
// and writes them as bars using the configured writer. Klines are fetched page by page.
func (c *BinanceClient) Download(
	ctx context.Context,
	ticker string,
	startDate time.Time,
	endDate time.Time,
	multiplier int,
	timespan models.Timespan,
	onProgress OnDownloadProgress,
) (path string, err error) {
	interval, err := convertTimespanToBinanceInterval(timespan, multiplier)
	if err != nil {
		return "", fmt.Errorf("failed to convert timespan to Binance interval: %w", err)
	}

	if c.writer == nil {
		return "", fmt.Errorf("writer is not configured")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer func() {
		if cerr := c.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing writer: %w", cerr)
		}
	}()

	startTimeMillis := startDate.UnixMilli()
	endTimeMillis := endDate.UnixMilli()
	currentStartTime := startTimeMillis

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		klines, err := c.apiClient.NewKlinesService().
			Symbol(ticker).
			Interval(interval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s from Binance", ticker)
		}

		if err := processKlines(c.writer, ticker, klines); err != nil {
			return "", fmt.Errorf("failed to process klines: %w", err)
		}

		reportProgress(onProgress,
			float64(currentStartTime-startTimeMillis), float64(endTimeMillis-startTimeMillis),
			fmt.Sprintf("Downloading %s klines from Binance", ticker))

		// a short page is the last one
		if len(klines) < binancePageSize {
			break
		}

		// the next page starts after the close of the last kline
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime >= endTimeMillis {
			break
		}
	}

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

// processKlines converts Binance klines to bars and writes them.
func processKlines(w writer.MarketDataWriter, ticker string, klines []*binance.Kline) error {
	for _, k := range klines {
		bar, err := klineToBar(ticker, k)
		if err != nil {
			return err
		}

		if err := w.Write(bar); err != nil {
			return fmt.Errorf("failed to write market data: %w", err)
		}
	}

	return nil
}

// klineToBar uses the kline open time as the bar timestamp.
func klineToBar(ticker string, k *binance.Kline) (types.Bar, error) {
	values := make([]float64, 0, 5)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"open", k.Open}, {"high", k.High}, {"low", k.Low}, {"close", k.Close}, {"volume", k.Volume},
	} {
		v, err := strconv.ParseFloat(field.value, 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeCorruptBarData, err, "kline at %d has invalid %s %q", k.OpenTime, field.name, field.value)
		}

		values = append(values, v)
	}

	return types.Bar{
		Symbol: ticker,
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

// convertTimespanToBinanceInterval converts the polygon timespan and multiplier to a Binance interval string.
// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", fmt.Errorf("unsupported weekly multiplier for Binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", fmt.Errorf("unsupported monthly multiplier for Binance: %d", multiplier)
	default:
		return "", fmt.Errorf("unsupported timespan for Binance: %s", timespan)
	}
}
