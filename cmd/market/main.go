package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata"
	"github.com/rxtech-lab/argo-backtest/pkg/marketdata/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// newProgressBar renders provider progress as a percentage bar.
func newProgressBar(bar *progressbar.ProgressBar) provider.OnDownloadProgress {
	return func(current float64, total float64, message string) {
		bar.Describe(message)

		if total <= 0 {
			return
		}

		percent := int(current / total * 100)
		percent = max(0, min(percent, 100))

		_ = bar.Set(percent)
	}
}

// downloadAction parses the flags, sets up the market data client and starts the download.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	base := marketdata.BaseDownloadConfig{
		Ticker:    cmd.String("ticker"),
		StartDate: cmd.Timestamp("start").Format(time.RFC3339),
		EndDate:   cmd.Timestamp("end").Format(time.RFC3339),
		Interval:  cmd.String("interval"),
	}

	if err := base.Validate(); err != nil {
		return err
	}

	params, err := base.ToDownloadParams()
	if err != nil {
		return err
	}

	clientConfig := marketdata.ClientConfig{
		ProviderType:  marketdata.ProviderType(cmd.String("provider")),
		WriterType:    marketdata.WriterParquet,
		DataPath:      cmd.String("data"),
		PolygonApiKey: os.Getenv("POLYGON_API_KEY"),
	}

	bar := progressbar.Default(100, "starting")

	client, err := marketdata.NewClient(clientConfig, newProgressBar(bar), log)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	path, err := client.Download(ctx, params)
	_ = bar.Finish()

	if err != nil {
		return err
	}

	log.Info("Download completed", zap.String("path", path))

	return nil
}

func providersAction(_ context.Context, cmd *cli.Command) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "PROVIDER", "AUTH", "DESCRIPTION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}

			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, name := range marketdata.GetSupportedProviders() {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			return err
		}

		t.Row(info.Name, info.DisplayName, strconv.FormatBool(info.RequiresAuth), info.Description)
	}

	_, err := fmt.Fprintln(cmd.Root().Writer, t.Render())

	return err
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "market",
		Usage: "Manage the partitioned historical bar store",
		Commands: []*cli.Command{
			{
				Name:  "download",
				Usage: "Download historical bars into <data>/<SYMBOL>/Year=YYYY/Month=M/data.parquet",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ticker",
						Aliases:  []string{"t"},
						Usage:    "Ticker or alias (Nifty, BankNifty, FinNifty)",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:    "start",
						Aliases: []string{"s"},
						Usage:   "Start date in `YYYY-MM-DD` format",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
						Required: true,
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "End date in `YYYY-MM-DD` format. Defaults to now.",
						Value:   time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02", time.RFC3339},
						},
					},
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Bar timeframe (1m, 5m, 1h, 1d or 1M)",
						Value:   types.TimeframeOneMinute.String(),
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Data provider to use (%s or %s)", marketdata.ProviderPolygon, marketdata.ProviderBinance),
						Value:   string(marketdata.ProviderPolygon),
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Root directory of the bar store",
						Value:   "data",
					},
				},
				Action: downloadAction,
			},
			{
				Name:  "providers",
				Usage: "List supported providers",
				Action: providersAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
