package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/urfave/cli/v3"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the backtest `YAML` configuration",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Bar store: a parquet file, a glob or a Year=/Month= partitioned directory",
			Value:   "data",
		},
		&cli.StringFlag{
			Name:    "results",
			Aliases: []string{"r"},
			Usage:   "Directory that receives the per run result folders",
			Value:   "results",
		},
		&cli.StringFlag{
			Name:  "history",
			Usage: "Optional SQLite file that keeps every finished report",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Disable the progress bar",
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Backtest signal strategies on historical bars",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run every configured strategy on every configured timeframe once",
				Flags:  configFlags(),
				Action: runAction,
			},
			{
				Name:  "schedule",
				Usage: "Re-run the backtest on a cron schedule until interrupted",
				Flags: append(configFlags(),
					&cli.StringFlag{
						Name:  "cron",
						Usage: "Cron `SPEC` with seconds, evaluated in the configured timezone",
						Value: "0 0 16 * * 1-5",
					},
					&cli.BoolFlag{
						Name:  "now",
						Usage: "Run once immediately before waiting for the schedule",
					},
				),
				Action: scheduleAction,
			},
			{
				Name:  "bands",
				Usage: "Export Bollinger band lines of the configured symbol for every configured timeframe",
				Flags: append(configFlags(),
					&cli.IntFlag{
						Name:  "window",
						Usage: "Band window in bars",
						Value: 20,
					},
					&cli.FloatFlag{
						Name:  "std",
						Usage: "Band width in standard deviations",
						Value: 2,
					},
				),
				Action: bandsAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the backtest configuration",
				Action: schemaAction,
			},
			{
				Name:  "reports",
				Usage: "List reports kept in a history database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "history",
						Usage:    "SQLite history file written by run or schedule",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "symbol",
						Usage: "Only list reports for this ticker or alias",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of reports",
						Value: 20,
					},
				},
				Action: reportsAction,
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
