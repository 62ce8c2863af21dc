package engine

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// getResultFolder returns <results>/<symbol>/<strategy>[/<start>_<end>]/<timeframe>.
func getResultFolder(b *BacktestEngineV1, symbol string, strategyName string, timeframe types.Timeframe) string {
	symbolFolder := filepath.Join(b.resultsFolder, types.StorageName(symbol))
	strategyFolder := filepath.Join(symbolFolder, folderName(strategyName))

	if b.config.StartTime.IsSome() || b.config.EndTime.IsSome() {
		startTimeStr := "all"
		endTimeStr := "all"

		if b.config.StartTime.IsSome() {
			startTimeStr = b.config.StartTime.Unwrap().Format("20060102")
		}

		if b.config.EndTime.IsSome() {
			endTimeStr = b.config.EndTime.Unwrap().Format("20060102")
		}

		strategyFolder = filepath.Join(strategyFolder, startTimeStr+"_"+endTimeStr)
	}

	return filepath.Join(strategyFolder, timeframe.Slug())
}

// folderName turns a strategy label such as "SMA(20,50)" into "SMA_20_50".
func folderName(name string) string {
	var builder strings.Builder

	lastUnderscore := false

	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' {
			builder.WriteRune(r)

			lastUnderscore = false

			continue
		}

		if !lastUnderscore {
			builder.WriteRune('_')

			lastUnderscore = true
		}
	}

	return strings.Trim(builder.String(), "_")
}
