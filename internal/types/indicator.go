package types

type IndicatorType string

const (
	IndicatorTypeMA             IndicatorType = "ma"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
)

// StrategyType names a strategy variant. Exactly one is selected per run.
type StrategyType string

const (
	StrategyTypeMovingAverageCrossover StrategyType = "moving_average_crossover"
	StrategyTypeRSI                    StrategyType = "rsi"
	StrategyTypeBollingerBands         StrategyType = "bollinger_bands"
)
