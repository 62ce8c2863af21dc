package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidStopLoss      ErrorCode = 102
	ErrCodeInvalidType          ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105
	ErrCodeInvalidThreshold     ErrorCode = 106
	ErrCodeInvalidStdDev        ErrorCode = 107
	ErrCodeInvalidTimeframe     ErrorCode = 108
	ErrCodeInvalidDateRange     ErrorCode = 109

	// Data/Resource errors (200-299)
	ErrCodeEmptySeries           ErrorCode = 200
	ErrCodeCorruptBarData        ErrorCode = 201
	ErrCodeDataSourceUnavailable ErrorCode = 202
	ErrCodeQueryFailed           ErrorCode = 203
	ErrCodeUnsortedSeries        ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeUndefinedIndicatorWindow ErrorCode = 302
	ErrCodeInsufficientData         ErrorCode = 303

	// Strategy errors (400-499)
	ErrCodeUnsupportedStrategy              ErrorCode = 400
	ErrCodeUnsupportedStrategyForSimulation ErrorCode = 401
	ErrCodeStrategyConfigError              ErrorCode = 402

	// Simulation errors (500-599)
	ErrCodeSignalMisaligned ErrorCode = 500

	// Backtest errors (600-699)
	ErrCodeBacktestNotInitialized ErrorCode = 600
	ErrCodeBacktestNoDatasource   ErrorCode = 601
	ErrCodeBacktestNoResultsDir   ErrorCode = 602
	ErrCodeBacktestWriteFailed    ErrorCode = 603

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
)

// String returns a short name for the code, used in logs.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeEmptySeries:
		return "EmptySeries"
	case ErrCodeCorruptBarData:
		return "CorruptBarData"
	case ErrCodeInvalidTimeframe:
		return "InvalidTimeframe"
	case ErrCodeUndefinedIndicatorWindow:
		return "UndefinedIndicatorWindow"
	case ErrCodeUnsupportedStrategyForSimulation:
		return "UnsupportedStrategyForSimulation"
	case ErrCodeInsufficientData:
		return "InsufficientData"
	case ErrCodeInvalidParameter:
		return "InvalidParameter"
	case ErrCodeInvalidConfiguration:
		return "InvalidConfiguration"
	default:
		return "Error"
	}
}
