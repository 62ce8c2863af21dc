package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Strategy turns a bar series into one signal per bar.
type Strategy interface {
	// Type returns the strategy variant
	Type() types.StrategyType
	// Name returns a label including the parameters, e.g. "SMA(20,50)"
	Name() string
	// Signals returns one signal per bar; bars inside the warm-up window carry an undefined signal
	Signals(series types.BarSeries) ([]types.Signal, error)
	// WarmUp returns the number of leading bars with undefined signals
	WarmUp() int
	// SupportsSimulation reports whether the variant defines entry and exit rules
	SupportsSimulation() bool
}

// Config selects one strategy variant and its parameters. Omitted and zero
// numeric parameters are the same thing: both take the variant default in
// New, so `oversold: 0` means 30. Only StopLossPct tells an explicit 0 (no
// stop) apart from omission.
type Config struct {
	Type types.StrategyType `yaml:"type" json:"type" validate:"required,oneof=moving_average_crossover rsi bollinger_bands" jsonschema:"title=Strategy,description=Strategy variant,enum=moving_average_crossover,enum=rsi,enum=bollinger_bands"`

	ShortWindow int `yaml:"short_window,omitempty" json:"short_window,omitempty" validate:"gte=0" jsonschema:"title=Short Window,description=Short moving average window (moving_average_crossover),minimum=0"`
	LongWindow  int `yaml:"long_window,omitempty" json:"long_window,omitempty" validate:"gte=0" jsonschema:"title=Long Window,description=Long moving average window (moving_average_crossover),minimum=0"`

	Period     int     `yaml:"period,omitempty" json:"period,omitempty" validate:"gte=0" jsonschema:"title=RSI Period,description=RSI look-back period (rsi),minimum=0"`
	Oversold   float64 `yaml:"oversold,omitempty" json:"oversold,omitempty" validate:"gte=0,lte=100" jsonschema:"title=Oversold,description=Buy below this RSI (rsi); 0 uses the default 30,minimum=0,maximum=100"`
	Overbought float64 `yaml:"overbought,omitempty" json:"overbought,omitempty" validate:"gte=0,lte=100" jsonschema:"title=Overbought,description=Sell above this RSI (rsi); 0 uses the default 70,minimum=0,maximum=100"`

	Window    int     `yaml:"window,omitempty" json:"window,omitempty" validate:"gte=0" jsonschema:"title=Window,description=Bollinger band window (bollinger_bands),minimum=0"`
	NumStdDev float64 `yaml:"num_std_dev,omitempty" json:"num_std_dev,omitempty" validate:"gte=0" jsonschema:"title=Standard Deviations,description=Band width in standard deviations (bollinger_bands); 0 uses the default 2,minimum=0"`

	// StopLossPct is a fraction in [0, 1), e.g. 0.08 for 8%
	StopLossPct optional.Option[float64] `yaml:"stop_loss_pct" json:"stop_loss_pct" jsonschema:"title=Stop Loss,description=Stop-loss as a fraction of the entry price"`
}

// UnmarshalYAML implements custom unmarshaling for Config
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Raw struct {
		Type        types.StrategyType `yaml:"type"`
		ShortWindow int                `yaml:"short_window"`
		LongWindow  int                `yaml:"long_window"`
		Period      int                `yaml:"period"`
		Oversold    float64            `yaml:"oversold"`
		Overbought  float64            `yaml:"overbought"`
		Window      int                `yaml:"window"`
		NumStdDev   float64            `yaml:"num_std_dev"`
		StopLossPct *float64           `yaml:"stop_loss_pct"`
	}

	var raw Raw
	if err := unmarshal(&raw); err != nil {
		return err
	}

	*c = Config{
		Type:        raw.Type,
		ShortWindow: raw.ShortWindow,
		LongWindow:  raw.LongWindow,
		Period:      raw.Period,
		Oversold:    raw.Oversold,
		Overbought:  raw.Overbought,
		Window:      raw.Window,
		NumStdDev:   raw.NumStdDev,
		StopLossPct: optional.None[float64](),
	}

	if raw.StopLossPct != nil {
		c.StopLossPct = optional.Some(*raw.StopLossPct)
	}

	return nil
}

// MarshalYAML writes the stop loss as a plain number.
func (c Config) MarshalYAML() (interface{}, error) {
	type Raw struct {
		Type        types.StrategyType `yaml:"type"`
		ShortWindow int                `yaml:"short_window,omitempty"`
		LongWindow  int                `yaml:"long_window,omitempty"`
		Period      int                `yaml:"period,omitempty"`
		Oversold    float64            `yaml:"oversold,omitempty"`
		Overbought  float64            `yaml:"overbought,omitempty"`
		Window      int                `yaml:"window,omitempty"`
		NumStdDev   float64            `yaml:"num_std_dev,omitempty"`
		StopLossPct *float64           `yaml:"stop_loss_pct,omitempty"`
	}

	raw := Raw{
		Type:        c.Type,
		ShortWindow: c.ShortWindow,
		LongWindow:  c.LongWindow,
		Period:      c.Period,
		Oversold:    c.Oversold,
		Overbought:  c.Overbought,
		Window:      c.Window,
		NumStdDev:   c.NumStdDev,
	}

	if c.StopLossPct.IsSome() {
		stopLoss := c.StopLossPct.Unwrap()
		raw.StopLossPct = &stopLoss
	}

	return raw, nil
}

// DefaultConfig returns the default parameters of a variant.
func DefaultConfig(strategyType types.StrategyType) Config {
	switch strategyType {
	case types.StrategyTypeMovingAverageCrossover:
		return Config{
			Type:        strategyType,
			ShortWindow: 20,
			LongWindow:  50,
			StopLossPct: optional.Some(0.08),
		}
	case types.StrategyTypeRSI:
		return Config{
			Type:        strategyType,
			Period:      14,
			Oversold:    30,
			Overbought:  70,
			StopLossPct: optional.Some(0.02),
		}
	case types.StrategyTypeBollingerBands:
		return Config{
			Type:        strategyType,
			Window:      20,
			NumStdDev:   2,
			StopLossPct: optional.Some(0.0),
		}
	default:
		return Config{Type: strategyType}
	}
}

// WithDefaults fills zero parameters with the variant defaults. StopLossPct
// is only filled when it is None.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig(c.Type)

	if c.ShortWindow == 0 {
		c.ShortWindow = defaults.ShortWindow
	}

	if c.LongWindow == 0 {
		c.LongWindow = defaults.LongWindow
	}

	if c.Period == 0 {
		c.Period = defaults.Period
	}

	if c.Oversold == 0 {
		c.Oversold = defaults.Oversold
	}

	if c.Overbought == 0 {
		c.Overbought = defaults.Overbought
	}

	if c.Window == 0 {
		c.Window = defaults.Window
	}

	if c.NumStdDev == 0 {
		c.NumStdDev = defaults.NumStdDev
	}

	if c.StopLossPct.IsNone() {
		c.StopLossPct = defaults.StopLossPct
	}

	return c
}

// StopLoss returns the configured stop loss, or 0 when unset.
func (c Config) StopLoss() float64 {
	if c.StopLossPct.IsSome() {
		return c.StopLossPct.Unwrap()
	}

	return 0
}

// Validate checks the struct tags and the cross-field rules of the variant.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy configuration", err)
	}

	if c.StopLossPct.IsSome() {
		stopLoss := c.StopLossPct.Unwrap()
		if stopLoss < 0 || stopLoss >= 1 {
			return errors.Newf(errors.ErrCodeInvalidStopLoss, "stop_loss_pct must be in [0, 1), got %v", stopLoss)
		}
	}

	switch c.Type {
	case types.StrategyTypeMovingAverageCrossover:
		if c.ShortWindow >= c.LongWindow {
			return errors.Newf(errors.ErrCodeInvalidPeriod,
				"short_window (%d) must be less than long_window (%d)", c.ShortWindow, c.LongWindow)
		}
	case types.StrategyTypeRSI:
		if c.Oversold >= c.Overbought {
			return errors.Newf(errors.ErrCodeInvalidThreshold,
				"oversold (%v) must be less than overbought (%v)", c.Oversold, c.Overbought)
		}
	}

	return nil
}

// New builds the strategy described by config after applying defaults and
// validating it.
func New(config Config) (Strategy, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		s   Strategy
		err error
	)

	switch config.Type {
	case types.StrategyTypeMovingAverageCrossover:
		s, err = NewMovingAverageCrossover(config.ShortWindow, config.LongWindow)
	case types.StrategyTypeRSI:
		s, err = NewRSI(config.Period, config.Oversold, config.Overbought)
	case types.StrategyTypeBollingerBands:
		s, err = NewBollingerBands(config.Window, config.NumStdDev)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy type: %s", config.Type)
	}

	if err != nil {
		return nil, err
	}

	return s, nil
}

// NewForSimulation is New plus a check that the variant has trading rules.
// It fails with UnsupportedStrategyForSimulation before any data is touched.
func NewForSimulation(config Config) (Strategy, error) {
	s, err := New(config)
	if err != nil {
		return nil, err
	}

	if !s.SupportsSimulation() {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategyForSimulation,
			"strategy %s has no entry/exit rule and cannot be simulated", s.Name())
	}

	return s, nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
