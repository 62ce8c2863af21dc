package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type BacktestEngineV1Config struct {
	Symbol        string                     `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol,description=Instrument ticker or alias (Nifty/BankNifty/FinNifty)"`
	BaseTimeframe types.Timeframe            `yaml:"base_timeframe" json:"base_timeframe" jsonschema:"title=Base Timeframe,description=Timeframe of the stored bars,default=1m"`
	Timeframes    []types.Timeframe          `yaml:"timeframes" json:"timeframes" validate:"required,min=1" jsonschema:"title=Timeframes,description=Timeframes to resample to; one run per timeframe and strategy"`
	Strategies    []strategy.Config          `yaml:"strategies" json:"strategies" validate:"required,min=1" jsonschema:"title=Strategies,description=Strategy variants to simulate"`
	MetricsMode   metrics.Mode               `yaml:"metrics_mode" json:"metrics_mode" jsonschema:"title=Metrics Mode,description=trade or bar level statistics,enum=trade,enum=bar,default=trade"`
	StartTime     optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional inclusive start of the backtest period"`
	EndTime       optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional inclusive end (expiry) of the backtest period"`
	Timezone      string                     `yaml:"timezone" json:"timezone" jsonschema:"title=Timezone,description=IANA zone used for day and month windows,example=Asia/Kolkata"`
	Parallelism   int                        `yaml:"parallelism" json:"parallelism" validate:"gte=0" jsonschema:"title=Parallelism,description=Maximum concurrent runs; 0 runs all at once,minimum=0"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Symbol        string            `yaml:"symbol"`
		BaseTimeframe string            `yaml:"base_timeframe"`
		Timeframes    []string          `yaml:"timeframes"`
		Strategies    []strategy.Config `yaml:"strategies"`
		MetricsMode   string            `yaml:"metrics_mode"`
		StartTime     *time.Time        `yaml:"start_time"`
		EndTime       *time.Time        `yaml:"end_time"`
		Timezone      string            `yaml:"timezone"`
		Parallelism   int               `yaml:"parallelism"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	*c = EmptyConfig()
	c.Symbol = config.Symbol
	c.Strategies = config.Strategies
	c.Timezone = config.Timezone
	c.Parallelism = config.Parallelism

	if config.BaseTimeframe != "" {
		base, err := types.ParseTimeframe(config.BaseTimeframe)
		if err != nil {
			return err
		}

		c.BaseTimeframe = base
	}

	for _, value := range config.Timeframes {
		tf, err := types.ParseTimeframe(value)
		if err != nil {
			return err
		}

		c.Timeframes = append(c.Timeframes, tf)
	}

	mode, err := metrics.ParseMode(config.MetricsMode)
	if err != nil {
		return err
	}

	c.MetricsMode = mode

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the struct tags, every strategy and the date range.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if err := c.BaseTimeframe.Validate(); err != nil {
		return err
	}

	for _, tf := range c.Timeframes {
		if err := tf.Validate(); err != nil {
			return err
		}
	}

	for i, config := range c.Strategies {
		if err := config.WithDefaults().Validate(); err != nil {
			return fmt.Errorf("strategy %d: %w", i, err)
		}
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.StartTime.Unwrap().After(c.EndTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "start_time %s is after end_time %s",
			c.StartTime.Unwrap().Format(time.RFC3339), c.EndTime.Unwrap().Format(time.RFC3339))
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location loads the configured timezone. An empty timezone keeps the bar
// times as stored and returns nil.
func (c *BacktestEngineV1Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid timezone %q", c.Timezone)
	}

	return loc, nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	timeframes := make([]any, 0, len(types.Timeframes()))
	for _, tf := range types.Timeframes() {
		timeframes = append(timeframes, string(tf))
	}

	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t.String() == "optional.Option[float64]" {
				return &jsonschema.Schema{
					Type: "number",
				}
			}

			if strings.HasSuffix(t.String(), "types.Timeframe") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: timeframes,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a single-strategy config over the given range.
func TestConfig(symbol string, startTime time.Time, endTime time.Time, strategyConfig strategy.Config, timeframes ...types.Timeframe) BacktestEngineV1Config {
	config := EmptyConfig()
	config.Symbol = symbol
	config.Timeframes = timeframes
	config.Strategies = []strategy.Config{strategyConfig}
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Symbol:        "",
		BaseTimeframe: types.TimeframeOneMinute,
		Timeframes:    nil,
		Strategies:    nil,
		MetricsMode:   metrics.ModeTrade,
		StartTime:     optional.None[time.Time](),
		EndTime:       optional.None[time.Time](),
		Timezone:      "",
		Parallelism:   0,
	}
}
