package types

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type TimeframeTestSuite struct {
	suite.Suite
}

func TestTimeframeSuite(t *testing.T) {
	suite.Run(t, new(TimeframeTestSuite))
}

func (suite *TimeframeTestSuite) TestParseTimeframe() {
	tests := []struct {
		input    string
		expected Timeframe
		wantErr  bool
	}{
		{input: "1m", expected: TimeframeOneMinute},
		{input: "1Min", expected: TimeframeOneMinute},
		{input: "1 minute", expected: TimeframeOneMinute},
		{input: "5m", expected: TimeframeFiveMinutes},
		{input: "5Min", expected: TimeframeFiveMinutes},
		{input: "5 minutes", expected: TimeframeFiveMinutes},
		{input: "1h", expected: TimeframeOneHour},
		{input: "1H", expected: TimeframeOneHour},
		{input: "1 hour", expected: TimeframeOneHour},
		{input: "1d", expected: TimeframeOneDay},
		{input: "1D", expected: TimeframeOneDay},
		{input: "1 day", expected: TimeframeOneDay},
		{input: "1M", expected: TimeframeOneMonth},
		{input: "1ME", expected: TimeframeOneMonth},
		{input: "1 month", expected: TimeframeOneMonth},
		{input: " 1h ", expected: TimeframeOneHour},
		{input: "15m", wantErr: true},
		{input: "", wantErr: true},
		{input: "weekly", wantErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.input, func() {
			tf, err := ParseTimeframe(tc.input)
			if tc.wantErr {
				suite.Require().Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
				return
			}
			suite.Require().NoError(err)
			suite.Equal(tc.expected, tf)
		})
	}
}

func (suite *TimeframeTestSuite) TestValidate() {
	for _, tf := range Timeframes() {
		suite.NoError(tf.Validate())
	}

	suite.True(errors.HasCode(Timeframe("2h").Validate(), errors.ErrCodeInvalidTimeframe))
}

func (suite *TimeframeTestSuite) TestDuration() {
	suite.Equal(time.Minute, TimeframeOneMinute.Duration())
	suite.Equal(5*time.Minute, TimeframeFiveMinutes.Duration())
	suite.Equal(time.Hour, TimeframeOneHour.Duration())
	suite.Equal(24*time.Hour, TimeframeOneDay.Duration())
	suite.Equal(time.Duration(0), TimeframeOneMonth.Duration())
}

func (suite *TimeframeTestSuite) TestLabelAndSlug() {
	suite.Equal("5 minutes", TimeframeFiveMinutes.Label())
	suite.Equal("1_minute", TimeframeOneMinute.Slug())
	suite.Equal("1_month", TimeframeOneMonth.Slug())
	suite.NotEqual(TimeframeOneMinute.Slug(), TimeframeOneMonth.Slug())

	for _, tf := range Timeframes() {
		parsed, err := ParseTimeframe(tf.Label())
		suite.Require().NoError(err)
		suite.Equal(tf, parsed)
	}
}
