package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeInvalidTimeframe, "invalid timeframe: %s", "2w")
	suite.Equal(ErrCodeInvalidTimeframe, err.Code)
	suite.Equal("invalid timeframe: 2w", err.Message)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeBacktestWriteFailed, "failed to write stats", cause)
	suite.Equal(cause, err.Unwrap())
	suite.Equal("[603] failed to write stats: disk full", err.Error())
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("no rows")
	err := Wrapf(ErrCodeEmptySeries, cause, "no bars for %s", "NSEI")
	suite.Equal("no bars for NSEI", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestGetCode() {
	suite.Equal(ErrCodeEmptySeries, GetCode(New(ErrCodeEmptySeries, "empty")))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
	suite.Equal(ErrCodeUnknown, GetCode(nil))
}

func (suite *ErrorTestSuite) TestGetCodeThroughFmtWrap() {
	inner := New(ErrCodeCorruptBarData, "bad bar")
	err := fmt.Errorf("run failed: %w", inner)
	suite.Equal(ErrCodeCorruptBarData, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCodeNested() {
	inner := New(ErrCodeUnsupportedStrategyForSimulation, "bollinger bands has no rule")
	outer := Wrap(ErrCodeStrategyConfigError, "invalid strategy", inner)

	suite.True(HasCode(outer, ErrCodeStrategyConfigError))
	suite.True(HasCode(outer, ErrCodeUnsupportedStrategyForSimulation))
	suite.False(HasCode(outer, ErrCodeEmptySeries))
	suite.False(HasCode(nil, ErrCodeEmptySeries))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	inner := New(ErrCodeEmptySeries, "empty")
	err := fmt.Errorf("wrapped: %w", inner)

	suite.True(Is(err, inner))

	var target *Error
	suite.True(As(err, &target))
	suite.Equal(ErrCodeEmptySeries, target.Code)
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataErrorf(50, 10, "NSEI", "need %d bars, got %d", 50, 10)
	suite.Equal("need 50 bars, got 10", err.Error())
	suite.Equal(50, err.Required)
	suite.Equal(10, err.Actual)

	wrapped := fmt.Errorf("indicator: %w", err)
	suite.True(IsInsufficientDataError(wrapped))
	suite.True(HasCode(wrapped, ErrCodeInsufficientData))
	suite.Equal(ErrCodeInsufficientData, GetCode(wrapped))
	suite.False(IsInsufficientDataError(errors.New("other")))
}

func (suite *ErrorTestSuite) TestErrorCodeString() {
	suite.Equal("EmptySeries", ErrCodeEmptySeries.String())
	suite.Equal("CorruptBarData", ErrCodeCorruptBarData.String())
	suite.Equal("UnsupportedStrategyForSimulation", ErrCodeUnsupportedStrategyForSimulation.String())
	suite.Equal("Error", ErrCodeQueryFailed.String())
}
