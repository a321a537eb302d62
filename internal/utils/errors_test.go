package contextutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorFormat(t *testing.T) {
	err := NewAppError(ErrorCodeInvalidInput, SeverityWarn, "bad value", "field x")
	assert.Equal(t, "INVALID_INPUT: bad value - field x", err.Error())

	err = NewAppError(ErrorCodeInvalidInput, SeverityWarn, "bad value", "")
	assert.Equal(t, "INVALID_INPUT: bad value", err.Error())
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := WrapError(ErrQuotaExceeded, "saving progress")
	assert.True(t, errors.Is(wrapped, ErrQuotaExceeded))
	assert.False(t, errors.Is(wrapped, ErrCorruptData))
}

func TestWrapError_PreservesCode(t *testing.T) {
	wrapped := WrapError(ErrNoActiveSession, "resume")
	assert.Equal(t, ErrorCodeNoActiveSession, GetErrorCode(wrapped))
	assert.Equal(t, SeverityInfo, GetErrorSeverity(wrapped))
}

func TestWrapError_GenericBecomesInternal(t *testing.T) {
	wrapped := WrapError(fmt.Errorf("disk on fire"), "writing record")
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(wrapped))
	assert.Contains(t, wrapped.Error(), "disk on fire")
}

func TestWrapError_NilStaysNil(t *testing.T) {
	assert.NoError(t, WrapError(nil, "anything"))
	assert.NoError(t, WrapErrorf(nil, "anything %d", 1))
}

func TestWrapErrorf_FormatsContext(t *testing.T) {
	wrapped := WrapErrorf(ErrInvalidAnswerIndex, "option %d out of range", 7)
	require.Error(t, wrapped)
	assert.Equal(t, ErrorCodeInvalidAnswerIndex, GetErrorCode(wrapped))
	assert.Contains(t, wrapped.Error(), "option 7 out of range")
}

func TestIsError(t *testing.T) {
	err := WrapErrorf(ErrInvalidTransition, "cannot submit in state %s", "idle")
	assert.True(t, IsError(err, ErrInvalidTransition))
	assert.False(t, IsError(err, ErrNoActiveSession))
	assert.False(t, IsError(fmt.Errorf("plain"), ErrInvalidTransition))
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Count int    `validate:"gte=0"`
	}

	assert.NoError(t, ValidateStruct(&payload{Name: "x", Count: 0}))

	err := ValidateStruct(&payload{Name: "", Count: 3})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeValidationFailed, GetErrorCode(err))

	err = ValidateStruct(&payload{Name: "x", Count: -1})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeValidationFailed, GetErrorCode(err))
}
