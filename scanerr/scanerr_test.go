package scanerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	err := New("xss_scan", ErrCodeTimeout, ClassOperational, "scan timed out")
	assert.Equal(t, "xss_scan [operational/TIMEOUT]: scan timed out", err.Error())

	wrapped := err.WithCause(errors.New("context deadline exceeded"))
	assert.Contains(t, wrapped.Error(), "context deadline exceeded")
}

func TestViolation_MatchesSentinel(t *testing.T) {
	err := Violation("ledger.Allows", ErrCodeUnledgeredOperation,
		"no entry for operation \"banner_grab\"", ErrUnledgeredOperation)

	require.True(t, errors.Is(err, ErrUnledgeredOperation))
	assert.True(t, IsViolation(err))
	assert.False(t, IsOperational(err))
}

func TestViolation_SurvivesWrapping(t *testing.T) {
	inner := Violation("engine.Run", ErrCodeDeadlineExceeded,
		"deadline breached during dispatch", ErrDeadlineExceeded)
	outer := fmt.Errorf("scan aborted: %w", inner)

	assert.True(t, errors.Is(outer, ErrDeadlineExceeded))
	assert.True(t, IsViolation(outer))
}

func TestOperational_Classification(t *testing.T) {
	err := Operational("sqli_scan", ErrCodeExecutionFailed, "exit status 2").
		WithDetails(map[string]any{"exit_code": 2})

	assert.True(t, IsOperational(err))
	assert.False(t, IsViolation(err))
	assert.Equal(t, 2, err.Details["exit_code"])
}

func TestIs_MatchesOpAndCode(t *testing.T) {
	a := Operational("crawl", ErrCodeTimeout, "one message")
	b := Operational("crawl", ErrCodeTimeout, "another message")
	c := Operational("dir_fuzz", ErrCodeTimeout, "one message")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsViolation_PlainError(t *testing.T) {
	assert.False(t, IsViolation(errors.New("plain")))
	assert.False(t, IsOperational(nil))
}
