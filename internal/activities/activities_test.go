package activities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"veriflow/internal/providers"
)

func TestClassifyVerifyErrorQuotaIsNonRetryable(t *testing.T) {
	err := classifyVerifyError(errors.New("openai: insufficient_quota for this key"))

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, string(providers.ErrorQuota), appErr.Type())
}

func TestClassifyVerifyErrorContextIsNonRetryable(t *testing.T) {
	err := classifyVerifyError(errors.New("prompt too long for model context window"))

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.NonRetryable())
}

func TestClassifyVerifyErrorTransientKeepsRetrying(t *testing.T) {
	orig := errors.New("service temporarily unavailable")
	err := classifyVerifyError(orig)
	assert.Equal(t, orig, err, "retryable classes pass through for the retry policy")

	rate := errors.New("429 too many requests")
	assert.Equal(t, rate, classifyVerifyError(rate))
}
