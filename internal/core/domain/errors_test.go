package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewServiceError(KindNotFound, "city not found", nil)
		assert.Equal(t, "NOT_FOUND: city not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := NewServiceError(KindUpstreamUnavailable, "upstream call failed", cause)
		assert.Equal(t, "UPSTREAM_UNAVAILABLE: upstream call failed: connection refused", err.Error())
	})
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewServiceError(KindInternal, "wrapped", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestServiceError_AsAcrossBoundary(t *testing.T) {
	var wrapped error = NewServiceError(KindLLMRateLimited, "too many requests", nil)

	var svcErr *ServiceError
	assert.True(t, errors.As(wrapped, &svcErr))
	assert.Equal(t, KindLLMRateLimited, svcErr.Kind)
}
