package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUpstreamUnavailable", ErrUpstreamUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrGenerationFailure", ErrGenerationFailure},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrIndexUnavailable", ErrIndexUnavailable},
		{"ErrCacheCorruption", ErrCacheCorruption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("fetch timeline: %w", ErrUpstreamUnavailable)

	assert.True(t, errors.Is(wrapped, ErrUpstreamUnavailable))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "fetch timeline: upstream unavailable", wrapped.Error())
}

func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}
