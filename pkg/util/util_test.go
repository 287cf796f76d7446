package util

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLapTime(t *testing.T) {
	testCases := []struct {
		name string
		ms   int64
		want string
	}{
		{name: "zero", ms: 0, want: "--:--.---"},
		{name: "sub minute", ms: 9_999, want: "0:09.999"},
		{name: "over a minute", ms: 65_500, want: "1:05.500"},
		{name: "negative", ms: -1_250, want: "-0:01.250"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLapTime(tt.ms))
		})
	}
}

func TestErrorCode(t *testing.T) {
	base := errors.New("boom")
	err := WrapErrorf(base, ErrNotFound, "track %s", "abc")
	wrapped := fmt.Errorf("outer: %w", err)

	assert.Equal(t, ErrNotFound, ErrorCode(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, ErrInternalServerError, ErrorCode(base))
	assert.Contains(t, err.Error(), "track abc")
}

func TestClampAndFinite(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.0, Clamp(-3, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(1)))
	assert.True(t, IsFinite(42))
}
