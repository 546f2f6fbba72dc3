package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSwapStatus(t *testing.T) {
	tests := []struct {
		in   string
		want SwapStatus
	}{
		{"new", SwapStatusWaiting},
		{"waiting", SwapStatusWaiting},
		{"confirming", SwapStatusConfirming},
		{"sending", SwapStatusSending},
		{"finished", SwapStatusCompleted},
		{"failed", SwapStatusFailed},
		{"halted", SwapStatusFailed},
		{"refunded", SwapStatusRefunded},
		{"expired", SwapStatusExpired},
		{"FINISHED", SwapStatusCompleted},
		{"  sending  ", SwapStatusSending},
		{"", SwapStatusWaiting},
		{"banana", SwapStatusWaiting},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSwapStatus(tt.in), "input %q", tt.in)
	}
}

func TestSwapStatusValid(t *testing.T) {
	assert.True(t, SwapStatusWaiting.Valid())
	assert.True(t, SwapStatusCompleted.Valid())
	assert.False(t, SwapStatus("banana").Valid())
	assert.False(t, SwapStatus("").Valid())
}

func TestParseRateType(t *testing.T) {
	got, ok := ParseRateType("")
	assert.True(t, ok)
	assert.Equal(t, RateTypeFloating, got)

	got, ok = ParseRateType("Floating")
	assert.True(t, ok)
	assert.Equal(t, RateTypeFloating, got)

	got, ok = ParseRateType("FIXED")
	assert.True(t, ok)
	assert.Equal(t, RateTypeFixed, got)

	_, ok = ParseRateType("variable")
	assert.False(t, ok)
}
