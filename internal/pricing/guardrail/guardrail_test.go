package guardrail

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	base := Context{BasePrice: 100, MinPrice: 60, MaxPrice: 200, SanityThreshold: 0.5}

	tests := []struct {
		name         string
		proposed     float64
		ctx          Context
		wantPrice    float64
		wantAdjusted bool
		wantReason   Reason
	}{
		{"valid within bounds", 120, base, 120, false, ReasonValid},
		{"clamps to ceiling", 260, base, 200, true, ReasonAboveMaxLimit},
		{"clamps to floor", 40, base, 60, true, ReasonBelowMinLimit},
		{
			"sanity high",
			300,
			Context{BasePrice: 100, MinPrice: 0, MaxPrice: 1000, SanityThreshold: 0.5},
			150, true, ReasonSanityTooHigh,
		},
		{
			"sanity low",
			30,
			Context{BasePrice: 100, MinPrice: 0, MaxPrice: 1000, SanityThreshold: 0.5},
			50, true, ReasonSanityTooLow,
		},
		{
			"threshold boundary is inclusive",
			150,
			Context{BasePrice: 100, MinPrice: 0, MaxPrice: 1000, SanityThreshold: 0.5},
			150, false, ReasonValid,
		},
		{
			"allow override skips sanity",
			300,
			Context{BasePrice: 100, MinPrice: 0, MaxPrice: 1000, AllowOverride: true, SanityThreshold: 0.5},
			300, false, ReasonValid,
		},
		{"nan proposed falls back to base", math.NaN(), base, 100, true, ReasonCriticalInvalidInput},
		{"negative proposed falls back to base", -5, base, 100, true, ReasonCriticalInvalidInput},
		{"infinite proposed falls back to base", math.Inf(1), base, 100, true, ReasonCriticalInvalidInput},
		{
			"missing base passes through",
			123.456,
			Context{MinPrice: 60, MaxPrice: 200},
			123.46, false, ReasonMissingBasePriceContext,
		},
		{
			"min equals max pins the price",
			500,
			Context{BasePrice: 100, MinPrice: 150, MaxPrice: 150, SanityThreshold: 0.5},
			150, true, ReasonAboveMaxLimit,
		},
		{
			"min equals max pins low proposals too",
			10,
			Context{BasePrice: 100, MinPrice: 150, MaxPrice: 150, SanityThreshold: 0.5},
			150, true, ReasonBelowMinLimit,
		},
		{
			"default threshold applies when unset",
			160,
			Context{BasePrice: 100, MinPrice: 0, MaxPrice: 1000},
			150, true, ReasonSanityTooHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.proposed, tt.ctx)
			assert.InDelta(t, tt.wantPrice, got.SafePrice, 1e-9)
			assert.Equal(t, tt.wantAdjusted, got.WasAdjusted)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 99.99, Round2(99.994))
	assert.Equal(t, 100.0, Round2(99.996))
	assert.Equal(t, 0.0, Round2(0))
}
