package guardrail

import "math"

// Reason explains the guardrail verdict for a proposed price.
type Reason string

const (
	ReasonValid                   Reason = "VALID"
	ReasonCriticalInvalidInput    Reason = "CRITICAL_INVALID_INPUT"
	ReasonMissingBasePriceContext Reason = "MISSING_BASE_PRICE_CONTEXT"
	ReasonBelowMinLimit           Reason = "BELOW_MIN_LIMIT"
	ReasonAboveMaxLimit           Reason = "ABOVE_MAX_LIMIT"
	ReasonSanityTooHigh           Reason = "SANITY_CHECK_TOO_HIGH"
	ReasonSanityTooLow            Reason = "SANITY_CHECK_TOO_LOW"
)

// DefaultSanityThreshold bounds relative deviation from the base price.
const DefaultSanityThreshold = 0.5

// Context carries the limits a proposed price is validated against.
type Context struct {
	BasePrice       float64
	MinPrice        float64
	MaxPrice        float64
	AllowOverride   bool
	SanityThreshold float64
}

// Result is the guardrail verdict. SafePrice is always rounded to two
// decimals.
type Result struct {
	SafePrice   float64
	WasAdjusted bool
	Reason      Reason
}

// Check validates proposed against ctx. It is pure and deterministic.
//
// Order of checks: invalid proposed falls back to the base price; a missing
// base passes the proposal through untouched; hard min/max limits clamp and
// short-circuit; finally the sanity bound clamps deviation from base unless
// overrides are allowed.
func Check(proposed float64, ctx Context) Result {
	if !isFinitePositive(proposed) {
		fallback := 0.0
		if isFinitePositive(ctx.BasePrice) {
			fallback = ctx.BasePrice
		}
		return Result{SafePrice: Round2(fallback), WasAdjusted: true, Reason: ReasonCriticalInvalidInput}
	}

	if !isFinitePositive(ctx.BasePrice) {
		return Result{SafePrice: Round2(proposed), WasAdjusted: false, Reason: ReasonMissingBasePriceContext}
	}

	if ctx.MinPrice > 0 && proposed < ctx.MinPrice {
		return Result{SafePrice: Round2(ctx.MinPrice), WasAdjusted: true, Reason: ReasonBelowMinLimit}
	}
	if ctx.MaxPrice > 0 && proposed > ctx.MaxPrice {
		return Result{SafePrice: Round2(ctx.MaxPrice), WasAdjusted: true, Reason: ReasonAboveMaxLimit}
	}

	if !ctx.AllowOverride {
		threshold := ctx.SanityThreshold
		if threshold <= 0 {
			threshold = DefaultSanityThreshold
		}
		deviation := (proposed - ctx.BasePrice) / ctx.BasePrice
		if deviation > threshold {
			return Result{SafePrice: Round2(ctx.BasePrice * (1 + threshold)), WasAdjusted: true, Reason: ReasonSanityTooHigh}
		}
		if deviation < -threshold {
			return Result{SafePrice: Round2(ctx.BasePrice * (1 - threshold)), WasAdjusted: true, Reason: ReasonSanityTooLow}
		}
	}

	return Result{SafePrice: Round2(proposed), WasAdjusted: false, Reason: ReasonValid}
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func isFinitePositive(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value > 0
}
