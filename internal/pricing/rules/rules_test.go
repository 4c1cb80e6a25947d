package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestApplyWeekendMarkup(t *testing.T) {
	rs := RuleSet{WeekendMarkupPct: 20}

	// 2025-06-07 is a Saturday, 2025-06-08 a Sunday, 2025-06-09 a Monday.
	saturday := Apply(100, date(2025, time.June, 7), 1, time.UTC, rs)
	assert.InDelta(t, 120, saturday.Price, 1e-9)
	assert.True(t, saturday.WeekendApplied)

	sunday := Apply(100, date(2025, time.June, 8), 1, time.UTC, rs)
	assert.InDelta(t, 120, sunday.Price, 1e-9)

	monday := Apply(100, date(2025, time.June, 9), 1, time.UTC, rs)
	assert.InDelta(t, 100, monday.Price, 1e-9)
	assert.False(t, monday.WeekendApplied)
}

func TestApplyWeekendUsesPropertyTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	// Friday 13:00 UTC is already Saturday in Auckland.
	fridayUTC := time.Date(2025, time.June, 6, 13, 0, 0, 0, time.UTC)
	out := Apply(100, fridayUTC, 1, loc, RuleSet{WeekendMarkupPct: 10})
	assert.True(t, out.WeekendApplied)
}

func TestApplyLongStayDiscounts(t *testing.T) {
	rs := RuleSet{WeeklyDiscountPct: 10, MonthlyDiscountPct: 25}
	monday := date(2025, time.June, 9)

	short := Apply(100, monday, 3, time.UTC, rs)
	assert.InDelta(t, 100, short.Price, 1e-9)
	assert.Equal(t, DiscountNone, short.DiscountApplied)

	weekly := Apply(100, monday, 7, time.UTC, rs)
	assert.InDelta(t, 90, weekly.Price, 1e-9)
	assert.Equal(t, DiscountWeekly, weekly.DiscountApplied)

	monthly := Apply(100, monday, 28, time.UTC, rs)
	assert.InDelta(t, 75, monthly.Price, 1e-9)
	assert.Equal(t, DiscountMonthly, monthly.DiscountApplied)
}

func TestApplyMonthlyWinsNeverStacks(t *testing.T) {
	rs := RuleSet{WeeklyDiscountPct: 10, MonthlyDiscountPct: 5}
	out := Apply(100, date(2025, time.June, 9), 30, time.UTC, rs)
	assert.InDelta(t, 95, out.Price, 1e-9)
	assert.Equal(t, DiscountMonthly, out.DiscountApplied)
}

func TestApplyWeekendAndDiscountCompose(t *testing.T) {
	rs := RuleSet{WeekendMarkupPct: 20, WeeklyDiscountPct: 10}
	out := Apply(100, date(2025, time.June, 7), 7, time.UTC, rs)
	assert.InDelta(t, 108, out.Price, 1e-9)
	assert.True(t, out.WeekendApplied)
	assert.Equal(t, DiscountWeekly, out.DiscountApplied)
}

func TestStayAllowed(t *testing.T) {
	rs := RuleSet{MinStay: 2, MaxStay: 14}

	assert.False(t, Apply(100, date(2025, time.June, 9), 1, time.UTC, rs).StayAllowed)
	assert.True(t, Apply(100, date(2025, time.June, 9), 2, time.UTC, rs).StayAllowed)
	assert.True(t, Apply(100, date(2025, time.June, 9), 14, time.UTC, rs).StayAllowed)
	assert.False(t, Apply(100, date(2025, time.June, 9), 15, time.UTC, rs).StayAllowed)

	open := RuleSet{}
	assert.True(t, Apply(100, date(2025, time.June, 9), 365, time.UTC, open).StayAllowed)
}
