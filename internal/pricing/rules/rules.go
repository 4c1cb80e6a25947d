package rules

import "time"

// Thresholds for long-stay discounts, in nights.
const (
	WeeklyStayNights  = 7
	MonthlyStayNights = 28
)

// RuleSet mirrors the property's flattened rules.
type RuleSet struct {
	MinStay            int
	MaxStay            int
	WeeklyDiscountPct  int
	MonthlyDiscountPct int
	WeekendMarkupPct   float64
}

// Discount kinds reported in Outcome.DiscountApplied.
const (
	DiscountNone    = ""
	DiscountWeekly  = "weekly"
	DiscountMonthly = "monthly"
)

// Outcome is the rule evaluation result. StayAllowed signals the caller to
// forbid bookings of this length; the price itself is stored regardless.
type Outcome struct {
	Price           float64
	WeekendApplied  bool
	DiscountApplied string
	StayAllowed     bool
}

// Apply evaluates the rule set against a candidate price for one night.
// Steps run in a fixed order and are idempotent: weekend markup when the
// date is a Saturday or Sunday in loc, then at most one long-stay discount
// (monthly at 28+ nights wins over weekly, never both).
func Apply(price float64, date time.Time, stayLength int, loc *time.Location, rs RuleSet) Outcome {
	if loc == nil {
		loc = time.UTC
	}

	out := Outcome{Price: price, StayAllowed: StayAllowed(stayLength, rs)}

	weekday := date.In(loc).Weekday()
	if (weekday == time.Saturday || weekday == time.Sunday) && rs.WeekendMarkupPct > 0 {
		out.Price *= 1 + rs.WeekendMarkupPct/100
		out.WeekendApplied = true
	}

	switch {
	case stayLength >= MonthlyStayNights:
		if rs.MonthlyDiscountPct > 0 {
			out.Price *= 1 - float64(rs.MonthlyDiscountPct)/100
			out.DiscountApplied = DiscountMonthly
		}
	case stayLength >= WeeklyStayNights:
		if rs.WeeklyDiscountPct > 0 {
			out.Price *= 1 - float64(rs.WeeklyDiscountPct)/100
			out.DiscountApplied = DiscountWeekly
		}
	}

	return out
}

// StayAllowed reports whether a stay of the given length satisfies the rule
// set's min/max bounds. Zero bounds and unknown lengths do not constrain.
func StayAllowed(stayLength int, rs RuleSet) bool {
	if stayLength <= 0 {
		return true
	}
	if rs.MinStay > 0 && stayLength < rs.MinStay {
		return false
	}
	if rs.MaxStay > 0 && stayLength > rs.MaxStay {
		return false
	}
	return true
}
