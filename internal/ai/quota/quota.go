package quota

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/pkg/db"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

// Keeper enforces the per-owner daily call cap with atomic increments at the
// store boundary.
type Keeper struct {
	db    *gorm.DB
	clock clock.Clock
}

func New(gdb *gorm.DB, clk clock.Clock) *Keeper {
	return &Keeper{db: gdb, clock: clk}
}

// Day returns the owner-local calendar date the counter is keyed on.
func (k *Keeper) Day(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return k.clock.Now().In(loc).Format(dayLayout)
}

// ResetAt returns the next owner-local midnight.
func (k *Keeper) ResetAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	now := k.clock.Now().In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return next
}

// Reserve consumes one call for the owner today. The increment is a single
// guarded UPDATE so concurrent callers cannot exceed the cap. Provider
// failures after a successful Reserve still count.
func (k *Keeper) Reserve(ctx context.Context, ownerID snowflake.ID, loc *time.Location, maxCalls int) error {
	if maxCalls <= 0 {
		return domain.ErrQuotaExceeded
	}

	day := k.Day(loc)
	res := k.db.WithContext(ctx).Exec(
		`UPDATE ai_usage_counters
		 SET calls_today = calls_today + 1, updated_at = ?
		 WHERE owner_id = ? AND day = ? AND calls_today < max_calls`,
		k.clock.Now().UTC(), ownerID, day,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// No row updated: either the counter does not exist yet or it is full.
	counter := domain.AIUsageCounter{
		OwnerID:    ownerID,
		Day:        day,
		CallsToday: 1,
		MaxCalls:   maxCalls,
		UpdatedAt:  k.clock.Now().UTC(),
	}
	err := k.db.WithContext(ctx).Create(&counter).Error
	if err == nil {
		return nil
	}
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrQuotaExceeded
	}
	return err
}

// Status reads today's counter without consuming quota.
func (k *Keeper) Status(ctx context.Context, ownerID snowflake.ID, loc *time.Location, maxCalls int) (domain.QuotaStatus, error) {
	day := k.Day(loc)

	var counter domain.AIUsageCounter
	err := k.db.WithContext(ctx).
		First(&counter, "owner_id = ? AND day = ?", ownerID, day).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.QuotaStatus{}, err
		}
		counter = domain.AIUsageCounter{OwnerID: ownerID, Day: day, MaxCalls: maxCalls}
	}

	remaining := counter.MaxCalls - counter.CallsToday
	if remaining < 0 {
		remaining = 0
	}
	return domain.QuotaStatus{
		CallsToday: counter.CallsToday,
		MaxCalls:   counter.MaxCalls,
		Remaining:  remaining,
		ResetAt:    k.ResetAt(loc),
	}, nil
}
