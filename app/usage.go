// Package app enforces the weekly free-tier simulation limit.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/models"
)

const FreeWeeklyLimit = 3

type quotaError struct {
	Limit int
	Used  int
}

func (e quotaError) Error() string {
	return "weekly quota exceeded"
}

// OwnerRef identifies the party a session or usage record belongs to.
// Exactly one of UserID/AnonID is set.
type OwnerRef struct {
	UserID string
	AnonID string
}

func (o OwnerRef) valid() bool {
	return (o.UserID != "") != (o.AnonID != "")
}

// weekStartUTC returns the Monday 00:00 UTC anchoring the week containing t.
// Sunday counts as day 7 of the previous week.
func weekStartUTC(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	daysSinceMonday := weekday - 1
	start := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

// checkQuota reports the owner's usage snapshot for the current week and
// whether another simulation may start. Paid users are exempt and get a nil
// limit. The read here and the increment at completion are separate
// statements; two concurrent starts can both be admitted at the ceiling,
// which the current policy accepts.
func checkQuota(ctx context.Context, owner OwnerRef, now time.Time) (models.UsageSnapshot, error) {
	limit := FreeWeeklyLimit
	snapshot := models.UsageSnapshot{Limit: &limit}
	if !owner.valid() {
		return snapshot, errors.New("owner must be exactly one of user or anon")
	}
	if db == nil {
		return snapshot, nil
	}

	if owner.UserID != "" {
		sub, err := getSubscriptionByUser(ctx, owner.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return snapshot, err
		}
		if sub.IsPro() {
			snapshot.Limit = nil
			return snapshot, nil
		}
	}

	used, err := getUsage(ctx, owner, weekStartUTC(now))
	if err != nil {
		return snapshot, err
	}
	snapshot.Used = used
	if used >= FreeWeeklyLimit {
		return snapshot, quotaError{Limit: FreeWeeklyLimit, Used: used}
	}
	return snapshot, nil
}

// getUsage is a point read; a missing row means zero usage this week.
func getUsage(ctx context.Context, owner OwnerRef, weekStart time.Time) (int, error) {
	var used int
	var err error
	if owner.UserID != "" {
		err = db.QueryRowContext(ctx, `
			SELECT simulations_used
			FROM usage_limits
			WHERE user_id = $1 AND week_start = $2;
		`, owner.UserID, weekStart).Scan(&used)
	} else {
		err = db.QueryRowContext(ctx, `
			SELECT simulations_used
			FROM usage_limits
			WHERE anon_id = $1 AND week_start = $2;
		`, owner.AnonID, weekStart).Scan(&used)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return used, nil
}

// incrementUsage bumps the owner's counter for the week, creating the row on
// first use. The upsert is a single statement so the count itself never
// loses an increment.
func incrementUsage(ctx context.Context, owner OwnerRef, weekStart time.Time) error {
	if !owner.valid() {
		return errors.New("owner must be exactly one of user or anon")
	}
	if db == nil {
		return nil
	}
	if owner.UserID != "" {
		_, err := db.ExecContext(ctx, `
			INSERT INTO usage_limits (user_id, week_start, simulations_used, updated_at)
			VALUES ($1, $2, 1, now())
			ON CONFLICT (user_id, week_start) WHERE user_id IS NOT NULL
			DO UPDATE SET simulations_used = usage_limits.simulations_used + 1, updated_at = now();
		`, owner.UserID, weekStart)
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO usage_limits (anon_id, week_start, simulations_used, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (anon_id, week_start) WHERE anon_id IS NOT NULL
		DO UPDATE SET simulations_used = usage_limits.simulations_used + 1, updated_at = now();
	`, owner.AnonID, weekStart)
	return err
}
