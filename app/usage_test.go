package app

import (
	"context"
	"testing"
	"time"
)

func TestWeekStartUTC(t *testing.T) {
	t.Run("sunday maps to previous monday", func(t *testing.T) {
		sunday := time.Date(2025, time.March, 9, 15, 30, 0, 0, time.UTC)
		got := weekStartUTC(sunday)
		want := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("weekStartUTC(sunday) = %v, want %v", got, want)
		}
	})

	t.Run("monday maps to itself at midnight", func(t *testing.T) {
		monday := time.Date(2025, time.March, 3, 23, 59, 59, 0, time.UTC)
		got := weekStartUTC(monday)
		want := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("weekStartUTC(monday) = %v, want %v", got, want)
		}
	})

	t.Run("midweek maps to that week's monday", func(t *testing.T) {
		thursday := time.Date(2025, time.March, 6, 8, 0, 0, 0, time.UTC)
		got := weekStartUTC(thursday)
		want := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("weekStartUTC(thursday) = %v, want %v", got, want)
		}
	})

	t.Run("seven days apart yields week starts seven days apart", func(t *testing.T) {
		for day := 0; day < 7; day++ {
			a := time.Date(2025, time.June, 2+day, 12, 0, 0, 0, time.UTC)
			b := a.AddDate(0, 0, 7)
			if got := weekStartUTC(b).Sub(weekStartUTC(a)); got != 7*24*time.Hour {
				t.Fatalf("week starts %v apart for %v, want 168h", got, a.Weekday())
			}
		}
	})

	t.Run("non-utc input is normalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+13", 13*3600)
		// Monday 01:00 in UTC+13 is still Sunday in UTC.
		local := time.Date(2025, time.March, 10, 1, 0, 0, 0, loc)
		got := weekStartUTC(local)
		want := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("weekStartUTC(local) = %v, want %v", got, want)
		}
	})
}

func TestOwnerRefValid(t *testing.T) {
	cases := []struct {
		name  string
		owner OwnerRef
		want  bool
	}{
		{"user only", OwnerRef{UserID: "u1"}, true},
		{"anon only", OwnerRef{AnonID: "a1"}, true},
		{"both", OwnerRef{UserID: "u1", AnonID: "a1"}, false},
		{"neither", OwnerRef{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.owner.valid(); got != tc.want {
				t.Fatalf("valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckQuotaWithoutDB(t *testing.T) {
	snapshot, err := checkQuota(context.Background(), OwnerRef{AnonID: "a1"}, time.Now())
	if err != nil {
		t.Fatalf("checkQuota without db should allow: %v", err)
	}
	if snapshot.Limit == nil || *snapshot.Limit != FreeWeeklyLimit {
		t.Fatalf("expected free limit %d, got %v", FreeWeeklyLimit, snapshot.Limit)
	}
}

func TestQuotaRejectsMalformedOwner(t *testing.T) {
	for _, owner := range []OwnerRef{{}, {UserID: "u1", AnonID: "a1"}} {
		if _, err := checkQuota(context.Background(), owner, time.Now()); err == nil {
			t.Fatalf("checkQuota should reject owner %+v", owner)
		}
		if err := incrementUsage(context.Background(), owner, weekStartUTC(time.Now())); err == nil {
			t.Fatalf("incrementUsage should reject owner %+v", owner)
		}
	}
}

func TestQuotaErrorMessage(t *testing.T) {
	err := quotaError{Limit: FreeWeeklyLimit, Used: FreeWeeklyLimit}
	if err.Error() != "weekly quota exceeded" {
		t.Fatalf("unexpected quota error message: %q", err.Error())
	}
}
