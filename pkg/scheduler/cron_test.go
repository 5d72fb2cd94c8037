package scheduler

import (
	"errors"
	"testing"
	"time"
)

func mustParse(t *testing.T, raw string) *Schedule {
	t.Helper()
	schedule, err := ParseSchedule(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return schedule
}

func mustNext(t *testing.T, schedule *Schedule, now time.Time) time.Time {
	t.Helper()
	next, err := schedule.Next(now)
	if err != nil {
		t.Fatalf("next for %q: %v", schedule.String(), err)
	}
	return next
}

func TestParseScheduleRejectsEmptyExpression(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t"} {
		if _, err := ParseSchedule(raw); !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected configuration error for %q, got %v", raw, err)
		}
	}
}

func TestParseScheduleRejectsWrongFieldCount(t *testing.T) {
	// five-field expressions lack the seconds field
	if _, err := ParseSchedule("* * * * *"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for five fields, got %v", err)
	}
	if _, err := ParseSchedule("* * * * * * *"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for seven fields, got %v", err)
	}
}

func TestParseScheduleFieldRanges(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"*/1 * * * * *", true},
		{"0 30 9 * * *", true},
		{"0 0 0 1 0 *", true},   // month 0 is January
		{"0 0 0 1 11 *", true},  // month 11 is December
		{"0 0 0 1 12 *", false}, // months run 0-11
		{"60 * * * * *", false},
		{"* 60 * * * *", false},
		{"* * 24 * * *", false},
		{"* * * 0 * *", false},
		{"* * * 32 * *", false},
		{"* * * * * 8", false},
		{"a * * * * *", false},
		{"1-0 * * * * *", false},
		{"*/0 * * * * *", false},
	}

	for _, tc := range cases {
		_, err := ParseSchedule(tc.raw)
		if tc.ok && err != nil {
			t.Errorf("expected %q to parse, got %v", tc.raw, err)
		}
		if !tc.ok && !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected configuration error for %q, got %v", tc.raw, err)
		}
	}
}

func TestNextEverySecond(t *testing.T) {
	schedule := mustParse(t, "*/1 * * * * *")
	now := time.Date(2026, time.March, 10, 9, 15, 30, 250e6, time.UTC)

	next := mustNext(t, schedule, now)
	want := time.Date(2026, time.March, 10, 9, 15, 31, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	// consecutive firings land on consecutive second boundaries
	after := mustNext(t, schedule, next)
	if !after.Equal(want.Add(time.Second)) {
		t.Errorf("expected %v, got %v", want.Add(time.Second), after)
	}
}

func TestNextDailyAtFixedTime(t *testing.T) {
	schedule := mustParse(t, "0 30 9 * * *")

	now := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	next := mustNext(t, schedule, now)
	want := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	// past today's slot, the next firing is tomorrow
	next = mustNext(t, schedule, want)
	if !next.Equal(want.Add(24 * time.Hour)) {
		t.Errorf("expected %v, got %v", want.Add(24*time.Hour), next)
	}
}

func TestNextSecondsListAndStep(t *testing.T) {
	schedule := mustParse(t, "10,40 * * * * *")
	now := time.Date(2026, time.March, 10, 9, 15, 12, 0, time.UTC)

	next := mustNext(t, schedule, now)
	if next.Second() != 40 {
		t.Errorf("expected second 40, got %v", next)
	}
	next = mustNext(t, schedule, next)
	if next.Second() != 10 || next.Minute() != 16 {
		t.Errorf("expected 09:16:10, got %v", next)
	}

	step := mustParse(t, "*/15 * * * * *")
	next = mustNext(t, step, now)
	if next.Second() != 15 {
		t.Errorf("expected second 15, got %v", next)
	}
}

func TestNextMonthZeroIsJanuary(t *testing.T) {
	schedule := mustParse(t, "0 0 0 1 0 *")
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	next := mustNext(t, schedule, now)
	want := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextDayOfWeek(t *testing.T) {
	// fire Mondays at noon; 2026-03-10 is a Tuesday
	schedule := mustParse(t, "0 0 12 * * 1")
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	next := mustNext(t, schedule, now)
	want := time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextSundayAcceptsSeven(t *testing.T) {
	seven := mustParse(t, "0 0 0 * * 7")
	zero := mustParse(t, "0 0 0 * * 0")
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	if got, want := mustNext(t, seven, now), mustNext(t, zero, now); !got.Equal(want) {
		t.Errorf("day-of-week 7 should normalize to Sunday: %v vs %v", got, want)
	}
}

func TestNextDayOfMonthAndWeekCombineWithOr(t *testing.T) {
	// restricted day-of-month OR restricted day-of-week, standard cron rule
	schedule := mustParse(t, "0 0 0 15 * 1")
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	// 2026-03-15 is a Sunday and arrives before Monday 2026-03-16
	next := mustNext(t, schedule, now)
	want := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestParseScheduleEvery(t *testing.T) {
	schedule := mustParse(t, "@every 250ms")
	now := time.Date(2026, time.March, 10, 9, 15, 30, 0, time.UTC)

	next := mustNext(t, schedule, now)
	if !next.Equal(now.Add(250 * time.Millisecond)) {
		t.Errorf("expected now+250ms, got %v", next)
	}

	if _, err := ParseSchedule("@every nope"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, err := ParseSchedule("@every -1s"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
