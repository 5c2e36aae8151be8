package domain

import (
	"errors"
	"testing"
	"time"
)

func TestMonthPeriod(t *testing.T) {
	p := MonthPeriod(time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC))
	if p.FromDate() != "2026-02-01" || p.ToDate() != "2026-02-28" {
		t.Fatalf("unexpected month period %s..%s", p.FromDate(), p.ToDate())
	}
}

func TestPeriodContainsWholeLastDay(t *testing.T) {
	p, err := ParsePeriod("2026-03-01", "2026-03-31", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.Contains(time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("expected the last second of the period to be inside")
	}
	if p.Contains(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected the next day to be outside")
	}
	if p.Contains(time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("expected the previous day to be outside")
	}
	if !p.ContainsDate("2026-03-01") || p.ContainsDate("2026-04-01") || p.ContainsDate("not-a-date") {
		t.Fatalf("unexpected date containment")
	}
}

func TestParsePeriodErrors(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if _, err := ParsePeriod("03/01/2026", "", now); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for bad from, got %v", err)
	}
	if _, err := ParsePeriod("2026-03-10", "2026-03-01", now); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for reversed period, got %v", err)
	}
	p, err := ParsePeriod("", "", now)
	if err != nil || p.FromDate() != "2026-03-01" || p.ToDate() != "2026-03-31" {
		t.Fatalf("expected default month period, got %v %v", p, err)
	}
}

func TestParsePeriodSingleBoundUsesItsOwnMonth(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		from, to string
		wantFrom string
		wantTo   string
	}{
		{from: "2026-05-10", wantFrom: "2026-05-10", wantTo: "2026-05-31"},
		{from: "2026-02-03", wantFrom: "2026-02-03", wantTo: "2026-02-28"},
		{to: "2026-01-20", wantFrom: "2026-01-01", wantTo: "2026-01-20"},
		{to: "2026-07-04", wantFrom: "2026-07-01", wantTo: "2026-07-04"},
	}
	for _, tc := range cases {
		p, err := ParsePeriod(tc.from, tc.to, now)
		if err != nil {
			t.Fatalf("ParsePeriod(%q, %q): %v", tc.from, tc.to, err)
		}
		if p.FromDate() != tc.wantFrom || p.ToDate() != tc.wantTo {
			t.Fatalf("ParsePeriod(%q, %q) = %s..%s, want %s..%s", tc.from, tc.to, p.FromDate(), p.ToDate(), tc.wantFrom, tc.wantTo)
		}
	}
}
