package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Period is an inclusive range of calendar days in one location.
type Period struct {
	From time.Time
	To   time.Time
}

// MonthPeriod covers the calendar month containing now.
func MonthPeriod(now time.Time) Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Period{From: first, To: first.AddDate(0, 1, -1)}
}

// ParsePeriod reads YYYY-MM-DD bounds. With both bounds empty the period is
// the month of now; with one bound given the other is taken from that
// bound's month.
func ParsePeriod(from string, to string, now time.Time) (Period, error) {
	period := MonthPeriod(now)
	loc := now.Location()
	if from != "" {
		parsed, err := time.ParseInLocation(DateLayout, from, loc)
		if err != nil {
			return Period{}, Invalid("from", "must be a YYYY-MM-DD date")
		}
		period = Period{From: parsed, To: MonthPeriod(parsed).To}
	}
	if to != "" {
		parsed, err := time.ParseInLocation(DateLayout, to, loc)
		if err != nil {
			return Period{}, Invalid("to", "must be a YYYY-MM-DD date")
		}
		if from == "" {
			period.From = MonthPeriod(parsed).From
		}
		period.To = parsed
	}
	if period.To.Before(period.From) {
		return Period{}, Invalid("to", fmt.Sprintf("must not be before %s", period.From.Format(DateLayout)))
	}
	return period, nil
}

func (p Period) start() time.Time {
	return time.Date(p.From.Year(), p.From.Month(), p.From.Day(), 0, 0, 0, 0, p.From.Location())
}

func (p Period) end() time.Time {
	loc := p.From.Location()
	return time.Date(p.To.Year(), p.To.Month(), p.To.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.start()) && t.Before(p.end())
}

// ContainsDate reports whether a YYYY-MM-DD date lies in the period.
// Unparseable dates are outside every period.
func (p Period) ContainsDate(date string) bool {
	day, err := time.ParseInLocation(DateLayout, date, p.From.Location())
	if err != nil {
		return false
	}
	return p.Contains(day)
}

func (p Period) FromDate() string {
	return p.From.Format(DateLayout)
}

func (p Period) ToDate() string {
	return p.To.Format(DateLayout)
}
