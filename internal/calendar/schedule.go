// Package calendar computes the recurring "second weekday of the month" investment dates.
package calendar

import (
	"strings"
	"time"
)

// SecondWeekdayOfMonth returns the second occurrence of weekday in the given month,
// at midnight UTC.
func SecondWeekdayOfMonth(year int, month time.Month, weekday time.Weekday) time.Time {
	return secondWeekday(year, month, weekday, time.UTC)
}

func secondWeekday(year int, month time.Month, weekday time.Weekday, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7)
}

// Schedule is a monthly investment rule: the second Weekday of every month.
type Schedule struct {
	Weekday time.Weekday
}

// NewSchedule creates a Schedule for the given weekday.
func NewSchedule(weekday time.Weekday) Schedule {
	return Schedule{Weekday: weekday}
}

// DatesInRange returns every scheduled date within [start, end], compared at day granularity.
// Dates are returned in start's location.
func (s Schedule) DatesInRange(start, end time.Time) []time.Time {
	from := truncateDay(start)
	to := truncateDay(end.In(start.Location()))
	if to.Before(from) {
		return nil
	}

	var dates []time.Time
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, to.Location())
	for !cursor.After(last) {
		d := secondWeekday(cursor.Year(), cursor.Month(), s.Weekday, cursor.Location())
		if !d.Before(from) && !d.After(to) {
			dates = append(dates, d)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return dates
}

// IsScheduled reports whether date falls on its month's second Weekday.
func (s Schedule) IsScheduled(date time.Time) bool {
	d := secondWeekday(date.Year(), date.Month(), s.Weekday, date.Location())
	return date.Day() == d.Day()
}

// Next returns the first scheduled date on or after from.
func (s Schedule) Next(from time.Time) time.Time {
	day := truncateDay(from)
	d := secondWeekday(day.Year(), day.Month(), s.Weekday, day.Location())
	if d.Before(day) {
		nextMonth := time.Date(day.Year(), day.Month()+1, 1, 0, 0, 0, 0, day.Location())
		d = secondWeekday(nextMonth.Year(), nextMonth.Month(), s.Weekday, day.Location())
	}
	return d
}

// ParseWeekday maps an English weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), name) || strings.EqualFold(wd.String()[:3], name) {
			return wd, true
		}
	}
	return 0, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
