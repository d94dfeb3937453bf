package services

import (
	"fmt"
	"time"
)

// Statistics period names.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// DateLayout is the wire format for report date parameters.
const DateLayout = "2006-01-02"

// periodWindow maps a period name to a [from, to] window. An empty period
// defaults to the current month. The week starts on Monday.
func periodWindow(period string, now time.Time) (time.Time, time.Time, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case PeriodToday:
		return startOfDay, startOfDay.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	case PeriodWeek:
		startOfWeek := startOfDay.AddDate(0, 0, -int(startOfDay.Weekday())+1)
		if startOfDay.Weekday() == time.Sunday {
			startOfWeek = startOfDay.AddDate(0, 0, -6)
		}
		return startOfWeek, startOfWeek.AddDate(0, 0, 7).Add(-time.Nanosecond), nil
	case PeriodMonth, "":
		startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return startOfMonth, startOfMonth.AddDate(0, 1, 0).Add(-time.Nanosecond), nil
	case PeriodYear:
		startOfYear := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return startOfYear, startOfYear.AddDate(1, 0, 0).Add(-time.Nanosecond), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown period '%s'", ErrValidation, period)
	}
}

// reportWindow parses and validates the mandatory date range of a report.
// Both dates are required, must parse as 2006-01-02 and must be ordered.
// The returned window covers dateTo's whole day.
func reportWindow(dateFrom, dateTo string) (time.Time, time.Time, error) {
	if dateFrom == "" || dateTo == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date_from and date_to are required", ErrValidation)
	}
	from, err := time.ParseInLocation(DateLayout, dateFrom, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date_from '%s': expected %s", ErrValidation, dateFrom, DateLayout)
	}
	to, err := time.ParseInLocation(DateLayout, dateTo, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date_to '%s': expected %s", ErrValidation, dateTo, DateLayout)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date_from must not be after date_to", ErrValidation)
	}
	return from, to.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}
