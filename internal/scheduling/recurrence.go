package scheduling

import (
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
)

// defaultMaxInstances bounds expansion when the pattern sets no explicit cap.
const defaultMaxInstances = 366

// Expand turns a base window plus a recurrence pattern into a bounded,
// ascending sequence of concrete windows. It is a pure function: identical
// inputs always produce identical output.
//
// Each emitted window preserves the base duration. Expansion stops when the
// next candidate start passes the pattern end date or the instance count
// reaches MaxInstances, whichever comes first. An end date before the base
// start yields an empty list, not an error.
func Expand(base models.TimeWindow, pattern models.RecurrencePattern) ([]models.TimeWindow, error) {
	if !base.IsValid() {
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "base window start must precede end")
	}
	if pattern.Interval < 1 {
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "interval must be at least 1")
	}
	if pattern.Frequency == models.FrequencyWeekly && len(pattern.DaysOfWeek) == 0 {
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "weekly pattern requires at least one weekday")
	}

	limit := defaultMaxInstances
	if pattern.MaxInstances != nil && *pattern.MaxInstances > 0 && *pattern.MaxInstances < limit {
		limit = *pattern.MaxInstances
	}

	// The end date is inclusive: candidates starting on that calendar day
	// still qualify.
	cutoff := endOfDay(pattern.EndDate, base.Start.Location())
	duration := base.Duration()

	switch pattern.Frequency {
	case models.FrequencyDaily:
		return expandByStep(base.Start, duration, cutoff, limit, func(t time.Time) time.Time {
			return t.AddDate(0, 0, pattern.Interval)
		}), nil
	case models.FrequencyMonthly:
		return expandByStep(base.Start, duration, cutoff, limit, func(t time.Time) time.Time {
			return t.AddDate(0, pattern.Interval, 0)
		}), nil
	case models.FrequencyWeekly:
		return expandWeekly(base.Start, duration, pattern, cutoff, limit), nil
	default:
		return nil, models.NewDomainError(models.ReasonInvalidPattern, "unsupported frequency %q", pattern.Frequency)
	}
}

// expandByStep emits instances at fixed calendar steps from the base start.
func expandByStep(start time.Time, duration time.Duration, cutoff time.Time, limit int, step func(time.Time) time.Time) []models.TimeWindow {
	out := make([]models.TimeWindow, 0, limit)
	for current := start; current.Before(cutoff) && len(out) < limit; current = step(current) {
		out = append(out, models.TimeWindow{Start: current, End: current.Add(duration)})
	}
	return out
}

// expandWeekly steps in whole weeks and emits one instance per selected
// weekday inside each week. The week anchor, not the individual weekday, is
// checked against the end date, so a week whose anchor falls on the end date
// is emitted in full.
func expandWeekly(start time.Time, duration time.Duration, pattern models.RecurrencePattern, cutoff time.Time, limit int) []models.TimeWindow {
	selected := make(map[time.Weekday]bool, len(pattern.DaysOfWeek))
	for _, d := range pattern.DaysOfWeek {
		selected[d] = true
	}

	out := make([]models.TimeWindow, 0, limit)
	for anchor := start; anchor.Before(cutoff) && len(out) < limit; anchor = anchor.AddDate(0, 0, 7*pattern.Interval) {
		weekStart := startOfWeek(anchor)
		for offset := 0; offset < 7 && len(out) < limit; offset++ {
			day := weekStart.AddDate(0, 0, offset)
			if !selected[day.Weekday()] || day.Before(start) {
				continue
			}
			out = append(out, models.TimeWindow{Start: day, End: day.Add(duration)})
		}
	}
	return out
}

// startOfWeek returns the Sunday of t's week, preserving time of day.
func startOfWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, -int(t.Weekday()))
}

// endOfDay returns midnight after the given date in the given location.
func endOfDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
}
