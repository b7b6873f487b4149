package scheduling

import (
	"time"

	"github.com/campusbook/scheduling-engine/internal/models"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Decision is the outcome of an availability check. Conflicts are populated
// even when an earlier validation already failed, so callers can present the
// full picture.
type Decision struct {
	Allowed   bool
	Reason    models.ReasonCode
	Detail    string
	Conflicts []Entry
}

// AvailabilityEngine validates proposed windows against a resource's rules
// and the interval index. Checks are pure: the index is never mutated here.
type AvailabilityEngine struct {
	index      Index
	logger     *logger.Logger
	cronParser cron.Parser
	now        func() time.Time
}

// NewAvailabilityEngine creates an availability engine over the given index.
func NewAvailabilityEngine(index Index, log *logger.Logger) *AvailabilityEngine {
	return &AvailabilityEngine{
		index:      index,
		logger:     log,
		cronParser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		now:        time.Now,
	}
}

// WithClock overrides the engine's time source. Used in tests.
func (e *AvailabilityEngine) WithClock(now func() time.Time) *AvailabilityEngine {
	e.now = now
	return e
}

// Check validates window against the resource's availability rules and the
// currently indexed windows. Validation short-circuits on the first failed
// rule, but the conflict search always runs so Conflicts is populated.
func (e *AvailabilityEngine) Check(
	resourceID uuid.UUID,
	window models.TimeWindow,
	rules models.AvailabilityRules,
	maintenance models.MaintenanceWindows,
	excludeID *uuid.UUID,
) Decision {
	// Conflict search runs regardless of rule outcomes. Buffer time expands
	// each side symmetrically, which is equivalent to querying with the
	// proposed window widened by the buffer.
	conflicts := e.index.Query(resourceID, window.Expand(rules.Buffer()), excludeID)

	decision := Decision{Conflicts: conflicts}

	switch {
	case window.Duration() < rules.MinDuration():
		decision.Reason = models.ReasonDurationTooShort
		decision.Detail = "booking is shorter than the resource minimum of " + rules.MinDuration().String()
	case rules.MaxDurationMinutes > 0 && window.Duration() > rules.MaxDuration():
		decision.Reason = models.ReasonDurationTooLong
		decision.Detail = "booking exceeds the resource maximum of " + rules.MaxDuration().String()
	case e.tooFarInAdvance(window, rules):
		decision.Reason = models.ReasonTooFarInAdvance
		decision.Detail = "booking starts beyond the advance-booking horizon"
	case e.inMaintenance(window, maintenance):
		decision.Reason = models.ReasonMaintenance
		decision.Detail = "window intersects a scheduled maintenance period"
	case len(conflicts) > 0:
		decision.Reason = models.ReasonOverlap
		decision.Detail = "window overlaps existing reservations (buffer included)"
	default:
		decision.Allowed = true
	}

	if !decision.Allowed {
		e.logger.Debugf("availability check denied for resource %s: %s", resourceID, decision.Reason)
	}
	return decision
}

func (e *AvailabilityEngine) tooFarInAdvance(window models.TimeWindow, rules models.AvailabilityRules) bool {
	if rules.MaxAdvanceBookingDays <= 0 {
		return false
	}
	horizon := e.now().AddDate(0, 0, rules.MaxAdvanceBookingDays)
	return window.Start.After(horizon)
}

// inMaintenance reports whether any cron-scheduled maintenance firing blocks
// the proposed window.
func (e *AvailabilityEngine) inMaintenance(window models.TimeWindow, maintenance models.MaintenanceWindows) bool {
	for _, mw := range maintenance {
		sched, err := e.cronParser.Parse(mw.CronExpression)
		if err != nil {
			e.logger.Warnf("skipping unparseable maintenance cron %q: %v", mw.CronExpression, err)
			continue
		}
		duration := time.Duration(mw.DurationMinutes) * time.Minute
		if duration <= 0 {
			continue
		}

		// A firing at t blocks [t, t+duration); the earliest relevant firing
		// starts at window.Start - duration.
		cursor := window.Start.Add(-duration)
		for {
			next := sched.Next(cursor)
			if !next.Before(window.End) {
				break
			}
			block := models.TimeWindow{Start: next, End: next.Add(duration)}
			if block.Overlaps(window) {
				return true
			}
			cursor = next
		}
	}
	return false
}
