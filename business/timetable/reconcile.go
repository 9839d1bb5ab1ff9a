package timetable

import (
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// ReconcileTimetable repairs inconsistencies between the scheduled, estimated and actual times of a train's rows.
// The returned rows have non-decreasing Time, respect the minimum dwell of commercial stops and have
// ReferenceTime set to the reconciled Time. The input slice is not modified.
func ReconcileTimetable(rows []rail.TimetableRow, policy Policy) []rail.TimetableRow {
	result := copyRows(rows)
	if len(result) == 0 {
		return result
	}

	alignToPrecision(result, rail.Actual, true)
	alignToPrecision(result, rail.Estimated, false)

	lastActual := LastActualIndex(result)
	correctPast(result, lastActual)
	correctFuture(result, lastActual, policy)

	for i := range result {
		result[i].ReferenceTime = result[i].Time
		result[i].DifferenceInMinutes = differenceInMinutes(result[i].Time, result[i].ScheduledTime)
	}
	return result
}

// alignToPrecision rewrites rows of lower precision than target that precede a row of at least target precision,
// deriving their time from the following row and the scheduled gap between them.
// With onlyConflicting set, a row is rewritten only when it is after the following row.
func alignToPrecision(rows []rail.TimetableRow, target rail.TimeType, onlyConflicting bool) {
	seen := false
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].TimeType >= target {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		next := &rows[i+1]
		if onlyConflicting && !rows[i].Time.After(next.Time) {
			continue
		}
		gap := next.ScheduledTime.Sub(rows[i].ScheduledTime)
		if rows[i].StationCode == next.StationCode && rows[i].StopKind != rail.CommercialStop {
			gap = 0
		}
		rows[i].Time = next.Time.Add(-gap)
	}
}

// correctPast walks backward from lastActual, an earlier row can't happen after a later one
func correctPast(rows []rail.TimetableRow, lastActual int) {
	for i := lastActual - 1; i >= 0; i-- {
		if rows[i].Time.After(rows[i+1].Time) {
			rows[i].Time = rows[i+1].Time
		}
	}
}

// correctFuture walks forward from the row after lastActual replacing implausibly short travel times
// and enforcing minimum dwell at stops
func correctFuture(rows []rail.TimetableRow, lastActual int, policy Policy) {
	start := lastActual + 1
	if start < 1 {
		start = 1
	}
	for i := start; i < len(rows); i++ {
		prev := &rows[i-1]
		cur := &rows[i]

		if prev.StationCode != cur.StationCode {
			scheduled := cur.ScheduledTime.Sub(prev.ScheduledTime)
			shortest := time.Duration(float64(scheduled) * policy.DurationTolerance)
			if cur.Time.Sub(prev.Time) < shortest {
				duration := scheduled
				if estimated, ok := estimatedDuration(prev, cur); ok && estimated >= shortest {
					duration = estimated
				}
				cur.Time = prev.Time.Add(duration)
			}
		} else {
			earliest := prev.Time.Add(minimumDwell(prev, cur, policy))
			if cur.Time.Before(earliest) {
				cur.Time = earliest
			}
		}

		if cur.Time.Before(prev.Time) {
			cur.Time = prev.Time
		}
	}
}

// estimatedDuration returns the travel time implied by the live estimates of both rows
func estimatedDuration(prev, cur *rail.TimetableRow) (time.Duration, bool) {
	if prev.EstimatedTime == nil || cur.EstimatedTime == nil {
		return 0, false
	}
	return cur.EstimatedTime.Sub(*prev.EstimatedTime), true
}

// minimumDwell is zero unless the stop is commercial, then the smaller of the scheduled dwell and policy minimum
func minimumDwell(arrival, departure *rail.TimetableRow, policy Policy) time.Duration {
	if arrival.StopKind != rail.CommercialStop && departure.StopKind != rail.CommercialStop {
		return 0
	}
	dwell := departure.ScheduledTime.Sub(arrival.ScheduledTime)
	if dwell > policy.MinimumDwell {
		dwell = policy.MinimumDwell
	}
	if dwell < 0 {
		return 0
	}
	return dwell
}

// scheduledGap returns the scheduled time between two rows, never negative
func scheduledGap(from, to *rail.TimetableRow) time.Duration {
	gap := to.ScheduledTime.Sub(from.ScheduledTime)
	if gap < 0 {
		return 0
	}
	return gap
}

func copyRows(rows []rail.TimetableRow) []rail.TimetableRow {
	result := make([]rail.TimetableRow, len(rows))
	copy(result, rows)
	return result
}
