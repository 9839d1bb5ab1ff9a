package timetable

import (
	"math"
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// Outcome describes what ProjectByLocation did with a location fix
type Outcome int

const (
	//NoFreshLocation fix was missing or too old, rows unchanged
	NoFreshLocation Outcome = iota
	//AtStation train is standing at a station, rows reset to their reference times
	AtStation
	//NoStation no station of the remaining route has known coordinates, rows unchanged
	NoStation
	//TooFar fix is too far from the route to anchor on, rows unchanged
	TooFar
	//WaitingAtSignal train is held outside a stop past its booked time
	WaitingAtSignal
	//BetweenStations train is travelling along a segment
	BetweenStations
)

// String implements Stringer interface for Outcome
func (o Outcome) String() string {
	switch o {
	case NoFreshLocation:
		return "no_fresh_location"
	case AtStation:
		return "at_station"
	case NoStation:
		return "no_station"
	case TooFar:
		return "too_far"
	case WaitingAtSignal:
		return "waiting_at_signal"
	case BetweenStations:
		return "between_stations"
	}
	return "unknown"
}

// Projection reports how a location fix was applied to a train
type Projection struct {
	Outcome Outcome
	//AnchorIndex is the row the projection was anchored on, nil unless rows were projected
	AnchorIndex *int
	//Segment is the position along the chosen segment, nil when no segment was evaluated
	Segment *SegmentLocation
}

// Projector re-derives a train's row times from live location fixes
type Projector struct {
	Policy   Policy
	Clock    Clock
	Stations StationLookup
	Causes   CauseLookup
}

// NewProjector creates Projector
func NewProjector(policy Policy, clock Clock, stations StationLookup, causes CauseLookup) *Projector {
	return &Projector{
		Policy:   policy,
		Clock:    clock,
		Stations: stations,
		Causes:   causes,
	}
}

// segment is a pair of row indexes, start is the last row at the from station and end the first row at the to station
type segment struct {
	start, end int
	location   SegmentLocation
}

// ProjectByLocation applies fix to train and returns the resulting train with its delay and causes updated.
// A missing, stale or implausible fix leaves the rows unchanged. The input train is not modified.
func (p *Projector) ProjectByLocation(train rail.Train, fix *rail.TrainLocation) (rail.Train, Projection) {
	result := train
	result.Rows = copyRows(train.Rows)
	now := p.Clock.Now()

	if fix == nil || len(result.Rows) == 0 || now.Sub(fix.Timestamp) > p.Policy.MaxLocationAge {
		return UpdateDelay(result, p.Causes), Projection{Outcome: NoFreshLocation}
	}

	lastActual := result.LastKnownActualIndex
	if p.isAtStation(result.Rows, lastActual, now, fix) {
		resetToReference(result.Rows)
		result.LastGpsAnchorIndex = nil
		updateDifferences(result.Rows)
		return UpdateDelay(result, p.Causes), Projection{Outcome: AtStation}
	}

	seg, found := p.locateSegment(result.Rows, lastActual, fix.Location)
	if !found {
		return UpdateDelay(result, p.Causes), Projection{Outcome: NoStation}
	}
	location := seg.location
	if location.Distance > p.Policy.MaxSegmentDistanceKm {
		return UpdateDelay(result, p.Causes), Projection{Outcome: TooFar, Segment: &location}
	}

	resetToReference(result.Rows)
	var outcome Outcome
	var anchor int
	if isWaitingAtSignal(result.Rows, seg.end, now) {
		outcome = WaitingAtSignal
		anchor = seg.end
		projectFromArrival(result.Rows, seg.end, fix.Timestamp)
	} else {
		outcome = BetweenStations
		anchor = seg.start
		projectAlongSegment(result.Rows, seg, lastActual, fix.Timestamp)
	}
	correctPast(result.Rows, seg.end)
	updateDifferences(result.Rows)

	result.LastGpsAnchorIndex = &anchor
	return UpdateDelay(result, p.Causes), Projection{Outcome: outcome, AnchorIndex: &anchor, Segment: &location}
}

// isAtStation returns true when the train has not departed its origin, has arrived at its destination
// or is standing at the stop of its last actual time
func (p *Projector) isAtStation(rows []rail.TimetableRow, lastActual int, now time.Time, fix *rail.TrainLocation) bool {
	if lastActual < 0 && now.Before(rows[0].ReferenceTime) {
		return true
	}
	if lastActual == len(rows)-1 {
		return true
	}
	if lastActual < 0 {
		return false
	}
	current := &rows[lastActual]
	next := &rows[lastActual+1]
	if current.StationCode != next.StationCode || !current.StopKind.IsStop() || !now.Before(next.ReferenceTime) {
		return false
	}
	coordinates, ok := p.Stations.StationCoordinates(current.StationCode)
	if !ok {
		return true
	}
	return GreatCircleDistance(coordinates, fix.Location) <= p.Policy.AtStationDistanceKm
}

// locateSegment finds the station of the remaining route nearest to point and returns whichever of its
// adjacent segments point is closest to
func (p *Projector) locateSegment(rows []rail.TimetableRow, lastActual int, point rail.Coordinates) (segment, bool) {
	first := lastActual
	if first < 0 {
		first = 0
	}

	candidate := -1
	nearest := math.Inf(1)
	for i := first; i < len(rows); i++ {
		if i > first && rows[i].StationCode == rows[i-1].StationCode {
			continue
		}
		coordinates, ok := p.Stations.StationCoordinates(rows[i].StationCode)
		if !ok {
			continue
		}
		distance := GreatCircleDistance(coordinates, point)
		if distance < nearest {
			nearest = distance
			candidate = i
		}
	}
	if candidate < 0 {
		return segment{}, false
	}

	candidateEnd := candidate
	for candidateEnd+1 < len(rows) && rows[candidateEnd+1].StationCode == rows[candidate].StationCode {
		candidateEnd++
	}

	var best segment
	found := false
	consider := func(start, end int) {
		from, fromOk := p.Stations.StationCoordinates(rows[start].StationCode)
		to, toOk := p.Stations.StationCoordinates(rows[end].StationCode)
		if !fromOk || !toOk {
			return
		}
		location := NearestPointOnSegment(from, to, point)
		if !found || location.Distance < best.location.Distance {
			best = segment{start: start, end: end, location: location}
			found = true
		}
	}
	if candidate-1 >= first {
		consider(candidate-1, candidate)
	}
	if candidateEnd+1 < len(rows) {
		consider(candidateEnd, candidateEnd+1)
	}
	return best, found
}

// isWaitingAtSignal returns true when the row at arrival is a stop whose departure should already have happened
func isWaitingAtSignal(rows []rail.TimetableRow, arrival int, now time.Time) bool {
	if arrival+1 >= len(rows) {
		return false
	}
	return rows[arrival].StopKind.IsStop() &&
		rows[arrival].StationCode == rows[arrival+1].StationCode &&
		rows[arrival+1].ReferenceTime.Before(now)
}

// projectFromArrival uses the fix time as the arrival time and moves every later row by its scheduled gap
func projectFromArrival(rows []rail.TimetableRow, arrival int, fixTime time.Time) {
	rows[arrival].Time = fixTime.Truncate(time.Second)
	for i := arrival + 1; i < len(rows); i++ {
		rows[i].Time = rows[i-1].Time.Add(scheduledGap(&rows[i-1], &rows[i]))
	}
}

// projectAlongSegment places the segment ends around the fix time by the travelled fraction of the segment
// and moves the rows on both sides by their scheduled gaps. Rows with actual times are kept.
// Projection stops once the train would depart a stop before its reference time.
func projectAlongSegment(rows []rail.TimetableRow, seg segment, lastActual int, fixTime time.Time) {
	duration := scheduledGap(&rows[seg.start], &rows[seg.end])
	travelled := time.Duration(float64(duration) * seg.location.Location)

	if seg.start > lastActual {
		rows[seg.start].Time = fixTime.Add(-travelled).Truncate(time.Second)
	}
	rows[seg.end].Time = fixTime.Add(duration - travelled).Truncate(time.Second)

	for i := seg.start - 1; i > lastActual; i-- {
		rows[i].Time = rows[i+1].Time.Add(-scheduledGap(&rows[i], &rows[i+1]))
	}

	caughtUp := false
	for i := seg.end + 1; i < len(rows); i++ {
		if caughtUp {
			rows[i].Time = rows[i].ReferenceTime
			continue
		}
		candidate := rows[i-1].Time.Add(scheduledGap(&rows[i-1], &rows[i]))
		if rows[i].StationCode == rows[i-1].StationCode && rows[i].StopKind.IsStop() &&
			candidate.Before(rows[i].ReferenceTime) {
			caughtUp = true
			rows[i].Time = rows[i].ReferenceTime
			continue
		}
		rows[i].Time = candidate
	}
}

func resetToReference(rows []rail.TimetableRow) {
	for i := range rows {
		rows[i].Time = rows[i].ReferenceTime
	}
}

func updateDifferences(rows []rail.TimetableRow) {
	for i := range rows {
		rows[i].DifferenceInMinutes = differenceInMinutes(rows[i].Time, rows[i].ScheduledTime)
	}
}
