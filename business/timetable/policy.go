// Package timetable reconciles raw railway timetable rows into a single best estimate timeline per train,
// projects that timeline onto live GPS fixes and attributes accumulated delay to reported causes.
//
// Every function in the package is pure: inputs are never modified and new row slices are returned.
// Lookups and the current time are passed in explicitly.
package timetable

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// Policy holds the tunable tolerances used by reconciliation and projection
type Policy struct {
	//DurationTolerance is the share of a scheduled travel duration a reported duration must reach
	//before it is considered plausible. 0.5 rejects a train appearing to travel twice as fast as scheduled
	DurationTolerance float64 `validate:"gt=0,lte=1"`
	//MinimumDwell caps the dwell enforced at commercial stops, the smaller of this and the scheduled dwell applies
	MinimumDwell time.Duration `validate:"gte=0"`
	//AtStationDistanceKm is how close a fix must be to a station to count as being at it
	AtStationDistanceKm float64 `validate:"gt=0"`
	//MaxSegmentDistanceKm is the furthest a fix may be from the route to be used as a projection anchor
	MaxSegmentDistanceKm float64 `validate:"gt=0,gtefield=AtStationDistanceKm"`
	//MaxLocationAge is how old a fix may be before it is ignored
	MaxLocationAge time.Duration `validate:"gt=0"`
}

// DefaultPolicy returns the tolerances observed in the upstream feed's behaviour
func DefaultPolicy() Policy {
	return Policy{
		DurationTolerance:    0.5,
		MinimumDwell:         time.Minute,
		AtStationDistanceKm:  1,
		MaxSegmentDistanceKm: 10,
		MaxLocationAge:       time.Minute,
	}
}

// Validate returns an error describing every field out of range
func (p Policy) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid timetable policy: %w", err)
	}
	return nil
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant
type FixedClock time.Time

// Now implements Clock
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// StationLookup resolves a station code to its coordinates
type StationLookup interface {
	StationCoordinates(stationCode string) (rail.Coordinates, bool)
}

// CauseLookup resolves a numeric cause category id at a level to its display name
type CauseLookup interface {
	CauseCategoryName(level rail.CauseLevel, id int) (string, bool)
}
