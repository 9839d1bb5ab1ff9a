// Package rail provides the railway timetable data model and its CRUD functionality
package rail

import (
	"fmt"
	"time"
)

// TimeType identifies which upstream source a row's best time came from.
// Ordered by precision so tiers can be compared directly.
type TimeType int

const (
	Scheduled TimeType = iota
	Estimated
	Actual
)

// String implements Stringer interface for TimeType
func (t TimeType) String() string {
	switch t {
	case Scheduled:
		return "SCHEDULED"
	case Estimated:
		return "ESTIMATED"
	case Actual:
		return "ACTUAL"
	}
	return "UNKNOWN"
}

// StopKind describes how the train treats a station
type StopKind int

const (
	CommercialStop StopKind = iota
	OperationalStop
	NoStop
)

// String implements Stringer interface for StopKind
func (s StopKind) String() string {
	switch s {
	case CommercialStop:
		return "COMMERCIAL"
	case OperationalStop:
		return "OPERATIONAL"
	case NoStop:
		return "NO_STOP"
	}
	return "UNKNOWN"
}

// IsStop returns true when the train halts at the station, for passengers or not
func (s StopKind) IsStop() bool {
	return s != NoStop
}

// RowType is either the arrival or the departure event of a stop
type RowType int

const (
	Arrival RowType = iota
	Departure
)

// String implements Stringer interface for RowType
func (r RowType) String() string {
	if r == Departure {
		return "DEPARTURE"
	}
	return "ARRIVAL"
}

// TimetableRow is one scheduled arrival or departure event of a train at a station.
type TimetableRow struct {
	StationCode   string     `json:"station_code"`
	Type          RowType    `json:"type"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	EstimatedTime *time.Time `json:"estimated_time,omitempty"`
	ActualTime    *time.Time `json:"actual_time,omitempty"`
	//Time is the current best guess for this row, rewritten by reconciliation and projection
	Time time.Time `json:"time"`
	//ReferenceTime is the reconciled upstream time before any location based correction
	ReferenceTime time.Time `json:"reference_time"`
	TimeType      TimeType  `json:"time_type"`
	//DifferenceInMinutes is Time minus ScheduledTime rounded to whole minutes, positive is late
	DifferenceInMinutes int        `json:"difference_in_minutes"`
	StopKind            StopKind   `json:"stop_kind"`
	IsDepartureCleared  bool       `json:"is_departure_cleared"`
	Causes              []CauseRef `json:"causes,omitempty"`
	Track               string     `json:"track,omitempty"`
}

// HasCauses returns true if the feed recorded any delay causes for the row
func (r *TimetableRow) HasCauses() bool {
	return len(r.Causes) > 0
}

// TrainKey is the natural key of a scheduled journey
type TrainKey struct {
	DepartureDate string
	TrainNumber   int
}

// String implements Stringer interface for TrainKey
func (k TrainKey) String() string {
	return fmt.Sprintf("%s/%d", k.DepartureDate, k.TrainNumber)
}

// Train is one scheduled journey and its current timeline
type Train struct {
	TrainNumber   int    `json:"train_number"`
	DepartureDate string `json:"departure_date"`
	TrainType     string `json:"train_type,omitempty"`
	//LineId is the commuter line label, empty for long distance trains
	LineId string         `json:"line_id,omitempty"`
	Rows   []TimetableRow `json:"rows"`
	//LastKnownActualIndex is the index of the last row with an actual time, -1 if none
	LastKnownActualIndex int `json:"last_known_actual_index"`
	//LastGpsAnchorIndex is the row last used to anchor a location projection, nil when none applied
	LastGpsAnchorIndex *int `json:"last_gps_anchor_index,omitempty"`
	//CurrentDelayMinutes is nil until the train has departed
	CurrentDelayMinutes *int    `json:"current_delay_minutes,omitempty"`
	CurrentCauses       []Cause `json:"current_causes,omitempty"`
	Version             int64   `json:"version"`
}

// Key returns the TrainKey of the train
func (t *Train) Key() TrainKey {
	return TrainKey{DepartureDate: t.DepartureDate, TrainNumber: t.TrainNumber}
}

// LastRowTime returns the best time of the final row, zero time if there are no rows
func (t *Train) LastRowTime() time.Time {
	if len(t.Rows) == 0 {
		return time.Time{}
	}
	return t.Rows[len(t.Rows)-1].Time
}

// Coordinates is a WGS84 position
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// TrainLocation is a GPS fix reported for a train
type TrainLocation struct {
	TrainNumber   int         `json:"train_number"`
	DepartureDate string      `json:"departure_date"`
	Timestamp     time.Time   `json:"timestamp"`
	Location      Coordinates `json:"location"`
	//Speed in km/h
	Speed int `json:"speed"`
}

// Key returns the TrainKey of the train the location belongs to
func (l *TrainLocation) Key() TrainKey {
	return TrainKey{DepartureDate: l.DepartureDate, TrainNumber: l.TrainNumber}
}
