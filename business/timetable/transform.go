package timetable

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// MalformedRowsError lists rows of a train that could not be parsed and were left out of its timeline
type MalformedRowsError struct {
	Key  rail.TrainKey
	Errs []error
}

func (e *MalformedRowsError) Error() string {
	messages := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("train %s has %d malformed rows: %s", e.Key, len(e.Errs), strings.Join(messages, "; "))
}

// Unwrap allows errors.Is and errors.As to inspect individual row errors
func (e *MalformedRowsError) Unwrap() []error {
	return e.Errs
}

// TransformRow converts a raw feed row into a TimetableRow.
// Returns nil and no error when the row is discarded because it is cancelled or has no scheduled time.
// Returns an error when the row is malformed.
func TransformRow(raw *rail.RawTimetableRow) (*rail.TimetableRow, error) {
	if raw.Cancelled || raw.ScheduledTime == "" {
		return nil, nil
	}
	if raw.StationShortCode == "" {
		return nil, fmt.Errorf("row scheduled at %s has no station code", raw.ScheduledTime)
	}
	rowType, err := parseRowType(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("row at %s: %w", raw.StationShortCode, err)
	}
	scheduled, err := parseFeedTime(raw.ScheduledTime)
	if err != nil {
		return nil, fmt.Errorf("scheduled time of row at %s: %w", raw.StationShortCode, err)
	}
	estimated, err := parseOptionalFeedTime(raw.LiveEstimateTime)
	if err != nil {
		return nil, fmt.Errorf("estimated time of row at %s: %w", raw.StationShortCode, err)
	}
	actual, err := parseOptionalFeedTime(raw.ActualTime)
	if err != nil {
		return nil, fmt.Errorf("actual time of row at %s: %w", raw.StationShortCode, err)
	}

	row := rail.TimetableRow{
		StationCode:   raw.StationShortCode,
		Type:          rowType,
		ScheduledTime: scheduled,
		EstimatedTime: estimated,
		ActualTime:    actual,
		StopKind:      stopKind(raw),
		Track:         raw.CommercialTrack,
		Causes:        makeCauseRefs(raw.Causes),
	}
	if raw.TrainReady != nil {
		row.IsDepartureCleared = raw.TrainReady.Accepted
	}

	switch {
	case actual != nil:
		row.Time = *actual
		row.TimeType = rail.Actual
	case estimated != nil:
		row.Time = *estimated
		row.TimeType = rail.Estimated
	default:
		row.Time = scheduled
		row.TimeType = rail.Scheduled
	}
	row.ReferenceTime = row.Time
	row.DifferenceInMinutes = differenceInMinutes(row.Time, row.ScheduledTime)
	return &row, nil
}

// TransformTrain converts a raw feed train into a Train with a reconciled timeline.
// Malformed rows are left out and reported in a *MalformedRowsError returned together with the usable train.
func TransformTrain(raw *rail.RawTrain, policy Policy) (rail.Train, error) {
	train := rail.Train{
		TrainNumber:          raw.TrainNumber,
		DepartureDate:        raw.DepartureDate,
		TrainType:            raw.TrainType,
		LineId:               raw.CommuterLineId,
		Version:              raw.Version,
		LastKnownActualIndex: -1,
	}
	if raw.Cancelled {
		return train, nil
	}

	var malformed []error
	rows := make([]rail.TimetableRow, 0, len(raw.TimetableRows))
	for i := range raw.TimetableRows {
		row, err := TransformRow(&raw.TimetableRows[i])
		if err != nil {
			malformed = append(malformed, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		if row == nil {
			continue
		}
		rows = append(rows, *row)
	}

	train.LastKnownActualIndex = LastActualIndex(rows)
	train.Rows = ReconcileTimetable(rows, policy)

	if len(malformed) > 0 {
		return train, &MalformedRowsError{Key: train.Key(), Errs: malformed}
	}
	return train, nil
}

// LastActualIndex returns the index of the last row with an actual time, -1 if there is none
func LastActualIndex(rows []rail.TimetableRow) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].ActualTime != nil {
			return i
		}
	}
	return -1
}

// differenceInMinutes returns t - scheduled rounded to whole minutes
func differenceInMinutes(t time.Time, scheduled time.Time) int {
	return int(math.Round(t.Sub(scheduled).Minutes()))
}

func stopKind(raw *rail.RawTimetableRow) rail.StopKind {
	if !raw.TrainStopping {
		return rail.NoStop
	}
	if raw.CommercialStop != nil && *raw.CommercialStop {
		return rail.CommercialStop
	}
	return rail.OperationalStop
}

func parseRowType(value string) (rail.RowType, error) {
	switch value {
	case "ARRIVAL":
		return rail.Arrival, nil
	case "DEPARTURE":
		return rail.Departure, nil
	}
	return rail.Arrival, fmt.Errorf("unknown row type %q", value)
}

func parseFeedTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func parseOptionalFeedTime(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseFeedTime(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func makeCauseRefs(causes []rail.RawCause) []rail.CauseRef {
	if len(causes) == 0 {
		return nil
	}
	refs := make([]rail.CauseRef, len(causes))
	for i, c := range causes {
		refs[i] = rail.CauseRef{
			CategoryCode:           c.CategoryCode,
			CategoryCodeId:         c.CategoryCodeId,
			DetailedCategoryCode:   c.DetailedCategoryCode,
			DetailedCategoryCodeId: c.DetailedCategoryCodeId,
			ThirdCategoryCode:      c.ThirdCategoryCode,
			ThirdCategoryCodeId:    c.ThirdCategoryCodeId,
		}
	}
	return refs
}
