package timetable

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

func TestTransformRow(t *testing.T) {
	scheduled := "2023-03-01T06:09:00.000Z"
	tests := []struct {
		name          string
		raw           rail.RawTimetableRow
		wantDiscarded bool
		wantErr       bool
		wantTimeType  rail.TimeType
		wantTime      string
		wantDiff      int
		wantStopKind  rail.StopKind
	}{
		{
			name: "actual wins over estimate",
			raw: rail.RawTimetableRow{StationShortCode: "KLO", Type: "ARRIVAL", TrainStopping: true,
				CommercialStop: boolPtr(true), ScheduledTime: scheduled,
				LiveEstimateTime: strPtr("2023-03-01T06:12:00.000Z"), ActualTime: strPtr("2023-03-01T06:09:38.000Z")},
			wantTimeType: rail.Actual,
			wantTime:     "2023-03-01T06:09:38Z",
			wantDiff:     1,
			wantStopKind: rail.CommercialStop,
		},
		{
			name: "estimate wins over schedule",
			raw: rail.RawTimetableRow{StationShortCode: "KLO", Type: "DEPARTURE", TrainStopping: true,
				ScheduledTime: scheduled, LiveEstimateTime: strPtr("2023-03-01T06:10:29.000Z")},
			wantTimeType: rail.Estimated,
			wantTime:     "2023-03-01T06:10:29Z",
			wantDiff:     1,
			wantStopKind: rail.OperationalStop,
		},
		{
			name: "half minute rounds away from zero",
			raw: rail.RawTimetableRow{StationShortCode: "KLO", Type: "DEPARTURE", TrainStopping: true,
				CommercialStop: boolPtr(false), ScheduledTime: scheduled,
				LiveEstimateTime: strPtr("2023-03-01T06:10:30.000Z")},
			wantTimeType: rail.Estimated,
			wantTime:     "2023-03-01T06:10:30Z",
			wantDiff:     2,
			wantStopKind: rail.OperationalStop,
		},
		{
			name: "early is negative",
			raw: rail.RawTimetableRow{StationShortCode: "KLO", Type: "ARRIVAL", TrainStopping: false,
				ScheduledTime: scheduled, ActualTime: strPtr("2023-03-01T06:07:00.000Z")},
			wantTimeType: rail.Actual,
			wantTime:     "2023-03-01T06:07:00Z",
			wantDiff:     -2,
			wantStopKind: rail.NoStop,
		},
		{
			name:         "schedule only",
			raw:          rail.RawTimetableRow{StationShortCode: "KLO", Type: "ARRIVAL", ScheduledTime: scheduled},
			wantTimeType: rail.Scheduled,
			wantTime:     "2023-03-01T06:09:00Z",
			wantDiff:     0,
			wantStopKind: rail.NoStop,
		},
		{
			name:          "cancelled row is discarded",
			raw:           rail.RawTimetableRow{StationShortCode: "KLO", Type: "ARRIVAL", Cancelled: true, ScheduledTime: scheduled},
			wantDiscarded: true,
		},
		{
			name:          "row without schedule is discarded",
			raw:           rail.RawTimetableRow{StationShortCode: "KLO", Type: "ARRIVAL"},
			wantDiscarded: true,
		},
		{
			name:    "malformed actual time",
			raw:     rail.RawTimetableRow{StationShortCode: "KLO", Type: "ARRIVAL", ScheduledTime: scheduled, ActualTime: strPtr("06:09")},
			wantErr: true,
		},
		{
			name:    "malformed scheduled time",
			raw:     rail.RawTimetableRow{StationShortCode: "KLO", Type: "ARRIVAL", ScheduledTime: "tomorrow"},
			wantErr: true,
		},
		{
			name:    "missing station code",
			raw:     rail.RawTimetableRow{Type: "ARRIVAL", ScheduledTime: scheduled},
			wantErr: true,
		},
		{
			name:    "unknown row type",
			raw:     rail.RawTimetableRow{StationShortCode: "KLO", Type: "PASS", ScheduledTime: scheduled},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := TransformRow(&tt.raw)
			if tt.wantErr {
				is.True(err != nil)
				is.True(got == nil)
				return
			}
			is.NoErr(err)
			if tt.wantDiscarded {
				is.True(got == nil)
				return
			}
			is.True(got != nil)
			is.Equal(got.TimeType, tt.wantTimeType)
			is.Equal(got.Time.UTC().Format("2006-01-02T15:04:05Z07:00"), tt.wantTime)
			is.True(got.ReferenceTime.Equal(got.Time))
			is.Equal(got.DifferenceInMinutes, tt.wantDiff)
			is.Equal(got.StopKind, tt.wantStopKind)
		})
	}
}

func TestTransformRow_metadata(t *testing.T) {
	is := is.New(t)
	raw := rail.RawTimetableRow{
		StationShortCode: "HPK",
		Type:             "DEPARTURE",
		TrainStopping:    true,
		CommercialStop:   boolPtr(true),
		CommercialTrack:  "4",
		ScheduledTime:    "2023-03-01T06:00:00.000Z",
		TrainReady:       &rail.RawTrainReady{Accepted: true, Timestamp: "2023-03-01T05:58:00.000Z"},
		Causes: []rail.RawCause{
			{CategoryCode: "E", CategoryCodeId: 1, DetailedCategoryCode: "E1", DetailedCategoryCodeId: intPtr(11)},
		},
	}
	got, err := TransformRow(&raw)
	is.NoErr(err)
	is.Equal(got.Type, rail.Departure)
	is.Equal(got.Track, "4")
	is.True(got.IsDepartureCleared)
	is.Equal(len(got.Causes), 1)
	is.Equal(got.Causes[0].MostSpecificCode(), "E1")
	is.Equal(*got.Causes[0].DetailedCategoryCodeId, 11)
	is.True(got.ActualTime == nil)
	is.True(got.EstimatedTime == nil)
}

func TestTransformTrain(t *testing.T) {
	is := is.New(t)
	raw := getTestTrain("train_9_departed.json", t)

	train, err := TransformTrain(raw, DefaultPolicy())
	is.NoErr(err)

	is.Equal(train.Key(), rail.TrainKey{DepartureDate: "2023-03-01", TrainNumber: 9})
	is.Equal(train.LineId, "R")
	is.Equal(train.TrainType, "HL")
	is.Equal(train.Version, int64(284473924811))
	is.Equal(len(train.Rows), 4) // cancelled row dropped
	is.Equal(train.LastKnownActualIndex, 3)

	is.True(train.Rows[1].Time.Equal(morning(6, 9, 38)))
	is.Equal(train.Rows[1].DifferenceInMinutes, 1)
	// departure estimate stays between the surrounding actuals
	is.True(train.Rows[2].Time.Equal(morning(6, 16, 58)))
	is.Equal(train.Rows[2].TimeType, rail.Estimated)
	is.Equal(train.Rows[2].DifferenceInMinutes, 2)
	is.True(train.Rows[3].Time.Equal(morning(6, 20, 0)))
	is.Equal(train.Rows[3].TimeType, rail.Actual)
	is.Equal(train.Rows[3].DifferenceInMinutes, 0)
	assertMonotonic(t, train.Rows)
}

func TestTransformTrain_malformedRows(t *testing.T) {
	is := is.New(t)
	raw := getTestTrain("train_10_malformed.json", t)

	train, err := TransformTrain(raw, DefaultPolicy())
	is.True(err != nil)

	var malformed *MalformedRowsError
	is.True(errors.As(err, &malformed))
	is.Equal(len(malformed.Errs), 2)
	is.Equal(malformed.Key, rail.TrainKey{DepartureDate: "2023-03-01", TrainNumber: 10})

	is.Equal(len(train.Rows), 2) // usable rows are kept
	is.Equal(train.Rows[0].StationCode, "HKI")
	is.Equal(train.Rows[1].StationCode, "TKL")
	is.Equal(train.LastKnownActualIndex, -1)
}

func TestTransformTrain_cancelled(t *testing.T) {
	is := is.New(t)
	raw := getTestTrain("train_9_departed.json", t)
	raw.Cancelled = true

	train, err := TransformTrain(raw, DefaultPolicy())
	is.NoErr(err)
	is.Equal(len(train.Rows), 0)
	is.Equal(train.LastKnownActualIndex, -1)
	is.Equal(train.TrainNumber, 9)
}

func TestLastActualIndex(t *testing.T) {
	is := is.New(t)
	rows := lineTrain().Rows
	is.Equal(LastActualIndex(rows), 0)
	is.Equal(LastActualIndex(rows[1:]), -1)
	is.Equal(LastActualIndex(nil), -1)
}
