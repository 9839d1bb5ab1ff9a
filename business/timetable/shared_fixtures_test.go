package timetable

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// morning returns a time on the test service day
func morning(hour, minute, second int) time.Time {
	return time.Date(2023, 3, 1, hour, minute, second, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

// makeRow creates a reconciled scheduled-only row
func makeRow(station string, rowType rail.RowType, scheduled time.Time, kind rail.StopKind) rail.TimetableRow {
	return rail.TimetableRow{
		StationCode:   station,
		Type:          rowType,
		ScheduledTime: scheduled,
		Time:          scheduled,
		ReferenceTime: scheduled,
		TimeType:      rail.Scheduled,
		StopKind:      kind,
	}
}

// withActual marks row as having happened at actual
func withActual(row rail.TimetableRow, actual time.Time) rail.TimetableRow {
	row.ActualTime = timePtr(actual)
	row.Time = actual
	row.ReferenceTime = actual
	row.TimeType = rail.Actual
	row.DifferenceInMinutes = differenceInMinutes(actual, row.ScheduledTime)
	return row
}

// withEstimate marks row as estimated to happen at estimate
func withEstimate(row rail.TimetableRow, estimate time.Time) rail.TimetableRow {
	row.EstimatedTime = timePtr(estimate)
	row.Time = estimate
	row.ReferenceTime = estimate
	row.TimeType = rail.Estimated
	row.DifferenceInMinutes = differenceInMinutes(estimate, row.ScheduledTime)
	return row
}

// withDeviation sets only the deviation of row, enough for attribution tests
func withDeviation(row rail.TimetableRow, minutes int, causes ...rail.CauseRef) rail.TimetableRow {
	row.DifferenceInMinutes = minutes
	row.Causes = causes
	return row
}

// stationTable implements StationLookup
type stationTable map[string]rail.Coordinates

func (s stationTable) StationCoordinates(stationCode string) (rail.Coordinates, bool) {
	c, ok := s[stationCode]
	return c, ok
}

type causeKey struct {
	level rail.CauseLevel
	id    int
}

// causeTable implements CauseLookup
type causeTable map[causeKey]string

func (c causeTable) CauseCategoryName(level rail.CauseLevel, id int) (string, bool) {
	name, ok := c[causeKey{level: level, id: id}]
	return name, ok
}

// testCauses resolves ids 1, 11 and 111 at the three levels
var testCauses = causeTable{
	{level: rail.CategoryLevel, id: 1}:         "Category",
	{level: rail.DetailedCategoryLevel, id: 11}: "Detailed",
	{level: rail.ThirdCategoryLevel, id: 111}:  "Third",
	{level: rail.CategoryLevel, id: 2}:         "Traffic",
	{level: rail.CategoryLevel, id: 3}:         "Technical",
}

func thirdLevelCause() rail.CauseRef {
	return rail.CauseRef{
		CategoryCode:           "E",
		CategoryCodeId:         1,
		DetailedCategoryCode:   "E1",
		DetailedCategoryCodeId: intPtr(11),
		ThirdCategoryCode:      "E11",
		ThirdCategoryCodeId:    intPtr(111),
	}
}

func categoryCause(code string, id int) rail.CauseRef {
	return rail.CauseRef{CategoryCode: code, CategoryCodeId: id}
}

// lineStations lie on the equator a tenth of a degree (about 11.1 km) apart
var lineStations = stationTable{
	"AAA": {Latitude: 0, Longitude: 0},
	"BBB": {Latitude: 0, Longitude: 0.1},
	"CCC": {Latitude: 0, Longitude: 0.2},
	"DDD": {Latitude: 0, Longitude: 0.3},
}

// lineTrain runs AAA -> BBB -> CCC -> DDD, 10 minutes between stations with 2 minute commercial stops,
// departed AAA on time at 06:00
func lineTrain() rail.Train {
	rows := []rail.TimetableRow{
		withActual(makeRow("AAA", rail.Departure, morning(6, 0, 0), rail.CommercialStop), morning(6, 0, 0)),
		makeRow("BBB", rail.Arrival, morning(6, 10, 0), rail.CommercialStop),
		makeRow("BBB", rail.Departure, morning(6, 12, 0), rail.CommercialStop),
		makeRow("CCC", rail.Arrival, morning(6, 22, 0), rail.CommercialStop),
		makeRow("CCC", rail.Departure, morning(6, 24, 0), rail.CommercialStop),
		makeRow("DDD", rail.Arrival, morning(6, 34, 0), rail.CommercialStop),
	}
	return rail.Train{
		TrainNumber:          9,
		DepartureDate:        "2023-03-01",
		Rows:                 rows,
		LastKnownActualIndex: 0,
		Version:              1,
	}
}

// getTestTrain reads a raw feed train from testdata
func getTestTrain(fileName string, t *testing.T) *rail.RawTrain {
	file, err := os.ReadFile("testdata/" + fileName)
	if err != nil {
		t.Fatalf("unable to read test train file %s: %v", fileName, err)
	}
	var result rail.RawTrain
	if err = json.Unmarshal(file, &result); err != nil {
		t.Fatalf("unable to parse test train file %s: %v", fileName, err)
	}
	return &result
}

// assertMonotonic fails when any row is timed before the previous one
func assertMonotonic(t *testing.T, rows []rail.TimetableRow) {
	t.Helper()
	for i := 1; i < len(rows); i++ {
		if rows[i].Time.Before(rows[i-1].Time) {
			t.Errorf("row %d (%s %s) at %s is before row %d at %s", i, rows[i].StationCode, rows[i].Type,
				rows[i].Time.Format(time.TimeOnly), i-1, rows[i-1].Time.Format(time.TimeOnly))
		}
	}
}

// assertNear fails unless got is within a second of want, projection arithmetic is floored to seconds
func assertNear(t *testing.T, name string, got, want time.Time) {
	t.Helper()
	diff := got.Sub(want)
	if diff < -time.Second || diff > time.Second {
		t.Errorf("%s = %s, want %s", name, got.Format(time.TimeOnly), want.Format(time.TimeOnly))
	}
}
