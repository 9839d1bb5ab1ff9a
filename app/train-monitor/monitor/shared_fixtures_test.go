package monitor

import (
	"log"
	"testing"
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
	"github.com/terolaakso/sepelinpotkija-sub000/business/timetable"
)

type testLogWriter struct {
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "TRAIN_MONITOR : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

// morning returns a time on the test service day
func morning(hour, minute, second int) time.Time {
	return time.Date(2023, 3, 1, hour, minute, second, 0, time.UTC)
}

// lineSnapshot holds stations on the equator a tenth of a degree apart and one cause category
func lineSnapshot() *metadataSnapshot {
	return &metadataSnapshot{
		Stations: []rail.Station{
			{StationCode: "AAA", Name: "Aaa", Latitude: 0, Longitude: 0, Passenger: true},
			{StationCode: "BBB", Name: "Bbb", Latitude: 0, Longitude: 0.1, Passenger: true},
			{StationCode: "CCC", Name: "Ccc", Latitude: 0, Longitude: 0.2, Passenger: true},
			{StationCode: "DDD", Name: "Ddd", Latitude: 0, Longitude: 0.3, Passenger: true},
		},
		CauseCategories: []rail.CauseCategory{
			{Level: rail.CategoryLevel, Id: 1, Code: "E", Name: "Equipment"},
		},
	}
}

func lineMetadata() *metadata {
	meta := makeMetadata()
	meta.replace(lineSnapshot())
	return meta
}

func rawRow(station string, rowType string, scheduled time.Time) rail.RawTimetableRow {
	return rail.RawTimetableRow{
		StationShortCode: station,
		Type:             rowType,
		TrainStopping:    true,
		CommercialStop:   boolPtr(true),
		ScheduledTime:    scheduled.Format(time.RFC3339),
	}
}

// rawLineTrain runs AAA -> BBB -> CCC -> DDD with 2 minute stops, departed AAA on time at 06:00
func rawLineTrain(version int64) rail.RawTrain {
	departure := rawRow("AAA", "DEPARTURE", morning(6, 0, 0))
	departure.ActualTime = strPtr(morning(6, 0, 0).Format(time.RFC3339))
	return rail.RawTrain{
		TrainNumber:    9,
		DepartureDate:  "2023-03-01",
		TrainType:      "HL",
		CommuterLineId: "R",
		Version:        version,
		TimetableRows: []rail.RawTimetableRow{
			departure,
			rawRow("BBB", "ARRIVAL", morning(6, 10, 0)),
			rawRow("BBB", "DEPARTURE", morning(6, 12, 0)),
			rawRow("CCC", "ARRIVAL", morning(6, 22, 0)),
			rawRow("CCC", "DEPARTURE", morning(6, 24, 0)),
			rawRow("DDD", "ARRIVAL", morning(6, 34, 0)),
		},
	}
}

func lineLocation(longitude float64, at time.Time) *rail.TrainLocation {
	return &rail.TrainLocation{
		TrainNumber:   9,
		DepartureDate: "2023-03-01",
		Timestamp:     at,
		Location:      rail.Coordinates{Latitude: 0, Longitude: longitude},
		Speed:         120,
	}
}

// makeTestProcessor creates trainProcessor over lineMetadata with the clock fixed at now. Nothing is published
func makeTestProcessor(log *log.Logger, now time.Time) *trainProcessor {
	metrics := newCollector()
	meta := lineMetadata()
	projector := timetable.NewProjector(timetable.DefaultPolicy(), timetable.FixedClock(now), meta, meta)
	publisher := makeTimelinePublisher(log, nil, nil, "", metrics, true)
	return makeTrainProcessor(log, makeTrainCollection(), projector, publisher, metrics)
}

// metricValue sums the samples of the counter or gauge family name, optionally only those with label value
func metricValue(t *testing.T, c *collector, name string, labelValue string) float64 {
	t.Helper()
	families, err := c.reg.Gather()
	if err != nil {
		t.Fatalf("unable to gather metrics: %v", err)
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelValue != "" && !hasLabelValue(metric.GetLabel(), labelValue) {
				continue
			}
			total += metric.GetCounter().GetValue() + metric.GetGauge().GetValue()
		}
	}
	return total
}

func hasLabelValue[L interface{ GetValue() string }](labels []L, value string) bool {
	for _, label := range labels {
		if label.GetValue() == value {
			return true
		}
	}
	return false
}
