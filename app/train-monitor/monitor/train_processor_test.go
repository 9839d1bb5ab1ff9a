package monitor

import (
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

func TestTrainProcessor_applyFeedTrains(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	processor := makeTestProcessor(logWriter.log, morning(6, 20, 0))

	stored := processor.applyFeedTrains([]rail.RawTrain{rawLineTrain(2)})
	is.Equal(stored, 1)

	train, present := processor.trains.train(rail.TrainKey{DepartureDate: "2023-03-01", TrainNumber: 9})
	is.True(present)
	is.Equal(len(train.Rows), 6)
	is.Equal(train.LastKnownActualIndex, 0)
	is.Equal(train.LineId, "R")
	is.True(train.CurrentDelayMinutes != nil)
	is.Equal(*train.CurrentDelayMinutes, 0)
	is.True(train.LastGpsAnchorIndex == nil)

	// an older version of the same train is discarded
	stored = processor.applyFeedTrains([]rail.RawTrain{rawLineTrain(1)})
	is.Equal(stored, 0)
	train, _ = processor.trains.train(train.Key())
	is.Equal(train.Version, int64(2))

	is.Equal(metricValue(t, processor.metrics, "train_monitor_feed_updates_total", ""), 1.0)
	is.Equal(metricValue(t, processor.metrics, "train_monitor_stale_updates_total", ""), 1.0)
	is.Equal(metricValue(t, processor.metrics, "train_monitor_trains", ""), 1.0)
	is.Equal(metricValue(t, processor.metrics, "train_monitor_projections_total", "no_fresh_location"), 2.0)
}

func TestTrainProcessor_applyFeedTrains_malformedRowsKeepTrain(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	processor := makeTestProcessor(logWriter.log, morning(6, 20, 0))

	raw := rawLineTrain(1)
	raw.TimetableRows[3].LiveEstimateTime = strPtr("06:23")

	stored := processor.applyFeedTrains([]rail.RawTrain{raw})
	is.Equal(stored, 1)
	train, present := processor.trains.train(rail.TrainKey{DepartureDate: "2023-03-01", TrainNumber: 9})
	is.True(present)
	is.Equal(len(train.Rows), 5)
	is.Equal(metricValue(t, processor.metrics, "train_monitor_malformed_rows_total", ""), 1.0)
	is.True(len(logWriter.logLines) > 0)
}

func TestTrainProcessor_applyLocation(t *testing.T) {
	is := is.New(t)
	now := morning(6, 20, 0)
	logWriter := makeTestLogWriter()
	processor := makeTestProcessor(logWriter.log, now)
	key := rail.TrainKey{DepartureDate: "2023-03-01", TrainNumber: 9}

	// location of a train not yet known is kept for later
	is.Equal(processor.applyLocation(lineLocation(0.14, now), "nats"), false)
	is.True(processor.trains.latestLocation(key) != nil)

	// the stored location is projected onto the train as it arrives from the feed
	processor.applyFeedTrains([]rail.RawTrain{rawLineTrain(1)})
	train, present := processor.trains.train(key)
	is.True(present)
	is.True(train.LastGpsAnchorIndex != nil)
	is.Equal(*train.LastGpsAnchorIndex, 2)
	is.True(train.CurrentDelayMinutes != nil)
	is.Equal(*train.CurrentDelayMinutes, 4)

	// an earlier location is ignored
	is.Equal(processor.applyLocation(lineLocation(0.12, now.Add(-10*time.Second)), "gtfsrt"), false)
	latest := processor.trains.latestLocation(key)
	is.Equal(latest.Location.Longitude, 0.14)

	// repeating the fix updates the held train with the same timeline
	before := train.Rows
	is.True(processor.applyLocation(lineLocation(0.14, now), "nats"))
	train, _ = processor.trains.train(key)
	for i := range before {
		is.True(train.Rows[i].Time.Equal(before[i].Time))
	}

	is.Equal(metricValue(t, processor.metrics, "train_monitor_locations_total", "nats"), 2.0)
	is.Equal(metricValue(t, processor.metrics, "train_monitor_locations_total", "gtfsrt"), 1.0)
	is.Equal(metricValue(t, processor.metrics, "train_monitor_projections_total", "between_stations"), 2.0)
}
