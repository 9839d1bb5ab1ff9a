package monitor

import (
	"errors"
	logger "log"
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
	"github.com/terolaakso/sepelinpotkija-sub000/business/timetable"
)

// trainProcessor applies feed updates and locations to the trains in trainCollection and publishes
// the resulting timelines
type trainProcessor struct {
	log       *logger.Logger
	trains    *trainCollection
	projector *timetable.Projector
	publisher *timelinePublisher
	metrics   *collector
	policy    timetable.Policy
}

// makeTrainProcessor creates trainProcessor
func makeTrainProcessor(log *logger.Logger,
	trains *trainCollection,
	projector *timetable.Projector,
	publisher *timelinePublisher,
	metrics *collector) *trainProcessor {
	return &trainProcessor{
		log:       log,
		trains:    trains,
		projector: projector,
		publisher: publisher,
		metrics:   metrics,
		policy:    projector.Policy,
	}
}

// applyFeedTrains transforms raw trains from the timetable feed, re-applies the latest location of each
// and stores them. Returns the number of trains stored
func (p *trainProcessor) applyFeedTrains(rawTrains []rail.RawTrain) int {
	stored := 0
	for i := range rawTrains {
		train, err := timetable.TransformTrain(&rawTrains[i], p.policy)
		if err != nil {
			var malformed *timetable.MalformedRowsError
			if errors.As(err, &malformed) {
				p.metrics.MalformedRows.Add(float64(len(malformed.Errs)))
			}
			p.log.Printf("%v", err)
		}

		projected := p.project(train, p.trains.latestLocation(train.Key()))
		if !p.trains.addTrain(&projected) {
			p.metrics.StaleUpdates.Inc()
			continue
		}
		stored++
		p.metrics.FeedUpdates.Inc()
		p.publisher.publish(&projected, true)
	}
	p.metrics.Trains.Set(float64(p.trains.size()))
	return stored
}

// applyLocation stores location and projects it onto its train when the train is known.
// returns true if the train timeline was updated
func (p *trainProcessor) applyLocation(location *rail.TrainLocation, source string) bool {
	p.metrics.Locations.WithLabelValues(source).Inc()
	if !p.trains.addLocation(location) {
		return false
	}
	train, present := p.trains.train(location.Key())
	if !present {
		return false
	}
	projected := p.project(*train, location)
	if !p.trains.replaceProjected(&projected) {
		return false
	}
	p.publisher.publish(&projected, false)
	return true
}

// project applies location to train and records the outcome
func (p *trainProcessor) project(train rail.Train, location *rail.TrainLocation) rail.Train {
	start := time.Now()
	projected, projection := p.projector.ProjectByLocation(train, location)
	p.metrics.ProjectionDuration.Observe(time.Since(start).Seconds())
	p.metrics.Projections.WithLabelValues(projection.Outcome.String()).Inc()
	return projected
}
