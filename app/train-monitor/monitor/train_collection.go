package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// trainCollection contains the current timeline of every known train and the latest location of each,
// and provides thread safe access to them
type trainCollection struct {
	mu        sync.Mutex
	trains    map[rail.TrainKey]*rail.Train
	locations map[rail.TrainKey]*rail.TrainLocation
}

// makeTrainCollection trainCollection factory
func makeTrainCollection() *trainCollection {
	return &trainCollection{
		trains:    make(map[rail.TrainKey]*rail.Train),
		locations: make(map[rail.TrainKey]*rail.TrainLocation),
	}
}

// addTrain stores train, discards it if trainCollection already contains a newer version of the same train.
// returns true if train was stored
func (c *trainCollection) addTrain(train *rail.Train) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if held, present := c.trains[train.Key()]; present {
		//new train is older than the one held, don't replace it
		if held.Version > train.Version {
			return false
		}
	}
	c.trains[train.Key()] = train
	return true
}

// replaceProjected stores a train re-projected from a location, only if it was derived from the version
// currently held. A feed update that arrived while projecting wins.
func (c *trainCollection) replaceProjected(train *rail.Train) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	held, present := c.trains[train.Key()]
	if !present || held.Version != train.Version {
		return false
	}
	c.trains[train.Key()] = train
	return true
}

// train returns the train stored for key
func (c *trainCollection) train(key rail.TrainKey) (*rail.Train, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	train, present := c.trains[key]
	return train, present
}

// size returns the number of trains currently stored
func (c *trainCollection) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trains)
}

// trainList returns all trains currently stored ordered by departure date and train number
func (c *trainCollection) trainList() []*rail.Train {
	c.mu.Lock()
	results := make([]*rail.Train, 0, len(c.trains))
	for _, train := range c.trains {
		results = append(results, train)
	}
	c.mu.Unlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].DepartureDate != results[j].DepartureDate {
			return results[i].DepartureDate < results[j].DepartureDate
		}
		return results[i].TrainNumber < results[j].TrainNumber
	})
	return results
}

// addLocation stores location unless a later location is already held for the train.
// returns true if location was stored
func (c *trainCollection) addLocation(location *rail.TrainLocation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if held, present := c.locations[location.Key()]; present && held.Timestamp.After(location.Timestamp) {
		return false
	}
	c.locations[location.Key()] = location
	return true
}

// latestLocation returns the last location stored for key, nil if none
func (c *trainCollection) latestLocation(key rail.TrainKey) *rail.TrainLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locations[key]
}

// expireTrains removes all trains whose final row is older than "expireAfterSeconds" and locations received
// earlier than that.
// returns the number of trains that have been removed and how many are currently stored.
func (c *trainCollection) expireTrains(at time.Time, expireAfterSeconds int) (removed int, currentSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := at.Add(-time.Duration(expireAfterSeconds) * time.Second)
	previousSize := len(c.trains)
	for key, train := range c.trains {
		if train.LastRowTime().Before(cutoff) {
			delete(c.trains, key)
		}
	}
	for key, location := range c.locations {
		if location.Timestamp.Before(cutoff) {
			delete(c.locations, key)
		}
	}
	currentSize = len(c.trains)
	return previousSize - currentSize, currentSize
}
