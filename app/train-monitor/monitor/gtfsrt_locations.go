package monitor

import (
	"context"
	"fmt"
	logger "log"
	"strconv"
	"sync"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
	"github.com/terolaakso/sepelinpotkija-sub000/foundation/httpclient"
	"google.golang.org/protobuf/proto"
)

/*
getGtfsRtLocations retrieves a gtfs-realtime vehicle position feed and converts the entities into train locations.
Entities that cannot be tied to a train (no numeric vehicle label, no trip start date or no position) are skipped.
*/
func getGtfsRtLocations(ctx context.Context,
	log *logger.Logger,
	client *httpclient.Client,
	url string) ([]*rail.TrainLocation, error) {
	gtfsResponseBytes, err := client.GetBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return decodeGtfsRtLocations(log, gtfsResponseBytes, time.Now())
}

// decodeGtfsRtLocations un-marshals a gtfs-realtime FeedMessage. Positions without a timestamp are stamped with now
func decodeGtfsRtLocations(log *logger.Logger, data []byte, now time.Time) ([]*rail.TrainLocation, error) {
	feedMessage := gtfs.FeedMessage{}
	err := proto.Unmarshal(data, &feedMessage)
	if err != nil {
		return nil, fmt.Errorf("unable to unmarshal FeedMessage: %w", err)
	}
	var locations []*rail.TrainLocation
	for _, entity := range feedMessage.Entity {
		vehicle := entity.GetVehicle()
		if vehicle == nil {
			continue
		}
		trainNumber, ok := gtfsTrainNumber(vehicle.GetVehicle())
		if !ok {
			log.Printf("vehicle entity %s has no train number\n", entity.GetId())
			continue
		}
		departureDate, ok := gtfsDepartureDate(vehicle.GetTrip().GetStartDate())
		if !ok {
			log.Printf("vehicle entity %s for train %d has no usable trip start date\n", entity.GetId(), trainNumber)
			continue
		}
		position := vehicle.GetPosition()
		if position == nil {
			continue
		}

		timestamp := now
		if vehicle.Timestamp != nil {
			timestamp = time.Unix(int64(vehicle.GetTimestamp()), 0).UTC()
		}
		location := rail.TrainLocation{
			TrainNumber:   trainNumber,
			DepartureDate: departureDate,
			Timestamp:     timestamp,
			Location: rail.Coordinates{
				Latitude:  float64(position.GetLatitude()),
				Longitude: float64(position.GetLongitude()),
			},
		}
		// gtfs-realtime speed is meters per second
		if position.Speed != nil {
			location.Speed = int(position.GetSpeed()*3.6 + 0.5)
		}
		locations = append(locations, &location)
	}
	return locations, nil
}

// gtfsTrainNumber reads the train number from the vehicle label, falling back to vehicle id
func gtfsTrainNumber(descriptor *gtfs.VehicleDescriptor) (int, bool) {
	if descriptor == nil {
		return 0, false
	}
	for _, candidate := range []string{descriptor.GetLabel(), descriptor.GetId()} {
		if number, err := strconv.Atoi(candidate); err == nil && number > 0 {
			return number, true
		}
	}
	return 0, false
}

// gtfsDepartureDate converts YYYYMMDD gtfs date to YYYY-MM-DD
func gtfsDepartureDate(startDate string) (string, bool) {
	date, err := time.Parse("20060102", startDate)
	if err != nil {
		return "", false
	}
	return date.Format("2006-01-02"), true
}

// runGtfsRtLocationLoop polls a gtfs-realtime vehicle position feed every pollSeconds and applies
// the locations until shutdownSignal
func runGtfsRtLocationLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	client *httpclient.Client,
	url string,
	processor *trainProcessor,
	pollSeconds int,
	shutdownSignal chan bool) {
	defer wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleepChan := make(chan bool, 1)
	loopDuration := time.Duration(pollSeconds) * time.Second
	var sleep time.Duration

	for {
		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting gtfs-rt location loop on shutdown signal")
			return
		case <-sleepChan:
		}

		start := time.Now()
		locations, err := getGtfsRtLocations(ctx, log, client, url)
		if err != nil {
			processor.metrics.FeedFetchErrors.WithLabelValues("gtfsrt").Inc()
			log.Printf("unable to load gtfs-rt locations, error: %v", err)
		}
		updated := 0
		for _, location := range locations {
			if processor.applyLocation(location, "gtfsrt") {
				updated++
			}
		}
		if len(locations) > 0 {
			log.Printf("applied %d gtfs-rt locations, updated %d trains", len(locations), updated)
		}

		sleep = loopDuration - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
	}
}
