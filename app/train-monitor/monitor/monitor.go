// Package monitor keeps the live timelines of running trains. It polls the timetable feed, projects train
// locations onto the timelines, attributes delays and publishes the results.
package monitor

import (
	"fmt"
	logger "log"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/terolaakso/sepelinpotkija-sub000/business/timetable"
	"github.com/terolaakso/sepelinpotkija-sub000/foundation/httpclient"
)

// Config contains the settings of StartServices
type Config struct {
	Policy timetable.Policy
	Http   httpclient.Config

	TrainsUrl              string
	LocationsUrl           string // gtfs-realtime vehicle positions, optional
	PollSeconds            int
	LocationPollSeconds    int
	MetadataRefreshSeconds int
	MetadataFile           string // read instead of database when set
	ExpireTrainSeconds     int

	LocationSubject  string
	ResultsSubject   string
	RecordToDatabase bool

	HttpPort int
}

// StartServices brings up the feed loop, location sources, metadata loop, expiry loop and webservice.
// db and natsConn are optional. Returns on shutdown signal after all subroutines have ended
func StartServices(log *logger.Logger,
	db *sqlx.DB,
	natsConn *nats.Conn,
	cfg Config,
	shutdownSignal chan os.Signal) error {

	if err := cfg.Policy.Validate(); err != nil {
		return err
	}

	var load metadataLoader
	switch {
	case cfg.MetadataFile != "":
		load = makeFileMetadataLoader(cfg.MetadataFile)
	case db != nil:
		load = makeDatabaseMetadataLoader(db)
	default:
		return fmt.Errorf("no source for station metadata, configure a metadata file or database")
	}

	metrics := newCollector()
	meta := makeMetadata()
	if err := refreshMetadata(log, meta, load, metrics); err != nil {
		return err
	}

	trains := makeTrainCollection()
	projector := timetable.NewProjector(cfg.Policy, timetable.SystemClock{}, meta, meta)
	publisher := makeTimelinePublisher(log, db, natsConn, cfg.ResultsSubject, metrics, cfg.RecordToDatabase)
	processor := makeTrainProcessor(log, trains, projector, publisher, metrics)
	client := httpclient.NewClient(log, cfg.Http)

	wg := sync.WaitGroup{}
	var shutdownChannels []chan bool
	newShutdownChannel := func() chan bool {
		ch := make(chan bool, 1)
		shutdownChannels = append(shutdownChannels, ch)
		return ch
	}

	//start all child services
	wg.Add(4)
	go runFeedLoop(log, &wg, makeTrainFeed(client, cfg.TrainsUrl), processor, cfg.PollSeconds,
		newShutdownChannel())
	go runMetadataLoop(log, &wg, meta, load, metrics, cfg.MetadataRefreshSeconds, newShutdownChannel())
	go runExpiryLoop(log, &wg, trains, metrics, cfg.ExpireTrainSeconds, newShutdownChannel())
	go runWebService(log, &wg, trains, meta, db, metrics, cfg.HttpPort, newShutdownChannel())

	if cfg.LocationsUrl != "" {
		wg.Add(1)
		go runGtfsRtLocationLoop(log, &wg, client, cfg.LocationsUrl, processor, cfg.LocationPollSeconds,
			newShutdownChannel())
	}

	listenerErrors := make(chan error, 1)
	if natsConn != nil && cfg.LocationSubject != "" {
		wg.Add(1)
		listenerShutdown := newShutdownChannel()
		go func() {
			if err := runLocationListener(log, &wg, natsConn, processor, cfg.LocationSubject,
				listenerShutdown); err != nil {
				listenerErrors <- err
			}
		}()
	}

	var result error
	select {
	case <-shutdownSignal:
		log.Printf("Exiting on shutdown signal, shutting down subroutines")
	case result = <-listenerErrors:
		log.Printf("Location listener failed, shutting down subroutines. error: %v", result)
	}
	for _, ch := range shutdownChannels {
		ch <- true
	}
	wg.Wait()
	log.Printf("Subroutines shut down, exiting train monitor")
	return result
}

//runExpiryLoop frequently removes finished trains from trainCollection
func runExpiryLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	trains *trainCollection,
	metrics *collector,
	expireTrainSeconds int,
	shutdownSignal chan bool) {
	defer wg.Done()

	sleepChan := make(chan bool, 1)
	sleep := time.Duration(60) * time.Second

	for {
		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting expiry loop on shutdown signal")
			return
		case <-sleepChan:
		}

		removed, currentSize := trains.expireTrains(time.Now(), expireTrainSeconds)
		metrics.Trains.Set(float64(currentSize))
		if removed > 0 {
			log.Printf("Train collection has %d trains. Removed %d finished trains", currentSize, removed)
		}
	}
}
