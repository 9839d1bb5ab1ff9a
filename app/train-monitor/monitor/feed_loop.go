package monitor

import (
	"context"
	"fmt"
	logger "log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
	"github.com/terolaakso/sepelinpotkija-sub000/foundation/httpclient"
)

// trainFeed retrieves changed trains from the timetable feed. Each request asks only for trains changed
// after the highest version seen so far
type trainFeed struct {
	client  *httpclient.Client
	baseUrl string
	version int64
}

// makeTrainFeed creates trainFeed reading from baseUrl
func makeTrainFeed(client *httpclient.Client, baseUrl string) *trainFeed {
	return &trainFeed{
		client:  client,
		baseUrl: baseUrl,
	}
}

// requestUrl adds the version parameter to baseUrl
func (f *trainFeed) requestUrl() (string, error) {
	u, err := url.Parse(f.baseUrl)
	if err != nil {
		return "", fmt.Errorf("invalid trains url %q: %w", f.baseUrl, err)
	}
	q := u.Query()
	q.Set("version", strconv.FormatInt(f.version, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// load retrieves trains changed since the last load
func (f *trainFeed) load(ctx context.Context) ([]rail.RawTrain, error) {
	requestUrl, err := f.requestUrl()
	if err != nil {
		return nil, err
	}
	var trains []rail.RawTrain
	if err = f.client.GetJSON(ctx, requestUrl, &trains); err != nil {
		return nil, err
	}
	for _, train := range trains {
		if train.Version > f.version {
			f.version = train.Version
		}
	}
	return trains, nil
}

// runFeedLoop loads the timetable feed every pollSeconds and applies the changed trains until shutdownSignal
func runFeedLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	feed *trainFeed,
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
			log.Printf("Exiting feed loop on shutdown signal")
			return
		case <-sleepChan:
		}

		start := time.Now()
		pollFeed(ctx, log, feed, processor)
		processor.metrics.FeedDuration.Observe(time.Since(start).Seconds())

		sleep = loopDuration - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
	}
}

// pollFeed performs one load of the timetable feed, errors are logged and the next poll retries
func pollFeed(ctx context.Context, log *logger.Logger, feed *trainFeed, processor *trainProcessor) {
	trains, err := feed.load(ctx)
	if err != nil {
		processor.metrics.FeedFetchErrors.WithLabelValues("trains").Inc()
		log.Printf("unable to load trains, error: %v", err)
		return
	}
	stored := processor.applyFeedTrains(trains)
	log.Printf("loaded %d changed trains, stored %d, feed version now %d", len(trains), stored, feed.version)
}
