package monitor

import (
	"encoding/json"
	"fmt"
	logger "log"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// runLocationListener starts NATS subscription on locationSubject for rail.RawTrainLocation messages.
// Applies each location with trainProcessor. Ends NATS subscription and returns on shutdownSignal
func runLocationListener(
	log *logger.Logger,
	wg *sync.WaitGroup,
	natsConn *nats.Conn,
	processor *trainProcessor,
	locationSubject string,
	shutdownSignal chan bool) error {
	defer wg.Done()

	ch := make(chan *nats.Msg, 64)
	log.Printf("Subscribing to train locations on subject:%s on nats: %v\n", locationSubject,
		natsConn.Servers())
	sub, err := natsConn.ChanSubscribe(locationSubject, ch)
	if err != nil {
		return fmt.Errorf("unable to establish subscription to nats server: %w", err)
	}

	for {
		select {
		case msg := <-ch:
			processLocationFromMsg(log, msg.Data, processor)
		case <-shutdownSignal:
			log.Printf("ending location listener on shutdown signal\n")
			log.Printf("unsubscribing to nats\n")
			err = sub.Unsubscribe()
			if err != nil {
				log.Printf("Error unsubscribing to nats:%s", err)
			}
			return nil
		}
	}
}

// processLocationFromMsg un-marshal rail.RawTrainLocation from message data and apply it
func processLocationFromMsg(log *logger.Logger, data []byte, processor *trainProcessor) {
	var raw rail.RawTrainLocation
	err := json.Unmarshal(data, &raw)
	if err != nil {
		log.Printf("error parsing train location: %s, payload:%s", err, string(data))
		return
	}
	location, err := raw.ToTrainLocation()
	if err != nil {
		log.Printf("discarding train location: %v", err)
		return
	}
	processor.applyLocation(location, "nats")
}
