package monitor

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

// TimelineMessage is published every time the timeline of a train changes
type TimelineMessage struct {
	Id          string      `json:"id"`
	PublishedAt time.Time   `json:"published_at"`
	Train       *rail.Train `json:"train"`
}

// timelinePublisher sends train timelines to their destinations (such as database and nats)
type timelinePublisher struct {
	log              *log.Logger
	db               *sqlx.DB
	natsConnection   *nats.Conn
	subject          string
	metrics          *collector
	recordToDatabase bool
	publishOverNats  bool
}

// makeTimelinePublisher creates timelinePublisher. Destinations whose connection is nil are disabled
func makeTimelinePublisher(log *log.Logger,
	db *sqlx.DB,
	natsConnection *nats.Conn,
	subject string,
	metrics *collector,
	recordToDatabase bool) *timelinePublisher {
	return &timelinePublisher{
		log:              log,
		db:               db,
		natsConnection:   natsConnection,
		subject:          subject,
		metrics:          metrics,
		recordToDatabase: recordToDatabase && db != nil,
		publishOverNats:  natsConnection != nil && subject != "",
	}
}

// publish sends the train over NATS and, when record is true, records its rows to the database
// according to publishOverNats and recordToDatabase
func (p *timelinePublisher) publish(train *rail.Train, record bool) {
	message := TimelineMessage{
		Id:          uuid.New().String(),
		PublishedAt: time.Now(),
		Train:       train,
	}
	if p.publishOverNats {
		p.sendOverNats(&message)
	}
	if record && p.recordToDatabase {
		p.record(&message)
	}
}

func (p *timelinePublisher) sendOverNats(message *TimelineMessage) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		p.metrics.PublishErrors.Inc()
		p.log.Printf("failed to marshal TimelineMessage for train %s in "+
			"timelinePublisher.sendOverNats, error:%v", message.Train.Key(), err)
		return
	}
	err = p.natsConnection.Publish(p.subject, jsonData)
	if err != nil {
		p.metrics.PublishErrors.Inc()
		p.log.Printf("failed to send TimelineMessage for train %s in "+
			"timelinePublisher.sendOverNats, error:%v", message.Train.Key(), err)
		return
	}
	p.metrics.Published.Inc()
}

func (p *timelinePublisher) record(message *TimelineMessage) {
	records := rail.MakeTimelineRecords(message.Id, message.PublishedAt, message.Train)
	err := rail.RecordTrainTimeline(records, p.db)
	if err != nil {
		p.metrics.PublishErrors.Inc()
		p.log.Printf("failed to record %d timeline rows of train %s, error:%v", len(records),
			message.Train.Key(), err)
	}
}
