package monitor

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// TrainSummary is the list view of a train
type TrainSummary struct {
	TrainNumber         int          `json:"train_number"`
	DepartureDate       string       `json:"departure_date"`
	LineId              string       `json:"line_id,omitempty"`
	CurrentDelayMinutes *int         `json:"current_delay_minutes,omitempty"`
	CurrentCauses       []rail.Cause `json:"current_causes,omitempty"`
	NextStation         string       `json:"next_station,omitempty"`
	Version             int64        `json:"version"`
}

// trainHandler serves the trains held in trainCollection
type trainHandler struct {
	log    *logger.Logger
	trains *trainCollection
	meta   *metadata
	db     *sqlx.DB
}

func makeTrainHandler(log *logger.Logger, trains *trainCollection, meta *metadata, db *sqlx.DB) *trainHandler {
	return &trainHandler{
		log:    log,
		trains: trains,
		meta:   meta,
		db:     db,
	}
}

// serveTrainList responds with a TrainSummary of every train held
func (t *trainHandler) serveTrainList(w http.ResponseWriter, _ *http.Request) {
	trains := t.trains.trainList()
	summaries := make([]TrainSummary, 0, len(trains))
	for _, train := range trains {
		summaries = append(summaries, t.summarize(train))
	}
	t.writeJSON(w, summaries)
}

// summarize builds TrainSummary. The next station is the first row after the last actual one
func (t *trainHandler) summarize(train *rail.Train) TrainSummary {
	summary := TrainSummary{
		TrainNumber:         train.TrainNumber,
		DepartureDate:       train.DepartureDate,
		LineId:              train.LineId,
		CurrentDelayMinutes: train.CurrentDelayMinutes,
		CurrentCauses:       train.CurrentCauses,
		Version:             train.Version,
	}
	next := train.LastKnownActualIndex + 1
	if next >= 0 && next < len(train.Rows) {
		summary.NextStation = t.meta.stationName(train.Rows[next].StationCode)
	}
	return summary
}

// serveTrain responds with the full timeline of one train, 404 when it's not held
func (t *trainHandler) serveTrain(w http.ResponseWriter, r *http.Request) {
	key, ok := trainKeyFromRequest(r)
	if !ok {
		http.Error(w, "invalid train number", http.StatusBadRequest)
		return
	}
	train, present := t.trains.train(key)
	if !present {
		http.Error(w, "train not found", http.StatusNotFound)
		return
	}
	t.writeJSON(w, train)
}

// serveTimelines responds with the recorded timeline rows of one train between query parameters start and end
// (RFC3339), defaulting to the last 24 hours
func (t *trainHandler) serveTimelines(w http.ResponseWriter, r *http.Request) {
	key, ok := trainKeyFromRequest(r)
	if !ok {
		http.Error(w, "invalid train number", http.StatusBadRequest)
		return
	}
	end := time.Now()
	start := end.Add(-24 * time.Hour)
	var err error
	if value := r.FormValue("start"); value != "" {
		if start, err = time.Parse(time.RFC3339, value); err != nil {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
	}
	if value := r.FormValue("end"); value != "" {
		if end, err = time.Parse(time.RFC3339, value); err != nil {
			http.Error(w, "invalid end", http.StatusBadRequest)
			return
		}
	}
	records, err := rail.GetTimelineRecords(t.db, key, start, end)
	if err != nil {
		t.log.Printf("Error retrieving timelines for train %s: error:%v\n", key, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	t.writeJSON(w, records)
}

func (t *trainHandler) writeJSON(w http.ResponseWriter, value interface{}) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		t.log.Printf("Error marshaling response to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(jsonData)
	if err != nil {
		t.log.Printf("Error writing json response: %s", err)
	}
}

func trainKeyFromRequest(r *http.Request) (rail.TrainKey, bool) {
	vars := mux.Vars(r)
	trainNumber, err := strconv.Atoi(vars["trainNumber"])
	if err != nil {
		return rail.TrainKey{}, false
	}
	return rail.TrainKey{DepartureDate: vars["departureDate"], TrainNumber: trainNumber}, true
}

//createServer creates configured http.Server for responding to train requests
func createServer(log *logger.Logger,
	trains *trainCollection,
	meta *metadata,
	db *sqlx.DB,
	metrics *collector,
	httpPort int) *http.Server {

	handler := makeTrainHandler(log, trains, meta, db)

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.HandleFunc("/trains", handler.serveTrainList).Methods(http.MethodGet)
	r.HandleFunc("/trains/{departureDate}/{trainNumber}", handler.serveTrain).Methods(http.MethodGet)
	if db != nil {
		r.HandleFunc("/timelines/{departureDate}/{trainNumber}", handler.serveTimelines).Methods(http.MethodGet)
	}
	r.Handle("/metrics", metrics.handler())
	srv := &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

//runWebService starts up the train web service, and terminates on shutdown signal
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	trains *trainCollection,
	meta *metadata,
	db *sqlx.DB,
	metrics *collector,
	httpPort int,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	srv := createServer(log, trains, meta, db, metrics, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
