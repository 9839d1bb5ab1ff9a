package monitor

import (
	"fmt"
	logger "log"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/terolaakso/sepelinpotkija-sub000/business/data/rail"
	"gopkg.in/yaml.v3"
)

type causeKey struct {
	level rail.CauseLevel
	id    int
}

// metadata caches station and cause category tables. Implements timetable.StationLookup and
// timetable.CauseLookup
type metadata struct {
	mu       sync.RWMutex
	stations map[string]rail.Station
	causes   map[causeKey]rail.CauseCategory
}

// makeMetadata creates an empty metadata cache
func makeMetadata() *metadata {
	return &metadata{
		stations: make(map[string]rail.Station),
		causes:   make(map[causeKey]rail.CauseCategory),
	}
}

// StationCoordinates returns the coordinates of stationCode
func (m *metadata) StationCoordinates(stationCode string) (rail.Coordinates, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	station, present := m.stations[stationCode]
	if !present {
		return rail.Coordinates{}, false
	}
	return station.Coordinates(), true
}

// CauseCategoryName returns the name of the cause category id at level
func (m *metadata) CauseCategoryName(level rail.CauseLevel, id int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	category, present := m.causes[causeKey{level: level, id: id}]
	if !present {
		return "", false
	}
	return category.Name, true
}

// stationName returns the name of stationCode, or the code itself when unknown
func (m *metadata) stationName(stationCode string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if station, present := m.stations[stationCode]; present && station.Name != "" {
		return station.Name
	}
	return stationCode
}

// replace swaps in new tables, returns the resulting sizes
func (m *metadata) replace(snapshot *metadataSnapshot) (stations int, causes int) {
	newStations := make(map[string]rail.Station, len(snapshot.Stations))
	for _, s := range snapshot.Stations {
		newStations[s.StationCode] = s
	}
	newCauses := make(map[causeKey]rail.CauseCategory, len(snapshot.CauseCategories))
	for _, c := range snapshot.CauseCategories {
		newCauses[causeKey{level: c.Level, id: c.Id}] = c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations = newStations
	m.causes = newCauses
	return len(m.stations), len(m.causes)
}

// metadataSnapshot is the full content of the station and cause category tables
type metadataSnapshot struct {
	Stations        []rail.Station       `yaml:"stations" validate:"dive"`
	CauseCategories []rail.CauseCategory `yaml:"causeCategories" validate:"dive"`
}

// metadataLoader retrieves a fresh metadataSnapshot
type metadataLoader func() (*metadataSnapshot, error)

// makeFileMetadataLoader returns metadataLoader reading a yaml snapshot from path
func makeFileMetadataLoader(path string) metadataLoader {
	return func() (*metadataSnapshot, error) {
		return readMetadataFile(path)
	}
}

// makeDatabaseMetadataLoader returns metadataLoader querying the station and cause_category tables
func makeDatabaseMetadataLoader(db *sqlx.DB) metadataLoader {
	return func() (*metadataSnapshot, error) {
		stations, err := rail.GetStations(db)
		if err != nil {
			return nil, err
		}
		categories, err := rail.GetCauseCategories(db)
		if err != nil {
			return nil, err
		}
		return &metadataSnapshot{Stations: stations, CauseCategories: categories}, nil
	}
}

// readMetadataFile loads and validates a yaml metadata snapshot
func readMetadataFile(path string) (*metadataSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file %s: %w", path, err)
	}
	var snapshot metadataSnapshot
	if err = yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing metadata file %s: %w", path, err)
	}
	if err = validator.New().Struct(snapshot); err != nil {
		return nil, fmt.Errorf("validating metadata file %s: %w", path, err)
	}
	return &snapshot, nil
}

// refreshMetadata loads a snapshot into the cache. The previous tables are kept when loading fails
func refreshMetadata(log *logger.Logger, cache *metadata, load metadataLoader, metrics *collector) error {
	snapshot, err := load()
	if err != nil {
		metrics.FeedFetchErrors.WithLabelValues("metadata").Inc()
		return fmt.Errorf("unable to refresh metadata: %w", err)
	}
	stations, causes := cache.replace(snapshot)
	metrics.Stations.Set(float64(stations))
	metrics.CauseCategories.Set(float64(causes))
	log.Printf("metadata refreshed with %d stations and %d cause categories", stations, causes)
	return nil
}

// runMetadataLoop refreshes the metadata cache every refreshSeconds until shutdownSignal
func runMetadataLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	cache *metadata,
	load metadataLoader,
	metrics *collector,
	refreshSeconds int,
	shutdownSignal chan bool) {
	defer wg.Done()

	sleepChan := make(chan bool, 1)
	sleep := time.Duration(refreshSeconds) * time.Second

	for {
		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting metadata loop on shutdown signal")
			return
		case <-sleepChan:
		}

		if err := refreshMetadata(log, cache, load, metrics); err != nil {
			log.Printf("%v", err)
		}
	}
}

// ImportMetadataFile validates a yaml metadata snapshot and stores it into the station and cause_category tables
func ImportMetadataFile(log *logger.Logger, db *sqlx.DB, path string) error {
	snapshot, err := readMetadataFile(path)
	if err != nil {
		return err
	}
	if err = rail.RecordStations(db, snapshot.Stations); err != nil {
		return fmt.Errorf("importing stations: %w", err)
	}
	if err = rail.RecordCauseCategories(db, snapshot.CauseCategories); err != nil {
		return fmt.Errorf("importing cause categories: %w", err)
	}
	log.Printf("imported %d stations and %d cause categories from %s", len(snapshot.Stations),
		len(snapshot.CauseCategories), path)
	return nil
}
