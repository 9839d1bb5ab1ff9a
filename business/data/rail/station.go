package rail

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Station contains station metadata
type Station struct {
	StationCode string  `db:"station_code" json:"station_code" yaml:"code" validate:"required"`
	Name        string  `db:"name" json:"name" yaml:"name"`
	Latitude    float64 `db:"latitude" json:"latitude" yaml:"latitude" validate:"latitude"`
	Longitude   float64 `db:"longitude" json:"longitude" yaml:"longitude" validate:"longitude"`
	Passenger   bool    `db:"passenger" json:"passenger" yaml:"passenger"`
}

// Coordinates returns the station position
func (s *Station) Coordinates() Coordinates {
	return Coordinates{Latitude: s.Latitude, Longitude: s.Longitude}
}

// GetStations retrieves all stations
func GetStations(db *sqlx.DB) ([]Station, error) {
	query := "select station_code, name, latitude, longitude, passenger from station order by station_code"
	var results []Station
	err := db.Select(&results, query)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve stations: %w", err)
	}
	return results, nil
}

// RecordStations upserts stations in batch
func RecordStations(db *sqlx.DB, stations []Station) error {
	if len(stations) == 0 {
		return nil
	}
	statementString := "insert into station (station_code, name, latitude, longitude, passenger) " +
		"values (:station_code, :name, :latitude, :longitude, :passenger) " +
		"on conflict (station_code) do update set " +
		"name = excluded.name, " +
		"latitude = excluded.latitude, " +
		"longitude = excluded.longitude, " +
		"passenger = excluded.passenger"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, stations)
	return err
}
