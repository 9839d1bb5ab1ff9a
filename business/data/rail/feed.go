package rail

import (
	"fmt"
	"time"
)

// RawTrain is a train as published by the upstream timetable feed
type RawTrain struct {
	TrainNumber    int               `json:"trainNumber"`
	DepartureDate  string            `json:"departureDate"`
	TrainType      string            `json:"trainType"`
	CommuterLineId string            `json:"commuterLineID"`
	Cancelled      bool              `json:"cancelled"`
	Version        int64             `json:"version"`
	TimetableRows  []RawTimetableRow `json:"timeTableRows"`
}

// RawTimetableRow is a single arrival or departure from the upstream feed.
// Optional timestamps are pointers and will be nil if they were not present in the feed
type RawTimetableRow struct {
	StationShortCode string         `json:"stationShortCode"`
	Type             string         `json:"type"`
	TrainStopping    bool           `json:"trainStopping"`
	CommercialStop   *bool          `json:"commercialStop"`
	CommercialTrack  string         `json:"commercialTrack"`
	Cancelled        bool           `json:"cancelled"`
	ScheduledTime    string         `json:"scheduledTime"`
	LiveEstimateTime *string        `json:"liveEstimateTime"`
	ActualTime       *string        `json:"actualTime"`
	TrainReady       *RawTrainReady `json:"trainReady"`
	Causes           []RawCause     `json:"causes"`
}

// RawTrainReady is the departure clearance given to a train
type RawTrainReady struct {
	Accepted  bool   `json:"accepted"`
	Timestamp string `json:"timestamp"`
}

// RawCause is a delay cause attached to a row by the upstream feed
type RawCause struct {
	CategoryCode           string `json:"categoryCode"`
	CategoryCodeId         int    `json:"categoryCodeId"`
	DetailedCategoryCode   string `json:"detailedCategoryCode"`
	DetailedCategoryCodeId *int   `json:"detailedCategoryCodeId"`
	ThirdCategoryCode      string `json:"thirdCategoryCode"`
	ThirdCategoryCodeId    *int   `json:"thirdCategoryCodeId"`
}

// RawTrainLocation is a GPS fix pushed by the upstream location feed
type RawTrainLocation struct {
	TrainNumber   int        `json:"trainNumber"`
	DepartureDate string     `json:"departureDate"`
	Timestamp     string     `json:"timestamp"`
	Location      RawGeoJson `json:"location"`
	Speed         int        `json:"speed"`
}

// RawGeoJson is a GeoJSON point, coordinates are longitude first
type RawGeoJson struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// ToTrainLocation converts RawTrainLocation, returns error if timestamp or coordinates are malformed
func (r *RawTrainLocation) ToTrainLocation() (*TrainLocation, error) {
	timestamp, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("unable to parse location timestamp %q for train %d: %w",
			r.Timestamp, r.TrainNumber, err)
	}
	if len(r.Location.Coordinates) < 2 {
		return nil, fmt.Errorf("location for train %d has %d coordinates, expected 2",
			r.TrainNumber, len(r.Location.Coordinates))
	}
	return &TrainLocation{
		TrainNumber:   r.TrainNumber,
		DepartureDate: r.DepartureDate,
		Timestamp:     timestamp,
		Location: Coordinates{
			Latitude:  r.Location.Coordinates[1],
			Longitude: r.Location.Coordinates[0],
		},
		Speed: r.Speed,
	}, nil
}
