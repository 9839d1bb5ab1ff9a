package rail

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/terolaakso/sepelinpotkija-sub000/foundation/database"
)

// TimelineRecord is one row of a recorded train timeline snapshot.
// primary key consists of SnapshotId and RowIndex
type TimelineRecord struct {
	SnapshotId          string    `db:"snapshot_id" json:"snapshot_id"`
	RecordedAt          time.Time `db:"recorded_at" json:"recorded_at"`
	DepartureDate       string    `db:"departure_date" json:"departure_date"`
	TrainNumber         int       `db:"train_number" json:"train_number"`
	Version             int64     `db:"version" json:"version"`
	RowIndex            int       `db:"row_index" json:"row_index"`
	StationCode         string    `db:"station_code" json:"station_code"`
	RowType             RowType   `db:"row_type" json:"row_type"`
	ScheduledTime       time.Time `db:"scheduled_time" json:"scheduled_time"`
	BestTime            time.Time `db:"best_time" json:"best_time"`
	TimeType            TimeType  `db:"time_type" json:"time_type"`
	DifferenceInMinutes int       `db:"difference_in_minutes" json:"difference_in_minutes"`
}

// MakeTimelineRecords flattens train rows into TimelineRecords sharing snapshotId
func MakeTimelineRecords(snapshotId string, recordedAt time.Time, train *Train) []*TimelineRecord {
	results := make([]*TimelineRecord, 0, len(train.Rows))
	for i, row := range train.Rows {
		results = append(results, &TimelineRecord{
			SnapshotId:          snapshotId,
			RecordedAt:          recordedAt,
			DepartureDate:       train.DepartureDate,
			TrainNumber:         train.TrainNumber,
			Version:             train.Version,
			RowIndex:            i,
			StationCode:         row.StationCode,
			RowType:             row.Type,
			ScheduledTime:       row.ScheduledTime,
			BestTime:            row.Time,
			TimeType:            row.TimeType,
			DifferenceInMinutes: row.DifferenceInMinutes,
		})
	}
	return results
}

// RecordTrainTimeline saves the rows of a train timeline snapshot into database in batch
func RecordTrainTimeline(records []*TimelineRecord, db *sqlx.DB) error {
	if len(records) == 0 {
		return nil
	}
	statementString := "insert into train_timeline (snapshot_id, recorded_at, " +
		"departure_date, " +
		"train_number, " +
		"version, " +
		"row_index, " +
		"station_code, " +
		"row_type, " +
		"scheduled_time, " +
		"best_time, " +
		"time_type, " +
		"difference_in_minutes) values " +
		"(:snapshot_id, :recorded_at, " +
		":departure_date, " +
		":train_number, " +
		":version, " +
		":row_index, " +
		":station_code, " +
		":row_type, " +
		":scheduled_time, " +
		":best_time, " +
		":time_type, " +
		":difference_in_minutes)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, records)
	return err
}

// GetTimelineRecords returns timeline rows recorded for a train between start and end, oldest snapshot first
func GetTimelineRecords(db *sqlx.DB,
	key TrainKey,
	start time.Time,
	end time.Time) ([]*TimelineRecord, error) {
	statementString := "select * from train_timeline where departure_date = :departure_date " +
		"and train_number = :train_number " +
		"and recorded_at between :start and :end " +
		"order by recorded_at, row_index"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"departure_date": key.DepartureDate,
		"train_number":   key.TrainNumber,
		"start":          start,
		"end":            end,
	})
	defer func() {
		if rows != nil {
			_ = rows.Close()
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve train_timeline rows, error: %w", err)
	}

	records := make([]*TimelineRecord, 0)
	for rows.Next() {
		record := TimelineRecord{}
		if err = rows.StructScan(&record); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
