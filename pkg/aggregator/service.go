// Package aggregator condenses stored samples into per-minute and per-hour means.
package aggregator

import (
	"database/sql"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// roundToMinuteStart returns the Unix timestamp of the start of the minute for the given time
func roundToMinuteStart(t time.Time) int64 {
	return t.UTC().Truncate(time.Minute).Unix()
}

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}

// getEnd returns the Unix timestamp of the next timeframe start
func getEnd(tf Timeframe, start int64) int64 {
	return start + int64(tf.Duration()/time.Second)
}

// Aggregate computes the summary of one timeframe and stores it.
// Timeframes without samples are not stored.
func Aggregate(db *sql.DB, tf Timeframe, start int64) error {
	end := getEnd(tf, start)

	// received_at is stored in milliseconds
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(acc_x), 0), COALESCE(AVG(acc_y), 0), COALESCE(AVG(acc_z), 0),
			COALESCE(AVG(gyro_x), 0), COALESCE(AVG(gyro_y), 0), COALESCE(AVG(gyro_z), 0),
			COALESCE(AVG(roll), 0), COALESCE(AVG(pitch), 0), COALESCE(AVG(yaw), 0)
		FROM samples
		WHERE received_at >= ? AND received_at < ?
	`

	s := Summary{Timeframe: tf, StartTime: start}
	err := db.QueryRow(query, start*1000, end*1000).Scan(
		&s.SampleCount,
		&s.AvgAccX, &s.AvgAccY, &s.AvgAccZ,
		&s.AvgGyroX, &s.AvgGyroY, &s.AvgGyroZ,
		&s.AvgRoll, &s.AvgPitch, &s.AvgYaw,
	)
	if err != nil {
		return err
	}

	// Only insert if we have data
	if s.SampleCount == 0 {
		return nil
	}

	insertQuery := `
		INSERT OR REPLACE INTO sample_summary
		(timeframe, start_time, sample_count,
		 avg_acc_x, avg_acc_y, avg_acc_z,
		 avg_gyro_x, avg_gyro_y, avg_gyro_z,
		 avg_roll, avg_pitch, avg_yaw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.Exec(insertQuery,
		int(tf), s.StartTime, s.SampleCount,
		s.AvgAccX, s.AvgAccY, s.AvgAccZ,
		s.AvgGyroX, s.AvgGyroY, s.AvgGyroZ,
		s.AvgRoll, s.AvgPitch, s.AvgYaw,
	)
	return err
}

// AggregateCompleted refreshes the previous minute and the previous and current hour.
// Safe to call repeatedly, summaries are replaced.
func AggregateCompleted(db *sql.DB, now time.Time) error {
	minuteStart := roundToMinuteStart(now.Add(-time.Minute))
	if err := Aggregate(db, TimeframeMinute, minuteStart); err != nil {
		return err
	}

	hourStart := roundToHourStart(now)
	for _, start := range []int64{hourStart - int64(time.Hour/time.Second), hourStart} {
		if err := Aggregate(db, TimeframeHour, start); err != nil {
			return err
		}
	}
	return nil
}

// GetSummary returns the stored summary, or nil when the timeframe had no samples.
func GetSummary(db *sql.DB, tf Timeframe, start int64) (*Summary, error) {
	query := `
		SELECT sample_count,
			avg_acc_x, avg_acc_y, avg_acc_z,
			avg_gyro_x, avg_gyro_y, avg_gyro_z,
			avg_roll, avg_pitch, avg_yaw
		FROM sample_summary
		WHERE timeframe = ? AND start_time = ?
	`
	s := Summary{Timeframe: tf, StartTime: start}
	err := db.QueryRow(query, int(tf), start).Scan(
		&s.SampleCount,
		&s.AvgAccX, &s.AvgAccY, &s.AvgAccZ,
		&s.AvgGyroX, &s.AvgGyroY, &s.AvgGyroZ,
		&s.AvgRoll, &s.AvgPitch, &s.AvgYaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RunAggregator refreshes the summaries every interval until stop is closed.
func RunAggregator(db *sql.DB, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if err := AggregateCompleted(db, now); err != nil {
				log.Warnf("Failed to aggregate samples: %v", err)
			}
		}
	}
}
