package sampledb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/NotCoffee418/witmotion_logger/pkg/witutils"
)

// Column per canonical field, same order as types.FieldOrder.
var sampleColumns = [types.FieldCount]string{
	"system_time", "device_time",
	"acc_x", "acc_y", "acc_z",
	"gyro_x", "gyro_y", "gyro_z",
	"roll", "pitch", "yaw",
	"q_x", "q_y", "q_z", "q_w",
}

var insertSampleQuery = "INSERT INTO samples (received_at, " +
	strings.Join(sampleColumns[:], ", ") +
	") VALUES (?" + strings.Repeat(", ?", types.FieldCount) + ")"

func (s *SampleDB) InsertSample(sample *types.Sample, receivedAt time.Time) error {
	args := make([]any, 0, types.FieldCount+1)
	args = append(args, receivedAt.UnixMilli())
	for _, name := range types.FieldOrder {
		value := sample.Get(name)
		if types.IsTextField(name) {
			args = append(args, value)
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		args = append(args, f)
	}

	_, err := s.db.Exec(insertSampleQuery, args...)
	return err
}

func (s *SampleDB) CountSamples() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&n)
	return n, err
}

// LatestSamples returns up to limit samples, newest first.
func (s *SampleDB) LatestSamples(limit int) ([]*types.Sample, error) {
	rows, err := s.db.Query(
		"SELECT "+strings.Join(sampleColumns[:], ", ")+
			" FROM samples ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*types.Sample
	for rows.Next() {
		var systemTime, deviceTime string
		var numbers [types.FieldCount - 2]float64
		dest := []any{&systemTime, &deviceTime}
		for i := range numbers {
			dest = append(dest, &numbers[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		var values [types.FieldCount]string
		values[0], values[1] = systemTime, deviceTime
		for i, f := range numbers {
			values[i+2] = witutils.FormatFixed(f)
		}
		samples = append(samples, types.SampleFromValues(values))
	}
	return samples, rows.Err()
}
