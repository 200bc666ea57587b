package aggregator

import (
	"fmt"
	"time"
)

type Timeframe int

const (
	TimeframeMinute Timeframe = iota
	TimeframeHour
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeMinute:
		return "minute"
	case TimeframeHour:
		return "hour"
	default:
		return "unknown"
	}
}

func ParseTimeframe(s string) (Timeframe, error) {
	switch s {
	case "", "minute":
		return TimeframeMinute, nil
	case "hour":
		return TimeframeHour, nil
	default:
		return 0, fmt.Errorf("unknown timeframe %q", s)
	}
}

func (t Timeframe) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Start returns the Unix timestamp of the timeframe containing at.
func (t Timeframe) Start(at time.Time) int64 {
	if t == TimeframeHour {
		return roundToHourStart(at)
	}
	return roundToMinuteStart(at)
}

// Duration is the length of the timeframe.
func (t Timeframe) Duration() time.Duration {
	if t == TimeframeHour {
		return time.Hour
	}
	return time.Minute
}

// Summary holds the mean motion values of the samples received in one timeframe.
type Summary struct {
	Timeframe   Timeframe `json:"timeframe"`
	StartTime   int64     `json:"start_time"` // unix seconds
	SampleCount uint32    `json:"sample_count"`

	AvgAccX  float64 `json:"avg_acc_x"`
	AvgAccY  float64 `json:"avg_acc_y"`
	AvgAccZ  float64 `json:"avg_acc_z"`
	AvgGyroX float64 `json:"avg_gyro_x"`
	AvgGyroY float64 `json:"avg_gyro_y"`
	AvgGyroZ float64 `json:"avg_gyro_z"`
	AvgRoll  float64 `json:"avg_roll"`
	AvgPitch float64 `json:"avg_pitch"`
	AvgYaw   float64 `json:"avg_yaw"`
}
