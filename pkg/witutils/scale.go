package witutils

import "strconv"

// Full-scale ranges of the sensor's fixed-point registers.
const (
	AccRangeG       = 16.0
	GyroRangeDegS   = 2000.0
	AngleRangeDeg   = 180.0
	QuaternionRange = 1.0
)

// Raw register value to g
func RawToAcc(raw int16) float64 {
	return scale(raw, AccRangeG)
}

// Raw register value to deg/s
func RawToGyro(raw int16) float64 {
	return scale(raw, GyroRangeDegS)
}

// Raw register value to degrees
func RawToAngle(raw int16) float64 {
	return scale(raw, AngleRangeDeg)
}

func RawToQuaternion(raw int16) float64 {
	return scale(raw, QuaternionRange)
}

func scale(raw int16, fullScale float64) float64 {
	return float64(raw) / 32768.0 * fullScale
}

// FormatFixed renders a measurement the way it is stored and streamed: 4 decimals.
func FormatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
