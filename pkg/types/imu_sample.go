package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	FieldSystemTime = "system_time"
	FieldTimestamp  = "timestamp"
	FieldAccX       = "accX"
	FieldAccY       = "accY"
	FieldAccZ       = "accZ"
	FieldGyroX      = "gyroX"
	FieldGyroY      = "gyroY"
	FieldGyroZ      = "gyroZ"
	FieldRoll       = "roll"
	FieldPitch      = "pitch"
	FieldYaw        = "yaw"
	FieldQX         = "qX"
	FieldQY         = "qY"
	FieldQZ         = "qZ"
	FieldQW         = "qW"
)

// FieldCount is the number of canonical fields in a complete sample.
const FieldCount = 15

// Column order of every serialized sample. Do not reorder.
var FieldOrder = [FieldCount]string{
	FieldSystemTime, FieldTimestamp,
	FieldAccX, FieldAccY, FieldAccZ,
	FieldGyroX, FieldGyroY, FieldGyroZ,
	FieldRoll, FieldPitch, FieldYaw,
	FieldQX, FieldQY, FieldQZ, FieldQW,
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, FieldCount)
	for i, name := range FieldOrder {
		m[name] = i
	}
	return m
}()

// FieldIndex returns the canonical position of a field name.
func FieldIndex(name string) (int, bool) {
	i, ok := fieldIndex[name]
	return i, ok
}

// IsTextField reports whether the field holds free text rather than a fixed 4-decimal number.
func IsTextField(name string) bool {
	return name == FieldSystemTime || name == FieldTimestamp
}

// CSVHeader is the header row of a recording file.
func CSVHeader() string {
	return strings.Join(FieldOrder[:], ",")
}

// FieldUpdate holds formatted values for the fields touched by one register update.
type FieldUpdate map[string]string

// Sample is a completed IMU sample. It is never mutated after creation.
type Sample struct {
	values [FieldCount]string
}

// NewSample builds a sample from a value per canonical field.
func NewSample(values map[string]string) (*Sample, error) {
	s := &Sample{}
	for i, name := range FieldOrder {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("sample is missing field %q", name)
		}
		s.values[i] = v
	}
	return s, nil
}

// SampleFromValues copies values given in canonical order.
func SampleFromValues(values [FieldCount]string) *Sample {
	return &Sample{values: values}
}

// Get returns the formatted value of a canonical field.
func (s *Sample) Get(name string) string {
	if i, ok := fieldIndex[name]; ok {
		return s.values[i]
	}
	return ""
}

// Values returns the field values in canonical order.
func (s *Sample) Values() []string {
	out := make([]string, FieldCount)
	copy(out, s.values[:])
	return out
}

func (s *Sample) ToCSVRow() string {
	return strings.Join(s.values[:], ",")
}

func (s *Sample) ToJsonBytes() []byte {
	m := make(map[string]string, FieldCount)
	for i, name := range FieldOrder {
		m[name] = s.values[i]
	}
	data, _ := json.Marshal(m)
	return data
}

// Returns nil when the payload is not a complete sample.
func SampleFromJsonBytes(data []byte) *Sample {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	s, err := NewSample(m)
	if err != nil {
		return nil
	}
	return s
}
