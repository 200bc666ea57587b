// Package assembler coalesces partial field updates into completed samples.
package assembler

import (
	"math/bits"

	"github.com/NotCoffee418/witmotion_logger/pkg/types"
)

const allPresent = uint16(1)<<types.FieldCount - 1

// Accumulator is an in-progress sample. It is a value: Merge and
// DrainIfComplete return a new Accumulator and leave the receiver untouched.
type Accumulator struct {
	values  [types.FieldCount]string
	present uint16

	// fields written again before the sample completed, over the whole session
	overwrites uint64
}

// Merge applies an update. Last write wins per field; names outside the
// canonical set are ignored.
func (a Accumulator) Merge(update types.FieldUpdate) Accumulator {
	for name, value := range update {
		i, ok := types.FieldIndex(name)
		if !ok {
			continue
		}
		bit := uint16(1) << i
		if a.present&bit != 0 {
			a.overwrites++
		}
		a.values[i] = value
		a.present |= bit
	}
	return a
}

// IsComplete reports whether every canonical field is present.
func (a Accumulator) IsComplete() bool {
	return a.present == allPresent
}

// DrainIfComplete returns an empty accumulator and the completed sample when
// all fields are present. Otherwise it returns the receiver unchanged and false.
func (a Accumulator) DrainIfComplete() (Accumulator, *types.Sample, bool) {
	if !a.IsComplete() {
		return a, nil, false
	}
	sample := types.SampleFromValues(a.values)
	return Accumulator{overwrites: a.overwrites}, sample, true
}

// Len is the number of fields present.
func (a Accumulator) Len() int {
	return bits.OnesCount16(a.present)
}

func (a Accumulator) Get(name string) (string, bool) {
	i, ok := types.FieldIndex(name)
	if !ok || a.present&(uint16(1)<<i) == 0 {
		return "", false
	}
	return a.values[i], true
}

func (a Accumulator) Overwrites() uint64 {
	return a.overwrites
}
