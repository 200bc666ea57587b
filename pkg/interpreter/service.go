// Package interpreter turns register updates into canonical sample fields.
package interpreter

import (
	"fmt"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/NotCoffee418/witmotion_logger/pkg/witprotocol"
	"github.com/NotCoffee418/witmotion_logger/pkg/witutils"
)

const SystemTimeLayout = "2006-01-02T15:04:05.000Z"

var (
	accFields   = [3]string{types.FieldAccX, types.FieldAccY, types.FieldAccZ}
	gyroFields  = [3]string{types.FieldGyroX, types.FieldGyroY, types.FieldGyroZ}
	angleFields = [3]string{types.FieldRoll, types.FieldPitch, types.FieldYaw}
	quatFields  = [4]string{types.FieldQX, types.FieldQY, types.FieldQZ, types.FieldQW}
)

// Interpret walks the updated register range and converts every completed
// register group into formatted fields. A group is read from the snapshot
// when the walk reaches its last register. now stamps system_time.
// Returns nil when the update touches no known group.
func Interpret(update *witprotocol.RegisterUpdate, now time.Time) types.FieldUpdate {
	var fields types.FieldUpdate
	set := func(name, value string) {
		if fields == nil {
			fields = make(types.FieldUpdate)
		}
		fields[name] = value
	}

	reg := update.BaseAddress
	for i := uint16(0); i < update.Count; i, reg = i+1, reg+1 {
		switch reg {
		case witprotocol.RegMS:
			set(types.FieldTimestamp, deviceTimestamp(update))
			set(types.FieldSystemTime, now.UTC().Format(SystemTimeLayout))

		case witprotocol.RegAZ:
			for j, name := range accFields {
				set(name, witutils.FormatFixed(witutils.RawToAcc(update.Value(witprotocol.RegAX+uint16(j)))))
			}

		case witprotocol.RegGZ:
			for j, name := range gyroFields {
				set(name, witutils.FormatFixed(witutils.RawToGyro(update.Value(witprotocol.RegGX+uint16(j)))))
			}

		case witprotocol.RegYaw:
			for j, name := range angleFields {
				set(name, witutils.FormatFixed(witutils.RawToAngle(update.Value(witprotocol.RegRoll+uint16(j)))))
			}

		case witprotocol.RegQ3:
			for j, name := range quatFields {
				set(name, witutils.FormatFixed(witutils.RawToQuaternion(update.Value(witprotocol.RegQ0+uint16(j)))))
			}
		}
	}
	return fields
}

// deviceTimestamp decodes the packed clock registers: low byte first in each word.
func deviceTimestamp(update *witprotocol.RegisterUpdate) string {
	yymm := uint16(update.Value(witprotocol.RegYYMM))
	ddhh := uint16(update.Value(witprotocol.RegDDHH))
	hhmm := uint16(update.Value(witprotocol.RegHHMM))
	ms := uint16(update.Value(witprotocol.RegMS))

	return fmt.Sprintf("%02d-%02d-%02dT%02d:%02d:%02d.%03dZ",
		yymm&0xff, yymm>>8,
		ddhh&0xff, ddhh>>8,
		hhmm&0xff, hhmm>>8,
		ms,
	)
}
