package interpreter

import (
	"testing"
	"time"

	"github.com/NotCoffee418/witmotion_logger/internal/witframes"
	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/NotCoffee418/witmotion_logger/pkg/witprotocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func decodeOne(t *testing.T, frame []byte) []witprotocol.RegisterUpdate {
	t.Helper()
	d := witprotocol.NewDecoder(witprotocol.ProtocolNormal, witprotocol.DefaultModbusAddress)
	updates := d.Feed(frame)
	require.NotEmpty(t, updates)
	return updates
}

func TestInterpretAcceleration(t *testing.T) {
	updates := decodeOne(t, witframes.Frame(witprotocol.TypeAcc, [4]int16{16384, -8192, 0, 3000}))

	fields := Interpret(&updates[0], testNow)

	assert.Equal(t, types.FieldUpdate{
		types.FieldAccX: "8.0000",
		types.FieldAccY: "-4.0000",
		types.FieldAccZ: "0.0000",
	}, fields)

	// The temperature register that follows is not a sample field.
	assert.Nil(t, Interpret(&updates[1], testNow))
}

func TestInterpretGyroAngleQuaternion(t *testing.T) {
	gyro := decodeOne(t, witframes.Frame(witprotocol.TypeGyro, [4]int16{16384, 0, -32768, 0}))
	assert.Equal(t, types.FieldUpdate{
		types.FieldGyroX: "1000.0000",
		types.FieldGyroY: "0.0000",
		types.FieldGyroZ: "-2000.0000",
	}, Interpret(&gyro[0], testNow))

	angle := decodeOne(t, witframes.Frame(witprotocol.TypeAngle, [4]int16{8192, 16384, -16384, 0}))
	assert.Equal(t, types.FieldUpdate{
		types.FieldRoll:  "45.0000",
		types.FieldPitch: "90.0000",
		types.FieldYaw:   "-90.0000",
	}, Interpret(&angle[0], testNow))

	quat := decodeOne(t, witframes.Frame(witprotocol.TypeQuaternion, [4]int16{32767, 0, 16384, -16384}))
	assert.Equal(t, types.FieldUpdate{
		types.FieldQX: "1.0000",
		types.FieldQY: "0.0000",
		types.FieldQZ: "0.5000",
		types.FieldQW: "-0.5000",
	}, Interpret(&quat[0], testNow))
}

func TestInterpretTime(t *testing.T) {
	updates := decodeOne(t, witframes.TimeFrame(24, 5, 17, 13, 45, 30, 250))

	fields := Interpret(&updates[0], testNow)

	assert.Equal(t, "24-05-17T13:45:30.250Z", fields[types.FieldTimestamp])
	assert.Equal(t, "2025-03-14T09:26:53.589Z", fields[types.FieldSystemTime])
	assert.Len(t, fields, 2)
}

func TestInterpretModbusBlock(t *testing.T) {
	d := witprotocol.NewDecoder(witprotocol.ProtocolModbus, 0x50)
	d.ReadRequest(witprotocol.RegYYMM, 16)
	block := make([]int16, 16)
	block[witprotocol.RegAX-witprotocol.RegYYMM] = 16384
	block[witprotocol.RegYaw-witprotocol.RegYYMM] = 16384

	updates := d.Feed(witframes.ModbusResponse(0x50, block))
	require.Len(t, updates, 1)

	fields := Interpret(&updates[0], testNow)

	// time, acc, gyro and angle groups all close inside 0x30..0x3F
	assert.Len(t, fields, 11)
	assert.Equal(t, "8.0000", fields[types.FieldAccX])
	assert.Equal(t, "90.0000", fields[types.FieldYaw])
	assert.Equal(t, "00-00-00T00:00:00.000Z", fields[types.FieldTimestamp])
}

func TestInterpretPartialGroupIsIgnored(t *testing.T) {
	update := witprotocol.RegisterUpdate{BaseAddress: witprotocol.RegAX, Count: 2}

	assert.Nil(t, Interpret(&update, testNow))
}
