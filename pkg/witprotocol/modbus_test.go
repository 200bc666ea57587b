package witprotocol

import (
	"testing"

	"github.com/NotCoffee418/witmotion_logger/internal/witframes"
	"github.com/sigurn/crc16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestLayout(t *testing.T) {
	d := NewDecoder(ProtocolModbus, 0x50)

	req := d.ReadRequest(RegYYMM, 16)

	require.Len(t, req, 8)
	assert.Equal(t, []byte{0x50, 0x03, 0x00, 0x30, 0x00, 0x10}, req[:6])
	crc := crc16.Checksum(req[:6], crc16.MakeTable(crc16.CRC16_MODBUS))
	assert.Equal(t, byte(crc), req[6])
	assert.Equal(t, byte(crc>>8), req[7])
}

func TestModbusResponseUsesRequestedBase(t *testing.T) {
	d := NewDecoder(ProtocolModbus, 0x50)
	d.ReadRequest(RegAX, 3)

	updates := d.Feed(witframes.ModbusResponse(0x50, []int16{16384, 0, -1}))

	require.Len(t, updates, 1)
	assert.Equal(t, RegAX, updates[0].BaseAddress)
	assert.Equal(t, uint16(3), updates[0].Count)
	assert.Equal(t, int16(16384), updates[0].Value(RegAX))
	assert.Equal(t, int16(-1), updates[0].Value(RegAZ))
}

func TestModbusBadCRCIsDropped(t *testing.T) {
	d := NewDecoder(ProtocolModbus, 0x50)
	d.ReadRequest(RegQ0, 4)
	frame := witframes.ModbusResponse(0x50, []int16{1, 2, 3, 4})
	frame[len(frame)-1] ^= 0xA5

	assert.Empty(t, d.Feed(frame))
	assert.Equal(t, uint64(1), d.Stats().FramesDropped)

	updates := d.Feed(witframes.ModbusResponse(0x50, []int16{1, 2, 3, 4}))
	require.Len(t, updates, 1)
	assert.Equal(t, int16(4), updates[0].Value(RegQ3))
}

func TestModbusIgnoresOtherAddresses(t *testing.T) {
	d := NewDecoder(ProtocolModbus, 0x50)
	d.ReadRequest(RegGX, 3)

	assert.Empty(t, d.Feed(witframes.ModbusResponse(0x51, []int16{1, 2, 3})))
}

func TestModbusReplyOfWrongSizeIsDropped(t *testing.T) {
	d := NewDecoder(ProtocolModbus, 0x50)
	d.ReadRequest(RegYYMM, 16)
	d.ReadRequest(RegQ0, 4)

	late := make([]int16, 16)
	for i := range late {
		late[i] = int16(1000 + i)
	}
	assert.Empty(t, d.Feed(witframes.ModbusResponse(0x50, late)))
	assert.Equal(t, uint64(1), d.Stats().FramesDropped)
	assert.Equal(t, uint64(0), d.Stats().FramesDecoded)

	updates := d.Feed(witframes.ModbusResponse(0x50, []int16{1, 2, 3, 4}))
	require.Len(t, updates, 1)
	assert.Equal(t, RegQ0, updates[0].BaseAddress)
	assert.Equal(t, uint16(4), updates[0].Count)
	assert.Equal(t, int16(1), updates[0].Value(RegQ0))
	assert.Equal(t, int16(4), updates[0].Value(RegQ3))
}

func TestModbusReplyBeforeAnyRequestIsDropped(t *testing.T) {
	d := NewDecoder(ProtocolModbus, 0x50)

	assert.Empty(t, d.Feed(witframes.ModbusResponse(0x50, []int16{1, 2, 3, 4})))
	assert.Equal(t, uint64(1), d.Stats().FramesDropped)
}
