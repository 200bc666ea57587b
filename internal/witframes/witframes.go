// Package witframes builds WitMotion frames the way the sensor sends them.
// It is used by tests to feed decoders and readers.
package witframes

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

const (
	header   byte = 0x55
	frameLen      = 11

	typeTime byte = 0x50
	funcRead byte = 0x03
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Frame builds a normal-protocol frame of the given type.
func Frame(typ byte, words [4]int16) []byte {
	frame := make([]byte, frameLen)
	frame[0] = header
	frame[1] = typ
	for i, w := range words {
		binary.LittleEndian.PutUint16(frame[2+2*i:], uint16(w))
	}
	var sum byte
	for _, b := range frame[:frameLen-1] {
		sum += b
	}
	frame[frameLen-1] = sum
	return frame
}

// TimeFrame packs a device clock reading into a time frame.
func TimeFrame(year, month, day, hour, minute, second byte, millis uint16) []byte {
	return Frame(typeTime, [4]int16{
		int16(uint16(month)<<8 | uint16(year)),
		int16(uint16(hour)<<8 | uint16(day)),
		int16(uint16(second)<<8 | uint16(minute)),
		int16(millis),
	})
}

// ModbusResponse builds a read-holding-registers reply.
func ModbusResponse(address byte, values []int16) []byte {
	frame := make([]byte, 3+2*len(values), 5+2*len(values))
	frame[0] = address
	frame[1] = funcRead
	frame[2] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(frame[3+2*i:], uint16(v))
	}
	return binary.LittleEndian.AppendUint16(frame, crc16.Checksum(frame, modbusTable))
}
