package witprotocol

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
	log "github.com/sirupsen/logrus"
)

const (
	modbusFuncRead    byte = 0x03
	maxModbusFrameLen      = 5 + 2*maxModbusReadCount
	maxModbusReadCount     = 0x7D
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// ReadRequest builds a read-holding-registers request. The response carries
// no register address, so the decoder remembers reg as the base of the next
// reply. Replies of a different size than count are dropped.
func (d *Decoder) ReadRequest(reg, count uint16) []byte {
	if count > maxModbusReadCount {
		count = maxModbusReadCount
	}
	d.pending.Store(uint32(reg)<<16 | uint32(count))

	req := make([]byte, 8)
	req[0] = d.address
	req[1] = modbusFuncRead
	binary.BigEndian.PutUint16(req[2:], reg)
	binary.BigEndian.PutUint16(req[4:], count)
	binary.LittleEndian.PutUint16(req[6:], crc16.Checksum(req[:6], modbusTable))
	return req
}

func (d *Decoder) pendingRead() (reg, count uint16) {
	v := d.pending.Load()
	return uint16(v >> 16), uint16(v)
}

func (d *Decoder) scanModbus() []RegisterUpdate {
	var updates []RegisterUpdate
	for len(d.buf) > 0 {
		if d.buf[0] != d.address {
			d.shift(1)
			continue
		}
		if len(d.buf) < 3 {
			return updates
		}
		if d.buf[1] != modbusFuncRead {
			d.dropped++
			d.shift(1)
			continue
		}

		byteCount := int(d.buf[2])
		if byteCount == 0 || byteCount%2 != 0 || byteCount > 2*maxModbusReadCount {
			d.dropped++
			d.shift(1)
			continue
		}
		frameLen := byteCount + 5
		if len(d.buf) < frameLen {
			return updates
		}

		frame := d.buf[:frameLen]
		got := binary.LittleEndian.Uint16(frame[frameLen-2:])
		if want := crc16.Checksum(frame[:frameLen-2], modbusTable); got != want {
			log.Debugf("wit modbus crc error: frame:0x%04X calculate:0x%04X len:%d", got, want, frameLen)
			d.dropped++
			d.shift(1)
			continue
		}

		base, count := d.pendingRead()
		if byteCount != 2*int(count) {
			// Late reply to an earlier request
			log.Debugf("wit modbus reply of %d registers, expected %d at 0x%02X", byteCount/2, count, base)
			d.dropped++
			d.shift(frameLen)
			continue
		}

		values := make([]int16, count)
		for i := range values {
			values[i] = int16(binary.BigEndian.Uint16(frame[3+2*i:]))
		}
		if u, ok := d.store(base, values); ok {
			updates = append(updates, u)
		}
		d.decoded++
		d.shift(frameLen)
	}
	return updates
}
