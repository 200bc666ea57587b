// Package witprotocol decodes the WitMotion serial protocol into register updates.
//
// A Decoder owns its register bank, so one instance serves exactly one device
// session and several devices can be decoded concurrently with one decoder each.
package witprotocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

type Protocol int

const (
	ProtocolNormal Protocol = iota
	ProtocolModbus
)

const (
	normalHeader   byte = 0x55
	normalFrameLen      = 11

	// Device address used by the sensor's factory configuration.
	DefaultModbusAddress byte = 0x50
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNormal:
		return "normal"
	case ProtocolModbus:
		return "modbus"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol maps a config value to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return ProtocolNormal, nil
	case "modbus":
		return ProtocolModbus, nil
	default:
		return 0, fmt.Errorf("unknown wit protocol %q", s)
	}
}

type Stats struct {
	FramesDecoded uint64
	FramesDropped uint64
}

type Decoder struct {
	protocol Protocol
	address  byte
	buf      []byte
	regs     RegisterBank

	// Register and count of the last ReadRequest, packed as reg<<16 | count.
	// Written by the poller, read by the feeding goroutine.
	pending atomic.Uint32

	decoded uint64
	dropped uint64
}

func NewDecoder(protocol Protocol, address byte) *Decoder {
	return &Decoder{
		protocol: protocol,
		address:  address,
		buf:      make([]byte, 0, maxModbusFrameLen),
	}
}

func (d *Decoder) Protocol() Protocol {
	return d.protocol
}

// Feed decodes a chunk of bytes and returns the register updates of every
// frame it completed, in arrival order. Partial frames are kept for the next call.
func (d *Decoder) Feed(data []byte) []RegisterUpdate {
	var updates []RegisterUpdate
	for _, b := range data {
		updates = append(updates, d.FeedByte(b)...)
	}
	return updates
}

// FeedByte decodes a single byte.
func (d *Decoder) FeedByte(b byte) []RegisterUpdate {
	d.buf = append(d.buf, b)
	if d.protocol == ProtocolModbus {
		return d.scanModbus()
	}
	return d.scanNormal()
}

func (d *Decoder) Stats() Stats {
	return Stats{FramesDecoded: d.decoded, FramesDropped: d.dropped}
}

func (d *Decoder) scanNormal() []RegisterUpdate {
	var updates []RegisterUpdate
	for {
		start := bytes.IndexByte(d.buf, normalHeader)
		if start < 0 {
			d.buf = d.buf[:0]
			return updates
		}
		d.shift(start)
		if len(d.buf) < normalFrameLen {
			return updates
		}

		frame := d.buf[:normalFrameLen]
		if sum := checksum(frame[:normalFrameLen-1]); sum != frame[normalFrameLen-1] {
			log.Debugf("wit checksum error: frame:0x%02X calculate:0x%02X type:0x%02X", frame[normalFrameLen-1], sum, frame[1])
			d.dropped++
			d.shift(1)
			continue
		}

		updates = append(updates, d.applyNormal(frame)...)
		d.decoded++
		d.shift(normalFrameLen)
	}
}

func (d *Decoder) applyNormal(frame []byte) []RegisterUpdate {
	var words [4]int16
	for i := range words {
		words[i] = int16(binary.LittleEndian.Uint16(frame[2+2*i:]))
	}

	var base, count, extraBase, extraCount uint16
	count = 4
	switch frame[1] {
	case TypeTime:
		base = RegYYMM
	case TypeAcc:
		base, count = RegAX, 3
		extraBase, extraCount = RegTemp, 1
	case TypeGyro:
		base, count = RegGX, 3
	case TypeAngle:
		base, count = RegRoll, 3
		extraBase, extraCount = RegVersion, 1
	case TypeMagnetic:
		base, count = RegHX, 3
	case TypePortStatus:
		base = RegD0Status
	case TypePressure:
		base = RegPressure
	case TypeGPS:
		base = RegLonL
	case TypeVelocity:
		base = RegGPSHgt
	case TypeQuaternion:
		base = RegQ0
	case TypeGSA:
		base = RegSVNum
	case TypeRegValue:
		base, _ = d.pendingRead()
	default:
		return nil
	}

	var updates []RegisterUpdate
	if u, ok := d.store(base, words[:count]); ok {
		updates = append(updates, u)
	}
	if extraCount > 0 {
		if u, ok := d.store(extraBase, words[3:3+extraCount]); ok {
			updates = append(updates, u)
		}
	}
	return updates
}

// store writes consecutive registers and snapshots the bank.
func (d *Decoder) store(base uint16, values []int16) (RegisterUpdate, bool) {
	if int(base)+len(values) > RegisterCount {
		return RegisterUpdate{}, false
	}
	copy(d.regs[base:], values)
	return RegisterUpdate{
		BaseAddress: base,
		Count:       uint16(len(values)),
		Registers:   d.regs,
	}, true
}

// shift drops the first n buffered bytes.
func (d *Decoder) shift(n int) {
	if n <= 0 {
		return
	}
	d.buf = append(d.buf[:0], d.buf[n:]...)
}

func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}
