package witprotocol

// Register addresses of the WIT register map. Each register is a signed 16-bit word.
const (
	RegVersion  uint16 = 0x2E
	RegYYMM     uint16 = 0x30
	RegDDHH     uint16 = 0x31
	RegHHMM     uint16 = 0x32
	RegMS       uint16 = 0x33
	RegAX       uint16 = 0x34
	RegAY       uint16 = 0x35
	RegAZ       uint16 = 0x36
	RegGX       uint16 = 0x37
	RegGY       uint16 = 0x38
	RegGZ       uint16 = 0x39
	RegHX       uint16 = 0x3A
	RegHY       uint16 = 0x3B
	RegHZ       uint16 = 0x3C
	RegRoll     uint16 = 0x3D
	RegPitch    uint16 = 0x3E
	RegYaw      uint16 = 0x3F
	RegTemp     uint16 = 0x40
	RegD0Status uint16 = 0x41
	RegPressure uint16 = 0x45
	RegLonL     uint16 = 0x49
	RegGPSHgt   uint16 = 0x4D
	RegQ0       uint16 = 0x51
	RegQ1       uint16 = 0x52
	RegQ2       uint16 = 0x53
	RegQ3       uint16 = 0x54
	RegSVNum    uint16 = 0x55

	RegisterCount = 0x90
)

// Packet types of the normal protocol.
const (
	TypeTime       byte = 0x50
	TypeAcc        byte = 0x51
	TypeGyro       byte = 0x52
	TypeAngle      byte = 0x53
	TypeMagnetic   byte = 0x54
	TypePortStatus byte = 0x55
	TypePressure   byte = 0x56
	TypeGPS        byte = 0x57
	TypeVelocity   byte = 0x58
	TypeQuaternion byte = 0x59
	TypeGSA        byte = 0x5A
	TypeRegValue   byte = 0x5F
)

// RegisterBank is the decoder's copy of the device register map.
type RegisterBank [RegisterCount]int16

// RegisterUpdate describes the register range written by one validated frame.
type RegisterUpdate struct {
	BaseAddress uint16
	Count       uint16
	// Registers is the bank as it was right after the frame was applied.
	Registers RegisterBank
}

// Value returns a register from the snapshot, or 0 when out of range.
func (u *RegisterUpdate) Value(addr uint16) int16 {
	if int(addr) >= RegisterCount {
		return 0
	}
	return u.Registers[addr]
}
