package fm

// Channel counts.
const (
	NumHardwareChannels = 18
	NumSoftwareChannels = 12
)

// ChannelMapping describes one hardware channel.
type ChannelMapping struct {
	Hardware  int
	Software  int
	OP4Master bool
	OP4Slave  bool
}

// channelTable is indexed by hardware channel. Slaves report the software
// channel of their master since they never play on their own in song data.
var channelTable = [NumHardwareChannels]ChannelMapping{
	{Hardware: 0, Software: 0, OP4Master: true},
	{Hardware: 1, Software: 1, OP4Master: true},
	{Hardware: 2, Software: 2, OP4Master: true},
	{Hardware: 3, Software: 0, OP4Slave: true},
	{Hardware: 4, Software: 1, OP4Slave: true},
	{Hardware: 5, Software: 2, OP4Slave: true},
	{Hardware: 6, Software: 3},
	{Hardware: 7, Software: 4},
	{Hardware: 8, Software: 5},
	{Hardware: 9, Software: 6, OP4Master: true},
	{Hardware: 10, Software: 7, OP4Master: true},
	{Hardware: 11, Software: 8, OP4Master: true},
	{Hardware: 12, Software: 6, OP4Slave: true},
	{Hardware: 13, Software: 7, OP4Slave: true},
	{Hardware: 14, Software: 8, OP4Slave: true},
	{Hardware: 15, Software: 9},
	{Hardware: 16, Software: 10},
	{Hardware: 17, Software: 11},
}

// softwareToHardware is the reverse lookup for the 12 song channels.
var softwareToHardware = [NumSoftwareChannels]int{0, 1, 2, 6, 7, 8, 9, 10, 11, 15, 16, 17}

// operatorOffsets holds the modulator register offset of each channel within
// its bank. The carrier sits three slots higher.
var operatorOffsets = [9]uint16{0x00, 0x01, 0x02, 0x08, 0x09, 0x0A, 0x10, 0x11, 0x12}

// Mapping returns the table entry for a hardware channel.
func Mapping(hw int) (ChannelMapping, bool) {
	if hw < 0 || hw >= NumHardwareChannels {
		return ChannelMapping{}, false
	}
	return channelTable[hw], true
}

// isMaster reports whether hw can host a four-operator voice.
func isMaster(hw int) bool {
	m, ok := Mapping(hw)
	return ok && m.OP4Master
}

// fourOpBit returns the bit index of hw inside register 0x104.
func fourOpBit(hw int) (uint8, bool) {
	switch hw {
	case 0, 1, 2:
		return uint8(hw), true
	case 9, 10, 11:
		return uint8(hw - 6), true
	}
	return 0, false
}

// bankBase returns 0x000 or 0x100 for the bank holding hw.
func bankBase(hw int) uint16 {
	if hw >= 9 {
		return 0x100
	}
	return 0
}

// channelReg returns the register for a channel-group base (0xA0, 0xB0, 0xC0).
func channelReg(hw int, base uint16) uint16 {
	return bankBase(hw) + base + uint16(hw%9)
}

// operatorReg returns the register for an operator-group base (0x20, 0x40,
// 0x60, 0x80, 0xE0). op 0 is the modulator, 1 the carrier.
func operatorReg(hw int, op int, base uint16) uint16 {
	off := operatorOffsets[hw%9]
	if op == 1 {
		off += 3
	}
	return bankBase(hw) + base + off
}

// HardwareChannel maps a song channel to its hardware channel.
// Out-of-range input logs and returns 0.
func (c *Controller) HardwareChannel(sw int) int {
	if sw < 0 || sw >= NumSoftwareChannels {
		c.logger.Printf("fm: software channel %d out of range", sw)
		return 0
	}
	return softwareToHardware[sw]
}

// SoftwareChannel maps a hardware channel to the song channel that owns it.
// Out-of-range input logs and returns 0.
func (c *Controller) SoftwareChannel(hw int) int {
	m, ok := Mapping(hw)
	if !ok {
		c.logger.Printf("fm: hardware channel %d out of range", hw)
		return 0
	}
	return m.Software
}

// FourOpSlot returns the bit index of hw inside the four-op enable register.
// ok is false for channels that cannot host a four-operator voice.
func FourOpSlot(hw int) (bit int, ok bool) {
	b, ok := fourOpBit(hw)
	return int(b), ok
}
