package cartridge

import "github.com/thornewell/megaboy/internal/types"

// mbc5 supports up to 512 ROM banks (a full 9-bit bank number split
// across two write ports) and 16 RAM banks; it's also the controller
// used for rumble cartridges, though rumble motor output is not modeled.
type mbc5 struct {
	rom []byte
	ram []byte

	romBank    uint32
	ramBank    uint32
	ramEnabled bool

	header *Header
}

func newMBC5(rom []byte, header *Header) *mbc5 {
	return &mbc5{
		rom:     rom,
		ram:     make([]byte, header.RAMSize),
		romBank: 1,
		header:  header,
	}
}

func (m *mbc5) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		offset := m.romBank * 0x4000
		if banks := uint32(len(m.rom)) / 0x4000; banks > 0 {
			offset = (m.romBank % banks) * 0x4000
		}
		return m.rom[offset+uint32(address&0x3FFF)]
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled && len(m.ram) > 0 {
			return m.ram[m.ramBank*0x2000+uint32(address&0x1FFF)]
		}
		return 0xFF
	}
	return 0xFF
}

func (m *mbc5) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x3000:
		m.romBank = (m.romBank &^ 0xFF) | uint32(value)
	case address < 0x4000:
		m.romBank = (m.romBank & 0xFF) | (uint32(value&0x01) << 8)
	case address < 0x6000:
		m.ramBank = uint32(value) & 0x0F
		if banks := uint32(len(m.ram)) / 0x2000; banks > 0 {
			m.ramBank %= banks
		} else {
			m.ramBank = 0
		}
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled && len(m.ram) > 0 {
			m.ram[m.ramBank*0x2000+uint32(address&0x1FFF)] = value
		}
	}
}

func (m *mbc5) Header() *Header  { return m.header }
func (m *mbc5) Title() string    { return m.header.Title }
func (m *mbc5) HasBattery() bool { return m.header.CartridgeType.HasBattery() }
func (m *mbc5) SaveRAM() []byte  { return append([]byte(nil), m.ram...) }
func (m *mbc5) LoadRAM(data []byte) {
	copy(m.ram, data)
}

var _ types.Stater = (*mbc5)(nil)

func (m *mbc5) Load(s *types.State) {
	m.romBank = s.Read32()
	m.ramBank = s.Read32()
	m.ramEnabled = s.ReadBool()
}

func (m *mbc5) Save(s *types.State) {
	s.Write32(m.romBank)
	s.Write32(m.ramBank)
	s.WriteBool(m.ramEnabled)
}
