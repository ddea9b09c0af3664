package cartridge

import "github.com/thornewell/megaboy/internal/types"

// mbc2 has a built-in 512x4-bit RAM (read back with the upper nibble set)
// and up to 16 switchable ROM banks, selected through address bit 8
// rather than a separate register range.
type mbc2 struct {
	rom []byte
	ram []byte // 512 nibbles, one value per byte

	romBank    uint8
	ramEnabled bool

	header *Header
}

func newMBC2(rom []byte, header *Header) *mbc2 {
	return &mbc2{
		rom:     rom,
		ram:     make([]byte, 512),
		romBank: 1,
		header:  header,
	}
}

func (m *mbc2) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		offset := uint32(m.romBank) * 0x4000
		banks := uint32(len(m.rom)) / 0x4000
		if banks > 0 {
			offset %= banks * 0x4000
		}
		return m.rom[offset+uint32(address-0x4000)]
	case address >= 0xA000 && address < 0xC000:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[address&0x01FF] | 0xF0
	default:
		return 0xFF
	}
}

func (m *mbc2) Write(address uint16, value uint8) {
	switch {
	case address < 0x4000:
		if address&0x100 != 0 {
			m.romBank = value & 0x0F
			if m.romBank == 0 {
				m.romBank = 1
			}
		} else {
			m.ramEnabled = value&0x0F == 0x0A
		}
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled {
			m.ram[address&0x01FF] = value & 0x0F
		}
	}
}

func (m *mbc2) Header() *Header  { return m.header }
func (m *mbc2) Title() string    { return m.header.Title }
func (m *mbc2) HasBattery() bool { return m.header.CartridgeType.HasBattery() }
func (m *mbc2) SaveRAM() []byte  { return append([]byte(nil), m.ram...) }
func (m *mbc2) LoadRAM(data []byte) {
	copy(m.ram, data)
}

var _ types.Stater = (*mbc2)(nil)

func (m *mbc2) Load(s *types.State) {
	m.romBank = s.Read8()
	m.ramEnabled = s.ReadBool()
}

func (m *mbc2) Save(s *types.State) {
	s.Write8(m.romBank)
	s.WriteBool(m.ramEnabled)
}
