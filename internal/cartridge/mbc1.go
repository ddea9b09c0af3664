package cartridge

import "github.com/thornewell/megaboy/internal/types"

// mbc1 supports up to 125 switchable 16kB ROM banks and 4 switchable 8kB
// RAM banks. BANK1 (5 bits) and BANK2 (2 bits) are the chip's own register
// names: BANK1 always selects bits 0-4 of the 0x4000-0x7FFF bank, BANK2
// always selects bits 5-6 of it, and the mode select additionally routes
// BANK2 to the 0x0000-0x3FFF window and the RAM bank in mode 1.
type mbc1 struct {
	rom   []byte
	bank1 uint32 // 5-bit register, written at 0x2000-0x3FFF
	bank2 uint32 // 2-bit register, written at 0x4000-0x5FFF

	ram        []byte
	ramEnabled bool

	// romBankingMode is true in mode 0 (the default): BANK2 only affects
	// the 0x4000-0x7FFF window, the 0x0000-0x3FFF window is always bank 0,
	// and RAM bank 0 is used. False is mode 1: BANK2 also selects the
	// 0x0000-0x3FFF bank and the RAM bank.
	romBankingMode bool

	header *Header
}

func newMBC1(rom []byte, header *Header) *mbc1 {
	return &mbc1{
		rom:            rom,
		bank1:          1,
		ram:            make([]byte, header.RAMSize),
		romBankingMode: true,
		header:         header,
	}
}

func (m *mbc1) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[m.lowerROMBank()*0x4000+uint32(address)]
	case address < 0x8000:
		return m.rom[m.upperROMBank()*0x4000+uint32(address-0x4000)]
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled && len(m.ram) > 0 {
			return m.ram[m.ramBank()*0x2000+uint32(address-0xA000)]
		}
		return 0xFF
	}
	return 0xFF
}

func (m *mbc1) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		m.bank1 = uint32(value & 0x1F)
	case address < 0x6000:
		m.bank2 = uint32(value & 0x03)
	case address < 0x8000:
		m.romBankingMode = value&0x01 == 0
	case address >= 0xA000 && address < 0xC000:
		if m.ramEnabled && len(m.ram) > 0 {
			m.ram[m.ramBank()*0x2000+uint32(address-0xA000)] = value
		}
	}
}

// banks returns the cartridge's total 16kB ROM bank count.
func (m *mbc1) banks() uint32 {
	return uint32(len(m.rom) / 0x4000)
}

// upperROMBank returns the bank mapped at 0x4000-0x7FFF. BANK1==0 is
// substituted with 1 regardless of mode - the well-known MBC1 quirk that
// makes banks 0x00, 0x20, 0x40 and 0x60 unreachable through this window.
func (m *mbc1) upperROMBank() uint32 {
	bank1 := m.bank1
	if bank1 == 0 {
		bank1 = 1
	}
	bank := m.bank2<<5 | bank1
	if banks := m.banks(); banks > 0 {
		bank %= banks
	}
	return bank
}

// lowerROMBank returns the bank mapped at 0x0000-0x3FFF: bank 0 in mode 0,
// or BANK2<<5 in mode 1, per spec.md §4.1's mode-1 remap.
func (m *mbc1) lowerROMBank() uint32 {
	if m.romBankingMode {
		return 0
	}
	bank := m.bank2 << 5
	if banks := m.banks(); banks > 0 {
		bank %= banks
	}
	return bank
}

// ramBank returns the RAM bank mapped at 0xA000-0xBFFF: always 0 in
// mode 0, or BANK2 in mode 1.
func (m *mbc1) ramBank() uint32 {
	if m.romBankingMode {
		return 0
	}
	if banks := uint32(len(m.ram) / 0x2000); banks > 0 {
		return m.bank2 % banks
	}
	return 0
}

func (m *mbc1) Header() *Header  { return m.header }
func (m *mbc1) Title() string    { return m.header.Title }
func (m *mbc1) HasBattery() bool { return m.header.CartridgeType.HasBattery() }
func (m *mbc1) SaveRAM() []byte  { return append([]byte(nil), m.ram...) }
func (m *mbc1) LoadRAM(data []byte) {
	copy(m.ram, data)
}

var _ types.Stater = (*mbc1)(nil)

func (m *mbc1) Load(s *types.State) {
	m.bank1 = s.Read32()
	m.bank2 = s.Read32()
	m.ramEnabled = s.ReadBool()
	m.romBankingMode = s.ReadBool()
}

func (m *mbc1) Save(s *types.State) {
	s.Write32(m.bank1)
	s.Write32(m.bank2)
	s.WriteBool(m.ramEnabled)
	s.WriteBool(m.romBankingMode)
}
