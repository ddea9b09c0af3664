package cartridge

import "github.com/thornewell/megaboy/internal/types"

// huc1 is MBC1-shaped (same ROM/RAM bank-select register layout) but
// its 0x0000-0x1FFF port additionally gates an infrared LED port instead
// of a plain RAM enable: values 0x0E route 0xA000-0xBFFF reads/writes to
// the IR port rather than RAM. No IR peer is modeled, so the port always
// reads back as "no signal received".
type huc1 struct {
	rom     []byte
	romBank uint32

	ram     []byte
	ramBank uint32

	irMode bool

	header *Header
}

func newHuC1(rom []byte, header *Header) *huc1 {
	return &huc1{
		rom:     rom,
		romBank: 1,
		ram:     make([]byte, header.RAMSize),
		header:  header,
	}
}

func (m *huc1) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		return m.rom[uint32(address-0x4000)+m.romBank*0x4000]
	case address >= 0xA000 && address < 0xC000:
		if m.irMode {
			return 0xC0 // no IR signal received
		}
		if len(m.ram) > 0 {
			return m.ram[uint32(address-0xA000)+m.ramBank*0x2000]
		}
		return 0xFF
	}
	return 0xFF
}

func (m *huc1) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.irMode = value&0x0F == 0x0E
	case address < 0x4000:
		m.romBank = uint32(value & 0x3F)
		if m.romBank == 0 {
			m.romBank = 1
		}
		if banks := uint32(len(m.rom)) / 0x4000; banks > 0 {
			m.romBank %= banks
		}
	case address < 0x6000:
		m.ramBank = uint32(value) & 0x03
		if banks := uint32(len(m.ram)) / 0x2000; banks > 0 {
			m.ramBank %= banks
		} else {
			m.ramBank = 0
		}
	case address >= 0xA000 && address < 0xC000:
		if !m.irMode && len(m.ram) > 0 {
			m.ram[uint32(address-0xA000)+m.ramBank*0x2000] = value
		}
	}
}

func (m *huc1) Header() *Header  { return m.header }
func (m *huc1) Title() string    { return m.header.Title }
func (m *huc1) HasBattery() bool { return true }
func (m *huc1) SaveRAM() []byte  { return append([]byte(nil), m.ram...) }
func (m *huc1) LoadRAM(data []byte) {
	copy(m.ram, data)
}

var _ types.Stater = (*huc1)(nil)

func (m *huc1) Load(s *types.State) {
	m.romBank = s.Read32()
	m.ramBank = s.Read32()
	m.irMode = s.ReadBool()
}

func (m *huc1) Save(s *types.State) {
	s.Write32(m.romBank)
	s.Write32(m.ramBank)
	s.WriteBool(m.irMode)
}
