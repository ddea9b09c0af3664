package ppu

import "github.com/thornewell/megaboy/internal/types"

// BusReader is the minimal read access OAM-DMA needs into the wider
// memory map; the MMU satisfies it.
type BusReader interface {
	Read(address uint16) uint8
}

// DMA implements the OAM-DMA transfer triggered by writes to 0xFF46: a
// 160-byte copy from source<<8 into OAM, paced at one byte per 4
// T-cycles (640 T-cycles total).
type DMA struct {
	enabled    bool
	restarting bool

	timer  uint
	source uint16
	value  uint8

	bus BusReader
	oam *OAM
}

// NewDMA returns a DMA controller reading through bus into oam.
func NewDMA(bus BusReader, oam *OAM) *DMA {
	return &DMA{bus: bus, oam: oam}
}

// ReadDMA returns the last byte written to 0xFF46.
func (d *DMA) ReadDMA() uint8 { return d.value }

// WriteDMA starts a new transfer; restarting mid-transfer is allowed
// and resets the byte counter.
func (d *DMA) WriteDMA(v uint8) {
	d.value = v
	d.source = uint16(v) << 8
	d.timer = 0
	d.restarting = d.enabled
	d.enabled = true
}

// Tick advances the transfer by one T-cycle.
func (d *DMA) Tick() {
	if !d.enabled {
		return
	}
	d.timer++
	if d.timer%4 != 0 {
		return
	}
	d.restarting = false

	offset := uint16(d.timer-4) >> 2
	src := d.source + offset
	if src >= 0xE000 {
		src &^= 0x2000
	}
	d.oam.Write(0xFE00+offset, d.bus.Read(src))

	if d.timer >= 640 {
		d.enabled = false
		d.timer = 0
	}
}

// IsTransferring reports whether OAM-DMA currently owns the OAM bus.
func (d *DMA) IsTransferring() bool {
	return d.timer > 4 || d.restarting
}

var _ types.Stater = (*DMA)(nil)

func (d *DMA) Load(s *types.State) {
	d.enabled = s.ReadBool()
	d.restarting = s.ReadBool()
	d.timer = uint(s.Read32())
	d.source = s.Read16()
	d.value = s.Read8()
}

func (d *DMA) Save(s *types.State) {
	s.WriteBool(d.enabled)
	s.WriteBool(d.restarting)
	s.Write32(uint32(d.timer))
	s.Write16(d.source)
	s.Write8(d.value)
}
