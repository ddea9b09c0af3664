package ppu

import "github.com/thornewell/megaboy/internal/types"

// HDMA implements the CGB VRAM DMA controller (0xFF51-0xFF55): a
// general-purpose DMA that copies immediately, or an HBlank DMA that
// copies one 16-byte block every time the PPU enters HBlank.
type HDMA struct {
	source      uint16
	destination uint16
	length      uint8 // blocks requested (HDMA5 bits 0-6, plus 1)
	remaining   uint8
	active      bool // HBlank transfer in progress

	bus BusReader
	ppu *PPU
}

// NewHDMA returns an HDMA controller. bus supplies source reads; ppu
// receives destination writes directly into VRAM.
func NewHDMA(bus BusReader, ppu *PPU) *HDMA {
	return &HDMA{bus: bus, ppu: ppu}
}

func (h *HDMA) WriteHDMA1(v uint8) {
	h.source = (h.source & 0x00FF) | uint16(v)<<8
}

func (h *HDMA) WriteHDMA2(v uint8) {
	h.source = (h.source & 0xFF00) | uint16(v&0xF0)
}

func (h *HDMA) WriteHDMA3(v uint8) {
	h.destination = (h.destination & 0x00F0) | (uint16(v&0x1F) << 8)
}

func (h *HDMA) WriteHDMA4(v uint8) {
	h.destination = (h.destination & 0xFF00) | uint16(v&0xF0)
}

// ReadHDMA5 reports the number of remaining blocks minus one, or 0xFF
// when no HBlank transfer is active.
func (h *HDMA) ReadHDMA5() uint8 {
	if !h.active {
		return 0xFF
	}
	return h.remaining - 1
}

// WriteHDMA5 starts a GDMA (immediate) or HDMA (HBlank-paced) transfer.
func (h *HDMA) WriteHDMA5(v uint8) {
	h.length = (v & 0x7F) + 1

	if v&types.Bit7 == 0 {
		if h.active {
			h.active = false
			return
		}
		h.copyBlocks(h.length)
		return
	}

	h.remaining = h.length
	h.active = true
	if !h.ppu.enabled || h.ppu.mode == ModeHBlank {
		h.transferBlock()
	}
}

// OnHBlank is called by the MMU whenever the PPU enters HBlank; it performs
// one pending 16-byte block of an active HDMA transfer.
func (h *HDMA) OnHBlank() {
	if h.active {
		h.transferBlock()
	}
}

func (h *HDMA) transferBlock() {
	h.copyBlocks(1)
	h.remaining--
	if h.remaining == 0 {
		h.active = false
	}
}

func (h *HDMA) copyBlocks(blocks uint8) {
	for b := uint8(0); b < blocks; b++ {
		for i := 0; i < 16; i++ {
			h.ppu.writeVRAM(0x8000+(h.destination&0x1FFF), h.bus.Read(h.source))
			h.source++
			h.destination++
		}
	}
}

var _ types.Stater = (*HDMA)(nil)

func (h *HDMA) Load(s *types.State) {
	h.source = s.Read16()
	h.destination = s.Read16()
	h.length = s.Read8()
	h.remaining = s.Read8()
	h.active = s.ReadBool()
}

func (h *HDMA) Save(s *types.State) {
	s.Write16(h.source)
	s.Write16(h.destination)
	s.Write8(h.length)
	s.Write8(h.remaining)
	s.WriteBool(h.active)
}
