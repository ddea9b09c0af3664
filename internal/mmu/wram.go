package mmu

import "github.com/thornewell/megaboy/internal/types"

// WRAM is the Game Boy's 8kB (DMG) or 32kB (CGB) work RAM at
// 0xC000-0xDFFF, plus its 0xE000-0xFDFF echo. Bank 0 is always
// mapped at 0xC000-0xCFFF; SVBK selects which of banks 1-7 is mapped
// at 0xD000-0xDFFF on CGB (DMG hardware only ever has bank 1 wired).
type WRAM struct {
	bank uint8
	raw  [8][0x1000]uint8
}

// NewWRAM returns work RAM with bank 1 selected, the post-boot default.
func NewWRAM() *WRAM {
	return &WRAM{bank: 1}
}

func (w *WRAM) ReadSVBK() uint8 { return w.bank | 0xF8 }

func (w *WRAM) WriteSVBK(v uint8) {
	v &= 0x07
	if v == 0 {
		v = 1
	}
	w.bank = v
}

func (w *WRAM) Read(addr uint16) uint8 {
	switch {
	case addr < 0xD000:
		return w.raw[0][addr&0xFFF]
	case addr < 0xE000:
		return w.raw[w.bank][addr&0xFFF]
	case addr < 0xF000:
		return w.raw[0][addr&0xFFF]
	default:
		return w.raw[w.bank][addr&0xFFF]
	}
}

func (w *WRAM) Write(addr uint16, v uint8) {
	switch {
	case addr < 0xD000:
		w.raw[0][addr&0xFFF] = v
	case addr < 0xE000:
		w.raw[w.bank][addr&0xFFF] = v
	case addr < 0xF000:
		w.raw[0][addr&0xFFF] = v
	default:
		w.raw[w.bank][addr&0xFFF] = v
	}
}

var _ types.Stater = (*WRAM)(nil)

func (w *WRAM) Load(s *types.State) {
	w.bank = s.Read8()
	for i := range w.raw {
		s.ReadData(w.raw[i][:])
	}
}

func (w *WRAM) Save(s *types.State) {
	s.Write8(w.bank)
	for i := range w.raw {
		s.WriteData(w.raw[i][:])
	}
}
