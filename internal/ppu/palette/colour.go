package palette

import "github.com/thornewell/megaboy/internal/types"

// CGBPalette is one of the CGB's BG or OBJ palette RAM banks: 8
// palettes of 4 RGB555 colours each, addressed through an
// auto-incrementing index register (BCPS/OCPS + BCPD/OCPD).
type CGBPalette struct {
	Palettes     [8][4][3]uint8
	Index        byte
	Incrementing bool
}

// SetIndex updates the index of the palette.
func (p *CGBPalette) SetIndex(value byte) {
	p.Index = value & 0x3F
	p.Incrementing = value&types.Bit7 != 0
}

// GetIndex returns the index of the palette.
func (p *CGBPalette) GetIndex() byte {
	if p.Incrementing {
		return p.Index | types.Bit7
	}
	return p.Index
}

// Read returns the value of the palette at the specified index.
func (p *CGBPalette) Read() byte {
	paletteIndex := p.Index >> 3
	colourIndex := (p.Index & 0x7) >> 1

	colour := uint16(p.Palettes[paletteIndex][colourIndex][0]>>3) |
		uint16(p.Palettes[paletteIndex][colourIndex][1]>>3)<<5 |
		uint16(p.Palettes[paletteIndex][colourIndex][2]>>3)<<10

	if p.Index&1 == 0 {
		return uint8(colour) & 0xFF
	}
	return uint8(colour >> 8)
}

// Write writes the value to the palette at the specified index.
func (p *CGBPalette) Write(value byte) {
	paletteIndex := p.Index >> 3
	colourIndex := (p.Index & 0x7) >> 1

	colour := uint16(p.Palettes[paletteIndex][colourIndex][0]>>3) |
		uint16(p.Palettes[paletteIndex][colourIndex][1]>>3)<<5 |
		uint16(p.Palettes[paletteIndex][colourIndex][2]>>3)<<10

	if p.Index&0x1 == 0 {
		colour = (colour & 0xFF00) | uint16(value)
	} else {
		colour = (colour & 0x00FF) | uint16(value)<<8
	}

	p.Palettes[paletteIndex][colourIndex][0] = (uint8(colour)&0x1F)<<3 | (uint8(colour)&0x1F)>>2
	p.Palettes[paletteIndex][colourIndex][1] = (uint8(colour>>5)&0x1F)<<3 | (uint8(colour>>5)&0x1F)>>2
	p.Palettes[paletteIndex][colourIndex][2] = (uint8(colour>>10)&0x1F)<<3 | (uint8(colour>>10)&0x1F)>>2

	if p.Incrementing {
		p.Index = (p.Index + 1) & 0x3F
	}
}

// GetColour returns the colour for a given palette index and colour
// index.
func (p *CGBPalette) GetColour(paletteIndex byte, colourIndex byte) [3]uint8 {
	return p.Palettes[paletteIndex][colourIndex]
}

// NewCGBPallette returns a palette bank initialised to white, matching
// hardware's power-on palette RAM contents.
func NewCGBPallette() *CGBPalette {
	p := &CGBPalette{}
	for i := range p.Palettes {
		for j := range p.Palettes[i] {
			p.Palettes[i][j] = [3]uint8{0xFF, 0xFF, 0xFF}
		}
	}
	return p
}

func (p *CGBPalette) Load(s *types.State) {
	for i := range p.Palettes {
		for j := range p.Palettes[i] {
			p.Palettes[i][j][0] = s.Read8()
			p.Palettes[i][j][1] = s.Read8()
			p.Palettes[i][j][2] = s.Read8()
		}
	}
	p.Index = s.Read8()
	p.Incrementing = s.ReadBool()
}

func (p *CGBPalette) Save(s *types.State) {
	for _, pa := range p.Palettes {
		for _, c := range pa {
			s.Write8(c[0])
			s.Write8(c[1])
			s.Write8(c[2])
		}
	}
	s.Write8(p.Index)
	s.WriteBool(p.Incrementing)
}
