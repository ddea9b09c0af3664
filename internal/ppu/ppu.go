// Package ppu implements the Game Boy's pixel-FIFO picture processing
// unit: OAM scan, background/window/object pixel fetchers, and the
// LCDC/STAT register interface, in both DMG and CGB modes.
package ppu

import (
	"sort"

	"github.com/thornewell/megaboy/internal/interrupts"
	"github.com/thornewell/megaboy/internal/ppu/palette"
	"github.com/thornewell/megaboy/internal/types"
)

const (
	// ScreenWidth is the width of the screen in pixels.
	ScreenWidth = 160
	// ScreenHeight is the height of the screen in pixels.
	ScreenHeight = 144

	dotsPerLine  = 456
	oamScanDots  = 80
	linesPerFrame = 154
)

// STAT mode values.
const (
	ModeHBlank = iota
	ModeVBlank
	ModeOAM
	ModeVRAM
)

// Background/window fetcher states. Each non-Push state takes 2
// T-cycles; Push stalls until the FIFO has drained.
const (
	fetchTileNo = iota
	fetchDataLow
	fetchDataHigh
	fetchPush
)

// PPU is the Game Boy's picture processing unit.
type PPU struct {
	// LCDC
	enabled     bool
	bgEnabled   bool
	winEnabled  bool
	objEnabled  bool
	bgTileMap   uint8
	winTileMap  uint8
	objSize     uint8 // 8 or 16
	addressMode uint8 // 1 = 0x8000 unsigned, 0 = 0x8800 signed

	// STAT
	mode          uint8
	lyc           uint8
	statIntMode   [4]bool // HBlank/VBlank/OAM/LYC interrupt-select bits
	statLine      bool    // level-triggered STAT line (for blocking)
	lycMatchLast  bool

	ly  uint8
	dot uint16

	scy, scx uint8
	wy, wx   uint8
	bgp      uint8
	obp0     uint8
	obp1     uint8

	wly          uint8
	winTriggered bool // WY==LY latched for this frame
	winActive    bool // window is the active fetch source this line

	vram  [2][0x2000]uint8
	vbk   uint8
	OAM   OAM
	cgbMode bool

	bcps *palette.CGBPalette
	ocps *palette.CGBPalette
	opri uint8 // CGB object priority mode (0=OAM index, 1=X coordinate)

	// Fetcher state
	fetcherState  uint8
	fetcherSub    uint8
	fetcherTileX  uint8
	fetcherTileNo uint8
	fetcherAttr   uint8
	tileLow       uint8
	tileHigh      uint8
	bgFIFO        []fifoPixel

	scxDiscard int
	lx         int // output column 0-159
	stall      int // extra T-cycles consumed (sprite/window fetch cost)

	objBuffer []Sprite // up to 10 objects selected this line

	// Precomputed per-line object pixels, resolved at OAM-scan time.
	objColor    [ScreenWidth]uint8
	objPalette  [ScreenWidth]uint8
	objPriority [ScreenWidth]bool
	objPresent  [ScreenWidth]bool
	objFired    map[uint8]bool

	Framebuffer [ScreenHeight][ScreenWidth][3]uint8
	frameReady  bool
	justEnabled bool // LCD was turned on since the last ConsumeJustEnabled

	irq *interrupts.Service
}

type fifoPixel struct {
	color    uint8
	cgbPal   uint8
	priority bool
}

// New returns a powered-off PPU.
func New(irq *interrupts.Service) *PPU {
	return &PPU{
		irq:  irq,
		bcps: palette.NewCGBPallette(),
		ocps: palette.NewCGBPallette(),
	}
}

// SetCGBMode switches palette/tile-attribute handling between DMG and
// CGB semantics. Called once at boot based on cartridge/model.
func (p *PPU) SetCGBMode(cgb bool) { p.cgbMode = cgb }

// SetCompatibilityPalette seeds BG palette 0 and OBJ palettes 0/1 of CGB
// palette RAM from a DMG-compatibility entry, reproducing what the CGB
// boot ROM does before handing off to a non-color cartridge (see
// internal/ppu/palette/compatibility.go). A DMG game's own tiles carry
// no CGB attribute byte, so they read palette 0 by default - seeding it
// here is enough for BG to render in color without touching the
// fetch/emit path.
func (p *PPU) SetCompatibilityPalette(entry palette.CompatibilityPaletteEntry) {
	for i, c := range entry.BG {
		p.bcps.Palettes[0][i] = [3]uint8(c)
	}
	for i, c := range entry.OBJ0 {
		p.ocps.Palettes[0][i] = [3]uint8(c)
	}
	for i, c := range entry.OBJ1 {
		p.ocps.Palettes[1][i] = [3]uint8(c)
	}
}

// HasFrame reports whether a full frame has been rendered since the
// last ClearFrame.
func (p *PPU) HasFrame() bool { return p.frameReady }

// ClearFrame acknowledges the completed frame.
func (p *PPU) ClearFrame() { p.frameReady = false }

// ConsumeJustEnabled reports whether the LCD was switched on since the
// last call, clearing the flag. The core uses this to mark the frame
// immediately following enable so the front-end can blank it rather
// than show a partial screen.
func (p *PPU) ConsumeJustEnabled() bool {
	v := p.justEnabled
	p.justEnabled = false
	return v
}

// Mode returns the current STAT mode (0-3), so a bus-level HDMA
// controller can detect the HBlank entry edge it paces transfers on.
func (p *PPU) Mode() uint8 { return p.mode }

// Tick advances the PPU by one T-cycle.
func (p *PPU) Tick() {
	if !p.enabled {
		return
	}

	switch p.mode {
	case ModeOAM:
		if p.dot == 0 {
			p.scanOAM()
		}
		if p.dot == oamScanDots-1 {
			p.beginPixelTransfer()
		}
	case ModeVRAM:
		p.stepPixelTransfer()
	case ModeHBlank, ModeVBlank:
		// idle
	}

	p.dot++
	if p.dot >= dotsPerLine {
		p.dot = 0
		p.advanceLine()
	}
}

func (p *PPU) advanceLine() {
	p.ly++
	if p.ly == ScreenHeight {
		p.setMode(ModeVBlank)
		p.irq.Request(interrupts.VBlankFlag)
		p.frameReady = true
	} else if p.ly > 153 {
		p.ly = 0
		p.wly = 0
		p.winTriggered = false
		p.setMode(ModeOAM)
	} else if p.ly < ScreenHeight {
		p.setMode(ModeOAM)
	}
	p.updateLYC()
}

func (p *PPU) setMode(m uint8) {
	p.mode = m
	p.updateStatLine()
}

func (p *PPU) updateLYC() {
	match := p.ly == p.lyc
	p.lycMatchLast = match
	p.updateStatLine()
}

// updateStatLine recomputes the level-triggered STAT interrupt line
// and requests an LCD interrupt only on a 0->1 transition (STAT
// blocking): the line stays asserted while any enabled source holds,
// preventing duplicate requests.
func (p *PPU) updateStatLine() {
	asserted := p.lycMatchLast && p.statIntMode[3]
	switch p.mode {
	case ModeHBlank:
		asserted = asserted || p.statIntMode[0]
	case ModeVBlank:
		asserted = asserted || p.statIntMode[1]
	case ModeOAM:
		asserted = asserted || p.statIntMode[2]
	}
	if asserted && !p.statLine {
		p.irq.Request(interrupts.LCDFlag)
	}
	p.statLine = asserted
}

func (p *PPU) scanOAM() {
	p.objBuffer = p.objBuffer[:0]
	height := uint8(8)
	if p.objSize == 16 {
		height = 16
	}
	for i := uint8(0); i < 40; i++ {
		s := p.OAM.Sprite(i)
		top := int(s.Y) - 16
		if int(p.ly) < top || int(p.ly) >= top+int(height) {
			continue
		}
		p.objBuffer = append(p.objBuffer, s)
		if len(p.objBuffer) == 10 {
			break
		}
	}
	p.resolveObjLine(height)
}

// resolveObjLine precomputes, for each screen column, which object
// pixel (if any) wins, following DMG X-then-OAM-index priority or CGB
// OAM-index priority.
func (p *PPU) resolveObjLine(height uint8) {
	for i := range p.objPresent {
		p.objPresent[i] = false
	}
	p.objFired = make(map[uint8]bool, len(p.objBuffer))

	order := make([]Sprite, len(p.objBuffer))
	copy(order, p.objBuffer)
	if !p.cgbMode || p.opri == 1 {
		sort.SliceStable(order, func(i, j int) bool { return order[i].X < order[j].X })
	}

	for _, s := range order {
		if !p.objEnabled {
			continue
		}
		tile := s.Tile
		row := int(p.ly) - (int(s.Y) - 16)
		if s.flipY() {
			row = int(height) - 1 - row
		}
		if height == 16 {
			tile &^= 1
			if row >= 8 {
				tile |= 1
				row -= 8
			}
		}
		bank := 0
		if p.cgbMode {
			bank = int(s.vramBank())
		}
		addr := uint16(tile)*16 + uint16(row)*2
		lo := p.vram[bank][addr]
		hi := p.vram[bank][addr+1]

		for col := 0; col < 8; col++ {
			bit := col
			if !s.flipX() {
				bit = 7 - col
			}
			colour := (hi>>bit)&1<<1 | (lo>>bit)&1
			screenX := int(s.X) - 8 + col
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}
			if colour == 0 {
				continue
			}
			if p.objPresent[screenX] {
				continue
			}
			p.objPresent[screenX] = true
			p.objColor[screenX] = colour
			p.objPriority[screenX] = s.bgPriority()
			if p.cgbMode {
				p.objPalette[screenX] = s.cgbPalette()
			} else {
				p.objPalette[screenX] = s.dmgPalette()
			}
		}
	}
}

func (p *PPU) beginPixelTransfer() {
	p.setMode(ModeVRAM)
	p.lx = 0
	p.fetcherState = fetchTileNo
	p.fetcherSub = 0
	p.fetcherTileX = 0
	p.bgFIFO = p.bgFIFO[:0]
	p.scxDiscard = int(p.scx % 8)
	p.stall = 0

	if p.winEnabled && p.ly == p.wy {
		p.winTriggered = true
	}
	p.winActive = false
}

func (p *PPU) stepPixelTransfer() {
	if p.stall > 0 {
		p.stall--
		return
	}

	if p.winEnabled && !p.winActive && p.winTriggered && p.lx+7 >= int(p.wx) && p.wx <= 166 {
		p.winActive = true
		p.bgFIFO = p.bgFIFO[:0]
		p.fetcherState = fetchTileNo
		p.fetcherSub = 0
		p.fetcherTileX = 0
		p.stall += 6
		return
	}

	for _, s := range p.objBuffer {
		if p.lx >= int(s.X)-8 && p.lx < int(s.X) && !p.objFired[s.Index] {
			p.objFired[s.Index] = true
			p.stall += 6
			return
		}
	}

	p.stepFetcher()

	if len(p.bgFIFO) == 0 {
		return
	}
	px := p.bgFIFO[0]
	p.bgFIFO = p.bgFIFO[1:]

	if p.scxDiscard > 0 {
		p.scxDiscard--
		return
	}

	p.emitPixel(px)
	p.lx++
	if p.lx >= ScreenWidth {
		if p.winActive {
			p.wly++
		}
		p.setMode(ModeHBlank)
	}
}

func (p *PPU) emitPixel(px fifoPixel) {
	col := p.lx
	bgColour := px.color
	masterPriority := !p.cgbMode || p.bgEnabled // LCDC.0 on CGB disables BG-over-OBJ priority entirely
	useObj := p.objPresent[col] && p.objEnabled
	if useObj && masterPriority {
		if bgColour != 0 && (p.objPriority[col] || px.priority) {
			useObj = false
		}
	}

	var rgb [3]uint8
	if useObj {
		if p.cgbMode {
			rgb = p.ocps.GetColour(p.objPalette[col], p.objColor[col])
		} else {
			pal := p.obp0
			if p.objPalette[col] == 1 {
				pal = p.obp1
			}
			rgb = palette.ByteToPalette(pal).GetColour(p.objColor[col])
		}
	} else if p.cgbMode {
		rgb = p.bcps.GetColour(px.cgbPal, bgColour)
	} else {
		rgb = palette.ByteToPalette(p.bgp).GetColour(bgColour)
	}
	p.Framebuffer[p.ly][col] = rgb
}

func (p *PPU) stepFetcher() {
	switch p.fetcherState {
	case fetchTileNo:
		p.fetcherSub++
		if p.fetcherSub >= 2 {
			p.fetcherSub = 0
			p.fetcherTileNo, p.fetcherAttr = p.fetchTileNo()
			p.fetcherState = fetchDataLow
		}
	case fetchDataLow:
		p.fetcherSub++
		if p.fetcherSub >= 2 {
			p.fetcherSub = 0
			p.tileLow = p.fetchTileData(0)
			p.fetcherState = fetchDataHigh
		}
	case fetchDataHigh:
		p.fetcherSub++
		if p.fetcherSub >= 2 {
			p.fetcherSub = 0
			p.tileHigh = p.fetchTileData(1)
			p.fetcherState = fetchPush
		}
	case fetchPush:
		if len(p.bgFIFO) == 0 {
			p.pushTile()
			p.fetcherTileX++
			p.fetcherState = fetchTileNo
		}
	}
}

func (p *PPU) fetchTileNo() (uint8, uint8) {
	var mapBase uint16
	var col, row uint8
	if p.winActive {
		if p.winTileMap == 1 {
			mapBase = 0x9C00
		} else {
			mapBase = 0x9800
		}
		col = p.fetcherTileX
		row = p.wly
	} else {
		if p.bgTileMap == 1 {
			mapBase = 0x9C00
		} else {
			mapBase = 0x9800
		}
		col = (p.fetcherTileX + p.scx/8) & 0x1F
		row = p.ly + p.scy
	}
	addr := mapBase + uint16(row/8)*32 + uint16(col)
	tileNo := p.vram[0][addr-0x8000]
	attr := uint8(0)
	if p.cgbMode {
		attr = p.vram[1][addr-0x8000]
	}
	return tileNo, attr
}

func (p *PPU) fetchTileData(plane int) uint8 {
	row := p.ly + p.scy
	if p.winActive {
		row = p.wly
	}
	line := row % 8
	if p.fetcherAttr&attrFlipY != 0 {
		line = 7 - line
	}

	var base uint16
	if p.addressMode == 1 {
		base = 0x8000 + uint16(p.fetcherTileNo)*16
	} else {
		base = uint16(0x9000 + int(int8(p.fetcherTileNo))*16)
	}
	bank := 0
	if p.cgbMode && p.fetcherAttr&attrBank != 0 {
		bank = 1
	}
	return p.vram[bank][base-0x8000+uint16(line)*2+uint16(plane)]
}

func (p *PPU) pushTile() {
	flipX := p.cgbMode && p.fetcherAttr&attrFlipX != 0
	pal := p.fetcherAttr & 0x07
	prio := p.cgbMode && p.fetcherAttr&attrPriority != 0
	for col := 0; col < 8; col++ {
		bit := 7 - col
		if flipX {
			bit = col
		}
		colour := (p.tileHigh>>bit)&1<<1 | (p.tileLow>>bit)&1
		if !p.cgbMode && !p.bgEnabled {
			colour = 0
		}
		p.bgFIFO = append(p.bgFIFO, fifoPixel{color: colour, cgbPal: pal, priority: prio})
	}
}

// writeVRAM is used by HDMA, which writes through a fixed bank
// selected by VBK regardless of LCD mode.
func (p *PPU) writeVRAM(address uint16, value uint8) {
	p.vram[p.vbk&1][address-0x8000] = value
}

// Read dispatches an I/O or memory read into the PPU.
func (p *PPU) Read(address uint16) uint8 {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		return p.vram[p.vbk&1][address-0x8000]
	case address >= 0xFE00 && address <= 0xFE9F:
		return p.OAM.Read(address)
	}
	switch address {
	case types.LCDC:
		return p.readLCDC()
	case types.STAT:
		return p.readSTAT()
	case types.SCY:
		return p.scy
	case types.SCX:
		return p.scx
	case types.LY:
		return p.ly
	case types.LYC:
		return p.lyc
	case types.BGP:
		return p.bgp
	case types.OBP0:
		return p.obp0
	case types.OBP1:
		return p.obp1
	case types.WY:
		return p.wy
	case types.WX:
		return p.wx
	case types.VBK:
		return p.vbk | 0xFE
	case types.BCPS:
		return p.bcps.GetIndex()
	case types.BCPD:
		return p.bcps.Read()
	case types.OCPS:
		return p.ocps.GetIndex()
	case types.OCPD:
		return p.ocps.Read()
	case types.OPRI:
		return p.opri
	}
	return 0xFF
}

// Write dispatches an I/O or memory write into the PPU.
func (p *PPU) Write(address uint16, value uint8) {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		p.vram[p.vbk&1][address-0x8000] = value
		return
	case address >= 0xFE00 && address <= 0xFE9F:
		p.OAM.Write(address, value)
		return
	}
	switch address {
	case types.LCDC:
		p.writeLCDC(value)
	case types.STAT:
		p.writeSTAT(value)
	case types.SCY:
		p.scy = value
	case types.SCX:
		p.scx = value
	case types.LYC:
		p.lyc = value
		p.updateLYC()
	case types.BGP:
		p.bgp = value
	case types.OBP0:
		p.obp0 = value
	case types.OBP1:
		p.obp1 = value
	case types.WY:
		p.wy = value
	case types.WX:
		p.wx = value
	case types.VBK:
		p.vbk = value & 1
	case types.BCPS:
		p.bcps.SetIndex(value)
	case types.BCPD:
		p.bcps.Write(value)
	case types.OCPS:
		p.ocps.SetIndex(value)
	case types.OCPD:
		p.ocps.Write(value)
	case types.OPRI:
		p.opri = value & 1
	}
}

func (p *PPU) readLCDC() uint8 {
	var v uint8
	if p.enabled {
		v |= types.Bit7
	}
	if p.winTileMap == 1 {
		v |= types.Bit6
	}
	if p.winEnabled {
		v |= types.Bit5
	}
	if p.addressMode == 1 {
		v |= types.Bit4
	}
	if p.bgTileMap == 1 {
		v |= types.Bit3
	}
	if p.objSize == 16 {
		v |= types.Bit2
	}
	if p.objEnabled {
		v |= types.Bit1
	}
	if p.bgEnabled {
		v |= types.Bit0
	}
	return v
}

func (p *PPU) writeLCDC(v uint8) {
	wasEnabled := p.enabled
	p.enabled = v&types.Bit7 != 0
	p.winTileMap = (v >> 6) & 1
	p.winEnabled = v&types.Bit5 != 0
	if v&types.Bit4 != 0 {
		p.addressMode = 1
	} else {
		p.addressMode = 0
	}
	p.bgTileMap = (v >> 3) & 1
	if v&types.Bit2 != 0 {
		p.objSize = 16
	} else {
		p.objSize = 8
	}
	p.objEnabled = v&types.Bit1 != 0
	p.bgEnabled = v&types.Bit0 != 0

	if wasEnabled && !p.enabled {
		p.ly = 0
		p.dot = 0
		p.mode = ModeHBlank
		for y := range p.Framebuffer {
			for x := range p.Framebuffer[y] {
				p.Framebuffer[y][x] = palette.ByteToPalette(0).GetColour(0)
			}
		}
	} else if !wasEnabled && p.enabled {
		p.ly = 0
		p.dot = 0
		p.wly = 0
		p.winTriggered = false
		p.justEnabled = true
		p.setMode(ModeOAM)
	}
}

func (p *PPU) readSTAT() uint8 {
	v := uint8(0x80) | p.mode
	if p.lycMatchLast {
		v |= types.Bit2
	}
	for i, en := range p.statIntMode {
		if en {
			v |= 1 << (3 + i)
		}
	}
	return v
}

func (p *PPU) writeSTAT(v uint8) {
	p.statIntMode[0] = v&types.Bit3 != 0
	p.statIntMode[1] = v&types.Bit4 != 0
	p.statIntMode[2] = v&types.Bit5 != 0
	p.statIntMode[3] = v&types.Bit6 != 0
	p.updateStatLine()
}

var _ types.Stater = (*PPU)(nil)

func (p *PPU) Load(s *types.State) {
	p.enabled = s.ReadBool()
	p.bgEnabled = s.ReadBool()
	p.winEnabled = s.ReadBool()
	p.objEnabled = s.ReadBool()
	p.bgTileMap = s.Read8()
	p.winTileMap = s.Read8()
	p.objSize = s.Read8()
	p.addressMode = s.Read8()
	p.mode = s.Read8()
	p.lyc = s.Read8()
	for i := range p.statIntMode {
		p.statIntMode[i] = s.ReadBool()
	}
	p.statLine = s.ReadBool()
	p.lycMatchLast = s.ReadBool()
	p.ly = s.Read8()
	p.dot = s.Read16()
	p.scy = s.Read8()
	p.scx = s.Read8()
	p.wy = s.Read8()
	p.wx = s.Read8()
	p.bgp = s.Read8()
	p.obp0 = s.Read8()
	p.obp1 = s.Read8()
	p.wly = s.Read8()
	p.winTriggered = s.ReadBool()
	for bank := range p.vram {
		s.ReadData(p.vram[bank][:])
	}
	p.vbk = s.Read8()
	s.ReadData(p.OAM.raw[:])
	p.bcps.Load(s)
	p.ocps.Load(s)
	p.opri = s.Read8()
	p.cgbMode = s.ReadBool()
}

func (p *PPU) Save(s *types.State) {
	s.WriteBool(p.enabled)
	s.WriteBool(p.bgEnabled)
	s.WriteBool(p.winEnabled)
	s.WriteBool(p.objEnabled)
	s.Write8(p.bgTileMap)
	s.Write8(p.winTileMap)
	s.Write8(p.objSize)
	s.Write8(p.addressMode)
	s.Write8(p.mode)
	s.Write8(p.lyc)
	for _, en := range p.statIntMode {
		s.WriteBool(en)
	}
	s.WriteBool(p.statLine)
	s.WriteBool(p.lycMatchLast)
	s.Write8(p.ly)
	s.Write16(p.dot)
	s.Write8(p.scy)
	s.Write8(p.scx)
	s.Write8(p.wy)
	s.Write8(p.wx)
	s.Write8(p.bgp)
	s.Write8(p.obp0)
	s.Write8(p.obp1)
	s.Write8(p.wly)
	s.WriteBool(p.winTriggered)
	for bank := range p.vram {
		s.WriteData(p.vram[bank][:])
	}
	s.Write8(p.vbk)
	s.WriteData(p.OAM.raw[:])
	p.bcps.Save(s)
	p.ocps.Save(s)
	s.Write8(p.opri)
	s.WriteBool(p.cgbMode)
}
