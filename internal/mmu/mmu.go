// Package mmu provides the Game Boy's memory management unit: the
// single 64kB address-space dispatcher that routes every CPU read/write
// to the cartridge, work RAM, or the right hardware register owner.
package mmu

import (
	"github.com/thornewell/megaboy/internal/apu"
	"github.com/thornewell/megaboy/internal/boot"
	"github.com/thornewell/megaboy/internal/cartridge"
	"github.com/thornewell/megaboy/internal/interrupts"
	"github.com/thornewell/megaboy/internal/joypad"
	"github.com/thornewell/megaboy/internal/ppu"
	"github.com/thornewell/megaboy/internal/serial"
	"github.com/thornewell/megaboy/internal/timer"
	"github.com/thornewell/megaboy/internal/types"
)

// MMU is the memory management unit. It owns no emulation behavior of
// its own beyond address decoding, OAM-DMA bus contention, and the
// boot-ROM overlay; every register read/write is delegated to the
// component that owns it.
type MMU struct {
	Cart   cartridge.Cartridge
	WRAM   *WRAM
	Video  *ppu.PPU
	Sound  *apu.APU
	Pad    *joypad.State
	Serial *serial.Controller
	Timer  *timer.Controller
	IRQ    *interrupts.Service

	dma  *ppu.DMA
	hdma *ppu.HDMA

	zram [127]uint8 // 0xFF80-0xFFFE

	bootROM     *boot.ROM
	bootROMDone bool

	cgb         bool
	key0        uint8 // CGB mode-select, latched before boot-ROM disable
	doubleSpeed bool
	prepSpeed   bool // KEY1 bit 0: speed-switch armed by CPU's STOP handler

	lastPPUMode uint8
}

// New returns an MMU with every component wired. cart must already be
// loaded; bootROM may be nil to skip the boot sequence entirely
// (bootROMDone starts true in that case).
func New(cart cartridge.Cartridge, irq *interrupts.Service, bootROM *boot.ROM, cgb bool) *MMU {
	m := &MMU{
		Cart:    cart,
		WRAM:    NewWRAM(),
		Video:   ppu.New(irq),
		Sound:   apu.New(),
		Pad:     joypad.New(irq),
		Serial:  serial.NewController(irq),
		Timer:   timer.NewController(irq),
		IRQ:     irq,
		bootROM: bootROM,
		cgb:     cgb,
	}
	m.bootROMDone = bootROM == nil
	m.Video.SetCGBMode(cgb)
	m.dma = ppu.NewDMA(m, &m.Video.OAM)
	m.hdma = ppu.NewHDMA(m, m.Video)
	return m
}

// DMA returns the OAM-DMA unit, so the CPU's tick loop can advance it.
func (m *MMU) DMA() *ppu.DMA { return m.dma }

// BootROMActive reports whether the boot ROM overlay is still mapped,
// i.e. the cartridge hasn't been handed control via a BDIS write yet.
func (m *MMU) BootROMActive() bool {
	return m.bootROM != nil && !m.bootROMDone
}

// TickVideo advances the PPU by one T-cycle and, on the edge where it
// enters HBlank, drives one pending block of an active HBlank-paced
// VRAM DMA transfer. The CPU's tick loop calls this instead of ticking
// Video directly, since the HDMA controller has no way to observe PPU
// mode transitions on its own.
func (m *MMU) TickVideo() {
	m.Video.Tick()
	mode := m.Video.Mode()
	if mode == ppu.ModeHBlank && m.lastPPUMode != ppu.ModeHBlank {
		m.hdma.OnHBlank()
	}
	m.lastPPUMode = mode
}

// DoubleSpeed reports whether the CPU is currently running at double
// speed (CGB only).
func (m *MMU) DoubleSpeed() bool { return m.doubleSpeed }

// SpeedSwitchArmed reports whether KEY1 was written with bit 0 set,
// meaning the next STOP instruction should perform the speed switch.
func (m *MMU) SpeedSwitchArmed() bool { return m.prepSpeed }

// PerformSpeedSwitch flips the double-speed flag and disarms the
// pending switch - called by the CPU's STOP handling.
func (m *MMU) PerformSpeedSwitch() {
	m.doubleSpeed = !m.doubleSpeed
	m.prepSpeed = false
}

// inBootROM reports whether address is currently overlaid by the boot
// ROM: 0x0000-0x00FF always, plus 0x0200-0x08FF whenever the MMU runs
// in CGB mode.
func (m *MMU) inBootROM(address uint16) bool {
	if m.bootROMDone || m.bootROM == nil {
		return false
	}
	if address <= 0x00FF {
		return true
	}
	return m.cgb && address >= 0x0200 && address <= 0x08FF
}

// Read dispatches a CPU (or other bus-master) read across the full
// 64kB address space.
func (m *MMU) Read(address uint16) uint8 {
	switch {
	case m.inBootROM(address):
		return m.bootROM.Read(address)
	case address < 0x8000:
		return m.Cart.Read(address)
	case address < 0xA000:
		return m.Video.Read(address)
	case address < 0xC000:
		return m.Cart.Read(address)
	case address < 0xFE00:
		return m.WRAM.Read(address)
	case address < 0xFEA0:
		if m.dma.IsTransferring() {
			return 0xFF
		}
		return m.Video.Read(address)
	case address < 0xFF00:
		return 0xFF // unusable
	case address == types.P1:
		return m.Pad.ReadP1()
	case address == types.SB:
		return m.Serial.ReadSB()
	case address == types.SC:
		return m.Serial.ReadSC()
	case address == types.DIV:
		return m.Timer.ReadDIV()
	case address == types.TIMA:
		return m.Timer.ReadTIMA()
	case address == types.TMA:
		return m.Timer.ReadTMA()
	case address == types.TAC:
		return m.Timer.ReadTAC()
	case address == types.IF:
		return m.IRQ.ReadIF()
	case address == types.KEY0:
		return m.key0
	case address == types.KEY1:
		return m.readKEY1()
	case address == types.BDIS:
		if m.bootROMDone {
			return 0xFF
		}
		return 0x00
	case address == types.HDMA5:
		return m.hdma.ReadHDMA5()
	case address == types.RP:
		return 0x02
	case address >= types.NR10 && address <= types.NR52, address >= types.WaveRAMStart && address <= types.WaveRAMEnd:
		return m.Sound.Read(address)
	case address >= types.LCDC && address <= types.WX, address == types.VBK,
		address == types.BCPS, address == types.BCPD, address == types.OCPS, address == types.OCPD, address == types.OPRI:
		return m.Video.Read(address)
	case address == types.DMA:
		return m.dma.ReadDMA()
	case address == types.SVBK:
		return m.WRAM.ReadSVBK()
	case address < 0xFF80:
		return 0xFF
	case address < 0xFFFF:
		return m.zram[address-0xFF80]
	case address == types.IE:
		return m.IRQ.ReadIE()
	}
	return 0xFF
}

// Write dispatches a CPU (or other bus-master) write across the full
// 64kB address space.
func (m *MMU) Write(address uint16, value uint8) {
	switch {
	case m.inBootROM(address):
		return // boot ROM is read-only and not bank switched
	case address < 0x8000:
		m.Cart.Write(address, value)
	case address < 0xA000:
		m.Video.Write(address, value)
	case address < 0xC000:
		m.Cart.Write(address, value)
	case address < 0xFE00:
		m.WRAM.Write(address, value)
	case address < 0xFEA0:
		if !m.dma.IsTransferring() {
			m.Video.Write(address, value)
		}
	case address < 0xFF00:
		// unusable
	case address == types.P1:
		m.Pad.WriteP1(value)
	case address == types.SB:
		m.Serial.WriteSB(value)
	case address == types.SC:
		m.Serial.WriteSC(value)
	case address == types.DIV:
		m.Timer.WriteDIV()
	case address == types.TIMA:
		m.Timer.WriteTIMA(value)
	case address == types.TMA:
		m.Timer.WriteTMA(value)
	case address == types.TAC:
		m.Timer.WriteTAC(value)
	case address == types.IF:
		m.IRQ.WriteIF(value)
	case address == types.KEY0:
		if !m.bootROMDone {
			m.key0 = value
		}
	case address == types.KEY1:
		m.prepSpeed = value&types.Bit0 != 0
	case address == types.BDIS:
		if value&0x01 != 0 {
			m.bootROMDone = true
		}
	case address == types.HDMA1:
		m.hdma.WriteHDMA1(value)
	case address == types.HDMA2:
		m.hdma.WriteHDMA2(value)
	case address == types.HDMA3:
		m.hdma.WriteHDMA3(value)
	case address == types.HDMA4:
		m.hdma.WriteHDMA4(value)
	case address == types.HDMA5:
		m.hdma.WriteHDMA5(value)
	case address == types.RP:
		// infrared port - no link peripheral modeled
	case address >= types.NR10 && address <= types.NR52, address >= types.WaveRAMStart && address <= types.WaveRAMEnd:
		m.Sound.Write(address, value)
	case address >= types.LCDC && address <= types.WX, address == types.VBK,
		address == types.BCPS, address == types.BCPD, address == types.OCPS, address == types.OCPD, address == types.OPRI:
		m.Video.Write(address, value)
	case address == types.DMA:
		m.dma.WriteDMA(value)
	case address == types.SVBK:
		m.WRAM.WriteSVBK(value)
	case address < 0xFF80:
		// unmapped I/O
	case address < 0xFFFF:
		m.zram[address-0xFF80] = value
	case address == types.IE:
		m.IRQ.WriteIE(value)
	}
}

func (m *MMU) readKEY1() uint8 {
	v := uint8(0x7E)
	if m.prepSpeed {
		v |= types.Bit0
	}
	if m.doubleSpeed {
		v |= types.Bit7
	}
	return v
}

var _ types.Stater = (*MMU)(nil)

// Load implements types.Stater.
func (m *MMU) Load(s *types.State) {
	m.Cart.Load(s)
	m.WRAM.Load(s)
	m.Video.Load(s)
	m.Sound.Load(s)
	m.Pad.Load(s)
	m.Serial.Load(s)
	m.Timer.Load(s)
	m.IRQ.Load(s)
	m.dma.Load(s)
	m.hdma.Load(s)
	for i := range m.zram {
		m.zram[i] = s.Read8()
	}
	m.bootROMDone = s.ReadBool()
	m.key0 = s.Read8()
	m.doubleSpeed = s.ReadBool()
	m.prepSpeed = s.ReadBool()
}

// Save implements types.Stater.
func (m *MMU) Save(s *types.State) {
	m.Cart.Save(s)
	m.WRAM.Save(s)
	m.Video.Save(s)
	m.Sound.Save(s)
	m.Pad.Save(s)
	m.Serial.Save(s)
	m.Timer.Save(s)
	m.IRQ.Save(s)
	m.dma.Save(s)
	m.hdma.Save(s)
	for _, v := range m.zram {
		s.Write8(v)
	}
	s.WriteBool(m.bootROMDone)
	s.Write8(m.key0)
	s.WriteBool(m.doubleSpeed)
	s.WriteBool(m.prepSpeed)
}
