// Package timer implements the Game Boy's DIV/TIMA/TMA/TAC timer,
// including the falling-edge TIMA increment and the overflow-reload
// glitch that real hardware exhibits around TAC writes.
package timer

import (
	"github.com/thornewell/megaboy/internal/interrupts"
	"github.com/thornewell/megaboy/internal/types"
)

// divBits maps the two TAC frequency-select bits to the system-counter
// bit that is monitored for a falling edge: 00=bit9, 01=bit3, 10=bit5, 11=bit7.
var divBits = [4]uint16{512, 8, 32, 128}

// Controller is the timer/divider unit. DIV is the visible top byte of
// an internal 16-bit system counter; TIMA increments on a falling edge
// of the TAC-selected counter bit.
type Controller struct {
	sysClock uint16

	tima               uint8
	tma                uint8
	tac                uint8
	currentBit         uint16
	enabled            bool
	lastBit            bool
	overflow           bool
	ticksSinceOverflow uint8

	irq *interrupts.Service
}

// NewController returns a timer with TAC's power-on value (disabled).
func NewController(irq *interrupts.Service) *Controller {
	return &Controller{
		irq:        irq,
		currentBit: divBits[0],
		tac:        0xF8,
	}
}

// SetSysClock seeds the internal counter directly - used when a model's
// post-boot DIV value differs from zero (types.ModelDIV).
func (c *Controller) SetSysClock(v uint16) {
	c.sysClock = v
}

// ReadDIV returns the visible divider register (top byte of the counter).
func (c *Controller) ReadDIV() uint8 {
	return uint8(c.sysClock >> 8)
}

// WriteDIV resets the entire internal counter to zero, which can itself
// trigger the falling-edge TIMA glitch if the selected bit was set.
func (c *Controller) WriteDIV() {
	oldBit := c.currentBit
	wasSet := c.sysClock&oldBit != 0
	c.sysClock = 0
	if c.enabled && wasSet {
		c.incrementTIMA()
	}
	c.lastBit = false
}

// ReadTIMA returns TIMA.
func (c *Controller) ReadTIMA() uint8 {
	return c.tima
}

// WriteTIMA writes TIMA, except during the single tick where a pending
// overflow is about to reload from TMA - real hardware ignores that write.
func (c *Controller) WriteTIMA(v uint8) {
	if c.ticksSinceOverflow != 5 {
		c.tima = v
		c.overflow = false
		c.ticksSinceOverflow = 0
	}
}

// ReadTMA returns TMA.
func (c *Controller) ReadTMA() uint8 {
	return c.tma
}

// WriteTMA writes TMA. If TIMA is reloading this very tick, the new TMA
// value is latched into TIMA immediately as well.
func (c *Controller) WriteTMA(v uint8) {
	c.tma = v
	if c.ticksSinceOverflow == 5 {
		c.tima = v
	}
}

// ReadTAC returns TAC with its unused bits read back as set.
func (c *Controller) ReadTAC() uint8 {
	return c.tac | 0b1111_1000
}

// WriteTAC updates the enable bit and frequency select, applying the
// glitch that fires an extra TIMA increment when disabling (or
// reselecting to a bit that is already clear) while the old bit is set.
func (c *Controller) WriteTAC(v uint8) {
	wasEnabled := c.enabled
	oldBit := c.currentBit

	c.tac = v
	c.currentBit = divBits[v&0b11]
	c.enabled = v&0x04 != 0

	if wasEnabled && c.sysClock&oldBit != 0 {
		if !c.enabled || c.sysClock&c.currentBit == 0 {
			c.incrementTIMA()
			c.lastBit = false
		}
	}
}

func (c *Controller) incrementTIMA() {
	c.tima++
	if c.tima == 0 {
		c.overflow = true
		c.ticksSinceOverflow = 0
	}
}

// Tick advances the timer by one T-cycle, detecting falling edges of
// the TAC-selected bit and running the overflow reload sequence
// (interrupt at tick 4, TMA reload at tick 5).
func (c *Controller) Tick() {
	c.sysClock++

	if c.enabled {
		newBit := c.sysClock&c.currentBit != 0
		if !newBit && c.lastBit {
			c.incrementTIMA()
		}
		c.lastBit = newBit
	}

	if c.overflow {
		c.ticksSinceOverflow++
		switch c.ticksSinceOverflow {
		case 4:
			c.irq.Request(interrupts.TimerFlag)
		case 5:
			c.tima = c.tma
		case 6:
			c.overflow = false
			c.ticksSinceOverflow = 0
		}
	}
}

// TickM advances the timer by one M-cycle (4 T-cycles).
func (c *Controller) TickM() {
	for i := 0; i < 4; i++ {
		c.Tick()
	}
}

var _ types.Stater = (*Controller)(nil)

// Load implements types.Stater.
func (c *Controller) Load(s *types.State) {
	c.sysClock = s.Read16()
	c.tima = s.Read8()
	c.tma = s.Read8()
	c.tac = s.Read8()
	c.currentBit = s.Read16()
	c.enabled = s.ReadBool()
	c.lastBit = s.ReadBool()
	c.overflow = s.ReadBool()
	c.ticksSinceOverflow = s.Read8()
}

// Save implements types.Stater.
func (c *Controller) Save(s *types.State) {
	s.Write16(c.sysClock)
	s.Write8(c.tima)
	s.Write8(c.tma)
	s.Write8(c.tac)
	s.Write16(c.currentBit)
	s.WriteBool(c.enabled)
	s.WriteBool(c.lastBit)
	s.WriteBool(c.overflow)
	s.Write8(c.ticksSinceOverflow)
}
