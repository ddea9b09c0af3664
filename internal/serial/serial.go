// Package serial implements the Game Boy's serial link: the SB shift
// register, the SC control register, and the bit-clocked transfer that
// drives the serial interrupt.
//
// Each transferred bit shifts the outgoing bit out of SB's top and a
// Device's incoming bit in at the bottom:
//
//	Before : SB = o7 o6 o5 o4 o3 o2 o1 o0
//	Cycle 1: SB = o6 o5 o4 o3 o2 o1 o0 i0
//	...
//	Cycle 8: SB = i0 i1 i2 i3 i4 i5 i6 i7
package serial

import (
	"github.com/thornewell/megaboy/internal/interrupts"
	"github.com/thornewell/megaboy/internal/types"
)

// ticksPerBit is the number of M-cycles between shifted bits when this
// Game Boy supplies the internal clock (8192 Hz, 512 Hz when doubled is
// out of scope - CGB double-speed serial is not modeled).
const ticksPerBit = 128

// Device is an external peer connected to the serial port. No concrete
// transport (link cable, network bridge) ships with the core; callers
// that want multiplayer/link-cable behavior provide their own Device.
type Device interface {
	// Send returns the next outgoing bit to present to this Game Boy.
	Send() bool
	// Receive accepts the bit this Game Boy just shifted out.
	Receive(bit bool)
}

// nullDevice models an unplugged cable: it always shifts in 1s and
// discards whatever is sent to it.
type nullDevice struct{}

func (nullDevice) Send() bool     { return true }
func (nullDevice) Receive(bool)   {}

// Controller is the SB/SC serial transfer unit.
type Controller struct {
	data            uint8
	internalClock   bool
	transferRequest bool
	count           uint8
	ticksToNextBit  uint16

	device Device
	irq    *interrupts.Service
}

// NewController returns a serial controller with no device attached.
func NewController(irq *interrupts.Service) *Controller {
	return &Controller{irq: irq, device: nullDevice{}}
}

// Attach connects a Device as the link-cable peer.
func (c *Controller) Attach(d Device) {
	if d == nil {
		d = nullDevice{}
	}
	c.device = d
}

// ReadSB returns the data register.
func (c *Controller) ReadSB() uint8 {
	return c.data
}

// WriteSB sets the data register.
func (c *Controller) WriteSB(v uint8) {
	c.data = v
}

// ReadSC returns the control register, with the unused bits 1-6 read
// back as set.
func (c *Controller) ReadSC() uint8 {
	v := uint8(0x7E)
	if c.internalClock {
		v |= types.Bit0
	}
	if c.transferRequest {
		v |= types.Bit7
	}
	return v
}

// WriteSC starts a transfer when bit 7 is set and this Game Boy is the
// clock master.
func (c *Controller) WriteSC(v uint8) {
	c.internalClock = v&types.Bit0 != 0
	c.transferRequest = v&types.Bit7 != 0

	if c.transferRequest && c.internalClock {
		c.count = 0
		c.ticksToNextBit = ticksPerBit
	}
}

// TickM advances the transfer by one M-cycle.
func (c *Controller) TickM() {
	if !c.transferRequest || !c.internalClock {
		return
	}
	if c.ticksToNextBit > 1 {
		c.ticksToNextBit--
		return
	}

	outgoing := c.data&types.Bit7 != 0
	incoming := c.device.Send()
	c.device.Receive(outgoing)

	c.data = c.data<<1
	if incoming {
		c.data |= 1
	}

	c.count++
	if c.count == 8 {
		c.count = 0
		c.transferRequest = false
		c.irq.Request(interrupts.SerialFlag)
	} else {
		c.ticksToNextBit = ticksPerBit
	}
}

var _ types.Stater = (*Controller)(nil)

// Load implements types.Stater.
func (c *Controller) Load(s *types.State) {
	c.data = s.Read8()
	c.internalClock = s.ReadBool()
	c.transferRequest = s.ReadBool()
	c.count = s.Read8()
	c.ticksToNextBit = s.Read16()
}

// Save implements types.Stater.
func (c *Controller) Save(s *types.State) {
	s.Write8(c.data)
	s.WriteBool(c.internalClock)
	s.WriteBool(c.transferRequest)
	s.Write8(c.count)
	s.Write16(c.ticksToNextBit)
}
