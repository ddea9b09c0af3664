// Package interrupts implements the Game Boy's five-source interrupt
// controller: the IF (request) and IE (enable) registers and priority
// vector resolution.
package interrupts

import "github.com/thornewell/megaboy/internal/types"

const (
	// VBlankFlag is requested once per frame when the PPU enters VBlank.
	VBlankFlag = types.Bit0
	// LCDFlag is requested by STAT-interrupt conditions (LYC match, mode
	// change) when the corresponding STAT enable bit is set.
	LCDFlag = types.Bit1
	// TimerFlag is requested when TIMA overflows.
	TimerFlag = types.Bit2
	// SerialFlag is requested when a serial transfer completes.
	SerialFlag = types.Bit3
	// JoypadFlag is requested on a high-to-low transition of any selected
	// P1 input line.
	JoypadFlag = types.Bit4
)

// Service owns the IF/IE registers and resolves the highest-priority
// pending interrupt. Priority is VBlank > LCD STAT > Timer > Serial >
// Joypad, encoded by bit position / vector order below.
type Service struct {
	Flag   uint8 // IF - interrupt request flags (lower 5 bits used)
	Enable uint8 // IE - interrupt enable flags
	IME    bool  // master enable, set/cleared by EI/DI/RETI and interrupt dispatch
}

// NewService returns a new interrupt controller with nothing pending.
func NewService() *Service {
	return &Service{}
}

// ReadIF returns IF with the unused upper bits read back as set, matching
// real hardware.
func (s *Service) ReadIF() uint8 {
	return s.Flag | 0xE0
}

// WriteIF writes IF, masking to the 5 usable bits.
func (s *Service) WriteIF(v uint8) {
	s.Flag = v & 0x1F
}

// ReadIE returns IE.
func (s *Service) ReadIE() uint8 {
	return s.Enable
}

// WriteIE writes IE.
func (s *Service) WriteIE(v uint8) {
	s.Enable = v
}

// HasInterrupts reports whether any interrupt is both requested and
// enabled, regardless of IME - used to wake the CPU from HALT/STOP.
func (s *Service) HasInterrupts() bool {
	return s.Enable&s.Flag != 0
}

// Request sets the given interrupt's pending bit in IF.
func (s *Service) Request(flag uint8) {
	s.Flag |= flag
}

// Vector returns the vector address of the highest-priority interrupt
// that is both requested and enabled, clearing its IF bit as a side
// effect. Returns 0 if nothing is pending - callers must check
// HasInterrupts (or the returned vector) before dispatching, since
// vector 0 is not a valid interrupt address.
func (s *Service) Vector() uint16 {
	pending := s.Enable & s.Flag
	if pending == 0 {
		return 0
	}
	for i := uint8(0); i < 5; i++ {
		flag := uint8(1) << i
		if pending&flag != 0 {
			s.Flag &^= flag
			return 0x0040 + uint16(i)*8
		}
	}
	return 0
}

var _ types.Stater = (*Service)(nil)

// Load implements types.Stater.
func (s *Service) Load(st *types.State) {
	s.Flag = st.Read8()
	s.Enable = st.Read8()
	s.IME = st.ReadBool()
}

// Save implements types.Stater.
func (s *Service) Save(st *types.State) {
	st.Write8(s.Flag)
	st.Write8(s.Enable)
	st.WriteBool(s.IME)
}
