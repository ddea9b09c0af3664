// Package joypad implements the Game Boy's P1 input register: button
// state latching and the falling-edge joypad interrupt.
package joypad

import (
	"github.com/thornewell/megaboy/internal/interrupts"
	"github.com/thornewell/megaboy/internal/types"
)

// Button identifies one of the eight physical inputs.
type Button = uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonRight
	ButtonLeft
	ButtonUp
	ButtonDown
)

// State tracks which buttons are held and produces the P1 register.
//
//	Bit 5 - P15 select button keys    (0=select)
//	Bit 4 - P14 select direction keys (0=select)
//	Bit 3-0 - line state, 0=pressed, read only
type State struct {
	pressed   uint8 // bit N set = button N held
	selectBtn bool
	selectDir bool

	irq *interrupts.Service
}

// New returns a joypad with nothing held.
func New(irq *interrupts.Service) *State {
	return &State{irq: irq}
}

// ReadP1 returns the current P1 register value.
func (s *State) ReadP1() uint8 {
	lines := uint8(0xF)
	if s.selectBtn {
		lines &= ^(s.pressed & 0xF) & 0xF
	}
	if s.selectDir {
		lines &= ^((s.pressed >> 4) & 0xF) & 0xF
	}
	v := uint8(0xC0) | lines
	if !s.selectBtn {
		v |= types.Bit5
	}
	if !s.selectDir {
		v |= types.Bit4
	}
	return v
}

// WriteP1 updates which group of lines (buttons/direction) is selected.
func (s *State) WriteP1(v uint8) {
	s.selectBtn = v&types.Bit5 == 0
	s.selectDir = v&types.Bit4 == 0
}

// Press marks a button held, requesting the joypad interrupt on the
// transition (real hardware fires it off any selected line going low).
func (s *State) Press(button Button) {
	held := s.pressed&(1<<button) != 0
	s.pressed |= 1 << button
	if !held && ((button < 4 && s.selectBtn) || (button >= 4 && s.selectDir)) {
		s.irq.Request(interrupts.JoypadFlag)
	}
}

// Release marks a button no longer held.
func (s *State) Release(button Button) {
	s.pressed &^= 1 << button
}

var _ types.Stater = (*State)(nil)

// Load implements types.Stater.
func (s *State) Load(st *types.State) {
	s.pressed = st.Read8()
	s.selectBtn = st.ReadBool()
	s.selectDir = st.ReadBool()
}

// Save implements types.Stater.
func (s *State) Save(st *types.State) {
	st.Write8(s.pressed)
	st.WriteBool(s.selectBtn)
	st.WriteBool(s.selectDir)
}
