package apu

import "github.com/thornewell/megaboy/internal/types"

// channel holds the state shared by all four sound channels: the
// frequency timer that paces wave generation and the length counter
// that can auto-disable the channel.
type channel struct {
	enabled    bool
	dacEnabled bool

	lengthCounter        uint
	lengthCounterEnabled bool

	frequencyTimer uint32
}

func (c *channel) isEnabled() bool {
	return c.enabled && c.dacEnabled
}

// lengthStep runs once every other frame-sequencer step (256 Hz),
// clocking the length counter toward silence.
func (c *channel) lengthStep() {
	if c.lengthCounterEnabled && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
}

// volumeEnvelope implements the NRx2-style volume envelope shared by
// channels 1, 2 and 4 (channel 3 has no envelope).
type volumeEnvelope struct {
	startingVolume  uint8
	envelopeAddMode bool
	period          uint8

	envelopeTimer uint8
	currentVolume uint8
	updating      bool
}

// setNRx2 applies a write to the envelope register, including the
// "zombie mode" glitch where writing NRx2 on an already-running channel
// can nudge the live volume.
func (v *volumeEnvelope) setNRx2(value uint8, enabled bool) bool {
	addMode := value&types.Bit3 != 0

	if enabled {
		if (v.period == 0 && v.updating) || !v.envelopeAddMode {
			v.currentVolume++
		}
		if addMode != v.envelopeAddMode {
			v.currentVolume = 0x10 - v.currentVolume
		}
		v.currentVolume &= 0x0F
	}

	v.startingVolume = value >> 4
	v.envelopeAddMode = addMode
	v.period = value & 0x07
	dacEnabled := value&0xF8 != 0
	return dacEnabled
}

func (v *volumeEnvelope) getNRx2() uint8 {
	b := (v.startingVolume << 4) | v.period
	if v.envelopeAddMode {
		b |= types.Bit3
	}
	return b
}

func (v *volumeEnvelope) init() {
	v.envelopeTimer = v.period
	v.currentVolume = v.startingVolume
	v.updating = true
}

// volumeStep runs once every 8th frame-sequencer step (64 Hz).
func (v *volumeEnvelope) volumeStep() {
	if v.period == 0 || v.envelopeTimer == 0 {
		return
	}
	v.envelopeTimer--
	if v.envelopeTimer != 0 {
		return
	}
	v.envelopeTimer = v.period
	switch {
	case v.currentVolume < 0xF && v.envelopeAddMode:
		v.currentVolume++
	case v.currentVolume > 0 && !v.envelopeAddMode:
		v.currentVolume--
	default:
		v.updating = false
	}
}

var dutyTable = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}
