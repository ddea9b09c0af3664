// Package apu implements the Game Boy's audio processing unit: four
// sound-generating channels, a 512 Hz frame sequencer that clocks their
// length/envelope/sweep units, and a stereo mixer. Playback devices are
// a host concern; this package exposes generated samples through Pull.
package apu

import "github.com/thornewell/megaboy/internal/types"

const (
	// SampleRate is the rate, in Hz, at which Pull produces samples.
	SampleRate = 65536
	// cyclesPerSample is how many APU ticks (T-cycles) separate samples.
	cyclesPerSample = 4194304 / SampleRate
	// cyclesPerFrameSequencerStep is the 512 Hz frame-sequencer period.
	cyclesPerFrameSequencerStep = 4194304 / 512

	ringBufferSamples = SampleRate / 4 // quarter-second of headroom
)

// Sample is one stereo audio sample.
type Sample struct {
	Left, Right int16
}

// APU is the Game Boy's sound hardware.
type APU struct {
	enabled bool

	chan1 *channel1
	chan2 *channel2
	chan3 *channel3
	chan4 *channel4

	frameSeqCounter int
	frameSeqStep    uint8
	sampleCounter   int

	vinLeft, vinRight       bool
	volumeLeft, volumeRight uint8
	leftEnable, rightEnable [4]bool

	ring      [ringBufferSamples]Sample
	ringHead  int
	ringTail  int
	ringCount int
}

// New returns a powered-off APU.
func New() *APU {
	return &APU{
		chan1: newChannel1(),
		chan2: newChannel2(),
		chan3: newChannel3(),
		chan4: newChannel4(),
	}
}

// firstHalfOfLengthPeriod reports whether the next frame-sequencer step
// is one that does NOT clock the length counters - used to reproduce
// the extra-clock-on-enable quirk of the length counter.
func (a *APU) firstHalfOfLengthPeriod() bool {
	return a.frameSeqStep%2 == 1
}

// Tick advances the APU by one M-cycle (4 T-cycles).
func (a *APU) Tick() {
	for i := 0; i < 4; i++ {
		a.tickT()
	}
}

// TickT advances the APU by a single T-cycle. The CPU calls it once per
// real T-cycle: 4 times per M-cycle at normal speed, 2 times in
// double-speed mode.
func (a *APU) TickT() {
	a.tickT()
}

func (a *APU) tickT() {
	if !a.enabled {
		return
	}

	a.frameSeqCounter++
	if a.frameSeqCounter >= cyclesPerFrameSequencerStep {
		a.frameSeqCounter = 0
		a.runFrameSequencer()
	}

	a.chan1.step()
	a.chan2.step()
	a.chan3.step()
	a.chan4.step()

	a.sampleCounter++
	if a.sampleCounter >= cyclesPerSample {
		a.sampleCounter = 0
		a.mixSample()
	}
}

func (a *APU) runFrameSequencer() {
	switch a.frameSeqStep {
	case 0, 2, 4, 6:
		a.chan1.lengthStep()
		a.chan2.lengthStep()
		a.chan3.lengthStep()
		a.chan4.lengthStep()
		if a.frameSeqStep == 2 || a.frameSeqStep == 6 {
			a.chan1.sweepClock()
		}
	case 7:
		a.chan1.volumeStep()
		a.chan2.volumeStep()
		a.chan4.volumeStep()
	}
	a.frameSeqStep = (a.frameSeqStep + 1) & 7
}

func (a *APU) mixSample() {
	outputs := [4]int{
		int(a.chan1.amplitude()),
		int(a.chan2.amplitude()),
		int(a.chan3.amplitude()),
		int(a.chan4.amplitude()),
	}

	var left, right int
	for i, out := range outputs {
		if a.leftEnable[i] {
			left += out
		}
		if a.rightEnable[i] {
			right += out
		}
	}

	// scale ~0-60 (4 channels x 0-15) by volume (0-7) up to int16 range.
	left = left * int(a.volumeLeft+1) * 256
	right = right * int(a.volumeRight+1) * 256

	a.pushSample(Sample{Left: clampSample(left), Right: clampSample(right)})
}

func clampSample(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (a *APU) pushSample(s Sample) {
	a.ring[a.ringTail] = s
	a.ringTail = (a.ringTail + 1) % ringBufferSamples
	if a.ringCount < ringBufferSamples {
		a.ringCount++
	} else {
		a.ringHead = (a.ringHead + 1) % ringBufferSamples
	}
}

// Pull drains up to len(dst) buffered samples into dst, returning the
// number written. Callers (a host audio driver) poll this; the core
// never blocks waiting for playback.
func (a *APU) Pull(dst []Sample) int {
	n := 0
	for n < len(dst) && a.ringCount > 0 {
		dst[n] = a.ring[a.ringHead]
		a.ringHead = (a.ringHead + 1) % ringBufferSamples
		a.ringCount--
		n++
	}
	return n
}

// Read dispatches an I/O read to the addressed APU register.
func (a *APU) Read(address uint16) uint8 {
	switch address {
	case types.NR10:
		return a.chan1.readNR10()
	case types.NR11:
		return a.chan1.readNR11()
	case types.NR12:
		return a.chan1.readNR12()
	case types.NR13:
		return 0xFF
	case types.NR14:
		return a.chan1.readNR14()
	case types.NR21:
		return a.chan2.readNR21()
	case types.NR22:
		return a.chan2.readNR22()
	case types.NR23:
		return 0xFF
	case types.NR24:
		return a.chan2.readNR24()
	case types.NR30:
		return a.chan3.readNR30()
	case types.NR31:
		return 0xFF
	case types.NR32:
		return a.chan3.readNR32()
	case types.NR33:
		return 0xFF
	case types.NR34:
		return a.chan3.readNR34()
	case types.NR41:
		return 0xFF
	case types.NR42:
		return a.chan4.readNR42()
	case types.NR43:
		return (a.chan4.clockShift << 4) | b2u8(a.chan4.widthMode)<<3 | a.chan4.divisorCode
	case types.NR44:
		return a.chan4.readNR44()
	case types.NR50:
		return a.readNR50()
	case types.NR51:
		return a.readNR51()
	case types.NR52:
		return a.readNR52()
	default:
		if address >= types.WaveRAMStart && address <= types.WaveRAMEnd {
			return a.chan3.readWaveRAM(address)
		}
		return 0xFF
	}
}

// Write dispatches an I/O write to the addressed APU register. Writes
// to channel registers (other than NR52 and the length-only fields) are
// ignored while the APU is powered off, matching hardware.
func (a *APU) Write(address uint16, value uint8) {
	if address == types.NR52 {
		a.writeNR52(value)
		return
	}
	if address >= types.WaveRAMStart && address <= types.WaveRAMEnd {
		a.chan3.writeWaveRAM(address, value)
		return
	}
	if !a.enabled {
		// length-load registers remain writable on DMG while powered off.
		switch address {
		case types.NR11:
			a.chan1.lengthCounter = 0x40 - uint(value&0x3F)
			return
		case types.NR21:
			a.chan2.lengthCounter = 0x40 - uint(value&0x3F)
			return
		case types.NR31:
			a.chan3.writeNR31(value)
			return
		case types.NR41:
			a.chan4.writeNR41(value)
			return
		}
		return
	}

	switch address {
	case types.NR10:
		a.chan1.writeNR10(value)
	case types.NR11:
		a.chan1.writeNR11(value)
	case types.NR12:
		a.chan1.writeNR12(value)
	case types.NR13:
		a.chan1.writeNR13(value)
	case types.NR14:
		a.chan1.writeNR14(value, a.firstHalfOfLengthPeriod())
	case types.NR21:
		a.chan2.writeNR21(value)
	case types.NR22:
		a.chan2.writeNR22(value)
	case types.NR23:
		a.chan2.writeNR23(value)
	case types.NR24:
		a.chan2.writeNR24(value, a.firstHalfOfLengthPeriod())
	case types.NR30:
		a.chan3.writeNR30(value)
	case types.NR31:
		a.chan3.writeNR31(value)
	case types.NR32:
		a.chan3.writeNR32(value)
	case types.NR33:
		a.chan3.writeNR33(value)
	case types.NR34:
		a.chan3.writeNR34(value, a.firstHalfOfLengthPeriod())
	case types.NR41:
		a.chan4.writeNR41(value)
	case types.NR42:
		a.chan4.writeNR42(value)
	case types.NR43:
		a.chan4.writeNR43(value)
	case types.NR44:
		a.chan4.writeNR44(value, a.firstHalfOfLengthPeriod())
	case types.NR50:
		a.writeNR50(value)
	case types.NR51:
		a.writeNR51(value)
	}
}

func (a *APU) readNR50() uint8 {
	b := a.volumeRight | a.volumeLeft<<4
	if a.vinRight {
		b |= types.Bit3
	}
	if a.vinLeft {
		b |= types.Bit7
	}
	return b
}

func (a *APU) writeNR50(v uint8) {
	a.volumeRight = v & 0x7
	a.volumeLeft = (v >> 4) & 0x7
	a.vinRight = v&types.Bit3 != 0
	a.vinLeft = v&types.Bit7 != 0
}

func (a *APU) readNR51() uint8 {
	b := uint8(0)
	for i := 0; i < 4; i++ {
		if a.rightEnable[i] {
			b |= 1 << i
		}
		if a.leftEnable[i] {
			b |= 1 << (i + 4)
		}
	}
	return b
}

func (a *APU) writeNR51(v uint8) {
	for i := 0; i < 4; i++ {
		a.rightEnable[i] = v&(1<<i) != 0
		a.leftEnable[i] = v&(1<<(i+4)) != 0
	}
}

func (a *APU) readNR52() uint8 {
	b := uint8(0x70)
	if a.enabled {
		b |= types.Bit7
	}
	if a.chan1.isEnabled() {
		b |= types.Bit0
	}
	if a.chan2.isEnabled() {
		b |= types.Bit1
	}
	if a.chan3.isEnabled() {
		b |= types.Bit2
	}
	if a.chan4.isEnabled() {
		b |= types.Bit3
	}
	return b
}

func (a *APU) writeNR52(v uint8) {
	enable := v&types.Bit7 != 0
	if a.enabled && !enable {
		*a = APU{chan1: newChannel1(), chan2: newChannel2(), chan3: newChannel3(), chan4: newChannel4(),
			ring: a.ring, ringHead: a.ringHead, ringTail: a.ringTail, ringCount: a.ringCount}
	} else if !a.enabled && enable {
		a.enabled = true
		a.frameSeqStep = 0
	}
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var _ types.Stater = (*APU)(nil)

// Load implements types.Stater.
func (a *APU) Load(s *types.State) {
	a.enabled = s.ReadBool()
	a.volumeLeft = s.Read8()
	a.volumeRight = s.Read8()
	a.vinLeft = s.ReadBool()
	a.vinRight = s.ReadBool()
	for i := 0; i < 4; i++ {
		a.leftEnable[i] = s.ReadBool()
		a.rightEnable[i] = s.ReadBool()
	}
	a.frameSeqStep = s.Read8()
	loadChannel1(a.chan1, s)
	loadChannel2(a.chan2, s)
	loadChannel3(a.chan3, s)
	loadChannel4(a.chan4, s)
}

// Save implements types.Stater.
func (a *APU) Save(s *types.State) {
	s.WriteBool(a.enabled)
	s.Write8(a.volumeLeft)
	s.Write8(a.volumeRight)
	s.WriteBool(a.vinLeft)
	s.WriteBool(a.vinRight)
	for i := 0; i < 4; i++ {
		s.WriteBool(a.leftEnable[i])
		s.WriteBool(a.rightEnable[i])
	}
	s.Write8(a.frameSeqStep)
	saveChannel1(a.chan1, s)
	saveChannel2(a.chan2, s)
	saveChannel3(a.chan3, s)
	saveChannel4(a.chan4, s)
}
