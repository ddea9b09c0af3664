package apu

import "github.com/thornewell/megaboy/internal/types"

func saveChannel(c *channel, s *types.State) {
	s.WriteBool(c.enabled)
	s.WriteBool(c.dacEnabled)
	s.Write32(uint32(c.lengthCounter))
	s.WriteBool(c.lengthCounterEnabled)
	s.Write32(c.frequencyTimer)
}

func loadChannel(c *channel, s *types.State) {
	c.enabled = s.ReadBool()
	c.dacEnabled = s.ReadBool()
	c.lengthCounter = uint(s.Read32())
	c.lengthCounterEnabled = s.ReadBool()
	c.frequencyTimer = s.Read32()
}

func saveEnvelope(v *volumeEnvelope, s *types.State) {
	s.Write8(v.startingVolume)
	s.WriteBool(v.envelopeAddMode)
	s.Write8(v.period)
	s.Write8(v.envelopeTimer)
	s.Write8(v.currentVolume)
	s.WriteBool(v.updating)
}

func loadEnvelope(v *volumeEnvelope, s *types.State) {
	v.startingVolume = s.Read8()
	v.envelopeAddMode = s.ReadBool()
	v.period = s.Read8()
	v.envelopeTimer = s.Read8()
	v.currentVolume = s.Read8()
	v.updating = s.ReadBool()
}

func saveChannel1(c *channel1, s *types.State) {
	saveChannel(&c.channel, s)
	saveEnvelope(&c.volumeEnvelope, s)
	s.Write8(c.duty)
	s.Write8(c.waveDutyPosition)
	s.Write16(c.frequency)
	s.Write8(c.sweepPeriod)
	s.WriteBool(c.negate)
	s.Write8(c.shift)
	s.Write8(c.sweepTimer)
	s.Write16(c.frequencyShadow)
	s.WriteBool(c.sweepEnabled)
	s.WriteBool(c.negateHasHappened)
}

func loadChannel1(c *channel1, s *types.State) {
	loadChannel(&c.channel, s)
	loadEnvelope(&c.volumeEnvelope, s)
	c.duty = s.Read8()
	c.waveDutyPosition = s.Read8()
	c.frequency = s.Read16()
	c.sweepPeriod = s.Read8()
	c.negate = s.ReadBool()
	c.shift = s.Read8()
	c.sweepTimer = s.Read8()
	c.frequencyShadow = s.Read16()
	c.sweepEnabled = s.ReadBool()
	c.negateHasHappened = s.ReadBool()
}

func saveChannel2(c *channel2, s *types.State) {
	saveChannel(&c.channel, s)
	saveEnvelope(&c.volumeEnvelope, s)
	s.Write8(c.duty)
	s.Write8(c.waveDutyPosition)
	s.Write16(c.frequency)
}

func loadChannel2(c *channel2, s *types.State) {
	loadChannel(&c.channel, s)
	loadEnvelope(&c.volumeEnvelope, s)
	c.duty = s.Read8()
	c.waveDutyPosition = s.Read8()
	c.frequency = s.Read16()
}

func saveChannel3(c *channel3, s *types.State) {
	saveChannel(&c.channel, s)
	s.WriteData(c.waveRAM[:])
	s.Write8(c.wavePos)
	s.Write8(c.sampleHold)
	s.Write8(c.lengthLoad)
	s.Write8(c.volumeCode)
	s.Write8(c.volumeCodeShift)
	s.Write16(c.frequency)
	s.Write8(c.ticksSinceRead)
}

func loadChannel3(c *channel3, s *types.State) {
	loadChannel(&c.channel, s)
	s.ReadData(c.waveRAM[:])
	c.wavePos = s.Read8()
	c.sampleHold = s.Read8()
	c.lengthLoad = s.Read8()
	c.volumeCode = s.Read8()
	c.volumeCodeShift = s.Read8()
	c.frequency = s.Read16()
	c.ticksSinceRead = s.Read8()
}

func saveChannel4(c *channel4, s *types.State) {
	saveChannel(&c.channel, s)
	saveEnvelope(&c.volumeEnvelope, s)
	s.Write16(c.lfsr)
	s.Write8(c.lengthLoad)
	s.Write8(c.clockShift)
	s.WriteBool(c.widthMode)
	s.Write8(c.divisorCode)
}

func loadChannel4(c *channel4, s *types.State) {
	loadChannel(&c.channel, s)
	loadEnvelope(&c.volumeEnvelope, s)
	c.lfsr = s.Read16()
	c.lengthLoad = s.Read8()
	c.clockShift = s.Read8()
	c.widthMode = s.ReadBool()
	c.divisorCode = s.Read8()
}
