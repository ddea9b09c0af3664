package cartridge

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock for deterministic RTC tests.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestMBC3(t Type, banks int, ramSize uint, clock Clock) *mbc3 {
	return newMBC3(makeBankedROM(banks), &Header{CartridgeType: t, RAMSize: ramSize}, clock)
}

// TestMBC3RTCBatteryRoundTrip is spec.md §8's first testable property
// ("loadROM then saveBattery/loadBattery round-trips RAM and RTC
// bit-exactly") applied to an RTC-equipped cartridge, and §6's 18-byte
// battery record.
func TestMBC3RTCBatteryRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestMBC3(MBC3TIMERRAMBATT, 4, 4*0x2000, clock)

	m.Write(0x0000, 0x0A) // enable RAM/RTC
	m.Write(0x4000, 0x00)
	m.Write(0xA000, 0x42) // RAM bank 0 byte

	m.Write(0x4000, 0x08) // select seconds register
	m.Write(0xA000, 12)
	m.Write(0x4000, 0x09) // minutes
	m.Write(0xA000, 34)
	m.Write(0x4000, 0x0A) // hours
	m.Write(0xA000, 5)
	m.Write(0x4000, 0x0B) // days low
	m.Write(0xA000, 200)
	m.Write(0x4000, 0x0C) // days high/control
	m.Write(0xA000, 0x01)

	m.Write(0x6000, 0x00) // latch sequence
	m.Write(0x6000, 0x01)

	data := m.SaveRAM()
	wantLen := len(m.ram) + 18
	if len(data) != wantLen {
		t.Fatalf("SaveRAM() len = %d, want %d (RAMSize + 18)", len(data), wantLen)
	}

	fresh := newTestMBC3(MBC3TIMERRAMBATT, 4, 4*0x2000, clock)
	fresh.LoadRAM(data)

	fresh.Write(0x0000, 0x0A) // enable RAM/RTC
	fresh.Write(0x4000, 0x00)
	if got := fresh.Read(0xA000); got != 0x42 {
		t.Fatalf("RAM after round trip: Read(0xA000) = %#x, want 0x42", got)
	}

	if fresh.rtc.seconds != 12 || fresh.rtc.minutes != 34 || fresh.rtc.hours != 5 ||
		fresh.rtc.daysLow != 200 || fresh.rtc.daysHighAndControl != 0x01 {
		t.Fatalf("live RTC registers did not round-trip: %+v", fresh.rtc)
	}
	if fresh.rtc.latchedSeconds != 12 || fresh.rtc.latchedMinutes != 34 || fresh.rtc.latchedHours != 5 ||
		fresh.rtc.latchedDaysLow != 200 || fresh.rtc.latchedDaysHighAndControl != 0x01 {
		t.Fatalf("latched RTC registers did not round-trip: %+v", fresh.rtc)
	}
}

// TestMBC3RTCElapsedTimeAppliedOnLoad covers spec.md §6: elapsed wall time
// since the stored timestamp is folded into the RTC on load, unless the
// clock was halted.
func TestMBC3RTCElapsedTimeAppliedOnLoad(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newTestMBC3(MBC3TIMERBATT, 2, 0, clock)

	data := m.SaveRAM()

	clock.now = clock.now.Add(90 * time.Second)
	fresh := newTestMBC3(MBC3TIMERBATT, 2, 0, clock)
	fresh.LoadRAM(data)

	if fresh.rtc.seconds != 30 || fresh.rtc.minutes != 1 {
		t.Fatalf("elapsed time not applied: seconds=%d minutes=%d, want 30s 1m", fresh.rtc.seconds, fresh.rtc.minutes)
	}
}

// TestMBC3RTCHaltedSkipsElapsedTime confirms the halt bit (DH bit 6) is
// respected across a save/load round trip, not just live advance().
func TestMBC3RTCHaltedSkipsElapsedTime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newTestMBC3(MBC3TIMERBATT, 2, 0, clock)

	m.Write(0x0000, 0x0A) // enable RAM/RTC
	m.Write(0x4000, 0x0C)
	m.Write(0xA000, 0x40) // halt bit set

	data := m.SaveRAM()

	clock.now = clock.now.Add(time.Hour)
	fresh := newTestMBC3(MBC3TIMERBATT, 2, 0, clock)
	fresh.LoadRAM(data)

	if fresh.rtc.seconds != 0 || fresh.rtc.minutes != 0 || fresh.rtc.hours != 0 {
		t.Fatalf("halted RTC advanced across load: %+v", fresh.rtc)
	}
}
