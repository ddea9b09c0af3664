package cartridge

import (
	"encoding/binary"
	"time"

	"github.com/thornewell/megaboy/internal/types"
)

// rtc is the MBC3 real-time clock: seconds/minutes/hours/day-counter
// registers plus a latched snapshot exposed to the CPU while the latch
// sequence (write 0x00 then 0x01 to 0x6000-0x7FFF) is held.
type rtc struct {
	seconds, minutes, hours     uint8
	daysLow                     uint8
	daysHighAndControl          uint8 // bit0: day bit8, bit6: halt, bit7: day carry
	latchedSeconds              uint8
	latchedMinutes              uint8
	latchedHours                uint8
	latchedDaysLow              uint8
	latchedDaysHighAndControl   uint8

	selected   uint8 // 0x08-0x0C register select, latched via Write(0x4000-0x5FFF)
	latchState uint8
	lastUpdate time.Time
	clock      Clock
}

func newRTC(clock Clock) *rtc {
	return &rtc{clock: clock, lastUpdate: clock.Now()}
}

// advance rolls the clock forward to the current time, unless halted.
func (r *rtc) advance() {
	if r.daysHighAndControl&0x40 != 0 {
		r.lastUpdate = r.clock.Now()
		return
	}
	delta := r.clock.Now().Sub(r.lastUpdate)
	if delta < time.Second {
		return
	}
	r.lastUpdate = r.clock.Now()

	total := int64(delta.Seconds()) + int64(r.seconds)
	r.seconds = uint8(total % 60)
	total /= 60
	total += int64(r.minutes)
	r.minutes = uint8(total % 60)
	total /= 60
	total += int64(r.hours)
	r.hours = uint8(total % 24)
	total /= 24

	days := int64(r.daysLow) | int64(r.daysHighAndControl&0x01)<<8
	days += total
	if days >= 512 {
		days %= 512
		r.daysHighAndControl |= 0x80 // day carry
	}
	r.daysLow = uint8(days & 0xFF)
	r.daysHighAndControl = (r.daysHighAndControl &^ 0x01) | uint8((days>>8)&0x01)
}

func (r *rtc) latch() {
	r.advance()
	r.latchedSeconds = r.seconds
	r.latchedMinutes = r.minutes
	r.latchedHours = r.hours
	r.latchedDaysLow = r.daysLow
	r.latchedDaysHighAndControl = r.daysHighAndControl
}

func (r *rtc) writeLatchTrigger(value uint8) {
	if r.latchState == 0x00 && value == 0x01 {
		r.latch()
	}
	r.latchState = value
}

func (r *rtc) readSelected() uint8 {
	switch r.selected {
	case 0x08:
		return r.latchedSeconds
	case 0x09:
		return r.latchedMinutes
	case 0x0A:
		return r.latchedHours
	case 0x0B:
		return r.latchedDaysLow
	case 0x0C:
		return r.latchedDaysHighAndControl
	default:
		return 0xFF
	}
}

func (r *rtc) writeSelected(value uint8) {
	r.advance()
	switch r.selected {
	case 0x08:
		r.seconds = value & 0x3F
	case 0x09:
		r.minutes = value & 0x3F
	case 0x0A:
		r.hours = value & 0x1F
	case 0x0B:
		r.daysLow = value
	case 0x0C:
		r.daysHighAndControl = value & 0xC1
	}
}

// mbc3 supports up to 128 ROM banks, 4 RAM banks, and an optional RTC
// selected via the same 0xA000-0xBFFF window once register 0x08-0x0C is
// chosen through the bank-select port.
type mbc3 struct {
	rom     []byte
	romBank uint32

	ram        []byte
	ramBank    int32 // -1 selects the RTC register instead of a RAM bank
	ramEnabled bool
	rtcEnabled bool

	hasRTC bool
	rtc    *rtc

	header *Header
}

func newMBC3(rom []byte, header *Header, clock Clock) *mbc3 {
	if clock == nil {
		clock = SystemClock
	}
	return &mbc3{
		rom:     rom,
		romBank: 1,
		ram:     make([]byte, header.RAMSize),
		hasRTC:  header.CartridgeType == MBC3TIMERBATT || header.CartridgeType == MBC3TIMERRAMBATT,
		rtc:     newRTC(clock),
		header:  header,
	}
}

func (m *mbc3) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return m.rom[address]
	case address < 0x8000:
		return m.rom[uint32(address-0x4000)+m.romBank*0x4000]
	case address >= 0xA000 && address < 0xC000:
		if m.ramBank >= 0 {
			if m.ramEnabled && len(m.ram) > 0 {
				return m.ram[uint32(m.ramBank)*0x2000+uint32(address&0x1FFF)]
			}
			return 0xFF
		}
		if m.hasRTC && m.rtcEnabled {
			return m.rtc.readSelected()
		}
		return 0xFF
	}
	return 0xFF
}

func (m *mbc3) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		enable := value&0x0F == 0x0A
		m.ramEnabled = enable
		m.rtcEnabled = enable
	case address < 0x4000:
		m.romBank = uint32(value & 0x7F)
		if m.romBank == 0 {
			m.romBank = 1
		}
		if banks := uint32(len(m.rom)) / 0x4000; banks > 0 {
			m.romBank %= banks
			if m.romBank == 0 {
				m.romBank = 1
			}
		}
	case address < 0x6000:
		switch {
		case value >= 0x08 && value <= 0x0C && m.hasRTC:
			m.rtc.selected = value
			m.ramBank = -1
		case value <= 0x03:
			m.ramBank = int32(value)
			if banks := int32(len(m.ram)) / 0x2000; banks > 0 {
				m.ramBank %= banks
			} else {
				m.ramBank = 0
			}
		}
	case address < 0x8000:
		if m.hasRTC {
			m.rtc.writeLatchTrigger(value)
		}
	case address >= 0xA000 && address < 0xC000:
		if m.ramBank >= 0 {
			if m.ramEnabled && len(m.ram) > 0 {
				m.ram[uint32(m.ramBank)*0x2000+uint32(address&0x1FFF)] = value
			}
		} else if m.hasRTC && m.rtcEnabled {
			m.rtc.writeSelected(value)
		}
	}
}

func (m *mbc3) Header() *Header  { return m.header }
func (m *mbc3) Title() string    { return m.header.Title }
func (m *mbc3) HasBattery() bool { return m.header.CartridgeType.HasBattery() }

// SaveRAM appends the RTC record after the RAM so battery files survive
// an RTC-equipped cartridge round trip: the live registers, the latched
// copies, and an 8-byte big-endian unix-seconds timestamp of the last
// time the clock was advanced, per spec.md §6.
func (m *mbc3) SaveRAM() []byte {
	out := append([]byte(nil), m.ram...)
	if m.hasRTC {
		m.rtc.advance()
		out = append(out,
			m.rtc.seconds, m.rtc.minutes, m.rtc.hours,
			m.rtc.daysLow, m.rtc.daysHighAndControl,
			m.rtc.latchedSeconds, m.rtc.latchedMinutes, m.rtc.latchedHours,
			m.rtc.latchedDaysLow, m.rtc.latchedDaysHighAndControl)
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(m.rtc.lastUpdate.Unix()))
		out = append(out, ts[:]...)
	}
	return out
}

// LoadRAM restores RAM and, for an RTC-equipped cartridge, the 18-byte
// record SaveRAM writes. The elapsed wall time since the stored
// timestamp is folded into the clock via advance() unless it was halted,
// per spec.md §6.
func (m *mbc3) LoadRAM(data []byte) {
	n := copy(m.ram, data)
	if !m.hasRTC || len(data) < n+18 {
		return
	}
	tail := data[n : n+18]
	m.rtc.seconds = tail[0]
	m.rtc.minutes = tail[1]
	m.rtc.hours = tail[2]
	m.rtc.daysLow = tail[3]
	m.rtc.daysHighAndControl = tail[4]
	m.rtc.latchedSeconds = tail[5]
	m.rtc.latchedMinutes = tail[6]
	m.rtc.latchedHours = tail[7]
	m.rtc.latchedDaysLow = tail[8]
	m.rtc.latchedDaysHighAndControl = tail[9]
	m.rtc.lastUpdate = time.Unix(int64(binary.BigEndian.Uint64(tail[10:18])), 0)
	m.rtc.advance()
}

var _ types.Stater = (*mbc3)(nil)

func (m *mbc3) Load(s *types.State) {
	m.romBank = s.Read32()
	m.ramBank = int32(s.Read32())
	m.ramEnabled = s.ReadBool()
	m.rtcEnabled = s.ReadBool()
	m.rtc.seconds = s.Read8()
	m.rtc.minutes = s.Read8()
	m.rtc.hours = s.Read8()
	m.rtc.daysLow = s.Read8()
	m.rtc.daysHighAndControl = s.Read8()
	m.rtc.selected = s.Read8()
	m.rtc.latchState = s.Read8()
}

func (m *mbc3) Save(s *types.State) {
	s.Write32(m.romBank)
	s.Write32(uint32(m.ramBank))
	s.WriteBool(m.ramEnabled)
	s.WriteBool(m.rtcEnabled)
	s.Write8(m.rtc.seconds)
	s.Write8(m.rtc.minutes)
	s.Write8(m.rtc.hours)
	s.Write8(m.rtc.daysLow)
	s.Write8(m.rtc.daysHighAndControl)
	s.Write8(m.rtc.selected)
	s.Write8(m.rtc.latchState)
}
