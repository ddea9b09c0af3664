// Package cartridge models a Game Boy cartridge: its header, ROM/RAM
// bank-switching controller, and (for MBC3) a real-time clock.
package cartridge

import (
	"fmt"

	"github.com/thornewell/megaboy/internal/types"
)

// Cartridge is a loaded ROM with whatever bank-switching controller its
// header type requires.
type Cartridge interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)

	Header() *Header
	Title() string

	// HasBattery reports whether this cartridge persists RAM/RTC state.
	HasBattery() bool
	// SaveRAM returns the battery-backed RAM (and RTC, where applicable)
	// as a serialized blob suitable for writing to a .sav file.
	SaveRAM() []byte
	// LoadRAM restores a blob previously returned by SaveRAM.
	LoadRAM(data []byte)

	types.Stater
}

// New parses rom's header and constructs the matching Cartridge. clock
// is used by MBC3 cartridges with a real-time clock; pass cartridge.SystemClock
// for normal use.
func New(rom []byte, clock Clock) (Cartridge, error) {
	if len(rom) < 0x150 {
		return nil, fmt.Errorf("cartridge: ROM too small (%d bytes)", len(rom))
	}
	header, err := ParseHeader(rom[0x100:0x150])
	if err != nil {
		return nil, err
	}

	switch header.CartridgeType {
	case ROM:
		return newROMOnly(rom, &header), nil
	case MBC1, MBC1RAM, MBC1RAMBATT:
		return newMBC1(rom, &header), nil
	case MBC2, MBC2BATT:
		return newMBC2(rom, &header), nil
	case MBC3, MBC3RAM, MBC3RAMBATT, MBC3TIMERBATT, MBC3TIMERRAMBATT:
		return newMBC3(rom, &header, clock), nil
	case MBC5, MBC5RAM, MBC5RAMBATT, MBC5RUMBLE, MBC5RUMBLERAM, MBC5RUMBLERAMBATT:
		return newMBC5(rom, &header), nil
	case HUC1RAMBATT:
		return newHuC1(rom, &header), nil
	default:
		return nil, fmt.Errorf("cartridge: unsupported cartridge type 0x%02X", header.CartridgeType)
	}
}

// romOnly is a cartridge with no bank controller: a single fixed 32kB
// ROM and no external RAM.
type romOnly struct {
	rom    []byte
	header *Header
}

func newROMOnly(rom []byte, header *Header) *romOnly {
	return &romOnly{rom: rom, header: header}
}

func (c *romOnly) Read(address uint16) uint8 {
	if int(address) < len(c.rom) {
		return c.rom[address]
	}
	return 0xFF
}

func (c *romOnly) Write(uint16, uint8)  {}
func (c *romOnly) Header() *Header      { return c.header }
func (c *romOnly) Title() string        { return c.header.Title }
func (c *romOnly) HasBattery() bool     { return false }
func (c *romOnly) SaveRAM() []byte      { return nil }
func (c *romOnly) LoadRAM([]byte)       {}
func (c *romOnly) Load(*types.State)    {}
func (c *romOnly) Save(*types.State)    {}
