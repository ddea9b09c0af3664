package cartridge

import (
	"fmt"
	"strings"
)

// Flag identifies a cartridge's Game Boy Color compatibility byte.
type Flag uint8

const (
	FlagOnlyDMG Flag = iota
	FlagSupportsCGB
	FlagOnlyCGB
)

var ramSizes = map[uint8]uint{
	0x00: 0,
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

// Type is the cartridge hardware type byte at header offset 0x147.
type Type uint8

const (
	ROM               Type = 0x00
	MBC1              Type = 0x01
	MBC1RAM           Type = 0x02
	MBC1RAMBATT       Type = 0x03
	MBC2              Type = 0x05
	MBC2BATT          Type = 0x06
	ROMRAM            Type = 0x08
	ROMRAMBATT        Type = 0x09
	MMM01             Type = 0x0B
	MMM01RAM          Type = 0x0C
	MMM01RAMBATT      Type = 0x0D
	MBC3TIMERBATT     Type = 0x0F
	MBC3TIMERRAMBATT  Type = 0x10
	MBC3              Type = 0x11
	MBC3RAM           Type = 0x12
	MBC3RAMBATT       Type = 0x13
	MBC5              Type = 0x19
	MBC5RAM           Type = 0x1A
	MBC5RAMBATT       Type = 0x1B
	MBC5RUMBLE        Type = 0x1C
	MBC5RUMBLERAM     Type = 0x1D
	MBC5RUMBLERAMBATT Type = 0x1E
	POCKETCAMERA      Type = 0x1F
	HUC3              Type = 0xFE
	HUC1RAMBATT       Type = 0xFF
)

// HasBattery reports whether this cartridge type persists RAM/RTC state
// to a battery-backed save file.
func (t Type) HasBattery() bool {
	switch t {
	case MBC1RAMBATT, MBC2BATT, ROMRAMBATT, MMM01RAMBATT,
		MBC3TIMERBATT, MBC3TIMERRAMBATT, MBC3RAMBATT,
		MBC5RAMBATT, MBC5RUMBLERAMBATT, HUC1RAMBATT:
		return true
	}
	return false
}

// Header represents the cartridge header located at 0x0100-0x014F.
type Header struct {
	Title            string
	ManufacturerCode string
	CartridgeGBMode  Flag
	NewLicenseeCode  string
	SGBFlag          bool
	CartridgeType    Type
	ROMSize          uint
	RAMSize          uint
	CountryCode      uint8
	OldLicenseeCode  uint8
	MaskROMVersion   uint8
	HeaderChecksum   uint8
	GlobalChecksum   uint16
}

// ParseHeader parses the 0x50-byte header region (0x0100-0x014F) of a ROM.
func ParseHeader(header []byte) (Header, error) {
	h := Header{}
	if len(header) != 0x50 {
		return h, fmt.Errorf("cartridge: invalid header length %d, want 0x50", len(header))
	}

	switch header[0x43] {
	case 0x80:
		h.CartridgeGBMode = FlagSupportsCGB
	case 0xC0:
		h.CartridgeGBMode = FlagOnlyCGB
	default:
		h.CartridgeGBMode = FlagOnlyDMG
	}

	if h.CartridgeGBMode == FlagOnlyDMG {
		h.Title = string(header[0x34:0x44])
	} else {
		h.Title = string(header[0x34:0x43])
	}
	if i := strings.IndexByte(h.Title, 0); i >= 0 {
		h.Title = h.Title[:i]
	}

	h.ManufacturerCode = string(header[0x3F:0x43])
	h.NewLicenseeCode = string(header[0x44:0x46])
	h.SGBFlag = header[0x46] == 0x03
	h.CartridgeType = Type(header[0x47])
	h.ROMSize = (32 * 1024) * (1 << header[0x48])
	h.RAMSize = ramSizes[header[0x49]]
	h.CountryCode = header[0x4A]
	h.OldLicenseeCode = header[0x4B]
	h.MaskROMVersion = header[0x4C]
	h.HeaderChecksum = header[0x4D]
	h.GlobalChecksum = uint16(header[0x4E]) | uint16(header[0x4F])<<8

	return h, nil
}

// GameboyColor reports whether the cartridge declares CGB support.
func (h *Header) GameboyColor() bool {
	return h.CartridgeGBMode == FlagOnlyCGB || h.CartridgeGBMode == FlagSupportsCGB
}

// Hardware returns "CGB" or "DMG" for the cartridge's declared mode.
func (h *Header) Hardware() string {
	if h.GameboyColor() {
		return "CGB"
	}
	return "DMG"
}

func (h *Header) String() string {
	return fmt.Sprintf("%s (%s) | ROM: %dkB | RAM: %dkB", h.Title, h.Hardware(), h.ROMSize/1024, h.RAMSize/1024)
}
