package types

import "strings"

// Model identifies the hardware revision being emulated.
type Model int

const (
	Unset  Model = iota // behaves as DMGABC until a ROM/boot overlay narrows it
	DMG0                // early Game Boy, Japan only
	DMGABC              // standard Game Boy
	CGB0                // early Game Boy Color, Japan only
	CGBABC              // standard Game Boy Color
	MGB                 // Pocket Game Boy
)

var modelNames = map[Model]string{
	Unset:  "Unset",
	DMG0:   "DMG0",
	DMGABC: "DMG",
	CGB0:   "CGB0",
	CGBABC: "CGB",
	MGB:    "MGB",
}

// StringToModel converts a string (as taken from a -model flag) to a Model.
func StringToModel(s string) Model {
	for m, n := range modelNames {
		if n == strings.ToUpper(s) {
			return m
		}
	}
	return Unset
}

func (m Model) String() string {
	return modelNames[m]
}

// IsCGB reports whether this model runs in Game Boy Color mode.
func (m Model) IsCGB() bool {
	return m == CGB0 || m == CGBABC
}

// ModelRegisters holds the post-boot-ROM CPU register values for each
// model: A, F, B, C, D, E, H, L.
var ModelRegisters = map[Model][8]uint8{
	Unset:  {0x01, 0xB0, 0x00, 0x13, 0x00, 0xD8, 0x01, 0x4D},
	DMG0:   {0x01, 0x00, 0xFF, 0x13, 0x00, 0xC1, 0x84, 0x03},
	DMGABC: {0x01, 0xB0, 0x00, 0x13, 0x00, 0xD8, 0x01, 0x4D},
	CGB0:   {0x11, 0x80, 0x00, 0x00, 0x00, 0x08, 0x00, 0x7C},
	CGBABC: {0x11, 0x80, 0x00, 0x00, 0x00, 0x08, 0x00, 0x7C},
	MGB:    {0xFF, 0xB0, 0x00, 0x13, 0x00, 0xD8, 0x01, 0x4D},
}

// ModelDIV holds the post-boot-ROM DIV register value for each model.
var ModelDIV = map[Model]uint16{
	Unset:  0xABC9,
	DMG0:   0x182F,
	DMGABC: 0xABC9,
	CGB0:   0x2881,
	CGBABC: 0x2675,
	MGB:    0xABC9,
}
