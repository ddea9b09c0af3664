package ppu

// OAM (Object Attribute Memory) holds the attributes of the 40 sprites,
// 4 bytes each, at 0xFE00-0xFE9F.
type OAM struct {
	raw [160]uint8
}

// Read returns the raw OAM byte at address (0xFE00-0xFE9F relative).
func (o *OAM) Read(address uint16) uint8 {
	return o.raw[address&0xFF]
}

// Write stores a raw OAM byte.
func (o *OAM) Write(address uint16, value uint8) {
	o.raw[address&0xFF] = value
}

// Sprite decodes entry i (0-39) into a Sprite view.
func (o *OAM) Sprite(i uint8) Sprite {
	base := int(i) * 4
	return Sprite{
		Y:     o.raw[base],
		X:     o.raw[base+1],
		Tile:  o.raw[base+2],
		Attr:  o.raw[base+3],
		Index: i,
	}
}
