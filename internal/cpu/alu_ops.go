package cpu

import "fmt"

// generateALUInstructions fills in the 0x80-0xBF accumulator block (ADD,
// ADC, SUB, SBC, AND, XOR, OR, CP against B/C/D/E/H/L/(HL)/A) and the
// matching 0xC6-0xFE immediate-operand forms.
func (c *CPU) generateALUInstructions() {
	type op struct {
		base uint8
		name string
		fn   func(c *CPU, value uint8)
	}
	ops := []op{
		{0x80, "ADD A,", func(c *CPU, v uint8) { c.A = c.add(c.A, v, false) }},
		{0x88, "ADC A,", func(c *CPU, v uint8) { c.A = c.add(c.A, v, true) }},
		{0x90, "SUB", func(c *CPU, v uint8) { c.A = c.sub(c.A, v, false) }},
		{0x98, "SBC A,", func(c *CPU, v uint8) { c.A = c.sub(c.A, v, true) }},
		{0xA0, "AND", func(c *CPU, v uint8) { c.A = c.and(c.A, v) }},
		{0xA8, "XOR", func(c *CPU, v uint8) { c.A = c.xor(c.A, v) }},
		{0xB0, "OR", func(c *CPU, v uint8) { c.A = c.or(c.A, v) }},
		{0xB8, "CP", func(c *CPU, v uint8) { c.compare(v) }},
	}

	for _, o := range ops {
		fn := o.fn
		for j := uint8(0); j < 8; j++ {
			opcode := o.base + j
			if j == 6 {
				DefineInstruction(opcode, fmt.Sprintf("%s (HL)", o.name), func(c *CPU) {
					fn(c, c.readByte(c.HL.Uint16()))
				})
				continue
			}
			reg := c.registerIndex(j)
			idx := j
			DefineInstruction(opcode, fmt.Sprintf("%s %s", o.name, c.registerName(reg)), func(c *CPU) {
				fn(c, *c.registerIndex(idx))
			})
		}
	}

	immediates := []struct {
		opcode uint8
		name   string
		fn     func(c *CPU, value uint8)
	}{
		{0xC6, "ADD A, d8", ops[0].fn},
		{0xCE, "ADC A, d8", ops[1].fn},
		{0xD6, "SUB d8", ops[2].fn},
		{0xDE, "SBC A, d8", ops[3].fn},
		{0xE6, "AND d8", ops[4].fn},
		{0xEE, "XOR d8", ops[5].fn},
		{0xF6, "OR d8", ops[6].fn},
		{0xFE, "CP d8", ops[7].fn},
	}
	for _, im := range immediates {
		fn := im.fn
		DefineInstruction(im.opcode, im.name, func(c *CPU) {
			fn(c, c.readOperand())
		})
	}
}

func init() {
	(&CPU{}).generateALUInstructions()
}
