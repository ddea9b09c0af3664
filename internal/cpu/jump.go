package cpu

import (
	"fmt"
)

// pushStack pushes a 16 bit value onto the stack, ticking once per byte
// written.
func (c *CPU) pushStack(value uint16) {
	c.SP--
	c.writeByte(c.SP, uint8(value>>8))
	c.SP--
	c.writeByte(c.SP, uint8(value&0xFF))
}

// popStack pops a 16 bit value off the stack, ticking once per byte read.
func (c *CPU) popStack() uint16 {
	lower := uint16(c.readByte(c.SP))
	c.SP++
	upper := uint16(c.readByte(c.SP))
	c.SP++
	return lower | upper<<8
}

// readOperand16 reads a little-endian 16-bit immediate operand.
func (c *CPU) readOperand16() uint16 {
	lo := uint16(c.readOperand())
	hi := uint16(c.readOperand())
	return lo | hi<<8
}

// call pushes the address of the next instruction onto the stack and jumps to
// the given address.
//
//	CALL nn
//	nn = 16-bit immediate value
func (c *CPU) call(address uint16) {
	c.pushStack(c.PC)
	c.PC = address
}

// callConditional pushes the address of the next instruction onto the stack and
// jumps to the given address if the given condition is true.
//
//	CALL cc, nn
//	cc = NZ, Z, NC, C
//	nn = 16-bit immediate value
func (c *CPU) callConditional(condition bool, address uint16) {
	if condition {
		c.call(address)
	}
}

// jumpRelative jumps to the address relative to the current PC.
//
//	JR e
//	e = 8-bit signed immediate value
func (c *CPU) jumpRelative(offset uint8) {
	v := int8(offset)
	addr := int32(c.PC) + int32(v)
	c.jumpAbsolute(uint16(addr))
}

// jumpRelativeConditional jumps to the address relative to the current PC if
// the given condition is true.
//
//	JR cc, e
//	cc = NZ, Z, NC, C
//	e = 8-bit signed immediate value
func (c *CPU) jumpRelativeConditional(condition bool, offset uint8) {
	if condition {
		c.jumpRelative(offset)
	}
}

// jumpAbsolute jumps to the given address.
//
//	JP nn
//	nn = 16-bit immediate value
func (c *CPU) jumpAbsolute(address uint16) {
	c.PC = address
}

// jumpAbsoluteConditional jumps to the given address if the given condition is
// true.
//
//	JP cc, nn
//	cc = NZ, Z, NC, C
//	nn = 16-bit immediate value
func (c *CPU) jumpAbsoluteConditional(condition bool, address uint16) {
	if condition {
		c.jumpAbsolute(address)
	}
}

// ret pops the top two bytes off the stack and jumps to that address.
//
//	RET
func (c *CPU) ret() {
	c.PC = c.popStack()
}

// retConditional pops the top two bytes off the stack and jumps to that
// address if the given condition is true.
//
//	RET cc
//	cc = NZ, Z, NC, C
func (c *CPU) retConditional(condition bool) {
	if condition {
		c.ret()
	}
}

// retInterrupt pops the top two bytes off the stack and jumps to that address.
// It also enables interrupts.
//
//	RETI
func (c *CPU) retInterrupt() {
	c.ret()
	c.IRQ.IME = true
}

func init() {
	DefineInstruction(0x18, "JR n", func(c *CPU) { c.jumpRelative(c.readOperand()); c.tickCycle() })
	DefineInstruction(0x20, "JR NZ, n", func(c *CPU) { c.jrCC(!c.isFlagSet(FlagZero)) })
	DefineInstruction(0x28, "JR Z, n", func(c *CPU) { c.jrCC(c.isFlagSet(FlagZero)) })
	DefineInstruction(0x30, "JR NC, n", func(c *CPU) { c.jrCC(!c.isFlagSet(FlagCarry)) })
	DefineInstruction(0x38, "JR C, n", func(c *CPU) { c.jrCC(c.isFlagSet(FlagCarry)) })

	DefineInstruction(0xC0, "RET NZ", func(c *CPU) { c.tickCycle(); c.retCC(!c.isFlagSet(FlagZero)) })
	DefineInstruction(0xC2, "JP NZ, nn", func(c *CPU) { c.jpCC(!c.isFlagSet(FlagZero)) })
	DefineInstruction(0xC3, "JP nn", func(c *CPU) { c.jumpAbsolute(c.readOperand16()); c.tickCycle() })
	DefineInstruction(0xC4, "CALL NZ, nn", func(c *CPU) { c.callCC(!c.isFlagSet(FlagZero)) })
	DefineInstruction(0xC8, "RET Z", func(c *CPU) { c.tickCycle(); c.retCC(c.isFlagSet(FlagZero)) })
	DefineInstruction(0xC9, "RET", func(c *CPU) { c.ret(); c.tickCycle() })
	DefineInstruction(0xCA, "JP Z, nn", func(c *CPU) { c.jpCC(c.isFlagSet(FlagZero)) })
	DefineInstruction(0xCC, "CALL Z, nn", func(c *CPU) { c.callCC(c.isFlagSet(FlagZero)) })
	DefineInstruction(0xCD, "CALL nn", func(c *CPU) {
		addr := c.readOperand16()
		c.tickCycle()
		c.call(addr)
	})
	DefineInstruction(0xD0, "RET NC", func(c *CPU) { c.tickCycle(); c.retCC(!c.isFlagSet(FlagCarry)) })
	DefineInstruction(0xD2, "JP NC, nn", func(c *CPU) { c.jpCC(!c.isFlagSet(FlagCarry)) })
	DefineInstruction(0xD4, "CALL NC, nn", func(c *CPU) { c.callCC(!c.isFlagSet(FlagCarry)) })
	DefineInstruction(0xD8, "RET C", func(c *CPU) { c.tickCycle(); c.retCC(c.isFlagSet(FlagCarry)) })
	DefineInstruction(0xD9, "RETI", func(c *CPU) { c.retInterrupt(); c.tickCycle() })
	DefineInstruction(0xDA, "JP C, nn", func(c *CPU) { c.jpCC(c.isFlagSet(FlagCarry)) })
	DefineInstruction(0xDC, "CALL C, nn", func(c *CPU) { c.callCC(c.isFlagSet(FlagCarry)) })
	DefineInstruction(0xE9, "JP (HL)", func(c *CPU) { c.jumpAbsolute(c.HL.Uint16()) })
}

// jrCC reads the JR offset, ticking the extra internal cycle only when
// the branch is actually taken.
func (c *CPU) jrCC(condition bool) {
	offset := c.readOperand()
	if condition {
		c.jumpRelative(offset)
		c.tickCycle()
	}
}

// jpCC reads the JP address, ticking the extra internal cycle only when
// the branch is actually taken.
func (c *CPU) jpCC(condition bool) {
	addr := c.readOperand16()
	if condition {
		c.jumpAbsolute(addr)
		c.tickCycle()
	}
}

// retCC is called after the opcode-fetch internal cycle has already
// ticked; it then pays the branch for the pop when taken.
func (c *CPU) retCC(condition bool) {
	if condition {
		c.ret()
	}
}

// callCC reads the CALL address, paying the internal cycle and the
// push only when the branch is taken.
func (c *CPU) callCC(condition bool) {
	addr := c.readOperand16()
	if condition {
		c.tickCycle()
		c.call(addr)
	}
}

// generateRSTInstructions generates the 8 RST instructions.
func (c *CPU) generateRSTInstructions() {
	for i := uint8(0); i < 8; i++ {
		address := uint16(i * 8)
		DefineInstruction(0xC7+i*8, fmt.Sprintf("RST %02Xh", address), func(c *CPU) {
			c.tickCycle()
			c.call(address)
		})
	}
}
