package cpu

import (
	"fmt"

	"github.com/thornewell/megaboy/internal/interrupts"
	"github.com/thornewell/megaboy/internal/mmu"
	"github.com/thornewell/megaboy/internal/types"
)

const (
	// ClockSpeed is the clock speed of the CPU.
	ClockSpeed = 4194304
)

type mode = uint8

const (
	// ModeNormal is the normal CPU mode.
	ModeNormal mode = iota
	// ModeHalt is the halt CPU mode.
	ModeHalt
	// ModeStop is the stop CPU mode.
	ModeStop
	// ModeHaltBug is the halt bug CPU mode.
	ModeHaltBug
	// ModeHaltDI is the halt DI CPU mode.
	ModeHaltDI
	// ModeEnableIME is the enable IME CPU mode.
	ModeEnableIME
)

// CPU represents the Gameboy CPU. It is responsible for executing instructions.
type CPU struct {
	// PC is the program counter, it points to the next instruction to be executed.
	PC uint16
	// SP is the stack pointer, it points to the top of the stack.
	SP uint16
	// Registers contains the 8-bit registers, as well as the 16-bit register pairs.
	Registers

	mmu *mmu.MMU
	IRQ *interrupts.Service

	Debug           bool
	DebugBreakpoint bool

	currentTick uint8
	mode        mode
}

// NewCPU creates a new CPU instance, driving the given MMU (and, through
// it, every other component) as it executes instructions.
func NewCPU(bus *mmu.MMU, irq *interrupts.Service) *CPU {
	c := &CPU{
		Registers: Registers{},
		mmu:       bus,
		IRQ:       irq,
	}
	// create register pairs
	c.BC = &RegisterPair{&c.B, &c.C}
	c.DE = &RegisterPair{&c.D, &c.E}
	c.HL = &RegisterPair{&c.H, &c.L}
	c.AF = &RegisterPair{&c.A, &c.F}

	return c
}

// registerIndex returns a Register pointer for the given index.
func (c *CPU) registerIndex(index uint8) *Register {
	switch index {
	case 0:
		return &c.B
	case 1:
		return &c.C
	case 2:
		return &c.D
	case 3:
		return &c.E
	case 4:
		return &c.H
	case 5:
		return &c.L
	case 7:
		return &c.A
	}
	panic(fmt.Sprintf("invalid register index: %d", index))
}

// registerName returns the name of a Register.
func (c *CPU) registerName(reg *Register) string {
	switch reg {
	case &c.A:
		return "A"
	case &c.B:
		return "B"
	case &c.C:
		return "C"
	case &c.D:
		return "D"
	case &c.E:
		return "E"
	case &c.H:
		return "H"
	case &c.L:
		return "L"
	}
	return ""
}

// Step executes a single instruction (or, in HALT/STOP, idles one
// M-cycle) and returns the number of M-cycles consumed.
func (c *CPU) Step() uint8 {
	c.currentTick = 0

	reqInt := false
	if c.mode == ModeNormal {
		c.runInstruction(c.readInstruction())
		reqInt = c.IRQ.IME && c.hasInterrupts()
	} else {
		switch c.mode {
		case ModeHalt, ModeStop:
			c.tickCycle()
			// in stop/halt, the IME is ignored, so the CPU can still be
			// woken by a requested-but-masked interrupt.
			reqInt = c.hasInterrupts()
		case ModeHaltDI:
			c.tickCycle()
			if c.hasInterrupts() {
				c.mode = ModeNormal
			}
		case ModeEnableIME:
			c.IRQ.IME = true
			c.mode = ModeNormal
			c.runInstruction(c.readInstruction())
			reqInt = c.IRQ.IME && c.hasInterrupts()
		case ModeHaltBug:
			instr := c.readInstruction()
			c.PC--
			c.runInstruction(instr)
			c.mode = ModeNormal
			reqInt = c.IRQ.IME && c.hasInterrupts()
		}
	}

	if reqInt {
		c.executeInterrupt()
	}

	return c.currentTick
}

// stop handles the STOP opcode: in CGB mode with a speed switch armed
// via KEY1, it performs the switch and idles briefly rather than
// entering the low-power STOP mode a real cartridge-driven STOP would.
func (c *CPU) stop() {
	if c.mmu.SpeedSwitchArmed() {
		c.mmu.PerformSpeedSwitch()
		for i := 0; i < 2050; i++ {
			c.tickCycle()
		}
		return
	}
	c.mode = ModeStop
}

func (c *CPU) hasInterrupts() bool {
	return c.IRQ.HasInterrupts()
}

// readInstruction reads the next instruction from memory.
func (c *CPU) readInstruction() uint8 {
	c.tickCycle()
	value := c.mmu.Read(c.PC)
	c.PC++
	return value
}

// readOperand reads the next operand from memory. The same as
// readInstruction, but will allow future optimizations.
func (c *CPU) readOperand() uint8 {
	c.tickCycle()
	value := c.mmu.Read(c.PC)
	c.PC++
	return value
}

func (c *CPU) skipOperand() {
	c.tickCycle()
	c.PC++
}

// readByte reads a byte from memory.
func (c *CPU) readByte(addr uint16) uint8 {
	c.tickCycle()
	return c.mmu.Read(addr)
}

// writeByte writes the given value to the given address.
func (c *CPU) writeByte(addr uint16, val uint8) {
	c.tickCycle()
	c.mmu.Write(addr, val)
}

func (c *CPU) runInstruction(opcode uint8) {
	var instruction Instruction
	if opcode == 0xCB {
		instruction = InstructionSetCB[c.readOperand()]
	} else {
		instruction = InstructionSet[opcode]
	}

	instruction.fn(c)

	if c.Debug {
		if instruction.name == "LD B, B" {
			c.DebugBreakpoint = true
		}
	}
}

func (c *CPU) executeInterrupt() {
	if c.IRQ.IME {
		c.SP--
		c.writeByte(c.SP, uint8(c.PC>>8))

		vector := c.IRQ.Vector()

		c.SP--
		c.writeByte(c.SP, uint8(c.PC&0xFF))

		c.PC = vector
		c.IRQ.IME = false

		c.tickCycle()
		c.tickCycle()
		c.tickCycle()
	}

	c.mode = ModeNormal
}

// tickCycle advances every other component by one CPU M-cycle. DIV and
// the serial clock run once per M-cycle regardless of speed mode
// (double speed halves real M-cycle duration, so they naturally run
// twice as fast in wall-clock time); the PPU, OAM-DMA, and APU instead
// run at the fixed real dot-rate, so they're stepped by the number of
// real T-cycles an M-cycle takes: 4 at normal speed, 2 at double speed.
func (c *CPU) tickCycle() {
	c.currentTick++

	c.mmu.Timer.TickM()
	c.mmu.Serial.TickM()

	realTCycles := 4
	if c.mmu.DoubleSpeed() {
		realTCycles = 2
	}
	for i := 0; i < realTCycles; i++ {
		c.mmu.DMA().Tick()
		c.mmu.TickVideo()
		c.mmu.Sound.TickT()
	}
}

// shouldZeroFlag sets FlagZero if the given value is 0.
func (c *CPU) shouldZeroFlag(value uint8) {
	if value == 0 {
		c.setFlag(FlagZero)
	} else {
		c.clearFlag(FlagZero)
	}
}

var _ types.Stater = (*CPU)(nil)

func (c *CPU) Load(s *types.State) {
	c.A = s.Read8()
	c.F = s.Read8()
	c.B = s.Read8()
	c.C = s.Read8()
	c.D = s.Read8()
	c.E = s.Read8()
	c.H = s.Read8()
	c.L = s.Read8()
	c.SP = s.Read16()
	c.PC = s.Read16()
	c.mode = s.Read8()
	// IRQ is a shared *interrupts.Service also owned by the MMU, which
	// persists it as part of its own Load/Save - not duplicated here.
}

func (c *CPU) Save(s *types.State) {
	s.Write8(c.A)
	s.Write8(c.F)
	s.Write8(c.B)
	s.Write8(c.C)
	s.Write8(c.D)
	s.Write8(c.E)
	s.Write8(c.H)
	s.Write8(c.L)
	s.Write16(c.SP)
	s.Write16(c.PC)
	s.Write8(c.mode)
}
