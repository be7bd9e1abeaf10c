package hw

import (
	"io"

	"famicle/emu/log"
	"famicle/hw/apu"
	"famicle/hw/hwio"
	"famicle/hw/snapshot"
)

// Locations reserved for vector pointers.
const (
	NMIVector   = uint16(0xFFFA) // Non-Maskable Interrupt
	ResetVector = uint16(0xFFFC) // Reset
	IRQVector   = uint16(0xFFFE) // Interrupt Request
)

// CPUTicker is implemented by mappers that count CPU cycles (VRC and FME-7
// IRQ prescalers, N163). It runs once per CPU cycle, after the PPU has
// caught up, so a ticker observes the same cycle the CPU did.
type CPUTicker interface {
	TickCPUCycle()
}

type CPU struct {
	Bus *hwio.Table

	RAM hwio.Mem `hwio:"bank=0,offset=0x0,size=0x800,vsize=0x2000"`

	PPU    *PPU // non-nil when there's a PPU.
	PPUDMA DMA
	APU    *apu.APU

	Input InputPorts

	// Non-nil when execution tracing is enabled.
	tracer *tracer

	ticker CPUTicker // mapper per-cycle hook, or nil

	Cycles      int64 // CPU cycles
	masterClock int64

	// cpu registers
	A, X, Y, SP uint8
	PC          uint16
	P           P

	// interrupt handling
	nmiFlag, prevNmiFlag bool
	needNmi, prevNeedNmi bool
	runIRQ, prevRunIRQ   bool
	irqFlag              irqSource

	halted bool

	// pretend there is no PPU attached (opcode-level tests).
	ppuAbsent bool
}

// NewCPU creates a new CPU at power-up state.
func NewCPU(ppu *PPU) *CPU {
	cpu := &CPU{
		Bus: hwio.NewTable("cpu"),
		SP:  0xFD,
		PPU: ppu,
	}
	if ppu != nil {
		ppu.CPU = cpu
	}
	return cpu
}

func (c *CPU) InitBus() {
	hwio.MustInitRegs(c)
	// CPU internal RAM, mirrored up to 0x1FFF.
	c.Bus.MapBank(0x0000, c, 0)

	// Map the 8 PPU registers (bank 1) from 0x2000 to 0x3FFF.
	for off := uint16(0x2000); off < 0x4000; off += 8 {
		c.Bus.MapBank(off, c.PPU, 1)
	}

	// PPU OAMDMA register.
	c.PPUDMA.InitBus(c)
	c.Bus.MapBank(0x4014, &c.PPUDMA, 0)

	if c.APU != nil {
		c.APU.Connect(c)
		c.APU.InitBus(c.Bus)
	}

	c.Input.initBus(c)
}

// SetFrameIRQ drives the APU frame-counter IRQ line.
func (c *CPU) SetFrameIRQ(asserted bool) {
	if asserted {
		c.setIrqSource(irqFrameCounter)
	} else {
		c.clearIrqSource(irqFrameCounter)
	}
}

// SetDMCIRQ drives the DMC sample-end IRQ line.
func (c *CPU) SetDMCIRQ(asserted bool) {
	if asserted {
		c.setIrqSource(irqDMC)
	} else {
		c.clearIrqSource(irqDMC)
	}
}

// StartDMCFetch queues a DMC sample byte DMA.
func (c *CPU) StartDMCFetch(addr uint16) {
	c.PPUDMA.startDMCTransfer(addr)
}

// AttachTicker registers the mapper per-cycle hook.
func (c *CPU) AttachTicker(t CPUTicker) {
	c.ticker = t
}

func (c *CPU) Reset(soft bool) {
	if soft {
		c.SP -= 0x03
		c.P.setI(true)
	} else {
		c.A = 0x00
		c.X = 0x00
		c.Y = 0x00
		c.runIRQ = false

		c.SP = 0xFD
		c.P = 0x00
		c.P.setI(true)
	}

	c.PPUDMA.reset()

	// Directly read from the bus to avoid side effects.
	c.PC = hwio.Read16(c.Bus, ResetVector)

	c.Cycles = -1
	c.halted = false
	c.nmiFlag = false
	c.prevNmiFlag = false
	c.needNmi = false
	c.prevNeedNmi = false
	c.irqFlag = 0
	c.masterClock = ntscCPUDivider

	// After a reset/power up, the CPU burns 8 cycles before going on with ROM
	// execution.
	for i := 0; i < 8; i++ {
		c.cycleBegin(true)
		c.cycleEnd(true)
	}
}

func (c *CPU) traceOp() {
	if c.tracer != nil {
		state := cpuState{
			A:     c.A,
			X:     c.X,
			Y:     c.Y,
			P:     c.P,
			SP:    c.SP,
			Clock: c.Cycles,
			PC:    c.PC,
		}
		if c.PPU != nil {
			state.PPUCycle = c.PPU.Cycle
			state.Scanline = c.PPU.Scanline
		}
		c.tracer.write(state)
	}
}

// Run executes instructions until at least ncycles cycles have elapsed, or
// the CPU halts on a KIL opcode.
func (c *CPU) Run(ncycles int64) {
	if c.halted {
		return
	}

	until := c.Cycles + ncycles
	var opcode uint8
	for c.Cycles < until {
		opcode = c.Read8(c.PC)
		c.traceOp()
		c.PC++
		ops[opcode](c)

		if c.halted {
			break
		}

		if c.prevRunIRQ || c.prevNeedNmi {
			c.IRQ()
		}
	}

	if c.halted {
		log.ModCPU.WarnZ("CPU halted").
			Hex16("PC", c.PC).
			Hex8("opcode", opcode).
			End()
	}
}

func (c *CPU) halt() {
	c.halted = true
}

func (c *CPU) IsHalted() bool {
	return c.halted
}

// CurrentCycle returns the monotonic CPU cycle counter.
func (c *CPU) CurrentCycle() int64 {
	return c.Cycles
}

const (
	ntscStartClockCount = 6
	ntscEndClockCount   = 6
	ntscCPUDivider      = 12

	ppuOffset = 1
)

func (c *CPU) cycleBegin(forRead bool) {
	if forRead {
		c.masterClock += ntscStartClockCount - 1
	} else {
		c.masterClock += ntscStartClockCount + 1
	}
	c.Cycles++

	if c.PPU != nil && !c.ppuAbsent {
		c.PPU.Run(uint64(c.masterClock - ppuOffset))
	}
	if c.APU != nil {
		c.APU.Tick()
	}
}

func (c *CPU) cycleEnd(forRead bool) {
	if forRead {
		c.masterClock += ntscEndClockCount + 1
	} else {
		c.masterClock += ntscEndClockCount - 1
	}

	if c.PPU != nil && !c.ppuAbsent {
		c.PPU.Run(uint64(c.masterClock - ppuOffset))
	}

	if c.ticker != nil {
		c.ticker.TickCPUCycle()
	}

	c.handleInterrupts()
}

func (c *CPU) Read8(addr uint16) uint8 {
	c.PPUDMA.process(addr)
	c.cycleBegin(true)
	val := c.Bus.Read8(addr, false)
	c.cycleEnd(true)
	return val
}

func (c *CPU) Write8(addr uint16, val uint8) {
	c.cycleBegin(false)
	c.Bus.Write8(addr, val)
	c.cycleEnd(false)
}

func (c *CPU) Read16(addr uint16) uint16 {
	lo := c.Read8(addr)
	hi := c.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

/* stack operations */

func (c *CPU) push8(val uint8) {
	top := uint16(c.SP) + 0x0100
	c.Write8(top, val)
	c.SP -= 1
}

func (c *CPU) push16(val uint16) {
	c.push8(uint8(val >> 8))
	c.push8(uint8(val & 0xff))
}

func (c *CPU) pull8() uint8 {
	c.SP++
	top := uint16(c.SP) + 0x0100
	return c.Read8(top)
}

func (c *CPU) pull16() uint16 {
	lo := c.pull8()
	hi := c.pull8()
	return uint16(hi)<<8 | uint16(lo)
}

/* interrupt handling */

type irqSource uint8

const (
	irqExternal irqSource = 1 << iota // mapper IRQ line
	irqFrameCounter
	irqDMC
)

func (c *CPU) setIrqSource(src irqSource)      { c.irqFlag |= src }
func (c *CPU) hasIrqSource(src irqSource) bool { return (c.irqFlag & src) != 0 }
func (c *CPU) clearIrqSource(src irqSource)    { c.irqFlag &= ^src }

// PendingIRQ reports whether any IRQ source is asserted (debugger surface;
// the line is sampled by the CPU at instruction boundaries).
func (c *CPU) PendingIRQ() bool {
	return c.irqFlag != 0
}

// SetMapperIRQ drives the level-sensitive mapper IRQ line.
func (c *CPU) SetMapperIRQ(asserted bool) {
	if asserted {
		c.setIrqSource(irqExternal)
	} else {
		c.clearIrqSource(irqExternal)
	}
}

func (c *CPU) setNMIflag()   { c.nmiFlag = true }
func (c *CPU) clearNMIflag() { c.nmiFlag = false }

func (c *CPU) handleInterrupts() {
	// The internal signal goes high during φ1 of the cycle that follows the
	// one where the edge is detected and stays high until the NMI has been
	// handled.
	c.prevNeedNmi = c.needNmi

	// This edge detector polls the status of the NMI line during φ2 of each
	// CPU cycle (i.e. during the second half of each cycle) and raises an
	// internal signal if the input goes from being high during one cycle to
	// being low during the next.
	if !c.prevNmiFlag && c.nmiFlag {
		c.needNmi = true
	}
	c.prevNmiFlag = c.nmiFlag

	// It's really the status of the interrupt lines at the end of the
	// second-to-last cycle that matters, so keep the IRQ line values from the
	// previous cycle.
	c.prevRunIRQ = c.runIRQ
	c.runIRQ = c.irqFlag != 0 && !c.P.I()
}

// BRK pushes PC+1 (the opcode fetch already advanced PC) and P with the B
// construct set. If an NMI edge shows up before the vector fetch, the NMI
// vector hijacks the sequence.
func BRK(cpu *CPU) {
	// dummy read.
	_ = cpu.Read8(cpu.PC)

	cpu.push16(cpu.PC + 1)

	p := cpu.P
	p.writeBit(pbitB, true)
	p.writeBit(pbitU, true)
	if cpu.needNmi {
		cpu.needNmi = false
		cpu.push8(uint8(p))
		cpu.P.setI(true)
		cpu.PC = cpu.Read16(NMIVector)
	} else {
		cpu.push8(uint8(p))
		cpu.P.setI(true)
		cpu.PC = cpu.Read16(IRQVector)
	}

	// Ensure we don't start an NMI right after running a BRK instruction
	// (first instruction in IRQ handler must run first).
	cpu.prevNeedNmi = false
}

// IRQ runs the 7-cycle interrupt sequence. A pending NMI edge hijacks the
// vector fetch.
func (c *CPU) IRQ() {
	c.Read8(c.PC) // dummy reads
	c.Read8(c.PC)

	c.push16(c.PC)

	if c.needNmi {
		c.needNmi = false
		p := c.P
		p.writeBit(pbitU, true)
		c.push8(uint8(p))

		c.P.setI(true)
		c.PC = c.Read16(NMIVector)
	} else {
		p := c.P
		p.writeBit(pbitU, true)
		c.push8(uint8(p))

		c.P.setI(true)
		c.PC = c.Read16(IRQVector)
	}
}

/* tracing */

func (c *CPU) SetTraceOutput(w io.Writer) {
	c.tracer = &tracer{w: w, c: c}
}

/* save states */

func (c *CPU) State() *snapshot.CPU {
	return &snapshot.CPU{
		PC:          c.PC,
		SP:          c.SP,
		P:           uint8(c.P),
		A:           c.A,
		X:           c.X,
		Y:           c.Y,
		Cycles:      c.Cycles,
		MasterClock: c.masterClock,
		IRQFlag:     uint8(c.irqFlag),
		RunIRQ:      c.runIRQ,
		PrevRunIRQ:  c.prevRunIRQ,
		NMIFlag:     c.nmiFlag,
		PrevNMIFlag: c.prevNmiFlag,
		NeedNMI:     c.needNmi,
		PrevNeedNMI: c.prevNeedNmi,
		Halted:      c.halted,
		RAM:         [0x800]uint8(c.RAM.Data),
	}
}

func (c *CPU) SetState(state *snapshot.CPU) {
	c.PC = state.PC
	c.SP = state.SP
	c.P = P(state.P)
	c.A = state.A
	c.X = state.X
	c.Y = state.Y
	c.Cycles = state.Cycles
	c.masterClock = state.MasterClock
	c.irqFlag = irqSource(state.IRQFlag)
	c.runIRQ = state.RunIRQ
	c.prevRunIRQ = state.PrevRunIRQ
	c.nmiFlag = state.NMIFlag
	c.prevNmiFlag = state.PrevNMIFlag
	c.needNmi = state.NeedNMI
	c.prevNeedNmi = state.PrevNeedNMI
	c.halted = state.Halted
	copy(c.RAM.Data, state.RAM[:])
}
