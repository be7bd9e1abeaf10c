package hw

import (
	"testing"

	"famicle/hw/hwio"
)

// newTestCPU builds a CPU over a flat 64 KiB RAM bus, with no PPU or APU
// attached, reset vector pointing at org.
func newTestCPU(tb testing.TB, org uint16, program []byte) *CPU {
	tb.Helper()

	cpu := NewCPU(NewPPU())
	cpu.ppuAbsent = true
	cpu.Bus = hwio.NewTable("cputest")
	cpu.Bus.MapMem(0x0000, &hwio.Mem{
		Name:  "flat",
		Data:  make([]byte, 0x10000),
		VSize: 0x10000,
	})

	for i, b := range program {
		cpu.Bus.Write8(org+uint16(i), b)
	}
	hwio.Write16(cpu.Bus, ResetVector, org)
	cpu.Reset(false)
	return cpu
}

// step runs exactly one instruction and returns the cycles it consumed.
func step(cpu *CPU) int64 {
	before := cpu.Cycles
	cpu.Run(1)
	return cpu.Cycles - before
}

func TestAllOpcodesAreImplemented(t *testing.T) {
	for opcode, op := range ops {
		if op == nil {
			t.Errorf("opcode %02x not implemented", opcode)
		}
	}
}

func TestOpcodeTiming(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(c *CPU)
		prog   []byte
		cycles int64
	}{
		{name: "LDA imm", prog: []byte{0xA9, 0x42}, cycles: 2},
		{name: "LDA zp", prog: []byte{0xA5, 0x10}, cycles: 3},
		{name: "LDA zpx", prog: []byte{0xB5, 0x10}, cycles: 4},
		{name: "LDA abs", prog: []byte{0xAD, 0x00, 0x03}, cycles: 4},
		{
			name:   "LDA abx no cross",
			setup:  func(c *CPU) { c.X = 0x01 },
			prog:   []byte{0xBD, 0x00, 0x03},
			cycles: 4,
		},
		{
			name:   "LDA abx page cross",
			setup:  func(c *CPU) { c.X = 0x20 },
			prog:   []byte{0xBD, 0xF0, 0x03},
			cycles: 5,
		},
		{
			name:   "LDA izy page cross",
			setup:  func(c *CPU) { c.Y = 0xFF; c.Bus.Write8(0x10, 0x80); c.Bus.Write8(0x11, 0x02) },
			prog:   []byte{0xB1, 0x10},
			cycles: 6,
		},
		{name: "STA zp", prog: []byte{0x85, 0x10}, cycles: 3},
		{
			name:   "STA abx always 5",
			setup:  func(c *CPU) { c.X = 0x01 },
			prog:   []byte{0x9D, 0x00, 0x03},
			cycles: 5,
		},
		{name: "STA izx", prog: []byte{0x81, 0x10}, cycles: 6},
		{name: "STA izy", prog: []byte{0x91, 0x10}, cycles: 6},
		{name: "ASL acc", prog: []byte{0x0A}, cycles: 2},
		{name: "ASL zp", prog: []byte{0x06, 0x10}, cycles: 5},
		{name: "ASL abs", prog: []byte{0x0E, 0x00, 0x03}, cycles: 6},
		{
			name:   "ASL abx always 7",
			setup:  func(c *CPU) { c.X = 0x01 },
			prog:   []byte{0x1E, 0x00, 0x03},
			cycles: 7,
		},
		{name: "INC zp", prog: []byte{0xE6, 0x10}, cycles: 5},
		{name: "JMP abs", prog: []byte{0x4C, 0x00, 0x06}, cycles: 3},
		{name: "JMP ind", prog: []byte{0x6C, 0x00, 0x03}, cycles: 5},
		{name: "JSR", prog: []byte{0x20, 0x00, 0x06}, cycles: 6},
		{name: "RTS", setup: func(c *CPU) { c.SP = 0xFB }, prog: []byte{0x60}, cycles: 6},
		{name: "RTI", setup: func(c *CPU) { c.SP = 0xFA }, prog: []byte{0x40}, cycles: 6},
		{name: "PHA", prog: []byte{0x48}, cycles: 3},
		{name: "PLA", prog: []byte{0x68}, cycles: 4},
		{name: "PHP", prog: []byte{0x08}, cycles: 3},
		{name: "PLP", prog: []byte{0x28}, cycles: 4},
		{name: "NOP", prog: []byte{0xEA}, cycles: 2},
		{name: "BRK", prog: []byte{0x00}, cycles: 7},
		{name: "SLO zp", prog: []byte{0x07, 0x10}, cycles: 5},
		{name: "LAX zp", prog: []byte{0xA7, 0x10}, cycles: 3},
		{name: "DCP abs", prog: []byte{0xCF, 0x00, 0x03}, cycles: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := newTestCPU(t, 0x0200, tt.prog)
			if tt.setup != nil {
				tt.setup(cpu)
			}
			if got := step(cpu); got != tt.cycles {
				t.Errorf("took %d cycles, want %d", got, tt.cycles)
			}
		})
	}
}

func TestBranchTiming(t *testing.T) {
	// Branch not taken: 2 cycles.
	cpu := newTestCPU(t, 0x0200, []byte{0xB0, 0x10}) // BCS, carry clear
	if got := step(cpu); got != 2 {
		t.Errorf("branch not taken took %d cycles, want 2", got)
	}

	// Branch taken, same page: 3 cycles.
	cpu = newTestCPU(t, 0x0200, []byte{0x90, 0x10}) // BCC, carry clear
	if got := step(cpu); got != 3 {
		t.Errorf("branch taken took %d cycles, want 3", got)
	}
	if cpu.PC != 0x0212 {
		t.Errorf("PC = %04x, want 0212", cpu.PC)
	}

	// Branch taken across a page boundary: 4 cycles.
	cpu = newTestCPU(t, 0x02F0, []byte{0x90, 0x20})
	if got := step(cpu); got != 4 {
		t.Errorf("branch across page took %d cycles, want 4", got)
	}
	if cpu.PC != 0x0312 {
		t.Errorf("PC = %04x, want 0312", cpu.PC)
	}
}

// TestRMWDummyWrite checks that read-modify-write instructions issue the
// spurious rewrite of the original value, observable by bus-watching
// hardware.
func TestRMWDummyWrite(t *testing.T) {
	cpu := newTestCPU(t, 0x0200, []byte{0xEE, 0x00, 0x50}) // INC $5000

	var writes []uint8
	cpu.Bus.Unmap(0x5000, 0x5000)
	val := uint8(0x41)
	cpu.Bus.MapDevice(0x5000, &hwio.Device{
		Name:   "probe",
		Size:   1,
		ReadCb: func(addr uint16) uint8 { return val },
		WriteCb: func(addr uint16, v uint8) {
			writes = append(writes, v)
			val = v
		},
	})

	step(cpu)

	if len(writes) != 2 || writes[0] != 0x41 || writes[1] != 0x42 {
		t.Errorf("writes = %#v, want [0x41 0x42]", writes)
	}
}

func TestADCFlags(t *testing.T) {
	tests := []struct {
		a, val  uint8
		carry   bool
		wantA   uint8
		wantC   bool
		wantV   bool
	}{
		{a: 0x01, val: 0x01, wantA: 0x02},
		{a: 0xFF, val: 0x01, wantA: 0x00, wantC: true},
		{a: 0x7F, val: 0x01, wantA: 0x80, wantV: true},
		{a: 0x80, val: 0x80, wantA: 0x00, wantC: true, wantV: true},
		{a: 0x01, val: 0x01, carry: true, wantA: 0x03},
	}

	for _, tt := range tests {
		cpu := newTestCPU(t, 0x0200, []byte{0x69, tt.val})
		cpu.A = tt.a
		cpu.P.setC(tt.carry)
		step(cpu)

		if cpu.A != tt.wantA || cpu.P.C() != tt.wantC || cpu.P.V() != tt.wantV {
			t.Errorf("%02x+%02x(C=%t): A=%02x C=%t V=%t, want A=%02x C=%t V=%t",
				tt.a, tt.val, tt.carry, cpu.A, cpu.P.C(), cpu.P.V(), tt.wantA, tt.wantC, tt.wantV)
		}
	}
}

// Decimal mode is a flag only on the 2A03: arithmetic stays binary.
func TestDecimalIgnored(t *testing.T) {
	cpu := newTestCPU(t, 0x0200, []byte{0xF8, 0x69, 0x19}) // SED; ADC #$19
	cpu.A = 0x19
	step(cpu)
	step(cpu)
	if cpu.A != 0x32 {
		t.Errorf("A = %02x, want 32 (binary add)", cpu.A)
	}
	if !cpu.P.D() {
		t.Error("D flag should still be set in P")
	}
}

// Pushed status images carry bits 5 and 4 for BRK/PHP but not for
// interrupts; pulls ignore both.
func TestStatusBitsOnStack(t *testing.T) {
	cpu := newTestCPU(t, 0x0200, []byte{0x08}) // PHP
	step(cpu)
	pushed := cpu.Bus.Peek8(0x01FD)
	if pushed&0x30 != 0x30 {
		t.Errorf("PHP pushed %02x, want bits 5 and 4 set", pushed)
	}

	cpu = newTestCPU(t, 0x0200, []byte{0x28}) // PLP
	cpu.Bus.Write8(0x01FE, 0xFF)
	step(cpu)
	if uint8(cpu.P)&0x30 != 0x00 {
		t.Errorf("PLP loaded %02x, want bits 5 and 4 ignored", uint8(cpu.P))
	}
}

func TestJMPIndirectPageWrap(t *testing.T) {
	cpu := newTestCPU(t, 0x0200, []byte{0x6C, 0xFF, 0x30}) // JMP ($30FF)
	cpu.Bus.Write8(0x30FF, 0x34)
	cpu.Bus.Write8(0x3000, 0x12) // high byte from $3000, not $3100
	cpu.Bus.Write8(0x3100, 0x99)
	step(cpu)
	if cpu.PC != 0x1234 {
		t.Errorf("PC = %04x, want 1234", cpu.PC)
	}
}

func TestKILHaltsCPU(t *testing.T) {
	cpu := newTestCPU(t, 0x0200, []byte{0x02})
	cpu.Run(100)
	if !cpu.IsHalted() {
		t.Fatal("CPU not halted after KIL")
	}
	cycles := cpu.Cycles
	cpu.Run(100)
	if cpu.Cycles != cycles {
		t.Error("halted CPU kept running")
	}
}

func TestIRQTakenWhenIClear(t *testing.T) {
	// Program: CLI; NOP; ... IRQ handler at 0x0400 does INX; RTI.
	cpu := newTestCPU(t, 0x0200, []byte{0x58, 0xEA, 0xEA, 0xEA, 0xEA})
	hwio.Write16(cpu.Bus, IRQVector, 0x0400)
	cpu.Bus.Write8(0x0400, 0xE8) // INX
	cpu.Bus.Write8(0x0401, 0x40) // RTI

	cpu.SetMapperIRQ(true)
	cpu.Run(30)
	if cpu.X == 0 {
		t.Error("IRQ handler never ran")
	}
}

func TestIRQMaskedWhenISet(t *testing.T) {
	cpu := newTestCPU(t, 0x0200, []byte{0xEA, 0xEA, 0xEA, 0xEA})
	hwio.Write16(cpu.Bus, IRQVector, 0x0400)
	cpu.Bus.Write8(0x0400, 0xE8)

	// I is set after reset.
	cpu.SetMapperIRQ(true)
	cpu.Run(8)
	if cpu.X != 0 {
		t.Error("IRQ taken despite I flag")
	}
}

// An NMI arriving during a BRK sequence hijacks the vector fetch.
func TestBRKNMIHijack(t *testing.T) {
	cpu := newTestCPU(t, 0x0200, []byte{0x00, 0xEA})
	hwio.Write16(cpu.Bus, IRQVector, 0x0400)
	hwio.Write16(cpu.Bus, NMIVector, 0x0500)
	cpu.Bus.Write8(0x0400, 0xEA)
	cpu.Bus.Write8(0x0500, 0xEA)

	// Raise the NMI line right as BRK starts executing.
	cpu.setNMIflag()
	cpu.handleInterrupts()
	cpu.handleInterrupts() // prevNeedNmi follows needNmi one cycle later
	cpu.Run(1)

	if cpu.PC < 0x0500 || cpu.PC > 0x0501 {
		t.Errorf("PC = %04x, want NMI vector target 0500", cpu.PC)
	}
}
