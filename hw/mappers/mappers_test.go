package mappers

import (
	"bytes"
	"testing"

	"famicle/hw"
	"famicle/ines"
)

// testRom assembles a rom image in memory and parses it back through the
// ines reader.
func testRom(tb testing.TB, mapper uint16, prg, chr []byte, flags6 uint8) *ines.Rom {
	tb.Helper()

	hdr := make([]byte, 16)
	copy(hdr, ines.Magic)
	hdr[4] = uint8(len(prg) / 16384)
	hdr[5] = uint8(len(chr) / 8192)
	hdr[6] = flags6 | uint8(mapper&0x0F)<<4
	hdr[7] = uint8(mapper) & 0xF0

	rom := new(ines.Rom)
	img := append(append(hdr, prg...), chr...)
	if _, err := rom.ReadFrom(bytes.NewReader(img)); err != nil {
		tb.Fatal(err)
	}
	return rom
}

// testConsole wires a CPU/PPU pair and loads the rom's board.
func testConsole(tb testing.TB, rom *ines.Rom) (*hw.CPU, *hw.PPU, Board) {
	tb.Helper()

	ppu := hw.NewPPU()
	cpu := hw.NewCPU(ppu)
	cpu.InitBus()
	ppu.InitBus()

	board, err := Load(rom, cpu, ppu)
	if err != nil {
		tb.Fatal(err)
	}
	return cpu, ppu, board
}

func TestNROMMapping(t *testing.T) {
	prg := make([]byte, 16384)
	chr := make([]byte, 8192)
	prg[0] = 0x11
	prg[16383] = 0x22
	chr[0x123] = 0x33

	cpu, ppu, _ := testConsole(t, testRom(t, 0, prg, chr, 0x01))

	// 16 KiB PRG mirrored into $C000-$FFFF.
	if got := cpu.Bus.Peek8(0x8000); got != 0x11 {
		t.Errorf("read $8000 = %02x, want 11", got)
	}
	if got := cpu.Bus.Peek8(0xC000); got != 0x11 {
		t.Errorf("read $C000 = %02x, want 11 (mirror)", got)
	}
	if got := cpu.Bus.Peek8(0xFFFF); got != 0x22 {
		t.Errorf("read $FFFF = %02x, want 22", got)
	}

	if got := ppu.Bus.Peek8(0x0123); got != 0x33 {
		t.Errorf("CHR read = %02x, want 33", got)
	}

	// Vertical mirroring: $2000 and $2800 are the same table.
	ppu.Bus.Write8(0x2005, 0x44)
	if got := ppu.Bus.Read8(0x2805, false); got != 0x44 {
		t.Errorf("vertical mirror read = %02x, want 44", got)
	}
	if got := ppu.Bus.Read8(0x2405, false); got == 0x44 {
		t.Errorf("nametable B aliases A")
	}
}

func TestPRGRAMAndTrainer(t *testing.T) {
	prg := make([]byte, 16384)
	trainer := make([]byte, 512)
	trainer[0] = 0x5A

	hdr := make([]byte, 16)
	copy(hdr, ines.Magic)
	hdr[4] = 1
	hdr[6] = 0x06 // battery + trainer

	img := append(append(hdr, trainer...), prg...)
	rom := new(ines.Rom)
	if _, err := rom.ReadFrom(bytes.NewReader(img)); err != nil {
		t.Fatal(err)
	}

	cpu, _, _ := testConsole(t, rom)

	// Trainer lands at $7000.
	if got := cpu.Bus.Peek8(0x7000); got != 0x5A {
		t.Errorf("trainer byte = %02x, want 5a", got)
	}

	cpu.Bus.Write8(0x6123, 0x77)
	if got := cpu.Bus.Peek8(0x6123); got != 0x77 {
		t.Errorf("PRG-RAM readback = %02x, want 77", got)
	}
}

func TestGenericFallback(t *testing.T) {
	prg := make([]byte, 65536)
	prg[65536-32768] = 0xAB // first byte of the last 32 KiB

	// Mapper 111 has no explicit board.
	cpu, _, board := testConsole(t, testRom(t, 111, prg, make([]byte, 8192), 0))

	if board.Name() != "Generic" {
		t.Fatalf("board = %s, want Generic", board.Name())
	}
	if got := cpu.Bus.Peek8(0x8000); got != 0xAB {
		t.Errorf("read $8000 = %02x, want ab (last 32 KiB fixed)", got)
	}
}

func TestUxROMBanking(t *testing.T) {
	prg := make([]byte, 4*16384)
	prg[0*16384] = 0x10
	prg[1*16384] = 0x11
	prg[2*16384] = 0x12
	prg[3*16384] = 0x13

	cpu, _, _ := testConsole(t, testRom(t, 2, prg, nil, 0))

	if got := cpu.Bus.Peek8(0xC000); got != 0x13 {
		t.Errorf("$C000 = %02x, want 13 (fixed last bank)", got)
	}

	for bank := 0; bank < 4; bank++ {
		cpu.Bus.Write8(0x8000, uint8(bank))
		want := uint8(0x10 + bank)
		if got := cpu.Bus.Peek8(0x8000); got != want {
			t.Errorf("bank %d: $8000 = %02x, want %02x", bank, got, want)
		}
	}
}

func TestCNROMBanking(t *testing.T) {
	chr := make([]byte, 4*8192)
	for i := 0; i < 4; i++ {
		chr[i*8192] = uint8(0x20 + i)
	}

	cpu, ppu, _ := testConsole(t, testRom(t, 3, make([]byte, 16384), chr, 0))

	for bank := 0; bank < 4; bank++ {
		cpu.Bus.Write8(0x8000, uint8(bank))
		want := uint8(0x20 + bank)
		if got := ppu.Bus.Peek8(0x0000); got != want {
			t.Errorf("bank %d: CHR read = %02x, want %02x", bank, got, want)
		}
	}
}

func TestMMC1SerialLoad(t *testing.T) {
	prg := make([]byte, 8*16384)
	cpu, _, board := testConsole(t, testRom(t, 1, prg, make([]byte, 8192), 0))
	m := board.(*mmc1)

	write := func(addr uint16, val uint8) {
		cpu.Cycles += 3 // distinct CPU cycles between writes
		cpu.Bus.Write8(addr, val)
	}

	// Reset, then shift in CTRL = %00100: PRG mode 1 (LSB first).
	write(0x8000, 0x80)
	for _, bit := range []uint8{0, 0, 1, 0, 0} {
		write(0x8000, bit)
	}
	if m.prgmode != 1 {
		t.Errorf("prgmode = %d, want 1", m.prgmode)
	}

	// Shift in CTRL = %11111.
	for _, bit := range []uint8{1, 1, 1, 1, 1} {
		write(0x8000, bit)
	}
	if m.prgmode != 3 || m.chrmode != 1 || m.ntm != 3 {
		t.Errorf("prgmode=%d chrmode=%d ntm=%d, want 3/1/3", m.prgmode, m.chrmode, m.ntm)
	}
}

func TestMMC1ConsecutiveCycleWriteIgnored(t *testing.T) {
	prg := make([]byte, 8*16384)
	cpu, _, board := testConsole(t, testRom(t, 1, prg, make([]byte, 8192), 0))
	m := board.(*mmc1)

	cpu.Cycles = 100
	cpu.Bus.Write8(0x8000, 0x01)
	if m.counter != 1 {
		t.Fatalf("counter = %d after first write, want 1", m.counter)
	}

	// Same CPU cycle: the second write of an RMW instruction is dropped.
	cpu.Bus.Write8(0x8000, 0x01)
	if m.counter != 1 {
		t.Errorf("counter = %d, want 1 (same-cycle write must be ignored)", m.counter)
	}

	cpu.Cycles += 5
	cpu.Bus.Write8(0x8000, 0x01)
	if m.counter != 2 {
		t.Errorf("counter = %d, want 2", m.counter)
	}
}

func TestMMC1PRGBanking(t *testing.T) {
	prg := make([]byte, 8*16384)
	for i := 0; i < 8; i++ {
		prg[i*16384] = uint8(0x40 + i)
	}
	cpu, _, _ := testConsole(t, testRom(t, 1, prg, make([]byte, 8192), 0))

	write := func(addr uint16, val uint8) {
		cpu.Cycles += 3
		cpu.Bus.Write8(addr, val)
	}
	loadReg := func(addr uint16, val uint8) {
		for i := 0; i < 5; i++ {
			write(addr, val>>i&1)
		}
	}

	// Powerup state: mode 3, $C000 fixed to the last bank.
	if got := cpu.Bus.Peek8(0xC000); got != 0x47 {
		t.Errorf("$C000 = %02x, want 47", got)
	}

	loadReg(0xE000, 0x03) // PRG bank 3 at $8000
	if got := cpu.Bus.Peek8(0x8000); got != 0x43 {
		t.Errorf("$8000 = %02x, want 43", got)
	}
	if got := cpu.Bus.Peek8(0xC000); got != 0x47 {
		t.Errorf("$C000 = %02x, want 47 (still fixed)", got)
	}
}

// pulseA12 produces one filtered rising edge: enough low samples, then high.
func pulseA12(m *mmc3) {
	for i := 0; i < 8; i++ {
		m.NotifyPPUAddr(0x0000)
	}
	m.NotifyPPUAddr(0x1000)
}

func TestMMC3IRQCounter(t *testing.T) {
	prg := make([]byte, 8*16384)
	cpu, _, board := testConsole(t, testRom(t, 4, prg, make([]byte, 8*8192), 0))
	m := board.(*mmc3)

	cpu.Bus.Write8(0xC000, 3) // latch = 3
	cpu.Bus.Write8(0xC001, 0) // reload request
	cpu.Bus.Write8(0xE001, 0) // IRQ enable

	// Edge 1 reloads the counter; edges 2..4 count it down to zero.
	for edge := 1; edge <= 4; edge++ {
		pulseA12(m)
		want := edge == 4
		if got := cpu.PendingIRQ(); got != want {
			t.Fatalf("after edge %d: IRQ = %t, want %t", edge, got, want)
		}
	}

	// Disabling acknowledges and blocks further assertions.
	cpu.Bus.Write8(0xE000, 0)
	if cpu.PendingIRQ() {
		t.Error("IRQ still pending after disable")
	}
	pulseA12(m)
	if cpu.PendingIRQ() {
		t.Error("IRQ asserted while disabled")
	}
}

func TestMMC3A12Filter(t *testing.T) {
	prg := make([]byte, 8*16384)
	cpu, _, board := testConsole(t, testRom(t, 4, prg, make([]byte, 8*8192), 0))
	m := board.(*mmc3)

	cpu.Bus.Write8(0xC000, 1)
	cpu.Bus.Write8(0xC001, 0)
	cpu.Bus.Write8(0xE001, 0)

	pulseA12(m) // reload

	// Rapid toggles without enough low time must not clock the counter.
	for i := 0; i < 20; i++ {
		m.NotifyPPUAddr(0x0000)
		m.NotifyPPUAddr(0x1000)
	}
	if cpu.PendingIRQ() {
		t.Error("unfiltered A12 toggles clocked the IRQ counter")
	}

	pulseA12(m) // counts 1 -> 0
	if !cpu.PendingIRQ() {
		t.Error("filtered edge did not clock the IRQ counter")
	}
}

func TestMMC3PRGModes(t *testing.T) {
	prg := make([]byte, 8*16384) // 16 pages of 8 KiB
	for i := 0; i < 16; i++ {
		prg[i*8192] = uint8(i)
	}
	cpu, _, _ := testConsole(t, testRom(t, 4, prg, make([]byte, 8192), 0))

	// R6 = 2, mode 0: $8000 swappable, $C000 second-last.
	cpu.Bus.Write8(0x8000, 6)
	cpu.Bus.Write8(0x8001, 2)
	if got := cpu.Bus.Peek8(0x8000); got != 2 {
		t.Errorf("$8000 = %02x, want 02", got)
	}
	if got := cpu.Bus.Peek8(0xC000); got != 14 {
		t.Errorf("$C000 = %02x, want 0e (second-last)", got)
	}

	// PRG mode 1 swaps the two regions.
	cpu.Bus.Write8(0x8000, 0x46)
	if got := cpu.Bus.Peek8(0x8000); got != 14 {
		t.Errorf("mode 1: $8000 = %02x, want 0e", got)
	}
	if got := cpu.Bus.Peek8(0xC000); got != 2 {
		t.Errorf("mode 1: $C000 = %02x, want 02", got)
	}
}

func TestMMC2CHRLatch(t *testing.T) {
	chr := make([]byte, 4*4096)
	for i := 0; i < 4; i++ {
		chr[i*4096] = uint8(0x30 + i)
	}
	// MMC2 rom: 128 KiB PRG typical, but 32 KiB is fine for the latch test.
	cpu, ppu, board := testConsole(t, testRom(t, 9, make([]byte, 2*16384), chr, 0))
	m := board.(*mmc2)

	cpu.Bus.Write8(0xB000, 0) // FD/0000 bank
	cpu.Bus.Write8(0xC000, 1) // FE/0000 bank

	// Latch starts at FE.
	if got := ppu.Bus.Peek8(0x0000); got != 0x31 {
		t.Fatalf("CHR read = %02x, want 31 (FE bank)", got)
	}

	// A fetch at $0FD8 switches latch 0 to FD.
	m.NotifyPPUAddr(0x0FD8)
	if got := ppu.Bus.Peek8(0x0000); got != 0x30 {
		t.Errorf("CHR read after FD latch = %02x, want 30", got)
	}

	m.NotifyPPUAddr(0x0FE8)
	if got := ppu.Bus.Peek8(0x0000); got != 0x31 {
		t.Errorf("CHR read after FE latch = %02x, want 31", got)
	}
}

func TestAxROMMirroring(t *testing.T) {
	prg := make([]byte, 2*32768)
	cpu, ppu, _ := testConsole(t, testRom(t, 7, prg, nil, 0))

	ppu.Bus.Write8(0x2000, 0x55) // nametable A

	cpu.Bus.Write8(0x8000, 0x10) // single-screen B
	if got := ppu.Bus.Read8(0x2000, false); got == 0x55 {
		t.Error("still reading nametable A after switching to single-screen B")
	}

	cpu.Bus.Write8(0x8000, 0x00) // back to single-screen A
	if got := ppu.Bus.Read8(0x2000, false); got != 0x55 {
		t.Errorf("nametable A read = %02x, want 55", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	prg := make([]byte, 8*16384)
	cpu, _, board := testConsole(t, testRom(t, 4, prg, make([]byte, 8*8192), 0))
	m := board.(*mmc3)

	cpu.Bus.Write8(0x8000, 6)
	cpu.Bus.Write8(0x8001, 5)
	cpu.Bus.Write8(0xC000, 42)
	cpu.Bus.Write8(0xE001, 0)
	pulseA12(m)

	s := board.State()

	cpu.Bus.Write8(0x8001, 1)
	cpu.Bus.Write8(0xC000, 7)

	board.SetState(s)
	if m.bankRegs[6] != 5 || m.irqLatch != 42 || !m.irqEnabled {
		t.Errorf("restored state: bank=%d latch=%d enabled=%t, want 5/42/true",
			m.bankRegs[6], m.irqLatch, m.irqEnabled)
	}
}
