package apu

import "testing"

type fakeCPU struct {
	frameIRQ bool
	dmcIRQ   bool
	fetches  []uint16
}

func (f *fakeCPU) SetFrameIRQ(asserted bool) { f.frameIRQ = asserted }
func (f *fakeCPU) SetDMCIRQ(asserted bool)   { f.dmcIRQ = asserted }
func (f *fakeCPU) StartDMCFetch(addr uint16) { f.fetches = append(f.fetches, addr) }

func newTestAPU() (*APU, *fakeCPU) {
	cpu := &fakeCPU{}
	a := New(nil) // no mixer: channels still clock
	a.Connect(cpu)
	return a, cpu
}

func TestFrameCounterIRQ(t *testing.T) {
	a, cpu := newTestAPU()

	for i := 0; i < fc4StepQ4IRQ; i++ {
		a.Tick()
	}
	if !cpu.frameIRQ {
		t.Fatal("frame IRQ not asserted at the 4-step boundary")
	}

	// Reading $4015 reports and clears the flag.
	if got := a.ReadSTATUS(0); got&0x40 == 0 {
		t.Error("status read missing frame IRQ bit")
	}
	if cpu.frameIRQ {
		t.Error("status read did not clear the IRQ line")
	}
	if got := a.ReadSTATUS(0); got&0x40 != 0 {
		t.Error("frame IRQ bit still set on second read")
	}
}

func TestFrameCounterInhibit(t *testing.T) {
	a, cpu := newTestAPU()

	a.WriteFRAMECOUNTER(0, 0x40) // inhibit
	for i := 0; i < fc4StepPeriod*2; i++ {
		a.Tick()
	}
	if cpu.frameIRQ {
		t.Error("frame IRQ asserted despite inhibit")
	}
}

func TestFiveStepModeNoIRQ(t *testing.T) {
	a, cpu := newTestAPU()

	a.WriteFRAMECOUNTER(0, 0x80) // 5-step, IRQ never raised
	for i := 0; i < fc5StepPeriod; i++ {
		a.Tick()
	}
	if cpu.frameIRQ {
		t.Error("frame IRQ asserted in 5-step mode")
	}
}

func TestLengthCounterGating(t *testing.T) {
	a, _ := newTestAPU()

	a.WriteSTATUS(0, 0x01)       // enable square 1
	a.writeChannelReg(0x4003, 8) // length index 1 -> 254 half-frames
	if !a.Square1.length.active() {
		t.Fatal("length counter not loaded")
	}

	// Disabling the channel zeroes its counter immediately.
	a.WriteSTATUS(0, 0x00)
	if a.Square1.length.active() {
		t.Error("length counter still active after channel disable")
	}

	// A load while disabled is ignored.
	a.writeChannelReg(0x4003, 8)
	if a.Square1.length.active() {
		t.Error("length counter loaded while channel disabled")
	}
}

func TestLengthCounterHalfFrameClock(t *testing.T) {
	a, _ := newTestAPU()

	a.WriteSTATUS(0, 0x01)
	a.writeChannelReg(0x4003, 0x18) // length index 3 -> 2 half-frames
	if a.Square1.length.counter != 2 {
		t.Fatalf("counter = %d, want 2", a.Square1.length.counter)
	}

	for i := 0; i < fc4StepPeriod; i++ {
		a.Tick()
	}
	if a.Square1.length.active() {
		t.Error("length counter should have expired after two half-frames")
	}
}

func TestDMCFetchesThroughDMA(t *testing.T) {
	a, cpu := newTestAPU()

	a.writeChannelReg(0x4012, 0x00) // sample address $C000
	a.writeChannelReg(0x4013, 0x00) // length 1 byte
	a.WriteSTATUS(0, 0x10)          // start DMC

	if len(cpu.fetches) != 1 || cpu.fetches[0] != 0xC000 {
		t.Fatalf("fetches = %#v, want one fetch of $C000", cpu.fetches)
	}

	a.DMC.SetReadBuffer(0x55)
	if a.DMC.active() {
		t.Error("one-byte sample still active after delivery")
	}
}

func TestNoiseLFSR(t *testing.T) {
	var n noiseChannel
	n.reset()
	n.writePeriod(0x00)

	seen := map[uint16]bool{}
	for i := 0; i < 40; i++ {
		for c := 0; c <= int(n.period); c++ {
			n.clockTimer()
		}
		if seen[n.lfsr] {
			t.Fatalf("LFSR repeated after only %d clocks", i)
		}
		seen[n.lfsr] = true
	}
}
