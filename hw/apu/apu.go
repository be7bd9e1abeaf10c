// Package apu implements the 2A03 audio unit: the frame counter, the five
// sound channels and the mixer that resamples their output for the audio
// collaborator.
package apu

import (
	"famicle/emu/log"
	"famicle/hw/hwio"
	"famicle/hw/snapshot"
)

// CPU is the view of the CPU the APU needs: the two IRQ lines and the DMC
// sample DMA.
type CPU interface {
	SetFrameIRQ(asserted bool)
	SetDMCIRQ(asserted bool)
	StartDMCFetch(addr uint16)
}

type APU struct {
	cpu   CPU
	mixer *Mixer

	Square1  squareChannel
	Square2  squareChannel
	Triangle triangleChannel
	Noise    noiseChannel
	DMC      DMC

	fc frameCounter

	STATUS hwio.Reg8 `hwio:"offset=0x15,rcb,wcb"`

	cycle    uint32 // CPU cycles into the current frame
	oddCycle bool
}

func New(mixer *Mixer) *APU {
	a := &APU{mixer: mixer}
	a.Square1.channel1 = true
	a.Noise.reset()
	return a
}

// Connect wires the APU to the CPU-side IRQ and DMA plumbing.
func (a *APU) Connect(cpu CPU) {
	a.cpu = cpu
	a.DMC.cpu = cpu
}

func (a *APU) InitBus(bus *hwio.Table) {
	hwio.MustInitRegs(a)

	// Channel registers $4000-$4013, write-only.
	bus.MapDevice(0x4000, &hwio.Device{
		Name:    "apu",
		Size:    0x14,
		Flags:   hwio.WriteOnlyFlag,
		WriteCb: a.writeChannelReg,
	})
	bus.MapBank(0x4000, a, 0)
}

func (a *APU) Reset(soft bool) {
	a.Square1 = squareChannel{channel1: true}
	a.Square2 = squareChannel{}
	a.Triangle = triangleChannel{}
	a.Noise = noiseChannel{}
	a.Noise.reset()

	dmcCPU := a.DMC.cpu
	a.DMC = DMC{cpu: dmcCPU}

	a.fc = frameCounter{}
	a.cycle = 0
	a.oddCycle = false
	if a.mixer != nil {
		a.mixer.Reset()
	}
	_ = soft
}

func (a *APU) writeChannelReg(addr uint16, val uint8) {
	switch addr {
	case 0x4000:
		a.Square1.writeControl(val)
	case 0x4001:
		a.Square1.writeSweep(val)
	case 0x4002:
		a.Square1.writeTimerLow(val)
	case 0x4003:
		a.Square1.writeTimerHigh(val)
	case 0x4004:
		a.Square2.writeControl(val)
	case 0x4005:
		a.Square2.writeSweep(val)
	case 0x4006:
		a.Square2.writeTimerLow(val)
	case 0x4007:
		a.Square2.writeTimerHigh(val)
	case 0x4008:
		a.Triangle.writeLinear(val)
	case 0x400A:
		a.Triangle.writeTimerLow(val)
	case 0x400B:
		a.Triangle.writeTimerHigh(val)
	case 0x400C:
		a.Noise.writeControl(val)
	case 0x400E:
		a.Noise.writePeriod(val)
	case 0x400F:
		a.Noise.writeLength(val)
	case 0x4010:
		a.DMC.writeControl(val)
	case 0x4011:
		a.DMC.writeLevel(val)
	case 0x4012:
		a.DMC.writeSampleAddr(val)
	case 0x4013:
		a.DMC.writeSampleLen(val)
	default:
		// $4009/$400D don't exist; writes are ignored.
	}
}

// WriteSTATUS handles $4015 stores: channel enables.
func (a *APU) WriteSTATUS(old, val uint8) {
	a.Square1.length.setEnabled(val&0x01 != 0)
	a.Square2.length.setEnabled(val&0x02 != 0)
	a.Triangle.length.setEnabled(val&0x04 != 0)
	a.Noise.length.setEnabled(val&0x08 != 0)
	a.DMC.setEnabled(val&0x10 != 0)
	a.DMC.setIRQ(false)
}

// ReadSTATUS handles $4015 loads: channel length status and the two IRQ
// flags. Reading clears the frame IRQ flag (but not the DMC one).
func (a *APU) ReadSTATUS(val uint8) uint8 {
	var ret uint8
	if a.Square1.length.active() {
		ret |= 0x01
	}
	if a.Square2.length.active() {
		ret |= 0x02
	}
	if a.Triangle.length.active() {
		ret |= 0x04
	}
	if a.Noise.length.active() {
		ret |= 0x08
	}
	if a.DMC.active() {
		ret |= 0x10
	}
	if a.fc.irqFlag {
		ret |= 0x40
	}
	if a.DMC.irqFlag {
		ret |= 0x80
	}

	a.fc.setIRQ(a, false)
	return ret
}

// WriteFRAMECOUNTER handles $4017 stores (the register itself is mapped by
// the input ports, which own the read side).
func (a *APU) WriteFRAMECOUNTER(old, val uint8) {
	log.ModAPU.DebugZ("frame counter write").Hex8("val", val).End()
	a.fc.write(a, val)
}

// Tick advances the APU by one CPU cycle.
func (a *APU) Tick() {
	a.fc.tick(a)

	a.Triangle.clockTimer()
	if a.oddCycle {
		a.Square1.clockTimer()
		a.Square2.clockTimer()
		a.Noise.clockTimer()
		a.DMC.clockTimer()
	}
	a.oddCycle = !a.oddCycle

	if a.mixer != nil {
		a.mixer.AddSample(a.cycle,
			a.Square1.output(), a.Square2.output(),
			a.Triangle.output(), a.Noise.output(),
			a.DMC.outputLevel())
	}
	a.cycle++
}

func (a *APU) clockQuarterFrame() {
	a.Square1.env.clock()
	a.Square2.env.clock()
	a.Noise.env.clock()
	a.Triangle.clockLinear()
}

func (a *APU) clockHalfFrame() {
	a.Square1.clockLengthAndSweep()
	a.Square2.clockLengthAndSweep()
	a.Noise.length.clock()
}

// EndFrame flushes the frame worth of audio into the mixer output queue.
func (a *APU) EndFrame() {
	if a.mixer != nil {
		a.mixer.EndFrame(a.cycle)
	}
	a.cycle = 0
}

/* save states */

func (a *APU) State() *snapshot.APU {
	var status uint8
	if a.Square1.length.enabled {
		status |= 0x01
	}
	if a.Square2.length.enabled {
		status |= 0x02
	}
	if a.Triangle.length.enabled {
		status |= 0x04
	}
	if a.Noise.length.enabled {
		status |= 0x08
	}
	mode := uint8(0)
	if a.fc.mode5 {
		mode = 1
	}
	return &snapshot.APU{
		Status: status,
		FrameCounter: snapshot.FrameCounter{
			Mode:       mode,
			Cycle:      a.fc.cycle,
			IRQInhibit: a.fc.inhibitIRQ,
			IRQFlag:    a.fc.irqFlag,
		},
	}
}

func (a *APU) SetState(s *snapshot.APU) {
	a.Square1.length.setEnabled(s.Status&0x01 != 0)
	a.Square2.length.setEnabled(s.Status&0x02 != 0)
	a.Triangle.length.setEnabled(s.Status&0x04 != 0)
	a.Noise.length.setEnabled(s.Status&0x08 != 0)
	a.fc.mode5 = s.FrameCounter.Mode != 0
	a.fc.cycle = s.FrameCounter.Cycle
	a.fc.inhibitIRQ = s.FrameCounter.IRQInhibit
	a.fc.irqFlag = s.FrameCounter.IRQFlag
}
