package hw

import (
	"famicle/emu/log"
	"famicle/hw/hwio"
	"famicle/hw/snapshot"
)

// Button is a standard controller button, in shift-out order.
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonSelect:
		return "Select"
	case ButtonStart:
		return "Start"
	case ButtonUp:
		return "Up"
	case ButtonDown:
		return "Down"
	case ButtonLeft:
		return "Left"
	case ButtonRight:
		return "Right"
	}
	return "unknown"
}

// InputPorts implements the $4016/$4017 controller interface: two standard
// pads and a zapper on port 2.
type InputPorts struct {
	ppu *PPU

	JOY1 hwio.Reg8 `hwio:"offset=0x16,rcb,wcb"`

	strobe bool
	pads   [2]uint8 // live button state
	shift  [2]uint8 // serial shift registers

	zapperX, zapperY int
	zapperTrigger    bool
}

func (in *InputPorts) initBus(cpu *CPU) {
	hwio.MustInitRegs(in)
	in.ppu = cpu.PPU
	cpu.Bus.MapBank(0x4000, in, 0)

	// $4017 is shared: reads come from controller port 2, writes go to the
	// APU frame counter.
	var reg joy2Reg
	hwio.MustInitRegs(&reg)
	reg.read = in.readJOY2
	if cpu.APU != nil {
		reg.write = cpu.APU.WriteFRAMECOUNTER
	}
	cpu.Bus.MapReg8(0x4017, &reg.JOY2)
}

// Used to disambiguate between:
// - read $4017 -> reads controller port 2
// - write $4017 -> writes to APU frame counter.
type joy2Reg struct {
	JOY2  hwio.Reg8 `hwio:"offset=0,rcb,wcb"`
	read  func(val uint8) uint8
	write func(old, val uint8)
}

func (r *joy2Reg) ReadJOY2(val uint8) uint8 { return r.read(val) }
func (r *joy2Reg) WriteJOY2(old, val uint8) {
	if r.write != nil {
		r.write(old, val)
	}
}

// SetButton presses or releases a button on the given pad (0 or 1).
func (in *InputPorts) SetButton(pad int, b Button, pressed bool) {
	if pressed {
		in.pads[pad] |= 1 << b
	} else {
		in.pads[pad] &^= 1 << b
	}
	if in.strobe {
		in.reload()
	}
	log.ModInput.DebugZ("button").
		Int("pad", pad).
		Stringer("button", b).
		Bool("pressed", pressed).
		End()
}

// SetZapper updates the light-gun state: aim point in frame coordinates and
// trigger level.
func (in *InputPorts) SetZapper(x, y int, trigger bool) {
	in.zapperX = x
	in.zapperY = y
	in.zapperTrigger = trigger
}

func (in *InputPorts) reload() {
	in.shift[0] = in.pads[0]
	in.shift[1] = in.pads[1]
}

// WriteJOY1 is the strobe register: while bit 0 is high the shift registers
// continuously reload from the live button state.
func (in *InputPorts) WriteJOY1(old, val uint8) {
	in.strobe = val&0x01 != 0
	if in.strobe {
		in.reload()
	}
}

func (in *InputPorts) ReadJOY1(val uint8) uint8 {
	return 0x40 | in.shiftOut(0)
}

func (in *InputPorts) readJOY2(val uint8) uint8 {
	ret := 0x40 | in.shiftOut(1)

	// Zapper: bit 4 is the trigger, bit 3 is light NOT sensed.
	if in.zapperTrigger {
		ret |= 1 << 4
	}
	lightBit := uint8(1)
	if in.ppu != nil && in.ppu.ZapperLightSensed(in.zapperX, in.zapperY) {
		lightBit = 0
	}
	ret |= lightBit << 3
	return ret
}

// shiftOut returns the next serial bit for the given pad. After eight shifts
// reads return 1 (the shift register refills with ones).
func (in *InputPorts) shiftOut(pad int) uint8 {
	if in.strobe {
		return in.pads[pad] & 0x01
	}
	bit := in.shift[pad] & 0x01
	in.shift[pad] = in.shift[pad]>>1 | 0x80
	return bit
}

/* save states */

func (in *InputPorts) State() *snapshot.Input {
	return &snapshot.Input{
		Strobe:  in.strobe,
		Pads:    in.pads,
		Shift:   in.shift,
		ZapperX: in.zapperX,
		ZapperY: in.zapperY,
		Trigger: in.zapperTrigger,
	}
}

func (in *InputPorts) SetState(s *snapshot.Input) {
	in.strobe = s.Strobe
	in.pads = s.Pads
	in.shift = s.Shift
	in.zapperX = s.ZapperX
	in.zapperY = s.ZapperY
	in.zapperTrigger = s.Trigger
}
