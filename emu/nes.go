package emu

import (
	"famicle/emu/log"
	"famicle/hw"
	"famicle/hw/apu"
	"famicle/hw/mappers"
	"famicle/ines"
)

// NES owns the whole machine: CPU, PPU, APU, the cartridge board and the
// input ports. Components never hold long-lived references to each other's
// storage; all traffic goes through the two hwio bus tables.
type NES struct {
	CPU   *hw.CPU
	PPU   *hw.PPU
	APU   *apu.APU
	Mixer *apu.Mixer
	Board mappers.Board
	Rom   *ines.Rom

	frameIndex uint64
}

// PowerUp builds and wires the machine for the given rom and runs the
// power-on reset.
func PowerUp(rom *ines.Rom) (*NES, error) {
	mixer := apu.NewMixer(48000)
	ppu := hw.NewPPU()
	cpu := hw.NewCPU(ppu)
	cpu.APU = apu.New(mixer)
	cpu.InitBus()
	ppu.InitBus()

	board, err := mappers.Load(rom, cpu, ppu)
	if err != nil {
		return nil, err
	}

	// Cartridge audio is summed into the APU mix.
	if exp, ok := board.(interface{ ExpansionAudio() float64 }); ok {
		mixer.SetExpansionAudio(exp.ExpansionAudio)
	}

	nes := &NES{
		CPU:   cpu,
		PPU:   ppu,
		APU:   cpu.APU,
		Mixer: mixer,
		Board: board,
		Rom:   rom,
	}
	nes.Reset(false)

	log.ModEmu.InfoZ("powered up").
		String("mapper", board.Name()).
		Uint16("id", rom.Mapper()).
		End()
	return nes, nil
}

// Reset resets the machine. A soft reset keeps RAM and most register state,
// like the console's reset button; a hard reset is a power cycle.
func (nes *NES) Reset(soft bool) {
	nes.PPU.Reset()
	nes.APU.Reset(soft)
	nes.CPU.Reset(soft)
	nes.Mixer.Reset()
}

// Frame is what one emulated frame hands to the collaborators: the video
// frame as RGBA, the audio samples produced during it, and a running index.
type Frame struct {
	Video []uint8
	Audio []int16
	Index uint64
}

// StepFrame advances emulation until the PPU completes the current frame
// (vblank start) and returns it. A halted CPU (KIL) short-circuits the
// loop; the halt is observable through CPU.IsHalted, not as an error.
func (nes *NES) StepFrame() Frame {
	nes.PPU.ClearFrameComplete()

	for !nes.PPU.FrameComplete() && !nes.CPU.IsHalted() {
		nes.CPU.Run(1)
	}
	nes.APU.EndFrame()

	nes.frameIndex++
	video := make([]uint8, hw.FrameWidth*hw.FrameHeight*4)
	nes.PPU.RenderRGBA(video)

	return Frame{
		Video: video,
		Audio: nes.Mixer.TakeSamples(),
		Index: nes.frameIndex,
	}
}

// Press injects a button transition on the given pad.
func (nes *NES) Press(pad int, b hw.Button, pressed bool) {
	nes.CPU.Input.SetButton(pad, b, pressed)
}

// SetZapper injects the light-gun state (aim in frame coordinates).
func (nes *NES) SetZapper(x, y int, trigger bool) {
	nes.CPU.Input.SetZapper(x, y, trigger)
}
