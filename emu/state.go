package emu

import (
	"fmt"

	"famicle/hw/snapshot"
)

const stateVersion = 1

// SaveState captures the whole machine synchronously. Call it between
// frames (or at least between instructions): the snapshot is only coherent
// at instruction boundaries.
func (nes *NES) SaveState() *snapshot.NES {
	return &snapshot.NES{
		Version: stateVersion,
		CPU:     nes.CPU.State(),
		PPU:     nes.PPU.State(),
		APU:     nes.APU.State(),
		Input:   nes.CPU.Input.State(),
		Mapper:  nes.Board.State(),
	}
}

// LoadState restores a snapshot previously taken with SaveState on a
// machine running the same rom.
func (nes *NES) LoadState(s *snapshot.NES) error {
	if s.Version != stateVersion {
		return fmt.Errorf("unsupported state version %d", s.Version)
	}
	nes.CPU.SetState(s.CPU)
	nes.PPU.SetState(s.PPU)
	nes.APU.SetState(s.APU)
	nes.CPU.Input.SetState(s.Input)
	nes.Board.SetState(s.Mapper)
	return nil
}
