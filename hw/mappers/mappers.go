// Package mappers implements the cartridge boards: address translation and
// banking for the CPU and PPU buses, nametable mirroring control, and the
// board IRQ sources (scanline counters, CPU-cycle counters, A12 edge
// counters).
package mappers

import (
	"fmt"

	"famicle/emu/log"
	"famicle/hw"
	"famicle/hw/snapshot"
	"famicle/ines"
)

var modMapper = log.NewModule("mapper")

// Board is a loaded cartridge board.
type Board interface {
	Name() string
	State() *snapshot.Mapper
	SetState(*snapshot.Mapper)
}

type MapperDesc struct {
	Name string
	Load func(*base) (Board, error)
}

var All = map[uint16]MapperDesc{
	0:  NROM,
	1:  MMC1,
	2:  UxROM,
	3:  CNROM,
	4:  MMC3,
	5:  MMC5,
	7:  AxROM,
	9:  MMC2,
	10: MMC4,
	19: Namco163,
	24: VRC6a,
	25: VRC4bd,
	26: VRC6b,
	34: Nina001,
	66: GxROM,
	69: FME7,
	71: Camerica,
	85: VRC7,
}

// Load instantiates the board for the rom's mapper id and wires it to the
// CPU and PPU buses. Ids without an explicit implementation (the ines loader
// already rejected anything above the highest assigned id) fall back to a
// generic board with static banking.
func Load(rom *ines.Rom, cpu *hw.CPU, ppu *hw.PPU) (Board, error) {
	desc, ok := All[rom.Mapper()]
	if !ok {
		desc = Generic
		modMapper.InfoZ("no explicit board, using generic mapping").
			Uint16("mapper", rom.Mapper()).
			End()
	}

	base, err := newbase(desc, rom, cpu, ppu)
	if err != nil {
		return nil, fmt.Errorf("mapper %d (%s) initialization failed: %w",
			rom.Mapper(), desc.Name, err)
	}
	board, err := desc.Load(base)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapper %s: %w", desc.Name, err)
	}
	return board, nil
}
