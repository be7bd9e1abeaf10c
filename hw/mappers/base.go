package mappers

import (
	"fmt"

	"famicle/hw"
	"famicle/hw/hwio"
	"famicle/hw/snapshot"
	"famicle/ines"
)

// base carries what every board needs: the rom, the two buses, the bank
// offset tables the translation goes through, and PRG-RAM/CHR-RAM storage.
// Boards embed it and configure banking through the select*Page helpers.
type base struct {
	desc MapperDesc

	rom *ines.Rom
	cpu *hw.CPU
	ppu *hw.PPU

	prg    []byte // PRG ROM
	prgRAM []byte // PRG RAM at $6000-$7FFF, nil if absent
	chr    []byte // CHR ROM or CHR RAM
	chrRAM bool

	// Bank offset tables: four 8 KiB windows at $8000/$A000/$C000/$E000,
	// eight 1 KiB windows over the pattern tables.
	prgBanks [4]uint32
	chrBanks [8]uint32

	mirr ines.NTMirroring

	// register snapshot hooks, set by boards that carry banking state
	saveRegs func() []uint8
	loadRegs func([]uint8)
}

func ispow2(n int) bool {
	return n&(n-1) == 0
}

func newbase(desc MapperDesc, rom *ines.Rom, cpu *hw.CPU, ppu *hw.PPU) (*base, error) {
	if len(rom.PRGROM) == 0 || !ispow2(len(rom.PRGROM)) {
		return nil, fmt.Errorf("only support PRGROM with power of 2 size, got %d", len(rom.PRGROM))
	}

	b := &base{desc: desc, rom: rom, cpu: cpu, ppu: ppu}

	b.prg = rom.PRGROM
	if len(rom.CHRROM) != 0 {
		b.chr = rom.CHRROM
	} else {
		size := rom.CHRRAMSize()
		if size == 0 {
			size = 8192
		}
		b.chr = make([]byte, size)
		b.chrRAM = true
	}

	if size := rom.PRGRAMSize(); size > 0 {
		b.prgRAM = make([]byte, size)
	} else if rom.HasBattery() || rom.HasTrainer() {
		b.prgRAM = make([]byte, 8192)
	}
	if rom.HasTrainer() && len(b.prgRAM) >= 0x1200 {
		// 512-byte trainer lands at $7000-$71FF.
		copy(b.prgRAM[0x1000:0x1200], rom.Trainer)
	}

	b.mirr = rom.Mirroring()
	return b, nil
}

// install maps the board into the CPU and PPU address spaces. cpuWrite
// receives the register writes ($4020-$FFFF); cpuRead intercepts reads
// before the default PRG translation when non-nil.
func (b *base) install(board Board, cpuRead func(addr uint16) (uint8, bool), cpuWrite func(addr uint16, val uint8)) {
	read := b.cpuRead
	if cpuRead != nil {
		read = func(addr uint16) uint8 {
			if val, handled := cpuRead(addr); handled {
				return val
			}
			return b.cpuRead(addr)
		}
	}

	b.cpu.Bus.MapDevice(0x4020, &hwio.Device{
		Name:   b.desc.Name,
		Size:   0x10000 - 0x4020,
		ReadCb: read,
		PeekCb: read,
		WriteCb: func(addr uint16, val uint8) {
			if addr >= 0x6000 && addr < 0x8000 && b.prgRAM != nil {
				b.prgRAM[int(addr-0x6000)%len(b.prgRAM)] = val
			}
			// Register writes still reach the board (some overlay the top
			// of PRG-RAM, e.g. Nina-001).
			if cpuWrite != nil {
				cpuWrite(addr, val)
			}
		},
	})

	b.ppu.Bus.MapDevice(0x0000, &hwio.Device{
		Name:   b.desc.Name + "-chr",
		Size:   0x2000,
		ReadCb: b.chrRead,
		PeekCb: b.chrRead,
		WriteCb: func(addr uint16, val uint8) {
			if b.chrRAM {
				b.chr[b.chrOffset(addr)] = val
			}
		},
	})

	b.setNTMirroring(b.mirr)

	if w, ok := board.(hw.PPUAddrWatcher); ok {
		b.ppu.AttachWatcher(w)
	}
	if t, ok := board.(hw.CPUTicker); ok {
		b.cpu.AttachTicker(t)
	}
}

// cpuRead is the default PRG translation: PRG-RAM at $6000-$7FFF, banked
// PRG-ROM from $8000 up. Reads from unmapped board space return 0; the CPU
// bus keeps no open-bus value to return instead.
func (b *base) cpuRead(addr uint16) uint8 {
	switch {
	case addr >= 0x8000:
		off := b.prgBanks[(addr-0x8000)>>13] + uint32(addr&0x1FFF)
		return b.prg[int(off)%len(b.prg)]
	case addr >= 0x6000 && b.prgRAM != nil:
		return b.prgRAM[int(addr-0x6000)%len(b.prgRAM)]
	}
	return 0
}

func (b *base) chrOffset(addr uint16) int {
	off := b.chrBanks[(addr&0x1FFF)>>10] + uint32(addr&0x03FF)
	return int(off) % len(b.chr)
}

func (b *base) chrRead(addr uint16) uint8 {
	return b.chr[b.chrOffset(addr)]
}

/* bank selection */

func (b *base) prgPageCount(pagesz int) int {
	return max(len(b.prg)/pagesz, 1)
}

// selectPRGPage8KB maps an 8 KiB PRG page into one of the four CPU windows.
// Negative pages count from the end (-1 is the last page).
func (b *base) selectPRGPage8KB(slot, page int) {
	count := b.prgPageCount(0x2000)
	if page < 0 {
		page += count
	}
	page = ((page % count) + count) % count
	b.prgBanks[slot] = uint32(page) * 0x2000
}

func (b *base) selectPRGPage16KB(slot, page int) {
	count := b.prgPageCount(0x4000)
	if page < 0 {
		page += count
	}
	page = ((page % count) + count) % count
	b.prgBanks[slot*2] = uint32(page) * 0x4000
	b.prgBanks[slot*2+1] = uint32(page)*0x4000 + 0x2000
}

func (b *base) selectPRGPage32KB(page int) {
	count := b.prgPageCount(0x8000)
	page = ((page % count) + count) % count
	for i := 0; i < 4; i++ {
		b.prgBanks[i] = uint32(page)*0x8000 + uint32(i)*0x2000
	}
}

func (b *base) chrPageCount(pagesz int) int {
	return max(len(b.chr)/pagesz, 1)
}

// selectCHRPage1KB maps a 1 KiB CHR page into one of the eight pattern
// table windows.
func (b *base) selectCHRPage1KB(slot, page int) {
	count := b.chrPageCount(0x400)
	page = ((page % count) + count) % count
	b.chrBanks[slot] = uint32(page) * 0x400
}

func (b *base) selectCHRPage2KB(slot, page int) {
	count := b.chrPageCount(0x800)
	page = ((page % count) + count) % count
	b.chrBanks[slot*2] = uint32(page) * 0x800
	b.chrBanks[slot*2+1] = uint32(page)*0x800 + 0x400
}

func (b *base) selectCHRPage4KB(slot, page int) {
	count := b.chrPageCount(0x1000)
	page = ((page % count) + count) % count
	for i := 0; i < 4; i++ {
		b.chrBanks[slot*4+i] = uint32(page)*0x1000 + uint32(i)*0x400
	}
}

func (b *base) selectCHRPage8KB(page int) {
	count := b.chrPageCount(0x2000)
	page = ((page % count) + count) % count
	for i := 0; i < 8; i++ {
		b.chrBanks[i] = uint32(page)*0x2000 + uint32(i)*0x400
	}
}

/* nametable mirroring */

func (b *base) setNTMirroring(m ines.NTMirroring) {
	b.mirr = m

	// Unmap then remap all nametables.
	b.ppu.Bus.Unmap(0x2000, 0x3EFF)

	A := b.ppu.Nametables[0x000:0x400]
	B := b.ppu.Nametables[0x400:0x800]
	C := b.ppu.Nametables[0x800:0xC00]
	D := b.ppu.Nametables[0xC00:0x1000]

	var nt1, nt2, nt3, nt4 []byte
	switch m {
	case ines.HorzMirroring:
		nt1, nt2 = A, A
		nt3, nt4 = B, B
	case ines.VertMirroring:
		nt1, nt2 = A, B
		nt3, nt4 = A, B
	case ines.OnlyAScreen:
		nt1, nt2 = A, A
		nt3, nt4 = A, A
	case ines.OnlyBScreen:
		nt1, nt2 = B, B
		nt3, nt4 = B, B
	case ines.FourScreen:
		nt1, nt2 = A, B
		nt3, nt4 = C, D
	default:
		panic(fmt.Sprintf("unsupported mirroring %d", m))
	}

	b.ppu.Bus.MapMemorySlice(0x2000, 0x23FF, nt1, false)
	b.ppu.Bus.MapMemorySlice(0x2400, 0x27FF, nt2, false)
	b.ppu.Bus.MapMemorySlice(0x2800, 0x2BFF, nt3, false)
	b.ppu.Bus.MapMemorySlice(0x2C00, 0x2FFF, nt4, false)

	// Mirrors of $2000-$2EFF.
	b.ppu.Bus.MapMemorySlice(0x3000, 0x33FF, nt1, false)
	b.ppu.Bus.MapMemorySlice(0x3400, 0x37FF, nt2, false)
	b.ppu.Bus.MapMemorySlice(0x3800, 0x3BFF, nt3, false)
	b.ppu.Bus.MapMemorySlice(0x3C00, 0x3EFF, nt4, false)
}

// Mirroring returns the current nametable arrangement.
func (b *base) Mirroring() ines.NTMirroring {
	return b.mirr
}

func (b *base) Name() string {
	return b.desc.Name
}

/* save states */

func (b *base) State() *snapshot.Mapper {
	s := &snapshot.Mapper{}
	if b.saveRegs != nil {
		s.Regs = b.saveRegs()
	}
	if b.prgRAM != nil {
		s.PRGRAM = append([]uint8(nil), b.prgRAM...)
	}
	if b.chrRAM {
		s.CHRRAM = append([]uint8(nil), b.chr...)
	}
	return s
}

func (b *base) SetState(s *snapshot.Mapper) {
	if b.loadRegs != nil {
		b.loadRegs(s.Regs)
	}
	if b.prgRAM != nil {
		copy(b.prgRAM, s.PRGRAM)
	}
	if b.chrRAM {
		copy(b.chr, s.CHRRAM)
	}
}
