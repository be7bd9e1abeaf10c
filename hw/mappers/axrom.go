package mappers

import "famicle/ines"

var AxROM = MapperDesc{
	Name: "AxROM",
	Load: loadAxROM,
}

// axrom switches the whole 32 KiB PRG window and selects one of the two
// single-screen nametables with bit 4.
type axrom struct {
	*base

	reg uint8
}

func loadAxROM(b *base) (Board, error) {
	m := &axrom{base: b}

	b.selectPRGPage32KB(0)
	b.selectCHRPage8KB(0)
	b.setNTMirroring(ines.OnlyAScreen)

	b.saveRegs = func() []uint8 { return []uint8{m.reg} }
	b.loadRegs = func(regs []uint8) {
		if len(regs) == 1 {
			m.apply(regs[0])
		}
	}

	b.install(m, nil, m.write)
	return m, nil
}

func (m *axrom) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	m.apply(val)
}

func (m *axrom) apply(val uint8) {
	m.reg = val
	m.selectPRGPage32KB(int(val & 0x0F))
	if val&0x10 != 0 {
		m.setNTMirroring(ines.OnlyBScreen)
	} else {
		m.setNTMirroring(ines.OnlyAScreen)
	}
}

var GxROM = MapperDesc{
	Name: "GxROM",
	Load: loadGxROM,
}

// gxrom has a 32 KiB PRG bank in bits 4-5 and an 8 KiB CHR bank in bits 0-1
// of a single register.
type gxrom struct {
	*base

	reg uint8
}

func loadGxROM(b *base) (Board, error) {
	m := &gxrom{base: b}

	b.selectPRGPage32KB(0)
	b.selectCHRPage8KB(0)

	b.saveRegs = func() []uint8 { return []uint8{m.reg} }
	b.loadRegs = func(regs []uint8) {
		if len(regs) == 1 {
			m.apply(regs[0])
		}
	}

	b.install(m, nil, m.write)
	return m, nil
}

func (m *gxrom) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	m.apply(val)
}

func (m *gxrom) apply(val uint8) {
	m.reg = val
	m.selectPRGPage32KB(int(val >> 4 & 0x03))
	m.selectCHRPage8KB(int(val & 0x03))
}

var Nina001 = MapperDesc{
	Name: "Nina-001",
	Load: loadNina001,
}

// nina001 banks through registers overlaid on the top of PRG-RAM:
// $7FFD selects the 32 KiB PRG bank, $7FFE/$7FFF the two 4 KiB CHR banks.
type nina001 struct {
	*base

	prg  uint8
	chr0 uint8
	chr1 uint8
}

func loadNina001(b *base) (Board, error) {
	m := &nina001{base: b}

	b.selectPRGPage32KB(0)
	b.selectCHRPage4KB(0, 0)
	b.selectCHRPage4KB(1, 1)

	b.saveRegs = func() []uint8 { return []uint8{m.prg, m.chr0, m.chr1} }
	b.loadRegs = func(regs []uint8) {
		if len(regs) == 3 {
			m.prg, m.chr0, m.chr1 = regs[0], regs[1], regs[2]
			m.remap()
		}
	}

	b.install(m, nil, m.write)
	return m, nil
}

func (m *nina001) write(addr uint16, val uint8) {
	// The registers shadow PRG-RAM writes, which base already stored.
	switch addr {
	case 0x7FFD:
		m.prg = val & 0x01
	case 0x7FFE:
		m.chr0 = val & 0x0F
	case 0x7FFF:
		m.chr1 = val & 0x0F
	default:
		return
	}
	m.remap()
}

func (m *nina001) remap() {
	m.selectPRGPage32KB(int(m.prg))
	m.selectCHRPage4KB(0, int(m.chr0))
	m.selectCHRPage4KB(1, int(m.chr1))
}
