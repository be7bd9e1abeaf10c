package mappers

import "famicle/ines"

var UxROM = MapperDesc{
	Name: "UxROM",
	Load: loadUxROM,
}

// uxrom switches a 16 KiB PRG bank at $8000; the last bank is fixed at
// $C000. CHR is a single (usually RAM) bank.
type uxrom struct {
	*base

	bank uint8
}

func loadUxROM(b *base) (Board, error) {
	m := &uxrom{base: b}

	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage16KB(1, -1)
	b.selectCHRPage8KB(0)

	b.saveRegs = func() []uint8 { return []uint8{m.bank} }
	b.loadRegs = func(regs []uint8) {
		if len(regs) == 1 {
			m.bank = regs[0]
			b.selectPRGPage16KB(0, int(m.bank))
		}
	}

	b.install(m, nil, m.write)
	return m, nil
}

func (m *uxrom) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	m.bank = val & 0x0F
	m.selectPRGPage16KB(0, int(m.bank))
}

var Camerica = MapperDesc{
	Name: "Camerica",
	Load: loadCamerica,
}

// camerica (BF9093 and friends) is UxROM-like, with the bank register at
// $C000-$FFFF and an optional single-screen mirroring bit at $9000.
type camerica struct {
	*base

	bank uint8
}

func loadCamerica(b *base) (Board, error) {
	m := &camerica{base: b}

	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage16KB(1, -1)
	b.selectCHRPage8KB(0)

	b.saveRegs = func() []uint8 { return []uint8{m.bank} }
	b.loadRegs = func(regs []uint8) {
		if len(regs) == 1 {
			m.bank = regs[0]
			b.selectPRGPage16KB(0, int(m.bank))
		}
	}

	b.install(m, nil, m.write)
	return m, nil
}

func (m *camerica) write(addr uint16, val uint8) {
	switch {
	case addr >= 0x9000 && addr < 0xA000:
		if val&0x10 != 0 {
			m.setNTMirroring(ines.OnlyBScreen)
		} else {
			m.setNTMirroring(ines.OnlyAScreen)
		}
	case addr >= 0xC000:
		m.bank = val & 0x0F
		m.selectPRGPage16KB(0, int(m.bank))
	}
}
