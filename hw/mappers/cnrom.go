package mappers

var CNROM = MapperDesc{
	Name: "CNROM",
	Load: loadCNROM,
}

// cnrom has fixed PRG and a switchable 8 KiB CHR bank, selected by the low
// bits of any write to $8000-$FFFF.
type cnrom struct {
	*base

	bank uint8
}

func loadCNROM(b *base) (Board, error) {
	m := &cnrom{base: b}

	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage16KB(1, -1)
	b.selectCHRPage8KB(0)

	b.saveRegs = func() []uint8 { return []uint8{m.bank} }
	b.loadRegs = func(regs []uint8) {
		if len(regs) == 1 {
			m.bank = regs[0]
			b.selectCHRPage8KB(int(m.bank))
		}
	}

	b.install(m, nil, m.write)
	return m, nil
}

func (m *cnrom) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	m.bank = val & 0x03
	m.selectCHRPage8KB(int(m.bank))
}
