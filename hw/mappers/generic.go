package mappers

var Generic = MapperDesc{
	Name: "Generic",
	Load: loadGeneric,
}

// generic serves the assigned mapper ids without an explicit board: static
// banking only. PRG is fixed (last 32 KiB visible, a single 16 KiB image
// mirrored), one switchable CHR bank driven by writes to $8000-$FFFF,
// mirroring from the header, PRG-RAM if the header declares it. No IRQ, no
// dynamic PRG banking, no audio: boards needing those must be explicit.
type generic struct {
	*base

	chrBank uint8
}

func loadGeneric(b *base) (Board, error) {
	m := &generic{base: b}

	b.selectPRGPage16KB(0, -2)
	b.selectPRGPage16KB(1, -1)
	b.selectCHRPage8KB(0)

	b.saveRegs = func() []uint8 { return []uint8{m.chrBank} }
	b.loadRegs = func(regs []uint8) {
		if len(regs) == 1 {
			m.chrBank = regs[0]
			b.selectCHRPage8KB(int(m.chrBank))
		}
	}

	b.install(m, nil, m.write)
	return m, nil
}

func (m *generic) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	m.chrBank = val
	m.selectCHRPage8KB(int(m.chrBank))
}
