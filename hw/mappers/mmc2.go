package mappers

import "famicle/ines"

var MMC2 = MapperDesc{
	Name: "MMC2",
	Load: loadMMC2,
}

var MMC4 = MapperDesc{
	Name: "MMC4",
	Load: loadMMC4,
}

// mmc2 (and mmc4, which differs only in PRG window size and latch
// granularity) selects each pattern-table half from one of two 4 KiB CHR
// banks through a latch. The latches toggle when the PPU fetches specific
// tile addresses ($xFD8/$xFE8 ranges), observed via the address-line
// notifications.
type mmc2 struct {
	*base

	mmc4 bool

	prgBank uint8

	chrFD [2]uint8 // bank used while the latch is FD, per pattern table
	chrFE [2]uint8 // bank used while the latch is FE

	latchFE [2]bool
}

func loadMMC2(b *base) (Board, error) { return loadMMC2family(b, false) }
func loadMMC4(b *base) (Board, error) { return loadMMC2family(b, true) }

func loadMMC2family(b *base, mmc4 bool) (Board, error) {
	m := &mmc2{base: b, mmc4: mmc4}
	m.latchFE[0] = true
	m.latchFE[1] = true

	if mmc4 {
		// 16 KiB switchable at $8000, last 16 KiB fixed.
		b.selectPRGPage16KB(0, 0)
		b.selectPRGPage16KB(1, -1)
	} else {
		// 8 KiB switchable at $8000, last three 8 KiB pages fixed.
		b.selectPRGPage8KB(0, 0)
		b.selectPRGPage8KB(1, -3)
		b.selectPRGPage8KB(2, -2)
		b.selectPRGPage8KB(3, -1)
	}
	m.remapCHR()

	b.saveRegs = m.save
	b.loadRegs = m.load

	b.install(m, nil, m.write)
	return m, nil
}

func (m *mmc2) write(addr uint16, val uint8) {
	switch {
	case addr >= 0xA000 && addr < 0xB000:
		m.prgBank = val & 0x0F
		if m.mmc4 {
			m.selectPRGPage16KB(0, int(m.prgBank))
		} else {
			m.selectPRGPage8KB(0, int(m.prgBank))
		}
	case addr >= 0xB000 && addr < 0xC000:
		m.chrFD[0] = val & 0x1F
		m.remapCHR()
	case addr >= 0xC000 && addr < 0xD000:
		m.chrFE[0] = val & 0x1F
		m.remapCHR()
	case addr >= 0xD000 && addr < 0xE000:
		m.chrFD[1] = val & 0x1F
		m.remapCHR()
	case addr >= 0xE000 && addr < 0xF000:
		m.chrFE[1] = val & 0x1F
		m.remapCHR()
	case addr >= 0xF000:
		if val&0x01 == 0 {
			m.setNTMirroring(ines.VertMirroring)
		} else {
			m.setNTMirroring(ines.HorzMirroring)
		}
	}
}

func (m *mmc2) remapCHR() {
	for half := 0; half < 2; half++ {
		bank := m.chrFD[half]
		if m.latchFE[half] {
			bank = m.chrFE[half]
		}
		m.selectCHRPage4KB(half, int(bank))
	}
}

// NotifyPPUAddr implements hw.PPUAddrWatcher: tile fetches in the magic
// ranges toggle the CHR latches. MMC2 matches single addresses in the low
// pattern table, MMC4 (like the upper table on both chips) whole 8-byte
// rows.
func (m *mmc2) NotifyPPUAddr(addr uint16) {
	addr &= 0x1FFF
	switch {
	case addr == 0x0FD8 || (m.mmc4 && addr >= 0x0FD8 && addr <= 0x0FDF):
		m.latchFE[0] = false
		m.remapCHR()
	case addr == 0x0FE8 || (m.mmc4 && addr >= 0x0FE8 && addr <= 0x0FEF):
		m.latchFE[0] = true
		m.remapCHR()
	case addr >= 0x1FD8 && addr <= 0x1FDF:
		m.latchFE[1] = false
		m.remapCHR()
	case addr >= 0x1FE8 && addr <= 0x1FEF:
		m.latchFE[1] = true
		m.remapCHR()
	}
}

func (m *mmc2) save() []uint8 {
	return []uint8{
		m.prgBank,
		m.chrFD[0], m.chrFD[1], m.chrFE[0], m.chrFE[1],
		b2u8(m.latchFE[0]), b2u8(m.latchFE[1]),
		uint8(m.mirr),
	}
}

func (m *mmc2) load(regs []uint8) {
	if len(regs) != 8 {
		return
	}
	m.prgBank = regs[0]
	m.chrFD[0], m.chrFD[1] = regs[1], regs[2]
	m.chrFE[0], m.chrFE[1] = regs[3], regs[4]
	m.latchFE[0] = regs[5] != 0
	m.latchFE[1] = regs[6] != 0
	m.setNTMirroring(ines.NTMirroring(regs[7]))

	if m.mmc4 {
		m.selectPRGPage16KB(0, int(m.prgBank))
	} else {
		m.selectPRGPage8KB(0, int(m.prgBank))
	}
	m.remapCHR()
}
