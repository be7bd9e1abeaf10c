package mappers

import (
	"famicle/ines"
)

var MMC3 = MapperDesc{
	Name: "MMC3",
	Load: loadMMC3,
}

// a12FilterCycles is the number of consecutive A12-low PPU address
// notifications (NotifyPPUAddr calls) that must precede a rising edge for it
// to clock the IRQ counter. The filter counts PPU bus accesses, not CPU
// cycles. Without the filter the dozens of A12 toggles of ordinary background
// fetching would clock the counter many times per scanline.
const a12FilterCycles = 8

// mmc3 has eight bank registers selected by an index latched at $8000, a
// PRG mode bit swapping the fixed/swappable $8000/$C000 regions, a CHR mode
// bit swapping the pattern-table halves, and the scanline IRQ counter
// clocked by filtered rising edges of PPU A12.
type mmc3 struct {
	*base

	bankSelect uint8
	bankRegs   [8]uint8

	fourScreen bool

	irqLatch   uint8
	irqCounter uint8
	irqReload  bool
	irqEnabled bool

	lastA12      bool
	a12LowCycles uint8
}

func loadMMC3(b *base) (Board, error) {
	m := &mmc3{base: b}
	m.fourScreen = b.rom.Mirroring() == ines.FourScreen

	m.bankRegs[6] = 0
	m.bankRegs[7] = 1
	m.remap()

	b.saveRegs = m.save
	b.loadRegs = m.load

	b.install(m, nil, m.write)
	return m, nil
}

func (m *mmc3) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}

	even := addr&1 == 0
	switch {
	case addr < 0xA000 && even: // bank select
		m.bankSelect = val
		m.remap()
	case addr < 0xA000: // bank data
		target := m.bankSelect & 0x07
		if target <= 1 {
			val &= 0xFE // 2 KiB CHR banks ignore bit 0
		}
		m.bankRegs[target] = val
		m.remap()
	case addr < 0xC000 && even: // mirroring
		if !m.fourScreen {
			if val&1 == 0 {
				m.setNTMirroring(ines.VertMirroring)
			} else {
				m.setNTMirroring(ines.HorzMirroring)
			}
		}
	case addr < 0xC000: // PRG-RAM protect, not emulated
	case addr < 0xE000 && even: // IRQ latch
		m.irqLatch = val
	case addr < 0xE000: // IRQ reload request
		m.irqReload = true
	case even: // IRQ disable, also acknowledges a pending IRQ
		m.irqEnabled = false
		m.cpu.SetMapperIRQ(false)
	default: // IRQ enable
		m.irqEnabled = true
	}
}

func (m *mmc3) remap() {
	r0 := int(m.bankRegs[0])
	r1 := int(m.bankRegs[1])

	if m.bankSelect&0x80 == 0 {
		// two 2 KiB banks at $0000, four 1 KiB banks at $1000
		m.selectCHRPage2KB(0, r0>>1)
		m.selectCHRPage2KB(1, r1>>1)
		for i := 0; i < 4; i++ {
			m.selectCHRPage1KB(4+i, int(m.bankRegs[2+i]))
		}
	} else {
		// A12 inversion: halves swapped
		for i := 0; i < 4; i++ {
			m.selectCHRPage1KB(i, int(m.bankRegs[2+i]))
		}
		m.selectCHRPage2KB(2, r0>>1)
		m.selectCHRPage2KB(3, r1>>1)
	}

	if m.bankSelect&0x40 == 0 {
		m.selectPRGPage8KB(0, int(m.bankRegs[6]))
		m.selectPRGPage8KB(1, int(m.bankRegs[7]))
		m.selectPRGPage8KB(2, -2)
		m.selectPRGPage8KB(3, -1)
	} else {
		m.selectPRGPage8KB(0, -2)
		m.selectPRGPage8KB(1, int(m.bankRegs[7]))
		m.selectPRGPage8KB(2, int(m.bankRegs[6]))
		m.selectPRGPage8KB(3, -1)
	}
}

// clockIRQCounter runs on each filtered A12 rising edge: reload from the
// latch when the counter is zero or a reload was requested, decrement
// otherwise, and assert the IRQ line when the counter lands on zero with
// IRQs enabled.
func (m *mmc3) clockIRQCounter() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}

	if m.irqCounter == 0 && m.irqEnabled {
		m.cpu.SetMapperIRQ(true)
	}
}

// NotifyPPUAddr implements hw.PPUAddrWatcher: A12 edge detection with the
// low-time filter.
func (m *mmc3) NotifyPPUAddr(addr uint16) {
	a12 := addr&0x1000 != 0
	if !a12 {
		if m.a12LowCycles < 0xFF {
			m.a12LowCycles++
		}
	} else {
		if !m.lastA12 && m.a12LowCycles >= a12FilterCycles {
			m.clockIRQCounter()
		}
		m.a12LowCycles = 0
	}
	m.lastA12 = a12
}

// SuppressSpriteEvalA12 tells the PPU to replace the sprite-fetch A12
// traffic with one synthetic edge per visible scanline (this renderer resolves
// sprite patterns in one step instead of the 257-320 fetch slots).
func (m *mmc3) SuppressSpriteEvalA12() bool { return true }

func (m *mmc3) save() []uint8 {
	regs := []uint8{m.bankSelect}
	regs = append(regs, m.bankRegs[:]...)
	return append(regs,
		m.irqLatch, m.irqCounter,
		b2u8(m.irqReload), b2u8(m.irqEnabled),
		b2u8(m.lastA12), m.a12LowCycles,
		uint8(m.mirr))
}

func (m *mmc3) load(regs []uint8) {
	if len(regs) != 16 {
		return
	}
	m.bankSelect = regs[0]
	copy(m.bankRegs[:], regs[1:9])
	m.irqLatch = regs[9]
	m.irqCounter = regs[10]
	m.irqReload = regs[11] != 0
	m.irqEnabled = regs[12] != 0
	m.lastA12 = regs[13] != 0
	m.a12LowCycles = regs[14]
	if !m.fourScreen {
		m.setNTMirroring(ines.NTMirroring(regs[15]))
	}
	m.remap()
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
