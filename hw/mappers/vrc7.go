package mappers

import "famicle/ines"

var VRC7 = MapperDesc{
	Name: "VRC7",
	Load: loadVRC7,
}

// vrc7 banks 8 KiB PRG pages at $8000/$A000/$C000 and 1 KiB CHR pages, with
// the VRC IRQ unit. The YM2413-derived FM synthesizer behind $9010/$9030 is
// not emulated: the expansion channel stays silent.
type vrc7 struct {
	*base

	irq vrcIRQ

	prgRegs [3]uint8
	chrRegs [8]uint8
}

func loadVRC7(b *base) (Board, error) {
	m := &vrc7{base: b}
	m.irq.cpu = b.cpu

	b.selectPRGPage8KB(0, 0)
	b.selectPRGPage8KB(1, 0)
	b.selectPRGPage8KB(2, 0)
	b.selectPRGPage8KB(3, -1)
	b.selectCHRPage8KB(0)

	b.saveRegs = m.save
	b.loadRegs = m.load

	b.install(m, nil, m.write)
	return m, nil
}

func (m *vrc7) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	// VRC7a puts the second select line on A4, VRC7b on A3.
	sub := addr&0x08 != 0 || addr&0x10 != 0

	switch addr & 0xF000 {
	case 0x8000:
		if sub {
			m.prgRegs[1] = val & 0x3F
			m.selectPRGPage8KB(1, int(m.prgRegs[1]))
		} else {
			m.prgRegs[0] = val & 0x3F
			m.selectPRGPage8KB(0, int(m.prgRegs[0]))
		}
	case 0x9000:
		if !sub {
			m.prgRegs[2] = val & 0x3F
			m.selectPRGPage8KB(2, int(m.prgRegs[2]))
		}
		// $9010/$9030: FM synthesizer ports, ignored.
	case 0xA000, 0xB000, 0xC000, 0xD000:
		reg := int(addr>>12-0xA) * 2
		if sub {
			reg++
		}
		m.chrRegs[reg] = val
		m.selectCHRPage1KB(reg, int(val))
	case 0xE000:
		if sub {
			m.irq.writeLatch(val)
		} else {
			switch val & 0x03 {
			case 0:
				m.setNTMirroring(ines.VertMirroring)
			case 1:
				m.setNTMirroring(ines.HorzMirroring)
			case 2:
				m.setNTMirroring(ines.OnlyAScreen)
			case 3:
				m.setNTMirroring(ines.OnlyBScreen)
			}
		}
	case 0xF000:
		if sub {
			m.irq.ack()
		} else {
			m.irq.writeControl(val)
		}
	}
}

// TickCPUCycle implements hw.CPUTicker.
func (m *vrc7) TickCPUCycle() { m.irq.tick() }

func (m *vrc7) save() []uint8 {
	regs := []uint8{uint8(m.mirr)}
	regs = append(regs, m.prgRegs[:]...)
	regs = append(regs, m.chrRegs[:]...)
	return append(regs, m.irq.save()...)
}

func (m *vrc7) load(regs []uint8) {
	if len(regs) != 1+3+8+7 {
		return
	}
	m.setNTMirroring(ines.NTMirroring(regs[0]))
	copy(m.prgRegs[:], regs[1:4])
	copy(m.chrRegs[:], regs[4:12])
	m.irq.load(regs[12:])

	for i, v := range m.prgRegs {
		m.selectPRGPage8KB(i, int(v))
	}
	m.selectPRGPage8KB(3, -1)
	for i, v := range m.chrRegs {
		m.selectCHRPage1KB(i, int(v))
	}
}
