package mappers

import "famicle/ines"

var FME7 = MapperDesc{
	Name: "FME-7",
	Load: loadFME7,
}

// fme7 (Sunsoft FME-7 / 5B) exposes a command port at $8000 and a parameter
// port at $A000: commands 0-7 set the eight 1 KiB CHR banks, 8-$B the PRG
// banks, $C the mirroring, $D-$F the IRQ unit. The IRQ is a 16-bit CPU-cycle
// down counter.
type fme7 struct {
	*base

	command uint8
	prgRegs [4]uint8
	chrRegs [8]uint8

	irqEnabled     bool
	irqCountEnable bool
	irqCounter     uint16
}

func loadFME7(b *base) (Board, error) {
	m := &fme7{base: b}

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

func (m *fme7) write(addr uint16, val uint8) {
	switch {
	case addr >= 0x8000 && addr < 0xA000:
		m.command = val & 0x0F
	case addr >= 0xA000 && addr < 0xC000:
		m.writeParameter(val)
	}
}

func (m *fme7) writeParameter(val uint8) {
	switch {
	case m.command <= 0x07:
		m.chrRegs[m.command] = val
		m.selectCHRPage1KB(int(m.command), int(val))
	case m.command == 0x08:
		// PRG-RAM / ROM select at $6000: RAM-enable bit is ignored, the ROM
		// case maps through PRG-RAM-less reads which this board doesn't use.
		m.prgRegs[0] = val
	case m.command <= 0x0B:
		slot := int(m.command - 0x09)
		m.prgRegs[slot+1] = val
		m.selectPRGPage8KB(slot, int(val&0x3F))
	case m.command == 0x0C:
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
	case m.command == 0x0D:
		m.irqEnabled = val&0x01 != 0
		m.irqCountEnable = val&0x80 != 0
		m.cpu.SetMapperIRQ(false) // writing acknowledges
	case m.command == 0x0E:
		m.irqCounter = m.irqCounter&0xFF00 | uint16(val)
	case m.command == 0x0F:
		m.irqCounter = m.irqCounter&0x00FF | uint16(val)<<8
	}
}

// TickCPUCycle implements hw.CPUTicker: the IRQ counter decrements every
// CPU cycle and asserts the line when it underflows from 0 to $FFFF.
func (m *fme7) TickCPUCycle() {
	if !m.irqCountEnable {
		return
	}
	m.irqCounter--
	if m.irqCounter == 0xFFFF && m.irqEnabled {
		m.cpu.SetMapperIRQ(true)
	}
}

func (m *fme7) save() []uint8 {
	regs := []uint8{m.command}
	regs = append(regs, m.prgRegs[:]...)
	regs = append(regs, m.chrRegs[:]...)
	return append(regs,
		b2u8(m.irqEnabled), b2u8(m.irqCountEnable),
		uint8(m.irqCounter), uint8(m.irqCounter>>8),
		uint8(m.mirr))
}

func (m *fme7) load(regs []uint8) {
	if len(regs) != 18 {
		return
	}
	m.command = regs[0]
	copy(m.prgRegs[:], regs[1:5])
	copy(m.chrRegs[:], regs[5:13])
	m.irqEnabled = regs[13] != 0
	m.irqCountEnable = regs[14] != 0
	m.irqCounter = uint16(regs[15]) | uint16(regs[16])<<8
	m.setNTMirroring(ines.NTMirroring(regs[17]))

	for i, v := range m.chrRegs {
		m.selectCHRPage1KB(i, int(v))
	}
	for i := 0; i < 3; i++ {
		m.selectPRGPage8KB(i, int(m.prgRegs[i+1]&0x3F))
	}
	m.selectPRGPage8KB(3, -1)
}
