package mappers

import "famicle/ines"

var VRC6a = MapperDesc{
	Name: "VRC6a",
	Load: loadVRC6a,
}

var VRC6b = MapperDesc{
	Name: "VRC6b",
	Load: loadVRC6b,
}

// vrc6 has a 16 KiB PRG bank at $8000, an 8 KiB bank at $C000, eight 1 KiB
// CHR banks, the VRC IRQ unit and three expansion sound channels (two
// pulses and a sawtooth) summed into the APU mix. The VRC6b wiring (mapper
// 26) swaps address lines A0 and A1.
type vrc6 struct {
	*base

	swapA0A1 bool

	irq vrcIRQ

	chrRegs [8]uint8

	pulse [2]vrc6Pulse
	saw   vrc6Saw
	halt  bool
}

func loadVRC6a(b *base) (Board, error) { return loadVRC6(b, false) }
func loadVRC6b(b *base) (Board, error) { return loadVRC6(b, true) }

func loadVRC6(b *base, swap bool) (Board, error) {
	m := &vrc6{base: b, swapA0A1: swap}
	m.irq.cpu = b.cpu

	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage8KB(2, -2)
	b.selectPRGPage8KB(3, -1)
	b.selectCHRPage8KB(0)

	b.saveRegs = m.save
	b.loadRegs = m.load

	b.install(m, nil, m.write)
	return m, nil
}

func (m *vrc6) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	if m.swapA0A1 {
		addr = addr&^0x03 | addr<<1&0x02 | addr>>1&0x01
	}
	sub := addr & 0x03

	switch addr & 0xF000 {
	case 0x8000:
		m.selectPRGPage16KB(0, int(val&0x0F))
	case 0x9000:
		if sub < 3 {
			m.pulse[0].write(int(sub), val)
		}
	case 0xA000:
		if sub < 3 {
			m.pulse[1].write(int(sub), val)
		}
	case 0xB000:
		switch sub {
		case 0, 1, 2:
			m.saw.write(int(sub), val)
		case 3:
			m.halt = val&0x01 != 0
			switch val >> 2 & 0x03 {
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
	case 0xC000:
		m.selectPRGPage8KB(2, int(val&0x1F))
	case 0xD000:
		m.chrRegs[sub] = val
		m.selectCHRPage1KB(int(sub), int(val))
	case 0xE000:
		m.chrRegs[4+sub] = val
		m.selectCHRPage1KB(int(4+sub), int(val))
	case 0xF000:
		switch sub {
		case 0:
			m.irq.writeLatch(val)
		case 1:
			m.irq.writeControl(val)
		case 2:
			m.irq.ack()
		}
	}
}

// TickCPUCycle implements hw.CPUTicker: IRQ unit and sound generators.
func (m *vrc6) TickCPUCycle() {
	m.irq.tick()
	if !m.halt {
		m.pulse[0].tick()
		m.pulse[1].tick()
		m.saw.tick()
	}
}

// ExpansionAudio returns the summed channel output in [0, 1] for the mixer
// hook.
func (m *vrc6) ExpansionAudio() float64 {
	// pulses peak at 15, saw at 31
	return float64(m.pulse[0].output()+m.pulse[1].output()+m.saw.output()) / 61.0
}

func (m *vrc6) save() []uint8 {
	regs := []uint8{b2u8(m.halt), uint8(m.mirr)}
	regs = append(regs, m.chrRegs[:]...)
	return append(regs, m.irq.save()...)
}

func (m *vrc6) load(regs []uint8) {
	if len(regs) != 2+8+7 {
		return
	}
	m.halt = regs[0] != 0
	m.setNTMirroring(ines.NTMirroring(regs[1]))
	copy(m.chrRegs[:], regs[2:10])
	m.irq.load(regs[10:])
	for i, v := range m.chrRegs {
		m.selectCHRPage1KB(i, int(v))
	}
}

/* VRC6 sound generators */

type vrc6Pulse struct {
	volume  uint8
	duty    uint8
	mode    bool // ignore duty, output volume constantly
	period  uint16
	enabled bool

	count uint16
	step  uint8
}

func (p *vrc6Pulse) write(reg int, val uint8) {
	switch reg {
	case 0:
		p.volume = val & 0x0F
		p.duty = val >> 4 & 0x07
		p.mode = val&0x80 != 0
	case 1:
		p.period = p.period&0x0F00 | uint16(val)
	case 2:
		p.period = p.period&0x00FF | uint16(val&0x0F)<<8
		p.enabled = val&0x80 != 0
		if !p.enabled {
			p.step = 0
		}
	}
}

func (p *vrc6Pulse) tick() {
	if !p.enabled {
		return
	}
	if p.count == 0 {
		p.count = p.period
		p.step = (p.step + 1) & 0x0F
	} else {
		p.count--
	}
}

func (p *vrc6Pulse) output() uint8 {
	if !p.enabled {
		return 0
	}
	if p.mode || p.step <= p.duty {
		return p.volume
	}
	return 0
}

type vrc6Saw struct {
	rate    uint8
	period  uint16
	enabled bool

	count uint16
	accum uint8
	step  uint8
}

func (s *vrc6Saw) write(reg int, val uint8) {
	switch reg {
	case 0:
		s.rate = val & 0x3F
	case 1:
		s.period = s.period&0x0F00 | uint16(val)
	case 2:
		s.period = s.period&0x00FF | uint16(val&0x0F)<<8
		s.enabled = val&0x80 != 0
		if !s.enabled {
			s.accum = 0
			s.step = 0
		}
	}
}

func (s *vrc6Saw) tick() {
	if !s.enabled {
		return
	}
	if s.count == 0 {
		s.count = s.period
		s.step++
		if s.step&0x01 == 0 { // accumulates every other clock
			s.accum += s.rate
		}
		if s.step >= 14 {
			s.step = 0
			s.accum = 0
		}
	} else {
		s.count--
	}
}

func (s *vrc6Saw) output() uint8 {
	if !s.enabled {
		return 0
	}
	return s.accum >> 3
}
