package mappers

import (
	"famicle/hw"
	"famicle/ines"
)

// Konami VRC boards. They share the IRQ unit: an 8-bit up counter clocked
// either every CPU cycle or once per scanline worth of cycles (341 pixel
// clocks through a /3 prescaler), reloading from a latch and asserting the
// IRQ line on the $FF rollover.

type vrcIRQ struct {
	cpu *hw.CPU

	latch   uint8
	counter uint8

	enabled     bool
	enableOnAck bool
	cycleMode   bool
	prescaler   int16
}

func (v *vrcIRQ) writeLatchLow(val uint8)  { v.latch = v.latch&0xF0 | val&0x0F }
func (v *vrcIRQ) writeLatchHigh(val uint8) { v.latch = v.latch&0x0F | val<<4 }
func (v *vrcIRQ) writeLatch(val uint8)     { v.latch = val }

func (v *vrcIRQ) writeControl(val uint8) {
	v.enableOnAck = val&0x01 != 0
	v.enabled = val&0x02 != 0
	v.cycleMode = val&0x04 != 0
	if v.enabled {
		v.counter = v.latch
		v.prescaler = 341
	}
	v.cpu.SetMapperIRQ(false)
}

func (v *vrcIRQ) ack() {
	v.cpu.SetMapperIRQ(false)
	v.enabled = v.enableOnAck
}

// tick runs every CPU cycle.
func (v *vrcIRQ) tick() {
	if !v.enabled {
		return
	}

	if !v.cycleMode {
		v.prescaler -= 3
		if v.prescaler > 0 {
			return
		}
		v.prescaler += 341
	}

	if v.counter == 0xFF {
		v.counter = v.latch
		v.cpu.SetMapperIRQ(true)
	} else {
		v.counter++
	}
}

func (v *vrcIRQ) save() []uint8 {
	return []uint8{
		v.latch, v.counter,
		b2u8(v.enabled), b2u8(v.enableOnAck), b2u8(v.cycleMode),
		uint8(v.prescaler), uint8(uint16(v.prescaler) >> 8),
	}
}

func (v *vrcIRQ) load(regs []uint8) {
	v.latch = regs[0]
	v.counter = regs[1]
	v.enabled = regs[2] != 0
	v.enableOnAck = regs[3] != 0
	v.cycleMode = regs[4] != 0
	v.prescaler = int16(uint16(regs[5]) | uint16(regs[6])<<8)
}

/* VRC4b/d (mapper 25) */

var VRC4bd = MapperDesc{
	Name: "VRC4b/d",
	Load: loadVRC4bd,
}

// vrc4 has two swappable 8 KiB PRG banks (with a swap-mode bit moving the
// first one to $C000), eight 1 KiB CHR banks written as nibble pairs, and
// the VRC IRQ unit. Mapper 25 covers the VRC4b and VRC4d wirings, which put
// the register select bits on different address lines.
type vrc4 struct {
	*base

	irq vrcIRQ

	swapMode bool
	prg0     uint8
	prg1     uint8
	chrRegs  [8]uint8 // 9-bit banks: low nibble here, high five bits in chrHigh
	chrHigh  [8]uint8
}

func loadVRC4bd(b *base) (Board, error) {
	m := &vrc4{base: b}
	m.irq.cpu = b.cpu

	b.selectPRGPage8KB(0, 0)
	b.selectPRGPage8KB(1, 0)
	b.selectPRGPage8KB(2, -2)
	b.selectPRGPage8KB(3, -1)
	b.selectCHRPage8KB(0)

	b.saveRegs = m.save
	b.loadRegs = m.load

	b.install(m, nil, m.write)
	return m, nil
}

// vrc4SubReg folds the VRC4b (A1..A0) and VRC4d (A3..A2) register select
// lines into one index.
func vrc4SubReg(addr uint16) int {
	a0 := addr&0x01 | addr>>2&0x01
	a1 := addr>>1&0x01 | addr>>3&0x01
	return int(a1<<1 | a0)
}

func (m *vrc4) write(addr uint16, val uint8) {
	if addr < 0x8000 {
		return
	}
	sub := vrc4SubReg(addr)

	switch addr & 0xF000 {
	case 0x8000:
		m.prg0 = val & 0x1F
		m.remapPRG()
	case 0x9000:
		if sub <= 1 {
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
		} else {
			m.swapMode = val&0x02 != 0
			m.remapPRG()
		}
	case 0xA000:
		m.prg1 = val & 0x1F
		m.remapPRG()
	case 0xB000, 0xC000, 0xD000, 0xE000:
		reg := int(addr>>12-0xB)*2 + sub>>1
		if sub&0x01 == 0 {
			m.chrRegs[reg] = val & 0x0F
		} else {
			m.chrHigh[reg] = val & 0x1F
		}
		m.selectCHRPage1KB(reg, int(m.chrHigh[reg])<<4|int(m.chrRegs[reg]))
	case 0xF000:
		switch sub {
		case 0:
			m.irq.writeLatchLow(val)
		case 1:
			m.irq.writeLatchHigh(val)
		case 2:
			m.irq.writeControl(val)
		case 3:
			m.irq.ack()
		}
	}
}

func (m *vrc4) remapPRG() {
	if m.swapMode {
		m.selectPRGPage8KB(0, -2)
		m.selectPRGPage8KB(2, int(m.prg0))
	} else {
		m.selectPRGPage8KB(0, int(m.prg0))
		m.selectPRGPage8KB(2, -2)
	}
	m.selectPRGPage8KB(1, int(m.prg1))
	m.selectPRGPage8KB(3, -1)
}

// TickCPUCycle implements hw.CPUTicker.
func (m *vrc4) TickCPUCycle() { m.irq.tick() }

func (m *vrc4) save() []uint8 {
	regs := []uint8{b2u8(m.swapMode), m.prg0, m.prg1, uint8(m.mirr)}
	regs = append(regs, m.chrRegs[:]...)
	regs = append(regs, m.chrHigh[:]...)
	return append(regs, m.irq.save()...)
}

func (m *vrc4) load(regs []uint8) {
	if len(regs) != 4+16+7 {
		return
	}
	m.swapMode = regs[0] != 0
	m.prg0, m.prg1 = regs[1], regs[2]
	m.setNTMirroring(ines.NTMirroring(regs[3]))
	copy(m.chrRegs[:], regs[4:12])
	copy(m.chrHigh[:], regs[12:20])
	m.irq.load(regs[20:])

	m.remapPRG()
	for i := range m.chrRegs {
		m.selectCHRPage1KB(i, int(m.chrHigh[i])<<4|int(m.chrRegs[i]))
	}
}
