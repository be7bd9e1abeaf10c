package mappers

var MMC5 = MapperDesc{
	Name: "MMC5",
	Load: loadMMC5,
}

// mmc5 implements the ExROM board: four PRG modes over PRG-ROM
// windows, four CHR modes down to 1 KiB granularity, per-quadrant nametable
// control backed by the 1 KiB ExRAM, an unsigned 8x8 multiplier, a scanline
// IRQ, and two expansion pulse channels.
//
// Simplifications kept deliberately: the sprite/background CHR register
// sets are collapsed into one (the $5120-$5127 set), fill mode maps to
// ExRAM, and the in-frame detector runs off the PPU scanline counter
// instead of nametable fetch pattern matching.
type mmc5 struct {
	*base

	prgMode   uint8
	chrMode   uint8
	exramMode uint8
	prgRegs   [5]uint8
	chrRegs   [8]uint8
	chrUpper  uint8
	ntMap     uint8

	ramProtect1 uint8
	ramProtect2 uint8

	exram [0x400]uint8

	mulA, mulB uint8

	irqCompare  uint8
	irqEnabled  bool
	irqPending  bool
	inFrame     bool
	scanCounter uint8
	lastLine    int

	pulse [2]mmc5Pulse
}

func loadMMC5(b *base) (Board, error) {
	m := &mmc5{base: b}
	m.prgMode = 3
	m.chrMode = 3
	m.prgRegs[4] = 0xFF
	m.lastLine = -2

	m.remapPRG()
	m.remapCHR()

	b.saveRegs = m.save
	b.loadRegs = m.load

	b.install(m, m.read, m.write)
	return m, nil
}

func (m *mmc5) read(addr uint16) (uint8, bool) {
	switch {
	case addr >= 0x5C00 && addr < 0x6000:
		return m.exram[addr-0x5C00], true
	case addr == 0x5204:
		status := b2u8(m.irqPending)<<7 | b2u8(m.inFrame)<<6
		m.irqPending = false
		m.cpu.SetMapperIRQ(false)
		return status, true
	case addr == 0x5205:
		return uint8(uint16(m.mulA) * uint16(m.mulB)), true
	case addr == 0x5206:
		return uint8(uint16(m.mulA) * uint16(m.mulB) >> 8), true
	case addr == 0x5015:
		return b2u8(m.pulse[0].enabled) | b2u8(m.pulse[1].enabled)<<1, true
	}
	return 0, false
}

func (m *mmc5) write(addr uint16, val uint8) {
	switch {
	case addr >= 0x5000 && addr <= 0x5007:
		m.pulse[(addr>>2)&1].write(int(addr&0x03), val)
	case addr == 0x5015:
		m.pulse[0].enabled = val&0x01 != 0
		m.pulse[1].enabled = val&0x02 != 0
	case addr == 0x5100:
		m.prgMode = val & 0x03
		m.remapPRG()
	case addr == 0x5101:
		m.chrMode = val & 0x03
		m.remapCHR()
	case addr == 0x5102:
		m.ramProtect1 = val & 0x03
	case addr == 0x5103:
		m.ramProtect2 = val & 0x03
	case addr == 0x5104:
		m.exramMode = val & 0x03
	case addr == 0x5105:
		m.ntMap = val
		m.remapNametables()
	case addr >= 0x5113 && addr <= 0x5117:
		m.prgRegs[addr-0x5113] = val
		m.remapPRG()
	case addr >= 0x5120 && addr <= 0x5127:
		m.chrRegs[addr-0x5120] = val
		m.remapCHR()
	case addr == 0x5130:
		m.chrUpper = val & 0x03
	case addr == 0x5203:
		m.irqCompare = val
	case addr == 0x5204:
		m.irqEnabled = val&0x80 != 0
		if !m.irqEnabled {
			m.cpu.SetMapperIRQ(false)
		} else if m.irqPending {
			m.cpu.SetMapperIRQ(true)
		}
	case addr == 0x5205:
		m.mulA = val
	case addr == 0x5206:
		m.mulB = val
	case addr >= 0x5C00 && addr < 0x6000:
		m.exram[addr-0x5C00] = val
	}
}

func (m *mmc5) remapPRG() {
	// The ROM/RAM select bit of each window register is ignored: windows
	// always map PRG-ROM, the $6000 window stays on the 8 KiB PRG-RAM.
	switch m.prgMode {
	case 0:
		m.selectPRGPage32KB(int(m.prgRegs[4]&0x7C) >> 2)
	case 1:
		m.selectPRGPage16KB(0, int(m.prgRegs[2]&0x7E)>>1)
		m.selectPRGPage16KB(1, int(m.prgRegs[4]&0x7E)>>1)
	case 2:
		m.selectPRGPage16KB(0, int(m.prgRegs[2]&0x7E)>>1)
		m.selectPRGPage8KB(2, int(m.prgRegs[3]&0x7F))
		m.selectPRGPage8KB(3, int(m.prgRegs[4]&0x7F))
	default:
		m.selectPRGPage8KB(0, int(m.prgRegs[1]&0x7F))
		m.selectPRGPage8KB(1, int(m.prgRegs[2]&0x7F))
		m.selectPRGPage8KB(2, int(m.prgRegs[3]&0x7F))
		m.selectPRGPage8KB(3, int(m.prgRegs[4]&0x7F))
	}
}

func (m *mmc5) remapCHR() {
	upper := int(m.chrUpper) << 8
	switch m.chrMode {
	case 0:
		m.selectCHRPage8KB(upper | int(m.chrRegs[7]))
	case 1:
		m.selectCHRPage4KB(0, upper|int(m.chrRegs[3]))
		m.selectCHRPage4KB(1, upper|int(m.chrRegs[7]))
	case 2:
		m.selectCHRPage2KB(0, upper|int(m.chrRegs[1]))
		m.selectCHRPage2KB(1, upper|int(m.chrRegs[3]))
		m.selectCHRPage2KB(2, upper|int(m.chrRegs[5]))
		m.selectCHRPage2KB(3, upper|int(m.chrRegs[7]))
	default:
		for i := 0; i < 8; i++ {
			m.selectCHRPage1KB(i, upper|int(m.chrRegs[i]))
		}
	}
}

// remapNametables applies the $5105 per-quadrant selection: 0/1 are the two
// VRAM pages, 2 is ExRAM, 3 (fill mode) also maps to ExRAM here.
func (m *mmc5) remapNametables() {
	m.ppu.Bus.Unmap(0x2000, 0x3EFF)

	pick := func(sel uint8) []byte {
		switch sel & 0x03 {
		case 0:
			return m.ppu.Nametables[0x000:0x400]
		case 1:
			return m.ppu.Nametables[0x400:0x800]
		default:
			return m.exram[:]
		}
	}

	for quad := uint16(0); quad < 4; quad++ {
		nt := pick(m.ntMap >> (2 * quad))
		base := 0x2000 + quad*0x400
		m.ppu.Bus.MapMemorySlice(base, base+0x3FF, nt, false)
		m.ppu.Bus.MapMemorySlice(base+0x1000, min16(base+0x13FF, 0x3EFF), nt, false)
	}
}

func min16(a, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}

// TickCPUCycle implements hw.CPUTicker. The scanline detector is driven
// from the PPU position: each new visible scanline with rendering enabled
// clocks the counter, matching the compare value raises the IRQ.
func (m *mmc5) TickCPUCycle() {
	m.pulse[0].tick()
	m.pulse[1].tick()

	line := m.ppu.Scanline
	if line == m.lastLine {
		return
	}
	m.lastLine = line

	rendering := m.ppu.RenderingEnabled() && line >= 0 && line < 240
	if !rendering {
		m.inFrame = false
		m.scanCounter = 0
		return
	}

	if !m.inFrame {
		m.inFrame = true
		m.scanCounter = 0
		return
	}

	m.scanCounter++
	if m.irqCompare != 0 && m.scanCounter == m.irqCompare {
		m.irqPending = true
		if m.irqEnabled {
			m.cpu.SetMapperIRQ(true)
		}
	}
}

// ExpansionAudio implements the mapper-audio hook.
func (m *mmc5) ExpansionAudio() float64 {
	return float64(m.pulse[0].output()+m.pulse[1].output()) / 30.0
}

func (m *mmc5) save() []uint8 {
	regs := []uint8{
		m.prgMode, m.chrMode, m.exramMode, m.chrUpper, m.ntMap,
		m.ramProtect1, m.ramProtect2,
		m.mulA, m.mulB,
		m.irqCompare, b2u8(m.irqEnabled), b2u8(m.irqPending),
		b2u8(m.inFrame), m.scanCounter,
	}
	regs = append(regs, m.prgRegs[:]...)
	regs = append(regs, m.chrRegs[:]...)
	return append(regs, m.exram[:]...)
}

func (m *mmc5) load(regs []uint8) {
	if len(regs) != 14+5+8+0x400 {
		return
	}
	m.prgMode, m.chrMode, m.exramMode = regs[0], regs[1], regs[2]
	m.chrUpper, m.ntMap = regs[3], regs[4]
	m.ramProtect1, m.ramProtect2 = regs[5], regs[6]
	m.mulA, m.mulB = regs[7], regs[8]
	m.irqCompare = regs[9]
	m.irqEnabled = regs[10] != 0
	m.irqPending = regs[11] != 0
	m.inFrame = regs[12] != 0
	m.scanCounter = regs[13]
	copy(m.prgRegs[:], regs[14:19])
	copy(m.chrRegs[:], regs[19:27])
	copy(m.exram[:], regs[27:])

	m.remapPRG()
	m.remapCHR()
	m.remapNametables()
}

/* MMC5 pulse channels: APU squares without the sweep unit */

type mmc5Pulse struct {
	enabled bool
	duty    uint8
	volume  uint8
	period  uint16

	count   uint16
	dutyPos uint8
	odd     bool
}

func (p *mmc5Pulse) write(reg int, val uint8) {
	switch reg {
	case 0:
		p.duty = val >> 6
		p.volume = val & 0x0F
	case 2:
		p.period = p.period&0x0700 | uint16(val)
	case 3:
		p.period = p.period&0x00FF | uint16(val&0x07)<<8
		p.dutyPos = 0
	}
}

func (p *mmc5Pulse) tick() {
	p.odd = !p.odd
	if !p.odd {
		return
	}
	if p.count == 0 {
		p.count = p.period
		p.dutyPos = (p.dutyPos + 1) & 0x07
	} else {
		p.count--
	}
}

var mmc5DutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

func (p *mmc5Pulse) output() uint8 {
	if !p.enabled || mmc5DutyTable[p.duty][p.dutyPos] == 0 {
		return 0
	}
	return p.volume
}
