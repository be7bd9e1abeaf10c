package hw

import (
	"famicle/emu/log"
	"famicle/hw/hwio"
	"famicle/hw/snapshot"
)

const (
	NumScanlines = 262 // Number of scanlines per frame.
	NumCycles    = 341 // Number of PPU cycles (dots) per scanline.

	FrameWidth  = 256
	FrameHeight = 240
)

const ntscPPUDivider = 4

const (
	// PPUCTRL bits
	// $2000

	// Nametable selection mask
	// (0 = $2000; 1 = $2400; 2 = $2800; 3 = $2C00)
	ntselect = 0b11

	// VRAM address increment per CPU read/write of PPUDATA
	// (0: +1 i.e. horizontal; 1: +32 i.e. vertical)
	vramIncr = 2

	// Sprite pattern table address for 8x8 sprites
	// (0: $0000; 1: $1000; ignored in 8x16 mode)
	spriteAddr = 3

	// Background pattern table address (0: $0000; 1: $1000)
	backgroundAddr = 4

	// Sprite size (0: 8x8 pixels; 1: 8x16 pixels - see byte 1 of OAM)
	spriteSize = 5

	// Generate an NMI at the start of the
	// vertical blanking interval (0: off; 1: on)
	nmi = 7
)

const (
	// PPUMASK bits
	// $2001

	// Greyscale (0: normal color, 1: greyscale display)
	greyscale = 0

	// Show background in leftmost 8 pixels of screen
	leftmostBg = 1

	// Show sprites in leftmost 8 pixels of screen
	leftmostSprites = 2

	// Show background
	showBg = 3

	// Show sprites
	showSprites = 4
)

const (
	// PPUSTATUS bits
	// $2002

	// Sprite overflow. The intent was for this flag to be set whenever more
	// than eight sprites appear on a scanline, but a hardware bug causes the
	// actual behavior to be more complicated and generate false positives as
	// well as false negatives. Set during sprite evaluation, cleared at dot 1
	// of the pre-render line.
	spriteOverflow = 5

	// Sprite 0 Hit. Set when a nonzero pixel of sprite 0 overlaps a nonzero
	// background pixel; cleared at dot 1 of the pre-render line. Used for
	// raster timing.
	sprite0Hit = 6

	// Vertical blank has started. Set at dot 1 of line 241; cleared after
	// reading $2002 and at dot 1 of the pre-render line.
	vblank = 7
)

// PPUAddrWatcher is implemented by mappers that monitor the PPU address
// lines (MMC3 A12 edges, MMC2/MMC4 tile latches). The PPU calls it on every
// bus access it performs.
type PPUAddrWatcher interface {
	NotifyPPUAddr(addr uint16)
}

// spriteEvalA12Suppressor is implemented by watchers whose IRQ timing is
// approximated from scanline position instead of the per-dot sprite fetch
// pipeline (MMC3); the PPU then emits one synthetic low→high A12 transition
// at dot 260 of each visible line (0-239) when sprites use the $1000 pattern
// table and the background $0000. The pre-render line gets none.
type spriteEvalA12Suppressor interface {
	SuppressSpriteEvalA12() bool
}

type PPU struct {
	Bus *hwio.Table // PPU bus
	CPU *CPU

	Cycle    int // Current dot in scanline [0, 340]
	Scanline int // Current scanline [-1, 260], -1 is pre-render

	// Physical nametable RAM: 2 KiB on the board, the second pair is only
	// reachable on four-screen cartridges which map all 4 KiB.
	Nametables [0x1000]uint8

	// CPU-exposed memory-mapped PPU registers,
	// mapped from $2000 to $2007, mirrored up to $3fff.
	PPUCTRL   hwio.Reg8 `hwio:"bank=1,offset=0x0,rcb,wcb"`
	PPUMASK   hwio.Reg8 `hwio:"bank=1,offset=0x1,rcb,wcb"`
	PPUSTATUS hwio.Reg8 `hwio:"bank=1,offset=0x2,rcb,wcb,pcb"`
	OAMADDR   hwio.Reg8 `hwio:"bank=1,offset=0x3,rcb,wcb"`
	OAMDATA   hwio.Reg8 `hwio:"bank=1,offset=0x4,rcb,wcb"`
	PPUSCROLL hwio.Reg8 `hwio:"bank=1,offset=0x5,rcb,wcb"`
	PPUADDR   hwio.Reg8 `hwio:"bank=1,offset=0x6,rcb,wcb"`
	PPUDATA   hwio.Reg8 `hwio:"bank=1,offset=0x7,rcb,wcb"`

	watcher         PPUAddrWatcher
	suppressEvalA12 bool

	masterClock uint64
	frameCount  uint64
	oddFrame    bool

	frameComplete bool
	preventVBlank bool

	// VRAM access state
	v       uint16 // current VRAM address (15 bits)
	t       uint16 // temporary VRAM address
	finex   uint8  // fine X scroll (3 bits)
	w       bool   // write toggle
	readBuf uint8  // PPUDATA read buffer
	openBus uint8  // last value driven on the PPU register bus

	// OAM
	oamAddr uint8
	oam     [0x100]uint8
	palette [0x20]uint8

	// Background fetch pipeline
	ntByte      uint8
	atByte      uint8
	bgLo        uint8
	bgHi        uint8
	bgShiftLo   uint16
	bgShiftHi   uint16
	attrShiftLo uint16
	attrShiftHi uint16

	// Sprites on the current scanline (secondary OAM, resolved)
	sprCount int
	sprLo    [8]uint8
	sprHi    [8]uint8
	sprX     [8]uint8
	sprAttr  [8]uint8
	sprIdx   [8]uint8

	// Sprite-overflow evaluation state machine (see ppu_sprites.go)
	evalActive    bool
	evalN         uint8
	evalM         uint8
	evalFound     uint8
	evalCopyLeft  uint8
	evalBugMode   bool
	evalScanline  int
	spr0PrevBgOpq bool

	// Framebuffer of palette colors (6-bit NES color per pixel).
	fb [FrameWidth * FrameHeight]uint8
}

func NewPPU() *PPU {
	return &PPU{
		Bus: hwio.NewTable("ppu"),
	}
}

func (p *PPU) InitBus() {
	hwio.MustInitRegs(p)

	// Palette RAM with its $3F10/$3F14/$3F18/$3F1C mirroring, repeated up to
	// $3FFF.
	p.Bus.MapDevice(0x3F00, &hwio.Device{
		Name: "palette",
		Size: 0x100,
		ReadCb: func(addr uint16) uint8 {
			return p.palette[paletteIndex(addr)]
		},
		PeekCb: func(addr uint16) uint8 {
			return p.palette[paletteIndex(addr)]
		},
		WriteCb: func(addr uint16, val uint8) {
			p.palette[paletteIndex(addr)] = val
		},
	})
}

// paletteIndex mirrors a $3F00-$3FFF address down to the 32-byte palette,
// folding the sprite backdrop entries onto the background ones.
func paletteIndex(addr uint16) int {
	idx := int(addr) & 0x1F
	if idx >= 16 && idx&0x03 == 0 {
		idx -= 16
	}
	return idx
}

// AttachWatcher registers the mapper address-line watcher.
func (p *PPU) AttachWatcher(w PPUAddrWatcher) {
	p.watcher = w
	if s, ok := w.(spriteEvalA12Suppressor); ok {
		p.suppressEvalA12 = s.SuppressSpriteEvalA12()
	}
}

func (p *PPU) Reset() {
	p.Cycle = 0
	p.Scanline = -1
	p.masterClock = 0
	p.oddFrame = false
	p.frameComplete = false
	p.preventVBlank = false
	p.v = 0
	p.t = 0
	p.finex = 0
	p.w = false
	p.readBuf = 0
	p.openBus = 0
	p.oamAddr = 0

	p.PPUCTRL.Value = 0
	p.PPUMASK.Value = 0
	p.PPUSTATUS.Value = 0

	p.ntByte = 0
	p.atByte = 0
	p.bgLo = 0
	p.bgHi = 0
	p.bgShiftLo = 0
	p.bgShiftHi = 0
	p.attrShiftLo = 0
	p.attrShiftHi = 0

	p.sprCount = 0
	p.evalActive = false

	// Keep startup background black for deterministic behavior.
	for i := range p.palette {
		p.palette[i] = 0x0F
	}
}

// Run advances the PPU until it catches up with the given master clock.
func (p *PPU) Run(masterClock uint64) {
	for p.masterClock+ntscPPUDivider <= masterClock {
		p.tick()
		p.masterClock += ntscPPUDivider
	}
}

// FrameCount returns the number of completed frames since power-up.
func (p *PPU) FrameCount() uint64 {
	return p.frameCount
}

// FrameComplete reports whether a frame finished since the last call to
// ClearFrameComplete.
func (p *PPU) FrameComplete() bool { return p.frameComplete }

func (p *PPU) ClearFrameComplete() { p.frameComplete = false }

// Framebuffer returns the 256x240 buffer of NES palette colors for the frame
// being (or just) rendered.
func (p *PPU) Framebuffer() []uint8 { return p.fb[:] }

func (p *PPU) renderingEnabled() bool {
	return p.PPUMASK.Value&(1<<showBg|1<<showSprites) != 0
}

// RenderingEnabled reports whether background or sprite rendering is on.
func (p *PPU) RenderingEnabled() bool { return p.renderingEnabled() }

// updateNMILine recomputes the level of the /NMI line: low (asserted) when
// both the vblank flag and PPUCTRL NMI-enable are high. The CPU-side edge
// detector turns the 0→1 transition into a pending NMI.
func (p *PPU) updateNMILine() {
	if p.CPU == nil {
		return
	}
	if p.PPUCTRL.GetBit(nmi) && p.PPUSTATUS.GetBit(vblank) {
		p.CPU.setNMIflag()
	} else {
		p.CPU.clearNMIflag()
	}
}

func (p *PPU) tick() {
	visible := p.Scanline >= 0 && p.Scanline < 240
	preRender := p.Scanline == -1
	renderLine := visible || preRender
	rendering := p.renderingEnabled()

	if preRender && p.Cycle == 1 {
		const mask = 1<<vblank | 1<<sprite0Hit | 1<<spriteOverflow
		p.PPUSTATUS.ClearBits(mask)
		p.preventVBlank = false
		p.updateNMILine()
	}

	if p.Scanline == 241 && p.Cycle == 1 {
		p.frameComplete = true
		p.frameCount++
		if !p.preventVBlank {
			p.PPUSTATUS.SetBit(vblank)
		}
		p.preventVBlank = false
		p.updateNMILine()
	}

	if visible && p.Cycle == 65 {
		p.beginOverflowEval(rendering)
	}
	if visible && p.Cycle >= 65 && p.Cycle <= 256 {
		p.clockOverflowEval(rendering)
	}

	if visible && p.Cycle == 0 {
		p.evaluateSprites(p.Scanline)
	}

	if visible && p.Cycle >= 1 && p.Cycle <= 256 {
		if p.Cycle == 1 {
			p.spr0PrevBgOpq = false
		}
		p.renderPixel(p.Cycle-1, p.Scanline)
	}

	if renderLine && rendering {
		p.bgFetchPipeline(visible, preRender)
	}

	if visible && rendering && p.Cycle == 260 && p.suppressEvalA12 &&
		p.PPUCTRL.GetBit(spriteAddr) && !p.PPUCTRL.GetBit(backgroundAddr) {
		// One synthetic A12 rise per line in the sprite-fetch window, for
		// watchers whose IRQ clock is approximated from scanline timing.
		p.watcher.NotifyPPUAddr(0x0000)
		p.watcher.NotifyPPUAddr(0x1000)
	}

	// NTSC odd-frame dot skip: the pre-render line is one dot shorter when
	// rendering is enabled on odd frames.
	if preRender && rendering && p.oddFrame && p.Cycle == 339 {
		p.Cycle = 0
		p.Scanline = 0
		p.oddFrame = false
		return
	}

	p.Cycle++
	if p.Cycle > 340 {
		p.Cycle = 0
		p.Scanline++
		if p.Scanline > 260 {
			p.Scanline = -1
		} else if p.Scanline == 0 {
			p.oddFrame = !p.oddFrame
		}
	}
}

// bgFetchPipeline runs the per-dot background fetch cadence: nametable byte,
// attribute byte, pattern low, pattern high, every 8 dots, with the shifters
// reloading at each tile boundary.
func (p *PPU) bgFetchPipeline(visible, preRender bool) {
	if (p.Cycle >= 1 && p.Cycle <= 256) || (p.Cycle >= 321 && p.Cycle <= 336) {
		p.shiftBackground()

		switch (p.Cycle - 1) & 0x07 {
		case 0:
			p.reloadShifters()
			p.ntByte = p.readVRAM(0x2000 | p.v&0x0FFF)
		case 2:
			addr := 0x23C0 | p.v&0x0C00 | p.v>>4&0x38 | p.v>>2&0x07
			attr := p.readVRAM(addr)
			shift := p.v >> 4 & 0x04 | p.v & 0x02
			p.atByte = attr >> shift & 0x03
		case 4:
			p.bgLo = p.readVRAM(p.bgPatternAddr())
		case 6:
			p.bgHi = p.readVRAM(p.bgPatternAddr() + 8)
		case 7:
			p.incCoarseX()
		}
	}

	if visible && p.Cycle >= 1 && p.Cycle <= 256 {
		p.shiftSprites()
	}

	if p.Cycle == 256 {
		p.incY()
	}

	if p.Cycle == 257 {
		p.reloadShifters()
		// horizontal bits of v come back from t
		p.v = p.v&^0x041F | p.t&0x041F
	}

	if preRender && p.Cycle >= 280 && p.Cycle <= 304 {
		// vertical bits of v come back from t
		p.v = p.v&^0x7BE0 | p.t&0x7BE0
	}

	if p.Cycle == 338 || p.Cycle == 340 {
		// dummy nametable fetches
		p.ntByte = p.readVRAM(0x2000 | p.v&0x0FFF)
	}
}

func (p *PPU) bgPatternAddr() uint16 {
	fineY := p.v >> 12 & 0x07
	table := uint16(0)
	if p.PPUCTRL.GetBit(backgroundAddr) {
		table = 0x1000
	}
	return table + uint16(p.ntByte)*16 + fineY
}

func (p *PPU) shiftBackground() {
	p.bgShiftLo <<= 1
	p.bgShiftHi <<= 1
	p.attrShiftLo <<= 1
	p.attrShiftHi <<= 1
}

func (p *PPU) reloadShifters() {
	p.bgShiftLo = p.bgShiftLo&0xFF00 | uint16(p.bgLo)
	p.bgShiftHi = p.bgShiftHi&0xFF00 | uint16(p.bgHi)

	attrLo, attrHi := uint16(0), uint16(0)
	if p.atByte&0x01 != 0 {
		attrLo = 0xFF
	}
	if p.atByte&0x02 != 0 {
		attrHi = 0xFF
	}
	p.attrShiftLo = p.attrShiftLo&0xFF00 | attrLo
	p.attrShiftHi = p.attrShiftHi&0xFF00 | attrHi
}

func (p *PPU) incCoarseX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400 // switch horizontal nametable
	} else {
		p.v++
	}
}

func (p *PPU) incY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}

	p.v &^= 0x7000
	y := p.v >> 5 & 0x1F
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800 // switch vertical nametable
	case 31:
		y = 0 // rows 30-31 (attribute area) wrap without a nametable switch
	default:
		y++
	}
	p.v = p.v&^0x03E0 | y<<5
}

/* pixel composition */

func (p *PPU) renderPixel(x, y int) {
	bgPixel, bgPal, bgOpaque := p.backgroundSample(x)
	sprPixel, sprPal, sprBehind := p.spriteSample(x)
	spr0 := p.sprite0Sample(x)

	if spr0 != 0 && x < 255 {
		if bgOpaque || p.spr0PrevBgOpq {
			p.PPUSTATUS.SetBit(sprite0Hit)
		}
	}
	p.spr0PrevBgOpq = bgOpaque

	var palIdx uint8
	switch {
	case bgOpaque && sprPixel != 0 && !sprBehind:
		palIdx = 0x10 | sprPal<<2 | sprPixel
	case bgOpaque:
		palIdx = bgPal<<2 | bgPixel
	case sprPixel != 0:
		palIdx = 0x10 | sprPal<<2 | sprPixel
	default:
		palIdx = 0
	}

	color := p.palette[paletteIndex(uint16(palIdx))] & 0x3F
	if p.PPUMASK.GetBit(greyscale) {
		color &= 0x30
	}
	p.fb[y*FrameWidth+x] = color
}

func (p *PPU) backgroundSample(x int) (pixel, pal uint8, opaque bool) {
	if !p.PPUMASK.GetBit(showBg) {
		return 0, 0, false
	}
	if x < 8 && !p.PPUMASK.GetBit(leftmostBg) {
		return 0, 0, false
	}

	bit := uint16(0x8000) >> p.finex
	p0 := b2u8(p.bgShiftLo&bit != 0)
	p1 := b2u8(p.bgShiftHi&bit != 0)
	pixel = p1<<1 | p0

	a0 := b2u8(p.attrShiftLo&bit != 0)
	a1 := b2u8(p.attrShiftHi&bit != 0)
	return pixel, a1<<1 | a0, pixel != 0
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

/* VRAM access */

// readVRAM reads the PPU bus and notifies the address watcher; every fetch
// the rendering pipeline performs goes through here so A12-watching mappers
// observe the same address traffic the 2C02 generates.
func (p *PPU) readVRAM(addr uint16) uint8 {
	addr &= 0x3FFF
	val := p.Bus.Read8(addr, false)
	if p.watcher != nil {
		p.watcher.NotifyPPUAddr(addr)
	}
	return val
}

func (p *PPU) writeVRAM(addr uint16, val uint8) {
	addr &= 0x3FFF
	p.Bus.Write8(addr, val)
	if p.watcher != nil {
		p.watcher.NotifyPPUAddr(addr)
	}
}

// spriteEvalRead fetches sprite pattern data. Watchers with scanline-based
// IRQ approximation don't see these reads (they get the synthetic
// notification at dot 260 instead).
func (p *PPU) spriteEvalRead(addr uint16) uint8 {
	if p.suppressEvalA12 {
		return p.Bus.Read8(addr&0x1FFF, false)
	}
	return p.readVRAM(addr)
}

func (p *PPU) incVRAMAddr() {
	if p.PPUCTRL.GetBit(vramIncr) {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x7FFF
}

// incVRAMAddrCPUAccess handles $2007 accesses: during rendering they clock
// the scroll counters instead of the linear increment.
func (p *PPU) incVRAMAddrCPUAccess() {
	if p.renderingEnabled() && (p.Scanline < 240) {
		p.incCoarseX()
		p.incY()
	} else {
		p.incVRAMAddr()
	}
}

/* save states */

func (p *PPU) State() *snapshot.PPU {
	s := &snapshot.PPU{
		Palette:       p.palette,
		OAMMem:        p.oam,
		OpenBus:       p.openBus,
		OAMAddr:       p.oamAddr,
		VRAMAddr:      p.v,
		VRAMTemp:      p.t,
		FineX:         p.finex,
		WriteLatch:    p.w,
		PPUDataBuf:    p.readBuf,
		PPUCTRL:       p.PPUCTRL.Value,
		PPUMASK:       p.PPUMASK.Value,
		PPUSTATUS:     p.PPUSTATUS.Value,
		MasterClock:   p.masterClock,
		Cycle:         p.Cycle,
		Scanline:      p.Scanline,
		FrameCount:    p.frameCount,
		OddFrame:      p.oddFrame,
		PreventVBlank: p.preventVBlank,
		BgRegs: snapshot.BgRegs{
			NT:        p.ntByte,
			AT:        p.atByte,
			BgLo:      p.bgLo,
			BgHi:      p.bgHi,
			BgShiftLo: p.bgShiftLo,
			BgShiftHi: p.bgShiftHi,
			ATShiftLo: p.attrShiftLo,
			ATShiftHi: p.attrShiftHi,
		},
		Nametables: append([]uint8(nil), p.Nametables[:]...),
		OAM2Count:  p.sprCount,
	}
	for i := 0; i < p.sprCount; i++ {
		s.OAM2[i] = snapshot.Sprite{
			ID:    p.sprIdx[i],
			X:     p.sprX[i],
			Attr:  p.sprAttr[i],
			DataL: p.sprLo[i],
			DataH: p.sprHi[i],
		}
	}
	return s
}

func (p *PPU) SetState(s *snapshot.PPU) {
	p.palette = s.Palette
	p.oam = s.OAMMem
	p.openBus = s.OpenBus
	p.oamAddr = s.OAMAddr
	p.v = s.VRAMAddr
	p.t = s.VRAMTemp
	p.finex = s.FineX
	p.w = s.WriteLatch
	p.readBuf = s.PPUDataBuf
	p.PPUCTRL.Value = s.PPUCTRL
	p.PPUMASK.Value = s.PPUMASK
	p.PPUSTATUS.Value = s.PPUSTATUS
	p.masterClock = s.MasterClock
	p.Cycle = s.Cycle
	p.Scanline = s.Scanline
	p.frameCount = s.FrameCount
	p.oddFrame = s.OddFrame
	p.preventVBlank = s.PreventVBlank
	p.ntByte = s.BgRegs.NT
	p.atByte = s.BgRegs.AT
	p.bgLo = s.BgRegs.BgLo
	p.bgHi = s.BgRegs.BgHi
	p.bgShiftLo = s.BgRegs.BgShiftLo
	p.bgShiftHi = s.BgRegs.BgShiftHi
	p.attrShiftLo = s.BgRegs.ATShiftLo
	p.attrShiftHi = s.BgRegs.ATShiftHi
	copy(p.Nametables[:], s.Nametables)

	p.sprCount = s.OAM2Count
	for i := 0; i < p.sprCount; i++ {
		p.sprIdx[i] = s.OAM2[i].ID
		p.sprX[i] = s.OAM2[i].X
		p.sprAttr[i] = s.OAM2[i].Attr
		p.sprLo[i] = s.OAM2[i].DataL
		p.sprHi[i] = s.OAM2[i].DataH
	}

	log.ModPPU.DebugZ("PPU state restored").
		Int("scanline", p.Scanline).
		Int("cycle", p.Cycle).
		End()
}
