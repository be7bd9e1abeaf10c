package hw

import "math/bits"

// Sprite handling: line evaluation of primary OAM into the 8 per-line sprite
// slots, and the separate dot-stepped scan that reproduces the hardware
// sprite-overflow bug.

func (p *PPU) spriteHeight() int {
	if p.PPUCTRL.GetBit(spriteSize) {
		return 16
	}
	return 8
}

// evaluateSprites resolves the up-to-8 sprites visible on the given
// scanline: pattern bytes, attributes and X counters.
func (p *PPU) evaluateSprites(scanline int) {
	p.sprCount = 0
	if !p.renderingEnabled() {
		return
	}

	height := p.spriteHeight()

	for i := 0; i < 64; i++ {
		base := i * 4
		y := int(p.oam[base]) + 1
		row := scanline - y
		if row < 0 || row >= height {
			continue
		}
		if p.sprCount >= 8 {
			break
		}

		tile := p.oam[base+1]
		attr := p.oam[base+2]
		x := p.oam[base+3]

		sprRow := uint16(row)
		if attr&0x80 != 0 { // vertical flip
			sprRow = uint16(height-1) - sprRow
		}

		var table, tileNum uint16
		if height == 16 {
			table = uint16(tile&0x01) * 0x1000
			tileNum = uint16(tile&0xFE) + sprRow/8
		} else {
			if p.PPUCTRL.GetBit(spriteAddr) {
				table = 0x1000
			}
			tileNum = uint16(tile)
		}

		addr := table + tileNum*16 + sprRow&0x07
		lo := p.spriteEvalRead(addr)
		hi := p.spriteEvalRead(addr + 8)

		if attr&0x40 != 0 { // horizontal flip
			lo = bits.Reverse8(lo)
			hi = bits.Reverse8(hi)
		}

		idx := p.sprCount
		p.sprLo[idx] = lo
		p.sprHi[idx] = hi
		p.sprX[idx] = x
		p.sprAttr[idx] = attr
		p.sprIdx[idx] = uint8(i)
		p.sprCount++
	}

	for i := p.sprCount; i < 8; i++ {
		p.sprLo[i] = 0
		p.sprHi[i] = 0
		p.sprX[i] = 0
		p.sprAttr[i] = 0
		p.sprIdx[i] = 0
	}
}

func (p *PPU) shiftSprites() {
	for i := 0; i < p.sprCount; i++ {
		if p.sprX[i] > 0 {
			p.sprX[i]--
		} else {
			p.sprLo[i] <<= 1
			p.sprHi[i] <<= 1
		}
	}
}

func (p *PPU) spriteSample(x int) (pixel, pal uint8, behindBg bool) {
	if !p.PPUMASK.GetBit(showSprites) {
		return 0, 0, false
	}
	if x < 8 && !p.PPUMASK.GetBit(leftmostSprites) {
		return 0, 0, false
	}

	for i := 0; i < p.sprCount; i++ {
		if p.sprX[i] != 0 {
			continue
		}

		pixel = p.sprLo[i]>>7 | p.sprHi[i]>>6&0x02
		if pixel == 0 {
			continue
		}

		// priority to the lowest-index non-transparent sprite
		return pixel, p.sprAttr[i] & 0x03, p.sprAttr[i]&0x20 != 0
	}
	return 0, 0, false
}

// sprite0Sample returns the current pixel of sprite 0, or 0 when sprite 0
// doesn't cover this dot.
func (p *PPU) sprite0Sample(x int) uint8 {
	if !p.PPUMASK.GetBit(showSprites) {
		return 0
	}
	if x < 8 && !p.PPUMASK.GetBit(leftmostSprites) {
		return 0
	}

	for i := 0; i < p.sprCount; i++ {
		if p.sprIdx[i] != 0 || p.sprX[i] != 0 {
			continue
		}
		return p.sprLo[i]>>7 | p.sprHi[i]>>6&0x02
	}
	return 0
}

/* sprite overflow evaluation (dots 65-256) */

func (p *PPU) beginOverflowEval(rendering bool) {
	p.evalActive = false
	p.evalN = 0
	p.evalM = 0
	p.evalFound = 0
	p.evalCopyLeft = 0
	p.evalBugMode = false

	if !rendering || p.Scanline < 0 || p.Scanline > 239 {
		return
	}

	p.evalScanline = p.Scanline + 1
	p.evalActive = true
}

func inSpriteRange(y uint8, scanline, height int) bool {
	row := scanline - (int(y) + 1)
	return row >= 0 && row < height
}

// clockOverflowEval advances the OAM scan one step every other dot. After the
// eighth in-range sprite the hardware scan goes diagonal: m increments
// alongside n without carry, so tile, attribute and X bytes get interpreted
// as Y coordinates. That produces both false positives and false negatives
// of the overflow flag, and both are reproduced here.
func (p *PPU) clockOverflowEval(rendering bool) {
	if !p.evalActive {
		return
	}
	if !rendering {
		p.evalActive = false
		return
	}
	if (p.Cycle-65)&1 != 0 {
		return
	}
	if p.evalN >= 64 {
		p.evalActive = false
		return
	}

	if p.evalCopyLeft > 0 {
		p.evalCopyLeft--
		if p.evalCopyLeft == 0 {
			p.evalN++
		}
		return
	}

	y := p.oam[int(p.evalN)*4+int(p.evalM)]
	inRange := inSpriteRange(y, p.evalScanline, p.spriteHeight())

	if !p.evalBugMode {
		if inRange {
			if p.evalFound < 8 {
				p.evalFound++
				p.evalCopyLeft = 3
				p.evalM = 0
				return
			}

			p.PPUSTATUS.SetBit(spriteOverflow)
			p.evalActive = false
			return
		}

		if p.evalFound < 8 {
			p.evalN++
			p.evalM = 0
			return
		}

		// Ninth sprite not found yet: enter the buggy diagonal scan.
		p.evalBugMode = true
		p.evalM = 1
		p.evalN++
		if p.evalN >= 64 {
			p.evalActive = false
		}
		return
	}

	if inRange {
		p.PPUSTATUS.SetBit(spriteOverflow)
		p.evalActive = false
		return
	}

	p.evalN++
	p.evalM = (p.evalM + 1) & 0x03
	if p.evalN >= 64 {
		p.evalActive = false
	}
}
