package hw

import (
	"famicle/emu/log"
)

// CPU-visible PPU register callbacks. Write-only registers read back the
// open-bus latch; every CPU transaction on $2000-$2007 refreshes the latch
// (whole-value, no per-bit decay).

// PPUCTRL: $2000
func (p *PPU) WritePPUCTRL(old, val uint8) {
	p.openBus = val

	// Transfer the nametable bits into t.
	p.t = p.t&^(ntselect<<10) | uint16(val&ntselect)<<10

	// By toggling the NMI enable bit during vblank without reading PPUSTATUS,
	// a program can pull /NMI low multiple times, so the line level is
	// recomputed on every write.
	p.updateNMILine()
}

func (p *PPU) ReadPPUCTRL(val uint8) uint8 { return p.openBus }

// PPUMASK: $2001
func (p *PPU) WritePPUMASK(old, val uint8) {
	p.openBus = val
}

func (p *PPU) ReadPPUMASK(val uint8) uint8 { return p.openBus }

// PPUSTATUS: $2002
func (p *PPU) ReadPPUSTATUS(val uint8) uint8 {
	ret := val&0xE0 | p.openBus&0x1F

	// Reading around the exact dot vblank gets set races the flag:
	//  - one dot early: the read returns clear and the flag is never set
	//    this frame, suppressing NMI entirely;
	//  - on the very dot: the read returns clear but the NMI edge stands.
	if p.Scanline == 241 {
		switch p.Cycle {
		case 0:
			ret &^= 1 << vblank
			p.preventVBlank = true
		case 1:
			ret &^= 1 << vblank
			p.PPUSTATUS.ClearBit(vblank)
			p.w = false
			p.openBus = ret
			return ret
		}
	}

	p.PPUSTATUS.ClearBit(vblank)
	p.w = false
	p.updateNMILine()
	p.openBus = ret
	return ret
}

func (p *PPU) PeekPPUSTATUS(val uint8) uint8 {
	return val&0xE0 | p.openBus&0x1F
}

// PPUSTATUS is read-only: a CPU write only refreshes the open-bus latch.
func (p *PPU) WritePPUSTATUS(old, val uint8) {
	p.PPUSTATUS.Value = old
	p.openBus = val
}

// OAMADDR: $2003
func (p *PPU) WriteOAMADDR(old, val uint8) {
	p.openBus = val
	p.oamAddr = val
}

func (p *PPU) ReadOAMADDR(val uint8) uint8 { return p.openBus }

// OAMDATA: $2004
func (p *PPU) WriteOAMDATA(old, val uint8) {
	p.openBus = val
	p.oam[p.oamAddr] = val
	p.oamAddr++
}

func (p *PPU) ReadOAMDATA(val uint8) uint8 {
	ret := p.oam[p.oamAddr]
	p.openBus = ret
	return ret
}

// PPUSCROLL: $2005
func (p *PPU) WritePPUSCROLL(old, val uint8) {
	p.openBus = val

	if !p.w { // first write: fine/coarse X
		p.finex = val & 0b111
		p.t = p.t&^0x001F | uint16(val)>>3
	} else { // second write: fine/coarse Y
		p.t = p.t&^0x03E0 | uint16(val)>>3<<5
		p.t = p.t&^0x7000 | uint16(val&0b111)<<12
	}
	p.w = !p.w
}

func (p *PPU) ReadPPUSCROLL(val uint8) uint8 { return p.openBus }

// PPUADDR: $2006. It's effectively a 15-bit register so 2 writes are needed.
func (p *PPU) WritePPUADDR(old, val uint8) {
	p.openBus = val

	if !p.w { // first write: high 6 bits, bit 14 cleared
		p.t = p.t&0x00FF | uint16(val&0x3F)<<8
	} else { // second write: low byte, then t is copied into v
		p.t = p.t&0x7F00 | uint16(val)
		p.v = p.t
		if p.watcher != nil {
			p.watcher.NotifyPPUAddr(p.v & 0x3FFF)
		}
	}
	p.w = !p.w
}

func (p *PPU) ReadPPUADDR(val uint8) uint8 { return p.openBus }

// PPUDATA: $2007
func (p *PPU) ReadPPUDATA(_ uint8) uint8 {
	addr := p.v & 0x3FFF
	var ret uint8
	if addr >= 0x3F00 {
		// Palette reads are immediate, but still load the read buffer from
		// the nametable mirror underneath.
		ret = p.readVRAM(addr)
		p.readBuf = p.Bus.Read8(addr-0x1000, false)
	} else {
		// Reading VRAM is too slow so the actual data is returned on the
		// following read.
		ret = p.readBuf
		p.readBuf = p.readVRAM(addr)
	}

	p.incVRAMAddrCPUAccess()
	p.openBus = ret

	log.ModPPU.DebugZ("VRAM read").
		Hex16("addr", addr).
		Hex8("val", ret).
		End()
	return ret
}

func (p *PPU) WritePPUDATA(old, val uint8) {
	p.openBus = val
	addr := p.v & 0x3FFF
	p.writeVRAM(addr, val)
	p.incVRAMAddrCPUAccess()

	log.ModPPU.DebugZ("VRAM write").
		Hex16("addr", addr).
		Hex8("val", val).
		End()
}
