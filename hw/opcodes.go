package hw

// Opcode dispatch table. Every cycle of every instruction is a bus access
// (including the dummy reads of indexed addressing and the spurious rewrite
// of read-modify-write instructions), so address-watching cartridge hardware
// observes the same traffic the 2A03 generates.

var ops = [256]func(*CPU){
	0x00: BRK,
	0x01: ORAizx,
	0x02: JAM,
	0x03: SLOizx,
	0x04: NOPzp,
	0x05: ORAzp,
	0x06: ASLzp,
	0x07: SLOzp,
	0x08: PHP,
	0x09: ORAimm,
	0x0A: ASLacc,
	0x0B: ANC,
	0x0C: NOPabs,
	0x0D: ORAabs,
	0x0E: ASLabs,
	0x0F: SLOabs,
	0x10: BPL,
	0x11: ORAizy,
	0x12: JAM,
	0x13: SLOizy,
	0x14: NOPzpx,
	0x15: ORAzpx,
	0x16: ASLzpx,
	0x17: SLOzpx,
	0x18: CLC,
	0x19: ORAaby,
	0x1A: NOPimp,
	0x1B: SLOaby,
	0x1C: NOPabx,
	0x1D: ORAabx,
	0x1E: ASLabx,
	0x1F: SLOabx,
	0x20: JSR,
	0x21: ANDizx,
	0x22: JAM,
	0x23: RLAizx,
	0x24: BITzp,
	0x25: ANDzp,
	0x26: ROLzp,
	0x27: RLAzp,
	0x28: PLP,
	0x29: ANDimm,
	0x2A: ROLacc,
	0x2B: ANC,
	0x2C: BITabs,
	0x2D: ANDabs,
	0x2E: ROLabs,
	0x2F: RLAabs,
	0x30: BMI,
	0x31: ANDizy,
	0x32: JAM,
	0x33: RLAizy,
	0x34: NOPzpx,
	0x35: ANDzpx,
	0x36: ROLzpx,
	0x37: RLAzpx,
	0x38: SEC,
	0x39: ANDaby,
	0x3A: NOPimp,
	0x3B: RLAaby,
	0x3C: NOPabx,
	0x3D: ANDabx,
	0x3E: ROLabx,
	0x3F: RLAabx,
	0x40: RTI,
	0x41: EORizx,
	0x42: JAM,
	0x43: SREizx,
	0x44: NOPzp,
	0x45: EORzp,
	0x46: LSRzp,
	0x47: SREzp,
	0x48: PHA,
	0x49: EORimm,
	0x4A: LSRacc,
	0x4B: ALR,
	0x4C: JMPabs,
	0x4D: EORabs,
	0x4E: LSRabs,
	0x4F: SREabs,
	0x50: BVC,
	0x51: EORizy,
	0x52: JAM,
	0x53: SREizy,
	0x54: NOPzpx,
	0x55: EORzpx,
	0x56: LSRzpx,
	0x57: SREzpx,
	0x58: CLI,
	0x59: EORaby,
	0x5A: NOPimp,
	0x5B: SREaby,
	0x5C: NOPabx,
	0x5D: EORabx,
	0x5E: LSRabx,
	0x5F: SREabx,
	0x60: RTS,
	0x61: ADCizx,
	0x62: JAM,
	0x63: RRAizx,
	0x64: NOPzp,
	0x65: ADCzp,
	0x66: RORzp,
	0x67: RRAzp,
	0x68: PLA,
	0x69: ADCimm,
	0x6A: RORacc,
	0x6B: ARR,
	0x6C: JMPind,
	0x6D: ADCabs,
	0x6E: RORabs,
	0x6F: RRAabs,
	0x70: BVS,
	0x71: ADCizy,
	0x72: JAM,
	0x73: RRAizy,
	0x74: NOPzpx,
	0x75: ADCzpx,
	0x76: RORzpx,
	0x77: RRAzpx,
	0x78: SEI,
	0x79: ADCaby,
	0x7A: NOPimp,
	0x7B: RRAaby,
	0x7C: NOPabx,
	0x7D: ADCabx,
	0x7E: RORabx,
	0x7F: RRAabx,
	0x80: NOPimm,
	0x81: STAizx,
	0x82: NOPimm,
	0x83: SAXizx,
	0x84: STYzp,
	0x85: STAzp,
	0x86: STXzp,
	0x87: SAXzp,
	0x88: DEY,
	0x89: NOPimm,
	0x8A: TXA,
	0x8B: XAA,
	0x8C: STYabs,
	0x8D: STAabs,
	0x8E: STXabs,
	0x8F: SAXabs,
	0x90: BCC,
	0x91: STAizy,
	0x92: JAM,
	0x93: SHAizy,
	0x94: STYzpx,
	0x95: STAzpx,
	0x96: STXzpy,
	0x97: SAXzpy,
	0x98: TYA,
	0x99: STAaby,
	0x9A: TXS,
	0x9B: TAS,
	0x9C: SHY,
	0x9D: STAabx,
	0x9E: SHX,
	0x9F: SHAaby,
	0xA0: LDYimm,
	0xA1: LDAizx,
	0xA2: LDXimm,
	0xA3: LAXizx,
	0xA4: LDYzp,
	0xA5: LDAzp,
	0xA6: LDXzp,
	0xA7: LAXzp,
	0xA8: TAY,
	0xA9: LDAimm,
	0xAA: TAX,
	0xAB: LAXimm,
	0xAC: LDYabs,
	0xAD: LDAabs,
	0xAE: LDXabs,
	0xAF: LAXabs,
	0xB0: BCS,
	0xB1: LDAizy,
	0xB2: JAM,
	0xB3: LAXizy,
	0xB4: LDYzpx,
	0xB5: LDAzpx,
	0xB6: LDXzpy,
	0xB7: LAXzpy,
	0xB8: CLV,
	0xB9: LDAaby,
	0xBA: TSX,
	0xBB: LAS,
	0xBC: LDYabx,
	0xBD: LDAabx,
	0xBE: LDXaby,
	0xBF: LAXaby,
	0xC0: CPYimm,
	0xC1: CMPizx,
	0xC2: NOPimm,
	0xC3: DCPizx,
	0xC4: CPYzp,
	0xC5: CMPzp,
	0xC6: DECzp,
	0xC7: DCPzp,
	0xC8: INY,
	0xC9: CMPimm,
	0xCA: DEX,
	0xCB: SBX,
	0xCC: CPYabs,
	0xCD: CMPabs,
	0xCE: DECabs,
	0xCF: DCPabs,
	0xD0: BNE,
	0xD1: CMPizy,
	0xD2: JAM,
	0xD3: DCPizy,
	0xD4: NOPzpx,
	0xD5: CMPzpx,
	0xD6: DECzpx,
	0xD7: DCPzpx,
	0xD8: CLD,
	0xD9: CMPaby,
	0xDA: NOPimp,
	0xDB: DCPaby,
	0xDC: NOPabx,
	0xDD: CMPabx,
	0xDE: DECabx,
	0xDF: DCPabx,
	0xE0: CPXimm,
	0xE1: SBCizx,
	0xE2: NOPimm,
	0xE3: ISBizx,
	0xE4: CPXzp,
	0xE5: SBCzp,
	0xE6: INCzp,
	0xE7: ISBzp,
	0xE8: INX,
	0xE9: SBCimm,
	0xEA: NOPimp,
	0xEB: SBCimm,
	0xEC: CPXabs,
	0xED: SBCabs,
	0xEE: INCabs,
	0xEF: ISBabs,
	0xF0: BEQ,
	0xF1: SBCizy,
	0xF2: JAM,
	0xF3: ISBizy,
	0xF4: NOPzpx,
	0xF5: SBCzpx,
	0xF6: INCzpx,
	0xF7: ISBzpx,
	0xF8: SED,
	0xF9: SBCaby,
	0xFA: NOPimp,
	0xFB: ISBaby,
	0xFC: NOPabx,
	0xFD: SBCabx,
	0xFE: INCabx,
	0xFF: ISBabx,
}

/* addressing modes */

func (c *CPU) fetch8() uint8 {
	val := c.Read8(c.PC)
	c.PC++
	return val
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) imm() uint8 { return c.fetch8() }

func (c *CPU) zpg() uint16 { return uint16(c.fetch8()) }

func (c *CPU) zpx() uint16 {
	base := c.fetch8()
	_ = c.Read8(uint16(base)) // dummy read at unindexed address
	return uint16(base+c.X) & 0xFF
}

func (c *CPU) zpy() uint16 {
	base := c.fetch8()
	_ = c.Read8(uint16(base))
	return uint16(base+c.Y) & 0xFF
}

func (c *CPU) abs() uint16 { return c.fetch16() }

// indexed absolute, read access: the partially-added address is read (and
// discarded) only when indexing crosses a page.
func (c *CPU) idxRd(idx uint8) uint16 {
	base := c.fetch16()
	addr := base + uint16(idx)
	if addr&0xFF00 != base&0xFF00 {
		_ = c.Read8(base&0xFF00 | addr&0x00FF)
	}
	return addr
}

// indexed absolute, write/RMW access: the partially-added address is always
// read before the real access.
func (c *CPU) idxWr(idx uint8) uint16 {
	base := c.fetch16()
	addr := base + uint16(idx)
	_ = c.Read8(base&0xFF00 | addr&0x00FF)
	return addr
}

func (c *CPU) abx() uint16  { return c.idxRd(c.X) }
func (c *CPU) abxd() uint16 { return c.idxWr(c.X) }
func (c *CPU) aby() uint16  { return c.idxRd(c.Y) }
func (c *CPU) abyd() uint16 { return c.idxWr(c.Y) }

func (c *CPU) izx() uint16 {
	ptr := c.fetch8()
	_ = c.Read8(uint16(ptr)) // dummy read before X is added
	ptr += c.X
	lo := c.Read8(uint16(ptr))
	hi := c.Read8(uint16(ptr + 1))
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) izyBase() uint16 {
	ptr := c.fetch8()
	lo := c.Read8(uint16(ptr))
	hi := c.Read8(uint16(ptr + 1))
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) izy() uint16 {
	base := c.izyBase()
	addr := base + uint16(c.Y)
	if addr&0xFF00 != base&0xFF00 {
		_ = c.Read8(base&0xFF00 | addr&0x00FF)
	}
	return addr
}

func (c *CPU) izyd() uint16 {
	base := c.izyBase()
	addr := base + uint16(c.Y)
	_ = c.Read8(base&0xFF00 | addr&0x00FF)
	return addr
}

// ind implements the JMP (addr) page-wrap bug: the high pointer byte is
// fetched from the start of the same page when the low byte is 0xFF.
func (c *CPU) ind() uint16 {
	ptr := c.fetch16()
	lo := c.Read8(ptr)
	hi := c.Read8(ptr&0xFF00 | (ptr+1)&0x00FF)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) branch(cond bool) {
	off := int8(c.fetch8())
	if !cond {
		return
	}
	dest := uint16(int32(c.PC) + int32(off))
	_ = c.Read8(c.PC) // branch taken: pipeline dummy read
	if dest&0xFF00 != c.PC&0xFF00 {
		_ = c.Read8(c.PC&0xFF00 | dest&0x00FF)
	}
	c.PC = dest
}

// rmw performs the read / spurious-rewrite / write sequence of
// read-modify-write instructions.
func (c *CPU) rmw(addr uint16, fn func(uint8) uint8) {
	val := c.Read8(addr)
	c.Write8(addr, val)
	c.Write8(addr, fn(val))
}

/* ALU helpers */

func (c *CPU) ora(val uint8) { c.A |= val; c.P.checkNZ(c.A) }
func (c *CPU) and(val uint8) { c.A &= val; c.P.checkNZ(c.A) }
func (c *CPU) eor(val uint8) { c.A ^= val; c.P.checkNZ(c.A) }

// adc always operates in binary on the 2A03: the D flag is honored in P but
// ignored by the adder.
func (c *CPU) adc(val uint8) {
	sum := uint16(c.A) + uint16(val) + uint16(c.P.ibit(pbitC))
	c.P.setC(sum > 0xFF)
	c.P.setV((uint16(c.A)^sum)&(uint16(val)^sum)&0x80 != 0)
	c.A = uint8(sum)
	c.P.checkNZ(c.A)
}

func (c *CPU) sbc(val uint8) { c.adc(^val) }

func (c *CPU) cmp(reg, val uint8) {
	c.P.setC(reg >= val)
	c.P.checkNZ(reg - val)
}

func (c *CPU) bit(val uint8) {
	c.P.setZ(c.A&val == 0)
	c.P.setN(val&0x80 != 0)
	c.P.setV(val&0x40 != 0)
}

func (c *CPU) asl(val uint8) uint8 {
	c.P.setC(val&0x80 != 0)
	val <<= 1
	c.P.checkNZ(val)
	return val
}

func (c *CPU) lsr(val uint8) uint8 {
	c.P.setC(val&0x01 != 0)
	val >>= 1
	c.P.checkNZ(val)
	return val
}

func (c *CPU) rol(val uint8) uint8 {
	carry := c.P.ibit(pbitC)
	c.P.setC(val&0x80 != 0)
	val = val<<1 | carry
	c.P.checkNZ(val)
	return val
}

func (c *CPU) ror(val uint8) uint8 {
	carry := c.P.ibit(pbitC)
	c.P.setC(val&0x01 != 0)
	val = val>>1 | carry<<7
	c.P.checkNZ(val)
	return val
}

func (c *CPU) slo(val uint8) uint8 { val = c.asl(val); c.ora(val); return val }
func (c *CPU) rla(val uint8) uint8 { val = c.rol(val); c.and(val); return val }
func (c *CPU) sre(val uint8) uint8 { val = c.lsr(val); c.eor(val); return val }
func (c *CPU) rra(val uint8) uint8 { val = c.ror(val); c.adc(val); return val }

func (c *CPU) dcp(val uint8) uint8 { val--; c.cmp(c.A, val); return val }
func (c *CPU) isb(val uint8) uint8 { val++; c.sbc(val); return val }

func (c *CPU) lax(val uint8) { c.A = val; c.X = val; c.P.checkNZ(val) }

/* official instructions */

// 01/05/09/0D/11/15/19/1D
func ORAizx(c *CPU) { c.ora(c.Read8(c.izx())) }
func ORAzp(c *CPU)  { c.ora(c.Read8(c.zpg())) }
func ORAimm(c *CPU) { c.ora(c.imm()) }
func ORAabs(c *CPU) { c.ora(c.Read8(c.abs())) }
func ORAizy(c *CPU) { c.ora(c.Read8(c.izy())) }
func ORAzpx(c *CPU) { c.ora(c.Read8(c.zpx())) }
func ORAaby(c *CPU) { c.ora(c.Read8(c.aby())) }
func ORAabx(c *CPU) { c.ora(c.Read8(c.abx())) }

// 21/25/29/2D/31/35/39/3D
func ANDizx(c *CPU) { c.and(c.Read8(c.izx())) }
func ANDzp(c *CPU)  { c.and(c.Read8(c.zpg())) }
func ANDimm(c *CPU) { c.and(c.imm()) }
func ANDabs(c *CPU) { c.and(c.Read8(c.abs())) }
func ANDizy(c *CPU) { c.and(c.Read8(c.izy())) }
func ANDzpx(c *CPU) { c.and(c.Read8(c.zpx())) }
func ANDaby(c *CPU) { c.and(c.Read8(c.aby())) }
func ANDabx(c *CPU) { c.and(c.Read8(c.abx())) }

// 41/45/49/4D/51/55/59/5D
func EORizx(c *CPU) { c.eor(c.Read8(c.izx())) }
func EORzp(c *CPU)  { c.eor(c.Read8(c.zpg())) }
func EORimm(c *CPU) { c.eor(c.imm()) }
func EORabs(c *CPU) { c.eor(c.Read8(c.abs())) }
func EORizy(c *CPU) { c.eor(c.Read8(c.izy())) }
func EORzpx(c *CPU) { c.eor(c.Read8(c.zpx())) }
func EORaby(c *CPU) { c.eor(c.Read8(c.aby())) }
func EORabx(c *CPU) { c.eor(c.Read8(c.abx())) }

// 61/65/69/6D/71/75/79/7D
func ADCizx(c *CPU) { c.adc(c.Read8(c.izx())) }
func ADCzp(c *CPU)  { c.adc(c.Read8(c.zpg())) }
func ADCimm(c *CPU) { c.adc(c.imm()) }
func ADCabs(c *CPU) { c.adc(c.Read8(c.abs())) }
func ADCizy(c *CPU) { c.adc(c.Read8(c.izy())) }
func ADCzpx(c *CPU) { c.adc(c.Read8(c.zpx())) }
func ADCaby(c *CPU) { c.adc(c.Read8(c.aby())) }
func ADCabx(c *CPU) { c.adc(c.Read8(c.abx())) }

// E1/E5/E9/ED/F1/F5/F9/FD (EB is SBC imm too)
func SBCizx(c *CPU) { c.sbc(c.Read8(c.izx())) }
func SBCzp(c *CPU)  { c.sbc(c.Read8(c.zpg())) }
func SBCimm(c *CPU) { c.sbc(c.imm()) }
func SBCabs(c *CPU) { c.sbc(c.Read8(c.abs())) }
func SBCizy(c *CPU) { c.sbc(c.Read8(c.izy())) }
func SBCzpx(c *CPU) { c.sbc(c.Read8(c.zpx())) }
func SBCaby(c *CPU) { c.sbc(c.Read8(c.aby())) }
func SBCabx(c *CPU) { c.sbc(c.Read8(c.abx())) }

// C1/C5/C9/CD/D1/D5/D9/DD
func CMPizx(c *CPU) { c.cmp(c.A, c.Read8(c.izx())) }
func CMPzp(c *CPU)  { c.cmp(c.A, c.Read8(c.zpg())) }
func CMPimm(c *CPU) { c.cmp(c.A, c.imm()) }
func CMPabs(c *CPU) { c.cmp(c.A, c.Read8(c.abs())) }
func CMPizy(c *CPU) { c.cmp(c.A, c.Read8(c.izy())) }
func CMPzpx(c *CPU) { c.cmp(c.A, c.Read8(c.zpx())) }
func CMPaby(c *CPU) { c.cmp(c.A, c.Read8(c.aby())) }
func CMPabx(c *CPU) { c.cmp(c.A, c.Read8(c.abx())) }

// C0/C4/CC
func CPYimm(c *CPU) { c.cmp(c.Y, c.imm()) }
func CPYzp(c *CPU)  { c.cmp(c.Y, c.Read8(c.zpg())) }
func CPYabs(c *CPU) { c.cmp(c.Y, c.Read8(c.abs())) }

// E0/E4/EC
func CPXimm(c *CPU) { c.cmp(c.X, c.imm()) }
func CPXzp(c *CPU)  { c.cmp(c.X, c.Read8(c.zpg())) }
func CPXabs(c *CPU) { c.cmp(c.X, c.Read8(c.abs())) }

// 24/2C
func BITzp(c *CPU)  { c.bit(c.Read8(c.zpg())) }
func BITabs(c *CPU) { c.bit(c.Read8(c.abs())) }

// A1/A5/A9/AD/B1/B5/B9/BD
func LDAizx(c *CPU) { c.A = c.Read8(c.izx()); c.P.checkNZ(c.A) }
func LDAzp(c *CPU)  { c.A = c.Read8(c.zpg()); c.P.checkNZ(c.A) }
func LDAimm(c *CPU) { c.A = c.imm(); c.P.checkNZ(c.A) }
func LDAabs(c *CPU) { c.A = c.Read8(c.abs()); c.P.checkNZ(c.A) }
func LDAizy(c *CPU) { c.A = c.Read8(c.izy()); c.P.checkNZ(c.A) }
func LDAzpx(c *CPU) { c.A = c.Read8(c.zpx()); c.P.checkNZ(c.A) }
func LDAaby(c *CPU) { c.A = c.Read8(c.aby()); c.P.checkNZ(c.A) }
func LDAabx(c *CPU) { c.A = c.Read8(c.abx()); c.P.checkNZ(c.A) }

// A2/A6/AE/B6/BE
func LDXimm(c *CPU) { c.X = c.imm(); c.P.checkNZ(c.X) }
func LDXzp(c *CPU)  { c.X = c.Read8(c.zpg()); c.P.checkNZ(c.X) }
func LDXabs(c *CPU) { c.X = c.Read8(c.abs()); c.P.checkNZ(c.X) }
func LDXzpy(c *CPU) { c.X = c.Read8(c.zpy()); c.P.checkNZ(c.X) }
func LDXaby(c *CPU) { c.X = c.Read8(c.aby()); c.P.checkNZ(c.X) }

// A0/A4/AC/B4/BC
func LDYimm(c *CPU) { c.Y = c.imm(); c.P.checkNZ(c.Y) }
func LDYzp(c *CPU)  { c.Y = c.Read8(c.zpg()); c.P.checkNZ(c.Y) }
func LDYabs(c *CPU) { c.Y = c.Read8(c.abs()); c.P.checkNZ(c.Y) }
func LDYzpx(c *CPU) { c.Y = c.Read8(c.zpx()); c.P.checkNZ(c.Y) }
func LDYabx(c *CPU) { c.Y = c.Read8(c.abx()); c.P.checkNZ(c.Y) }

// 81/85/8D/91/95/99/9D
func STAizx(c *CPU) { c.Write8(c.izx(), c.A) }
func STAzp(c *CPU)  { c.Write8(c.zpg(), c.A) }
func STAabs(c *CPU) { c.Write8(c.abs(), c.A) }
func STAizy(c *CPU) { c.Write8(c.izyd(), c.A) }
func STAzpx(c *CPU) { c.Write8(c.zpx(), c.A) }
func STAaby(c *CPU) { c.Write8(c.abyd(), c.A) }
func STAabx(c *CPU) { c.Write8(c.abxd(), c.A) }

// 86/8E/96
func STXzp(c *CPU)  { c.Write8(c.zpg(), c.X) }
func STXabs(c *CPU) { c.Write8(c.abs(), c.X) }
func STXzpy(c *CPU) { c.Write8(c.zpy(), c.X) }

// 84/8C/94
func STYzp(c *CPU)  { c.Write8(c.zpg(), c.Y) }
func STYabs(c *CPU) { c.Write8(c.abs(), c.Y) }
func STYzpx(c *CPU) { c.Write8(c.zpx(), c.Y) }

// 06/0E/16/1E/0A
func ASLzp(c *CPU)  { c.rmw(c.zpg(), c.asl) }
func ASLabs(c *CPU) { c.rmw(c.abs(), c.asl) }
func ASLzpx(c *CPU) { c.rmw(c.zpx(), c.asl) }
func ASLabx(c *CPU) { c.rmw(c.abxd(), c.asl) }
func ASLacc(c *CPU) { _ = c.Read8(c.PC); c.A = c.asl(c.A) }

// 46/4E/56/5E/4A
func LSRzp(c *CPU)  { c.rmw(c.zpg(), c.lsr) }
func LSRabs(c *CPU) { c.rmw(c.abs(), c.lsr) }
func LSRzpx(c *CPU) { c.rmw(c.zpx(), c.lsr) }
func LSRabx(c *CPU) { c.rmw(c.abxd(), c.lsr) }
func LSRacc(c *CPU) { _ = c.Read8(c.PC); c.A = c.lsr(c.A) }

// 26/2E/36/3E/2A
func ROLzp(c *CPU)  { c.rmw(c.zpg(), c.rol) }
func ROLabs(c *CPU) { c.rmw(c.abs(), c.rol) }
func ROLzpx(c *CPU) { c.rmw(c.zpx(), c.rol) }
func ROLabx(c *CPU) { c.rmw(c.abxd(), c.rol) }
func ROLacc(c *CPU) { _ = c.Read8(c.PC); c.A = c.rol(c.A) }

// 66/6E/76/7E/6A
func RORzp(c *CPU)  { c.rmw(c.zpg(), c.ror) }
func RORabs(c *CPU) { c.rmw(c.abs(), c.ror) }
func RORzpx(c *CPU) { c.rmw(c.zpx(), c.ror) }
func RORabx(c *CPU) { c.rmw(c.abxd(), c.ror) }
func RORacc(c *CPU) { _ = c.Read8(c.PC); c.A = c.ror(c.A) }

// C6/CE/D6/DE
func DECzp(c *CPU)  { c.rmw(c.zpg(), c.dec) }
func DECabs(c *CPU) { c.rmw(c.abs(), c.dec) }
func DECzpx(c *CPU) { c.rmw(c.zpx(), c.dec) }
func DECabx(c *CPU) { c.rmw(c.abxd(), c.dec) }

// E6/EE/F6/FE
func INCzp(c *CPU)  { c.rmw(c.zpg(), c.inc) }
func INCabs(c *CPU) { c.rmw(c.abs(), c.inc) }
func INCzpx(c *CPU) { c.rmw(c.zpx(), c.inc) }
func INCabx(c *CPU) { c.rmw(c.abxd(), c.inc) }

func (c *CPU) dec(val uint8) uint8 { val--; c.P.checkNZ(val); return val }
func (c *CPU) inc(val uint8) uint8 { val++; c.P.checkNZ(val); return val }

/* register transfers, implied */

func TAX(c *CPU) { _ = c.Read8(c.PC); c.X = c.A; c.P.checkNZ(c.X) }
func TAY(c *CPU) { _ = c.Read8(c.PC); c.Y = c.A; c.P.checkNZ(c.Y) }
func TXA(c *CPU) { _ = c.Read8(c.PC); c.A = c.X; c.P.checkNZ(c.A) }
func TYA(c *CPU) { _ = c.Read8(c.PC); c.A = c.Y; c.P.checkNZ(c.A) }
func TSX(c *CPU) { _ = c.Read8(c.PC); c.X = c.SP; c.P.checkNZ(c.X) }
func TXS(c *CPU) { _ = c.Read8(c.PC); c.SP = c.X }

func INX(c *CPU) { _ = c.Read8(c.PC); c.X++; c.P.checkNZ(c.X) }
func INY(c *CPU) { _ = c.Read8(c.PC); c.Y++; c.P.checkNZ(c.Y) }
func DEX(c *CPU) { _ = c.Read8(c.PC); c.X--; c.P.checkNZ(c.X) }
func DEY(c *CPU) { _ = c.Read8(c.PC); c.Y--; c.P.checkNZ(c.Y) }

/* flag instructions */

func CLC(c *CPU) { _ = c.Read8(c.PC); c.P.setC(false) }
func SEC(c *CPU) { _ = c.Read8(c.PC); c.P.setC(true) }
func CLI(c *CPU) { _ = c.Read8(c.PC); c.P.setI(false) }
func SEI(c *CPU) { _ = c.Read8(c.PC); c.P.setI(true) }
func CLV(c *CPU) { _ = c.Read8(c.PC); c.P.setV(false) }
func CLD(c *CPU) { _ = c.Read8(c.PC); c.P.writeBit(pbitD, false) }
func SED(c *CPU) { _ = c.Read8(c.PC); c.P.writeBit(pbitD, true) }

/* stack */

func PHA(c *CPU) { _ = c.Read8(c.PC); c.push8(c.A) }

func PHP(c *CPU) {
	_ = c.Read8(c.PC)
	p := c.P
	p |= 1<<pbitB | 1<<pbitU
	c.push8(uint8(p))
}

func PLA(c *CPU) {
	_ = c.Read8(c.PC)
	_ = c.Read8(0x0100 + uint16(c.SP))
	c.A = c.pull8()
	c.P.checkNZ(c.A)
}

// PLP ignores bits 5 and 4 of the pulled byte.
func PLP(c *CPU) {
	_ = c.Read8(c.PC)
	_ = c.Read8(0x0100 + uint16(c.SP))
	const mask = 0b1100_1111
	p := c.pull8()
	c.P = P(uint8(c.P)&^mask | p&mask)
}

/* jumps */

func JMPabs(c *CPU) { c.PC = c.abs() }
func JMPind(c *CPU) { c.PC = c.ind() }

func JSR(c *CPU) {
	lo := c.fetch8()
	_ = c.Read8(0x0100 + uint16(c.SP)) // internal cycle
	c.push16(c.PC)
	hi := c.fetch8()
	c.PC = uint16(hi)<<8 | uint16(lo)
}

func RTS(c *CPU) {
	_ = c.Read8(c.PC)
	_ = c.Read8(0x0100 + uint16(c.SP))
	c.PC = c.pull16()
	_ = c.Read8(c.PC)
	c.PC++
}

func RTI(c *CPU) {
	_ = c.Read8(c.PC)
	_ = c.Read8(0x0100 + uint16(c.SP))
	const mask = 0b1100_1111
	p := c.pull8()
	c.P = P(uint8(c.P)&^mask | p&mask)
	c.PC = c.pull16()
}

/* branches */

func BPL(c *CPU) { c.branch(!c.P.N()) }
func BMI(c *CPU) { c.branch(c.P.N()) }
func BVC(c *CPU) { c.branch(!c.P.V()) }
func BVS(c *CPU) { c.branch(c.P.V()) }
func BCC(c *CPU) { c.branch(!c.P.C()) }
func BCS(c *CPU) { c.branch(c.P.C()) }
func BNE(c *CPU) { c.branch(!c.P.Z()) }
func BEQ(c *CPU) { c.branch(c.P.Z()) }

/* NOP variants */

func NOPimp(c *CPU) { _ = c.Read8(c.PC) }
func NOPimm(c *CPU) { _ = c.imm() }
func NOPzp(c *CPU)  { _ = c.Read8(c.zpg()) }
func NOPzpx(c *CPU) { _ = c.Read8(c.zpx()) }
func NOPabs(c *CPU) { _ = c.Read8(c.abs()) }
func NOPabx(c *CPU) { _ = c.Read8(c.abx()) }

/* unofficial instructions */

// JAM (a.k.a KIL/STP) wedges the CPU: the PC no longer advances and the
// halted flag is the only way out (reset).
func JAM(c *CPU) {
	_ = c.Read8(c.PC)
	c.PC--
	c.halt()
}

func SLOizx(c *CPU) { c.rmw(c.izx(), c.slo) }
func SLOzp(c *CPU)  { c.rmw(c.zpg(), c.slo) }
func SLOabs(c *CPU) { c.rmw(c.abs(), c.slo) }
func SLOizy(c *CPU) { c.rmw(c.izyd(), c.slo) }
func SLOzpx(c *CPU) { c.rmw(c.zpx(), c.slo) }
func SLOaby(c *CPU) { c.rmw(c.abyd(), c.slo) }
func SLOabx(c *CPU) { c.rmw(c.abxd(), c.slo) }

func RLAizx(c *CPU) { c.rmw(c.izx(), c.rla) }
func RLAzp(c *CPU)  { c.rmw(c.zpg(), c.rla) }
func RLAabs(c *CPU) { c.rmw(c.abs(), c.rla) }
func RLAizy(c *CPU) { c.rmw(c.izyd(), c.rla) }
func RLAzpx(c *CPU) { c.rmw(c.zpx(), c.rla) }
func RLAaby(c *CPU) { c.rmw(c.abyd(), c.rla) }
func RLAabx(c *CPU) { c.rmw(c.abxd(), c.rla) }

func SREizx(c *CPU) { c.rmw(c.izx(), c.sre) }
func SREzp(c *CPU)  { c.rmw(c.zpg(), c.sre) }
func SREabs(c *CPU) { c.rmw(c.abs(), c.sre) }
func SREizy(c *CPU) { c.rmw(c.izyd(), c.sre) }
func SREzpx(c *CPU) { c.rmw(c.zpx(), c.sre) }
func SREaby(c *CPU) { c.rmw(c.abyd(), c.sre) }
func SREabx(c *CPU) { c.rmw(c.abxd(), c.sre) }

func RRAizx(c *CPU) { c.rmw(c.izx(), c.rra) }
func RRAzp(c *CPU)  { c.rmw(c.zpg(), c.rra) }
func RRAabs(c *CPU) { c.rmw(c.abs(), c.rra) }
func RRAizy(c *CPU) { c.rmw(c.izyd(), c.rra) }
func RRAzpx(c *CPU) { c.rmw(c.zpx(), c.rra) }
func RRAaby(c *CPU) { c.rmw(c.abyd(), c.rra) }
func RRAabx(c *CPU) { c.rmw(c.abxd(), c.rra) }

func DCPizx(c *CPU) { c.rmw(c.izx(), c.dcp) }
func DCPzp(c *CPU)  { c.rmw(c.zpg(), c.dcp) }
func DCPabs(c *CPU) { c.rmw(c.abs(), c.dcp) }
func DCPizy(c *CPU) { c.rmw(c.izyd(), c.dcp) }
func DCPzpx(c *CPU) { c.rmw(c.zpx(), c.dcp) }
func DCPaby(c *CPU) { c.rmw(c.abyd(), c.dcp) }
func DCPabx(c *CPU) { c.rmw(c.abxd(), c.dcp) }

func ISBizx(c *CPU) { c.rmw(c.izx(), c.isb) }
func ISBzp(c *CPU)  { c.rmw(c.zpg(), c.isb) }
func ISBabs(c *CPU) { c.rmw(c.abs(), c.isb) }
func ISBizy(c *CPU) { c.rmw(c.izyd(), c.isb) }
func ISBzpx(c *CPU) { c.rmw(c.zpx(), c.isb) }
func ISBaby(c *CPU) { c.rmw(c.abyd(), c.isb) }
func ISBabx(c *CPU) { c.rmw(c.abxd(), c.isb) }

func LAXizx(c *CPU) { c.lax(c.Read8(c.izx())) }
func LAXzp(c *CPU)  { c.lax(c.Read8(c.zpg())) }
func LAXabs(c *CPU) { c.lax(c.Read8(c.abs())) }
func LAXizy(c *CPU) { c.lax(c.Read8(c.izy())) }
func LAXzpy(c *CPU) { c.lax(c.Read8(c.zpy())) }
func LAXaby(c *CPU) { c.lax(c.Read8(c.aby())) }
func LAXimm(c *CPU) { c.lax(c.imm()) }

func SAXizx(c *CPU) { c.Write8(c.izx(), c.A&c.X) }
func SAXzp(c *CPU)  { c.Write8(c.zpg(), c.A&c.X) }
func SAXabs(c *CPU) { c.Write8(c.abs(), c.A&c.X) }
func SAXzpy(c *CPU) { c.Write8(c.zpy(), c.A&c.X) }

// 0B/2B
func ANC(c *CPU) {
	c.and(c.imm())
	c.P.setC(c.P.N())
}

// 4B
func ALR(c *CPU) {
	c.and(c.imm())
	c.A = c.lsr(c.A)
}

// 6B: AND then ROR, with C from bit 6 and V from bit6^bit5 of the result.
func ARR(c *CPU) {
	c.A &= c.imm()
	c.A = c.A>>1 | c.P.ibit(pbitC)<<7
	c.P.checkNZ(c.A)
	c.P.setC(c.A&0x40 != 0)
	c.P.setV((c.A>>6^c.A>>5)&1 != 0)
}

// CB: X = (A & X) - imm
func SBX(c *CPU) {
	val := c.imm()
	ax := c.A & c.X
	c.P.setC(ax >= val)
	c.X = ax - val
	c.P.checkNZ(c.X)
}

// BB: A = X = SP = mem & SP
func LAS(c *CPU) {
	val := c.Read8(c.aby()) & c.SP
	c.A = val
	c.X = val
	c.SP = val
	c.P.checkNZ(val)
}

// 8B: unstable on hardware; stable approximation with the magic constant.
func XAA(c *CPU) {
	c.A = (c.A | 0xEE) & c.X & c.imm()
	c.P.checkNZ(c.A)
}

// sha computes the stored value of the SHA/SHX/SHY family: reg AND
// (high byte of the base address + 1). When indexing crosses a page, the
// corrupted value also replaces the high byte of the effective address.
func (c *CPU) sha(reg uint8, idx uint8) (addr uint16, val uint8) {
	base := c.fetch16()
	addr = base + uint16(idx)
	_ = c.Read8(base&0xFF00 | addr&0x00FF)
	val = reg & (uint8(base>>8) + 1)
	if addr&0xFF00 != base&0xFF00 {
		addr = uint16(val)<<8 | addr&0x00FF
	}
	return addr, val
}

// 9F
func SHAaby(c *CPU) {
	addr, val := c.sha(c.A&c.X, c.Y)
	c.Write8(addr, val)
}

// 93
func SHAizy(c *CPU) {
	base := c.izyBase()
	addr := base + uint16(c.Y)
	_ = c.Read8(base&0xFF00 | addr&0x00FF)
	val := c.A & c.X & (uint8(base>>8) + 1)
	if addr&0xFF00 != base&0xFF00 {
		addr = uint16(val)<<8 | addr&0x00FF
	}
	c.Write8(addr, val)
}

// 9E
func SHX(c *CPU) {
	addr, val := c.sha(c.X, c.Y)
	c.Write8(addr, val)
}

// 9C
func SHY(c *CPU) {
	addr, val := c.sha(c.Y, c.X)
	c.Write8(addr, val)
}

// 9B: SP = A & X, then SHA semantics for the store.
func TAS(c *CPU) {
	c.SP = c.A & c.X
	addr, val := c.sha(c.SP, c.Y)
	c.Write8(addr, val)
}
