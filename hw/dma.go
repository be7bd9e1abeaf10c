package hw

import (
	"famicle/emu/log"
	"famicle/hw/hwio"
)

var modDMA = log.NewModule("dma")

// DMA handles the transfer of OAM (sprite attributes) to the PPU and of DMC
// sample bytes to the APU. Both steal cycles from the CPU: the DMA unit
// halts the CPU on a read cycle and drives the bus itself.
type DMA struct {
	cpu *CPU

	OAMDMA hwio.Reg8 `hwio:"offset=0x00,writeonly,wcb"`

	oamPage    uint8
	oamPending bool

	dmcPending bool
	dmcAddr    uint16

	running bool
}

func (dma *DMA) InitBus(cpu *CPU) {
	hwio.MustInitRegs(dma)
	dma.cpu = cpu
	dma.reset()
}

func (dma *DMA) reset() {
	dma.oamPage = 0x00
	dma.oamPending = false
	dma.dmcPending = false
	dma.running = false
}

func (dma *DMA) WriteOAMDMA(_, val uint8) {
	modDMA.DebugZ("start OAM DMA transfer").Hex8("page", val).End()
	dma.oamPage = val
	dma.oamPending = true
}

// startDMCTransfer queues a DMC sample byte fetch.
func (dma *DMA) startDMCTransfer(addr uint16) {
	dma.dmcAddr = addr
	dma.dmcPending = true
}

// process runs any pending transfer. It is called right before every CPU
// read cycle (DMA can only halt the CPU on a read); addr is the address the
// CPU was about to read, which is what the halted CPU keeps re-reading.
func (dma *DMA) process(addr uint16) {
	if dma.running || (!dma.oamPending && !dma.dmcPending) {
		return
	}
	dma.running = true
	defer func() { dma.running = false }()

	cpu := dma.cpu

	if dma.dmcPending && !dma.oamPending {
		dma.dmcPending = false

		// halt + dummy cycles: 4 on an even CPU cycle, 3 on odd
		stall := 3
		if cpu.Cycles&1 == 0 {
			stall++
		}
		for i := 0; i < stall-1; i++ {
			_ = cpu.Read8(addr)
		}
		val := cpu.Read8(dma.dmcAddr)
		if cpu.APU != nil {
			cpu.APU.DMC.SetReadBuffer(val)
		}
		return
	}

	dma.oamPending = false

	// Halt cycle, then one extra alignment cycle when the transfer would
	// start on an odd CPU cycle: 513 or 514 cycles total.
	_ = cpu.Read8(addr)
	if cpu.Cycles&1 == 1 {
		_ = cpu.Read8(addr)
	}

	base := uint16(dma.oamPage) << 8
	for i := uint16(0); i < 256; i++ {
		val := cpu.Read8(base + i)
		cpu.Write8(0x2004, val)
	}

	if dma.dmcPending {
		// DMC fetch queued while the sprite DMA was running: serve it now,
		// the halt cycles were already absorbed.
		dma.dmcPending = false
		val := cpu.Read8(dma.dmcAddr)
		if cpu.APU != nil {
			cpu.APU.DMC.SetReadBuffer(val)
		}
	}
}
