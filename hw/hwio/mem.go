package hwio

import (
	"famicle/emu/log"
)

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlag8ReadOnly MemFlags = 1 << iota // reject writes, log them
	MemFlagNoROLog                        // reject writes silently
)

// Mem is a linear memory area that can be mapped into a Table.
//
// The physical buffer size must be a power of two. VSize may be bigger than
// the buffer: the extra range aliases the buffer (address mirroring), which
// is how RAM and register mirrors are expressed on the NES buses.
//
// NOTE: this structure does not directly implement the BankIO interface;
// clients call bankIO8 to create an adaptor specialized for the bank
// configuration, so the access hot path doesn't re-check flags.
type Mem struct {
	Name    string              // name of the memory area (for debugging)
	Data    []byte              // actual memory buffer
	VSize   int                 // virtual size of the memory (can be bigger than physical size)
	Flags   MemFlags            // flags determining how the memory can be accessed
	WriteCb func(uint16, uint8) // optional callback, called after the store
}

func (m *Mem) bankIO8() BankIO8 {
	if len(m.Data)&(len(m.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	return &mem{
		buf:  m.Data,
		mask: uint16(len(m.Data) - 1),
		wcb:  m.WriteCb,
		ro:   m.Flags,
	}
}

// mem is the adaptor used for linear memory access.
//
// We use this structure by pointer rather than by value because it is stored
// as BankIO interface within Table, and checking if a concrete pointer type
// is behind the interface is faster than checking a non-pointer type.
type mem struct {
	buf  []byte
	mask uint16
	wcb  func(uint16, uint8)
	ro   MemFlags
}

func (m *mem) Read8(addr uint16, peek bool) uint8 {
	return m.buf[addr&m.mask]
}

func (m *mem) Write8(addr uint16, val uint8) {
	switch m.ro {
	case MemFlagReadWrite:
		m.buf[addr&m.mask] = val
		if m.wcb != nil {
			m.wcb(addr&m.mask, val)
		}
	case MemFlag8ReadOnly:
		log.ModHwIo.ErrorZ("Write8 to readonly memory").
			Hex8("val", val).
			Hex16("addr", addr).
			End()
	case MemFlagNoROLog:
	}
}
