package hw

import (
	"fmt"
	"io"
)

// cpuState is the per-instruction machine state captured by the tracer.
type cpuState struct {
	A, X, Y uint8
	SP      uint8
	P       P
	PC      uint16
	Clock   int64

	PPUCycle int
	Scanline int
}

// tracer writes one line per executed instruction, in a format close to the
// usual nestest logs so traces diff cleanly against other emulators.
type tracer struct {
	w io.Writer
	c *CPU
}

func (t *tracer) write(s cpuState) {
	fmt.Fprintf(t.w, "%04X  A:%02X X:%02X Y:%02X P:%02X SP:%02X PPU:%3d,%3d CYC:%d\n",
		s.PC, s.A, s.X, s.Y, uint8(s.P), s.SP, s.Scanline, s.PPUCycle, s.Clock)
}
