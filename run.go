package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"

	"famicle/emu"
	"famicle/ines"
)

// ntscFramePeriod is the duration of one NTSC frame (~60.0988 Hz).
const ntscFramePeriod = 16639267 * time.Nanosecond

func (r *Run) Run() error {
	rom, err := ines.Open(r.RomPath)
	if err != nil {
		return fmt.Errorf("failed to open rom: %w", err)
	}

	nes, err := emu.PowerUp(rom)
	if err != nil {
		return fmt.Errorf("error during power up: %w", err)
	}

	if r.Trace != nil {
		defer r.Trace.Close()
		nes.CPU.SetTraceOutput(r.Trace)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var ticker *time.Ticker
		if r.Realtime {
			ticker = time.NewTicker(ntscFramePeriod)
			defer ticker.Stop()
		}

		for frames := 0; r.Frames == 0 || frames < r.Frames; frames++ {
			// Frames go to the video/audio collaborators; the headless
			// runner only paces them.
			frame := nes.StepFrame()

			if nes.CPU.IsHalted() {
				return fmt.Errorf("CPU halted at frame %d", frame.Index)
			}

			if ticker != nil {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return nil
				}
			} else if ctx.Err() != nil {
				return nil
			}
		}
		return nil
	})

	return g.Wait()
}

func (ri *RomInfos) Run() error {
	rom, err := ines.Open(ri.RomPath)
	if err != nil {
		return err
	}

	if !ri.JSON {
		rom.PrintInfos(os.Stdout)
		return nil
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("path", func(e *jx.Encoder) { e.Str(ri.RomPath) })
		e.Field("nes20", func(e *jx.Encoder) { e.Bool(rom.IsNES20()) })
		e.Field("mapper", func(e *jx.Encoder) { e.Int(int(rom.Mapper())) })
		e.Field("submapper", func(e *jx.Encoder) { e.Int(int(rom.SubMapper())) })
		e.Field("prg_rom", func(e *jx.Encoder) { e.Int(len(rom.PRGROM)) })
		e.Field("chr_rom", func(e *jx.Encoder) { e.Int(len(rom.CHRROM)) })
		e.Field("chr_ram", func(e *jx.Encoder) { e.Int(rom.CHRRAMSize()) })
		e.Field("prg_ram", func(e *jx.Encoder) { e.Int(rom.PRGRAMSize()) })
		e.Field("mirroring", func(e *jx.Encoder) { e.Str(rom.Mirroring().String()) })
		e.Field("battery", func(e *jx.Encoder) { e.Bool(rom.HasBattery()) })
		e.Field("trainer", func(e *jx.Encoder) { e.Bool(rom.HasTrainer()) })
	})

	fmt.Println(e.String())
	return nil
}
