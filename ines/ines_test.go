package ines

import (
	"bytes"
	"strings"
	"testing"
)

// buildRom assembles a rom image in memory: a 16-byte header followed by the
// declared PRG and CHR payloads.
func buildRom(tb testing.TB, hdr [16]byte, prg, chr []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	buf.Write(hdr[:])
	buf.Write(prg)
	buf.Write(chr)
	return buf.Bytes()
}

func ines1Header(prgBanks, chrBanks uint8, flags6, flags7 uint8) [16]byte {
	var hdr [16]byte
	copy(hdr[:], Magic)
	hdr[4] = prgBanks
	hdr[5] = chrBanks
	hdr[6] = flags6
	hdr[7] = flags7
	return hdr
}

func TestReadRom(t *testing.T) {
	prg := make([]byte, 16384)
	chr := make([]byte, 8192)
	prg[0] = 0xAA
	chr[0] = 0xBB

	rom := new(Rom)
	_, err := rom.ReadFrom(bytes.NewReader(buildRom(t, ines1Header(1, 1, 0x01, 0x00), prg, chr)))
	if err != nil {
		t.Fatal(err)
	}

	if len(rom.PRGROM) != 16384 || rom.PRGROM[0] != 0xAA {
		t.Errorf("bad PRG: len=%d first=%02x", len(rom.PRGROM), rom.PRGROM[0])
	}
	if len(rom.CHRROM) != 8192 || rom.CHRROM[0] != 0xBB {
		t.Errorf("bad CHR: len=%d first=%02x", len(rom.CHRROM), rom.CHRROM[0])
	}
	if rom.Mapper() != 0 {
		t.Errorf("mapper = %d, want 0", rom.Mapper())
	}
	if rom.Mirroring() != VertMirroring {
		t.Errorf("mirroring = %s, want vertical", rom.Mirroring())
	}
	if rom.IsNES20() {
		t.Error("iNES 1.0 rom detected as NES 2.0")
	}
}

func TestBadMagic(t *testing.T) {
	hdr := ines1Header(1, 0, 0, 0)
	hdr[0] = 'X'
	rom := new(Rom)
	_, err := rom.ReadFrom(bytes.NewReader(buildRom(t, hdr, make([]byte, 16384), nil)))
	if err == nil || !strings.Contains(err.Error(), "magic") {
		t.Fatalf("want magic error, got %v", err)
	}
}

func TestTruncatedPRG(t *testing.T) {
	rom := new(Rom)
	_, err := rom.ReadFrom(bytes.NewReader(buildRom(t, ines1Header(2, 0, 0, 0), make([]byte, 16384), nil)))
	if err == nil || !strings.Contains(err.Error(), "PRG") {
		t.Fatalf("want PRG error, got %v", err)
	}
}

func TestTrainer(t *testing.T) {
	trainer := make([]byte, 512)
	trainer[0] = 0x77
	img := buildRom(t, ines1Header(1, 0, 0x04, 0), append(trainer, make([]byte, 16384)...), nil)

	rom := new(Rom)
	if _, err := rom.ReadFrom(bytes.NewReader(img)); err != nil {
		t.Fatal(err)
	}
	if !rom.HasTrainer() || len(rom.Trainer) != 512 || rom.Trainer[0] != 0x77 {
		t.Errorf("trainer not loaded: %v len=%d", rom.HasTrainer(), len(rom.Trainer))
	}
}

func TestMapperNumber(t *testing.T) {
	tests := []struct {
		flags6, flags7 uint8
		byte8          uint8
		want           uint16
	}{
		{0x40, 0x00, 0, 4},
		{0x10, 0x40, 0, 65},
		{0x00, 0x08, 0x01, 256}, // NES 2.0, 12-bit id
	}
	for _, tt := range tests {
		hdr := ines1Header(1, 0, tt.flags6, tt.flags7)
		hdr[8] = tt.byte8
		rom := new(Rom)
		if _, err := rom.ReadFrom(bytes.NewReader(buildRom(t, hdr, make([]byte, 16384), nil))); err != nil {
			t.Fatal(err)
		}
		if got := rom.Mapper(); got != tt.want {
			t.Errorf("flags6=%02x flags7=%02x byte8=%02x: mapper = %d, want %d",
				tt.flags6, tt.flags7, tt.byte8, got, tt.want)
		}
	}
}

func TestMapperTooBig(t *testing.T) {
	// Mapper 560 needs NES 2.0 encoding: 560 = 0x230.
	hdr := ines1Header(1, 0, 0x00, 0x38)
	hdr[8] = 0x02
	rom := new(Rom)
	_, err := rom.ReadFrom(bytes.NewReader(buildRom(t, hdr, make([]byte, 16384), nil)))
	if err == nil || !strings.Contains(err.Error(), "mapper") {
		t.Fatalf("want mapper rejection, got %v", err)
	}
}

func TestNES20Sizes(t *testing.T) {
	hdr := ines1Header(1, 1, 0x02, 0x08)
	hdr[10] = 0x07 // 64 << 7 = 8 KiB PRG-RAM
	hdr[11] = 0x00
	rom := new(Rom)
	img := buildRom(t, hdr, make([]byte, 16384), make([]byte, 8192))
	if _, err := rom.ReadFrom(bytes.NewReader(img)); err != nil {
		t.Fatal(err)
	}
	if !rom.IsNES20() {
		t.Fatal("not detected as NES 2.0")
	}
	if got := rom.PRGRAMSize(); got != 8192 {
		t.Errorf("PRGRAMSize = %d, want 8192", got)
	}
	if !rom.HasBattery() {
		t.Error("battery flag not set")
	}
}

func TestCHRRAMDefault(t *testing.T) {
	rom := new(Rom)
	img := buildRom(t, ines1Header(1, 0, 0, 0), make([]byte, 16384), nil)
	if _, err := rom.ReadFrom(bytes.NewReader(img)); err != nil {
		t.Fatal(err)
	}
	if got := rom.CHRRAMSize(); got != 8192 {
		t.Errorf("CHRRAMSize = %d, want 8192", got)
	}
}
