package mappers

var NROM = MapperDesc{
	Name: "NROM",
	Load: loadNROM,
}

// nrom has no banking at all: 16 KiB PRG is mirrored into $C000-$FFFF,
// 32 KiB fills the window; CHR is a single fixed 8 KiB bank.
type nrom struct {
	*base
}

func loadNROM(b *base) (Board, error) {
	m := &nrom{base: b}

	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage16KB(1, -1)
	b.selectCHRPage8KB(0)

	b.install(m, nil, nil)
	return m, nil
}
