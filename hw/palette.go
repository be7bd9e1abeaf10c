package hw

// nesPalette is the fixed NTSC 2C02 palette, as RGB triplets indexed by the
// 6-bit color written to palette RAM.
var nesPalette = [64][3]uint8{
	{0x66, 0x66, 0x66}, {0x00, 0x2A, 0x88}, {0x14, 0x12, 0xA7}, {0x3B, 0x00, 0xA4},
	{0x5C, 0x00, 0x7E}, {0x6E, 0x00, 0x40}, {0x6C, 0x06, 0x00}, {0x56, 0x1D, 0x00},
	{0x33, 0x35, 0x00}, {0x0B, 0x48, 0x00}, {0x00, 0x52, 0x00}, {0x00, 0x4F, 0x08},
	{0x00, 0x40, 0x4D}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
	{0xAD, 0xAD, 0xAD}, {0x15, 0x5F, 0xD9}, {0x42, 0x40, 0xFF}, {0x75, 0x27, 0xFE},
	{0xA0, 0x1A, 0xCC}, {0xB7, 0x1E, 0x7B}, {0xB5, 0x31, 0x20}, {0x99, 0x4E, 0x00},
	{0x6B, 0x6D, 0x00}, {0x38, 0x87, 0x00}, {0x0C, 0x93, 0x00}, {0x00, 0x8F, 0x32},
	{0x00, 0x7C, 0x8D}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
	{0xFF, 0xFE, 0xFF}, {0x64, 0xB0, 0xFF}, {0x92, 0x90, 0xFF}, {0xC6, 0x76, 0xFF},
	{0xF3, 0x6A, 0xFF}, {0xFE, 0x6E, 0xCC}, {0xFE, 0x81, 0x70}, {0xEA, 0x9E, 0x22},
	{0xBC, 0xBE, 0x00}, {0x88, 0xD8, 0x00}, {0x5C, 0xE4, 0x30}, {0x45, 0xE0, 0x82},
	{0x48, 0xCD, 0xDE}, {0x4F, 0x4F, 0x4F}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
	{0xFF, 0xFE, 0xFF}, {0xC0, 0xDF, 0xFF}, {0xD3, 0xD2, 0xFF}, {0xE8, 0xC8, 0xFF},
	{0xFB, 0xC2, 0xFF}, {0xFE, 0xC4, 0xEA}, {0xFE, 0xCC, 0xC5}, {0xF7, 0xD8, 0xA5},
	{0xE4, 0xE5, 0x94}, {0xCF, 0xEF, 0x96}, {0xBD, 0xF4, 0xAB}, {0xB3, 0xF3, 0xCC},
	{0xB5, 0xEB, 0xF2}, {0xB8, 0xB8, 0xB8}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
}

// PaletteRGB resolves a 6-bit NES color to RGB.
func PaletteRGB(color uint8) (r, g, b uint8) {
	c := nesPalette[color&0x3F]
	return c[0], c[1], c[2]
}

// RenderRGBA converts the framebuffer of NES colors into a packed RGBA
// buffer. dst must hold FrameWidth*FrameHeight*4 bytes.
func (p *PPU) RenderRGBA(dst []uint8) {
	for i, color := range p.fb {
		r, g, b := PaletteRGB(color)
		dst[i*4+0] = r
		dst[i*4+1] = g
		dst[i*4+2] = b
		dst[i*4+3] = 0xFF
	}
}

// ZapperLightSensed reports whether the photodiode pointed at (x, y) sees
// light on the currently displayed frame. The sensor window is approximated
// with a 3x3 probe around the aim point, bright enough if the summed RGB
// luma of any probed pixel crosses a threshold.
func (p *PPU) ZapperLightSensed(x, y int) bool {
	if x < 0 || y < 0 || x >= FrameWidth || y >= FrameHeight {
		return false
	}

	maxLuma := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			sx := min(max(x+dx, 0), FrameWidth-1)
			sy := min(max(y+dy, 0), FrameHeight-1)
			r, g, b := PaletteRGB(p.fb[sy*FrameWidth+sx])
			luma := int(r) + int(g) + int(b)
			if luma > maxLuma {
				maxLuma = luma
			}
		}
	}
	return maxLuma >= 620
}
