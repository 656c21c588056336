package ppu

// Sprite is the decoded form of one OAM entry, used by the sprite scan and
// ComposeSpriteLine.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

// shade maps a 2-bit DMG color index (0=lightest..3=darkest) to an RGB
// triple. The four-shade green-grey palette matches the original hardware's
// LCD rather than any particular host color scheme.
var shade = [4][3]byte{
	{0xE0, 0xF8, 0xD0},
	{0x88, 0xC0, 0x70},
	{0x34, 0x68, 0x56},
	{0x08, 0x18, 0x20},
}

// applyPalette maps a 2-bit color index through a BGP/OBP palette register
// (each 2-bit group selects a shade) to a shade index.
func applyPalette(ci, palette byte) byte {
	return (palette >> (ci * 2)) & 0x03
}

// renderScanline composites background, window, and sprites for line ly
// into the framebuffer using the registers latched at Drawing-mode entry.
func (p *PPU) renderScanline(ly byte) {
	if int(ly) >= ScreenH {
		return
	}
	lr := p.lineRegs[ly]

	var bgci [ScreenW]byte
	if lr.LCDC&0x01 != 0 {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(p, mapBase, tileData8000, lr.SCX, lr.SCY, ly)
	}

	if lr.LCDC&0x20 != 0 && lr.WY <= ly && lr.WX <= 166 {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x40 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		wxStart := int(lr.WX) - 7
		win := RenderWindowScanlineUsingFetcher(p, mapBase, tileData8000, wxStart, lr.WinLine)
		start := wxStart
		if start < 0 {
			start = 0
		}
		for x := start; x < ScreenW; x++ {
			bgci[x] = win[x]
		}
	}

	var spriteci [ScreenW]byte
	if lr.LCDC&0x02 != 0 {
		use8x16 := lr.LCDC&0x04 != 0
		sprites := p.scanSprites(ly, use8x16)
		spriteci = ComposeSpriteLine(p, sprites, ly, bgci, use8x16)
	}

	rowOff := int(ly) * ScreenW * 4
	for x := 0; x < ScreenW; x++ {
		ci := applyPalette(bgci[x], lr.BGP)
		if v := spriteci[x]; v != 0 {
			v--
			obp := lr.OBP0
			if v&0x04 != 0 {
				obp = lr.OBP1
			}
			ci = applyPalette(v&0x03, obp)
		}
		rgb := shade[ci&0x03]
		off := rowOff + x*4
		p.fb[off+0] = rgb[0]
		p.fb[off+1] = rgb[1]
		p.fb[off+2] = rgb[2]
		p.fb[off+3] = 0xFF
	}
}

// scanSprites selects up to 10 sprites visible on scanline ly, in OAM order.
func (p *PPU) scanSprites(ly byte, use8x16 bool) []Sprite {
	height := 8
	if use8x16 {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		y := int(p.oam[base+0]) - 16
		x := int(p.oam[base+1]) - 8
		if int(ly) < y || int(ly) >= y+height {
			continue
		}
		out = append(out, Sprite{
			X: x, Y: y,
			Tile:     p.oam[base+2],
			Attr:     p.oam[base+3],
			OAMIndex: i,
		})
	}
	return out
}

// ComposeSpriteLine renders sprites onto a single scanline and returns, per
// pixel, 0 for "no sprite pixel here" or 1 + the winning sprite's raw color
// index (1-3) + 4 if it uses OBP1; no palette is applied here. bgci is the
// background/window color index line already computed for this scanline,
// used for OBJ-behind-BG priority.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [ScreenW]byte, use8x16 bool) [ScreenW]byte {
	var out [ScreenW]byte
	var winnerX [ScreenW]int
	var winnerOAM [ScreenW]int
	for x := range winnerX {
		winnerX[x] = 1 << 30
		winnerOAM[x] = 1 << 30
	}

	height := 8
	if use8x16 {
		height = 16
	}

	for _, s := range sprites {
		row := int(ly) - s.Y
		yFlip := s.Attr&0x40 != 0
		if yFlip {
			row = height - 1 - row
		}
		tile := s.Tile
		if use8x16 {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		base := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)

		xFlip := s.Attr&0x20 != 0
		palette := byte(0) // OBP0
		if s.Attr&0x10 != 0 {
			palette = 1 // OBP1
		}
		behindBG := s.Attr&0x80 != 0

		for col := 0; col < 8; col++ {
			px := s.X + col
			if px < 0 || px >= ScreenW {
				continue
			}
			bit := byte(col)
			if !xFlip {
				bit = 7 - byte(col)
			}
			ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			if ci == 0 {
				continue // transparent
			}
			if behindBG && bgci[px] != 0 {
				continue // hidden behind non-zero BG/window pixel
			}
			// Priority: lower X wins; ties broken by lower OAM index.
			if s.X < winnerX[px] || (s.X == winnerX[px] && s.OAMIndex < winnerOAM[px]) {
				winnerX[px] = s.X
				winnerOAM[px] = s.OAMIndex
				// Pack: bits 0-1 = color index (1-3), bit 2 = OBP1 selected.
				// A nonzero value always means "an opaque sprite pixel won
				// here"; renderScanline unpacks ci/palette before mapping
				// through the live OBP0/OBP1 registers.
				out[px] = 1 + ci + palette<<2
			}
		}
	}
	return out
}
