package ppu

import "testing"

// TestRenderScanlineWritesFramebuffer drives the PPU through a full line and
// checks that a distinguishable BG tile produces the expected shade in the
// RGBA framebuffer.
func TestRenderScanlineWritesFramebuffer(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0xE4) // BGP: identity mapping (00,01,10,11 -> 0,1,2,3)
	// Tile 0 at 0x8000, row 0: every pixel color index 3 (both bitplanes set)
	p.CPUWrite(0x8000, 0xFF) // lo
	p.CPUWrite(0x8001, 0xFF) // hi -> every pixel color index 3
	// Tilemap at 0x9800 all zero already points at tile 0.
	p.CPUWrite(0xFF40, 0x91) // LCD on, BG on, tile data select 0x8000, map 0x9800

	p.Tick(456) // run one full scanline, triggering the Drawing->HBlank composite

	fb := p.Framebuffer()
	want := shade[3]
	if fb[0] != want[0] || fb[1] != want[1] || fb[2] != want[2] || fb[3] != 0xFF {
		t.Fatalf("pixel(0,0) = %v, want RGBA %v,255", fb[0:4], want)
	}
}

func TestRenderScanlineSpriteOverBG(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0xE4) // BGP identity
	p.CPUWrite(0xFF48, 0xE4) // OBP0 identity
	// BG tile 0 all color index 1.
	p.CPUWrite(0x8000, 0xFF)
	p.CPUWrite(0x8001, 0x00)
	// Sprite tile 1 at 0x8010: leftmost pixel color index 2.
	p.CPUWrite(0x8010, 0x00)
	p.CPUWrite(0x8011, 0x80)
	// OAM entry 0: Y=16 (screen Y=0), X=8 (screen X=0), tile=1, attr=0.
	p.CPUWrite(0xFE00, 16)
	p.CPUWrite(0xFE01, 8)
	p.CPUWrite(0xFE02, 1)
	p.CPUWrite(0xFE03, 0)
	p.CPUWrite(0xFF40, 0x93) // LCD on, BG on, OBJ on, tile data 0x8000

	p.Tick(456)

	fb := p.Framebuffer()
	want := shade[2] // sprite color index 2 through identity OBP0
	if fb[0] != want[0] || fb[1] != want[1] || fb[2] != want[2] {
		t.Fatalf("pixel(0,0) = %v, want sprite shade %v", fb[0:3], want)
	}
}
