// Package ppu implements the DMG picture processing unit: VRAM/OAM storage,
// the LCDC/STAT/LY timing state machine, and per-scanline background,
// window, and sprite compositing into an RGBA framebuffer.
package ppu

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT).
type InterruptRequester func(bit int)

const (
	ScreenW = 160
	ScreenH = 144
)

// LineRegs is a snapshot of the registers that affect rendering, captured
// at the start of Drawing mode (dot 80) for the given scanline. Composition
// reads from this snapshot rather than the live registers so a mid-line
// register write cannot retroactively change a line already rendered.
type LineRegs struct {
	LCDC, SCY, SCX, BGP, OBP0, OBP1, WY, WX byte
	WinLine                                 byte // internal window-line counter value for this line, if the window rendered
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, timing, and scanline compositing.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	winLineCounter byte // internal "window was drawn N times this frame" counter
	lineRegs       [ScreenH]LineRegs

	fb [ScreenW * ScreenH * 4]byte // RGBA8888 framebuffer, written one scanline at a time

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			// Turning LCD off resets LY/mode
			p.ly = 0
			p.dot = 0
			p.winLineCounter = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			// Turning LCD on: start at LY=0, mode 2 (OAM)
			p.ly = 0
			p.dot = 0
			p.winLineCounter = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++

		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		prevMode := p.stat & 0x03
		p.setMode(mode)

		// Entering Drawing: latch the registers this line will render with.
		if prevMode != 3 && mode == 3 {
			p.latchLineRegs()
		}
		// Leaving Drawing into HBlank: composite the scanline now that all
		// register writes affecting it have been latched.
		if prevMode == 3 && mode == 0 {
			p.renderScanline(p.ly)
		}

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				if p.req != nil {
					p.req(0)
				} // VBlank IF
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				} // STAT VBlank
			} else if p.ly > 153 {
				p.ly = 0
				p.winLineCounter = 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

// latchLineRegs snapshots the registers for the current ly and computes
// whether the window renders on this line, advancing the internal
// window-line counter exactly like hardware: the counter only advances on
// lines where the window is actually visible and drawn.
func (p *PPU) latchLineRegs() {
	if p.ly >= ScreenH {
		return
	}
	lr := LineRegs{
		LCDC: p.lcdc, SCY: p.scy, SCX: p.scx,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
	}
	windowEnabled := lr.LCDC&0x20 != 0
	windowVisible := windowEnabled && lr.WY <= p.ly && lr.WX <= 166
	if windowVisible {
		lr.WinLine = p.winLineCounter
		p.winLineCounter++
	}
	p.lineRegs[p.ly] = lr
}

// LineRegs returns the latched register snapshot for scanline ly.
func (p *PPU) LineRegs(ly int) LineRegs {
	if ly < 0 || ly >= ScreenH {
		return LineRegs{}
	}
	return p.lineRegs[ly]
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// Framebuffer returns the RGBA8888 pixel buffer for the whole 160x144 screen.
func (p *PPU) Framebuffer() []byte { return p.fb[:] }

// Read gives the internal renderer raw access to VRAM/OAM, unlike CPURead,
// which gates access by PPU mode; the compositor always reads the actual
// pixel data it needs regardless of what mode the CPU currently sees.
func (p *PPU) Read(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return p.oam[addr-0xFE00]
	}
	return 0xFF
}

// WriteOAMRaw writes directly into OAM bypassing the CPU's mode gating in
// CPUWrite. OAM DMA copies 160 bytes over 160 T-cycles while the PPU keeps
// advancing concurrently, so gating this path by mode would silently drop
// whatever portion of the transfer lands during OAMScan/Drawing.
func (p *PPU) WriteOAMRaw(addr uint16, value byte) {
	if addr >= 0xFE00 && addr <= 0xFE9F {
		p.oam[addr-0xFE00] = value
	}
}

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
