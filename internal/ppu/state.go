package ppu

// State is the JSON-serializable snapshot of the PPU.
type State struct {
	VRAM           [0x2000]byte
	OAM            [0xA0]byte
	LCDC, STAT     byte
	SCY, SCX       byte
	LY, LYC        byte
	BGP, OBP0, OBP1 byte
	WY, WX         byte
	Dot            int
	WinLineCounter byte
}

func (p *PPU) SaveState() State {
	return State{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx,
		LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		Dot: p.dot, WinLineCounter: p.winLineCounter,
	}
}

func (p *PPU) LoadState(s State) {
	p.vram = s.VRAM
	p.oam = s.OAM
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx = s.SCY, s.SCX
	p.ly, p.lyc = s.LY, s.LYC
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.dot, p.winLineCounter = s.Dot, s.WinLineCounter
}
