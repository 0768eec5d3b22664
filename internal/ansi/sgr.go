package ansi

import "github.com/simon/sshtui/internal/screen"

// sgr applies Select Graphic Rendition parameters to the buffer's current
// style. Unsupported attributes are skipped.
func (p *Interpreter) sgr() {
	style := p.buf.Style()
	if len(p.params) == 0 {
		p.buf.SetStyle(screen.Style{})
		return
	}

	for i := 0; i < len(p.params); i++ {
		n := p.params[i]
		switch {
		case n == 0:
			style = screen.Style{}
		case n == 1:
			style.Bold = true
		case n == 4:
			style.Underline = true
		case n == 22:
			style.Bold = false
		case n == 24:
			style.Underline = false
		case n >= 30 && n <= 37:
			style.Fg = screen.ColorBlack + screen.Color(n-30)
		case n == 38:
			i = p.extendedColor(i, &style.Fg)
		case n == 39:
			style.Fg = screen.ColorDefault
		case n >= 40 && n <= 47:
			style.Bg = screen.ColorBlack + screen.Color(n-40)
		case n == 48:
			i = p.extendedColor(i, &style.Bg)
		case n == 49:
			style.Bg = screen.ColorDefault
		case n >= 90 && n <= 97:
			style.Fg = screen.ColorBrightBlack + screen.Color(n-90)
		case n >= 100 && n <= 107:
			style.Bg = screen.ColorBrightBlack + screen.Color(n-100)
		}
	}
	p.buf.SetStyle(style)
}

// extendedColor consumes a 38/48 sub-sequence starting at params[i] and
// returns the index of its last parameter. Only 5;n with n < 16 changes the
// color; 256-color and truecolor values are skipped.
func (p *Interpreter) extendedColor(i int, dst *screen.Color) int {
	if i+1 >= len(p.params) {
		return i
	}
	switch p.params[i+1] {
	case 5:
		if i+2 >= len(p.params) {
			return len(p.params) - 1
		}
		if c, ok := screen.PaletteColor(p.params[i+2]); ok {
			*dst = c
		}
		return i + 2
	case 2:
		return min(i+4, len(p.params)-1)
	}
	return i + 1
}
