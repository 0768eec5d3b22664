package screen

// Color is one of the 16 ANSI palette entries, or ColorDefault for the
// terminal's own foreground/background.
type Color uint8

const (
	ColorDefault Color = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightBlack
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
)

var colorNames = [...]string{
	"default",
	"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
	"bright-black", "bright-red", "bright-green", "bright-yellow",
	"bright-blue", "bright-magenta", "bright-cyan", "bright-white",
}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "invalid"
}

// Index returns the ANSI palette index (0-15) and false for ColorDefault.
func (c Color) Index() (int, bool) {
	if c == ColorDefault || c > ColorBrightWhite {
		return 0, false
	}
	return int(c) - 1, true
}

// PaletteColor maps a palette index 0-15 onto a Color.
func PaletteColor(idx int) (Color, bool) {
	if idx < 0 || idx > 15 {
		return ColorDefault, false
	}
	return Color(idx + 1), true
}

// Style is the set of attributes applied to a printed character.
// The zero value means terminal defaults.
type Style struct {
	Fg        Color
	Bg        Color
	Bold      bool
	Underline bool
}

// IsZero reports whether s carries no attributes.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Cell is a single grid position.
type Cell struct {
	Ch    rune
	Style Style
}

// Blank is the cell every cleared or newly allocated position holds.
var Blank = Cell{Ch: ' '}

// wideTail fills the column to the right of a double-width rune.
const wideTail rune = -1

// IsWideTail reports whether c is the second column of a double-width rune.
// Renderers skip it; the rune before it already covers the column.
func (c Cell) IsWideTail() bool {
	return c.Ch == wideTail
}

// Cursor is a zero-based grid position.
type Cursor struct {
	Row int
	Col int
}
