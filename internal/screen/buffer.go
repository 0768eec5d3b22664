// Package screen holds the styled character grid a terminal panel renders.
//
// A Buffer is not safe for concurrent use. It is owned by the host loop and
// mutated only through the escape interpreter; renderers read it through
// Snapshot.
package screen

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Region selects the span affected by Clear and ClearLine.
type Region int

const (
	// ToEnd covers the cursor position through the end.
	ToEnd Region = iota
	// ToCursor covers the start through the cursor position.
	ToCursor
	// All covers everything.
	All
)

const tabWidth = 8

// Buffer is a fixed-size grid of cells with a cursor and a current style.
// There is no scrollback: rows that scroll off the top are gone.
type Buffer struct {
	width, height int
	rows          [][]Cell
	cursor        Cursor
	saved         Cursor
	style         Style
}

// NewBuffer allocates a width x height grid filled with blank cells.
func NewBuffer(width, height int) *Buffer {
	b := &Buffer{}
	b.Resize(width, height)
	return b
}

func blankRow(width int) []Cell {
	row := make([]Cell, width)
	for i := range row {
		row[i] = Blank
	}
	return row
}

// Resize reallocates the grid, keeping the overlapping top-left rectangle,
// and clamps the cursor into the new bounds. Negative sizes are treated as 0.
func (b *Buffer) Resize(width, height int) {
	width = max(width, 0)
	height = max(height, 0)

	rows := make([][]Cell, height)
	for y := range rows {
		rows[y] = blankRow(width)
		if y < len(b.rows) {
			copy(rows[y], b.rows[y])
		}
	}

	b.rows = rows
	b.width = width
	b.height = height
	b.cursor = b.clamp(b.cursor)
	b.saved = b.clamp(b.saved)
}

// Size returns the grid dimensions.
func (b *Buffer) Size() (width, height int) {
	return b.width, b.height
}

// Cursor returns the current cursor position.
func (b *Buffer) Cursor() Cursor {
	return b.cursor
}

// Style returns the style applied to the next printed character.
func (b *Buffer) Style() Style {
	return b.style
}

// SetStyle replaces the current style.
func (b *Buffer) SetStyle(s Style) {
	b.style = s
}

// Cell returns the cell at row, col, or Blank when out of range.
func (b *Buffer) Cell(row, col int) Cell {
	if row < 0 || row >= b.height || col < 0 || col >= b.width {
		return Blank
	}
	return b.rows[row][col]
}

func (b *Buffer) clamp(c Cursor) Cursor {
	c.Row = min(max(c.Row, 0), max(b.height-1, 0))
	c.Col = min(max(c.Col, 0), max(b.width-1, 0))
	return c
}

// Put writes ch with style at the cursor and advances by its display width.
// A double-width rune takes two cells, the second holding a wide tail; one
// that does not fit in the last column wraps first. Writing into the last
// column wraps to the start of the next row, scrolling when that row would
// fall off the bottom. Zero-width runes are dropped.
func (b *Buffer) Put(ch rune, style Style) {
	if b.width == 0 || b.height == 0 {
		return
	}
	w := runewidth.RuneWidth(ch)
	if w == 0 {
		return
	}
	wide := w == 2 && b.width >= 2
	if wide && b.cursor.Col == b.width-1 {
		b.cursor.Col = 0
		b.LineFeed()
	}

	row, col := b.cursor.Row, b.cursor.Col
	b.splitWide(row, col)
	b.rows[row][col] = Cell{Ch: ch, Style: style}
	b.cursor.Col++
	if wide {
		b.splitWide(row, col+1)
		b.rows[row][col+1] = Cell{Ch: wideTail, Style: style}
		b.cursor.Col++
	}

	if b.cursor.Col >= b.width {
		b.cursor.Col = 0
		b.LineFeed()
	}
}

// splitWide blanks the other half of a double-width rune that is about to
// lose the cell at row, col.
func (b *Buffer) splitWide(row, col int) {
	cells := b.rows[row]
	switch {
	case cells[col].IsWideTail():
		if col > 0 {
			cells[col-1] = Blank
		}
	case col+1 < len(cells) && cells[col+1].IsWideTail():
		cells[col+1] = Blank
	}
}

// LineFeed moves the cursor down one row, scrolling at the bottom.
// The column is left alone.
func (b *Buffer) LineFeed() {
	if b.height == 0 {
		return
	}
	if b.cursor.Row+1 >= b.height {
		b.ScrollUp()
		b.cursor.Row = b.height - 1
		return
	}
	b.cursor.Row++
}

// ReverseLineFeed moves the cursor up one row; at row 0 it does nothing.
func (b *Buffer) ReverseLineFeed() {
	if b.cursor.Row > 0 {
		b.cursor.Row--
	}
}

// CarriageReturn moves the cursor to column 0.
func (b *Buffer) CarriageReturn() {
	b.cursor.Col = 0
}

// Tab advances to the next multiple-of-8 column, clamped to the last column.
func (b *Buffer) Tab() {
	next := (b.cursor.Col/tabWidth + 1) * tabWidth
	b.cursor.Col = min(next, max(b.width-1, 0))
}

// Backspace moves the cursor back one column without erasing.
func (b *Buffer) Backspace() {
	if b.cursor.Col > 0 {
		b.cursor.Col--
	}
}

// ScrollUp drops row 0, shifts every row up and appends a blank row.
func (b *Buffer) ScrollUp() {
	if b.height == 0 {
		return
	}
	// Reuse the dropped row's storage for the new bottom row.
	top := b.rows[0]
	copy(b.rows, b.rows[1:])
	for i := range top {
		top[i] = Blank
	}
	b.rows[b.height-1] = top
}

// MoveCursor moves the cursor relative to its position, clamping at the edges.
func (b *Buffer) MoveCursor(dRow, dCol int) {
	b.cursor = b.clamp(Cursor{Row: b.cursor.Row + dRow, Col: b.cursor.Col + dCol})
}

// SetCursor places the cursor at an absolute zero-based position, clamped.
func (b *Buffer) SetCursor(row, col int) {
	b.cursor = b.clamp(Cursor{Row: row, Col: col})
}

// SaveCursor remembers the cursor position for RestoreCursor.
func (b *Buffer) SaveCursor() {
	b.saved = b.cursor
}

// RestoreCursor returns to the last saved position.
func (b *Buffer) RestoreCursor() {
	b.cursor = b.clamp(b.saved)
}

func (b *Buffer) blank(row, from, to int) {
	if row < 0 || row >= b.height {
		return
	}
	from = max(from, 0)
	to = min(to, b.width)
	for x := from; x < to; x++ {
		b.rows[row][x] = Blank
	}
}

// Clear resets cells in the display region to Blank. The cursor does not move.
func (b *Buffer) Clear(r Region) {
	if b.width == 0 || b.height == 0 {
		return
	}
	cur := b.cursor
	switch r {
	case ToEnd:
		b.blank(cur.Row, cur.Col, b.width)
		for y := cur.Row + 1; y < b.height; y++ {
			b.blank(y, 0, b.width)
		}
	case ToCursor:
		for y := 0; y < cur.Row; y++ {
			b.blank(y, 0, b.width)
		}
		b.blank(cur.Row, 0, cur.Col+1)
	case All:
		for y := 0; y < b.height; y++ {
			b.blank(y, 0, b.width)
		}
	}
}

// ClearLine is Clear scoped to the cursor's row.
func (b *Buffer) ClearLine(r Region) {
	if b.width == 0 || b.height == 0 {
		return
	}
	cur := b.cursor
	switch r {
	case ToEnd:
		b.blank(cur.Row, cur.Col, b.width)
	case ToCursor:
		b.blank(cur.Row, 0, cur.Col+1)
	case All:
		b.blank(cur.Row, 0, b.width)
	}
}

// Reset clears the grid, homes the cursor and drops the current style.
func (b *Buffer) Reset() {
	b.Clear(All)
	b.cursor = Cursor{}
	b.saved = Cursor{}
	b.style = Style{}
}

// Snapshot is a read-only copy of the grid and cursor.
type Snapshot struct {
	Rows   [][]Cell
	Cursor Cursor
}

// Snapshot copies the current grid so the caller can render it without
// holding on to buffer storage.
func (b *Buffer) Snapshot() Snapshot {
	rows := make([][]Cell, b.height)
	for y := range rows {
		rows[y] = make([]Cell, b.width)
		copy(rows[y], b.rows[y])
	}
	return Snapshot{Rows: rows, Cursor: b.cursor}
}

// Lines returns each row as plain text with trailing blanks removed.
func (s Snapshot) Lines() []string {
	lines := make([]string, len(s.Rows))
	var sb strings.Builder
	for y, row := range s.Rows {
		sb.Reset()
		for _, c := range row {
			if c.IsWideTail() {
				continue
			}
			sb.WriteRune(c.Ch)
		}
		lines[y] = strings.TrimRight(sb.String(), " ")
	}
	return lines
}

// String joins Lines with newlines and drops trailing empty rows.
func (s Snapshot) String() string {
	lines := s.Lines()
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
