package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/simon/sshtui/internal/screen"
)

// panelBorder is the number of cells the border takes from each dimension.
const panelBorder = 2

// innerSize returns the grid size that fits inside a bordered panel of the
// given outer size.
func innerSize(outerW, outerH int) (int, int) {
	return max(outerW-panelBorder, 0), max(outerH-panelBorder, 0)
}

type styleCache map[screen.Style]lipgloss.Style

func (c styleCache) get(s screen.Style) lipgloss.Style {
	if st, ok := c[s]; ok {
		return st
	}
	st := lipgloss.NewStyle()
	if idx, ok := s.Fg.Index(); ok {
		st = st.Foreground(lipgloss.Color(strconv.Itoa(idx)))
	}
	if idx, ok := s.Bg.Index(); ok {
		st = st.Background(lipgloss.Color(strconv.Itoa(idx)))
	}
	if s.Bold {
		st = st.Bold(true)
	}
	if s.Underline {
		st = st.Underline(true)
	}
	c[s] = st
	return st
}

// renderScreen turns a snapshot into styled lines. Runs of cells sharing a
// style are rendered together. When showCursor is set the cursor cell is
// drawn reversed.
func renderScreen(snap screen.Snapshot, showCursor bool) []string {
	cache := styleCache{}
	cursorStyle := lipgloss.NewStyle().Reverse(true)
	lines := make([]string, len(snap.Rows))

	var sb, run strings.Builder
	for y, row := range snap.Rows {
		sb.Reset()
		run.Reset()
		var runStyle screen.Style
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runStyle.IsZero() {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(cache.get(runStyle).Render(run.String()))
			}
			run.Reset()
		}

		for x, c := range row {
			ch := c.Ch
			switch {
			case c.IsWideTail():
				// covered by the rune before it
				if x > 0 && runewidth.RuneWidth(row[x-1].Ch) == 2 {
					continue
				}
				ch = ' '
			case runewidth.RuneWidth(ch) == 2:
				if x+1 >= len(row) || !row[x+1].IsWideTail() {
					ch = ' '
				}
			}

			if showCursor && y == snap.Cursor.Row && x == snap.Cursor.Col {
				flush()
				sb.WriteString(cursorStyle.Render(string(ch)))
				continue
			}
			if c.Style != runStyle {
				flush()
				runStyle = c.Style
			}
			run.WriteRune(ch)
		}
		flush()
		lines[y] = sb.String()
	}
	return lines
}

// renderPanel draws the screen inside a rounded border of the given outer
// size. An empty grid renders placeholder text instead.
func renderPanel(lines []string, outerW, outerH int, focused bool, placeholder string) string {
	w, h := innerSize(outerW, outerH)
	border := panelBorderStyle
	if focused {
		border = panelFocusedBorderStyle
	}
	border = border.Width(w).Height(h).MaxWidth(outerW).MaxHeight(outerH)

	if len(lines) == 0 {
		return border.Render(placeholderStyle.Width(w).Render(placeholder))
	}
	if len(lines) > h {
		lines = lines[:h]
	}
	return border.Render(strings.Join(lines, "\n"))
}
