package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/simon/sshtui/internal/ansi"
	"github.com/simon/sshtui/internal/screen"
)

func TestInnerSize(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{80, 24, 78, 22},
		{2, 2, 0, 0},
		{1, 0, 0, 0},
	}
	for _, tt := range tests {
		w, h := innerSize(tt.w, tt.h)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("innerSize(%d,%d) = %d,%d, want %d,%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestRenderScreenText(t *testing.T) {
	buf := screen.NewBuffer(10, 3)
	ansi.New(buf).FeedString("hi\r\n\x1b[31mred\x1b[0m ok")

	lines := renderScreen(buf.Snapshot(), false)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	want := []string{"hi", "red ok", ""}
	for i, w := range want {
		got := strings.TrimRight(stripped(lines[i]), " ")
		if got != w {
			t.Errorf("line %d = %q, want %q", i, got, w)
		}
		if lipgloss.Width(lines[i]) != 10 {
			t.Errorf("line %d width = %d, want 10", i, lipgloss.Width(lines[i]))
		}
	}
}

func TestRenderScreenWideRune(t *testing.T) {
	buf := screen.NewBuffer(6, 2)
	p := ansi.New(buf)
	p.FeedString("世界x")
	// CHA counts display columns, so x lands after both wide runes.
	p.FeedString("\r\n世\x1b[4Gy")

	lines := renderScreen(buf.Snapshot(), false)
	want := []string{"世界x", "世 y"}
	for i, w := range want {
		if got := lipgloss.Width(lines[i]); got != 6 {
			t.Errorf("line %d width = %d, want 6", i, got)
		}
		if got := strings.TrimRight(stripped(lines[i]), " "); got != w {
			t.Errorf("line %d = %q, want %q", i, got, w)
		}
	}
}

func TestRenderScreenBrokenWideRune(t *testing.T) {
	buf := screen.NewBuffer(4, 1)
	p := ansi.New(buf)
	p.FeedString("世")
	// overwrite the right half only
	p.FeedString("\x1b[2Gz")

	lines := renderScreen(buf.Snapshot(), false)
	if got := lipgloss.Width(lines[0]); got != 4 {
		t.Errorf("width = %d, want 4", got)
	}
	if got := strings.TrimRight(stripped(lines[0]), " "); got != " z" {
		t.Errorf("line = %q, want %q", got, " z")
	}
}

func TestRenderPanelPlaceholder(t *testing.T) {
	out := renderPanel(nil, 40, 10, false, "nothing here")
	if !strings.Contains(stripped(out), "nothing here") {
		t.Errorf("placeholder missing from %q", out)
	}
	if got := lipgloss.Height(out); got != 10 {
		t.Errorf("height = %d, want 10", got)
	}
}

func TestRenderPanelTruncatesRows(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e"}
	out := renderPanel(lines, 10, 5, true, "")
	if got := lipgloss.Height(out); got != 5 {
		t.Errorf("height = %d, want 5", got)
	}
	if strings.Contains(out, "d") {
		t.Errorf("row beyond inner height rendered: %q", out)
	}
}

// stripped drops any styling lipgloss applied.
func stripped(s string) string {
	var sb strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == 0x1b:
			inEsc = true
		case inEsc:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEsc = false
			}
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
