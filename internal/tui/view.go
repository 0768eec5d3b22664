package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/simon/sshtui/internal/session"
)

var (
	// Adaptive colors for light/dark terminal backgrounds
	accentColor = lipgloss.AdaptiveColor{Light: "#D6249F", Dark: "#FF79C6"}
	greenColor  = lipgloss.AdaptiveColor{Light: "#116620", Dark: "#50FA7B"}
	yellowColor = lipgloss.AdaptiveColor{Light: "#7D5A00", Dark: "#F1FA8C"}
	redColor    = lipgloss.AdaptiveColor{Light: "#B31D28", Dark: "#FF5555"}
	dimColor    = lipgloss.AdaptiveColor{Light: "#777777", Dark: "#6272A4"}
	hlBgColor   = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#333333"}
	cyanColor   = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#8BE9FD"}
	blueColor   = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#BD93F9"}

	// Named group colors from the config file. Anything else is passed to
	// lipgloss as-is, so hex and ANSI numbers work too.
	groupColors = map[string]lipgloss.TerminalColor{
		"accent": accentColor,
		"blue":   blueColor,
		"cyan":   cyanColor,
		"green":  greenColor,
		"red":    redColor,
		"yellow": yellowColor,
		"dim":    dimColor,
	}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			PaddingLeft(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	selectedRowStyle = lipgloss.NewStyle().
				Background(hlBgColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	statusConnected = lipgloss.NewStyle().
			Foreground(greenColor)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(yellowColor)

	messageStyles = map[messageKind]lipgloss.Style{
		msgInfo:    lipgloss.NewStyle().Foreground(cyanColor).PaddingLeft(1),
		msgSuccess: lipgloss.NewStyle().Foreground(greenColor).PaddingLeft(1),
		msgError:   lipgloss.NewStyle().Foreground(redColor).Bold(true).PaddingLeft(1),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(1)

	inputLabelStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(dimColor)

	panelFocusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(accentColor)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(dimColor).
				Align(lipgloss.Center)
)

func groupColor(name string) lipgloss.TerminalColor {
	if c, ok := groupColors[name]; ok {
		return c
	}
	if name == "" {
		return dimColor
	}
	return lipgloss.Color(name)
}

// pad right-pads s to width with spaces (based on visual width, not byte count).
func pad(s string, width int) string {
	visual := lipgloss.Width(s)
	if visual >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visual)
}

// truncate cuts s to at most width cells, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return ""
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	outerW, outerH := m.panelOuter()
	panel := renderPanel(m.panelLines(), outerW, outerH, m.focus == focusPanel, m.panelPlaceholder())

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sidebar, panel))
	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(messageStyles[m.messageKind].Render(truncate(m.message, max(m.width-1, 1))))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpText()))
	return b.String()
}

// panelLines returns nothing until a session has been started so the panel
// shows its placeholder.
func (m Model) panelLines() []string {
	if m.active == nil {
		return nil
	}
	return renderScreen(m.buf.Snapshot(), m.focus == focusPanel && m.bridge.Status() == session.Connected)
}

func (m Model) panelPlaceholder() string {
	if len(m.cfg.Hosts()) == 0 {
		return "No hosts configured. Add some to your config file."
	}
	return "Select a host and press enter to connect."
}

func (m Model) renderSidebar() string {
	sw := m.sidebarWidth()
	inner := sw - 2

	var b strings.Builder
	b.WriteString(titleStyle.Render("sshtui"))
	b.WriteString("\n")
	b.WriteString(m.renderGroupTabs(inner))
	b.WriteString("\n")
	b.WriteString(inputLabelStyle.Render(" / "))
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		if m.input.Value() != "" {
			b.WriteString(dimStyle.Render("  no matching hosts"))
		} else {
			b.WriteString(dimStyle.Render("  no hosts"))
		}
	}

	end := min(m.scrollOffset+m.sidebarRows(), len(m.filtered))
	for i := m.scrollOffset; i < end; i++ {
		h := m.filtered[i]
		marker := "  "
		if m.active != nil && m.active.Name == h.Name {
			switch m.bridge.Status() {
			case session.Connecting:
				marker = m.spinner.View() + " "
			case session.Connected:
				marker = statusConnected.Render("●") + " "
			}
		}

		info := ""
		if t, ok := m.lastConnected[h.Name]; ok {
			info = humanize.Time(t)
		} else if h.Host == "" {
			info = "local"
		}
		nameW := max(inner-3-lipgloss.Width(info)-1, 4)
		row := pad(truncate(h.Name, nameW), nameW) + " " + dimStyle.Render(info)

		if i == m.cursor {
			b.WriteString(cursorStyle.Render(">"))
			b.WriteString(marker)
			b.WriteString(selectedRowStyle.Render(row))
		} else {
			b.WriteString(" ")
			b.WriteString(marker)
			b.WriteString(row)
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(sw).
		Height(max(m.height-footerHeight, 0)).
		MaxHeight(max(m.height-footerHeight, 0)).
		Render(b.String())
}

func (m Model) renderGroupTabs(width int) string {
	var parts []string
	for i, g := range m.groups {
		st := lipgloss.NewStyle().Foreground(groupColor(g.Color))
		label := g.Name
		if i == m.group {
			st = st.Bold(true).Underline(true)
		}
		parts = append(parts, st.Render(label))
	}
	tabs := " " + strings.Join(parts, " ")
	if lipgloss.Width(tabs) > width && m.group < len(m.groups) {
		// Too many groups to show; fall back to the current one with its position.
		g := m.groups[m.group]
		cur := lipgloss.NewStyle().Foreground(groupColor(g.Color)).Bold(true).Render(g.Name)
		return fmt.Sprintf(" ‹ %s %d/%d ›", cur, m.group+1, len(m.groups))
	}
	return tabs
}

func (m Model) helpText() string {
	if m.focus == focusPanel {
		if m.bridge.Status() == session.Connecting {
			return "connecting...  ctrl+] sidebar  ctrl+q disconnect"
		}
		return "ctrl+] sidebar  ctrl+q disconnect"
	}
	help := "enter connect  type to filter  j/k navigate  ←/→ group"
	if st := m.bridge.Status(); st == session.Connecting || st == session.Connected {
		help += "  tab terminal  ctrl+q disconnect"
	}
	return help + "  q quit"
}
