package tui

import tea "github.com/charmbracelet/bubbletea"

// keyBytes translates a key press into the bytes a terminal would send for
// it. It returns nil for keys with no terminal encoding.
func keyBytes(msg tea.KeyMsg) []byte {
	var out []byte
	switch {
	case msg.Type == tea.KeyRunes:
		out = []byte(string(msg.Runes))
		if msg.Paste {
			return out
		}
	case msg.Type == tea.KeySpace:
		out = []byte{' '}
	case isControl(msg.Type):
		out = []byte{byte(msg.Type)}
	default:
		seq := keySequence(msg.Type)
		if seq == "" {
			return nil
		}
		out = []byte(seq)
	}

	if msg.Alt {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

// isControl reports whether kt is a C0 control or DEL. Bubble Tea defines
// those key types by their byte value, so ctrl+a is 1, enter is 13 and
// backspace is 127.
func isControl(kt tea.KeyType) bool {
	return (kt >= tea.KeyNull && kt <= tea.KeyCtrlUnderscore) || kt == tea.KeyBackspace
}

// keySequence returns the xterm escape sequence for multi-byte key types
// (arrows, navigation, function keys), or "" if unknown.
func keySequence(kt tea.KeyType) string {
	switch kt {
	case tea.KeyUp:
		return "\x1b[A"
	case tea.KeyDown:
		return "\x1b[B"
	case tea.KeyRight:
		return "\x1b[C"
	case tea.KeyLeft:
		return "\x1b[D"

	case tea.KeyShiftUp:
		return "\x1b[1;2A"
	case tea.KeyShiftDown:
		return "\x1b[1;2B"
	case tea.KeyShiftRight:
		return "\x1b[1;2C"
	case tea.KeyShiftLeft:
		return "\x1b[1;2D"

	case tea.KeyCtrlUp:
		return "\x1b[1;5A"
	case tea.KeyCtrlDown:
		return "\x1b[1;5B"
	case tea.KeyCtrlRight:
		return "\x1b[1;5C"
	case tea.KeyCtrlLeft:
		return "\x1b[1;5D"

	case tea.KeyShiftTab:
		return "\x1b[Z"
	case tea.KeyHome:
		return "\x1b[H"
	case tea.KeyEnd:
		return "\x1b[F"
	case tea.KeyCtrlHome:
		return "\x1b[1;5H"
	case tea.KeyCtrlEnd:
		return "\x1b[1;5F"
	case tea.KeyInsert:
		return "\x1b[2~"
	case tea.KeyDelete:
		return "\x1b[3~"
	case tea.KeyPgUp:
		return "\x1b[5~"
	case tea.KeyPgDown:
		return "\x1b[6~"

	case tea.KeyF1:
		return "\x1bOP"
	case tea.KeyF2:
		return "\x1bOQ"
	case tea.KeyF3:
		return "\x1bOR"
	case tea.KeyF4:
		return "\x1bOS"
	case tea.KeyF5:
		return "\x1b[15~"
	case tea.KeyF6:
		return "\x1b[17~"
	case tea.KeyF7:
		return "\x1b[18~"
	case tea.KeyF8:
		return "\x1b[19~"
	case tea.KeyF9:
		return "\x1b[20~"
	case tea.KeyF10:
		return "\x1b[21~"
	case tea.KeyF11:
		return "\x1b[23~"
	case tea.KeyF12:
		return "\x1b[24~"
	}
	return ""
}
