// Package ansi decodes a VT100/ANSI byte stream into screen.Buffer mutations.
//
// The decoder is a byte-at-a-time state machine. Its state survives across
// Feed calls, so a stream split at any byte boundary produces the same
// buffer as the unsplit stream. Unsupported sequences are consumed and
// dropped; no input can leave the decoder stuck outside the ground state.
package ansi

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/simon/sshtui/internal/screen"
)

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeInter
	stateCSI
	stateString    // OSC/DCS/SOS/PM/APC payload, discarded
	stateStringEsc // ESC seen inside a string, maybe ST
)

const (
	maxParams     = 16
	maxParamValue = 9999
)

// Interpreter feeds bytes into a screen buffer.
type Interpreter struct {
	buf *screen.Buffer

	state parserState

	params  []int
	cur     int
	digits  bool
	private byte
	inter   []byte

	utf8Buf  [utf8.UTFMax]byte
	utf8Len  int
	utf8Need int

	onUnknown func(seq string)
}

// New returns an interpreter in the ground state driving buf.
func New(buf *screen.Buffer) *Interpreter {
	return &Interpreter{
		buf:    buf,
		params: make([]int, 0, maxParams),
		inter:  make([]byte, 0, 4),
	}
}

// Buffer returns the buffer this interpreter drives.
func (p *Interpreter) Buffer() *screen.Buffer {
	return p.buf
}

// SetUnknownHandler registers fn to be told about every sequence the
// interpreter drops. Passing nil removes it.
func (p *Interpreter) SetUnknownHandler(fn func(seq string)) {
	p.onUnknown = fn
}

// Feed processes all of data synchronously.
func (p *Interpreter) Feed(data []byte) {
	for _, b := range data {
		p.step(b)
	}
}

// FeedString is Feed for string input.
func (p *Interpreter) FeedString(s string) {
	p.Feed([]byte(s))
}

func (p *Interpreter) step(b byte) {
	// A pending UTF-8 sequence only continues on a continuation byte.
	if p.utf8Need > 0 {
		if b >= 0x80 && b < 0xC0 {
			p.continueUTF8(b)
			return
		}
		p.invalidUTF8()
	}

	switch b {
	case 0x18, 0x1A: // CAN, SUB abort any sequence
		p.state = stateGround
		return
	case 0x1B:
		if p.state == stateString {
			p.state = stateStringEsc
			return
		}
		p.enterEscape()
		return
	}

	switch p.state {
	case stateGround:
		p.ground(b)
	case stateEscape:
		p.escape(b)
	case stateEscapeInter:
		p.escapeInter(b)
	case stateCSI:
		p.csi(b)
	case stateString:
		if b == 0x07 {
			p.state = stateGround
		}
	case stateStringEsc:
		if b == '\\' {
			p.state = stateGround
			return
		}
		p.enterEscape()
		p.escape(b)
	}
}

func (p *Interpreter) enterEscape() {
	p.state = stateEscape
	p.inter = p.inter[:0]
}

func (p *Interpreter) ground(b byte) {
	switch {
	case b < 0x20:
		p.execute(b)
	case b < 0x7F:
		p.buf.Put(rune(b), p.buf.Style())
	case b == 0x7F:
		// DEL is ignored
	default:
		p.startUTF8(b)
	}
}

// execute runs a C0 control. Unlisted controls are ignored.
func (p *Interpreter) execute(b byte) {
	switch b {
	case '\b':
		p.buf.Backspace()
	case '\t':
		p.buf.Tab()
	case '\n', 0x0B, 0x0C:
		p.buf.LineFeed()
	case '\r':
		p.buf.CarriageReturn()
	}
}

func (p *Interpreter) startUTF8(b byte) {
	var need int
	switch {
	case b >= 0xC2 && b <= 0xDF:
		need = 2
	case b >= 0xE0 && b <= 0xEF:
		need = 3
	case b >= 0xF0 && b <= 0xF4:
		need = 4
	default:
		p.buf.Put(utf8.RuneError, p.buf.Style())
		return
	}
	p.utf8Buf[0] = b
	p.utf8Len = 1
	p.utf8Need = need
}

func (p *Interpreter) continueUTF8(b byte) {
	p.utf8Buf[p.utf8Len] = b
	p.utf8Len++
	if p.utf8Len < p.utf8Need {
		return
	}
	r, _ := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
	p.utf8Len, p.utf8Need = 0, 0
	p.buf.Put(r, p.buf.Style())
}

func (p *Interpreter) invalidUTF8() {
	p.utf8Len, p.utf8Need = 0, 0
	p.buf.Put(utf8.RuneError, p.buf.Style())
}

func (p *Interpreter) escape(b byte) {
	switch {
	case b < 0x20:
		p.execute(b)
		return
	case b == '[':
		p.state = stateCSI
		p.params = p.params[:0]
		p.cur = 0
		p.digits = false
		p.private = 0
		return
	case b == ']', b == 'P', b == 'X', b == '^', b == '_':
		p.state = stateString
		return
	case b >= 0x20 && b <= 0x2F:
		p.inter = append(p.inter, b)
		p.state = stateEscapeInter
		return
	}

	p.state = stateGround
	switch b {
	case '7':
		p.buf.SaveCursor()
	case '8':
		p.buf.RestoreCursor()
	case 'D':
		p.buf.LineFeed()
	case 'E':
		p.buf.CarriageReturn()
		p.buf.LineFeed()
	case 'M':
		p.buf.ReverseLineFeed()
	case 'c':
		p.buf.Reset()
	default:
		p.unknown("ESC " + string(b))
	}
}

// escapeInter consumes designators such as ESC ( B; they have no effect.
func (p *Interpreter) escapeInter(b byte) {
	switch {
	case b < 0x20:
		p.execute(b)
	case b <= 0x2F:
		if len(p.inter) < cap(p.inter) {
			p.inter = append(p.inter, b)
		}
	default:
		p.state = stateGround
		p.unknown("ESC " + string(p.inter) + string(b))
	}
}

func (p *Interpreter) csi(b byte) {
	switch {
	case b >= '0' && b <= '9':
		if p.cur <= maxParamValue {
			p.cur = p.cur*10 + int(b-'0')
		}
		p.digits = true
	case b == ';' || b == ':':
		p.pushParam()
	case b >= 0x3C && b <= 0x3F:
		p.private = b
	case b >= 0x20 && b <= 0x2F:
		if len(p.inter) < cap(p.inter) {
			p.inter = append(p.inter, b)
		}
	case b >= 0x40 && b <= 0x7E:
		if p.digits || len(p.params) > 0 {
			p.pushParam()
		}
		p.state = stateGround
		p.dispatch(b)
	case b < 0x20:
		p.execute(b)
	case b == 0x7F:
		// ignored inside CSI
	default:
		// 8-bit byte inside a CSI: malformed, drop the sequence
		p.state = stateGround
	}
}

func (p *Interpreter) pushParam() {
	if len(p.params) < maxParams {
		p.params = append(p.params, min(p.cur, maxParamValue))
	}
	p.cur = 0
	p.digits = false
}

// param returns the i-th parameter, or def when it is missing or zero.
func (p *Interpreter) param(i, def int) int {
	if i >= len(p.params) || p.params[i] == 0 {
		return def
	}
	return p.params[i]
}

func (p *Interpreter) dispatch(final byte) {
	if p.private != 0 || len(p.inter) > 0 {
		p.unknown(p.describeCSI(final))
		return
	}

	buf := p.buf
	switch final {
	case 'A': // CUU
		buf.MoveCursor(-p.param(0, 1), 0)
	case 'B': // CUD
		buf.MoveCursor(p.param(0, 1), 0)
	case 'C': // CUF
		buf.MoveCursor(0, p.param(0, 1))
	case 'D': // CUB
		buf.MoveCursor(0, -p.param(0, 1))
	case 'E': // CNL
		buf.MoveCursor(p.param(0, 1), 0)
		buf.CarriageReturn()
	case 'F': // CPL
		buf.MoveCursor(-p.param(0, 1), 0)
		buf.CarriageReturn()
	case 'G': // CHA
		buf.SetCursor(buf.Cursor().Row, p.param(0, 1)-1)
	case 'd': // VPA
		buf.SetCursor(p.param(0, 1)-1, buf.Cursor().Col)
	case 'H', 'f': // CUP, HVP
		buf.SetCursor(p.param(0, 1)-1, p.param(1, 1)-1)
	case 'J': // ED
		if r, ok := eraseRegion(p.param(0, 0)); ok {
			buf.Clear(r)
		}
	case 'K': // EL
		if r, ok := eraseRegion(p.param(0, 0)); ok {
			buf.ClearLine(r)
		}
	case 'S': // SU
		_, h := buf.Size()
		for n := min(p.param(0, 1), h); n > 0; n-- {
			buf.ScrollUp()
		}
	case 'm': // SGR
		p.sgr()
	default:
		p.unknown(p.describeCSI(final))
	}
}

func eraseRegion(n int) (screen.Region, bool) {
	switch n {
	case 0:
		return screen.ToEnd, true
	case 1:
		return screen.ToCursor, true
	case 2:
		return screen.All, true
	}
	return 0, false
}

func (p *Interpreter) unknown(seq string) {
	if p.onUnknown != nil {
		p.onUnknown(seq)
	}
}

func (p *Interpreter) describeCSI(final byte) string {
	var sb strings.Builder
	sb.WriteString("CSI ")
	if p.private != 0 {
		sb.WriteByte(p.private)
	}
	for i, v := range p.params {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	sb.Write(p.inter)
	sb.WriteByte(final)
	return sb.String()
}
