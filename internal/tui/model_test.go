package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simon/sshtui/internal/config"
	"github.com/simon/sshtui/internal/session"
)

type fakeBridge struct {
	status     session.Status
	id         string
	connectErr error
	writeErr   error
	connects   []session.Host
	writes     []string
	sizes      []session.Size
	applied    []session.Event
	events     []session.Event
	closed     int
	ready      chan struct{}
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{ready: make(chan struct{}, 1)}
}

func (f *fakeBridge) Connect(h session.Host, size session.Size) (*session.Session, error) {
	f.connects = append(f.connects, h)
	return nil, f.connectErr
}

func (f *fakeBridge) Write(p []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, string(p))
	return nil
}

func (f *fakeBridge) Resize(size session.Size) error {
	f.sizes = append(f.sizes, size)
	return nil
}

func (f *fakeBridge) Disconnect() error {
	f.closed++
	return nil
}

func (f *fakeBridge) Status() session.Status { return f.status }
func (f *fakeBridge) SessionID() string       { return f.id }
func (f *fakeBridge) Ready() <-chan struct{}  { return f.ready }
func (f *fakeBridge) Apply(ev session.Event)  { f.applied = append(f.applied, ev) }

func (f *fakeBridge) Drain() []session.Event {
	ev := f.events
	f.events = nil
	return ev
}

const testConfig = `
groups:
  - name: Production
    color: red
    hosts:
      - name: web
        host: 10.0.0.5
        user: deploy
      - name: db
        host: db.internal
  - name: Local
    hosts:
      - name: shell
`

func newTestModel(t *testing.T) (Model, *fakeBridge) {
	t.Helper()
	t.Setenv("HOME", "/home/tester")
	t.Setenv("USER", "tester")
	cfg, err := config.Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fb := newFakeBridge()
	m := NewModel(Options{Config: cfg, Bridge: fb})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, fb
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// connected drives m through a successful connect to the selected host.
func connected(t *testing.T, m Model, fb *fakeBridge, id string) Model {
	t.Helper()
	h := m.selectedHost()
	if h == nil {
		t.Fatal("no host selected")
	}
	fb.status = session.Connecting
	m = update(t, m, connectResultMsg{Host: *h, SessionID: id})
	fb.status = session.Connected
	fb.events = []session.Event{{Kind: session.EventConnected, SessionID: id}}
	return update(t, m, bridgeReadyMsg{})
}

func TestResizeUsesPanelInnerSize(t *testing.T) {
	m, fb := newTestModel(t)

	// sidebar is clamp(100/4, 24, 40) = 25 wide, panel 75x28 outside
	want := session.Size{Cols: 73, Rows: 26}
	if len(fb.sizes) != 1 || fb.sizes[0] != want {
		t.Errorf("bridge sizes = %+v, want [%+v]", fb.sizes, want)
	}
	if w, h := m.buf.Size(); w != 73 || h != 26 {
		t.Errorf("buffer size = %dx%d, want 73x26", w, h)
	}
}

func TestSidebarNavigation(t *testing.T) {
	m, _ := newTestModel(t)

	if len(m.filtered) != 3 {
		t.Fatalf("All group has %d hosts, want 3", len(m.filtered))
	}
	m = update(t, m, runes("j"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Errorf("cursor moved past the end: %d", m.cursor)
	}
	m = update(t, m, runes("k"))
	if got := m.selectedHost(); got == nil || got.Name != "db" {
		t.Errorf("selected = %+v, want db", got)
	}
}

func TestGroupSwitching(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.groups[m.group].Name != "Production" || len(m.filtered) != 2 {
		t.Errorf("group %q with %d hosts, want Production with 2", m.groups[m.group].Name, len(m.filtered))
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.groups[m.group].Name != "Local" {
		t.Errorf("group = %q, want Local after wrapping", m.groups[m.group].Name)
	}
}

func TestFilterHosts(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, runes("d"))
	m = update(t, m, runes("b"))
	if len(m.filtered) != 1 || m.filtered[0].Name != "db" {
		t.Fatalf("filtered = %+v, want [db]", m.filtered)
	}

	// with a filter typed, j is text rather than navigation
	m = update(t, m, runes("j"))
	if len(m.filtered) != 0 {
		t.Errorf("filtered = %+v, want none", m.filtered)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.input.Value() != "" || len(m.filtered) != 3 {
		t.Errorf("escape left filter %q with %d hosts", m.input.Value(), len(m.filtered))
	}
}

func TestFilterMatchesAddress(t *testing.T) {
	m, _ := newTestModel(t)
	for _, r := range "10.0" {
		m = update(t, m, runes(string(r)))
	}
	if len(m.filtered) != 1 || m.filtered[0].Name != "web" {
		t.Errorf("filtered = %+v, want [web]", m.filtered)
	}
}

func TestEnterConnectsSelectedHost(t *testing.T) {
	m, fb := newTestModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	fb.connectErr = errors.New("boom")
	msg := cmd()
	res, ok := msg.(connectResultMsg)
	if !ok {
		t.Fatalf("command produced %T, want connectResultMsg", msg)
	}
	if res.Err == nil || res.Host.Name != "web" {
		t.Errorf("result = %+v", res)
	}
	if len(fb.connects) != 1 {
		t.Fatalf("Connect called %d times", len(fb.connects))
	}
	got := fb.connects[0]
	if got.Address != "10.0.0.5" || got.User != "deploy" || got.Port != 22 {
		t.Errorf("session host = %+v", got)
	}

	m = update(t, m, res)
	if m.messageKind != msgError || m.message != "boom" {
		t.Errorf("message = %q (%v), want boom error", m.message, m.messageKind)
	}
	if m.focus != focusSidebar {
		t.Error("failed connect moved focus to the panel")
	}
}

func TestSessionActiveMessage(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, connectResultMsg{Host: config.Host{Name: "web"}, Err: session.ErrSessionActive})
	if !strings.Contains(m.message, "already connected") {
		t.Errorf("message = %q", m.message)
	}
}

func TestConnectedSessionFeedsPanel(t *testing.T) {
	m, fb := newTestModel(t)
	m = connected(t, m, fb, "s1")

	if m.focus != focusPanel {
		t.Error("focus did not move to the panel")
	}
	if m.messageKind != msgSuccess {
		t.Errorf("message = %q (%v)", m.message, m.messageKind)
	}

	fb.events = []session.Event{
		{Kind: session.EventData, SessionID: "s1", Data: []byte("hello\r\n")},
		{Kind: session.EventData, SessionID: "old", Data: []byte("stale")},
		{Kind: session.EventData, SessionID: "s1", Data: []byte("$ ")},
	}
	m = update(t, m, bridgeReadyMsg{})

	lines := m.buf.Snapshot().Lines()
	if lines[0] != "hello" || lines[1] != "$" {
		t.Errorf("panel lines = %q", lines[:2])
	}
	if len(fb.applied) != 4 {
		t.Errorf("applied %d events, want 4", len(fb.applied))
	}
	if got := m.bytesIn["s1"]; got != 9 {
		t.Errorf("bytesIn = %d, want 9", got)
	}
	if !strings.Contains(stripped(m.View()), "hello") {
		t.Error("view does not show session output")
	}
}

func TestPanelForwardsKeys(t *testing.T) {
	m, fb := newTestModel(t)
	m = connected(t, m, fb, "s1")

	for _, msg := range []tea.KeyMsg{
		runes("q"),
		{Type: tea.KeyEnter},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyUp},
	} {
		m = update(t, m, msg)
	}
	want := []string{"q", "\r", "\x03", "\x1b[A"}
	if strings.Join(fb.writes, "|") != strings.Join(want, "|") {
		t.Errorf("writes = %q, want %q", fb.writes, want)
	}
	if m.quitting {
		t.Error("q in the panel quit the app")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlCloseBracket})
	if m.focus != focusSidebar {
		t.Error("ctrl+] did not release focus")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusPanel {
		t.Error("tab did not refocus the panel")
	}
}

func TestPanelWriteWhileConnecting(t *testing.T) {
	m, fb := newTestModel(t)
	fb.status = session.Connecting
	m = update(t, m, connectResultMsg{Host: *m.selectedHost(), SessionID: "s1"})

	fb.writeErr = session.ErrNotConnected
	m = update(t, m, runes("x"))
	if m.message != "still connecting..." {
		t.Errorf("message = %q", m.message)
	}
}

func TestClosedEventReturnsToSidebar(t *testing.T) {
	tests := []struct {
		name     string
		ev       session.Event
		wantKind messageKind
		wantText string
	}{
		{
			name:     "clean exit",
			ev:       session.Event{Kind: session.EventClosed},
			wantKind: msgInfo,
			wantText: "disconnected from web",
		},
		{
			name:     "exit status",
			ev:       session.Event{Kind: session.EventClosed, Err: errors.New("exit status 255")},
			wantKind: msgError,
			wantText: "web exited: exit status 255",
		},
		{
			name:     "read error",
			ev:       session.Event{Kind: session.EventError, Err: errors.New("session: read: bad fd")},
			wantKind: msgError,
			wantText: "web: session: read: bad fd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, fb := newTestModel(t)
			m = connected(t, m, fb, "s1")

			ev := tt.ev
			ev.SessionID = "s1"
			fb.status = session.Closed
			fb.events = []session.Event{ev}
			m = update(t, m, bridgeReadyMsg{})

			if m.focus != focusSidebar {
				t.Error("focus stayed on the panel")
			}
			if m.messageKind != tt.wantKind || m.message != tt.wantText {
				t.Errorf("message = %q (%v), want %q (%v)", m.message, m.messageKind, tt.wantText, tt.wantKind)
			}
		})
	}
}

func TestDisconnectKey(t *testing.T) {
	m, fb := newTestModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	if fb.closed != 0 || m.message != "not connected" {
		t.Errorf("idle disconnect: closed=%d message=%q", fb.closed, m.message)
	}

	m = connected(t, m, fb, "s1")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	if fb.closed != 1 {
		t.Errorf("Disconnect called %d times, want 1", fb.closed)
	}
	if m.focus != focusSidebar {
		t.Error("disconnect left focus on the panel")
	}
}

func TestQuitDisconnects(t *testing.T) {
	m, fb := newTestModel(t)
	next, cmd := m.Update(runes("q"))
	m = next.(Model)
	if !m.quitting || cmd == nil {
		t.Fatal("q did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command did not return QuitMsg")
	}
	if fb.closed != 1 {
		t.Errorf("Disconnect called %d times, want 1", fb.closed)
	}
}

func TestPendingConnectUnknownHost(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg, err := config.Parse([]byte(testConfig))
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(Options{Config: cfg, Bridge: newFakeBridge(), Connect: "nope"})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if m.messageKind != msgError || !strings.Contains(m.message, "nope") {
		t.Errorf("message = %q", m.message)
	}
}

func TestPendingConnectStartsOnResize(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg, err := config.Parse([]byte(testConfig))
	if err != nil {
		t.Fatal(err)
	}
	fb := newFakeBridge()
	fb.connectErr = errors.New("x")
	m := NewModel(Options{Config: cfg, Bridge: fb, Connect: "shell"})
	_, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if cmd == nil {
		t.Fatal("no connect command after first resize")
	}
	cmd()
	if len(fb.connects) != 1 || fb.connects[0].Address != "" || fb.connects[0].Name != "shell" {
		t.Errorf("connects = %+v", fb.connects)
	}
}

func TestEventsBeforeConnectResult(t *testing.T) {
	m, fb := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	// The reader goroutine reports before the connect command returns.
	fb.id = "s1"
	fb.status = session.Connected
	fb.events = []session.Event{
		{Kind: session.EventConnected, SessionID: "s1"},
		{Kind: session.EventData, SessionID: "s1", Data: []byte("Welcome\r\n$ ")},
	}
	m = update(t, m, bridgeReadyMsg{})
	m = update(t, m, connectResultMsg{Host: config.Host{Name: "web", Host: "10.0.0.5"}, SessionID: "s1"})

	lines := m.buf.Snapshot().Lines()
	if lines[0] != "Welcome" || lines[1] != "$" {
		t.Errorf("panel lines = %q, want initial output kept", lines[:2])
	}
	if m.sessionID != "s1" || m.focus != focusPanel {
		t.Errorf("session %q focus %v, want s1 on the panel", m.sessionID, m.focus)
	}
	if m.messageKind != msgSuccess {
		t.Errorf("message = %q (%v), want connected", m.message, m.messageKind)
	}
}

func TestEventsOfOtherSessionsNotBound(t *testing.T) {
	m, fb := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	// Trailing output of an earlier session while the bridge runs s2.
	fb.id = "s2"
	fb.events = []session.Event{{Kind: session.EventData, SessionID: "old", Data: []byte("stale")}}
	m = update(t, m, bridgeReadyMsg{})
	if m.sessionID != "" {
		t.Errorf("sessionID = %q, want unbound", m.sessionID)
	}
	if got := m.buf.Snapshot().String(); strings.Contains(got, "stale") {
		t.Errorf("panel shows output of another session: %q", got)
	}
}
