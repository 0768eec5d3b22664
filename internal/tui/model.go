package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/simon/sshtui/internal/ansi"
	"github.com/simon/sshtui/internal/config"
	"github.com/simon/sshtui/internal/screen"
	"github.com/simon/sshtui/internal/session"
	"github.com/simon/sshtui/internal/state"
)

const (
	minSidebarWidth = 24
	maxSidebarWidth = 40
	// message line + help bar
	footerHeight = 2
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusPanel
)

type messageKind int

const (
	msgInfo messageKind = iota
	msgSuccess
	msgError
)

// bridgeReadyMsg is sent when the bridge has events to drain.
type bridgeReadyMsg struct{}

type connectResultMsg struct {
	Host      config.Host
	SessionID string
	Err       error
}

// Bridge is the part of session.Bridge the model drives.
type Bridge interface {
	Connect(h session.Host, size session.Size) (*session.Session, error)
	Write(p []byte) error
	Resize(size session.Size) error
	Disconnect() error
	Status() session.Status
	SessionID() string
	Ready() <-chan struct{}
	Drain() []session.Event
	Apply(ev session.Event)
}

type Options struct {
	Config *config.Config
	Bridge Bridge
	Store  *state.Store // optional
	// Connect names a host to connect to as soon as the window size is known.
	Connect string
}

type Model struct {
	cfg    *config.Config
	bridge Bridge
	store  *state.Store

	groups       []config.Group
	group        int
	filtered     []config.Host
	cursor       int
	scrollOffset int
	input        textinput.Model
	spinner      spinner.Model
	focus        focusArea

	buf  *screen.Buffer
	term *ansi.Interpreter

	active        *config.Host // host of the current session
	sessionID     string
	connecting    *config.Host // connect in flight, not yet bound
	bytesIn       map[string]int64
	lastConnected map[string]time.Time

	message     string
	messageKind messageKind

	pendingConnect string
	width, height  int
	quitting       bool
}

func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "filter hosts..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = minSidebarWidth - 4

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	buf := screen.NewBuffer(0, 0)
	m := Model{
		cfg:            cfg,
		bridge:         opts.Bridge,
		store:          opts.Store,
		groups:         cfg.GroupsWithAll(),
		input:          ti,
		spinner:        sp,
		buf:            buf,
		term:           ansi.New(buf),
		bytesIn:        make(map[string]int64),
		pendingConnect: opts.Connect,
	}
	m.term.SetUnknownHandler(func(seq string) {
		log.Trace().Str("seq", seq).Msg("dropped escape sequence")
	})
	if m.store != nil {
		if last, err := m.store.LastConnected(); err == nil {
			m.lastConnected = last
		} else {
			log.Warn().Err(err).Msg("load connection history")
		}
	}
	m.applyFilter()
	return m
}

// waitForBridge blocks until the bridge has events.
func waitForBridge(b Bridge) tea.Cmd {
	return func() tea.Msg {
		<-b.Ready()
		return bridgeReadyMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForBridge(m.bridge))
}

// sessionHost converts a config record into what the launcher needs.
func sessionHost(cfg *config.Config, h config.Host) session.Host {
	sh := session.Host{
		Name:    h.Name,
		Address: h.Host,
		User:    h.User,
		Port:    h.Port,
	}
	if h.Host != "" {
		sh.Key = cfg.KeyPath(h)
	}
	return sh
}

func (m Model) panelOuter() (int, int) {
	return max(m.width-m.sidebarWidth(), 0), max(m.height-footerHeight, 0)
}

func (m Model) panelSize() session.Size {
	w, h := innerSize(m.panelOuter())
	return session.Size{Cols: w, Rows: h}
}

func (m Model) sidebarWidth() int {
	return min(max(m.width/4, minSidebarWidth), maxSidebarWidth)
}

func (m Model) connectCmd(h config.Host) tea.Cmd {
	b := m.bridge
	sh := sessionHost(m.cfg, h)
	size := m.panelSize()
	return func() tea.Msg {
		s, err := b.Connect(sh, size)
		if err != nil {
			return connectResultMsg{Host: h, Err: err}
		}
		return connectResultMsg{Host: h, SessionID: s.ID()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case bridgeReadyMsg:
		m.handleEvents(m.bridge.Drain())
		return m, waitForBridge(m.bridge)

	case connectResultMsg:
		return m.handleConnectResult(msg)

	case spinner.TickMsg:
		if m.bridge.Status() != session.Connecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.sidebarWidth() - 4
		size := m.panelSize()
		m.buf.Resize(size.Cols, size.Rows)
		_ = m.bridge.Resize(size)
		m.ensureCursorVisible()

		if name := m.pendingConnect; name != "" {
			m.pendingConnect = ""
			h, ok := m.cfg.FindHost(name)
			if !ok {
				m.setMessage(msgError, fmt.Sprintf("unknown host %q", name))
				return m, nil
			}
			return m.startConnect(h)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startConnect(h config.Host) (tea.Model, tea.Cmd) {
	m.setMessage(msgInfo, "connecting to "+hostLabel(h)+"...")
	m.connecting = &h
	return m, m.connectCmd(h)
}

func (m Model) handleConnectResult(msg connectResultMsg) (tea.Model, tea.Cmd) {
	m.connecting = nil
	if msg.Err != nil {
		if errors.Is(msg.Err, session.ErrSessionActive) {
			m.setMessage(msgError, "already connected, press ctrl+q to disconnect first")
		} else {
			m.setMessage(msgError, msg.Err.Error())
		}
		return m, nil
	}

	m.bindSession(msg.Host, msg.SessionID)
	return m, m.spinner.Tick
}

// bindSession makes id the session shown in the panel. The first of the
// connect result and the session's first event binds it; the other is a
// no-op.
func (m *Model) bindSession(h config.Host, id string) {
	if id == "" || id == m.sessionID {
		return
	}
	m.active = &h
	m.sessionID = id
	m.buf.Reset()
	m.focus = focusPanel
	m.record(func(s *state.Store) error {
		return s.RecordStart(id, h.Name, h.Host, h.User, h.Port)
	})
}

// handleEvents applies drained bridge events in order.
func (m *Model) handleEvents(events []session.Event) {
	for _, ev := range events {
		// The reader starts before Connect returns, so a new session's
		// events can beat its connect result here.
		if m.connecting != nil && ev.SessionID != m.sessionID && ev.SessionID == m.bridge.SessionID() {
			m.bindSession(*m.connecting, ev.SessionID)
		}
		m.bridge.Apply(ev)
		isCurrent := m.sessionID != "" && ev.SessionID == m.sessionID

		switch ev.Kind {
		case session.EventConnected:
			m.record(func(s *state.Store) error { return s.MarkConnected(ev.SessionID) })
			if isCurrent && m.active != nil {
				m.setMessage(msgSuccess, "connected to "+hostLabel(*m.active))
				if m.lastConnected != nil {
					m.lastConnected[m.active.Name] = time.Now()
				}
			}

		case session.EventData:
			m.bytesIn[ev.SessionID] += int64(len(ev.Data))
			if isCurrent {
				m.term.Feed(ev.Data)
			}

		case session.EventClosed, session.EventError:
			errMsg := ""
			if ev.Err != nil {
				errMsg = ev.Err.Error()
			}
			n := m.bytesIn[ev.SessionID]
			delete(m.bytesIn, ev.SessionID)
			m.record(func(s *state.Store) error {
				if err := s.AddBytes(ev.SessionID, n); err != nil {
					return err
				}
				return s.MarkEnded(ev.SessionID, errMsg)
			})
			if !isCurrent {
				continue
			}
			name := ""
			if m.active != nil {
				name = m.active.Name
			}
			switch {
			case ev.Kind == session.EventError:
				m.setMessage(msgError, fmt.Sprintf("%s: %s", name, errMsg))
			case ev.Err != nil:
				m.setMessage(msgError, fmt.Sprintf("%s exited: %s", name, errMsg))
			default:
				m.setMessage(msgInfo, "disconnected from "+name)
			}
			m.focus = focusSidebar
		}
	}
}

// record runs fn against the history store, if there is one.
func (m *Model) record(fn func(*state.Store) error) {
	if m.store == nil {
		return
	}
	if err := fn(m.store); err != nil {
		log.Warn().Err(err).Msg("update connection history")
	}
}

func (m *Model) setMessage(kind messageKind, text string) {
	m.messageKind = kind
	m.message = text
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	_ = m.bridge.Disconnect()
	m.quitting = true
	return m, tea.Quit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus == focusPanel {
		return m.handlePanelKey(msg)
	}

	// Ctrl+C always quits from the sidebar
	if key.Matches(msg, keys.CtrlC) {
		return m.quit()
	}

	if key.Matches(msg, keys.Escape) {
		m.input.SetValue("")
		m.applyFilter()
		return m, nil
	}

	if key.Matches(msg, keys.Disconnect) {
		return m.disconnect()
	}

	// q quits only when the filter is empty
	if key.Matches(msg, keys.Quit) && m.input.Value() == "" {
		return m.quit()
	}

	if key.Matches(msg, keys.Focus) {
		if st := m.bridge.Status(); st == session.Connecting || st == session.Connected {
			m.focus = focusPanel
		}
		return m, nil
	}

	if key.Matches(msg, keys.Up) || (m.input.Value() == "" && key.Matches(msg, keys.VimUp)) {
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
		return m, nil
	}
	if key.Matches(msg, keys.Down) || (m.input.Value() == "" && key.Matches(msg, keys.VimDown)) {
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
		return m, nil
	}

	if m.input.Value() == "" && len(m.groups) > 1 {
		if key.Matches(msg, keys.PrevGroup) {
			m.group = (m.group + len(m.groups) - 1) % len(m.groups)
			m.applyFilter()
			return m, nil
		}
		if key.Matches(msg, keys.NextGroup) {
			m.group = (m.group + 1) % len(m.groups)
			m.applyFilter()
			return m, nil
		}
	}

	if key.Matches(msg, keys.Enter) {
		sel := m.selectedHost()
		if sel == nil {
			return m, nil
		}
		if m.active != nil && m.active.Name == sel.Name && m.bridge.Status() != session.Closed {
			m.focus = focusPanel
			return m, nil
		}
		m.input.SetValue("")
		m.applyFilter()
		return m.startConnect(*sel)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Release) {
		m.focus = focusSidebar
		return m, nil
	}
	if key.Matches(msg, keys.Disconnect) {
		return m.disconnect()
	}

	p := keyBytes(msg)
	if len(p) == 0 {
		return m, nil
	}
	if err := m.bridge.Write(p); err != nil {
		if errors.Is(err, session.ErrNotConnected) && m.bridge.Status() == session.Connecting {
			m.setMessage(msgInfo, "still connecting...")
			return m, nil
		}
		m.setMessage(msgError, err.Error())
	}
	return m, nil
}

func (m Model) disconnect() (tea.Model, tea.Cmd) {
	if st := m.bridge.Status(); st == session.Idle || st == session.Closed {
		m.setMessage(msgInfo, "not connected")
		return m, nil
	}
	if err := m.bridge.Disconnect(); err != nil {
		m.setMessage(msgError, err.Error())
	}
	m.focus = focusSidebar
	return m, nil
}

func (m *Model) applyFilter() {
	var hosts []config.Host
	if m.group < len(m.groups) {
		hosts = m.groups[m.group].Hosts
	}
	query := strings.ToLower(strings.TrimSpace(m.input.Value()))
	if query == "" {
		m.filtered = hosts
	} else {
		m.filtered = nil
		for _, h := range hosts {
			if strings.Contains(strings.ToLower(h.Name), query) ||
				strings.Contains(strings.ToLower(h.Host), query) {
				m.filtered = append(m.filtered, h)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.ensureCursorVisible()
}

// sidebarRows is the number of host rows that fit under the sidebar header.
func (m Model) sidebarRows() int {
	// title, group tabs, filter, blank line
	const header = 4
	if m.height == 0 {
		return len(m.filtered)
	}
	return max(m.height-footerHeight-header, 1)
}

func (m *Model) ensureCursorVisible() {
	maxVis := m.sidebarRows()
	if maxVis <= 0 {
		m.scrollOffset = 0
		return
	}
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+maxVis {
		m.scrollOffset = m.cursor - maxVis + 1
	}
	maxOffset := max(len(m.filtered)-maxVis, 0)
	if m.scrollOffset > maxOffset {
		m.scrollOffset = maxOffset
	}
}

func (m Model) selectedHost() *config.Host {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	h := m.filtered[m.cursor]
	return &h
}

func hostLabel(h config.Host) string {
	if h.Host == "" {
		return h.Name + " (local)"
	}
	return h.Name
}
