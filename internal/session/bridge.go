package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	readBufferSize = 8 * 1024

	// DefaultQueueWarnBytes is the pending output size that triggers a
	// high-water warning.
	DefaultQueueWarnBytes = 8 << 20
)

// Bridge runs at most one session at a time and turns its blocking I/O into
// an event queue the host loop drains without blocking.
type Bridge struct {
	launcher Launcher
	spawn    func(Host, Command, Size) (*Session, error)
	log      zerolog.Logger
	warnAt   int

	events *Queue[Event]

	recMu    sync.Mutex
	recorder io.Writer

	mu      sync.Mutex
	current *Session
	input   *Queue[[]byte]
}

type Option func(*Bridge)

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithQueueWarn sets the pending output size that logs a warning.
// Zero or less disables it.
func WithQueueWarn(n int) Option {
	return func(b *Bridge) { b.warnAt = n }
}

// WithRecorder copies every byte read from the PTY to w.
func WithRecorder(w io.Writer) Option {
	return func(b *Bridge) { b.recorder = w }
}

func NewBridge(l Launcher, opts ...Option) *Bridge {
	b := &Bridge{
		launcher: l,
		spawn:    Spawn,
		log:      log.Logger,
		warnAt:   DefaultQueueWarnBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.events = NewQueue("events", func(ev Event) int { return len(ev.Data) }, b.warnAt, b.log)
	return b
}

// Connect spawns a session for h and starts its reader and writer
// goroutines. It fails with ErrSessionActive while another session is
// Connecting or Connected.
func (b *Bridge) Connect(h Host, size Size) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur := b.current; cur != nil {
		if st := cur.Status(); st == Connecting || st == Connected {
			return nil, ErrSessionActive
		}
	}

	cmd, err := b.launcher.Command(h, size)
	if err != nil {
		return nil, fmt.Errorf("build command for %s: %w", h.Name, err)
	}

	s, err := b.spawn(h, cmd, size)
	if err != nil {
		b.log.Error().Err(err).Str("host", h.Name).Msg("spawn failed")
		return nil, err
	}

	in := NewQueue[[]byte]("input", nil, 0, b.log)
	b.current = s
	b.input = in

	b.log.Info().
		Str("session", s.ID()).
		Str("host", h.Name).
		Str("target", h.Target()).
		Int("cols", size.Cols).
		Int("rows", size.Rows).
		Msg("session started")

	go b.readLoop(s)
	go b.writeLoop(s, in)
	return s, nil
}

func (b *Bridge) readLoop(s *Session) {
	buf := make([]byte, readBufferSize)
	var total uint64
	first := true

	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			if first {
				first = false
				b.events.Push(Event{Kind: EventConnected, SessionID: s.id})
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			total += uint64(n)
			b.record(data)
			b.events.Push(Event{Kind: EventData, SessionID: s.id, Data: data})
		}
		if n > 0 && err == nil {
			continue
		}

		// Close drops the write handle after closing the master, so a
		// writer blocked on the PTY cannot stall the reader here.
		explicit := s.closing.Load()
		_ = s.Close()

		ev := Event{Kind: EventClosed, SessionID: s.id}
		switch {
		case explicit, err == nil, isEOF(err):
			if !explicit {
				ev.Err = s.ExitErr()
			}
		default:
			ev = Event{Kind: EventError, SessionID: s.id, Err: &IoError{Op: "read", Err: err}}
		}
		b.log.Info().
			Str("session", s.id).
			Stringer("event", ev.Kind).
			Str("read", humanize.IBytes(total)).
			AnErr("cause", ev.Err).
			Msg("session reader stopped")
		b.finish(s, ev)
		return
	}
}

// isEOF reports a normal end of stream. Linux returns EIO on the master once
// the child side of the PTY has closed.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO)
}

func (b *Bridge) record(p []byte) {
	b.recMu.Lock()
	defer b.recMu.Unlock()
	if b.recorder == nil {
		return
	}
	if _, err := b.recorder.Write(p); err != nil {
		b.log.Warn().Err(err).Msg("recorder write failed, recording stopped")
		b.recorder = nil
	}
}

// writeLoop preserves keystroke order by writing queued input from a single
// goroutine.
func (b *Bridge) writeLoop(s *Session, in *Queue[[]byte]) {
	for {
		select {
		case <-s.Done():
			b.discardInput(s, nil, in)
			return
		case <-in.Ready():
			batch := in.Drain()
			for i, p := range batch {
				err := s.Write(p)
				if err == nil {
					continue
				}
				if errors.Is(err, ErrNotConnected) {
					b.discardInput(s, batch[i:], in)
					return
				}
				b.log.Error().Err(err).Str("session", s.id).Msg("pty write failed")
				_ = s.Close()
				b.discardInput(s, batch[i+1:], in)
				b.finish(s, Event{Kind: EventError, SessionID: s.id, Err: err})
				return
			}
		}
	}
}

// discardInput logs input that was accepted by Write but never reached the
// PTY because the session ended first.
func (b *Bridge) discardInput(s *Session, pending [][]byte, in *Queue[[]byte]) {
	pending = append(pending, in.Drain()...)
	if len(pending) == 0 {
		return
	}
	var n int
	for _, p := range pending {
		n += len(p)
	}
	b.log.Debug().
		Str("session", s.id).
		Int("writes", len(pending)).
		Str("dropped", humanize.IBytes(uint64(n))).
		Msg("session ended with unsent input")
}

// finish emits the session's single terminal event.
func (b *Bridge) finish(s *Session, ev Event) {
	s.endOnce.Do(func() { b.events.Push(ev) })
}

// Write queues p for the current session. It fails with ErrNotConnected
// unless that session is Connected.
func (b *Bridge) Write(p []byte) error {
	b.mu.Lock()
	s, in := b.current, b.input
	b.mu.Unlock()

	if s == nil || s.Status() != Connected {
		return ErrNotConnected
	}
	data := make([]byte, len(p))
	copy(data, p)
	in.Push(data)
	return nil
}

// Resize forwards a new size to the current session. Failures are logged
// and returned but leave the session running.
func (b *Bridge) Resize(size Size) error {
	s := b.Current()
	if s == nil {
		return nil
	}
	if err := s.Resize(size); err != nil {
		b.log.Debug().Err(err).Str("session", s.id).Msg("pty resize failed")
		return err
	}
	return nil
}

// Disconnect closes the current session. The reader reports it as
// EventClosed.
func (b *Bridge) Disconnect() error {
	s := b.Current()
	if s == nil {
		return nil
	}
	b.log.Info().Str("session", s.id).Str("host", s.host.Name).Msg("disconnect requested")
	return s.Close()
}

// Status returns the current session's status, or Idle when there is none.
func (b *Bridge) Status() Status {
	if s := b.Current(); s != nil {
		return s.Status()
	}
	return Idle
}

// SessionID returns the current session's ID, or "" when there is none.
// It is set before the session's first event is queued.
func (b *Bridge) SessionID() string {
	if s := b.Current(); s != nil {
		return s.id
	}
	return ""
}

func (b *Bridge) Current() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Bridge) Events() *Queue[Event] { return b.events }

func (b *Bridge) Ready() <-chan struct{} { return b.events.Ready() }

// Drain returns every pending event without blocking.
func (b *Bridge) Drain() []Event { return b.events.Drain() }

// Apply moves the current session's status according to ev. Events from an
// earlier session are ignored.
func (b *Bridge) Apply(ev Event) {
	s := b.Current()
	if s == nil || ev.SessionID != s.id {
		return
	}
	switch ev.Kind {
	case EventConnected:
		s.setStatus(Connected)
	case EventClosed, EventError:
		s.setStatus(Closed)
	}
}
