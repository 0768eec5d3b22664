package session

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// Host is the connection record a session is opened for.
type Host struct {
	Name    string
	Address string // empty means a local shell
	User    string
	Port    int
	Key     string // private key path, already expanded
}

// Target returns user@address, or just the address when no user is set.
func (h Host) Target() string {
	if h.User == "" {
		return h.Address
	}
	return h.User + "@" + h.Address
}

// Size is a terminal size in character cells.
type Size struct {
	Cols int
	Rows int
}

func (s Size) winsize() *pty.Winsize {
	return &pty.Winsize{Cols: clampUint16(s.Cols), Rows: clampUint16(s.Rows)}
}

func clampUint16(n int) uint16 {
	return uint16(min(max(n, 0), 0xFFFF))
}

// Command is a process to run on a PTY.
type Command struct {
	Path string
	Args []string
	Env  []string // appended to the current environment
	Dir  string
}

// Session is one spawned process attached to a PTY. The write handle is
// guarded by mu, which may be held across a blocking PTY write, and is
// dropped exactly once. Status is atomic so the host loop never waits on a
// write. Reads are done by a single reader goroutine and are not guarded.
type Session struct {
	id   string
	host Host

	r      io.Reader
	closer io.Closer
	resize func(Size) error
	cmd    *exec.Cmd

	status atomic.Int32

	mu sync.Mutex
	w  io.Writer

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	waitErr   error
	done      chan struct{}
	endOnce   sync.Once
}

func newSession(host Host, tty io.ReadWriteCloser) *Session {
	s := &Session{
		id:     uuid.NewString(),
		host:   host,
		r:      tty,
		w:      tty,
		closer: tty,
		done:   make(chan struct{}),
	}
	s.status.Store(int32(Connecting))
	return s
}

// Spawn starts c on a new PTY of the given size. The session starts in
// Connecting; it becomes Connected when the host loop applies the first
// EventConnected.
func Spawn(host Host, c Command, size Size) (*Session, error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, &SpawnError{Command: c.Path, Err: err}
	}

	cmd := exec.Command(path, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Dir = c.Dir

	ptmx, err := pty.StartWithSize(cmd, size.winsize())
	if err != nil {
		return nil, &SpawnError{Command: c.Path, Err: err}
	}

	s := newSession(host, ptmx)
	s.cmd = cmd
	s.resize = func(sz Size) error {
		return pty.Setsize(ptmx, sz.winsize())
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }
func (s *Session) Host() Host { return s.host }

func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// setStatus moves the session forward. Closed is terminal and Connected is
// only reachable from Connecting.
func (s *Session) setStatus(st Status) {
	for {
		cur := Status(s.status.Load())
		if cur == Closed || (st == Connected && cur != Connecting) {
			return
		}
		if s.status.CompareAndSwap(int32(cur), int32(st)) {
			return
		}
	}
}

// Write sends p to the process. It fails with ErrNotConnected unless the
// session is Connected and still holds its write handle. It blocks while
// the PTY does not accept input; Close unblocks it.
func (s *Session) Write(p []byte) error {
	if s.Status() != Connected {
		return ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return ErrNotConnected
	}
	if _, err := s.w.Write(p); err != nil {
		if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			return ErrNotConnected
		}
		return &IoError{Op: "write", Err: err}
	}
	return nil
}

// Resize changes the PTY window size.
func (s *Session) Resize(size Size) error {
	if s.resize == nil || s.Status() == Closed {
		return nil
	}
	return s.resize(size)
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ExitErr returns the process exit status once the session is closed.
func (s *Session) ExitErr() error {
	select {
	case <-s.done:
		return s.waitErr
	default:
		return nil
	}
}

// Close tears the session down. It is safe to call more than once and from
// any goroutine; only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.status.Store(int32(Closed))

		// Closing the master first unblocks a writer stuck in Write
		// before we take the lock.
		s.closeErr = s.closer.Close()
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}

		s.mu.Lock()
		s.w = nil
		s.mu.Unlock()

		if s.cmd != nil {
			s.waitErr = s.cmd.Wait()
			if isKilled(s.waitErr) {
				s.waitErr = nil
			}
		}
		close(s.done)
	})
	return s.closeErr
}

// isKilled reports whether err is the exit status of a process ended by a
// signal, which is what Close's Kill produces.
func isKilled(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return exitErr.ExitCode() == -1
}
