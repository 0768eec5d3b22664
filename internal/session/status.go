package session

import (
	"errors"
	"fmt"
)

type Status int

const (
	Idle       Status = iota // no session yet
	Connecting               // process spawned, no output seen
	Connected                // first output received
	Closed                   // terminal; a new Connect builds a new session
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "idle"
	}
}

var (
	ErrNotConnected  = errors.New("session: not connected")
	ErrSessionActive = errors.New("session: a session is already active")
)

// SpawnError reports that the session process could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IoError reports a failed read or write on the PTY.
type IoError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("pty %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

type EventKind int

const (
	EventConnected EventKind = iota
	EventData
	EventClosed
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventData:
		return "data"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is produced by a session's reader and writer goroutines and consumed
// by the host loop. Data is owned by the receiver.
type Event struct {
	Kind      EventKind
	SessionID string
	Data      []byte
	Err       error // set for EventError; for EventClosed, the exit status if any
}
