package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS connections (
    id           TEXT PRIMARY KEY,
    host_name    TEXT NOT NULL,
    address      TEXT NOT NULL DEFAULT '',
    user         TEXT NOT NULL DEFAULT '',
    port         INTEGER NOT NULL DEFAULT 22,
    status       TEXT NOT NULL DEFAULT 'connecting',
    bytes_in     INTEGER NOT NULL DEFAULT 0,
    last_error   TEXT NOT NULL DEFAULT '',
    started_at   TEXT NOT NULL,
    connected_at TEXT,
    ended_at     TEXT
);
CREATE INDEX IF NOT EXISTS connections_started ON connections (started_at);
`

const timeLayout = "2006-01-02 15:04:05.000"

// Store wraps a SQLite database holding connection history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDir returns $XDG_STATE_HOME/sshtui, falling back to
// ~/.local/state/sshtui.
func DefaultDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "sshtui"), nil
}

// Open creates or opens the state database at DefaultDir()/state.db.
func Open() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return OpenPath(filepath.Join(dir, "state.db"))
}

// OpenPath creates or opens the state database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode for safe concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (ignore errors for already-existing columns)
	for _, m := range []string{
		"ALTER TABLE connections ADD COLUMN bytes_in INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE connections ADD COLUMN last_error TEXT NOT NULL DEFAULT ''",
	} {
		db.Exec(m) //nolint:errcheck
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

// Connection is one row of history.
type Connection struct {
	ID          string
	HostName    string
	Address     string
	User        string
	Port        int
	Status      string // connecting, connected, closed, failed
	BytesIn     int64
	LastError   string
	StartedAt   time.Time
	ConnectedAt time.Time // zero if never connected
	EndedAt     time.Time // zero while open
}

// Duration returns how long the connection was up, measured to now while
// it is still open.
func (c Connection) Duration(now time.Time) time.Duration {
	if c.ConnectedAt.IsZero() {
		return 0
	}
	end := c.EndedAt
	if end.IsZero() {
		end = now
	}
	return end.Sub(c.ConnectedAt)
}

// RecordStart inserts a row for a newly spawned session.
func (s *Store) RecordStart(id, hostName, address, user string, port int) error {
	_, err := s.db.Exec(`
		INSERT INTO connections (id, host_name, address, user, port, status, started_at)
		VALUES (?, ?, ?, ?, ?, 'connecting', ?)
		ON CONFLICT(id) DO UPDATE SET
			host_name = excluded.host_name,
			address = excluded.address,
			user = excluded.user,
			port = excluded.port,
			started_at = excluded.started_at
	`, id, hostName, address, user, port, s.stamp())
	return err
}

// MarkConnected records the first output of a session.
func (s *Store) MarkConnected(id string) error {
	_, err := s.db.Exec(`
		UPDATE connections SET status = 'connected', connected_at = ?
		WHERE id = ? AND connected_at IS NULL
	`, s.stamp(), id)
	return err
}

// AddBytes adds n to the received byte counter.
func (s *Store) AddBytes(id string, n int64) error {
	_, err := s.db.Exec(`UPDATE connections SET bytes_in = bytes_in + ? WHERE id = ?`, n, id)
	return err
}

// MarkEnded closes the row. A non-empty errMsg marks it failed.
func (s *Store) MarkEnded(id, errMsg string) error {
	status := "closed"
	if errMsg != "" {
		status = "failed"
	}
	_, err := s.db.Exec(`
		UPDATE connections SET status = ?, last_error = ?, ended_at = ?
		WHERE id = ? AND ended_at IS NULL
	`, status, errMsg, s.stamp(), id)
	return err
}

// Recent returns up to limit connections, newest first.
func (s *Store) Recent(limit int) ([]Connection, error) {
	rows, err := s.db.Query(`
		SELECT id, host_name, address, user, port, status, bytes_in, last_error,
			started_at, COALESCE(connected_at, ''), COALESCE(ended_at, '')
		FROM connections
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Connection
	for rows.Next() {
		var c Connection
		var started, connected, ended string
		if err := rows.Scan(&c.ID, &c.HostName, &c.Address, &c.User, &c.Port, &c.Status,
			&c.BytesIn, &c.LastError, &started, &connected, &ended); err != nil {
			return nil, err
		}
		c.StartedAt = parseTime(started)
		c.ConnectedAt = parseTime(connected)
		c.EndedAt = parseTime(ended)
		result = append(result, c)
	}
	return result, rows.Err()
}

// LastConnected returns when each host last reached Connected.
func (s *Store) LastConnected() (map[string]time.Time, error) {
	rows, err := s.db.Query(`
		SELECT host_name, MAX(connected_at) FROM connections
		WHERE connected_at IS NOT NULL
		GROUP BY host_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var name, at string
		if err := rows.Scan(&name, &at); err != nil {
			return nil, err
		}
		result[name] = parseTime(at)
	}
	return result, rows.Err()
}

// CloseDangling marks rows left open by a crashed run as closed.
func (s *Store) CloseDangling() (int64, error) {
	res, err := s.db.Exec(`
		UPDATE connections SET status = 'closed', ended_at = ?
		WHERE ended_at IS NULL
	`, s.stamp())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
