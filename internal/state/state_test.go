package state

import (
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestConnectionLifecycle(t *testing.T) {
	s, clock := openTest(t)

	if err := s.RecordStart("a1", "web", "10.0.0.5", "deploy", 22); err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(2 * time.Second)
	if err := s.MarkConnected("a1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBytes("a1", 1500); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBytes("a1", 500); err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(time.Minute)
	if err := s.MarkEnded("a1", ""); err != nil {
		t.Fatal(err)
	}

	conns, err := s.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 1 {
		t.Fatalf("Recent() = %d rows, want 1", len(conns))
	}
	c := conns[0]
	if c.HostName != "web" || c.Address != "10.0.0.5" || c.User != "deploy" || c.Port != 22 {
		t.Errorf("row = %+v", c)
	}
	if c.Status != "closed" || c.BytesIn != 2000 || c.LastError != "" {
		t.Errorf("status/bytes/error = %q/%d/%q", c.Status, c.BytesIn, c.LastError)
	}
	if got := c.Duration(time.Time{}); got != time.Minute {
		t.Errorf("Duration() = %v, want 1m", got)
	}
	if !c.StartedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("StartedAt = %v", c.StartedAt)
	}
}

func TestMarkEndedOnlyOnce(t *testing.T) {
	s, clock := openTest(t)
	s.RecordStart("b1", "db", "db.internal", "root", 2222)
	if err := s.MarkEnded("b1", "exit status 255"); err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(time.Hour)
	if err := s.MarkEnded("b1", ""); err != nil {
		t.Fatal(err)
	}

	conns, _ := s.Recent(1)
	if conns[0].Status != "failed" || conns[0].LastError != "exit status 255" {
		t.Errorf("row = %+v, want first end to stick", conns[0])
	}
	if !conns[0].ConnectedAt.IsZero() || conns[0].Duration(*clock) != 0 {
		t.Errorf("never-connected row has ConnectedAt %v", conns[0].ConnectedAt)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s, clock := openTest(t)
	for _, id := range []string{"c1", "c2", "c3"} {
		s.RecordStart(id, "host-"+id, "", "", 22)
		*clock = clock.Add(time.Second)
	}
	conns, err := s.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 2 || conns[0].ID != "c3" || conns[1].ID != "c2" {
		t.Errorf("Recent(2) = %+v", conns)
	}
}

func TestLastConnected(t *testing.T) {
	s, clock := openTest(t)
	s.RecordStart("d1", "web", "w", "u", 22)
	s.MarkConnected("d1")
	first := *clock
	*clock = clock.Add(time.Hour)
	s.RecordStart("d2", "web", "w", "u", 22)
	s.MarkConnected("d2")
	s.RecordStart("d3", "db", "d", "u", 22)

	last, err := s.LastConnected()
	if err != nil {
		t.Fatal(err)
	}
	if !last["web"].Equal(first.Add(time.Hour)) {
		t.Errorf("web last connected = %v", last["web"])
	}
	if _, ok := last["db"]; ok {
		t.Error("db never connected but has an entry")
	}
}

func TestCloseDangling(t *testing.T) {
	s, _ := openTest(t)
	s.RecordStart("e1", "web", "w", "u", 22)
	s.RecordStart("e2", "web", "w", "u", 22)
	s.MarkEnded("e2", "")

	n, err := s.CloseDangling()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CloseDangling() = %d, want 1", n)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	s.RecordStart("f1", "web", "w", "u", 22)
	s.Close()

	s, err = OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	conns, err := s.Recent(5)
	if err != nil || len(conns) != 1 {
		t.Errorf("Recent after reopen = %+v, %v", conns, err)
	}
}
