package persist

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sectorwars/battleclient/internal/core/event"
	"go.uber.org/zap/zaptest"
)

type memSink struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
	err     error
}

func (s *memSink) Write(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestJournalRecordsEvents(t *testing.T) {
	sink := &memSink{}
	j := NewJournal(sink, 16, zaptest.NewLogger(t))
	bus := event.NewBus()
	j.Subscribe(bus)

	event.Emit(bus, event.TurnStarted{Turn: 1, Ships: 3})
	event.Emit(bus, event.ShipAdded{Turn: 1, ID: 1, Respawn: true})
	event.Emit(bus, event.SessionEnded{Turn: 1, Reason: "Logout"})
	bus.Flush()

	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !sink.closed {
		t.Error("sink not closed")
	}
	if len(sink.entries) != 3 {
		t.Fatalf("entries = %+v", sink.entries)
	}
	kinds := []string{"turn_started", "player_respawned", "session_ended"}
	for i, want := range kinds {
		e := sink.entries[i]
		if e.Kind != want || e.Session != j.Session() || e.Turn != 1 {
			t.Errorf("entry %d = %+v, want kind %s", i, e, want)
		}
	}
}

func TestJournalDropsWhenFull(t *testing.T) {
	sink := &memSink{}
	j := &Journal{sink: sink, queue: make(chan Entry, 1), done: make(chan struct{}), log: zaptest.NewLogger(t)}
	j.Record(1, "a", "")
	j.Record(1, "b", "")
	j.Flush()
	if j.Dropped() != 1 {
		t.Errorf("Dropped = %d", j.Dropped())
	}
	go j.writeLoop()
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
	if len(sink.entries) != 1 || sink.entries[0].Kind != "a" {
		t.Errorf("entries = %+v", sink.entries)
	}
}

func TestJournalSinkErrorIsNotFatal(t *testing.T) {
	sink := &memSink{err: errors.New("db down")}
	j := NewJournal(sink, 4, zaptest.NewLogger(t))
	j.Record(1, "turn_started", "")
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFileJournal(t *testing.T) {
	dir := t.TempDir()
	fj := NewFileJournal(dir, "battle")
	fj.now = func() time.Time { return time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC) }

	in := []Entry{
		{Turn: 1, Kind: "turn_started", At: time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC)},
		{Turn: 1, Kind: "plan_sent", Detail: "sector=3"},
	}
	if err := fj.Write(context.Background(), in[:1]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fj.Write(context.Background(), in[1:]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fj.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "battle-2024-05-01-13.jsonl.zst"))
	if err != nil {
		t.Fatalf("open journal file: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	var got []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Kind != "turn_started" || got[1].Detail != "sector=3" {
		t.Errorf("entries = %+v", got)
	}
}
