package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/battleclient/internal/config"
	"github.com/sectorwars/battleclient/internal/core/event"
	"go.uber.org/zap"
)

// Entry is one journal line.
type Entry struct {
	Session uuid.UUID `json:"session"`
	Turn    int       `json:"turn"`
	Kind    string    `json:"kind"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Sink stores journal batches.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
	Close() error
}

const (
	maxBatch     = 64
	writeTimeout = 5 * time.Second
)

// Journal records battle events off the frame loop. Record buffers on the
// loop and Flush hands the buffer to the writer goroutine without blocking;
// entries that do not fit in the queue are dropped and counted.
type Journal struct {
	session uuid.UUID
	sink    Sink
	pending []Entry
	queue   chan Entry
	done    chan struct{}
	log     *zap.Logger

	closeOnce sync.Once
	dropped   int
}

// NewJournal starts the background writer.
func NewJournal(sink Sink, queueSize int, log *zap.Logger) *Journal {
	j := &Journal{
		session: uuid.New(),
		sink:    sink,
		queue:   make(chan Entry, queueSize),
		done:    make(chan struct{}),
	}
	j.log = log.With(zap.String("session", j.session.String()))
	go j.writeLoop()
	return j
}

// Open builds the journal selected by cfg. It returns nil for the "none" sink.
func Open(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*Journal, error) {
	var sink Sink
	switch cfg.Sink {
	case "none", "":
		return nil, nil
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db.Pool, log); err != nil {
			db.Close()
			return nil, err
		}
		sink = NewJournalRepo(db)
	case "file":
		sink = NewFileJournal(cfg.Dir, "battle")
	default:
		return nil, fmt.Errorf("unknown journal sink %q", cfg.Sink)
	}
	return NewJournal(sink, cfg.QueueSize, log), nil
}

func (j *Journal) Session() uuid.UUID { return j.session }

// Dropped is the number of entries lost to a full queue.
func (j *Journal) Dropped() int { return j.dropped }

// Record buffers an entry. Frame loop only.
func (j *Journal) Record(turn int, kind, detail string) {
	j.pending = append(j.pending, Entry{Session: j.session, Turn: turn, Kind: kind, Detail: detail, At: time.Now().UTC()})
}

// Flush hands buffered entries to the writer. Frame loop only.
func (j *Journal) Flush() {
	for _, e := range j.pending {
		select {
		case j.queue <- e:
		default:
			j.dropped++
			if j.dropped == 1 || j.dropped%100 == 0 {
				j.log.Warn("journal queue full, entry dropped", zap.Int("dropped", j.dropped))
			}
		}
	}
	j.pending = j.pending[:0]
}

// Subscribe records battle events as they are dispatched.
func (j *Journal) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(e event.TurnStarted) {
		j.Record(e.Turn, "turn_started", fmt.Sprintf("ships=%d", e.Ships))
	})
	event.Subscribe(bus, func(e event.ShipAdded) {
		kind := "ship_added"
		if e.Respawn {
			kind = "player_respawned"
		}
		j.Record(e.Turn, kind, fmt.Sprintf("ship=%d name=%s", e.ID, e.Name))
	})
	event.Subscribe(bus, func(e event.ShipRemoved) {
		j.Record(e.Turn, "ship_removed", fmt.Sprintf("ship=%d", e.ID))
	})
	event.Subscribe(bus, func(e event.PlanSent) {
		j.Record(e.Turn, "plan_sent", fmt.Sprintf("sector=%d modules=%d elapsed=%s", e.Sector, e.Modules, e.Elapsed))
	})
	event.Subscribe(bus, func(e event.TurnConcluded) {
		j.Record(e.Turn, "turn_concluded", fmt.Sprintf("exploding=%d elapsed=%s", e.Exploding, e.Elapsed))
	})
	event.Subscribe(bus, func(e event.SessionEnded) {
		detail := "reason=" + e.Reason
		if e.Err != nil {
			detail += " err=" + e.Err.Error()
		}
		j.Record(e.Turn, "session_ended", detail)
	})
}

// Close flushes, drains the queue and closes the sink.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		j.Flush()
		close(j.queue)
		<-j.done
		err = j.sink.Close()
	})
	return err
}

func (j *Journal) writeLoop() {
	defer close(j.done)
	batch := make([]Entry, 0, maxBatch)
	for e := range j.queue {
		batch = append(batch[:0], e)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-j.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		j.flush(batch)
	}
}

func (j *Journal) flush(batch []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := j.sink.Write(ctx, batch); err != nil {
		j.log.Error("journal write failed", zap.Int("entries", len(batch)), zap.Error(err))
		return
	}
	j.log.Debug("journal flushed", zap.Int("entries", len(batch)))
}
