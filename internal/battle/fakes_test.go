package battle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sectorwars/battleclient/internal/core/event"
	"github.com/sectorwars/battleclient/internal/roster"
	"go.uber.org/zap/zaptest"
)

var errDrained = errors.New("fake transport drained")

type fakeTransport struct {
	in       [][]byte
	sent     [][]byte
	flushes  int
	flushErr error
}

func (f *fakeTransport) push(frames ...[]byte) { f.in = append(f.in, frames...) }

func (f *fakeTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.in) == 0 {
		return nil, errDrained
	}
	data := f.in[0]
	f.in = f.in[1:]
	return data, nil
}

func (f *fakeTransport) TryReceive() ([]byte, bool, error) {
	if len(f.in) == 0 {
		return nil, false, nil
	}
	data := f.in[0]
	f.in = f.in[1:]
	return data, true, nil
}

func (f *fakeTransport) Send(data []byte) { f.sent = append(f.sent, data) }

func (f *fakeTransport) FlushOutput() error {
	f.flushes++
	return f.flushErr
}

// fakeSim records the calls the scheduler makes, in order.
type fakeSim struct {
	roster  *roster.Roster
	ticks   []int
	calls   []string
	results [][]byte
	loadErr error

	// shipsAtAfterTurn is the roster size seen by AfterTurn.
	shipsAtAfterTurn int
}

func (s *fakeSim) LoadResults(payload []byte) error {
	s.calls = append(s.calls, "load")
	s.results = append(s.results, payload)
	return s.loadErr
}

func (s *fakeSim) BeforeTurn()         { s.calls = append(s.calls, "before") }
func (s *fakeSim) ApplyTick(index int) { s.ticks = append(s.ticks, index) }

func (s *fakeSim) AfterTurn() {
	s.calls = append(s.calls, "after")
	if s.roster != nil {
		s.shipsAtAfterTurn = s.roster.Len()
	}
}

func (s *fakeSim) ApplyModuleStats()             { s.calls = append(s.calls, "stats") }
func (s *fakeSim) DeactivateUnpowerableModules() { s.calls = append(s.calls, "deactivate") }

type fakePresent struct {
	locks    map[roster.ShipID]bool
	released []roster.ShipID
	frames   []FrameView
	refuse   bool
}

func newFakePresent() *fakePresent {
	return &fakePresent{locks: make(map[roster.ShipID]bool)}
}

func (p *fakePresent) TryAcquireLock(s *roster.Ship) bool {
	if p.refuse {
		return false
	}
	p.locks[s.ID] = true
	return true
}

func (p *fakePresent) ReleaseLock(s *roster.Ship) {
	delete(p.locks, s.ID)
	p.released = append(p.released, s.ID)
}

func (p *fakePresent) Frame(view FrameView) { p.frames = append(p.frames, view) }

const playerID roster.ShipID = 1

func ship(id roster.ShipID, hp int) roster.Ship {
	return roster.Ship{ID: id, Name: "ship", HP: hp, MaxHP: 100, TargetSector: 7}
}

func newTestRoster(t *testing.T, ships ...roster.Ship) *roster.Roster {
	t.Helper()
	r := roster.New(playerID)
	for i := range ships {
		s := ships[i]
		if _, err := r.Insert(&s); err != nil {
			t.Fatalf("Insert(%d): %v", s.ID, err)
		}
	}
	return r
}

type harness struct {
	transport *fakeTransport
	roster    *roster.Roster
	sim       *fakeSim
	present   *fakePresent
	bus       *event.Bus
	sched     *Scheduler
	start     time.Time
}

func newHarness(t *testing.T, ships ...roster.Ship) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{},
		roster:    newTestRoster(t, ships...),
		present:   newFakePresent(),
		bus:       event.NewBus(),
		start:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.sim = &fakeSim{roster: h.roster}
	h.sched = NewScheduler(DefaultTiming(), Deps{
		Transport:    h.transport,
		Roster:       h.roster,
		Simulation:   h.sim,
		Presentation: h.present,
		Bus:          h.bus,
		Log:          zaptest.NewLogger(t),
		Now:          func() time.Time { return h.start },
	})
	return h
}

// begin queues the turn's pre delta and results and starts the turn.
func (h *harness) begin(t *testing.T, pre ShipDelta) {
	t.Helper()
	pre.Stage = DeltaPre
	h.transport.push(EncodeShipDelta(pre), EncodeSimResults([]byte{1, 2, 3}))
	if err := h.sched.BeginTurn(context.Background()); err != nil {
		t.Fatalf("BeginTurn: %v", err)
	}
}

func (h *harness) tick(t *testing.T, at time.Duration) Outcome {
	t.Helper()
	out, err := h.sched.Tick(FrameInput{Now: h.start.Add(at)})
	if err != nil {
		t.Fatalf("Tick(%s): %v", at, err)
	}
	return out
}

func assertTicks(t *testing.T, got []int, from, to int) {
	t.Helper()
	if len(got) != to-from+1 {
		t.Fatalf("replayed %d ticks, want %d (%d..%d): %v", len(got), to-from+1, from, to, got)
	}
	for i, tick := range got {
		if tick != from+i {
			t.Fatalf("tick[%d] = %d, want %d", i, tick, from+i)
		}
	}
}

func assertCause(t *testing.T, err error, want Cause) {
	t.Helper()
	got, ok := CauseOf(err)
	if !ok {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
	if got != want {
		t.Fatalf("cause = %s, want %s (%v)", got, want, err)
	}
}
