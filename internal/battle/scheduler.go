package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sectorwars/battleclient/internal/core/event"
	"github.com/sectorwars/battleclient/internal/net/packet"
	"github.com/sectorwars/battleclient/internal/roster"
	"go.uber.org/zap"
)

// ErrNoTurn is returned by Tick when no turn has been started.
var ErrNoTurn = errors.New("no turn in progress")

// OutcomeKind says what the host loop should do after a frame.
type OutcomeKind int

const (
	Continue OutcomeKind = iota
	TurnConcluded
	SessionEnded
)

func (k OutcomeKind) String() string {
	switch k {
	case Continue:
		return "Continue"
	case TurnConcluded:
		return "TurnConcluded"
	case SessionEnded:
		return "SessionEnded"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// ExitReason is why a battle session ended.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitJump   // the player's ship left the battle
	ExitLogout // the host asked to close
)

func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "None"
	case ExitJump:
		return "Jump"
	case ExitLogout:
		return "Logout"
	default:
		return fmt.Sprintf("ExitReason(%d)", int(r))
	}
}

// Outcome is the result of one Scheduler.Tick.
type Outcome struct {
	Kind   OutcomeKind
	Reason ExitReason // set when Kind is SessionEnded
}

// FrameInput is the host's per-frame input.
type FrameInput struct {
	Now            time.Time
	CloseRequested bool
}

// Timing holds the turn's real-time thresholds.
type Timing struct {
	PlanDelay time.Duration // elapsed time at which plans go out
	ExitGrace time.Duration // elapsed time at which a final tick ends the session
}

func DefaultTiming() Timing {
	return Timing{PlanDelay: 2500 * time.Millisecond, ExitGrace: 5 * time.Second}
}

// Deps are the scheduler's collaborators.
type Deps struct {
	Transport    Transport
	Roster       *roster.Roster
	Simulation   Simulation
	Presentation Presentation
	Bus          *event.Bus
	Log          *zap.Logger
	Now          func() time.Time // defaults to time.Now
}

// Scheduler drives one battle session turn by turn. The host calls BeginTurn,
// then Tick once per rendered frame until Tick reports TurnConcluded (begin
// the next turn) or SessionEnded. Accessed only from the frame loop.
type Scheduler struct {
	timing    Timing
	transport Transport
	seq       *Sequencer
	sync      *RosterSync
	roster    *roster.Roster
	sim       Simulation
	present   Presentation
	bus       *event.Bus
	now       func() time.Time
	log       *zap.Logger

	clock   TickClock
	turn    *TurnState
	turnNo  int
	pending bool // a final tick arrived before the first turn
}

func NewScheduler(timing Timing, deps Deps) *Scheduler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		timing:    timing,
		transport: deps.Transport,
		seq:       NewSequencer(deps.Transport, deps.Log),
		sync:      NewRosterSync(deps.Roster, deps.Presentation, deps.Bus, deps.Log),
		roster:    deps.Roster,
		sim:       deps.Simulation,
		present:   deps.Presentation,
		bus:       deps.Bus,
		now:       now,
		log:       deps.Log,
	}
}

// TurnNumber is the number of the current or most recent turn, starting at 1.
func (s *Scheduler) TurnNumber() int { return s.turnNo }

// Turn returns the running turn's state, or nil between turns.
func (s *Scheduler) Turn() *TurnState { return s.turn }

// AwaitJoinTick consumes the tick marker that closes the turn running when
// the client joined.
func (s *Scheduler) AwaitJoinTick(ctx context.Context) error {
	tick, err := s.seq.AwaitTick(ctx)
	if err != nil {
		return err
	}
	if tick.Final {
		s.log.Info("joined on the final tick")
		s.pending = true
	}
	return nil
}

// BeginTurn starts a fresh turn. It blocks for the turn's pre-replay roster
// delta and results, applies them, and anchors the turn clock afterwards so
// the blocking time does not eat into replay.
func (s *Scheduler) BeginTurn(ctx context.Context) error {
	s.turnNo++
	ts := newTurnState(s.turnNo)
	ts.lastTickSeen = s.pending
	s.clock.Reset()

	for !ts.Received(packet.StageResults) {
		msg, err := s.seq.Fetch(ctx, ts)
		if err != nil {
			return s.fail(err)
		}
		if err := s.handle(ts, msg); err != nil {
			return s.fail(err)
		}
	}

	// Ships that were exploding or jumping last turn can no longer be targeted.
	s.roster.Each(func(ship *roster.Ship) {
		if ship.Exploding || ship.Jumping {
			s.present.ReleaseLock(ship)
		}
	})
	s.sim.BeforeTurn()

	ts.anchor = s.now()
	s.turn = ts
	event.Emit(s.bus, event.TurnStarted{Turn: ts.Number, Ships: s.roster.Len()})
	s.log.Debug("turn started", zap.Int("turn", ts.Number), zap.Int("ships", s.roster.Len()))
	return nil
}

// Tick runs one frame of the current turn.
func (s *Scheduler) Tick(in FrameInput) (Outcome, error) {
	ts := s.turn
	if ts == nil {
		return Outcome{}, ErrNoTurn
	}
	elapsed := ts.advance(in.Now)

	// Replay first so animation never waits on the network.
	if from, to, ok := s.clock.Due(elapsed); ok {
		s.replay(from, to)
	}

	// A final tick seen before the delay means no plan goes out this turn.
	if !ts.plansSent && !ts.lastTickSeen && elapsed >= s.timing.PlanDelay && !s.playerExploding() {
		s.sendPlans(ts)
	}

	concluded := false
	if !ts.lastTickSeen {
		msg, err := s.seq.Poll(ts)
		if err != nil {
			return Outcome{}, s.fail(err)
		}
		if msg != nil {
			if tick, ok := msg.(TickMarker); ok {
				if tick.Final {
					ts.lastTickSeen = true
					s.log.Info("final tick received", zap.Int("turn", ts.Number), zap.Duration("elapsed", elapsed))
				} else {
					concluded = ts.Complete()
				}
			} else if err := s.handle(ts, msg); err != nil {
				return Outcome{}, s.fail(err)
			}
		}
	}

	player, _ := s.roster.Player()
	s.present.Frame(FrameView{
		Turn:      ts.Number,
		Elapsed:   elapsed,
		NextTick:  s.clock.Next(),
		PlansSent: ts.plansSent,
		Player:    player,
	})

	if in.CloseRequested {
		return s.end(ExitLogout), nil
	}

	if concluded {
		if err := s.conclude(ts); err != nil {
			return Outcome{}, s.fail(err)
		}
		if s.playerJumping() {
			return s.end(ExitJump), nil
		}
		return Outcome{Kind: TurnConcluded}, nil
	}

	if ts.lastTickSeen && elapsed >= s.timing.ExitGrace {
		s.log.Info("leaving battle after final tick", zap.Int("turn", ts.Number))
		if err := s.conclude(ts); err != nil {
			return Outcome{}, s.fail(err)
		}
		return s.end(ExitJump), nil
	}

	if s.playerJumping() {
		return s.end(ExitJump), nil
	}
	return Outcome{Kind: Continue}, nil
}

// handle applies a pre-replay message immediately. The post-replay delta is
// checked for membership errors now and applied when the turn concludes.
func (s *Scheduler) handle(ts *TurnState, msg Inbound) error {
	switch m := msg.(type) {
	case ShipDelta:
		if m.Stage == DeltaPost {
			if err := s.sync.Check(m); err != nil {
				return err
			}
			ts.post = &m
			return nil
		}
		return s.sync.Apply(ts.Number, m)
	case SimResults:
		if err := s.sim.LoadResults(m.Payload); err != nil {
			return protocolErr(MalformedPacket, packet.StageResults, "simulation results rejected", err)
		}
		return nil
	case TickMarker:
		// Only reachable when a tick shows up during the blocking fetch,
		// which the sequencer already rejects.
		return protocolErr(OutOfOrderMessage, packet.StageTick, "tick marker before results", nil)
	default:
		return protocolErr(OutOfOrderMessage, ts.Expected(), fmt.Sprintf("unexpected %T", msg), nil)
	}
}

func (s *Scheduler) replay(from, to int) {
	for t := from; t <= to; t++ {
		s.sim.ApplyTick(t)
	}
}

func (s *Scheduler) sendPlans(ts *TurnState) {
	player, ok := s.roster.Player()
	if !ok {
		return
	}
	plan := PlanMessage{
		TargetSector: player.TargetSector,
		ModulePlans:  player.ModulePlans(),
	}
	s.transport.Send(EncodePlan(plan))
	ts.plansSent = true
	s.log.Info("sent plans",
		zap.Int("turn", ts.Number),
		zap.Duration("elapsed", ts.elapsed),
		zap.Uint32("sector", plan.TargetSector),
	)
	event.Emit(s.bus, event.PlanSent{
		Turn:    ts.Number,
		Elapsed: ts.elapsed,
		Sector:  plan.TargetSector,
		Modules: len(plan.ModulePlans),
	})
}

// conclude finishes replay and runs post-turn cleanup.
func (s *Scheduler) conclude(ts *TurnState) error {
	if from, to, ok := s.clock.Flush(); ok {
		s.replay(from, to)
	}

	s.sim.AfterTurn()
	s.sim.ApplyModuleStats()
	s.sim.DeactivateUnpowerableModules()

	exploding := 0
	s.roster.Each(func(ship *roster.Ship) {
		if ship.HP == 0 {
			ship.Exploding = true
			exploding++
		}
	})

	if ts.post != nil {
		if err := s.sync.Apply(ts.Number, *ts.post); err != nil {
			return err
		}
	}

	event.Emit(s.bus, event.TurnConcluded{Turn: ts.Number, Elapsed: ts.elapsed, Exploding: exploding})
	s.log.Debug("turn concluded", zap.Int("turn", ts.Number), zap.Duration("elapsed", ts.elapsed))
	s.turn = nil
	s.pending = false
	return nil
}

func (s *Scheduler) end(reason ExitReason) Outcome {
	s.log.Info("battle session ended", zap.Int("turn", s.turnNo), zap.Stringer("reason", reason))
	event.Emit(s.bus, event.SessionEnded{Turn: s.turnNo, Reason: reason.String()})
	s.turn = nil
	return Outcome{Kind: SessionEnded, Reason: reason}
}

func (s *Scheduler) fail(err error) error {
	s.log.Error("battle aborted", zap.Int("turn", s.turnNo), zap.Error(err))
	event.Emit(s.bus, event.SessionEnded{Turn: s.turnNo, Reason: "ProtocolError", Err: err})
	s.turn = nil
	return err
}

// playerExploding treats a player without a ship as exploding: there is
// nothing to plan for.
func (s *Scheduler) playerExploding() bool {
	p, ok := s.roster.Player()
	return !ok || p.Exploding
}

func (s *Scheduler) playerJumping() bool {
	p, ok := s.roster.Player()
	return ok && p.Jumping
}
