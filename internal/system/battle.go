package system

import (
	"context"
	"time"

	"github.com/sectorwars/battleclient/internal/battle"
	coresys "github.com/sectorwars/battleclient/internal/core/system"
	"go.uber.org/zap"
)

// BattleSystem drives the turn scheduler once per frame and starts the next
// turn after one concludes. Phase 1 (Battle).
type BattleSystem struct {
	ctx   context.Context
	sched *battle.Scheduler
	loop  *Loop
	now   func() time.Time
	log   *zap.Logger

	turns int
}

func NewBattleSystem(ctx context.Context, sched *battle.Scheduler, loop *Loop, log *zap.Logger) *BattleSystem {
	return &BattleSystem{ctx: ctx, sched: sched, loop: loop, now: time.Now, log: log}
}

func (s *BattleSystem) Phase() coresys.Phase { return coresys.PhaseBattle }

// Turns is the number of turns concluded so far.
func (s *BattleSystem) Turns() int { return s.turns }

func (s *BattleSystem) Update(_ time.Duration) {
	if s.loop.Done() {
		return
	}
	if s.sched.Turn() == nil {
		if s.loop.CloseRequested() {
			s.loop.finish(battle.Outcome{Kind: battle.SessionEnded, Reason: battle.ExitLogout}, nil)
			return
		}
		// Blocks until the server has sent the turn's opening messages.
		if err := s.sched.BeginTurn(s.ctx); err != nil {
			s.loop.finish(battle.Outcome{}, err)
			return
		}
	}

	out, err := s.sched.Tick(battle.FrameInput{Now: s.now(), CloseRequested: s.loop.CloseRequested()})
	if err != nil {
		s.loop.finish(battle.Outcome{}, err)
		return
	}
	switch out.Kind {
	case battle.TurnConcluded:
		s.turns++
	case battle.SessionEnded:
		s.log.Info("session finished", zap.Stringer("reason", out.Reason), zap.Int("turns", s.turns))
		s.loop.finish(out, nil)
	}
}
