package system

import (
	"fmt"
	"time"

	"github.com/sectorwars/battleclient/internal/battle"
	coresys "github.com/sectorwars/battleclient/internal/core/system"
)

// Flusher pushes a frame's buffered packets to the network.
type Flusher interface {
	FlushOutput() error
}

// OutputSystem flushes packets queued during the frame. Phase 2 (Output).
type OutputSystem struct {
	out  Flusher
	loop *Loop
}

func NewOutputSystem(out Flusher, loop *Loop) *OutputSystem {
	return &OutputSystem{out: out, loop: loop}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	if err := s.out.FlushOutput(); err != nil {
		// A logout frame still flushes; losing the connection then is not an error.
		if out, _ := s.loop.Result(); s.loop.Done() && out.Reason == battle.ExitLogout {
			return
		}
		s.loop.finish(battle.Outcome{}, fmt.Errorf("flush output: %w", err))
	}
}
