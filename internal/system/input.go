package system

import (
	"time"

	"github.com/sectorwars/battleclient/internal/core/event"
	coresys "github.com/sectorwars/battleclient/internal/core/system"
)

// InputSystem delivers last frame's events to subscribers before the battle
// system runs. Phase 0 (Input).
type InputSystem struct {
	bus *event.Bus
}

func NewInputSystem(bus *event.Bus) *InputSystem {
	return &InputSystem{bus: bus}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.bus.Flush()
}
