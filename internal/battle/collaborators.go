package battle

import (
	"time"

	"github.com/sectorwars/battleclient/internal/roster"
)

// Simulation replays the server's results on the shared roster.
type Simulation interface {
	LoadResults(payload []byte) error
	BeforeTurn()
	ApplyTick(index int)
	AfterTurn()
	ApplyModuleStats()
	DeactivateUnpowerableModules()
}

// Presentation is the rendering and input side of the client.
type Presentation interface {
	// TryAcquireLock asks the UI to target-lock s. Refusal is not an error.
	TryAcquireLock(s *roster.Ship) bool
	ReleaseLock(s *roster.Ship)
	// Frame renders one frame and handles its input.
	Frame(view FrameView)
}

// FrameView is what the presentation layer sees each frame.
type FrameView struct {
	Turn      int
	Elapsed   time.Duration
	NextTick  int // first tick not yet replayed
	PlansSent bool
	Player    *roster.Ship // nil while the player has no ship in the roster
}
