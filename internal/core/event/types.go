package event

import (
	"time"

	"github.com/sectorwars/battleclient/internal/roster"
)

// Battle event types emitted by the turn scheduler.

type TurnStarted struct {
	Turn  int
	Ships int
}

type ShipAdded struct {
	Turn    int
	ID      roster.ShipID
	Name    string
	Respawn bool // the local player's ship was replaced
}

type ShipRemoved struct {
	Turn int
	ID   roster.ShipID
}

type PlanSent struct {
	Turn    int
	Elapsed time.Duration
	Sector  uint32
	Modules int
}

type TurnConcluded struct {
	Turn      int
	Elapsed   time.Duration
	Exploding int
}

type SessionEnded struct {
	Turn   int
	Reason string
	Err    error
}
