package battle

import (
	"time"

	"github.com/sectorwars/battleclient/internal/net/packet"
)

// inboundStages lists the per-turn messages in the order they must arrive.
var inboundStages = [4]packet.Stage{
	packet.StageShipsPre,
	packet.StageResults,
	packet.StageShipsPost,
	packet.StageTick,
}

// TurnState lives for exactly one turn and is owned by the Scheduler.
type TurnState struct {
	Number int

	received     [4]bool // indexed like inboundStages
	plansSent    bool
	lastTickSeen bool

	anchor  time.Time
	elapsed time.Duration

	post *ShipDelta // held until tick replay is complete
}

func newTurnState(number int) *TurnState {
	return &TurnState{Number: number}
}

// Expected is the stage of the next message this turn accepts. Tick markers
// repeat, so once the three data messages are in the answer stays StageTick.
func (t *TurnState) Expected() packet.Stage {
	for i, stage := range inboundStages[:3] {
		if !t.received[i] {
			return stage
		}
	}
	return packet.StageTick
}

func (t *TurnState) markReceived(stage packet.Stage) {
	for i, s := range inboundStages {
		if s == stage {
			t.received[i] = true
			return
		}
	}
}

// Received reports whether the message for stage has been consumed.
func (t *TurnState) Received(stage packet.Stage) bool {
	for i, s := range inboundStages {
		if s == stage {
			return t.received[i]
		}
	}
	return false
}

// Complete reports whether all four per-turn messages have been consumed.
func (t *TurnState) Complete() bool {
	return t.received == [4]bool{true, true, true, true}
}

func (t *TurnState) PlansSent() bool        { return t.plansSent }
func (t *TurnState) LastTickSeen() bool     { return t.lastTickSeen }
func (t *TurnState) Elapsed() time.Duration { return t.elapsed }

// advance recomputes elapsed from the turn anchor. Elapsed never moves
// backwards even if the host clock does.
func (t *TurnState) advance(now time.Time) time.Duration {
	if e := now.Sub(t.anchor); e > t.elapsed {
		t.elapsed = e
	}
	return t.elapsed
}
