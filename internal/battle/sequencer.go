package battle

import (
	"context"
	"fmt"

	"github.com/sectorwars/battleclient/internal/net/packet"
	"go.uber.org/zap"
)

// Transport is the raw packet source and sink used by the battle core.
// Receive blocks; TryReceive never does.
type Transport interface {
	Receive(ctx context.Context) ([]byte, error)
	TryReceive() (data []byte, ok bool, err error)
	Send(data []byte)
}

// Sequencer hands out a turn's inbound messages strictly in protocol order:
// ShipDelta(pre), SimResults, ShipDelta(post), then TickMarkers. It has a
// blocking mode for the turn-start fetch and a polling mode for the frame loop.
type Sequencer struct {
	transport Transport
	registry  *packet.Registry
	log       *zap.Logger
}

func NewSequencer(t Transport, log *zap.Logger) *Sequencer {
	return &Sequencer{
		transport: t,
		registry:  registerDecoders(packet.NewRegistry(log)),
		log:       log,
	}
}

// Fetch blocks until the next expected message of turn arrives.
func (q *Sequencer) Fetch(ctx context.Context, turn *TurnState) (Inbound, error) {
	stage := turn.Expected()
	data, err := q.transport.Receive(ctx)
	if err != nil {
		return nil, protocolErr(TransportFailure, stage, "blocking receive", err)
	}
	return q.accept(turn, stage, data)
}

// Poll returns the next expected message of turn if one is queued, or nil.
func (q *Sequencer) Poll(turn *TurnState) (Inbound, error) {
	stage := turn.Expected()
	data, ok, err := q.transport.TryReceive()
	if err != nil {
		return nil, protocolErr(TransportFailure, stage, "poll", err)
	}
	if !ok {
		return nil, nil
	}
	return q.accept(turn, stage, data)
}

// accept decodes data against the expected stage. Out-of-order or malformed
// packets leave turn untouched.
func (q *Sequencer) accept(turn *TurnState, stage packet.Stage, data []byte) (Inbound, error) {
	msg, err := q.registry.Decode(stage, data)
	if err != nil {
		return nil, decodeErr(stage, err)
	}
	in, ok := msg.(Inbound)
	if !ok {
		return nil, protocolErr(OutOfOrderMessage, stage, fmt.Sprintf("unexpected %T", msg), nil)
	}
	turn.markReceived(stage)
	q.log.Debug("message consumed",
		zap.Int("turn", turn.Number),
		zap.Stringer("stage", stage),
		zap.String("kind", fmt.Sprintf("%T", in)),
	)
	return in, nil
}

// AwaitTick blocks for a tick marker outside any turn. Used once on join when
// the server already sent the running turn's results.
func (q *Sequencer) AwaitTick(ctx context.Context) (TickMarker, error) {
	data, err := q.transport.Receive(ctx)
	if err != nil {
		return TickMarker{}, protocolErr(TransportFailure, packet.StageTick, "join tick", err)
	}
	msg, err := q.registry.Decode(packet.StageTick, data)
	if err != nil {
		return TickMarker{}, decodeErr(packet.StageTick, err)
	}
	return msg.(TickMarker), nil
}

// AwaitBattleStart blocks for the join answer.
func (q *Sequencer) AwaitBattleStart(ctx context.Context) (BattleStart, error) {
	data, err := q.transport.Receive(ctx)
	if err != nil {
		return BattleStart{}, protocolErr(TransportFailure, packet.StageJoin, "battle start", err)
	}
	msg, err := q.registry.Decode(packet.StageJoin, data)
	if err != nil {
		return BattleStart{}, decodeErr(packet.StageJoin, err)
	}
	return msg.(BattleStart), nil
}
