package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/sectorwars/battleclient/internal/net/packet"
	"github.com/sectorwars/battleclient/internal/roster"
	"go.uber.org/zap"
)

// JoinTransport is a Transport whose buffered output can be pushed out
// before the first blocking receive.
type JoinTransport interface {
	Transport
	FlushOutput() error
}

// Join identifies the client to the battle server and waits for the battle
// roster.
func Join(ctx context.Context, t JoinTransport, req JoinRequest, log *zap.Logger) (BattleStart, error) {
	t.Send(EncodeJoin(req))
	if err := t.FlushOutput(); err != nil {
		return BattleStart{}, protocolErr(TransportFailure, packet.StageJoin, "send join", err)
	}
	start, err := NewSequencer(t, log).AwaitBattleStart(ctx)
	if err != nil {
		return BattleStart{}, err
	}
	log.Info("joined battle",
		zap.Uint64("player_ship", uint64(start.PlayerShip)),
		zap.Int("ships", len(start.Ships)),
		zap.Bool("results_sent", start.ResultsSent),
	)
	return start, nil
}

// NewRoster builds the initial roster from the join answer. The player's
// ship must be part of it.
func NewRoster(start BattleStart) (*roster.Roster, error) {
	r := roster.New(start.PlayerShip)
	for i := range start.Ships {
		ship := start.Ships[i]
		if _, err := r.Insert(&ship); err != nil {
			if errors.Is(err, roster.ErrDuplicateShip) {
				return nil, protocolErr(DuplicateIdentity, packet.StageJoin, fmt.Sprintf("ship %d listed twice", ship.ID), err)
			}
			return nil, err
		}
	}
	if _, ok := r.Player(); !ok {
		return nil, protocolErr(UnknownIdentity, packet.StageJoin, fmt.Sprintf("player ship %d not in roster", start.PlayerShip), nil)
	}
	return r, nil
}
