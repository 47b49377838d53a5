package battle

import (
	"fmt"

	"github.com/sectorwars/battleclient/internal/core/event"
	"github.com/sectorwars/battleclient/internal/net/packet"
	"github.com/sectorwars/battleclient/internal/roster"
	"go.uber.org/zap"
)

// RosterSync applies roster deltas. It is the only writer of roster
// membership while a battle runs.
type RosterSync struct {
	roster  *roster.Roster
	present Presentation
	bus     *event.Bus
	log     *zap.Logger

	// playerHP is the health of the player's last ship when it left the
	// roster, used to judge a respawn that arrives after the removal.
	playerHP int
}

func NewRosterSync(r *roster.Roster, present Presentation, bus *event.Bus, log *zap.Logger) *RosterSync {
	return &RosterSync{roster: r, present: present, bus: bus, log: log}
}

func deltaStage(d ShipDelta) packet.Stage {
	if d.Stage == DeltaPost {
		return packet.StageShipsPost
	}
	return packet.StageShipsPre
}

// Check runs the membership checks that tick replay cannot change: every
// removal names a present ship at most once and no ship is added twice. A
// held delta is checked on receipt and fully validated when applied.
func (rs *RosterSync) Check(d ShipDelta) error {
	_, err := rs.checkMembership(d)
	return err
}

func (rs *RosterSync) checkMembership(d ShipDelta) (map[roster.ShipID]*roster.Ship, error) {
	stage := deltaStage(d)
	removed := make(map[roster.ShipID]*roster.Ship, len(d.Removed))
	for _, id := range d.Removed {
		if _, dup := removed[id]; dup {
			return nil, protocolErr(UnknownIdentity, stage, fmt.Sprintf("ship %d removed twice", id), nil)
		}
		s, ok := rs.roster.Lookup(id)
		if !ok {
			return nil, protocolErr(UnknownIdentity, stage, fmt.Sprintf("remove of unknown ship %d", id), nil)
		}
		removed[id] = s
	}
	added := make(map[roster.ShipID]bool, len(d.Added))
	for i := range d.Added {
		id := d.Added[i].ID
		if added[id] {
			return nil, protocolErr(DuplicateIdentity, stage, fmt.Sprintf("ship %d added twice", id), nil)
		}
		added[id] = true
	}
	return removed, nil
}

// validate checks the whole delta against the current roster before anything
// is mutated. The health checks run here only, since replay changes health.
func (rs *RosterSync) validate(d ShipDelta) error {
	removed, err := rs.checkMembership(d)
	if err != nil {
		return err
	}

	stage := deltaStage(d)
	playerID := rs.roster.PlayerID()
	for i := range d.Added {
		id := d.Added[i].ID
		if id == playerID {
			prevHP := rs.playerHP
			if s, ok := removed[id]; ok {
				prevHP = s.HP
			} else if s, ok := rs.roster.Lookup(id); ok {
				prevHP = s.HP
			}
			if prevHP != 0 {
				return protocolErr(DuplicateIdentity, stage,
					fmt.Sprintf("respawn of player ship %d while previous ship has health %d", id, prevHP), nil)
			}
			continue
		}
		if _, gone := removed[id]; gone {
			continue
		}
		if s, ok := rs.roster.Lookup(id); ok && s.Alive() {
			return protocolErr(DuplicateIdentity, stage,
				fmt.Sprintf("add of ship %d that is already present with health %d", id, s.HP), nil)
		}
	}
	return nil
}

// Apply removes and then adds ships. A delta that fails validation leaves
// the roster unchanged.
func (rs *RosterSync) Apply(turn int, d ShipDelta) error {
	if err := rs.validate(d); err != nil {
		return err
	}

	for _, id := range d.Removed {
		s, _ := rs.roster.Lookup(id)
		rs.log.Debug("removing ship", zap.Uint64("ship", uint64(id)), zap.Stringer("delta", d.Stage))
		rs.present.ReleaseLock(s)
		if id == rs.roster.PlayerID() {
			rs.playerHP = s.HP
		}
		rs.roster.Remove(id)
		event.Emit(rs.bus, event.ShipRemoved{Turn: turn, ID: id})
	}

	playerID := rs.roster.PlayerID()
	for i := range d.Added {
		ship := d.Added[i]
		s := &ship
		if s.ID == playerID {
			rs.log.Info("replacing player's ship", zap.Uint64("ship", uint64(s.ID)), zap.Int("hp", s.HP))
			rs.put(s)
			rs.playerHP = s.HP
			event.Emit(rs.bus, event.ShipAdded{Turn: turn, ID: s.ID, Name: s.Name, Respawn: true})
			continue
		}
		rs.log.Debug("new ship", zap.Uint64("ship", uint64(s.ID)), zap.String("name", s.Name))
		if old, ok := rs.roster.Lookup(s.ID); ok {
			rs.present.ReleaseLock(old)
		}
		rs.put(s)
		if !rs.present.TryAcquireLock(s) {
			rs.log.Debug("lock refused", zap.Uint64("ship", uint64(s.ID)))
		}
		event.Emit(rs.bus, event.ShipAdded{Turn: turn, ID: s.ID, Name: s.Name})
	}
	return nil
}

// put inserts s, or replaces the entry already registered under its identity.
func (rs *RosterSync) put(s *roster.Ship) {
	if _, ok := rs.roster.Handle(s.ID); ok {
		rs.roster.Replace(s)
		return
	}
	rs.roster.Insert(s)
}
