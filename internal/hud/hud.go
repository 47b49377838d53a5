package hud

import (
	"sort"

	"github.com/sectorwars/battleclient/internal/battle"
	"github.com/sectorwars/battleclient/internal/core/event"
	"github.com/sectorwars/battleclient/internal/data"
	"github.com/sectorwars/battleclient/internal/roster"
	"go.uber.org/zap"
)

// HUD is the headless presentation layer: it owns the target lock set and
// reports battle progress through the log.
type HUD struct {
	roster  *roster.Roster
	sectors *data.SectorTable
	limit   int
	log     *zap.Logger

	locks    map[roster.ShipID]struct{}
	lastTick int // last NextTick reported at Debug, to keep frame logs sparse
}

var _ battle.Presentation = (*HUD)(nil)

// New creates a HUD that holds at most limit target locks.
func New(r *roster.Roster, sectors *data.SectorTable, limit int, log *zap.Logger) *HUD {
	return &HUD{
		roster:   r,
		sectors:  sectors,
		limit:    limit,
		log:      log,
		locks:    make(map[roster.ShipID]struct{}),
		lastTick: -1,
	}
}

// TryAcquireLock targets s unless it is the player's own ship, is leaving the
// battle, or the lock set is full.
func (h *HUD) TryAcquireLock(s *roster.Ship) bool {
	if _, ok := h.locks[s.ID]; ok {
		return true
	}
	switch {
	case s.ID == h.roster.PlayerID():
		return false
	case s.Exploding, s.Jumping:
		return false
	case len(h.locks) >= h.limit:
		return false
	}
	h.locks[s.ID] = struct{}{}
	h.log.Debug("target locked", zap.Uint64("ship", uint64(s.ID)), zap.String("name", s.Name))
	return true
}

func (h *HUD) ReleaseLock(s *roster.Ship) {
	if _, ok := h.locks[s.ID]; !ok {
		return
	}
	delete(h.locks, s.ID)
	h.log.Debug("target released", zap.Uint64("ship", uint64(s.ID)))
}

func (h *HUD) Locked(id roster.ShipID) bool {
	_, ok := h.locks[id]
	return ok
}

// Locks returns the locked identities in ascending order.
func (h *HUD) Locks() []roster.ShipID {
	ids := make([]roster.ShipID, 0, len(h.locks))
	for id := range h.locks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Frame logs turn progress whenever replay moved on.
func (h *HUD) Frame(v battle.FrameView) {
	if v.NextTick == h.lastTick {
		return
	}
	h.lastTick = v.NextTick
	fields := []zap.Field{
		zap.Int("turn", v.Turn),
		zap.Duration("elapsed", v.Elapsed),
		zap.Int("next_tick", v.NextTick),
		zap.Bool("plans_sent", v.PlansSent),
	}
	if v.Player != nil {
		fields = append(fields,
			zap.Int("hp", v.Player.HP),
			zap.Int("shields", v.Player.Shields),
		)
	}
	h.log.Debug("frame", fields...)
}

// Subscribe wires turn summaries to battle events.
func (h *HUD) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(event.TurnStarted) {
		h.lastTick = -1
	})
	event.Subscribe(bus, func(e event.PlanSent) {
		h.log.Info("plan submitted",
			zap.Int("turn", e.Turn),
			zap.String("destination", h.sectors.Name(e.Sector)),
			zap.Int("modules", e.Modules),
		)
	})
	event.Subscribe(bus, func(e event.ShipAdded) {
		if e.Respawn {
			h.log.Info("ship respawned", zap.Int("turn", e.Turn), zap.String("name", e.Name))
		}
	})
	event.Subscribe(bus, func(e event.TurnConcluded) {
		fields := []zap.Field{
			zap.Int("turn", e.Turn),
			zap.Int("ships", h.roster.Len()),
			zap.Int("exploding", e.Exploding),
			zap.Int("locks", len(h.locks)),
		}
		if p, ok := h.roster.Player(); ok {
			fields = append(fields,
				zap.Int("hp", p.HP),
				zap.Int("max_hp", p.MaxHP),
				zap.Int("shields", p.Shields),
			)
		}
		h.log.Info("turn summary", fields...)
	})
	event.Subscribe(bus, func(e event.SessionEnded) {
		if e.Err != nil {
			h.log.Warn("battle over", zap.Int("turn", e.Turn), zap.String("reason", e.Reason), zap.Error(e.Err))
			return
		}
		dest := ""
		if p, ok := h.roster.Player(); ok {
			dest = h.sectors.Name(p.TargetSector)
		}
		h.log.Info("battle over", zap.Int("turn", e.Turn), zap.String("reason", e.Reason), zap.String("destination", dest))
	})
}
