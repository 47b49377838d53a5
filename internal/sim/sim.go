package sim

import (
	"github.com/sectorwars/battleclient/internal/battle"
	"github.com/sectorwars/battleclient/internal/data"
	"github.com/sectorwars/battleclient/internal/roster"
	"github.com/sectorwars/battleclient/internal/scripting"
	"go.uber.org/zap"
)

// Hooks runs per-module scripts. *scripting.Engine implements it.
type Hooks interface {
	AfterTurn(ctx scripting.ModuleContext) scripting.ModuleResult
	OnActivated(ctx scripting.ModuleContext) scripting.ModuleResult
	OnDeactivated(ctx scripting.ModuleContext) scripting.ModuleResult
}

// Simulation replays a turn's results on the shared roster.
// Accessed only from the frame loop.
type Simulation struct {
	roster  *roster.Roster
	modules *data.ModuleTable
	hooks   Hooks
	log     *zap.Logger

	schedule [battle.TicksPerTurn][]Event
	loaded   int
}

var _ battle.Simulation = (*Simulation)(nil)

func New(r *roster.Roster, modules *data.ModuleTable, hooks Hooks, log *zap.Logger) *Simulation {
	return &Simulation{roster: r, modules: modules, hooks: hooks, log: log}
}

// LoadResults replaces the schedule with the events in payload.
func (s *Simulation) LoadResults(payload []byte) error {
	events, err := DecodeResults(payload, battle.TicksPerTurn)
	if err != nil {
		return err
	}
	s.clear()
	for _, ev := range events {
		s.schedule[ev.Tick] = append(s.schedule[ev.Tick], ev)
	}
	s.loaded = len(events)
	s.log.Debug("results loaded", zap.Int("events", len(events)))
	return nil
}

func (s *Simulation) clear() {
	for i := range s.schedule {
		s.schedule[i] = nil
	}
	s.loaded = 0
}

// BeforeTurn refreshes derived stats so replay starts from current maxima.
func (s *Simulation) BeforeTurn() {
	s.ApplyModuleStats()
}

// ApplyTick applies the events scheduled for tick index.
func (s *Simulation) ApplyTick(index int) {
	if index < 0 || index >= len(s.schedule) {
		return
	}
	for _, ev := range s.schedule[index] {
		ship, ok := s.roster.Lookup(ev.Ship)
		if !ok {
			s.log.Warn("event for ship not in roster",
				zap.Int("tick", index),
				zap.Stringer("kind", ev.Kind),
				zap.Uint64("ship", uint64(ev.Ship)),
			)
			continue
		}
		s.apply(ship, ev)
	}
}

func (s *Simulation) apply(ship *roster.Ship, ev Event) {
	switch ev.Kind {
	case EventDamage:
		ship.TakeDamage(int(ev.Amount))
	case EventShieldDrain:
		ship.RemoveShields(int(ev.Amount))
	case EventRepair:
		ship.HP = min(ship.HP+int(ev.Amount), ship.MaxHP)
	case EventJump:
		ship.Jumping = true
		ship.TargetSector = ev.Sector
	case EventActivate, EventDeactivate:
		idx := int(ev.Amount)
		if idx >= len(ship.Modules) {
			s.log.Warn("event for missing module",
				zap.Uint64("ship", uint64(ship.ID)),
				zap.Int("module", idx),
			)
			return
		}
		s.setActive(ship, idx, ev.Kind == EventActivate)
	}
}

// setActive switches a module and runs its activation hook on a change.
func (s *Simulation) setActive(ship *roster.Ship, idx int, active bool) {
	m := &ship.Modules[idx]
	if m.Active == active {
		return
	}
	m.Active = active
	ctx := moduleContext(ship, m)
	var res scripting.ModuleResult
	if active {
		res = s.hooks.OnActivated(ctx)
	} else {
		res = s.hooks.OnDeactivated(ctx)
	}
	ship.Shields = clampShields(res.Shields, ship.MaxShields)
}

// AfterTurn runs every module's end-of-turn hook and drops the schedule.
func (s *Simulation) AfterTurn() {
	s.roster.Each(func(ship *roster.Ship) {
		for i := range ship.Modules {
			res := s.hooks.AfterTurn(moduleContext(ship, &ship.Modules[i]))
			ship.Shields = clampShields(res.Shields, ship.MaxShields)
		}
	})
	s.clear()
}

// ApplyModuleStats recomputes power and max shields from powered modules.
func (s *Simulation) ApplyModuleStats() {
	s.roster.Each(func(ship *roster.Ship) {
		power, shields := 0, 0
		for _, m := range ship.Modules {
			info := s.modules.Get(m.Kind)
			if info == nil || !m.Powered {
				continue
			}
			power += info.PowerOutput
			shields += info.ShieldBonus
		}
		ship.Power = power
		ship.MaxShields = shields
		ship.Shields = clampShields(ship.Shields, shields)
	})
}

// DeactivateUnpowerableModules switches off active modules, last slot first,
// until the ship's power covers what is left.
func (s *Simulation) DeactivateUnpowerableModules() {
	s.roster.Each(func(ship *roster.Ship) {
		demand := s.powerDemand(ship)
		for i := len(ship.Modules) - 1; i >= 0 && demand > ship.Power; i-- {
			m := &ship.Modules[i]
			if !m.Active {
				continue
			}
			info := s.modules.Get(m.Kind)
			if info == nil || info.PowerCost == 0 {
				continue
			}
			s.setActive(ship, i, false)
			demand -= info.PowerCost
			s.log.Debug("module deactivated for power",
				zap.Uint64("ship", uint64(ship.ID)),
				zap.String("module", m.Kind),
				zap.Int("demand", demand),
				zap.Int("power", ship.Power),
			)
		}
	})
}

func (s *Simulation) powerDemand(ship *roster.Ship) int {
	demand := 0
	for _, m := range ship.Modules {
		if !m.Active {
			continue
		}
		if info := s.modules.Get(m.Kind); info != nil {
			demand += info.PowerCost
		}
	}
	return demand
}

// Pending is the number of events loaded for the current turn.
func (s *Simulation) Pending() int { return s.loaded }

func moduleContext(ship *roster.Ship, m *roster.Module) scripting.ModuleContext {
	return scripting.ModuleContext{
		Kind:       m.Kind,
		Powered:    m.Powered,
		Active:     m.Active,
		HP:         ship.HP,
		Shields:    ship.Shields,
		MaxShields: ship.MaxShields,
	}
}

func clampShields(v, limit int) int {
	return min(max(v, 0), limit)
}
