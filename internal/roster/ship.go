package roster

// ShipID is a ship's stable identity. A respawned ship keeps its owner's ShipID.
type ShipID uint64

// Module is one installed ship module. Kind names a catalog entry.
type Module struct {
	Kind    string
	Powered bool   // can draw power this turn
	Active  bool   // switched on by the owner's plan
	Target  ShipID // plan target, 0 = none
}

// ModulePlan is the part of a module that the owner submits each turn.
type ModulePlan struct {
	Index  uint8
	Active bool
	Target ShipID
}

// Ship holds one battle participant. Accessed only from the frame loop.
type Ship struct {
	ID       ShipID
	ClientID uint32 // owning client, 0 for server-controlled ships
	Name     string

	HP         int
	MaxHP      int
	Shields    int
	MaxShields int
	Power      int // power output available to active modules

	TargetSector uint32
	Modules      []Module

	Exploding bool // health reached zero; removed by the server next turn
	Jumping   bool // leaving the battle for TargetSector
}

func (s *Ship) Alive() bool { return s.HP > 0 }

// ModulePlans returns the plan for every installed module in slot order.
func (s *Ship) ModulePlans() []ModulePlan {
	plans := make([]ModulePlan, len(s.Modules))
	for i, m := range s.Modules {
		plans[i] = ModulePlan{Index: uint8(i), Active: m.Active, Target: m.Target}
	}
	return plans
}

// TakeDamage applies damage to shields first and then hull. Health floors at zero.
func (s *Ship) TakeDamage(amount int) {
	if amount <= 0 {
		return
	}
	absorbed := min(amount, s.Shields)
	s.Shields -= absorbed
	s.HP = max(s.HP-(amount-absorbed), 0)
}

// AddShields raises shields up to MaxShields.
func (s *Ship) AddShields(n int) {
	s.Shields = min(s.Shields+n, s.MaxShields)
}

// RemoveShields lowers shields, never below zero.
func (s *Ship) RemoveShields(n int) {
	s.Shields = max(s.Shields-n, 0)
}
