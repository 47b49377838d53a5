package roster

import (
	"errors"
	"testing"
)

func TestInsertLookupRemove(t *testing.T) {
	r := New(1)
	h, err := r.Insert(&Ship{ID: 1, HP: 10})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := r.Insert(&Ship{ID: 1}); !errors.Is(err, ErrDuplicateShip) {
		t.Fatalf("duplicate insert err = %v", err)
	}
	if s, ok := r.Get(h); !ok || s.HP != 10 {
		t.Fatalf("Get = %v, %v", s, ok)
	}
	if p, ok := r.Player(); !ok || p.ID != 1 {
		t.Fatalf("Player = %v, %v", p, ok)
	}

	if _, err := r.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := r.Get(h); ok {
		t.Error("stale handle still resolves")
	}
	if _, err := r.Remove(1); !errors.Is(err, ErrUnknownShip) {
		t.Errorf("second remove err = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestReplaceInvalidatesOldHandle(t *testing.T) {
	r := New(1)
	old := &Ship{ID: 1, HP: 0}
	oldHandle, _ := r.Insert(old)

	fresh := &Ship{ID: 1, HP: 20}
	newHandle, err := r.Replace(fresh)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if oldHandle == newHandle {
		t.Fatal("Replace reused the live handle")
	}
	if _, ok := r.Get(oldHandle); ok {
		t.Error("old handle still resolves")
	}
	if p, _ := r.Player(); p != fresh {
		t.Error("player designation did not move to the new ship")
	}
	if r.IsPlayer(old) {
		t.Error("old ship still designated")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}
	if _, err := r.Replace(&Ship{ID: 9}); !errors.Is(err, ErrUnknownShip) {
		t.Errorf("replace unknown err = %v", err)
	}
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	r := New(0)
	h1, _ := r.Insert(&Ship{ID: 5})
	r.Remove(5)
	h2, _ := r.Insert(&Ship{ID: 6})
	if h1.Index() != h2.Index() {
		t.Fatalf("slot not reused: %d vs %d", h1.Index(), h2.Index())
	}
	if h2.Generation() != h1.Generation()+1 {
		t.Errorf("generation = %d, want %d", h2.Generation(), h1.Generation()+1)
	}
	if _, ok := r.Get(h1); ok {
		t.Error("stale handle resolves to reused slot")
	}
}

func TestEachIsOrdered(t *testing.T) {
	r := New(0)
	for _, id := range []ShipID{30, 10, 20} {
		r.Insert(&Ship{ID: id})
	}
	var got []ShipID
	r.Each(func(s *Ship) { got = append(got, s.ID) })
	if len(got) != 3 || got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Errorf("Each order = %v", got)
	}
}

func TestTakeDamage(t *testing.T) {
	tests := []struct {
		name                string
		hp, shields, amount int
		wantHP, wantShields int
	}{
		{"shields absorb", 10, 3, 2, 10, 1},
		{"overflow to hull", 10, 3, 5, 8, 0},
		{"floors at zero", 4, 0, 9, 0, 0},
		{"ignores negative", 4, 1, -3, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Ship{HP: tt.hp, Shields: tt.shields}
			s.TakeDamage(tt.amount)
			if s.HP != tt.wantHP || s.Shields != tt.wantShields {
				t.Errorf("hp=%d shields=%d, want %d/%d", s.HP, s.Shields, tt.wantHP, tt.wantShields)
			}
		})
	}
}

func TestModulePlans(t *testing.T) {
	s := &Ship{Modules: []Module{{Kind: "shield", Active: true}, {Kind: "laser", Target: 4}}}
	plans := s.ModulePlans()
	if len(plans) != 2 || !plans[0].Active || plans[1].Target != 4 || plans[1].Index != 1 {
		t.Errorf("plans = %+v", plans)
	}
}
