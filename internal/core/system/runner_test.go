package system

import (
	"testing"
	"time"
)

type recordSystem struct {
	phase Phase
	name  string
	log   *[]string
}

func (s recordSystem) Phase() Phase { return s.phase }

func (s recordSystem) Update(time.Duration) { *s.log = append(*s.log, s.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recordSystem{PhasePersist, "journal", &log})
	r.Register(recordSystem{PhaseBattle, "battle", &log})
	r.Register(recordSystem{PhaseInput, "input", &log})
	r.Register(recordSystem{PhaseBattle, "battle2", &log})

	r.Tick(time.Millisecond)
	want := []string{"input", "battle", "battle2", "journal"}
	if len(log) != len(want) {
		t.Fatalf("log = %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}

	log = log[:0]
	r.TickPhase(PhaseBattle, time.Millisecond)
	if len(log) != 2 || log[0] != "battle" || log[1] != "battle2" {
		t.Errorf("TickPhase log = %v", log)
	}
	if r.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", r.Frames())
	}
}

func TestRegisterRejectsUnknownPhase(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Register accepted an unknown phase")
		}
	}()
	var log []string
	NewRunner().Register(recordSystem{phaseCount, "bogus", &log})
}
