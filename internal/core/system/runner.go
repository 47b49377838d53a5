package system

import "time"

// Runner drives the frame systems. Systems are bucketed by phase when they
// register, so a frame walks the buckets in phase order and each bucket in
// registration order.
type Runner struct {
	phases [phaseCount][]System
	frames uint64
}

func NewRunner() *Runner {
	return &Runner{}
}

// Register adds s to its phase. It panics on a phase outside the known set,
// which is a wiring bug in the host.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		panic("system: unknown phase")
	}
	r.phases[p] = append(r.phases[p], s)
}

// Tick runs one frame.
func (r *Runner) Tick(dt time.Duration) {
	r.frames++
	for p := range r.phases {
		for _, s := range r.phases[p] {
			s.Update(dt)
		}
	}
}

// TickPhase runs one phase on its own, outside the frame count.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if phase < 0 || phase >= phaseCount {
		return
	}
	for _, s := range r.phases[phase] {
		s.Update(dt)
	}
}

// Frames reports how many full frames have run.
func (r *Runner) Frames() uint64 { return r.frames }
