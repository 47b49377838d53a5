package system

import "time"

// Phase defines execution ordering within a single rendered frame.
type Phase int

const (
	PhaseInput   Phase = iota // 0: close signal, last frame's events
	PhaseBattle               // 1: turn scheduler (replay, packets, plan)
	PhaseOutput               // 2: flush outbound packets
	PhasePersist              // 3: hand journal entries to the writer

	phaseCount
)

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
