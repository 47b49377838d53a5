package system

import (
	"time"

	coresys "github.com/sectorwars/battleclient/internal/core/system"
)

// JournalFlusher hands buffered journal entries to a background writer.
type JournalFlusher interface {
	Flush()
}

// PersistenceSystem passes journal entries to the writer every interval
// frames. Phase 3 (Persist).
type PersistenceSystem struct {
	journal    JournalFlusher
	interval   int
	frameCount int
}

func NewPersistenceSystem(journal JournalFlusher, intervalFrames int) *PersistenceSystem {
	return &PersistenceSystem{journal: journal, interval: max(intervalFrames, 1)}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.frameCount++
	if s.frameCount < s.interval {
		return
	}
	s.frameCount = 0
	s.journal.Flush()
}
