package system

import (
	"sync/atomic"

	"github.com/sectorwars/battleclient/internal/battle"
)

// Loop is the state the frame systems share for one battle session.
// RequestClose may be called from any goroutine; everything else belongs to
// the frame loop.
type Loop struct {
	closeRequested atomic.Bool

	done    bool
	outcome battle.Outcome
	err     error
}

func (l *Loop) RequestClose()        { l.closeRequested.Store(true) }
func (l *Loop) CloseRequested() bool { return l.closeRequested.Load() }

// Done reports whether the session has ended, normally or not.
func (l *Loop) Done() bool { return l.done }

// Result returns the final outcome, or the error that aborted the session.
func (l *Loop) Result() (battle.Outcome, error) { return l.outcome, l.err }

// finish records the first ending only.
func (l *Loop) finish(out battle.Outcome, err error) {
	if l.done {
		return
	}
	l.done = true
	l.outcome = out
	l.err = err
}
