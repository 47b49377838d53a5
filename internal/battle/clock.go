package battle

import "time"

const (
	TicksPerSecond = 20
	TicksPerTurn   = 100
	LastTick       = TicksPerTurn - 1

	tickMillis = 1000 / TicksPerSecond
)

// TickAt maps elapsed turn time to a tick index in [0, LastTick].
func TickAt(elapsed time.Duration) int {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		return 0
	}
	return int(min(ms/tickMillis, LastTick))
}

// TickClock hands out each tick of a turn exactly once, in order.
// The zero value is ready for tick 0.
type TickClock struct {
	next int // first tick not yet yielded
}

func (c *TickClock) Reset() { c.next = 0 }

// Next is the first tick that has not been yielded yet.
func (c *TickClock) Next() int { return c.next }

// Due returns the closed range of ticks that became due by elapsed and have
// not been yielded. ok is false when the range is empty.
func (c *TickClock) Due(elapsed time.Duration) (from, to int, ok bool) {
	if c.next > LastTick {
		return 0, 0, false
	}
	cur := TickAt(elapsed)
	if cur < c.next {
		return 0, 0, false
	}
	from, to = c.next, cur
	c.next = cur + 1
	return from, to, true
}

// Flush returns every tick not yet yielded, regardless of elapsed time.
func (c *TickClock) Flush() (from, to int, ok bool) {
	if c.next > LastTick {
		return 0, 0, false
	}
	from, to = c.next, LastTick
	c.next = LastTick + 1
	return from, to, true
}
