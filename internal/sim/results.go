package sim

import (
	"fmt"

	"github.com/sectorwars/battleclient/internal/net/packet"
	"github.com/sectorwars/battleclient/internal/roster"
)

// resultsVersion is the first byte of every results payload.
const resultsVersion = 1

const minEventSize = 1 + 1 + 8 + 2 + 4

// EventKind is one kind of outcome replayed on a tick.
type EventKind uint8

const (
	EventDamage       EventKind = iota + 1 // Amount hits shields first, then hull
	EventShieldDrain                       // Amount comes off shields only
	EventRepair                            // Amount restores hull up to max
	EventJump                              // ship starts jumping to Sector
	EventActivate                          // module Amount switched on
	EventDeactivate                        // module Amount switched off
)

func (k EventKind) String() string {
	switch k {
	case EventDamage:
		return "damage"
	case EventShieldDrain:
		return "shield_drain"
	case EventRepair:
		return "repair"
	case EventJump:
		return "jump"
	case EventActivate:
		return "activate"
	case EventDeactivate:
		return "deactivate"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is a single scheduled outcome inside a turn's results.
type Event struct {
	Tick   uint8
	Kind   EventKind
	Ship   roster.ShipID
	Amount uint16
	Sector uint32
}

// DecodeResults parses a results payload. Events must name a tick inside the
// turn and a known kind.
func DecodeResults(payload []byte, ticksPerTurn int) ([]Event, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty results payload")
	}
	r := packet.NewReader(payload)
	if v := r.Opcode(); v != resultsVersion {
		return nil, fmt.Errorf("results version %d, want %d", v, resultsVersion)
	}
	n := r.ReadCount(minEventSize)
	events := make([]Event, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		ev := Event{
			Tick:   r.ReadC(),
			Kind:   EventKind(r.ReadC()),
			Ship:   roster.ShipID(r.ReadQ()),
			Amount: r.ReadH(),
			Sector: r.ReadDU(),
		}
		if r.Err() != nil {
			break
		}
		if int(ev.Tick) >= ticksPerTurn {
			return nil, fmt.Errorf("event %d: tick %d outside turn", i, ev.Tick)
		}
		if ev.Kind < EventDamage || ev.Kind > EventDeactivate {
			return nil, fmt.Errorf("event %d: unknown kind %d", i, ev.Kind)
		}
		events = append(events, ev)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return events, nil
}

// EncodeResults builds a results payload. Servers and tests use it.
func EncodeResults(events []Event) []byte {
	w := packet.NewWriterWithOpcode(resultsVersion)
	w.WriteH(uint16(len(events)))
	for _, ev := range events {
		w.WriteC(ev.Tick)
		w.WriteC(uint8(ev.Kind))
		w.WriteQ(uint64(ev.Ship))
		w.WriteH(ev.Amount)
		w.WriteDU(ev.Sector)
	}
	return w.Bytes()
}
