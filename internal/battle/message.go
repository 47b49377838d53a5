package battle

import (
	"math"

	"github.com/sectorwars/battleclient/internal/net/packet"
	"github.com/sectorwars/battleclient/internal/roster"
)

// Inbound is a decoded server message handed out by the Sequencer.
type Inbound interface {
	inbound()
}

// DeltaStage tells whether a roster delta applies before or after tick replay.
type DeltaStage int

const (
	DeltaPre DeltaStage = iota
	DeltaPost
)

func (s DeltaStage) String() string {
	if s == DeltaPost {
		return "post"
	}
	return "pre"
}

// ShipDelta adds and removes roster entries.
type ShipDelta struct {
	Stage   DeltaStage
	Added   []roster.Ship
	Removed []roster.ShipID
}

// SimResults carries the server's authoritative turn outcome. The payload is
// interpreted by the Simulation collaborator only.
type SimResults struct {
	Payload []byte
}

// TickMarker ends a turn. A final marker ends the battle session.
type TickMarker struct {
	Final bool
}

func (ShipDelta) inbound()  {}
func (SimResults) inbound() {}
func (TickMarker) inbound() {}

// BattleStart is the server's answer to a join request.
type BattleStart struct {
	PlayerShip  roster.ShipID
	ResultsSent bool // the current turn's results went out before we joined
	Ships       []roster.Ship
}

// PlanMessage is the local player's plan for the next turn.
type PlanMessage struct {
	TargetSector uint32
	ModulePlans  []roster.ModulePlan
}

// JoinRequest identifies the client to the battle server.
type JoinRequest struct {
	ClientID uint32
	Name     string
	Token    string
}

// Minimum encoded sizes used to bound element counts before allocating.
const (
	minShipSize   = 8 + 4 + 1 + 2*5 + 4 + 1 + 2
	minModuleSize = 1 + 1 + 1 + 8
)

func registerDecoders(reg *packet.Registry) *packet.Registry {
	reg.Register(packet.S_OPCODE_BATTLE_START, []packet.Stage{packet.StageJoin}, decodeBattleStart)
	reg.Register(packet.S_OPCODE_SHIPS_PRE, []packet.Stage{packet.StageShipsPre}, func(r *packet.Reader) (any, error) {
		return decodeShipDelta(r, DeltaPre), nil
	})
	reg.Register(packet.S_OPCODE_SIM_RESULTS, []packet.Stage{packet.StageResults}, func(r *packet.Reader) (any, error) {
		return SimResults{Payload: r.ReadBytes()}, nil
	})
	reg.Register(packet.S_OPCODE_SHIPS_POST, []packet.Stage{packet.StageShipsPost}, func(r *packet.Reader) (any, error) {
		return decodeShipDelta(r, DeltaPost), nil
	})
	reg.Register(packet.S_OPCODE_TICK, []packet.Stage{packet.StageTick}, func(*packet.Reader) (any, error) {
		return TickMarker{}, nil
	})
	reg.Register(packet.S_OPCODE_LAST_TICK, []packet.Stage{packet.StageTick}, func(*packet.Reader) (any, error) {
		return TickMarker{Final: true}, nil
	})
	return reg
}

func decodeBattleStart(r *packet.Reader) (any, error) {
	start := BattleStart{
		PlayerShip:  roster.ShipID(r.ReadQ()),
		ResultsSent: r.ReadBool(),
	}
	n := r.ReadCount(minShipSize)
	start.Ships = make([]roster.Ship, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		start.Ships = append(start.Ships, decodeShip(r))
	}
	return start, nil
}

func decodeShipDelta(r *packet.Reader, stage DeltaStage) ShipDelta {
	d := ShipDelta{Stage: stage}
	n := r.ReadCount(minShipSize)
	for i := 0; i < n && r.Err() == nil; i++ {
		d.Added = append(d.Added, decodeShip(r))
	}
	n = r.ReadCount(8)
	for i := 0; i < n && r.Err() == nil; i++ {
		d.Removed = append(d.Removed, roster.ShipID(r.ReadQ()))
	}
	return d
}

func decodeShip(r *packet.Reader) roster.Ship {
	s := roster.Ship{
		ID:           roster.ShipID(r.ReadQ()),
		ClientID:     r.ReadDU(),
		Name:         r.ReadS(),
		HP:           int(r.ReadH()),
		MaxHP:        int(r.ReadH()),
		Shields:      int(r.ReadH()),
		MaxShields:   int(r.ReadH()),
		Power:        int(r.ReadH()),
		TargetSector: r.ReadDU(),
		Jumping:      r.ReadBool(),
	}
	n := r.ReadCount(minModuleSize)
	for i := 0; i < n && r.Err() == nil; i++ {
		s.Modules = append(s.Modules, roster.Module{
			Kind:    r.ReadS(),
			Powered: r.ReadBool(),
			Active:  r.ReadBool(),
			Target:  roster.ShipID(r.ReadQ()),
		})
	}
	return s
}

// EncodeShip writes s in the wire layout used by roster deltas and battle start.
func EncodeShip(w *packet.Writer, s *roster.Ship) {
	w.WriteQ(uint64(s.ID))
	w.WriteDU(s.ClientID)
	w.WriteS(s.Name)
	w.WriteH(stat(s.HP))
	w.WriteH(stat(s.MaxHP))
	w.WriteH(stat(s.Shields))
	w.WriteH(stat(s.MaxShields))
	w.WriteH(stat(s.Power))
	w.WriteDU(s.TargetSector)
	w.WriteBool(s.Jumping)
	w.WriteH(uint16(len(s.Modules)))
	for _, m := range s.Modules {
		w.WriteS(m.Kind)
		w.WriteBool(m.Powered)
		w.WriteBool(m.Active)
		w.WriteQ(uint64(m.Target))
	}
}

// stat clamps a ship stat to the 16-bit wire field.
func stat(v int) uint16 {
	return uint16(min(max(v, 0), math.MaxUint16))
}

// EncodeShipDelta builds a roster delta packet. Servers and tests use it.
func EncodeShipDelta(d ShipDelta) []byte {
	op := packet.S_OPCODE_SHIPS_PRE
	if d.Stage == DeltaPost {
		op = packet.S_OPCODE_SHIPS_POST
	}
	w := packet.NewWriterWithOpcode(op)
	w.WriteH(uint16(len(d.Added)))
	for i := range d.Added {
		EncodeShip(w, &d.Added[i])
	}
	w.WriteH(uint16(len(d.Removed)))
	for _, id := range d.Removed {
		w.WriteQ(uint64(id))
	}
	return w.Bytes()
}

// EncodeSimResults wraps an opaque results payload.
func EncodeSimResults(payload []byte) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SIM_RESULTS)
	w.WriteBytes(payload)
	return w.Bytes()
}

// EncodeTick builds a tick marker packet.
func EncodeTick(final bool) []byte {
	if final {
		return packet.NewWriterWithOpcode(packet.S_OPCODE_LAST_TICK).Bytes()
	}
	return packet.NewWriterWithOpcode(packet.S_OPCODE_TICK).Bytes()
}

// EncodeBattleStart builds the join answer.
func EncodeBattleStart(start BattleStart) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_BATTLE_START)
	w.WriteQ(uint64(start.PlayerShip))
	w.WriteBool(start.ResultsSent)
	w.WriteH(uint16(len(start.Ships)))
	for i := range start.Ships {
		EncodeShip(w, &start.Ships[i])
	}
	return w.Bytes()
}

// EncodePlan builds the outbound plan packet.
func EncodePlan(p PlanMessage) []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_PLAN)
	w.WriteDU(p.TargetSector)
	w.WriteH(uint16(len(p.ModulePlans)))
	for _, mp := range p.ModulePlans {
		w.WriteC(mp.Index)
		w.WriteBool(mp.Active)
		w.WriteQ(uint64(mp.Target))
	}
	return w.Bytes()
}

// DecodePlan parses a plan packet. The client never receives plans; servers
// and tests use it to check what was sent.
func DecodePlan(data []byte) (PlanMessage, error) {
	r := packet.NewReader(data)
	p := PlanMessage{TargetSector: r.ReadDU()}
	n := r.ReadCount(10)
	for i := 0; i < n && r.Err() == nil; i++ {
		p.ModulePlans = append(p.ModulePlans, roster.ModulePlan{
			Index:  r.ReadC(),
			Active: r.ReadBool(),
			Target: roster.ShipID(r.ReadQ()),
		})
	}
	return p, r.Err()
}

// EncodeJoin builds the join request packet.
func EncodeJoin(j JoinRequest) []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_JOIN)
	w.WriteDU(j.ClientID)
	w.WriteS(j.Name)
	w.WriteS(j.Token)
	return w.Bytes()
}
