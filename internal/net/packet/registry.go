package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Stage is the point in the battle protocol the receiving side is at. Each
// inbound opcode is only legal in a fixed set of stages.
type Stage int

const (
	StageJoin      Stage = iota // awaiting battle start
	StageShipsPre               // awaiting roster delta before replay
	StageResults                // awaiting simulation results
	StageShipsPost              // awaiting roster delta after replay
	StageTick                   // awaiting tick marker
)

func (s Stage) String() string {
	switch s {
	case StageJoin:
		return "Join"
	case StageShipsPre:
		return "ShipsPre"
	case StageResults:
		return "Results"
	case StageShipsPost:
		return "ShipsPost"
	case StageTick:
		return "Tick"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

var (
	ErrEmptyPacket   = errors.New("empty packet")
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrNotAllowed    = errors.New("opcode not allowed in stage")
	ErrMalformed     = errors.New("malformed packet")
)

// DecodeFunc turns a packet payload into a typed message.
type DecodeFunc func(r *Reader) (any, error)

type decoderEntry struct {
	fn            DecodeFunc
	allowedStages map[Stage]bool
}

// Registry maps opcodes to decoders with stage-based access control.
type Registry struct {
	decoders map[byte]*decoderEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		decoders: make(map[byte]*decoderEntry),
		log:      log,
	}
}

// Register maps an opcode to a decoder, restricted to the given stages.
func (reg *Registry) Register(opcode byte, stages []Stage, fn DecodeFunc) {
	allowed := make(map[Stage]bool, len(stages))
	for _, s := range stages {
		allowed[s] = true
	}
	reg.decoders[opcode] = &decoderEntry{
		fn:            fn,
		allowedStages: allowed,
	}
}

// Allowed reports whether opcode may arrive in the given stage.
func (reg *Registry) Allowed(opcode byte, stage Stage) bool {
	entry, ok := reg.decoders[opcode]
	return ok && entry.allowedStages[stage]
}

// Decode finds the decoder for the opcode in data[0], validates the stage,
// and runs the decoder. Nothing is decoded when the stage check fails.
func (reg *Registry) Decode(stage Stage, data []byte) (any, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}
	opcode := data[0]
	reg.log.Debug("packet received",
		zap.Uint8("opcode", opcode),
		zap.Int("size", len(data)),
		zap.Stringer("stage", stage),
	)

	entry, ok := reg.decoders[opcode]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02X in stage %s", ErrUnknownOpcode, opcode, stage)
	}
	if !entry.allowedStages[stage] {
		reg.log.Warn("opcode not allowed in this stage",
			zap.Uint8("opcode", opcode),
			zap.Stringer("stage", stage),
		)
		return nil, fmt.Errorf("%w: 0x%02X in stage %s", ErrNotAllowed, opcode, stage)
	}

	r := NewReader(data)
	msg, err := reg.safeCall(entry.fn, r, opcode)
	if err != nil {
		return nil, err
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: opcode 0x%02X: %v", ErrMalformed, opcode, r.Err())
	}
	return msg, nil
}

// safeCall executes a decoder with panic recovery so a hostile payload
// surfaces as a malformed packet instead of crashing the frame loop.
func (reg *Registry) safeCall(fn DecodeFunc, r *Reader, opcode byte) (msg any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("decoder panic recovered",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			msg = nil
			err = fmt.Errorf("%w: decoder panic for opcode 0x%02X: %v", ErrMalformed, opcode, rec)
		}
	}()
	msg, err = fn(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opcode 0x%02X: %v", ErrMalformed, opcode, err)
	}
	return msg, nil
}
