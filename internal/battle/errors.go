package battle

import (
	"errors"
	"fmt"

	"github.com/sectorwars/battleclient/internal/net/packet"
)

// Cause classifies a fatal protocol condition.
type Cause int

const (
	OutOfOrderMessage Cause = iota + 1
	UnknownIdentity
	DuplicateIdentity
	MalformedPacket
	TransportFailure
)

func (c Cause) String() string {
	switch c {
	case OutOfOrderMessage:
		return "OutOfOrderMessage"
	case UnknownIdentity:
		return "UnknownIdentity"
	case DuplicateIdentity:
		return "DuplicateIdentity"
	case MalformedPacket:
		return "MalformedPacket"
	case TransportFailure:
		return "TransportFailure"
	default:
		return fmt.Sprintf("Cause(%d)", int(c))
	}
}

// ProtocolError ends the client's participation in a battle. The server is
// the only source of truth, so none of these conditions is retried locally.
type ProtocolError struct {
	Cause  Cause
	Stage  packet.Stage
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("battle protocol: %s at stage %s", e.Cause, e.Stage)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// CauseOf returns the cause of err if it is a ProtocolError.
func CauseOf(err error) (Cause, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Cause, true
	}
	return 0, false
}

func protocolErr(cause Cause, stage packet.Stage, detail string, err error) *ProtocolError {
	return &ProtocolError{Cause: cause, Stage: stage, Detail: detail, Err: err}
}

// decodeErr maps a registry error onto a cause. A known opcode in the wrong
// stage and an opcode the client never expects are both ordering violations.
func decodeErr(stage packet.Stage, err error) *ProtocolError {
	switch {
	case errors.Is(err, packet.ErrNotAllowed), errors.Is(err, packet.ErrUnknownOpcode):
		return protocolErr(OutOfOrderMessage, stage, "", err)
	default:
		return protocolErr(MalformedPacket, stage, "", err)
	}
}
