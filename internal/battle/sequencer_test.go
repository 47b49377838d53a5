package battle

import (
	"context"
	"errors"
	"testing"

	"github.com/sectorwars/battleclient/internal/net/packet"
	"github.com/sectorwars/battleclient/internal/roster"
	"go.uber.org/zap/zaptest"
)

func TestSequencerOrder(t *testing.T) {
	tr := &fakeTransport{}
	seq := NewSequencer(tr, zaptest.NewLogger(t))
	turn := newTurnState(1)

	tr.push(
		EncodeShipDelta(ShipDelta{Stage: DeltaPre, Added: []roster.Ship{ship(2, 10)}}),
		EncodeSimResults([]byte{9}),
		EncodeShipDelta(ShipDelta{Stage: DeltaPost, Removed: []roster.ShipID{2}}),
		EncodeTick(false),
	)

	msg, err := seq.Fetch(context.Background(), turn)
	if err != nil {
		t.Fatalf("Fetch pre: %v", err)
	}
	if d, ok := msg.(ShipDelta); !ok || d.Stage != DeltaPre || len(d.Added) != 1 || d.Added[0].ID != 2 {
		t.Fatalf("pre = %#v", msg)
	}
	if turn.Expected() != packet.StageResults {
		t.Fatalf("Expected = %s", turn.Expected())
	}

	msg, err = seq.Fetch(context.Background(), turn)
	if err != nil {
		t.Fatalf("Fetch results: %v", err)
	}
	if r, ok := msg.(SimResults); !ok || len(r.Payload) != 1 || r.Payload[0] != 9 {
		t.Fatalf("results = %#v", msg)
	}

	msg, err = seq.Poll(turn)
	if err != nil {
		t.Fatalf("Poll post: %v", err)
	}
	if d, ok := msg.(ShipDelta); !ok || d.Stage != DeltaPost || len(d.Removed) != 1 {
		t.Fatalf("post = %#v", msg)
	}
	if turn.Complete() {
		t.Fatal("turn complete before tick")
	}

	msg, err = seq.Poll(turn)
	if err != nil {
		t.Fatalf("Poll tick: %v", err)
	}
	if tick, ok := msg.(TickMarker); !ok || tick.Final {
		t.Fatalf("tick = %#v", msg)
	}
	if !turn.Complete() {
		t.Fatal("turn not complete after tick")
	}

	msg, err = seq.Poll(turn)
	if msg != nil || err != nil {
		t.Fatalf("Poll on empty transport = %v, %v", msg, err)
	}
}

func TestSequencerRejectsOutOfOrder(t *testing.T) {
	tests := []struct {
		name  string
		setup [][]byte // consumed successfully first
		bad   []byte
		want  Cause
	}{
		{
			name:  "second pre delta before results",
			setup: [][]byte{EncodeShipDelta(ShipDelta{Stage: DeltaPre})},
			bad:   EncodeShipDelta(ShipDelta{Stage: DeltaPre}),
			want:  OutOfOrderMessage,
		},
		{
			name: "tick before post delta",
			setup: [][]byte{
				EncodeShipDelta(ShipDelta{Stage: DeltaPre}),
				EncodeSimResults(nil),
			},
			bad:  EncodeTick(false),
			want: OutOfOrderMessage,
		},
		{
			name: "post delta where pre expected",
			bad:  EncodeShipDelta(ShipDelta{Stage: DeltaPost}),
			want: OutOfOrderMessage,
		},
		{
			name: "client opcode from server",
			bad:  EncodePlan(PlanMessage{}),
			want: OutOfOrderMessage,
		},
		{
			name: "unknown opcode",
			bad:  []byte{0x7F, 1, 2},
			want: OutOfOrderMessage,
		},
		{
			name: "truncated delta",
			bad:  []byte{packet.S_OPCODE_SHIPS_PRE, 5, 0, 1},
			want: MalformedPacket,
		},
		{
			name: "empty frame",
			bad:  []byte{},
			want: MalformedPacket,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			seq := NewSequencer(tr, zaptest.NewLogger(t))
			turn := newTurnState(1)
			tr.push(tt.setup...)
			for range tt.setup {
				if _, err := seq.Fetch(context.Background(), turn); err != nil {
					t.Fatalf("setup Fetch: %v", err)
				}
			}
			before := turn.received

			tr.push(tt.bad)
			msg, err := seq.Poll(turn)
			if msg != nil {
				t.Errorf("message handed out: %#v", msg)
			}
			assertCause(t, err, tt.want)
			if turn.received != before {
				t.Errorf("received flags changed: %v -> %v", before, turn.received)
			}
		})
	}
}

func TestSequencerTransportFailure(t *testing.T) {
	tr := &fakeTransport{}
	seq := NewSequencer(tr, zaptest.NewLogger(t))
	_, err := seq.Fetch(context.Background(), newTurnState(1))
	assertCause(t, err, TransportFailure)
	if !errors.Is(err, errDrained) {
		t.Errorf("err does not wrap transport error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr.push(EncodeShipDelta(ShipDelta{}))
	_, err = seq.Fetch(ctx, newTurnState(1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Fetch err = %v", err)
	}
}

func TestAwaitTick(t *testing.T) {
	tr := &fakeTransport{}
	seq := NewSequencer(tr, zaptest.NewLogger(t))
	tr.push(EncodeTick(true))
	tick, err := seq.AwaitTick(context.Background())
	if err != nil || !tick.Final {
		t.Fatalf("AwaitTick = %v, %v", tick, err)
	}

	tr.push(EncodeSimResults(nil))
	_, err = seq.AwaitTick(context.Background())
	assertCause(t, err, OutOfOrderMessage)
}
