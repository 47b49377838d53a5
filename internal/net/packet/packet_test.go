package packet

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriterWithOpcode(0x10)
	w.WriteC(7)
	w.WriteBool(true)
	w.WriteH(513)
	w.WriteD(-42)
	w.WriteQ(1 << 40)
	w.WriteS("Aurora")
	w.WriteBytes([]byte{9, 8, 7})

	r := NewReader(w.Bytes())
	if r.Opcode() != 0x10 {
		t.Fatalf("opcode = %#x", r.Opcode())
	}
	if v := r.ReadC(); v != 7 {
		t.Errorf("ReadC = %d", v)
	}
	if !r.ReadBool() {
		t.Error("ReadBool = false")
	}
	if v := r.ReadH(); v != 513 {
		t.Errorf("ReadH = %d", v)
	}
	if v := r.ReadD(); v != -42 {
		t.Errorf("ReadD = %d", v)
	}
	if v := r.ReadQ(); v != 1<<40 {
		t.Errorf("ReadQ = %d", v)
	}
	if v := r.ReadS(); v != "Aurora" {
		t.Errorf("ReadS = %q", v)
	}
	if v := r.ReadBytes(); len(v) != 3 || v[0] != 9 {
		t.Errorf("ReadBytes = %v", v)
	}
	if r.Err() != nil || r.Remaining() != 0 {
		t.Errorf("err = %v, remaining = %d", r.Err(), r.Remaining())
	}
}

func TestReaderLatchesShortRead(t *testing.T) {
	r := NewReader([]byte{0x01, 0xAA})
	r.ReadD()
	if !errors.Is(r.Err(), ErrShortPacket) {
		t.Fatalf("err = %v", r.Err())
	}
	// Later reads keep the first error and return zero values.
	if v := r.ReadC(); v != 0 {
		t.Errorf("ReadC after error = %d", v)
	}
}

func TestReaderRejectsOversizedCount(t *testing.T) {
	w := NewWriterWithOpcode(0x01)
	w.WriteH(1000)
	w.WriteC(1)
	r := NewReader(w.Bytes())
	if n := r.ReadCount(8); n != 0 || r.Err() == nil {
		t.Fatalf("ReadCount = %d, err = %v", n, r.Err())
	}
}

func TestReaderUnterminatedString(t *testing.T) {
	r := NewReader([]byte{0x01, 'a', 'b'})
	if s := r.ReadS(); s != "" || r.Err() == nil {
		t.Fatalf("ReadS = %q, err = %v", s, r.Err())
	}
}

func TestTextEncodingBig5(t *testing.T) {
	if err := SetTextEncoding("big5"); err != nil {
		t.Fatalf("SetTextEncoding: %v", err)
	}
	defer SetTextEncoding("utf-8")

	w := NewWriterWithOpcode(0x01)
	w.WriteS("天堂")
	if w.Len() != 1+4+1 {
		t.Fatalf("big5 length = %d", w.Len())
	}
	if s := NewReader(w.Bytes()).ReadS(); s != "天堂" {
		t.Errorf("ReadS = %q", s)
	}
	if err := SetTextEncoding("no-such-charset"); err == nil {
		t.Error("expected unknown charset error")
	}
}

func TestRegistryDecode(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register(0x05, []Stage{StageTick}, func(r *Reader) (any, error) {
		return r.ReadC(), nil
	})
	reg.Register(0x06, []Stage{StageTick}, func(r *Reader) (any, error) {
		var s []int
		return s[3], nil // panics
	})

	if _, err := reg.Decode(StageTick, nil); !errors.Is(err, ErrEmptyPacket) {
		t.Errorf("empty: %v", err)
	}
	if _, err := reg.Decode(StageTick, []byte{0x7F}); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("unknown: %v", err)
	}
	if _, err := reg.Decode(StageResults, []byte{0x05, 1}); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("stage: %v", err)
	}
	if _, err := reg.Decode(StageTick, []byte{0x05}); !errors.Is(err, ErrMalformed) {
		t.Errorf("short: %v", err)
	}
	if _, err := reg.Decode(StageTick, []byte{0x06}); !errors.Is(err, ErrMalformed) {
		t.Errorf("panic: %v", err)
	}
	msg, err := reg.Decode(StageTick, []byte{0x05, 9})
	if err != nil || msg.(byte) != 9 {
		t.Errorf("decode = %v, %v", msg, err)
	}
	if !reg.Allowed(0x05, StageTick) || reg.Allowed(0x05, StageJoin) {
		t.Error("Allowed mismatch")
	}
}
