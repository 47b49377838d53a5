package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortPacket is recorded when a field read runs past the end of the payload.
var ErrShortPacket = errors.New("short packet")

// Reader reads battle packet fields from a payload. Byte 0 is always the opcode.
// A read past the end returns the zero value and latches Err; callers check Err
// once after decoding the whole message.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// Err returns the first decoding error, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) need(n int, field string) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d", ErrShortPacket, field, n, r.off, len(r.data)-r.off)
		return false
	}
	return true
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if !r.need(1, "byte") {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadBool reads 1 byte; any non-zero value is true.
func (r *Reader) ReadBool() bool {
	return r.ReadC() != 0
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if !r.need(2, "uint16") {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	if !r.need(4, "int32") {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// ReadDU reads 4 bytes as little-endian uint32.
func (r *Reader) ReadDU() uint32 {
	return uint32(r.ReadD())
}

// ReadQ reads 8 bytes as little-endian uint64.
func (r *Reader) ReadQ() uint64 {
	if !r.need(8, "uint64") {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

// ReadS reads a null-terminated string in the wire text encoding and returns UTF-8.
// A missing terminator is a decoding error.
func (r *Reader) ReadS() string {
	if r.err != nil {
		return ""
	}
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			raw := r.data[start:r.off]
			r.off++ // skip null terminator
			return decodeText(raw)
		}
		r.off++
	}
	r.err = fmt.Errorf("%w: unterminated string at offset %d", ErrShortPacket, start)
	return ""
}

// ReadBytes reads a uint32 length prefix followed by that many raw bytes.
func (r *Reader) ReadBytes() []byte {
	n := int(r.ReadDU())
	if !r.need(n, "bytes") {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}

// ReadCount reads a uint16 element count and rejects counts that cannot fit
// in the remaining payload at minSize bytes per element.
func (r *Reader) ReadCount(minSize int) int {
	n := int(r.ReadH())
	if r.err != nil {
		return 0
	}
	if minSize > 0 && n*minSize > r.Remaining() {
		r.err = fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrShortPacket, n, r.Remaining())
		return 0
	}
	return n
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
