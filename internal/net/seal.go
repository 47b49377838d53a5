package net

import (
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Direction prefixes keep client and server nonces disjoint under one key.
const (
	DirClientToServer uint32 = 0x43324253 // "C2BS"
	DirServerToClient uint32 = 0x53324243 // "S2BC"
)

var ErrOpen = errors.New("frame authentication failed")

// Sealer authenticates and encrypts frames with ChaCha20-Poly1305. Nonces are
// implicit per-direction counters, so frames must be opened in send order.
// The send side is used only by the writer goroutine and the open side only by
// the reader goroutine.
type Sealer struct {
	aead      cipher.AEAD
	sendDir   uint32
	recvDir   uint32
	sendCount uint64
	recvCount uint64
}

// NewSealer builds a sealer from a 32-byte key. send and recv are the
// direction prefixes for outgoing and incoming frames.
func NewSealer(key []byte, send, recv uint32) (*Sealer, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}
	return &Sealer{aead: aead, sendDir: send, recvDir: recv}, nil
}

// NewClientSealer parses a hex key and returns a sealer for the client side,
// or nil when the key is empty.
func NewClientSealer(hexKey string) (*Sealer, error) {
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode seal key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("seal key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return NewSealer(key, DirClientToServer, DirServerToClient)
}

func nonce(dir uint32, count uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	binary.LittleEndian.PutUint32(n[0:4], dir)
	binary.LittleEndian.PutUint64(n[4:12], count)
	return n
}

// Seal returns the sealed form of data.
func (s *Sealer) Seal(data []byte) []byte {
	out := s.aead.Seal(nil, nonce(s.sendDir, s.sendCount), data, nil)
	s.sendCount++
	return out
}

// Open verifies and decrypts one incoming frame.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	out, err := s.aead.Open(nil, nonce(s.recvDir, s.recvCount), data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrOpen, s.recvCount, err)
	}
	s.recvCount++
	return out, nil
}

// Overhead is the number of bytes Seal adds to each frame.
func (s *Sealer) Overhead() int {
	return s.aead.Overhead()
}
