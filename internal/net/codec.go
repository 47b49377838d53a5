package net

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// MaxFrameSize is the largest payload a length-prefixed frame can carry.
const MaxFrameSize = 65533

// FrameConn carries whole packets. TCP connections add a length prefix;
// WebSocket connections map one packet to one binary message.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte, deadline time.Time) error
	Close() error
	RemoteAddr() string
}

// ReadFrame reads one packet frame from r.
// Wire format: [2 bytes LE: total length including header][payload].
// Returns the payload bytes (without the 2-byte length header).
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	payloadLen := totalLen - 2
	if payloadLen <= 0 || payloadLen > MaxFrameSize {
		return nil, fmt.Errorf("invalid frame length: %d", totalLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes one packet frame to w as a single write.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) == 0 || len(data) > MaxFrameSize {
		return fmt.Errorf("invalid frame payload size: %d", len(data))
	}
	buf := make([]byte, 2, len(data)+2)
	binary.LittleEndian.PutUint16(buf, uint16(len(data)+2))
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// tcpConn frames packets over a stream connection.
type tcpConn struct {
	conn net.Conn
	r    *bufio.Reader
}

// NewStreamConn wraps a stream connection (TCP or net.Pipe) as a FrameConn.
func NewStreamConn(conn net.Conn) FrameConn {
	return &tcpConn{conn: conn, r: bufio.NewReaderSize(conn, 16*1024)}
}

func (c *tcpConn) ReadFrame() ([]byte, error) { return ReadFrame(c.r) }

func (c *tcpConn) WriteFrame(data []byte, deadline time.Time) error {
	if !deadline.IsZero() {
		c.conn.SetWriteDeadline(deadline)
	}
	return WriteFrame(c.conn, data)
}

func (c *tcpConn) Close() error       { return c.conn.Close() }
func (c *tcpConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
