package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sectorwars/battleclient/internal/config"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("session closed")

// Session is the client's connection to the battle server. Network I/O runs
// in dedicated goroutines; packets are consumed only from the frame loop.
type Session struct {
	conn FrameConn
	seal *Sealer

	InQueue  chan []byte // frame loop reads packets from here
	OutQueue chan []byte // writer goroutine reads from here

	writeTimeout time.Duration

	outBuf [][]byte // buffered packets, flushed by the frame loop

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error // first I/O error, reported after the queue drains

	log *zap.Logger
}

func NewSession(conn FrameConn, seal *Sealer, inSize, outSize int, writeTimeout time.Duration, log *zap.Logger) *Session {
	return &Session{
		conn:         conn,
		seal:         seal,
		InQueue:      make(chan []byte, inSize),
		OutQueue:     make(chan []byte, outSize),
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.String("server", conn.RemoteAddr())),
	}
}

// Dial connects to the battle server with the configured transport and
// starts the session's I/O goroutines.
func Dial(ctx context.Context, cfg config.NetworkConfig, log *zap.Logger) (*Session, error) {
	seal, err := NewClientSealer(cfg.SealKey)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	var conn FrameConn
	switch cfg.Transport {
	case "ws":
		conn, err = DialWS(dialCtx, cfg.ServerAddress, cfg.WSPath)
	default:
		var d net.Dialer
		var c net.Conn
		c, err = d.DialContext(dialCtx, "tcp", cfg.ServerAddress)
		if err == nil {
			conn = NewStreamConn(c)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", cfg.Transport, cfg.ServerAddress, err)
	}

	s := NewSession(conn, seal, cfg.InQueueSize, cfg.OutQueueSize, cfg.WriteTimeout, log)
	s.Start()
	return s, nil
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Receive blocks until a packet is available, the session fails, or ctx is done.
func (s *Session) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-s.InQueue:
		return data, nil
	default:
	}
	select {
	case data := <-s.InQueue:
		return data, nil
	case <-s.closeCh:
		// The reader may have queued packets right before failing.
		select {
		case data := <-s.InQueue:
			return data, nil
		default:
		}
		return nil, s.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryReceive returns the next queued packet without blocking. ok is false
// when nothing is queued; err is set once the session has failed and the
// queue is empty.
func (s *Session) TryReceive() (data []byte, ok bool, err error) {
	select {
	case data := <-s.InQueue:
		return data, true, nil
	default:
	}
	if s.closed.Load() {
		return nil, false, s.Err()
	}
	return nil, false, nil
}

// Send buffers a packet for sending. The packet is not written until
// FlushOutput is called by the frame loop.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is closed (backpressure).
func (s *Session) FlushOutput() error {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, closing session")
			s.fail(fmt.Errorf("output queue full (%d packets)", cap(s.OutQueue)))
			s.outBuf = s.outBuf[:0]
			return s.Err()
		}
	}
	s.outBuf = s.outBuf[:0]
	return nil
}

// Close shuts the session down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Err returns the error that closed the session, or ErrClosed after a plain Close.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err != nil {
		return s.err
	}
	return ErrClosed
}

func (s *Session) fail(err error) {
	s.errMu.Lock()
	if s.err == nil && !s.closed.Load() {
		s.err = err
	}
	s.errMu.Unlock()
	s.Close()
}

// readLoop reads frames, opens them, and pushes them onto InQueue for the
// frame loop to consume.
func (s *Session) readLoop() {
	for {
		payload, err := s.conn.ReadFrame()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			s.fail(err)
			return
		}

		if s.seal != nil {
			payload, err = s.seal.Open(payload)
			if err != nil {
				s.log.Warn("dropping session on unauthenticated frame", zap.Error(err))
				s.fail(err)
				return
			}
		}

		// Block until InQueue has space or the session closes. Dropping a
		// battle packet would desynchronize the turn, so there is no drop path.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop reads packets from OutQueue, seals them, and writes them.
func (s *Session) writeLoop() {
	for {
		select {
		case data := <-s.OutQueue:
			if err := s.writeOnePacket(data); err != nil {
				s.fail(err)
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOnePacket(data []byte) error {
	if len(data) > 0 {
		s.log.Debug("TX",
			zap.String("op", fmt.Sprintf("0x%02X", data[0])),
			zap.Int("len", len(data)),
		)
	}

	if s.seal != nil {
		data = s.seal.Seal(data)
	}

	var deadline time.Time
	if s.writeTimeout > 0 {
		deadline = time.Now().Add(s.writeTimeout)
	}
	if err := s.conn.WriteFrame(data, deadline); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return err
	}
	return nil
}
