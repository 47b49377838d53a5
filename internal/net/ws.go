package net

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn carries one packet per binary WebSocket message.
type wsConn struct {
	conn *websocket.Conn
}

// DialWS opens a WebSocket connection to ws://addr/path.
func DialWS(ctx context.Context, addr, path string) (FrameConn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: path}
	dialer := websocket.Dialer{
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  64 * 1024,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	return NewWSConn(conn), nil
}

// NewWSConn wraps an established WebSocket connection as a FrameConn.
func NewWSConn(conn *websocket.Conn) FrameConn {
	conn.SetReadLimit(MaxFrameSize)
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read ws message: %w", err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("empty ws frame")
		}
		return data, nil
	}
}

func (c *wsConn) WriteFrame(data []byte, deadline time.Time) error {
	if !deadline.IsZero() {
		c.conn.SetWriteDeadline(deadline)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write ws message: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
