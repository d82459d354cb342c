// Package transport is the duplex text channel to the Cortex service.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	logs "github.com/danmuck/cortexctl/internal/logging"
)

var ErrChannelClosed = errors.New("transport: channel closed")

// Conn is the subset of *websocket.Conn the channel uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Channel is a text-message channel over one websocket connection.
type Channel struct {
	conn         Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// Dial opens the websocket with per-message compression disabled.
func Dial(ctx context.Context, cfg Config) (*Channel, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.clientTLSConfig()
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		TLSClientConfig:   tlsCfg,
		EnableCompression: false,
	}
	conn, resp, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s: %w (status=%d)", cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: dial %s: %w", cfg.URL, err)
	}
	logs.Infof("transport.Dial connected url=%s", cfg.URL)
	return NewChannel(conn, cfg.WriteTimeout), nil
}

// NewChannel wraps an established connection.
func NewChannel(conn Conn, writeTimeout time.Duration) *Channel {
	return &Channel{conn: conn, writeTimeout: writeTimeout}
}

// Send writes one text message. Writes are serialised.
func (c *Channel) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Listen reads messages until the connection fails or ctx ends. Each text
// message is passed to onMessage in arrival order; a read failure goes to
// onError and ends the loop.
func (c *Channel) Listen(ctx context.Context, onMessage func(string), onError func(error)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if onError != nil {
				onError(err)
			}
			return err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		onMessage(string(data))
	}
}

// Close sends a close frame and releases the connection.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	return c.conn.Close()
}
