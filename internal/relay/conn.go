package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is the subset of *websocket.Conn the relay needs on either leg.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens the AI realtime connection for one call.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context) (Conn, error)

func (f DialFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// onceConn closes the wrapped connection at most once. Close errors are
// logged at debug and never returned, so every exit path may call Close.
type onceConn struct {
	Conn
	leg    string
	logger *zap.Logger
	once   sync.Once
}

func newOnceConn(c Conn, leg string, logger *zap.Logger) *onceConn {
	return &onceConn{Conn: c, leg: leg, logger: logger}
}

func (c *onceConn) Close() error {
	c.once.Do(func() {
		if err := c.Conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Debug("close connection", zap.String("leg", c.leg), zap.Error(err))
		}
	})
	return nil
}

// isExpectedClose reports whether a read error is an ordinary end of stream.
func isExpectedClose(err error) bool {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
