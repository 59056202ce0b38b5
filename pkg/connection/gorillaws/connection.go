// Package gorillaws connects to the Syncano sync server over WebSocket,
// using github.com/gorilla/websocket.
package gorillaws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
)

// SyncPath is where the sync server accepts WebSocket upgrades.
const SyncPath = "/sync"

// DefaultDialer is gorilla's default dialer with compression enabled.
// Subprotocols are set per connection from the codec name.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

// Connection is a sync connection over WebSocket.
type Connection struct {
	*connection.SyncConnection
}

var _ connection.Connection = (*Connection)(nil)

// New creates a Connection for a ws:// or wss:// endpoint. Nothing is
// dialed until Connect.
func New(conf *connection.Config) *Connection {
	dialer := *DefaultDialer
	if conf.Codec != nil {
		dialer.Subprotocols = []string{conf.Codec.Name()}
	}
	if conf.TLSConfig != nil {
		dialer.TLSClientConfig = conf.TLSConfig
	}

	messageType := gorilla.TextMessage
	if conf.Codec != nil && conf.Codec.Binary() {
		messageType = gorilla.BinaryMessage
	}

	endpoint := conf.BaseURL + SyncPath
	header := http.Header{}
	if conf.Instance != "" {
		header.Set("X-Syncano-Instance", conf.Instance)
	}

	dial := func(ctx context.Context) (connection.FrameConn, error) {
		conn, res, err := dialer.DialContext(ctx, endpoint, header)
		if err != nil {
			return nil, fmt.Errorf("dialing sync server %s: %w", endpoint, err)
		}
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}
		return &frameConn{conn: conn, messageType: messageType}, nil
	}

	sc := connection.NewSyncConnection(conf.Params(), dial).Configure(conf)
	return &Connection{SyncConnection: sc}
}

type frameConn struct {
	conn        *gorilla.Conn
	messageType int

	closeOnce sync.Once
	closeErr  error
}

func (c *frameConn) ReadFrame() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == gorilla.TextMessage || messageType == gorilla.BinaryMessage {
			return data, nil
		}
	}
}

func (c *frameConn) WriteFrame(data []byte) error {
	return c.conn.WriteMessage(c.messageType, data)
}

// Close sends a close frame when possible and always closes the socket.
func (c *frameConn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(gorilla.CloseMessage, gorilla.FormatCloseMessage(constants.CloseMessageCode, ""), deadline)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
