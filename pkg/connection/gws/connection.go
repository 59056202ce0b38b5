// Package gws connects to the Syncano sync server over WebSocket,
// using github.com/lxzan/gws.
//
// It is an alternative to package gorillaws with the same behavior. gws
// reads in its own goroutine and hands over messages through callbacks,
// which are queued here until the sync connection asks for the next frame.
package gws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lxzan/gws"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
)

// SyncPath is where the sync server accepts WebSocket upgrades.
const SyncPath = "/sync"

// inboxSize is how many frames may wait for the reader before gws stops reading.
const inboxSize = 64

// Connection is a sync connection over WebSocket.
type Connection struct {
	*connection.SyncConnection
}

var _ connection.Connection = (*Connection)(nil)

// New creates a Connection for a ws:// or wss:// endpoint. Nothing is
// dialed until Connect.
func New(conf *connection.Config) *Connection {
	header := http.Header{}
	if conf.Codec != nil {
		header.Set("Sec-WebSocket-Protocol", conf.Codec.Name())
	}
	if conf.Instance != "" {
		header.Set("X-Syncano-Instance", conf.Instance)
	}

	opcode := gws.OpcodeText
	if conf.Codec != nil && conf.Codec.Binary() {
		opcode = gws.OpcodeBinary
	}

	endpoint := conf.BaseURL + SyncPath
	dial := func(ctx context.Context) (connection.FrameConn, error) {
		fc := newFrameConn(opcode)
		option := &gws.ClientOption{
			Addr:          endpoint,
			RequestHeader: header.Clone(),
			TlsConfig:     conf.TLSConfig,
			PermessageDeflate: gws.PermessageDeflate{
				Enabled: true,
			},
		}
		if deadline, ok := ctx.Deadline(); ok {
			option.HandshakeTimeout = time.Until(deadline)
		}

		socket, res, err := gws.NewClient(fc, option)
		if err != nil {
			return nil, fmt.Errorf("dialing sync server %s: %w", endpoint, err)
		}
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}
		fc.socket = socket
		go socket.ReadLoop()
		return fc, nil
	}

	sc := connection.NewSyncConnection(conf.Params(), dial).Configure(conf)
	return &Connection{SyncConnection: sc}
}

// frameConn turns the gws event handler into a connection.FrameConn.
type frameConn struct {
	gws.BuiltinEventHandler

	socket *gws.Conn
	opcode gws.Opcode

	inbox  chan []byte
	closed chan struct{}

	mu       sync.Mutex
	closeErr error
	once     sync.Once
}

func newFrameConn(opcode gws.Opcode) *frameConn {
	return &frameConn{
		opcode: opcode,
		inbox:  make(chan []byte, inboxSize),
		closed: make(chan struct{}),
	}
}

func (c *frameConn) OnMessage(_ *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText && message.Opcode != gws.OpcodeBinary {
		return
	}

	// The buffer goes back to a pool on Close.
	data := append([]byte(nil), message.Bytes()...)
	select {
	case c.inbox <- data:
	case <-c.closed:
	}
}

func (c *frameConn) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (c *frameConn) OnClose(_ *gws.Conn, err error) {
	c.shutdown(err)
}

func (c *frameConn) shutdown(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.closeErr = err
		c.mu.Unlock()
		close(c.closed)
	})
}

func (c *frameConn) ReadFrame() ([]byte, error) {
	// Frames that arrived before the close are still delivered.
	select {
	case data := <-c.inbox:
		return data, nil
	default:
	}

	select {
	case data := <-c.inbox:
		return data, nil
	case <-c.closed:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closeErr == nil {
			return nil, constants.ErrConnectionClosed
		}
		return nil, c.closeErr
	}
}

func (c *frameConn) WriteFrame(data []byte) error {
	select {
	case <-c.closed:
		return constants.ErrConnectionClosed
	default:
	}
	return c.socket.WriteMessage(c.opcode, data)
}

// Close sends a close frame and closes the socket.
func (c *frameConn) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
	}
	// WriteClose may already close the socket, so the error of the final
	// close is not reported.
	c.socket.WriteClose(constants.CloseMessageCode, nil) //nolint:errcheck
	c.shutdown(nil)
	_ = c.socket.NetConn().Close()
	return nil
}
