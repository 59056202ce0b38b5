// Package tcp connects to the Syncano sync server over a raw TCP socket,
// optionally wrapped in TLS.
package tcp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
)

// DefaultDialTimeout bounds the TCP (and TLS) handshake.
const DefaultDialTimeout = 10 * time.Second

// Connection is a sync connection over TCP.
type Connection struct {
	*connection.SyncConnection
}

var _ connection.Connection = (*Connection)(nil)

// New creates a Connection for a tcp:// or tls:// endpoint. Nothing is
// dialed until Connect.
func New(conf *connection.Config) *Connection {
	addr := conf.URL.Host
	useTLS := conf.URL.Scheme == constants.TLSScheme
	tlsConfig := conf.TLSConfig
	if useTLS && tlsConfig == nil {
		tlsConfig = &tls.Config{
			ServerName: conf.URL.Hostname(),
			MinVersion: tls.VersionTLS12,
		}
	}

	framer := FramerFor(conf.Codec != nil && conf.Codec.Binary())

	dial := func(ctx context.Context) (connection.FrameConn, error) {
		d := &net.Dialer{Timeout: DefaultDialTimeout, KeepAlive: 30 * time.Second}

		var (
			conn net.Conn
			err  error
		)
		if useTLS {
			td := &tls.Dialer{NetDialer: d, Config: tlsConfig}
			conn, err = td.DialContext(ctx, "tcp", addr)
		} else {
			conn, err = d.DialContext(ctx, "tcp", addr)
		}
		if err != nil {
			return nil, fmt.Errorf("dialing sync server %s: %w", addr, err)
		}
		return newFrameConn(conn, framer), nil
	}

	sc := connection.NewSyncConnection(conf.Params(), dial).Configure(conf)
	return &Connection{SyncConnection: sc}
}
