package connection

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/pkg/connection/retry"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/logger"
	"github.com/syncano/syncano.go/pkg/marshal"
)

// Config holds everything needed to build one of the transports.
//
// The URL scheme picks the transport: http and https for REST, tcp and tls
// for the sync server socket, ws and wss for the sync server over WebSocket.
type Config struct {
	URL      url.URL
	BaseURL  string
	APIKey   string
	Instance string
	Codec    codec.Codec
	Logger   logger.Logger

	// Timeout bounds a single call. 0 leaves it to the caller's context.
	Timeout time.Duration
	// PingInterval is the keepalive period of sync connections. 0 disables pings.
	PingInterval time.Duration
	// Retryer reconnects dropped sync connections. nil disables reconnects.
	Retryer retry.Retryer
	// TLSConfig is used by tls and wss endpoints.
	TLSConfig *tls.Config

	// RateLimit caps REST calls per second, RateBurst is the bucket size.
	// A RateLimit of 0 disables throttling.
	RateLimit float64
	RateBurst int64

	// WebSocket picks the client library of ws and wss endpoints,
	// WebSocketGorilla (the default) or WebSocketGWS.
	WebSocket string
}

// WebSocket client libraries.
const (
	WebSocketGorilla = "gorilla"
	WebSocketGWS     = "gws"
)

// NewConfig creates a Config for the endpoint u with the default codec
// (JSON), timeouts and an stdout text logger.
func NewConfig(u *url.URL) *Config {
	timeout := constants.DefaultWSTimeout
	if u.Scheme == constants.HTTPScheme || u.Scheme == constants.HTTPSecureScheme {
		timeout = constants.DefaultHTTPTimeout
	}

	return &Config{
		URL:          *u,
		BaseURL:      fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, strings.TrimSuffix(u.Path, "/")),
		Codec:        marshal.JSONCodec{},
		Logger:       logger.New(slog.NewTextHandler(os.Stdout, nil)),
		Timeout:      timeout,
		PingInterval: constants.DefaultPingInterval,
	}
}

// Params returns the transport independent part of c.
func (c *Config) Params() NewConnectionParams {
	return NewConnectionParams{
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		Instance: c.Instance,
		Codec:    c.Codec,
		Logger:   c.Logger,
	}
}
