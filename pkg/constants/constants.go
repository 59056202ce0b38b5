package constants

import "time"

const (
	// RequestIDLength size of the id sent in the X-Request-ID header
	RequestIDLength = 16
	// CloseMessageCode identifier the message id for a close request
	CloseMessageCode = 1000
	// DefaultWSTimeout timeout for receiving a call response on a sync connection
	DefaultWSTimeout = 30 * time.Second
	// DefaultHTTPTimeout timeout for a single REST round trip
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultPingInterval is how often a sync connection sends a keepalive ping
	DefaultPingInterval = 30 * time.Second
	// MaxLimit is the largest page size the platform accepts
	MaxLimit = 100
	// MaxDataIDs is the largest number of data ids accepted by a single call
	MaxDataIDs = 100
)

var (
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
	TCPScheme             = "tcp"
	TLSScheme             = "tls"
	WebsocketScheme       = "ws"
	SecureWebsocketScheme = "wss"
)

const (
	ResultOK  = "OK"
	ResultNOK = "NOK"
)
