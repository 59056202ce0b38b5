package syncano

import (
	"context"
	"fmt"
	"net/url"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/connection/gorillaws"
	"github.com/syncano/syncano.go/pkg/connection/gws"
	"github.com/syncano/syncano.go/pkg/connection/http"
	"github.com/syncano/syncano.go/pkg/connection/tcp"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/models"
)

type DB struct {
	con connection.Connection

	Projects      *ProjectService
	Collections   *CollectionService
	Folders       *FolderService
	Data          *DataService
	Subscriptions *SubscriptionService
}

func newDB(con connection.Connection) *DB {
	db := &DB{con: con}
	db.Projects = &ProjectService{db: db}
	db.Collections = &CollectionService{db: db}
	db.Folders = &FolderService{db: db}
	db.Data = &DataService{db: db}
	db.Subscriptions = &SubscriptionService{db: db}
	return db
}

// FromEndpointURLString creates a new DB and connects to the endpoint.
//
// The URL scheme selects the connection engine, see the package documentation.
// Other settings use the defaults of connection.NewConfig; use [Connect] to
// change them.
func FromEndpointURLString(ctx context.Context, connectionURL, apiKey, instance string) (*DB, error) {
	u, err := url.ParseRequestURI(connectionURL)
	if err != nil {
		return nil, err
	}

	conf := connection.NewConfig(u)
	conf.APIKey = apiKey
	conf.Instance = instance

	return Connect(ctx, conf)
}

// Connect creates the connection engine described by conf and connects it.
func Connect(ctx context.Context, conf *connection.Config) (*DB, error) {
	con, err := NewConnection(conf)
	if err != nil {
		return nil, err
	}
	return FromConnection(ctx, con)
}

// NewConnection creates the connection engine matching the scheme of conf.URL
// without connecting it.
func NewConnection(conf *connection.Config) (connection.Connection, error) {
	switch scheme := conf.URL.Scheme; scheme {
	case constants.HTTPScheme, constants.HTTPSecureScheme:
		return http.New(conf), nil
	case constants.TCPScheme, constants.TLSScheme:
		return tcp.New(conf), nil
	case constants.WebsocketScheme, constants.SecureWebsocketScheme:
		switch conf.WebSocket {
		case "", connection.WebSocketGorilla:
			return gorillaws.New(conf), nil
		case connection.WebSocketGWS:
			return gws.New(conf), nil
		default:
			return nil, fmt.Errorf("unknown websocket client %q", conf.WebSocket)
		}
	default:
		return nil, fmt.Errorf("%w: %q", constants.ErrUnsupportedScheme, scheme)
	}
}

// FromConnection creates a new DB instance using the provided connection.
//
// The connection is connected before the DB is returned.
func FromConnection(ctx context.Context, con connection.Connection) (*DB, error) {
	if err := con.Connect(ctx); err != nil {
		return nil, err
	}
	return newDB(con), nil
}

// Close closes the underlying connection. Notification channels are closed too.
func (db *DB) Close(ctx context.Context) error {
	return db.con.Close(ctx)
}

// Connection returns the connection engine in use.
func (db *DB) Connection() connection.Connection {
	return db.con
}

// SessionUUID returns the sync session identifier, or "" for REST connections.
func (db *DB) SessionUUID() string {
	if s, ok := db.con.(sessioner); ok {
		return s.SessionUUID()
	}
	return ""
}

// Notifications returns the channel receiving notifications routed to key.
//
// Use models.ProjectKey, models.CollectionKey or models.Subscription.Key to
// build the key. A notification is delivered to the most specific key that
// has a channel; models.AnyNotificationKey catches everything else.
// REST connections return constants.ErrMethodNotAvailable.
func (db *DB) Notifications(key string) (chan models.Notification, error) {
	return db.con.Notifications(key)
}

// RemoveNotifications closes and forgets the channel of key.
func (db *DB) RemoveNotifications(key string) {
	db.con.RemoveNotifications(key)
}

type sessioner interface {
	SessionUUID() string
}
