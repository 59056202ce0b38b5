// Package testenv provides utilities for testing the Syncano Go SDK.
//
// Tests and examples call MustNew to get a connected DB and a fresh project.
// When SYNCANO_API_KEY is set the DB talks to the platform at SYNCANO_URL;
// otherwise an in-process fake sync server is started once and shared.
package testenv

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/internal/fakesync"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/logger"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

const (
	// DefaultURL is the platform endpoint used for live runs without SYNCANO_URL.
	DefaultURL = "https://api.syncano.com"

	// EnvURL is the environment variable that specifies the endpoint.
	// Its scheme picks the transport: http(s), tcp/tls or ws(s).
	EnvURL = "SYNCANO_URL"

	// EnvAPIKey is the environment variable holding the API key.
	// Live runs are enabled by setting it.
	EnvAPIKey = "SYNCANO_API_KEY"

	// EnvInstance is the environment variable naming the instance.
	EnvInstance = "SYNCANO_INSTANCE"

	// EnvTransport selects the transport of the fake server: http, tcp or ws.
	// It is ignored in live runs.
	EnvTransport = "SYNCANO_TRANSPORT"

	// EnvCodec selects the sync codec, json or cbor.
	EnvCodec = "SYNCANO_CODEC"

	// EnvWebSocket selects the WebSocket client library, gorilla or gws.
	EnvWebSocket = "SYNCANO_WEBSOCKET"

	fakeAPIKey = "testenv"
)

var (
	fakeOnce   sync.Once
	fakeServer *fakesync.Server
	fakeErr    error
)

// Live reports whether tests run against the real platform.
func Live() bool {
	return os.Getenv(EnvAPIKey) != ""
}

// Server returns the shared fake server, starting it on first use.
// It fails in live runs.
func Server() (*fakesync.Server, error) {
	if Live() {
		return nil, fmt.Errorf("no fake server in live runs, %s is set", EnvAPIKey)
	}
	fakeOnce.Do(func() {
		fakeServer = fakesync.NewServer(fakeAPIKey)
		fakeErr = fakeServer.Start()
	})
	return fakeServer, fakeErr
}

// Config builds the connection configuration of the test environment.
func Config() (*connection.Config, error) {
	endpoint, apiKey := os.Getenv(EnvURL), os.Getenv(EnvAPIKey)

	if !Live() {
		server, err := Server()
		if err != nil {
			return nil, err
		}
		apiKey = fakeAPIKey
		switch os.Getenv(EnvTransport) {
		case fakesync.TransportTCP:
			endpoint = server.TCPURL()
		case fakesync.TransportWS:
			endpoint = server.WSURL()
		default:
			endpoint = server.HTTPURL()
		}
	} else if endpoint == "" {
		endpoint = DefaultURL
	}

	u, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return nil, err
	}

	conf := connection.NewConfig(u)
	conf.APIKey = apiKey
	conf.Instance = os.Getenv(EnvInstance)
	conf.Logger = logger.Discard()
	conf.Timeout = 10 * time.Second
	conf.WebSocket = os.Getenv(EnvWebSocket)
	if conf.Codec, err = marshal.ByName(os.Getenv(EnvCodec)); err != nil {
		return nil, err
	}
	return conf, nil
}

// Connect returns a DB connected to the test environment.
func Connect(ctx context.Context) (*syncano.DB, error) {
	conf, err := Config()
	if err != nil {
		return nil, err
	}
	return syncano.Connect(ctx, conf)
}

// New connects and creates an empty project named name. Projects left
// behind by earlier runs under the same name are deleted first.
func New(name string) (*syncano.DB, *models.Project, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("project name must be specified")
	}

	ctx := context.Background()
	db, err := Connect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Syncano: %w", err)
	}

	projects, err := db.Projects.Get(ctx)
	if err != nil {
		_ = db.Close(ctx)
		return nil, nil, fmt.Errorf("failed to list projects: %w", err)
	}
	for _, p := range projects {
		if p.Name != name {
			continue
		}
		if err := db.Projects.Delete(ctx, p.ID); err != nil {
			_ = db.Close(ctx)
			return nil, nil, fmt.Errorf("failed to delete project %s: %w", p.ID, err)
		}
	}

	p, err := db.Projects.New(ctx, models.NewProjectRequest{Name: name})
	if err != nil {
		_ = db.Close(ctx)
		return nil, nil, fmt.Errorf("failed to create project %s: %w", name, err)
	}
	return db, p, nil
}

func MustNew(name string) (*syncano.DB, *models.Project) {
	db, p, err := New(name)
	if err != nil {
		panic(fmt.Sprintf("Failed to create Syncano test environment: %v", err))
	}
	return db, p
}

// NewCollection creates an active collection keyed key in project p.
func NewCollection(ctx context.Context, db *syncano.DB, p *models.Project, key string) (*models.Collection, error) {
	c, err := db.Collections.New(ctx, models.NewCollectionRequest{ProjectID: p.ID, Name: key, Key: key})
	if err != nil {
		return nil, err
	}
	if err := db.Collections.Activate(ctx, models.ActivateCollectionRequest{ProjectID: p.ID, CollectionID: c.ID, Force: true}); err != nil {
		return nil, err
	}
	c.Status = models.CollectionActive
	return c, nil
}
