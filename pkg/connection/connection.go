package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/logger"
	"github.com/syncano/syncano.go/pkg/models"
)

// NotificationBufferSize is the capacity of channels returned by Notifications.
const NotificationBufferSize = 64

type Connection interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	// Send calls the remote method with params and decodes the payload of a
	// successful reply into dest. dest may be nil to discard the payload.
	//
	// A reply carrying a failure is returned as *ServiceError.
	Send(ctx context.Context, dest any, method string, params any) error
	// Notifications returns the channel receiving pushed events for key.
	// Keys are built with models.ProjectKey and models.CollectionKey;
	// models.AnyNotificationKey receives events no other key claimed.
	Notifications(key string) (chan models.Notification, error)
	RemoveNotifications(key string)
	GetCodec() codec.Codec
}

type NewConnectionParams struct {
	BaseURL  string
	APIKey   string
	Instance string
	Codec    codec.Codec
	Logger   logger.Logger
}

type BaseConnection struct {
	baseURL  string
	apiKey   string
	instance string
	codec    codec.Codec
	logger   logger.Logger

	responseChannels     map[int64]chan callResult
	responseChannelsLock sync.RWMutex

	notificationChannels     map[string]chan models.Notification
	notificationChannelsLock sync.RWMutex
}

type callResult struct {
	frame Frame
	err   error
}

func newBaseConnection(p NewConnectionParams) BaseConnection {
	log := p.Logger
	if log == nil {
		log = logger.Discard()
	}
	return BaseConnection{
		baseURL:              p.BaseURL,
		apiKey:               p.APIKey,
		instance:             p.Instance,
		codec:                p.Codec,
		logger:               log,
		responseChannels:     make(map[int64]chan callResult),
		notificationChannels: make(map[string]chan models.Notification),
	}
}

func (bc *BaseConnection) createResponseChannel(id int64) (chan callResult, error) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()

	if _, ok := bc.responseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	ch := make(chan callResult, 1)
	bc.responseChannels[id] = ch

	return ch, nil
}

func (bc *BaseConnection) removeResponseChannel(id int64) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()
	delete(bc.responseChannels, id)
}

// takeResponseChannel removes and returns the channel waiting for id, so a
// reply is delivered at most once.
func (bc *BaseConnection) takeResponseChannel(id int64) (chan callResult, bool) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()
	ch, ok := bc.responseChannels[id]
	if ok {
		delete(bc.responseChannels, id)
	}
	return ch, ok
}

// failPending hands err to every call still waiting for a reply.
func (bc *BaseConnection) failPending(err error) {
	bc.responseChannelsLock.Lock()
	defer bc.responseChannelsLock.Unlock()
	for id, ch := range bc.responseChannels {
		ch <- callResult{err: err}
		delete(bc.responseChannels, id)
	}
}

func (bc *BaseConnection) createNotificationChannel(key string) (chan models.Notification, error) {
	bc.notificationChannelsLock.Lock()
	defer bc.notificationChannelsLock.Unlock()

	if _, ok := bc.notificationChannels[key]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, key)
	}

	ch := make(chan models.Notification, NotificationBufferSize)
	bc.notificationChannels[key] = ch

	return ch, nil
}

func (bc *BaseConnection) getNotificationChannel(key string) (chan models.Notification, bool) {
	bc.notificationChannelsLock.RLock()
	defer bc.notificationChannelsLock.RUnlock()
	ch, ok := bc.notificationChannels[key]

	return ch, ok
}

func (bc *BaseConnection) RemoveNotifications(key string) {
	bc.notificationChannelsLock.Lock()
	defer bc.notificationChannelsLock.Unlock()
	if ch, ok := bc.notificationChannels[key]; ok {
		close(ch)
		delete(bc.notificationChannels, key)
	}
}

// deliverNotification hands n to the first registered key among keys.
// It never blocks: a full channel drops the event.
func (bc *BaseConnection) deliverNotification(n models.Notification, keys []string) bool {
	bc.notificationChannelsLock.RLock()
	defer bc.notificationChannelsLock.RUnlock()

	for _, key := range keys {
		ch, ok := bc.notificationChannels[key]
		if !ok {
			continue
		}
		select {
		case ch <- n:
		default:
			bc.logger.Warn("notification dropped, channel is full", "key", key, "type", string(n.Type))
		}
		return true
	}
	return false
}

func (bc *BaseConnection) closeNotificationChannels() {
	bc.notificationChannelsLock.Lock()
	defer bc.notificationChannelsLock.Unlock()
	for key, ch := range bc.notificationChannels {
		close(ch)
		delete(bc.notificationChannels, key)
	}
}

func (bc *BaseConnection) preConnectionChecks() error {
	if bc.baseURL == "" {
		return constants.ErrNoBaseURL
	}

	if bc.codec == nil {
		return constants.ErrNoMarshaler
	}

	if bc.apiKey == "" {
		return constants.ErrNoAPIKey
	}

	return nil
}

func (bc *BaseConnection) GetCodec() codec.Codec {
	return bc.codec
}

func (bc *BaseConnection) Notifications(key string) (chan models.Notification, error) {
	c, err := bc.createNotificationChannel(key)
	if err != nil {
		bc.logger.Error(err.Error())
	}
	return c, err
}
