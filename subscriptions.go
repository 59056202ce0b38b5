package syncano

import (
	"context"
	"fmt"

	"github.com/syncano/syncano.go/internal/validation"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/models"
)

// SubscriptionService groups the subscription.* and notification.* methods.
//
// They are only available on sync connections (tcp, tls, ws, wss). On REST
// connections every method returns constants.ErrMethodNotAvailable without
// calling Syncano.
//
// Subscriptions made through a connection with a retry.Retryer are restored
// after a reconnect.
type SubscriptionService struct {
	db *DB
}

func (s *SubscriptionService) requireSync(method string) error {
	if _, ok := s.db.con.(sessioner); !ok {
		return fmt.Errorf("%s: %w", method, constants.ErrMethodNotAvailable)
	}
	return nil
}

// SubscribeProject subscribes the session to changes of every collection of
// a project. Receive them from db.Notifications(sub.Key()).
func (s *SubscriptionService) SubscribeProject(ctx context.Context, req models.SubscribeProjectRequest) (*models.Subscription, error) {
	if err := s.requireSync(connection.SubscribeProject); err != nil {
		return nil, err
	}
	sub, err := call[models.Subscription](ctx, s.db, connection.SubscribeProject, req)
	if err != nil {
		return nil, err
	}
	if sub.ID == "" {
		sub.Type, sub.ID, sub.Context = "project", req.ProjectID, req.Context
	}
	return sub, nil
}

// UnsubscribeProject stops notifications for a project.
func (s *SubscriptionService) UnsubscribeProject(ctx context.Context, projectID string) error {
	if err := s.requireSync(connection.UnsubscribeProject); err != nil {
		return err
	}
	if err := validation.NotEmpty(connection.UnsubscribeProject, "project_id", projectID); err != nil {
		return err
	}
	return exec(ctx, s.db, connection.UnsubscribeProject, models.ProjectRequest{ProjectID: projectID})
}

// SubscribeCollection subscribes the session to changes of one collection.
//
// The returned subscription carries the collection id even when the
// collection was addressed by key, so sub.Key() matches the notifications.
func (s *SubscriptionService) SubscribeCollection(ctx context.Context, req models.SubscribeCollectionRequest) (*models.Subscription, error) {
	if err := s.requireSync(connection.SubscribeCollection); err != nil {
		return nil, err
	}
	return call[models.Subscription](ctx, s.db, connection.SubscribeCollection, req)
}

// UnsubscribeCollection stops notifications for a collection.
func (s *SubscriptionService) UnsubscribeCollection(ctx context.Context, req models.CollectionRequest) error {
	if err := s.requireSync(connection.UnsubscribeCollection); err != nil {
		return err
	}
	return exec(ctx, s.db, connection.UnsubscribeCollection, req)
}

// Get lists subscriptions of an API client or a session. With neither set,
// it lists the subscriptions of the current session.
func (s *SubscriptionService) Get(ctx context.Context, req models.GetSubscriptionsRequest) ([]models.Subscription, error) {
	if err := s.requireSync(connection.SubscriptionGet); err != nil {
		return nil, err
	}
	return callList[models.Subscription](ctx, s.db, connection.SubscriptionGet, req)
}

// SendNotification pushes a custom message notification to other clients.
func (s *SubscriptionService) SendNotification(ctx context.Context, req models.SendNotificationRequest) error {
	if err := s.requireSync(connection.NotificationSend); err != nil {
		return err
	}
	return exec(ctx, s.db, connection.NotificationSend, req)
}
