package connection

import (
	"fmt"

	"github.com/syncano/syncano.go/pkg/constants"
)

// Frame types exchanged with the sync server.
const (
	FrameAuth         = "auth"
	FrameCall         = "call"
	FrameCallResponse = "callresponse"
	FramePing         = "ping"
	FramePong         = "pong"
	FrameError        = "error"
)

// AuthRequest opens a sync session. UUID resumes a previous session.
type AuthRequest struct {
	Type     string `json:"type"`
	APIKey   string `json:"api_key"`
	Instance string `json:"instance,omitempty"`
	UUID     string `json:"uuid,omitempty"`
}

// CallRequest invokes a remote method on a sync connection.
type CallRequest struct {
	Type      string `json:"type"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	MessageID int64  `json:"message_id"`
}

type PingRequest struct {
	Type string `json:"type"`
}

// Frame is the common shape of everything received on a sync connection.
// Notifications carry more fields and are decoded again as models.Notification.
type Frame struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id,omitempty"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	UUID      string `json:"uuid,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// OK reports whether the frame carries a successful result.
func (f Frame) OK() bool {
	return f.Result == constants.ResultOK
}

// ServiceError is a failure reported by the remote platform.
type ServiceError struct {
	Method string
	// StatusCode is the HTTP status of a REST reply, 0 on sync connections.
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Method, constants.ErrService, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, constants.ErrService, e.Message)
}

func (e *ServiceError) Is(target error) bool {
	return target == constants.ErrService
}

// Method names of the remote API.
const (
	ProjectNew         = "project.new"
	ProjectGet         = "project.get"
	ProjectGetOne      = "project.get_one"
	ProjectUpdate      = "project.update"
	ProjectDelete      = "project.delete"
	ProjectAuthorize   = "project.authorize"
	ProjectDeauthorize = "project.deauthorize"

	CollectionNew         = "collection.new"
	CollectionGet         = "collection.get"
	CollectionGetOne      = "collection.get_one"
	CollectionActivate    = "collection.activate"
	CollectionDeactivate  = "collection.deactivate"
	CollectionUpdate      = "collection.update"
	CollectionDelete      = "collection.delete"
	CollectionAddTag      = "collection.add_tag"
	CollectionDeleteTag   = "collection.delete_tag"
	CollectionAuthorize   = "collection.authorize"
	CollectionDeauthorize = "collection.deauthorize"

	FolderNew         = "folder.new"
	FolderGet         = "folder.get"
	FolderGetOne      = "folder.get_one"
	FolderUpdate      = "folder.update"
	FolderDelete      = "folder.delete"
	FolderAuthorize   = "folder.authorize"
	FolderDeauthorize = "folder.deauthorize"

	DataNew          = "data.new"
	DataGet          = "data.get"
	DataGetOne       = "data.get_one"
	DataUpdate       = "data.update"
	DataMove         = "data.move"
	DataCopy         = "data.copy"
	DataDelete       = "data.delete"
	DataCount        = "data.count"
	DataAddParent    = "data.add_parent"
	DataRemoveParent = "data.remove_parent"
	DataAddChild     = "data.add_child"
	DataRemoveChild  = "data.remove_child"

	SubscribeProject      = "subscription.subscribe_project"
	UnsubscribeProject    = "subscription.unsubscribe_project"
	SubscribeCollection   = "subscription.subscribe_collection"
	UnsubscribeCollection = "subscription.unsubscribe_collection"
	SubscriptionGet       = "subscription.get"
	NotificationSend      = "notification.send"
)
