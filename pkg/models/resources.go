package models

import "time"

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Tag struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Collection struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Key         string           `json:"key,omitempty"`
	Status      CollectionStatus `json:"status"`
	Tags        []Tag            `json:"tags,omitempty"`
}

type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SourceID string `json:"source_id,omitempty"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Image struct {
	URL    string `json:"image"`
	Width  int    `json:"image_width"`
	Height int    `json:"image_height"`
}

// DataObject is a content record stored in a collection. Children is only
// populated when the request asked for them.
type DataObject struct {
	ID         string         `json:"id"`
	Key        string         `json:"key,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Folder     string         `json:"folder"`
	State      DataState      `json:"state"`
	User       *User          `json:"user,omitempty"`
	SourceURL  string         `json:"source_url,omitempty"`
	Title      string         `json:"title,omitempty"`
	Text       string         `json:"text,omitempty"`
	Link       string         `json:"link,omitempty"`
	Image      *Image         `json:"image,omitempty"`
	Data1      *int64         `json:"data1,omitempty"`
	Data2      *int64         `json:"data2,omitempty"`
	Data3      *int64         `json:"data3,omitempty"`
	Additional map[string]any `json:"additional,omitempty"`
	ParentID   string         `json:"parent_id,omitempty"`
	Children   []DataObject   `json:"children,omitempty"`
}

// Count is the payload of data.count.
type Count struct {
	Count int64 `json:"count"`
}

type Subscription struct {
	Type    string              `json:"type"`
	ID      string              `json:"id"`
	Context SubscriptionContext `json:"context"`
}

// Key is the notification routing key of s.
func (s Subscription) Key() string {
	if s.Type == "collection" {
		return CollectionKey(s.ID)
	}
	return ProjectKey(s.ID)
}

// NotificationType is the kind of event pushed by the sync server.
type NotificationType string

const (
	NotificationNew     NotificationType = "new"
	NotificationChange  NotificationType = "change"
	NotificationDelete  NotificationType = "delete"
	NotificationMessage NotificationType = "message"
)

// Notification is an event pushed on a sync connection without being asked for.
type Notification struct {
	Type         NotificationType `json:"type"`
	Object       string           `json:"object,omitempty"`
	ID           string           `json:"id,omitempty"`
	ProjectID    string           `json:"project_id,omitempty"`
	CollectionID string           `json:"collection_id,omitempty"`
	Target       map[string]any   `json:"target,omitempty"`
	Data         map[string]any   `json:"data,omitempty"`
}

// Keys returns the routing keys of n, most specific first.
func (n Notification) Keys() []string {
	keys := make([]string, 0, 2)
	if n.CollectionID != "" {
		keys = append(keys, CollectionKey(n.CollectionID))
	}
	if n.ProjectID != "" {
		keys = append(keys, ProjectKey(n.ProjectID))
	}
	return keys
}

// ProjectKey is the notification routing key of a project subscription.
func ProjectKey(projectID string) string {
	return "project:" + projectID
}

// AnyNotificationKey receives notifications that no other registered key claimed.
const AnyNotificationKey = "*"

// CollectionKey is the notification routing key of a collection subscription.
func CollectionKey(collectionID string) string {
	return "collection:" + collectionID
}
