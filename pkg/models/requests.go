package models

import "time"

// CollectionRef selects a collection by id or by key. Exactly one must be set.
type CollectionRef struct {
	CollectionID  string `json:"collection_id,omitempty"`
	CollectionKey string `json:"collection_key,omitempty"`
}

// ByCollectionID is a shorthand for CollectionRef{CollectionID: id}.
func ByCollectionID(id string) CollectionRef {
	return CollectionRef{CollectionID: id}
}

// ByCollectionKey is a shorthand for CollectionRef{CollectionKey: key}.
func ByCollectionKey(key string) CollectionRef {
	return CollectionRef{CollectionKey: key}
}

// DataRef selects a single data object by id or by key. Exactly one must be set.
type DataRef struct {
	DataID  string `json:"data_id,omitempty"`
	DataKey string `json:"data_key,omitempty"`
}

// ByDataID is a shorthand for DataRef{DataID: id}.
func ByDataID(id string) DataRef {
	return DataRef{DataID: id}
}

// ByDataKey is a shorthand for DataRef{DataKey: key}.
func ByDataKey(key string) DataRef {
	return DataRef{DataKey: key}
}

// Projects

// NewProjectRequest is the project.new parameter set.
type NewProjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// ProjectRequest addresses one project.
type ProjectRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
}

// UpdateProjectRequest is the project.update parameter set.
type UpdateProjectRequest struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// AuthorizeProjectRequest grants or revokes a project permission.
type AuthorizeProjectRequest struct {
	APIClientID string     `json:"api_client_id" validate:"required"`
	Permission  Permission `json:"permission" validate:"required,oneof=read_data read_own_data create_data update_data update_own_data delete_data delete_own_data full"`
	ProjectID   string     `json:"project_id" validate:"required"`
}

// Collections

// NewCollectionRequest is the collection.new parameter set.
type NewCollectionRequest struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Key         string `json:"key,omitempty"`
	Description string `json:"description,omitempty"`
}

// GetCollectionsRequest filters collection.get by status and tags.
type GetCollectionsRequest struct {
	ProjectID string           `json:"project_id" validate:"required"`
	Status    CollectionStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive all"`
	WithTags  []string         `json:"with_tags,omitempty" validate:"omitempty,dive,required"`
}

// CollectionRequest addresses one collection; used by GetOne, Deactivate and Delete.
type CollectionRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
}

// ActivateCollectionRequest is the collection.activate parameter set.
type ActivateCollectionRequest struct {
	ProjectID    string `json:"project_id" validate:"required"`
	CollectionID string `json:"collection_id" validate:"required"`
	Force        bool   `json:"force,omitempty"`
}

// UpdateCollectionRequest is the collection.update parameter set.
type UpdateCollectionRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// AddCollectionTagsRequest is the collection.add_tag parameter set.
type AddCollectionTagsRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	Tags        []string `json:"tags" validate:"required,min=1,dive,required"`
	Weight      float64  `json:"weight,omitempty" validate:"gte=0"`
	RemoveOther bool     `json:"remove_other,omitempty"`
}

// DeleteCollectionTagsRequest is the collection.delete_tag parameter set.
type DeleteCollectionTagsRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	Tags []string `json:"tags" validate:"required,min=1,dive,required"`
}

// AuthorizeCollectionRequest grants or revokes a collection permission.
type AuthorizeCollectionRequest struct {
	APIClientID string     `json:"api_client_id" validate:"required"`
	Permission  Permission `json:"permission" validate:"required,oneof=read_data read_own_data create_data update_data update_own_data delete_data delete_own_data"`
	ProjectID   string     `json:"project_id" validate:"required"`
	CollectionRef
}

// Folders

// NewFolderRequest is the folder.new parameter set.
type NewFolderRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	Name string `json:"name" validate:"required"`
}

// GetFoldersRequest lists the folders of a collection.
type GetFoldersRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
}

// FolderRequest addresses one folder; used by GetOne and Delete.
type FolderRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	FolderName string `json:"folder_name" validate:"required"`
}

// UpdateFolderRequest is the folder.update parameter set.
type UpdateFolderRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	Name     string `json:"name" validate:"required"`
	NewName  string `json:"new_name,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// AuthorizeFolderRequest grants or revokes a folder permission.
type AuthorizeFolderRequest struct {
	APIClientID string     `json:"api_client_id" validate:"required"`
	Permission  Permission `json:"permission" validate:"required,oneof=read_data read_own_data create_data update_data update_own_data delete_data delete_own_data"`
	ProjectID   string     `json:"project_id" validate:"required"`
	CollectionRef
	FolderName string `json:"folder_name" validate:"required"`
}

// Data objects

// DataFields are the content fields shared by data.new and data.update.
type DataFields struct {
	UserName   string         `json:"user_name,omitempty"`
	SourceURL  string         `json:"source_url,omitempty" validate:"omitempty,url"`
	Title      string         `json:"title,omitempty"`
	Text       string         `json:"text,omitempty"`
	Link       string         `json:"link,omitempty"`
	Image      string         `json:"image,omitempty" validate:"omitempty,base64"`
	ImageURL   string         `json:"image_url,omitempty" validate:"omitempty,url"`
	Data1      *int64         `json:"data1,omitempty"`
	Data2      *int64         `json:"data2,omitempty"`
	Data3      *int64         `json:"data3,omitempty"`
	Folder     string         `json:"folder,omitempty"`
	State      DataState      `json:"state,omitempty" validate:"omitempty,oneof=Pending Moderated Rejected"`
	ParentID   string         `json:"parent_id,omitempty"`
	Additional map[string]any `json:"additional,omitempty"`
}

// NewDataRequest is the data.new parameter set.
type NewDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataKey string `json:"data_key,omitempty"`
	DataFields
}

// GetDataRequest selects, orders and pages data.get results.
type GetDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataIDs         []string   `json:"data_ids,omitempty" validate:"max=100,dive,required"`
	State           DataState  `json:"state,omitempty" validate:"omitempty,oneof=Pending Moderated Rejected All"`
	Folders         []string   `json:"folders,omitempty" validate:"omitempty,dive,required"`
	Since           *time.Time `json:"since,omitempty"`
	MaxID           string     `json:"max_id,omitempty"`
	Limit           int        `json:"limit,omitempty" validate:"min=0,max=100"`
	Order           Order      `json:"order,omitempty" validate:"omitempty,oneof=ASC DESC"`
	OrderBy         OrderBy    `json:"order_by,omitempty" validate:"omitempty,oneof=created_at updated_at"`
	Filter          DataFilter `json:"filter,omitempty" validate:"omitempty,oneof=TEXT IMAGE"`
	IncludeChildren bool       `json:"include_children,omitempty"`
	Depth           int        `json:"depth,omitempty" validate:"min=0"`
	ChildrenLimit   int        `json:"children_limit,omitempty" validate:"min=0,max=100"`
	ParentIDs       []string   `json:"parent_ids,omitempty" validate:"omitempty,dive,required"`
	ChildIDs        []string   `json:"child_ids,omitempty" validate:"omitempty,dive,required"`
	ByUser          string     `json:"by_user,omitempty"`
}

// GetOneDataRequest addresses one data object for data.get_one.
type GetOneDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataRef
	IncludeChildren bool `json:"include_children,omitempty"`
	Depth           int  `json:"depth,omitempty" validate:"min=0"`
	ChildrenLimit   int  `json:"children_limit,omitempty" validate:"min=0,max=100"`
}

// UpdateDataRequest is shared by Update and Merge; the client sets UpdateMethod.
type UpdateDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataRef
	DataFields
	UpdateMethod UpdateMethod `json:"update_method,omitempty" validate:"omitempty,oneof=replace merge"`
}

// MoveDataRequest moves data to another folder or state.
type MoveDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataIDs   []string   `json:"data_ids,omitempty" validate:"max=100,dive,required"`
	Folders   []string   `json:"folders,omitempty" validate:"omitempty,dive,required"`
	State     DataState  `json:"state,omitempty" validate:"omitempty,oneof=Pending Moderated Rejected All"`
	Filter    DataFilter `json:"filter,omitempty" validate:"omitempty,oneof=TEXT IMAGE"`
	ByUser    string     `json:"by_user,omitempty"`
	Limit     int        `json:"limit,omitempty" validate:"min=0,max=100"`
	NewFolder string     `json:"new_folder,omitempty"`
	NewState  DataState  `json:"new_state,omitempty" validate:"omitempty,oneof=Pending Moderated Rejected"`
}

// CopyDataRequest is the data.copy parameter set.
type CopyDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataIDs []string `json:"data_ids" validate:"required,min=1,max=100,dive,required"`
}

// DeleteDataRequest selects the data removed by data.delete.
type DeleteDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataIDs []string   `json:"data_ids,omitempty" validate:"max=100,dive,required"`
	State   DataState  `json:"state,omitempty" validate:"omitempty,oneof=Pending Moderated Rejected All"`
	Folders []string   `json:"folders,omitempty" validate:"omitempty,dive,required"`
	Filter  DataFilter `json:"filter,omitempty" validate:"omitempty,oneof=TEXT IMAGE"`
	ByUser  string     `json:"by_user,omitempty"`
	Limit   int        `json:"limit,omitempty" validate:"min=0,max=100"`
}

// CountDataRequest selects the data counted by data.count.
type CountDataRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	Folders []string   `json:"folders,omitempty" validate:"omitempty,dive,required"`
	State   DataState  `json:"state,omitempty" validate:"omitempty,oneof=Pending Moderated Rejected All"`
	Filter  DataFilter `json:"filter,omitempty" validate:"omitempty,oneof=TEXT IMAGE"`
	ByUser  string     `json:"by_user,omitempty"`
}

// DataParentRequest links a data object to a parent; used by AddParent and RemoveParent.
type DataParentRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataID      string `json:"data_id" validate:"required"`
	ParentID    string `json:"parent_id" validate:"required,nefield=DataID"`
	RemoveOther bool   `json:"remove_other,omitempty"`
}

// DataChildRequest links a data object to a child; used by AddChild and RemoveChild.
type DataChildRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	DataID      string `json:"data_id" validate:"required"`
	ChildID     string `json:"child_id" validate:"required,nefield=DataID"`
	RemoveOther bool   `json:"remove_other,omitempty"`
}

// Subscriptions and notifications

// SubscribeProjectRequest is the subscription.subscribe_project parameter set.
type SubscribeProjectRequest struct {
	ProjectID string              `json:"project_id" validate:"required"`
	Context   SubscriptionContext `json:"context,omitempty" validate:"omitempty,oneof=client session connection"`
}

// SubscribeCollectionRequest is the subscription.subscribe_collection parameter set.
type SubscribeCollectionRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	CollectionRef
	Context SubscriptionContext `json:"context,omitempty" validate:"omitempty,oneof=client session connection"`
}

// GetSubscriptionsRequest lists subscriptions of an API client or a session.
type GetSubscriptionsRequest struct {
	APIClientID string `json:"api_client_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// SendNotificationRequest pushes a custom "message" notification to other
// clients. With neither APIClientID nor UUID set it goes to every connection.
type SendNotificationRequest struct {
	APIClientID string         `json:"api_client_id,omitempty"`
	UUID        string         `json:"uuid,omitempty" validate:"omitempty,uuid"`
	Data        map[string]any `json:"data" validate:"required"`
}
