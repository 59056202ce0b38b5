package models

// CollectionStatus filters collections by activation state.
type CollectionStatus string

const (
	CollectionActive   CollectionStatus = "active"
	CollectionInactive CollectionStatus = "inactive"
	CollectionAll      CollectionStatus = "all"
)

// DataState is the moderation state of a data object.
type DataState string

const (
	StatePending   DataState = "Pending"
	StateModerated DataState = "Moderated"
	StateRejected  DataState = "Rejected"
	// StateAll is only valid as a filter.
	StateAll DataState = "All"
)

// DataFilter restricts data objects to those carrying text or an image.
type DataFilter string

const (
	FilterText  DataFilter = "TEXT"
	FilterImage DataFilter = "IMAGE"
)

type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

type OrderBy string

const (
	OrderByCreatedAt OrderBy = "created_at"
	OrderByUpdatedAt OrderBy = "updated_at"
)

// UpdateMethod decides what happens to fields omitted from data.update.
// Replace clears them, merge keeps their stored values.
type UpdateMethod string

const (
	UpdateReplace UpdateMethod = "replace"
	UpdateMerge   UpdateMethod = "merge"
)

// Permission is a grant given to an API client on a project, collection or folder.
type Permission string

const (
	PermissionReadData      Permission = "read_data"
	PermissionReadOwnData   Permission = "read_own_data"
	PermissionCreateData    Permission = "create_data"
	PermissionUpdateData    Permission = "update_data"
	PermissionUpdateOwnData Permission = "update_own_data"
	PermissionDeleteData    Permission = "delete_data"
	PermissionDeleteOwnData Permission = "delete_own_data"
	// PermissionFull is only accepted on projects.
	PermissionFull Permission = "full"
)

// SubscriptionContext controls how long a subscription outlives the connection.
type SubscriptionContext string

const (
	ContextClient     SubscriptionContext = "client"
	ContextSession    SubscriptionContext = "session"
	ContextConnection SubscriptionContext = "connection"
)
