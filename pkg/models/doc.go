// Package models holds the data types mirrored from the Syncano platform
// and the parameter sets accepted by each remote method.
//
// Resources (Project, Collection, Folder, DataObject) only mirror field
// shapes; uniqueness, state transitions and permission enforcement happen
// server side.
//
// Request types carry `json` tags naming the wire parameters and `validate`
// tags checked locally before any network call is made.
package models
