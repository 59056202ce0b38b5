package syncano

import (
	"context"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/models"
)

// CollectionService groups the collection.* methods.
//
// Collections are addressed with a models.CollectionRef: set either the id
// or the key, never both.
type CollectionService struct {
	db *DB
}

// New creates a collection in a project. New collections start inactive.
func (s *CollectionService) New(ctx context.Context, req models.NewCollectionRequest) (*models.Collection, error) {
	return call[models.Collection](ctx, s.db, connection.CollectionNew, req)
}

// Get lists the collections of a project, optionally filtered by status and tags.
func (s *CollectionService) Get(ctx context.Context, req models.GetCollectionsRequest) ([]models.Collection, error) {
	return callList[models.Collection](ctx, s.db, connection.CollectionGet, req)
}

// GetOne returns a single collection.
func (s *CollectionService) GetOne(ctx context.Context, req models.CollectionRequest) (*models.Collection, error) {
	return call[models.Collection](ctx, s.db, connection.CollectionGetOne, req)
}

// Activate makes a collection accept data. With Force set, another active
// collection using the same key is deactivated first.
func (s *CollectionService) Activate(ctx context.Context, req models.ActivateCollectionRequest) error {
	return exec(ctx, s.db, connection.CollectionActivate, req)
}

// Deactivate stops a collection from accepting data.
func (s *CollectionService) Deactivate(ctx context.Context, req models.CollectionRequest) error {
	return exec(ctx, s.db, connection.CollectionDeactivate, req)
}

// Update changes the name, key or description of a collection.
func (s *CollectionService) Update(ctx context.Context, req models.UpdateCollectionRequest) (*models.Collection, error) {
	return call[models.Collection](ctx, s.db, connection.CollectionUpdate, req)
}

// Delete removes a collection with its folders and data.
func (s *CollectionService) Delete(ctx context.Context, req models.CollectionRequest) error {
	return exec(ctx, s.db, connection.CollectionDelete, req)
}

// AddTag tags a collection. With RemoveOther set, tags not listed are removed.
func (s *CollectionService) AddTag(ctx context.Context, req models.AddCollectionTagsRequest) error {
	return exec(ctx, s.db, connection.CollectionAddTag, req)
}

// DeleteTag removes tags from a collection.
func (s *CollectionService) DeleteTag(ctx context.Context, req models.DeleteCollectionTagsRequest) error {
	return exec(ctx, s.db, connection.CollectionDeleteTag, req)
}

// Authorize grants an API client a permission on the collection.
func (s *CollectionService) Authorize(ctx context.Context, req models.AuthorizeCollectionRequest) error {
	return exec(ctx, s.db, connection.CollectionAuthorize, req)
}

// Deauthorize revokes a permission granted with Authorize.
func (s *CollectionService) Deauthorize(ctx context.Context, req models.AuthorizeCollectionRequest) error {
	return exec(ctx, s.db, connection.CollectionDeauthorize, req)
}
