package syncano

import (
	"context"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/models"
)

// FolderService groups the folder.* methods. Folders are named uniquely
// within a collection.
type FolderService struct {
	db *DB
}

// New creates a folder in a collection.
func (s *FolderService) New(ctx context.Context, req models.NewFolderRequest) (*models.Folder, error) {
	return call[models.Folder](ctx, s.db, connection.FolderNew, req)
}

// Get lists the folders of a collection.
func (s *FolderService) Get(ctx context.Context, req models.GetFoldersRequest) ([]models.Folder, error) {
	return callList[models.Folder](ctx, s.db, connection.FolderGet, req)
}

// GetOne returns a single folder by name.
func (s *FolderService) GetOne(ctx context.Context, req models.FolderRequest) (*models.Folder, error) {
	return call[models.Folder](ctx, s.db, connection.FolderGetOne, req)
}

// Update renames a folder or changes its source id.
func (s *FolderService) Update(ctx context.Context, req models.UpdateFolderRequest) (*models.Folder, error) {
	return call[models.Folder](ctx, s.db, connection.FolderUpdate, req)
}

// Delete removes a folder and the data stored in it.
func (s *FolderService) Delete(ctx context.Context, req models.FolderRequest) error {
	return exec(ctx, s.db, connection.FolderDelete, req)
}

// Authorize grants an API client a permission on the folder.
func (s *FolderService) Authorize(ctx context.Context, req models.AuthorizeFolderRequest) error {
	return exec(ctx, s.db, connection.FolderAuthorize, req)
}

// Deauthorize revokes a permission granted with Authorize.
func (s *FolderService) Deauthorize(ctx context.Context, req models.AuthorizeFolderRequest) error {
	return exec(ctx, s.db, connection.FolderDeauthorize, req)
}
