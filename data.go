package syncano

import (
	"context"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/models"
)

// DataService groups the data.* methods.
type DataService struct {
	db *DB
}

// New creates a data object. The collection must be active.
func (s *DataService) New(ctx context.Context, req models.NewDataRequest) (*models.DataObject, error) {
	return call[models.DataObject](ctx, s.db, connection.DataNew, req)
}

// Get lists data objects matching the filters of req.
//
// A Limit of 0 lets the server pick the page size; use MaxID to page
// through older objects.
func (s *DataService) Get(ctx context.Context, req models.GetDataRequest) ([]models.DataObject, error) {
	return callList[models.DataObject](ctx, s.db, connection.DataGet, req)
}

// GetOne returns a single data object by id or key.
func (s *DataService) GetOne(ctx context.Context, req models.GetOneDataRequest) (*models.DataObject, error) {
	return call[models.DataObject](ctx, s.db, connection.DataGetOne, req)
}

// Update replaces a data object: fields left empty in req are cleared.
func (s *DataService) Update(ctx context.Context, req models.UpdateDataRequest) (*models.DataObject, error) {
	req.UpdateMethod = models.UpdateReplace
	return call[models.DataObject](ctx, s.db, connection.DataUpdate, req)
}

// Merge updates only the fields set in req.
func (s *DataService) Merge(ctx context.Context, req models.UpdateDataRequest) (*models.DataObject, error) {
	req.UpdateMethod = models.UpdateMerge
	return call[models.DataObject](ctx, s.db, connection.DataUpdate, req)
}

// Move sets the folder and/or the state of every data object matching req.
func (s *DataService) Move(ctx context.Context, req models.MoveDataRequest) error {
	return exec(ctx, s.db, connection.DataMove, req)
}

// Copy duplicates data objects and returns the copies.
func (s *DataService) Copy(ctx context.Context, req models.CopyDataRequest) ([]models.DataObject, error) {
	return callList[models.DataObject](ctx, s.db, connection.DataCopy, req)
}

// Delete removes every data object matching req. A request without filters
// empties the collection.
func (s *DataService) Delete(ctx context.Context, req models.DeleteDataRequest) error {
	return exec(ctx, s.db, connection.DataDelete, req)
}

// Count returns the number of data objects matching req.
func (s *DataService) Count(ctx context.Context, req models.CountDataRequest) (int64, error) {
	res, err := call[models.Count](ctx, s.db, connection.DataCount, req)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// AddParent links a data object to a parent. With RemoveOther set, other parents are unlinked.
func (s *DataService) AddParent(ctx context.Context, req models.DataParentRequest) error {
	return exec(ctx, s.db, connection.DataAddParent, req)
}

// RemoveParent unlinks a data object from a parent.
func (s *DataService) RemoveParent(ctx context.Context, req models.DataParentRequest) error {
	return exec(ctx, s.db, connection.DataRemoveParent, req)
}

// AddChild links a child to a data object.
func (s *DataService) AddChild(ctx context.Context, req models.DataChildRequest) error {
	return exec(ctx, s.db, connection.DataAddChild, req)
}

// RemoveChild unlinks a child from a data object.
func (s *DataService) RemoveChild(ctx context.Context, req models.DataChildRequest) error {
	return exec(ctx, s.db, connection.DataRemoveChild, req)
}
