package syncano

import (
	"context"

	"github.com/syncano/syncano.go/internal/validation"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/models"
)

// ProjectService groups the project.* methods.
type ProjectService struct {
	db *DB
}

// New creates a project.
func (s *ProjectService) New(ctx context.Context, req models.NewProjectRequest) (*models.Project, error) {
	return call[models.Project](ctx, s.db, connection.ProjectNew, req)
}

// Get lists every project of the instance.
func (s *ProjectService) Get(ctx context.Context) ([]models.Project, error) {
	res, err := connection.Send[[]models.Project](ctx, s.db.con, connection.ProjectGet, struct{}{})
	if err != nil {
		return nil, err
	}
	if *res == nil {
		return []models.Project{}, nil
	}
	return *res, nil
}

// GetOne returns a single project.
func (s *ProjectService) GetOne(ctx context.Context, projectID string) (*models.Project, error) {
	if err := validation.NotEmpty(connection.ProjectGetOne, "project_id", projectID); err != nil {
		return nil, err
	}
	return call[models.Project](ctx, s.db, connection.ProjectGetOne, models.ProjectRequest{ProjectID: projectID})
}

// Update changes the name or the description of a project. Empty fields are left as they are.
func (s *ProjectService) Update(ctx context.Context, req models.UpdateProjectRequest) (*models.Project, error) {
	return call[models.Project](ctx, s.db, connection.ProjectUpdate, req)
}

// Delete removes a project with all of its collections.
func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	if err := validation.NotEmpty(connection.ProjectDelete, "project_id", projectID); err != nil {
		return err
	}
	return exec(ctx, s.db, connection.ProjectDelete, models.ProjectRequest{ProjectID: projectID})
}

// Authorize grants an API client a permission on the project.
func (s *ProjectService) Authorize(ctx context.Context, req models.AuthorizeProjectRequest) error {
	return exec(ctx, s.db, connection.ProjectAuthorize, req)
}

// Deauthorize revokes a permission granted with Authorize.
func (s *ProjectService) Deauthorize(ctx context.Context, req models.AuthorizeProjectRequest) error {
	return exec(ctx, s.db, connection.ProjectDeauthorize, req)
}
