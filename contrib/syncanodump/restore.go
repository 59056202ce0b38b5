package syncanodump

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

// Restorer recreates a dumped project as a new project.
type Restorer struct {
	db    *syncano.DB
	codec codec.Codec
	stats Stats

	// ProjectName overrides the name of the created project.
	ProjectName string
}

// NewRestorer creates a Restorer writing through db.
func NewRestorer(db *syncano.DB) *Restorer {
	return &Restorer{db: db, codec: marshal.NewCBOR()}
}

// Stats returns what the last restore created.
func (r *Restorer) Stats() Stats {
	return r.stats
}

// Restore checks the dump at path against its manifest and restores it.
func (r *Restorer) Restore(ctx context.Context, path string) (*models.Project, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := m.Verify(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	return r.Read(ctx, bufio.NewReader(f))
}

// Read restores the dump read from rd.
func (r *Restorer) Read(ctx context.Context, rd io.Reader) (*models.Project, error) {
	r.stats = Stats{}

	header := make([]byte, len(DumpFormat))
	if _, err := io.ReadFull(rd, header); err != nil {
		return nil, fmt.Errorf("failed to read magic header: %w", err)
	}
	if string(header) != DumpFormat {
		return nil, fmt.Errorf("not a dump file, header %q", header)
	}

	dec := r.codec.NewDecoder(rd)
	var (
		project *models.Project
		current *pendingCollection
	)
	for {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return project, fmt.Errorf("failed to decode entry: %w", err)
		}

		var err error
		switch e.Kind {
		case EntryProject:
			if project != nil {
				return project, errors.New("dump holds more than one project")
			}
			project, err = r.createProject(ctx, e.Project)
		case EntryCollection:
			if project == nil {
				return nil, errors.New("collection before project in dump")
			}
			if current != nil {
				if err = r.finish(ctx, project.ID, current); err != nil {
					break
				}
			}
			current, err = r.createCollection(ctx, project.ID, e.Collection)
		case EntryFolder:
			if current == nil {
				return project, errors.New("folder outside of a collection in dump")
			}
			err = r.createFolder(ctx, project.ID, current, e.Folder)
		case EntryData:
			if current == nil {
				return project, errors.New("data outside of a collection in dump")
			}
			err = r.createData(ctx, project.ID, current, e)
		default:
			err = fmt.Errorf("unknown entry kind %q", e.Kind)
		}
		if err != nil {
			return project, err
		}
	}

	if project == nil {
		return nil, errors.New("dump holds no project")
	}
	if current != nil {
		if err := r.finish(ctx, project.ID, current); err != nil {
			return project, err
		}
	}
	return project, nil
}

// pendingCollection tracks a restored collection until its links are set.
type pendingCollection struct {
	source  *models.Collection
	id      string
	folders map[string]bool
	// ids maps dumped data ids to restored ones.
	ids   map[string]string
	links map[string][]string
}

func (r *Restorer) createProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p == nil {
		return nil, errors.New("empty project entry")
	}
	name := p.Name
	if r.ProjectName != "" {
		name = r.ProjectName
	}
	project, err := r.db.Projects.New(ctx, models.NewProjectRequest{Name: name, Description: p.Description})
	if err != nil {
		return nil, fmt.Errorf("failed to create project %q: %w", name, err)
	}
	return project, nil
}

func (r *Restorer) createCollection(ctx context.Context, projectID string, c *models.Collection) (*pendingCollection, error) {
	if c == nil {
		return nil, errors.New("empty collection entry")
	}
	created, err := r.db.Collections.New(ctx, models.NewCollectionRequest{
		ProjectID:   projectID,
		Name:        c.Name,
		Key:         c.Key,
		Description: c.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", c.Name, err)
	}
	r.stats.Collections++

	// Data can only be added to active collections.
	if err := r.db.Collections.Activate(ctx, models.ActivateCollectionRequest{
		ProjectID:    projectID,
		CollectionID: created.ID,
		Force:        true,
	}); err != nil {
		return nil, fmt.Errorf("failed to activate collection %q: %w", c.Name, err)
	}

	ref := models.ByCollectionID(created.ID)
	for _, tag := range c.Tags {
		if err := r.db.Collections.AddTag(ctx, models.AddCollectionTagsRequest{
			ProjectID:     projectID,
			CollectionRef: ref,
			Tags:          []string{tag.Name},
			Weight:        tag.Weight,
		}); err != nil {
			return nil, fmt.Errorf("failed to tag collection %q: %w", c.Name, err)
		}
	}

	existing, err := r.db.Folders.Get(ctx, models.GetFoldersRequest{ProjectID: projectID, CollectionRef: ref})
	if err != nil {
		return nil, err
	}
	pc := &pendingCollection{
		source:  c,
		id:      created.ID,
		folders: make(map[string]bool, len(existing)),
		ids:     make(map[string]string),
		links:   make(map[string][]string),
	}
	for _, f := range existing {
		pc.folders[f.Name] = true
	}
	return pc, nil
}

func (r *Restorer) createFolder(ctx context.Context, projectID string, pc *pendingCollection, f *models.Folder) error {
	if f == nil {
		return errors.New("empty folder entry")
	}
	ref := models.ByCollectionID(pc.id)
	if !pc.folders[f.Name] {
		if _, err := r.db.Folders.New(ctx, models.NewFolderRequest{ProjectID: projectID, CollectionRef: ref, Name: f.Name}); err != nil {
			return fmt.Errorf("failed to create folder %q: %w", f.Name, err)
		}
		pc.folders[f.Name] = true
		r.stats.Folders++
	}
	if f.SourceID != "" {
		if _, err := r.db.Folders.Update(ctx, models.UpdateFolderRequest{
			ProjectID:     projectID,
			CollectionRef: ref,
			Name:          f.Name,
			SourceID:      f.SourceID,
		}); err != nil {
			return fmt.Errorf("failed to set source of folder %q: %w", f.Name, err)
		}
	}
	return nil
}

func (r *Restorer) createData(ctx context.Context, projectID string, pc *pendingCollection, e Entry) error {
	obj := e.Data
	if obj == nil {
		return errors.New("empty data entry")
	}
	created, err := r.db.Data.New(ctx, models.NewDataRequest{
		ProjectID:     projectID,
		CollectionRef: models.ByCollectionID(pc.id),
		DataKey:       obj.Key,
		DataFields:    fieldsOf(obj),
	})
	if err != nil {
		return fmt.Errorf("failed to restore data object %s: %w", obj.ID, err)
	}
	pc.ids[obj.ID] = created.ID
	if len(e.Parents) > 0 {
		pc.links[obj.ID] = e.Parents
	}
	r.stats.Data++
	return nil
}

// finish links the restored objects of pc and restores its status.
func (r *Restorer) finish(ctx context.Context, projectID string, pc *pendingCollection) error {
	ref := models.ByCollectionID(pc.id)
	for child, parents := range pc.links {
		for _, parent := range parents {
			newParent, ok := pc.ids[parent]
			if !ok {
				return fmt.Errorf("parent %s of data object %s is missing from the dump", parent, child)
			}
			if err := r.db.Data.AddParent(ctx, models.DataParentRequest{
				ProjectID:     projectID,
				CollectionRef: ref,
				DataID:        pc.ids[child],
				ParentID:      newParent,
			}); err != nil {
				return fmt.Errorf("failed to link data object %s: %w", child, err)
			}
			r.stats.Links++
		}
	}

	if pc.source.Status == models.CollectionInactive {
		if err := r.db.Collections.Deactivate(ctx, models.CollectionRequest{ProjectID: projectID, CollectionRef: ref}); err != nil {
			return fmt.Errorf("failed to deactivate collection %q: %w", pc.source.Name, err)
		}
	}
	return nil
}

func fieldsOf(obj *models.DataObject) models.DataFields {
	f := models.DataFields{
		SourceURL:  obj.SourceURL,
		Title:      obj.Title,
		Text:       obj.Text,
		Link:       obj.Link,
		Data1:      obj.Data1,
		Data2:      obj.Data2,
		Data3:      obj.Data3,
		Folder:     obj.Folder,
		State:      obj.State,
		Additional: obj.Additional,
	}
	if obj.User != nil {
		f.UserName = obj.User.Name
	}
	if obj.Image != nil {
		f.ImageURL = obj.Image.URL
	}
	return f
}
