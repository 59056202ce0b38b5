package fakesync

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

// DefaultFolder is created with every collection and receives data objects
// created without a folder.
const DefaultFolder = "Default"

// DefaultLimit is the page size of data.get when no limit is given.
const DefaultLimit = 100

// Decoder fills dst with the parameters of a call.
type Decoder func(dst any) error

// Store is the in-memory state behind a Server.
//
// It implements the project, collection, folder and data methods. Every
// change to a data object is reported to the notify hook.
type Store struct {
	mu     sync.Mutex
	nextID int64

	projects map[string]*project
	grants   map[grant]bool

	notify func(models.Notification)
}

type project struct {
	models.Project
	collections map[string]*collection
}

type collection struct {
	models.Collection
	folders map[string]*models.Folder
	data    map[string]*models.DataObject
	// parents maps a data id to the ids of its parents.
	parents map[string]map[string]bool
}

type grant struct {
	scope       string
	apiClientID string
	permission  models.Permission
}

func NewStore() *Store {
	return &Store{
		projects: make(map[string]*project),
		grants:   make(map[grant]bool),
	}
}

// HasGrant reports whether apiClientID holds permission on scope. Scopes are
// "project:<id>", "collection:<id>" and "folder:<collection id>/<name>".
func (st *Store) HasGrant(scope, apiClientID string, permission models.Permission) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.grants[grant{scope: scope, apiClientID: apiClientID, permission: permission}]
}

// Failure is a call rejected by the store. It becomes a NOK reply.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

func fail(format string, args ...any) error {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

var errUnknownMethod = errors.New("unknown method")

// Call runs method with the parameters decoded by decode and returns the
// reply data.
func (st *Store) Call(method string, decode Decoder) (any, error) {
	st.mu.Lock()
	out, changes, err := st.dispatch(method, decode)
	notify := st.notify
	st.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if notify != nil {
		for _, n := range changes {
			notify(n)
		}
	}
	return out, nil
}

//nolint:gocyclo,funlen
func (st *Store) dispatch(method string, decode Decoder) (any, []models.Notification, error) {
	var (
		out     any
		err     error
		changes []models.Notification
	)

	switch method {
	case connection.ProjectNew:
		var req models.NewProjectRequest
		if err = decode(&req); err == nil {
			out = st.newProject(req)
		}
	case connection.ProjectGet:
		out = st.listProjects()
	case connection.ProjectGetOne:
		var req models.ProjectRequest
		if err = decode(&req); err == nil {
			var p *project
			if p, err = st.project(req.ProjectID); err == nil {
				out = p.Project
			}
		}
	case connection.ProjectUpdate:
		var req models.UpdateProjectRequest
		if err = decode(&req); err == nil {
			out, err = st.updateProject(req)
		}
	case connection.ProjectDelete:
		var req models.ProjectRequest
		if err = decode(&req); err == nil {
			if _, err = st.project(req.ProjectID); err == nil {
				delete(st.projects, req.ProjectID)
			}
		}
	case connection.ProjectAuthorize, connection.ProjectDeauthorize:
		var req models.AuthorizeProjectRequest
		if err = decode(&req); err == nil {
			if _, err = st.project(req.ProjectID); err == nil {
				st.setGrant(models.ProjectKey(req.ProjectID), req.APIClientID, req.Permission, method == connection.ProjectAuthorize)
			}
		}

	case connection.CollectionNew:
		var req models.NewCollectionRequest
		if err = decode(&req); err == nil {
			out, err = st.newCollection(req)
		}
	case connection.CollectionGet:
		var req models.GetCollectionsRequest
		if err = decode(&req); err == nil {
			out, err = st.listCollections(req)
		}
	case connection.CollectionGetOne:
		var req models.CollectionRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				out = c.Collection
			}
		}
	case connection.CollectionActivate:
		var req models.ActivateCollectionRequest
		if err = decode(&req); err == nil {
			err = st.activateCollection(req)
		}
	case connection.CollectionDeactivate:
		var req models.CollectionRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				c.Status = models.CollectionInactive
			}
		}
	case connection.CollectionUpdate:
		var req models.UpdateCollectionRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				if req.Name != "" {
					c.Name = req.Name
				}
				if req.Description != "" {
					c.Description = req.Description
				}
				out = c.Collection
			}
		}
	case connection.CollectionDelete:
		var req models.CollectionRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				delete(st.projects[req.ProjectID].collections, c.ID)
			}
		}
	case connection.CollectionAddTag:
		var req models.AddCollectionTagsRequest
		if err = decode(&req); err == nil {
			err = st.addTags(req)
		}
	case connection.CollectionDeleteTag:
		var req models.DeleteCollectionTagsRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				c.Tags = removeTags(c.Tags, req.Tags)
			}
		}
	case connection.CollectionAuthorize, connection.CollectionDeauthorize:
		var req models.AuthorizeCollectionRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				st.setGrant(models.CollectionKey(c.ID), req.APIClientID, req.Permission, method == connection.CollectionAuthorize)
			}
		}

	case connection.FolderNew:
		var req models.NewFolderRequest
		if err = decode(&req); err == nil {
			out, err = st.newFolder(req)
		}
	case connection.FolderGet:
		var req models.GetFoldersRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				out = c.listFolders()
			}
		}
	case connection.FolderGetOne:
		var req models.FolderRequest
		if err = decode(&req); err == nil {
			var f *models.Folder
			if _, f, err = st.folder(req.ProjectID, req.CollectionRef, req.FolderName); err == nil {
				out = *f
			}
		}
	case connection.FolderUpdate:
		var req models.UpdateFolderRequest
		if err = decode(&req); err == nil {
			out, err = st.updateFolder(req)
		}
	case connection.FolderDelete:
		var req models.FolderRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, _, err = st.folder(req.ProjectID, req.CollectionRef, req.FolderName); err == nil {
				changes = c.deleteFolder(req.ProjectID, req.FolderName)
			}
		}
	case connection.FolderAuthorize, connection.FolderDeauthorize:
		var req models.AuthorizeFolderRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, _, err = st.folder(req.ProjectID, req.CollectionRef, req.FolderName); err == nil {
				scope := "folder:" + c.ID + "/" + req.FolderName
				st.setGrant(scope, req.APIClientID, req.Permission, method == connection.FolderAuthorize)
			}
		}

	case connection.DataNew:
		var req models.NewDataRequest
		if err = decode(&req); err == nil {
			out, changes, err = st.newData(req)
		}
	case connection.DataGet:
		var req models.GetDataRequest
		if err = decode(&req); err == nil {
			out, err = st.getData(req)
		}
	case connection.DataGetOne:
		var req models.GetOneDataRequest
		if err = decode(&req); err == nil {
			out, err = st.getOneData(req)
		}
	case connection.DataUpdate:
		var req models.UpdateDataRequest
		if err = decode(&req); err == nil {
			out, changes, err = st.updateData(req)
		}
	case connection.DataMove:
		var req models.MoveDataRequest
		if err = decode(&req); err == nil {
			changes, err = st.moveData(req)
		}
	case connection.DataCopy:
		var req models.CopyDataRequest
		if err = decode(&req); err == nil {
			out, changes, err = st.copyData(req)
		}
	case connection.DataDelete:
		var req models.DeleteDataRequest
		if err = decode(&req); err == nil {
			changes, err = st.deleteData(req)
		}
	case connection.DataCount:
		var req models.CountDataRequest
		if err = decode(&req); err == nil {
			var c *collection
			if c, err = st.collection(req.ProjectID, req.CollectionRef); err == nil {
				matched := c.selectData(dataFilter{folders: req.Folders, state: req.State, filter: req.Filter, byUser: req.ByUser})
				out = models.Count{Count: int64(len(matched))}
			}
		}
	case connection.DataAddParent, connection.DataRemoveParent:
		var req models.DataParentRequest
		if err = decode(&req); err == nil {
			changes, err = st.link(req.ProjectID, req.CollectionRef, req.DataID, req.ParentID, method == connection.DataAddParent, req.RemoveOther)
		}
	case connection.DataAddChild, connection.DataRemoveChild:
		var req models.DataChildRequest
		if err = decode(&req); err == nil {
			changes, err = st.link(req.ProjectID, req.CollectionRef, req.ChildID, req.DataID, method == connection.DataAddChild, false)
		}

	default:
		return nil, nil, fmt.Errorf("%w: %s", errUnknownMethod, method)
	}

	return out, changes, err
}

// ProjectExists reports whether a project with id exists.
func (st *Store) ProjectExists(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.projects[id]
	return ok
}

// CollectionID resolves ref to the id of a collection of the project.
func (st *Store) CollectionID(projectID string, ref models.CollectionRef) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, err := st.collection(projectID, ref)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// SetNotify installs the hook receiving data change notifications.
func (st *Store) SetNotify(fn func(models.Notification)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.notify = fn
}

func (st *Store) id() string {
	st.nextID++
	return strconv.FormatInt(st.nextID, 10)
}

func (st *Store) setGrant(scope, apiClientID string, permission models.Permission, on bool) {
	g := grant{scope: scope, apiClientID: apiClientID, permission: permission}
	if on {
		st.grants[g] = true
		return
	}
	delete(st.grants, g)
}

// Projects

func (st *Store) newProject(req models.NewProjectRequest) models.Project {
	p := &project{
		Project:     models.Project{ID: st.id(), Name: req.Name, Description: req.Description},
		collections: make(map[string]*collection),
	}
	st.projects[p.ID] = p
	return p.Project
}

func (st *Store) listProjects() []models.Project {
	out := make([]models.Project, 0, len(st.projects))
	for _, p := range st.projects {
		out = append(out, p.Project)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (st *Store) project(id string) (*project, error) {
	p, ok := st.projects[id]
	if !ok {
		return nil, fail("Project not found.")
	}
	return p, nil
}

func (st *Store) updateProject(req models.UpdateProjectRequest) (models.Project, error) {
	p, err := st.project(req.ProjectID)
	if err != nil {
		return models.Project{}, err
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	return p.Project, nil
}

// Collections

func (st *Store) collection(projectID string, ref models.CollectionRef) (*collection, error) {
	p, err := st.project(projectID)
	if err != nil {
		return nil, err
	}
	if ref.CollectionID != "" {
		if c, ok := p.collections[ref.CollectionID]; ok {
			return c, nil
		}
		return nil, fail("Collection not found.")
	}

	// Several collections may share a key; the active one wins.
	var found *collection
	for _, c := range p.collections {
		if c.Key == "" || c.Key != ref.CollectionKey {
			continue
		}
		if found == nil || c.Status == models.CollectionActive {
			found = c
		}
	}
	if found == nil {
		return nil, fail("Collection not found.")
	}
	return found, nil
}

func (st *Store) newCollection(req models.NewCollectionRequest) (models.Collection, error) {
	p, err := st.project(req.ProjectID)
	if err != nil {
		return models.Collection{}, err
	}
	c := &collection{
		Collection: models.Collection{
			ID:          st.id(),
			Name:        req.Name,
			Description: req.Description,
			Key:         req.Key,
			Status:      models.CollectionInactive,
			Tags:        []models.Tag{},
		},
		folders: make(map[string]*models.Folder),
		data:    make(map[string]*models.DataObject),
		parents: make(map[string]map[string]bool),
	}
	c.folders[DefaultFolder] = &models.Folder{ID: st.id(), Name: DefaultFolder}
	p.collections[c.ID] = c
	return c.Collection, nil
}

func (st *Store) listCollections(req models.GetCollectionsRequest) ([]models.Collection, error) {
	p, err := st.project(req.ProjectID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Collection, 0, len(p.collections))
	for _, c := range p.collections {
		if req.Status != "" && req.Status != models.CollectionAll && c.Status != req.Status {
			continue
		}
		if len(req.WithTags) > 0 && !hasAnyTag(c.Tags, req.WithTags) {
			continue
		}
		out = append(out, c.Collection)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out, nil
}

func (st *Store) activateCollection(req models.ActivateCollectionRequest) error {
	c, err := st.collection(req.ProjectID, models.ByCollectionID(req.CollectionID))
	if err != nil {
		return err
	}
	if c.Key != "" {
		for _, other := range st.projects[req.ProjectID].collections {
			if other == c || other.Key != c.Key || other.Status != models.CollectionActive {
				continue
			}
			if !req.Force {
				return fail("Another active collection uses key %q.", c.Key)
			}
			other.Status = models.CollectionInactive
		}
	}
	c.Status = models.CollectionActive
	return nil
}

func (st *Store) addTags(req models.AddCollectionTagsRequest) error {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return err
	}
	if req.RemoveOther {
		c.Tags = []models.Tag{}
	}
	c.Tags = removeTags(c.Tags, req.Tags)
	for _, name := range req.Tags {
		c.Tags = append(c.Tags, models.Tag{Name: name, Weight: req.Weight})
	}
	sort.Slice(c.Tags, func(i, j int) bool { return c.Tags[i].Name < c.Tags[j].Name })
	return nil
}

func removeTags(tags []models.Tag, names []string) []models.Tag {
	out := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		if !contains(names, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

func hasAnyTag(tags []models.Tag, names []string) bool {
	for _, t := range tags {
		if contains(names, t.Name) {
			return true
		}
	}
	return false
}

// Folders

func (st *Store) folder(projectID string, ref models.CollectionRef, name string) (*collection, *models.Folder, error) {
	c, err := st.collection(projectID, ref)
	if err != nil {
		return nil, nil, err
	}
	f, ok := c.folders[name]
	if !ok {
		return nil, nil, fail("Folder not found.")
	}
	return c, f, nil
}

func (st *Store) newFolder(req models.NewFolderRequest) (models.Folder, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return models.Folder{}, err
	}
	if _, ok := c.folders[req.Name]; ok {
		return models.Folder{}, fail("Folder %q already exists.", req.Name)
	}
	f := &models.Folder{ID: st.id(), Name: req.Name}
	c.folders[f.Name] = f
	return *f, nil
}

func (c *collection) listFolders() []models.Folder {
	out := make([]models.Folder, 0, len(c.folders))
	for _, f := range c.folders {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (st *Store) updateFolder(req models.UpdateFolderRequest) (models.Folder, error) {
	c, f, err := st.folder(req.ProjectID, req.CollectionRef, req.Name)
	if err != nil {
		return models.Folder{}, err
	}
	if req.NewName != "" && req.NewName != f.Name {
		if _, ok := c.folders[req.NewName]; ok {
			return models.Folder{}, fail("Folder %q already exists.", req.NewName)
		}
		delete(c.folders, f.Name)
		for _, d := range c.data {
			if d.Folder == f.Name {
				d.Folder = req.NewName
			}
		}
		f.Name = req.NewName
		c.folders[f.Name] = f
	}
	if req.SourceID != "" {
		f.SourceID = req.SourceID
	}
	return *f, nil
}

func (c *collection) deleteFolder(projectID, name string) []models.Notification {
	delete(c.folders, name)
	var changes []models.Notification
	for id, d := range c.data {
		if d.Folder == name {
			changes = append(changes, c.notification(models.NotificationDelete, projectID, d))
			c.unlink(id)
			delete(c.data, id)
		}
	}
	return changes
}

// Data objects

type dataFilter struct {
	ids     []string
	folders []string
	state   models.DataState
	filter  models.DataFilter
	byUser  string
	since   *time.Time
	maxID   string
	parents []string
	childs  []string
}

func (c *collection) match(d *models.DataObject, f dataFilter) bool {
	switch {
	case len(f.ids) > 0 && !contains(f.ids, d.ID):
		return false
	case len(f.folders) > 0 && !contains(f.folders, d.Folder):
		return false
	case f.state != "" && f.state != models.StateAll && d.State != f.state:
		return false
	case f.filter == models.FilterText && d.Text == "":
		return false
	case f.filter == models.FilterImage && d.Image == nil:
		return false
	case f.byUser != "" && (d.User == nil || d.User.Name != f.byUser):
		return false
	case f.since != nil && d.UpdatedAt.Before(*f.since):
		return false
	case f.maxID != "" && !idLess(d.ID, f.maxID):
		return false
	}
	if len(f.parents) > 0 && !anyIn(c.parents[d.ID], f.parents) {
		return false
	}
	if len(f.childs) > 0 {
		found := false
		for _, child := range f.childs {
			if c.parents[child][d.ID] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// selectData returns matching objects ordered by id.
func (c *collection) selectData(f dataFilter) []*models.DataObject {
	out := make([]*models.DataObject, 0, len(c.data))
	for _, d := range c.data {
		if c.match(d, f) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (c *collection) byRef(ref models.DataRef) (*models.DataObject, error) {
	if ref.DataID != "" {
		if d, ok := c.data[ref.DataID]; ok {
			return d, nil
		}
		return nil, fail("Data object not found.")
	}
	for _, d := range c.data {
		if d.Key == ref.DataKey {
			return d, nil
		}
	}
	return nil, fail("Data object not found.")
}

func (c *collection) notification(t models.NotificationType, projectID string, d *models.DataObject) models.Notification {
	n := models.Notification{
		Type:         t,
		Object:       "data",
		ID:           d.ID,
		ProjectID:    projectID,
		CollectionID: c.ID,
	}
	if t != models.NotificationDelete {
		// Errors are impossible for a DataObject.
		n.Data, _ = marshal.ToParams(marshal.JSONCodec{}, d)
	}
	return n
}

func (st *Store) newData(req models.NewDataRequest) (models.DataObject, []models.Notification, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return models.DataObject{}, nil, err
	}
	if c.Status != models.CollectionActive {
		return models.DataObject{}, nil, fail("Collection is not active.")
	}
	if req.DataKey != "" {
		if _, err := c.byRef(models.ByDataKey(req.DataKey)); err == nil {
			return models.DataObject{}, nil, fail("Data key %q already in use.", req.DataKey)
		}
	}

	now := time.Now().UTC()
	d := &models.DataObject{
		ID:        st.id(),
		Key:       req.DataKey,
		CreatedAt: now,
		UpdatedAt: now,
		Folder:    DefaultFolder,
		State:     models.StatePending,
	}
	if err := c.apply(d, req.DataFields, false); err != nil {
		return models.DataObject{}, nil, err
	}
	if req.ParentID != "" {
		if _, ok := c.data[req.ParentID]; !ok {
			return models.DataObject{}, nil, fail("Parent data object not found.")
		}
		c.parents[d.ID] = map[string]bool{req.ParentID: true}
	}
	c.data[d.ID] = d

	out := c.view(d, 0, 0)
	return out, []models.Notification{c.notification(models.NotificationNew, req.ProjectID, d)}, nil
}

// apply writes fields onto d. With merge unset, content fields missing from
// fields are cleared.
func (c *collection) apply(d *models.DataObject, fields models.DataFields, merge bool) error {
	if fields.Folder != "" {
		if _, ok := c.folders[fields.Folder]; !ok {
			return fail("Folder not found.")
		}
		d.Folder = fields.Folder
	}
	if fields.State != "" {
		d.State = fields.State
	}
	if fields.UserName != "" {
		d.User = &models.User{ID: "1", Name: fields.UserName}
	} else if d.User == nil {
		d.User = &models.User{ID: "1", Name: "api"}
	}

	set := func(dst *string, v string) {
		if v != "" || !merge {
			*dst = v
		}
	}
	set(&d.SourceURL, fields.SourceURL)
	set(&d.Title, fields.Title)
	set(&d.Text, fields.Text)
	set(&d.Link, fields.Link)

	setInt := func(dst **int64, v *int64) {
		if v != nil || !merge {
			*dst = v
		}
	}
	setInt(&d.Data1, fields.Data1)
	setInt(&d.Data2, fields.Data2)
	setInt(&d.Data3, fields.Data3)

	switch {
	case fields.ImageURL != "":
		d.Image = &models.Image{URL: fields.ImageURL}
	case fields.Image != "":
		d.Image = &models.Image{URL: "https://media.syncano.test/images/" + d.ID + ".png"}
	case !merge:
		d.Image = nil
	}

	switch {
	case merge && d.Additional != nil:
		for k, v := range fields.Additional {
			d.Additional[k] = v
		}
	default:
		if len(fields.Additional) > 0 || !merge {
			d.Additional = copyMap(fields.Additional)
		}
	}
	return nil
}

// view returns a copy of d with its children expanded to depth levels.
func (c *collection) view(d *models.DataObject, depth, limit int) models.DataObject {
	out := *d
	out.Children = nil
	if parents := c.parents[d.ID]; len(parents) > 0 {
		ids := keys(parents)
		out.ParentID = ids[0]
	}
	if depth <= 0 {
		return out
	}
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	for _, child := range c.selectData(dataFilter{parents: []string{d.ID}}) {
		if len(out.Children) == limit {
			break
		}
		out.Children = append(out.Children, c.view(child, depth-1, limit))
	}
	return out
}

func (st *Store) getData(req models.GetDataRequest) ([]models.DataObject, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return nil, err
	}

	matched := c.selectData(dataFilter{
		ids:     req.DataIDs,
		folders: req.Folders,
		state:   req.State,
		filter:  req.Filter,
		byUser:  req.ByUser,
		since:   req.Since,
		maxID:   req.MaxID,
		parents: req.ParentIDs,
		childs:  req.ChildIDs,
	})

	if req.OrderBy == models.OrderByUpdatedAt {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].UpdatedAt.Before(matched[j].UpdatedAt) })
	}
	if req.Order == models.OrderDesc {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	depth := 0
	if req.IncludeChildren {
		depth = max(req.Depth, 1)
	}
	out := make([]models.DataObject, 0, len(matched))
	for _, d := range matched {
		out = append(out, c.view(d, depth, req.ChildrenLimit))
	}
	return out, nil
}

func (st *Store) getOneData(req models.GetOneDataRequest) (models.DataObject, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return models.DataObject{}, err
	}
	d, err := c.byRef(req.DataRef)
	if err != nil {
		return models.DataObject{}, err
	}
	depth := 0
	if req.IncludeChildren {
		depth = max(req.Depth, 1)
	}
	return c.view(d, depth, req.ChildrenLimit), nil
}

func (st *Store) updateData(req models.UpdateDataRequest) (models.DataObject, []models.Notification, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return models.DataObject{}, nil, err
	}
	d, err := c.byRef(req.DataRef)
	if err != nil {
		return models.DataObject{}, nil, err
	}

	updated := *d
	if err := c.apply(&updated, req.DataFields, req.UpdateMethod == models.UpdateMerge); err != nil {
		return models.DataObject{}, nil, err
	}
	updated.UpdatedAt = time.Now().UTC()
	*d = updated

	return c.view(d, 0, 0), []models.Notification{c.notification(models.NotificationChange, req.ProjectID, d)}, nil
}

func (st *Store) moveData(req models.MoveDataRequest) ([]models.Notification, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return nil, err
	}
	if req.NewFolder != "" {
		if _, ok := c.folders[req.NewFolder]; !ok {
			return nil, fail("Folder not found.")
		}
	}

	matched := c.selectData(dataFilter{ids: req.DataIDs, folders: req.Folders, state: req.State, filter: req.Filter, byUser: req.ByUser})
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	changes := make([]models.Notification, 0, len(matched))
	now := time.Now().UTC()
	for _, d := range matched {
		if req.NewFolder != "" {
			d.Folder = req.NewFolder
		}
		if req.NewState != "" {
			d.State = req.NewState
		}
		d.UpdatedAt = now
		changes = append(changes, c.notification(models.NotificationChange, req.ProjectID, d))
	}
	return changes, nil
}

func (st *Store) copyData(req models.CopyDataRequest) ([]models.DataObject, []models.Notification, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range req.DataIDs {
		if _, ok := c.data[id]; !ok {
			return nil, nil, fail("Data object %s not found.", id)
		}
	}

	out := make([]models.DataObject, 0, len(req.DataIDs))
	changes := make([]models.Notification, 0, len(req.DataIDs))
	now := time.Now().UTC()
	for _, id := range req.DataIDs {
		cp := *c.data[id]
		cp.ID = st.id()
		cp.Key = ""
		cp.CreatedAt, cp.UpdatedAt = now, now
		cp.Additional = copyMap(cp.Additional)
		c.data[cp.ID] = &cp
		out = append(out, c.view(&cp, 0, 0))
		changes = append(changes, c.notification(models.NotificationNew, req.ProjectID, &cp))
	}
	return out, changes, nil
}

func (st *Store) deleteData(req models.DeleteDataRequest) ([]models.Notification, error) {
	c, err := st.collection(req.ProjectID, req.CollectionRef)
	if err != nil {
		return nil, err
	}
	matched := c.selectData(dataFilter{ids: req.DataIDs, folders: req.Folders, state: req.State, filter: req.Filter, byUser: req.ByUser})
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	changes := make([]models.Notification, 0, len(matched))
	for _, d := range matched {
		changes = append(changes, c.notification(models.NotificationDelete, req.ProjectID, d))
		c.unlink(d.ID)
		delete(c.data, d.ID)
	}
	return changes, nil
}

// link adds or removes the parent relation between child and parent.
func (st *Store) link(projectID string, ref models.CollectionRef, child, parent string, add, removeOther bool) ([]models.Notification, error) {
	c, err := st.collection(projectID, ref)
	if err != nil {
		return nil, err
	}
	d, ok := c.data[child]
	if !ok {
		return nil, fail("Data object not found.")
	}
	if _, ok := c.data[parent]; !ok {
		return nil, fail("Data object not found.")
	}

	if add {
		if removeOther || c.parents[child] == nil {
			c.parents[child] = make(map[string]bool)
		}
		c.parents[child][parent] = true
	} else {
		delete(c.parents[child], parent)
	}
	return []models.Notification{c.notification(models.NotificationChange, projectID, d)}, nil
}

func (c *collection) unlink(id string) {
	delete(c.parents, id)
	for _, parents := range c.parents {
		delete(parents, id)
	}
}

func idLess(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr != nil || berr != nil {
		return a < b
	}
	return ai < bi
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func anyIn(set map[string]bool, list []string) bool {
	for _, s := range list {
		if set[s] {
			return true
		}
	}
	return false
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i], out[j]) })
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
