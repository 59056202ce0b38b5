package syncanodump_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/contrib/syncanodump"
	"github.com/syncano/syncano.go/internal/fakesync"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/models"
)

const apiKey = "dump-key"

func connect(t *testing.T) *syncano.DB {
	t.Helper()

	server := fakesync.NewServer(apiKey)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })

	db, err := syncano.FromEndpointURLString(context.Background(), server.HTTPURL(), apiKey, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db
}

// seed creates a project with an active "posts" collection holding more
// than a page of data and an inactive "drafts" collection.
func seed(t *testing.T, db *syncano.DB) *models.Project {
	t.Helper()
	ctx := context.Background()

	p, err := db.Projects.New(ctx, models.NewProjectRequest{Name: "blog", Description: "dumped"})
	require.NoError(t, err)

	posts, err := db.Collections.New(ctx, models.NewCollectionRequest{ProjectID: p.ID, Name: "posts", Key: "posts"})
	require.NoError(t, err)
	require.NoError(t, db.Collections.Activate(ctx, models.ActivateCollectionRequest{ProjectID: p.ID, CollectionID: posts.ID}))
	ref := models.ByCollectionID(posts.ID)
	require.NoError(t, db.Collections.AddTag(ctx, models.AddCollectionTagsRequest{ProjectID: p.ID, CollectionRef: ref, Tags: []string{"public"}, Weight: 2}))

	_, err = db.Folders.New(ctx, models.NewFolderRequest{ProjectID: p.ID, CollectionRef: ref, Name: "Archive"})
	require.NoError(t, err)
	_, err = db.Folders.Update(ctx, models.UpdateFolderRequest{ProjectID: p.ID, CollectionRef: ref, Name: "Archive", SourceID: "rss-1"})
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		_, err := db.Data.New(ctx, models.NewDataRequest{
			ProjectID:     p.ID,
			CollectionRef: ref,
			DataFields:    models.DataFields{Title: fmt.Sprintf("post %03d", i)},
		})
		require.NoError(t, err)
	}

	root, err := db.Data.New(ctx, models.NewDataRequest{
		ProjectID: p.ID, CollectionRef: ref, DataKey: "root",
		DataFields: models.DataFields{Title: "root", Folder: "Archive", State: models.StateModerated, Additional: map[string]any{"lang": "en"}},
	})
	require.NoError(t, err)
	other, err := db.Data.New(ctx, models.NewDataRequest{
		ProjectID: p.ID, CollectionRef: ref, DataKey: "other",
		DataFields: models.DataFields{Title: "other"},
	})
	require.NoError(t, err)
	child, err := db.Data.New(ctx, models.NewDataRequest{
		ProjectID: p.ID, CollectionRef: ref, DataKey: "child",
		DataFields: models.DataFields{Title: "child", ParentID: root.ID},
	})
	require.NoError(t, err)
	require.NoError(t, db.Data.AddParent(ctx, models.DataParentRequest{ProjectID: p.ID, CollectionRef: ref, DataID: child.ID, ParentID: other.ID}))

	drafts, err := db.Collections.New(ctx, models.NewCollectionRequest{ProjectID: p.ID, Name: "drafts", Key: "drafts"})
	require.NoError(t, err)
	require.NoError(t, db.Collections.Activate(ctx, models.ActivateCollectionRequest{ProjectID: p.ID, CollectionID: drafts.ID}))
	_, err = db.Data.New(ctx, models.NewDataRequest{
		ProjectID: p.ID, CollectionRef: models.ByCollectionID(drafts.ID),
		DataFields: models.DataFields{Title: "unfinished"},
	})
	require.NoError(t, err)
	require.NoError(t, db.Collections.Deactivate(ctx, models.CollectionRequest{ProjectID: p.ID, CollectionRef: models.ByCollectionID(drafts.ID)}))

	return p
}

func titles(t *testing.T, db *syncano.DB, projectID string, ref models.CollectionRef, req models.GetDataRequest) []string {
	t.Helper()
	req.ProjectID = projectID
	req.CollectionRef = ref
	req.State = models.StateAll
	objs, err := db.Data.Get(context.Background(), req)
	require.NoError(t, err)
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Title)
	}
	sort.Strings(out)
	return out
}

func TestDumpAndRestore(t *testing.T) {
	db := connect(t)
	ctx := context.Background()
	p := seed(t, db)

	path := filepath.Join(t.TempDir(), "blog.dump")
	m, err := syncanodump.New(db, p.ID).Full(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, syncanodump.DumpFormat, m.Format)
	assert.Equal(t, p.ID, m.ProjectID)
	assert.Equal(t, "blog", m.ProjectName)
	assert.Equal(t, syncanodump.Stats{Collections: 2, Folders: 3, Data: 124, Links: 2}, m.Stats)

	onDisk, err := syncanodump.ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.SHA256, onDisk.SHA256)
	require.NoError(t, onDisk.Verify(path))

	r := syncanodump.NewRestorer(db)
	r.ProjectName = "blog copy"
	restored, err := r.Restore(ctx, path)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, restored.ID)
	assert.Equal(t, "blog copy", restored.Name)
	assert.Equal(t, "dumped", restored.Description)
	assert.Equal(t, syncanodump.Stats{Collections: 2, Folders: 1, Data: 124, Links: 2}, r.Stats())

	collections, err := db.Collections.Get(ctx, models.GetCollectionsRequest{ProjectID: restored.ID, Status: models.CollectionAll})
	require.NoError(t, err)
	require.Len(t, collections, 2)
	byKey := map[string]models.Collection{}
	for _, c := range collections {
		byKey[c.Key] = c
	}
	assert.Equal(t, models.CollectionActive, byKey["posts"].Status)
	assert.Equal(t, []models.Tag{{Name: "public", Weight: 2}}, byKey["posts"].Tags)
	assert.Equal(t, models.CollectionInactive, byKey["drafts"].Status)

	posts := models.ByCollectionID(byKey["posts"].ID)
	count, err := db.Data.Count(ctx, models.CountDataRequest{ProjectID: restored.ID, CollectionRef: posts, State: models.StateAll})
	require.NoError(t, err)
	assert.EqualValues(t, 123, count)

	folders, err := db.Folders.Get(ctx, models.GetFoldersRequest{ProjectID: restored.ID, CollectionRef: posts})
	require.NoError(t, err)
	require.Len(t, folders, 2)
	archive, err := db.Folders.GetOne(ctx, models.FolderRequest{ProjectID: restored.ID, CollectionRef: posts, FolderName: "Archive"})
	require.NoError(t, err)
	assert.Equal(t, "rss-1", archive.SourceID)

	root, err := db.Data.GetOne(ctx, models.GetOneDataRequest{ProjectID: restored.ID, CollectionRef: posts, DataRef: models.ByDataKey("root")})
	require.NoError(t, err)
	assert.Equal(t, "Archive", root.Folder)
	assert.Equal(t, models.StateModerated, root.State)
	assert.Equal(t, "en", root.Additional["lang"])

	child, err := db.Data.GetOne(ctx, models.GetOneDataRequest{ProjectID: restored.ID, CollectionRef: posts, DataRef: models.ByDataKey("child")})
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "root"}, titles(t, db, restored.ID, posts, models.GetDataRequest{ChildIDs: []string{child.ID}}))

	drafts := models.ByCollectionID(byKey["drafts"].ID)
	assert.Equal(t, []string{"unfinished"}, titles(t, db, restored.ID, drafts, models.GetDataRequest{}))

	// Restored objects keep their creation order.
	assert.Equal(t, []string{"post 000", "post 001", "post 002"}, ordered(t, db, restored.ID, posts, models.OrderAsc))
	assert.Equal(t, []string{"child", "other", "root"}, ordered(t, db, restored.ID, posts, models.OrderDesc))
}

func ordered(t *testing.T, db *syncano.DB, projectID string, ref models.CollectionRef, order models.Order) []string {
	t.Helper()
	objs, err := db.Data.Get(context.Background(), models.GetDataRequest{
		ProjectID: projectID, CollectionRef: ref, State: models.StateAll, Order: order, Limit: 3,
	})
	require.NoError(t, err)
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Title)
	}
	return out
}

func TestDumpSelectedCollections(t *testing.T) {
	db := connect(t)
	ctx := context.Background()
	p := seed(t, db)

	drafts, err := db.Collections.GetOne(ctx, models.CollectionRequest{ProjectID: p.ID, CollectionRef: models.ByCollectionKey("drafts")})
	require.NoError(t, err)

	var buf bytes.Buffer
	stats, err := syncanodump.New(db, p.ID, drafts.ID).Write(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, syncanodump.Stats{Collections: 1, Folders: 1, Data: 1}, stats)

	restored, err := syncanodump.NewRestorer(db).Read(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, "blog", restored.Name)
}

func TestDumpMissingProject(t *testing.T) {
	db := connect(t)

	_, err := syncanodump.New(db, "404").Full(context.Background(), filepath.Join(t.TempDir(), "x.dump"))
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrService)
}

func TestRestoreRejectsDamagedDumps(t *testing.T) {
	db := connect(t)
	ctx := context.Background()
	p := seed(t, db)

	path := filepath.Join(t.TempDir(), "blog.dump")
	_, err := syncanodump.New(db, p.ID).Full(ctx, path)
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("garbage")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = syncanodump.NewRestorer(db).Restore(ctx, path)
	assert.ErrorContains(t, err, "size mismatch")

	_, err = syncanodump.NewRestorer(db).Read(ctx, bytes.NewBufferString("SQLITE3 not a dump"))
	assert.ErrorContains(t, err, "not a dump file")

	_, err = syncanodump.NewRestorer(db).Restore(ctx, filepath.Join(t.TempDir(), "missing.dump"))
	assert.ErrorContains(t, err, "read manifest failed")
}
