// Package syncanodump saves a whole project to a file and restores it,
// possibly into another instance.
//
// A dump is the DumpFormat header followed by a CBOR sequence of entries:
// the project, then per collection the collection, its folders and its
// data objects. A JSON manifest with a checksum is written next to it.
//
// Ids are not kept by a restore, the server assigns new ones. Parent links
// are rewired to the new ids, creation times are lost.
package syncanodump

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

// DumpFormat is the magic header and version of dump files.
const DumpFormat = "SYNDUMP01"

// pageSize is the number of data objects fetched per data.get call.
const pageSize = 100

// EntryKind tells which field of an Entry is set.
type EntryKind string

const (
	EntryProject    EntryKind = "project"
	EntryCollection EntryKind = "collection"
	EntryFolder     EntryKind = "folder"
	EntryData       EntryKind = "data"
)

// Entry is one element of a dump.
type Entry struct {
	Kind       EntryKind          `cbor:"kind"`
	Project    *models.Project    `cbor:"project,omitempty"`
	Collection *models.Collection `cbor:"collection,omitempty"`
	Folder     *models.Folder     `cbor:"folder,omitempty"`
	Data       *models.DataObject `cbor:"data,omitempty"`
	// Parents are the ids of every parent of Data, in the same collection.
	Parents []string `cbor:"parents,omitempty"`
}

// Dumper writes one project to a dump.
type Dumper struct {
	db        *syncano.DB
	codec     codec.Codec
	projectID string
	// Collections to dump by id, all of them when empty.
	collections []string
}

// New creates a Dumper for the project projectID, limited to the given
// collection ids if any.
func New(db *syncano.DB, projectID string, collections ...string) *Dumper {
	return &Dumper{
		db:          db,
		codec:       marshal.NewCBOR(),
		projectID:   projectID,
		collections: collections,
	}
}

// Full dumps the project to path and writes its manifest.
func (d *Dumper) Full(ctx context.Context, path string) (*Manifest, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create dump file failed")
	}

	w := bufio.NewWriter(f)
	project, stats, err := d.dump(ctx, w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	sum, size, err := checksum(path)
	if err != nil {
		return nil, err
	}
	m := &Manifest{
		Filename:    filepath.Base(path),
		Format:      DumpFormat,
		CreatedAt:   time.Now().UTC(),
		Size:        size,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Stats:       stats,
		SHA256:      sum,
	}
	if err := writeManifest(path, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Write dumps the project to w without a manifest.
func (d *Dumper) Write(ctx context.Context, w io.Writer) (Stats, error) {
	_, stats, err := d.dump(ctx, w)
	return stats, err
}

func (d *Dumper) dump(ctx context.Context, w io.Writer) (*models.Project, Stats, error) {
	var stats Stats

	project, err := d.db.Projects.GetOne(ctx, d.projectID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to get project %s: %w", d.projectID, err)
	}

	if _, err := io.WriteString(w, DumpFormat); err != nil {
		return nil, stats, fmt.Errorf("failed to write magic header: %w", err)
	}
	enc := d.codec.NewEncoder(w)
	if err := enc.Encode(Entry{Kind: EntryProject, Project: project}); err != nil {
		return nil, stats, err
	}

	collections, err := d.db.Collections.Get(ctx, models.GetCollectionsRequest{
		ProjectID: d.projectID,
		Status:    models.CollectionAll,
	})
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list collections: %w", err)
	}

	for i := range collections {
		c := &collections[i]
		if len(d.collections) > 0 && !contains(d.collections, c.ID) {
			continue
		}
		if err := d.dumpCollection(ctx, enc, c, &stats); err != nil {
			return nil, stats, fmt.Errorf("failed to dump collection %s: %w", c.ID, err)
		}
	}
	return project, stats, nil
}

func (d *Dumper) dumpCollection(ctx context.Context, enc codec.Encoder, c *models.Collection, stats *Stats) error {
	if err := enc.Encode(Entry{Kind: EntryCollection, Collection: c}); err != nil {
		return err
	}
	stats.Collections++

	ref := models.ByCollectionID(c.ID)
	folders, err := d.db.Folders.Get(ctx, models.GetFoldersRequest{ProjectID: d.projectID, CollectionRef: ref})
	if err != nil {
		return err
	}
	for i := range folders {
		if err := enc.Encode(Entry{Kind: EntryFolder, Folder: &folders[i]}); err != nil {
			return err
		}
		stats.Folders++
	}

	// Syncano pages backwards with max_id, newest first. The entries are
	// written oldest first so a restore recreates them in creation order.
	req := models.GetDataRequest{
		ProjectID:     d.projectID,
		CollectionRef: ref,
		State:         models.StateAll,
		Order:         models.OrderDesc,
		Limit:         pageSize,
	}
	var entries []Entry
	for {
		page, err := d.db.Data.Get(ctx, req)
		if err != nil {
			return err
		}
		for i := range page {
			obj := &page[i]
			parents, err := d.parents(ctx, ref, obj)
			if err != nil {
				return err
			}
			entries = append(entries, Entry{Kind: EntryData, Data: obj, Parents: parents})
		}
		if len(page) < pageSize {
			break
		}
		req.MaxID = page[len(page)-1].ID
	}

	for i := len(entries) - 1; i >= 0; i-- {
		if err := enc.Encode(entries[i]); err != nil {
			return err
		}
		stats.Data++
		stats.Links += len(entries[i].Parents)
	}
	return nil
}

// parents lists every parent of obj. ParentID only carries one of them.
func (d *Dumper) parents(ctx context.Context, ref models.CollectionRef, obj *models.DataObject) ([]string, error) {
	if obj.ParentID == "" {
		return nil, nil
	}
	objs, err := d.db.Data.Get(ctx, models.GetDataRequest{
		ProjectID:     d.projectID,
		CollectionRef: ref,
		State:         models.StateAll,
		ChildIDs:      []string{obj.ID},
		Limit:         pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parents of %s: %w", obj.ID, err)
	}
	ids := make([]string, 0, len(objs))
	for i := range objs {
		ids = append(ids, objs[i].ID)
	}
	return ids, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
