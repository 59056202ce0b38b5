package cli

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/pkg/models"
)

// fieldFlags binds the content flags shared by create and update.
type fieldFlags struct {
	fields     models.DataFields
	additional string
}

func (f *fieldFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.fields.Title, "title", "", "title")
	fs.StringVar(&f.fields.Text, "text", "", "text")
	fs.StringVar(&f.fields.Link, "link", "", "link")
	fs.StringVar(&f.fields.ImageURL, "image-url", "", "image URL")
	fs.StringVar(&f.fields.Folder, "folder", "", "folder name")
	fs.StringVar((*string)(&f.fields.State), "state", "", "Pending, Moderated or Rejected")
	fs.StringVar(&f.fields.ParentID, "parent", "", "parent data object id")
	fs.StringVar(&f.additional, "additional", "", "additional fields as a JSON object")
}

func (f *fieldFlags) build() (models.DataFields, error) {
	fields := f.fields
	if f.additional != "" {
		if err := json.Unmarshal([]byte(f.additional), &fields.Additional); err != nil {
			return fields, fmt.Errorf("--additional: %w", err)
		}
	}
	return fields, nil
}

func newDataCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage data objects of a collection",
	}

	var list target
	var get models.GetDataRequest
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List data objects",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			get.ProjectID, get.CollectionRef = list.project, list.ref
			return db.Data.Get(ctx, get)
		}),
	}
	list.bind(listCmd.Flags())
	listCmd.Flags().StringSliceVar(&get.DataIDs, "id", nil, "data object ids")
	listCmd.Flags().StringSliceVar(&get.Folders, "folder", nil, "folder names")
	listCmd.Flags().StringVar((*string)(&get.State), "state", "", "Pending, Moderated, Rejected or All")
	listCmd.Flags().StringVar((*string)(&get.Filter), "filter", "", "TEXT or IMAGE")
	listCmd.Flags().StringVar((*string)(&get.Order), "order", "", "ASC or DESC")
	listCmd.Flags().StringVar(&get.MaxID, "max-id", "", "only objects older than this id")
	listCmd.Flags().IntVar(&get.Limit, "limit", 0, "page size, at most 100")
	listCmd.Flags().BoolVar(&get.IncludeChildren, "children", false, "include child objects")
	cmd.AddCommand(listCmd)

	var one target
	var ref models.DataRef
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show one data object",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return db.Data.GetOne(ctx, models.GetOneDataRequest{ProjectID: one.project, CollectionRef: one.ref, DataRef: ref})
		}),
	}
	one.bind(getCmd.Flags())
	getCmd.Flags().StringVar(&ref.DataID, "id", "", "data object id")
	getCmd.Flags().StringVar(&ref.DataKey, "key", "", "data object key")
	cmd.AddCommand(getCmd)

	var create target
	var createKey string
	var createFields fieldFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a data object",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			fields, err := createFields.build()
			if err != nil {
				return nil, err
			}
			return db.Data.New(ctx, models.NewDataRequest{
				ProjectID: create.project, CollectionRef: create.ref, DataKey: createKey, DataFields: fields,
			})
		}),
	}
	create.bind(createCmd.Flags())
	createCmd.Flags().StringVar(&createKey, "key", "", "data object key")
	createFields.bind(createCmd)
	cmd.AddCommand(createCmd)

	var upd target
	var updRef models.DataRef
	var updFields fieldFlags
	var replace bool
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Merge fields into a data object, or replace it with --replace",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			fields, err := updFields.build()
			if err != nil {
				return nil, err
			}
			req := models.UpdateDataRequest{ProjectID: upd.project, CollectionRef: upd.ref, DataRef: updRef, DataFields: fields}
			if replace {
				return db.Data.Update(ctx, req)
			}
			return db.Data.Merge(ctx, req)
		}),
	}
	upd.bind(updateCmd.Flags())
	updateCmd.Flags().StringVar(&updRef.DataID, "id", "", "data object id")
	updateCmd.Flags().StringVar(&updRef.DataKey, "key", "", "data object key")
	updateCmd.Flags().BoolVar(&replace, "replace", false, "clear the fields not given")
	updFields.bind(updateCmd)
	cmd.AddCommand(updateCmd)

	var move target
	var mv models.MoveDataRequest
	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Move data objects to another folder or state",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			mv.ProjectID, mv.CollectionRef = move.project, move.ref
			return done{OK: true}, db.Data.Move(ctx, mv)
		}),
	}
	move.bind(moveCmd.Flags())
	moveCmd.Flags().StringSliceVar(&mv.DataIDs, "id", nil, "data object ids")
	moveCmd.Flags().StringVar(&mv.NewFolder, "to-folder", "", "destination folder")
	moveCmd.Flags().StringVar((*string)(&mv.NewState), "to-state", "", "destination state")
	cmd.AddCommand(moveCmd)

	var count target
	var cnt models.CountDataRequest
	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count data objects",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			cnt.ProjectID, cnt.CollectionRef = count.project, count.ref
			n, err := db.Data.Count(ctx, cnt)
			return models.Count{Count: n}, err
		}),
	}
	count.bind(countCmd.Flags())
	countCmd.Flags().StringSliceVar(&cnt.Folders, "folder", nil, "folder names")
	countCmd.Flags().StringVar((*string)(&cnt.State), "state", "", "Pending, Moderated, Rejected or All")
	cmd.AddCommand(countCmd)

	var del target
	var rm models.DeleteDataRequest
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete data objects",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			rm.ProjectID, rm.CollectionRef = del.project, del.ref
			if len(rm.DataIDs) == 0 && len(rm.Folders) == 0 && rm.State == "" {
				return nil, fmt.Errorf("refusing to empty the collection, give --id, --folder or --state")
			}
			return done{OK: true}, db.Data.Delete(ctx, rm)
		}),
	}
	del.bind(deleteCmd.Flags())
	deleteCmd.Flags().StringSliceVar(&rm.DataIDs, "id", nil, "data object ids")
	deleteCmd.Flags().StringSliceVar(&rm.Folders, "folder", nil, "folder names")
	deleteCmd.Flags().StringVar((*string)(&rm.State), "state", "", "Pending, Moderated, Rejected or All")
	cmd.AddCommand(deleteCmd)

	return cmd
}
