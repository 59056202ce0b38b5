package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/pkg/models"
)

// target holds the flags addressing a collection.
type target struct {
	project string
	ref     models.CollectionRef
}

func (t *target) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&t.project, "project", "p", "", "project id")
	fs.StringVar(&t.ref.CollectionID, "collection-id", "", "collection id")
	fs.StringVarP(&t.ref.CollectionKey, "collection", "k", "", "collection key")
}

func (t *target) request() models.CollectionRequest {
	return models.CollectionRequest{ProjectID: t.project, CollectionRef: t.ref}
}

func newCollectionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections"},
		Short:   "Manage collections",
	}

	var list models.GetCollectionsRequest
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List collections of a project",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return db.Collections.Get(ctx, list)
		}),
	}
	listCmd.Flags().StringVarP(&list.ProjectID, "project", "p", "", "project id")
	listCmd.Flags().StringVar((*string)(&list.Status), "status", "", "active, inactive or all")
	listCmd.Flags().StringSliceVar(&list.WithTags, "tag", nil, "only collections carrying one of these tags")
	cmd.AddCommand(listCmd)

	var get target
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show one collection",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return db.Collections.GetOne(ctx, get.request())
		}),
	}
	get.bind(getCmd.Flags())
	cmd.AddCommand(getCmd)

	var create models.NewCollectionRequest
	var activate bool
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a collection, inactive unless --activate is given",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			c, err := db.Collections.New(ctx, create)
			if err != nil || !activate {
				return c, err
			}
			err = db.Collections.Activate(ctx, models.ActivateCollectionRequest{ProjectID: create.ProjectID, CollectionID: c.ID})
			if err != nil {
				return nil, err
			}
			return db.Collections.GetOne(ctx, models.CollectionRequest{ProjectID: create.ProjectID, CollectionRef: models.ByCollectionID(c.ID)})
		}),
	}
	createCmd.Flags().StringVarP(&create.ProjectID, "project", "p", "", "project id")
	createCmd.Flags().StringVar(&create.Name, "name", "", "collection name")
	createCmd.Flags().StringVar(&create.Key, "key", "", "collection key")
	createCmd.Flags().StringVar(&create.Description, "description", "", "collection description")
	createCmd.Flags().BoolVar(&activate, "activate", false, "activate the new collection")
	cmd.AddCommand(createCmd)

	var act models.ActivateCollectionRequest
	activateCmd := &cobra.Command{
		Use:   "activate <collection id>",
		Short: "Activate a collection",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			act.CollectionID = args[0]
			return done{OK: true}, db.Collections.Activate(ctx, act)
		}),
	}
	activateCmd.Flags().StringVarP(&act.ProjectID, "project", "p", "", "project id")
	activateCmd.Flags().BoolVar(&act.Force, "force", false, "deactivate the collection holding the same key")
	cmd.AddCommand(activateCmd)

	var deact target
	deactivateCmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate a collection",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return done{OK: true}, db.Collections.Deactivate(ctx, deact.request())
		}),
	}
	deact.bind(deactivateCmd.Flags())
	cmd.AddCommand(deactivateCmd)

	var del target
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a collection",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return done{OK: true}, db.Collections.Delete(ctx, del.request())
		}),
	}
	del.bind(deleteCmd.Flags())
	cmd.AddCommand(deleteCmd)

	var tagged target
	var tags []string
	var weight float64
	var untag bool
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Add (or with --remove, delete) collection tags",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			if untag {
				return done{OK: true}, db.Collections.DeleteTag(ctx, models.DeleteCollectionTagsRequest{
					ProjectID: tagged.project, CollectionRef: tagged.ref, Tags: tags,
				})
			}
			return done{OK: true}, db.Collections.AddTag(ctx, models.AddCollectionTagsRequest{
				ProjectID: tagged.project, CollectionRef: tagged.ref, Tags: tags, Weight: weight,
			})
		}),
	}
	tagged.bind(tagCmd.Flags())
	tagCmd.Flags().StringSliceVar(&tags, "tags", nil, "tag names")
	tagCmd.Flags().Float64Var(&weight, "weight", 0, "tag weight")
	tagCmd.Flags().BoolVar(&untag, "remove", false, "remove the tags")
	cmd.AddCommand(tagCmd)

	return cmd
}
