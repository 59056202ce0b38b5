package cli

import (
	"context"

	"github.com/spf13/cobra"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/pkg/models"
)

func newFolderCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folder",
		Aliases: []string{"folders"},
		Short:   "Manage folders of a collection",
	}

	var list target
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return db.Folders.Get(ctx, models.GetFoldersRequest{ProjectID: list.project, CollectionRef: list.ref})
		}),
	}
	list.bind(listCmd.Flags())
	cmd.AddCommand(listCmd)

	var create target
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			return db.Folders.New(ctx, models.NewFolderRequest{ProjectID: create.project, CollectionRef: create.ref, Name: args[0]})
		}),
	}
	create.bind(createCmd.Flags())
	cmd.AddCommand(createCmd)

	var rename target
	renameCmd := &cobra.Command{
		Use:   "rename <name> <new name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			return db.Folders.Update(ctx, models.UpdateFolderRequest{
				ProjectID: rename.project, CollectionRef: rename.ref, Name: args[0], NewName: args[1],
			})
		}),
	}
	rename.bind(renameCmd.Flags())
	cmd.AddCommand(renameCmd)

	var del target
	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a folder",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			return done{OK: true}, db.Folders.Delete(ctx, models.FolderRequest{ProjectID: del.project, CollectionRef: del.ref, FolderName: args[0]})
		}),
	}
	del.bind(deleteCmd.Flags())
	cmd.AddCommand(deleteCmd)

	return cmd
}
