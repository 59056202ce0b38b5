package cli

import (
	"context"

	"github.com/spf13/cobra"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/pkg/models"
)

type done struct {
	OK bool `json:"ok"`
}

func newProjectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return db.Projects.Get(ctx)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <project id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			return db.Projects.GetOne(ctx, args[0])
		}),
	})

	var create models.NewProjectRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, db *syncano.DB, _ []string) (any, error) {
			return db.Projects.New(ctx, create)
		}),
	}
	createCmd.Flags().StringVar(&create.Name, "name", "", "project name")
	createCmd.Flags().StringVar(&create.Description, "description", "", "project description")
	cmd.AddCommand(createCmd)

	var update models.UpdateProjectRequest
	updateCmd := &cobra.Command{
		Use:   "update <project id>",
		Short: "Rename or describe a project",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			update.ProjectID = args[0]
			return db.Projects.Update(ctx, update)
		}),
	}
	updateCmd.Flags().StringVar(&update.Name, "name", "", "new name")
	updateCmd.Flags().StringVar(&update.Description, "description", "", "new description")
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <project id>",
		Short: "Delete a project and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			return done{OK: true}, db.Projects.Delete(ctx, args[0])
		}),
	})

	var grant models.AuthorizeProjectRequest
	var revoke bool
	authCmd := &cobra.Command{
		Use:   "authorize <project id>",
		Short: "Grant (or with --revoke, take back) a permission on a project",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			grant.ProjectID = args[0]
			if revoke {
				return done{OK: true}, db.Projects.Deauthorize(ctx, grant)
			}
			return done{OK: true}, db.Projects.Authorize(ctx, grant)
		}),
	}
	authCmd.Flags().StringVar(&grant.APIClientID, "client", "", "API client id")
	authCmd.Flags().StringVar((*string)(&grant.Permission), "permission", "", "permission name")
	authCmd.Flags().BoolVar(&revoke, "revoke", false, "revoke instead of granting")
	cmd.AddCommand(authCmd)

	return cmd
}
