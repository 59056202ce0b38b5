package cli

import (
	"context"

	"github.com/spf13/cobra"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/contrib/syncanodump"
)

type restored struct {
	Project string            `json:"project_id"`
	Name    string            `json:"name"`
	Stats   syncanodump.Stats `json:"stats"`
}

func newDumpCommand(a *app) *cobra.Command {
	var (
		project     string
		collections []string
	)
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Save a project with its collections, folders and data to a file",
		Long: "Save a project with its collections, folders and data to a file.\n" +
			"A manifest with a checksum is written next to it as <file>" + syncanodump.ManifestSuffix + ".",
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			return syncanodump.New(db, project, collections...).Full(ctx, args[0])
		}),
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project id")
	cmd.Flags().StringSliceVar(&collections, "collection-id", nil, "only dump these collections")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newRestoreCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Recreate a dumped project as a new project",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, db *syncano.DB, args []string) (any, error) {
			r := syncanodump.NewRestorer(db)
			r.ProjectName = name
			p, err := r.Restore(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return restored{Project: p.ID, Name: p.Name, Stats: r.Stats()}, nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the new project, the dumped name by default")
	return cmd
}
