package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syncano/syncano.go/pkg/models"
)

func newWatchCommand(a *app) *cobra.Command {
	var t target
	var limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to a project or collection and print its notifications",
		Long: "Subscribe to a project, or to a collection when a collection flag is given, " +
			"and print every notification as one JSON line until interrupted. " +
			"Needs a tcp, tls, ws or wss endpoint.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := a.connect(ctx)
			if err != nil {
				return err
			}

			var sub *models.Subscription
			if t.ref == (models.CollectionRef{}) {
				sub, err = db.Subscriptions.SubscribeProject(ctx, models.SubscribeProjectRequest{ProjectID: t.project})
			} else {
				sub, err = db.Subscriptions.SubscribeCollection(ctx, models.SubscribeCollectionRequest{ProjectID: t.project, CollectionRef: t.ref})
			}
			if err != nil {
				return err
			}

			events, err := db.Notifications(sub.Key())
			if err != nil {
				return err
			}
			defer db.RemoveNotifications(sub.Key())

			return a.stream(ctx, events, limit)
		},
	}
	t.bind(cmd.Flags())
	cmd.Flags().IntVar(&limit, "limit", 0, "exit after this many notifications, 0 for no limit")
	return cmd
}

// stream prints notifications until ctx ends, the channel closes or limit
// notifications were printed.
func (a *app) stream(ctx context.Context, events <-chan models.Notification, limit int) error {
	for seen := 0; limit == 0 || seen < limit; seen++ {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-events:
			if !ok {
				return nil
			}
			if err := a.print(n); err != nil {
				return err
			}
		}
	}
	return nil
}
