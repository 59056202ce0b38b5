package syncano_test

import (
	"context"
	"fmt"
	"net/url"
	"time"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/contrib/testenv"
	"github.com/syncano/syncano.go/internal/fakesync"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/connection/retry"
	"github.com/syncano/syncano.go/pkg/logger"
	"github.com/syncano/syncano.go/pkg/models"
)

// A sync connection with a Retryer survives a dropped socket: the session
// is resumed and its subscriptions are made again.
func ExampleConnect_reconnect() {
	server := fakesync.NewServer("secret")
	if err := server.Start(); err != nil {
		panic(err)
	}
	defer server.Stop() //nolint:errcheck

	u, err := url.Parse(server.TCPURL())
	if err != nil {
		panic(err)
	}
	conf := connection.NewConfig(u)
	conf.APIKey = "secret"
	conf.Retryer = retry.NewFixedDelayRetryer(50*time.Millisecond, 10)
	conf.Logger = logger.New(testenv.NewTestLogHandler(
		testenv.WithIgnoreDebug(),
		testenv.WithIgnoreAttrs("error"),
	))

	ctx := context.Background()
	db, err := syncano.Connect(ctx, conf)
	if err != nil {
		panic(err)
	}
	defer db.Close(ctx) //nolint:errcheck

	p, err := db.Projects.New(ctx, models.NewProjectRequest{Name: "shop"})
	if err != nil {
		panic(err)
	}
	if _, err = db.Subscriptions.SubscribeProject(ctx, models.SubscribeProjectRequest{ProjectID: p.ID}); err != nil {
		panic(err)
	}
	session := db.SessionUUID()

	server.DropConnections()
	for server.CallCount(connection.SubscribeProject) < 2 || len(server.Subscriptions(session)) == 0 {
		time.Sleep(10 * time.Millisecond)
	}

	subs, err := db.Subscriptions.Get(ctx, models.GetSubscriptionsRequest{})
	if err != nil {
		panic(err)
	}
	fmt.Println("same session:", db.SessionUUID() == session)
	fmt.Println("subscriptions:", len(subs), subs[0].Type)

	// Output:
	// [0] WARN: sync connection lost
	// [1] INFO: sync connection restored attempt=1
	// same session: true
	// subscriptions: 1 project
}
