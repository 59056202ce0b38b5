package syncano_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	syncano "github.com/syncano/syncano.go"
	"github.com/syncano/syncano.go/internal/fakesync"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/logger"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

const testAPIKey = "test-api-key"

type DBTestSuite struct {
	suite.Suite
	transport string
	codecName string
	websocket string

	server *fakesync.Server
	db     *syncano.DB
}

func TestDBTestSuite(t *testing.T) {
	for _, tc := range []struct {
		name      string
		transport string
		codec     string
		websocket string
	}{
		{"http", fakesync.TransportHTTP, marshal.JSONName, ""},
		{"tcp_json", fakesync.TransportTCP, marshal.JSONName, ""},
		{"tcp_cbor", fakesync.TransportTCP, marshal.CBORName, ""},
		{"ws_json", fakesync.TransportWS, marshal.JSONName, connection.WebSocketGorilla},
		{"ws_cbor", fakesync.TransportWS, marshal.CBORName, connection.WebSocketGorilla},
		{"gws_json", fakesync.TransportWS, marshal.JSONName, connection.WebSocketGWS},
		{"gws_cbor", fakesync.TransportWS, marshal.CBORName, connection.WebSocketGWS},
	} {
		t.Run(tc.name, func(t *testing.T) {
			suite.Run(t, &DBTestSuite{transport: tc.transport, codecName: tc.codec, websocket: tc.websocket})
		})
	}
}

func (s *DBTestSuite) endpoint() string {
	switch s.transport {
	case fakesync.TransportTCP:
		return s.server.TCPURL()
	case fakesync.TransportWS:
		return s.server.WSURL()
	default:
		return s.server.HTTPURL()
	}
}

func (s *DBTestSuite) sync() bool {
	return s.transport != fakesync.TransportHTTP
}

func (s *DBTestSuite) SetupTest() {
	s.server = fakesync.NewServer(testAPIKey)
	s.Require().NoError(s.server.Start())

	u, err := url.Parse(s.endpoint())
	s.Require().NoError(err)

	conf := connection.NewConfig(u)
	conf.APIKey = testAPIKey
	conf.Logger = logger.Discard()
	conf.Timeout = 5 * time.Second
	conf.WebSocket = s.websocket
	conf.Codec, err = marshal.ByName(s.codecName)
	s.Require().NoError(err)

	s.db, err = syncano.Connect(context.Background(), conf)
	s.Require().NoError(err)
}

func (s *DBTestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close(context.Background()))
	s.Require().NoError(s.server.Stop())
}

// fixture creates a project with an active collection keyed "notes".
func (s *DBTestSuite) fixture() (*models.Project, *models.Collection) {
	ctx := context.Background()

	p, err := s.db.Projects.New(ctx, models.NewProjectRequest{Name: "shop"})
	s.Require().NoError(err)
	c, err := s.db.Collections.New(ctx, models.NewCollectionRequest{ProjectID: p.ID, Name: "notes", Key: "notes"})
	s.Require().NoError(err)
	s.Require().NoError(s.db.Collections.Activate(ctx, models.ActivateCollectionRequest{ProjectID: p.ID, CollectionID: c.ID}))
	return p, c
}

func (s *DBTestSuite) TestProjects() {
	ctx := context.Background()

	p, err := s.db.Projects.New(ctx, models.NewProjectRequest{Name: "shop", Description: "demo"})
	s.Require().NoError(err)
	s.NotEmpty(p.ID)
	s.Equal("shop", p.Name)

	all, err := s.db.Projects.Get(ctx)
	s.Require().NoError(err)
	s.Equal([]models.Project{*p}, all)

	updated, err := s.db.Projects.Update(ctx, models.UpdateProjectRequest{ProjectID: p.ID, Name: "store"})
	s.Require().NoError(err)
	s.Equal("store", updated.Name)
	s.Equal("demo", updated.Description)

	grant := models.AuthorizeProjectRequest{APIClientID: "42", Permission: models.PermissionFull, ProjectID: p.ID}
	s.Require().NoError(s.db.Projects.Authorize(ctx, grant))
	s.True(s.server.Store.HasGrant(models.ProjectKey(p.ID), "42", models.PermissionFull))
	s.Require().NoError(s.db.Projects.Deauthorize(ctx, grant))
	s.False(s.server.Store.HasGrant(models.ProjectKey(p.ID), "42", models.PermissionFull))

	s.Require().NoError(s.db.Projects.Delete(ctx, p.ID))

	_, err = s.db.Projects.GetOne(ctx, p.ID)
	s.Require().ErrorIs(err, constants.ErrService)
	var serviceErr *syncano.ServiceError
	s.Require().ErrorAs(err, &serviceErr)
	s.Equal(connection.ProjectGetOne, serviceErr.Method)
	s.Equal("Project not found.", serviceErr.Message)
}

func (s *DBTestSuite) TestCollections() {
	ctx := context.Background()
	p, c := s.fixture()
	byKey := models.ByCollectionKey("notes")

	got, err := s.db.Collections.GetOne(ctx, models.CollectionRequest{ProjectID: p.ID, CollectionRef: byKey})
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal(models.CollectionActive, got.Status)

	updated, err := s.db.Collections.Update(ctx, models.UpdateCollectionRequest{ProjectID: p.ID, CollectionRef: byKey, Description: "all the notes"})
	s.Require().NoError(err)
	s.Equal("all the notes", updated.Description)

	s.Require().NoError(s.db.Collections.AddTag(ctx, models.AddCollectionTagsRequest{ProjectID: p.ID, CollectionRef: byKey, Tags: []string{"public", "draft"}, Weight: 1.5}))
	s.Require().NoError(s.db.Collections.DeleteTag(ctx, models.DeleteCollectionTagsRequest{ProjectID: p.ID, CollectionRef: byKey, Tags: []string{"draft"}}))

	tagged, err := s.db.Collections.Get(ctx, models.GetCollectionsRequest{ProjectID: p.ID, WithTags: []string{"public"}})
	s.Require().NoError(err)
	s.Require().Len(tagged, 1)
	s.Equal([]models.Tag{{Name: "public", Weight: 1.5}}, tagged[0].Tags)

	none, err := s.db.Collections.Get(ctx, models.GetCollectionsRequest{ProjectID: p.ID, WithTags: []string{"draft"}})
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)

	s.Require().NoError(s.db.Collections.Deactivate(ctx, models.CollectionRequest{ProjectID: p.ID, CollectionRef: models.ByCollectionID(c.ID)}))
	inactive, err := s.db.Collections.Get(ctx, models.GetCollectionsRequest{ProjectID: p.ID, Status: models.CollectionInactive})
	s.Require().NoError(err)
	s.Len(inactive, 1)

	grant := models.AuthorizeCollectionRequest{APIClientID: "42", Permission: models.PermissionCreateData, ProjectID: p.ID, CollectionRef: byKey}
	s.Require().NoError(s.db.Collections.Authorize(ctx, grant))
	s.True(s.server.Store.HasGrant(models.CollectionKey(c.ID), "42", models.PermissionCreateData))
	s.Require().NoError(s.db.Collections.Deauthorize(ctx, grant))

	s.Require().NoError(s.db.Collections.Delete(ctx, models.CollectionRequest{ProjectID: p.ID, CollectionRef: byKey}))
	_, err = s.db.Collections.GetOne(ctx, models.CollectionRequest{ProjectID: p.ID, CollectionRef: byKey})
	s.Require().ErrorIs(err, constants.ErrService)
}

func (s *DBTestSuite) TestFolders() {
	ctx := context.Background()
	p, c := s.fixture()
	ref := models.ByCollectionID(c.ID)

	f, err := s.db.Folders.New(ctx, models.NewFolderRequest{ProjectID: p.ID, CollectionRef: ref, Name: "drafts"})
	s.Require().NoError(err)
	s.Equal("drafts", f.Name)

	folders, err := s.db.Folders.Get(ctx, models.GetFoldersRequest{ProjectID: p.ID, CollectionRef: ref})
	s.Require().NoError(err)
	s.Len(folders, 2)

	renamed, err := s.db.Folders.Update(ctx, models.UpdateFolderRequest{ProjectID: p.ID, CollectionRef: ref, Name: "drafts", NewName: "archive"})
	s.Require().NoError(err)
	s.Equal(f.ID, renamed.ID)

	got, err := s.db.Folders.GetOne(ctx, models.FolderRequest{ProjectID: p.ID, CollectionRef: ref, FolderName: "archive"})
	s.Require().NoError(err)
	s.Equal("archive", got.Name)

	grant := models.AuthorizeFolderRequest{APIClientID: "42", Permission: models.PermissionReadData, ProjectID: p.ID, CollectionRef: ref, FolderName: "archive"}
	s.Require().NoError(s.db.Folders.Authorize(ctx, grant))
	s.Require().NoError(s.db.Folders.Deauthorize(ctx, grant))

	s.Require().NoError(s.db.Folders.Delete(ctx, models.FolderRequest{ProjectID: p.ID, CollectionRef: ref, FolderName: "archive"}))
	_, err = s.db.Folders.GetOne(ctx, models.FolderRequest{ProjectID: p.ID, CollectionRef: ref, FolderName: "archive"})
	s.Require().ErrorIs(err, constants.ErrService)
}

func (s *DBTestSuite) TestData() {
	ctx := context.Background()
	p, c := s.fixture()
	ref := models.ByCollectionKey("notes")
	one := int64(1)

	d, err := s.db.Data.New(ctx, models.NewDataRequest{
		ProjectID:     p.ID,
		CollectionRef: ref,
		DataKey:       "first",
		DataFields: models.DataFields{
			Title:      "Hello",
			Text:       "world",
			Data1:      &one,
			ImageURL:   "https://example.com/a.png",
			Additional: map[string]any{"lang": "en"},
		},
	})
	s.Require().NoError(err)
	s.Equal("first", d.Key)
	s.Equal(models.StatePending, d.State)
	s.Equal(fakesync.DefaultFolder, d.Folder)
	s.Require().NotNil(d.Data1)
	s.Equal(int64(1), *d.Data1)
	s.Require().NotNil(d.Image)
	s.Equal("https://example.com/a.png", d.Image.URL)
	s.Equal("en", d.Additional["lang"])
	s.False(d.CreatedAt.IsZero())

	got, err := s.db.Data.GetOne(ctx, models.GetOneDataRequest{ProjectID: p.ID, CollectionRef: ref, DataRef: models.ByDataKey("first")})
	s.Require().NoError(err)
	s.Equal(d.ID, got.ID)
	s.True(d.CreatedAt.Equal(got.CreatedAt))

	merged, err := s.db.Data.Merge(ctx, models.UpdateDataRequest{ProjectID: p.ID, CollectionRef: ref, DataRef: models.ByDataID(d.ID), DataFields: models.DataFields{Text: "there"}})
	s.Require().NoError(err)
	s.Equal("Hello", merged.Title)
	s.Equal("there", merged.Text)

	replaced, err := s.db.Data.Update(ctx, models.UpdateDataRequest{ProjectID: p.ID, CollectionRef: ref, DataRef: models.ByDataID(d.ID), DataFields: models.DataFields{Title: "Bye"}})
	s.Require().NoError(err)
	s.Equal("Bye", replaced.Title)
	s.Empty(replaced.Text)
	s.Nil(replaced.Data1)

	second, err := s.db.Data.New(ctx, models.NewDataRequest{ProjectID: p.ID, CollectionRef: ref, DataFields: models.DataFields{Text: "second"}})
	s.Require().NoError(err)

	s.Require().NoError(s.db.Data.AddParent(ctx, models.DataParentRequest{ProjectID: p.ID, CollectionRef: ref, DataID: second.ID, ParentID: d.ID}))
	tree, err := s.db.Data.GetOne(ctx, models.GetOneDataRequest{ProjectID: p.ID, CollectionRef: ref, DataRef: models.ByDataID(d.ID), IncludeChildren: true})
	s.Require().NoError(err)
	s.Require().Len(tree.Children, 1)
	s.Equal(second.ID, tree.Children[0].ID)
	s.Require().NoError(s.db.Data.RemoveChild(ctx, models.DataChildRequest{ProjectID: p.ID, CollectionRef: ref, DataID: d.ID, ChildID: second.ID}))
	s.Require().NoError(s.db.Data.AddChild(ctx, models.DataChildRequest{ProjectID: p.ID, CollectionRef: ref, DataID: d.ID, ChildID: second.ID}))
	s.Require().NoError(s.db.Data.RemoveParent(ctx, models.DataParentRequest{ProjectID: p.ID, CollectionRef: ref, DataID: second.ID, ParentID: d.ID}))

	_, err = s.db.Folders.New(ctx, models.NewFolderRequest{ProjectID: p.ID, CollectionRef: ref, Name: "done"})
	s.Require().NoError(err)
	s.Require().NoError(s.db.Data.Move(ctx, models.MoveDataRequest{ProjectID: p.ID, CollectionRef: ref, DataIDs: []string{d.ID}, NewFolder: "done", NewState: models.StateModerated}))

	moderated, err := s.db.Data.Count(ctx, models.CountDataRequest{ProjectID: p.ID, CollectionRef: ref, State: models.StateModerated})
	s.Require().NoError(err)
	s.Equal(int64(1), moderated)

	copies, err := s.db.Data.Copy(ctx, models.CopyDataRequest{ProjectID: p.ID, CollectionRef: ref, DataIDs: []string{d.ID}})
	s.Require().NoError(err)
	s.Require().Len(copies, 1)
	s.Equal("done", copies[0].Folder)

	inDone, err := s.db.Data.Get(ctx, models.GetDataRequest{ProjectID: p.ID, CollectionRef: models.ByCollectionID(c.ID), Folders: []string{"done"}, Order: models.OrderDesc})
	s.Require().NoError(err)
	s.Require().Len(inDone, 2)
	s.Equal(copies[0].ID, inDone[0].ID)

	s.Require().NoError(s.db.Data.Delete(ctx, models.DeleteDataRequest{ProjectID: p.ID, CollectionRef: ref, Folders: []string{"done"}}))
	total, err := s.db.Data.Count(ctx, models.CountDataRequest{ProjectID: p.ID, CollectionRef: ref})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
}

func (s *DBTestSuite) TestValidationRunsBeforeSending() {
	ctx := context.Background()
	before := len(s.server.Calls())

	both := models.CollectionRef{CollectionID: "1", CollectionKey: "notes"}
	manyIDs := make([]string, constants.MaxDataIDs+1)
	for i := range manyIDs {
		manyIDs[i] = "1"
	}

	for name, tc := range map[string]struct {
		call  func() error
		param string
	}{
		"project id": {
			call:  func() error { _, err := s.db.Projects.GetOne(ctx, ""); return err },
			param: "project_id",
		},
		"collection id and key": {
			call: func() error {
				_, err := s.db.Collections.GetOne(ctx, models.CollectionRequest{ProjectID: "1", CollectionRef: both})
				return err
			},
			param: "collection_id",
		},
		"no collection": {
			call:  func() error { _, err := s.db.Folders.Get(ctx, models.GetFoldersRequest{ProjectID: "1"}); return err },
			param: "collection_id",
		},
		"limit": {
			call: func() error {
				_, err := s.db.Data.Get(ctx, models.GetDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), Limit: constants.MaxLimit + 1})
				return err
			},
			param: "limit",
		},
		"data ids": {
			call: func() error {
				_, err := s.db.Data.Get(ctx, models.GetDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), DataIDs: manyIDs})
				return err
			},
			param: "data_ids",
		},
		"no data ref": {
			call: func() error {
				_, err := s.db.Data.Merge(ctx, models.UpdateDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1")})
				return err
			},
			param: "data_id",
		},
		"copy nothing": {
			call: func() error {
				_, err := s.db.Data.Copy(ctx, models.CopyDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1")})
				return err
			},
			param: "data_ids",
		},
		"move nowhere": {
			call: func() error {
				return s.db.Data.Move(ctx, models.MoveDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1")})
			},
			param: "new_folder",
		},
		"state": {
			call: func() error {
				_, err := s.db.Data.Count(ctx, models.CountDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), State: "Lost"})
				return err
			},
			param: "state",
		},
		"permission": {
			call: func() error {
				return s.db.Collections.Authorize(ctx, models.AuthorizeCollectionRequest{
					APIClientID: "1", Permission: models.PermissionFull, ProjectID: "1", CollectionRef: models.ByCollectionID("1"),
				})
			},
			param: "permission",
		},
		"no tags": {
			call: func() error {
				return s.db.Collections.AddTag(ctx, models.AddCollectionTagsRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1")})
			},
			param: "tags",
		},
		"folder name": {
			call: func() error {
				return s.db.Folders.Delete(ctx, models.FolderRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1")})
			},
			param: "folder_name",
		},
		"children limit above max": {
			call: func() error {
				_, err := s.db.Data.Get(ctx, models.GetDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), IncludeChildren: true, ChildrenLimit: constants.MaxLimit + 1})
				return err
			},
			param: "children_limit",
		},
		"negative children limit": {
			call: func() error {
				_, err := s.db.Data.Get(ctx, models.GetDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), IncludeChildren: true, ChildrenLimit: -1})
				return err
			},
			param: "children_limit",
		},
		"negative depth": {
			call: func() error {
				_, err := s.db.Data.Get(ctx, models.GetDataRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), IncludeChildren: true, Depth: -1})
				return err
			},
			param: "depth",
		},
		"no api client": {
			call: func() error {
				return s.db.Projects.Authorize(ctx, models.AuthorizeProjectRequest{Permission: models.PermissionFull, ProjectID: "1"})
			},
			param: "api_client_id",
		},
		"no folder name": {
			call: func() error {
				_, err := s.db.Folders.New(ctx, models.NewFolderRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1")})
				return err
			},
			param: "name",
		},
		"negative tag weight": {
			call: func() error {
				return s.db.Collections.AddTag(ctx, models.AddCollectionTagsRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), Tags: []string{"public"}, Weight: -1})
			},
			param: "weight",
		},
		"self parent": {
			call: func() error {
				return s.db.Data.AddParent(ctx, models.DataParentRequest{ProjectID: "1", CollectionRef: models.ByCollectionID("1"), DataID: "5", ParentID: "5"})
			},
			param: "parent_id",
		},
	} {
		err := tc.call()
		s.Require().ErrorIs(err, constants.ErrInvalidArgument, name)

		var validationErr *syncano.ValidationError
		s.Require().True(errors.As(err, &validationErr), name)
		s.True(validationErr.Has(tc.param), "%s: %v", name, err)
	}

	s.Len(s.server.Calls(), before)
}

func (s *DBTestSuite) TestSend() {
	ctx := context.Background()
	p, _ := s.fixture()

	projects, err := syncano.Send[[]models.Project](ctx, s.db, connection.ProjectGet, map[string]any{})
	s.Require().NoError(err)
	s.Require().Len(*projects, 1)
	s.Equal(p.ID, (*projects)[0].ID)

	_, err = syncano.Send[any](ctx, s.db, "project.explode", map[string]any{})
	s.Require().ErrorIs(err, constants.ErrService)
}

func (s *DBTestSuite) TestServiceFailure() {
	s.server.Fail(connection.ProjectGet, "Service temporarily unavailable.")

	_, err := s.db.Projects.Get(context.Background())
	s.Require().ErrorIs(err, constants.ErrService)
	s.Contains(err.Error(), "Service temporarily unavailable.")
}

func (s *DBTestSuite) TestSubscriptions() {
	ctx := context.Background()
	p, c := s.fixture()

	if !s.sync() {
		_, err := s.db.Subscriptions.SubscribeProject(ctx, models.SubscribeProjectRequest{ProjectID: p.ID})
		s.Require().ErrorIs(err, constants.ErrMethodNotAvailable)
		_, err = s.db.Notifications(models.AnyNotificationKey)
		s.Require().ErrorIs(err, constants.ErrMethodNotAvailable)
		s.Empty(s.db.SessionUUID())
		return
	}

	s.NotEmpty(s.db.SessionUUID())

	sub, err := s.db.Subscriptions.SubscribeCollection(ctx, models.SubscribeCollectionRequest{ProjectID: p.ID, CollectionRef: models.ByCollectionKey("notes")})
	s.Require().NoError(err)
	s.Equal(c.ID, sub.ID)
	s.Equal(models.CollectionKey(c.ID), sub.Key())

	events, err := s.db.Notifications(sub.Key())
	s.Require().NoError(err)
	defer s.db.RemoveNotifications(sub.Key())

	subs, err := s.db.Subscriptions.Get(ctx, models.GetSubscriptionsRequest{})
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal(sub.Key(), subs[0].Key())

	d, err := s.db.Data.New(ctx, models.NewDataRequest{ProjectID: p.ID, CollectionRef: models.ByCollectionID(c.ID), DataFields: models.DataFields{Text: "ping"}})
	s.Require().NoError(err)

	select {
	case n := <-events:
		s.Equal(models.NotificationNew, n.Type)
		s.Equal(d.ID, n.ID)
		s.Equal("ping", n.Data["text"])
	case <-time.After(3 * time.Second):
		s.Fail("no notification received")
	}

	messages, err := s.db.Notifications(models.AnyNotificationKey)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Subscriptions.SendNotification(ctx, models.SendNotificationRequest{
		UUID: s.db.SessionUUID(),
		Data: map[string]any{"hello": "me"},
	}))

	select {
	case n := <-messages:
		s.Equal(models.NotificationMessage, n.Type)
		s.Equal("me", n.Data["hello"])
	case <-time.After(3 * time.Second):
		s.Fail("no message received")
	}

	s.Require().NoError(s.db.Subscriptions.UnsubscribeCollection(ctx, models.CollectionRequest{ProjectID: p.ID, CollectionRef: models.ByCollectionID(c.ID)}))
	subs, err = s.db.Subscriptions.Get(ctx, models.GetSubscriptionsRequest{})
	s.Require().NoError(err)
	s.Empty(subs)

	err = s.db.Subscriptions.UnsubscribeProject(ctx, p.ID)
	s.Require().ErrorIs(err, constants.ErrService)
}

func TestFromEndpointURLString(t *testing.T) {
	server := fakesync.NewServer(testAPIKey)
	if err := server.Start(); err != nil {
		t.Fatal(err)
	}
	defer server.Stop() //nolint:errcheck

	ctx := context.Background()
	for _, endpoint := range []string{server.HTTPURL(), server.TCPURL(), server.WSURL()} {
		db, err := syncano.FromEndpointURLString(ctx, endpoint, testAPIKey, "demo")
		if err != nil {
			t.Fatalf("%s: %v", endpoint, err)
		}
		if _, err := db.Projects.Get(ctx); err != nil {
			t.Fatalf("%s: %v", endpoint, err)
		}
		if err := db.Close(ctx); err != nil {
			t.Fatalf("%s: %v", endpoint, err)
		}
	}

	_, err := syncano.FromEndpointURLString(ctx, "ftp://example.com", testAPIKey, "")
	if !errors.Is(err, constants.ErrUnsupportedScheme) {
		t.Fatalf("expected unsupported scheme, got %v", err)
	}

	u, _ := url.Parse(server.WSURL())
	conf := connection.NewConfig(u)
	conf.WebSocket = "netpoll"
	if _, err := syncano.NewConnection(conf); err == nil {
		t.Fatal("expected an unknown websocket client to be rejected")
	}

	_, err = syncano.FromEndpointURLString(ctx, server.TCPURL(), "wrong", "")
	if !errors.Is(err, constants.ErrAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}
