package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/syncano/syncano.go/contrib/syncanodump"
	"github.com/syncano/syncano.go/internal/fakesync"
	"github.com/syncano/syncano.go/pkg/config"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/models"
)

const apiKey = "cli-key"

type CLITestSuite struct {
	suite.Suite
	server *fakesync.Server
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (s *CLITestSuite) SetupTest() {
	for _, key := range []string{config.EnvURL, config.EnvAPIKey, config.EnvInstance, config.EnvCodec, config.EnvWebSocket, config.EnvTimeout, config.EnvRateLimit, config.EnvLogLevel} {
		s.T().Setenv(key, "")
	}
	s.server = fakesync.NewServer(apiKey)
	s.Require().NoError(s.server.Start())
}

func (s *CLITestSuite) TearDownTest() {
	s.Require().NoError(s.server.Stop())
}

func (s *CLITestSuite) exec(endpoint string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--url", endpoint, "--api-key", apiKey, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// run executes args over REST and decodes the printed JSON into dst.
func (s *CLITestSuite) run(dst any, args ...string) {
	out, err := s.exec(s.server.HTTPURL(), args...)
	s.Require().NoError(err, args)
	if dst != nil {
		s.Require().NoError(json.Unmarshal([]byte(out), dst), out)
	}
}

func (s *CLITestSuite) TestProjects() {
	var p models.Project
	s.run(&p, "project", "create", "--name", "shop", "--description", "cli")
	s.Equal("shop", p.Name)

	var all []models.Project
	s.run(&all, "projects", "list")
	s.Equal([]models.Project{p}, all)

	var renamed models.Project
	s.run(&renamed, "project", "update", p.ID, "--name", "store")
	s.Equal("store", renamed.Name)

	var ok done
	s.run(&ok, "project", "authorize", p.ID, "--client", "9", "--permission", "read_data")
	s.True(ok.OK)
	s.True(s.server.Store.HasGrant(models.ProjectKey(p.ID), "9", models.PermissionReadData))
	s.run(nil, "project", "authorize", p.ID, "--client", "9", "--permission", "read_data", "--revoke")
	s.False(s.server.Store.HasGrant(models.ProjectKey(p.ID), "9", models.PermissionReadData))

	s.run(&ok, "project", "delete", p.ID)
	_, err := s.exec(s.server.HTTPURL(), "project", "get", p.ID)
	s.Require().ErrorIs(err, constants.ErrService)
}

func (s *CLITestSuite) TestCollectionsAndData() {
	var p models.Project
	s.run(&p, "project", "create", "--name", "shop")

	var c models.Collection
	s.run(&c, "collection", "create", "-p", p.ID, "--name", "Notes", "--key", "notes", "--activate")
	s.Equal(models.CollectionActive, c.Status)

	s.run(nil, "collection", "tag", "-p", p.ID, "-k", "notes", "--tags", "a,b", "--weight", "0.5")
	var tagged []models.Collection
	s.run(&tagged, "collection", "list", "-p", p.ID, "--tag", "b")
	s.Require().Len(tagged, 1)
	s.Len(tagged[0].Tags, 2)

	var folder models.Folder
	s.run(&folder, "folder", "create", "archive", "-p", p.ID, "-k", "notes")
	var folders []models.Folder
	s.run(&folders, "folder", "list", "-p", p.ID, "--collection-id", c.ID)
	s.Len(folders, 2)

	var d models.DataObject
	s.run(&d, "data", "create", "-p", p.ID, "-k", "notes", "--key", "hello", "--title", "Hello", "--additional", `{"lang":"en"}`)
	s.Equal("Hello", d.Title)
	s.Equal("en", d.Additional["lang"])

	var merged models.DataObject
	s.run(&merged, "data", "update", "-p", p.ID, "-k", "notes", "--key", "hello", "--text", "world")
	s.Equal("Hello", merged.Title)
	s.Equal("world", merged.Text)

	s.run(nil, "data", "move", "-p", p.ID, "-k", "notes", "--id", d.ID, "--to-folder", "archive")

	var got models.DataObject
	s.run(&got, "data", "get", "-p", p.ID, "-k", "notes", "--id", d.ID)
	s.Equal("archive", got.Folder)

	var list []models.DataObject
	s.run(&list, "data", "list", "-p", p.ID, "-k", "notes", "--folder", "archive", "--limit", "10")
	s.Len(list, 1)

	var n models.Count
	s.run(&n, "data", "count", "-p", p.ID, "-k", "notes")
	s.Equal(int64(1), n.Count)

	_, err := s.exec(s.server.HTTPURL(), "data", "delete", "-p", p.ID, "-k", "notes")
	s.Require().ErrorContains(err, "refusing to empty")

	s.run(nil, "data", "delete", "-p", p.ID, "-k", "notes", "--folder", "archive")
	s.run(&n, "data", "count", "-p", p.ID, "-k", "notes")
	s.Zero(n.Count)

	s.run(nil, "folder", "delete", "archive", "-p", p.ID, "-k", "notes")
	s.run(nil, "collection", "deactivate", "-p", p.ID, "-k", "notes")
	s.run(nil, "collection", "delete", "-p", p.ID, "--collection-id", c.ID)
}

func (s *CLITestSuite) TestDumpAndRestore() {
	var p models.Project
	s.run(&p, "project", "create", "--name", "shop")
	s.run(nil, "collection", "create", "-p", p.ID, "--name", "Notes", "--key", "notes", "--activate")
	s.run(nil, "data", "create", "-p", p.ID, "-k", "notes", "--title", "kept")

	path := filepath.Join(s.T().TempDir(), "shop.dump")
	var m syncanodump.Manifest
	s.run(&m, "dump", path, "-p", p.ID)
	s.Equal(p.ID, m.ProjectID)
	s.Equal(1, m.Stats.Data)
	s.FileExists(path + syncanodump.ManifestSuffix)

	var res restored
	s.run(&res, "restore", path, "--name", "shop copy")
	s.Equal("shop copy", res.Name)
	s.NotEqual(p.ID, res.Project)
	s.Equal(syncanodump.Stats{Collections: 1, Data: 1}, res.Stats)

	var data []models.DataObject
	s.run(&data, "data", "list", "-p", res.Project, "-k", "notes")
	s.Require().Len(data, 1)
	s.Equal("kept", data[0].Title)

	_, err := s.exec(s.server.HTTPURL(), "dump", path)
	s.Require().ErrorContains(err, "project")
}

func (s *CLITestSuite) TestValidationStopsBeforeTheNetwork() {
	_, err := s.exec(s.server.HTTPURL(), "collection", "get", "-p", "1")
	s.Require().ErrorIs(err, constants.ErrInvalidArgument)
	s.Contains(err.Error(), "collection_id")

	_, err = s.exec(s.server.HTTPURL(), "data", "create", "-p", "1", "-k", "notes", "--additional", "{")
	s.Require().ErrorContains(err, "--additional")

	s.Empty(s.server.Calls())
}

func (s *CLITestSuite) TestWatch() {
	var p models.Project
	s.run(&p, "project", "create", "--name", "shop")
	var c models.Collection
	s.run(&c, "collection", "create", "-p", p.ID, "--name", "notes", "--activate")

	type result struct {
		out string
		err error
	}
	finished := make(chan result, 1)
	go func() {
		out, err := s.exec(s.server.TCPURL(), "watch", "-p", p.ID, "--limit", "1")
		finished <- result{out, err}
	}()

	s.Require().Eventually(func() bool {
		return s.server.CallCount(connection.SubscribeProject) == 1
	}, 3*time.Second, 10*time.Millisecond)

	s.run(nil, "data", "create", "-p", p.ID, "--collection-id", c.ID, "--title", "ping")

	select {
	case res := <-finished:
		s.Require().NoError(res.err)
		var n models.Notification
		s.Require().NoError(json.Unmarshal([]byte(res.out), &n))
		s.Equal(models.NotificationNew, n.Type)
		s.Equal("ping", n.Data["title"])
	case <-time.After(5 * time.Second):
		s.Fail("watch did not return")
	}
}

func (s *CLITestSuite) TestWatchNeedsSync() {
	_, err := s.exec(s.server.HTTPURL(), "watch", "-p", "1")
	s.Require().ErrorIs(err, constants.ErrMethodNotAvailable)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "syncano dev\n", out.String())
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	path := filepath.Join(t.TempDir(), "syncano.yaml")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "url: https://api.syncano.com")

	cmd = NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"config", "init", path})
	assert.ErrorContains(t, cmd.Execute(), "already exists")

	out.Reset()
	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--api-key", "secret", "--codec", "cbor", "config", "show"})
	require.NoError(t, cmd.Execute())

	first, _, _ := strings.Cut(out.String(), "\n")
	assert.True(t, strings.HasPrefix(first, "# "))
	assert.True(t, strings.HasSuffix(first, "syncano.yaml"))
	assert.Contains(t, out.String(), "api-key:")

	var shown config.Config
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &shown))
	assert.Equal(t, "***", shown.APIKey)
	assert.Equal(t, "cbor", shown.Codec)
}
