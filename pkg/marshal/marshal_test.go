package marshal_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

func TestByName(t *testing.T) {
	c, err := marshal.ByName("")
	require.NoError(t, err)
	assert.Equal(t, marshal.JSONName, c.Name())
	assert.False(t, c.Binary())

	c, err = marshal.ByName(marshal.CBORName)
	require.NoError(t, err)
	assert.Equal(t, marshal.CBORName, c.Name())
	assert.True(t, c.Binary())

	_, err = marshal.ByName("msgpack")
	assert.ErrorContains(t, err, "msgpack")
}

func TestToParamsFlattensRefs(t *testing.T) {
	req := models.GetOneDataRequest{
		ProjectID:     "1",
		CollectionRef: models.ByCollectionKey("notes"),
		DataRef:       models.ByDataID("7"),
	}

	for _, name := range []string{marshal.JSONName, marshal.CBORName} {
		c, err := marshal.ByName(name)
		require.NoError(t, err)

		params, err := marshal.ToParams(c, req)
		require.NoError(t, err, name)
		assert.Equal(t, map[string]any{
			"project_id":     "1",
			"collection_key": "notes",
			"data_id":        "7",
		}, params, name)
	}

	params, err := marshal.ToParams(marshal.JSONCodec{}, nil)
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestConvert(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 0, 500, time.UTC)

	for _, name := range []string{marshal.JSONName, marshal.CBORName} {
		c, err := marshal.ByName(name)
		require.NoError(t, err)

		// A payload as the reader goroutine sees it: decoded into any.
		raw, err := c.Marshal(models.DataObject{ID: "7", CreatedAt: created, Title: "hi", Additional: map[string]any{"n": "x"}})
		require.NoError(t, err)
		var generic any
		require.NoError(t, c.Unmarshal(raw, &generic))
		_, isMap := generic.(map[string]any)
		require.True(t, isMap, "%s decodes objects as %T", name, generic)

		var d models.DataObject
		require.NoError(t, marshal.Convert(c, generic, &d), name)
		assert.Equal(t, "7", d.ID)
		assert.Equal(t, "hi", d.Title)
		assert.True(t, created.Equal(d.CreatedAt), name)
		assert.Equal(t, "x", d.Additional["n"])
	}
}

func TestConvertEdgeCases(t *testing.T) {
	assert.NoError(t, marshal.Convert(marshal.JSONCodec{}, map[string]any{"id": "1"}, nil))

	var p models.Project
	err := marshal.Convert(marshal.JSONCodec{}, nil, &p)
	assert.ErrorIs(t, err, constants.InvalidResponse)

	err = marshal.Convert(marshal.JSONCodec{}, []any{"not", "an", "object"}, &p)
	assert.ErrorContains(t, err, "models.Project")
}

func TestStreams(t *testing.T) {
	for _, name := range []string{marshal.JSONName, marshal.CBORName} {
		c, err := marshal.ByName(name)
		require.NoError(t, err)

		var buf bytes.Buffer
		enc := c.NewEncoder(&buf)
		require.NoError(t, enc.Encode(models.Project{ID: "1", Name: "a"}))
		require.NoError(t, enc.Encode(models.Project{ID: "2", Name: "b"}))

		dec := c.NewDecoder(&buf)
		var first, second models.Project
		require.NoError(t, dec.Decode(&first))
		require.NoError(t, dec.Decode(&second))
		assert.Equal(t, "a", first.Name, name)
		assert.Equal(t, "b", second.Name, name)
	}
}
