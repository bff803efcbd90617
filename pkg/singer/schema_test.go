package singer

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
)

const nestedSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": ["null", "string"]},
    "taskid": {"type": "integer"},
    "assignee": {
      "type": ["null", "object"],
      "properties": {
        "username": {"type": "string"},
        "avatar": {"type": "string", "format": "uri"}
      }
    },
    "tags": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": false
}`

func TestSchema_PreservesPropertyOrder(t *testing.T) {
	var schema Schema
	require.NoError(t, json.Unmarshal([]byte(nestedSchema), &schema))

	assert.Equal(t, KindObject, schema.Kind())
	assert.Equal(t, []string{"title", "taskid", "assignee", "tags"}, schema.PropertyNames())
	assert.Equal(t, []string{"username", "avatar"}, schema.Property("assignee").PropertyNames())
	assert.Equal(t, KindObject, schema.Property("assignee").Kind())
	assert.Equal(t, KindLeaf, schema.Property("tags").Kind())
	assert.Equal(t, TypeSet{"string"}, schema.Property("tags").Items.Type)
	assert.Equal(t, "uri", schema.Property("assignee").Property("avatar").Format)
}

func TestSchema_RoundTrip(t *testing.T) {
	var schema Schema
	require.NoError(t, json.Unmarshal([]byte(nestedSchema), &schema))

	data, err := json.Marshal(&schema)
	require.NoError(t, err)

	var original, encoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(nestedSchema), &original))
	require.NoError(t, json.Unmarshal(data, &encoded))
	assert.Equal(t, original["type"], encoded["type"])
	assert.Equal(t, original["properties"], encoded["properties"])
	assert.Equal(t, false, encoded["additionalProperties"])

	var again Schema
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, schema.PropertyNames(), again.PropertyNames())
}

func TestSchema_MarshalWritesPropertiesInOrder(t *testing.T) {
	schema := &Schema{
		Type: TypeSet{"object"},
		Properties: []Property{
			{Name: "title", Schema: &Schema{Type: TypeSet{"string"}}},
			{Name: "taskid", Schema: &Schema{Type: TypeSet{"null", "integer"}}},
		},
	}

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"object","properties":{"title":{"type":"string"},"taskid":{"type":["null","integer"]}}}`, string(data))
}

func TestSchema_SelectedFlag(t *testing.T) {
	var schema Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":"object","selected":true,"properties":{}}`), &schema))

	require.NotNil(t, schema.Selected)
	assert.True(t, *schema.Selected)
	assert.NotNil(t, schema.Properties)
	assert.Empty(t, schema.Properties)
}

func TestLoadSchema(t *testing.T) {
	fsys := fstest.MapFS{
		"schemas/task.json":   {Data: []byte(nestedSchema)},
		"schemas/broken.json": {Data: []byte(`{"type": "object", "properties": [`)},
	}

	schema, err := LoadSchema(fsys, "schemas/task.json")
	require.NoError(t, err)
	assert.Len(t, schema.Properties, 4)

	_, err = LoadSchema(fsys, "schemas/missing.json")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = LoadSchema(fsys, "schemas/broken.json")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
