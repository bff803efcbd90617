package singer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
)

func countLeaves(schema *Schema) int {
	if schema.Kind() == KindLeaf {
		return 1
	}
	n := 0
	for _, p := range schema.Properties {
		n += countLeaves(p.Schema)
	}
	return n
}

func TestBuildMetadata_OneEntryPerLeaf(t *testing.T) {
	schemas := map[string]string{
		"flat":   `{"type":"object","properties":{"taskid":{"type":"integer"},"title":{"type":"string"}}}`,
		"nested": nestedSchema,
		"deep": `{"type":"object","properties":{"a":{"type":"object","properties":{"b":{"type":"object",
			"properties":{"c":{"type":"string"},"d":{"type":"number"}}}}},"e":{"type":"boolean"}}}`,
	}

	for name, raw := range schemas {
		t.Run(name, func(t *testing.T) {
			var schema Schema
			require.NoError(t, json.Unmarshal([]byte(raw), &schema))

			md, err := BuildMetadata(&schema, []string{"taskid"})
			require.NoError(t, err)
			assert.Len(t, md, countLeaves(&schema))

			for _, entry := range md {
				node, ok := entry.Breadcrumb.Resolve(&schema)
				require.True(t, ok, "breadcrumb %v does not resolve", entry.Breadcrumb)
				assert.Equal(t, KindLeaf, node.Kind())
				assert.Equal(t, InclusionAutomatic, entry.Metadata.Inclusion())
			}
		})
	}
}

func TestBuildMetadata_DeclaredOrder(t *testing.T) {
	var schema Schema
	require.NoError(t, json.Unmarshal([]byte(nestedSchema), &schema))

	md, err := BuildMetadata(&schema, nil)
	require.NoError(t, err)

	paths := make([]string, 0, len(md))
	for _, entry := range md {
		paths = append(paths, entry.Breadcrumb.String())
	}
	assert.Equal(t, []string{"title", "taskid", "assignee.username", "assignee.avatar", "tags"}, paths)
	assert.Equal(t, Breadcrumb{"properties", "assignee", "properties", "username"}, md[2].Breadcrumb)
}

func TestBuildMetadata_RejectsLeafRoot(t *testing.T) {
	_, err := BuildMetadata(&Schema{Type: TypeSet{"string"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = BuildMetadata(nil, nil)
	assert.Error(t, err)
}

func TestBreadcrumb_ChildDoesNotAlias(t *testing.T) {
	parent := make(Breadcrumb, 2, 10)
	parent[0], parent[1] = "properties", "assignee"

	a := parent.Child("username")
	b := parent.Child("avatar")

	assert.Equal(t, Breadcrumb{"properties", "assignee", "properties", "username"}, a)
	assert.Equal(t, Breadcrumb{"properties", "assignee", "properties", "avatar"}, b)
}

func TestBreadcrumb_RootEncodesAsEmptyArray(t *testing.T) {
	data, err := json.Marshal(MetadataEntry{Metadata: Annotations{"selected": true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{"selected":true},"breadcrumb":[]}`, string(data))
}

func TestBreadcrumb_Resolve(t *testing.T) {
	var schema Schema
	require.NoError(t, json.Unmarshal([]byte(nestedSchema), &schema))

	node, ok := Breadcrumb(nil).Resolve(&schema)
	assert.True(t, ok)
	assert.Same(t, &schema, node)

	_, ok = Breadcrumb{"properties", "missing"}.Resolve(&schema)
	assert.False(t, ok)

	_, ok = Breadcrumb{"properties"}.Resolve(&schema)
	assert.False(t, ok)
}

func TestAnnotations_Selected(t *testing.T) {
	_, set := Annotations{}.Selected()
	assert.False(t, set)

	selected, set := Annotations{"selected": true}.Selected()
	assert.True(t, set)
	assert.True(t, selected)

	selected, _ = Annotations{"selected": "false"}.Selected()
	assert.False(t, selected)

	selected, _ = Annotations{"selected": json.Number("1")}.Selected()
	assert.True(t, selected)
}

func TestAnnotations_SelectedStringTruthiness(t *testing.T) {
	for _, s := range []string{"", "false", "False", "FALSE", "0"} {
		selected, set := Annotations{"selected": s}.Selected()
		assert.True(t, set, s)
		assert.False(t, selected, s)
	}
	for _, s := range []string{"true", "yes", "no"} {
		selected, _ := Annotations{"selected": s}.Selected()
		assert.True(t, selected, s)
	}
}
