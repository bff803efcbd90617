package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncoder_DoesNotEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(map[string]string{"title": "<b>A & B</b>"}))

	assert.Equal(t, "{\"title\":\"<b>A & B</b>\"}\n", buf.String())
}

func TestUnmarshalNumbers_KeepsPrecision(t *testing.T) {
	var records []map[string]interface{}
	require.NoError(t, UnmarshalNumbers([]byte(`[{"taskid": 9007199254740993}]`), &records))

	require.Len(t, records, 1)
	n, ok := records[0]["taskid"].(Number)
	require.True(t, ok)
	assert.Equal(t, "9007199254740993", n.String())
}

func TestUnmarshalNumbers_RejectsTrailingContent(t *testing.T) {
	var records []map[string]interface{}
	assert.Equal(t, ErrTrailingContent, UnmarshalNumbers([]byte(`[{"taskid": 1}] {"error": "x"}`), &records))
	assert.Equal(t, ErrTrailingContent, UnmarshalNumbers([]byte(`[] ]`), &records))
	assert.NoError(t, UnmarshalNumbers([]byte("[{\"taskid\": 1}]\n"), &records))
}

func TestMarshalCorrectness(t *testing.T) {
	in := map[string]interface{}{"taskid": 1, "title": "A"}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, "A", out["title"])
	assert.Equal(t, float64(1), out["taskid"])
}
