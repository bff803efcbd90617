package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "debug", Output: &buf})
	require.NoError(t, err)

	ctx := WithJobID(context.Background(), "job-1")
	WithContext(ctx, log).Info("synced")
	require.NoError(t, log.Sync())

	var line map[string]interface{}
	require.NoError(t, gojson.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "synced", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "job-1", line["job_id"])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}
