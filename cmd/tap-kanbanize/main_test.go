package main

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
	"github.com/ajitpratap0/tap-kanbanize/pkg/singer"
	"github.com/ajitpratap0/tap-kanbanize/pkg/testutil"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	return testutil.WriteFile(t, "config.json", `{
		"api_key": "secret",
		"subdomain": "acme",
		"board_id": "12",
		"base_url": "`+baseURL+`"
	}`)
}

func selectedCatalog(t *testing.T, stdout []byte) string {
	t.Helper()
	catalog, err := singer.ReadCatalog(bytes.NewReader(stdout))
	require.NoError(t, err)
	catalog.Streams[0].Metadata = append(catalog.Streams[0].Metadata, singer.MetadataEntry{
		Metadata:   singer.Annotations{"selected": true},
		Breadcrumb: singer.Breadcrumb{},
	})

	var buf bytes.Buffer
	require.NoError(t, singer.WriteCatalog(&buf, catalog))
	return testutil.WriteFile(t, "catalog.json", buf.String())
}

func messageTypes(t *testing.T, stdout []byte) []string {
	t.Helper()
	var types []string
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &msg))
		types = append(types, msg["type"].(string))
	}
	return types
}

func TestExecute_Discover(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(testutil.TestContext(t), []string{"--config", writeConfig(t, "http://127.0.0.1:1"), "--discover"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	streams := doc["streams"].([]interface{})
	require.Len(t, streams, 1)
	assert.Equal(t, "tasks", streams[0].(map[string]interface{})["tap_stream_id"])
	assert.NotContains(t, stdout.String(), "job_id")
	assert.Contains(t, stderr.String(), "job_id")
}

func TestExecute_Sync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"taskid": 1, "title": "A"}, {"taskid": 2, "title": "B"}]`))
	}))
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	var discovered, stderr bytes.Buffer
	require.Equal(t, 0, execute(testutil.TestContext(t), []string{"-c", cfg, "-d"}, &discovered, &stderr))
	catalog := selectedCatalog(t, discovered.Bytes())
	metricsFile := filepath.Join(t.TempDir(), "tap.prom")

	var stdout bytes.Buffer
	code := execute(testutil.TestContext(t), []string{"-c", cfg, "--catalog", catalog, "--metrics-file", metricsFile}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, []string{"SCHEMA", "RECORD", "RECORD", "STATE"}, messageTypes(t, stdout.Bytes()))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `tap_record_count_total{endpoint="tasks"} 2`)
}

func TestExecute_SyncWithLegacyPropertiesFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	var discovered, stdout, stderr bytes.Buffer
	require.Equal(t, 0, execute(testutil.TestContext(t), []string{"-c", cfg, "-d"}, &discovered, &stderr))
	catalog := selectedCatalog(t, discovered.Bytes())

	code := execute(testutil.TestContext(t), []string{"-c", cfg, "-p", catalog}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, []string{"SCHEMA", "STATE"}, messageTypes(t, stdout.Bytes()))
}

func TestExecute_ServerErrorExitsNonZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	var discovered, stdout, stderr bytes.Buffer
	require.Equal(t, 0, execute(testutil.TestContext(t), []string{"-c", cfg, "-d"}, &discovered, &stderr))
	catalog := selectedCatalog(t, discovered.Bytes())

	code := execute(testutil.TestContext(t), []string{"-c", cfg, "--catalog", catalog}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.NotContains(t, messageTypes(t, stdout.Bytes()), "RECORD")
	assert.Contains(t, stderr.String(), "tap failed")
	assert.Contains(t, stderr.String(), `"error_type":"request"`)
}

func TestExecute_InvalidConfig(t *testing.T) {
	cfg := testutil.WriteFile(t, "config.json", `{"subdomain": "acme"}`)

	var stdout, stderr bytes.Buffer
	code := execute(testutil.TestContext(t), []string{"--config", cfg, "--discover"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "missing required config keys: api_key, board_id")
}

func TestExecute_MissingConfigFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(testutil.TestContext(t), []string{"--discover"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), `required flag(s) "config" not set`)
}

func TestExecute_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, execute(testutil.TestContext(t), []string{"version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "tap-kanbanize v"+version))
}
