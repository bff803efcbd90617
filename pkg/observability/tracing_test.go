package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := NewTracerProvider(TracingConfig{Output: &buf})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "sync")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	require.NoError(t, shutdown(context.Background()))
	assert.Zero(t, buf.Len())
}

func TestNewTracerProvider_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := NewTracerProvider(TracingConfig{
		Enabled:        true,
		ServiceName:    "tap-kanbanize",
		ServiceVersion: "test",
		JobID:          "job-1",
		Output:         &buf,
	})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "sync tasks")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"sync tasks"`)
	assert.Contains(t, buf.String(), "tap-kanbanize")
	assert.Contains(t, buf.String(), "job-1")
}
