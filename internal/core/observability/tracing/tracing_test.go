package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/eventscope/internal/config"
)

func TestNoneIsNoop(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Exporter: "none"}, nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "scan")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStdoutWritesEndedSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(config.TracingConfig{Exporter: "stdout"}, &buf)
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "manager.Rescan")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "manager.Rescan")
	assert.Contains(t, buf.String(), "eventscope")
}

func TestUnknownExporter(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Exporter: "jaeger"}, nil)
	assert.Error(t, err)
}
