package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "WARN", true)
	t.Cleanup(func() { Init("info", false) })

	Info("hidden")
	Warn("shown", "account_id", "a1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "a1", line["account_id"])
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", false)
	t.Cleanup(func() { Init("info", false) })

	scoped := With("request_id", "r-1")
	ctx := IntoContext(context.Background(), scoped)
	WithContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "request_id=r-1")

	assert.Same(t, Get(), WithContext(context.Background()))
}
