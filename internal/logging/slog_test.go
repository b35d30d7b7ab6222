package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger()
	ctx := context.Background()

	log.Info(ctx, "info msg", "k", "v1")
	log.Warn(ctx, "warn msg", "k", "v2")
	log.Error(ctx, "error msg", "k", "v3")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "info msg")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "k=v3")
}

func TestSlogLogger_With(t *testing.T) {
	log, buf := newTestLogger()

	child := log.With("component", "httpserver")
	child.Info(context.Background(), "request")

	assert.Contains(t, buf.String(), "component=httpserver")
}
