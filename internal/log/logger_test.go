package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentWorker, Output: &buf})

	logger.Info("synced", FieldRows, 3)
	assert.Contains(t, buf.String(), "component=worker")
	assert.Contains(t, buf.String(), "rows=3")

	buf.Reset()
	logger.WithComponent(ComponentSheets).With(FieldTable, "Bills").Warn("slow")
	assert.Contains(t, buf.String(), "component=sheets")
	assert.Contains(t, buf.String(), "table=Bills")

	buf.Reset()
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestFromContext(t *testing.T) {
	l := FromContext(context.Background())
	assert.Equal(t, ComponentApp, l.Component())

	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentHTTP})
	assert.Same(t, logger, FromContext(NewContext(context.Background(), logger)))
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	ctx := context.Background()

	sl.LogRows(ctx, "Staged records submitted", ComponentStaging, OpSubmit, "Transactions", 2)
	assert.Contains(t, buf.String(), "component=staging")
	assert.Contains(t, buf.String(), "operation=submit")
	assert.Contains(t, buf.String(), "rows=2")

	buf.Reset()
	sl.LogError(ctx, "Submit failed", errors.New("quota exceeded"), ComponentStaging, OpSubmit, nil)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), `error="quota exceeded"`)

	buf.Reset()
	r := httptest.NewRequest(http.MethodPost, "/transactions/submit", nil)
	sl.LogHTTPEnd(ctx, r, http.StatusBadGateway, 12, "10.0.0.1")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "status_code=502")
	assert.Contains(t, buf.String(), "success=false")
}
