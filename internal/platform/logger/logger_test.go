package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "cartstore", Output: &buf})

	ctx := logg.WithCartID(context.Background(), "c-1")
	logg.Warn(ctx, "cart record unreadable", errors.New("boom"), "key", "cart:c-1")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "cartstore", entry["service"])
	assert.Equal(t, "c-1", entry["cart_id"])
	assert.Equal(t, "cart:c-1", entry["key"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "warn", entry["level"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{Level: zerolog.WarnLevel, Output: &buf})

	logg.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	logg.Error(context.Background(), "shown", nil)
	assert.Equal(t, "shown", decodeLine(t, &buf)["message"])
}
