package log

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLog_NoopBeforeInit(t *testing.T) {
	// Must not panic without a sink
	Info(CatRegistry, "ignored", "k", "v")
}

func TestLog_FormatsFields(t *testing.T) {
	var buf syncBuffer
	cleanup := InitWriter(&buf)
	defer cleanup()

	Info(CatScan, "manifest parsed", "origin", "plugins/a.yaml", "parts", 3)
	Warn(CatScan, "odd fields", "orphan")
	ErrorErr(CatStore, "save failed", errors.New("disk full"))

	out := buf.String()
	require.Contains(t, out, "[INFO] [scan] manifest parsed origin=plugins/a.yaml parts=3")
	require.Contains(t, out, "[WARN] [scan] odd fields orphan=<missing>")
	require.Contains(t, out, "[ERROR] [store] save failed error=disk full")
}

func TestLog_MinLevelAndDisable(t *testing.T) {
	var buf syncBuffer
	cleanup := InitWriter(&buf)
	defer cleanup()

	SetMinLevel(LevelWarn)
	Debug(CatMatch, "hidden")
	Info(CatMatch, "hidden")
	Warn(CatMatch, "shown")

	SetEnabled(false)
	Error(CatMatch, "also hidden")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Equal(t, 1, strings.Count(out, "\n"))
}

func TestLog_InitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	cleanup, err := Init(path)
	require.NoError(t, err)

	Debug(CatConfig, "loaded", "file", "config.yaml")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[DEBUG] [config] loaded file=config.yaml")
}

func TestLog_InitFileError(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "missing", "dir", "debug.log"))
	require.Error(t, err)
}

func TestLog_Listener(t *testing.T) {
	var buf syncBuffer
	cleanup := InitWriter(&buf)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	l := NewListener(ctx)
	require.NotNil(t, l)

	Info(CatWatcher, "manifest changed")
	event, ok := l.Next(ctx)
	require.True(t, ok)
	require.Contains(t, event.Payload, "manifest changed")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	} {
		got, ok := ParseLevel(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	_, ok := ParseLevel("verbose")
	require.False(t, ok)
}
