package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSchema(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func TestShouldReload(t *testing.T) {
	const file = "/work/db_schema.sql"

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "write", event: fsnotify.Event{Name: file, Op: fsnotify.Write}, want: true},
		{name: "create", event: fsnotify.Event{Name: file, Op: fsnotify.Create}, want: true},
		{name: "unclean path", event: fsnotify.Event{Name: "/work/./db_schema.sql", Op: fsnotify.Write}, want: true},
		{name: "chmod", event: fsnotify.Event{Name: file, Op: fsnotify.Chmod}, want: false},
		{name: "remove", event: fsnotify.Event{Name: file, Op: fsnotify.Remove}, want: false},
		{name: "sibling file", event: fsnotify.Event{Name: "/work/other.sql", Op: fsnotify.Write}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldReload(tt.event, file))
		})
	}
}

func TestNew_InvalidDirectory(t *testing.T) {
	_, err := New("/nonexistent/directory/db_schema.sql", func(context.Context) error { return nil }, discardLogger())
	assert.Error(t, err)
}

func TestFileWatcher_ReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_schema.sql")
	writeSchema(t, path, "CREATE TABLE orders (\n    id integer\n);\n")

	var calls atomic.Int32
	fw, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, discardLogger())
	require.NoError(t, err)
	defer fw.Stop()

	fw.Start(context.Background())

	writeSchema(t, path, "CREATE TABLE customers (\n    id integer\n);\n")

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestFileWatcher_ReloadOnRecreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_schema.sql")
	writeSchema(t, path, "CREATE TABLE orders (\n    id integer\n);\n")

	var calls atomic.Int32
	fw, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, discardLogger())
	require.NoError(t, err)
	defer fw.Stop()

	fw.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.Remove(path))
	time.Sleep(50 * time.Millisecond)
	writeSchema(t, path, "CREATE TABLE orders (\n    id bigint\n);\n")

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestFileWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_schema.sql")
	writeSchema(t, path, "initial")

	var calls atomic.Int32
	fw, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, discardLogger())
	require.NoError(t, err)
	defer fw.Stop()

	fw.SetDebounce(200 * time.Millisecond)
	fw.Start(context.Background())

	for i := 0; i < 5; i++ {
		writeSchema(t, path, "CREATE TABLE t (\n    id integer\n);\n")
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "rapid writes should collapse into one reload")
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db_schema.sql")
	writeSchema(t, path, "initial")

	var calls atomic.Int32
	fw, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, discardLogger())
	require.NoError(t, err)
	defer fw.Stop()

	fw.Start(context.Background())

	writeSchema(t, filepath.Join(dir, "notes.txt"), "unrelated")
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
}

func TestFileWatcher_ReloadErrorKeepsWatching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_schema.sql")
	writeSchema(t, path, "initial")

	var calls atomic.Int32
	fw, err := New(path, func(context.Context) error {
		calls.Add(1)
		return errors.New("embedding service unavailable")
	}, discardLogger())
	require.NoError(t, err)
	defer fw.Stop()

	fw.Start(context.Background())

	writeSchema(t, path, "first")
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)

	writeSchema(t, path, "second")
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 20*time.Millisecond)
}

func TestFileWatcher_StopTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_schema.sql")
	writeSchema(t, path, "initial")

	fw, err := New(path, func(context.Context) error { return nil }, discardLogger())
	require.NoError(t, err)

	fw.Start(context.Background())
	fw.Stop()
	assert.NotPanics(t, fw.Stop)
}
