package cleanup

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduler_RemovesPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "upload.png")
	bundle := filepath.Join(dir, "bundle")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "tables"), 0o755))

	s := newTestScheduler()
	s.Schedule(10*time.Millisecond, file, bundle)

	assert.Eventually(t, func() bool {
		_, errFile := os.Stat(file)
		_, errDir := os.Stat(bundle)
		return os.IsNotExist(errFile) && os.IsNotExist(errDir)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_DoesNotBlock(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	start := time.Now()
	s.Schedule(time.Hour, filepath.Join(t.TempDir(), "x"))

	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_SwallowsFailures(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "second.pdf")
	require.NoError(t, os.WriteFile(second, []byte("x"), 0o644))

	s := newTestScheduler()
	s.remove = func(path string) error {
		if filepath.Base(path) == "first.pdf" {
			return errors.New("permission denied")
		}
		return os.RemoveAll(path)
	}

	s.Schedule(time.Millisecond, filepath.Join(dir, "first.pdf"), second)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(second)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RecoversPanic(t *testing.T) {
	s := newTestScheduler()
	s.remove = func(path string) error {
		panic("boom")
	}

	s.Schedule(time.Millisecond, "anything")

	assert.Eventually(t, func() bool { return s.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_MissingPathIsNotAnError(t *testing.T) {
	s := newTestScheduler()
	s.Schedule(time.Millisecond, filepath.Join(t.TempDir(), "already-gone"))

	assert.Eventually(t, func() bool { return s.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_Stop(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keep.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	s := newTestScheduler()
	s.Schedule(50*time.Millisecond, file)
	s.Stop()
	s.Schedule(time.Millisecond, file)

	assert.Equal(t, 0, s.Pending())
	time.Sleep(100 * time.Millisecond)
	assert.FileExists(t, file)
}
