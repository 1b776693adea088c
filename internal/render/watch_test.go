package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRequiresDir(t *testing.T) {
	err := Watch(context.Background(), "", func() error { return nil })
	assert.Error(t, err)
}

func TestWatchRebuildsOnTemplateChange(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(tmpl, []byte("v1"), 0644))

	rebuilt := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, func() error {
			rebuilt <- struct{}{}
			return nil
		})
	}()

	// Give the watcher time to register before the write
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(tmpl, []byte("v2"), 0644))

	select {
	case <-rebuilt:
	case <-time.After(3 * time.Second):
		t.Fatal("rebuild was not triggered by a template write")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	rebuilt := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, func() error {
			rebuilt <- struct{}{}
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	select {
	case <-rebuilt:
		t.Fatal("non-template write must not trigger a rebuild")
	case <-time.After(time.Second):
	}

	cancel()
	<-done
}
