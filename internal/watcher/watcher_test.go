package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type changeCollector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *changeCollector) collect(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, paths)
}

func (c *changeCollector) waitForBatch(t *testing.T, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.batches) > 0 {
			batch := c.batches[0]
			c.mu.Unlock()
			return batch
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no change batch arrived")
	return nil
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	collector := &changeCollector{}

	w, err := New(50*time.Millisecond, nil, nil, collector.collect)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "a.py")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(target, []byte("pass\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	batch := collector.waitForBatch(t, 2*time.Second)
	found := false
	for _, p := range batch {
		if p == target {
			found = true
		}
	}
	if !found {
		t.Errorf("batch %v does not contain %s", batch, target)
	}
}

func TestWatcher_ExcludesFiles(t *testing.T) {
	dir := t.TempDir()
	collector := &changeCollector{}

	w, err := New(50*time.Millisecond, nil, []string{"*.log"}, collector.collect)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "noise.log"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	wanted := filepath.Join(dir, "code.py")
	if err := os.WriteFile(wanted, []byte("pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := collector.waitForBatch(t, 2*time.Second)
	for _, p := range batch {
		if filepath.Ext(p) == ".log" {
			t.Errorf("excluded file leaked into batch: %v", batch)
		}
	}
}
