package config

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/logging"
)

func seedIDs(seed []entity.Entity) []int64 {
	ids := make([]int64, len(seed))
	for i, e := range seed {
		ids[i] = e.ID
	}
	return ids
}

func TestLoadSeed_InlineAndFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seed/b.yaml", "- id: 3\n  name: three\n- id: 4\n  name: four\n")
	writeFile(t, dir, "seed/a.json", `[{"id": 2, "name": "two"}]`)
	writeFile(t, dir, "seed/nested/deep/c.json", `{"id": 5, "name": "five"}`)
	writeFile(t, dir, "seed/ignored.txt", "not seed")

	cfg := Default()
	cfg.BaseDir = dir
	cfg.Seed.Inline = []map[string]any{{"id": 1, "name": "one"}}
	cfg.Seed.Files = []string{"seed/*.json", "seed/*.yaml", "seed/**/*.json"}

	seed, err := cfg.LoadSeed()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, seedIDs(seed))
	assert.Equal(t, "three", seed[2].Fields["name"])
}

func TestLoadSeed_Duplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seed.json", `[{"id": 1}]`)

	cfg := Default()
	cfg.BaseDir = dir
	cfg.Seed.Inline = []map[string]any{{"id": 1}}
	cfg.Seed.Files = []string{"seed.json"}

	_, err := cfg.LoadSeed()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate seed id 1")
}

func TestLoadSeed_NoMatches(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = t.TempDir()
	cfg.Seed.Files = []string{"missing/**/*.json"}

	seed, err := cfg.LoadSeed()
	require.NoError(t, err)
	assert.Empty(t, seed)
}

func TestLoadSeedFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"scalar", "scalar.json", `42`},
		{"non-object item", "items.json", `[1, 2]`},
		{"missing id", "noid.yaml", "- name: x\n"},
		{"bad yaml", "bad.yaml", "- [\n"},
		{"bad json", "bad.json", `[{"id": 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSeedFile(writeFile(t, dir, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

type seedRecorder struct {
	mu    sync.Mutex
	loads [][]entity.Entity
}

func (r *seedRecorder) record(seed []entity.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, seed)
}

func (r *seedRecorder) last() []entity.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.loads) == 0 {
		return nil
	}
	return r.loads[len(r.loads)-1]
}

func (r *seedRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loads)
}

func TestWatchSeed_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seed/entities.json", `[{"id": 1}]`)

	cfg := Default()
	cfg.BaseDir = dir
	cfg.Seed.Files = []string{"seed/*.json"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &seedRecorder{}
	done := make(chan error, 1)
	go func() { done <- WatchSeed(ctx, cfg, logging.Nop(), rec.record) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "seed/entities.json", `[{"id": 1}, {"id": 2}]`)
	require.Eventually(t, func() bool {
		return len(rec.last()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	// An invalid file is logged and ignored.
	loads := rec.count()
	writeFile(t, dir, "seed/entities.json", `[{"id": 1}, {"id": 1}]`)
	time.Sleep(3 * WatchDebounce)
	assert.Equal(t, loads, rec.count())
	assert.Len(t, rec.last(), 2)

	// Non-matching files do not trigger a reload.
	writeFile(t, dir, "seed/notes.txt", "hello")
	time.Sleep(3 * WatchDebounce)
	assert.Equal(t, loads, rec.count())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WatchSeed did not return after cancel")
	}
}

func TestWatchDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seed/a/x.json", "[]")
	writeFile(t, dir, "seed/b/y.json", "[]")

	flat := watchDirs([]string{filepath.Join(dir, "seed", "*.json")})
	assert.Equal(t, []string{filepath.Join(dir, "seed")}, flat)

	deep := watchDirs([]string{filepath.Join(dir, "seed", "**", "*.json")})
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "seed"),
		filepath.Join(dir, "seed", "a"),
		filepath.Join(dir, "seed", "b"),
	}, deep)

	assert.Empty(t, watchDirs([]string{filepath.Join(dir, "missing", "*.json")}))
}
