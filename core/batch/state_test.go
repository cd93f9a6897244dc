package batch

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/guidepipe/core"
)

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", ".batch_state.json")
	s := NewState(path, "https://example.com/index")
	s.MarkCompleted("https://example.com/b")
	s.MarkCompleted("https://example.com/a")
	s.MarkFailed("https://example.com/c")
	require.NoError(t, s.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var f map[string]any
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.Equal(t, "https://example.com/index", f["indexUrl"])
	assert.Equal(t, []any{"https://example.com/a", "https://example.com/b"}, f["completed"])
	assert.Equal(t, []any{"https://example.com/c"}, f["failed"])

	loaded, err := LoadState(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "https://example.com/index", loaded.IndexURL())
	assert.True(t, loaded.IsCompleted("https://example.com/a"))
	assert.True(t, loaded.IsFailed("https://example.com/c"))
}

func TestLoadStateMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	s, err := LoadState(filepath.Join(dir, "none.json"))
	assert.NoError(t, err)
	assert.Nil(t, s)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	s, err = LoadState(bad)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestLoadStateRepairsOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"indexUrl":"i","completed":["a"],"failed":["a","b"]}`), 0644))

	s, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, s.Completed())
	assert.Equal(t, []string{"b"}, s.Failed())
}

func TestTransitions(t *testing.T) {
	s := NewState(filepath.Join(t.TempDir(), "s.json"), "i")

	s.MarkFailed("a")
	s.MarkFailed("a")
	assert.Equal(t, []string{"a"}, s.Failed())

	s.MarkCompleted("a")
	assert.Empty(t, s.Failed())
	assert.Equal(t, []string{"a"}, s.Completed())

	// completed never goes back to failed
	s.MarkFailed("a")
	assert.Empty(t, s.Failed())
	assert.True(t, s.IsCompleted("a"))
}

func TestStateDisjointProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	urls := []string{"a", "b", "c", "d", "e"}

	for iter := 0; iter < 100; iter++ {
		s := NewState(filepath.Join(t.TempDir(), "s.json"), "i")
		everCompleted := map[string]bool{}
		for step := 0; step < 30; step++ {
			u := urls[rng.Intn(len(urls))]
			if rng.Intn(2) == 0 {
				s.MarkCompleted(u)
				everCompleted[u] = true
			} else {
				s.MarkFailed(u)
			}

			failed := map[string]bool{}
			for _, f := range s.Failed() {
				failed[f] = true
			}
			for _, c := range s.Completed() {
				require.False(t, failed[c], "url %s in both sets", c)
			}
			for u := range everCompleted {
				require.True(t, s.IsCompleted(u), "url %s left completed", u)
			}
		}
	}
}

func TestPending(t *testing.T) {
	s := NewState(filepath.Join(t.TempDir(), "s.json"), "i")
	s.MarkCompleted("b")
	s.MarkFailed("c")

	items := []core.WorkItem{{URL: "a"}, {URL: "b"}, {URL: "c"}}
	assert.Equal(t, []core.WorkItem{{URL: "a"}, {URL: "c"}}, s.Pending(items))
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	s := NewState(path, "i")
	require.NoError(t, s.Save())
	require.FileExists(t, path)

	require.NoError(t, s.Clear())
	assert.NoFileExists(t, path)
	assert.NoError(t, s.Clear())
}

func writeRaw(path, body string) error {
	return os.WriteFile(path, []byte(body), 0644)
}
