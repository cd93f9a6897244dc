// Package batch runs the pipeline over every tutorial linked from an index
// page and keeps enough state on disk to resume after a crash.
package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// State records which work items of one index page are done.
// Completed and failed are disjoint. An item may move from failed to
// completed on a later run, never the other way.
type State struct {
	mu        sync.Mutex
	path      string
	indexURL  string
	completed map[string]bool
	failed    map[string]bool
}

type stateFile struct {
	IndexURL  string   `json:"indexUrl"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// NewState returns empty state for indexURL, persisted at path.
func NewState(path, indexURL string) *State {
	return &State{
		path:      path,
		indexURL:  indexURL,
		completed: map[string]bool{},
		failed:    map[string]bool{},
	}
}

// LoadState reads the state file at path. A missing file returns nil state
// and no error.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading batch state: %w", err)
	}
	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding batch state %s: %w", path, err)
	}
	s := NewState(path, f.IndexURL)
	for _, u := range f.Completed {
		s.completed[u] = true
	}
	for _, u := range f.Failed {
		if !s.completed[u] {
			s.failed[u] = true
		}
	}
	return s, nil
}

// IndexURL returns the index page this state belongs to.
func (s *State) IndexURL() string {
	return s.indexURL
}

// MarkCompleted records a success. It clears any earlier failure.
func (s *State) MarkCompleted(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failed, url)
	s.completed[url] = true
}

// MarkFailed records a failure. Completed items are left untouched.
func (s *State) MarkFailed(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed[url] {
		return
	}
	s.failed[url] = true
}

// IsCompleted reports whether url finished successfully in some run.
func (s *State) IsCompleted(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[url]
}

// IsFailed reports whether url is currently recorded as failed.
func (s *State) IsFailed(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed[url]
}

// Completed returns the completed URLs, sorted.
func (s *State) Completed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.completed)
}

// Failed returns the failed URLs, sorted.
func (s *State) Failed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.failed)
}

// Pending filters items down to those not yet completed, keeping order.
func (s *State) Pending(items []core.WorkItem) []core.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.WorkItem, 0, len(items))
	for _, it := range items {
		if !s.completed[it.URL] {
			out = append(out, it)
		}
	}
	return out
}

// Save writes the state atomically.
func (s *State) Save() error {
	s.mu.Lock()
	f := stateFile{
		IndexURL:  s.indexURL,
		Completed: sortedKeys(s.completed),
		Failed:    sortedKeys(s.failed),
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding batch state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing batch state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("writing batch state: %w", err)
	}
	return nil
}

// Clear deletes the state file. A missing file is not an error.
func (s *State) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing batch state: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
