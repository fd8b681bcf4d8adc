package procedure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Match is a procedure selected for a request.
type Match struct {
	Procedure *Procedure
	Vars      map[string]string
	Steps     []ExpandedStep
}

// Matcher holds the current procedure set. The set can be swapped atomically
// by the watcher while requests are being matched.
type Matcher struct {
	mu    sync.RWMutex
	procs []*Procedure
}

// NewMatcher returns a matcher over procs in the given order.
func NewMatcher(procs []*Procedure) *Matcher {
	return &Matcher{procs: append([]*Procedure(nil), procs...)}
}

// Match returns the first procedure, in load order, with a matching trigger.
func (m *Matcher) Match(text string) (*Match, bool) {
	m.mu.RLock()
	procs := m.procs
	m.mu.RUnlock()

	for _, p := range procs {
		vars, ok := p.Match(text)
		if !ok {
			continue
		}
		return &Match{Procedure: p, Vars: vars, Steps: p.Expand(vars)}, true
	}
	return nil, false
}

// Replace swaps in a new procedure set.
func (m *Matcher) Replace(procs []*Procedure) {
	m.mu.Lock()
	m.procs = append([]*Procedure(nil), procs...)
	m.mu.Unlock()
}

// Procedures returns the current set.
func (m *Matcher) Procedures() []*Procedure {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Procedure(nil), m.procs...)
}

// IsDefinitionFile reports whether name looks like a procedure file.
func IsDefinitionFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return (ext == ".yaml" || ext == ".yml") && !strings.HasPrefix(filepath.Base(name), ".")
}

// LoadDir parses every definition file in dir, sorted by file name. A missing
// directory yields an empty set. Any invalid file fails the whole load so a
// half-edited file never replaces a working set.
func LoadDir(dir string) ([]*Procedure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read procedures dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsDefinitionFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	procs := make([]*Procedure, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		p, err := Parse(data, path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("procedure %s defined in both %s and %s", p.Name, prev, path)
		}
		seen[p.Name] = path
		procs = append(procs, p)
	}
	return procs, nil
}
