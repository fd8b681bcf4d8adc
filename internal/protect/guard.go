package protect

import (
	"path/filepath"
	"strings"
	"sync"
)

// Guard checks whether a path is in a protected area. It is safe for
// concurrent use. Checks run in order: explicit roots, glob patterns,
// keywords in the final path element, then file type.
type Guard struct {
	mu        sync.RWMutex
	roots     map[string]bool
	patterns  []string
	keywords  []string
	fileTypes []string
}

// Rules extend the defaults, typically from configuration.
type Rules struct {
	Patterns  []string `mapstructure:"patterns"`
	Keywords  []string `mapstructure:"keywords"`
	FileTypes []string `mapstructure:"file_types"`
}

// New creates a guard with the default rules. roots are directories that may
// never be targeted themselves, such as the user's home directory.
func New(roots ...string) *Guard {
	g := &Guard{
		roots:     make(map[string]bool),
		patterns:  append([]string{}, DefaultPatterns...),
		keywords:  append([]string{}, DefaultKeywords...),
		fileTypes: append([]string{}, DefaultFileTypes...),
	}
	g.roots["/"] = true
	for _, r := range roots {
		g.AddRoot(r)
	}
	return g
}

// Extend appends rules to the guard.
func (g *Guard) Extend(r Rules) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.patterns = append(g.patterns, r.Patterns...)
	for _, k := range r.Keywords {
		g.keywords = append(g.keywords, strings.ToLower(k))
	}
	for _, ext := range r.FileTypes {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		g.fileTypes = append(g.fileTypes, strings.ToLower(ext))
	}
}

// AddRoot protects dir itself. Its contents stay unprotected unless another
// rule matches.
func (g *Guard) AddRoot(dir string) {
	if dir == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots[filepath.ToSlash(filepath.Clean(dir))] = true
}

// IsProtected reports whether path is protected.
func (g *Guard) IsProtected(path string) bool {
	protected, _ := g.Check(path)
	return protected
}

// Check reports whether path is protected and why. path should be absolute.
func (g *Guard) Check(path string) (bool, string) {
	if path == "" {
		return false, ""
	}
	clean := filepath.ToSlash(filepath.Clean(path))

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.roots[clean] {
		return true, "is a protected root: " + clean
	}
	for _, pattern := range g.patterns {
		if matchGlobPattern(clean, pattern) {
			return true, "matches protected pattern " + pattern
		}
	}

	base := strings.ToLower(filepath.Base(clean))
	for _, keyword := range g.keywords {
		if strings.Contains(base, keyword) {
			return true, "name contains " + keyword
		}
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, ft := range g.fileTypes {
		if ext == ft {
			return true, "file type " + ft + " is protected"
		}
	}
	return false, ""
}
