package intent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ShayCichocki/steward/internal/exec"
)

// OSOperations performs operations against the local machine. Relative paths
// resolve under Root.
type OSOperations struct {
	Root string
	// Runner launches programs. Nil means the real OS runner.
	Runner exec.Runner
}

// NewOSOperations roots relative paths at the user's home directory.
func NewOSOperations() *OSOperations {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &OSOperations{Root: home, Runner: exec.NewRunner()}
}

func (o *OSOperations) runner() exec.Runner {
	if o.Runner == nil {
		return exec.NewRunner()
	}
	return o.Runner
}

// Resolve expands ~ and anchors relative paths at Root.
func (o *OSOperations) Resolve(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.Root, path)
	}
	return filepath.Clean(path)
}

// OpenApp launches an application by name without waiting for it.
func (o *OSOperations) OpenApp(ctx context.Context, name string) error {
	r := o.runner()
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = r.Start(ctx, "open", "-a", name)
	case "windows":
		err = r.Start(ctx, "cmd", "/c", "start", "", name)
	default:
		// Prefer the program itself; xdg-open only handles files and URLs.
		if bin := strings.ToLower(strings.ReplaceAll(name, " ", "-")); r.Available(bin) {
			err = r.Start(ctx, bin)
		} else {
			err = r.Start(ctx, "xdg-open", name)
		}
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	return nil
}

// CreateFolder creates the directory and any missing parents.
func (o *OSOperations) CreateFolder(ctx context.Context, path string) error {
	if err := os.MkdirAll(o.Resolve(path), 0755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// DeletePath removes a file or directory tree. Deleting Root itself is refused.
func (o *OSOperations) DeletePath(ctx context.Context, path string) error {
	target := o.Resolve(path)
	if target == filepath.Clean(o.Root) || target == string(filepath.Separator) {
		return errors.New("refusing to delete root directory")
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("delete path: %w", err)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("delete path: %w", err)
	}
	return nil
}

// SystemInfo summarises the host.
func (o *OSOperations) SystemInfo(ctx context.Context) (string, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	info := fmt.Sprintf("host=%s os=%s arch=%s cpus=%d go=%s",
		host, runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())
	if runtime.GOOS != "windows" {
		if kernel, err := o.runner().Output(ctx, "uname", "-sr"); err == nil && kernel != "" {
			info += fmt.Sprintf(" kernel=%q", kernel)
		}
	}
	return info, nil
}
