package intent

import "context"

// Operations is the OS-level collaborator used by built-in detectors.
type Operations interface {
	OpenApp(ctx context.Context, name string) error
	CreateFolder(ctx context.Context, path string) error
	DeletePath(ctx context.Context, path string) error
	SystemInfo(ctx context.Context) (string, error)
}
