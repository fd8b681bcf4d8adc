package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OSRunner implements Runner using os/exec.
type OSRunner struct{}

// NewRunner creates a new OSRunner.
func NewRunner() *OSRunner {
	return &OSRunner{}
}

// Start launches the program detached from ctx and reaps it in the background.
func (r *OSRunner) Start(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// exec.CommandContext would kill the program when ctx ends.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Output runs the program and returns stdout. Stderr is folded into the error.
func (r *OSRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Available reports whether name resolves on PATH.
func (r *OSRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Verify OSRunner implements Runner at compile time.
var _ Runner = (*OSRunner)(nil)
