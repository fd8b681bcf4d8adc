// Package exec runs external programs for the local operations steward performs.
package exec

import "context"

// Runner starts external programs. It exists so operations that shell out
// can be tested without touching the machine.
type Runner interface {
	// Start launches a program without waiting for it to exit. The program
	// outlives ctx; ctx only aborts the launch itself.
	Start(ctx context.Context, name string, args ...string) error

	// Output runs a program to completion and returns its trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// Available reports whether name resolves on PATH.
	Available(name string) bool
}
