// Package capability holds pluggable handlers that claim requests by score.
package capability

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/steward/pkg/models"
)

// Handler is a domain plugin. Score returns a confidence in [0,1] that the
// handler can serve the request.
type Handler interface {
	Name() string
	Category() string
	RiskCeiling() models.RiskLevel
	Score(request string) float64
	Execute(ctx context.Context, request string) (*models.Action, error)
}

// PluginExecutionError wraps a handler failure or panic.
type PluginExecutionError struct {
	Handler string
	Err     error
}

func (e *PluginExecutionError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Handler, e.Err)
}

func (e *PluginExecutionError) Unwrap() error { return e.Err }
