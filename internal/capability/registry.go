package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/pkg/models"
)

// Match is the best-scoring handler for a request.
type Match struct {
	Handler Handler
	Score   float64
}

// Registry holds handlers in registration order.
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a handler. Names must be unique.
func (r *Registry) Register(h Handler) error {
	if h == nil || h.Name() == "" {
		return errors.New("handler must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.handlers {
		if existing.Name() == h.Name() {
			return fmt.Errorf("handler %q already registered", h.Name())
		}
	}
	r.handlers = append(r.handlers, h)
	return nil
}

// Handlers returns the registered handlers in order.
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Handler(nil), r.handlers...)
}

// Best returns the highest-scoring handler whose score reaches threshold.
// Ties go to the earlier registration. A handler whose Score panics scores 0.
func (r *Registry) Best(request string, threshold float64) (Match, bool) {
	var best Match
	found := false
	for _, h := range r.Handlers() {
		score := r.safeScore(h, request)
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = Match{Handler: h, Score: score}
			found = true
		}
	}
	return best, found
}

// BestInCategory is Best restricted to one category, with no threshold.
func (r *Registry) BestInCategory(category, request string) (Match, bool) {
	var best Match
	found := false
	for _, h := range r.Handlers() {
		if h.Category() != category {
			continue
		}
		score := r.safeScore(h, request)
		if !found || score > best.Score {
			best = Match{Handler: h, Score: score}
			found = true
		}
	}
	return best, found
}

func (r *Registry) safeScore(h Handler, request string) (score float64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().Str("handler", h.Name()).Interface("panic", rec).Msg("handler score panicked")
			score = 0
		}
	}()
	return h.Score(request)
}

// Execute runs the handler, converting errors and panics into
// *PluginExecutionError. The returned action's risk never exceeds the
// handler's declared ceiling.
func (r *Registry) Execute(ctx context.Context, h Handler, request string) (action *models.Action, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			action = nil
			err = &PluginExecutionError{Handler: h.Name(), Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	action, err = h.Execute(ctx, request)
	if err != nil {
		return nil, &PluginExecutionError{Handler: h.Name(), Err: err}
	}
	if action == nil {
		return nil, &PluginExecutionError{Handler: h.Name(), Err: errors.New("no action returned")}
	}
	if action.Source == "" {
		action.Source = h.Name()
	}
	ceiling := h.RiskCeiling()
	if action.Risk == "" || (ceiling.Valid() && action.Risk.Rank() > ceiling.Rank()) {
		action.Risk = ceiling
	}
	return action, nil
}
