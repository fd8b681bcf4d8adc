// Package intent matches requests against an ordered list of fast-path
// detectors. The first detector that returns an action wins.
package intent

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/metrics"
	"github.com/ShayCichocki/steward/pkg/models"
)

const agentName = "intent_dispatcher"

// Detector recognises one kind of request. Detect returns nil when the text
// does not match.
type Detector struct {
	Name   string
	Detect func(text string) (*models.Action, error)
}

// Dispatcher evaluates detectors in registration order. The list is fixed at
// construction.
type Dispatcher struct {
	detectors []Detector
	emitter   eventlog.Emitter
	logger    zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEmitter sets the audit event sink.
func WithEmitter(e eventlog.Emitter) Option {
	return func(d *Dispatcher) { d.emitter = e }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher copies detectors so later changes to the caller's slice have no effect.
func NewDispatcher(detectors []Detector, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		detectors: append([]Detector(nil), detectors...),
		emitter:   eventlog.Nop{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Names returns detector names in evaluation order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.detectors))
	for i, det := range d.detectors {
		names[i] = det.Name
	}
	return names
}

// Evaluate returns the first matching action and the detector name, or nil
// and "" when nothing matched. Detector errors and panics count as no match.
func (d *Dispatcher) Evaluate(text string) (*models.Action, string) {
	for _, det := range d.detectors {
		action, err := d.run(det, text)
		if err != nil {
			d.logger.Warn().Err(err).Str("detector", det.Name).Msg("detector failed")
			d.emitter.Emit(models.Event{
				Type:    models.EventDetectorError,
				Agent:   agentName,
				Risk:    models.RiskLow,
				Message: err.Error(),
				Data:    map[string]any{"detector": det.Name},
			})
			continue
		}
		if action == nil {
			continue
		}
		if action.Source == "" {
			action.Source = det.Name
		}
		metrics.DetectorMatches.WithLabelValues(det.Name).Inc()
		d.logger.Debug().Str("detector", det.Name).Str("action", string(action.Type)).Msg("detector matched")
		return action, det.Name
	}
	return nil, ""
}

func (d *Dispatcher) run(det Detector, text string) (action *models.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			action = nil
			err = fmt.Errorf("detector %s panicked: %v", det.Name, r)
		}
	}()
	return det.Detect(text)
}
