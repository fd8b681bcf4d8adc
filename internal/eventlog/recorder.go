package eventlog

import (
	"sync"

	"github.com/ShayCichocki/steward/pkg/models"
)

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(event models.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of every recorded event.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events of the given type.
func (r *Recorder) OfType(t models.EventType) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans each event out to several emitters.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(event models.Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
