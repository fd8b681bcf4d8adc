package eventlog

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/pkg/models"
)

// Feed fans written events out to a live subscriber such as `steward serve --follow`.
// A slow subscriber loses events rather than blocking writers.
type Feed struct {
	events       chan models.Event
	droppedCount atomic.Uint64
	logger       zerolog.Logger
}

// NewFeed creates a Feed with the given buffer size.
func NewFeed(bufferSize int, logger zerolog.Logger) *Feed {
	return &Feed{
		events: make(chan models.Event, bufferSize),
		logger: logger,
	}
}

// Publish sends an event to the subscriber.
// If the channel is full, it tries with a timeout before dropping the event.
func (f *Feed) Publish(event models.Event) {
	select {
	case f.events <- event:
		return
	default:
	}

	select {
	case f.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := f.droppedCount.Add(1)
		if count%10 == 1 {
			f.logger.Warn().Uint64("dropped", count).Str("type", string(event.Type)).Msg("event feed full, dropping")
		}
	}
}

// Events returns a read-only channel of events.
func (f *Feed) Events() <-chan models.Event {
	return f.events
}

// DroppedCount returns the total number of events that have been dropped.
func (f *Feed) DroppedCount() uint64 {
	return f.droppedCount.Load()
}
