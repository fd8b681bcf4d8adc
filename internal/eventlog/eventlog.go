// Package eventlog is the append-only audit trail. Events are written as JSON
// lines into one file per calendar day and mirrored to the diagnostic logger.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/pkg/models"
)

const (
	filePrefix = "events-"
	fileSuffix = ".jsonl"
	dayLayout  = "2006-01-02"
)

// Emitter accepts audit events. Components depend on this instead of *Log.
type Emitter interface {
	Emit(event models.Event)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(models.Event) {}

// Log writes events to day-partitioned JSONL files under dir.
type Log struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
	feed   *Feed

	mu sync.Mutex
}

// Option configures a Log.
type Option func(*Log)

// WithLogger mirrors every event to the given logger at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(lg *Log) { lg.logger = l }
}

// WithClock overrides the time source used to stamp and partition events.
func WithClock(now func() time.Time) Option {
	return func(lg *Log) { lg.now = now }
}

// WithFeed forwards every written event to a live subscriber feed.
func WithFeed(f *Feed) Option {
	return func(lg *Log) { lg.feed = f }
}

// Open creates the event directory if needed and returns a Log writing into it.
func Open(dir string, opts ...Option) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create event dir: %w", err)
	}
	l := &Log{
		dir:    dir,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Dir returns the directory holding the partitions.
func (l *Log) Dir() string {
	return l.dir
}

// Emit appends the event. Write failures are logged, never returned, so that
// auditing cannot break the request path.
func (l *Log) Emit(event models.Event) {
	if err := l.Append(event); err != nil {
		l.logger.Error().Err(err).Str("type", string(event.Type)).Msg("event log write failed")
	}
}

// Append stamps the event if needed and writes it to the partition for its day.
func (l *Log) Append(event models.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if event.Risk == "" {
		event.Risk = models.RiskLow
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	err = l.write(event.Timestamp, line)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.logger.Debug().
		Str("type", string(event.Type)).
		Str("agent", event.Agent).
		Str("task_id", event.TaskID).
		Str("risk", string(event.Risk)).
		Msg(event.Message)

	if l.feed != nil {
		l.feed.Publish(event)
	}
	return nil
}

func (l *Log) write(ts time.Time, line []byte) error {
	f, err := os.OpenFile(l.partition(ts), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open partition: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write event: %w", err)
	}
	return f.Close()
}

func (l *Log) partition(ts time.Time) string {
	return filepath.Join(l.dir, filePrefix+ts.Format(dayLayout)+fileSuffix)
}

// QueryOpts filters events read back from the log.
type QueryOpts struct {
	// Day selects the partition; zero means today.
	Day time.Time
	// Type keeps only events of this type when set.
	Type models.EventType
	// TaskID keeps only events about this task when set.
	TaskID string
	// Limit keeps the most recent N matches (0 = no limit).
	Limit int
}

// Query reads one day's partition and returns matching events oldest first.
// A missing partition yields no events and no error.
func (l *Log) Query(opts QueryOpts) ([]models.Event, error) {
	day := opts.Day
	if day.IsZero() {
		day = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.partition(day))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open partition: %w", err)
	}
	defer f.Close()

	var events []models.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev models.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			l.logger.Warn().Err(err).Msg("skipping corrupt event line")
			continue
		}
		if opts.Type != "" && ev.Type != opts.Type {
			continue
		}
		if opts.TaskID != "" && ev.TaskID != opts.TaskID {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan partition: %w", err)
	}

	if opts.Limit > 0 && len(events) > opts.Limit {
		events = events[len(events)-opts.Limit:]
	}
	return events, nil
}

// Days lists the days that have a partition, oldest first.
func (l *Log) Days() ([]time.Time, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read event dir: %w", err)
	}

	var days []time.Time
	for _, e := range entries {
		day, ok := parsePartition(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func parsePartition(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	day, err := time.ParseInLocation(dayLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
