package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/steward/pkg/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLog_AppendAndQuery(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)
	l, err := Open(dir, WithClock(fixedClock(now)))
	require.NoError(t, err)

	l.Emit(models.Event{Type: models.EventTaskCreated, Agent: "task_queue", TaskID: "t1"})
	l.Emit(models.Event{Type: models.EventRoutingDecision, Agent: "orchestrator", Message: "generate"})
	l.Emit(models.Event{Type: models.EventTaskTransition, Agent: "task_queue", TaskID: "t1", Risk: models.RiskMedium})

	_, err = os.Stat(filepath.Join(dir, "events-2026-03-14.jsonl"))
	require.NoError(t, err, "partition file should be named after the day")

	all, err := l.Query(QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, now.Unix(), all[0].Timestamp.Unix())
	assert.Equal(t, models.RiskLow, all[0].Risk, "risk defaults to low")
	assert.Equal(t, models.RiskMedium, all[2].Risk)

	routing, err := l.Query(QueryOpts{Type: models.EventRoutingDecision})
	require.NoError(t, err)
	require.Len(t, routing, 1)
	assert.Equal(t, "generate", routing[0].Message)

	byTask, err := l.Query(QueryOpts{TaskID: "t1"})
	require.NoError(t, err)
	assert.Len(t, byTask, 2)

	limited, err := l.Query(QueryOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, models.EventTaskTransition, limited[0].Type, "limit keeps the most recent")
}

func TestLog_QueryMissingDay(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)

	events, err := l.Query(QueryOpts{Day: time.Date(2001, 1, 1, 0, 0, 0, 0, time.Local)})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLog_PartitionsByEventDay(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)

	day1 := time.Date(2026, 1, 1, 23, 59, 0, 0, time.Local)
	day2 := time.Date(2026, 1, 2, 0, 1, 0, 0, time.Local)
	require.NoError(t, l.Append(models.Event{Timestamp: day1, Type: models.EventJobFired}))
	require.NoError(t, l.Append(models.Event{Timestamp: day2, Type: models.EventJobFired}))

	days, err := l.Days()
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-01-01", days[0].Format("2006-01-02"))
	assert.Equal(t, "2026-01-02", days[1].Format("2006-01-02"))
}

func TestLog_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 5, 12, 0, 0, 0, time.Local)
	l, err := Open(dir, WithClock(fixedClock(now)))
	require.NoError(t, err)

	l.Emit(models.Event{Type: models.EventJobAdded})
	f, err := os.OpenFile(filepath.Join(dir, "events-2026-05-05.jsonl"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	l.Emit(models.Event{Type: models.EventJobRemoved})

	events, err := l.Query(QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestLog_Sweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 6, 30, 9, 0, 0, 0, time.Local)
	l, err := Open(dir, WithClock(fixedClock(now)))
	require.NoError(t, err)

	for _, d := range []time.Time{
		now.AddDate(0, 0, -40),
		now.AddDate(0, 0, -31),
		now.AddDate(0, 0, -30),
		now.AddDate(0, 0, -1),
		now,
	} {
		require.NoError(t, l.Append(models.Event{Timestamp: d, Type: models.EventJobFired}))
	}
	// Unrelated files are left alone.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	removed, err := l.Sweep(30)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	days, err := l.Days()
	require.NoError(t, err)
	assert.Len(t, days, 3)

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)

	removed, err = l.Sweep(0)
	require.NoError(t, err)
	assert.Zero(t, removed, "zero retention keeps everything")
}

func TestLog_Feed(t *testing.T) {
	feed := NewFeed(4, testLogger())
	l, err := Open(t.TempDir(), WithFeed(feed))
	require.NoError(t, err)

	l.Emit(models.Event{Type: models.EventTaskCreated})

	select {
	case ev := <-feed.Events():
		assert.Equal(t, models.EventTaskCreated, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event not published to feed")
	}
}

func TestFeed_DropsWhenFull(t *testing.T) {
	feed := NewFeed(1, testLogger())
	feed.Publish(models.Event{Type: models.EventJobFired})
	feed.Publish(models.Event{Type: models.EventJobFired})

	assert.Equal(t, uint64(1), feed.DroppedCount())
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b}

	m.Emit(models.Event{Type: models.EventJobAdded})
	m.Emit(models.Event{Type: models.EventJobFired})

	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.OfType(models.EventJobFired), 1)
}
